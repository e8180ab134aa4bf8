package schemas

import (
	_ "embed"
)

// RestaurantProfileSchema is the JSON Schema every restaurant_profile.json must satisfy.
//
//go:embed restaurant_profile.schema.json
var RestaurantProfileSchema string

// ValidateProfile validates a decoded restaurant profile document.
func ValidateProfile(doc any) error {
	return ValidateDocument("restaurant_profile.schema.json", RestaurantProfileSchema, doc)
}
