package config

import (
	"fmt"
	"os"

	"github.com/titanous/json5"

	"github.com/jonathan/kb-refresh/internal/schemas"
	"github.com/jonathan/kb-refresh/internal/types"
)

// LoadProfile reads a restaurant profile, checks it against the profile schema and the
// struct rules, and returns it. When slug is set it fills a missing profile slug and must
// match a present one. Every failure is a *types.ConfigError.
func LoadProfile(path, slug string) (*types.RestaurantProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &types.ConfigError{Path: path, Message: "failed to read profile", Cause: err}
	}

	var doc map[string]any
	if err := json5.Unmarshal(data, &doc); err != nil {
		return nil, &types.ConfigError{Path: path, Message: "failed to parse profile", Cause: err}
	}
	if slug != "" {
		switch existing, _ := doc["slug"].(string); {
		case existing == "":
			doc["slug"] = slug
		case existing != slug:
			return nil, &types.ConfigError{Path: path, Message: fmt.Sprintf("profile slug %q does not match %q", existing, slug)}
		}
	}
	if err := schemas.ValidateProfile(doc); err != nil {
		return nil, &types.ConfigError{Path: path, Message: "profile does not match schema", Cause: err}
	}

	var profile types.RestaurantProfile
	if err := json5.Unmarshal(data, &profile); err != nil {
		return nil, &types.ConfigError{Path: path, Message: "failed to decode profile", Cause: err}
	}
	if profile.Slug == "" {
		profile.Slug = slug
	}
	if err := profile.Validate(); err != nil {
		return nil, &types.ConfigError{Path: path, Message: "invalid profile", Cause: err}
	}
	return &profile, nil
}
