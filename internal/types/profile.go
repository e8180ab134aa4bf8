// Package types provides type definitions for structured data used throughout the kb-refresh system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// Scrape strategies a profile can select.
const (
	StrategyGeneric   = "generic"
	StrategyNextJS    = "nextjs"
	StrategyYext      = "yext"
	StrategyOrderSite = "order_site"
)

// MenuPageRef names one menu page to fetch for multi-page strategies.
type MenuPageRef struct {
	Title string `json:"title" validate:"required"`
	URL   string `json:"url" validate:"required,url"`
}

// ValidationRules overrides the default KB output checks for a restaurant.
type ValidationRules struct {
	MinBytes     int      `json:"min_bytes,omitempty" validate:"gte=0"`
	RequiredText []string `json:"required_text,omitempty"`
}

// RestaurantProfile holds the static facts for one restaurant. It is read-only input to the scraper.
type RestaurantProfile struct {
	Slug     string `json:"slug" validate:"required,slug"`
	Name     string `json:"name" validate:"required"`
	City     string `json:"city,omitempty"`
	State    string `json:"state,omitempty"`
	Address  string `json:"address,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Website  string `json:"website,omitempty" validate:"omitempty,url"`
	MenuURL  string `json:"menu_url,omitempty" validate:"omitempty,url"`
	OrderURL string `json:"order_url,omitempty" validate:"omitempty,url"`
	Hours    string `json:"hours,omitempty"`

	Strategy    string        `json:"strategy,omitempty" validate:"omitempty,oneof=generic nextjs yext order_site"`
	MenuPages   []MenuPageRef `json:"menu_pages,omitempty" validate:"dive"`
	LocationURL string        `json:"location_url,omitempty" validate:"omitempty,url"`
	ContactURL  string        `json:"contact_url,omitempty" validate:"omitempty,url"`
	YextURL     string        `json:"yext_url,omitempty" validate:"omitempty,url"`
	UseBrowser  bool          `json:"use_browser,omitempty"`

	Validation *ValidationRules `json:"validation,omitempty"`
}

var profileValidator = newProfileValidator()

func newProfileValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return IsSlug(fl.Field().String())
	})
	return v
}

// Validate validates the RestaurantProfile using the validator.
func (p *RestaurantProfile) Validate() error {
	return profileValidator.Struct(p)
}

// EffectiveStrategy returns the configured strategy, defaulting to generic.
func (p *RestaurantProfile) EffectiveStrategy() string {
	if p.Strategy == "" {
		return StrategyGeneric
	}
	return p.Strategy
}

// CityState formats "City, ST", dropping whichever half is empty.
func (p *RestaurantProfile) CityState() string {
	parts := make([]string, 0, 2)
	if c := strings.TrimSpace(p.City); c != "" {
		parts = append(parts, c)
	}
	if s := strings.TrimSpace(p.State); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}

// IsSlug reports whether s is usable as a directory and file key: lowercase letters, digits, '_' and '-'.
func IsSlug(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}
