package extraction

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// LDRestaurant is the subset of a schema.org Restaurant block the KB uses.
type LDRestaurant struct {
	Name         string
	Telephone    string
	Street       string
	City         string
	Region       string
	PostalCode   string
	OpeningHours []string
}

// Address joins the street and "City, ST ZIP" parts, skipping empty ones.
func (r *LDRestaurant) Address() string {
	locality := strings.TrimSpace(strings.Join(nonEmpty(r.City, strings.TrimSpace(r.Region+" "+r.PostalCode)), ", "))
	return strings.Join(nonEmpty(r.Street, locality), ", ")
}

// RestaurantLD returns the first application/ld+json object typed Restaurant or
// FoodEstablishment, looking inside arrays and @graph. It returns nil when none is present.
func RestaurantLD(page string) *LDRestaurant {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil
	}
	var found map[string]any
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data any
		if err := json.Unmarshal([]byte(strings.TrimSpace(s.Text())), &data); err != nil {
			return true
		}
		found = findRestaurant(data)
		return found == nil
	})
	if found == nil {
		return nil
	}
	return decodeRestaurant(found)
}

func findRestaurant(data any) map[string]any {
	switch v := data.(type) {
	case []any:
		for _, item := range v {
			if r := findRestaurant(item); r != nil {
				return r
			}
		}
	case map[string]any:
		if isRestaurantType(v["@type"]) {
			return v
		}
		if graph, ok := v["@graph"]; ok {
			return findRestaurant(graph)
		}
	}
	return nil
}

func isRestaurantType(t any) bool {
	switch v := t.(type) {
	case string:
		return v == "Restaurant" || v == "FoodEstablishment"
	case []any:
		for _, item := range v {
			if isRestaurantType(item) {
				return true
			}
		}
	}
	return false
}

func decodeRestaurant(m map[string]any) *LDRestaurant {
	r := &LDRestaurant{
		Name:      NormalizeWhitespace(stringField(m, "name")),
		Telephone: NormalizeWhitespace(stringField(m, "telephone")),
	}
	if addr, ok := m["address"].(map[string]any); ok {
		r.Street = NormalizeWhitespace(stringField(addr, "streetAddress"))
		r.City = NormalizeWhitespace(stringField(addr, "addressLocality"))
		r.Region = NormalizeWhitespace(stringField(addr, "addressRegion"))
		r.PostalCode = NormalizeWhitespace(stringField(addr, "postalCode"))
	} else if s, ok := m["address"].(string); ok {
		r.Street = NormalizeWhitespace(s)
	}

	r.OpeningHours = append(r.OpeningHours, stringList(m["openingHours"])...)
	switch spec := m["openingHoursSpecification"].(type) {
	case map[string]any:
		r.OpeningHours = append(r.OpeningHours, stringList(spec["openingHours"])...)
		r.OpeningHours = append(r.OpeningHours, specEntries([]any{spec})...)
	case []any:
		r.OpeningHours = append(r.OpeningHours, specEntries(spec)...)
	}
	return r
}

// specEntries converts {dayOfWeek, opens, closes} objects to "Mo,Tu 11:00-21:00" entries.
func specEntries(specs []any) []string {
	var out []string
	for _, s := range specs {
		m, ok := s.(map[string]any)
		if !ok {
			continue
		}
		opens, closes := stringField(m, "opens"), stringField(m, "closes")
		if len(opens) < 5 || len(closes) < 5 {
			continue
		}
		var codes []string
		for _, d := range stringList(m["dayOfWeek"]) {
			d = d[strings.LastIndex(d, "/")+1:]
			if len(d) >= 2 {
				codes = append(codes, d[:2])
			}
		}
		if len(codes) == 0 {
			continue
		}
		out = append(out, strings.Join(codes, ",")+" "+opens[:5]+"-"+closes[:5])
	}
	return out
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func stringList(v any) []string {
	switch t := v.(type) {
	case string:
		if t = strings.TrimSpace(t); t != "" {
			return []string{t}
		}
	case []any:
		var out []string
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	}
	return nil
}

func nonEmpty(parts ...string) []string {
	out := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
