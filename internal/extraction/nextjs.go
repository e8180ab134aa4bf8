package extraction

import (
	"encoding/json"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/jonathan/kb-refresh/internal/types"
)

var nextPushPattern = regexp.MustCompile(`(?s)self\.__next_f\.push\(\[1,"(.*?)"\]\)`)

// NextMenuPayload finds the Next.js flight fragment that carries menuCategories and returns
// the object holding it. It returns an *Error when no fragment does.
func NextMenuPayload(page string) (map[string]any, error) {
	matches := nextPushPattern.FindAllStringSubmatch(page, -1)
	if len(matches) == 0 {
		return nil, &Error{Message: "no __next_f payload found"}
	}
	for _, m := range matches {
		if !strings.Contains(m[1], "menuCategories") {
			continue
		}
		var frag string
		if err := json.Unmarshal([]byte(`"`+m[1]+`"`), &frag); err != nil {
			continue
		}
		_, body, ok := strings.Cut(frag, ":")
		if !ok {
			continue
		}
		var payload any
		if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &payload); err != nil {
			continue
		}
		if value := findMenuValue(payload); value != nil {
			return value, nil
		}
	}
	return nil, &Error{Message: "menuCategories not found in __next_f payload"}
}

// findMenuValue returns the first {"value": {"menuCategories": ...}} object's value.
// Object keys are visited in sorted order so repeated runs pick the same menu.
func findMenuValue(data any) map[string]any {
	switch v := data.(type) {
	case []any:
		for _, item := range v {
			if r := findMenuValue(item); r != nil {
				return r
			}
		}
	case map[string]any:
		if value, ok := v["value"].(map[string]any); ok {
			if _, ok := value["menuCategories"]; ok {
				return value
			}
		}
		if _, ok := v["menuCategories"]; ok {
			return v
		}
		keys := slices.Sorted(maps.Keys(v))
		for _, k := range keys {
			if r := findMenuValue(v[k]); r != nil {
				return r
			}
		}
	}
	return nil
}

// MenuSections flattens menuCategories → menuGroups → menuItems into sections titled
// "<category> — <group>".
func MenuSections(value map[string]any) []types.MenuSection {
	cats, _ := value["menuCategories"].([]any)
	var sections []types.MenuSection
	for _, c := range cats {
		cat, ok := c.(map[string]any)
		if !ok {
			continue
		}
		catName := NormalizeWhitespace(stringField(cat, "menuCatName"))
		if catName == "" {
			catName = "Menu"
		}
		groups, _ := cat["menuGroups"].([]any)
		for _, g := range groups {
			group, ok := g.(map[string]any)
			if !ok {
				continue
			}
			groupName := NormalizeWhitespace(stringField(group, "menuGroupName"))
			if groupName == "" {
				groupName = "(Unlabeled)"
			}
			section := types.MenuSection{Title: catName + " — " + groupName}
			items, _ := group["menuItems"].([]any)
			for _, it := range items {
				item, ok := it.(map[string]any)
				if !ok {
					continue
				}
				name := NormalizeWhitespace(stringField(item, "menuItemName"))
				if name == "" {
					continue
				}
				section.Items = append(section.Items, types.MenuItem{
					Name:        name,
					Description: NormalizeWhitespace(stringField(item, "menuItemDesc")),
					Price:       formatPrice(item["menuItemPrice"]),
					Flags:       itemFlags(item),
				})
			}
			sections = append(sections, section)
		}
	}
	return sections
}

func formatPrice(v any) string {
	switch p := v.(type) {
	case float64:
		return fmt.Sprintf("$%.2f", p)
	case string:
		p = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(p), "$"))
		if p == "" {
			return ""
		}
		if f, err := strconv.ParseFloat(p, 64); err == nil {
			return fmt.Sprintf("$%.2f", f)
		}
		return "$" + p
	}
	return ""
}

func itemFlags(item map[string]any) []string {
	var flags []string
	for _, key := range []string{"spicy", "popular"} {
		if on, _ := item[key].(bool); on {
			flags = append(flags, key)
		}
	}
	return flags
}
