package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jonathan/kb-refresh/internal/rendering"
	"github.com/jonathan/kb-refresh/internal/types"
)

// DefaultMinBytes is the smallest acceptable size for each KB file.
const DefaultMinBytes = 5000

// Rules are the checks applied to a restaurant's KB files.
type Rules struct {
	MinBytes     int
	RequiredText []string
}

var areaCodePattern = regexp.MustCompile(`\(?(\d{3})\)?[\s\-.]?\d{3}[\s\-.]?\d{4}`)

// DefaultRules requires the restaurant name, its city, the phone area code as "(813)",
// "Hours" and "Menu". Profile validation settings replace the size and extend the text list.
func DefaultRules(profile *types.RestaurantProfile) Rules {
	rules := Rules{MinBytes: DefaultMinBytes}
	rules.add(profile.Name, profile.City)
	if m := areaCodePattern.FindStringSubmatch(profile.Phone); m != nil {
		rules.add("(" + m[1] + ")")
	}
	rules.add("Hours", "Menu")
	if v := profile.Validation; v != nil {
		if v.MinBytes > 0 {
			rules.MinBytes = v.MinBytes
		}
		rules.add(v.RequiredText...)
	}
	return rules
}

// With returns a copy of r using minBytes when it is positive and requiring extra text.
func (r Rules) With(minBytes int, extra ...string) Rules {
	out := Rules{MinBytes: r.MinBytes, RequiredText: append([]string(nil), r.RequiredText...)}
	if minBytes > 0 {
		out.MinBytes = minBytes
	}
	out.add(extra...)
	return out
}

func (r *Rules) add(texts ...string) {
	for _, s := range texts {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		dup := false
		for _, existing := range r.RequiredText {
			if existing == s {
				dup = true
				break
			}
		}
		if !dup {
			r.RequiredText = append(r.RequiredText, s)
		}
	}
}

// ValidateKB checks that both files exist and reach MinBytes, and that the HTML contains
// every required string, raw or HTML-escaped. Problems are reported as missing:<file>, too_small:<file>:<bytes>
// and missing_text:<text>.
func ValidateKB(htmlPath, mdPath string, rules Rules) error {
	var problems []string
	for _, p := range []string{htmlPath, mdPath} {
		info, err := os.Stat(p)
		if err != nil {
			problems = append(problems, "missing:"+filepath.Base(p))
			continue
		}
		if rules.MinBytes > 0 && info.Size() < int64(rules.MinBytes) {
			problems = append(problems, fmt.Sprintf("too_small:%s:%d", filepath.Base(p), info.Size()))
		}
	}

	if data, err := os.ReadFile(htmlPath); err == nil {
		html := string(data)
		for _, s := range rules.RequiredText {
			if !strings.Contains(html, s) && !strings.Contains(html, rendering.EscapeHTML(s)) {
				problems = append(problems, "missing_text:"+s)
			}
		}
	}

	if len(problems) > 0 {
		return &Error{Message: "KB output failed checks", Problems: problems}
	}
	return nil
}
