// Package pitchdeck renders the copy/paste pitch deck content pack for a restaurant from its
// profile snapshot and KB.
package pitchdeck

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/jonathan/kb-refresh/internal/persist"
	"github.com/jonathan/kb-refresh/internal/types"
)

//go:embed templates/pitch_deck.md.tmpl
var templateFS embed.FS

var deckTemplate = template.Must(template.New("pitch_deck.md.tmpl").Funcs(template.FuncMap{
	"add": func(a, b int) int { return a + b },
}).ParseFS(templateFS, "templates/pitch_deck.md.tmpl"))

// DefaultState is used when the profile has no state.
const DefaultState = "FL"

// FileName returns pitch_deck_content_<slug>.md.
func FileName(slug string) string {
	return "pitch_deck_content_" + slug + ".md"
}

// Plan is one pricing package.
type Plan struct {
	Name     string
	Price    string
	Intro    string
	Features []string
}

func monthly(lo, hi int) string {
	return fmt.Sprintf("%d to %d dollars/month + usage fee", lo, hi)
}

// Plans lists the packages in the order they are pitched.
var Plans = []Plan{
	{
		Name: "Starter Plan", Price: monthly(200, 250), Intro: "Includes:",
		Features: []string{
			"Answer calls and handle FAQs: hours, directions, phone, menu link",
			"KB-first accuracy (no guessing)",
			"Basic reservation request capture (if requested): day/time, party size, name, callback",
			"Monthly refresh: 1 KB update + light tuning",
		},
	},
	{
		Name: "Medium Plan", Price: monthly(300, 350), Intro: "Everything in Starter, plus:",
		Features: []string{
			"After-hours coverage: capture intent and provide next-step messaging",
			"Bi-weekly optimization based on transcripts",
			"Simple reporting: call volume + top intents",
		},
	},
	{
		Name: "High Plan", Price: monthly(400, 450), Intro: "Everything in Medium, plus:",
		Features: []string{
			"Weekly optimization + QA scoring",
			"Custom escalation rules",
		},
	},
	{
		Name: "Website + AI Assistant Plan", Price: monthly(450, 500), Intro: "Includes:",
		Features: []string{
			"Simple mobile-friendly site refresh (1-3 pages) and basic SEO foundation",
			"AI phone assistant (Medium plan feature set)",
		},
	},
}

type deck struct {
	Name, Slug, City, State    string
	Address, Phone             string
	Website, MenuURL, OrderURL string
	HasHours                   bool
	HoursLines                 []string
	Plans                      []Plan
}

var (
	kbPhonePattern   = regexp.MustCompile(`- Phone: (\(\d{3}\) \d{3}-\d{4})`)
	kbAddressPattern = regexp.MustCompile(`- Address: (.+)`)
	kbHoursPattern   = regexp.MustCompile(`## Hours\n([\s\S]*?)\n\n## `)
)

// KBFields holds the contact details read back from a KB Markdown document.
type KBFields struct {
	Address string
	Phone   string
	Hours   string
}

// ParseKB reads the address, phone and hours block from KB Markdown.
func ParseKB(md string) KBFields {
	var f KBFields
	if m := kbPhonePattern.FindStringSubmatch(md); m != nil {
		f.Phone = m[1]
	}
	if m := kbAddressPattern.FindStringSubmatch(md); m != nil {
		f.Address = strings.TrimSpace(m[1])
	}
	if m := kbHoursPattern.FindStringSubmatch(md); m != nil {
		f.Hours = strings.TrimSpace(m[1])
	}
	return f
}

// Build renders the content pack. Address, phone and hours missing from the profile are
// taken from kbMarkdown when given. The result is plain ASCII.
func Build(p *types.RestaurantProfile, kbMarkdown string) (string, error) {
	if p == nil {
		return "", &types.ConfigError{Message: "profile is required"}
	}
	d := deck{
		Name:     firstNonEmpty(p.Name, p.Slug, "Restaurant"),
		Slug:     p.Slug,
		City:     p.City,
		State:    firstNonEmpty(p.State, DefaultState),
		Address:  strings.TrimSpace(p.Address),
		Phone:    strings.TrimSpace(p.Phone),
		Website:  p.Website,
		MenuURL:  p.MenuURL,
		OrderURL: p.OrderURL,
		Plans:    Plans,
	}
	hours := strings.TrimSpace(p.Hours)
	if kbMarkdown != "" {
		kb := ParseKB(kbMarkdown)
		d.Address = firstNonEmpty(d.Address, kb.Address)
		d.Phone = firstNonEmpty(d.Phone, kb.Phone)
		hours = firstNonEmpty(hours, kb.Hours)
	}
	d.HasHours = hours != ""
	for _, ln := range strings.Split(hours, "\n") {
		ln = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(ln), "- "))
		if ln != "" {
			d.HoursLines = append(d.HoursLines, ln)
		}
	}

	var out strings.Builder
	if err := deckTemplate.Execute(&out, d); err != nil {
		return "", fmt.Errorf("failed to render pitch deck: %w", err)
	}
	return SanitizeASCII(strings.TrimSpace(out.String()) + "\n"), nil
}

var asciiReplacer = strings.NewReplacer(
	"\u2014", "-",
	"\u2013", "-",
	"\u2212", "-",
	"\u2019", "'",
	"\u2018", "'",
	"\u201c", `"`,
	"\u201d", `"`,
	"\u2026", "...",
	"\u2022", "-",
	"\u2192", "->",
	"\u00a0", " ",
)

// SanitizeASCII replaces common typography with ASCII equivalents and drops any other
// non-ASCII rune.
func SanitizeASCII(s string) string {
	s = asciiReplacer.Replace(s)
	return strings.Map(func(r rune) rune {
		if r > 127 {
			return -1
		}
		return r
	}, s)
}

// Generate reads <workDir>/restaurant_profile.json and the KB Markdown (the upload copy
// first, then the work copy) and writes the content pack into workDir.
func Generate(workDir, uploadDir, slug string) (string, error) {
	profilePath := filepath.Join(workDir, persist.ProfileFileName)
	var profile types.RestaurantProfile
	if err := persist.ReadJSON(profilePath, &profile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &types.ConfigError{Path: profilePath, Message: "missing config"}
		}
		return "", err
	}
	if profile.Slug == "" {
		profile.Slug = slug
	}

	content, err := Build(&profile, readKB(workDir, uploadDir, slug))
	if err != nil {
		return "", err
	}
	outPath := filepath.Join(workDir, FileName(slug))
	if err := persist.WriteFileAtomic(outPath, []byte(content), 0o644); err != nil {
		return "", err
	}
	return outPath, nil
}

func readKB(workDir, uploadDir, slug string) string {
	for _, dir := range []string{uploadDir, workDir} {
		if dir == "" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, persist.MarkdownName(slug)))
		if err == nil {
			return string(data)
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
