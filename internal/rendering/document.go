package rendering

import (
	"strings"

	"github.com/jonathan/kb-refresh/internal/types"
)

// TimestampLayout formats the "Last updated" line.
const TimestampLayout = "2006-01-02 15:04:05 MST"

// Field is one labeled list entry, e.g. "Phone: (813) 689-5544".
type Field struct {
	Label string
	Value string
}

// HoursLine is one weekday row.
type HoursLine struct {
	Day     string
	Windows string
}

// ItemView is a menu item ready for either template.
type ItemView struct {
	Name        string
	Flags       string
	Description string
	Price       string
}

// SectionView is a titled group of items. Level is the heading depth (3 or 4).
type SectionView struct {
	Title string
	Level int
	Items []ItemView
}

// MenuPageView is one menu source. Title is empty when a restaurant has a single menu page.
type MenuPageView struct {
	Title    string
	Level    int
	Source   string
	Error    string
	Sections []SectionView
}

// GuidanceSection is fixed caller-handling text appended to every KB.
type GuidanceSection struct {
	Title string
	Lines []string
}

// Document is the shared model both KB formats are rendered from. Section order is
// contact, links, hours, about, menu, guidance, sources.
type Document struct {
	Title       string
	LastUpdated string
	Contact     []Field
	Links       []Field
	Hours       []HoursLine
	HoursText   string
	About       string
	Menu        []MenuPageView
	PriceLines  []string
	Guidance    []GuidanceSection
	Sources     []string
}

// DefaultGuidance is the ordering and guardrail text every KB carries.
var DefaultGuidance = []GuidanceSection{
	{
		Title: "Ordering / reservations",
		Lines: []string{
			"The assistant should guide callers to the official online ordering link when placing a pickup order.",
			"If reservations are requested and no reservation system is confirmed, collect details and advise calling the restaurant.",
		},
	},
	{
		Title: "Guardrails",
		Lines: []string{
			"Never request/store card numbers.",
			"Never guess prices, ingredients, or hours. Use this Knowledge Base as the source of truth.",
			"Allergy note: if a caller mentions allergies, advise them to confirm ingredients and cross-contact with the restaurant.",
		},
	},
}

// NewDocument builds the render model from facts. Empty fields are left out of their lists.
func NewDocument(facts *types.Facts) *Document {
	doc := &Document{
		Title:      title(facts),
		HoursText:  strings.TrimSpace(facts.HoursText),
		About:      strings.TrimSpace(facts.About),
		PriceLines: facts.PriceLines,
		Guidance:   DefaultGuidance,
		Sources:    facts.Sources,
	}
	if !facts.GeneratedAt.IsZero() {
		doc.LastUpdated = facts.GeneratedAt.Format(TimestampLayout)
	}

	doc.Contact = fields(
		Field{"Address", facts.Address},
		Field{"Phone", facts.Phone},
		Field{"Email", facts.Email},
	)
	doc.Links = fields(
		Field{"Website", facts.Website},
		Field{"Menu", facts.MenuURL},
		Field{"Online ordering", facts.OrderURL},
	)

	if len(facts.Hours) > 0 && !facts.Hours.Empty() {
		for _, day := range types.Weekdays {
			doc.Hours = append(doc.Hours, HoursLine{Day: day, Windows: strings.Join(facts.Hours.Windows(day), " | ")})
		}
	}

	for _, page := range facts.Menu {
		doc.Menu = append(doc.Menu, menuPage(page))
	}
	return doc
}

func title(facts *types.Facts) string {
	name := strings.TrimSpace(facts.Name)
	if name == "" {
		name = facts.Slug
	}
	if cs := strings.TrimSpace(facts.CityState); cs != "" {
		return name + " (" + cs + ") — Knowledge Base"
	}
	return name + " — Knowledge Base"
}

func fields(all ...Field) []Field {
	var out []Field
	for _, f := range all {
		if v := strings.TrimSpace(f.Value); v != "" {
			out = append(out, Field{Label: f.Label, Value: v})
		}
	}
	return out
}

func menuPage(page types.MenuPage) MenuPageView {
	view := MenuPageView{
		Title:  strings.TrimSpace(page.Title),
		Level:  3,
		Source: page.URL,
		Error:  page.Error,
	}
	sectionLevel := 3
	if view.Title != "" {
		sectionLevel = 4
	}
	for _, s := range page.Sections {
		sv := SectionView{Title: s.Title, Level: sectionLevel}
		for _, it := range s.Items {
			sv.Items = append(sv.Items, ItemView{
				Name:        inline(it.Name),
				Flags:       strings.Join(it.Flags, ", "),
				Description: inline(it.Description),
				Price:       inline(it.Price),
			})
		}
		view.Sections = append(view.Sections, sv)
	}
	return view
}
