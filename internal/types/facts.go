package types

import "time"

// Weekdays is the fixed display order for hours.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Closed is the window text for a day with no opening hours.
const Closed = "Closed"

// HoursTable maps a weekday name to its opening windows, e.g. "11:30 AM – 2:30 PM".
type HoursTable map[string][]string

// Windows returns the windows for day, or ["Closed"] when there are none.
func (h HoursTable) Windows(day string) []string {
	if w := h[day]; len(w) > 0 {
		return w
	}
	return []string{Closed}
}

// IsClosed reports whether day has no opening window.
func (h HoursTable) IsClosed(day string) bool {
	w := h.Windows(day)
	return len(w) == 1 && w[0] == Closed
}

// Empty reports whether no day has any entry at all.
func (h HoursTable) Empty() bool {
	for _, w := range h {
		if len(w) > 0 {
			return false
		}
	}
	return true
}

// MenuItem is a single dish or drink.
type MenuItem struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Price       string   `json:"price,omitempty"`
	Flags       []string `json:"flags,omitempty"`
}

// MenuSection groups items under a heading, e.g. "Dinner — Rolls".
type MenuSection struct {
	Title string     `json:"title"`
	Items []MenuItem `json:"items"`
}

// MenuPage is one fetched menu source. Error is set when the page could not be scraped.
type MenuPage struct {
	Title    string        `json:"title"`
	URL      string        `json:"url,omitempty"`
	Sections []MenuSection `json:"sections,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// Facts is the extractor output a KB document is rendered from.
type Facts struct {
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	CityState string `json:"city_state,omitempty"`
	Address   string `json:"address,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`

	Website  string `json:"website,omitempty"`
	MenuURL  string `json:"menu_url,omitempty"`
	OrderURL string `json:"order_url,omitempty"`

	// Hours holds structured windows; HoursText is free text used when no table could be built.
	Hours     HoursTable `json:"hours,omitempty"`
	HoursText string     `json:"hours_text,omitempty"`

	About      string     `json:"about,omitempty"`
	Menu       []MenuPage `json:"menu,omitempty"`
	PriceLines []string   `json:"price_lines,omitempty"`
	Sources    []string   `json:"sources,omitempty"`

	GeneratedAt time.Time `json:"generated_at"`
}

// AddSource appends url to Sources once.
func (f *Facts) AddSource(url string) {
	for _, s := range f.Sources {
		if s == url {
			return
		}
	}
	f.Sources = append(f.Sources, url)
}
