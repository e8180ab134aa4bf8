package extraction

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/kb-refresh/internal/types"
)

// dayCodes maps schema.org two-letter day codes to weekday names.
var dayCodes = map[string]string{
	"Mo": "Monday",
	"Tu": "Tuesday",
	"We": "Wednesday",
	"Th": "Thursday",
	"Fr": "Friday",
	"Sa": "Saturday",
	"Su": "Sunday",
}

var (
	hoursEntryPattern = regexp.MustCompile(`^([A-Za-z,\-]+)\s+(\d{1,2}:\d{2}-\d{1,2}:\d{2})$`)
	textWeekdays      = regexp.MustCompile(`(?i)Monday\s*(?:to|-|–|through)\s*Friday\s*:\s*(.+?)(?:Saturday\s*:|Sunday\s*:|$)`)
	textSaturday      = regexp.MustCompile(`(?i)Saturday\s*:\s*(.+?)(?:Sunday\s*:|$)`)
	textSunday        = regexp.MustCompile(`(?i)Sunday\s*:\s*(.+?)(?:Monday\s*:|$)`)
)

func dayIndex(day string) int {
	for i, d := range types.Weekdays {
		if d == day {
			return i
		}
	}
	return -1
}

func codeDay(code string) string {
	code = strings.TrimSpace(code)
	if len(code) < 2 {
		return ""
	}
	return dayCodes[strings.ToUpper(code[:1])+strings.ToLower(code[1:2])]
}

// ExpandDays turns "Tu,We,Th" or "Mo-Fr" into weekday names. Unknown codes are ignored.
func ExpandDays(spec string) []string {
	var out []string
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if from, to, ok := strings.Cut(part, "-"); ok {
			start, end := dayIndex(codeDay(from)), dayIndex(codeDay(to))
			if start < 0 || end < 0 {
				continue
			}
			for i := start; ; i = (i + 1) % len(types.Weekdays) {
				out = append(out, types.Weekdays[i])
				if i == end {
					break
				}
			}
			continue
		}
		if day := codeDay(part); day != "" {
			out = append(out, day)
		}
	}
	return out
}

// FormatTime converts "16:00" to "4:00 PM". "00:00" and "24:00" are midnight (12:00 AM),
// "12:00" is noon (12:00 PM).
func FormatTime(hhmm string) (string, error) {
	hs, ms, ok := strings.Cut(strings.TrimSpace(hhmm), ":")
	if !ok {
		return "", fmt.Errorf("invalid time %q", hhmm)
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h < 0 || h > 24 {
		return "", fmt.Errorf("invalid hour in %q", hhmm)
	}
	m, err := strconv.Atoi(ms)
	if err != nil || m < 0 || m > 59 || len(ms) != 2 {
		return "", fmt.Errorf("invalid minute in %q", hhmm)
	}
	h %= 24
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:%02d %s", h12, m, suffix), nil
}

// FormatTimeRange converts "16:00-21:00" to "4:00 PM – 9:00 PM". Input that is not a
// 24-hour range is returned unchanged.
func FormatTimeRange(r string) string {
	start, end, ok := strings.Cut(r, "-")
	if !ok {
		return r
	}
	a, err := FormatTime(start)
	if err != nil {
		return r
	}
	b, err := FormatTime(end)
	if err != nil {
		return r
	}
	return a + " – " + b
}

// BuildHoursTable builds a weekday table from entries like "Tu,We,Th 16:00-21:00".
// A day can have several windows; days without one are Closed.
func BuildHoursTable(entries []string) types.HoursTable {
	table := make(types.HoursTable, len(types.Weekdays))
	for _, e := range entries {
		m := hoursEntryPattern.FindStringSubmatch(strings.TrimSpace(e))
		if m == nil {
			continue
		}
		window := FormatTimeRange(m[2])
		for _, day := range ExpandDays(m[1]) {
			table[day] = append(table[day], window)
		}
	}
	for _, day := range types.Weekdays {
		if len(table[day]) == 0 {
			table[day] = []string{types.Closed}
		}
	}
	return table
}

// ParseHoursText reads "Monday to Friday: … Saturday: … Sunday: …" free text.
// Days it cannot find are left out of the table.
func ParseHoursText(text string) types.HoursTable {
	table := types.HoursTable{}
	text = NormalizeWhitespace(strings.ReplaceAll(text, "|", " | "))
	if m := textWeekdays.FindStringSubmatch(text); m != nil {
		if v := NormalizeWhitespace(m[1]); v != "" {
			for _, day := range types.Weekdays[:5] {
				table[day] = []string{v}
			}
		}
	}
	if m := textSaturday.FindStringSubmatch(text); m != nil {
		if v := NormalizeWhitespace(m[1]); v != "" {
			table["Saturday"] = []string{v}
		}
	}
	if m := textSunday.FindStringSubmatch(text); m != nil {
		if v := NormalizeWhitespace(m[1]); v != "" {
			table["Sunday"] = []string{v}
		}
	}
	return table
}

// ParseHoursTable reads rows of <td class="label-day">Monday</td><td><strong>11 AM - 9 PM</strong></td>.
func ParseHoursTable(page string) types.HoursTable {
	table := types.HoursTable{}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return table
	}
	doc.Find("td.label-day").Each(func(_ int, s *goquery.Selection) {
		day := NormalizeWhitespace(s.Text())
		if dayIndex(day) < 0 {
			return
		}
		hours := NormalizeWhitespace(s.Next().Find("strong").First().Text())
		if hours == "" {
			return
		}
		table[day] = append(table[day], hours)
	})
	return table
}
