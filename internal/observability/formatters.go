// Package observability provides logging setup and formatted output for the CLI.
package observability

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/jonathan/kb-refresh/internal/db"
	"github.com/jonathan/kb-refresh/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// hashWidth is how much of a KB hash tables show
	hashWidth = 12
	// errorWidth bounds error text in table cells
	errorWidth = 48
)

// Printer handles formatted output for verbose mode and the status commands
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

func (p *Printer) newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(p.out)
	return t
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stderr; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)
	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, clip(line, boxWidth-4))
	}
	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintScrapeResult outputs a summary box of one scrape.
func (p *Printer) PrintScrapeResult(res *types.ScrapeResult) {
	if res == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Slug:     %s\n", res.Slug))
	if !res.OK {
		sb.WriteString(fmt.Sprintf("Error:    %s", res.Error))
		p.printBox("SCRAPE FAILED", sb.String())
		return
	}
	if res.Name != "" {
		sb.WriteString(fmt.Sprintf("Name:     %s\n", res.Name))
	}
	if res.Phone != "" {
		sb.WriteString(fmt.Sprintf("Phone:    %s\n", res.Phone))
	}
	if res.Address != "" {
		sb.WriteString(fmt.Sprintf("Address:  %s\n", res.Address))
	}
	open := 0
	for _, day := range types.Weekdays {
		if !res.Hours.IsClosed(day) {
			open++
		}
	}
	sb.WriteString(fmt.Sprintf("Open days: %d\n", open))
	sb.WriteString(fmt.Sprintf("Hash:     %s\n", clip(res.Hash, hashWidth)))
	sb.WriteString(fmt.Sprintf("Markdown: %s", res.OutputPathLatestMd))

	p.printBox("KB REFRESHED", sb.String())
}

// PrintState renders one row per restaurant, sorted by slug.
func (p *Printer) PrintState(st *types.OrchestratorState, now time.Time) {
	t := p.newTable()
	t.AppendHeader(table.Row{"Slug", "Status", "KB hash", "Last ok", "Last error"})

	if st != nil {
		slugs := make([]string, 0, len(st.Restaurants))
		for slug := range st.Restaurants {
			slugs = append(slugs, slug)
		}
		slices.Sort(slugs)
		for _, slug := range slugs {
			rs := st.Restaurants[slug]
			if rs == nil {
				continue
			}
			t.AppendRow(table.Row{
				slug,
				rs.Status,
				clip(rs.Steps.KBHash, hashWidth),
				Ago(rs.LastOkAtMs, now),
				clip(rs.LastError, errorWidth),
			})
		}
		if st.LastRunAtMs != nil {
			t.AppendFooter(table.Row{"last run", st.LastRunID, "", Ago(st.LastRunAtMs, now), ""})
		}
	}
	t.Render()
}

// PrintLastSuccess renders each slug's newest recorded success. Slugs without one show "never".
func (p *Printer) PrintLastSuccess(slugs []string, last map[string]*db.RunRecord, now time.Time) {
	t := p.newTable()
	t.AppendHeader(table.Row{"Slug", "Last recorded success", "KB hash"})
	for _, slug := range slugs {
		r := last[slug]
		if r == nil {
			t.AppendRow(table.Row{slug, "never", ""})
			continue
		}
		ms := r.RanAt.UnixMilli()
		t.AppendRow(table.Row{slug, Ago(&ms, now), clip(r.KBHash, hashWidth)})
	}
	t.Render()
}

// PrintHistory renders recorded runs, newest first as given.
func (p *Printer) PrintHistory(runs []db.RunRecord) {
	t := p.newTable()
	t.AppendHeader(table.Row{"Ran at", "Slug", "OK", "KB hash", "Error"})
	for _, r := range runs {
		ok := "yes"
		switch {
		case r.Skipped:
			ok = "skipped"
		case !r.OK:
			ok = "no"
		}
		t.AppendRow(table.Row{r.RanAt.UTC().Format(time.DateTime), r.Slug, ok, clip(r.KBHash, hashWidth), clip(r.Error, errorWidth)})
	}
	t.Render()
}

// Ago formats a millisecond timestamp as "~Nm ago", or "never" when unset.
func Ago(ms *int64, now time.Time) string {
	if ms == nil {
		return "never"
	}
	d := max(0, now.Sub(time.UnixMilli(*ms)))
	switch {
	case d < time.Hour:
		return fmt.Sprintf("~%dm ago", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("~%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("~%dd ago", int(d.Hours()/24))
	}
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
