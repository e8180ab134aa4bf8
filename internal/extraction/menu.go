package extraction

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/kb-refresh/internal/types"
)

// FallbackSectionTitle names the empty section returned when a menu page yields nothing.
const FallbackSectionTitle = "(Parsed Fallback)"

const unlabeledSection = "(Unlabeled)"

// MenuBlocks reads pages built from <div class="menuHeading"> headings followed by
// <div class="menuItemBox"> items. Items before the first heading land in "(Unlabeled)".
// A page with no items yields one empty fallback section.
func MenuBlocks(page string) []types.MenuSection {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return []types.MenuSection{{Title: FallbackSectionTitle}}
	}

	var sections []types.MenuSection
	current := types.MenuSection{Title: unlabeledSection}
	flush := func() {
		if len(current.Items) > 0 {
			sections = append(sections, current)
		}
		current = types.MenuSection{Title: unlabeledSection}
	}

	doc.Find(".menuHeading, .menuItemBox").Each(func(_ int, s *goquery.Selection) {
		if s.HasClass("menuHeading") {
			flush()
			if title := NormalizeWhitespace(s.Text()); title != "" {
				current.Title = title
			}
			return
		}

		name := NormalizeWhitespace(s.Find(".menuItemName").First().Text())
		if name == "" {
			return
		}
		descSel := s.Find(".menuItemDesc .richText").First()
		if descSel.Length() == 0 {
			descSel = s.Find(".menuItemDesc").First()
		}
		price := NormalizeWhitespace(s.Find(".menuItemPrice").First().Text())
		if price == "" {
			price = strings.Join(DollarAmounts(s.Text()), " | ")
		}
		current.Items = append(current.Items, types.MenuItem{
			Name:        name,
			Description: NormalizeWhitespace(descSel.Text()),
			Price:       price,
		})
	})
	flush()

	if len(sections) == 0 {
		return []types.MenuSection{{Title: FallbackSectionTitle}}
	}
	return sections
}

// ContentItems reads category pages where each dish is a <div class="content"> with an
// <h3> name, an optional <p> description and .menuitempreview_pricevalue prices.
// Repeated dishes are kept once.
func ContentItems(page string) []types.MenuItem {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil
	}

	seen := map[string]bool{}
	var items []types.MenuItem
	doc.Find("div.content").Each(func(_ int, s *goquery.Selection) {
		name := NormalizeWhitespace(s.Find("h3").First().Text())
		if name == "" {
			return
		}
		switch strings.ToLower(name) {
		case "menu", "hours":
			return
		}
		desc := NormalizeWhitespace(s.Find("p").First().Text())

		var prices []string
		s.Find(".menuitempreview_pricevalue").Each(func(_ int, p *goquery.Selection) {
			if v := NormalizeWhitespace(p.Text()); v != "" {
				prices = append(prices, v)
			}
		})
		if len(prices) == 0 {
			prices = DollarAmounts(s.Text())
		}

		price := strings.Join(prices, " | ")
		key := name + "|" + desc + "|" + price
		if seen[key] {
			return
		}
		seen[key] = true
		items = append(items, types.MenuItem{Name: name, Description: desc, Price: price})
	})
	return items
}
