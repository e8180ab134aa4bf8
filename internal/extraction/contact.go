package extraction

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	phonePattern   = regexp.MustCompile(`\(?\b(\d{3})\)?[\s\-.]?(\d{3})[\s\-.]?(\d{4})\b`)
	pricePattern   = regexp.MustCompile(`\$\s*\d+(?:\.\d{2})?|\b\d+\.\d{2}\b`)
	dollarAmount   = regexp.MustCompile(`\$\s?\d+\.\d{2}`)
	nonMenuPattern = regexp.MustCompile(`(?i)\b(?:total|subtotal|promo|tips?|payment|gift card)\b`)
	addressPattern = regexp.MustCompile(`(?:^|[\s,:])(\d{2,6}\s+(?:[A-Za-z0-9.']+\s+){1,5}(?:Blvd|Rd|Road|St|Street|Ave|Avenue|Dr|Drive|Hwy|Highway|Ln|Lane|Way|Pkwy|Parkway|Ct|Court|Pl|Place|Trl|Trail)\.?,?\s+(?:[A-Za-z.]+\s?){1,3},\s*[A-Z]{2}\s*\d{5})\b`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
)

// DefaultPriceLineLimit caps the number of price lines kept from an ordering page.
const DefaultPriceLineLimit = 140

// NormalizeWhitespace collapses runs of whitespace to one space and trims.
func NormalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// Phone returns the first US phone number in text formatted as "(813) 689-5544", or "".
func Phone(text string) string {
	m := phonePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return fmt.Sprintf("(%s) %s-%s", m[1], m[2], m[3])
}

// ContactAddress returns the first street address ending in "City, ST 12345", or "".
func ContactAddress(text string) string {
	m := addressPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return NormalizeWhitespace(m[1])
}

// PriceLines returns lines carrying a price, skipping checkout lines (totals, tips, promos),
// de-duplicated in first-seen order and capped at limit.
func PriceLines(text string, limit int) []string {
	if limit <= 0 {
		limit = DefaultPriceLineLimit
	}
	seen := map[string]bool{}
	var out []string
	for _, ln := range strings.Split(text, "\n") {
		ln = strings.TrimSpace(ln)
		if ln == "" || !pricePattern.MatchString(ln) || nonMenuPattern.MatchString(ln) {
			continue
		}
		if seen[ln] {
			continue
		}
		seen[ln] = true
		out = append(out, ln)
		if len(out) >= limit {
			break
		}
	}
	return out
}

// DollarAmounts returns every "$n.nn" in text with the space after "$" removed.
func DollarAmounts(text string) []string {
	found := dollarAmount.FindAllString(text, -1)
	for i, f := range found {
		found[i] = strings.ReplaceAll(f, " ", "")
	}
	return found
}

// MetaDescription returns the page's <meta name="description"> content, or "".
func MetaDescription(page string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return ""
	}
	content, _ := doc.Find(`meta[name="description"]`).First().Attr("content")
	return strings.TrimSpace(content)
}
