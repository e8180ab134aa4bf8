package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jonathan/kb-refresh/internal/extraction"
	"github.com/jonathan/kb-refresh/internal/fetch"
	"github.com/jonathan/kb-refresh/internal/types"
)

// Strategy fetches a restaurant's pages and extracts the facts its KB is rendered from.
type Strategy func(ctx context.Context, f fetch.Fetcher, profile *types.RestaurantProfile) (*types.Facts, error)

var strategies = map[string]Strategy{
	types.StrategyGeneric:   Generic,
	types.StrategyNextJS:    NextJS,
	types.StrategyYext:      Yext,
	types.StrategyOrderSite: OrderSite,
}

// Lookup returns the strategy registered under name.
func Lookup(name string) (Strategy, error) {
	s, ok := strategies[name]
	if !ok {
		return nil, &types.ConfigError{Message: fmt.Sprintf("unknown strategy %q", name)}
	}
	return s, nil
}

// baseFacts seeds facts with the profile's static values.
func baseFacts(p *types.RestaurantProfile) *types.Facts {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = p.Slug
	}
	return &types.Facts{
		Slug:      p.Slug,
		Name:      name,
		CityState: p.CityState(),
		Address:   strings.TrimSpace(p.Address),
		Phone:     strings.TrimSpace(p.Phone),
		Website:   p.Website,
		MenuURL:   p.MenuURL,
		OrderURL:  p.OrderURL,
		HoursText: strings.TrimSpace(p.Hours),
	}
}

// page fetches url, records it as a source and returns the result.
func page(ctx context.Context, f fetch.Fetcher, facts *types.Facts, url string) (*fetch.Result, error) {
	facts.AddSource(url)
	return f.Get(ctx, url)
}

// text returns the page's plain text, extracting it when the fetcher left Text empty.
func text(res *fetch.Result) string {
	if res.Text != "" {
		return res.Text
	}
	t, err := fetch.ExtractText(res.HTML)
	if err != nil {
		slog.Warn("failed to extract page text", "url", res.URL, "err", err)
		return ""
	}
	return t
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// Generic fetches the website, menu and ordering pages. Phone is backfilled from page text,
// price lines come from the ordering page, and configured address and hours are kept.
// Without configured hours the website's JSON-LD opening hours are used when present.
func Generic(ctx context.Context, f fetch.Fetcher, p *types.RestaurantProfile) (*types.Facts, error) {
	facts := baseFacts(p)
	var blobs []string

	if p.Website != "" {
		res, err := page(ctx, f, facts, p.Website)
		if err != nil {
			return nil, err
		}
		blobs = append(blobs, text(res))
		facts.About = extraction.MetaDescription(res.HTML)
		if ld := extraction.RestaurantLD(res.HTML); ld != nil {
			facts.Address = firstNonEmpty(facts.Address, ld.Address())
			if facts.HoursText == "" && len(ld.OpeningHours) > 0 {
				facts.Hours = extraction.BuildHoursTable(ld.OpeningHours)
			}
		}
	}

	if p.MenuURL != "" && p.MenuURL != p.Website {
		res, err := page(ctx, f, facts, p.MenuURL)
		if err != nil {
			return nil, err
		}
		blobs = append(blobs, text(res))
	}

	if p.OrderURL != "" {
		res, err := page(ctx, f, facts, p.OrderURL)
		if err != nil {
			return nil, err
		}
		orderText := text(res)
		blobs = append(blobs, orderText)
		facts.PriceLines = extraction.PriceLines(orderText, extraction.DefaultPriceLineLimit)
	}

	if facts.Phone == "" {
		facts.Phone = extraction.Phone(strings.Join(blobs, "\n\n"))
	}
	return facts, nil
}

// NextJS reads contact details and opening hours from the JSON-LD Restaurant block and the
// menu from the page's embedded Next.js payload. A menu page without that payload fails.
func NextJS(ctx context.Context, f fetch.Fetcher, p *types.RestaurantProfile) (*types.Facts, error) {
	if p.MenuURL == "" {
		return nil, &types.ConfigError{Message: "nextjs strategy requires menu_url"}
	}
	facts := baseFacts(p)

	var homeHTML string
	if p.Website != "" && p.Website != p.MenuURL {
		res, err := page(ctx, f, facts, p.Website)
		if err != nil {
			return nil, err
		}
		homeHTML = res.HTML
	}
	menu, err := page(ctx, f, facts, p.MenuURL)
	if err != nil {
		return nil, err
	}
	menuHTML := menu.HTML

	ld := extraction.RestaurantLD(menuHTML)
	if ld == nil && homeHTML != "" {
		ld = extraction.RestaurantLD(homeHTML)
	}
	if ld != nil {
		facts.Name = firstNonEmpty(extraction.NormalizeWhitespace(ld.Name), facts.Name)
		facts.Address = firstNonEmpty(ld.Address(), facts.Address)
		facts.Phone = firstNonEmpty(extraction.NormalizeWhitespace(ld.Telephone), facts.Phone)
		if ld.City != "" && ld.Region != "" {
			facts.CityState = ld.City + ", " + ld.Region
		}
		if len(ld.OpeningHours) > 0 {
			facts.Hours = extraction.BuildHoursTable(ld.OpeningHours)
		}
	}

	value, err := extraction.NextMenuPayload(menuHTML)
	if err != nil {
		return nil, fmt.Errorf("menu payload from %s: %w", p.MenuURL, err)
	}
	facts.Menu = []types.MenuPage{{
		URL:      p.MenuURL,
		Sections: extraction.MenuSections(value),
	}}
	return facts, nil
}

// menuPages returns the configured menu pages, or the single menu_url page.
func menuPages(p *types.RestaurantProfile) []types.MenuPageRef {
	if len(p.MenuPages) > 0 {
		return p.MenuPages
	}
	if p.MenuURL != "" {
		return []types.MenuPageRef{{Title: "Menu", URL: p.MenuURL}}
	}
	return nil
}

// pageError is the message rendered for a menu page that could not be fetched.
func pageError(err error) string {
	var fe *fetch.Error
	if errors.As(err, &fe) && fe.StatusCode != 0 {
		return fe.Message
	}
	return err.Error()
}

// Yext reads contact, description and hours text from a Yext Knowledge Tags embed and
// menus from .menuHeading/.menuItemBox pages. A menu page that fails to load is recorded
// on the page instead of failing the run.
func Yext(ctx context.Context, f fetch.Fetcher, p *types.RestaurantProfile) (*types.Facts, error) {
	if p.YextURL == "" {
		return nil, &types.ConfigError{Message: "yext strategy requires yext_url"}
	}
	facts := baseFacts(p)

	var meta string
	if p.Website != "" {
		res, err := page(ctx, f, facts, p.Website)
		if err != nil {
			return nil, err
		}
		meta = extraction.MetaDescription(res.HTML)
	}
	embed, err := page(ctx, f, facts, p.YextURL)
	if err != nil {
		return nil, err
	}

	info := extraction.YextFields(embed.HTML)
	facts.Name = firstNonEmpty(info.Name, facts.Name)
	facts.Address = firstNonEmpty(info.Address.String(), facts.Address)
	facts.Phone = firstNonEmpty(info.Phone, facts.Phone)
	facts.Email = info.Email
	if hours := extraction.ParseHoursText(info.HoursText); len(hours) > 0 {
		facts.Hours = hours
	} else {
		facts.HoursText = firstNonEmpty(info.HoursText, facts.HoursText)
	}
	facts.About = info.Description
	if meta != "" && meta != info.Description {
		facts.About = strings.TrimSpace(facts.About + "\n\n" + meta)
	}

	for _, ref := range menuPages(p) {
		mp := types.MenuPage{Title: ref.Title, URL: ref.URL}
		res, err := page(ctx, f, facts, ref.URL)
		if err != nil {
			slog.WarnContext(ctx, "menu page failed", "slug", p.Slug, "url", ref.URL, "err", err)
			mp.Error = pageError(err)
		} else {
			mp.Sections = extraction.MenuBlocks(res.HTML)
		}
		facts.Menu = append(facts.Menu, mp)
	}
	return facts, nil
}

// OrderSite reads phone and address from the ordering site's contact page, hours from its
// location page label-day table, and items from each category page.
func OrderSite(ctx context.Context, f fetch.Fetcher, p *types.RestaurantProfile) (*types.Facts, error) {
	facts := baseFacts(p)

	if p.Website != "" {
		res, err := page(ctx, f, facts, p.Website)
		if err != nil {
			return nil, err
		}
		facts.About = extraction.MetaDescription(res.HTML)
	}
	if p.ContactURL != "" {
		res, err := page(ctx, f, facts, p.ContactURL)
		if err != nil {
			return nil, err
		}
		contact := text(res)
		facts.Phone = firstNonEmpty(extraction.Phone(contact), facts.Phone)
		facts.Address = firstNonEmpty(extraction.ContactAddress(contact), facts.Address)
	}
	if p.LocationURL != "" {
		res, err := page(ctx, f, facts, p.LocationURL)
		if err != nil {
			return nil, err
		}
		if hours := extraction.ParseHoursTable(res.HTML); len(hours) > 0 {
			facts.Hours = hours
		}
	}

	for _, ref := range menuPages(p) {
		mp := types.MenuPage{Title: ref.Title, URL: ref.URL}
		res, err := page(ctx, f, facts, ref.URL)
		if err != nil {
			slog.WarnContext(ctx, "category page failed", "slug", p.Slug, "url", ref.URL, "err", err)
			mp.Error = pageError(err)
		} else {
			mp.Sections = []types.MenuSection{{Items: extraction.ContentItems(res.HTML)}}
		}
		facts.Menu = append(facts.Menu, mp)
	}
	return facts, nil
}
