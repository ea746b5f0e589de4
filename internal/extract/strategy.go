// Package extract locates and parses result tables, entry lists,
// documents and notices in scraped HTML. The scraped site's markup is
// not a stable contract: everything here is heuristic, ordered from
// most to least specific, and degrades to empty results rather than
// failing.
package extract

import (
	"github.com/PuerkitoBio/goquery"
)

// Strategy names one way of locating candidate elements on a page.
// Strategies are data, not control flow: new site-layout variants are
// added by appending descriptors, not by editing the selection loop.
type Strategy struct {
	Name     string
	Selector string
}

// FirstMatch tries strategies in order and returns the selection of
// the first strategy yielding at least one non-empty element, along
// with the winning strategy name. Results are never merged across
// strategies.
func FirstMatch(doc *goquery.Document, strategies []Strategy) (*goquery.Selection, string) {
	for _, s := range strategies {
		sel := doc.Find(s.Selector)
		if nonEmpty(sel) {
			return sel, s.Name
		}
	}
	return nil, ""
}

// LargestTable returns the table with the most rows on the page: when
// no selector strategy matches, the biggest table is probably the
// results table.
func LargestTable(doc *goquery.Document) *goquery.Selection {
	var (
		best     *goquery.Selection
		bestRows int
	)
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		rows := table.Find("tr").Length()
		if rows > bestRows {
			best = table
			bestRows = rows
		}
	})
	return best
}

func nonEmpty(sel *goquery.Selection) bool {
	if sel == nil || sel.Length() == 0 {
		return false
	}
	found := false
	sel.EachWithBreak(func(_ int, el *goquery.Selection) bool {
		if cleanText(el.Text()) != "" {
			found = true
			return false
		}
		return true
	})
	return found
}
