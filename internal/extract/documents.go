package extract

import (
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DocumentStrategies all run and contribute candidates; unlike the
// race tables there is no first-wins here. Results are deduplicated by
// URL, then by title.
var DocumentStrategies = []Strategy{
	{Name: "pdf-links", Selector: `a[href$=".pdf"], a[href$=".PDF"], a[href*=".pdf?"]`},
	{Name: "document-sections", Selector: ".documents a[href], .document-list a[href], #documents a[href]"},
	{Name: "notice-attachments", Selector: ".notice a[href], .attachments a[href]"},
	{Name: "document-tables", Selector: "table.documents a[href], table.document-list a[href]"},
}

var (
	dateSlashRe = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	dateWordRe  = regexp.MustCompile(`\b(\d{1,2})\s+(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+(\d{4})\b`)
)

// DocumentCandidate is a raw document link before classification.
type DocumentCandidate struct {
	Title       string
	URL         string
	FileType    string
	PublishedAt *time.Time
	Strategy    string
}

// ParseDocumentLinks collects document candidates from every strategy
// and dedupes them by URL and title.
func ParseDocumentLinks(doc *goquery.Document, baseURL string) []DocumentCandidate {
	base, _ := url.Parse(baseURL)

	var out []DocumentCandidate
	seenURL := make(map[string]bool)
	seenTitle := make(map[string]bool)

	for _, strategy := range DocumentStrategies {
		doc.Find(strategy.Selector).Each(func(_ int, a *goquery.Selection) {
			href, ok := a.Attr("href")
			if !ok || strings.TrimSpace(href) == "" {
				return
			}
			resolved := resolveURL(base, href)
			title := documentTitle(a, resolved)
			if title == "" {
				return
			}
			key := strings.ToLower(title)
			if seenURL[resolved] || seenTitle[key] {
				return
			}
			seenURL[resolved] = true
			seenTitle[key] = true

			out = append(out, DocumentCandidate{
				Title:       title,
				URL:         resolved,
				FileType:    fileTypeOf(resolved),
				PublishedAt: publishedNear(a),
				Strategy:    strategy.Name,
			})
		})
	}
	return out
}

func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

func documentTitle(a *goquery.Selection, resolved string) string {
	if t := cleanText(a.Text()); t != "" {
		return t
	}
	if t, ok := a.Attr("title"); ok && cleanText(t) != "" {
		return cleanText(t)
	}
	if u, err := url.Parse(resolved); err == nil {
		name := path.Base(u.Path)
		if name != "." && name != "/" {
			return name
		}
	}
	return ""
}

func fileTypeOf(resolved string) string {
	lower := strings.ToLower(resolved)
	if strings.Contains(lower, ".pdf") {
		return "pdf"
	}
	return "html"
}

// publishedNear scans the link's table row or list item for a date.
func publishedNear(a *goquery.Selection) *time.Time {
	container := a.Closest("tr, li, .document, .notice")
	if container.Length() == 0 {
		return nil
	}
	return parseLooseDate(container.Text())
}

func parseLooseDate(text string) *time.Time {
	if m := dateWordRe.FindStringSubmatch(text); m != nil {
		if t, err := time.Parse("2 Jan 2006", m[1]+" "+m[2]+" "+m[3]); err == nil {
			return &t
		}
	}
	if m := dateSlashRe.FindStringSubmatch(text); m != nil {
		// day-first, the convention on the scraped pages
		if t, err := time.Parse("2/1/2006", m[1]+"/"+m[2]+"/"+m[3]); err == nil {
			return &t
		}
	}
	return nil
}
