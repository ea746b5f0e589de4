package extract

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/regattahq/raceboard/internal/race"
)

// NoticeCandidate is a raw notice-board posting before priority and
// tag classification.
type NoticeCandidate struct {
	Type        race.NoticeType
	Title       string
	Content     string
	Author      string
	PublishedAt *time.Time
}

// noticeCategory binds a notice type to the strategies that find it.
type noticeCategory struct {
	Type       race.NoticeType
	Strategies []Strategy
}

// noticeCategories are the five independent extractors. All of them
// run on every page and their outputs are concatenated; the categories
// are not mutually exclusive.
var noticeCategories = []noticeCategory{
	{
		Type: race.NoticeAnnouncement,
		Strategies: []Strategy{
			{Name: "official-notices", Selector: ".official-notices .notice, #notice-board .notice"},
			{Name: "notice-items", Selector: ".notices .notice, .notice-item"},
		},
	},
	{
		Type: race.NoticeProtest,
		Strategies: []Strategy{
			{Name: "protest-sections", Selector: ".protests .protest, .protest-notice"},
			{Name: "protest-rows", Selector: "table.protests tbody tr, table#protests tbody tr"},
		},
	},
	{
		Type: race.NoticeCourseChange,
		Strategies: []Strategy{
			{Name: "course-sections", Selector: ".course-changes .notice, .course-change"},
		},
	},
	{
		Type: race.NoticeWeather,
		Strategies: []Strategy{
			{Name: "weather-sections", Selector: ".weather-notices .notice, .weather-warning, .weather-notice"},
		},
	},
	{
		Type: race.NoticeGeneral,
		Strategies: []Strategy{
			{Name: "announcements", Selector: ".announcements .announcement, .news-item"},
		},
	},
}

// ParseNoticeBoard extracts candidates from all five categories.
func ParseNoticeBoard(doc *goquery.Document) []NoticeCandidate {
	var out []NoticeCandidate
	for _, category := range noticeCategories {
		for _, strategy := range category.Strategies {
			doc.Find(strategy.Selector).Each(func(_ int, el *goquery.Selection) {
				if candidate, ok := noticeFromElement(el, category.Type); ok {
					out = append(out, candidate)
				}
			})
		}
	}
	return out
}

// noticeFromElement reads whatever title/content/author structure the
// element carries. Protest rows come through as table cells.
func noticeFromElement(el *goquery.Selection, noticeType race.NoticeType) (NoticeCandidate, bool) {
	candidate := NoticeCandidate{Type: noticeType}

	if el.Is("tr") {
		var cells []string
		el.Find("td").Each(func(_ int, cell *goquery.Selection) {
			if text := cleanText(cell.Text()); text != "" {
				cells = append(cells, text)
			}
		})
		if len(cells) == 0 {
			return candidate, false
		}
		candidate.Title = "Protest: " + cells[0]
		candidate.Content = strings.Join(cells, " | ")
		candidate.PublishedAt = parseLooseDate(el.Text())
		return candidate, true
	}

	candidate.Title = cleanText(el.Find("h1, h2, h3, h4, .title, .notice-title").First().Text())
	candidate.Content = cleanText(el.Find(".content, .body, p").Text())
	candidate.Author = cleanText(el.Find(".author, .posted-by").First().Text())
	candidate.PublishedAt = parseLooseDate(el.Text())

	if candidate.Title == "" && candidate.Content == "" {
		// Flat markup: use the element text as content.
		text := cleanText(el.Text())
		if text == "" {
			return candidate, false
		}
		candidate.Content = text
	}
	if candidate.Title == "" {
		candidate.Title = truncate(candidate.Content, 80)
	}
	return candidate, true
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
