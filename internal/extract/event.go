package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/regattahq/raceboard/internal/race"
)

// EventHeaderStrategies locates the event title block.
var EventHeaderStrategies = []Strategy{
	{Name: "event-header", Selector: ".event-header, .event-title, #event"},
	{Name: "page-heading", Selector: "h1"},
}

// ParseEventPage reads the event header: name from the title block,
// description from the first paragraphs, venue and organizer from
// labeled definition rows when present.
func ParseEventPage(doc *goquery.Document, eventID string) race.EventDetails {
	details := race.EventDetails{ID: eventID}

	if sel, _ := FirstMatch(doc, EventHeaderStrategies); sel != nil {
		details.Name = cleanText(sel.First().Text())
	}
	details.Description = cleanText(doc.Find(".event-description, .description").First().Text())
	if details.Description == "" {
		details.Description = cleanText(doc.Find("main p, .content p").First().Text())
	}

	doc.Find("dt, th, .label").Each(func(_ int, label *goquery.Selection) {
		value := cleanText(label.Next().Text())
		if value == "" {
			return
		}
		switch {
		case labelIs(label, "venue", "location"):
			details.Venue = value
		case labelIs(label, "organizer", "organiser", "club"):
			details.Organizer = value
		case labelIs(label, "start", "from"):
			details.StartDate = parseLooseDate(value)
		case labelIs(label, "end", "to", "until"):
			details.EndDate = parseLooseDate(value)
		}
	})

	if details.StartDate == nil {
		details.StartDate = parseLooseDate(doc.Find(".event-dates, .dates").Text())
	}
	return details
}

func labelIs(label *goquery.Selection, words ...string) bool {
	text := strings.ToLower(cleanText(label.Text()))
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
