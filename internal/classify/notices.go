package classify

import (
	"strings"

	"github.com/regattahq/raceboard/internal/race"
)

type priorityRule struct {
	Keywords []string
	Priority race.NoticePriority
}

// priorityRules scan title+content lowercased; first match wins.
var priorityRules = []priorityRule{
	{[]string{"emergency", "urgent", "immediate"}, race.PriorityEmergency},
	{[]string{"important", "warning", "attention"}, race.PriorityHigh},
	{[]string{"notice", "change", "update"}, race.PriorityNormal},
}

// weatherPriorityRules is the narrower scan used for weather notices.
var weatherPriorityRules = []priorityRule{
	{[]string{"warning", "severe", "dangerous"}, race.PriorityEmergency},
	{[]string{"strong", "high", "caution"}, race.PriorityHigh},
}

type tagRule struct {
	Keyword string
	Tag     string
}

var tagRules = []tagRule{
	{"schedule", "schedule"},
	{"postpone", "schedule"},
	{"safety", "safety"},
	{"weather", "weather"},
	{"wind", "weather"},
	{"protest", "protest"},
	{"hearing", "protest"},
	{"course", "course"},
	{"mark", "course"},
	{"registration", "registration"},
	{"entry", "registration"},
	{"result", "results"},
	{"standing", "results"},
}

// NoticePriority derives the priority from a keyword scan over title
// and content. Weather notices use a separate, narrower scan whose
// floor is normal rather than info.
func NoticePriority(noticeType race.NoticeType, title, content string) race.NoticePriority {
	text := strings.ToLower(title + " " + content)

	if noticeType == race.NoticeWeather {
		for _, rule := range weatherPriorityRules {
			if matchesAny(text, rule.Keywords) {
				return rule.Priority
			}
		}
		return race.PriorityNormal
	}

	for _, rule := range priorityRules {
		if matchesAny(text, rule.Keywords) {
			return rule.Priority
		}
	}
	return race.PriorityInfo
}

// Tags extracts every matching tag from the fixed keyword table. A
// notice with no matching keyword carries the single default tag.
func Tags(title, content string) []string {
	text := strings.ToLower(title + " " + content)
	var tags []string
	seen := make(map[string]bool)
	for _, rule := range tagRules {
		if seen[rule.Tag] || !strings.Contains(text, rule.Keyword) {
			continue
		}
		seen[rule.Tag] = true
		tags = append(tags, rule.Tag)
	}
	if len(tags) == 0 {
		return []string{"general"}
	}
	return tags
}

func matchesAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
