// Package classify derives document types, notice priorities and tags
// from title/content text. All rules are fixed keyword tables; first
// match wins.
package classify

import (
	"strings"

	"github.com/regattahq/raceboard/internal/race"
)

// documentRule maps a title keyword to a document type. The list is
// ordered: the first matching rule decides.
type documentRule struct {
	Keyword string
	Type    race.DocumentType
}

var documentRules = []documentRule{
	{"notice of race", race.DocNoticeOfRace},
	{"sailing instruction", race.DocSailingInstructions},
	{"schedule", race.DocRaceSchedule},
	{"result", race.DocResults},
	{"course", race.DocCourseInfo},
	{"entry form", race.DocEntryForm},
	{"entry", race.DocEntryForm},
	{"protest", race.DocProtestInfo},
	{"decision", race.DocDecisions},
	{"amendment", race.DocRuleAmendments},
	{"safety", race.DocSafetyNotice},
	{"measurement", race.DocMeasurementRequirements},
	{"weather", race.DocWeatherForecast},
	{"forecast", race.DocWeatherForecast},
}

var requiredTypes = map[race.DocumentType]bool{
	race.DocNoticeOfRace:        true,
	race.DocSailingInstructions: true,
	race.DocRuleAmendments:      true,
	race.DocSafetyNotice:        true,
}

var categories = map[race.DocumentType]string{
	race.DocNoticeOfRace:            "Official Documents",
	race.DocSailingInstructions:     "Official Documents",
	race.DocRuleAmendments:          "Official Documents",
	race.DocRaceSchedule:            "Schedules",
	race.DocResults:                 "Results",
	race.DocCourseInfo:              "Course Information",
	race.DocEntryForm:               "Registration",
	race.DocProtestInfo:             "Protests & Decisions",
	race.DocDecisions:               "Protests & Decisions",
	race.DocSafetyNotice:            "Safety",
	race.DocMeasurementRequirements: "Measurement",
	race.DocWeatherForecast:         "Weather",
	race.DocGeneralNotices:          "General",
}

// DocumentType classifies a document by its title. Unmatched titles
// fall through to general_notices.
func DocumentType(title string) race.DocumentType {
	lower := strings.ToLower(title)
	for _, rule := range documentRules {
		if strings.Contains(lower, rule.Keyword) {
			return rule.Type
		}
	}
	return race.DocGeneralNotices
}

// IsRequired reports whether competitors must read this document type.
func IsRequired(t race.DocumentType) bool {
	return requiredTypes[t]
}

// Category maps a document type to its display category.
func Category(t race.DocumentType) string {
	if c, ok := categories[t]; ok {
		return c
	}
	return categories[race.DocGeneralNotices]
}

// DocumentPriority decides whether a document enters the content
// sub-pipeline: required official documents are high priority.
func DocumentPriority(t race.DocumentType) string {
	if requiredTypes[t] {
		return "high"
	}
	return "normal"
}
