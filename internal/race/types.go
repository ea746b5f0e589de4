// Package race defines core types shared across subsystems.
package race

import (
	"strings"
	"time"
)

// Status represents a finish-line result code for a single race.
type Status string

// Standard sailing status codes. StatusFinished marks a normal finish;
// everything else is a non-finish penalized at PenaltyPoints.
const (
	StatusFinished Status = "finished"
	StatusDNF      Status = "DNF"
	StatusDNS      Status = "DNS"
	StatusDSQ      Status = "DSQ"
	StatusOCS      Status = "OCS"
	StatusBFD      Status = "BFD"
	StatusRET      Status = "RET"
	StatusDNC      Status = "DNC"
)

// PenaltyPoints is the sentinel score assigned to non-finish statuses.
// The upstream pages score penalties as a literal 999 rather than the
// entries+1 value low-point scoring prescribes; changing it would shift
// historical standings, so it stays.
const PenaltyPoints = 999

// FinishEntry is one boat's result in a single race.
type FinishEntry struct {
	Position   *int    `json:"position" bson:"position"`
	SailNumber string  `json:"sailNumber" bson:"sailNumber"`
	HelmName   string  `json:"helmName,omitempty" bson:"helmName,omitempty"`
	CrewName   string  `json:"crewName,omitempty" bson:"crewName,omitempty"`
	Club       string  `json:"club,omitempty" bson:"club,omitempty"`
	Points     float64 `json:"points" bson:"points"`
	Status     Status  `json:"status" bson:"status"`
}

// Conditions captures the wind/course context a race was sailed in.
type Conditions struct {
	WindSpeed     string `json:"windSpeed,omitempty" bson:"windSpeed,omitempty"`
	WindDirection string `json:"windDirection,omitempty" bson:"windDirection,omitempty"`
	CourseType    string `json:"courseType,omitempty" bson:"courseType,omitempty"`
}

// RaceResult is the full finish order for one race. It is produced per
// scrape and replaced wholesale on the next successful scrape.
type RaceResult struct {
	RaceNumber int           `json:"raceNumber" bson:"raceNumber"`
	RaceDate   *time.Time    `json:"raceDate,omitempty" bson:"raceDate,omitempty"`
	Results    []FinishEntry `json:"results" bson:"results"`
	Conditions *Conditions   `json:"conditions,omitempty" bson:"conditions,omitempty"`
}

// RaceScore is one cell in a competitor's series score line.
type RaceScore struct {
	Points      float64 `json:"points" bson:"points"`
	Position    *int    `json:"position,omitempty" bson:"position,omitempty"`
	IsDiscarded bool    `json:"isDiscarded" bson:"isDiscarded"`
	Status      Status  `json:"status" bson:"status"`
}

// Standing is a competitor's series position with per-race scores.
type Standing struct {
	Position    int         `json:"position" bson:"position"`
	SailNumber  string      `json:"sailNumber" bson:"sailNumber"`
	HelmName    string      `json:"helmName,omitempty" bson:"helmName,omitempty"`
	CrewName    string      `json:"crewName,omitempty" bson:"crewName,omitempty"`
	Club        string      `json:"club,omitempty" bson:"club,omitempty"`
	TotalPoints float64     `json:"totalPoints" bson:"totalPoints"`
	NetPoints   float64     `json:"netPoints" bson:"netPoints"`
	RaceScores  []RaceScore `json:"raceScores" bson:"raceScores"`
}

// Division groups sail numbers into a fleet. Competitors has set
// semantics: a sail number appears at most once.
type Division struct {
	Name        string   `json:"name" bson:"name"`
	Competitors []string `json:"competitors" bson:"competitors"`
}

// RegistrationStatus is a competitor's entry state.
type RegistrationStatus string

// Registration states scraped from the entry list.
const (
	RegistrationConfirmed RegistrationStatus = "confirmed"
	RegistrationPending   RegistrationStatus = "pending"
	RegistrationWithdrawn RegistrationStatus = "withdrawn"
)

// Competitor is one registered entry, keyed by a sail-number derived ID.
type Competitor struct {
	ID                   string             `json:"id" bson:"_id"`
	SailNumber           string             `json:"sailNumber" bson:"sailNumber"`
	BoatName             string             `json:"boatName,omitempty" bson:"boatName,omitempty"`
	HelmName             string             `json:"helmName,omitempty" bson:"helmName,omitempty"`
	CrewMembers          []string           `json:"crewMembers,omitempty" bson:"crewMembers,omitempty"`
	Club                 string             `json:"club,omitempty" bson:"club,omitempty"`
	Country              string             `json:"country,omitempty" bson:"country,omitempty"`
	Division             string             `json:"division,omitempty" bson:"division,omitempty"`
	RegistrationStatus   RegistrationStatus `json:"registrationStatus" bson:"registrationStatus"`
	PaymentReceived      bool               `json:"paymentReceived" bson:"paymentReceived"`
	DocumentsSubmitted   bool               `json:"documentsSubmitted" bson:"documentsSubmitted"`
	MeasurementCompleted bool               `json:"measurementCompleted" bson:"measurementCompleted"`
}

// CompetitorID derives the stable natural key for a sail number.
func CompetitorID(sailNumber string) string {
	return "comp_" + strings.ReplaceAll(sailNumber, " ", "_")
}

// DocumentType classifies an event document by its title.
type DocumentType string

// The closed set of document types.
const (
	DocNoticeOfRace            DocumentType = "notice_of_race"
	DocSailingInstructions     DocumentType = "sailing_instructions"
	DocRaceSchedule            DocumentType = "race_schedule"
	DocResults                 DocumentType = "results"
	DocCourseInfo              DocumentType = "course_info"
	DocEntryForm               DocumentType = "entry_form"
	DocProtestInfo             DocumentType = "protest_info"
	DocDecisions               DocumentType = "decisions"
	DocRuleAmendments          DocumentType = "rule_amendments"
	DocSafetyNotice            DocumentType = "safety_notice"
	DocMeasurementRequirements DocumentType = "measurement_requirements"
	DocWeatherForecast         DocumentType = "weather_forecast"
	DocGeneralNotices          DocumentType = "general_notices"
)

// EventDocument is a published race document found on the event pages.
// URL is the dedupe key; ID is the storage key.
type EventDocument struct {
	ID          string       `json:"id" bson:"_id"`
	EventID     string       `json:"eventId" bson:"eventId"`
	Title       string       `json:"title" bson:"title"`
	Type        DocumentType `json:"type" bson:"type"`
	URL         string       `json:"url" bson:"url"`
	FileType    string       `json:"fileType" bson:"fileType"`
	PublishedAt time.Time    `json:"publishedAt" bson:"publishedAt"`
	IsRequired  bool         `json:"isRequired" bson:"isRequired"`
	Category    string       `json:"category" bson:"category"`
	Priority    string       `json:"priority,omitempty" bson:"priority,omitempty"`
}

// NoticeType categorizes a notice-board posting.
type NoticeType string

// Notice categories extracted from the board.
const (
	NoticeAnnouncement NoticeType = "announcement"
	NoticeProtest      NoticeType = "protest"
	NoticeCourseChange NoticeType = "course_change"
	NoticeWeather      NoticeType = "weather"
	NoticeGeneral      NoticeType = "general"
)

// NoticePriority is derived from a keyword scan of title and content.
type NoticePriority string

// Priority levels, highest first.
const (
	PriorityEmergency NoticePriority = "emergency"
	PriorityHigh      NoticePriority = "high"
	PriorityNormal    NoticePriority = "normal"
	PriorityInfo      NoticePriority = "info"
)

// Notice is a single notice-board posting. Notices are append-only:
// once an ID is stored it is never updated.
type Notice struct {
	ID          string         `json:"id" bson:"_id"`
	EventID     string         `json:"eventId" bson:"eventId"`
	Type        NoticeType     `json:"type" bson:"type"`
	Priority    NoticePriority `json:"priority" bson:"priority"`
	Title       string         `json:"title" bson:"title"`
	Content     string         `json:"content" bson:"content"`
	PublishedAt time.Time      `json:"publishedAt" bson:"publishedAt"`
	Author      string         `json:"author,omitempty" bson:"author,omitempty"`
	Tags        []string       `json:"tags" bson:"tags"`
	SourceURL   string         `json:"sourceUrl,omitempty" bson:"sourceUrl,omitempty"`
	ContentHash string         `json:"contentHash,omitempty" bson:"contentHash,omitempty"`
}

// EventDetails is the scraped event header (name, venue, dates).
type EventDetails struct {
	ID          string     `json:"id" bson:"_id"`
	Name        string     `json:"name" bson:"name"`
	Description string     `json:"description,omitempty" bson:"description,omitempty"`
	Venue       string     `json:"venue,omitempty" bson:"venue,omitempty"`
	Organizer   string     `json:"organizer,omitempty" bson:"organizer,omitempty"`
	StartDate   *time.Time `json:"startDate,omitempty" bson:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty" bson:"endDate,omitempty"`
	SourceURL   string     `json:"sourceUrl,omitempty" bson:"sourceUrl,omitempty"`
}

// ResultsData bundles everything a results scrape yields.
type ResultsData struct {
	Races     []RaceResult `json:"races"`
	Standings []Standing   `json:"standings"`
	Divisions []Division   `json:"divisions,omitempty"`
	Source    string       `json:"source,omitempty"`
}

// ContentState tracks the high-priority document content sub-pipeline.
type ContentState string

// Content pipeline states. Parse failure is terminal for the cycle;
// the next scheduled scrape starts over from discovered.
const (
	ContentDiscovered  ContentState = "discovered"
	ContentDownloading ContentState = "downloading"
	ContentParsed      ContentState = "parsed"
	ContentParseFailed ContentState = "parse_failed"
)

// DocumentContent holds text extracted from a high-priority PDF.
type DocumentContent struct {
	DocumentID       string            `json:"documentId" bson:"_id"`
	EventID          string            `json:"eventId" bson:"eventId"`
	State            ContentState      `json:"state" bson:"state"`
	Text             string            `json:"text,omitempty" bson:"text,omitempty"`
	KeyFacts         map[string]string `json:"keyFacts,omitempty" bson:"keyFacts,omitempty"`
	ContentProcessed bool              `json:"contentProcessed" bson:"contentProcessed"`
	Error            string            `json:"error,omitempty" bson:"error,omitempty"`
	ProcessedAt      time.Time         `json:"processedAt" bson:"processedAt"`
}

// Metadata is attached to every scrape response.
type Metadata struct {
	ScrapedAt time.Time `json:"scrapedAt"`
	EventID   string    `json:"eventId"`
	Type      string    `json:"type"`
	Source    string    `json:"source,omitempty"`
	Function  string    `json:"function,omitempty"`
	Snapshot  string    `json:"snapshot,omitempty"`
}

// ParseDiagnostic records why a row was skipped during tolerant parsing.
type ParseDiagnostic struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}
