package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/regattahq/raceboard/internal/cache/mongocache"
	"github.com/regattahq/raceboard/internal/extract"
	"github.com/regattahq/raceboard/internal/metrics"
	"github.com/regattahq/raceboard/internal/race"
)

// Scrape types accepted by ScrapeRaceData.
const (
	TypeEvent       = "event"
	TypeResults     = "results"
	TypeDocuments   = "documents"
	TypeCompetitors = "competitors"
)

// ValidType reports whether t names a supported scrape type.
func ValidType(t string) bool {
	switch t {
	case TypeEvent, TypeResults, TypeDocuments, TypeCompetitors:
		return true
	}
	return false
}

// RaceDataResponse is the envelope returned to API callers. Exactly
// one of the entity fields is populated, according to the requested
// type. The underscore-prefixed fields mirror the wire tags consumers
// already depend on.
type RaceDataResponse struct {
	Event       *race.EventDetails   `json:"event,omitempty"`
	Results     *race.ResultsData    `json:"results,omitempty"`
	Documents   []race.EventDocument `json:"documents,omitempty"`
	Competitors []race.Competitor    `json:"competitors,omitempty"`
	Divisions   []race.Division      `json:"divisions,omitempty"`

	Cached   bool           `json:"_cached,omitempty"`
	Fallback bool           `json:"_fallback,omitempty"`
	Error    string         `json:"_error,omitempty"`
	Metadata *race.Metadata `json:"_metadata,omitempty"`
}

// ScrapeRaceData runs one scrape of the requested type, consulting
// the cache first when useCache is set and writing the fresh envelope
// through on a miss.
func (s *Service) ScrapeRaceData(ctx context.Context, eventID, scrapeType string, useCache bool) (*RaceDataResponse, error) {
	start := s.clock.Now()
	key := mongocache.Key(eventID, scrapeType)

	if useCache {
		var cached RaceDataResponse
		if s.cacheGet(ctx, key, &cached) {
			cached.Cached = true
			return &cached, nil
		}
	}

	var (
		resp *RaceDataResponse
		err  error
	)
	switch scrapeType {
	case TypeEvent:
		resp, err = s.scrapeEvent(ctx, eventID)
	case TypeResults:
		resp, err = s.scrapeResults(ctx, eventID)
	case TypeDocuments:
		resp, err = s.scrapeDocumentsEnvelope(ctx, eventID)
	case TypeCompetitors:
		resp, err = s.scrapeCompetitors(ctx, eventID)
	default:
		return nil, &race.FetchError{Message: "unsupported scrape type: " + scrapeType}
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.ObserveScrape(scrapeType, outcome, s.clock.Now().Sub(start))
	if err != nil {
		return nil, err
	}

	// A fallback envelope is a degraded answer, not a scrape result;
	// caching it would keep serving synthetic details for the whole
	// freshness window after the site recovers.
	if !resp.Fallback {
		s.cacheSet(ctx, key, resp)
	}
	return resp, nil
}

// scrapeEvent fetches and persists the event header. A failed fetch
// degrades to hard-coded plausible details flagged as fallback, with
// the original error attached; showing something beats showing
// nothing here.
func (s *Service) scrapeEvent(ctx context.Context, eventID string) (*RaceDataResponse, error) {
	url := s.eventURL(eventID)
	doc, snapshot, err := s.fetchHTML(ctx, eventID, url)
	if err != nil {
		s.log.Warn("event fetch failed, serving fallback details",
			zap.String("eventId", eventID), zap.Error(err))
		details := fallbackEventDetails(eventID, url)
		return &RaceDataResponse{
			Event:    &details,
			Fallback: true,
			Error:    err.Error(),
			Metadata: s.metadata(eventID, TypeEvent, "fallback", "scrapeRaceData", ""),
		}, nil
	}

	details := extract.ParseEventPage(doc, eventID)
	details.SourceURL = url
	if err := s.store.SaveEventDetails(ctx, details); err != nil {
		s.log.Error("persist event details failed",
			zap.String("eventId", eventID), zap.Error(err))
		return nil, err
	}
	return &RaceDataResponse{
		Event:    &details,
		Metadata: s.metadata(eventID, TypeEvent, url, "scrapeRaceData", snapshot),
	}, nil
}

// fallbackEventDetails is the synthetic stand-in served when the
// event page cannot be fetched at all.
func fallbackEventDetails(eventID, url string) race.EventDetails {
	return race.EventDetails{
		ID:   eventID,
		Name: "Sailing Regatta " + eventID,
		Description: "A competitive sailing event featuring multiple race days " +
			"across several divisions. Results and notices are updated as " +
			"racing progresses.",
		Venue:     "Royal Hong Kong Yacht Club",
		Organizer: "Royal Hong Kong Yacht Club",
		SourceURL: url,
	}
}
