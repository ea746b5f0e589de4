package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/regattahq/raceboard/internal/extract"
	"github.com/regattahq/raceboard/internal/metrics"
	"github.com/regattahq/raceboard/internal/race"
	"github.com/regattahq/raceboard/internal/scoring"
	"github.com/regattahq/raceboard/internal/store/mongo"
)

// scrapeResults walks the result URL cascade in order and accepts the
// first URL yielding any non-empty race or standings data. Earlier
// failures are warnings, never errors; sources are not merged.
func (s *Service) scrapeResults(ctx context.Context, eventID string) (*RaceDataResponse, error) {
	var (
		page     extract.ResultsPage
		source   string
		snapshot string
	)
	for _, url := range s.resultURLs(eventID) {
		doc, snap, err := s.fetchHTML(ctx, eventID, url)
		if err != nil {
			s.log.Warn("result source failed, trying next",
				zap.String("eventId", eventID), zap.String("url", url), zap.Error(err))
			continue
		}
		candidate := extract.ParseResultsPage(doc)
		if len(candidate.Races) == 0 && len(candidate.Standings) == 0 {
			s.log.Warn("result source yielded no data, trying next",
				zap.String("eventId", eventID), zap.String("url", url))
			continue
		}
		page, source, snapshot = candidate, url, snap
		break
	}
	if source == "" {
		return nil, &race.FetchError{
			URL:     s.cfg.BaseURL,
			Message: "no result source yielded data for event " + eventID,
		}
	}

	for i := range page.Standings {
		scoring.Apply(&page.Standings[i])
	}
	for _, d := range page.Diagnostics {
		metrics.ObserveSkippedRow(d.Reason)
		s.log.Debug("skipped result row",
			zap.String("eventId", eventID), zap.Int("row", d.Row), zap.String("reason", d.Reason))
	}

	if err := s.store.ReplaceRaces(ctx, eventID, page.Races); err != nil {
		s.log.Error("persist races failed", zap.String("eventId", eventID), zap.Error(err))
		return nil, err
	}
	if err := s.store.ReplaceStandings(ctx, eventID, page.Standings); err != nil {
		s.log.Error("persist standings failed", zap.String("eventId", eventID), zap.Error(err))
		return nil, err
	}
	metrics.ObserveBatchWrite(mongo.CollEventRaces, len(page.Races))
	metrics.ObserveBatchWrite(mongo.CollEventStandings, len(page.Standings))

	return &RaceDataResponse{
		Results: &race.ResultsData{
			Races:     page.Races,
			Standings: page.Standings,
			Divisions: page.Divisions,
			Source:    source,
		},
		Metadata: s.metadata(eventID, TypeResults, source, "scrapeRaceData", snapshot),
	}, nil
}
