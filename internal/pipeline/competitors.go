package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/regattahq/raceboard/internal/extract"
	"github.com/regattahq/raceboard/internal/metrics"
	"github.com/regattahq/raceboard/internal/store/mongo"
)

// scrapeCompetitors extracts the entry list and merge-upserts it.
func (s *Service) scrapeCompetitors(ctx context.Context, eventID string) (*RaceDataResponse, error) {
	url := s.competitorsURL(eventID)
	doc, snapshot, err := s.fetchHTML(ctx, eventID, url)
	if err != nil {
		return nil, err
	}

	page := extract.ParseCompetitorsPage(doc)
	for _, d := range page.Diagnostics {
		metrics.ObserveSkippedRow(d.Reason)
		s.log.Debug("skipped competitor row",
			zap.String("eventId", eventID), zap.Int("row", d.Row), zap.String("reason", d.Reason))
	}

	if err := s.store.UpsertCompetitors(ctx, eventID, page.Competitors); err != nil {
		s.log.Error("persist competitors failed", zap.String("eventId", eventID), zap.Error(err))
		return nil, err
	}
	metrics.ObserveBatchWrite(mongo.CollEventCompetitors, len(page.Competitors))

	return &RaceDataResponse{
		Competitors: page.Competitors,
		Divisions:   page.Divisions,
		Metadata:    s.metadata(eventID, TypeCompetitors, url, "scrapeRaceData", snapshot),
	}, nil
}
