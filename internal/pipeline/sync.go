package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SyncSummary counts what one full event sync produced.
type SyncSummary struct {
	EventName   string `json:"eventName"`
	Races       int    `json:"races"`
	Standings   int    `json:"standings"`
	Competitors int    `json:"competitors"`
	Notices     int    `json:"notices"`
	Documents   int    `json:"documents"`
}

// SyncResult is the syncRaceData response envelope. Success means
// every branch completed; partial failures are listed in Errors and
// the branches that did complete still count in the summary.
type SyncResult struct {
	Success  bool        `json:"success"`
	EventID  string      `json:"eventId"`
	Summary  SyncSummary `json:"summary"`
	Errors   []string    `json:"errors,omitempty"`
	SyncedAt time.Time   `json:"syncedAt"`
}

// SyncAll scrapes every data type for one event concurrently. A
// failing branch never aborts its siblings.
func (s *Service) SyncAll(ctx context.Context, eventID string) (*SyncResult, error) {
	result := &SyncResult{EventID: eventID}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	fail := func(stage string, err error) {
		s.log.Warn("sync branch failed",
			zap.String("eventId", eventID), zap.String("stage", stage), zap.Error(err))
		mu.Lock()
		result.Errors = append(result.Errors, stage+": "+err.Error())
		mu.Unlock()
	}

	wg.Add(5)
	go func() {
		defer wg.Done()
		resp, err := s.scrapeEvent(ctx, eventID)
		if err != nil {
			fail("event", err)
			return
		}
		mu.Lock()
		if resp.Event != nil {
			result.Summary.EventName = resp.Event.Name
		}
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		resp, err := s.scrapeResults(ctx, eventID)
		if err != nil {
			fail("results", err)
			return
		}
		mu.Lock()
		result.Summary.Races = len(resp.Results.Races)
		result.Summary.Standings = len(resp.Results.Standings)
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		resp, err := s.scrapeCompetitors(ctx, eventID)
		if err != nil {
			fail("competitors", err)
			return
		}
		mu.Lock()
		result.Summary.Competitors = len(resp.Competitors)
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		docs, err := s.ScrapeDocuments(ctx, eventID, false)
		if err != nil {
			fail("documents", err)
			return
		}
		mu.Lock()
		result.Summary.Documents = docs.DocumentsFound
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		notices, err := s.ScrapeNotices(ctx, eventID)
		if err != nil {
			fail("notices", err)
			return
		}
		mu.Lock()
		result.Summary.Notices = notices.NoticesCount
		mu.Unlock()
	}()
	wg.Wait()

	result.Success = len(result.Errors) == 0
	result.SyncedAt = s.clock.Now().UTC()
	return result, nil
}
