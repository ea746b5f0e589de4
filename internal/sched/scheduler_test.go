package sched

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	memoryarchive "github.com/regattahq/raceboard/internal/archive/memory"
	memorycache "github.com/regattahq/raceboard/internal/cache/memory"
	"github.com/regattahq/raceboard/internal/hash/sha256"
	"github.com/regattahq/raceboard/internal/metrics"
	memorynotify "github.com/regattahq/raceboard/internal/notify/memory"
	"github.com/regattahq/raceboard/internal/pipeline"
	"github.com/regattahq/raceboard/internal/race"
	memorystore "github.com/regattahq/raceboard/internal/store/memory"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type stubFetcher struct {
	pages map[string]string
}

func (f stubFetcher) Fetch(_ context.Context, req race.FetchRequest) (race.FetchResponse, error) {
	if body, ok := f.pages[req.URL]; ok {
		return race.FetchResponse{URL: req.URL, StatusCode: 200, Body: []byte(body)}, nil
	}
	return race.FetchResponse{}, &race.FetchError{URL: req.URL, StatusCode: 404, Message: "not found"}
}

func newService(pages map[string]string, store *memorystore.Store) *pipeline.Service {
	clock := fixedClock{now: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)}
	return pipeline.New(
		pipeline.Config{
			BaseURL:     "https://site.test",
			HTMLTimeout: time.Minute,
			PDFTimeout:  30 * time.Second,
			CacheTTL:    5 * time.Minute,
			NoticeTopic: "race-notices",
		},
		stubFetcher{pages: pages}, store,
		memorycache.New(clock), memoryarchive.New(), memorynotify.New(),
		sha256.New(), clock, zap.NewNop(),
	)
}

func TestNewRejectsBadTimezone(t *testing.T) {
	_, err := New(Config{Timezone: "Mars/Olympus"}, newService(nil, memorystore.New()), zap.NewNop())
	require.Error(t, err)
}

func TestStartRejectsBadSpec(t *testing.T) {
	s, err := New(Config{
		Timezone:    "UTC",
		NoticesSpec: "not a cron spec",
		ResultsSpec: "@every 10m",
		PDFSyncSpec: "@every 6h",
	}, newService(nil, memorystore.New()), zap.NewNop())
	require.NoError(t, err)
	require.Error(t, s.Start(context.Background()))
}

func TestRunForAllEventsContinuesPastFailures(t *testing.T) {
	store := memorystore.New()
	// e1's board is down; e2's board has one posting.
	service := newService(map[string]string{
		"https://site.test/events/e2/notice_board": `<html><body>
<div id="notice-board"><div class="notice">
<h3>Race office hours</h3><p>Open daily from 0900.</p>
</div></div>
</body></html>`,
	}, store)

	s, err := New(Config{
		EventIDs:    []string{"e1", "e2"},
		Timezone:    "UTC",
		NoticesSpec: "@every 5m",
		ResultsSpec: "@every 10m",
		PDFSyncSpec: "@every 6h",
	}, service, zap.NewNop())
	require.NoError(t, err)

	s.runForAllEvents(context.Background(), "notices", s.scrapeNotices)
	require.Len(t, store.Notices, 1, "the broken event does not block the next one")
}

func TestRunForAllEventsStopsOnCancel(t *testing.T) {
	store := memorystore.New()
	s, err := New(Config{
		EventIDs: []string{"e1", "e2"},
		Timezone: "UTC",
	}, newService(nil, store), zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	s.runForAllEvents(ctx, "notices", func(context.Context, string) error {
		calls++
		return nil
	})
	require.Zero(t, calls)
}
