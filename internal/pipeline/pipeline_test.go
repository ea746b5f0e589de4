package pipeline

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	memoryarchive "github.com/regattahq/raceboard/internal/archive/memory"
	memorycache "github.com/regattahq/raceboard/internal/cache/memory"
	"github.com/regattahq/raceboard/internal/hash/sha256"
	"github.com/regattahq/raceboard/internal/metrics"
	memorynotify "github.com/regattahq/raceboard/internal/notify/memory"
	"github.com/regattahq/raceboard/internal/race"
	memorystore "github.com/regattahq/raceboard/internal/store/memory"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeFetcher serves canned bodies per URL and records the order of
// requests.
type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string][]byte
	errors    map[string]error
	requested []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		responses: make(map[string][]byte),
		errors:    make(map[string]error),
	}
}

func (f *fakeFetcher) serve(url, body string) { f.responses[url] = []byte(body) }
func (f *fakeFetcher) fail(url string, err error) { f.errors[url] = err }

func (f *fakeFetcher) Fetch(_ context.Context, req race.FetchRequest) (race.FetchResponse, error) {
	f.mu.Lock()
	f.requested = append(f.requested, req.URL)
	f.mu.Unlock()
	if err, ok := f.errors[req.URL]; ok {
		return race.FetchResponse{}, err
	}
	if body, ok := f.responses[req.URL]; ok {
		return race.FetchResponse{URL: req.URL, StatusCode: 200, Body: body}, nil
	}
	return race.FetchResponse{}, &race.FetchError{URL: req.URL, StatusCode: 404, Message: "not found"}
}

func (f *fakeFetcher) requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requested...)
}

type fixture struct {
	service   *Service
	fetcher   *fakeFetcher
	store     *memorystore.Store
	cache     *memorycache.Cache
	archive   *memoryarchive.BlobStore
	publisher *memorynotify.Publisher
	clock     *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		fetcher:   newFakeFetcher(),
		store:     memorystore.New(),
		publisher: memorynotify.New(),
		archive:   memoryarchive.New(),
		clock:     &fakeClock{now: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)},
	}
	f.cache = memorycache.New(f.clock)
	f.service = New(
		Config{
			BaseURL:           "https://site.test",
			ResultMirrors:     []string{"https://mirror-a.test/{eventId}", "https://mirror-b.test/results/{eventId}"},
			HTMLTimeout:       time.Minute,
			PDFTimeout:        30 * time.Second,
			CacheTTL:          5 * time.Minute,
			SnapshotArchiving: true,
			NoticeTopic:       "race-notices",
		},
		f.fetcher, f.store, f.cache, f.archive, f.publisher,
		sha256.New(), f.clock, zap.NewNop(),
	)
	return f
}

const resultsFixtureHTML = `<html><body>
<table class="results">
  <tr><th>Pos</th><th>Sail</th><th>Helm</th><th>R1</th><th>R2</th><th>R3</th><th>R4</th><th>R5</th></tr>
  <tr><td>1</td><td>HKG 123</td><td>J. Smith</td><td>1</td><td>2</td><td>1</td><td>[9]</td><td>1</td></tr>
  <tr><td>2</td><td>GBR 45</td><td>P. Jones</td><td>2</td><td>1</td><td>DNF</td><td>1</td><td>2</td></tr>
</table>
</body></html>`

func TestURLCascadeFirstNonEmptyWins(t *testing.T) {
	f := newFixture(t)
	f.fetcher.fail("https://site.test/events/e1/results",
		&race.FetchError{URL: "https://site.test/events/e1/results", StatusCode: 503, Message: "unavailable"})
	f.fetcher.serve("https://site.test/events/e1", `<html><body><p>no tables</p></body></html>`)
	f.fetcher.serve("https://mirror-a.test/e1", resultsFixtureHTML)
	f.fetcher.serve("https://mirror-b.test/results/e1", `<html><body><p>never reached</p></body></html>`)

	resp, err := f.service.ScrapeRaceData(context.Background(), "e1", TypeResults, false)
	require.NoError(t, err)
	require.NotNil(t, resp.Results)
	require.Equal(t, "https://mirror-a.test/e1", resp.Results.Source,
		"third candidate is the first with data")
	require.Len(t, resp.Results.Standings, 2)

	require.Equal(t, []string{
		"https://site.test/events/e1/results",
		"https://site.test/events/e1",
		"https://mirror-a.test/e1",
	}, f.fetcher.requests(), "the fourth candidate is never tried")

	// Persisted wholesale, standings carry recomputed net points.
	require.Len(t, f.store.Standings["e1"], 2)
	first := f.store.Standings["e1"][0]
	require.Equal(t, 14.0, first.TotalPoints)
	require.Equal(t, 5.0, first.NetPoints, "bracketed 9 is the lexical discard")
}

func TestURLCascadeAllFail(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.ScrapeRaceData(context.Background(), "e1", TypeResults, false)
	require.Error(t, err)
	var fe *race.FetchError
	require.ErrorAs(t, err, &fe)
}

func TestScrapeEventFallback(t *testing.T) {
	f := newFixture(t)
	f.fetcher.fail("https://site.test/events/e9",
		&race.FetchError{URL: "https://site.test/events/e9", StatusCode: 500, Message: "boom"})

	resp, err := f.service.ScrapeRaceData(context.Background(), "e9", TypeEvent, false)
	require.NoError(t, err, "a dead event page degrades, it does not error")
	require.True(t, resp.Fallback)
	require.Contains(t, resp.Error, "boom")
	require.NotNil(t, resp.Event)
	require.Equal(t, "e9", resp.Event.ID)
	require.NotEmpty(t, resp.Event.Name)
	require.Empty(t, f.store.Events, "synthetic details are never persisted")
}

func TestScrapeEventPersists(t *testing.T) {
	f := newFixture(t)
	f.fetcher.serve("https://site.test/events/e1", `<html><body>
<h1 class="event-title">Spring Regatta</h1>
<dl><dt>Venue</dt><dd>Victoria Harbour</dd></dl>
</body></html>`)

	resp, err := f.service.ScrapeRaceData(context.Background(), "e1", TypeEvent, false)
	require.NoError(t, err)
	require.False(t, resp.Fallback)
	require.Equal(t, "Spring Regatta", resp.Event.Name)
	require.Equal(t, "Spring Regatta", f.store.Events["e1"].Name)
	require.NotEmpty(t, resp.Metadata.Snapshot, "raw page is archived")
	require.Equal(t, 1, f.archive.Len())
}

func TestScrapeRaceDataCacheRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.fetcher.serve("https://site.test/events/e1", `<html><body><h1>Spring Regatta</h1></body></html>`)

	first, err := f.service.ScrapeRaceData(context.Background(), "e1", TypeEvent, true)
	require.NoError(t, err)
	require.False(t, first.Cached)

	second, err := f.service.ScrapeRaceData(context.Background(), "e1", TypeEvent, true)
	require.NoError(t, err)
	require.True(t, second.Cached)
	require.Equal(t, first.Event.Name, second.Event.Name)
	require.Len(t, f.fetcher.requests(), 1, "the second call is served from cache")

	// Past the freshness window the page is fetched again.
	f.clock.Advance(5*time.Minute + time.Second)
	third, err := f.service.ScrapeRaceData(context.Background(), "e1", TypeEvent, true)
	require.NoError(t, err)
	require.False(t, third.Cached)
	require.Len(t, f.fetcher.requests(), 2)
}

func TestFallbackEnvelopeNotCached(t *testing.T) {
	f := newFixture(t)

	// Dead event page: fallback details come back, but must not be
	// written through to the cache.
	resp, err := f.service.ScrapeRaceData(context.Background(), "e1", TypeEvent, true)
	require.NoError(t, err)
	require.True(t, resp.Fallback)

	// The site recovers; the next cached call must hit the live page.
	f.fetcher.serve("https://site.test/events/e1", `<html><body><h1>Spring Regatta</h1></body></html>`)
	resp, err = f.service.ScrapeRaceData(context.Background(), "e1", TypeEvent, true)
	require.NoError(t, err)
	require.False(t, resp.Fallback)
	require.False(t, resp.Cached)
	require.Equal(t, "Spring Regatta", resp.Event.Name)
	require.Len(t, f.fetcher.requests(), 2)
}

func TestScrapeRaceDataBypassCache(t *testing.T) {
	f := newFixture(t)
	f.fetcher.serve("https://site.test/events/e1", `<html><body><h1>Spring Regatta</h1></body></html>`)

	_, err := f.service.ScrapeRaceData(context.Background(), "e1", TypeEvent, false)
	require.NoError(t, err)
	_, err = f.service.ScrapeRaceData(context.Background(), "e1", TypeEvent, false)
	require.NoError(t, err)
	require.Len(t, f.fetcher.requests(), 2)
}

const noticesFixtureHTML = `<html><body>
<div id="notice-board">
  <div class="notice">
    <h3>URGENT: racing abandoned</h3>
    <p>All boats return to harbour immediately.</p>
  </div>
  <div class="notice">
    <h3>Crew lists</h3>
    <p>Submit crew lists at the race office.</p>
  </div>
</div>
</body></html>`

func TestScrapeNoticesPublishesEmergencies(t *testing.T) {
	f := newFixture(t)
	f.fetcher.serve("https://site.test/events/e1/notice_board", noticesFixtureHTML)

	result, err := f.service.ScrapeNotices(context.Background(), "e1")
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, 2, result.NoticesCount)

	msgs := f.publisher.Messages()
	require.Len(t, msgs, 1, "only the emergency notice is pushed")
	require.Equal(t, "race-notices", msgs[0].Topic)
	require.Contains(t, string(msgs[0].Payload), "URGENT")

	// Unchanged board on the next cycle: append-only storage keeps the
	// old rows and nothing new is published.
	result, err = f.service.ScrapeNotices(context.Background(), "e1")
	require.NoError(t, err)
	require.Zero(t, result.NoticesCount)
	require.Len(t, f.publisher.Messages(), 1)
	require.Len(t, f.store.Notices, 2)
}

const documentsFixtureHTML = `<html><body>
<div class="documents">
  <a href="/docs/nor.pdf">Notice of Race</a>
  <a href="/docs/results.html">Provisional Results</a>
</div>
</body></html>`

func TestScrapeDocumentsClassifiesAndPersists(t *testing.T) {
	f := newFixture(t)
	f.fetcher.serve("https://site.test/events/e1/documents", documentsFixtureHTML)

	result, err := f.service.ScrapeDocuments(context.Background(), "e1", false)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, 2, result.DocumentsFound)
	require.NotEmpty(t, result.Sources)

	var nor race.EventDocument
	for _, d := range result.Documents {
		if d.Type == race.DocNoticeOfRace {
			nor = d
		}
	}
	require.Equal(t, "https://site.test/docs/nor.pdf", nor.URL)
	require.True(t, nor.IsRequired)
	require.Equal(t, "high", nor.Priority)
	require.Equal(t, "Official Documents", nor.Category)
	require.Contains(t, f.store.Documents, nor.ID)
	require.Contains(t, f.store.EventDocs["e1"], nor.ID)

	// IDs derive from the URL: a re-scrape upserts, it does not grow.
	again, err := f.service.ScrapeDocuments(context.Background(), "e1", false)
	require.NoError(t, err)
	require.Equal(t, nor.ID, findByType(again.Documents, race.DocNoticeOfRace).ID)
	require.Len(t, f.store.Documents, 2)
}

func findByType(docs []race.EventDocument, typ race.DocumentType) race.EventDocument {
	for _, d := range docs {
		if d.Type == typ {
			return d
		}
	}
	return race.EventDocument{}
}

func TestProcessContentRecordsParseFailure(t *testing.T) {
	f := newFixture(t)
	f.fetcher.serve("https://site.test/events/e1/documents", documentsFixtureHTML)
	// Not a real PDF; extraction must fail and the state machine must
	// land on parse_failed rather than error out.
	f.fetcher.serve("https://site.test/docs/nor.pdf", "plain text, no pdf header")

	result, err := f.service.ScrapeDocuments(context.Background(), "e1", true)
	require.NoError(t, err)

	nor := findByType(result.Documents, race.DocNoticeOfRace)
	content, ok := f.store.Contents[nor.ID]
	require.True(t, ok)
	require.Equal(t, race.ContentParseFailed, content.State)
	require.NotEmpty(t, content.Error)
	require.False(t, content.ContentProcessed)
}

func TestResultsPDFEntersContentPipeline(t *testing.T) {
	f := newFixture(t)
	// Results documents are normal priority, but as PDFs they still go
	// through the content sub-pipeline so their scores reach standings.
	f.fetcher.serve("https://site.test/events/e1/documents", `<html><body>
<div class="documents"><a href="/docs/results.pdf">Race Results</a></div>
</body></html>`)
	f.fetcher.serve("https://site.test/docs/results.pdf", "not a pdf")

	result, err := f.service.ScrapeDocuments(context.Background(), "e1", true)
	require.NoError(t, err)

	doc := findByType(result.Documents, race.DocResults)
	require.Equal(t, "normal", doc.Priority)
	content, ok := f.store.Contents[doc.ID]
	require.True(t, ok, "results pdf is processed despite normal priority")
	require.Equal(t, race.ContentParseFailed, content.State)
}

func TestApplyPDFResultsReplacesStandings(t *testing.T) {
	f := newFixture(t)
	text := `Sea Breeze HKG 123
2 1 999 2 5 points
Wave Dancer GBR 45
1 2 3 4 1 points
Committee Boat
5 5 5 points`

	require.NoError(t, f.service.applyPDFResults(context.Background(), "e1", text))

	standings := f.store.Standings["e1"]
	require.Len(t, standings, 2, "the line without a sail number is skipped")

	// Positions are assigned by recomputed net points: GBR 45 nets
	// 11-4=7, HKG 123 nets 1009-999=10.
	require.Equal(t, "GBR 45", standings[0].SailNumber)
	require.Equal(t, 1, standings[0].Position)
	require.Equal(t, 7.0, standings[0].NetPoints)
	require.Equal(t, "HKG 123", standings[1].SailNumber)
	require.Equal(t, 2, standings[1].Position)
	require.Equal(t, 1009.0, standings[1].TotalPoints)
	require.Equal(t, 10.0, standings[1].NetPoints)
	require.Equal(t, "Wave Dancer", standings[0].HelmName)
}

func TestSyncAllPartialFailure(t *testing.T) {
	f := newFixture(t)
	f.fetcher.serve("https://site.test/events/e1", `<html><body><h1>Spring Regatta</h1></body></html>`)
	f.fetcher.serve("https://site.test/events/e1/results", resultsFixtureHTML)
	f.fetcher.serve("https://site.test/events/e1/documents", documentsFixtureHTML)
	f.fetcher.serve("https://site.test/events/e1/notice_board", noticesFixtureHTML)
	// The entry list is down; everything else must still complete.
	f.fetcher.fail("https://site.test/events/e1/entries",
		&race.FetchError{URL: "https://site.test/events/e1/entries", StatusCode: 502, Message: "bad gateway"})

	result, err := f.service.SyncAll(context.Background(), "e1")
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	require.Contains(t, result.Errors[0], "competitors")

	require.Equal(t, "Spring Regatta", result.Summary.EventName)
	require.Equal(t, 2, result.Summary.Standings)
	require.Equal(t, 2, result.Summary.Documents)
	require.Equal(t, 2, result.Summary.Notices)
	require.Zero(t, result.Summary.Competitors)
}

func TestScrapeRaceDataRejectsUnknownType(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.ScrapeRaceData(context.Background(), "e1", "standings", false)
	require.Error(t, err)
}

func TestResultURLOrder(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, []string{
		"https://site.test/events/e7/results",
		"https://site.test/events/e7",
		"https://mirror-a.test/e7",
		"https://mirror-b.test/results/e7",
	}, f.service.resultURLs("e7"))
}
