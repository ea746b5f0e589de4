package race

import (
	"context"
	"net/http"
	"time"
)

// FetchRequest captures everything needed to fetch a URL.
type FetchRequest struct {
	URL     string
	Headers http.Header
	Timeout time.Duration
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL         string
	StatusCode  int
	Headers     http.Header
	Body        []byte
	ContentType string
	Duration    time.Duration
}

// Fetcher fetches a URL and returns the body plus metadata. A non-2xx
// status surfaces as *FetchError; retry and fallback belong to callers.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Cache is a time-boxed payload store. Implementations treat expired
// entries as absent; callers degrade read/write failures to a miss
// rather than fail the scrape.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}

// DocumentStore persists normalized entities as idempotent batched
// upserts keyed by stable natural identifiers.
type DocumentStore interface {
	SaveEventDetails(ctx context.Context, event EventDetails) error
	// ReplaceRaces and ReplaceStandings overwrite the event's results
	// wholesale; repeated scrapes are last-writer-wins.
	ReplaceRaces(ctx context.Context, eventID string, races []RaceResult) error
	ReplaceStandings(ctx context.Context, eventID string, standings []Standing) error
	// Merge-upserts: repeated scrapes only touch changed fields.
	UpsertCompetitors(ctx context.Context, eventID string, competitors []Competitor) error
	UpsertDocuments(ctx context.Context, eventID string, documents []EventDocument) error
	// AppendNotices skips any notice whose ID already exists and
	// returns only the notices actually inserted.
	AppendNotices(ctx context.Context, notices []Notice) ([]Notice, error)
	SaveDocumentContent(ctx context.Context, content DocumentContent) error
}

// BlobStore archives raw scrape artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Publisher pushes notification events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes digests for snapshot naming and notice dedupe hints.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing TTL expiry).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces unique IDs for notices and documents.
type IDGenerator interface {
	NewID() (string, error)
}
