// Package pipeline orchestrates scrape runs: fetch, extract,
// normalize, persist, cache, and archive. Handlers and the scheduler
// both call into this package.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/regattahq/raceboard/internal/metrics"
	"github.com/regattahq/raceboard/internal/race"
)

// Config carries the scrape-side settings the orchestrators need.
type Config struct {
	// BaseURL is the root of the scraped site, without trailing slash.
	BaseURL string
	// ResultMirrors are third-party result sources tried after the
	// primary site. A "{eventId}" placeholder is substituted; mirrors
	// without one get the event ID appended as a path segment.
	ResultMirrors []string
	HTMLTimeout   time.Duration
	PDFTimeout    time.Duration
	CacheTTL      time.Duration
	// SnapshotArchiving enables raw-page archival to the blob store.
	SnapshotArchiving bool
	// NoticeTopic is the Pub/Sub topic for emergency notices.
	NoticeTopic string
}

// Service wires the scrape pipeline's collaborators together.
type Service struct {
	cfg       Config
	fetcher   race.Fetcher
	store     race.DocumentStore
	cache     race.Cache
	archive   race.BlobStore
	publisher race.Publisher
	hasher    race.Hasher
	clock     race.Clock
	log       *zap.Logger
}

// New builds a Service. All collaborators are required; pass the
// memory implementations where a real backend is not configured.
func New(
	cfg Config,
	fetcher race.Fetcher,
	store race.DocumentStore,
	cache race.Cache,
	archive race.BlobStore,
	publisher race.Publisher,
	hasher race.Hasher,
	clock race.Clock,
	log *zap.Logger,
) *Service {
	return &Service{
		cfg:       cfg,
		fetcher:   fetcher,
		store:     store,
		cache:     cache,
		archive:   archive,
		publisher: publisher,
		hasher:    hasher,
		clock:     clock,
		log:       log,
	}
}

// Candidate URLs per scrape type. The site's layout is not a stable
// contract, so these are starting points the extractor tolerates
// drift on, not a schema.
func (s *Service) eventURL(eventID string) string {
	return fmt.Sprintf("%s/events/%s", s.cfg.BaseURL, eventID)
}

func (s *Service) documentsURL(eventID string) string {
	return fmt.Sprintf("%s/events/%s/documents", s.cfg.BaseURL, eventID)
}

func (s *Service) competitorsURL(eventID string) string {
	return fmt.Sprintf("%s/events/%s/entries", s.cfg.BaseURL, eventID)
}

func (s *Service) noticeBoardURL(eventID string) string {
	return fmt.Sprintf("%s/events/%s/notice_board", s.cfg.BaseURL, eventID)
}

// resultURLs is the fixed-order cascade: event-specific results path,
// generic event page, then the configured mirrors.
func (s *Service) resultURLs(eventID string) []string {
	urls := []string{
		fmt.Sprintf("%s/events/%s/results", s.cfg.BaseURL, eventID),
		s.eventURL(eventID),
	}
	for _, mirror := range s.cfg.ResultMirrors {
		if strings.Contains(mirror, "{eventId}") {
			urls = append(urls, strings.ReplaceAll(mirror, "{eventId}", eventID))
		} else {
			urls = append(urls, strings.TrimRight(mirror, "/")+"/"+eventID)
		}
	}
	return urls
}

// fetchHTML fetches a page with the HTML timeout and parses it. The
// raw body is archived (best effort) and the snapshot URI returned.
func (s *Service) fetchHTML(ctx context.Context, eventID, url string) (*goquery.Document, string, error) {
	resp, err := s.fetcher.Fetch(ctx, race.FetchRequest{URL: url, Timeout: s.cfg.HTMLTimeout})
	if err != nil {
		return nil, "", err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, "", fmt.Errorf("parse html from %s: %w", url, err)
	}
	snapshot := s.archiveSnapshot(ctx, eventID, resp.Body, "text/html", ".html")
	return doc, snapshot, nil
}

func (s *Service) fetchPDF(ctx context.Context, eventID, url string) ([]byte, string, error) {
	resp, err := s.fetcher.Fetch(ctx, race.FetchRequest{URL: url, Timeout: s.cfg.PDFTimeout})
	if err != nil {
		return nil, "", err
	}
	snapshot := s.archiveSnapshot(ctx, eventID, resp.Body, "application/pdf", ".pdf")
	return resp.Body, snapshot, nil
}

// archiveSnapshot writes the raw fetch body to the blob store under a
// content-hash name. Failures are logged only; archival never blocks
// a scrape.
func (s *Service) archiveSnapshot(ctx context.Context, eventID string, body []byte, contentType, ext string) string {
	if !s.cfg.SnapshotArchiving || len(body) == 0 {
		return ""
	}
	digest, err := s.hasher.Hash(body)
	if err != nil {
		s.log.Warn("snapshot hash failed", zap.Error(err))
		return ""
	}
	path := fmt.Sprintf("snapshots/%s/%s%s", eventID, digest, ext)
	uri, err := s.archive.PutObject(ctx, path, contentType, body)
	if err != nil {
		s.log.Warn("snapshot archive failed",
			zap.String("path", path), zap.Error(err))
		return ""
	}
	return uri
}

// metadata stamps a scrape response.
func (s *Service) metadata(eventID, scrapeType, source, function, snapshot string) *race.Metadata {
	return &race.Metadata{
		ScrapedAt: s.clock.Now().UTC(),
		EventID:   eventID,
		Type:      scrapeType,
		Source:    source,
		Function:  function,
		Snapshot:  snapshot,
	}
}

// cacheGet reads a cached envelope. Cache errors degrade to a miss.
func (s *Service) cacheGet(ctx context.Context, key string, out any) bool {
	payload, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		metrics.ObserveCacheLookup(false)
		return false
	}
	if !ok {
		metrics.ObserveCacheLookup(false)
		return false
	}
	if err := json.Unmarshal(payload, out); err != nil {
		s.log.Warn("cache payload corrupt", zap.String("key", key), zap.Error(err))
		metrics.ObserveCacheLookup(false)
		return false
	}
	metrics.ObserveCacheLookup(true)
	return true
}

// cacheSet writes-through a response envelope. Failures are logged
// and swallowed.
func (s *Service) cacheSet(ctx context.Context, key string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		s.log.Warn("cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.cfg.CacheTTL); err != nil {
		s.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}
