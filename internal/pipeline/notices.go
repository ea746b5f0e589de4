package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/regattahq/raceboard/internal/classify"
	"github.com/regattahq/raceboard/internal/extract"
	"github.com/regattahq/raceboard/internal/metrics"
	"github.com/regattahq/raceboard/internal/race"
	"github.com/regattahq/raceboard/internal/store/mongo"
)

// NoticesResult is the scrapeNoticeBoard response envelope.
type NoticesResult struct {
	Success      bool          `json:"success"`
	NoticesCount int           `json:"noticesCount"`
	Notices      []race.Notice `json:"notices"`
	ScrapedAt    time.Time     `json:"scrapedAt"`
}

// ScrapeNotices runs every notice-category extractor over the board,
// classifies the postings, appends the new ones, and publishes a
// notification for each newly-stored emergency notice.
func (s *Service) ScrapeNotices(ctx context.Context, eventID string) (*NoticesResult, error) {
	url := s.noticeBoardURL(eventID)
	doc, _, err := s.fetchHTML(ctx, eventID, url)
	if err != nil {
		return nil, err
	}

	candidates := extract.ParseNoticeBoard(doc)
	now := s.clock.Now().UTC()
	notices := make([]race.Notice, 0, len(candidates))
	for i, c := range candidates {
		notices = append(notices, s.buildNotice(eventID, url, c, now, i))
	}

	fresh, err := s.store.AppendNotices(ctx, notices)
	if err != nil {
		s.log.Error("persist notices failed", zap.String("eventId", eventID), zap.Error(err))
		return nil, err
	}
	metrics.ObserveBatchWrite(mongo.CollNotices, len(fresh))

	for _, n := range fresh {
		if n.Priority != race.PriorityEmergency {
			continue
		}
		if _, err := s.publisher.Publish(ctx, s.cfg.NoticeTopic, n); err != nil {
			s.log.Error("publish emergency notice failed",
				zap.String("noticeId", n.ID), zap.Error(err))
			continue
		}
		metrics.ObserveNoticePublished()
		s.log.Info("published emergency notice",
			zap.String("eventId", eventID), zap.String("noticeId", n.ID),
			zap.String("title", n.Title))
	}

	return &NoticesResult{
		Success:      true,
		NoticesCount: len(fresh),
		Notices:      fresh,
		ScrapedAt:    now,
	}, nil
}

// buildNotice classifies a candidate posting. IDs embed the scrape
// timestamp and index; the content hash rides along so consumers can
// spot reposts.
func (s *Service) buildNotice(eventID, sourceURL string, c extract.NoticeCandidate, now time.Time, index int) race.Notice {
	publishedAt := now
	if c.PublishedAt != nil {
		publishedAt = *c.PublishedAt
	}
	contentHash := s.shortHash(string(c.Type) + "|" + c.Title + "|" + c.Content)
	return race.Notice{
		ID:          fmt.Sprintf("notice_%d_%d", now.UnixMilli(), index),
		EventID:     eventID,
		Type:        c.Type,
		Priority:    classify.NoticePriority(c.Type, c.Title, c.Content),
		Title:       c.Title,
		Content:     c.Content,
		PublishedAt: publishedAt,
		Author:      c.Author,
		Tags:        classify.Tags(c.Title, c.Content),
		SourceURL:   sourceURL,
		ContentHash: contentHash,
	}
}
