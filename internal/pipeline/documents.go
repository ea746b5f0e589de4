package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/regattahq/raceboard/internal/classify"
	"github.com/regattahq/raceboard/internal/extract"
	"github.com/regattahq/raceboard/internal/metrics"
	"github.com/regattahq/raceboard/internal/pdftext"
	"github.com/regattahq/raceboard/internal/race"
	"github.com/regattahq/raceboard/internal/scoring"
	"github.com/regattahq/raceboard/internal/store/mongo"
)

// DocumentsResult is the scrapeDocuments response envelope.
type DocumentsResult struct {
	Success        bool                 `json:"success"`
	EventID        string               `json:"eventId"`
	DocumentsFound int                  `json:"documentsFound"`
	Sources        []string             `json:"sources"`
	Documents      []race.EventDocument `json:"documents"`
	Metadata       *race.Metadata       `json:"metadata,omitempty"`
	ScrapedAt      time.Time            `json:"scrapedAt"`
}

// ScrapeDocuments collects document links from every strategy,
// classifies them, and merge-upserts the results. With processContent
// set, high-priority PDFs additionally go through text extraction.
func (s *Service) ScrapeDocuments(ctx context.Context, eventID string, processContent bool) (*DocumentsResult, error) {
	url := s.documentsURL(eventID)
	doc, snapshot, err := s.fetchHTML(ctx, eventID, url)
	if err != nil {
		return nil, err
	}

	candidates := extract.ParseDocumentLinks(doc, url)
	documents := make([]race.EventDocument, 0, len(candidates))
	sources := make([]string, 0, 4)
	seenSource := make(map[string]bool)
	for _, c := range candidates {
		documents = append(documents, s.buildDocument(eventID, c))
		if !seenSource[c.Strategy] {
			seenSource[c.Strategy] = true
			sources = append(sources, c.Strategy)
		}
	}

	if err := s.store.UpsertDocuments(ctx, eventID, documents); err != nil {
		s.log.Error("persist documents failed", zap.String("eventId", eventID), zap.Error(err))
		return nil, err
	}
	metrics.ObserveBatchWrite(mongo.CollDocuments, len(documents))

	if processContent {
		s.processDocumentContent(ctx, eventID, documents)
	}

	return &DocumentsResult{
		Success:        true,
		EventID:        eventID,
		DocumentsFound: len(documents),
		Sources:        sources,
		Documents:      documents,
		Metadata:       s.metadata(eventID, TypeDocuments, url, "scrapeDocuments", snapshot),
		ScrapedAt:      s.clock.Now().UTC(),
	}, nil
}

// scrapeDocumentsEnvelope adapts ScrapeDocuments to the common
// scrapeRaceData envelope; content processing stays opt-in via the
// dedicated endpoint.
func (s *Service) scrapeDocumentsEnvelope(ctx context.Context, eventID string) (*RaceDataResponse, error) {
	result, err := s.ScrapeDocuments(ctx, eventID, false)
	if err != nil {
		return nil, err
	}
	return &RaceDataResponse{
		Documents: result.Documents,
		Metadata:  result.Metadata,
	}, nil
}

// buildDocument classifies a candidate and assigns its storage ID.
// The ID is derived from the URL so repeat scrapes upsert the same
// record instead of accumulating duplicates.
func (s *Service) buildDocument(eventID string, c extract.DocumentCandidate) race.EventDocument {
	docType := classify.DocumentType(c.Title)
	publishedAt := s.clock.Now().UTC()
	if c.PublishedAt != nil {
		publishedAt = *c.PublishedAt
	}
	return race.EventDocument{
		ID:          "doc_" + s.shortHash(c.URL),
		EventID:     eventID,
		Title:       c.Title,
		Type:        docType,
		URL:         c.URL,
		FileType:    c.FileType,
		PublishedAt: publishedAt,
		IsRequired:  classify.IsRequired(docType),
		Category:    classify.Category(docType),
		Priority:    classify.DocumentPriority(docType),
	}
}

// processDocumentContent runs the content sub-pipeline for
// high-priority PDFs and for results PDFs: discovered, downloading,
// then parsed or parse_failed. A failed document stays failed for
// this cycle; the next scheduled run starts it over. Parsed results
// PDFs additionally feed the standings, so events whose sources
// publish results only as PDFs still update on the slow sync.
func (s *Service) processDocumentContent(ctx context.Context, eventID string, documents []race.EventDocument) {
	for _, doc := range documents {
		wanted := doc.Priority == "high" || doc.Type == race.DocResults
		if !wanted || doc.FileType != "pdf" {
			continue
		}
		content := race.DocumentContent{
			DocumentID:  doc.ID,
			EventID:     eventID,
			State:       race.ContentDiscovered,
			ProcessedAt: s.clock.Now().UTC(),
		}
		if err := s.store.SaveDocumentContent(ctx, content); err != nil {
			s.log.Error("record document discovery failed",
				zap.String("documentId", doc.ID), zap.Error(err))
			continue
		}

		content.State = race.ContentDownloading
		_ = s.store.SaveDocumentContent(ctx, content)

		body, _, err := s.fetchPDF(ctx, eventID, doc.URL)
		if err == nil {
			var text string
			text, err = pdftext.Extract(body)
			if err == nil {
				content.State = race.ContentParsed
				content.Text = text
				content.KeyFacts = pdftext.KeyFacts(text)
				content.ContentProcessed = true
				if doc.Type == race.DocResults {
					if perr := s.applyPDFResults(ctx, eventID, text); perr != nil {
						s.log.Error("apply pdf results failed",
							zap.String("documentId", doc.ID), zap.Error(perr))
					}
				}
			}
		}
		if err != nil {
			s.log.Warn("document content processing failed",
				zap.String("documentId", doc.ID), zap.String("url", doc.URL), zap.Error(err))
			content.State = race.ContentParseFailed
			content.Error = err.Error()
		}
		content.ProcessedAt = s.clock.Now().UTC()
		if err := s.store.SaveDocumentContent(ctx, content); err != nil {
			s.log.Error("persist document content failed",
				zap.String("documentId", doc.ID), zap.Error(err))
		}
	}
}

// applyPDFResults converts score runs recovered from a results PDF
// into standings and replaces the event's series wholesale, the same
// write the HTML results path performs. The sail number stays the
// hard gate; lines without one are skipped and counted. PDF sources
// publish no reliable position column, so positions are assigned by
// recomputed net points.
func (s *Service) applyPDFResults(ctx context.Context, eventID, text string) error {
	boats := pdftext.ParseResults(text)
	standings := make([]race.Standing, 0, len(boats))
	for _, boat := range boats {
		if boat.SailNumber == "" {
			metrics.ObserveSkippedRow("no sail number")
			continue
		}
		standing := race.Standing{
			SailNumber: boat.SailNumber,
			HelmName:   boat.Name,
		}
		for _, points := range boat.Scores {
			standing.RaceScores = append(standing.RaceScores, race.RaceScore{
				Points: points,
				Status: race.StatusFinished,
			})
		}
		scoring.Apply(&standing)
		standings = append(standings, standing)
	}
	if len(standings) == 0 {
		s.log.Warn("results pdf yielded no standings", zap.String("eventId", eventID))
		return nil
	}

	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].NetPoints < standings[j].NetPoints
	})
	for i := range standings {
		standings[i].Position = i + 1
	}

	if err := s.store.ReplaceStandings(ctx, eventID, standings); err != nil {
		return fmt.Errorf("persist pdf standings for %s: %w", eventID, err)
	}
	metrics.ObserveBatchWrite(mongo.CollEventStandings, len(standings))
	s.log.Info("standings updated from results pdf",
		zap.String("eventId", eventID), zap.Int("standings", len(standings)))
	return nil
}

// shortHash returns a short stable digest for ID derivation.
func (s *Service) shortHash(input string) string {
	digest, err := s.hasher.Hash([]byte(input))
	if err != nil || len(digest) < 12 {
		return digest
	}
	return digest[:12]
}
