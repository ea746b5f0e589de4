// Package sched wires the scheduled scrape loops: notices every few
// minutes, multi-event results sync, and the slower PDF content sync.
package sched

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/regattahq/raceboard/internal/pipeline"
)

// Config names the cron specs and the events the loops cover.
type Config struct {
	EventIDs    []string
	Timezone    string
	NoticesSpec string
	ResultsSpec string
	PDFSyncSpec string
}

// Scheduler runs the recurring scrape loops. Every job catches and
// logs its own failures; a missed cycle self-heals on the next run.
type Scheduler struct {
	cfg     Config
	service *pipeline.Service
	log     *zap.Logger
	cron    *cron.Cron
}

// New builds the scheduler in the configured timezone.
func New(cfg Config, service *pipeline.Service, log *zap.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	return &Scheduler{
		cfg:     cfg,
		service: service,
		log:     log,
		cron:    cron.New(cron.WithLocation(loc)),
	}, nil
}

// Start registers the three loops and starts the cron runner.
func (s *Scheduler) Start(ctx context.Context) error {
	jobs := []struct {
		name string
		spec string
		run  func(context.Context, string) error
	}{
		{"notices", s.cfg.NoticesSpec, s.scrapeNotices},
		{"results", s.cfg.ResultsSpec, s.syncResults},
		{"pdf_sync", s.cfg.PDFSyncSpec, s.syncDocuments},
	}
	for _, job := range jobs {
		job := job
		if _, err := s.cron.AddFunc(job.spec, func() {
			s.runForAllEvents(ctx, job.name, job.run)
		}); err != nil {
			return fmt.Errorf("register %s schedule %q: %w", job.name, job.spec, err)
		}
	}
	s.cron.Start()
	s.log.Info("scheduler started",
		zap.Strings("events", s.cfg.EventIDs),
		zap.String("notices", s.cfg.NoticesSpec),
		zap.String("results", s.cfg.ResultsSpec),
		zap.String("pdfSync", s.cfg.PDFSyncSpec))
	return nil
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// runForAllEvents applies one job to every configured event. A
// failure for one event never aborts the rest of the loop.
func (s *Scheduler) runForAllEvents(ctx context.Context, name string, run func(context.Context, string) error) {
	for _, eventID := range s.cfg.EventIDs {
		if ctx.Err() != nil {
			return
		}
		if err := run(ctx, eventID); err != nil {
			s.log.Warn("scheduled scrape failed",
				zap.String("job", name), zap.String("eventId", eventID), zap.Error(err))
			continue
		}
		s.log.Debug("scheduled scrape completed",
			zap.String("job", name), zap.String("eventId", eventID))
	}
}

func (s *Scheduler) scrapeNotices(ctx context.Context, eventID string) error {
	_, err := s.service.ScrapeNotices(ctx, eventID)
	return err
}

func (s *Scheduler) syncResults(ctx context.Context, eventID string) error {
	_, err := s.service.ScrapeRaceData(ctx, eventID, pipeline.TypeResults, false)
	return err
}

func (s *Scheduler) syncDocuments(ctx context.Context, eventID string) error {
	_, err := s.service.ScrapeDocuments(ctx, eventID, true)
	return err
}
