// Package app assembles the service from configuration: it picks the
// real or in-memory realization of each collaborator and owns the
// run loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/regattahq/raceboard/internal/api"
	gcsarchive "github.com/regattahq/raceboard/internal/archive/gcs"
	localarchive "github.com/regattahq/raceboard/internal/archive/local"
	memoryarchive "github.com/regattahq/raceboard/internal/archive/memory"
	memorycache "github.com/regattahq/raceboard/internal/cache/memory"
	"github.com/regattahq/raceboard/internal/cache/mongocache"
	"github.com/regattahq/raceboard/internal/clock/system"
	"github.com/regattahq/raceboard/internal/config"
	collyfetch "github.com/regattahq/raceboard/internal/fetch/colly"
	"github.com/regattahq/raceboard/internal/hash/sha256"
	"github.com/regattahq/raceboard/internal/id/uuid"
	"github.com/regattahq/raceboard/internal/metrics"
	memorynotify "github.com/regattahq/raceboard/internal/notify/memory"
	pubsubnotify "github.com/regattahq/raceboard/internal/notify/pubsub"
	"github.com/regattahq/raceboard/internal/pipeline"
	"github.com/regattahq/raceboard/internal/race"
	"github.com/regattahq/raceboard/internal/sched"
	memorystore "github.com/regattahq/raceboard/internal/store/memory"
	mongostore "github.com/regattahq/raceboard/internal/store/mongo"
)

// App holds the assembled service and the handles that need closing.
type App struct {
	cfg     config.Config
	log     *zap.Logger
	service *pipeline.Service

	mongoClient *mongodriver.Client
	publisher   race.Publisher
}

// New assembles the pipeline from configuration. Components without a
// configured backend fall back to their in-memory realization, which
// keeps local development credential-free.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	metrics.Init()

	clock := system.New()
	hasher := sha256.New()

	fetcher := collyfetch.New(collyfetch.Config{
		UserAgent:    cfg.Scrape.UserAgent,
		Timeout:      cfg.HTMLTimeout(),
		PerHostQPS:   cfg.Scrape.PerHostQPS,
		PerHostBurst: cfg.Scrape.PerHostBurst,
	})

	app := &App{cfg: cfg, log: log}

	var (
		store race.DocumentStore
		cache race.Cache
	)
	if cfg.Mongo.URI != "" {
		st, client, err := mongostore.Connect(ctx, mongostore.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
		})
		if err != nil {
			return nil, err
		}
		app.mongoClient = client
		store = st
		cache = mongocache.New(client.Database(cfg.Mongo.Database), clock, cfg.CacheTTL())
		log.Info("using mongo store", zap.String("database", cfg.Mongo.Database))
	} else {
		store = memorystore.New()
		cache = memorycache.New(clock)
		log.Warn("mongo.uri not set, using in-memory store")
	}

	archive, err := newArchive(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var publisher race.Publisher
	if cfg.PubSub.ProjectID != "" {
		pub, err := pubsubnotify.New(ctx, pubsubnotify.Config{ProjectID: cfg.PubSub.ProjectID})
		if err != nil {
			return nil, err
		}
		publisher = pub
	} else {
		publisher = memorynotify.New()
		log.Warn("pubsub.project_id not set, notifications stay in-process")
	}
	app.publisher = publisher

	app.service = pipeline.New(
		pipeline.Config{
			BaseURL:           cfg.Scrape.BaseURL,
			ResultMirrors:     cfg.Scrape.ResultMirrors,
			HTMLTimeout:       cfg.HTMLTimeout(),
			PDFTimeout:        cfg.PDFTimeout(),
			CacheTTL:          cfg.CacheTTL(),
			SnapshotArchiving: cfg.Scrape.SnapshotArchiving,
			NoticeTopic:       cfg.PubSub.TopicName,
		},
		fetcher, store, cache, archive, publisher, hasher, clock, log,
	)
	return app, nil
}

func newArchive(ctx context.Context, cfg config.Config) (race.BlobStore, error) {
	switch cfg.Archive.Backend {
	case "gcs":
		return gcsarchive.New(ctx, gcsarchive.Config{
			Bucket: cfg.Archive.Bucket,
			Prefix: cfg.Archive.Prefix,
		})
	case "local":
		return localarchive.New(localarchive.Config{BaseDir: cfg.Archive.BaseDir})
	case "memory", "":
		return memoryarchive.New(), nil
	}
	return nil, fmt.Errorf("unknown archive backend %q", cfg.Archive.Backend)
}

// Service exposes the assembled pipeline for one-shot CLI commands.
func (a *App) Service() *pipeline.Service {
	return a.service
}

// Run serves HTTP and the scheduler until the context is canceled or
// a signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(a.service, system.New(), uuid.New(), a.log)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var scheduler *sched.Scheduler
	if a.cfg.Schedules.Enabled {
		var err error
		scheduler, err = sched.New(sched.Config{
			EventIDs:    a.cfg.Events.IDs,
			Timezone:    a.cfg.Events.Timezone,
			NoticesSpec: a.cfg.Schedules.NoticesSpec,
			ResultsSpec: a.cfg.Schedules.ResultsSpec,
			PDFSyncSpec: a.cfg.Schedules.PDFSyncSpec,
		}, a.service, a.log)
		if err != nil {
			return err
		}
		if err := scheduler.Start(ctx); err != nil {
			return err
		}
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("http server listening", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	a.log.Info("shutting down")
	if scheduler != nil {
		scheduler.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Warn("http shutdown failed", zap.Error(err))
	}
	a.Close()
	return nil
}

// Close releases external connections.
func (a *App) Close() {
	if a.mongoClient != nil {
		if err := a.mongoClient.Disconnect(context.Background()); err != nil {
			a.log.Warn("mongo disconnect failed", zap.Error(err))
		}
	}
	if closer, ok := a.publisher.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			a.log.Warn("publisher close failed", zap.Error(err))
		}
	}
}
