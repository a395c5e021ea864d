package container

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"catalog/harvester/internal/availability"
	"catalog/harvester/internal/catalog"
	"catalog/harvester/internal/client"
	"catalog/harvester/internal/config"
	"catalog/harvester/internal/menu"
	"catalog/harvester/internal/metrics"
	"catalog/harvester/internal/proxy"
	"catalog/harvester/internal/repository"
	"catalog/harvester/internal/service"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Container holds all initialized components
type Container struct {
	Config  *config.Config
	RunID   string
	Fetcher client.Fetcher
	Client  client.CatalogClient
	Records repository.RecordRepository

	Service *service.Service
	Menu    *menu.Extractor

	db    *pgxpool.Pool
	redis *redis.Client
}

// New creates the container with the HTTP stack and the menu stage. The
// harvest components are added by InitHarvest.
func New(ctx context.Context, cfg *config.Config) *Container {
	container := &Container{
		Config: cfg,
		RunID:  uuid.NewString(),
	}

	proxySupplier := proxy.NewSupplier(ctx, cfg.Runtime.Proxies, cfg.Site.WebBaseURL, nil)
	if len(cfg.Runtime.Proxies) > 0 && proxySupplier.Len() == 0 {
		log.Warn("⚠️ No working proxies found, connecting directly")
	}

	container.Fetcher = client.NewFetcher(client.FetcherOptions{
		Retries:              cfg.Runtime.RequestRetries,
		Timeout:              cfg.Runtime.RequestTimeout,
		RetryDelay:           cfg.Runtime.RetryDelay,
		MaxRequestsPerSecond: cfg.Runtime.MaxRequestsPerSecond,
	}, proxySupplier)
	container.Client = client.NewCatalogClient(container.Fetcher, cfg.API)

	container.Menu = menu.NewExtractor(container.Fetcher, repository.SaveCategories, menu.Options{
		Endpoint:       cfg.Site.MenuEndpoint,
		NavTitle:       cfg.Site.NavTitle,
		LevelsToExport: cfg.IO.MenuLevelsToExport,
		OutputPath:     cfg.IO.MenuInputFile,
	})

	return container
}

// InitHarvest connects the configured sinks and builds the harvest service.
// limit overrides runtime.limit when positive.
func (c *Container) InitHarvest(ctx context.Context, limit int) error {
	cfg := c.Config

	records, err := c.buildSinks(ctx)
	if err != nil {
		return err
	}
	c.Records = records

	if limit <= 0 {
		limit = cfg.Runtime.Limit
	}

	c.Service = service.NewService(
		repository.NewFileCategorySource(cfg.IO.MenuInputFile, cfg.IO.MenuLevel),
		c.Client,
		catalog.NewPaginator(
			c.Client,
			cfg.Runtime.MaxConsecutivePageFailures,
			catalog.ParseFailedPagePolicy(cfg.Runtime.FailedPagePolicy),
		),
		catalog.NewNormalizer(cfg.Site.WebBaseURL),
		availability.NewEnricher(
			c.Client,
			cfg.Runtime.AvailabilityWorkers,
			cfg.Runtime.AvailabilityBatchSize,
		),
		records,
		service.Options{
			Limit:             limit,
			OutputDestination: service.DestinationName(cfg.IO.OutputFilenameTemplate, cfg.Site.BrandName, cfg.IO.TimestampLayout, time.Now()),
			CrashDestination:  cfg.IO.CrashSaveFilename,
		},
		c.RunID,
	)

	return nil
}

func (c *Container) buildSinks(ctx context.Context) (repository.RecordRepository, error) {
	sinks := c.Config.Output.Sinks
	if len(sinks) == 0 {
		sinks = []string{"file"}
	}

	repos := make([]repository.RecordRepository, 0, len(sinks))
	for _, sink := range sinks {
		switch sink {
		case "file":
			repos = append(repos, repository.NewFileRecordRepository(filepath.Clean(c.Config.IO.OutputDir)))

		case "postgres":
			db, err := pgxpool.New(ctx, c.Config.Database.DSN())
			if err != nil {
				return nil, fmt.Errorf("failed to create database pool: %w", err)
			}
			c.db = db
			if err := db.Ping(ctx); err != nil {
				return nil, fmt.Errorf("failed to connect to database: %w", err)
			}
			log.Info("✅ Connected to PostgreSQL successfully")

			repo, err := repository.NewPostgresRecordRepository(db, c.Config.Database.Table, c.RunID)
			if err != nil {
				return nil, err
			}
			repos = append(repos, repo)

		case "redis":
			rdb := redis.NewClient(&redis.Options{
				Addr:     c.Config.Redis.Addr(),
				Password: c.Config.Redis.Password,
				DB:       c.Config.Redis.Database,
			})
			c.redis = rdb
			if _, err := rdb.Ping(ctx).Result(); err != nil {
				return nil, fmt.Errorf("failed to connect to Redis: %w", err)
			}
			log.Info("✅ Connected to Redis successfully")

			repos = append(repos, repository.NewRedisRecordRepository(rdb, c.Config.Redis.KeyPrefix))

		default:
			return nil, fmt.Errorf("unknown output sink %q", sink)
		}
	}

	return repository.NewMultiRecordRepository(repos...), nil
}

// Run executes the harvest while the metrics listener is up
func (c *Container) Run(ctx context.Context) (*service.Summary, error) {
	if c.Service == nil {
		return nil, fmt.Errorf("harvest is not initialized")
	}

	g, gctx := errgroup.WithContext(ctx)
	serveCtx, stopServing := context.WithCancel(gctx)

	g.Go(func() error {
		if err := metrics.Serve(serveCtx, c.Config.Metrics.Addr); err != nil {
			log.Errorf("❌ Metrics listener failed: %v", err)
		}
		return nil
	})

	var summary *service.Summary
	g.Go(func() error {
		defer stopServing()
		var err error
		summary, err = c.Service.Run(gctx)
		return err
	})

	err := g.Wait()
	return summary, err
}

// RunMenu executes the menu extraction stage
func (c *Container) RunMenu(ctx context.Context) error {
	_, err := c.Menu.Run(ctx)
	return err
}

// Close performs cleanup when shutting down
func (c *Container) Close() error {
	log.Info("Shutting down container...")

	if c.db != nil {
		c.db.Close()
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			log.Warnf("Failed to close Redis client: %v", err)
		}
	}

	log.Info("Container shut down successfully")
	return nil
}
