package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/BartekS5/steampulse/internal/config"
	"github.com/BartekS5/steampulse/internal/etl"
	"github.com/BartekS5/steampulse/pkg/database"
	"github.com/BartekS5/steampulse/pkg/logger"
	"github.com/BartekS5/steampulse/pkg/models"
	"github.com/BartekS5/steampulse/pkg/storefront"
)

// cleanup runs registered close functions in reverse order.
type cleanup []func()

func (c *cleanup) add(fn func()) { *c = append(*c, fn) }

func (c cleanup) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

func newStorefront(cfg *config.Config) *storefront.Client {
	return storefront.NewClient(storefront.Options{
		StoreBaseURL:      cfg.StoreBaseURL,
		APIBaseURL:        cfg.APIBaseURL,
		CountryCode:       cfg.CountryCode,
		Language:          cfg.Language,
		UserAgent:         cfg.UserAgent,
		APIKey:            cfg.SteamAPIKey,
		Timeout:           cfg.HTTPTimeout,
		RequestsPerSecond: cfg.RequestRPS,
	})
}

func lockPath(cfg *config.Config) string {
	return cfg.CheckpointFile + ".lock"
}

func openCheckpointStore(ctx context.Context, cfg *config.Config, c *cleanup) (etl.CheckpointStore, error) {
	if cfg.CheckpointBackend == config.BackendFile {
		return etl.NewFileCheckpointStore(cfg.CheckpointFile), nil
	}

	dialect, err := database.ParseDialect(cfg.CheckpointBackend)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrConfiguration, err)
	}
	db, err := database.ConnectSQL(ctx, dialect, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	c.add(func() { db.Close() })

	return etl.NewSQLCheckpointStore(db, dialect, cfg.PipelineName), nil
}

// openObjectStore returns nil when no bucket is configured. A bucket that is
// configured but unreachable is a configuration error.
func openObjectStore(ctx context.Context, cfg *config.Config, c *cleanup) (*etl.GCSStore, error) {
	if cfg.RemoteBucket == "" {
		return nil, nil
	}

	store, err := etl.NewGCSStore(ctx, cfg.RemoteBucket, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrConfiguration, err)
	}
	c.add(func() { store.Close() })

	return store, nil
}

// openPublisher returns nil when no remote sink is configured or reachable.
func openPublisher(ctx context.Context, cfg *config.Config, c *cleanup) (etl.Publisher, error) {
	var pubs etl.MultiPublisher

	store, err := openObjectStore(ctx, cfg, c)
	if err != nil {
		return nil, err
	}
	if store != nil {
		bp := etl.NewBucketPublisher(store, cfg.RemotePrefix)
		bp.Timeout = cfg.RemoteTimeout
		pubs = append(pubs, bp)
	}

	if cfg.MongoURI != "" {
		client, err := database.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			logger.Warnf("MongoDB sink disabled: %v", err)
		} else {
			c.add(func() {
				dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = client.Disconnect(dctx)
			})
			mp := etl.NewMongoPublisher(client, cfg.MongoDatabase, cfg.MongoCollection)
			mp.Timeout = cfg.RemoteTimeout
			pubs = append(pubs, mp)
		}
	}

	if cfg.KafkaTopic != "" {
		kp := etl.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		c.add(func() { kp.Close() })
		pubs = append(pubs, kp)
	}

	switch len(pubs) {
	case 0:
		logger.Warn("no remote sink configured, batches are kept locally only")
		return nil, nil
	case 1:
		return pubs[0], nil
	default:
		return pubs, nil
	}
}

func runIngest(ctx context.Context, cfg *config.Config, discover, fetch bool) error {
	lock, err := etl.AcquireLock(lockPath(cfg), cfg.LockTTL)
	if err != nil {
		return err
	}
	defer lock.Release()

	var c cleanup
	defer c.run()

	client := newStorefront(cfg)
	idStore := etl.NewFileIdentifierStore(cfg.DiscoveryFile)

	var ids []models.AppID
	if discover {
		d := etl.NewDiscovery(client, idStore, etl.DiscoveryOptions{
			PageDelay:           cfg.PageDelay,
			StatusRetryDelay:    cfg.StatusRetryDelay,
			TransportRetryDelay: cfg.TransportRetryDelay,
			MaxRetries:          cfg.DiscoveryMaxRetries,
		})
		ids, err = d.Discover(ctx, cfg.TargetCount)
	} else {
		ids, err = idStore.Load(ctx)
		if len(ids) > cfg.TargetCount {
			ids = ids[:cfg.TargetCount]
		}
	}
	if err != nil {
		return err
	}
	if !fetch {
		return nil
	}
	if len(ids) == 0 {
		return fmt.Errorf("%w: %s", etl.ErrNoIdentifiers, cfg.DiscoveryFile)
	}

	checkpoints, err := openCheckpointStore(ctx, cfg, &c)
	if err != nil {
		return err
	}
	pub, err := openPublisher(ctx, cfg, &c)
	if err != nil {
		return err
	}

	committer := etl.NewCommitter(etl.NewFileSink(cfg.LocalDataDir), pub, checkpoints)
	fetcher := etl.NewFetcher(client, checkpoints, committer, etl.FetchOptions{
		BatchSize:         cfg.BatchSize,
		BatchSleep:        cfg.BatchSleep,
		RateLimitCooldown: cfg.RateLimitCooldown,
	})

	if err := fetcher.FetchAll(ctx, ids); err != nil {
		logger.Error("detail fetch stopped", append(fetcher.Stats().LogArgs(), "error", err)...)
		return err
	}
	return nil
}

func runRepair(ctx context.Context, cfg *config.Config) error {
	var c cleanup
	defer c.run()

	store, err := openObjectStore(ctx, cfg, &c)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("%w: repair needs REMOTE_BUCKET", config.ErrConfiguration)
	}

	repairer := etl.NewRepairer(etl.NewFileSink(cfg.LocalDataDir), store, cfg.RemotePrefix)
	repairer.Timeout = cfg.RemoteTimeout

	report, err := repairer.RepairAll(ctx)
	if err != nil {
		return err
	}
	if len(report.Failed) > 0 {
		return fmt.Errorf("repair left %d of %d files unrepaired: %v", len(report.Failed), report.Scanned, report.Failed)
	}
	return nil
}

func runAppList(ctx context.Context, cfg *config.Config) error {
	if cfg.SteamAPIKey == "" {
		return fmt.Errorf("%w: %w", config.ErrConfiguration, storefront.ErrMissingAPIKey)
	}

	client := newStorefront(cfg).WithTimeout(cfg.AppListTimeout)
	_, err := etl.ExportAppList(ctx, client, storefront.AppListPageSize, cfg.AppListFile)
	if errors.Is(err, storefront.ErrForbidden) {
		return fmt.Errorf("%w: %w", config.ErrConfiguration, err)
	}
	return err
}

func runCheckpointShow(ctx context.Context, cfg *config.Config, out io.Writer) error {
	var c cleanup
	defer c.run()

	store, err := openCheckpointStore(ctx, cfg, &c)
	if err != nil {
		return err
	}
	next, err := store.Load(ctx)
	if err != nil {
		return err
	}

	ids, err := etl.NewFileIdentifierStore(cfg.DiscoveryFile).Load(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "backend:     %s\n", cfg.CheckpointBackend)
	fmt.Fprintf(out, "checkpoint:  %d\n", next)
	fmt.Fprintf(out, "identifiers: %d\n", len(ids))
	return nil
}

func runCheckpointReset(ctx context.Context, cfg *config.Config) error {
	lock, err := etl.AcquireLock(lockPath(cfg), cfg.LockTTL)
	if err != nil {
		return err
	}
	defer lock.Release()

	var c cleanup
	defer c.run()

	store, err := openCheckpointStore(ctx, cfg, &c)
	if err != nil {
		return err
	}
	if err := store.Reset(ctx); err != nil {
		return err
	}

	logger.Info("checkpoint reset", "backend", cfg.CheckpointBackend)
	return nil
}

func runMigrate(ctx context.Context, cfg *config.Config) error {
	if cfg.CheckpointBackend == config.BackendFile {
		logger.Info("file checkpoint backend needs no schema")
		return nil
	}

	dialect, err := database.ParseDialect(cfg.CheckpointBackend)
	if err != nil {
		return fmt.Errorf("%w: %w", config.ErrConfiguration, err)
	}
	db, err := database.ConnectSQL(ctx, dialect, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	return database.Migrate(db, dialect)
}
