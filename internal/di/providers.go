// Package di assembles the application object graph.
package di

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Florenz0707/NASSAV-sub000/internal/api"
	"github.com/Florenz0707/NASSAV-sub000/internal/api/handlers"
	"github.com/Florenz0707/NASSAV-sub000/internal/cache"
	"github.com/Florenz0707/NASSAV-sub000/internal/config"
	"github.com/Florenz0707/NASSAV-sub000/internal/controllers"
	"github.com/Florenz0707/NASSAV-sub000/internal/metrics"
	"github.com/Florenz0707/NASSAV-sub000/internal/models"
	"github.com/Florenz0707/NASSAV-sub000/internal/notify"
	"github.com/Florenz0707/NASSAV-sub000/internal/queue"
	"github.com/Florenz0707/NASSAV-sub000/internal/scheduler"
	"github.com/Florenz0707/NASSAV-sub000/internal/services/enrichment"
	"github.com/Florenz0707/NASSAV-sub000/internal/services/sources"
	"github.com/Florenz0707/NASSAV-sub000/internal/services/transfer"
	"github.com/Florenz0707/NASSAV-sub000/internal/services/translator"
	"github.com/Florenz0707/NASSAV-sub000/internal/storage"
	"github.com/Florenz0707/NASSAV-sub000/internal/utils"
	"github.com/google/wire"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const lockPollInterval = 500 * time.Millisecond

// Backend is the shared coordination layer: Redis plus asynq, or the
// in-process stand-ins when CACHE_BACKEND=memory
type Backend struct {
	Store     cache.Store
	Redis     redis.UniversalClient // nil in memory mode
	RedisOpt  asynq.RedisConnOpt    // nil in memory mode
	Enqueuer  queue.Enqueuer
	Inspector queue.Inspector
	Local     *queue.LocalQueue // nil in redis mode
}

// ProvideBackend connects to Redis or builds the in-memory backend
func ProvideBackend(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Backend, func(), error) {
	if cfg.CacheBackend == config.CacheBackendMemory {
		local := queue.NewLocalQueue(cfg.WorkerConcurrency, logger)
		logger.Warn("Using in-memory backend, locks only hold within this process")
		return &Backend{
			Store:     cache.NewMemoryStore(),
			Enqueuer:  local,
			Inspector: local,
			Local:     local,
		}, local.Shutdown, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	asynqClient := asynq.NewClient(redisOpt)
	inspector := asynq.NewInspector(redisOpt)

	cleanup := func() {
		_ = asynqClient.Close()
		_ = inspector.Close()
		_ = client.Close()
	}
	logger.WithField("addr", cfg.RedisAddr).Info("Connected to redis")

	return &Backend{
		Store:     cache.NewRedisStore(client),
		Redis:     client,
		RedisOpt:  redisOpt,
		Enqueuer:  asynqClient,
		Inspector: queue.NewAsynqInspector(inspector),
	}, cleanup, nil
}

// ProvideStore exposes the backend store
func ProvideStore(b *Backend) cache.Store {
	return b.Store
}

// ProvideLocker builds the lock helper over the shared store
func ProvideLocker(store cache.Store) *cache.Locker {
	return cache.NewLocker(store, lockPollInterval)
}

// ProvideSubmitter builds the deduplicating job submitter
func ProvideSubmitter(b *Backend, locker *cache.Locker, ledger *queue.Ledger, logger *logrus.Logger) *queue.Submitter {
	return queue.NewSubmitter(b.Enqueuer, b.Inspector, locker, ledger, logger)
}

// ProvideDatabase opens the sqlite store
func ProvideDatabase(cfg *config.Config, logger *logrus.Logger) (*models.Database, func(), error) {
	db, err := models.NewDatabase(cfg.DatabaseFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	logger.Info("Database initialized")
	return db, func() { _ = db.Close() }, nil
}

// ProvideHTTPClient builds the outbound client shared by scrapers, assets and translators
func ProvideHTTPClient(cfg *config.Config) (*http.Client, error) {
	return utils.NewHTTPClient(cfg.HTTPTimeout, cfg.HTTPProxyURL)
}

// ProvideVocabulary loads the translation vocabulary, falling back to the built-in terms
func ProvideVocabulary(cfg *config.Config, logger *logrus.Logger) *utils.Vocabulary {
	vocab, err := utils.LoadVocabulary(cfg.VocabularyFile)
	if err != nil {
		logger.WithError(err).Warn("Failed to load vocabulary, continuing with built-in terms")
		vocab = utils.DefaultVocabulary()
	}
	return vocab
}

// ProvideMetricsRegistry creates the registry served at /metrics
func ProvideMetricsRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// ProvideMetrics registers the application collectors
func ProvideMetrics(reg *prometheus.Registry) *metrics.Metrics {
	return metrics.New(reg)
}

// ProvideRegistry builds the source registry with persisted cookies applied
func ProvideRegistry(ctx context.Context, cfg *config.Config, fetcher *sources.Fetcher, db *models.Database, m *metrics.Metrics, logger *logrus.Logger) (*sources.Registry, error) {
	return sources.BuildRegistry(ctx, cfg, fetcher, db, m, logger)
}

// ProvideLayout prepares the media directory tree
func ProvideLayout(cfg *config.Config) (*storage.Layout, error) {
	return storage.NewLayout(cfg.DataDir)
}

// ProvideRunner builds the external downloader wrapper
func ProvideRunner(cfg *config.Config, logger *logrus.Logger) *transfer.Runner {
	return transfer.NewRunner(cfg.DownloaderPath, cfg.HTTPProxyURL, logger)
}

// ProvidePublisher sends events through Redis so every process reaches the
// websocket hub; in memory mode events go to the hub directly
func ProvidePublisher(b *Backend, hub *notify.Hub) notify.Publisher {
	if b.Redis == nil {
		return hub
	}
	return notify.NewRedisPublisher(b.Redis)
}

// ProvideRelay forwards Redis events into the hub. Nil in memory mode.
func ProvideRelay(b *Backend, hub *notify.Hub, logger *logrus.Logger) *notify.Relay {
	if b.Redis == nil {
		return nil
	}
	return notify.NewRelay(b.Redis, hub, logger)
}

// ProvideDownloadController builds the download job runner from config
func ProvideDownloadController(
	cfg *config.Config,
	db *models.Database,
	layout *storage.Layout,
	runner controllers.TransferRunner,
	locker *cache.Locker,
	ledger *queue.Ledger,
	progress *queue.ProgressCache,
	publisher notify.Publisher,
	m *metrics.Metrics,
	logger *logrus.Logger,
) *controllers.DownloadController {
	return controllers.NewDownloadController(db, layout, runner, locker, ledger, progress, publisher, m, controllers.DownloadOptions{
		LockTTL:          cfg.DownloadLockTTL,
		LockWait:         cfg.DownloadLockWait,
		TaskLockTTL:      cfg.TaskLockTTL,
		MaxRetries:       cfg.DownloadMaxRetries,
		RetryDelay:       cfg.DownloadRetryDelay,
		ProgressInterval: cfg.ProgressInterval,
	}, logger)
}

// ProvideWorker builds the asynq server. In memory mode the local queue
// starts dispatching to mux instead and no worker is returned.
func ProvideWorker(cfg *config.Config, b *Backend, mux *asynq.ServeMux, logger *logrus.Logger) *queue.Worker {
	if b.Local != nil {
		b.Local.Start(mux)
		return nil
	}
	return queue.NewWorker(b.RedisOpt, cfg.WorkerConcurrency, mux, logger)
}

// ProvideScheduler builds the cron scheduler
func ProvideScheduler(cfg *config.Config, reconciler *controllers.Reconciler, translations *controllers.TranslationController, submitter *queue.Submitter, logger *logrus.Logger) *scheduler.Scheduler {
	return scheduler.NewScheduler(reconciler, translations, submitter, cfg.ReconcileSchedule, cfg.TaskLockTTL, logger)
}

// ProvideServer builds the HTTP server
func ProvideServer(
	cfg *config.Config,
	acquisition *controllers.AcquisitionController,
	db *models.Database,
	ledger *queue.Ledger,
	registry *sources.Registry,
	store cache.Store,
	hub *notify.Hub,
	reg *prometheus.Registry,
	logger *logrus.Logger,
) *api.Server {
	return api.NewServer(cfg, api.Dependencies{
		Media:   acquisition,
		Counter: db,
		Queue:   ledger,
		Sources: registry.Sources(),
		Health: map[string]handlers.Pinger{
			"database": db,
			"cache":    store,
		},
		Events:   hub,
		Gatherer: reg,
	}, logger)
}

// ProviderSet is every constructor of the application graph
var ProviderSet = wire.NewSet(
	ProvideBackend,
	ProvideStore,
	ProvideLocker,
	ProvideSubmitter,
	ProvideDatabase,
	ProvideHTTPClient,
	ProvideVocabulary,
	ProvideMetricsRegistry,
	ProvideMetrics,
	ProvideRegistry,
	ProvideLayout,
	ProvideRunner,
	ProvidePublisher,
	ProvideRelay,
	ProvideDownloadController,
	ProvideWorker,
	ProvideScheduler,
	ProvideServer,
	queue.NewLedger,
	queue.NewProgressCache,
	queue.NewServeMux,
	notify.NewHub,
	sources.NewFetcher,
	enrichment.BuildResolver,
	translator.BuildResolver,
	storage.NewAssetFetcher,
	controllers.NewAcquisitionController,
	controllers.NewTranslationController,
	controllers.NewReconciler,
	wire.Bind(new(controllers.JobSubmitter), new(*queue.Submitter)),
	wire.Bind(new(controllers.TransferRunner), new(*transfer.Runner)),
	wire.Bind(new(controllers.TitleResolver), new(*translator.Resolver)),
	wire.Bind(new(queue.DownloadRunner), new(*controllers.DownloadController)),
	wire.Bind(new(queue.TitleTranslator), new(*controllers.TranslationController)),
	wire.Struct(new(App), "*"),
)
