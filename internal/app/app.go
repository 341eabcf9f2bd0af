package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/DRSN-tech/price-tracker/internal/cfg"
	v1Http "github.com/DRSN-tech/price-tracker/internal/delivery/v1/http"
	"github.com/DRSN-tech/price-tracker/internal/infrastructure/amazon"
	"github.com/DRSN-tech/price-tracker/internal/infrastructure/kafka"
	minioInfra "github.com/DRSN-tech/price-tracker/internal/infrastructure/minio"
	"github.com/DRSN-tech/price-tracker/internal/infrastructure/notify"
	"github.com/DRSN-tech/price-tracker/internal/infrastructure/scheduler"
	"github.com/DRSN-tech/price-tracker/internal/repository/memory"
	s3Repo "github.com/DRSN-tech/price-tracker/internal/repository/minio"
	"github.com/DRSN-tech/price-tracker/internal/repository/pgdb"
	pgdbConv "github.com/DRSN-tech/price-tracker/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/price-tracker/internal/repository/redis"
	redisConv "github.com/DRSN-tech/price-tracker/internal/repository/redis/converter"
	"github.com/DRSN-tech/price-tracker/internal/usecase"
	"github.com/DRSN-tech/price-tracker/pkg/closer"
	"github.com/DRSN-tech/price-tracker/pkg/clients"
	"github.com/DRSN-tech/price-tracker/pkg/e"
	"github.com/DRSN-tech/price-tracker/pkg/logger"
	"github.com/DRSN-tech/price-tracker/pkg/postgres"
	"github.com/DRSN-tech/price-tracker/pkg/tr"
	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
)

const (
	initTimeout     = 10 * time.Second
	shutdownTimeout = 15 * time.Second
)

// App связывает хранилища, источник цен, проверку цен и HTTP API.
type App struct {
	cfg    *config.Config
	logger logger.Logger
	closer *closer.Closer

	ctx    context.Context
	cancel context.CancelFunc

	httpSrv   *v1Http.Server
	scheduler *scheduler.SweepScheduler
	outbox    *kafka.OutboxWorker
}

// deps — реализации портов usecase для выбранного драйвера хранилища.
type deps struct {
	productRepo usecase.ProductRepository
	cacheRepo   usecase.CacheRepository
	alertSink   usecase.AlertSink
	transactor  usecase.Transactor
	archiver    amazon.PageArchiver
}

func NewApp(cfg *config.Config, log logger.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		cfg:    cfg,
		logger: log,
		closer: closer.NewCloser(0),
		ctx:    ctx,
		cancel: cancel,
	}

	var (
		d   *deps
		err error
	)
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		d = a.initMemory()
	default:
		d, err = a.initPostgres()
	}
	if err != nil {
		a.shutdown()
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	fetcher := amazon.NewFetcher(cfg.Fetcher, d.archiver, log)
	sweeper := usecase.NewSweeper(
		d.productRepo,
		d.cacheRepo,
		fetcher,
		d.alertSink,
		d.transactor,
		log,
		cfg.Sweep.Concurrency,
		cfg.Sweep.FetchTimeout,
	)
	productUC := usecase.NewProductUC(d.productRepo, d.cacheRepo, fetcher, sweeper, log, cfg.Sweep.FetchTimeout)

	a.scheduler = scheduler.NewSweepScheduler(sweeper, log, cfg.Sweep.Interval, cfg.Sweep.RunOnStart)
	a.closer.Add("sweep scheduler", a.scheduler.Stop)

	r := chi.NewRouter()
	v1Http.NewRouter(r, log).Init(productUC, cfg.Http.RequestTimeout)
	a.httpSrv = v1Http.NewServer(r, cfg.Http)
	a.closer.Add("http server", a.httpSrv.Stop)

	return a, nil
}

func (a *App) initMemory() *deps {
	a.logger.Warnf("STORE_DRIVER=%s: products are kept in memory and lost on restart", config.StoreDriverMemory)

	return &deps{
		productRepo: memory.NewProductRepo(),
		cacheRepo:   memory.NopCache{},
		alertSink:   notify.NewLogSink(a.logger),
		transactor:  tr.NopTransactor{},
	}
}

func (a *App) initPostgres() (*deps, error) {
	cfg := a.cfg

	db, err := initPGDB(a.ctx, a.logger, cfg)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	a.closer.AddFunc("postgres", db.Close)

	redisClient := clients.NewRedisClient(cfg.Redis)
	redisCtx, redisCancel := context.WithTimeout(a.ctx, initTimeout)
	defer redisCancel()
	if err := redisClient.Ping(redisCtx); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	a.closer.Add("redis", func(context.Context) error { return redisClient.Close() })

	minioClient, err := clients.NewMinIOClient(cfg.Minio)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	minioCtx, minioCancel := context.WithTimeout(a.ctx, initTimeout)
	defer minioCancel()
	if err := clients.EnsureBucket(minioCtx, minioClient, cfg.Minio.BucketName); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	pageArchive := minioInfra.NewPageArchive(s3Repo.NewPageRepo(minioClient, cfg.Minio), a.logger, a.ctx, cfg.Minio.UploadTimeout)
	a.closer.Add("minio page archive", pageArchive.WaitForUploads)

	producer := kafka.NewProducer(a.logger, cfg.Kafka)
	if err := producer.EnsureTopic(initTimeout); err != nil {
		a.logger.Warnf("Kafka topic check failed, relying on broker auto-create: %v", err)
	}
	a.closer.Add("kafka producer", func(context.Context) error { return producer.Close() })

	outboxRepo := pgdb.NewOutboxEventRepo(db.Pool, pgdbConv.OutboxEventConverter{})
	a.outbox = kafka.NewOutboxWorker(outboxRepo, a.logger, producer, cfg.Outbox, db.Dsn)
	a.closer.AddFunc("outbox worker", a.outbox.Stop)

	return &deps{
		productRepo: pgdb.NewProductRepo(db.Pool, pgdbConv.ProductConverter{}),
		cacheRepo:   redis.NewCacheRepo(redisClient, redisConv.ProductConverter{}, cfg.Redis, a.logger),
		alertSink:   usecase.NewOutboxAlertSink(outboxRepo),
		transactor:  tr.NewPgTransactor(db.Pool),
		archiver:    pageArchive,
	}, nil
}

// Run запускает фоновые задачи и HTTP-сервер и блокируется до сигнала
// остановки или ошибки сервера.
func (a *App) Run() error {
	if a.outbox != nil {
		a.outbox.Start(a.ctx)
	}
	a.scheduler.Start(a.ctx)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("HTTP server started on port %s", a.cfg.Http.Port)
		if err := a.httpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	// === Ожидание сигнала или ошибки ===
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	var appErr error
	select {
	case appErr = <-errCh:
		a.logger.Errorf(appErr, "HTTP server fatal error")
	case <-shutdown:
		a.logger.Infof("Received shutdown signal, stopping gracefully...")
	}

	a.shutdown()

	a.logger.Infof("Application shutdown complete")
	return appErr
}

// shutdown закрывает ресурсы в обратном порядке регистрации.
func (a *App) shutdown() {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := a.closer.Close(shutdownCtx); err != nil {
		a.logger.Errorf(err, "shutdown finished with errors")
	}
	a.cancel()
}

func initPGDB(ctx context.Context, logger logger.Logger, cfg *config.Config) (*postgres.PgDatabase, error) {
	ctx, cancel := context.WithTimeout(ctx, initTimeout)
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.Db)
	if err != nil {
		logger.Errorf(err, "failed to connect to database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.RunMigrations(logger); err != nil {
		logger.Errorf(err, "failed to run migrations")
		db.Close()
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return db, nil
}
