package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/DRSN-tech/price-tracker/pkg/e"
	"github.com/DRSN-tech/price-tracker/pkg/logger"
	"github.com/jimlawless/whereami"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	Store   *StoreCfg
	Http    *HTTPConfig
	Fetcher *FetcherCfg
	Sweep   *SweepCfg
	Db      *PGDBCfg
	Redis   *RedisCfg
	Minio   *MinIOCfg
	Kafka   *KafkaCfg
	Outbox  *OutboxCfg
}

type StoreCfg struct {
	Driver string // postgres | memory
}

type HTTPConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration // таймаут обработчика, включая синхронную проверку цен
}

// FetcherCfg — настройки получения цен с внешнего сайта.
type FetcherCfg struct {
	BaseURL      string
	UserAgent    string
	Timeout      time.Duration // таймаут одной попытки HTTP-запроса
	MaxRetries   int           // общее число попыток для unreachable
	RetryBase    time.Duration
	RetryMax     time.Duration
	MaxBodyBytes int64
}

// SweepCfg — настройки полной проверки цен.
type SweepCfg struct {
	Interval     time.Duration
	Concurrency  int
	FetchTimeout time.Duration // общий бюджет на один товар, включая повторы
	RunOnStart   bool
}

type PGDBCfg struct {
	Host          string
	Port          string
	User          string
	Password      string
	DBName        string
	SSLMode       string
	MaxConns      int32
	MigrationsURL string
}

type RedisCfg struct {
	Addr        string
	Password    string
	User        string
	DB          int
	MaxRetries  int
	DialTimeout time.Duration
	Timeout     time.Duration
	ProductTTL  time.Duration
}

type MinIOCfg struct {
	MinioEndpoint     string // Адрес конечной точки Minio
	BucketName        string // Бакет для страниц, которые не удалось распарсить
	MinioRootUser     string
	MinioRootPassword string
	MinioUseSSL       bool
	UploadTimeout     time.Duration
}

type KafkaCfg struct {
	Topic             string
	Brokers           []string
	NetworkMode       string
	Partitions        int
	ReplicationFactor int
}

type OutboxCfg struct {
	BatchSize    int
	PollInterval time.Duration
}

// Load загружает конфигурацию и возвращает ошибку в случае неудачи.
// Для STORE_DRIVER=memory внешние хранилища не настраиваются.
func Load(log logger.Logger) (*Config, error) {
	store, err := loadStoreCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	http, err := loadHTTPConfig(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	fetcher, err := loadFetcherCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	sweep, err := loadSweepCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	config := &Config{
		Store:   store,
		Http:    http,
		Fetcher: fetcher,
		Sweep:   sweep,
	}

	if store.Driver == StoreDriverMemory {
		return config, nil
	}

	if config.Db, err = loadPGDBCfg(log); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if config.Redis, err = loadRedisCfg(log); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if config.Minio, err = loadMinIOCfg(log); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if config.Kafka, err = loadKafkaCfg(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if config.Outbox, err = loadOutboxCfg(log); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return config, nil
}

func loadStoreCfg() (*StoreCfg, error) {
	driver := strings.ToLower(getEnvOrDefault("STORE_DRIVER", StoreDriverPostgres))
	switch driver {
	case StoreDriverPostgres, StoreDriverMemory:
		return &StoreCfg{Driver: driver}, nil
	default:
		return nil, e.Wrap("STORE_DRIVER="+driver, e.ErrIncorrectEnvVariable)
	}
}

func loadHTTPConfig(log logger.Logger) (*HTTPConfig, error) {
	const (
		defaultPort           = "8080"
		defaultReadTimeout    = 5 * time.Second
		defaultWriteTimeout   = 5 * time.Minute
		defaultIdleTimeout    = 60 * time.Second
		defaultRequestTimeout = 4 * time.Minute
	)

	readTimeout, err := parseDurationEnv("HTTP_READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("HTTP_WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_WRITE_TIMEOUT")
		return nil, err
	}

	idleTimeout, err := parseDurationEnv("KEEP_ALIVE", defaultIdleTimeout)
	if err != nil {
		log.Errorf(err, "invalid KEEP_ALIVE")
		return nil, err
	}

	requestTimeout, err := parseDurationEnv("HTTP_REQUEST_TIMEOUT", defaultRequestTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_REQUEST_TIMEOUT")
		return nil, err
	}

	return &HTTPConfig{
		Port:           getEnvOrDefault("HTTP_PORT", defaultPort),
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		IdleTimeout:    idleTimeout,
		RequestTimeout: requestTimeout,
	}, nil
}

func loadFetcherCfg(log logger.Logger) (*FetcherCfg, error) {
	const (
		defaultBaseURL      = "https://www.amazon.com"
		defaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
		defaultTimeout      = 15 * time.Second
		defaultMaxRetries   = 3
		defaultRetryBase    = 500 * time.Millisecond
		defaultRetryMax     = 5 * time.Second
		defaultMaxBodyBytes = 8 << 20
	)

	timeout, err := parseDurationEnv("FETCH_TIMEOUT", defaultTimeout)
	if err != nil {
		log.Errorf(err, "invalid FETCH_TIMEOUT")
		return nil, err
	}

	maxRetries, err := parseIntEnv("FETCH_MAX_RETRIES", defaultMaxRetries)
	if err != nil || maxRetries < 1 {
		log.Errorf(e.ErrIncorrectEnvVariable, "invalid FETCH_MAX_RETRIES")
		return nil, e.Wrap("FETCH_MAX_RETRIES", e.ErrIncorrectEnvVariable)
	}

	retryBase, err := parseDurationEnv("FETCH_RETRY_BASE", defaultRetryBase)
	if err != nil {
		log.Errorf(err, "invalid FETCH_RETRY_BASE")
		return nil, err
	}

	retryMax, err := parseDurationEnv("FETCH_RETRY_MAX", defaultRetryMax)
	if err != nil {
		log.Errorf(err, "invalid FETCH_RETRY_MAX")
		return nil, err
	}

	return &FetcherCfg{
		BaseURL:      strings.TrimRight(getEnvOrDefault("AMAZON_BASE_URL", defaultBaseURL), "/"),
		UserAgent:    getEnvOrDefault("FETCH_USER_AGENT", defaultUserAgent),
		Timeout:      timeout,
		MaxRetries:   maxRetries,
		RetryBase:    retryBase,
		RetryMax:     retryMax,
		MaxBodyBytes: defaultMaxBodyBytes,
	}, nil
}

func loadSweepCfg(log logger.Logger) (*SweepCfg, error) {
	const (
		defaultInterval     = time.Hour
		defaultConcurrency  = 4
		defaultFetchTimeout = time.Minute
		defaultRunOnStart   = false
	)

	interval, err := parseDurationEnv("SWEEP_INTERVAL", defaultInterval)
	if err != nil {
		log.Errorf(err, "invalid SWEEP_INTERVAL")
		return nil, err
	}

	concurrency, err := parseIntEnv("SWEEP_CONCURRENCY", defaultConcurrency)
	if err != nil || concurrency < 1 {
		log.Errorf(e.ErrIncorrectEnvVariable, "invalid SWEEP_CONCURRENCY")
		return nil, e.Wrap("SWEEP_CONCURRENCY", e.ErrIncorrectEnvVariable)
	}

	fetchTimeout, err := parseDurationEnv("SWEEP_FETCH_TIMEOUT", defaultFetchTimeout)
	if err != nil {
		log.Errorf(err, "invalid SWEEP_FETCH_TIMEOUT")
		return nil, err
	}

	runOnStart, err := parseBoolEnv("SWEEP_ON_START", defaultRunOnStart)
	if err != nil {
		log.Errorf(err, "invalid SWEEP_ON_START")
		return nil, err
	}

	return &SweepCfg{
		Interval:     interval,
		Concurrency:  concurrency,
		FetchTimeout: fetchTimeout,
		RunOnStart:   runOnStart,
	}, nil
}

func loadPGDBCfg(log logger.Logger) (*PGDBCfg, error) {
	const (
		defaultHost          = "localhost"
		defaultPort          = "5432"
		defaultSSLMode       = "disable"
		defaultMaxConns      = 10
		defaultMigrationsURL = "file://db/migrations"
	)

	user := getEnv("POSTGRES_USER")
	if user == "" {
		err := fmt.Errorf("POSTGRES_USER is required")
		log.Errorf(err, "missing POSTGRES_USER")
		return nil, err
	}

	password := getEnv("POSTGRES_PASSWORD")
	if password == "" {
		err := fmt.Errorf("POSTGRES_PASSWORD is required")
		log.Errorf(err, "missing POSTGRES_PASSWORD")
		return nil, err
	}

	dbName := getEnv("POSTGRES_DB")
	if dbName == "" {
		err := fmt.Errorf("POSTGRES_DB is required")
		log.Errorf(err, "missing POSTGRES_DB")
		return nil, err
	}

	maxConns, err := parseIntEnv("POSTGRES_MAX_CONNS", defaultMaxConns)
	if err != nil {
		log.Errorf(err, "invalid POSTGRES_MAX_CONNS")
		return nil, e.Wrap("POSTGRES_MAX_CONNS", err)
	}

	return &PGDBCfg{
		Host:          getEnvOrDefault("POSTGRES_HOST", defaultHost),
		Port:          getEnvOrDefault("POSTGRES_PORT", defaultPort),
		User:          user,
		Password:      password,
		DBName:        dbName,
		SSLMode:       getEnvOrDefault("SSL_MODE", defaultSSLMode),
		MaxConns:      int32(maxConns),
		MigrationsURL: getEnvOrDefault("MIGRATIONS_URL", defaultMigrationsURL),
	}, nil
}

func loadRedisCfg(log logger.Logger) (*RedisCfg, error) {
	const (
		defaultAddr         = "localhost:6379"
		defaultDB           = 0
		defaultMaxRetries   = 3
		defaultDialTimeout  = 5 * time.Second
		defaultReadTimeout  = 3 * time.Second
		defaultWriteTimeout = 3 * time.Second
		defaultProductTTL   = 3 * time.Minute
	)

	db, err := parseIntEnv("REDIS_DB_ID", defaultDB)
	if err != nil {
		log.Errorf(err, "invalid REDIS_DB_ID")
		return nil, err
	}

	maxRetries, err := parseIntEnv("MAX_RETRIES", defaultMaxRetries)
	if err != nil {
		log.Errorf(err, "invalid MAX_RETRIES")
		return nil, err
	}

	dialTimeout, err := parseDurationEnv("DIAL_TIMEOUT", defaultDialTimeout)
	if err != nil {
		log.Errorf(err, "invalid DIAL_TIMEOUT")
		return nil, err
	}

	readTimeout, err := parseDurationEnv("READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid WRITE_TIMEOUT")
		return nil, err
	}

	productTTL, err := parseDurationEnv("PRODUCT_TTL", defaultProductTTL)
	if err != nil {
		log.Errorf(err, "invalid PRODUCT_TTL")
		return nil, err
	}

	return &RedisCfg{
		Addr:        getEnvOrDefault("REDIS_ADDR", defaultAddr),
		Password:    getEnv("REDIS_PASSWORD"),
		User:        getEnv("REDIS_USER"),
		DB:          db,
		MaxRetries:  maxRetries,
		DialTimeout: dialTimeout,
		Timeout:     max(readTimeout, writeTimeout),
		ProductTTL:  productTTL,
	}, nil
}

func loadMinIOCfg(log logger.Logger) (*MinIOCfg, error) {
	const (
		defaultUseSSL        = false
		defaultEndpoint      = "minio:9000"
		defaultBucket        = "price-tracker-pages"
		defaultUploadTimeout = 30 * time.Second
	)

	useSSL, err := parseBoolEnv("MINIO_USE_SSL", defaultUseSSL)
	if err != nil {
		log.Errorf(err, "invalid MINIO_USE_SSL")
		return nil, err
	}

	uploadTimeout, err := parseDurationEnv("MINIO_UPLOAD_TIMEOUT", defaultUploadTimeout)
	if err != nil {
		log.Errorf(err, "invalid MINIO_UPLOAD_TIMEOUT")
		return nil, err
	}

	return &MinIOCfg{
		MinioEndpoint:     getEnvOrDefault("MINIO_ENDPOINT", defaultEndpoint),
		BucketName:        getEnvOrDefault("BUCKET_NAME", defaultBucket),
		MinioRootUser:     getEnv("MINIO_ROOT_USER"),
		MinioRootPassword: getEnv("MINIO_ROOT_PASSWORD"),
		MinioUseSSL:       useSSL,
		UploadTimeout:     uploadTimeout,
	}, nil
}

func loadKafkaCfg() (*KafkaCfg, error) {
	const (
		defaultPartitions        = 3
		defaultReplicationFactor = 1
		defaultNetworkMode       = "tcp"
		defaultTopic             = "price-alerts"
	)

	brokerStr := os.Getenv("KAFKA_BROKERS")
	if brokerStr == "" {
		return nil, fmt.Errorf("KAFKA_BROKERS environment variable is required")
	}

	partitions, err := parseIntEnv("KAFKA_PARTITIONS", defaultPartitions)
	if err != nil {
		return nil, e.Wrap("KAFKA_PARTITIONS", err)
	}

	replicationFactor, err := parseIntEnv("REPLICATION_FACTOR", defaultReplicationFactor)
	if err != nil {
		return nil, e.Wrap("REPLICATION_FACTOR", err)
	}

	return &KafkaCfg{
		Brokers:           strings.Split(brokerStr, ","),
		Topic:             getEnvOrDefault("KAFKA_TOPIC", defaultTopic),
		Partitions:        partitions,
		ReplicationFactor: replicationFactor,
		NetworkMode:       getEnvOrDefault("KAFKA_NETWORK_MODE", defaultNetworkMode),
	}, nil
}

func loadOutboxCfg(log logger.Logger) (*OutboxCfg, error) {
	const (
		defaultBatchSize    = 10
		defaultPollInterval = 30 * time.Second
	)

	batchSize, err := parseIntEnv("OUTBOX_BATCH_SIZE", defaultBatchSize)
	if err != nil {
		log.Errorf(err, "invalid OUTBOX_BATCH_SIZE")
		return nil, e.Wrap("OUTBOX_BATCH_SIZE", err)
	}

	pollInterval, err := parseDurationEnv("OUTBOX_POLL_INTERVAL", defaultPollInterval)
	if err != nil {
		log.Errorf(err, "invalid OUTBOX_POLL_INTERVAL")
		return nil, err
	}

	return &OutboxCfg{
		BatchSize:    batchSize,
		PollInterval: pollInterval,
	}, nil
}

// getEnv возвращает значение переменной окружения.
// Возвращает пустую строку, если переменная не задана.
func getEnv(key string) string {
	return os.Getenv(key)
}

// getEnvOrDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

// parseDurationEnv считывает длительность или возвращает значение по умолчанию.
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	if v := os.Getenv(key); v != "" {
		return time.ParseDuration(v)
	}

	return defaultValue, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}

	intValue, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue, e.ErrIncorrectEnvVariable
	}

	return intValue, nil
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue, e.Wrap(key, e.ErrIncorrectEnvVariable)
	}

	return b, nil
}
