package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "ANNOUNCE_DB_DSN"
	EnvDBHost = "ANNOUNCE_DB_HOST"
	EnvDBUser = "ANNOUNCE_DB_USER"
	EnvDBName = "ANNOUNCE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App      AppConfig
	Service  ServiceConfig
	DB       DBConfig
	Redis    RedisConfig
	GCP      GCPConfig
	GCS      GCSConfig
	PubSub   PubSubConfig
	Ingest   IngestConfig
	Convert  ConvertConfig
	Cron     CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ANNOUNCE_APP_ENV" required:"true"`
	Port         string `envconfig:"ANNOUNCE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ANNOUNCE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ANNOUNCE_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"ANNOUNCE_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ANNOUNCE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN         string `envconfig:"ANNOUNCE_DB_DSN"`
	Driver      string `envconfig:"ANNOUNCE_DB_DRIVER" default:"postgres"`
	AutoMigrate bool   `envconfig:"ANNOUNCE_DB_AUTO_MIGRATE" default:"false"`

	LegacyHost     string `envconfig:"ANNOUNCE_DB_HOST"`
	LegacyPort     int    `envconfig:"ANNOUNCE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ANNOUNCE_DB_USER"`
	LegacyPassword string `envconfig:"ANNOUNCE_DB_PASSWORD"`
	LegacyName     string `envconfig:"ANNOUNCE_DB_NAME"`
	LegacySSLMode  string `envconfig:"ANNOUNCE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ANNOUNCE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ANNOUNCE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ANNOUNCE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ANNOUNCE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ANNOUNCE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ANNOUNCE_REDIS_ADDR"`
	Password     string        `envconfig:"ANNOUNCE_REDIS_PASSWORD"`
	DB           int           `envconfig:"ANNOUNCE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ANNOUNCE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ANNOUNCE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ANNOUNCE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ANNOUNCE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ANNOUNCE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ANNOUNCE_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"ANNOUNCE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ANNOUNCE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName   string `envconfig:"ANNOUNCE_GCS_BUCKET_NAME" required:"true"`
	ObjectPrefix string `envconfig:"ANNOUNCE_GCS_OBJECT_PREFIX" default:"announcements/media"`
	CacheControl string `envconfig:"ANNOUNCE_GCS_CACHE_CONTROL" default:"public, max-age=31536000, immutable"`
	PublicHost   string `envconfig:"ANNOUNCE_GCS_PUBLIC_HOST" default:"https://storage.googleapis.com"`
}

type PubSubConfig struct {
	MediaDeletionTopic        string `envconfig:"ANNOUNCE_PUBSUB_MEDIA_DELETION_TOPIC" required:"true"`
	MediaDeletionSubscription string `envconfig:"ANNOUNCE_PUBSUB_MEDIA_DELETION_SUBSCRIPTION" required:"true"`
}

type IngestConfig struct {
	MaxUploadMB        int           `envconfig:"ANNOUNCE_INGEST_MAX_UPLOAD_MB" default:"50"`
	ProgressTTL        time.Duration `envconfig:"ANNOUNCE_INGEST_PROGRESS_TTL" default:"15m"`
	DedupEnabled       bool          `envconfig:"ANNOUNCE_INGEST_DEDUP_ENABLED" default:"true"`
	CollectionMaxItems int           `envconfig:"ANNOUNCE_INGEST_COLLECTION_MAX_ITEMS" default:"30"`
}

// MaxUploadBytes converts the configured megabyte cap into bytes.
func (i IngestConfig) MaxUploadBytes() int64 {
	return int64(i.MaxUploadMB) << 20
}

type ConvertConfig struct {
	BaseURL        string        `envconfig:"ANNOUNCE_CONVERT_BASE_URL" required:"true"`
	Timeout        time.Duration `envconfig:"ANNOUNCE_CONVERT_TIMEOUT" default:"30s"`
	BreakerMaxFail uint32        `envconfig:"ANNOUNCE_CONVERT_BREAKER_MAX_FAILURES" default:"5"`
	BreakerCooloff time.Duration `envconfig:"ANNOUNCE_CONVERT_BREAKER_COOLOFF" default:"30s"`
}

type CronConfig struct {
	Interval             time.Duration `envconfig:"ANNOUNCE_CRON_INTERVAL" default:"24h"`
	LockTTL              time.Duration `envconfig:"ANNOUNCE_CRON_LOCK_TTL" default:"25h"`
	MediaRetentionDays   int           `envconfig:"ANNOUNCE_CRON_MEDIA_RETENTION_DAYS" default:"7"`
	DeletionRetentionDays int          `envconfig:"ANNOUNCE_CRON_DELETION_RETENTION_DAYS" default:"1"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
