package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "RANKING"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv   = "RANKING_APP_ENV"
	EnvPort     = "RANKING_APP_PORT"
	EnvDBDSN    = "RANKING_DB_DSN"
	EnvDBHost   = "RANKING_DB_HOST"
	EnvDBUser   = "RANKING_DB_USER"
	EnvDBName   = "RANKING_DB_NAME"
	EnvRedisURL = "RANKING_REDIS_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Scheduler    SchedulerConfig
	Outbox       OutboxConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"RANKING_APP_ENV" required:"true"`
	Port         string `envconfig:"RANKING_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"RANKING_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RANKING_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"RANKING_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"RANKING_DB_DSN"`
	Driver string `envconfig:"RANKING_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RANKING_DB_HOST"`
	LegacyPort     int    `envconfig:"RANKING_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RANKING_DB_USER"`
	LegacyPassword string `envconfig:"RANKING_DB_PASSWORD"`
	LegacyName     string `envconfig:"RANKING_DB_NAME"`
	LegacySSLMode  string `envconfig:"RANKING_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RANKING_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RANKING_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RANKING_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RANKING_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RANKING_REDIS_URL" required:"true"`
	Address      string        `envconfig:"RANKING_REDIS_ADDR"`
	Password     string        `envconfig:"RANKING_REDIS_PASSWORD"`
	DB           int           `envconfig:"RANKING_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RANKING_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RANKING_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RANKING_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RANKING_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RANKING_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// SchedulerConfig drives the season lifecycle worker cadence.
type SchedulerConfig struct {
	IntervalMinutes int `envconfig:"RANKING_SCHEDULER_INTERVAL_MINUTES" default:"60"`
}

// Interval returns the scheduler tick as a duration.
func (s SchedulerConfig) Interval() time.Duration {
	if s.IntervalMinutes <= 0 {
		return 0
	}
	return time.Duration(s.IntervalMinutes) * time.Minute
}

// OutboxConfig tunes the outbox publisher loop.
type OutboxConfig struct {
	BatchSize      int    `envconfig:"RANKING_OUTBOX_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"RANKING_OUTBOX_POLL_INTERVAL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"RANKING_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Channel        string `envconfig:"RANKING_OUTBOX_CHANNEL" default:"domain"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"RANKING_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"RANKING_AUTO_MIGRATE" default:"false"`
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
