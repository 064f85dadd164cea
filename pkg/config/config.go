package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Snapshot drivers accepted by SNAPSHOT_DRIVER.
const (
	SnapshotDriverFile     = "file"
	SnapshotDriverPostgres = "postgres"
	SnapshotDriverSQLite   = "sqlite"
)

type Config struct {
	Env            string
	Port           int
	APIPrefix      string
	RequestTimeout time.Duration

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Timetable TimetableConfig
	Browser   BrowserConfig
	Snapshot  SnapshotConfig
	Cookies   CookieConfig
	Calendar  CalendarConfig
	SyncJobs  SyncJobsConfig
	Cache     ScheduleCacheConfig
	Export    ExportConfig
}

type DatabaseConfig struct {
	Driver       string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	SQLitePath   string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Enabled    bool
	Secret     string
	Issuer     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// TimetableConfig describes the remote timetable site and the fetch retry policy.
type TimetableConfig struct {
	URL             string
	DefaultGroup    string
	ResultsSelector string
	SignInMarker    string
	MaxAttempts     int
	RetryDelay      time.Duration
	AttemptTimeout  time.Duration
}

// BrowserConfig controls the headless browser instances driving the site.
type BrowserConfig struct {
	Headless bool
	PoolSize int
	ExecPath string
}

// SnapshotConfig selects where the last synced schedule is kept.
type SnapshotConfig struct {
	Driver string
	Path   string
	Scope  string
}

// CookieConfig locates the persisted session cookies and their sealing key.
type CookieConfig struct {
	Path       string
	Secret     string
	UseKeyring bool
}

// CalendarConfig governs the calendar that receives synced lessons.
type CalendarConfig struct {
	ID           string
	TimeZone     string
	Concurrency  int
	RemoteLabel  string
	OnsiteLabel  string
	RequestLimit time.Duration
}

// SyncJobsConfig toggles asynchronous sync jobs.
type SyncJobsConfig struct {
	Enabled    bool
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// ScheduleCacheConfig toggles Redis caching of extracted schedules.
type ScheduleCacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// ExportConfig tunes schedule exports.
type ExportConfig struct {
	FontPath string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.RequestTimeout = parseDuration(v.GetString("REQUEST_TIMEOUT"), 2*time.Minute)

	cfg.Database = DatabaseConfig{
		Driver:       strings.ToLower(v.GetString("SNAPSHOT_DRIVER")),
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		SQLitePath:   v.GetString("SQLITE_PATH"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Enabled:    v.GetBool("API_AUTH_ENABLED"),
		Secret:     v.GetString("JWT_SECRET"),
		Issuer:     v.GetString("JWT_ISSUER"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Timetable = TimetableConfig{
		URL:             v.GetString("TIMETABLE_URL"),
		DefaultGroup:    v.GetString("TIMETABLE_GROUP"),
		ResultsSelector: v.GetString("RESULTS_SELECTOR"),
		SignInMarker:    v.GetString("SIGNIN_MARKER"),
		MaxAttempts:     v.GetInt("FETCH_MAX_ATTEMPTS"),
		RetryDelay:      parseDuration(v.GetString("FETCH_RETRY_DELAY"), 5*time.Second),
		AttemptTimeout:  parseDuration(v.GetString("FETCH_ATTEMPT_TIMEOUT"), 20*time.Second),
	}
	if cfg.Timetable.MaxAttempts < 1 {
		cfg.Timetable.MaxAttempts = 1
	}

	cfg.Browser = BrowserConfig{
		Headless: v.GetBool("BROWSER_HEADLESS"),
		PoolSize: v.GetInt("BROWSER_POOL_SIZE"),
		ExecPath: v.GetString("CHROME_PATH"),
	}

	cfg.Snapshot = SnapshotConfig{
		Driver: strings.ToLower(v.GetString("SNAPSHOT_DRIVER")),
		Path:   v.GetString("SNAPSHOT_PATH"),
		Scope:  v.GetString("SNAPSHOT_SCOPE"),
	}

	cfg.Cookies = CookieConfig{
		Path:       v.GetString("COOKIE_PATH"),
		Secret:     v.GetString("COOKIE_SECRET"),
		UseKeyring: v.GetBool("COOKIE_KEYRING"),
	}

	cfg.Calendar = CalendarConfig{
		ID:           v.GetString("CALENDAR_ID"),
		TimeZone:     v.GetString("CALENDAR_TIMEZONE"),
		Concurrency:  v.GetInt("SYNC_CONCURRENCY"),
		RemoteLabel:  v.GetString("CALENDAR_REMOTE_LABEL"),
		OnsiteLabel:  v.GetString("CALENDAR_ONSITE_LABEL"),
		RequestLimit: parseDuration(v.GetString("CALENDAR_CALL_TIMEOUT"), 15*time.Second),
	}

	cfg.SyncJobs = SyncJobsConfig{
		Enabled:    v.GetBool("ENABLE_SYNC_JOBS"),
		Workers:    v.GetInt("SYNC_WORKERS"),
		MaxRetries: v.GetInt("SYNC_JOB_RETRIES"),
		RetryDelay: parseDuration(v.GetString("SYNC_JOB_RETRY_DELAY"), 30*time.Second),
	}

	cfg.Cache = ScheduleCacheConfig{
		Enabled: v.GetBool("ENABLE_SCHEDULE_CACHE"),
		TTL:     parseDuration(v.GetString("SCHEDULE_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Export = ExportConfig{
		FontPath: v.GetString("EXPORT_FONT_PATH"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 5050)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("REQUEST_TIMEOUT", "2m")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "timetable")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("SQLITE_PATH", "./data/timetable.db")
	v.SetDefault("DB_MAX_OPEN_CONNS", 5)
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("API_AUTH_ENABLED", false)
	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "timetable-sync")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("TIMETABLE_URL", "https://desk.nuwm.edu.ua/cgi-bin/timetable.cgi")
	v.SetDefault("TIMETABLE_GROUP", "")
	v.SetDefault("RESULTS_SELECTOR", "div.col-md-6")
	v.SetDefault("SIGNIN_MARKER", "Будь ласка, увійдіть")
	v.SetDefault("FETCH_MAX_ATTEMPTS", 3)
	v.SetDefault("FETCH_RETRY_DELAY", "5s")
	v.SetDefault("FETCH_ATTEMPT_TIMEOUT", "20s")

	v.SetDefault("BROWSER_HEADLESS", true)
	v.SetDefault("BROWSER_POOL_SIZE", 1)
	v.SetDefault("CHROME_PATH", "")

	v.SetDefault("SNAPSHOT_DRIVER", SnapshotDriverFile)
	v.SetDefault("SNAPSHOT_PATH", "./data/schedule.json")
	v.SetDefault("SNAPSHOT_SCOPE", "default")

	v.SetDefault("COOKIE_PATH", "./data/cookies.json")
	v.SetDefault("COOKIE_SECRET", "")
	v.SetDefault("COOKIE_KEYRING", false)

	v.SetDefault("CALENDAR_ID", "primary")
	v.SetDefault("CALENDAR_TIMEZONE", "Europe/Kyiv")
	v.SetDefault("SYNC_CONCURRENCY", 4)
	v.SetDefault("CALENDAR_REMOTE_LABEL", "Дистанційно")
	v.SetDefault("CALENDAR_ONSITE_LABEL", "Аудиторно")
	v.SetDefault("CALENDAR_CALL_TIMEOUT", "15s")

	v.SetDefault("ENABLE_SYNC_JOBS", false)
	v.SetDefault("SYNC_WORKERS", 1)
	v.SetDefault("SYNC_JOB_RETRIES", 2)
	v.SetDefault("SYNC_JOB_RETRY_DELAY", "30s")

	v.SetDefault("ENABLE_SCHEDULE_CACHE", false)
	v.SetDefault("SCHEDULE_CACHE_TTL", "10m")

	v.SetDefault("EXPORT_FONT_PATH", "")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
