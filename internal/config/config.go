package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション設定を表す
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Booking  BookingConfig
	Worker   WorkerConfig
	Metrics  MetricsConfig
}

// AppConfig は実行環境の設定
type AppConfig struct {
	Env            string
	MigrationsPath string
	AutoMigrate    bool
}

// ServerConfig はサーバー設定
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig はデータベース設定
type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	// LockTimeout は施設ロック待ちの上限（lock_timeout）
	LockTimeout time.Duration
}

// RedisConfig はRedis設定
// Enabled が false の場合は分散ロックとキャッシュを使わず DB のみで動作する
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

// BookingConfig は予約処理の設定
type BookingConfig struct {
	// TimeZone は利用可能時間帯・日付・月間上限を解釈するタイムゾーン
	TimeZone            string
	DefaultSlotDuration time.Duration
	LockTTL             time.Duration
	LockRetries         int
	LockRetryDelay      time.Duration
	SlotCacheTTL        time.Duration
}

// WorkerConfig はアウトボックス配信ワーカーの設定
type WorkerConfig struct {
	OutboxEnabled   bool
	OutboxInterval  time.Duration
	OutboxBatchSize int
	EventsChannel   string
}

// MetricsConfig は /metrics の Basic 認証設定
type MetricsConfig struct {
	User     string
	Password string
}

// IsEnabled は認証が有効かどうかを返す
func (c *MetricsConfig) IsEnabled() bool {
	return c.User != "" && c.Password != ""
}

// LoadEnvFile は .env ファイルがあれば環境変数に読み込む
// 既に設定済みの環境変数は上書きしない
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	existing := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// Load は環境変数から設定を読み込む
func Load() *Config {
	cfg := &Config{
		App: AppConfig{
			Env:            getEnv("APP_ENV", "development"),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
			AutoMigrate:    getBoolEnv("AUTO_MIGRATE", true),
		},
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5433"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			DBName:       getEnv("DB_NAME", "amenity_reservation"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getIntEnv("DB_MAX_IDLE_CONNS", 5),
			LockTimeout:  getDurationEnv("DB_LOCK_TIMEOUT", 3*time.Second),
		},
		Redis: RedisConfig{
			Enabled:  getBoolEnv("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Booking: BookingConfig{
			TimeZone:            getEnv("BOOKING_TIMEZONE", "UTC"),
			DefaultSlotDuration: getDurationEnv("BOOKING_SLOT_DURATION", time.Hour),
			LockTTL:             getDurationEnv("BOOKING_LOCK_TTL", 10*time.Second),
			LockRetries:         getIntEnv("BOOKING_LOCK_RETRIES", 3),
			LockRetryDelay:      getDurationEnv("BOOKING_LOCK_RETRY_DELAY", 100*time.Millisecond),
			SlotCacheTTL:        getDurationEnv("BOOKING_SLOT_CACHE_TTL", 30*time.Second),
		},
		Worker: WorkerConfig{
			OutboxEnabled:   getBoolEnv("OUTBOX_ENABLED", true),
			OutboxInterval:  getDurationEnv("OUTBOX_INTERVAL", 2*time.Second),
			OutboxBatchSize: getIntEnv("OUTBOX_BATCH_SIZE", 100),
			EventsChannel:   getEnv("EVENTS_CHANNEL", "reservation-events"),
		},
		Metrics: MetricsConfig{
			User:     getEnv("METRICS_USER", ""),
			Password: getEnv("METRICS_PASSWORD", ""),
		},
	}

	// PaaS 形式の接続URLが設定されていれば個別設定より優先する
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		applyDatabaseURL(&cfg.Database, dsn)
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		applyRedisURL(&cfg.Redis, redisURL)
	}
	return cfg
}

// Location は予約タイムゾーンを返す
func (c *BookingConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("タイムゾーン %q を読み込めません: %w", c.TimeZone, err)
	}
	return loc, nil
}

// DSN はPostgreSQL接続文字列を返す
func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" port=" + c.Port +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.DBName +
		" sslmode=" + c.SSLMode
}

// Addr はサーバーの待ち受けアドレスを返す
func (c *ServerConfig) Addr() string {
	return ":" + c.Port
}

// Addr はRedis接続アドレスを返す
func (c *RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

func applyDatabaseURL(c *DatabaseConfig, raw string) {
	u, err := url.Parse(raw)
	if err != nil {
		return
	}
	c.Host = u.Hostname()
	if p := u.Port(); p != "" {
		c.Port = p
	}
	if u.User != nil {
		c.User = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			c.Password = pw
		}
	}
	c.DBName = strings.TrimPrefix(u.Path, "/")
	c.SSLMode = u.Query().Get("sslmode")
	if c.SSLMode == "" {
		c.SSLMode = "require"
	}
}

func applyRedisURL(c *RedisConfig, raw string) {
	u, err := url.Parse(raw)
	if err != nil {
		return
	}
	c.Host = u.Hostname()
	if p := u.Port(); p != "" {
		c.Port = p
	}
	if u.User != nil {
		if pw, ok := u.User.Password(); ok {
			c.Password = pw
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
