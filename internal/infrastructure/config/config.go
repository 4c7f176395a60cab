package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Server       ServerConfig       `mapstructure:"server"`
	Log          LogConfig          `mapstructure:"log"`
	Catalog      CatalogConfig      `mapstructure:"catalog"`
	Matching     MatchingConfig     `mapstructure:"matching"`
	Conversation ConversationConfig `mapstructure:"conversation"`
	Session      SessionConfig      `mapstructure:"session"`
	OrderLog     OrderLogConfig     `mapstructure:"order_log"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	DedupWindow  time.Duration      `mapstructure:"dedup_window"`
	LogLevel     string             `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
}

// LogConfig 日誌檔案設定
type LogConfig struct {
	Mode       string `mapstructure:"mode"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// CatalogConfig 菜單與配送區域來源
type CatalogConfig struct {
	MenuSource      string        `mapstructure:"menu_source"`
	DistrictsSource string        `mapstructure:"districts_source"`
	VariantsFile    string        `mapstructure:"variants_file"`
	MaxAge          time.Duration `mapstructure:"max_age"`
	HTTPTimeout     time.Duration `mapstructure:"http_timeout"`
}

// MatchingConfig 模糊比對設定
type MatchingConfig struct {
	Scorer    string `mapstructure:"scorer"`
	Threshold int    `mapstructure:"threshold"`
}

// ConversationConfig 對話流程設定
type ConversationConfig struct {
	Flow       string `mapstructure:"flow"`
	MaxHistory int    `mapstructure:"max_history"`
}

// SessionConfig 對話狀態儲存設定
type SessionConfig struct {
	Store       string        `mapstructure:"store"`
	TTL         time.Duration `mapstructure:"ttl"`
	MaxSessions int           `mapstructure:"max_sessions"`
	Redis       RedisConfig   `mapstructure:"redis"`
}

// RedisConfig Redis 連線設定
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// OrderLogConfig 訂單紀錄設定
type OrderLogConfig struct {
	Sink        string `mapstructure:"sink"`
	CSVPath     string `mapstructure:"csv_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
	Workers     int    `mapstructure:"workers"`
	QueueSize   int    `mapstructure:"queue_size"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// .env 不存在時只使用環境變數與預設值
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	// 設定環境變數前綴
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定環境變量
	bindings := map[string]string{
		"server.port":                "PORT",
		"log_level":                  "LOG_LEVEL",
		"log.mode":                   "LOG_MODE",
		"log.file":                   "LOG_FILE",
		"catalog.menu_source":        "MENU_SOURCE",
		"catalog.districts_source":   "DISTRICTS_SOURCE",
		"catalog.variants_file":      "VARIANTS_FILE",
		"matching.scorer":            "MATCHING_SCORER",
		"matching.threshold":         "MATCHING_THRESHOLD",
		"conversation.flow":          "CONVERSATION_FLOW",
		"session.store":              "SESSION_STORE",
		"session.ttl":                "SESSION_TTL",
		"session.redis.addr":         "REDIS_ADDR",
		"session.redis.password":     "REDIS_PASSWORD",
		"session.redis.db":           "REDIS_DB",
		"order_log.sink":             "ORDER_LOG_SINK",
		"order_log.csv_path":         "ORDER_LOG_CSV",
		"order_log.postgres_dsn":     "POSTGRES_DSN",
		"rate_limit.enabled":         "RATE_LIMIT_ENABLED",
		"rate_limit.requests":        "RATE_LIMIT_REQUESTS",
		"rate_limit.window":          "RATE_LIMIT_WINDOW",
		"dedup_window":               "DEDUP_WINDOW",
		"conversation.max_history":   "CONVERSATION_MAX_HISTORY",
		"session.max_sessions":       "SESSION_MAX_SESSIONS",
		"catalog.max_age":            "CATALOG_MAX_AGE",
		"order_log.workers":          "ORDER_LOG_WORKERS",
		"order_log.queue_size":       "ORDER_LOG_QUEUE_SIZE",
		"server.request_timeout":     "REQUEST_TIMEOUT",
		"session.redis.key_prefix":   "REDIS_KEY_PREFIX",
		"catalog.http_timeout":       "CATALOG_HTTP_TIMEOUT",
		"app.env":                    "APP_ENV",
		"app.debug":                  "APP_DEBUG",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	// 設定設定檔名稱和路徑
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	// 讀取設定檔
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyScorerDefaults(&config)

	// 驗證必要設定
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "sazonbot")
	v.SetDefault("log_level", "info")

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "10s")
	v.SetDefault("server.max_body_bytes", 64<<10)

	// 日誌設定
	v.SetDefault("log.mode", "")
	v.SetDefault("log.file", "logs/app.log")
	v.SetDefault("log.max_size_mb", 32)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 14)

	// 菜單設定
	v.SetDefault("catalog.menu_source", "data/carta.csv")
	v.SetDefault("catalog.districts_source", "data/distritos.csv")
	v.SetDefault("catalog.variants_file", "")
	v.SetDefault("catalog.max_age", "0s")
	v.SetDefault("catalog.http_timeout", "10s")

	// 比對設定，threshold 0 代表依 scorer 取預設值
	v.SetDefault("matching.scorer", "token_set")
	v.SetDefault("matching.threshold", 0)

	// 對話設定
	v.SetDefault("conversation.flow", "order_first")
	v.SetDefault("conversation.max_history", 50)

	// 對話狀態設定
	v.SetDefault("session.store", "memory")
	v.SetDefault("session.ttl", "2h")
	v.SetDefault("session.max_sessions", 10000)
	v.SetDefault("session.redis.addr", "localhost:6379")
	v.SetDefault("session.redis.db", 0)
	v.SetDefault("session.redis.key_prefix", "sazonbot:session:")

	// 訂單紀錄設定
	v.SetDefault("order_log.sink", "csv")
	v.SetDefault("order_log.csv_path", "orders.csv")
	v.SetDefault("order_log.workers", 2)
	v.SetDefault("order_log.queue_size", 100)

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("dedup_window", "1s")
}

// DefaultThreshold 每種 scorer 搭配的門檻值
func DefaultThreshold(scorer string) int {
	if scorer == "partial_ratio" {
		return 75
	}
	return 65
}

func applyScorerDefaults(config *Config) {
	config.Matching.Scorer = strings.ToLower(strings.TrimSpace(config.Matching.Scorer))
	if config.Matching.Threshold == 0 {
		config.Matching.Threshold = DefaultThreshold(config.Matching.Scorer)
	}
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 {
		return fmt.Errorf("server port is required")
	}

	switch config.Matching.Scorer {
	case "token_set", "partial_ratio":
	default:
		return fmt.Errorf("unknown matching scorer %q", config.Matching.Scorer)
	}
	if config.Matching.Threshold < 0 || config.Matching.Threshold >= 100 {
		return fmt.Errorf("matching threshold must be in [0,100)")
	}

	switch config.Conversation.Flow {
	case "order_first", "district_first":
	default:
		return fmt.Errorf("unknown conversation flow %q", config.Conversation.Flow)
	}

	switch config.Session.Store {
	case "memory":
		if config.Session.MaxSessions <= 0 {
			return fmt.Errorf("invalid session max sessions")
		}
	case "redis":
		if config.Session.Redis.Addr == "" {
			return fmt.Errorf("redis addr is required for redis session store")
		}
	default:
		return fmt.Errorf("unknown session store %q", config.Session.Store)
	}
	if config.Session.TTL <= 0 {
		return fmt.Errorf("invalid session ttl")
	}

	switch config.OrderLog.Sink {
	case "csv":
		if config.OrderLog.CSVPath == "" {
			return fmt.Errorf("order log csv path is required")
		}
	case "postgres":
		if config.OrderLog.PostgresDSN == "" {
			return fmt.Errorf("postgres dsn is required for postgres order log")
		}
	case "none":
	default:
		return fmt.Errorf("unknown order log sink %q", config.OrderLog.Sink)
	}
	if config.OrderLog.Workers <= 0 || config.OrderLog.QueueSize <= 0 {
		return fmt.Errorf("invalid order log queue settings")
	}

	if config.RateLimit.Enabled && (config.RateLimit.Requests <= 0 || config.RateLimit.Window <= 0) {
		return fmt.Errorf("invalid rate limit settings")
	}

	return nil
}
