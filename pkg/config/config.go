package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Sweeper       SweeperConfig
	AutoExpire    AutoExpireConfig
	Notifications NotificationsConfig
	OTP           OTPConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
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
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SweeperConfig tunes the overdue dose sweeper. The sweeper runs on
// BaseInterval around the clock and on the denser ActiveInterval inside the
// ActiveHours window.
type SweeperConfig struct {
	Enabled          bool
	ThresholdMinutes int
	BaseInterval     time.Duration
	ActiveInterval   time.Duration
	ActiveHoursStart string
	ActiveHoursEnd   string
}

// AutoExpireConfig governs automatic rejection of stale pending requests.
type AutoExpireConfig struct {
	Enabled  bool
	MaxAge   time.Duration
	Interval time.Duration
}

// NotificationsConfig sizes the asynchronous dispatch queue.
// StockAlertRecipient is the user who receives low-stock alerts; empty
// disables them.
type NotificationsConfig struct {
	Workers             int
	BufferSize          int
	MaxRetries          int
	RetryDelay          time.Duration
	StockAlertRecipient string
}

// OTPConfig controls password-reset one-time codes.
type OTPConfig struct {
	TTL    time.Duration
	Length int
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
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
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	activeStart, activeEnd := parseHoursWindow(v.GetString("SWEEPER_ACTIVE_HOURS"), "07:00", "18:00")
	cfg.Sweeper = SweeperConfig{
		Enabled:          v.GetBool("ENABLE_SWEEPER"),
		ThresholdMinutes: v.GetInt("SWEEPER_THRESHOLD_MINUTES"),
		BaseInterval:     parseDuration(v.GetString("SWEEPER_BASE_INTERVAL"), 30*time.Minute),
		ActiveInterval:   parseDuration(v.GetString("SWEEPER_ACTIVE_INTERVAL"), 5*time.Minute),
		ActiveHoursStart: activeStart,
		ActiveHoursEnd:   activeEnd,
	}

	cfg.AutoExpire = AutoExpireConfig{
		Enabled:  v.GetBool("ENABLE_AUTO_EXPIRE"),
		MaxAge:   parseDuration(v.GetString("REQUEST_AUTO_EXPIRE_AGE"), 24*time.Hour),
		Interval: parseDuration(v.GetString("AUTO_EXPIRE_INTERVAL"), time.Hour),
	}

	cfg.Notifications = NotificationsConfig{
		Workers:             v.GetInt("NOTIFICATION_WORKERS"),
		BufferSize:          v.GetInt("NOTIFICATION_BUFFER_SIZE"),
		MaxRetries:          v.GetInt("NOTIFICATION_MAX_RETRIES"),
		RetryDelay:          parseDuration(v.GetString("NOTIFICATION_RETRY_DELAY"), 2*time.Second),
		StockAlertRecipient: v.GetString("STOCK_ALERT_RECIPIENT"),
	}

	cfg.OTP = OTPConfig{
		TTL:    parseDuration(v.GetString("OTP_TTL"), 5*time.Minute),
		Length: v.GetInt("OTP_LENGTH"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "medtrack")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_SWEEPER", true)
	v.SetDefault("SWEEPER_THRESHOLD_MINUTES", 30)
	v.SetDefault("SWEEPER_BASE_INTERVAL", "30m")
	v.SetDefault("SWEEPER_ACTIVE_INTERVAL", "5m")
	v.SetDefault("SWEEPER_ACTIVE_HOURS", "07:00-18:00")

	v.SetDefault("ENABLE_AUTO_EXPIRE", true)
	v.SetDefault("REQUEST_AUTO_EXPIRE_AGE", "24h")
	v.SetDefault("AUTO_EXPIRE_INTERVAL", "1h")

	v.SetDefault("NOTIFICATION_WORKERS", 2)
	v.SetDefault("NOTIFICATION_BUFFER_SIZE", 64)
	v.SetDefault("NOTIFICATION_MAX_RETRIES", 3)
	v.SetDefault("NOTIFICATION_RETRY_DELAY", "2s")
	v.SetDefault("STOCK_ALERT_RECIPIENT", "")

	v.SetDefault("OTP_TTL", "5m")
	v.SetDefault("OTP_LENGTH", 6)
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

// parseHoursWindow splits a "HH:MM-HH:MM" window, falling back when malformed.
func parseHoursWindow(raw, fallbackStart, fallbackEnd string) (string, string) {
	parts := strings.SplitN(raw, "-", 2)
	if len(parts) != 2 {
		return fallbackStart, fallbackEnd
	}
	start := strings.TrimSpace(parts[0])
	end := strings.TrimSpace(parts[1])
	if len(start) != 5 || len(end) != 5 {
		return fallbackStart, fallbackEnd
	}
	return start, end
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
