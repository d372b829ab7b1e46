package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Polygon  PolygonConfig
	Telegram TelegramConfig
	Strategy StrategyConfig
	Engine   EngineConfig
	Logging  LoggingConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Port     int
	Host     string
	UseHTTPS bool
	CertFile string
	KeyFile  string
}

// DatabaseConfig - настройки подключения к БД
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// PolygonConfig - настройки поставщика рыночных данных
type PolygonConfig struct {
	BaseURL      string
	APIKey       string
	Timeout      time.Duration // таймаут одного HTTP запроса
	RateLimit    float64       // упреждающая дозировка, запросов/сек
	RateBurst    float64
	PageSize     int // limit для пагинации aggregates
	MaxPages     int // предохранитель от бесконечной пагинации
}

// TelegramConfig - настройки уведомлений
type TelegramConfig struct {
	BotToken string
	ChatID   string
	Timeout  time.Duration
	Enabled  bool // false = уведомления только в журнал и WebSocket
}

// StrategyConfig - настройки внешнего сервиса входных сигналов
type StrategyConfig struct {
	BaseURL string
	Timeout time.Duration
}

// EngineConfig - настройки синхронизатора и риск-движка
type EngineConfig struct {
	// Вселенная пар по умолчанию (переопределяется в запросе)
	Pairs []string

	// Кэш свечей
	Retention15m      int           // хранить N последних 15m свечей
	Retention1h       int           // хранить N последних 1h свечей
	Bootstrap15m      time.Duration // глубина первичной загрузки 15m
	Bootstrap1h       time.Duration // глубина первичной загрузки 1h
	BackfillTarget15m int           // целевая глубина фонового дозаполнения
	BackfillTarget1h  int

	// Окна для стратегии
	Payload15m int // сколько 15m свечей отправлять стратегии
	Payload1h  int

	// Параметры трейлинга (поздняя ревизия бэктеста)
	FractalK          int
	ATRLength         int
	SwingATRMinK      float64 // минимальная значимость нового свинга, доли ATR
	StructPadATR      float64 // отступ структурного уровня от свинга, доли ATR
	FloorATREarly     float64 // ATR-floor для EARLY входов
	FloorATRConfirmed float64 // ATR-floor для CONFIRMED входов
	ActivateEarly     float64 // порог взведения трейла, R
	ActivateConfirmed float64
	MinTrailDelta     float64 // порог уведомления о сдвиге трейла

	// Режимы прогона
	DataOnly     bool // только синхронизация кэша, без стратегии и позиций
	AlignTo15m   bool // пропускать прогоны вне границы 15m свечи
	FetchTimeout time.Duration

	// Real-time guard (закрытие по котировкам между свечами)
	GuardEnabled  bool
	GuardInterval time.Duration
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level  string
	Format string
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:     getEnvAsInt("SERVER_PORT", 8080),
			Host:     getEnv("SERVER_HOST", "0.0.0.0"),
			UseHTTPS: getEnvAsBool("USE_HTTPS", false),
			CertFile: getEnv("CERT_FILE", ""),
			KeyFile:  getEnv("KEY_FILE", ""),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "orion"),
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			SSLMode:  getEnv("DB_SSL_MODE", "require"),
		},
		Polygon: PolygonConfig{
			BaseURL:   getEnv("POLYGON_BASE_URL", "https://api.polygon.io"),
			APIKey:    getEnv("POLYGON_API_KEY", ""),
			Timeout:   getEnvAsDuration("POLYGON_TIMEOUT", 30*time.Second),
			RateLimit: getEnvAsFloat("POLYGON_RATE_LIMIT", 4),
			RateBurst: getEnvAsFloat("POLYGON_RATE_BURST", 8),
			PageSize:  getEnvAsInt("POLYGON_PAGE_SIZE", 5000),
			MaxPages:  getEnvAsInt("POLYGON_MAX_PAGES", 50),
		},
		Telegram: TelegramConfig{
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			ChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
			Timeout:  getEnvAsDuration("TELEGRAM_TIMEOUT", 20*time.Second),
			Enabled:  getEnvAsBool("TELEGRAM_ENABLED", true),
		},
		Strategy: StrategyConfig{
			BaseURL: getEnv("STRATEGY_BASE_URL", "http://orion-strategies:8000"),
			Timeout: getEnvAsDuration("STRATEGY_TIMEOUT", 20*time.Second),
		},
		Engine: EngineConfig{
			Pairs: getEnvAsList("PAIRS", []string{"EURUSD", "GBPUSD", "USDJPY"}),

			Retention15m:      getEnvAsInt("RETENTION_15M", 1000),
			Retention1h:       getEnvAsInt("RETENTION_1H", 500),
			Bootstrap15m:      getEnvAsDuration("BOOTSTRAP_15M", 8*24*time.Hour),
			Bootstrap1h:       getEnvAsDuration("BOOTSTRAP_1H", 14*24*time.Hour),
			BackfillTarget15m: getEnvAsInt("BACKFILL_TARGET_15M", 1000),
			BackfillTarget1h:  getEnvAsInt("BACKFILL_TARGET_1H", 500),

			Payload15m: getEnvAsInt("PAYLOAD_15M", 400),
			Payload1h:  getEnvAsInt("PAYLOAD_1H", 200),

			FractalK:          getEnvAsInt("FRACTAL_K", 2),
			ATRLength:         getEnvAsInt("ATR_LENGTH", 14),
			SwingATRMinK:      getEnvAsFloat("SWING_ATR_MIN_K", 0.35),
			StructPadATR:      getEnvAsFloat("STRUCT_PAD_ATR", 0.05),
			FloorATREarly:     getEnvAsFloat("FLOOR_ATR_EARLY", 1.35),
			FloorATRConfirmed: getEnvAsFloat("FLOOR_ATR_CONFIRMED", 1.20),
			ActivateEarly:     getEnvAsFloat("TRAIL_ACTIVATE_EARLY", 0.90),
			ActivateConfirmed: getEnvAsFloat("TRAIL_ACTIVATE_CONFIRMED", 0.70),
			MinTrailDelta:     getEnvAsFloat("MIN_TRAIL_DELTA", 0.00005),

			DataOnly:     getEnvAsBool("DATA_ONLY", false),
			AlignTo15m:   getEnvAsBool("ALIGN_TO_15M", true),
			FetchTimeout: getEnvAsDuration("FETCH_TIMEOUT", 60*time.Second),

			GuardEnabled:  getEnvAsBool("GUARD_ENABLED", false),
			GuardInterval: getEnvAsDuration("GUARD_INTERVAL", 5*time.Minute),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate проверяет диапазоны и обязательные параметры
func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Database.Port)
	}

	if len(c.Engine.Pairs) == 0 {
		return fmt.Errorf("PAIRS must contain at least one pair")
	}

	if c.Engine.FractalK < 1 {
		return fmt.Errorf("FRACTAL_K must be at least 1, got %d", c.Engine.FractalK)
	}

	if c.Engine.ATRLength < 1 {
		return fmt.Errorf("ATR_LENGTH must be at least 1, got %d", c.Engine.ATRLength)
	}

	if c.Engine.ActivateEarly <= 0 || c.Engine.ActivateConfirmed <= 0 {
		return fmt.Errorf("trail activation thresholds must be positive")
	}

	// Retention не может быть меньше окна стратегии - иначе после trim не
	// хватит истории для payload
	if c.Engine.Retention15m < c.Engine.Payload15m {
		return fmt.Errorf("RETENTION_15M (%d) must be >= PAYLOAD_15M (%d)",
			c.Engine.Retention15m, c.Engine.Payload15m)
	}
	if c.Engine.Retention1h < c.Engine.Payload1h {
		return fmt.Errorf("RETENTION_1H (%d) must be >= PAYLOAD_1H (%d)",
			c.Engine.Retention1h, c.Engine.Payload1h)
	}

	if c.Engine.GuardEnabled && c.Engine.GuardInterval < time.Second {
		return fmt.Errorf("GUARD_INTERVAL must be at least 1s, got %v", c.Engine.GuardInterval)
	}

	return nil
}

// DSN возвращает строку подключения к базе данных
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// DSNWithoutPassword возвращает строку подключения без пароля (для логирования)
func (d DatabaseConfig) DSNWithoutPassword() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList читает список через запятую: "EURUSD,GBPUSD"
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
