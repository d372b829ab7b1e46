package utils

// logger.go - структурированное логирование на zap
//
// Назначение:
// Единая инициализация логгера для всех компонентов сервиса.
//
// Функции:
// - InitLogger: создать логгер из LogConfig (уровень, формат, вывод)
// - InitGlobalLogger / GetGlobalLogger / L: глобальный логгер процесса
// - Конструкторы полей домена (Pair, Tf, PositionIDField, Price...)
//
// Форматы:
// - json: production (один JSON объект на строку)
// - text: console encoder для локальной разработки

import (
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig - конфигурация логгера
type LogConfig struct {
	Level       string // debug, info, warn, error, fatal
	Format      string // json, text
	Output      string // путь к файлу; пусто = stderr
	Development bool   // человекочитаемый вывод для разработки
}

// Logger - обертка над zap.Logger с sugared вариантом
type Logger struct {
	*zap.Logger
	sugar *zap.SugaredLogger
}

var (
	globalLogger *Logger
	globalMu     sync.RWMutex
)

// parseLevel преобразует строку уровня в zapcore.Level
// Неизвестный уровень трактуется как info
func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// InitLogger создает новый логгер по конфигурации
//
// При недоступном файле вывода откатывается на stderr, не паникует.
func InitLogger(cfg LogConfig) *Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if strings.ToLower(cfg.Format) == "text" {
		if cfg.Development {
			encoderCfg = zap.NewDevelopmentEncoderConfig()
		}
		encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	var sink zapcore.WriteSyncer = zapcore.AddSync(os.Stderr)
	if cfg.Output != "" {
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			sink = zapcore.AddSync(f)
		}
		// при ошибке остаемся на stderr
	}

	core := zapcore.NewCore(encoder, sink, parseLevel(cfg.Level))

	opts := []zap.Option{zap.AddCaller()}
	if cfg.Development {
		opts = append(opts, zap.Development())
	}

	zl := zap.New(core, opts...)
	return &Logger{Logger: zl, sugar: zl.Sugar()}
}

// InitGlobalLogger инициализирует и устанавливает глобальный логгер
func InitGlobalLogger(cfg LogConfig) *Logger {
	logger := InitLogger(cfg)
	SetGlobalLogger(logger)
	return logger
}

// SetGlobalLogger устанавливает глобальный логгер процесса
func SetGlobalLogger(logger *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = logger
}

// GetGlobalLogger возвращает глобальный логгер, создавая дефолтный при необходимости
func GetGlobalLogger() *Logger {
	globalMu.RLock()
	if globalLogger != nil {
		defer globalMu.RUnlock()
		return globalLogger
	}
	globalMu.RUnlock()

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = InitLogger(LogConfig{Level: "info", Format: "json"})
	}
	return globalLogger
}

// L - короткий алиас для GetGlobalLogger
func L() *Logger {
	return GetGlobalLogger()
}

// With возвращает новый логгер с добавленными полями
func (l *Logger) With(fields ...zap.Field) *Logger {
	zl := l.Logger.With(fields...)
	return &Logger{Logger: zl, sugar: zl.Sugar()}
}

// Sugar возвращает sugared логгер
func (l *Logger) Sugar() *zap.SugaredLogger {
	return l.sugar
}

// WithComponent возвращает логгер с полем component
func (l *Logger) WithComponent(name string) *Logger {
	return l.With(Component(name))
}

// WithPair возвращает логгер с полем pair
func (l *Logger) WithPair(pair string) *Logger {
	return l.With(Pair(pair))
}

// WithTimeframe возвращает логгер с полем tf
func (l *Logger) WithTimeframe(tf string) *Logger {
	return l.With(Tf(tf))
}

// WithPositionID возвращает логгер с полем position_id
func (l *Logger) WithPositionID(id string) *Logger {
	return l.With(PositionIDField(id))
}

// ============================================================
// Глобальные функции логирования
// ============================================================

// Debug логирует на уровне debug через глобальный логгер
func Debug(msg string, fields ...zap.Field) { GetGlobalLogger().Logger.Debug(msg, fields...) }

// Info логирует на уровне info через глобальный логгер
func Info(msg string, fields ...zap.Field) { GetGlobalLogger().Logger.Info(msg, fields...) }

// Warn логирует на уровне warn через глобальный логгер
func Warn(msg string, fields ...zap.Field) { GetGlobalLogger().Logger.Warn(msg, fields...) }

// Error логирует на уровне error через глобальный логгер
func Error(msg string, fields ...zap.Field) { GetGlobalLogger().Logger.Error(msg, fields...) }

// Fatal логирует и завершает процесс
func Fatal(msg string, fields ...zap.Field) { GetGlobalLogger().Logger.Fatal(msg, fields...) }

// Debugf - printf-стиль через sugared логгер
func Debugf(format string, args ...interface{}) { GetGlobalLogger().sugar.Debugf(format, args...) }

// Infof - printf-стиль через sugared логгер
func Infof(format string, args ...interface{}) { GetGlobalLogger().sugar.Infof(format, args...) }

// Warnf - printf-стиль через sugared логгер
func Warnf(format string, args ...interface{}) { GetGlobalLogger().sugar.Warnf(format, args...) }

// Errorf - printf-стиль через sugared логгер
func Errorf(format string, args ...interface{}) { GetGlobalLogger().sugar.Errorf(format, args...) }

// ============================================================
// Конструкторы полей домена
// ============================================================

// Pair - поле торговой пары (EURUSD)
func Pair(pair string) zap.Field { return zap.String("pair", pair) }

// Tf - поле таймфрейма (15m, 1h)
func Tf(tf string) zap.Field { return zap.String("tf", tf) }

// PositionIDField - поле идентификатора позиции
func PositionIDField(id string) zap.Field { return zap.String("position_id", id) }

// Price - поле цены
func Price(p float64) zap.Field { return zap.Float64("price", p) }

// Trail - поле уровня трейлинг-стопа
func Trail(p float64) zap.Field { return zap.Float64("trail", p) }

// Stop - поле уровня стопа
func Stop(p float64) zap.Field { return zap.Float64("stop", p) }

// Side - поле стороны позиции (LONG/SHORT)
func Side(side string) zap.Field { return zap.String("side", side) }

// Mode - поле режима входа (EARLY/CONFIRMED)
func Mode(mode string) zap.Field { return zap.String("mode", mode) }

// Watermark - поле водяного знака синхронизации
func Watermark(ts time.Time) zap.Field { return zap.Time("watermark", ts) }

// BarsWritten - поле количества записанных свечей
func BarsWritten(n int) zap.Field { return zap.Int("bars_written", n) }

// Component - поле имени компонента
func Component(name string) zap.Field { return zap.String("component", name) }

// RequestID - поле идентификатора запроса
func RequestID(id string) zap.Field { return zap.String("request_id", id) }

// ============================================================
// Переэкспорт стандартных конструкторов zap
// ============================================================

// String - переэкспорт zap.String
func String(key, value string) zap.Field { return zap.String(key, value) }

// Int - переэкспорт zap.Int
func Int(key string, value int) zap.Field { return zap.Int(key, value) }

// Int64 - переэкспорт zap.Int64
func Int64(key string, value int64) zap.Field { return zap.Int64(key, value) }

// Float64 - переэкспорт zap.Float64
func Float64(key string, value float64) zap.Field { return zap.Float64(key, value) }

// Bool - переэкспорт zap.Bool
func Bool(key string, value bool) zap.Field { return zap.Bool(key, value) }

// Time - переэкспорт zap.Time
func Time(key string, value time.Time) zap.Field { return zap.Time(key, value) }

// Err - переэкспорт zap.Error
func Err(err error) zap.Field { return zap.Error(err) }

// Any - переэкспорт zap.Any
func Any(key string, value interface{}) zap.Field { return zap.Any(key, value) }
