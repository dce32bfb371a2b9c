package utils

import (
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// logger.go - структурированное логирование на базе zap
//
// Формат: json (production) или text (консоль).
// Вывод: stdout, stderr или файл; для файла при MaxSizeMB > 0
// включается ротация через lumberjack.

// LogConfig - настройки логгера
type LogConfig struct {
	Level       string // debug, info, warn, error, fatal
	Format      string // json, text
	Output      string // stdout, stderr или путь к файлу
	Development bool

	// Ротация файла (только для файлового вывода)
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Logger - обертка над zap.Logger с доменными хелперами
type Logger struct {
	*zap.Logger
	sugar *zap.SugaredLogger
}

var (
	globalLogger *Logger
	globalMu     sync.RWMutex
)

// InitLogger создает логгер по конфигурации.
// Ошибка открытия файла не фатальна: логгер пишет в stderr.
func InitLogger(cfg LogConfig) *Logger {
	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout(time.RFC3339),
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if strings.ToLower(cfg.Format) == "text" {
		encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, openOutput(cfg), parseLevel(cfg.Level))

	opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.Development {
		opts = append(opts, zap.Development())
	}

	base := zap.New(core, opts...)
	return &Logger{
		Logger: base,
		sugar:  base.Sugar(),
	}
}

// openOutput выбирает writer для core
func openOutput(cfg LogConfig) zapcore.WriteSyncer {
	switch strings.ToLower(cfg.Output) {
	case "", "stdout":
		return zapcore.Lock(os.Stdout)
	case "stderr":
		return zapcore.Lock(os.Stderr)
	}

	if cfg.MaxSizeMB > 0 {
		return zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.Output,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		})
	}

	f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return zapcore.Lock(os.Stderr)
	}
	return zapcore.Lock(f)
}

// parseLevel переводит строку в уровень zap, по умолчанию info
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

// ============================================================
// Глобальный логгер
// ============================================================

// InitGlobalLogger создает логгер и делает его глобальным
func InitGlobalLogger(cfg LogConfig) *Logger {
	logger := InitLogger(cfg)
	SetGlobalLogger(logger)
	return logger
}

// SetGlobalLogger заменяет глобальный логгер
func SetGlobalLogger(logger *Logger) {
	globalMu.Lock()
	globalLogger = logger
	globalMu.Unlock()
}

// GetGlobalLogger возвращает глобальный логгер, создавая его при первом обращении
func GetGlobalLogger() *Logger {
	globalMu.RLock()
	logger := globalLogger
	globalMu.RUnlock()
	if logger != nil {
		return logger
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = InitLogger(LogConfig{Level: "info", Format: "json"})
	}
	return globalLogger
}

// L - короткий алиас GetGlobalLogger
func L() *Logger {
	return GetGlobalLogger()
}

// ============================================================
// Методы Logger
// ============================================================

// With возвращает дочерний логгер с дополнительными полями
func (l *Logger) With(fields ...zap.Field) *Logger {
	child := l.Logger.With(fields...)
	return &Logger{
		Logger: child,
		sugar:  child.Sugar(),
	}
}

// WithComponent помечает логгер именем компонента (service, repository, api)
func (l *Logger) WithComponent(name string) *Logger {
	return l.With(Component(name))
}

// WithSymbol помечает логгер символом underlying
func (l *Logger) WithSymbol(symbol string) *Logger {
	return l.With(Symbol(symbol))
}

// WithTradeID помечает логгер идентификатором сделки
func (l *Logger) WithTradeID(id string) *Logger {
	return l.With(TradeID(id))
}

// Sugar возвращает sugared логгер для printf-стиля
func (l *Logger) Sugar() *zap.SugaredLogger {
	return l.sugar
}

// ============================================================
// Глобальные функции логирования
// ============================================================

func Debug(msg string, fields ...zap.Field) { L().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { L().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { L().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { L().Error(msg, fields...) }

func Debugf(format string, args ...interface{}) { L().sugar.Debugf(format, args...) }
func Infof(format string, args ...interface{})  { L().sugar.Infof(format, args...) }
func Warnf(format string, args ...interface{})  { L().sugar.Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { L().sugar.Errorf(format, args...) }

// ============================================================
// Конструкторы полей
// ============================================================

func Symbol(symbol string) zap.Field        { return zap.String("symbol", symbol) }
func Level(level string) zap.Field          { return zap.String("level", level) }
func TradeID(id string) zap.Field           { return zap.String("trade_id", id) }
func PNL(pnl float64) zap.Field             { return zap.Float64("pnl", pnl) }
func Status(status string) zap.Field        { return zap.String("status", status) }
func Action(action string) zap.Field        { return zap.String("action", action) }
func Count(n int) zap.Field                 { return zap.Int("count", n) }
func Component(name string) zap.Field       { return zap.String("component", name) }
func RequestID(id string) zap.Field         { return zap.String("request_id", id) }
func Latency(d time.Duration) zap.Field     { return zap.Duration("latency_ms", d) }
func StatusCode(code int) zap.Field         { return zap.Int("status_code", code) }
func RemoteAddr(addr string) zap.Field      { return zap.String("remote_addr", addr) }
func Fields(keys []string) zap.Field        { return zap.Strings("fields", keys) }
func Reason(reason string) zap.Field        { return zap.String("reason", reason) }
func Route(template string) zap.Field       { return zap.String("route", template) }
func Method(method string) zap.Field        { return zap.String("method", method) }
func Attempt(attempt int) zap.Field         { return zap.Int("attempt", attempt) }
func Degraded(degraded bool) zap.Field      { return zap.Bool("degraded", degraded) }
func Path(path string) zap.Field            { return zap.String("path", path) }
func Outcome(outcome string) zap.Field      { return zap.String("outcome", outcome) }
func Address(addr string) zap.Field         { return zap.String("address", addr) }
func ClientCount(n int) zap.Field           { return zap.Int("clients", n) }
func MessageType(kind string) zap.Field     { return zap.String("message_type", kind) }
func Limit(limit int) zap.Field             { return zap.Int("limit", limit) }
func Panic(value interface{}) zap.Field     { return zap.Any("panic", value) }
func Env(env string) zap.Field              { return zap.String("env", env) }
func Username(name string) zap.Field        { return zap.String("username", name) }

// Field - поле структурированного лога
type Field = zap.Field

// Переэкспорт базовых конструкторов zap, чтобы пакеты не импортировали zap напрямую
var (
	String   = zap.String
	Strings  = zap.Strings
	Int64    = zap.Int64
	Bool     = zap.Bool
	Err      = zap.Error
	Duration = zap.Duration
)
