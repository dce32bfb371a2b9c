package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"condorledger/pkg/crypto"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Env        string
	Server     ServerConfig
	Database   DatabaseConfig
	Security   SecurityConfig
	Admin      AdminConfig
	Ledger     LedgerConfig
	Logging    LoggingConfig
	Partitions *PartitionTable
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Port            int
	Host            string
	UseHTTPS        bool
	CertFile        string
	KeyFile         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// DatabaseConfig - настройки подключения к БД
type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectRetries  int // попытки ping при старте
}

// SecurityConfig - настройки доступа к админке и webhook
type SecurityConfig struct {
	AdminUsername     string
	AdminPasswordHash string // bcrypt
	WebhookSecret     string
}

// AdminConfig - ограничение частоты админских запросов
type AdminConfig struct {
	RateLimit float64 // запросов в секунду
	RateBurst float64
}

// LedgerConfig - параметры чтения журнала
type LedgerConfig struct {
	DefaultTradesLimit int
	MaxTradesLimit     int
	DashboardLimit     int
	PartitionsFile     string
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level       string
	Format      string
	Output      string
	Development bool
	MaxSizeMB   int
	MaxBackups  int
	MaxAgeDays  int
}

// Load собирает конфигурацию из окружения.
// Нераспознанное значение переменной - ошибка, а не тихий возврат к умолчанию.
func Load() (*Config, error) {
	env := &envReader{}

	cfg := &Config{
		Env: env.str("APP_ENV", "production"),
		Server: ServerConfig{
			Port:            env.integer("SERVER_PORT", 8080),
			Host:            env.str("SERVER_HOST", "0.0.0.0"),
			UseHTTPS:        env.boolean("USE_HTTPS", false),
			CertFile:        env.str("CERT_FILE", ""),
			KeyFile:         env.str("KEY_FILE", ""),
			ReadTimeout:     env.duration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    env.duration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: env.duration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			AllowedOrigins:  env.list("CORS_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Driver:          env.str("DB_DRIVER", "postgres"),
			Host:            env.str("DB_HOST", "localhost"),
			Port:            env.integer("DB_PORT", 5432),
			Name:            env.str("DB_NAME", "trades"),
			User:            env.str("DB_USER", "postgres"),
			Password:        env.str("DB_PASSWORD", ""),
			SSLMode:         env.str("DB_SSL_MODE", "require"),
			MaxOpenConns:    env.integer("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    env.integer("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: env.duration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnectRetries:  env.integer("DB_CONNECT_RETRIES", 5),
		},
		Security: SecurityConfig{
			AdminUsername:     env.str("ADMIN_USERNAME", "admin"),
			AdminPasswordHash: env.str("ADMIN_PASSWORD_HASH", ""),
			WebhookSecret:     env.str("WEBHOOK_SECRET", ""),
		},
		Admin: AdminConfig{
			RateLimit: env.float("ADMIN_RATE_LIMIT", 2),
			RateBurst: env.float("ADMIN_RATE_BURST", 10),
		},
		Ledger: LedgerConfig{
			DefaultTradesLimit: env.integer("TRADES_DEFAULT_LIMIT", 50),
			MaxTradesLimit:     env.integer("TRADES_MAX_LIMIT", 500),
			DashboardLimit:     env.integer("DASHBOARD_TRADES_LIMIT", 10),
			PartitionsFile:     env.str("PARTITIONS_FILE", ""),
		},
		Logging: LoggingConfig{
			Level:       env.str("LOG_LEVEL", "info"),
			Format:      env.str("LOG_FORMAT", "json"),
			Output:      env.str("LOG_OUTPUT", "stdout"),
			Development: env.boolean("LOG_DEVELOPMENT", false),
			MaxSizeMB:   env.integer("LOG_MAX_SIZE_MB", 0),
			MaxBackups:  env.integer("LOG_MAX_BACKUPS", 5),
			MaxAgeDays:  env.integer("LOG_MAX_AGE_DAYS", 30),
		},
	}
	if err := env.err(); err != nil {
		return nil, err
	}

	partitions, err := LoadPartitions(cfg.Ledger.PartitionsFile)
	if err != nil {
		return nil, err
	}
	cfg.Partitions = partitions

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsDevelopment - локальный запуск без обязательных секретов
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

func (c *Config) validate() error {
	if !c.IsDevelopment() {
		if err := c.checkSecrets(); err != nil {
			return err
		}
	}
	return c.checkLimits()
}

// checkSecrets: без хеша админка закрыта (403), и это допустимо; неверный формат - нет
func (c *Config) checkSecrets() error {
	sec := c.Security
	switch {
	case sec.AdminPasswordHash != "" && !crypto.IsHash(sec.AdminPasswordHash):
		return errors.New("ADMIN_PASSWORD_HASH must be a bcrypt hash")
	case sec.WebhookSecret != "" && len(sec.WebhookSecret) < 16:
		return errors.New("WEBHOOK_SECRET must be at least 16 characters")
	case c.Server.UseHTTPS && (c.Server.CertFile == "" || c.Server.KeyFile == ""):
		return errors.New("CERT_FILE and KEY_FILE are required when USE_HTTPS is enabled")
	}
	return nil
}

func (c *Config) checkLimits() error {
	led := c.Ledger
	checks := []struct {
		ok  bool
		err string
	}{
		{validPort(c.Server.Port), fmt.Sprintf("SERVER_PORT %d is not a valid port", c.Server.Port)},
		{validPort(c.Database.Port), fmt.Sprintf("DB_PORT %d is not a valid port", c.Database.Port)},
		{c.Database.MaxOpenConns >= 1, fmt.Sprintf("DB_MAX_OPEN_CONNS must be positive, got %d", c.Database.MaxOpenConns)},
		{c.Database.ConnectRetries >= 1 && c.Database.ConnectRetries <= 20,
			fmt.Sprintf("DB_CONNECT_RETRIES must be in [1, 20], got %d", c.Database.ConnectRetries)},
		{led.DefaultTradesLimit >= 1, fmt.Sprintf("TRADES_DEFAULT_LIMIT must be positive, got %d", led.DefaultTradesLimit)},
		{led.MaxTradesLimit >= led.DefaultTradesLimit,
			fmt.Sprintf("TRADES_MAX_LIMIT %d is below TRADES_DEFAULT_LIMIT %d", led.MaxTradesLimit, led.DefaultTradesLimit)},
		{led.DashboardLimit >= 1 && led.DashboardLimit <= led.MaxTradesLimit,
			fmt.Sprintf("DASHBOARD_TRADES_LIMIT must be in [1, %d], got %d", led.MaxTradesLimit, led.DashboardLimit)},
		{c.Admin.RateLimit > 0, fmt.Sprintf("ADMIN_RATE_LIMIT must be positive, got %v", c.Admin.RateLimit)},
		{c.Server.ShutdownTimeout > 0, fmt.Sprintf("SERVER_SHUTDOWN_TIMEOUT must be positive, got %v", c.Server.ShutdownTimeout)},
	}
	for _, check := range checks {
		if !check.ok {
			return errors.New(check.err)
		}
	}
	return nil
}

func validPort(p int) bool { return p > 0 && p <= 65535 }

// DSN - строка подключения lib/pq в формате key=value
func (d DatabaseConfig) DSN() string {
	return d.dsn(true)
}

// DSNWithoutPassword - то же без пароля, для логов
func (d DatabaseConfig) DSNWithoutPassword() string {
	return d.dsn(false)
}

func (d DatabaseConfig) dsn(withPassword bool) string {
	parts := []string{
		"host=" + dsnValue(d.Host),
		"port=" + strconv.Itoa(d.Port),
		"user=" + dsnValue(d.User),
	}
	if withPassword {
		parts = append(parts, "password="+dsnValue(d.Password))
	}
	parts = append(parts, "dbname="+dsnValue(d.Name), "sslmode="+dsnValue(d.SSLMode))
	return strings.Join(parts, " ")
}

// dsnValue экранирует значение по правилам libpq: кавычки при пробелах, \\ и \'
func dsnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// envReader читает переменные окружения и копит ошибки разбора
type envReader struct {
	errs []error
}

func (e *envReader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func (e *envReader) integer(key string, def int) int {
	return parseEnv(e, key, def, strconv.Atoi)
}

func (e *envReader) float(key string, def float64) float64 {
	return parseEnv(e, key, def, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}

func (e *envReader) boolean(key string, def bool) bool {
	return parseEnv(e, key, def, strconv.ParseBool)
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	return parseEnv(e, key, def, time.ParseDuration)
}

// list - значения через запятую, пустые элементы отбрасываются
func (e *envReader) list(key string) []string {
	var out []string
	for _, part := range strings.Split(e.str(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (e *envReader) err() error {
	return errors.Join(e.errs...)
}

func parseEnv[T any](e *envReader, key string, def T, parse func(string) (T, error)) T {
	raw := strings.TrimSpace(e.str(key, ""))
	if raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: cannot parse %q", key, raw))
		return def
	}
	return v
}
