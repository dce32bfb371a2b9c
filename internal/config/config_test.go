package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Ledger.DefaultTradesLimit != 50 || cfg.Ledger.MaxTradesLimit != 500 {
		t.Errorf("unexpected ledger limits: %+v", cfg.Ledger)
	}
	if cfg.Security.AdminUsername != "admin" {
		t.Errorf("AdminUsername = %q", cfg.Security.AdminUsername)
	}
	if _, err := cfg.Partitions.Lookup("SPXW"); err != nil {
		t.Errorf("default partitions not loaded: %v", err)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_NAME", "ledger")
	t.Setenv("SERVER_SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("ADMIN_RATE_LIMIT", "0.5")
	t.Setenv("LOG_DEVELOPMENT", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.Database.Name != "ledger" {
		t.Errorf("Database.Name = %q", cfg.Database.Name)
	}
	if cfg.Server.ShutdownTimeout != 3*time.Second {
		t.Errorf("ShutdownTimeout = %v", cfg.Server.ShutdownTimeout)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Admin.RateLimit != 0.5 {
		t.Errorf("RateLimit = %v", cfg.Admin.RateLimit)
	}
	if !cfg.Logging.Development {
		t.Error("Logging.Development should be true")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"port out of range", map[string]string{"SERVER_PORT": "70000"}, "SERVER_PORT"},
		{"max below default", map[string]string{"TRADES_MAX_LIMIT": "10"}, "TRADES_MAX_LIMIT"},
		{"dashboard limit", map[string]string{"DASHBOARD_TRADES_LIMIT": "0"}, "DASHBOARD_TRADES_LIMIT"},
		{"plain password", map[string]string{"ADMIN_PASSWORD_HASH": "secret"}, "bcrypt"},
		{"short webhook secret", map[string]string{"WEBHOOK_SECRET": "abc"}, "WEBHOOK_SECRET"},
		{"https without cert", map[string]string{"USE_HTTPS": "true"}, "CERT_FILE"},
		{"missing partitions file", map[string]string{"PARTITIONS_FILE": "/nonexistent/partitions.yaml"}, "partitions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_DevelopmentSkipsSecurityChecks(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("ADMIN_PASSWORD_HASH", "plain")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.IsDevelopment() {
		t.Error("IsDevelopment() should be true")
	}
}

func TestDSNWithoutPassword(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p@ss", Name: "trades", SSLMode: "require"}

	if !strings.Contains(db.DSN(), "password=p@ss") {
		t.Errorf("DSN() must contain password: %s", db.DSN())
	}
	if strings.Contains(db.DSNWithoutPassword(), "p@ss") {
		t.Errorf("DSNWithoutPassword() leaks password: %s", db.DSNWithoutPassword())
	}
}

func TestLoad_MalformedValuesAreReported(t *testing.T) {
	t.Setenv("SERVER_PORT", "80a")
	t.Setenv("DB_CONN_MAX_LIFETIME", "half an hour")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, key := range []string{"SERVER_PORT", "DB_CONN_MAX_LIFETIME"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error %q does not mention %s", err, key)
		}
	}
}

func TestDSN_QuotesSpecialValues(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: `it's a pass`, Name: "trades", SSLMode: "disable"}

	want := `host=db port=5432 user=u password='it\'s a pass' dbname=trades sslmode=disable`
	if got := db.DSN(); got != want {
		t.Errorf("DSN() = %s, want %s", got, want)
	}
}
