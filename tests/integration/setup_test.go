//go:build integration

// Package integration содержит интеграционные тесты журнала сделок.
//
// Тесты проходят полный цикл: HTTP -> сервисы -> репозитории -> PostgreSQL.
// Без доступной БД тесты пропускаются.
//
// Запуск: go test -tags=integration ./tests/integration/...
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"condorledger/internal/api"
	"condorledger/internal/api/middleware"
	"condorledger/internal/config"
	"condorledger/internal/repository"
	"condorledger/internal/service"
	"condorledger/internal/websocket"
	"condorledger/pkg/crypto"
)

// Учетные данные тестового сервера
const (
	adminUser     = "operator"
	adminPassword = "integration-password"
	webhookSecret = "integration-webhook-secret"
)

// TestServer - все компоненты для интеграционного теста
type TestServer struct {
	DB         *sql.DB
	Server     *httptest.Server
	Hub        *websocket.Hub
	Partitions *config.PartitionTable
	Trades     *repository.TradeRepository
	Configs    *repository.BotConfigRepository
	Cleanup    func()
}

// getEnv возвращает значение переменной окружения или значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func testDatabaseConfig() config.DatabaseConfig {
	port, err := strconv.Atoi(getEnv("TEST_DB_PORT", "5432"))
	if err != nil {
		port = 5432
	}
	return config.DatabaseConfig{
		Driver:          "postgres",
		Host:            getEnv("TEST_DB_HOST", "localhost"),
		Port:            port,
		Name:            getEnv("TEST_DB_NAME", "condorledger_test"),
		User:            getEnv("TEST_DB_USER", "postgres"),
		Password:        getEnv("TEST_DB_PASSWORD", "postgres"),
		SSLMode:         getEnv("TEST_DB_SSLMODE", "disable"),
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
		ConnectRetries:  1,
	}
}

// SetupTestDB подключается к тестовой БД или пропускает тест
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := repository.OpenDatabase(ctx, testDatabaseConfig())
	if err != nil {
		t.Skipf("Skipping integration test: %v", err)
	}
	return db
}

// SetupTestServer собирает сервер так же, как cmd/server
func SetupTestServer(t *testing.T) *TestServer {
	t.Helper()

	db := SetupTestDB(t)

	partitions, err := config.NewPartitionTable(config.DefaultPartitions())
	if err != nil {
		t.Fatalf("partitions: %v", err)
	}

	if err := initTestTables(db, partitions); err != nil {
		db.Close()
		t.Skipf("Skipping integration test: cannot initialize tables: %v", err)
	}
	truncateTestTables(db, partitions)

	hash, err := crypto.HashPasswordWithCost(adminPassword, 4)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	hub := websocket.NewHub()
	go hub.Run()

	trades := repository.NewTradeRepository(db)
	configs := repository.NewBotConfigRepository(db)

	ledger := service.NewLedgerService(trades, configs, partitions, config.LedgerConfig{
		DefaultTradesLimit: 50,
		MaxTradesLimit:     500,
		DashboardLimit:     10,
	})
	ledger.SetWebSocketHub(hub)
	admin := service.NewAdminService(trades, configs, partitions, ledger)

	router := api.SetupRoutes(&api.Dependencies{
		LedgerService: ledger,
		AdminService:  admin,
		Hub:           hub,
		AdminAuth: middleware.AdminAuthConfig{
			Username:     adminUser,
			PasswordHash: hash,
		},
		WebhookSecret: webhookSecret,
		HealthCheck:   db.PingContext,
	})

	server := httptest.NewServer(router)

	return &TestServer{
		DB:         db,
		Server:     server,
		Hub:        hub,
		Partitions: partitions,
		Trades:     trades,
		Configs:    configs,
		Cleanup: func() {
			server.Close()
			hub.Stop()
			truncateTestTables(db, partitions)
			db.Close()
		},
	}
}

// initTestTables создает таблицы партиций, если их нет
func initTestTables(db *sql.DB, partitions *config.PartitionTable) error {
	configTables := map[string]bool{}

	for _, p := range partitions.All() {
		stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			symbol TEXT,
			level TEXT,
			expiration DATE,
			call_buy_strike DOUBLE PRECISION,
			call_sell_strike DOUBLE PRECISION,
			put_sell_strike DOUBLE PRECISION,
			put_buy_strike DOUBLE PRECISION,
			credit DOUBLE PRECISION,
			max_risk DOUBLE PRECISION,
			entry_price DOUBLE PRECISION,
			call_delta DOUBLE PRECISION,
			put_delta DOUBLE PRECISION,
			status TEXT,
			pnl DOUBLE PRECISION,
			settlement_price DOUBLE PRECISION,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			closed_at TIMESTAMPTZ
		)`, p.TradesTable)
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create %s: %w", p.TradesTable, err)
		}
		configTables[p.ConfigTable] = true
	}

	for table := range configTables {
		stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			symbol TEXT PRIMARY KEY,
			current_level TEXT,
			is_enabled BOOLEAN DEFAULT true,
			min_delta DOUBLE PRECISION,
			max_delta DOUBLE PRECISION,
			updated_at TIMESTAMPTZ DEFAULT NOW(),
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`, table)
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create %s: %w", table, err)
		}
	}

	return nil
}

// truncateTestTables очищает все таблицы партиций
func truncateTestTables(db *sql.DB, partitions *config.PartitionTable) {
	for _, p := range partitions.All() {
		db.Exec(fmt.Sprintf("TRUNCATE TABLE %s", p.TradesTable))
		db.Exec(fmt.Sprintf("TRUNCATE TABLE %s", p.ConfigTable))
	}
}

// seedBotConfig добавляет строку конфигурации бота
func seedBotConfig(t *testing.T, ts *TestServer, symbol, level string) {
	t.Helper()

	p, err := ts.Partitions.Lookup(symbol)
	if err != nil {
		t.Fatalf("lookup %s: %v", symbol, err)
	}
	_, err = ts.DB.Exec(fmt.Sprintf(`
		INSERT INTO %s (symbol, current_level, is_enabled, min_delta, max_delta)
		VALUES ($1, $2, true, 0.08, 0.15)`, p.ConfigTable), p.Symbol, level)
	if err != nil {
		t.Fatalf("seed bot config: %v", err)
	}
}
