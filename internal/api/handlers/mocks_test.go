package handlers

import (
	"context"
	"sync"

	"condorledger/internal/engine"
	"condorledger/internal/models"
	"condorledger/internal/service"
)

// ============ Mock Ledger Service ============

// MockLedgerService мок для LedgerServiceInterface
type MockLedgerService struct {
	mu sync.Mutex

	trades    []service.TradeView
	stats     *models.DashboardStats
	config    *models.BotConfig
	configs   []*models.BotConfig
	dashboard *service.Dashboard
	err       error

	lastSymbol string
	lastLimit  int
	lastStatus string
	lastID     string
	lastAlert  *service.TradeAlertRequest
}

func (m *MockLedgerService) record(symbol string, limit int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSymbol = symbol
	m.lastLimit = limit
}

func (m *MockLedgerService) GetTrades(ctx context.Context, symbol string, limit int, status string) ([]service.TradeView, error) {
	m.record(symbol, limit)
	m.lastStatus = status
	return m.trades, m.err
}

func (m *MockLedgerService) GetTrade(ctx context.Context, symbol, id string) (*service.TradeView, error) {
	m.record(symbol, 0)
	m.lastID = id
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.trades {
		if m.trades[i].ID == id {
			return &m.trades[i], nil
		}
	}
	return nil, engine.ErrNotFound
}

func (m *MockLedgerService) GetStats(ctx context.Context, symbol string) (*models.DashboardStats, error) {
	m.record(symbol, 0)
	return m.stats, m.err
}

func (m *MockLedgerService) GetConfig(ctx context.Context, symbol string) (*models.BotConfig, error) {
	m.record(symbol, 0)
	return m.config, m.err
}

func (m *MockLedgerService) GetAllConfigs(ctx context.Context) ([]*models.BotConfig, error) {
	return m.configs, m.err
}

func (m *MockLedgerService) GetDashboard(ctx context.Context, symbol string, limit int) (*service.Dashboard, error) {
	m.record(symbol, limit)
	return m.dashboard, m.err
}

func (m *MockLedgerService) RecordTradeAlert(ctx context.Context, req *service.TradeAlertRequest) (*models.TradeRecord, error) {
	m.lastAlert = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.TradeRecord{ID: "generated", Symbol: req.Symbol, Level: req.Level, Status: models.TradeStatusOpen}, nil
}

// ============ Mock Admin Service ============

// MockAdminService мок для AdminServiceInterface
type MockAdminService struct {
	err error

	calls       int
	lastID      string
	lastSymbol  string
	lastLevel   string
	lastUpdates map[string]interface{}
}

func (m *MockAdminService) ApplyTradeEdit(ctx context.Context, id, symbol string, updates map[string]interface{}) (*service.TradeView, error) {
	m.calls++
	m.lastID, m.lastSymbol, m.lastUpdates = id, symbol, updates
	if m.err != nil {
		return nil, m.err
	}
	return &service.TradeView{TradeRecord: models.TradeRecord{ID: id, Symbol: symbol, Status: models.TradeStatusOpen}}, nil
}

func (m *MockAdminService) ApplyConfigEdit(ctx context.Context, symbol, level string) (*models.BotConfig, error) {
	m.calls++
	m.lastSymbol, m.lastLevel = symbol, level
	if m.err != nil {
		return nil, m.err
	}
	return &models.BotConfig{Symbol: symbol, CurrentLevel: level}, nil
}

func (m *MockAdminService) DeleteTrade(ctx context.Context, id, symbol string) error {
	m.calls++
	m.lastID, m.lastSymbol = id, symbol
	return m.err
}

var _ service.LedgerServiceInterface = (*MockLedgerService)(nil)
var _ service.AdminServiceInterface = (*MockAdminService)(nil)
