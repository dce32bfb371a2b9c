package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"condorledger/internal/config"
	"condorledger/internal/engine"
	"condorledger/internal/models"
	"condorledger/internal/repository"
)

var baseTime = time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)

func testPartitions(t *testing.T) *config.PartitionTable {
	t.Helper()
	table, err := config.NewPartitionTable(config.DefaultPartitions())
	if err != nil {
		t.Fatalf("partitions: %v", err)
	}
	return table
}

func testLimits() config.LedgerConfig {
	return config.LedgerConfig{DefaultTradesLimit: 50, MaxTradesLimit: 500, DashboardLimit: 10}
}

func floatPtr(v float64) *float64 { return &v }

func newTrade(id, level string, minutes int) models.TradeRecord {
	return models.TradeRecord{
		ID:             id,
		Symbol:         "SPXW",
		Level:          level,
		Expiration:     baseTime.Truncate(24 * time.Hour),
		CallBuyStrike:  5150,
		CallSellStrike: 5100,
		PutSellStrike:  5000,
		PutBuyStrike:   4950,
		Credit:         2,
		MaxRisk:        48,
		Status:         models.TradeStatusOpen,
		CreatedAt:      baseTime.Add(time.Duration(minutes) * time.Minute),
	}
}

// ============ Mock TradeRepository ============

type MockTradeRepository struct {
	mu        sync.Mutex
	tables    map[string][]models.TradeRecord
	listErr   error
	getErr    error
	createErr error
	updateErr error
	deleteErr error

	listCalls   int
	updateCalls int
	lastUpdate  engine.TradeUpdate
	lastLimit   int
}

func NewMockTradeRepository() *MockTradeRepository {
	return &MockTradeRepository{tables: make(map[string][]models.TradeRecord)}
}

func (m *MockTradeRepository) seed(table string, trades ...models.TradeRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[table] = append(m.tables[table], trades...)
}

// sorted возвращает строки таблицы в порядке ORDER BY created_at DESC, id DESC
func (m *MockTradeRepository) sorted(table string) []models.TradeRecord {
	rows := append([]models.TradeRecord(nil), m.tables[table]...)
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].ID > rows[j].ID
	})
	return rows
}

func (m *MockTradeRepository) List(ctx context.Context, p config.Partition, limit int) ([]models.TradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	m.lastLimit = limit
	if m.listErr != nil {
		return nil, m.listErr
	}
	rows := m.sorted(p.TradesTable)
	if limit < len(rows) {
		rows = rows[:limit]
	}
	return rows, nil
}

func (m *MockTradeRepository) ListAll(ctx context.Context, p config.Partition) ([]models.TradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.sorted(p.TradesTable), nil
}

func (m *MockTradeRepository) GetByID(ctx context.Context, p config.Partition, id string) (*models.TradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, row := range m.tables[p.TradesTable] {
		if row.ID == id {
			trade := row
			return &trade, nil
		}
	}
	return nil, repository.ErrTradeNotFound
}

func (m *MockTradeRepository) Create(ctx context.Context, p config.Partition, trade *models.TradeRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return 0, m.createErr
	}
	var closed int64
	rows := m.tables[p.TradesTable]
	for i := range rows {
		if rows[i].ID == trade.ID {
			return 0, repository.ErrTradeExists
		}
		if rows[i].Level == trade.Level && rows[i].Status.IsOpen() {
			rows[i].Status = models.TradeStatusClosed
			closed++
		}
	}
	m.tables[p.TradesTable] = append(rows, *trade)
	return closed, nil
}

func (m *MockTradeRepository) Update(ctx context.Context, p config.Partition, id string, update engine.TradeUpdate) (*models.TradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	m.lastUpdate = update
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	rows := m.tables[p.TradesTable]
	for i := range rows {
		if rows[i].ID != id {
			continue
		}
		for _, a := range update.Assignments() {
			switch a.Field {
			case engine.FieldLevel:
				rows[i].Level = a.Value.(string)
			case engine.FieldPnL:
				if a.Value == nil {
					rows[i].PnL = nil
				} else {
					rows[i].PnL = floatPtr(a.Value.(float64))
				}
			}
		}
		trade := rows[i]
		return &trade, nil
	}
	return nil, repository.ErrTradeNotFound
}

func (m *MockTradeRepository) Delete(ctx context.Context, p config.Partition, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	rows := m.tables[p.TradesTable]
	for i := range rows {
		if rows[i].ID == id {
			m.tables[p.TradesTable] = append(rows[:i], rows[i+1:]...)
			return nil
		}
	}
	return repository.ErrTradeNotFound
}

// ============ Mock BotConfigRepository ============

type MockBotConfigRepository struct {
	configs   map[string]*models.BotConfig
	getErr    error
	updateErr error
}

func NewMockBotConfigRepository() *MockBotConfigRepository {
	return &MockBotConfigRepository{configs: make(map[string]*models.BotConfig)}
}

func (m *MockBotConfigRepository) Get(ctx context.Context, p config.Partition) (*models.BotConfig, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	cfg, ok := m.configs[p.Symbol]
	if !ok {
		return nil, repository.ErrBotConfigNotFound
	}
	copied := *cfg
	return &copied, nil
}

func (m *MockBotConfigRepository) UpdateLevel(ctx context.Context, p config.Partition, level string) (*models.BotConfig, error) {
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	cfg, ok := m.configs[p.Symbol]
	if !ok {
		return nil, repository.ErrBotConfigNotFound
	}
	cfg.CurrentLevel = level
	copied := *cfg
	return &copied, nil
}

// ============ Mock Broadcaster / Notifier ============

type MockBroadcaster struct {
	mu      sync.Mutex
	updates map[string]models.DashboardStats
	calls   int
}

func NewMockBroadcaster() *MockBroadcaster {
	return &MockBroadcaster{updates: make(map[string]models.DashboardStats)}
}

func (m *MockBroadcaster) BroadcastLedgerUpdate(symbol string, stats models.DashboardStats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.updates[symbol] = stats
}

type MockNotifier struct {
	symbols []string
}

func (m *MockNotifier) NotifyLedgerChanged(ctx context.Context, symbol string) {
	m.symbols = append(m.symbols, symbol)
}
