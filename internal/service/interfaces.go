package service

import (
	"context"

	"condorledger/internal/config"
	"condorledger/internal/engine"
	"condorledger/internal/models"
	"condorledger/internal/repository"
)

// TradeRepositoryInterface определяет интерфейс хранилища сделок
type TradeRepositoryInterface interface {
	List(ctx context.Context, p config.Partition, limit int) ([]models.TradeRecord, error)
	ListAll(ctx context.Context, p config.Partition) ([]models.TradeRecord, error)
	GetByID(ctx context.Context, p config.Partition, id string) (*models.TradeRecord, error)
	Create(ctx context.Context, p config.Partition, trade *models.TradeRecord) (int64, error)
	Update(ctx context.Context, p config.Partition, id string, update engine.TradeUpdate) (*models.TradeRecord, error)
	Delete(ctx context.Context, p config.Partition, id string) error
}

// BotConfigRepositoryInterface определяет интерфейс хранилища конфигураций бота
type BotConfigRepositoryInterface interface {
	Get(ctx context.Context, p config.Partition) (*models.BotConfig, error)
	UpdateLevel(ctx context.Context, p config.Partition, level string) (*models.BotConfig, error)
}

// Проверяем, что реальные репозитории реализуют интерфейсы
var _ TradeRepositoryInterface = (*repository.TradeRepository)(nil)
var _ BotConfigRepositoryInterface = (*repository.BotConfigRepository)(nil)

// LedgerBroadcaster - отправка снимка статистики через WebSocket
type LedgerBroadcaster interface {
	BroadcastLedgerUpdate(symbol string, stats models.DashboardStats)
}

// LedgerNotifier - пересчет и рассылка после изменения журнала
type LedgerNotifier interface {
	NotifyLedgerChanged(ctx context.Context, symbol string)
}

// ============ Интерфейсы сервисов для Dependency Injection ============

// LedgerServiceInterface определяет интерфейс чтения журнала
type LedgerServiceInterface interface {
	GetTrades(ctx context.Context, symbol string, limit int, status string) ([]TradeView, error)
	GetStats(ctx context.Context, symbol string) (*models.DashboardStats, error)
	GetTrade(ctx context.Context, symbol, id string) (*TradeView, error)
	GetConfig(ctx context.Context, symbol string) (*models.BotConfig, error)
	GetAllConfigs(ctx context.Context) ([]*models.BotConfig, error)
	GetDashboard(ctx context.Context, symbol string, limit int) (*Dashboard, error)
	RecordTradeAlert(ctx context.Context, req *TradeAlertRequest) (*models.TradeRecord, error)
}

// AdminServiceInterface определяет интерфейс административных правок
type AdminServiceInterface interface {
	ApplyTradeEdit(ctx context.Context, id, symbol string, updates map[string]interface{}) (*TradeView, error)
	ApplyConfigEdit(ctx context.Context, symbol, level string) (*models.BotConfig, error)
	DeleteTrade(ctx context.Context, id, symbol string) error
}

// Проверяем, что реальные сервисы реализуют интерфейсы
var _ LedgerServiceInterface = (*LedgerService)(nil)
var _ AdminServiceInterface = (*AdminService)(nil)
var _ LedgerNotifier = (*LedgerService)(nil)
