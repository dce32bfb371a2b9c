package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"condorledger/internal/config"
	"condorledger/internal/engine"
	"condorledger/internal/metrics"
	"condorledger/internal/models"
	"condorledger/pkg/utils"
)

// TradeView - классифицированная сделка вместе с расчетом исхода
type TradeView struct {
	models.TradeRecord
	Resolution engine.Resolution `json:"resolution"`
}

// Dashboard - сводка по символу: статистика, конфигурация и последние сделки.
// Degraded=true означает, что хранилище было недоступно и поля обнулены.
type Dashboard struct {
	Symbol      string                `json:"symbol"`
	Stats       models.DashboardStats `json:"stats"`
	Config      *models.BotConfig     `json:"config"`
	Trades      []TradeView           `json:"trades"`
	Degraded    bool                  `json:"degraded"`
	GeneratedAt time.Time             `json:"generated_at"`
}

// TradeAlertRequest - сделка, которую бот присылает через webhook после входа
type TradeAlertRequest struct {
	ID             string     `json:"id"`
	Symbol         string     `json:"symbol"`
	Level          string     `json:"level"`
	Expiration     string     `json:"expiration"` // YYYY-MM-DD
	CallBuyStrike  float64    `json:"call_buy_strike"`
	CallSellStrike float64    `json:"call_sell_strike"`
	PutSellStrike  float64    `json:"put_sell_strike"`
	PutBuyStrike   float64    `json:"put_buy_strike"`
	Credit         float64    `json:"credit"`
	MaxRisk        float64    `json:"max_risk"`
	EntryPrice     *float64   `json:"entry_price,omitempty"`
	CallDelta      *float64   `json:"call_delta,omitempty"`
	PutDelta       *float64   `json:"put_delta,omitempty"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
}

// LedgerService предоставляет чтение журнала сделок и прием новых сделок от бота.
//
// Функции:
// - GetTrades: последние сделки с вычисленным статусом и исходом
// - GetStats: статистика по всему журналу символа
// - GetTrade: одна сделка со статусом по всему журналу
// - GetConfig / GetAllConfigs: конфигурации бота
// - GetDashboard: сводка с обнулением при недоступном хранилище
// - RecordTradeAlert: запись новой сделки из webhook
//
// WebSocket интеграция:
// - После каждого изменения журнала отправляет ledgerUpdate через WebSocket
type LedgerService struct {
	trades     TradeRepositoryInterface
	configs    BotConfigRepositoryInterface
	partitions *config.PartitionTable
	limits     config.LedgerConfig
	wsHub      LedgerBroadcaster
	log        *utils.Logger
	now        func() time.Time
}

// NewLedgerService создает новый экземпляр LedgerService
func NewLedgerService(
	trades TradeRepositoryInterface,
	configs BotConfigRepositoryInterface,
	partitions *config.PartitionTable,
	limits config.LedgerConfig,
) *LedgerService {
	return &LedgerService{
		trades:     trades,
		configs:    configs,
		partitions: partitions,
		limits:     limits,
		log:        utils.L().WithComponent("ledger"),
		now:        time.Now,
	}
}

// SetWebSocketHub устанавливает WebSocket hub для broadcast статистики.
//
// Вызывается после инициализации Hub в main.go:
//
//	ledgerService := service.NewLedgerService(tradeRepo, configRepo, cfg.Partitions, cfg.Ledger)
//	ledgerService.SetWebSocketHub(wsHub)
func (s *LedgerService) SetWebSocketHub(hub LedgerBroadcaster) {
	s.wsHub = hub
}

// GetTrades возвращает последние limit сделок символа, новые первыми.
//
// limit <= 0 заменяется значением по умолчанию, больше максимума - обрезается.
// status (open/closed) фильтрует по вычисленному статусу; пустая строка - без фильтра.
// Статус вычисляется по странице: у каждой записи страницы все более новые
// записи той же группы тоже попадают в страницу.
func (s *LedgerService) GetTrades(ctx context.Context, symbol string, limit int, status string) ([]TradeView, error) {
	p, err := resolvePartition(s.partitions, symbol)
	if err != nil {
		return nil, err
	}

	var filter models.TradeStatus
	if strings.TrimSpace(status) != "" {
		parsed, ok := models.ParseTradeStatus(status)
		if !ok {
			return nil, fmt.Errorf("%w: status must be open or closed, got %q", engine.ErrValidation, status)
		}
		filter = parsed
	}

	rows, err := s.trades.List(ctx, p, s.clampLimit(limit))
	if err != nil {
		return nil, mapStoreError("list_trades", err)
	}

	classified := s.classify(p, rows)
	if filter != "" {
		classified = engine.FilterByStatus(classified, filter)
	}

	s.log.Debug("trades read",
		utils.Symbol(p.Symbol),
		utils.Limit(s.clampLimit(limit)),
		utils.Status(string(filter)),
		utils.Count(len(classified)),
	)

	return toViews(classified), nil
}

// GetStats возвращает статистику по всему журналу символа
func (s *LedgerService) GetStats(ctx context.Context, symbol string) (*models.DashboardStats, error) {
	p, err := resolvePartition(s.partitions, symbol)
	if err != nil {
		return nil, err
	}

	stats, err := s.computeStats(ctx, p)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// GetTrade возвращает одну сделку со статусом, вычисленным по всему журналу символа.
// ErrNotFound, если сделки нет в партиции.
func (s *LedgerService) GetTrade(ctx context.Context, symbol, id string) (*TradeView, error) {
	id = strings.TrimSpace(id)
	if err := utils.ValidateTradeID(id); err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrValidation, err)
	}

	p, err := resolvePartition(s.partitions, symbol)
	if err != nil {
		return nil, err
	}

	stored, err := s.trades.GetByID(ctx, p, id)
	if err != nil {
		return nil, mapStoreError("get_trade", err)
	}

	rows, err := s.trades.ListAll(ctx, p)
	if err != nil {
		return nil, mapStoreError("list_all_trades", err)
	}
	if view, ok := findView(s.classify(p, rows), id); ok {
		return view, nil
	}

	// строка есть, но классификатор ее отбросил (нет level)
	return nil, fmt.Errorf("%w: trade %s is malformed", engine.ErrValidation, stored.ID)
}

// GetConfig возвращает конфигурацию бота для символа
func (s *LedgerService) GetConfig(ctx context.Context, symbol string) (*models.BotConfig, error) {
	p, err := resolvePartition(s.partitions, symbol)
	if err != nil {
		return nil, err
	}

	cfg, err := s.configs.Get(ctx, p)
	if err != nil {
		return nil, mapStoreError("get_config", err)
	}
	return cfg, nil
}

// GetAllConfigs возвращает конфигурации всех партиций.
// Отсутствующие строки пропускаются, ошибка хранилища прерывает чтение.
func (s *LedgerService) GetAllConfigs(ctx context.Context) ([]*models.BotConfig, error) {
	partitions := s.partitions.All()
	result := make([]*models.BotConfig, 0, len(partitions))

	for _, p := range partitions {
		cfg, err := s.configs.Get(ctx, p)
		if err != nil {
			mapped := mapStoreError("get_config", err)
			if errors.Is(mapped, engine.ErrNotFound) {
				s.log.Warn("bot config row missing", utils.Symbol(p.Symbol))
				continue
			}
			return nil, mapped
		}
		result = append(result, cfg)
	}

	return result, nil
}

// GetDashboard собирает сводку для одного символа.
// limit <= 0 заменяется размером страницы сводки из конфигурации.
//
// Если хранилище недоступно или строки конфигурации нет, возвращается
// обнуленная сводка с Degraded=true и без ошибки.
// Ошибкой остается только неизвестный символ.
func (s *LedgerService) GetDashboard(ctx context.Context, symbol string, limit int) (*Dashboard, error) {
	p, err := resolvePartition(s.partitions, symbol)
	if err != nil {
		return nil, err
	}

	dash, err := s.buildDashboard(ctx, p, limit)
	if err != nil {
		s.log.Warn("dashboard degraded",
			utils.Symbol(p.Symbol),
			utils.Degraded(true),
			utils.Err(err),
		)
		return &Dashboard{
			Symbol:      p.Symbol,
			Stats:       engine.ZeroStats(),
			Config:      models.FallbackBotConfig(p.Symbol),
			Trades:      []TradeView{},
			Degraded:    true,
			GeneratedAt: s.now().UTC(),
		}, nil
	}

	return dash, nil
}

func (s *LedgerService) buildDashboard(ctx context.Context, p config.Partition, limit int) (*Dashboard, error) {
	stats, err := s.computeStats(ctx, p)
	if err != nil {
		return nil, err
	}

	cfg, err := s.configs.Get(ctx, p)
	if err != nil {
		return nil, mapStoreError("get_config", err)
	}

	if limit <= 0 {
		limit = s.limits.DashboardLimit
	}
	rows, err := s.trades.List(ctx, p, s.clampLimit(limit))
	if err != nil {
		return nil, mapStoreError("list_trades", err)
	}

	return &Dashboard{
		Symbol:      p.Symbol,
		Stats:       stats,
		Config:      cfg,
		Trades:      toViews(s.classify(p, rows)),
		GeneratedAt: s.now().UTC(),
	}, nil
}

// RecordTradeAlert записывает новую сделку от бота.
//
// Новая сделка становится живой в своей группе (symbol, level), поэтому
// хранилище в той же транзакции помечает более старые записи группы закрытыми.
// Пустой id заменяется на UUID, пустой created_at - на текущее время.
func (s *LedgerService) RecordTradeAlert(ctx context.Context, req *TradeAlertRequest) (*models.TradeRecord, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: empty trade alert", engine.ErrValidation)
	}

	p, err := resolvePartition(s.partitions, req.Symbol)
	if err != nil {
		return nil, err
	}

	trade, err := s.alertToRecord(p, req)
	if err != nil {
		metrics.RecordTradeAlert(p.Symbol, err)
		return nil, err
	}

	closed, err := s.trades.Create(ctx, p, trade)
	metrics.RecordTradeAlert(p.Symbol, err)
	if err != nil {
		return nil, mapStoreError("create_trade", err)
	}

	s.log.Info("trade alert recorded",
		utils.Symbol(p.Symbol),
		utils.TradeID(trade.ID),
		utils.Level(trade.Level),
		utils.Int64("closed_siblings", closed),
	)

	s.NotifyLedgerChanged(ctx, p.Symbol)
	return trade, nil
}

func (s *LedgerService) alertToRecord(p config.Partition, req *TradeAlertRequest) (*models.TradeRecord, error) {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.NewString()
	}
	if err := utils.ValidateTradeID(id); err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrValidation, err)
	}

	level := strings.TrimSpace(req.Level)
	if err := utils.ValidateLevel(level); err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrValidation, err)
	}

	expiration, err := time.Parse("2006-01-02", strings.TrimSpace(req.Expiration))
	if err != nil {
		return nil, fmt.Errorf("%w: expiration must be YYYY-MM-DD", engine.ErrValidation)
	}

	for _, f := range []struct {
		name  string
		value float64
	}{
		{"call_buy_strike", req.CallBuyStrike},
		{"call_sell_strike", req.CallSellStrike},
		{"put_sell_strike", req.PutSellStrike},
		{"put_buy_strike", req.PutBuyStrike},
		{"credit", req.Credit},
		{"max_risk", req.MaxRisk},
	} {
		if !utils.IsFinite(f.value) || f.value < 0 {
			return nil, fmt.Errorf("%w: %s must be a non-negative number", engine.ErrValidation, f.name)
		}
	}

	// короткие страйки внутри крыльев
	if req.PutBuyStrike > req.PutSellStrike || req.PutSellStrike > req.CallSellStrike || req.CallSellStrike > req.CallBuyStrike {
		return nil, fmt.Errorf("%w: strikes must satisfy put_buy <= put_sell <= call_sell <= call_buy", engine.ErrValidation)
	}

	createdAt := s.now().UTC()
	if req.CreatedAt != nil && !req.CreatedAt.IsZero() {
		createdAt = req.CreatedAt.UTC()
	}

	return &models.TradeRecord{
		ID:             id,
		Symbol:         p.Symbol,
		Level:          level,
		Expiration:     expiration,
		CallBuyStrike:  req.CallBuyStrike,
		CallSellStrike: req.CallSellStrike,
		PutSellStrike:  req.PutSellStrike,
		PutBuyStrike:   req.PutBuyStrike,
		Credit:         req.Credit,
		MaxRisk:        req.MaxRisk,
		EntryPrice:     req.EntryPrice,
		CallDelta:      req.CallDelta,
		PutDelta:       req.PutDelta,
		Status:         models.TradeStatusOpen,
		CreatedAt:      createdAt,
	}, nil
}

// NotifyLedgerChanged пересчитывает статистику символа, обновляет метрики
// и рассылает ledgerUpdate. Ошибки только логируются.
func (s *LedgerService) NotifyLedgerChanged(ctx context.Context, symbol string) {
	p, err := s.partitions.Lookup(symbol)
	if err != nil {
		return
	}

	stats, err := s.computeStats(ctx, p)
	if err != nil {
		s.log.Warn("ledger recompute failed", utils.Symbol(p.Symbol), utils.Err(err))
		return
	}

	if s.wsHub != nil {
		s.wsHub.BroadcastLedgerUpdate(p.Symbol, stats)
	}
}

func (s *LedgerService) computeStats(ctx context.Context, p config.Partition) (models.DashboardStats, error) {
	rows, err := s.trades.ListAll(ctx, p)
	if err != nil {
		return models.DashboardStats{}, mapStoreError("list_all_trades", err)
	}

	stats := engine.AggregateClassified(s.classify(p, rows))
	metrics.UpdateLedgerGauges(p.Symbol, stats.OpenTrades, stats.WinRate, stats.TotalPnL)
	return stats, nil
}

// classify вычисляет статусы и отчитывается о пропущенных строках.
// Группа классификатора - (партиция, level): строки, сохраненные под
// псевдонимом символа, попадают в ту же группу.
func (s *LedgerService) classify(p config.Partition, rows []models.TradeRecord) []models.TradeRecord {
	classified, malformed := engine.Classify(pinPartition(p, rows))
	if len(malformed) > 0 {
		metrics.RecordMalformed(p.Symbol, len(malformed))
		for _, err := range malformed {
			s.log.Warn("skipping malformed ledger row", utils.Symbol(p.Symbol), utils.Err(err))
		}
	}
	return classified
}

func (s *LedgerService) clampLimit(limit int) int {
	if limit <= 0 {
		return s.limits.DefaultTradesLimit
	}
	if s.limits.MaxTradesLimit > 0 && limit > s.limits.MaxTradesLimit {
		return s.limits.MaxTradesLimit
	}
	return limit
}

func toViews(classified []models.TradeRecord) []TradeView {
	views := make([]TradeView, len(classified))
	for i := range classified {
		views[i] = TradeView{
			TradeRecord: classified[i],
			Resolution:  engine.Resolve(&classified[i]),
		}
	}
	return views
}

// findView ищет сделку в классифицированном наборе
func findView(classified []models.TradeRecord, id string) (*TradeView, bool) {
	for i := range classified {
		if classified[i].ID == id {
			return &TradeView{
				TradeRecord: classified[i],
				Resolution:  engine.Resolve(&classified[i]),
			}, true
		}
	}
	return nil, false
}

// pinPartition подставляет символ партиции во все строки
func pinPartition(p config.Partition, rows []models.TradeRecord) []models.TradeRecord {
	for i := range rows {
		rows[i].Symbol = p.Symbol
	}
	return rows
}
