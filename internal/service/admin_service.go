package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"condorledger/internal/config"
	"condorledger/internal/engine"
	"condorledger/internal/metrics"
	"condorledger/internal/models"
	"condorledger/pkg/utils"
)

// Действия админки для метрик и логов
const (
	actionUpdateTrade = "update_trade"
	actionDeleteTrade = "delete_trade"
	actionUpdateLevel = "update_level"
)

// AdminService пропускает административные правки журнала и конфигурации.
//
// Правка сделки сначала фильтруется по списку разрешенных полей;
// пустой после фильтрации набор не доходит до хранилища.
// После успешной правки журнал пересчитывается и рассылается через notifier.
type AdminService struct {
	trades     TradeRepositoryInterface
	configs    BotConfigRepositoryInterface
	partitions *config.PartitionTable
	notifier   LedgerNotifier
	log        *utils.Logger
	now        func() time.Time
}

// NewAdminService создает новый экземпляр AdminService
func NewAdminService(
	trades TradeRepositoryInterface,
	configs BotConfigRepositoryInterface,
	partitions *config.PartitionTable,
	notifier LedgerNotifier,
) *AdminService {
	return &AdminService{
		trades:     trades,
		configs:    configs,
		partitions: partitions,
		notifier:   notifier,
		log:        utils.L().WithComponent("admin"),
		now:        time.Now,
	}
}

// ApplyTradeEdit применяет частичную правку сделки и возвращает ее в том виде,
// в каком ее покажет следующее чтение: статус вычисляется по журналу символа,
// записанный status на него не влияет.
//
// Ошибки:
// - ErrValidation: нет id/symbol, неизвестный символ, неверное значение поля
// - ErrNoOp: ни одного разрешенного поля
// - ErrNotFound: сделки нет в партиции
// - ErrUpstreamFailure: ошибка хранилища
func (s *AdminService) ApplyTradeEdit(ctx context.Context, id, symbol string, updates map[string]interface{}) (*TradeView, error) {
	trade, err := s.applyTradeEdit(ctx, id, symbol, updates)
	metrics.RecordAdminMutation(actionUpdateTrade, err)
	return trade, err
}

func (s *AdminService) applyTradeEdit(ctx context.Context, id, symbol string, updates map[string]interface{}) (*TradeView, error) {
	id = strings.TrimSpace(id)
	if err := utils.ValidateTradeID(id); err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrValidation, err)
	}

	p, err := resolvePartition(s.partitions, symbol)
	if err != nil {
		return nil, err
	}

	update, err := engine.FilterTradeUpdates(updates, s.now())
	if err != nil {
		s.log.Info("trade edit rejected",
			utils.TradeID(id),
			utils.Symbol(p.Symbol),
			utils.Reason(err.Error()),
		)
		return nil, err
	}

	trade, err := s.trades.Update(ctx, p, id, update)
	if err != nil {
		return nil, mapStoreError(actionUpdateTrade, err)
	}

	view := s.classifiedView(ctx, p, trade)
	s.log.Info("trade edited",
		utils.Action(actionUpdateTrade),
		utils.TradeID(id),
		utils.Symbol(p.Symbol),
		utils.Fields(update.Fields()),
		utils.Status(string(view.Status)),
		utils.Outcome(string(view.Resolution.Outcome)),
		utils.PNL(view.Resolution.PnL),
	)

	s.notify(ctx, p.Symbol)
	return view, nil
}

// classifiedView пересчитывает статус правленой сделки по журналу.
// Правка уже записана, поэтому сбой чтения не отменяет ответ: отдается
// сохраненная строка, а ошибка только логируется.
func (s *AdminService) classifiedView(ctx context.Context, p config.Partition, trade *models.TradeRecord) *TradeView {
	rows, err := s.trades.ListAll(ctx, p)
	if err == nil {
		classified, _ := engine.Classify(pinPartition(p, rows))
		if view, ok := findView(classified, trade.ID); ok {
			return view
		}
	} else {
		s.log.Warn("edited trade not reclassified", utils.TradeID(trade.ID), utils.Symbol(p.Symbol), utils.Err(err))
	}

	trade.Symbol = p.Symbol
	return &TradeView{TradeRecord: *trade, Resolution: engine.Resolve(trade)}
}

// ApplyConfigEdit меняет текущий уровень бота для символа
func (s *AdminService) ApplyConfigEdit(ctx context.Context, symbol, level string) (*models.BotConfig, error) {
	cfg, err := s.applyConfigEdit(ctx, symbol, level)
	metrics.RecordAdminMutation(actionUpdateLevel, err)
	return cfg, err
}

func (s *AdminService) applyConfigEdit(ctx context.Context, symbol, level string) (*models.BotConfig, error) {
	p, err := resolvePartition(s.partitions, symbol)
	if err != nil {
		return nil, err
	}

	level = strings.TrimSpace(level)
	if err := utils.ValidateLevel(level); err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrValidation, err)
	}

	cfg, err := s.configs.UpdateLevel(ctx, p, level)
	if err != nil {
		return nil, mapStoreError(actionUpdateLevel, err)
	}

	s.log.Info("bot level changed",
		utils.Action(actionUpdateLevel),
		utils.Symbol(p.Symbol),
		utils.Level(level),
	)
	return cfg, nil
}

// DeleteTrade удаляет сделку из партиции символа
func (s *AdminService) DeleteTrade(ctx context.Context, id, symbol string) error {
	err := s.deleteTrade(ctx, id, symbol)
	metrics.RecordAdminMutation(actionDeleteTrade, err)
	return err
}

func (s *AdminService) deleteTrade(ctx context.Context, id, symbol string) error {
	id = strings.TrimSpace(id)
	if err := utils.ValidateTradeID(id); err != nil {
		return fmt.Errorf("%w: %v", engine.ErrValidation, err)
	}

	p, err := resolvePartition(s.partitions, symbol)
	if err != nil {
		return err
	}

	if err := s.trades.Delete(ctx, p, id); err != nil {
		return mapStoreError(actionDeleteTrade, err)
	}

	s.log.Info("trade deleted",
		utils.Action(actionDeleteTrade),
		utils.TradeID(id),
		utils.Symbol(p.Symbol),
	)

	s.notify(ctx, p.Symbol)
	return nil
}

func (s *AdminService) notify(ctx context.Context, symbol string) {
	if s.notifier != nil {
		s.notifier.NotifyLedgerChanged(ctx, symbol)
	}
}
