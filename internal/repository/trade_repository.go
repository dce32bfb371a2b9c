package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"condorledger/internal/config"
	"condorledger/internal/engine"
	"condorledger/internal/models"
)

// Ошибки репозитория сделок
var (
	ErrTradeNotFound = errors.New("trade not found")
	ErrTradeExists   = errors.New("trade already exists")
)

// tradeColumns - порядок колонок совпадает с scanTrade
const tradeColumns = `id, symbol, level, expiration, call_buy_strike, call_sell_strike, put_sell_strike, put_buy_strike,
		credit, max_risk, entry_price, call_delta, put_delta, status, pnl, settlement_price, created_at, closed_at`

// TradeRepository - работа с таблицами сделок (trade_alert, trade_alert_rut, ...)
//
// Имя таблицы берется из config.Partition и проверено при загрузке конфигурации;
// плейсхолдеры $N для идентификаторов не работают, поэтому имя подставляется в текст запроса.
type TradeRepository struct {
	db *sql.DB
}

// NewTradeRepository создает новый экземпляр репозитория
func NewTradeRepository(db *sql.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// List возвращает последние limit сделок партиции, новые первыми.
// Порядок (created_at, id) совпадает с порядком классификатора, поэтому граница
// LIMIT не разрезает группу равных created_at произвольно.
func (r *TradeRepository) List(ctx context.Context, p config.Partition, limit int) ([]models.TradeRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		ORDER BY created_at DESC, id DESC
		LIMIT $1`, tradeColumns, p.TradesTable)

	return r.query(ctx, p, query, limit)
}

// ListAll возвращает весь журнал партиции (для статистики)
func (r *TradeRepository) ListAll(ctx context.Context, p config.Partition) ([]models.TradeRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		ORDER BY created_at DESC, id DESC`, tradeColumns, p.TradesTable)

	return r.query(ctx, p, query)
}

// GetByID возвращает сделку по идентификатору
func (r *TradeRepository) GetByID(ctx context.Context, p config.Partition, id string) (*models.TradeRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1`, tradeColumns, p.TradesTable)

	trade, err := scanTrade(r.db.QueryRowContext(ctx, query, id), p)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTradeNotFound
		}
		return nil, err
	}
	return trade, nil
}

// Create записывает новую открытую сделку от бота.
//
// В той же транзакции более старые открытые сделки того же уровня помечаются закрытыми.
// Это только зеркало для внешних читателей таблицы: статус при чтении все равно
// вычисляется классификатором.
func (r *TradeRepository) Create(ctx context.Context, p config.Partition, trade *models.TradeRecord) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	insert := fmt.Sprintf(`
		INSERT INTO %s (id, symbol, level, expiration, call_buy_strike, call_sell_strike, put_sell_strike, put_buy_strike,
			credit, max_risk, entry_price, call_delta, put_delta, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`, p.TradesTable)

	_, err = tx.ExecContext(ctx, insert,
		trade.ID,
		p.Symbol,
		trade.Level,
		trade.Expiration,
		trade.CallBuyStrike,
		trade.CallSellStrike,
		trade.PutSellStrike,
		trade.PutBuyStrike,
		trade.Credit,
		trade.MaxRisk,
		nullableFloat(trade.EntryPrice),
		nullableFloat(trade.CallDelta),
		nullableFloat(trade.PutDelta),
		string(models.TradeStatusOpen),
		trade.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrTradeExists
		}
		return 0, err
	}

	closeOlder := fmt.Sprintf(`
		UPDATE %s
		SET status = $1, closed_at = $2
		WHERE level = $3 AND id <> $4 AND LOWER(status) = $5 AND created_at <= $6`, p.TradesTable)

	result, err := tx.ExecContext(ctx, closeOlder,
		string(models.TradeStatusClosed),
		trade.CreatedAt,
		trade.Level,
		trade.ID,
		string(models.TradeStatusOpen),
		trade.CreatedAt,
	)
	if err != nil {
		return 0, err
	}

	closed, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	trade.Symbol = p.Symbol
	trade.Status = models.TradeStatusOpen
	return closed, nil
}

// Update применяет отфильтрованную правку и возвращает обновленную сделку.
// SET строится только из engine.TradeField, значения передаются плейсхолдерами.
func (r *TradeRepository) Update(ctx context.Context, p config.Partition, id string, update engine.TradeUpdate) (*models.TradeRecord, error) {
	assignments := update.Assignments()
	if len(assignments) == 0 {
		return nil, engine.ErrNoOp
	}

	sets := make([]string, 0, len(assignments))
	args := make([]interface{}, 0, len(assignments)+1)
	for i, a := range assignments {
		if !a.Field.Valid() {
			return nil, fmt.Errorf("%w: field %q is not writable", engine.ErrValidation, a.Field)
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", a.Field, i+1))
		args = append(args, a.Value)
	}
	args = append(args, id)

	query := fmt.Sprintf(`
		UPDATE %s
		SET %s
		WHERE id = $%d
		RETURNING %s`, p.TradesTable, strings.Join(sets, ", "), len(args), tradeColumns)

	trade, err := scanTrade(r.db.QueryRowContext(ctx, query, args...), p)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTradeNotFound
		}
		return nil, err
	}
	return trade, nil
}

// Delete удаляет сделку без возможности восстановления
func (r *TradeRepository) Delete(ctx context.Context, p config.Partition, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, p.TradesTable)

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrTradeNotFound
	}

	return nil
}

func (r *TradeRepository) query(ctx context.Context, p config.Partition, query string, args ...interface{}) ([]models.TradeRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []models.TradeRecord
	for rows.Next() {
		trade, err := scanTrade(rows, p)
		if err != nil {
			return nil, err
		}
		trades = append(trades, *trade)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return trades, nil
}

// rowScanner - общий интерфейс *sql.Row и *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanTrade читает строку, допуская NULL в любых колонках.
// Пустые id/level не отбрасываются здесь: это решает классификатор.
func scanTrade(row rowScanner, p config.Partition) (*models.TradeRecord, error) {
	var (
		id, level, status                                sql.NullString
		expiration, createdAt, closedAt                  sql.NullTime
		callBuy, callSell, putSell, putBuy               sql.NullFloat64
		credit, maxRisk, entryPrice, callDelta, putDelta sql.NullFloat64
		pnl, settlement                                  sql.NullFloat64
	)

	err := row.Scan(
		&id,
		new(sql.NullString), // symbol: хранимое значение может быть псевдонимом, ключ - партиция
		&level,
		&expiration,
		&callBuy,
		&callSell,
		&putSell,
		&putBuy,
		&credit,
		&maxRisk,
		&entryPrice,
		&callDelta,
		&putDelta,
		&status,
		&pnl,
		&settlement,
		&createdAt,
		&closedAt,
	)
	if err != nil {
		return nil, err
	}

	trade := &models.TradeRecord{
		ID:              strings.TrimSpace(id.String),
		Symbol:          p.Symbol,
		Level:           strings.TrimSpace(level.String),
		Expiration:      expiration.Time,
		CallBuyStrike:   callBuy.Float64,
		CallSellStrike:  callSell.Float64,
		PutSellStrike:   putSell.Float64,
		PutBuyStrike:    putBuy.Float64,
		Credit:          credit.Float64,
		MaxRisk:         maxRisk.Float64,
		EntryPrice:      floatPtr(entryPrice),
		CallDelta:       floatPtr(callDelta),
		PutDelta:        floatPtr(putDelta),
		PnL:             floatPtr(pnl),
		SettlementPrice: floatPtr(settlement),
		CreatedAt:       createdAt.Time,
	}

	if s, ok := models.ParseTradeStatus(status.String); ok {
		trade.Status = s
	} else {
		trade.Status = models.TradeStatusOpen
	}

	if closedAt.Valid {
		ts := closedAt.Time
		trade.ClosedAt = &ts
	}

	return trade, nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullableFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// isUniqueViolation проверяет нарушение уникальности (PostgreSQL 23505)
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "23505")
}

func now() time.Time {
	return time.Now().UTC()
}
