package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"condorledger/internal/config"
	"condorledger/internal/models"
)

// ErrBotConfigNotFound - для символа нет строки конфигурации
var ErrBotConfigNotFound = errors.New("bot config not found")

const botConfigColumns = `symbol, current_level, is_enabled, min_delta, max_delta, updated_at, created_at`

// BotConfigRepository - работа с таблицей bot_config.
// Строки создает и удаляет бот, сервис только читает и меняет current_level.
type BotConfigRepository struct {
	db *sql.DB
}

// NewBotConfigRepository создает новый экземпляр репозитория
func NewBotConfigRepository(db *sql.DB) *BotConfigRepository {
	return &BotConfigRepository{db: db}
}

// Get возвращает конфигурацию бота для партиции
func (r *BotConfigRepository) Get(ctx context.Context, p config.Partition) (*models.BotConfig, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE symbol = $1`, botConfigColumns, p.ConfigTable)

	cfg, err := scanBotConfig(r.db.QueryRowContext(ctx, query, p.Symbol), p)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBotConfigNotFound
		}
		return nil, err
	}

	return cfg, nil
}

// UpdateLevel меняет только current_level
func (r *BotConfigRepository) UpdateLevel(ctx context.Context, p config.Partition, level string) (*models.BotConfig, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET current_level = $1, updated_at = $2
		WHERE symbol = $3
		RETURNING %s`, p.ConfigTable, botConfigColumns)

	cfg, err := scanBotConfig(r.db.QueryRowContext(ctx, query, level, now(), p.Symbol), p)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBotConfigNotFound
		}
		return nil, err
	}

	return cfg, nil
}

func scanBotConfig(row rowScanner, p config.Partition) (*models.BotConfig, error) {
	var (
		symbol, level        sql.NullString
		enabled              sql.NullBool
		minDelta, maxDelta   sql.NullFloat64
		updatedAt, createdAt sql.NullTime
	)

	err := row.Scan(
		&symbol,
		&level,
		&enabled,
		&minDelta,
		&maxDelta,
		&updatedAt,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	cfg := &models.BotConfig{
		Symbol:       strings.ToUpper(strings.TrimSpace(symbol.String)),
		CurrentLevel: level.String,
		Enabled:      enabled.Bool,
		MinDelta:     minDelta.Float64,
		MaxDelta:     maxDelta.Float64,
		UpdatedAt:    updatedAt.Time,
		CreatedAt:    createdAt.Time,
	}
	if cfg.Symbol == "" {
		cfg.Symbol = p.Symbol
	}

	return cfg, nil
}
