package service

import (
	"errors"
	"fmt"

	"condorledger/internal/config"
	"condorledger/internal/engine"
	"condorledger/internal/metrics"
	"condorledger/internal/repository"
	"condorledger/pkg/utils"
)

// resolvePartition переводит символ запроса в партицию.
// Неизвестный символ - ошибка валидации запроса.
func resolvePartition(partitions *config.PartitionTable, symbol string) (config.Partition, error) {
	if err := utils.ValidateRequired("symbol", symbol); err != nil {
		return config.Partition{}, fmt.Errorf("%w: %v", engine.ErrValidation, err)
	}
	p, err := partitions.Lookup(symbol)
	if err != nil {
		return config.Partition{}, fmt.Errorf("%w: %w", engine.ErrValidation, err)
	}
	return p, nil
}

// mapStoreError приводит ошибку хранилища к видам ошибок движка
func mapStoreError(operation string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrTradeNotFound), errors.Is(err, repository.ErrBotConfigNotFound):
		return fmt.Errorf("%w: %w", engine.ErrNotFound, err)
	case errors.Is(err, repository.ErrTradeExists):
		return fmt.Errorf("%w: %w", engine.ErrValidation, err)
	case errors.Is(err, engine.ErrValidation), errors.Is(err, engine.ErrNoOp):
		return err
	default:
		metrics.RecordUpstreamFailure(operation)
		return fmt.Errorf("%w: %s: %v", engine.ErrUpstreamFailure, operation, err)
	}
}
