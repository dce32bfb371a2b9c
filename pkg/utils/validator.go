package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// validator.go - проверка входных данных запросов
//
// Возвращает error с описанием проблемы или nil.

// Ошибки валидации
var (
	ErrEmptyValue      = errors.New("value is required")
	ErrValueTooLong    = errors.New("value is too long")
	ErrInvalidIdentity = errors.New("invalid SQL identifier")
)

// MaxLevelLength - максимальная длина метки уровня
const MaxLevelLength = 64

// MaxTradeIDLength - максимальная длина идентификатора сделки
const MaxTradeIDLength = 128

// identifierPattern допускает имена таблиц вида trade_alert, public.trade_alert_rut
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ValidateRequired проверяет, что строка не пустая после TrimSpace
func ValidateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s: %w", field, ErrEmptyValue)
	}
	return nil
}

// ValidateTradeID проверяет идентификатор сделки
func ValidateTradeID(id string) error {
	if err := ValidateRequired("id", id); err != nil {
		return err
	}
	if len(id) > MaxTradeIDLength {
		return fmt.Errorf("id: %w (max %d)", ErrValueTooLong, MaxTradeIDLength)
	}
	return nil
}

// ValidateLevel проверяет метку уровня конфигурации
func ValidateLevel(level string) error {
	if err := ValidateRequired("level", level); err != nil {
		return err
	}
	if len(level) > MaxLevelLength {
		return fmt.Errorf("level: %w (max %d)", ErrValueTooLong, MaxLevelLength)
	}
	return nil
}

// ValidateIdentifier проверяет имя таблицы перед подстановкой в SQL.
// Плейсхолдеры $N не работают для идентификаторов, поэтому имена
// допускаются только из конфигурации и только этого формата.
func ValidateIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentity, name)
	}
	return nil
}
