package models

import "time"

// BotConfig представляет конфигурацию бота для одного underlying.
// Строки принадлежат хранилищу: сервис их только читает и меняет current_level.
type BotConfig struct {
	Symbol       string    `json:"symbol" db:"symbol"`
	CurrentLevel string    `json:"current_level" db:"current_level"`
	Enabled      bool      `json:"is_enabled" db:"is_enabled"`
	MinDelta     float64   `json:"min_delta" db:"min_delta"`
	MaxDelta     float64   `json:"max_delta" db:"max_delta"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// FallbackLevel - уровень, который показывается, когда конфигурация недоступна
const FallbackLevel = "N/A"

// FallbackBotConfig возвращает обнуленную конфигурацию для деградированного ответа
func FallbackBotConfig(symbol string) *BotConfig {
	return &BotConfig{
		Symbol:       symbol,
		CurrentLevel: FallbackLevel,
		Enabled:      false,
	}
}
