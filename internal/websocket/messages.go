package websocket

import (
	"time"

	"condorledger/internal/models"
)

// MessageType определяет тип WebSocket сообщения
type MessageType string

// Типы WebSocket сообщений
const (
	// MessageTypeLedgerUpdate - новая статистика символа.
	// Отправляется после записи сделки от бота и после каждой админской правки.
	MessageTypeLedgerUpdate MessageType = "ledgerUpdate"
)

// BaseMessage - базовая структура для всех WebSocket сообщений
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// LedgerUpdateMessage - снимок статистики одного символа
type LedgerUpdateMessage struct {
	BaseMessage
	Symbol string                `json:"symbol"`
	Stats  models.DashboardStats `json:"stats"`
}

// NewLedgerUpdateMessage создает сообщение ledgerUpdate
func NewLedgerUpdateMessage(symbol string, stats models.DashboardStats) *LedgerUpdateMessage {
	return &LedgerUpdateMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeLedgerUpdate,
			Timestamp: time.Now().UTC(),
		},
		Symbol: symbol,
		Stats:  stats,
	}
}
