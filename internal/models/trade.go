package models

import (
	"strings"
	"time"
)

// TradeStatus - статус сделки в жизненном цикле (open/closed)
type TradeStatus string

// Статусы сделки
const (
	TradeStatusOpen   TradeStatus = "open"
	TradeStatusClosed TradeStatus = "closed"
)

// ParseTradeStatus разбирает статус из хранилища или запроса.
// Регистр и пробелы не важны: "Open", "CLOSED", " closed " допустимы.
func ParseTradeStatus(raw string) (TradeStatus, bool) {
	switch TradeStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case TradeStatusOpen:
		return TradeStatusOpen, true
	case TradeStatusClosed:
		return TradeStatusClosed, true
	default:
		return "", false
	}
}

// IsOpen возвращает true для живой позиции
func (s TradeStatus) IsOpen() bool {
	return s == TradeStatusOpen
}

// TradeRecord представляет запись об iron condor сделке, открытой ботом
type TradeRecord struct {
	ID              string      `json:"id" db:"id"`
	Symbol          string      `json:"symbol" db:"symbol"`                     // SPXW, RUT
	Level           string      `json:"level" db:"level"`                       // уровень конфигурации бота на момент входа
	Expiration      time.Time   `json:"expiration" db:"expiration"`             // дата экспирации контрактов
	CallBuyStrike   float64     `json:"call_buy_strike" db:"call_buy_strike"`   // длинный колл (крыло)
	CallSellStrike  float64     `json:"call_sell_strike" db:"call_sell_strike"` // короткий колл
	PutSellStrike   float64     `json:"put_sell_strike" db:"put_sell_strike"`   // короткий пут
	PutBuyStrike    float64     `json:"put_buy_strike" db:"put_buy_strike"`     // длинный пут (крыло)
	Credit          float64     `json:"credit" db:"credit"`                     // полученная премия
	MaxRisk         float64     `json:"max_risk" db:"max_risk"`
	EntryPrice      *float64    `json:"entry_price,omitempty" db:"entry_price"`
	CallDelta       *float64    `json:"call_delta,omitempty" db:"call_delta"`
	PutDelta        *float64    `json:"put_delta,omitempty" db:"put_delta"`
	Status          TradeStatus `json:"status" db:"status"`
	PnL             *float64    `json:"pnl" db:"pnl"`                           // null пока сделка открыта
	SettlementPrice *float64    `json:"settlement_price" db:"settlement_price"` // null пока сделка открыта
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
	ClosedAt        *time.Time  `json:"closed_at,omitempty" db:"closed_at"`
}

// CallWingWidth ширина колл-спреда
func (t *TradeRecord) CallWingWidth() float64 {
	return t.CallBuyStrike - t.CallSellStrike
}

// PutWingWidth ширина пут-спреда
func (t *TradeRecord) PutWingWidth() float64 {
	return t.PutSellStrike - t.PutBuyStrike
}
