package engine

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"condorledger/internal/models"
	"condorledger/pkg/utils"
)

// mutation.go - фильтр административных правок сделки
//
// Разрешенные поля - закрытое перечисление TradeField, значение поля совпадает
// с именем колонки. Репозиторий строит SET только из TradeField, поэтому
// произвольная колонка из запроса в SQL не попадает.

// TradeField - редактируемое поле сделки (имя колонки)
type TradeField string

const (
	FieldLevel           TradeField = "level"
	FieldExpiration      TradeField = "expiration"
	FieldCallBuyStrike   TradeField = "call_buy_strike"
	FieldCallSellStrike  TradeField = "call_sell_strike"
	FieldPutSellStrike   TradeField = "put_sell_strike"
	FieldPutBuyStrike    TradeField = "put_buy_strike"
	FieldCredit          TradeField = "credit"
	FieldMaxRisk         TradeField = "max_risk"
	FieldEntryPrice      TradeField = "entry_price"
	FieldCallDelta       TradeField = "call_delta"
	FieldPutDelta        TradeField = "put_delta"
	FieldStatus          TradeField = "status"
	FieldPnL             TradeField = "pnl"
	FieldSettlementPrice TradeField = "settlement_price"

	// FieldClosedAt выставляется только движком при смене статуса
	FieldClosedAt TradeField = "closed_at"
)

type fieldKind int

const (
	kindText fieldKind = iota
	kindDate
	kindNumber
	kindNonNegative
	kindNullableNumber
	kindStatus
	kindTimestamp
)

// editableFields - allow-list в порядке применения
var editableFields = []TradeField{
	FieldLevel,
	FieldExpiration,
	FieldCallBuyStrike,
	FieldCallSellStrike,
	FieldPutSellStrike,
	FieldPutBuyStrike,
	FieldCredit,
	FieldMaxRisk,
	FieldEntryPrice,
	FieldCallDelta,
	FieldPutDelta,
	FieldStatus,
	FieldPnL,
	FieldSettlementPrice,
}

var fieldKinds = map[TradeField]fieldKind{
	FieldLevel:           kindText,
	FieldExpiration:      kindDate,
	FieldCallBuyStrike:   kindNumber,
	FieldCallSellStrike:  kindNumber,
	FieldPutSellStrike:   kindNumber,
	FieldPutBuyStrike:    kindNumber,
	FieldCredit:          kindNonNegative,
	FieldMaxRisk:         kindNonNegative,
	FieldEntryPrice:      kindNullableNumber,
	FieldCallDelta:       kindNullableNumber,
	FieldPutDelta:        kindNullableNumber,
	FieldStatus:          kindStatus,
	FieldPnL:             kindNullableNumber,
	FieldSettlementPrice: kindNullableNumber,
	FieldClosedAt:        kindTimestamp,
}

// fieldAliases - camelCase имена из админки
var fieldAliases = map[string]TradeField{
	"callBuyStrike":   FieldCallBuyStrike,
	"callSellStrike":  FieldCallSellStrike,
	"putSellStrike":   FieldPutSellStrike,
	"putBuyStrike":    FieldPutBuyStrike,
	"maxRisk":         FieldMaxRisk,
	"entryPrice":      FieldEntryPrice,
	"callDelta":       FieldCallDelta,
	"putDelta":        FieldPutDelta,
	"settlementPrice": FieldSettlementPrice,
}

// Valid возвращает true для полей, которые может записать репозиторий
func (f TradeField) Valid() bool {
	_, ok := fieldKinds[f]
	return ok
}

// EditableFields возвращает allow-list для документации и CLI
func EditableFields() []TradeField {
	out := make([]TradeField, len(editableFields))
	copy(out, editableFields)
	return out
}

// LookupField разрешает ключ запроса (snake_case или camelCase) в поле allow-list.
// closed_at из запроса не принимается.
func LookupField(key string) (TradeField, bool) {
	if f, ok := fieldAliases[key]; ok {
		return f, true
	}
	f := TradeField(key)
	if f == FieldClosedAt || !f.Valid() {
		return "", false
	}
	return f, true
}

// Assignment - одно присваивание column = value
type Assignment struct {
	Field TradeField
	Value interface{} // float64, string, time.Time или nil (NULL)
}

// TradeUpdate - отфильтрованный и приведенный набор правок
type TradeUpdate struct {
	assignments []Assignment
}

// Assignments возвращает копию присваиваний в порядке allow-list
func (u TradeUpdate) Assignments() []Assignment {
	out := make([]Assignment, len(u.assignments))
	copy(out, u.assignments)
	return out
}

// Len - количество присваиваний
func (u TradeUpdate) Len() int {
	return len(u.assignments)
}

// Has проверяет наличие поля в правке
func (u TradeUpdate) Has(f TradeField) bool {
	for _, a := range u.assignments {
		if a.Field == f {
			return true
		}
	}
	return false
}

// Fields возвращает имена колонок, для логов
func (u TradeUpdate) Fields() []string {
	names := make([]string, len(u.assignments))
	for i, a := range u.assignments {
		names[i] = string(a.Field)
	}
	return names
}

// FilterTradeUpdates оставляет только разрешенные поля и приводит значения к типам колонок.
//
// Неизвестные ключи молча отбрасываются. Пустой результат - ErrNoOp.
// Значение неверного типа - ErrValidation.
// status=closed или непустой settlement_price закрывают сделку и выставляют closed_at = now;
// status=open очищает closed_at.
func FilterTradeUpdates(updates map[string]interface{}, now time.Time) (TradeUpdate, error) {
	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	// camelCase сортируется раньше snake_case, поэтому при дублях побеждает snake_case
	sort.Strings(keys)

	values := make(map[TradeField]interface{}, len(keys))
	for _, key := range keys {
		field, ok := LookupField(key)
		if !ok {
			continue
		}
		v, err := coerce(field, updates[key])
		if err != nil {
			return TradeUpdate{}, fmt.Errorf("%w: %s: %v", ErrValidation, key, err)
		}
		values[field] = v
	}

	if len(values) == 0 {
		return TradeUpdate{}, ErrNoOp
	}

	applyLifecycle(values, now)

	var u TradeUpdate
	for _, f := range editableFields {
		if v, ok := values[f]; ok {
			u.assignments = append(u.assignments, Assignment{Field: f, Value: v})
		}
	}
	if v, ok := values[FieldClosedAt]; ok {
		u.assignments = append(u.assignments, Assignment{Field: FieldClosedAt, Value: v})
	}
	return u, nil
}

// applyLifecycle синхронизирует status и closed_at
func applyLifecycle(values map[TradeField]interface{}, now time.Time) {
	if status, ok := values[FieldStatus]; ok {
		if status == string(models.TradeStatusClosed) {
			values[FieldClosedAt] = now.UTC()
		} else {
			values[FieldClosedAt] = nil
		}
		return
	}

	if settle, ok := values[FieldSettlementPrice]; ok && settle != nil {
		values[FieldStatus] = string(models.TradeStatusClosed)
		values[FieldClosedAt] = now.UTC()
	}
}

func coerce(field TradeField, raw interface{}) (interface{}, error) {
	switch fieldKinds[field] {
	case kindText:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", raw)
		}
		s = strings.TrimSpace(s)
		if err := utils.ValidateLevel(s); err != nil {
			return nil, err
		}
		return s, nil

	case kindDate:
		return parseDate(raw)

	case kindStatus:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", raw)
		}
		status, ok := models.ParseTradeStatus(s)
		if !ok {
			return nil, fmt.Errorf("unknown status %q", s)
		}
		return string(status), nil

	case kindNullableNumber:
		if isNull(raw) {
			return nil, nil
		}
		return toFloat(raw)

	case kindNonNegative:
		f, err := toFloat(raw)
		if err != nil {
			return nil, err
		}
		if f < 0 {
			return nil, fmt.Errorf("must be non-negative, got %v", f)
		}
		return f, nil

	default:
		return toFloat(raw)
	}
}

func isNull(raw interface{}) bool {
	if raw == nil {
		return true
	}
	s, ok := raw.(string)
	return ok && strings.TrimSpace(s) == ""
}

// toFloat принимает числа из JSON (float64, json.Number), целые и числовые строки
func toFloat(raw interface{}) (float64, error) {
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case int32:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", v)
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", v)
		}
		f = parsed
	case nil:
		return 0, fmt.Errorf("value is required")
	default:
		return 0, fmt.Errorf("expected number, got %T", raw)
	}

	if !utils.IsFinite(f) {
		return 0, fmt.Errorf("not a finite number")
	}
	return f, nil
}

func parseDate(raw interface{}) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		s := strings.TrimSpace(v)
		if d, err := time.Parse("2006-01-02", s); err == nil {
			return d, nil
		}
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			return ts.UTC(), nil
		}
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	default:
		return time.Time{}, fmt.Errorf("expected date string, got %T", raw)
	}
}
