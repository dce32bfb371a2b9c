package engine

import (
	"fmt"
	"strings"

	"condorledger/internal/models"
)

// classifier.go - определение живой сделки внутри (symbol, level)
//
// Сохраненный в хранилище status ненадежен (разный регистр, устаревшие значения),
// поэтому статус вычисляется при каждом чтении только по created_at:
// в каждой группе (symbol, level) открыта ровно одна запись с максимальным created_at,
// все остальные закрыты. При равных created_at побеждает больший id.

// Classify возвращает копию входных сделок с вычисленным статусом.
//
// Порядок сохраняется, меняется только поле Status, входной срез не модифицируется.
// Записи без id или level исключаются из результата и возвращаются как ошибки
// ErrMalformedRecord; остальные записи обрабатываются как обычно.
func Classify(trades []models.TradeRecord) ([]models.TradeRecord, []error) {
	result := make([]models.TradeRecord, 0, len(trades))
	var malformed []error

	for i := range trades {
		if err := checkShape(&trades[i], i); err != nil {
			malformed = append(malformed, err)
			continue
		}
		result = append(result, trades[i])
	}

	// индекс победителя в result для каждой группы
	live := make(map[string]int, len(result))
	for i := range result {
		key := groupKey(&result[i])
		cur, ok := live[key]
		if !ok || isNewer(&result[i], &result[cur]) {
			live[key] = i
		}
	}

	for i := range result {
		if live[groupKey(&result[i])] == i {
			result[i].Status = models.TradeStatusOpen
		} else {
			result[i].Status = models.TradeStatusClosed
		}
	}

	return result, malformed
}

// checkShape проверяет минимальную форму записи
func checkShape(t *models.TradeRecord, pos int) error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("%w: record #%d has no id", ErrMalformedRecord, pos)
	}
	if strings.TrimSpace(t.Level) == "" {
		return fmt.Errorf("%w: trade %s has no level", ErrMalformedRecord, t.ID)
	}
	return nil
}

func groupKey(t *models.TradeRecord) string {
	return strings.ToUpper(strings.TrimSpace(t.Symbol)) + "\x00" + strings.TrimSpace(t.Level)
}

// isNewer сравнивает двух кандидатов одной группы
func isNewer(a, b *models.TradeRecord) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// FilterByStatus оставляет сделки с заданным вычисленным статусом
func FilterByStatus(classified []models.TradeRecord, status models.TradeStatus) []models.TradeRecord {
	out := make([]models.TradeRecord, 0, len(classified))
	for _, t := range classified {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out
}
