package utils

import (
	"math"
	"sort"
)

// math.go - математические утилиты для учета сделок
//
// Все функции чистые, без побочных эффектов.
//
// Функции:
// - RoundTo: округление до N знаков (центы в PnL, проценты win rate)
// - SumStable: сумма, не зависящая от порядка входных значений
// - Mean: среднее значение
// - IsFinite: проверка на NaN/Inf

// RoundTo округляет значение до digits знаков после запятой (half away from zero).
//
// Примеры:
//   - RoundTo(66.6666, 2) = 66.67
//   - RoundTo(-47.995, 2) = -48.0
//   - RoundTo(2.0, 2) = 2.0
func RoundTo(value float64, digits int) float64 {
	if digits < 0 {
		digits = 0
	}
	pow := math.Pow(10, float64(digits))
	return math.Round(value*pow) / pow
}

// SumStable суммирует значения в отсортированном порядке.
//
// Сложение float64 не ассоциативно: одна и та же выборка в разном порядке
// может дать разный результат в последнем бите. Сортировка копии фиксирует
// порядок, поэтому сумма зависит только от набора значений.
func SumStable(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	return sum
}

// Mean возвращает среднее значение, 0 для пустой выборки.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return SumStable(values) / float64(len(values))
}

// IsFinite возвращает false для NaN и ±Inf.
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// Clamp ограничивает значение диапазоном [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
