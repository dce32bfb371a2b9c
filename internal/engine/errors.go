package engine

import "errors"

// Виды ошибок движка. Сервисы и обработчики классифицируют их через errors.Is.
var (
	// ErrValidation - в запросе отсутствует обязательное поле или значение неверного типа
	ErrValidation = errors.New("validation error")

	// ErrNotFound - сделка или строка конфигурации не найдена
	ErrNotFound = errors.New("not found")

	// ErrNoOp - после фильтрации не осталось полей для обновления
	ErrNoOp = errors.New("no applicable fields to update")

	// ErrUpstreamFailure - хранилище недоступно или вернуло ошибку
	ErrUpstreamFailure = errors.New("upstream failure")

	// ErrMalformedRecord - строка журнала без id или level
	ErrMalformedRecord = errors.New("malformed record")
)
