package websocket

import "strings"

// OriginChecker - белый список Origin для /ws/stream.
// После создания только читается, блокировки не нужны.
type OriginChecker struct {
	allowed map[string]struct{}
	any     bool
}

// NewOriginChecker строит белый список. Пустой список или "*" снимают ограничение.
func NewOriginChecker(origins []string) *OriginChecker {
	oc := &OriginChecker{allowed: make(map[string]struct{}, len(origins))}
	for _, raw := range origins {
		o := normalizeOrigin(raw)
		switch o {
		case "":
			continue
		case "*":
			oc.any = true
		default:
			oc.allowed[o] = struct{}{}
		}
	}
	oc.any = oc.any || len(oc.allowed) == 0
	return oc
}

// Check сравнивает Origin без учета регистра и завершающего слеша.
// Запросы без Origin (curl, condorctl) пропускаются.
func (oc *OriginChecker) Check(origin string) bool {
	o := normalizeOrigin(origin)
	if o == "" || oc.any {
		return true
	}
	_, ok := oc.allowed[o]
	return ok
}

func normalizeOrigin(origin string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(origin)), "/")
}
