package engine

import (
	"errors"
	"testing"
	"time"

	"condorledger/internal/models"
)

var baseTime = time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)

func newTrade(id, level string, minutes int) models.TradeRecord {
	return models.TradeRecord{
		ID:             id,
		Symbol:         "SPXW",
		Level:          level,
		Expiration:     time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		CallBuyStrike:  5150,
		CallSellStrike: 5100,
		PutSellStrike:  5000,
		PutBuyStrike:   4950,
		Credit:         2.0,
		MaxRisk:        48.0,
		Status:         models.TradeStatusOpen,
		CreatedAt:      baseTime.Add(time.Duration(minutes) * time.Minute),
	}
}

func statusByID(trades []models.TradeRecord) map[string]models.TradeStatus {
	out := make(map[string]models.TradeStatus, len(trades))
	for _, t := range trades {
		out[t.ID] = t.Status
	}
	return out
}

// ============================================================
// Тесты Classify
// ============================================================

func TestClassify_LatestPerLevelIsOpen(t *testing.T) {
	trades := []models.TradeRecord{
		newTrade("a", "L1", 0),
		newTrade("b", "L1", 10),
		newTrade("c", "L1", 20),
		newTrade("d", "L2", 5),
	}

	classified, malformed := Classify(trades)
	if len(malformed) != 0 {
		t.Fatalf("unexpected malformed: %v", malformed)
	}

	want := map[string]models.TradeStatus{
		"a": models.TradeStatusClosed,
		"b": models.TradeStatusClosed,
		"c": models.TradeStatusOpen,
		"d": models.TradeStatusOpen,
	}
	got := statusByID(classified)
	for id, status := range want {
		if got[id] != status {
			t.Errorf("trade %s: status = %s, want %s", id, got[id], status)
		}
	}
}

func TestClassify_IgnoresStoredStatus(t *testing.T) {
	old := newTrade("old", "L1", 0)
	old.Status = "Open"
	latest := newTrade("new", "L1", 5)
	latest.Status = models.TradeStatusClosed

	classified, _ := Classify([]models.TradeRecord{old, latest})
	got := statusByID(classified)

	if got["old"] != models.TradeStatusClosed {
		t.Errorf("stale stored status must be overridden, got %s", got["old"])
	}
	if got["new"] != models.TradeStatusOpen {
		t.Errorf("latest trade must be open, got %s", got["new"])
	}
}

func TestClassify_PreservesOrderAndInput(t *testing.T) {
	trades := []models.TradeRecord{
		newTrade("c", "L1", 20),
		newTrade("a", "L1", 0),
		newTrade("b", "L2", 10),
	}

	classified, _ := Classify(trades)

	for i, id := range []string{"c", "a", "b"} {
		if classified[i].ID != id {
			t.Errorf("position %d: id = %s, want %s", i, classified[i].ID, id)
		}
	}
	if trades[1].Status != models.TradeStatusOpen {
		t.Error("input slice was mutated")
	}
}

func TestClassify_TieBrokenByID(t *testing.T) {
	trades := []models.TradeRecord{
		newTrade("x-1", "L1", 0),
		newTrade("x-2", "L1", 0),
	}

	for _, input := range [][]models.TradeRecord{trades, {trades[1], trades[0]}} {
		got := statusByID(mustClassify(t, input))
		if got["x-2"] != models.TradeStatusOpen || got["x-1"] != models.TradeStatusClosed {
			t.Errorf("tie must resolve to greater id, got %v", got)
		}
	}
}

func TestClassify_SingleTradeIsOpen(t *testing.T) {
	single := newTrade("only", "L3", 0)
	single.Status = models.TradeStatusClosed

	got := mustClassify(t, []models.TradeRecord{single})
	if got[0].Status != models.TradeStatusOpen {
		t.Errorf("single trade must be open, got %s", got[0].Status)
	}
}

func TestClassify_SymbolsAreIndependent(t *testing.T) {
	spx := newTrade("spx", "L1", 0)
	rut := newTrade("rut", "L1", 10)
	rut.Symbol = "RUT"

	got := statusByID(mustClassify(t, []models.TradeRecord{spx, rut}))
	if got["spx"] != models.TradeStatusOpen || got["rut"] != models.TradeStatusOpen {
		t.Errorf("same level on different symbols must both be open, got %v", got)
	}
}

func TestClassify_MalformedRecordsExcluded(t *testing.T) {
	noID := newTrade("", "L1", 30)
	noLevel := newTrade("lvl", "  ", 40)
	good := newTrade("good", "L1", 0)

	classified, malformed := Classify([]models.TradeRecord{noID, good, noLevel})

	if len(classified) != 1 || classified[0].ID != "good" {
		t.Fatalf("expected only the valid record, got %+v", classified)
	}
	if classified[0].Status != models.TradeStatusOpen {
		t.Errorf("valid record must be open, got %s", classified[0].Status)
	}
	if len(malformed) != 2 {
		t.Fatalf("expected 2 malformed errors, got %d", len(malformed))
	}
	for _, err := range malformed {
		if !errors.Is(err, ErrMalformedRecord) {
			t.Errorf("expected ErrMalformedRecord, got %v", err)
		}
	}
}

func TestClassify_Empty(t *testing.T) {
	classified, malformed := Classify(nil)
	if len(classified) != 0 || len(malformed) != 0 {
		t.Errorf("expected empty result, got %v %v", classified, malformed)
	}
}

func TestFilterByStatus(t *testing.T) {
	classified := mustClassify(t, []models.TradeRecord{
		newTrade("a", "L1", 0),
		newTrade("b", "L1", 10),
		newTrade("c", "L2", 0),
	})

	if n := len(FilterByStatus(classified, models.TradeStatusOpen)); n != 2 {
		t.Errorf("open = %d, want 2", n)
	}
	closed := FilterByStatus(classified, models.TradeStatusClosed)
	if len(closed) != 1 || closed[0].ID != "a" {
		t.Errorf("closed = %+v", closed)
	}
}

func mustClassify(t *testing.T, trades []models.TradeRecord) []models.TradeRecord {
	t.Helper()
	classified, malformed := Classify(trades)
	if len(malformed) != 0 {
		t.Fatalf("unexpected malformed: %v", malformed)
	}
	return classified
}
