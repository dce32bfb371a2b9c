package engine

import (
	"math"

	"condorledger/internal/models"
	"condorledger/pkg/utils"
)

// settlement.go - расчет PnL iron condor по цене экспирации
//
// PnL считается в пунктах индекса на один контракт и округляется до центов.

// Outcome - результат сделки
type Outcome string

const (
	OutcomeMaxWin       Outcome = "max_win"
	OutcomeMaxLoss      Outcome = "max_loss"
	OutcomeOpen         Outcome = "open"
	OutcomeUndetermined Outcome = "undetermined"
)

// PnLSource - откуда взято значение PnL
type PnLSource string

const (
	PnLSourceStored   PnLSource = "stored"   // ручное или записанное ботом значение
	PnLSourceComputed PnLSource = "computed" // рассчитано по settlement_price
	PnLSourceNone     PnLSource = "none"
)

// Resolution - результат разрешения сделки
type Resolution struct {
	PnL     float64   `json:"pnl"`
	Outcome Outcome   `json:"outcome"`
	Source  PnLSource `json:"pnl_source"`
}

// Resolve определяет PnL и исход сделки.
//
// Без settlement_price исход Open. Сохраненный pnl имеет приоритет над расчетом:
// ручные правки администратора не перезаписываются.
func Resolve(t *models.TradeRecord) Resolution {
	if t.SettlementPrice == nil {
		res := Resolution{Outcome: OutcomeOpen, Source: PnLSourceNone}
		if t.PnL != nil {
			res.PnL = *t.PnL
			res.Source = PnLSourceStored
		}
		return res
	}

	if t.PnL != nil {
		return Resolution{PnL: *t.PnL, Outcome: outcomeOf(*t.PnL), Source: PnLSourceStored}
	}

	pnl, ok := SettlementPnL(t, *t.SettlementPrice)
	if !ok {
		return Resolution{Outcome: OutcomeUndetermined, Source: PnLSourceNone}
	}
	return Resolution{PnL: pnl, Outcome: outcomeOf(pnl), Source: PnLSourceComputed}
}

// SettlementPnL рассчитывает PnL при заданной цене экспирации.
//
// Между коротким путом и коротким коллом обе стороны истекают вне денег: pnl = credit.
// За коротким страйком убыток растет линейно и ограничен шириной крыла.
// Возвращает false, если страйки нарушают call_sell <= call_buy, put_buy <= put_sell
// или значения не конечны.
func SettlementPnL(t *models.TradeRecord, settle float64) (float64, bool) {
	if !validQuartet(t) || !utils.IsFinite(settle) || !utils.IsFinite(t.Credit) {
		return 0, false
	}

	var loss float64
	switch {
	case settle >= t.PutSellStrike && settle <= t.CallSellStrike:
		loss = 0
	case settle > t.CallSellStrike:
		loss = math.Min(settle-t.CallSellStrike, t.CallWingWidth())
	default:
		loss = math.Min(t.PutSellStrike-settle, t.PutWingWidth())
	}

	return utils.RoundTo(t.Credit-loss, 2), true
}

func validQuartet(t *models.TradeRecord) bool {
	for _, s := range []float64{t.CallBuyStrike, t.CallSellStrike, t.PutSellStrike, t.PutBuyStrike} {
		if !utils.IsFinite(s) {
			return false
		}
	}
	return t.CallSellStrike <= t.CallBuyStrike && t.PutBuyStrike <= t.PutSellStrike
}

func outcomeOf(pnl float64) Outcome {
	if pnl > 0 {
		return OutcomeMaxWin
	}
	return OutcomeMaxLoss
}
