// Package condor models an iron condor position and the P&L metrics
// derived from its four leg prices.
package condor

import (
	"fmt"

	"github.com/kdeshpande/condortrack/internal/symbols"
)

// Stop-loss and target scale off each side's max profit. A 1:1.5 target and
// 1:3 stop-loss ratio, applied to the premium collected.
const (
	stopLossMultiple = 3.0
	targetMultiple   = 1.5
)

// Position is a user-supplied iron condor definition: four strikes, an
// expiry tag (DDMMMYY) and lot sizing. It is immutable for the duration of
// one tracking session and only replaced by re-submission through
// configuration, never mutated by the polling loop.
type Position struct {
	Underlying     symbols.Underlying
	Expiry         string
	CallSellStrike int
	CallBuyStrike  int
	PutSellStrike  int
	PutBuyStrike   int
	Lots           int
	MinQty         int
}

// Validate checks that the position describes a proper iron condor: a bear
// call spread above a bull put spread, with positive sizing.
func (p *Position) Validate() error {
	if p.Underlying.Prefix == "" {
		return fmt.Errorf("position underlying is not configured")
	}
	if p.CallSellStrike <= 0 || p.CallBuyStrike <= 0 || p.PutSellStrike <= 0 || p.PutBuyStrike <= 0 {
		return fmt.Errorf("all four strikes must be positive")
	}
	if p.CallBuyStrike <= p.CallSellStrike {
		return fmt.Errorf("call buy strike (%d) must be above call sell strike (%d)",
			p.CallBuyStrike, p.CallSellStrike)
	}
	if p.PutBuyStrike >= p.PutSellStrike {
		return fmt.Errorf("put buy strike (%d) must be below put sell strike (%d)",
			p.PutBuyStrike, p.PutSellStrike)
	}
	if p.Lots < 1 {
		return fmt.Errorf("lots must be >= 1, got %d", p.Lots)
	}
	if p.MinQty < 1 {
		return fmt.Errorf("min_qty must be >= 1, got %d", p.MinQty)
	}
	return nil
}

// Legs holds the four canonical contract symbols composing the position.
type Legs struct {
	CallSell string
	CallBuy  string
	PutSell  string
	PutBuy   string
}

// Symbols returns the leg symbols in fetch order.
func (l Legs) Symbols() []string {
	return []string{l.CallSell, l.CallBuy, l.PutSell, l.PutBuy}
}

// BuildLegs formats the four exchange contract symbols for the position.
func (p *Position) BuildLegs() (Legs, error) {
	var legs Legs
	var err error

	base := p.Underlying.Prefix
	if legs.CallSell, err = symbols.Format(base, p.Expiry, p.CallSellStrike, symbols.Call); err != nil {
		return Legs{}, fmt.Errorf("call sell leg: %w", err)
	}
	if legs.CallBuy, err = symbols.Format(base, p.Expiry, p.CallBuyStrike, symbols.Call); err != nil {
		return Legs{}, fmt.Errorf("call buy leg: %w", err)
	}
	if legs.PutSell, err = symbols.Format(base, p.Expiry, p.PutSellStrike, symbols.Put); err != nil {
		return Legs{}, fmt.Errorf("put sell leg: %w", err)
	}
	if legs.PutBuy, err = symbols.Format(base, p.Expiry, p.PutBuyStrike, symbols.Put); err != nil {
		return Legs{}, fmt.Errorf("put buy leg: %w", err)
	}
	return legs, nil
}

// Snapshot is one wholesale refresh of the four leg prices. Each poll fully
// replaces the prior snapshot; no history is retained.
type Snapshot struct {
	CallSellLTP float64
	CallBuyLTP  float64
	PutSellLTP  float64
	PutBuyLTP   float64
}

// SideMetrics are the derived metrics for one vertical spread.
type SideMetrics struct {
	PremiumDiff float64
	MaxProfit   float64
	StopLoss    float64
	Target      float64
}

// Metrics is the per-cycle value object derived from a Snapshot. It is
// recomputed fresh each cycle and never persisted.
type Metrics struct {
	Call           SideMetrics
	Put            SideMetrics
	TotalMaxProfit float64
	AvgPremium     float64
}

func sideMetrics(sellLTP, buyLTP float64, lotSize, minQty int) SideMetrics {
	diff := sellLTP - buyLTP
	maxProfit := diff * float64(lotSize) * float64(minQty)
	return SideMetrics{
		PremiumDiff: diff,
		MaxProfit:   maxProfit,
		StopLoss:    maxProfit * stopLossMultiple,
		Target:      maxProfit * targetMultiple,
	}
}

// Calculate derives the metrics value object from the current snapshot.
// It is a pure function of the snapshot and lot sizing: no clamping, no
// rounding, and a negative premium differential (the spread is currently
// unprofitable) flows through to stop-loss and target unchanged.
func Calculate(s Snapshot, lotSize, minQty int) Metrics {
	call := sideMetrics(s.CallSellLTP, s.CallBuyLTP, lotSize, minQty)
	put := sideMetrics(s.PutSellLTP, s.PutBuyLTP, lotSize, minQty)
	return Metrics{
		Call:           call,
		Put:            put,
		TotalMaxProfit: call.MaxProfit + put.MaxProfit,
		AvgPremium:     (call.PremiumDiff + put.PremiumDiff) / 2,
	}
}
