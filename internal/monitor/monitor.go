// Package monitor drives the quote polling loop and its Idle/Tracking
// state machine.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kdeshpande/condortrack/internal/broker"
	"github.com/kdeshpande/condortrack/internal/condor"
	"github.com/kdeshpande/condortrack/internal/session"
)

// State represents the polling monitor's lifecycle state.
type State string

const (
	// StateIdle means no tracking loop is running.
	StateIdle State = "idle"
	// StateTracking means the refresh loop is live.
	StateTracking State = "tracking"
)

// ErrNoQuotes is returned when a poll yields no prices at all. Bad symbols,
// market closed and upstream failure are indistinguishable here; all of
// them end the tracking session.
var ErrNoQuotes = errors.New("no quotes returned for tracked legs")

// ErrNoToken is returned when tracking starts without an authenticated
// session.
var ErrNoToken = errors.New("no access token in session; authenticate first")

// Renderer displays one cycle's snapshot and derived metrics.
type Renderer interface {
	Render(at time.Time, pos *condor.Position, snap condor.Snapshot, m condor.Metrics)
}

// Monitor polls leg quotes and recomputes metrics until stopped. Cycles are
// strictly sequential: each one fetches, computes, renders, then waits out
// the interval. Stop requests are honored between cycles, never mid-fetch.
type Monitor struct {
	quoter   broker.Quoter
	session  session.Interface
	renderer Renderer
	logger   *logrus.Logger
	interval time.Duration

	mu      sync.RWMutex
	state   State
	lastErr error
}

// New creates a monitor polling at the given interval.
func New(quoter broker.Quoter, sess session.Interface, renderer Renderer,
	interval time.Duration, logger *logrus.Logger) *Monitor {
	return &Monitor{
		quoter:   quoter,
		session:  sess,
		renderer: renderer,
		logger:   logger,
		interval: interval,
		state:    StateIdle,
	}
}

// State returns the current lifecycle state.
func (m *Monitor) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// LastErr returns the error that ended the last tracking session, if any.
func (m *Monitor) LastErr() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

func (m *Monitor) setState(s State, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
	m.lastErr = err
}

// Track runs the blocking refresh loop for pos until ctx is canceled (back
// to Idle, nil error) or a cycle yields no quotes (back to Idle with
// ErrNoQuotes). The first cycle runs immediately.
func (m *Monitor) Track(ctx context.Context, pos *condor.Position) error {
	if err := pos.Validate(); err != nil {
		return fmt.Errorf("invalid position: %w", err)
	}
	legs, err := pos.BuildLegs()
	if err != nil {
		return fmt.Errorf("building leg symbols: %w", err)
	}
	token, ok := m.session.Token()
	if !ok {
		return ErrNoToken
	}

	log := m.logger.WithFields(logrus.Fields{
		"session":    m.session.ID(),
		"underlying": pos.Underlying.Name,
		"expiry":     pos.Expiry,
	})
	log.Infof("Tracking 4 legs every %s: %v", m.interval, legs.Symbols())

	m.setState(StateTracking, nil)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		if err := m.runCycle(ctx, pos, legs, token); err != nil {
			// A cancel landing mid-fetch is a stop, not a fetch failure.
			if ctx.Err() != nil {
				log.Info("Stop requested, tracking halted")
				m.setState(StateIdle, nil)
				return nil
			}
			log.WithError(err).Error("Tracking stopped")
			m.setState(StateIdle, err)
			return err
		}

		select {
		case <-ctx.Done():
			log.Info("Stop requested, tracking halted")
			m.setState(StateIdle, nil)
			return nil
		case <-ticker.C:
		}
	}
}

// runCycle performs one fetch-compute-render pass.
func (m *Monitor) runCycle(ctx context.Context, pos *condor.Position, legs condor.Legs, token string) error {
	ltps, err := m.quoter.GetQuotes(ctx, token, legs.Symbols())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoQuotes, err)
	}
	if len(ltps) == 0 {
		return ErrNoQuotes
	}

	snap := m.snapshot(legs, ltps)
	metrics := condor.Calculate(snap, pos.Underlying.LotSize, pos.MinQty)
	m.renderer.Render(time.Now(), pos, snap, metrics)
	return nil
}

// snapshot maps per-leg prices out of the wholesale quote result. A leg
// missing from the response is priced at zero - the upstream does not
// distinguish "not found" from a genuine zero - and logged so the gap is
// visible.
func (m *Monitor) snapshot(legs condor.Legs, ltps map[string]float64) condor.Snapshot {
	leg := func(sym string) float64 {
		ltp, ok := ltps[sym]
		if !ok {
			m.logger.WithField("symbol", sym).Warn("Leg missing from quote response, pricing at zero")
		}
		return ltp
	}
	return condor.Snapshot{
		CallSellLTP: leg(legs.CallSell),
		CallBuyLTP:  leg(legs.CallBuy),
		PutSellLTP:  leg(legs.PutSell),
		PutBuyLTP:   leg(legs.PutBuy),
	}
}
