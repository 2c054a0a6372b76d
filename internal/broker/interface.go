package broker

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// Quoter fetches batched last-traded prices for a set of contract symbols.
type Quoter interface {
	GetQuotes(ctx context.Context, token string, symbols []string) (map[string]float64, error)
}

// Ensure FyersAPI implements Quoter at compile time.
var _ Quoter = (*FyersAPI)(nil)

// CircuitBreakerQuoter wraps a Quoter with circuit breaker functionality so
// a flapping upstream trips fast instead of stalling every poll cycle.
type CircuitBreakerQuoter struct {
	quoter  Quoter
	breaker *gobreaker.CircuitBreaker
}

var _ Quoter = (*CircuitBreakerQuoter)(nil)

// CircuitBreakerSettings configures circuit breaker behavior.
type CircuitBreakerSettings struct {
	MaxRequests  uint32        // Max requests when half-open
	Interval     time.Duration // Reset counts interval
	Timeout      time.Duration // Open circuit duration
	MinRequests  uint32        // Min requests before tripping
	FailureRatio float64       // Failure ratio threshold
}

// NewCircuitBreakerQuoter creates a CircuitBreakerQuoter with defaults sized
// for a 1-10s polling cadence.
func NewCircuitBreakerQuoter(quoter Quoter, logger *logrus.Logger) *CircuitBreakerQuoter {
	return NewCircuitBreakerQuoterWithSettings(quoter, logger, CircuitBreakerSettings{
		MaxRequests:  2,                // Allow 2 probe requests when half-open
		Interval:     60 * time.Second, // Reset counts every minute
		Timeout:      30 * time.Second, // Open circuit for 30 seconds
		MinRequests:  5,                // Minimum requests before tripping
		FailureRatio: 0.6,              // Trip if 60% failure rate
	})
}

// NewCircuitBreakerQuoterWithSettings creates a CircuitBreakerQuoter with
// custom settings.
func NewCircuitBreakerQuoterWithSettings(quoter Quoter, logger *logrus.Logger, settings CircuitBreakerSettings) *CircuitBreakerQuoter {
	gbSettings := gobreaker.Settings{
		Name:        "QuoteCircuitBreaker",
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 || counts.Requests < settings.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= settings.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warnf("Circuit breaker %s state changed from %s to %s", name, from, to)
		},
	}

	return &CircuitBreakerQuoter{
		quoter:  quoter,
		breaker: gobreaker.NewCircuitBreaker(gbSettings),
	}
}

// GetQuotes wraps the underlying quote fetch with the circuit breaker.
func (c *CircuitBreakerQuoter) GetQuotes(ctx context.Context, token string, symbols []string) (map[string]float64, error) {
	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.quoter.GetQuotes(ctx, token, symbols)
	})
	if err != nil {
		return nil, err
	}
	ltps, ok := res.(map[string]float64)
	if !ok {
		return nil, errors.New("circuit breaker: type assertion failed")
	}
	return ltps, nil
}
