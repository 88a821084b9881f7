package enrichment

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"findoc/internal/logger"
)

// BreakerConfig tunes when the breaker opens and how long it stays open.
type BreakerConfig struct {
	Name         string
	MinRequests  uint32
	FailureRatio float64
	Cooldown     time.Duration
}

// DefaultBreakerConfig opens after at least 5 calls with 60% failures and
// probes again after 30 seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:         "enrichment",
		MinRequests:  5,
		FailureRatio: 0.6,
		Cooldown:     30 * time.Second,
	}
}

// BreakerCompleter stops calling a failing service for a cooldown period.
// While open, Complete fails immediately with gobreaker.ErrOpenState.
type BreakerCompleter struct {
	next Completer
	cb   *gobreaker.CircuitBreaker[string]
}

// NewBreakerCompleter wraps next in a circuit breaker.
func NewBreakerCompleter(next Completer, cfg BreakerConfig) *BreakerCompleter {
	def := DefaultBreakerConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.MinRequests == 0 {
		cfg.MinRequests = def.MinRequests
	}
	if cfg.FailureRatio <= 0 {
		cfg.FailureRatio = def.FailureRatio
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}

	log := logger.WithComponent("enrichment-breaker")

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up says nothing about the service.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	}

	return &BreakerCompleter{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[string](settings),
	}
}

// Complete implements Completer.
func (b *BreakerCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return b.cb.Execute(func() (string, error) {
		return b.next.Complete(ctx, prompt)
	})
}

// State reports the current breaker state.
func (b *BreakerCompleter) State() gobreaker.State {
	return b.cb.State()
}

// IsCircuitOpen reports whether err was produced by an open or saturated breaker.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
