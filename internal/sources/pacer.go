// Package sources provides clients for the external article providers.
package sources

import (
	"context"

	"golang.org/x/time/rate"
)

// Pacer enforces a minimum interval between successive calls to a
// provider. One Pacer is created per source descriptor and lives for
// the process lifetime, so the spacing guarantee holds across client
// reconstruction. It is safe for concurrent use because the underlying
// rate.Limiter is goroutine-safe.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer creates a pacer allowing callsPerSecond sustained calls.
// The burst is fixed at 1 so that call starts are spaced at least
// 1/callsPerSecond apart; the first call passes without delay.
// Non-positive rates fall back to 1 call per second.
func NewPacer(callsPerSecond float64) *Pacer {
	if callsPerSecond <= 0 {
		callsPerSecond = 1
	}
	return &Pacer{
		limiter: rate.NewLimiter(rate.Limit(callsPerSecond), 1),
	}
}

// Wait blocks until the next call is allowed or the context is
// cancelled. Pacing only ever delays a call, it never rejects one.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// SetRate adjusts the sustained call rate, for example after a
// provider advertises a different limit.
func (p *Pacer) SetRate(callsPerSecond float64) {
	if callsPerSecond <= 0 {
		return
	}
	p.limiter.SetLimit(rate.Limit(callsPerSecond))
}

// Tokens returns the number of currently available tokens. Useful for
// monitoring and tests.
func (p *Pacer) Tokens() float64 {
	return p.limiter.Tokens()
}
