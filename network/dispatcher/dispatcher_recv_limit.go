// Package dispatcher rate limiters. Two interchangeable implementations
// guard the dispatch path: a token bucket that tolerates bursts, and a leaky
// bucket funnel that smooths throughput to a constant rate. Both hot-reload
// behind an atomic pointer.
package dispatcher

import (
	"context"
	"sync/atomic"

	"go.uber.org/ratelimit"
	"golang.org/x/time/rate"
)

// Limiter kind names accepted by Config.LimiterKind.
const (
	LimiterToken  = "token"
	LimiterFunnel = "funnel"
)

// TokenRecvLimiter enforces a packets-per-second ceiling with a token
// bucket, allowing short bursts up to the configured size.
type TokenRecvLimiter struct {
	limiter atomic.Pointer[rate.Limiter]
}

// NewTokenRecvLimiter creates a token bucket limiter allowing limit events
// per second with the given burst capacity.
func NewTokenRecvLimiter(limit, burst int) *TokenRecvLimiter {
	l := &TokenRecvLimiter{}
	l.limiter.Store(rate.NewLimiter(rate.Limit(limit), burst))
	return l
}

// Take blocks until a token is available.
func (l *TokenRecvLimiter) Take() error {
	return l.limiter.Load().Wait(context.Background())
}

// Reload swaps in a new rate and burst without disturbing in-flight takes.
func (l *TokenRecvLimiter) Reload(limit, burst int) {
	l.limiter.Store(rate.NewLimiter(rate.Limit(limit), burst))
}

func (l *TokenRecvLimiter) recvLimiterFilter(d *Delivery, next HandleFunc) error {
	if err := l.Take(); err != nil {
		return err
	}
	return next(d)
}

// FunnelRecvLimiter enforces a constant processing rate with a leaky bucket.
// Unlike the token bucket it never bursts; packets queue behind the funnel.
type FunnelRecvLimiter struct {
	limiter atomic.Pointer[ratelimit.Limiter]
}

// NewFunnelRecvLimiter creates a leaky bucket limiter at limit events per
// second.
func NewFunnelRecvLimiter(limit int) *FunnelRecvLimiter {
	lim := ratelimit.New(limit)
	l := &FunnelRecvLimiter{}
	l.limiter.Store(&lim)
	return l
}

// Take blocks until the funnel admits the next event.
func (l *FunnelRecvLimiter) Take() {
	(*l.limiter.Load()).Take()
}

// Reload swaps in a new rate.
func (l *FunnelRecvLimiter) Reload(limit int) {
	lim := ratelimit.New(limit)
	l.limiter.Store(&lim)
}

func (l *FunnelRecvLimiter) recvLimiterFilter(d *Delivery, next HandleFunc) error {
	l.Take()
	return next(d)
}
