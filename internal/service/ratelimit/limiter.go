package ratelimit

import (
	"context"
	"time"

	"GridPull/internal/domain/repository"
)

// Limiter is a sliding-window request counter keyed by (ip, asn, session),
// backed by the abuse shard. Bursts are limited strictly by count-in-window;
// denials are silent so a client that backs off stops consuming budget.
type Limiter struct {
	store     repository.AbuseStore
	metrics   repository.Metrics
	max       int
	windowSec int
	now       func() time.Time
}

// New creates a sliding-window limiter allowing max requests per windowSec.
func New(store repository.AbuseStore, metrics repository.Metrics, max, windowSec int) *Limiter {
	return &Limiter{
		store:     store,
		metrics:   metrics,
		max:       max,
		windowSec: windowSec,
		now:       time.Now,
	}
}

// CheckAndRecord admits or denies one request. Prune, count, and record run
// as a single operation on the abuse shard, so concurrent callers can never
// interleave the count with the insert and over-admit.
func (l *Limiter) CheckAndRecord(ctx context.Context, ip, asn, sessionID string) (bool, error) {
	nowMS := l.now().UnixMilli()
	cutoff := nowMS - int64(l.windowSec)*1000

	allowed, err := l.store.Reserve(ctx, ip, asn, sessionID, cutoff, nowMS, l.max)
	if err != nil {
		return false, err
	}
	if !allowed {
		l.metrics.RecordRateLimitDenied()
	}
	return allowed, nil
}
