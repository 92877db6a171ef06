package repository

import (
	"context"

	"GridPull/internal/domain/models"
)

// IntervalStore persists price intervals in the interval shard.
type IntervalStore interface {
	// Init creates the schema if absent.
	Init(ctx context.Context) error
	// ExistingKeys returns the primary keys already present within
	// [minTS, maxTS] restricted to the given region ids.
	ExistingKeys(ctx context.Context, minTS, maxTS int64, regionIDs []string) (map[models.IntervalKey]struct{}, error)
	// InsertIgnore inserts intervals row-wise, skipping primary-key
	// conflicts, and returns how many rows were actually inserted.
	InsertIgnore(ctx context.Context, intervals []*models.Interval) (int, error)
	// Range returns intervals with settlement_ts in [startMS, endMS],
	// optionally filtered to one region, paged and ordered by settlement_ts.
	Range(ctx context.Context, startMS, endMS int64, regionID string, limit, offset int, desc bool) ([]*models.Interval, error)
	// Latest returns the single most-recent interval per region, optionally
	// filtered to one region, ordered descending by settlement_ts.
	Latest(ctx context.Context, regionID string, limit, offset int) ([]*models.Interval, error)
	Health(ctx context.Context) error
}

// AbuseStore persists rate-limit accounting rows in the abuse shard.
type AbuseStore interface {
	Init(ctx context.Context) error
	// Reserve atomically prunes rows with ts strictly older than cutoffMS,
	// counts rows matching exactly (ip, asn, sessionID), and records the
	// request at nowMS when the count is below max. Reports whether the
	// request was admitted; denials record nothing.
	Reserve(ctx context.Context, ip, asn, sessionID string, cutoffMS, nowMS int64, max int) (bool, error)
	Health(ctx context.Context) error
}

// Publisher forwards newly ingested intervals to a downstream stream.
type Publisher interface {
	PublishIntervals(ctx context.Context, intervals []*models.Interval) error
	Close() error
}

// Metrics records operational metrics.
type Metrics interface {
	RecordIngested(regionID string, n int)
	RecordError(kind string)
	RecordRateLimitDenied()
	RecordLastRRP(regionID string, rrp float64)
	RecordLatency(op string, seconds float64)
}
