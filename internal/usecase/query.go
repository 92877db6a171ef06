package usecase

import (
	"context"
	"fmt"
	"time"

	"GridPull/internal/domain/models"
	"GridPull/internal/domain/repository"
	"GridPull/pkg/cache"
	xhttp "GridPull/pkg/http"
	"GridPull/pkg/logger"
)

const (
	maxLastSec   = 604800    // 7 days in seconds
	maxRangeSpan = 604800000 // 7 days in milliseconds
	defaultLimit = 100
)

// RangeResult is one page of intervals plus the next-page signal. HasNext is
// computed by fetching one row past the requested page.
type RangeResult struct {
	Rows    []*models.Interval `json:"rows"`
	HasNext bool               `json:"has_next"`
}

// QueryEngine serves the three range-query modes over the interval store.
type QueryEngine struct {
	store     repository.IntervalStore
	cache     cache.Service
	latestTTL time.Duration
	logger    *logger.Logger
	now       func() time.Time
}

// NewQueryEngine creates the query engine. c may be nil to disable caching of
// the latest-per-region mode.
func NewQueryEngine(store repository.IntervalStore, c cache.Service, latestTTL time.Duration, log *logger.Logger) *QueryEngine {
	return &QueryEngine{
		store:     store,
		cache:     c,
		latestTTL: latestTTL,
		logger:    log,
		now:       time.Now,
	}
}

// Range resolves the request to one of three mutually exclusive modes and
// returns a page of rows. Zero rows is a valid result, not an error.
func (q *QueryEngine) Range(ctx context.Context, req *models.RangeRequest) (*RangeResult, error) {
	limit := defaultLimit
	if req.Limit != nil {
		limit = *req.Limit
	}
	offset := 0
	if req.Offset != nil {
		offset = *req.Offset
	}
	if limit <= 0 {
		return nil, xhttp.BadRequestError("limit must be positive")
	}
	if offset < 0 {
		return nil, xhttp.BadRequestError("offset must not be negative")
	}

	var (
		rows []*models.Interval
		err  error
	)

	switch {
	case req.LastSec != nil:
		if req.Start != nil || req.End != nil {
			return nil, xhttp.BadRequestError("lastSec cannot be combined with start/end")
		}
		if *req.LastSec <= 0 || *req.LastSec > maxLastSec {
			return nil, xhttp.BadRequestErrorf("lastSec must be in (0, %d]", maxLastSec)
		}
		endMS := q.now().UnixMilli()
		startMS := endMS - *req.LastSec*1000
		rows, err = q.store.Range(ctx, startMS, endMS, req.RegionID, limit+1, offset, true)

	case req.Start != nil || req.End != nil:
		if req.Start == nil || req.End == nil {
			return nil, xhttp.BadRequestError("start and end are required together")
		}
		if *req.End < *req.Start {
			return nil, xhttp.BadRequestError("end must not precede start")
		}
		// span goes negative when the subtraction overflows; extreme bounds
		// must not slip past the cap.
		if span := *req.End - *req.Start; span < 0 || span > maxRangeSpan {
			return nil, xhttp.BadRequestErrorf("range must not exceed %d ms", maxRangeSpan)
		}
		rows, err = q.store.Range(ctx, *req.Start, *req.End, req.RegionID, limit+1, offset, false)

	default:
		return q.latest(ctx, req.RegionID, limit, offset)
	}

	if err != nil {
		q.logger.Debug("range query failed", logger.Error(err))
		return nil, err
	}
	return pageOf(rows, limit), nil
}

func (q *QueryEngine) latest(ctx context.Context, regionID string, limit, offset int) (*RangeResult, error) {
	key := fmt.Sprintf("latest:%s:%d:%d", regionID, limit, offset)
	if q.cache != nil {
		var cached RangeResult
		if err := q.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	rows, err := q.store.Latest(ctx, regionID, limit+1, offset)
	if err != nil {
		q.logger.Debug("latest query failed", logger.Error(err))
		return nil, err
	}

	res := pageOf(rows, limit)
	if q.cache != nil {
		if err := q.cache.Set(ctx, key, res, q.latestTTL); err != nil {
			q.logger.Warn("latest cache set failed", logger.Error(err))
		}
	}
	return res, nil
}

func pageOf(rows []*models.Interval, limit int) *RangeResult {
	hasNext := len(rows) > limit
	if hasNext {
		rows = rows[:limit]
	}
	if rows == nil {
		rows = []*models.Interval{}
	}
	return &RangeResult{Rows: rows, HasNext: hasNext}
}
