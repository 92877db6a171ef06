package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"GridPull/internal/domain/models"
	"GridPull/internal/domain/repository"
	"GridPull/internal/service/aemo"
	"GridPull/pkg/logger"
	"GridPull/pkg/util"
)

// ErrSyncInFlight is returned when a sync cycle is already running. The
// scheduler treats it as a skip, not a failure.
var ErrSyncInFlight = errors.New("sync already in progress")

// Upstream supplies the raw five-minute series.
type Upstream interface {
	FetchFiveMin(ctx context.Context) ([]aemo.RawInterval, error)
}

// Ingestor pulls the upstream series, normalizes timestamps, and persists
// only rows not already present. Writes happen only after a successful
// fetch+parse, so an aborted cycle leaves no partial state.
type Ingestor struct {
	upstream    Upstream
	store       repository.IntervalStore
	pub         repository.Publisher
	metrics     repository.Metrics
	logger      *logger.Logger
	fixedOffset string
	inFlight    atomic.Bool
}

// NewIngestor creates the ingestion engine. pub may be nil.
func NewIngestor(
	upstream Upstream,
	store repository.IntervalStore,
	pub repository.Publisher,
	metrics repository.Metrics,
	log *logger.Logger,
	fixedOffset string,
) *Ingestor {
	return &Ingestor{
		upstream:    upstream,
		store:       store,
		pub:         pub,
		metrics:     metrics,
		logger:      log,
		fixedOffset: fixedOffset,
	}
}

// Sync runs one ingestion cycle and reports how many records were parsed and
// how many were newly inserted. At most one cycle runs at a time.
func (g *Ingestor) Sync(ctx context.Context) (*models.SyncSummary, error) {
	if !g.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSyncInFlight
	}
	defer g.inFlight.Store(false)

	start := time.Now()
	defer func() {
		g.metrics.RecordLatency("sync", time.Since(start).Seconds())
	}()

	raws, err := g.upstream.FetchFiveMin(ctx)
	if err != nil {
		g.metrics.RecordError("upstream")
		return nil, err
	}

	batch, regions := g.normalize(raws)
	if len(batch) == 0 {
		return &models.SyncSummary{}, nil
	}

	minTS, maxTS := batch[0].SettlementTS, batch[0].SettlementTS
	for _, iv := range batch[1:] {
		if iv.SettlementTS < minTS {
			minTS = iv.SettlementTS
		}
		if iv.SettlementTS > maxTS {
			maxTS = iv.SettlementTS
		}
	}

	existing, err := g.store.ExistingKeys(ctx, minTS, maxTS, regions)
	if err != nil {
		g.metrics.RecordError("storage")
		return nil, err
	}

	fresh := make([]*models.Interval, 0, len(batch))
	for _, iv := range batch {
		if _, ok := existing[iv.Key()]; !ok {
			fresh = append(fresh, iv)
		}
	}

	inserted, err := g.store.InsertIgnore(ctx, fresh)
	if err != nil {
		g.metrics.RecordError("storage")
		return nil, err
	}

	g.recordIngestMetrics(fresh)

	if g.pub != nil && len(fresh) > 0 {
		// Rows are already durable; a failed publish must not fail the cycle.
		if err := g.pub.PublishIntervals(ctx, fresh); err != nil {
			g.metrics.RecordError("publish")
			g.logger.Warn("interval publish failed", logger.Error(err))
		}
	}

	g.logger.Info("sync complete",
		logger.Int("parsed", len(batch)),
		logger.Int("inserted", inserted),
	)
	return &models.SyncSummary{Parsed: len(batch), Inserted: inserted}, nil
}

// normalize converts raw records to intervals. Records with an unparseable
// timestamp or a missing region id are dropped and logged, never fatal.
func (g *Ingestor) normalize(raws []aemo.RawInterval) ([]*models.Interval, []string) {
	batch := make([]*models.Interval, 0, len(raws))
	regionSet := make(map[string]struct{})

	for _, r := range raws {
		if r.RegionID == "" {
			g.logger.Warn("dropping record with empty regionid",
				logger.String("settlementdate", r.SettlementDate))
			g.metrics.RecordError("normalize")
			continue
		}
		ts, err := util.ParseSettlementTime(r.SettlementDate, g.fixedOffset)
		if err != nil {
			g.logger.Warn("dropping record with bad timestamp",
				logger.String("regionid", r.RegionID),
				logger.Error(err))
			g.metrics.RecordError("normalize")
			continue
		}

		batch = append(batch, &models.Interval{
			SettlementTS:            ts,
			RegionID:                r.RegionID,
			Region:                  r.Region,
			RRP:                     r.RRP,
			TotalDemand:             r.TotalDemand,
			PeriodType:              r.PeriodType,
			NetInterchange:          r.NetInterchange,
			ScheduledGeneration:     r.ScheduledGeneration,
			SemiScheduledGeneration: r.SemiScheduledGeneration,
			APCFlag:                 r.APCFlag,
		})
		regionSet[r.RegionID] = struct{}{}
	}

	regions := make([]string, 0, len(regionSet))
	for r := range regionSet {
		regions = append(regions, r)
	}
	return batch, regions
}

func (g *Ingestor) recordIngestMetrics(fresh []*models.Interval) {
	perRegion := make(map[string]int)
	newest := make(map[string]*models.Interval)
	for _, iv := range fresh {
		perRegion[iv.RegionID]++
		if cur, ok := newest[iv.RegionID]; !ok || iv.SettlementTS > cur.SettlementTS {
			newest[iv.RegionID] = iv
		}
	}
	for region, n := range perRegion {
		g.metrics.RecordIngested(region, n)
		if iv := newest[region]; iv.RRP != nil {
			g.metrics.RecordLastRRP(region, *iv.RRP)
		}
	}
}
