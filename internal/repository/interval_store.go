package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"GridPull/internal/domain/models"
	"GridPull/internal/domain/repository"
	"GridPull/internal/store"
)

const intervalSchema = `
CREATE TABLE IF NOT EXISTS intervals (
	settlement_ts           INTEGER NOT NULL,
	regionid                TEXT    NOT NULL,
	region                  TEXT,
	rrp                     REAL,
	totaldemand             REAL,
	periodtype              TEXT,
	netinterchange          REAL,
	scheduledgeneration     REAL,
	semischeduledgeneration REAL,
	apcflag                 REAL,
	PRIMARY KEY (settlement_ts, regionid)
)`

const intervalColumns = `settlement_ts, regionid, region, rrp, totaldemand, periodtype,
	netinterchange, scheduledgeneration, semischeduledgeneration, apcflag`

// SQLIntervalStore implements IntervalStore over the interval shard.
type SQLIntervalStore struct {
	shard *store.Shard
}

// NewIntervalStore creates interval storage on the given shard.
func NewIntervalStore(shard *store.Shard) repository.IntervalStore {
	return &SQLIntervalStore{shard: shard}
}

func (s *SQLIntervalStore) Init(ctx context.Context) error {
	return s.shard.Do(ctx, func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, intervalSchema)
		return err
	})
}

func (s *SQLIntervalStore) ExistingKeys(ctx context.Context, minTS, maxTS int64, regionIDs []string) (map[models.IntervalKey]struct{}, error) {
	keys := make(map[models.IntervalKey]struct{})
	if len(regionIDs) == 0 {
		return keys, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(regionIDs)), ",")
	q := fmt.Sprintf(
		"SELECT settlement_ts, regionid FROM intervals WHERE settlement_ts BETWEEN ? AND ? AND regionid IN (%s)",
		placeholders,
	)

	args := make([]interface{}, 0, len(regionIDs)+2)
	args = append(args, minTS, maxTS)
	for _, r := range regionIDs {
		args = append(args, r)
	}

	err := s.shard.Do(ctx, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var k models.IntervalKey
			if err := rows.Scan(&k.SettlementTS, &k.RegionID); err != nil {
				return err
			}
			keys[k] = struct{}{}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *SQLIntervalStore) InsertIgnore(ctx context.Context, intervals []*models.Interval) (int, error) {
	if len(intervals) == 0 {
		return 0, nil
	}

	q := fmt.Sprintf("INSERT OR IGNORE INTO intervals (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", intervalColumns)

	inserted := 0
	err := s.shard.Tx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, q)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, iv := range intervals {
			res, err := stmt.ExecContext(ctx,
				iv.SettlementTS,
				iv.RegionID,
				iv.Region,
				iv.RRP,
				iv.TotalDemand,
				iv.PeriodType,
				iv.NetInterchange,
				iv.ScheduledGeneration,
				iv.SemiScheduledGeneration,
				iv.APCFlag,
			)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			inserted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func (s *SQLIntervalStore) Range(ctx context.Context, startMS, endMS int64, regionID string, limit, offset int, desc bool) ([]*models.Interval, error) {
	order := "ASC"
	if desc {
		order = "DESC"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM intervals WHERE settlement_ts >= ? AND settlement_ts <= ?", intervalColumns)
	args := []interface{}{startMS, endMS}
	if regionID != "" {
		sb.WriteString(" AND regionid = ?")
		args = append(args, regionID)
	}
	fmt.Fprintf(&sb, " ORDER BY settlement_ts %s LIMIT ? OFFSET ?", order)
	args = append(args, limit, offset)

	return s.query(ctx, sb.String(), args...)
}

func (s *SQLIntervalStore) Latest(ctx context.Context, regionID string, limit, offset int) ([]*models.Interval, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, `SELECT %s FROM intervals i
		JOIN (SELECT regionid AS rid, MAX(settlement_ts) AS max_ts FROM intervals`, intervalColumns)
	var args []interface{}
	if regionID != "" {
		sb.WriteString(" WHERE regionid = ?")
		args = append(args, regionID)
	}
	sb.WriteString(` GROUP BY regionid) m
		ON i.regionid = m.rid AND i.settlement_ts = m.max_ts
		ORDER BY i.settlement_ts DESC LIMIT ? OFFSET ?`)
	args = append(args, limit, offset)

	return s.query(ctx, sb.String(), args...)
}

func (s *SQLIntervalStore) Health(ctx context.Context) error {
	return s.shard.Health(ctx)
}

func (s *SQLIntervalStore) query(ctx context.Context, q string, args ...interface{}) ([]*models.Interval, error) {
	var intervals []*models.Interval
	err := s.shard.Do(ctx, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			iv, err := scanInterval(rows)
			if err != nil {
				return err
			}
			intervals = append(intervals, iv)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return intervals, nil
}

func scanInterval(rows *sql.Rows) (*models.Interval, error) {
	var (
		iv                    models.Interval
		region, periodType    sql.NullString
		rrp, demand, net      sql.NullFloat64
		sched, semiSched, apc sql.NullFloat64
	)
	if err := rows.Scan(
		&iv.SettlementTS,
		&iv.RegionID,
		&region,
		&rrp,
		&demand,
		&periodType,
		&net,
		&sched,
		&semiSched,
		&apc,
	); err != nil {
		return nil, err
	}

	if region.Valid {
		iv.Region = &region.String
	}
	if rrp.Valid {
		iv.RRP = &rrp.Float64
	}
	if demand.Valid {
		iv.TotalDemand = &demand.Float64
	}
	if periodType.Valid {
		iv.PeriodType = &periodType.String
	}
	if net.Valid {
		iv.NetInterchange = &net.Float64
	}
	if sched.Valid {
		iv.ScheduledGeneration = &sched.Float64
	}
	if semiSched.Valid {
		iv.SemiScheduledGeneration = &semiSched.Float64
	}
	if apc.Valid {
		iv.APCFlag = &apc.Float64
	}
	return &iv, nil
}
