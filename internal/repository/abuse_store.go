package repository

import (
	"context"
	"database/sql"

	"GridPull/internal/domain/repository"
	"GridPull/internal/store"
)

const abuseSchema = `
CREATE TABLE IF NOT EXISTS abuse (
	ip         TEXT    NOT NULL,
	asn        TEXT    NOT NULL,
	session_id TEXT    NOT NULL,
	ts         INTEGER NOT NULL,
	PRIMARY KEY (ip, asn, session_id, ts)
)`

// SQLAbuseStore implements AbuseStore over the abuse shard.
type SQLAbuseStore struct {
	shard *store.Shard
}

// NewAbuseStore creates abuse-tracking storage on the given shard.
func NewAbuseStore(shard *store.Shard) repository.AbuseStore {
	return &SQLAbuseStore{shard: shard}
}

func (s *SQLAbuseStore) Init(ctx context.Context) error {
	return s.shard.Do(ctx, func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, abuseSchema)
		return err
	})
}

// Reserve runs the whole admission check as one job on the shard's executor:
// prune rows older than cutoffMS, count requests matching exactly
// (ip, asn, sessionID), and record the request at nowMS only when the count
// is below max. The single executor keeps concurrent callers from
// interleaving the count with the insert, so at most max requests are ever
// admitted per window. Denials record nothing.
func (s *SQLAbuseStore) Reserve(ctx context.Context, ip, asn, sessionID string, cutoffMS, nowMS int64, max int) (bool, error) {
	allowed := false
	err := s.shard.Do(ctx, func(db *sql.DB) error {
		if _, err := db.ExecContext(ctx, "DELETE FROM abuse WHERE ts < ?", cutoffMS); err != nil {
			return err
		}

		var count int
		row := db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM abuse WHERE ip = ? AND asn = ? AND session_id = ?",
			ip, asn, sessionID,
		)
		if err := row.Scan(&count); err != nil {
			return err
		}
		if count >= max {
			return nil
		}

		if _, err := db.ExecContext(ctx,
			"INSERT OR IGNORE INTO abuse (ip, asn, session_id, ts) VALUES (?, ?, ?, ?)",
			ip, asn, sessionID, nowMS,
		); err != nil {
			return err
		}
		allowed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return allowed, nil
}

func (s *SQLAbuseStore) Health(ctx context.Context) error {
	return s.shard.Health(ctx)
}
