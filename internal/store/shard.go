package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/glebarez/go-sqlite"
)

// ErrShardClosed is returned for operations submitted after Close.
var ErrShardClosed = errors.New("store: shard closed")

// Shard is a key-addressed actor wrapping an embedded SQLite database. All
// operations against one shard execute one-at-a-time on a single goroutine
// that owns the database handle, so callers never need external locking.
// Different shards are fully independent.
type Shard struct {
	name string
	db   *sql.DB
	jobs chan job

	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

type job struct {
	fn    func(db *sql.DB) error
	reply chan error
}

// Open opens (creating if needed) the shard's database file under dataDir,
// named after the shard, and starts its executor goroutine.
func Open(dataDir, name string) (*Shard, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	path := filepath.Join(dataDir, name+".db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open shard %s: %w", name, err)
	}
	// The executor is the only user of this handle.
	db.SetMaxOpenConns(1)

	s := &Shard{
		name:    name,
		db:      db,
		jobs:    make(chan job),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.loop()
	return s, nil
}

// Name returns the shard's logical name.
func (s *Shard) Name() string { return s.name }

// Do submits fn to the shard's executor and waits for its result. Submissions
// honor ctx cancellation while queued; once running, fn owns the handle until
// it returns.
func (s *Shard) Do(ctx context.Context, fn func(db *sql.DB) error) error {
	j := job{fn: fn, reply: make(chan error, 1)}

	select {
	case s.jobs <- j:
	case <-s.done:
		return ErrShardClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-j.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Tx runs fn inside a transaction on the shard's executor.
func (s *Shard) Tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return s.Do(ctx, func(db *sql.DB) error {
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

// Health pings the underlying database through the executor.
func (s *Shard) Health(ctx context.Context) error {
	return s.Do(ctx, func(db *sql.DB) error {
		return db.PingContext(ctx)
	})
}

// Close stops the executor and closes the database. In-flight work finishes
// first; later submissions fail with ErrShardClosed.
func (s *Shard) Close() error {
	s.once.Do(func() {
		close(s.done)
		<-s.stopped
	})
	return s.db.Close()
}

func (s *Shard) loop() {
	defer close(s.stopped)
	for {
		select {
		case j := <-s.jobs:
			j.reply <- j.fn(s.db)
		case <-s.done:
			return
		}
	}
}
