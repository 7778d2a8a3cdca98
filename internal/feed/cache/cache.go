// Package cache wraps a feed Provider with a SQLite bar store so repeated
// runs against the same instrument and timeframe skip the network.
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/mhollert/bret/internal/core"
	"github.com/mhollert/bret/internal/feed"
)

const schema = `
CREATE TABLE IF NOT EXISTS bars (
	instrument TEXT NOT NULL,
	timeframe  TEXT NOT NULL,
	ts         INTEGER NOT NULL,
	open       REAL NOT NULL,
	high       REAL NOT NULL,
	low        REAL NOT NULL,
	close      REAL NOT NULL,
	volume     INTEGER NOT NULL,
	PRIMARY KEY (instrument, timeframe, ts)
);

CREATE TABLE IF NOT EXISTS fetches (
	instrument TEXT NOT NULL,
	timeframe  TEXT NOT NULL,
	fetched_at INTEGER NOT NULL,
	bar_count  INTEGER NOT NULL,
	PRIMARY KEY (instrument, timeframe)
);
`

// Cache decorates another Provider with SQLite-backed storage. A fetch is
// served locally when the last upstream fetch is younger than maxAge and
// stored at least count bars. Timestamps are kept at second resolution.
type Cache struct {
	inner  feed.Provider
	db     *sql.DB
	maxAge time.Duration
	log    *zap.Logger
}

// New opens (or creates) the cache database at path.
func New(inner feed.Provider, path string, maxAge time.Duration, log *zap.Logger) (*Cache, error) {
	if log == nil {
		log = zap.NewNop()
	}

	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, core.WrapError(core.ErrProviderFailed, fmt.Errorf("opening cache db: %w", err))
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, core.WrapError(core.ErrProviderFailed, fmt.Errorf("creating cache schema: %w", err))
	}

	return &Cache{inner: inner, db: db, maxAge: maxAge, log: log}, nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Name reports the wrapped provider's name; the cache is transparent.
func (c *Cache) Name() string {
	return c.inner.Name()
}

func (c *Cache) Fetch(ctx context.Context, instrument string, tf core.Timeframe, count int) (core.Series, error) {
	if series, ok := c.lookup(ctx, instrument, tf, count); ok {
		c.log.Debug("cache hit",
			zap.String("instrument", instrument),
			zap.String("timeframe", string(tf)),
			zap.Int("bars", len(series)))
		return series, nil
	}

	series, err := c.inner.Fetch(ctx, instrument, tf, count)
	if err != nil {
		return nil, err
	}

	if err := c.store(ctx, instrument, tf, series); err != nil {
		// A broken cache must not fail the run.
		c.log.Warn("cache store failed",
			zap.String("instrument", instrument),
			zap.Error(err))
	}
	return series, nil
}

func (c *Cache) lookup(ctx context.Context, instrument string, tf core.Timeframe, count int) (core.Series, bool) {
	if c.maxAge <= 0 {
		return nil, false
	}

	var fetchedAt, barCount int64
	err := c.db.QueryRowContext(ctx,
		`SELECT fetched_at, bar_count FROM fetches WHERE instrument = ? AND timeframe = ?`,
		instrument, string(tf),
	).Scan(&fetchedAt, &barCount)
	if err != nil {
		return nil, false
	}
	if time.Since(time.Unix(fetchedAt, 0)) > c.maxAge || barCount < int64(count) {
		return nil, false
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT ts, open, high, low, close, volume FROM bars
		 WHERE instrument = ? AND timeframe = ?
		 ORDER BY ts DESC LIMIT ?`,
		instrument, string(tf), count,
	)
	if err != nil {
		return nil, false
	}
	defer rows.Close()

	var series core.Series
	for rows.Next() {
		var ts, volume int64
		var open, high, low, closePrice float64
		if err := rows.Scan(&ts, &open, &high, &low, &closePrice, &volume); err != nil {
			return nil, false
		}
		series = append(series, core.Bar{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}
	if err := rows.Err(); err != nil || len(series) < count {
		return nil, false
	}

	// Newest-first query; flip back to ascending.
	for i, j := 0, len(series)-1; i < j; i, j = i+1, j-1 {
		series[i], series[j] = series[j], series[i]
	}
	return series, true
}

func (c *Cache) store(ctx context.Context, instrument string, tf core.Timeframe, series core.Series) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM bars WHERE instrument = ? AND timeframe = ?`,
		instrument, string(tf),
	); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO bars (instrument, timeframe, ts, open, high, low, close, volume)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, bar := range series {
		if _, err := stmt.ExecContext(ctx,
			instrument, string(tf), bar.Time.Unix(),
			bar.Open, bar.High, bar.Low, bar.Close, bar.Volume,
		); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO fetches (instrument, timeframe, fetched_at, bar_count)
		 VALUES (?, ?, ?, ?)`,
		instrument, string(tf), time.Now().Unix(), len(series),
	); err != nil {
		return err
	}

	return tx.Commit()
}
