// Package csvfile reads price history from local CSV files, one file per
// instrument, named <instrument>.csv inside a configured directory.
//
// Expected columns: time,open,high,low,close,volume. A header row is
// optional. Timestamps accept RFC3339, unix seconds, or "2006-01-02 15:04:05"
// (interpreted as UTC). Files are assumed to already match the configured
// timeframe.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mhollert/bret/internal/core"
)

// Provider implements the feed Provider interface over a directory of CSVs.
type Provider struct {
	dir string
}

// New creates a CSV provider rooted at dir.
func New(dir string) *Provider {
	return &Provider{dir: dir}
}

func (p *Provider) Name() string {
	return "csv"
}

// Fetch reads <instrument>.csv and returns the last count bars. A shorter
// file returns everything it has.
func (p *Provider) Fetch(ctx context.Context, instrument string, tf core.Timeframe, count int) (core.Series, error) {
	if count <= 0 {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("bar count must be > 0, got %d", count))
	}

	path := filepath.Join(p.dir, instrument+".csv")
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no csv file for %s at %s", instrument, path))
		}
		return nil, core.WrapError(core.ErrProviderFailed, fmt.Errorf("opening %s: %w", path, err))
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, core.WrapError(core.ErrProviderFailed, fmt.Errorf("reading %s: %w", path, err))
	}

	series := make(core.Series, 0, len(records))
	for line, record := range records {
		if line == 0 && isHeader(record) {
			continue
		}
		if len(record) < 6 {
			return nil, core.WrapError(core.ErrProviderFailed, fmt.Errorf("%s line %d: expected 6 fields, got %d", path, line+1, len(record)))
		}

		bar, err := parseBar(record)
		if err != nil {
			return nil, core.WrapError(core.ErrProviderFailed, fmt.Errorf("%s line %d: %w", path, line+1, err))
		}
		series = append(series, bar)
	}

	if len(series) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("%s contains no bars", path))
	}
	if len(series) > count {
		series = series[len(series)-count:]
	}
	return series, nil
}

func isHeader(record []string) bool {
	return len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), "time")
}

func parseBar(record []string) (core.Bar, error) {
	ts, err := parseTime(strings.TrimSpace(record[0]))
	if err != nil {
		return core.Bar{}, err
	}

	var prices [4]float64
	for i := 0; i < 4; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[i+1]), 64)
		if err != nil {
			return core.Bar{}, fmt.Errorf("parsing field %d: %w", i+2, err)
		}
		prices[i] = v
	}

	volume, err := strconv.ParseFloat(strings.TrimSpace(record[5]), 64)
	if err != nil {
		return core.Bar{}, fmt.Errorf("parsing volume: %w", err)
	}

	return core.Bar{
		Time:   ts,
		Open:   prices[0],
		High:   prices[1],
		Low:    prices[2],
		Close:  prices[3],
		Volume: int64(volume),
	}, nil
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}
