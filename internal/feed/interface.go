package feed

import (
	"context"

	"github.com/mhollert/bret/internal/core"
)

// Provider defines the interface for historical bar providers
type Provider interface {
	// Name identifies the provider in config and logs
	Name() string

	// Fetch returns up to count bars for the instrument at the given
	// timeframe, ordered oldest first and ending at the most recent bar
	// the provider knows. A provider with nothing for the instrument
	// returns core.ErrNoData.
	Fetch(ctx context.Context, instrument string, timeframe core.Timeframe, count int) (core.Series, error)
}
