package core

import (
	"fmt"
	"math"
	"time"
)

// Timeframe represents a bar interval
type Timeframe string

const (
	Timeframe1m  Timeframe = "1m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe1h  Timeframe = "1h"
	Timeframe4h  Timeframe = "4h"
	Timeframe1d  Timeframe = "1d"
)

// IsValid checks if the timeframe is one of the recognized intervals
func (tf Timeframe) IsValid() bool {
	switch tf {
	case Timeframe1m, Timeframe5m, Timeframe15m, Timeframe1h, Timeframe4h, Timeframe1d:
		return true
	}
	return false
}

// Duration returns the bar interval as a time.Duration
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case Timeframe1m:
		return time.Minute
	case Timeframe5m:
		return 5 * time.Minute
	case Timeframe15m:
		return 15 * time.Minute
	case Timeframe1h:
		return time.Hour
	case Timeframe4h:
		return 4 * time.Hour
	case Timeframe1d:
		return 24 * time.Hour
	}
	return 0
}

// Direction represents the side of a simulated position
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// IsValid checks if the direction is long or short
func (d Direction) IsValid() bool {
	return d == DirectionLong || d == DirectionShort
}

// Bar represents one OHLC candlestick
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// IsValid checks that all prices are finite and Low/High bracket Open/Close
func (b Bar) IsValid() bool {
	for _, p := range []float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return false
		}
	}
	if b.Low > b.High {
		return false
	}
	return b.Open >= b.Low && b.Open <= b.High && b.Close >= b.Low && b.Close <= b.High
}

// Series is an ordered sequence of bars for a single instrument
type Series []Bar

// Validate checks per-bar sanity and strictly increasing timestamps.
// Gaps between bars are tolerated.
func (s Series) Validate() error {
	for i, b := range s {
		if !b.IsValid() {
			return WrapError(ErrInvalidSeries, fmt.Errorf("bar %d: malformed prices", i))
		}
		if i > 0 && !s[i-1].Time.Before(b.Time) {
			return WrapError(ErrInvalidSeries, fmt.Errorf("bar %d: timestamp not after bar %d", i, i-1))
		}
	}
	return nil
}

// EquityPoint records the account balance after a trade settles
type EquityPoint struct {
	Time    time.Time
	Balance float64
}
