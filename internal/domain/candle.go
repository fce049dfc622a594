package domain

import "time"

// Resolution identifies a candle aggregation period.
type Resolution string

// Supported candle resolutions, finest to coarsest.
const (
	Resolution15m Resolution = "15m"
	Resolution1h  Resolution = "1h"
	Resolution1d  Resolution = "1d"
	Resolution1w  Resolution = "1w"
)

// Resolutions lists all supported resolutions ordered finest to coarsest.
// The candle engine relies on this ordering for sub-candle roll-up.
func Resolutions() []Resolution {
	return []Resolution{Resolution15m, Resolution1h, Resolution1d, Resolution1w}
}

// Duration returns the wall-clock length of one candle period.
func (r Resolution) Duration() time.Duration {
	switch r {
	case Resolution15m:
		return 15 * time.Minute
	case Resolution1h:
		return time.Hour
	case Resolution1d:
		return 24 * time.Hour
	case Resolution1w:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// Floor aligns t down to the resolution's period boundary in UTC.
// Weekly candles align to Sunday 00:00 UTC.
func (r Resolution) Floor(t time.Time) time.Time {
	t = t.UTC()
	switch r {
	case Resolution15m, Resolution1h:
		return t.Truncate(r.Duration())
	case Resolution1d:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case Resolution1w:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return day.AddDate(0, 0, -int(day.Weekday()))
	default:
		return t
	}
}

// Previous returns the boundary of the period immediately before the
// period containing t.
func (r Resolution) Previous(t time.Time) time.Time {
	switch r {
	case Resolution1w:
		return r.Floor(t).AddDate(0, 0, -7)
	default:
		return r.Floor(t).Add(-r.Duration())
	}
}

// Finer returns the next finer resolution, or empty for the finest.
// Coarser candles are rolled up from candles of the finer resolution.
func (r Resolution) Finer() Resolution {
	switch r {
	case Resolution1w:
		return Resolution1d
	case Resolution1d:
		return Resolution1h
	case Resolution1h:
		return Resolution15m
	default:
		return ""
	}
}

// Candle is an OHLCV aggregate for one symbol over one period.
// Keyed by (Symbol, Time, Resolution); Time is the period start boundary.
type Candle struct {
	Symbol     string // traded asset unit
	Time       time.Time
	Resolution Resolution
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     float64
}

// Continuation reports whether the candle is a synthesized zero-volume
// gap filler carrying the previous close forward.
func (c *Candle) Continuation() bool {
	return c.Volume == 0 && c.Open == c.High && c.High == c.Low && c.Low == c.Close
}
