// Package candles aggregates a price stream into dense multi-resolution
// OHLCV candles under a boundary-crossing trigger model.
package candles

import (
	"time"

	"cardano-dex-candles/internal/domain"
)

// TriggerType classifies what the engine must do for a period.
type TriggerType string

// Trigger types.
const (
	// TriggerFinalise closes the previous period: its candle set is
	// computed from everything buffered strictly before the boundary.
	TriggerFinalise TriggerType = "FINALISE"
	// TriggerInitialise warm-starts the new period from the block that
	// crossed the boundary.
	TriggerInitialise TriggerType = "INITIALISE"
	// TriggerUpdate recomputes the still-open period's candles.
	TriggerUpdate TriggerType = "UPDATE"
)

// Trigger is one unit of candle work for a resolution.
type Trigger struct {
	Type   TriggerType
	Period time.Time
	Prices []domain.Price
}

// DetermineTriggers decides, for one resolution, what candle work a new
// block implies. Pure function: identical inputs always produce the
// identical trigger list.
//
// previous is the last confirmed period boundary, current the boundary
// of the period containing the new block. buffered must already include
// the incoming prices; incoming is just this block's share. Buffered
// prices outside the fired trigger's window are excluded, so a late
// recovery for an already-closed period never leaks into another
// period's candle.
func DetermineTriggers(
	res domain.Resolution,
	bootstrapping bool,
	previous, current time.Time,
	buffered, incoming []domain.Price,
) []Trigger {
	if current.Equal(previous) {
		// No boundary crossed; recompute the open period if there is
		// anything new. Historical replay skips the churn.
		if bootstrapping || len(incoming) == 0 {
			return nil
		}
		return []Trigger{{
			Type:   TriggerUpdate,
			Period: current,
			Prices: window(buffered, current, current.Add(res.Duration())),
		}}
	}

	triggers := []Trigger{{
		Type:   TriggerFinalise,
		Period: res.Previous(current),
		Prices: window(buffered, previous, current),
	}}

	if !bootstrapping {
		triggers = append(triggers, Trigger{
			Type:   TriggerInitialise,
			Period: current,
			Prices: incoming,
		})
	}
	return triggers
}

// window keeps the prices whose time falls inside [start, end).
func window(prices []domain.Price, start, end time.Time) []domain.Price {
	var out []domain.Price
	for _, p := range prices {
		if !p.Time.Before(start) && p.Time.Before(end) {
			out = append(out, p)
		}
	}
	return out
}
