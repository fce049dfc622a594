package candles

import (
	"math/big"
	"sort"
	"time"

	"cardano-dex-candles/internal/domain"
)

// syntheticSeedCount is how many previous-midpoint anchor points seed
// the outlier test for continuity across periods.
const syntheticSeedCount = 3

// pricePoint is one price observation inside a candle period.
type pricePoint struct {
	time      time.Time
	price     float64
	volume    float64 // quote-leg volume in whole quote units
	synthetic bool
	source    *domain.Price // nil for synthetic anchors
}

// quoteVolume converts the raw quote-leg amount to whole quote units.
func quoteVolume(amount *big.Int) float64 {
	if amount == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(amount).Float64()
	return f / 1e6
}

// buildFromPrices constructs one symbol's candle for a period from its
// price points, with outlier rejection. Returns the candle (nil when
// there is nothing to build at all) and the prices flagged as outliers.
//
// Rules, preserved exactly for series compatibility:
//   - close: price of the temporally-last kept point; ties on the
//     timestamp resolve to the minimum price.
//   - open: previous candle's close when that candle covers the
//     immediately preceding period, else the first kept point.
//   - high/low: extremes over kept points unioned with the open.
//   - volume: sum over all raw points, outliers included.
func buildFromPrices(symbol string, res domain.Resolution, period time.Time, prices []domain.Price, prev *domain.Candle) (*domain.Candle, []domain.Price) {
	points := make([]pricePoint, 0, len(prices)+syntheticSeedCount)
	for i := range prices {
		p := &prices[i]
		points = append(points, pricePoint{
			time:   p.Time,
			price:  p.Price,
			volume: quoteVolume(p.Amount1),
			source: p,
		})
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].time.Before(points[j].time)
	})

	// Seed the outlier test with the previous candle's midpoint so a
	// lone wild print at the start of a period gets rejected against
	// the established price level, not against itself.
	if prev != nil {
		mid := (prev.Open + prev.Close) / 2
		for i := 0; i < syntheticSeedCount; i++ {
			points = append(points, pricePoint{time: period, price: mid, synthetic: true})
		}
	}

	kept, removed := filterOutliers(points)

	var flagged []domain.Price
	for _, p := range removed {
		if p.source == nil {
			continue
		}
		outlier := true
		fp := *p.source
		fp.Outlier = &outlier
		flagged = append(flagged, fp)
	}

	var real []pricePoint
	for _, p := range kept {
		if !p.synthetic {
			real = append(real, p)
		}
	}

	if len(real) == 0 {
		if prev == nil {
			return nil, flagged
		}
		return &domain.Candle{
			Symbol:     symbol,
			Time:       period,
			Resolution: res,
			Open:       prev.Close,
			High:       prev.Close,
			Low:        prev.Close,
			Close:      prev.Close,
			Volume:     0,
		}, flagged
	}

	closePoint := real[0]
	for _, p := range real[1:] {
		switch {
		case p.time.After(closePoint.time):
			closePoint = p
		case p.time.Equal(closePoint.time) && p.price < closePoint.price:
			closePoint = p
		}
	}

	open := real[0].price
	if prev != nil && prev.Time.Equal(res.Previous(period)) {
		open = prev.Close
	}

	high, low := open, open
	for _, p := range real {
		if p.price > high {
			high = p.price
		}
		if p.price < low {
			low = p.price
		}
	}

	volume := 0.0
	for _, p := range points {
		if !p.synthetic {
			volume += p.volume
		}
	}

	return &domain.Candle{
		Symbol:     symbol,
		Time:       period,
		Resolution: res,
		Open:       open,
		High:       high,
		Low:        low,
		Close:      closePoint.price,
		Volume:     volume,
	}, flagged
}

// buildFromSubCandles rolls already-built finer-resolution candles up
// into one coarser candle. Same open-determination rule as the price
// path; volume is the plain sum of sub-candle volumes.
func buildFromSubCandles(symbol string, res domain.Resolution, period time.Time, subs []*domain.Candle, prev *domain.Candle) *domain.Candle {
	if len(subs) == 0 {
		return nil
	}

	sorted := make([]*domain.Candle, len(subs))
	copy(sorted, subs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	open := sorted[0].Open
	if prev != nil && prev.Time.Equal(res.Previous(period)) {
		open = prev.Close
	}

	high, low := open, open
	volume := 0.0
	for _, s := range sorted {
		if s.High > high {
			high = s.High
		}
		if s.Low < low {
			low = s.Low
		}
		volume += s.Volume
	}

	return &domain.Candle{
		Symbol:     symbol,
		Time:       period,
		Resolution: res,
		Open:       open,
		High:       high,
		Low:        low,
		Close:      sorted[len(sorted)-1].Close,
		Volume:     volume,
	}
}
