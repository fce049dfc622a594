// Package chain models the minimal slice of the Cardano ledger the
// pipeline needs: transaction bodies, multi-asset output values, address
// credentials, witness datums/redeemers and slot/time conversion.
package chain

import (
	"math/big"

	"cardano-dex-candles/internal/domain"
)

// Value is a multi-asset bundle keyed by asset unit.
// The native asset uses the reserved "lovelace" unit.
type Value map[string]*big.Int

// NewValue builds a Value from a lovelace quantity.
func NewValue(lovelace int64) Value {
	v := Value{}
	v[domain.LovelaceUnit] = big.NewInt(lovelace)
	return v
}

// WithAsset returns the value with an additional asset quantity set.
func (v Value) WithAsset(unit string, quantity int64) Value {
	v[unit] = big.NewInt(quantity)
	return v
}

// Lovelace returns the native-asset quantity, zero if absent.
func (v Value) Lovelace() *big.Int {
	return v.Quantity(domain.LovelaceUnit)
}

// Quantity returns the quantity of the given unit, zero if absent.
// The returned value is a copy and safe to mutate.
func (v Value) Quantity(unit string) *big.Int {
	if q, ok := v[unit]; ok && q != nil {
		return new(big.Int).Set(q)
	}
	return new(big.Int)
}

// Add accumulates another value into v.
func (v Value) Add(other Value) {
	for unit, q := range other {
		if q == nil {
			continue
		}
		if cur, ok := v[unit]; ok && cur != nil {
			cur.Add(cur, q)
		} else {
			v[unit] = new(big.Int).Set(q)
		}
	}
}

// NonNativeUnits returns the units present besides lovelace.
func (v Value) NonNativeUnits() []string {
	var units []string
	for unit, q := range v {
		if unit == domain.LovelaceUnit || q == nil || q.Sign() == 0 {
			continue
		}
		units = append(units, unit)
	}
	return units
}
