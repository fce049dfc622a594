package domain

import "math/big"

// LovelaceUnit is the reserved unit identifier for the chain's native asset.
const LovelaceUnit = "lovelace"

// LovelaceDecimals is the fixed decimal precision of the native asset.
const LovelaceDecimals = 6

// Swap operation constants. Operation is the direction of asset2
// relative to asset1 (asset1 is always the quote leg, normally lovelace).
const (
	OperationBuy  = "buy"
	OperationSell = "sell"
)

// Swap is an immutable fact reconstructed from a qualified DEX transaction.
// Amounts are in the smallest denomination of each asset.
type Swap struct {
	TxHash     string   // transaction hash
	Slot       int64    // chain slot the transaction was included at
	EventIndex int      // index of the swap within the transaction
	DexCode    string   // code of the DEX the swap executed on
	Asset1Unit string   // quote asset unit ("lovelace" for the native asset)
	Asset2Unit string   // traded asset unit (policy+name hex)
	Amount1    *big.Int // quote leg amount, > 0
	Amount2    *big.Int // traded leg amount, > 0
	Operation  string   // OperationBuy | OperationSell
}

// Valid reports whether both amounts are strictly positive.
// A swap failing this must be discarded, never persisted.
func (s *Swap) Valid() bool {
	if s.Amount1 == nil || s.Amount2 == nil {
		return false
	}
	return s.Amount1.Sign() > 0 && s.Amount2.Sign() > 0
}
