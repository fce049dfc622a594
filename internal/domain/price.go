package domain

import (
	"math/big"
	"time"
)

// Price is a swap converted to a decimal price once the decimal
// precision of both legs is known. Keyed by (Time, TxHash, SwapIndex).
type Price struct {
	Time           time.Time // wall-clock time of the swap's slot
	TxHash         string    // originating transaction hash
	SwapIndex      int       // index of the swap within the transaction
	Slot           int64     // originating slot
	AssetUnit      string    // traded asset (candle symbol)
	QuoteAssetUnit string    // quote asset, normally "lovelace"
	Provider       string    // pricing provider code
	Price          float64   // quote units per traded unit, decimal-adjusted
	Amount1        *big.Int  // raw quote leg amount
	Amount2        *big.Int  // raw traded leg amount
	Operation      string    // OperationBuy | OperationSell
	Outlier        *bool     // set by the candle engine's outlier filter
}
