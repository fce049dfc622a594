package classifier

import (
	"math/big"

	"cardano-dex-candles/internal/domain"
	"cardano-dex-candles/internal/qualifier"
)

// MuesliSwap credentials and protocol constants.
const (
	DexCodeMuesliswap = "muesliswap"

	muesliswapPoolCredential  = "918dcab22bd0e91e7a1be4e3dc6b83a12b86b159e06be1cc0d61f945"
	muesliswapOrderCredential = "f8134cfc1cf4c0a48b8e1ecc4af3e60e7a7ae82f5a67c4ce6426bd11"

	// Refundable order deposit, in lovelace.
	muesliswapDeposit = 1_700_000

	// Matchmaker fee schedule. The flat fee was replaced with a
	// size-tiered schedule at the slot below; large orders pay the
	// reduced fee since then.
	muesliswapFeeChangeSlot = 66_656_000
	muesliswapFlatFee       = 950_000
	muesliswapReducedFee    = 500_000
	muesliswapLargeOrderAda = 1_000_000_000
)

// MuesliSwap order step tags.
const (
	muesliswapStepSwap = iota
	muesliswapStepPartialSwap
	muesliswapStepDeposit
	muesliswapStepWithdraw
)

// Muesliswap classifies swaps matched through the MuesliSwap pool.
//
// Pool datum: Constr 0 [assetA, assetB, totalLp]. Order datum:
// Constr 0 [creator, buyAsset, amount, step] where step Constr 0 []
// is a full swap; partial swaps (Constr 1) carry resting state and are
// not priced.
type Muesliswap struct{}

// NewMuesliswap creates the MuesliSwap classifier.
func NewMuesliswap() *Muesliswap {
	return &Muesliswap{}
}

var _ DexClassifier = (*Muesliswap)(nil)

// DexCode returns the classifier's code.
func (c *Muesliswap) DexCode() string { return DexCodeMuesliswap }

// PoolCredentials returns the pool script credential hashes.
func (c *Muesliswap) PoolCredentials() []string {
	return []string{muesliswapPoolCredential}
}

// matchmakerFee returns the fee in force at the given slot for an
// order supplying the given lovelace amount.
func matchmakerFee(slot int64, orderLovelace *big.Int) *big.Int {
	if slot < muesliswapFeeChangeSlot {
		return big.NewInt(muesliswapFlatFee)
	}
	if orderLovelace.Cmp(big.NewInt(muesliswapLargeOrderAda)) >= 0 {
		return big.NewInt(muesliswapReducedFee)
	}
	return big.NewInt(muesliswapFlatFee)
}

// ComputeSwaps reconstructs swaps from a qualified MuesliSwap transaction.
func (c *Muesliswap) ComputeSwaps(tx qualifier.QualifiedTransaction) []domain.Swap {
	pool, ok := poolDatum(tx)
	if !ok {
		return nil
	}

	assetAData, ok := pool.ConstrAt(0)
	if !ok {
		return nil
	}
	assetA, ok := assetUnit(assetAData)
	if !ok {
		return nil
	}
	assetBData, ok := pool.ConstrAt(1)
	if !ok {
		return nil
	}
	assetB, ok := assetUnit(assetBData)
	if !ok {
		return nil
	}
	if assetA != domain.LovelaceUnit || assetB == domain.LovelaceUnit {
		return nil
	}
	tokenUnit := assetB

	matcher := newOutputMatcher(tx.Outputs)
	var swaps []domain.Swap

	for _, order := range orderInputs(tx, muesliswapOrderCredential) {
		datum, ok := tx.Witnesses.ResolveDatum(order.input.Output)
		if !ok {
			continue
		}

		step, ok := datum.ConstrAt(3)
		if !ok || step.Tag != muesliswapStepSwap {
			continue
		}
		buyAsset, ok := datum.ConstrAt(1)
		if !ok {
			continue
		}
		buyUnit, ok := assetUnit(buyAsset)
		if !ok {
			continue
		}

		creatorData, ok := datum.FieldAt(0)
		if !ok {
			continue
		}
		creator, ok := addressFromData(creatorData)
		if !ok {
			continue
		}
		out, ok := matcher.Match(creator)
		if !ok {
			continue
		}

		deposit := big.NewInt(muesliswapDeposit)
		inputLovelace := order.input.Output.Value.Lovelace()
		fee := matchmakerFee(tx.Slot, inputLovelace)

		var swap domain.Swap
		if buyUnit == tokenUnit {
			amount1 := new(big.Int).Set(inputLovelace)
			amount1.Sub(amount1, fee)
			amount1.Sub(amount1, deposit)
			swap = domain.Swap{
				Amount1:   amount1,
				Amount2:   out.Value.Quantity(tokenUnit),
				Operation: domain.OperationBuy,
			}
		} else if buyUnit == domain.LovelaceUnit {
			amount1 := out.Value.Lovelace()
			amount1.Sub(amount1, deposit)
			swap = domain.Swap{
				Amount1:   amount1,
				Amount2:   order.input.Output.Value.Quantity(tokenUnit),
				Operation: domain.OperationSell,
			}
		} else {
			// Order for a different pair routed through this pool.
			continue
		}

		if swap.Amount1.Sign() <= 0 || swap.Amount2.Sign() <= 0 {
			continue
		}

		swap.TxHash = tx.TxHash
		swap.Slot = tx.Slot
		swap.EventIndex = len(swaps)
		swap.DexCode = DexCodeMuesliswap
		swap.Asset1Unit = domain.LovelaceUnit
		swap.Asset2Unit = tokenUnit
		swaps = append(swaps, swap)
	}

	return swaps
}
