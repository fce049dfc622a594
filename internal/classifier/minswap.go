package classifier

import (
	"math/big"

	"cardano-dex-candles/internal/domain"
	"cardano-dex-candles/internal/qualifier"
)

// Minswap credentials and protocol constants.
const (
	DexCodeMinswap = "minswap"

	minswapPoolCredential  = "4c1f01e58ed3c2cf2a29d7e0a21bd2a903fcdb0e9a825bb3e4079e57"
	minswapOrderCredential = "a7e5d2bd3c11f0e42e1087b5c7a8d43b91f6504cdd23a82ee09c6d1f"

	// Fixed batcher fee and refundable output deposit attached to
	// every order, in lovelace.
	minswapBatcherFee = 2_000_000
	minswapDepositAda = 2_000_000
)

// Minswap order step tags. Only exact-in swaps become price facts.
const (
	minswapStepSwapExactIn = iota
	minswapStepSwapExactOut
	minswapStepDeposit
	minswapStepWithdraw
	minswapStepZapIn
)

// Minswap classifies swaps batched through the Minswap pool contract.
//
// Pool datum: Constr 0 [assetA, assetB, totalLiquidity, rootKLast, profitSharing]
// Order datum: Constr 0 [sender, receiver, receiverDatumHash,
// step, batcherFee, outputAda] where step Constr 0 [desiredAsset, minReceive]
// is an exact-in swap.
type Minswap struct{}

// NewMinswap creates the Minswap classifier.
func NewMinswap() *Minswap {
	return &Minswap{}
}

var _ DexClassifier = (*Minswap)(nil)

// DexCode returns the classifier's code.
func (c *Minswap) DexCode() string { return DexCodeMinswap }

// PoolCredentials returns the pool script credential hashes.
func (c *Minswap) PoolCredentials() []string {
	return []string{minswapPoolCredential}
}

// ComputeSwaps reconstructs swaps from a qualified Minswap transaction.
func (c *Minswap) ComputeSwaps(tx qualifier.QualifiedTransaction) []domain.Swap {
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

	// The pool orders its pair with the native asset first; the traded
	// asset is whichever leg is not lovelace.
	tokenUnit := assetB
	if assetA != domain.LovelaceUnit {
		tokenUnit = assetA
	}
	if tokenUnit == domain.LovelaceUnit {
		return nil
	}

	matcher := newOutputMatcher(tx.Outputs)
	var swaps []domain.Swap

	for _, order := range orderInputs(tx, minswapOrderCredential) {
		datum, ok := tx.Witnesses.ResolveDatum(order.input.Output)
		if !ok {
			continue
		}

		step, ok := datum.ConstrAt(3)
		if !ok || step.Tag != minswapStepSwapExactIn {
			// Deposits, withdrawals, zaps and exact-out orders are
			// legitimate pool operations but not price facts.
			continue
		}
		desired, ok := step.ConstrAt(0)
		if !ok {
			continue
		}
		desiredUnit, ok := assetUnit(desired)
		if !ok {
			continue
		}

		receiverData, ok := datum.FieldAt(1)
		if !ok {
			continue
		}
		receiver, ok := addressFromData(receiverData)
		if !ok {
			continue
		}
		out, ok := matcher.Match(receiver)
		if !ok {
			continue
		}

		batcherFee := big.NewInt(minswapBatcherFee)
		if fee, ok := datum.IntAt(4); ok {
			batcherFee = fee
		}
		deposit := big.NewInt(minswapDepositAda)
		if d, ok := datum.IntAt(5); ok {
			deposit = d
		}

		var swap domain.Swap
		if desiredUnit == tokenUnit {
			// Buying the token: the order input carries lovelace plus
			// fee and deposit; proceeds are the token in the output.
			amount1 := order.input.Output.Value.Lovelace()
			amount1.Sub(amount1, batcherFee)
			amount1.Sub(amount1, deposit)
			swap = domain.Swap{
				Amount1:   amount1,
				Amount2:   out.Value.Quantity(tokenUnit),
				Operation: domain.OperationBuy,
			}
		} else {
			// Selling the token: proceeds are lovelace in the output,
			// minus the refunded deposit riding along.
			amount1 := out.Value.Lovelace()
			amount1.Sub(amount1, deposit)
			swap = domain.Swap{
				Amount1:   amount1,
				Amount2:   order.input.Output.Value.Quantity(tokenUnit),
				Operation: domain.OperationSell,
			}
		}

		if swap.Amount1.Sign() <= 0 || swap.Amount2.Sign() <= 0 {
			continue
		}

		swap.TxHash = tx.TxHash
		swap.Slot = tx.Slot
		swap.EventIndex = len(swaps)
		swap.DexCode = DexCodeMinswap
		swap.Asset1Unit = domain.LovelaceUnit
		swap.Asset2Unit = tokenUnit
		swaps = append(swaps, swap)
	}

	return swaps
}
