package classifier

import (
	"math/big"

	"cardano-dex-candles/internal/domain"
	"cardano-dex-candles/internal/qualifier"
)

// SundaeSwap credentials and protocol constants.
const (
	DexCodeSundaeswap = "sundaeswap"

	sundaeswapPoolCredential  = "ba158766c1bae60e2117ee8987621441fac66a5e0fb9c7aca58cf20a"
	sundaeswapOrderCredential = "6af16f3a9d9c1b8ce29a7b43fc62cd0b7fe9a027c51e2e84de1b40c3"

	// Scooper fee paid to the batching agent and the refundable rider
	// attached to every order, in lovelace.
	sundaeswapScooperFee = 2_500_000
	sundaeswapRider      = 2_000_000
)

// SundaeSwap order action tags.
const (
	sundaeswapActionSwap = iota
	sundaeswapActionDeposit
	sundaeswapActionWithdraw
)

// Sundaeswap classifies swaps scooped through the SundaeSwap pool.
//
// Pool datum: Constr 0 [Constr 0 [assetA, assetB], poolIdent,
// circulatingLP, fee]. Order datum: Constr 0 [poolIdent, destination,
// scooperFee, action] where a swap action is
// Constr 0 [coin, depositAmount, minReceived] and coin Constr 0 [] means
// the order supplies asset A (lovelace), Constr 1 [] asset B.
type Sundaeswap struct{}

// NewSundaeswap creates the SundaeSwap classifier.
func NewSundaeswap() *Sundaeswap {
	return &Sundaeswap{}
}

var _ DexClassifier = (*Sundaeswap)(nil)

// DexCode returns the classifier's code.
func (c *Sundaeswap) DexCode() string { return DexCodeSundaeswap }

// PoolCredentials returns the pool script credential hashes.
func (c *Sundaeswap) PoolCredentials() []string {
	return []string{sundaeswapPoolCredential}
}

// ComputeSwaps reconstructs swaps from a qualified SundaeSwap transaction.
func (c *Sundaeswap) ComputeSwaps(tx qualifier.QualifiedTransaction) []domain.Swap {
	pool, ok := poolDatum(tx)
	if !ok {
		return nil
	}

	pair, ok := pool.ConstrAt(0)
	if !ok {
		return nil
	}
	assetAData, ok := pair.ConstrAt(0)
	if !ok {
		return nil
	}
	assetA, ok := assetUnit(assetAData)
	if !ok {
		return nil
	}
	assetBData, ok := pair.ConstrAt(1)
	if !ok {
		return nil
	}
	assetB, ok := assetUnit(assetBData)
	if !ok {
		return nil
	}

	if assetA != domain.LovelaceUnit || assetB == domain.LovelaceUnit {
		// Token-to-token pools exist but are not priced against the
		// native asset; skip the whole transaction.
		return nil
	}
	tokenUnit := assetB

	matcher := newOutputMatcher(tx.Outputs)
	var swaps []domain.Swap

	for _, order := range orderInputs(tx, sundaeswapOrderCredential) {
		datum, ok := tx.Witnesses.ResolveDatum(order.input.Output)
		if !ok {
			continue
		}

		action, ok := datum.ConstrAt(3)
		if !ok || action.Tag != sundaeswapActionSwap {
			continue
		}
		coin, ok := action.ConstrAt(0)
		if !ok || coin.Tag > 1 {
			continue
		}
		suppliesNative := coin.Tag == 0

		// Destination: Constr 0 [address, datumHashOpt].
		destination, ok := datum.ConstrAt(1)
		if !ok {
			continue
		}
		addrData, ok := destination.FieldAt(0)
		if !ok {
			continue
		}
		receiver, ok := addressFromData(addrData)
		if !ok {
			continue
		}
		out, ok := matcher.Match(receiver)
		if !ok {
			continue
		}

		scooperFee := big.NewInt(sundaeswapScooperFee)
		if fee, ok := datum.IntAt(2); ok {
			scooperFee = fee
		}
		rider := big.NewInt(sundaeswapRider)

		var swap domain.Swap
		if suppliesNative {
			amount1 := order.input.Output.Value.Lovelace()
			amount1.Sub(amount1, scooperFee)
			amount1.Sub(amount1, rider)
			swap = domain.Swap{
				Amount1:   amount1,
				Amount2:   out.Value.Quantity(tokenUnit),
				Operation: domain.OperationBuy,
			}
		} else {
			amount1 := out.Value.Lovelace()
			amount1.Sub(amount1, rider)
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
		swap.DexCode = DexCodeSundaeswap
		swap.Asset1Unit = domain.LovelaceUnit
		swap.Asset2Unit = tokenUnit
		swaps = append(swaps, swap)
	}

	return swaps
}
