package classifier

import (
	"math/big"

	"cardano-dex-candles/internal/chain"
	"cardano-dex-candles/internal/domain"
	"cardano-dex-candles/internal/plutus"
	"cardano-dex-candles/internal/qualifier"
)

// WingRiders credentials and protocol constants.
const (
	DexCodeWingriders = "wingriders"

	wingridersPoolCredential  = "e6c90a5923713af5786963dee0fdffd830ca7e0c86a041d9e5833e91"
	wingridersOrderCredential = "2618e94cdb06792f05ae9b1ec78b0231f4b7f4215b1b4cf52e6342de"

	// Agent fee paid to the batching agent and the oil deposit riding
	// on every request, in lovelace.
	wingridersAgentFee = 2_000_000
	wingridersOil      = 2_000_000
)

// WingRiders request action tags.
const (
	wingridersActionSwap = iota
	wingridersActionAddLiquidity
	wingridersActionWithdraw
)

// Wingriders classifies swaps applied through the WingRiders pool.
//
// Unlike the datum-routed protocols, the order-to-output mapping lives
// in the pool redeemer: the first spend redeemer carries the pool input
// index as a sentinel, the redeemer covering that input carries a list
// of output indices pairing each request input (in input order) with
// the output receiving its proceeds.
//
// Pool datum: Constr 0 [assetA, assetB, treasuryA, treasuryB].
// Request datum: Constr 0 [beneficiary, deadline, action] where a swap
// action is Constr 0 [direction] and direction Constr 0 [] buys the
// token (A supplied), Constr 1 [] sells it.
type Wingriders struct{}

// NewWingriders creates the WingRiders classifier.
func NewWingriders() *Wingriders {
	return &Wingriders{}
}

var _ DexClassifier = (*Wingriders)(nil)

// DexCode returns the classifier's code.
func (c *Wingriders) DexCode() string { return DexCodeWingriders }

// PoolCredentials returns the pool script credential hashes.
func (c *Wingriders) PoolCredentials() []string {
	return []string{wingridersPoolCredential}
}

// ComputeSwaps reconstructs swaps from a qualified WingRiders transaction.
func (c *Wingriders) ComputeSwaps(tx qualifier.QualifiedTransaction) []domain.Swap {
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

	outputIndices, ok := applyIndices(tx.Witnesses)
	if !ok {
		return nil
	}

	matcher := newOutputMatcher(tx.Outputs)
	var swaps []domain.Swap

	for k, order := range orderInputs(tx, wingridersOrderCredential) {
		if k >= len(outputIndices) {
			break
		}

		datum, ok := tx.Witnesses.ResolveDatum(order.input.Output)
		if !ok {
			continue
		}
		action, ok := datum.ConstrAt(2)
		if !ok || action.Tag != wingridersActionSwap {
			continue
		}
		direction, ok := action.ConstrAt(0)
		if !ok || direction.Tag > 1 {
			continue
		}

		out, ok := matcher.MatchIndex(outputIndices[k])
		if !ok {
			continue
		}

		agentFee := big.NewInt(wingridersAgentFee)
		oil := big.NewInt(wingridersOil)

		var swap domain.Swap
		if direction.Tag == 0 {
			amount1 := order.input.Output.Value.Lovelace()
			amount1.Sub(amount1, agentFee)
			amount1.Sub(amount1, oil)
			swap = domain.Swap{
				Amount1:   amount1,
				Amount2:   out.Value.Quantity(tokenUnit),
				Operation: domain.OperationBuy,
			}
		} else {
			amount1 := out.Value.Lovelace()
			amount1.Sub(amount1, oil)
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
		swap.DexCode = DexCodeWingriders
		swap.Asset1Unit = domain.LovelaceUnit
		swap.Asset2Unit = tokenUnit
		swaps = append(swaps, swap)
	}

	return swaps
}

// applyIndices extracts the request-to-output index list from the pool
// redeemer. The first spend redeemer holds the pool input index; the
// redeemer covering that input holds the index list.
func applyIndices(w chain.WitnessSet) ([]int, bool) {
	var spends []chain.Redeemer
	for _, r := range w.Redeemers {
		if r.Purpose == chain.RedeemerPurposeSpend {
			spends = append(spends, r)
		}
	}
	if len(spends) == 0 {
		return nil, false
	}

	sentinel, ok := spends[0].Data.UintAt(0)
	if !ok {
		return nil, false
	}

	var poolRedeemer *chain.Redeemer
	for i := range spends {
		if int64(spends[i].Index) == sentinel {
			poolRedeemer = &spends[i]
			break
		}
	}
	if poolRedeemer == nil {
		return nil, false
	}

	list, ok := poolRedeemer.Data.ListAt(1)
	if !ok {
		return nil, false
	}

	indices := make([]int, 0, len(list))
	for _, item := range list {
		if item.Kind != plutus.KindInt || item.Int == nil || !item.Int.IsInt64() {
			return nil, false
		}
		indices = append(indices, int(item.Int.Int64()))
	}
	return indices, true
}
