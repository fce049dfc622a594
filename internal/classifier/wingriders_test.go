package classifier

import (
	"testing"

	"cardano-dex-candles/internal/chain"
	"cardano-dex-candles/internal/domain"
	"cardano-dex-candles/internal/plutus"
	"cardano-dex-candles/internal/qualifier"
)

func wingridersPoolOutput(t *testing.T) chain.TxOutput {
	t.Helper()
	datum := plutus.NewConstr(0,
		lovelaceData(),
		assetData(t, testTokenPolicy, testTokenName),
		plutus.NewInt(0),
		plutus.NewInt(0),
	)
	return chain.TxOutput{
		Address:     scriptAddr(t, wingridersPoolCredential),
		Value:       chain.NewValue(300_000_000).WithAsset(testTokenUnit, 150_000),
		InlineDatum: inline(datum),
	}
}

func wingridersRequestDatum(t *testing.T, directionTag uint64) plutus.Data {
	t.Helper()
	return plutus.NewConstr(0,
		addrData(t, testReceiverHash),
		plutus.NewInt(1_700_000_000_000),
		plutus.NewConstr(wingridersActionSwap, plutus.NewConstr(directionTag)),
	)
}

// Two requests applied through one pool spend. The request redeemer
// points at the pool input, the pool redeemer lists the output index
// each request pays out to.
func TestWingriders_AppliesRequestsByRedeemerIndices(t *testing.T) {
	buyOrder := chain.TxOutput{
		Address:     scriptAddr(t, wingridersOrderCredential),
		Value:       chain.NewValue(104_000_000),
		InlineDatum: inline(wingridersRequestDatum(t, 0)),
	}
	sellOrder := chain.TxOutput{
		Address:     scriptAddr(t, wingridersOrderCredential),
		Value:       chain.NewValue(4_000_000).WithAsset(testTokenUnit, 40_000),
		InlineDatum: inline(wingridersRequestDatum(t, 1)),
	}
	poolInput := chain.TxOutput{
		Address: scriptAddr(t, wingridersPoolCredential),
		Value:   chain.NewValue(300_000_000).WithAsset(testTokenUnit, 150_000),
	}

	tx := qualifier.QualifiedTransaction{
		TxHash:         "tx1",
		PoolCredential: poolCredential(wingridersPoolCredential),
		Slot:           90_000_000,
		Inputs: []chain.ResolvedInput{
			orderInputAt(0, buyOrder),
			orderInputAt(1, sellOrder),
			orderInputAt(2, poolInput),
		},
		Outputs: []chain.TxOutput{
			wingridersPoolOutput(t),
			{Address: keyAddr(t, testReceiverHash), Value: chain.NewValue(2_000_000).WithAsset(testTokenUnit, 50_000)},
			{Address: keyAddr(t, testReceiverHash), Value: chain.NewValue(102_000_000)},
		},
		Witnesses: chain.WitnessSet{Redeemers: []chain.Redeemer{
			// Request redeemers carry the pool input index as a sentinel.
			{Purpose: chain.RedeemerPurposeSpend, Index: 0, Data: plutus.NewConstr(1, plutus.NewInt(2))},
			{Purpose: chain.RedeemerPurposeSpend, Index: 1, Data: plutus.NewConstr(1, plutus.NewInt(2))},
			// The pool redeemer pairs requests to outputs.
			{Purpose: chain.RedeemerPurposeSpend, Index: 2, Data: plutus.NewConstr(0,
				plutus.NewInt(2),
				plutus.NewList(plutus.NewInt(1), plutus.NewInt(2)),
			)},
		}},
	}

	swaps := NewWingriders().ComputeSwaps(tx)
	if len(swaps) != 2 {
		t.Fatalf("swaps = %d, want 2", len(swaps))
	}

	buy, sell := swaps[0], swaps[1]
	if buy.Operation != domain.OperationBuy {
		t.Errorf("first swap operation = %s", buy.Operation)
	}
	if buy.Amount1.Int64() != 100_000_000 || buy.Amount2.Int64() != 50_000 {
		t.Errorf("buy amounts = %s / %s", buy.Amount1, buy.Amount2)
	}
	if sell.Operation != domain.OperationSell {
		t.Errorf("second swap operation = %s", sell.Operation)
	}
	if sell.Amount1.Int64() != 100_000_000 || sell.Amount2.Int64() != 40_000 {
		t.Errorf("sell amounts = %s / %s", sell.Amount1, sell.Amount2)
	}
}

func TestWingriders_NoPoolRedeemer(t *testing.T) {
	order := chain.TxOutput{
		Address:     scriptAddr(t, wingridersOrderCredential),
		Value:       chain.NewValue(104_000_000),
		InlineDatum: inline(wingridersRequestDatum(t, 0)),
	}
	tx := qualifier.QualifiedTransaction{
		PoolCredential: poolCredential(wingridersPoolCredential),
		Inputs:         []chain.ResolvedInput{orderInputAt(0, order)},
		Outputs: []chain.TxOutput{
			wingridersPoolOutput(t),
			{Address: keyAddr(t, testReceiverHash), Value: chain.NewValue(2_000_000).WithAsset(testTokenUnit, 50_000)},
		},
	}

	if swaps := NewWingriders().ComputeSwaps(tx); swaps != nil {
		t.Errorf("transaction without redeemers produced %v", swaps)
	}
}

func TestWingriders_NonSwapActionSkipped(t *testing.T) {
	datum := plutus.NewConstr(0,
		addrData(t, testReceiverHash),
		plutus.NewInt(0),
		plutus.NewConstr(wingridersActionAddLiquidity, plutus.NewConstr(0)),
	)
	order := chain.TxOutput{
		Address:     scriptAddr(t, wingridersOrderCredential),
		Value:       chain.NewValue(104_000_000),
		InlineDatum: inline(datum),
	}
	tx := qualifier.QualifiedTransaction{
		PoolCredential: poolCredential(wingridersPoolCredential),
		Inputs: []chain.ResolvedInput{
			orderInputAt(0, order),
			orderInputAt(1, chain.TxOutput{Address: scriptAddr(t, wingridersPoolCredential), Value: chain.NewValue(1)}),
		},
		Outputs: []chain.TxOutput{
			wingridersPoolOutput(t),
			{Address: keyAddr(t, testReceiverHash), Value: chain.NewValue(2_000_000).WithAsset(testTokenUnit, 50_000)},
		},
		Witnesses: chain.WitnessSet{Redeemers: []chain.Redeemer{
			{Purpose: chain.RedeemerPurposeSpend, Index: 0, Data: plutus.NewConstr(1, plutus.NewInt(1))},
			{Purpose: chain.RedeemerPurposeSpend, Index: 1, Data: plutus.NewConstr(0,
				plutus.NewInt(1),
				plutus.NewList(plutus.NewInt(1)),
			)},
		}},
	}

	if swaps := NewWingriders().ComputeSwaps(tx); len(swaps) != 0 {
		t.Errorf("liquidity request produced %d swaps", len(swaps))
	}
}
