package classifier

import (
	"testing"

	"cardano-dex-candles/internal/chain"
	"cardano-dex-candles/internal/qualifier"
)

func TestDefaultRegistry_PoolCredentials(t *testing.T) {
	pools := DefaultRegistry().PoolCredentials()

	want := map[string]string{
		minswapPoolCredential:    DexCodeMinswap,
		sundaeswapPoolCredential: DexCodeSundaeswap,
		wingridersPoolCredential: DexCodeWingriders,
		muesliswapPoolCredential: DexCodeMuesliswap,
	}
	if len(pools) != len(want) {
		t.Fatalf("credentials = %d, want %d", len(pools), len(want))
	}
	for cred, code := range want {
		if pools[cred] != code {
			t.Errorf("pools[%s] = %s, want %s", cred, pools[cred], code)
		}
	}
}

func TestRegistry_ForCredential(t *testing.T) {
	r := DefaultRegistry()

	c, ok := r.ForCredential(minswapPoolCredential)
	if !ok || c.DexCode() != DexCodeMinswap {
		t.Errorf("ForCredential(minswap) = %v, %v", c, ok)
	}
	if _, ok := r.ForCredential("deadbeef"); ok {
		t.Error("unknown credential should not resolve")
	}
}

func TestRegistry_ComputeSwapsDispatch(t *testing.T) {
	r := DefaultRegistry()

	order := chain.TxOutput{
		Address:     scriptAddr(t, minswapOrderCredential),
		Value:       chain.NewValue(104_000_000),
		InlineDatum: inline(minswapOrderDatum(t, assetData(t, testTokenPolicy, testTokenName))),
	}
	tx := qualifier.QualifiedTransaction{
		TxHash:         "tx1",
		PoolCredential: poolCredential(minswapPoolCredential),
		Slot:           90_000_000,
		Inputs:         []chain.ResolvedInput{orderInputAt(0, order)},
		Outputs: []chain.TxOutput{
			minswapPoolOutput(t),
			{Address: keyAddr(t, testReceiverHash), Value: chain.NewValue(2_000_000).WithAsset(testTokenUnit, 50_000)},
		},
	}

	swaps := r.ComputeSwaps(tx)
	if len(swaps) != 1 || swaps[0].DexCode != DexCodeMinswap {
		t.Errorf("dispatch result = %+v", swaps)
	}

	tx.PoolCredential = poolCredential("deadbeef")
	if swaps := r.ComputeSwaps(tx); swaps != nil {
		t.Errorf("unregistered credential produced %v", swaps)
	}
}
