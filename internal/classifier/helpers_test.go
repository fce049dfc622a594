package classifier

import (
	"encoding/hex"
	"testing"

	"cardano-dex-candles/internal/chain"
	"cardano-dex-candles/internal/plutus"
)

// Shared fixture material. The token policy is an arbitrary 28-byte
// script hash; the name decodes to "MILK".
const (
	testTokenPolicy = "c0ee29a85b13209423b10447d3c2e6a50641a15c57770e27cb9d5073"
	testTokenName   = "4d494c4b"
	testTokenUnit   = testTokenPolicy + testTokenName

	testReceiverHash = "abababababababababababababababababababababababababababab"
	testSenderHash   = "cdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcd"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex fixture %q: %v", s, err)
	}
	return b
}

func scriptAddr(t *testing.T, credHash string) chain.RawAddress {
	t.Helper()
	addr, ok := chain.BuildAddress(chain.Credential{Hash: credHash, IsScript: true}, nil)
	if !ok {
		t.Fatalf("cannot build script address for %s", credHash)
	}
	return addr
}

func keyAddr(t *testing.T, credHash string) chain.RawAddress {
	t.Helper()
	addr, ok := chain.BuildAddress(chain.Credential{Hash: credHash}, nil)
	if !ok {
		t.Fatalf("cannot build key address for %s", credHash)
	}
	return addr
}

// assetData builds the on-chain [policy, name] asset constructor.
func assetData(t *testing.T, policyHex, nameHex string) plutus.Data {
	t.Helper()
	return plutus.NewConstr(0, plutus.NewBytes(mustHex(t, policyHex)), plutus.NewBytes(mustHex(t, nameHex)))
}

func lovelaceData() plutus.Data {
	return plutus.NewConstr(0, plutus.NewBytes(nil), plutus.NewBytes(nil))
}

// addrData builds the datum form of an enterprise key address.
func addrData(t *testing.T, payHash string) plutus.Data {
	t.Helper()
	return plutus.NewConstr(0,
		plutus.NewConstr(0, plutus.NewBytes(mustHex(t, payHash))),
		plutus.NewConstr(1),
	)
}

func inline(d plutus.Data) *plutus.Data {
	return &d
}

func poolCredential(hash string) chain.Credential {
	return chain.Credential{Hash: hash, IsScript: true}
}

// orderInputAt wraps an order UTXO as a resolved input at the given
// position in the transaction's input list.
func orderInputAt(i int, out chain.TxOutput) chain.ResolvedInput {
	return chain.ResolvedInput{
		TxInput: chain.TxInput{TxHash: "aa", Index: i},
		Output:  out,
	}
}
