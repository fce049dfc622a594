package chainsync

import (
	"encoding/json"
	"testing"

	"cardano-dex-candles/internal/plutus"
)

func decodeWireData(t *testing.T, raw string) plutus.Data {
	t.Helper()
	var wd wireData
	if err := json.Unmarshal([]byte(raw), &wd); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	data, err := wd.decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return data
}

func TestWireData_DecodeConstructor(t *testing.T) {
	data := decodeWireData(t, `{
		"constructor": 1,
		"fields": [
			{"int": "42"},
			{"bytes": "cafe"},
			{"list": [{"int": "1"}, {"int": "2"}]}
		]
	}`)

	if data.Kind != plutus.KindConstr || data.Tag != 1 {
		t.Fatalf("kind/tag = %v/%d", data.Kind, data.Tag)
	}
	if v, ok := data.IntAt(0); !ok || v.Int64() != 42 {
		t.Errorf("field 0 = %v, %v", v, ok)
	}
	if b, ok := data.BytesAt(1); !ok || len(b) != 2 || b[0] != 0xca {
		t.Errorf("field 1 = %x, %v", b, ok)
	}
	if l, ok := data.ListAt(2); !ok || len(l) != 2 {
		t.Errorf("field 2 = %v, %v", l, ok)
	}
}

func TestWireData_DecodeBigInteger(t *testing.T) {
	// Larger than int64.
	data := decodeWireData(t, `{"int": "123456789012345678901234567890"}`)

	if data.Kind != plutus.KindInt {
		t.Fatalf("kind = %v", data.Kind)
	}
	if data.Int.String() != "123456789012345678901234567890" {
		t.Errorf("value = %s", data.Int)
	}
}

func TestWireData_DecodeMap(t *testing.T) {
	data := decodeWireData(t, `{"map": [{"k": {"bytes": "aa"}, "v": {"int": "7"}}]}`)

	if data.Kind != plutus.KindMap || len(data.Pairs) != 1 {
		t.Fatalf("decoded = %+v", data)
	}
	if data.Pairs[0][1].Int.Int64() != 7 {
		t.Errorf("map value = %v", data.Pairs[0][1].Int)
	}
}

func TestWireData_DecodeErrors(t *testing.T) {
	cases := map[string]string{
		"empty node":  `{}`,
		"bad integer": `{"int": "not-a-number"}`,
		"bad bytes":   `{"bytes": "zz"}`,
		"nested":      `{"constructor": 0, "fields": [{"int": "bad"}]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			var wd wireData
			if err := json.Unmarshal([]byte(raw), &wd); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if _, err := wd.decode(); err == nil {
				t.Error("expected decode error")
			}
		})
	}
}

func TestWireBlock_Decode(t *testing.T) {
	raw := `{
		"slot": 90000000,
		"hash": "blockhash",
		"transactions": [{
			"hash": "txhash",
			"inputs": [{"txHash": "aa", "index": 1}],
			"outputs": [{
				"address": "61abababababababababababababababababababababababababababab",
				"value": {"lovelace": "5000000", "c0ee29a8": "100"},
				"datumHash": "dd"
			}],
			"datums": [{"cbor": "d87980", "json": {"constructor": 0, "fields": []}}],
			"redeemers": [{"purpose": "spend", "index": 0, "data": {"int": "2"}}]
		}]
	}`

	var wb wireBlock
	if err := json.Unmarshal([]byte(raw), &wb); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	block, err := wb.decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if block.Slot != 90_000_000 || block.Hash != "blockhash" {
		t.Errorf("block header = %d/%s", block.Slot, block.Hash)
	}
	if len(block.Transactions) != 1 {
		t.Fatalf("transactions = %d", len(block.Transactions))
	}

	tx := block.Transactions[0]
	if tx.Body.Hash != "txhash" || len(tx.Body.Inputs) != 1 || tx.Body.Inputs[0].Index != 1 {
		t.Errorf("body = %+v", tx.Body)
	}

	out := tx.Body.Outputs[0]
	if out.Value.Lovelace().Int64() != 5_000_000 {
		t.Errorf("lovelace = %s", out.Value.Lovelace())
	}
	if out.Value.Quantity("c0ee29a8").Int64() != 100 {
		t.Errorf("asset = %s", out.Value.Quantity("c0ee29a8"))
	}
	if out.DatumHash != "dd" {
		t.Errorf("datum hash = %s", out.DatumHash)
	}

	if len(tx.Witnesses.Datums) != 1 || len(tx.Witnesses.Datums[0].Raw) != 3 {
		t.Errorf("datums = %+v", tx.Witnesses.Datums)
	}
	if len(tx.Witnesses.Redeemers) != 1 || tx.Witnesses.Redeemers[0].Data.Int.Int64() != 2 {
		t.Errorf("redeemers = %+v", tx.Witnesses.Redeemers)
	}
}

func TestWireOutput_DecodeInlineDatum(t *testing.T) {
	raw := `{
		"address": "61abababababababababababababababababababababababababababab",
		"value": {"lovelace": "1"},
		"inlineDatum": {"constructor": 2, "fields": [{"int": "9"}]}
	}`

	var wo wireOutput
	if err := json.Unmarshal([]byte(raw), &wo); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := wo.decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.InlineDatum == nil || out.InlineDatum.Tag != 2 {
		t.Errorf("inline datum = %+v", out.InlineDatum)
	}
}

func TestWireOutput_DecodeBadQuantity(t *testing.T) {
	var wo wireOutput
	if err := json.Unmarshal([]byte(`{"address": "61", "value": {"lovelace": "abc"}}`), &wo); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, err := wo.decode(); err == nil {
		t.Error("expected error for malformed quantity")
	}
}
