package chainsync

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"

	"cardano-dex-candles/internal/chain"
	"cardano-dex-candles/internal/plutus"
)

// JSON-RPC envelope types for the node gateway protocol.

type wsRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      uint64      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type wsResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *wsError        `json:"error"`
}

type wsError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type wsNotification struct {
	JSONRPC string                `json:"jsonrpc"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64           `json:"subscription"`
	Result       json.RawMessage `json:"result"`
}

// Block payloads.

type wireBlock struct {
	Slot         int64             `json:"slot"`
	Hash         string            `json:"hash"`
	Transactions []wireTransaction `json:"transactions"`
}

type wireTransaction struct {
	Hash      string         `json:"hash"`
	Inputs    []wireInput    `json:"inputs"`
	Outputs   []wireOutput   `json:"outputs"`
	Datums    []wireDatum    `json:"datums,omitempty"`
	Redeemers []wireRedeemer `json:"redeemers,omitempty"`
}

type wireInput struct {
	TxHash string `json:"txHash"`
	Index  int    `json:"index"`
}

type wireOutput struct {
	// Address is the hex-encoded raw address bytes.
	Address string `json:"address"`
	// Value maps asset units to decimal quantity strings.
	Value       map[string]string `json:"value"`
	DatumHash   string            `json:"datumHash,omitempty"`
	InlineDatum *wireData         `json:"inlineDatum,omitempty"`
}

type wireUtxo struct {
	wireInput
	Output wireOutput `json:"output"`
}

type wireDatum struct {
	// CBOR is the hex-encoded serialized datum, hashed for lookup.
	CBOR string   `json:"cbor"`
	JSON wireData `json:"json"`
}

type wireRedeemer struct {
	Purpose string   `json:"purpose"`
	Index   int      `json:"index"`
	Data    wireData `json:"data"`
}

// wireData is the JSON rendering of a Plutus value: exactly one of the
// variant fields is set per node. Integers travel as decimal strings
// since datum integers routinely exceed int64.
type wireData struct {
	Constructor *uint64    `json:"constructor,omitempty"`
	Fields      []wireData `json:"fields,omitempty"`
	Int         *string    `json:"int,omitempty"`
	Bytes       *string    `json:"bytes,omitempty"`
	List        []wireData `json:"list,omitempty"`
	Map         []wirePair `json:"map,omitempty"`
}

type wirePair struct {
	K wireData `json:"k"`
	V wireData `json:"v"`
}

func (d wireData) decode() (plutus.Data, error) {
	switch {
	case d.Constructor != nil:
		fields := make([]plutus.Data, 0, len(d.Fields))
		for i, f := range d.Fields {
			dec, err := f.decode()
			if err != nil {
				return plutus.Data{}, fmt.Errorf("field %d: %w", i, err)
			}
			fields = append(fields, dec)
		}
		return plutus.Data{Kind: plutus.KindConstr, Tag: *d.Constructor, Fields: fields}, nil

	case d.Int != nil:
		v, ok := new(big.Int).SetString(*d.Int, 10)
		if !ok {
			return plutus.Data{}, fmt.Errorf("invalid integer %q", *d.Int)
		}
		return plutus.Data{Kind: plutus.KindInt, Int: v}, nil

	case d.Bytes != nil:
		b, err := hex.DecodeString(*d.Bytes)
		if err != nil {
			return plutus.Data{}, fmt.Errorf("invalid bytes: %w", err)
		}
		return plutus.Data{Kind: plutus.KindBytes, Bytes: b}, nil

	case d.List != nil:
		items := make([]plutus.Data, 0, len(d.List))
		for i, e := range d.List {
			dec, err := e.decode()
			if err != nil {
				return plutus.Data{}, fmt.Errorf("element %d: %w", i, err)
			}
			items = append(items, dec)
		}
		return plutus.Data{Kind: plutus.KindList, List: items}, nil

	case d.Map != nil:
		pairs := make([][2]plutus.Data, 0, len(d.Map))
		for i, p := range d.Map {
			k, err := p.K.decode()
			if err != nil {
				return plutus.Data{}, fmt.Errorf("map key %d: %w", i, err)
			}
			v, err := p.V.decode()
			if err != nil {
				return plutus.Data{}, fmt.Errorf("map value %d: %w", i, err)
			}
			pairs = append(pairs, [2]plutus.Data{k, v})
		}
		return plutus.Data{Kind: plutus.KindMap, Pairs: pairs}, nil

	default:
		// An empty-variant node is a zero-field constructor with the
		// fields array elided, which some encoders produce for unit.
		return plutus.Data{}, fmt.Errorf("empty data node")
	}
}

func (b wireBlock) decode() (chain.Block, error) {
	block := chain.Block{
		Slot: b.Slot,
		Hash: b.Hash,
	}
	for _, wt := range b.Transactions {
		tx, err := wt.decode()
		if err != nil {
			return chain.Block{}, fmt.Errorf("tx %s: %w", wt.Hash, err)
		}
		block.Transactions = append(block.Transactions, tx)
	}
	return block, nil
}

func (t wireTransaction) decode() (chain.Transaction, error) {
	body := chain.TransactionBody{Hash: t.Hash}
	for _, in := range t.Inputs {
		body.Inputs = append(body.Inputs, chain.TxInput{TxHash: in.TxHash, Index: in.Index})
	}
	for i, out := range t.Outputs {
		dec, err := out.decode()
		if err != nil {
			return chain.Transaction{}, fmt.Errorf("output %d: %w", i, err)
		}
		body.Outputs = append(body.Outputs, dec)
	}

	var wits chain.WitnessSet
	for i, wd := range t.Datums {
		raw, err := hex.DecodeString(wd.CBOR)
		if err != nil {
			return chain.Transaction{}, fmt.Errorf("datum %d: %w", i, err)
		}
		data, err := wd.JSON.decode()
		if err != nil {
			return chain.Transaction{}, fmt.Errorf("datum %d: %w", i, err)
		}
		wits.Datums = append(wits.Datums, chain.Datum{Raw: raw, Data: data})
	}
	for i, wr := range t.Redeemers {
		data, err := wr.Data.decode()
		if err != nil {
			return chain.Transaction{}, fmt.Errorf("redeemer %d: %w", i, err)
		}
		wits.Redeemers = append(wits.Redeemers, chain.Redeemer{
			Purpose: wr.Purpose,
			Index:   wr.Index,
			Data:    data,
		})
	}

	return chain.Transaction{Body: body, Witnesses: wits}, nil
}

func (o wireOutput) decode() (chain.TxOutput, error) {
	addr, err := hex.DecodeString(o.Address)
	if err != nil {
		return chain.TxOutput{}, fmt.Errorf("invalid address: %w", err)
	}

	value := make(chain.Value, len(o.Value))
	for unit, qty := range o.Value {
		v, ok := new(big.Int).SetString(qty, 10)
		if !ok {
			return chain.TxOutput{}, fmt.Errorf("invalid quantity %q for %s", qty, unit)
		}
		value[unit] = v
	}

	out := chain.TxOutput{
		Address:   chain.RawAddress(addr),
		Value:     value,
		DatumHash: o.DatumHash,
	}
	if o.InlineDatum != nil {
		data, err := o.InlineDatum.decode()
		if err != nil {
			return chain.TxOutput{}, fmt.Errorf("inline datum: %w", err)
		}
		out.InlineDatum = &data
	}
	return out, nil
}
