package chain

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"

	"cardano-dex-candles/internal/plutus"
)

// TxInput references an output of an earlier transaction.
type TxInput struct {
	TxHash string // hash of the transaction that created the output
	Index  int    // output index within that transaction
}

// TxOutput is a transaction output as it appears on chain.
// At most one of DatumHash / InlineDatum is set.
type TxOutput struct {
	Address     RawAddress
	Value       Value
	DatumHash   string       // hex blake2b-256 of the datum, "" if none
	InlineDatum *plutus.Data // Babbage-era inline datum, nil if none
}

// ResolvedInput pairs a spent input with the output it consumed.
type ResolvedInput struct {
	TxInput
	Output TxOutput
}

// Datum is a witness-set datum: the raw serialized bytes (for hashing)
// and the decoded tree.
type Datum struct {
	Raw  []byte
	Data plutus.Data
}

// Hash returns the hex blake2b-256 hash of the datum's raw bytes,
// the key outputs use to reference witness datums.
func (d Datum) Hash() string {
	sum := blake2b.Sum256(d.Raw)
	return hex.EncodeToString(sum[:])
}

// Redeemer purposes. Only spend redeemers matter to classification.
const RedeemerPurposeSpend = "spend"

// Redeemer justifies spending a script-controlled input and may carry
// operation metadata for protocols that do not use input datums.
type Redeemer struct {
	Purpose string
	Index   int // index of the input (for spend purpose) this redeemer covers
	Data    plutus.Data
}

// WitnessSet carries the datums and redeemers attached to a transaction.
type WitnessSet struct {
	Datums    []Datum
	Redeemers []Redeemer
}

// DatumByHash looks up a witness datum by its hash.
func (w WitnessSet) DatumByHash(hash string) (plutus.Data, bool) {
	for _, d := range w.Datums {
		if d.Hash() == hash {
			return d.Data, true
		}
	}
	return plutus.Data{}, false
}

// ResolveDatum returns the datum governing an output: the inline datum
// if present, otherwise the witness datum matching the output's hash.
func (w WitnessSet) ResolveDatum(out TxOutput) (plutus.Data, bool) {
	if out.InlineDatum != nil {
		return *out.InlineDatum, true
	}
	if out.DatumHash == "" {
		return plutus.Data{}, false
	}
	return w.DatumByHash(out.DatumHash)
}

// SpendRedeemerAt returns the spend redeemer covering input index i.
func (w WitnessSet) SpendRedeemerAt(i int) (Redeemer, bool) {
	for _, r := range w.Redeemers {
		if r.Purpose == RedeemerPurposeSpend && r.Index == i {
			return r, true
		}
	}
	return Redeemer{}, false
}

// TransactionBody is the part of a transaction the qualifier inspects.
type TransactionBody struct {
	Hash    string
	Inputs  []TxInput
	Outputs []TxOutput
}

// Transaction pairs a body with its witness set.
type Transaction struct {
	Body      TransactionBody
	Witnesses WitnessSet
}

// Block is one block's worth of transactions delivered by the block
// source, in strictly increasing slot order.
type Block struct {
	Slot         int64
	Hash         string
	Transactions []Transaction
}
