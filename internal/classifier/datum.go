package classifier

import (
	"encoding/hex"

	"cardano-dex-candles/internal/chain"
	"cardano-dex-candles/internal/domain"
	"cardano-dex-candles/internal/plutus"
	"cardano-dex-candles/internal/qualifier"
)

// assetUnit decodes an on-chain asset reference: a constructor holding
// a policy byte string and a name byte string. An empty policy and
// name pair denotes the native asset.
func assetUnit(d plutus.Data) (string, bool) {
	policy, ok := d.BytesAt(0)
	if !ok {
		return "", false
	}
	name, ok := d.BytesAt(1)
	if !ok {
		return "", false
	}
	if len(policy) == 0 && len(name) == 0 {
		return domain.LovelaceUnit, true
	}
	return hex.EncodeToString(policy) + hex.EncodeToString(name), true
}

// addressFromData rebuilds a raw address from the credential fragments
// order datums embed:
//
//	Constr 0 [payment, stake]
//	payment: Constr 0 [hash] = key | Constr 1 [hash] = script
//	stake:   Constr 0 [Constr 0 [Constr t [hash]]] = inline | Constr 1 [] = none
func addressFromData(d plutus.Data) (chain.RawAddress, bool) {
	tag, _, ok := d.AsConstr()
	if !ok || tag != 0 {
		return nil, false
	}

	payment, ok := d.ConstrAt(0)
	if !ok {
		return nil, false
	}
	payCred, ok := credentialFromData(payment)
	if !ok {
		return nil, false
	}

	stakeOpt, ok := d.ConstrAt(1)
	if !ok {
		return nil, false
	}
	switch stakeOpt.Tag {
	case 0:
		inner, ok := stakeOpt.Path(0, 0)
		if !ok {
			return nil, false
		}
		stakeCred, ok := credentialFromData(inner)
		if !ok {
			return nil, false
		}
		return chain.BuildAddress(payCred, &stakeCred)
	case 1:
		return chain.BuildAddress(payCred, nil)
	default:
		return nil, false
	}
}

// credentialFromData decodes a payment/stake credential constructor.
// Tag 0 = verification key hash, tag 1 = script hash.
func credentialFromData(d plutus.Data) (chain.Credential, bool) {
	tag, _, ok := d.AsConstr()
	if !ok || tag > 1 {
		return chain.Credential{}, false
	}
	hash, ok := d.BytesAt(0)
	if !ok || len(hash) != 28 {
		return chain.Credential{}, false
	}
	return chain.Credential{
		Hash:     hex.EncodeToString(hash),
		IsScript: tag == 1,
	}, true
}

// poolDatum locates the transaction output sitting at the pool
// credential and resolves its datum.
func poolDatum(tx qualifier.QualifiedTransaction) (plutus.Data, bool) {
	for _, out := range tx.Outputs {
		cred, ok := out.Address.PaymentCredential()
		if !ok || cred.Hash != tx.PoolCredential.Hash {
			continue
		}
		return tx.Witnesses.ResolveDatum(out)
	}
	return plutus.Data{}, false
}

// orderInput is a resolved input sitting at an order credential,
// with its position in the transaction's input list (redeemer-indexed
// protocols pair orders to outputs by that position).
type orderInput struct {
	inputIndex int
	input      chain.ResolvedInput
}

// orderInputs returns the transaction's inputs controlled by the given
// order script credential, in input order.
func orderInputs(tx qualifier.QualifiedTransaction, orderCredHash string) []orderInput {
	var orders []orderInput
	for i, in := range tx.Inputs {
		cred, ok := in.Output.Address.PaymentCredential()
		if !ok || !cred.IsScript || cred.Hash != orderCredHash {
			continue
		}
		orders = append(orders, orderInput{inputIndex: i, input: in})
	}
	return orders
}

// outputMatcher matches receiving addresses against transaction
// outputs, consuming each matched output so two orders with the same
// receiving address are never paired with one output twice.
type outputMatcher struct {
	outputs []chain.TxOutput
	used    []bool
}

func newOutputMatcher(outputs []chain.TxOutput) *outputMatcher {
	return &outputMatcher{outputs: outputs, used: make([]bool, len(outputs))}
}

// Match returns the first unconsumed output at the given address.
func (m *outputMatcher) Match(addr chain.RawAddress) (chain.TxOutput, bool) {
	for i, out := range m.outputs {
		if m.used[i] || !out.Address.Equal(addr) {
			continue
		}
		m.used[i] = true
		return out, true
	}
	return chain.TxOutput{}, false
}

// MatchIndex consumes an output by its index.
func (m *outputMatcher) MatchIndex(i int) (chain.TxOutput, bool) {
	if i < 0 || i >= len(m.outputs) || m.used[i] {
		return chain.TxOutput{}, false
	}
	m.used[i] = true
	return m.outputs[i], true
}
