// Package qualifier filters a block's transactions down to those that
// touch a known DEX pool script credential and resolves their spent
// inputs so classifiers can compute value deltas.
package qualifier

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"cardano-dex-candles/internal/chain"
)

// QualifiedTransaction is a transaction that touches a known pool
// credential, with its inputs resolved to their originating outputs.
type QualifiedTransaction struct {
	TxHash         string
	DexCode        string
	PoolCredential chain.Credential
	Slot           int64
	Inputs         []chain.ResolvedInput
	Outputs        []chain.TxOutput
	Witnesses      chain.WitnessSet
}

// UtxoResolver resolves transaction inputs to the outputs they consume.
// Missing entries signal "not yet indexed" and are simply absent from
// the result; they are never an error.
type UtxoResolver interface {
	Resolve(ctx context.Context, inputs []chain.TxInput) ([]chain.ResolvedInput, error)
}

// Qualifier scans blocks for pool-touching transactions.
type Qualifier struct {
	pools    map[string]string // pool credential hash -> dex code
	resolver UtxoResolver
	logger   *zap.Logger
}

// Options configures a Qualifier.
type Options struct {
	// Pools maps pool script credential hashes to DEX codes.
	Pools map[string]string
	// Resolver resolves spent inputs via the chain database.
	Resolver UtxoResolver
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// New creates a Qualifier.
func New(opts Options) (*Qualifier, error) {
	if len(opts.Pools) == 0 {
		return nil, fmt.Errorf("no pool credentials configured")
	}
	if opts.Resolver == nil {
		return nil, fmt.Errorf("utxo resolver is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Qualifier{
		pools:    opts.Pools,
		resolver: opts.Resolver,
		logger:   logger,
	}, nil
}

// Qualify returns the block's transactions whose outputs touch a known
// pool credential, with inputs resolved. Transactions whose inputs
// cannot be resolved are skipped, never failed: a resolver miss means
// the transaction was already spent or not yet indexed.
func (q *Qualifier) Qualify(ctx context.Context, block chain.Block) ([]QualifiedTransaction, error) {
	var qualified []QualifiedTransaction

	for _, tx := range block.Transactions {
		dexCode, poolCred, ok := q.matchPoolOutput(tx.Body.Outputs)
		if !ok {
			continue
		}

		resolved, err := q.resolver.Resolve(ctx, tx.Body.Inputs)
		if err != nil {
			q.logger.Warn("input resolution failed, skipping transaction",
				zap.String("tx_hash", tx.Body.Hash),
				zap.Int64("slot", block.Slot),
				zap.Error(err))
			continue
		}
		if len(resolved) == 0 {
			q.logger.Debug("no resolvable inputs, skipping transaction",
				zap.String("tx_hash", tx.Body.Hash),
				zap.Int64("slot", block.Slot))
			continue
		}

		qualified = append(qualified, QualifiedTransaction{
			TxHash:         tx.Body.Hash,
			DexCode:        dexCode,
			PoolCredential: poolCred,
			Slot:           block.Slot,
			Inputs:         resolved,
			Outputs:        tx.Body.Outputs,
			Witnesses:      tx.Witnesses,
		})
	}

	return qualified, nil
}

// matchPoolOutput finds the first output whose payment credential is a
// configured pool credential.
func (q *Qualifier) matchPoolOutput(outputs []chain.TxOutput) (string, chain.Credential, bool) {
	for _, out := range outputs {
		cred, ok := out.Address.PaymentCredential()
		if !ok || !cred.IsScript {
			continue
		}
		if dexCode, found := q.pools[cred.Hash]; found {
			return dexCode, cred, true
		}
	}
	return "", chain.Credential{}, false
}
