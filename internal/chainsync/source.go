// Package chainsync streams blocks from a Cardano node gateway over
// WebSocket and resolves spent outputs against its UTxO index.
package chainsync

import (
	"context"

	"cardano-dex-candles/internal/chain"
)

// BlockSource delivers blocks in strictly increasing slot order.
type BlockSource interface {
	// Blocks returns the block stream starting at fromSlot. The channel
	// is closed when the context is cancelled or the source shuts down.
	Blocks(ctx context.Context, fromSlot int64) (<-chan chain.Block, error)
}

// StubSource replays a fixed block sequence. Used in tests and for
// file-driven backfills.
type StubSource struct {
	blocks []chain.Block
}

// NewStubSource creates a StubSource over the given blocks.
func NewStubSource(blocks []chain.Block) *StubSource {
	return &StubSource{blocks: blocks}
}

// Blocks replays the configured blocks at or after fromSlot.
func (s *StubSource) Blocks(ctx context.Context, fromSlot int64) (<-chan chain.Block, error) {
	ch := make(chan chain.Block)
	go func() {
		defer close(ch)
		for _, b := range s.blocks {
			if b.Slot < fromSlot {
				continue
			}
			select {
			case ch <- b:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// StubResolver resolves inputs from a fixed UTxO map. Used in tests.
type StubResolver struct {
	utxos map[chain.TxInput]chain.TxOutput
}

// NewStubResolver creates a StubResolver.
func NewStubResolver(utxos map[chain.TxInput]chain.TxOutput) *StubResolver {
	return &StubResolver{utxos: utxos}
}

// Resolve returns the known outputs for the given inputs. Unknown
// inputs are absent from the result.
func (s *StubResolver) Resolve(_ context.Context, inputs []chain.TxInput) ([]chain.ResolvedInput, error) {
	var resolved []chain.ResolvedInput
	for _, in := range inputs {
		if out, ok := s.utxos[in]; ok {
			resolved = append(resolved, chain.ResolvedInput{TxInput: in, Output: out})
		}
	}
	return resolved, nil
}
