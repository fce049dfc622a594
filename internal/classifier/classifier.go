// Package classifier reconstructs economic swap facts from qualified
// DEX transactions. One classifier per protocol variant; all of them
// are pure and total: malformed or foreign transactions yield an empty
// result, never an error.
package classifier

import (
	"cardano-dex-candles/internal/domain"
	"cardano-dex-candles/internal/qualifier"
)

// DexClassifier decodes one protocol variant's pool and order datums
// into swap facts.
type DexClassifier interface {
	// DexCode is the stable code stamped on emitted swaps.
	DexCode() string

	// PoolCredentials lists the pool script credential hashes this
	// classifier handles.
	PoolCredentials() []string

	// ComputeSwaps emits zero or more swaps for a qualified
	// transaction. Safe to call with transactions of other protocols.
	ComputeSwaps(tx qualifier.QualifiedTransaction) []domain.Swap
}

// Registry dispatches transactions to classifiers by pool credential.
type Registry struct {
	byCredential map[string]DexClassifier
}

// NewRegistry builds a registry over the given classifiers.
func NewRegistry(classifiers ...DexClassifier) *Registry {
	r := &Registry{byCredential: make(map[string]DexClassifier)}
	for _, c := range classifiers {
		for _, cred := range c.PoolCredentials() {
			r.byCredential[cred] = c
		}
	}
	return r
}

// DefaultRegistry returns a registry with all supported protocol
// variants registered.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewMinswap(),
		NewSundaeswap(),
		NewWingriders(),
		NewMuesliswap(),
	)
}

// ForCredential returns the classifier handling a pool credential.
func (r *Registry) ForCredential(hash string) (DexClassifier, bool) {
	c, ok := r.byCredential[hash]
	return c, ok
}

// PoolCredentials returns the credential -> dex code mapping the
// qualifier is configured with.
func (r *Registry) PoolCredentials() map[string]string {
	pools := make(map[string]string, len(r.byCredential))
	for cred, c := range r.byCredential {
		pools[cred] = c.DexCode()
	}
	return pools
}

// ComputeSwaps dispatches a qualified transaction to the classifier
// registered for its pool credential.
func (r *Registry) ComputeSwaps(tx qualifier.QualifiedTransaction) []domain.Swap {
	c, ok := r.ForCredential(tx.PoolCredential.Hash)
	if !ok {
		return nil
	}
	return c.ComputeSwaps(tx)
}
