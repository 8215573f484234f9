package liquidity

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Identity resolves pool addresses and checks whether they are live. It keeps
// no state between calls.
type Identity struct {
	builder InstructionBuilder
	node    Node
}

// NewIdentity returns an Identity backed by the given collaborators.
func NewIdentity(builder InstructionBuilder, node Node) *Identity {
	return &Identity{builder: builder, node: node}
}

// Derive returns the deterministic pool address. The pool may not exist yet.
func (i *Identity) Derive(id PoolIdentity) (solana.PublicKey, error) {
	addr, err := i.builder.DerivePoolAddress(id)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive pool address (index=%d): %w", id.CreatorIndex, err)
	}
	return addr, nil
}

// Exists queries the chain for the pool account. A failed query is a
// NetworkError, never a false.
func (i *Identity) Exists(ctx context.Context, pool solana.PublicKey) (bool, error) {
	ok, err := i.node.AccountExists(ctx, pool)
	if err != nil {
		return false, newError("pool_exists", ErrNetwork, err)
	}
	return ok, nil
}
