// internal/liquidity/mocks_test.go
package liquidity

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockNode implements Node.
type MockNode struct {
	mock.Mock
}

func (m *MockNode) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	args := m.Called(ctx)
	return args.Get(0).(solana.Hash), args.Error(1)
}

func (m *MockNode) SendRawTransaction(ctx context.Context, raw []byte) (solana.Signature, error) {
	args := m.Called(ctx, raw)
	return args.Get(0).(solana.Signature), args.Error(1)
}

func (m *MockNode) SignatureStatus(ctx context.Context, sig solana.Signature) (*SignatureStatus, error) {
	args := m.Called(ctx, sig)
	status, _ := args.Get(0).(*SignatureStatus)
	return status, args.Error(1)
}

func (m *MockNode) AccountExists(ctx context.Context, address solana.PublicKey) (bool, error) {
	args := m.Called(ctx, address)
	return args.Bool(0), args.Error(1)
}

func (m *MockNode) TokenSupply(ctx context.Context, mint solana.PublicKey) (TokenAmount, error) {
	args := m.Called(ctx, mint)
	return args.Get(0).(TokenAmount), args.Error(1)
}

// MockBuilder implements InstructionBuilder.
type MockBuilder struct {
	mock.Mock
}

func (m *MockBuilder) DerivePoolAddress(id PoolIdentity) (solana.PublicKey, error) {
	args := m.Called(id)
	return args.Get(0).(solana.PublicKey), args.Error(1)
}

func (m *MockBuilder) CreatePoolInstructions(ctx context.Context, id PoolIdentity, base, quote TokenAmount) ([]solana.Instruction, error) {
	args := m.Called(ctx, id, base, quote)
	ixs, _ := args.Get(0).([]solana.Instruction)
	return ixs, args.Error(1)
}

func (m *MockBuilder) InitialPrice(base, quote TokenAmount) decimal.Decimal {
	return ToHuman(quote).Div(ToHuman(base))
}

func (m *MockBuilder) LiquidityState(ctx context.Context, pool, user solana.PublicKey) (*PoolState, error) {
	args := m.Called(ctx, pool, user)
	state, _ := args.Get(0).(*PoolState)
	return state, args.Error(1)
}

func (m *MockBuilder) DepositInstructions(ctx context.Context, state *PoolState, lp TokenAmount, slippageBps int) ([]solana.Instruction, error) {
	args := m.Called(ctx, state, lp, slippageBps)
	ixs, _ := args.Get(0).([]solana.Instruction)
	return ixs, args.Error(1)
}

func (m *MockBuilder) WithdrawInstructions(ctx context.Context, state *PoolState, lp TokenAmount, slippageBps int) ([]solana.Instruction, error) {
	args := m.Called(ctx, state, lp, slippageBps)
	ixs, _ := args.Get(0).([]solana.Instruction)
	return ixs, args.Error(1)
}

// testSigner signs with an in-memory key.
type testSigner struct {
	key solana.PrivateKey
}

func newTestSigner(t *testing.T) *testSigner {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return &testSigner{key: key}
}

func (s *testSigner) PublicKey() solana.PublicKey { return s.key.PublicKey() }

func (s *testSigner) SignTransaction(tx *solana.Transaction) error {
	_, err := tx.Sign(func(pub solana.PublicKey) *solana.PrivateKey {
		if pub.Equals(s.key.PublicKey()) {
			return &s.key
		}
		return nil
	})
	return err
}

// transferIxs returns a single instruction paid by from.
func transferIxs(from solana.PublicKey) []solana.Instruction {
	return []solana.Instruction{
		system.NewTransferInstruction(1, from, solana.NewWallet().PublicKey()).Build(),
	}
}

// recordingRecorder collects transitions and operations.
type recordingRecorder struct {
	states []TxState
	ops    map[string]error
}

func newRecordingRecorder() *recordingRecorder {
	return &recordingRecorder{ops: make(map[string]error)}
}

func (r *recordingRecorder) RecordOperation(op string, err error, _ float64) { r.ops[op] = err }
func (r *recordingRecorder) RecordTransition(state TxState)                 { r.states = append(r.states, state) }

func fastPipelineOptions() PipelineOptions {
	return PipelineOptions{
		ConfirmTimeout:  200 * time.Millisecond,
		PollInterval:    time.Millisecond,
		MaxPollInterval: 5 * time.Millisecond,
	}
}
