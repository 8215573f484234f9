package solbc

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/pumpswap-liquidity/internal/liquidity"
)

type mockRPC struct {
	mock.Mock
}

func (m *mockRPC) GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	args := m.Called(ctx, commitment)
	res, _ := args.Get(0).(*rpc.GetLatestBlockhashResult)
	return res, args.Error(1)
}

func (m *mockRPC) SendRawTransactionWithOpts(ctx context.Context, rawTx []byte, opts rpc.TransactionOpts) (solana.Signature, error) {
	args := m.Called(ctx, rawTx, opts)
	return args.Get(0).(solana.Signature), args.Error(1)
}

func (m *mockRPC) GetSignatureStatuses(ctx context.Context, search bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	args := m.Called(ctx, search, sigs)
	res, _ := args.Get(0).(*rpc.GetSignatureStatusesResult)
	return res, args.Error(1)
}

func (m *mockRPC) GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error) {
	args := m.Called(ctx, account, opts)
	res, _ := args.Get(0).(*rpc.GetAccountInfoResult)
	return res, args.Error(1)
}

func (m *mockRPC) GetMultipleAccountsWithOpts(ctx context.Context, accounts []solana.PublicKey, opts *rpc.GetMultipleAccountsOpts) (*rpc.GetMultipleAccountsResult, error) {
	args := m.Called(ctx, accounts, opts)
	res, _ := args.Get(0).(*rpc.GetMultipleAccountsResult)
	return res, args.Error(1)
}

func (m *mockRPC) GetTokenSupply(ctx context.Context, mint solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenSupplyResult, error) {
	args := m.Called(ctx, mint, commitment)
	res, _ := args.Get(0).(*rpc.GetTokenSupplyResult)
	return res, args.Error(1)
}

type observation struct {
	method string
	err    error
}

type fakeObserver struct {
	calls []observation
}

func (f *fakeObserver) ObserveRPC(method string, err error, _ float64) {
	f.calls = append(f.calls, observation{method: method, err: err})
}

func TestClient_LatestBlockhash(t *testing.T) {
	m := new(mockRPC)
	obs := &fakeObserver{}
	hash := solana.Hash{7}
	m.On("GetLatestBlockhash", mock.Anything, rpc.CommitmentFinalized).Return(&rpc.GetLatestBlockhashResult{
		Value: &rpc.LatestBlockhashResult{Blockhash: hash},
	}, nil)

	c := newClient(m, zaptest.NewLogger(t), WithCommitment(rpc.CommitmentFinalized), WithObserver(obs))

	got, err := c.LatestBlockhash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, hash, got)
	require.Len(t, obs.calls, 1)
	assert.Equal(t, "getLatestBlockhash", obs.calls[0].method)
	assert.NoError(t, obs.calls[0].err)
}

func TestClient_SendRawTransactionError(t *testing.T) {
	m := new(mockRPC)
	obs := &fakeObserver{}
	rpcErr := &jsonrpc.RPCError{
		Code:    -32002,
		Message: "Transaction simulation failed: Blockhash not found",
	}
	m.On("SendRawTransactionWithOpts", mock.Anything, []byte{1, 2}, mock.Anything).Return(solana.Signature{}, rpcErr)

	c := newClient(m, zaptest.NewLogger(t), WithObserver(obs))

	_, err := c.SendRawTransaction(context.Background(), []byte{1, 2})
	assert.ErrorIs(t, err, rpcErr)
	require.Len(t, obs.calls, 1)
	assert.Error(t, obs.calls[0].err)
}

func TestClient_SignatureStatus(t *testing.T) {
	sig := solana.Signature{1}
	m := new(mockRPC)
	m.On("GetSignatureStatuses", mock.Anything, false, []solana.Signature{sig}).
		Return(&rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{nil}}, nil).Once()
	m.On("GetSignatureStatuses", mock.Anything, false, []solana.Signature{sig}).
		Return(&rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{{
			Slot:               99,
			ConfirmationStatus: rpc.ConfirmationStatusConfirmed,
			Err:                map[string]interface{}{"InstructionError": []interface{}{float64(1), "Custom"}},
		}}}, nil).Once()

	c := newClient(m, zaptest.NewLogger(t))

	status, err := c.SignatureStatus(context.Background(), sig)
	require.NoError(t, err)
	assert.Nil(t, status, "unknown signature")

	status, err = c.SignatureStatus(context.Background(), sig)
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, uint64(99), status.Slot)
	assert.Equal(t, rpc.ConfirmationStatusConfirmed, status.Commitment)
	assert.NotNil(t, status.ChainErr)
}

func TestClient_AccountExists(t *testing.T) {
	present := solana.NewWallet().PublicKey()
	missing := solana.NewWallet().PublicKey()
	broken := solana.NewWallet().PublicKey()

	m := new(mockRPC)
	m.On("GetAccountInfoWithOpts", mock.Anything, present, mock.Anything).
		Return(&rpc.GetAccountInfoResult{Value: &rpc.Account{Lamports: 1}}, nil)
	m.On("GetAccountInfoWithOpts", mock.Anything, missing, mock.Anything).Return(nil, rpc.ErrNotFound)
	m.On("GetAccountInfoWithOpts", mock.Anything, broken, mock.Anything).Return(nil, errors.New("connection reset"))

	c := newClient(m, zaptest.NewLogger(t))
	ctx := context.Background()

	ok, err := c.AccountExists(ctx, present)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.AccountExists(ctx, missing)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = c.AccountExists(ctx, broken)
	assert.Error(t, err)
}

func TestClient_TokenSupply(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	bad := solana.NewWallet().PublicKey()
	m := new(mockRPC)
	m.On("GetTokenSupply", mock.Anything, mint, rpc.CommitmentConfirmed).Return(&rpc.GetTokenSupplyResult{
		Value: &rpc.UiTokenAmount{Amount: "1000000000", Decimals: 9},
	}, nil)
	m.On("GetTokenSupply", mock.Anything, bad, rpc.CommitmentConfirmed).Return(&rpc.GetTokenSupplyResult{
		Value: &rpc.UiTokenAmount{Amount: "not-a-number", Decimals: 9},
	}, nil)

	c := newClient(m, zaptest.NewLogger(t))

	supply, err := c.TokenSupply(context.Background(), mint)
	require.NoError(t, err)
	assert.Equal(t, liquidity.NewTokenAmount(1_000_000_000, 9), supply)

	_, err = c.TokenSupply(context.Background(), bad)
	assert.Error(t, err)
}

func TestClient_GetMultipleAccountsEmpty(t *testing.T) {
	m := new(mockRPC)
	c := newClient(m, zaptest.NewLogger(t))

	res, err := c.GetMultipleAccounts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Value)
	m.AssertNotCalled(t, "GetMultipleAccountsWithOpts", mock.Anything, mock.Anything, mock.Anything)
}

func TestErrorAnalyzer(t *testing.T) {
	ea := NewErrorAnalyzer(zaptest.NewLogger(t))

	generic := ea.AnalyzeRPCError(errors.New("boom"))
	assert.Equal(t, "generic_error", generic.Type)
	assert.Nil(t, generic.Anchor)

	stale := ea.AnalyzeRPCError(&jsonrpc.RPCError{Code: -32002, Message: "Transaction simulation failed: Blockhash not found"})
	assert.True(t, stale.StaleBlockhash)

	simErr := &jsonrpc.RPCError{
		Code:    -32002,
		Message: "Transaction simulation failed: Error processing Instruction 4: custom program error: 0x1774",
		Data: map[string]interface{}{
			"logs": []interface{}{
				"Program log: Instruction: Deposit",
				"Program log: AnchorError occurred. Error Code: ExceededSlippage. Error Number: 6004. Error Message: Exceeded slippage.",
			},
		},
	}
	analysis := ea.AnalyzeRPCError(simErr)
	assert.Equal(t, "rpc_error", analysis.Type)
	assert.True(t, analysis.SimulationFailed)
	assert.Len(t, analysis.Logs, 2)
	require.NotNil(t, analysis.Anchor)
	assert.Equal(t, 6004, analysis.Anchor.Code)
	assert.Equal(t, "ExceededSlippage", analysis.Anchor.Name)
	assert.Equal(t, "Exceeded slippage", analysis.Anchor.Msg)
	assert.Contains(t, ea.FormatErrorAnalysis(analysis), "ExceededSlippage")

	wrapped := &liquidity.Error{Op: "send_transaction", Kind: liquidity.ErrSubmission, Err: simErr}
	anchorErr, ok := AnchorErrorFrom(wrapped)
	require.True(t, ok)
	assert.Equal(t, 6004, anchorErr.Code)

	_, ok = AnchorErrorFrom(errors.New("boom"))
	assert.False(t, ok)
}

func TestParseAnchorErrorLog(t *testing.T) {
	_, ok := ParseAnchorErrorLog("Program log: Instruction: Withdraw")
	assert.False(t, ok)

	got, ok := ParseAnchorErrorLog("Program log: AnchorError thrown in programs/pump-amm/src/instructions/withdraw.rs:87. Error Code: ZeroTradingTokens. Error Number: 6023. Error Message: Zero trading tokens.")
	require.True(t, ok)
	assert.Equal(t, "ZeroTradingTokens", got.Name)
	assert.Equal(t, 6023, got.Code)
}
