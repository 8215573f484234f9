package liquidity

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	testBlockhash = solana.Hash{1, 2, 3}
	testSignature = solana.Signature{9, 9, 9}
)

func newTestPipeline(t *testing.T, node Node, opts PipelineOptions) (*Pipeline, *recordingRecorder) {
	rec := newRecordingRecorder()
	return NewPipeline(node, zaptest.NewLogger(t), opts, rec), rec
}

func TestPipeline_ExecuteConfirmed(t *testing.T) {
	ctx := context.Background()
	signer := newTestSigner(t)
	node := new(MockNode)
	node.On("LatestBlockhash", mock.Anything).Return(testBlockhash, nil)
	node.On("SendRawTransaction", mock.Anything, mock.Anything).Return(testSignature, nil)
	node.On("SignatureStatus", mock.Anything, testSignature).Return(nil, nil).Once()
	node.On("SignatureStatus", mock.Anything, testSignature).Return(nil, errors.New("rpc unavailable")).Once()
	node.On("SignatureStatus", mock.Anything, testSignature).
		Return(&SignatureStatus{Slot: 41, Commitment: rpc.ConfirmationStatusProcessed}, nil).Once()
	node.On("SignatureStatus", mock.Anything, testSignature).
		Return(&SignatureStatus{Slot: 42, Commitment: rpc.ConfirmationStatusConfirmed}, nil)

	p, rec := newTestPipeline(t, node, fastPipelineOptions())

	outcome, err := p.Execute(ctx, transferIxs(signer.PublicKey()), signer)
	require.NoError(t, err)
	require.NotNil(t, outcome)

	assert.True(t, outcome.Confirmed)
	assert.NoError(t, outcome.Err)
	assert.Equal(t, testSignature, outcome.Signature)
	assert.Equal(t, uint64(42), outcome.Slot)
	assert.Equal(t, TxConfirmed, outcome.State)
	assert.Equal(t, []TxState{TxBuilt, TxSigned, TxSubmitted, TxConfirmed}, rec.states)
	node.AssertNumberOfCalls(t, "SignatureStatus", 4)
}

func TestPipeline_SignProducesVerifiableTransaction(t *testing.T) {
	ctx := context.Background()
	signer := newTestSigner(t)
	node := new(MockNode)
	node.On("LatestBlockhash", mock.Anything).Return(testBlockhash, nil)

	p, _ := newTestPipeline(t, node, fastPipelineOptions())

	pending, err := p.Assemble(ctx, transferIxs(signer.PublicKey()), signer)
	require.NoError(t, err)
	assert.Equal(t, TxBuilt, pending.State)
	assert.Equal(t, testBlockhash, pending.RecentBlockhash)
	assert.Equal(t, testBlockhash, pending.Tx.Message.RecentBlockhash)

	require.NoError(t, p.Sign(pending))
	assert.Equal(t, TxSigned, pending.State)
	require.Len(t, pending.Tx.Signatures, 1)
	assert.NoError(t, pending.Tx.VerifySignatures())
}

func TestPipeline_ExecutionFailureIsReportedInOutcome(t *testing.T) {
	ctx := context.Background()
	signer := newTestSigner(t)
	chainErr := map[string]interface{}{
		"InstructionError": []interface{}{float64(0), map[string]interface{}{"Custom": float64(6004)}},
	}
	node := new(MockNode)
	node.On("LatestBlockhash", mock.Anything).Return(testBlockhash, nil)
	node.On("SendRawTransaction", mock.Anything, mock.Anything).Return(testSignature, nil)
	node.On("SignatureStatus", mock.Anything, testSignature).
		Return(&SignatureStatus{Slot: 7, Commitment: rpc.ConfirmationStatusConfirmed, ChainErr: chainErr}, nil)

	p, rec := newTestPipeline(t, node, fastPipelineOptions())

	outcome, err := p.Execute(ctx, transferIxs(signer.PublicKey()), signer)
	require.NoError(t, err, "execution failure is not a returned error")
	require.NotNil(t, outcome)

	assert.False(t, outcome.Confirmed)
	assert.Equal(t, TxFailed, outcome.State)
	assert.Equal(t, testSignature, outcome.Signature)
	assert.ErrorIs(t, outcome.Err, ErrExecution)

	var failure *ExecutionFailure
	require.ErrorAs(t, outcome.Err, &failure)
	assert.Equal(t, chainErr, failure.ChainErr)
	assert.Equal(t, []TxState{TxBuilt, TxSigned, TxSubmitted, TxFailed}, rec.states)
	node.AssertNumberOfCalls(t, "SignatureStatus", 1)
}

func TestPipeline_SubmissionRejected(t *testing.T) {
	ctx := context.Background()
	signer := newTestSigner(t)
	node := new(MockNode)
	node.On("LatestBlockhash", mock.Anything).Return(testBlockhash, nil)
	node.On("SendRawTransaction", mock.Anything, mock.Anything).
		Return(solana.Signature{}, errors.New("Transaction simulation failed: Blockhash not found"))

	p, rec := newTestPipeline(t, node, fastPipelineOptions())

	outcome, err := p.Execute(ctx, transferIxs(signer.PublicKey()), signer)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSubmission)
	assert.True(t, IsStaleBlockhash(err))
	assert.False(t, IsValidation(err))
	require.NotNil(t, outcome)
	assert.Equal(t, TxFailed, outcome.State)
	assert.Equal(t, []TxState{TxBuilt, TxSigned, TxSubmitted, TxFailed}, rec.states, "a rejected send still passes through SUBMITTED")
	node.AssertNotCalled(t, "SignatureStatus", mock.Anything, mock.Anything)
}

func TestPipeline_BlockhashFailureIsNetworkError(t *testing.T) {
	ctx := context.Background()
	signer := newTestSigner(t)
	node := new(MockNode)
	node.On("LatestBlockhash", mock.Anything).Return(solana.Hash{}, errors.New("connection refused"))

	p, rec := newTestPipeline(t, node, fastPipelineOptions())

	outcome, err := p.Execute(ctx, transferIxs(signer.PublicKey()), signer)
	assert.Nil(t, outcome)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Empty(t, rec.states)
	node.AssertNotCalled(t, "SendRawTransaction", mock.Anything, mock.Anything)
}

func TestPipeline_ConfirmationTimeout(t *testing.T) {
	tests := []struct {
		name       string
		commitment rpc.ConfirmationStatusType
		status     *SignatureStatus
	}{
		{"never seen", rpc.ConfirmationStatusConfirmed, nil},
		{"stuck below finalized", rpc.ConfirmationStatusFinalized,
			&SignatureStatus{Slot: 5, Commitment: rpc.ConfirmationStatusConfirmed}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			signer := newTestSigner(t)
			node := new(MockNode)
			node.On("LatestBlockhash", mock.Anything).Return(testBlockhash, nil)
			node.On("SendRawTransaction", mock.Anything, mock.Anything).Return(testSignature, nil)
			node.On("SignatureStatus", mock.Anything, testSignature).Return(tt.status, nil)

			opts := fastPipelineOptions()
			opts.Commitment = tt.commitment
			p, rec := newTestPipeline(t, node, opts)

			outcome, err := p.Execute(ctx, transferIxs(signer.PublicKey()), signer)
			assert.ErrorIs(t, err, ErrConfirmationTimeout)
			require.NotNil(t, outcome)
			assert.False(t, outcome.Confirmed)
			assert.Equal(t, testSignature, outcome.Signature)
			assert.Equal(t, TxSubmitted, outcome.State)
			assert.ErrorIs(t, outcome.Err, ErrConfirmationTimeout)
			assert.Equal(t, []TxState{TxBuilt, TxSigned, TxSubmitted}, rec.states)
		})
	}
}

func TestPipeline_ComputeBudgetPrepended(t *testing.T) {
	ctx := context.Background()
	signer := newTestSigner(t)
	node := new(MockNode)
	node.On("LatestBlockhash", mock.Anything).Return(testBlockhash, nil)

	opts := fastPipelineOptions()
	opts.ComputeUnitLimit = 200_000
	opts.ComputeUnitPriceMicroLamports = 5_000
	p, _ := newTestPipeline(t, node, opts)

	pending, err := p.Assemble(ctx, transferIxs(signer.PublicKey()), signer)
	require.NoError(t, err)
	require.Len(t, pending.Instructions, 3)
	assert.Equal(t, computebudget.ProgramID, pending.Instructions[0].ProgramID())
	assert.Equal(t, computebudget.ProgramID, pending.Instructions[1].ProgramID())
	assert.Equal(t, solana.SystemProgramID, pending.Instructions[2].ProgramID())
}

func TestPipeline_RejectsSecondSigner(t *testing.T) {
	ctx := context.Background()
	signer := newTestSigner(t)
	other := solana.NewWallet().PublicKey()
	node := new(MockNode)
	node.On("LatestBlockhash", mock.Anything).Return(testBlockhash, nil)

	p, _ := newTestPipeline(t, node, fastPipelineOptions())

	_, err := p.Assemble(ctx, transferIxs(other), signer)
	assert.Error(t, err)
}

func TestPipeline_StatesCannotBeSkipped(t *testing.T) {
	ctx := context.Background()
	signer := newTestSigner(t)
	node := new(MockNode)
	node.On("LatestBlockhash", mock.Anything).Return(testBlockhash, nil)

	p, _ := newTestPipeline(t, node, fastPipelineOptions())

	pending, err := p.Assemble(ctx, transferIxs(signer.PublicKey()), signer)
	require.NoError(t, err)

	_, err = p.SubmitAndConfirm(ctx, pending)
	assert.Error(t, err, "BUILT cannot be submitted")

	require.NoError(t, p.Sign(pending))
	assert.Error(t, p.Sign(pending), "SIGNED cannot be signed again")

	_, err = p.Assemble(ctx, nil, signer)
	assert.Error(t, err)
	node.AssertNotCalled(t, "SendRawTransaction", mock.Anything, mock.Anything)
}

func TestTxStateString(t *testing.T) {
	assert.Equal(t, "BUILT", TxBuilt.String())
	assert.Equal(t, "FAILED", TxFailed.String())
	assert.Equal(t, "UNKNOWN", TxState(0).String())
}
