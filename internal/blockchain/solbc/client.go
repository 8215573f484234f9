// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpswap-liquidity/internal/blockchain"
	"github.com/rovshanmuradov/pumpswap-liquidity/internal/liquidity"
)

// rpcCaller is the subset of *rpc.Client the adapter uses.
type rpcCaller interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SendRawTransactionWithOpts(ctx context.Context, rawTx []byte, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error)
	GetMultipleAccountsWithOpts(ctx context.Context, accounts []solana.PublicKey, opts *rpc.GetMultipleAccountsOpts) (*rpc.GetMultipleAccountsResult, error)
	GetTokenSupply(ctx context.Context, tokenMint solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenSupplyResult, error)
}

// Client – тонкий адаптер для взаимодействия с блокчейном Solana через solana-go.
type Client struct {
	rpc        rpcCaller
	logger     *zap.Logger
	analyzer   *ErrorAnalyzer
	commitment rpc.CommitmentType
	observer   blockchain.RPCObserver
}

// Option настраивает Client.
type Option func(*Client)

// WithCommitment задаёт уровень commitment для чтения и preflight.
func WithCommitment(commitment rpc.CommitmentType) Option {
	return func(c *Client) { c.commitment = commitment }
}

// WithObserver передаёт длительности RPC-вызовов в метрики.
func WithObserver(observer blockchain.RPCObserver) Option {
	return func(c *Client) { c.observer = observer }
}

// NewClient создаёт новый клиент, принимая RPC URL и логгер через dependency injection.
func NewClient(rpcURL string, logger *zap.Logger, opts ...Option) *Client {
	return newClient(rpc.New(rpcURL), logger, opts...)
}

func newClient(caller rpcCaller, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		rpc:        caller,
		logger:     logger.Named("solbc-client"),
		analyzer:   NewErrorAnalyzer(logger),
		commitment: rpc.CommitmentConfirmed,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) observe(method string, start time.Time, err error) {
	if c.observer != nil {
		c.observer.ObserveRPC(method, err, time.Since(start).Seconds())
	}
}

// LatestBlockhash получает последний blockhash.
func (c *Client) LatestBlockhash(ctx context.Context) (hash solana.Hash, err error) {
	defer func(start time.Time) { c.observe("getLatestBlockhash", start, err) }(time.Now())

	result, err := c.rpc.GetLatestBlockhash(ctx, c.commitment)
	if err != nil {
		c.logger.Error("GetLatestBlockhash error", zap.Error(err))
		return solana.Hash{}, err
	}
	return result.Value.Blockhash, nil
}

// SendRawTransaction отправляет подписанную транзакцию. Ошибки симуляции
// разбираются ErrorAnalyzer и попадают в лог целиком.
func (c *Client) SendRawTransaction(ctx context.Context, raw []byte) (sig solana.Signature, err error) {
	defer func(start time.Time) { c.observe("sendTransaction", start, err) }(time.Now())

	sig, err = c.rpc.SendRawTransactionWithOpts(ctx, raw, rpc.TransactionOpts{
		PreflightCommitment: c.commitment,
	})
	if err != nil {
		analysis := c.analyzer.AnalyzeRPCError(err)
		c.logger.Error("SendTransaction error",
			zap.Error(err),
			zap.String("analysis", c.analyzer.FormatErrorAnalysis(analysis)))
		return solana.Signature{}, err
	}
	return sig, nil
}

// SignatureStatus возвращает статус транзакции или nil, если нода её ещё не видела.
func (c *Client) SignatureStatus(ctx context.Context, sig solana.Signature) (status *liquidity.SignatureStatus, err error) {
	defer func(start time.Time) { c.observe("getSignatureStatuses", start, err) }(time.Now())

	result, err := c.rpc.GetSignatureStatuses(ctx, false, sig)
	if err != nil {
		c.logger.Debug("GetSignatureStatuses error", zap.Error(err))
		return nil, err
	}
	if result == nil || len(result.Value) == 0 || result.Value[0] == nil {
		return nil, nil
	}

	s := result.Value[0]
	return &liquidity.SignatureStatus{
		Slot:       s.Slot,
		Commitment: s.ConfirmationStatus,
		ChainErr:   s.Err,
	}, nil
}

// AccountExists проверяет наличие аккаунта. Отсутствие аккаунта не является ошибкой.
func (c *Client) AccountExists(ctx context.Context, address solana.PublicKey) (exists bool, err error) {
	defer func(start time.Time) { c.observe("getAccountInfo", start, err) }(time.Now())

	result, err := c.rpc.GetAccountInfoWithOpts(ctx, address, &rpc.GetAccountInfoOpts{
		Commitment: c.commitment,
	})
	if errors.Is(err, rpc.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		c.logger.Debug("GetAccountInfo error",
			zap.String("pubkey", address.String()),
			zap.Error(err))
		return false, err
	}
	return result != nil && result.Value != nil, nil
}

// TokenSupply возвращает общее количество выпущенных токенов mint.
func (c *Client) TokenSupply(ctx context.Context, mint solana.PublicKey) (supply liquidity.TokenAmount, err error) {
	defer func(start time.Time) { c.observe("getTokenSupply", start, err) }(time.Now())

	result, err := c.rpc.GetTokenSupply(ctx, mint, c.commitment)
	if err != nil {
		c.logger.Debug("GetTokenSupply error",
			zap.String("mint", mint.String()),
			zap.Error(err))
		return liquidity.TokenAmount{}, err
	}
	if result == nil || result.Value == nil {
		return liquidity.TokenAmount{}, fmt.Errorf("empty token supply response for %s", mint)
	}

	raw, err := strconv.ParseUint(result.Value.Amount, 10, 64)
	if err != nil {
		return liquidity.TokenAmount{}, fmt.Errorf("parse token supply %q: %w", result.Value.Amount, err)
	}
	return liquidity.NewTokenAmount(raw, result.Value.Decimals), nil
}

// GetAccountInfo получает информацию об аккаунте.
func (c *Client) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (result *rpc.GetAccountInfoResult, err error) {
	defer func(start time.Time) { c.observe("getAccountInfo", start, err) }(time.Now())

	result, err = c.rpc.GetAccountInfoWithOpts(ctx, pubkey, &rpc.GetAccountInfoOpts{
		Commitment: c.commitment,
		Encoding:   solana.EncodingBase64,
	})
	if err != nil {
		c.logger.Debug("GetAccountInfo error",
			zap.String("pubkey", pubkey.String()),
			zap.Error(err))
		return nil, err
	}
	return result, nil
}

// GetMultipleAccounts получает информацию о нескольких аккаунтах за один запрос
func (c *Client) GetMultipleAccounts(ctx context.Context, pubkeys []solana.PublicKey) (result *rpc.GetMultipleAccountsResult, err error) {
	if len(pubkeys) == 0 {
		return &rpc.GetMultipleAccountsResult{}, nil
	}
	defer func(start time.Time) { c.observe("getMultipleAccounts", start, err) }(time.Now())

	result, err = c.rpc.GetMultipleAccountsWithOpts(ctx, pubkeys, &rpc.GetMultipleAccountsOpts{
		Commitment: c.commitment,
		Encoding:   solana.EncodingBase64,
	})
	if err != nil {
		c.logger.Debug("GetMultipleAccounts error", zap.Error(err))
		return nil, err
	}
	return result, nil
}

// Гарантируем, что Client реализует нужные интерфейсы.
var (
	_ liquidity.Node           = (*Client)(nil)
	_ blockchain.AccountReader = (*Client)(nil)
)
