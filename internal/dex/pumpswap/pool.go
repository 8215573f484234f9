// =============================
// File: internal/dex/pumpswap/pool.go
// =============================
package pumpswap

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpswap-liquidity/internal/blockchain"
)

const (
	TokenAccountAmountOffset uint64 = 64
	TokenAccountAmountSize   uint64 = 8
)

// errAccountNotFound is returned when the node has no data for an address.
var errAccountNotFound = errors.New("account not found")

////////////////////////////////////////////////////////////////////////////////
// Конструкторы
////////////////////////////////////////////////////////////////////////////////

// PoolManager отвечает за чтение пулов PumpSwap и глобальной конфигурации.
type PoolManager struct {
	reader     blockchain.AccountReader
	logger     *zap.Logger
	cfg        *Config
	maxRetries int
	retryDelay time.Duration
	rpcTimeout time.Duration

	// кеш глобальной конфигурации, заполняется только успешным чтением
	mu           sync.Mutex
	globalConfig *GlobalConfig
}

// PoolManagerOptions содержит опции для создания нового PoolManager.
type PoolManagerOptions struct {
	MaxRetries int
	RetryDelay time.Duration
	RPCTimeout time.Duration
}

// DefaultPoolManagerOptions возвращает настройки по умолчанию.
func DefaultPoolManagerOptions() PoolManagerOptions {
	return PoolManagerOptions{
		MaxRetries: 3,
		RetryDelay: 500 * time.Millisecond,
		RPCTimeout: 5 * time.Second,
	}
}

// NewPoolManager создаёт новый PoolManager с заданными опциями.
func NewPoolManager(reader blockchain.AccountReader, cfg *Config, logger *zap.Logger, opts ...PoolManagerOptions) *PoolManager {
	options := DefaultPoolManagerOptions()
	if len(opts) > 0 {
		options = opts[0]
	}

	logger.Debug("Creating PoolManager",
		zap.String("program_id", cfg.ProgramID.String()),
		zap.Int("max_retries", options.MaxRetries),
		zap.Duration("retry_delay", options.RetryDelay))

	return &PoolManager{
		reader:     reader,
		logger:     logger.Named("pool_manager"),
		cfg:        cfg,
		maxRetries: options.MaxRetries,
		retryDelay: options.RetryDelay,
		rpcTimeout: options.RPCTimeout,
	}
}

////////////////////////////////////////////////////////////////////////////////
// Вспомогательные функции
////////////////////////////////////////////////////////////////////////////////

// retry повторяет чтение при сетевых ошибках. Отсутствие аккаунта и ошибки
// разбора не повторяются.
func retry[T any](ctx context.Context, pm *PoolManager, what string, op func(context.Context) (T, error)) (T, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = pm.retryDelay
	policy.MaxInterval = pm.retryDelay * 10

	operation := func() (T, error) {
		cctx, cancel := context.WithTimeout(ctx, pm.rpcTimeout)
		defer cancel()
		return op(cctx)
	}

	tries := pm.maxRetries
	if tries <= 0 {
		tries = 1
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(tries)),
		backoff.WithNotify(func(err error, next time.Duration) {
			pm.logger.Debug("Retrying account read",
				zap.String("what", what),
				zap.Error(err),
				zap.Duration("backoff", next))
		}))
}

// getAccount retrieves a single account with a timeout.
func (pm *PoolManager) getAccount(ctx context.Context, pubkey solana.PublicKey) (*rpc.Account, error) {
	return retry(ctx, pm, pubkey.String(), func(cctx context.Context) (*rpc.Account, error) {
		info, err := pm.reader.GetAccountInfo(cctx, pubkey)
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, backoff.Permanent(fmt.Errorf("%w: %s", errAccountNotFound, pubkey))
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get account info for %s: %w", pubkey, err)
		}
		if info == nil || info.Value == nil {
			return nil, backoff.Permanent(fmt.Errorf("%w: %s", errAccountNotFound, pubkey))
		}
		return info.Value, nil
	})
}

// getAccounts retrieves several accounts in one request. Missing accounts are nil.
func (pm *PoolManager) getAccounts(ctx context.Context, accounts []solana.PublicKey) ([]*rpc.Account, error) {
	return retry(ctx, pm, "multiple", func(cctx context.Context) ([]*rpc.Account, error) {
		resp, err := pm.reader.GetMultipleAccounts(cctx, accounts)
		if err != nil {
			return nil, fmt.Errorf("failed to get multiple accounts info: %w", err)
		}
		if len(resp.Value) != len(accounts) {
			return nil, fmt.Errorf("requested %d accounts, got %d", len(accounts), len(resp.Value))
		}
		return resp.Value, nil
	})
}

func accountData(acc *rpc.Account) []byte {
	if acc == nil || acc.Data == nil {
		return nil
	}
	return acc.Data.GetBinary()
}

// parseTokenAmount извлекает баланс из бинарных данных токен-аккаунта.
func parseTokenAmount(data []byte) (uint64, error) {
	if len(data) < int(TokenAccountAmountOffset+TokenAccountAmountSize) {
		return 0, fmt.Errorf("token account data too short: %d bytes", len(data))
	}
	return binary.LittleEndian.Uint64(data[TokenAccountAmountOffset : TokenAccountAmountOffset+TokenAccountAmountSize]), nil
}

////////////////////////////////////////////////////////////////////////////////
// Основные методы
////////////////////////////////////////////////////////////////////////////////

// GlobalConfig возвращает (и кеширует) GlobalConfig.
func (pm *PoolManager) GlobalConfig(ctx context.Context) (*GlobalConfig, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.globalConfig != nil {
		return pm.globalConfig, nil
	}

	acc, err := pm.getAccount(ctx, pm.cfg.GlobalConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to get global config account: %w", err)
	}
	config, err := ParseGlobalConfig(accountData(acc))
	if err != nil {
		pm.logger.Error("Failed to parse global config",
			zap.String("global_config", pm.cfg.GlobalConfig.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to parse global config: %w", err)
	}
	pm.globalConfig = config
	return config, nil
}

// GetPool читает и разбирает аккаунт пула.
func (pm *PoolManager) GetPool(ctx context.Context, poolAddress solana.PublicKey) (*Pool, error) {
	acc, err := pm.getAccount(ctx, poolAddress)
	if err != nil {
		return nil, err
	}
	if !acc.Owner.Equals(pm.cfg.ProgramID) {
		return nil, fmt.Errorf("account %s is owned by %s, not by PumpSwap", poolAddress, acc.Owner)
	}
	return ParsePool(accountData(acc))
}

// MintPrograms возвращает token program, владеющий каждым из mint'ов.
func (pm *PoolManager) MintPrograms(ctx context.Context, mints ...solana.PublicKey) ([]solana.PublicKey, error) {
	accounts, err := pm.getAccounts(ctx, mints)
	if err != nil {
		return nil, err
	}
	programs := make([]solana.PublicKey, len(mints))
	for i, acc := range accounts {
		if acc == nil {
			return nil, fmt.Errorf("%w: mint %s", errAccountNotFound, mints[i])
		}
		programs[i] = acc.Owner
	}
	return programs, nil
}

// PoolSnapshot is a pool together with its vault balances and token programs
// read in one batch.
type PoolSnapshot struct {
	Address           solana.PublicKey
	Pool              *Pool
	BaseReserves      uint64
	QuoteReserves     uint64
	BaseTokenProgram  solana.PublicKey
	QuoteTokenProgram solana.PublicKey
}

// FetchPoolSnapshot получает пул, балансы его хранилищ и программы mint'ов.
func (pm *PoolManager) FetchPoolSnapshot(ctx context.Context, poolAddress solana.PublicKey) (*PoolSnapshot, error) {
	pool, err := pm.GetPool(ctx, poolAddress)
	if err != nil {
		return nil, err
	}

	accounts, err := pm.getAccounts(ctx, []solana.PublicKey{
		pool.PoolBaseTokenAccount,
		pool.PoolQuoteTokenAccount,
		pool.BaseMint,
		pool.QuoteMint,
	})
	if err != nil {
		return nil, err
	}
	for i, acc := range accounts {
		if acc == nil {
			return nil, fmt.Errorf("%w: pool %s dependency #%d", errAccountNotFound, poolAddress, i)
		}
	}

	baseReserves, err := parseTokenAmount(accountData(accounts[0]))
	if err != nil {
		return nil, fmt.Errorf("base vault: %w", err)
	}
	quoteReserves, err := parseTokenAmount(accountData(accounts[1]))
	if err != nil {
		return nil, fmt.Errorf("quote vault: %w", err)
	}

	pm.logger.Debug("Pool snapshot",
		zap.String("pool", poolAddress.String()),
		zap.Uint64("base_reserves", baseReserves),
		zap.Uint64("quote_reserves", quoteReserves),
		zap.Uint64("lp_supply", pool.LPSupply))

	return &PoolSnapshot{
		Address:           poolAddress,
		Pool:              pool,
		BaseReserves:      baseReserves,
		QuoteReserves:     quoteReserves,
		BaseTokenProgram:  accounts[2].Owner,
		QuoteTokenProgram: accounts[3].Owner,
	}, nil
}
