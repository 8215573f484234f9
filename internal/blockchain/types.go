// internal/blockchain/types.go
package blockchain

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// AccountReader читает сырые данные аккаунтов.
type AccountReader interface {
	// Получить информацию об аккаунте.
	GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error)
	// Получить несколько аккаунтов за один запрос. Отсутствующие аккаунты возвращаются как nil.
	GetMultipleAccounts(ctx context.Context, pubkeys []solana.PublicKey) (*rpc.GetMultipleAccountsResult, error)
}

// RPCObserver получает длительность и результат каждого RPC-вызова.
type RPCObserver interface {
	ObserveRPC(method string, err error, seconds float64)
}
