package pumpswap

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Anchor account discriminators.
var (
	GlobalConfigDiscriminator = []byte{149, 8, 156, 202, 160, 252, 176, 217}
	PoolDiscriminator         = []byte{241, 154, 109, 4, 17, 177, 109, 188}
)

// GlobalConfig is the program-wide settings account.
type GlobalConfig struct {
	Admin                  solana.PublicKey
	LPFeeBasisPoints       uint64
	ProtocolFeeBasisPoints uint64
	DisableFlags           uint8
	ProtocolFeeRecipients  [8]solana.PublicKey
}

// Bits of GlobalConfig.DisableFlags.
const (
	DisableCreatePool = 1 << iota
	DisableDeposit
	DisableWithdraw
	DisableBuy
	DisableSell
)

// Disabled reports whether the admin switched off the operation behind flag.
func (c *GlobalConfig) Disabled(flag uint8) bool {
	return c.DisableFlags&flag != 0
}

// Pool is a PumpSwap pool account. Reserves live in the two vaults, LPSupply
// tracks the circulating LP tokens.
type Pool struct {
	PoolBump              uint8
	Index                 uint16
	Creator               solana.PublicKey
	BaseMint              solana.PublicKey
	QuoteMint             solana.PublicKey
	LPMint                solana.PublicKey
	PoolBaseTokenAccount  solana.PublicKey
	PoolQuoteTokenAccount solana.PublicKey
	LPSupply              uint64

	// CoinCreator was appended later; older pools end before it.
	CoinCreator solana.PublicKey `bin:"-"`
}

const (
	globalConfigSize = 32 + 8 + 8 + 1 + 32*8
	poolSize         = 1 + 2 + 32*6 + 8
)

func checkDiscriminator(data, want []byte, name string) error {
	if len(data) < 8 {
		return fmt.Errorf("data too short for %s", name)
	}
	if !bytes.Equal(data[:8], want) {
		return fmt.Errorf("invalid discriminator for %s", name)
	}
	return nil
}

// ParseGlobalConfig decodes the global config account.
func ParseGlobalConfig(data []byte) (*GlobalConfig, error) {
	if err := checkDiscriminator(data, GlobalConfigDiscriminator, "GlobalConfig"); err != nil {
		return nil, err
	}
	if len(data) < 8+globalConfigSize {
		return nil, fmt.Errorf("data too short for GlobalConfig: %d bytes", len(data))
	}

	var config GlobalConfig
	if err := bin.NewBorshDecoder(data[8:]).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode GlobalConfig: %w", err)
	}
	return &config, nil
}

// ParsePool декодирует аккаунт пула. CoinCreator читается, только если он есть.
func ParsePool(data []byte) (*Pool, error) {
	if err := checkDiscriminator(data, PoolDiscriminator, "Pool"); err != nil {
		return nil, err
	}
	if len(data) < 8+poolSize {
		return nil, fmt.Errorf("data too short for Pool: %d bytes", len(data))
	}

	var pool Pool
	dec := bin.NewBorshDecoder(data[8:])
	if err := dec.Decode(&pool); err != nil {
		return nil, fmt.Errorf("decode Pool: %w", err)
	}
	if dec.Remaining() >= solana.PublicKeyLength {
		raw, err := dec.ReadNBytes(solana.PublicKeyLength)
		if err != nil {
			return nil, fmt.Errorf("decode Pool coin creator: %w", err)
		}
		pool.CoinCreator = solana.PublicKeyFromBytes(raw)
	}
	return &pool, nil
}
