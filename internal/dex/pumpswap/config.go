// =============================
// File: internal/dex/pumpswap/config.go
// =============================
package pumpswap

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var (
	// PumpSwapProgramID is the PumpSwap AMM program.
	PumpSwapProgramID = solana.MustPublicKeyFromBase58("pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA")

	// Token2022ProgramID owns every PumpSwap LP mint.
	Token2022ProgramID = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PQnBqCXEpPxuEb")
)

// PDA seeds
var (
	poolSeed           = []byte("pool")
	lpMintSeed         = []byte("pool_lp_mint")
	globalConfigSeed   = []byte("global_config")
	eventAuthoritySeed = []byte("__event_authority")
)

// Config хранит адреса программы PumpSwap, не зависящие от конкретного пула.
type Config struct {
	ProgramID      solana.PublicKey
	GlobalConfig   solana.PublicKey
	EventAuthority solana.PublicKey
}

// NewConfig выводит PDA глобальной конфигурации и event authority для programID.
func NewConfig(programID solana.PublicKey) (*Config, error) {
	globalConfig, _, err := solana.FindProgramAddress([][]byte{globalConfigSeed}, programID)
	if err != nil {
		return nil, fmt.Errorf("failed to derive global config address: %w", err)
	}
	eventAuthority, _, err := solana.FindProgramAddress([][]byte{eventAuthoritySeed}, programID)
	if err != nil {
		return nil, fmt.Errorf("failed to derive event authority: %w", err)
	}
	return &Config{
		ProgramID:      programID,
		GlobalConfig:   globalConfig,
		EventAuthority: eventAuthority,
	}, nil
}

// GetDefaultConfig возвращает конфигурацию для mainnet-программы PumpSwap.
func GetDefaultConfig() *Config {
	cfg, err := NewConfig(PumpSwapProgramID)
	if err != nil {
		// FindProgramAddress не может не найти bump для статических сидов.
		panic(err)
	}
	return cfg
}

// DerivePoolAddress вычисляет PDA пула.
func (cfg *Config) DerivePoolAddress(index uint16, creator, baseMint, quoteMint solana.PublicKey) (solana.PublicKey, error) {
	indexBytes := make([]byte, 2)
	binary.LittleEndian.PutUint16(indexBytes, index)

	pool, _, err := solana.FindProgramAddress(
		[][]byte{poolSeed, indexBytes, creator[:], baseMint[:], quoteMint[:]},
		cfg.ProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive pool address: %w", err)
	}
	return pool, nil
}

// DeriveLPMint вычисляет PDA LP-токена пула.
func (cfg *Config) DeriveLPMint(pool solana.PublicKey) (solana.PublicKey, error) {
	lpMint, _, err := solana.FindProgramAddress([][]byte{lpMintSeed, pool[:]}, cfg.ProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive lp mint: %w", err)
	}
	return lpMint, nil
}
