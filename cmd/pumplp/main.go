// ====================================
// File: cmd/pumplp/main.go
// ====================================
package main

import (
	"os"

	"github.com/rovshanmuradov/pumpswap-liquidity/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
