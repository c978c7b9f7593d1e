package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ChainConfig is shared by every binary that talks to the contracts.
type ChainConfig struct {
	RPCURL         string `env:"RPC_URL" envDefault:"https://rpc.monad.xyz"`
	ChainID        int64  `env:"CHAIN_ID" envDefault:"143"`
	HuntContract   string `env:"HUNT_CONTRACT" envDefault:"0x91AC7FEfB3759C36355F92eF3F3014f9aF648Bb7"`
	RaffleContract string `env:"RAFFLE_CONTRACT" envDefault:"0x26A56f3245161CE7938200F1366A1cf9549c7e20"`
	WalletKey      string `env:"WALLET_PRIVATE_KEY,required,notEmpty"`

	PostgresDSN string `env:"POSTGRES_DSN"`
	CommitFile  string `env:"COMMIT_FILE" envDefault:"treasureHunt_commits.json"`
}

func (c ChainConfig) Validate() error {
	if !common.IsHexAddress(c.HuntContract) {
		return fmt.Errorf("HUNT_CONTRACT %q is not an address", c.HuntContract)
	}
	if !common.IsHexAddress(c.RaffleContract) {
		return fmt.Errorf("RAFFLE_CONTRACT %q is not an address", c.RaffleContract)
	}
	if c.ChainID <= 0 {
		return fmt.Errorf("CHAIN_ID must be positive, got %d", c.ChainID)
	}
	return nil
}

func (c ChainConfig) HuntAddress() common.Address {
	return common.HexToAddress(c.HuntContract)
}

func (c ChainConfig) RaffleAddress() common.Address {
	return common.HexToAddress(c.RaffleContract)
}

// WalletKeyHex strips an optional 0x prefix.
func (c ChainConfig) WalletKeyHex() string {
	return strings.TrimPrefix(strings.TrimSpace(c.WalletKey), "0x")
}
