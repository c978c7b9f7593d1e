package config

import (
	"math/big"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
)

type ClientConfig struct {
	ChainConfig

	HTTPAddr     string `env:"HTTP_ADDR" envDefault:":8080"`
	AdminAPIKey  string `env:"ADMIN_API_KEY"`
	AdminAddress string `env:"ADMIN_ADDRESS" envDefault:"0x14d5aa304Af9c1aeFf1F37375f85bA0cbFb6C104"`

	PollInterval       time.Duration `env:"POLL_INTERVAL" envDefault:"5s"`
	ReceiptTimeout     time.Duration `env:"RECEIPT_TIMEOUT" envDefault:"5m"`
	PendingCommitGrace time.Duration `env:"PENDING_COMMIT_GRACE" envDefault:"10m"`
	EventBufferSize    int           `env:"EVENT_BUFFER_SIZE" envDefault:"200"`

	RaffleEntryFeeWei     string `env:"RAFFLE_ENTRY_FEE_WEI" envDefault:"1000000000000000000"`
	DrawRaffleFrom        uint64 `env:"DRAW_RAFFLE_FROM" envDefault:"5"`
	DrawRaffleTo          uint64 `env:"DRAW_RAFFLE_TO" envDefault:"13"`
	DrawMinParticipations int    `env:"DRAW_MIN_PARTICIPATIONS" envDefault:"8"`
}

func LoadClient() (ClientConfig, error) {
	var cfg ClientConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c ClientConfig) AdminWallet() common.Address {
	return common.HexToAddress(c.AdminAddress)
}

// EntryFee falls back to 1 MON when RAFFLE_ENTRY_FEE_WEI does not parse.
func (c ClientConfig) EntryFee() *big.Int {
	if v, ok := new(big.Int).SetString(c.RaffleEntryFeeWei, 10); ok && v.Sign() > 0 {
		return v
	}
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
}
