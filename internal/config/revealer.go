package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type RevealerConfig struct {
	ChainConfig

	HuntID             uint64        `env:"HUNT_ID,required"`
	AutoApprove        bool          `env:"AUTO_APPROVE" envDefault:"false"`
	ClaimTreasures     bool          `env:"CLAIM_TREASURES" envDefault:"true"`
	ReceiptTimeout     time.Duration `env:"RECEIPT_TIMEOUT" envDefault:"5m"`
	PendingCommitGrace time.Duration `env:"PENDING_COMMIT_GRACE" envDefault:"10m"`
}

func LoadRevealer() (RevealerConfig, error) {
	var cfg RevealerConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}
