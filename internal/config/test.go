package config

import "github.com/caarlos0/env/v11"

// TestConfig gates the Postgres commit store tests. They skip when the DSN
// is unset; each test runs in its own schema of that database.
type TestConfig struct {
	CommitStoreDSN string `env:"TEST_POSTGRES_DSN,required,notEmpty"`
}

func LoadTest() (TestConfig, error) {
	var cfg TestConfig
	err := env.Parse(&cfg)
	return cfg, err
}
