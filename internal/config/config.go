// Package config loads gateway configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all gateway configuration. It is read once at process start
// and passed explicitly to the components that need it.
type Config struct {
	// HTTP
	Port               int
	CORSAllowedOrigins []string

	// Document store
	MongoURI string
	MongoDB  string

	// Ledger
	ChainEnabled    bool
	RPCURL          string
	ChainID         int64
	ContractAddress string
	NetworkName     string

	// Signing keys (hex, no 0x prefix required)
	AdminPrivateKey  string
	MinterPrivateKey string
	UserPrivateKey   string

	// Access guard secrets
	AdminToken  string
	MinterToken string

	// Identity label stamped on issuance logs
	MinterID string
}

// Load builds a Config from environment variables and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Port:               envInt("PORT", 8000),
		CORSAllowedOrigins: splitCSV(envOr("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		MongoURI:           os.Getenv("MONGODB_URI"),
		MongoDB:            envOr("MONGODB_DB", "bluecarbon"),
		ChainEnabled:       os.Getenv("ENABLE_BLOCKCHAIN") == "1",
		RPCURL:             os.Getenv("RPC_URL"),
		ChainID:            int64(envInt("CHAIN_ID", 0)),
		ContractAddress:    os.Getenv("CONTRACT_ADDRESS"),
		NetworkName:        envOr("NETWORK_NAME", "Celo Alfajores"),
		AdminPrivateKey:    os.Getenv("ADMIN_PRIVATE_KEY"),
		MinterPrivateKey:   os.Getenv("MINTER_PRIVATE_KEY"),
		UserPrivateKey:     os.Getenv("USER_PRIVATE_KEY"),
		AdminToken:         os.Getenv("ADMIN_TOKEN"),
		MinterToken:        os.Getenv("MINTER_TOKEN"),
		MinterID:           envOr("MINTER_ID", "minter-1"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.MongoURI == "" {
		return fmt.Errorf("MONGODB_URI is required")
	}
	if c.AdminToken == "" {
		return fmt.Errorf("ADMIN_TOKEN is required")
	}
	if c.MinterToken == "" {
		return fmt.Errorf("MINTER_TOKEN is required")
	}
	if c.ChainEnabled {
		if c.RPCURL == "" {
			return fmt.Errorf("RPC_URL is required when ENABLE_BLOCKCHAIN=1")
		}
		if c.ChainID == 0 {
			return fmt.Errorf("CHAIN_ID is required when ENABLE_BLOCKCHAIN=1")
		}
		if c.ContractAddress == "" {
			return fmt.Errorf("CONTRACT_ADDRESS is required when ENABLE_BLOCKCHAIN=1")
		}
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
