package config

import (
	"fmt"

	"github.com/AayushJain09/Polyplace/shared/env"
)

// Config contains configuration for the marketplace integration layer.
type Config struct {
	Environment string
	HTTPAddr    string
	LogLevel    string
	SentryDSN   string

	Pinata PinataConfig
	Chain  ChainConfig
	Wallet WalletConfig
}

type PinataConfig struct {
	BaseURL    string
	APIKey     string
	SecretKey  string
	GatewayURL string
	JWTKey     string
}

type ChainConfig struct {
	RPCURL          string
	ContractAddress string
	ChainID         int64
}

type WalletConfig struct {
	KeystoreDir string
	Passphrase  string
	SIWEDomain  string
	SIWEURI     string
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() *Config {
	env.Load()

	return &Config{
		Environment: env.GetString("ENVIRONMENT", "development"),
		HTTPAddr:    env.GetString("HTTP_ADDR", ":8080"),
		LogLevel:    env.GetString("LOG_LEVEL", "info"),
		SentryDSN:   env.GetString("SENTRY_DSN", ""),
		Pinata:      loadPinataConfig(),
		Chain:       loadChainConfig(),
		Wallet:      loadWalletConfig(),
	}
}

func loadPinataConfig() PinataConfig {
	return PinataConfig{
		BaseURL:    env.GetString("PINATA_BASE_URL", "https://api.pinata.cloud"),
		APIKey:     env.GetString("PINATA_API_KEY", ""),
		SecretKey:  env.GetString("PINATA_SECRET_KEY", ""),
		GatewayURL: env.GetString("PINATA_GATEWAY_URL", "https://gateway.pinata.cloud"),
		JWTKey:     env.GetString("PINATA_JWT_KEY", ""),
	}
}

func loadChainConfig() ChainConfig {
	return ChainConfig{
		RPCURL:          env.GetString("CHAIN_RPC_URL", "https://eth-sepolia.g.alchemy.com/v2/demo"),
		ContractAddress: env.GetString("MARKET_CONTRACT_ADDRESS", ""),
		ChainID:         env.GetInt64("CHAIN_ID", 11155111),
	}
}

func loadWalletConfig() WalletConfig {
	return WalletConfig{
		KeystoreDir: env.GetString("WALLET_KEYSTORE_DIR", ""),
		Passphrase:  env.GetString("WALLET_PASSPHRASE", ""),
		SIWEDomain:  env.GetString("SIWE_DOMAIN", "polyplace.local"),
		SIWEURI:     env.GetString("SIWE_URI", "https://polyplace.local"),
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Chain.RPCURL == "" {
		return fmt.Errorf("CHAIN_RPC_URL is required")
	}
	if c.Chain.ContractAddress == "" {
		return fmt.Errorf("MARKET_CONTRACT_ADDRESS is required")
	}
	if c.Pinata.APIKey == "" && c.Pinata.JWTKey == "" {
		return fmt.Errorf("PINATA_API_KEY or PINATA_JWT_KEY is required")
	}
	return nil
}
