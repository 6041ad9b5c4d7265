package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
)

// Default values for the trading pair and the aggregator endpoints.
const (
	DefaultRpcURL            = "https://api.mainnet-beta.solana.com"
	DefaultTokenMint         = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v" // USDC
	DefaultTokenSymbol       = "USDC"
	DefaultAggregatorBaseURL = "https://quote-api.jup.ag/v6"
	DefaultPriceAPIURL       = "https://price.jup.ag/v4"
	DefaultSlippageBps       = 100
	DefaultComputeUnitPrice  = 300000
	DefaultListenAddr        = ":8080"
)

// Config holds all configuration parameters for the application
type Config struct {
	// HTTP server
	ListenAddr    string
	AllowedOrigin string

	// Solana node
	SolanaRpcURL string
	SolanaWsURL  string

	// Trading pair. TokenDecimals < 0 means "resolve from the mint account
	// at startup".
	TokenMint     string
	TokenSymbol   string
	TokenDecimals int

	// Signing wallet, optional for the API server
	WalletPrivateKey string
	WalletKeygenFile string

	// Swap aggregator
	AggregatorBaseURL     string
	AggregatorFallbackURL string
	PriceAPIURL           string
	SlippageBps           int
	ComputeUnitPrice      int
	MaxRetries            int
	RetryDelay            time.Duration

	// Balance refresh
	BalancePollInterval time.Duration

	// Notifications
	TelegramBotToken string
	TelegramChatID   string
	EnableTelegram   bool

	// Trade history
	TradeDataDir string

	Debug bool
}

// NewConfig creates a new configuration with default values or from environment variables
func NewConfig() *Config {
	return &Config{
		ListenAddr:    getEnv("LISTEN_ADDR", DefaultListenAddr),
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "*"),

		SolanaRpcURL: getEnv("SOLANA_RPC_URL", DefaultRpcURL),
		SolanaWsURL:  getEnv("SOLANA_WS_URL", ""),

		TokenMint:     getEnv("TOKEN_MINT", DefaultTokenMint),
		TokenSymbol:   getEnv("TOKEN_SYMBOL", DefaultTokenSymbol),
		TokenDecimals: getEnvInt("TOKEN_DECIMALS", -1),

		WalletPrivateKey: getEnv("WALLET_PRIVATE_KEY", ""),
		WalletKeygenFile: getEnv("WALLET_KEYGEN_FILE", ""),

		AggregatorBaseURL:     getEnv("AGGREGATOR_BASE_URL", DefaultAggregatorBaseURL),
		AggregatorFallbackURL: getEnv("AGGREGATOR_FALLBACK_URL", ""),
		PriceAPIURL:           getEnv("PRICE_API_URL", DefaultPriceAPIURL),
		SlippageBps:           getEnvInt("SLIPPAGE_BPS", DefaultSlippageBps),
		ComputeUnitPrice:      getEnvInt("COMPUTE_UNIT_PRICE", DefaultComputeUnitPrice),
		MaxRetries:            getEnvInt("MAX_RETRIES", 3),
		RetryDelay:            parseEnvDuration("RETRY_DELAY", 2*time.Second),

		BalancePollInterval: parseEnvDuration("BALANCE_POLL_INTERVAL", 15*time.Second),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		EnableTelegram:   getEnvBool("ENABLE_TELEGRAM", false),

		TradeDataDir: getEnv("TRADE_DATA_DIR", "./data/trades"),

		Debug: getEnvBool("DEBUG", false),
	}
}

// Validate rejects configurations the services cannot start with.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("LISTEN_ADDR must not be empty")
	}
	if _, err := c.TokenMintKey(); err != nil {
		return err
	}
	if c.SlippageBps < 0 || c.SlippageBps > 10000 {
		return fmt.Errorf("SLIPPAGE_BPS must be between 0 and 10000, got %d", c.SlippageBps)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("MAX_RETRIES must be at least 1, got %d", c.MaxRetries)
	}
	return nil
}

// TokenMintKey parses the configured token mint address.
func (c *Config) TokenMintKey() (solana.PublicKey, error) {
	mint, err := solana.PublicKeyFromBase58(c.TokenMint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid TOKEN_MINT %q: %w", c.TokenMint, err)
	}
	return mint, nil
}

// WebsocketURL returns the configured websocket endpoint, deriving it from
// the RPC URL when none is set.
func (c *Config) WebsocketURL() string {
	if c.SolanaWsURL != "" {
		return c.SolanaWsURL
	}
	switch {
	case strings.HasPrefix(c.SolanaRpcURL, "https://"):
		return "wss://" + strings.TrimPrefix(c.SolanaRpcURL, "https://")
	case strings.HasPrefix(c.SolanaRpcURL, "http://"):
		return "ws://" + strings.TrimPrefix(c.SolanaRpcURL, "http://")
	default:
		return c.SolanaRpcURL
	}
}

// HasWallet reports whether a signing key is configured.
func (c *Config) HasWallet() bool {
	return c.WalletPrivateKey != "" || c.WalletKeygenFile != ""
}

// Helper functions for working with environment variables
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func parseEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
