package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, DefaultRpcURL, cfg.SolanaRpcURL)
	assert.Equal(t, DefaultTokenMint, cfg.TokenMint)
	assert.Equal(t, DefaultTokenSymbol, cfg.TokenSymbol)
	assert.Equal(t, -1, cfg.TokenDecimals)
	assert.Equal(t, DefaultSlippageBps, cfg.SlippageBps)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.False(t, cfg.EnableTelegram)
	assert.NoError(t, cfg.Validate())
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9999")
	t.Setenv("TOKEN_SYMBOL", "TROLL")
	t.Setenv("TOKEN_DECIMALS", "9")
	t.Setenv("SLIPPAGE_BPS", "250")
	t.Setenv("RETRY_DELAY", "500ms")
	t.Setenv("ENABLE_TELEGRAM", "true")

	cfg := NewConfig()

	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, "TROLL", cfg.TokenSymbol)
	assert.Equal(t, 9, cfg.TokenDecimals)
	assert.Equal(t, 250, cfg.SlippageBps)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryDelay)
	assert.True(t, cfg.EnableTelegram)
}

func TestEnvParsingFallsBackOnGarbage(t *testing.T) {
	t.Setenv("TOKEN_DECIMALS", "lots")
	t.Setenv("RETRY_DELAY", "soon")

	cfg := NewConfig()

	assert.Equal(t, -1, cfg.TokenDecimals)
	assert.Equal(t, 2*time.Second, cfg.RetryDelay)
}

func TestValidateRejectsBadMint(t *testing.T) {
	cfg := NewConfig()
	cfg.TokenMint = "not-a-mint"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TOKEN_MINT")
}

func TestValidateRejectsBadSlippage(t *testing.T) {
	cfg := NewConfig()
	cfg.SlippageBps = 20000

	assert.Error(t, cfg.Validate())
}

func TestTokenMintKey(t *testing.T) {
	cfg := NewConfig()

	mint, err := cfg.TokenMintKey()
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenMint, mint.String())
}

func TestWebsocketURLDerivation(t *testing.T) {
	cfg := &Config{SolanaRpcURL: "https://api.mainnet-beta.solana.com"}
	assert.Equal(t, "wss://api.mainnet-beta.solana.com", cfg.WebsocketURL())

	cfg = &Config{SolanaRpcURL: "http://localhost:8899"}
	assert.Equal(t, "ws://localhost:8899", cfg.WebsocketURL())

	cfg = &Config{SolanaRpcURL: "https://rpc.example.com", SolanaWsURL: "wss://ws.example.com"}
	assert.Equal(t, "wss://ws.example.com", cfg.WebsocketURL())
}

func TestHasWallet(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.HasWallet())

	cfg.WalletKeygenFile = "id.json"
	assert.True(t, cfg.HasWallet())
}
