package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/balinetprojects-blip/troll-swap/pkg/config"
	"github.com/balinetprojects-blip/troll-swap/pkg/jupiter"
	"github.com/balinetprojects-blip/troll-swap/pkg/pair"
	sln "github.com/balinetprojects-blip/troll-swap/pkg/solana"
	"github.com/balinetprojects-blip/troll-swap/pkg/wallet"
)

var rootCmd = &cobra.Command{
	Use:   "trollswap",
	Short: "A CLI for swapping SOL against one SPL token via a swap aggregator",
	Long: `trollswap trades a single pair (native SOL and one configured SPL token)
through the Jupiter swap aggregator, using the wallet you configure.

Examples:
  trollswap balance
  trollswap price
  trollswap quote 0.5 sol
  trollswap swap 0.5 buy
  trollswap withdraw 10 usdc <recipient-address>
  trollswap watch`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

func confirmPrompt(question string) bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("\n%s (y/N): ", question)

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

// loadConfig reads configuration from TROLLSWAP_* environment variables and
// an optional ~/.trollswap.yaml config file.
func loadConfig() (*config.Config, error) {
	viper.SetConfigName(".trollswap")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")

	// Set default values
	viper.SetDefault("rpc_url", config.DefaultRpcURL)
	viper.SetDefault("ws_url", "")
	viper.SetDefault("token_mint", config.DefaultTokenMint)
	viper.SetDefault("token_symbol", config.DefaultTokenSymbol)
	viper.SetDefault("token_decimals", -1)
	viper.SetDefault("aggregator_base_url", config.DefaultAggregatorBaseURL)
	viper.SetDefault("aggregator_fallback_url", "")
	viper.SetDefault("price_api_url", config.DefaultPriceAPIURL)
	viper.SetDefault("slippage_bps", config.DefaultSlippageBps)
	viper.SetDefault("compute_unit_price", config.DefaultComputeUnitPrice)
	viper.SetDefault("max_retries", 3)
	viper.SetDefault("retry_delay", "2s")
	viper.SetDefault("poll_interval", "15s")
	viper.SetDefault("wallet_private_key", "")
	viper.SetDefault("wallet_keygen_file", "")

	// Read from environment variables
	viper.SetEnvPrefix("TROLLSWAP")
	viper.AutomaticEnv()

	// Read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &config.Config{
		ListenAddr:    config.DefaultListenAddr,
		AllowedOrigin: "*",

		SolanaRpcURL: viper.GetString("rpc_url"),
		SolanaWsURL:  viper.GetString("ws_url"),

		TokenMint:     viper.GetString("token_mint"),
		TokenSymbol:   viper.GetString("token_symbol"),
		TokenDecimals: viper.GetInt("token_decimals"),

		WalletPrivateKey: viper.GetString("wallet_private_key"),
		WalletKeygenFile: viper.GetString("wallet_keygen_file"),

		AggregatorBaseURL:     viper.GetString("aggregator_base_url"),
		AggregatorFallbackURL: viper.GetString("aggregator_fallback_url"),
		PriceAPIURL:           viper.GetString("price_api_url"),
		SlippageBps:           viper.GetInt("slippage_bps"),
		ComputeUnitPrice:      viper.GetInt("compute_unit_price"),
		MaxRetries:            viper.GetInt("max_retries"),
		RetryDelay:            viper.GetDuration("retry_delay"),

		BalancePollInterval: viper.GetDuration("poll_interval"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// services bundles the clients every subcommand needs.
type services struct {
	cfg        *config.Config
	node       *rpc.Client
	pair       pair.Pair
	aggregator *jupiter.Client
	swaps      *jupiter.SwapService
	logger     *log.Logger
}

func buildServices(verbose bool) (*services, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	// Service logs stay out of the way unless --verbose is set
	logger := log.New(io.Discard, "", log.LstdFlags)
	if verbose {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	node := rpc.New(cfg.SolanaRpcURL)

	mint, err := cfg.TokenMintKey()
	if err != nil {
		return nil, err
	}
	decimals := cfg.TokenDecimals
	if decimals < 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		info, err := sln.GetMintInfo(ctx, node, mint)
		if err != nil {
			return nil, fmt.Errorf("could not resolve token decimals: %w", err)
		}
		decimals = int(info.Decimals)
	}
	tradingPair := pair.New(mint, cfg.TokenSymbol, uint8(decimals))

	aggregator := jupiter.NewClientWithEndpoints(cfg.AggregatorBaseURL, cfg.AggregatorFallbackURL, cfg.PriceAPIURL, logger)
	swaps := jupiter.NewSwapService(node, aggregator, tradingPair, logger)
	swaps.SetSlippageBps(cfg.SlippageBps)
	swaps.SetComputeUnitPrice(cfg.ComputeUnitPrice)
	swaps.SetRetryPolicy(cfg.MaxRetries, cfg.RetryDelay)

	return &services{
		cfg:        cfg,
		node:       node,
		pair:       tradingPair,
		aggregator: aggregator,
		swaps:      swaps,
		logger:     logger,
	}, nil
}

// loadWallet requires a signing key, used by commands that spend funds.
func (s *services) loadWallet() (*wallet.Wallet, error) {
	if !s.cfg.HasWallet() {
		return nil, fmt.Errorf("no wallet configured. Set TROLLSWAP_WALLET_PRIVATE_KEY or wallet_keygen_file in ~/.trollswap.yaml")
	}
	return wallet.Load(s.cfg.WalletPrivateKey, s.cfg.WalletKeygenFile)
}

// directionFromAsset maps the asset being sold to a swap direction.
func (s *services) directionFromAsset(asset string) (pair.Direction, error) {
	leg, err := s.pair.Leg(asset)
	if err != nil {
		return 0, err
	}
	if leg.Native {
		return pair.SolToToken, nil
	}
	return pair.TokenToSol, nil
}
