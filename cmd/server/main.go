package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/joho/godotenv"

	"github.com/balinetprojects-blip/troll-swap/pkg/config"
	"github.com/balinetprojects-blip/troll-swap/pkg/jupiter"
	"github.com/balinetprojects-blip/troll-swap/pkg/notifications"
	"github.com/balinetprojects-blip/troll-swap/pkg/pair"
	"github.com/balinetprojects-blip/troll-swap/pkg/server"
	sln "github.com/balinetprojects-blip/troll-swap/pkg/solana"
	"github.com/balinetprojects-blip/troll-swap/pkg/wallet"
	"github.com/balinetprojects-blip/troll-swap/pkg/withdraw"
)

func main() {
	// Create logger
	logger := log.New(os.Stdout, "", log.LstdFlags)
	logger.Println("Starting Troll Swap server...")

	if err := godotenv.Load(); err != nil {
		logger.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := config.NewConfig()
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	node := rpc.New(cfg.SolanaRpcURL)
	logger.Printf("Using RPC endpoint: %s", cfg.SolanaRpcURL)

	tradingPair, err := buildPair(cfg, node, logger)
	if err != nil {
		logger.Fatalf("Failed to resolve token pair: %v", err)
	}
	logger.Printf("Trading pair: SOL/%s (mint %s, %d decimals)",
		tradingPair.Token.Symbol, tradingPair.Token.Mint, tradingPair.Token.Decimals)

	// Aggregator client and swap orchestration
	aggregator := jupiter.NewClientWithEndpoints(cfg.AggregatorBaseURL, cfg.AggregatorFallbackURL, cfg.PriceAPIURL, logger)
	swaps := jupiter.NewSwapService(node, aggregator, tradingPair, logger)
	swaps.SetSlippageBps(cfg.SlippageBps)
	swaps.SetComputeUnitPrice(cfg.ComputeUnitPrice)
	swaps.SetRetryPolicy(cfg.MaxRetries, cfg.RetryDelay)

	withdrawals := withdraw.NewService(node, tradingPair, logger)
	withdrawals.SetComputeUnitPrice(uint64(cfg.ComputeUnitPrice))

	telegram := notifications.NewTelegramClient(cfg.TelegramBotToken, cfg.TelegramChatID, cfg.EnableTelegram)

	tradeLog, err := sln.NewTradeLog(cfg.TradeDataDir)
	if err != nil {
		logger.Printf("⚠️ Trade history disabled: %v", err)
		tradeLog = nil
	} else {
		withdrawals.SetTradeLog(tradeLog)
	}
	withdrawals.SetNotifier(telegram)

	// Background USD price refresh for both legs
	prices := sln.NewPriceService(tradingPair.Token.Mint.String(), aggregator, logger)
	prices.Start()
	defer prices.Stop()

	srv := server.NewServer(cfg, tradingPair, node, aggregator, swaps, logger)
	srv.SetWithdrawals(withdrawals)
	srv.SetPrices(prices)
	srv.SetNotifier(telegram)
	if tradeLog != nil {
		srv.SetTradeLog(tradeLog)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The wallet is optional: without one the server still proxies, quotes
	// and prepares transactions for browser wallets.
	var watcher *sln.BalanceWatcher
	if cfg.HasWallet() {
		w, err := wallet.Load(cfg.WalletPrivateKey, cfg.WalletKeygenFile)
		if err != nil {
			logger.Fatalf("Failed to load wallet: %v", err)
		}
		logger.Printf("Wallet loaded: %s", w.PublicKey())
		srv.SetWallet(w)

		watcher = sln.NewBalanceWatcher(node, cfg.WebsocketURL(), w.PublicKey(), tradingPair, cfg.BalancePollInterval, logger)
		srv.SetWatcher(watcher)
		watcher.Start(ctx)

		telegram.SendWelcomeMessage(w.PublicKey().String(), tradingPair.Token.Symbol, cfg.BalancePollInterval)
	} else {
		logger.Println("No wallet configured - execute and withdraw endpoints are disabled")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Set up graceful shutdown
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-signalCh:
		logger.Println("Shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed: %v", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("Server shutdown error: %v", err)
	}

	if watcher != nil {
		watcher.Stop()
	}
	logger.Println("Server stopped, goodbye!")
}

// buildPair resolves the traded pair, reading decimals from the mint account
// when the configuration does not pin them.
func buildPair(cfg *config.Config, node *rpc.Client, logger *log.Logger) (pair.Pair, error) {
	mint, err := cfg.TokenMintKey()
	if err != nil {
		return pair.Pair{}, err
	}

	decimals := cfg.TokenDecimals
	if decimals < 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		info, err := sln.GetMintInfo(ctx, node, mint)
		if err != nil {
			return pair.Pair{}, err
		}
		decimals = int(info.Decimals)
		logger.Printf("Resolved %d decimals from mint account", decimals)
	}

	return pair.New(mint, cfg.TokenSymbol, uint8(decimals)), nil
}
