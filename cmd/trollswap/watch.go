package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	sln "github.com/balinetprojects-blip/troll-swap/pkg/solana"
)

var watchIntervalSeconds int

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch wallet balances update live",
	Long: `Continuously watch the configured wallet's SOL and token balances. Uses
an account-change subscription when the websocket endpoint is reachable
and falls back to polling otherwise.

Examples:
  trollswap watch
  trollswap watch --interval 5`,
	Args: cobra.NoArgs,
	Run:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().IntVar(&watchIntervalSeconds, "interval", 0, "Polling interval in seconds (0 uses the configured default)")
}

func runWatch(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if jsonOutput {
		fmt.Println(`{"error": "watch mode not supported with JSON output"}`)
		os.Exit(1)
	}

	svc, err := buildServices(verbose)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	w, err := svc.loadWallet()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	interval := svc.cfg.BalancePollInterval
	if watchIntervalSeconds > 0 {
		interval = time.Duration(watchIntervalSeconds) * time.Second
	}

	fmt.Printf("\nWatching balances for %s\n", color.CyanString(w.PublicKey().String()))
	fmt.Println("Press Ctrl+C to stop.")
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher := sln.NewBalanceWatcher(svc.node, svc.cfg.WebsocketURL(), w.PublicKey(), svc.pair, interval, svc.logger)
	watcher.Start(ctx)
	defer watcher.Stop()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case balances := <-watcher.Updates():
			fmt.Printf("[%s] %s SOL | %s %s  (%s)\n",
				balances.FetchedAt.Format("15:04:05"),
				balances.Sol.Amount,
				balances.Token.Amount,
				svc.pair.Token.Symbol,
				watcher.Mode())
		case <-signalCh:
			fmt.Println("\nStopped watching.")
			return
		}
	}
}
