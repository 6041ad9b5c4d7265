package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/balinetprojects-blip/troll-swap/pkg/pair"
	sln "github.com/balinetprojects-blip/troll-swap/pkg/solana"
)

var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Show USD prices for SOL and the pair token",
	Long: `Show the current USD price of SOL and of the configured token, plus the
implied token-per-SOL rate.

Examples:
  trollswap price
  trollswap price --json`,
	Args: cobra.NoArgs,
	Run:  runPrice,
}

func init() {
	rootCmd.AddCommand(priceCmd)
}

func runPrice(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	svc, err := buildServices(verbose)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching prices..."
		s.Start()
	}

	// Snapshot on a fresh service performs a synchronous refresh
	prices := sln.NewPriceService(svc.pair.Token.Mint.String(), svc.aggregator, svc.logger)
	snap := prices.Snapshot()

	if !jsonOutput {
		s.Stop()
	}

	if snap.UpdatedAt.IsZero() {
		printError(fmt.Errorf("could not fetch prices, try again later"))
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(snap, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	displayPrices(snap, svc.pair)
}

func displayPrices(prices sln.PairPrices, p pair.Pair) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                     MARKET PRICES")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  %-10s $%.2f\n", color.YellowString("SOL"), prices.SolUsd)
	fmt.Printf("  %-10s $%.6f\n", color.YellowString(p.Token.Symbol), prices.TokenUsd)
	if prices.TokenPerSol > 0 {
		fmt.Printf("\n  1 SOL = %.4f %s\n", prices.TokenPerSol, p.Token.Symbol)
	}
	fmt.Printf("\n  Updated: %s\n", prices.UpdatedAt.Format("2006-01-02 15:04:05"))

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}
