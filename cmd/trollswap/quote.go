package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/balinetprojects-blip/troll-swap/pkg/jupiter"
	"github.com/balinetprojects-blip/troll-swap/pkg/pair"
)

var quoteCmd = &cobra.Command{
	Use:   "quote <amount> <asset>",
	Short: "Get a swap quote without executing",
	Long: `Quote a swap of the given amount into the other leg of the pair. The
asset is what you sell, "sol" or the token symbol.

Examples:
  trollswap quote 0.5 sol
  trollswap quote 100 usdc`,
	Args: cobra.ExactArgs(2),
	Run:  runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)
}

func runQuote(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	amount, err := decimal.NewFromString(args[0])
	if err != nil || amount.Sign() <= 0 {
		printError(fmt.Errorf("amount must be a positive number, got %q", args[0]))
		os.Exit(1)
	}

	svc, err := buildServices(verbose)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	direction, err := svc.directionFromAsset(args[1])
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching quote..."
		s.Start()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	quote, err := svc.swaps.Quote(ctx, direction, amount)
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	in, out := svc.pair.Input(direction), svc.pair.Output(direction)
	expectedRaw, err := quote.OutAmountRaw()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	minRaw, err := quote.MinimumOutRaw()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		output := map[string]interface{}{
			"in_amount":    amount,
			"in_token":     in.Symbol,
			"out_amount":   out.FromRaw(expectedRaw),
			"minimum_out":  out.FromRaw(minRaw),
			"out_token":    out.Symbol,
			"price_impact": quote.PriceImpactPct,
			"route":        quote.RouteLabels(),
		}
		jsonData, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	displayQuote(in, out, amount, out.FromRaw(expectedRaw), out.FromRaw(minRaw), quote)
}

func displayQuote(in, out pair.Leg, inAmount, expectedOut, minimumOut decimal.Decimal, quote *jupiter.QuoteResponse) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                      SWAP QUOTE")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  You pay:       %s %s\n", inAmount, color.YellowString(in.Symbol))
	fmt.Printf("  You receive:   ~%s %s\n", expectedOut, color.YellowString(out.Symbol))
	fmt.Printf("  Minimum out:   %s %s\n", minimumOut, color.YellowString(out.Symbol))
	if quote.PriceImpactPct != "" {
		fmt.Printf("  Price impact:  %s%%\n", quote.PriceImpactPct)
	}
	if route := quote.RouteLabels(); len(route) > 0 {
		fmt.Printf("  Route:         %s\n", strings.Join(route, " -> "))
	}

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}
