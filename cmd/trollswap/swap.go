package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/balinetprojects-blip/troll-swap/pkg/jupiter"
	"github.com/balinetprojects-blip/troll-swap/pkg/pair"
)

var swapNoConfirm bool

var swapCmd = &cobra.Command{
	Use:   "swap <amount> <direction>",
	Short: "Execute a swap with the configured wallet",
	Long: `Swap between SOL and the pair token. Direction is "buy" (spend SOL, get
the token) or "sell" (spend the token, get SOL).

The command fetches a quote, asks for confirmation, then signs with the
configured wallet, sends the transaction and waits for confirmation. A
fresh quote is taken right before sending, so the final amounts can
differ slightly from the preview.

Examples:
  trollswap swap 0.5 buy
  trollswap swap 100 sell --yes`,
	Args: cobra.ExactArgs(2),
	Run:  runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().BoolVarP(&swapNoConfirm, "yes", "y", false, "Skip confirmation prompt")
}

func runSwap(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	amount, err := decimal.NewFromString(args[0])
	if err != nil || amount.Sign() <= 0 {
		printError(fmt.Errorf("amount must be a positive number, got %q", args[0]))
		os.Exit(1)
	}

	direction, err := pair.ParseDirection(args[1])
	if err != nil {
		printError(err)
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

	in, out := svc.pair.Input(direction), svc.pair.Output(direction)

	// Preview quote before asking for confirmation
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching quote..."
		s.Start()
	}

	quoteCtx, quoteCancel := context.WithTimeout(context.Background(), 30*time.Second)
	quote, err := svc.swaps.Quote(quoteCtx, direction, amount)
	quoteCancel()

	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if !jsonOutput {
		expectedRaw, rawErr := quote.OutAmountRaw()
		minRaw, minErr := quote.MinimumOutRaw()
		if rawErr == nil && minErr == nil {
			displayQuote(in, out, amount, out.FromRaw(expectedRaw), out.FromRaw(minRaw), quote)
		}
	}

	// Ask for confirmation
	if !swapNoConfirm && !jsonOutput {
		if !confirmPrompt("Proceed with swap?") {
			fmt.Println("\nSwap cancelled.")
			os.Exit(0)
		}
	}

	if !jsonOutput {
		s.Suffix = " Executing swap..."
		s.Start()
	}

	// Retries and the confirmation wait happen inside ExecuteSwap
	execCtx, execCancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer execCancel()

	result, err := svc.swaps.ExecuteSwap(execCtx, w, direction, amount)
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	displaySwapResult(result, in, out)
}

func displaySwapResult(result *jupiter.SwapResult, in, out pair.Leg) {
	if result.Confirmed {
		color.Green("\n✓ Swap confirmed!")
	} else {
		color.Yellow("\n⚠ Swap sent but not confirmed yet, check the explorer.")
	}

	fmt.Printf("  Signature:  %s\n", color.CyanString(result.Signature.String()))
	fmt.Printf("  In:         %s %s\n", result.InAmount, color.YellowString(in.Symbol))
	fmt.Printf("  Out:        ~%s %s\n", result.ActualOut, color.YellowString(out.Symbol))
	fmt.Printf("  Fee:        %.9f SOL\n", float64(result.FeeLamports)/1e9)
	if result.Attempts > 1 {
		fmt.Printf("  Attempts:   %d\n", result.Attempts)
	}

	fmt.Println("\nView on explorer:")
	color.Cyan("  https://solscan.io/tx/%s\n\n", result.Signature)
}
