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
	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/balinetprojects-blip/troll-swap/pkg/pair"
	sln "github.com/balinetprojects-blip/troll-swap/pkg/solana"
)

var balanceCmd = &cobra.Command{
	Use:   "balance [address]",
	Short: "Show SOL and token balances",
	Long: `Show the SOL and pair-token balances of an address. Without an argument
the configured wallet's address is used.

Examples:
  trollswap balance
  trollswap balance 7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU`,
	Args: cobra.MaximumNArgs(1),
	Run:  runBalance,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

func runBalance(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	svc, err := buildServices(verbose)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	var owner solana.PublicKey
	if len(args) == 1 {
		owner, err = solana.PublicKeyFromBase58(args[0])
		if err != nil {
			printError(fmt.Errorf("invalid address %q: %w", args[0], err))
			os.Exit(1)
		}
	} else {
		w, err := svc.loadWallet()
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		owner = w.PublicKey()
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching balances..."
		s.Start()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	balances, err := sln.GetBalances(ctx, svc.node, owner, svc.pair)
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(balances, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	displayBalances(balances, svc.pair)
}

func displayBalances(balances *sln.PairBalances, p pair.Pair) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                    WALLET BALANCES")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  Address: %s\n\n", color.CyanString(balances.Owner.String()))
	fmt.Printf("  %-10s %s\n", color.YellowString("SOL"), balances.Sol.Amount)
	fmt.Printf("  %-10s %s", color.YellowString(p.Token.Symbol), balances.Token.Amount)
	if balances.Token.Accounts > 1 {
		fmt.Printf("  (across %d token accounts)", balances.Token.Accounts)
	}
	fmt.Println()

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}
