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
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/balinetprojects-blip/troll-swap/pkg/withdraw"
)

var withdrawNoConfirm bool

var withdrawCmd = &cobra.Command{
	Use:   "withdraw <amount> <asset> <recipient>",
	Short: "Send SOL or the pair token to an external address",
	Long: `Withdraw funds from the configured wallet to an external address. The
asset is "sol" or the token symbol. Token withdrawals create the
recipient's token account when it does not exist yet, the rent comes out
of the wallet.

Examples:
  trollswap withdraw 0.1 sol 7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU
  trollswap withdraw 25 usdc 7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU --yes`,
	Args: cobra.ExactArgs(3),
	Run:  runWithdraw,
}

func init() {
	rootCmd.AddCommand(withdrawCmd)

	withdrawCmd.Flags().BoolVarP(&withdrawNoConfirm, "yes", "y", false, "Skip confirmation prompt")
}

func runWithdraw(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	amount, err := decimal.NewFromString(args[0])
	if err != nil || amount.Sign() <= 0 {
		printError(fmt.Errorf("amount must be a positive number, got %q", args[0]))
		os.Exit(1)
	}
	asset := args[1]

	recipient, err := solana.PublicKeyFromBase58(args[2])
	if err != nil {
		printError(fmt.Errorf("invalid recipient address %q: %w", args[2], err))
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

	leg, err := svc.pair.Leg(asset)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	withdrawals := withdraw.NewService(svc.node, svc.pair, svc.logger)
	withdrawals.SetComputeUnitPrice(uint64(svc.cfg.ComputeUnitPrice))

	if !jsonOutput {
		fmt.Println("\n" + strings.Repeat("=", 60))
		color.Yellow("                      WITHDRAWAL")
		fmt.Println(strings.Repeat("=", 60))
		fmt.Printf("\n  From:    %s\n", color.CyanString(w.PublicKey().String()))
		fmt.Printf("  To:      %s\n", color.CyanString(recipient.String()))
		fmt.Printf("  Amount:  %s %s\n", amount, color.YellowString(leg.Symbol))
		fmt.Println("\n" + strings.Repeat("=", 60))

		if !withdrawNoConfirm && !confirmPrompt("Proceed with withdrawal?") {
			fmt.Println("\nWithdrawal cancelled.")
			os.Exit(0)
		}
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Sending withdrawal..."
		s.Start()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	receipt, err := withdrawals.Withdraw(ctx, w, asset, amount, recipient)
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(receipt, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	displayReceipt(receipt)
}

func displayReceipt(receipt *withdraw.Receipt) {
	if receipt.Confirmed {
		color.Green("\n✓ Withdrawal confirmed!")
	} else {
		color.Yellow("\n⚠ Withdrawal sent but not confirmed yet, check the explorer.")
	}

	fmt.Printf("  Signature:  %s\n", color.CyanString(receipt.Signature))
	fmt.Printf("  Amount:     %s %s\n", receipt.Amount, color.YellowString(receipt.Asset))
	fmt.Printf("  Recipient:  %s\n", receipt.Recipient)
	fmt.Printf("  Fee:        ~%.9f SOL\n", float64(receipt.FeeLamports)/1e9)

	fmt.Println("\nView on explorer:")
	color.Cyan("  https://solscan.io/tx/%s\n\n", receipt.Signature)
}
