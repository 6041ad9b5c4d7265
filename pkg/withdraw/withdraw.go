package withdraw

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"

	"github.com/balinetprojects-blip/troll-swap/pkg/jupiter"
	"github.com/balinetprojects-blip/troll-swap/pkg/notifications"
	"github.com/balinetprojects-blip/troll-swap/pkg/pair"
	sln "github.com/balinetprojects-blip/troll-swap/pkg/solana"
	"github.com/balinetprojects-blip/troll-swap/pkg/solana/ata"
	"github.com/balinetprojects-blip/troll-swap/pkg/wallet"
)

const (
	// Transfers are cheap, so the compute limit stays well below the swap
	// default. The idempotent account creation is the expensive part.
	defaultComputeUnitLimit = 80_000

	defaultComputeUnitPrice = 300_000 // micro-lamports per compute unit

	defaultConfirmTimeout = 90 * time.Second
)

// Service sends SOL or the pair token from the app wallet to an external
// address.
type Service struct {
	node             *rpc.Client
	blockhashes      *sln.BlockhashCache
	pair             pair.Pair
	computeUnitLimit uint32
	computeUnitPrice uint64
	confirmTimeout   time.Duration
	tradeLog         *sln.TradeLog
	notifier         *notifications.TelegramClient
	logger           *log.Logger
}

// NewService creates a withdrawal service for the given pair.
func NewService(node *rpc.Client, tradingPair pair.Pair, logger *log.Logger) *Service {
	return &Service{
		node:             node,
		blockhashes:      sln.NewBlockhashCache(node),
		pair:             tradingPair,
		computeUnitLimit: defaultComputeUnitLimit,
		computeUnitPrice: defaultComputeUnitPrice,
		confirmTimeout:   defaultConfirmTimeout,
		logger:           logger,
	}
}

// SetComputeUnitPrice overrides the priority fee in micro-lamports.
func (s *Service) SetComputeUnitPrice(microLamports uint64) {
	s.computeUnitPrice = microLamports
}

// SetTradeLog enables trade history recording.
func (s *Service) SetTradeLog(tradeLog *sln.TradeLog) {
	s.tradeLog = tradeLog
}

// SetNotifier enables Telegram notifications.
func (s *Service) SetNotifier(notifier *notifications.TelegramClient) {
	s.notifier = notifier
}

// Receipt describes a submitted withdrawal.
type Receipt struct {
	Signature   string          `json:"signature"`
	Asset       string          `json:"asset"`
	Amount      decimal.Decimal `json:"amount"`
	Recipient   string          `json:"recipient"`
	FeeLamports uint64          `json:"feeLamports"`
	Confirmed   bool            `json:"confirmed"`
}

// Withdraw transfers amount of the named asset ("sol" or the token symbol)
// to the recipient and waits for confirmation.
func (s *Service) Withdraw(ctx context.Context, w *wallet.Wallet, asset string, amount decimal.Decimal, recipient solana.PublicKey) (*Receipt, error) {
	leg, err := s.pair.Leg(asset)
	if err != nil {
		return nil, err
	}

	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("withdrawal amount must be positive, got %s", amount)
	}
	if recipient.IsZero() {
		return nil, fmt.Errorf("recipient address is required")
	}

	owner := w.PublicKey()
	if recipient.Equals(owner) {
		return nil, fmt.Errorf("recipient must be an external address, not the app wallet")
	}

	raw, err := leg.ToRaw(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid %s amount: %w", leg.Symbol, err)
	}

	feeLamports := estimatedFeeLamports(s.computeUnitPrice, s.computeUnitLimit)
	if err := s.checkBalance(ctx, owner, leg, raw, feeLamports); err != nil {
		return nil, err
	}

	var instrs []solana.Instruction
	if leg.Native {
		instrs = composeNativeTransfer(owner, recipient, raw, s.computeUnitLimit, s.computeUnitPrice)
	} else {
		instrs, err = composeTokenTransfer(owner, recipient, leg.Mint, raw, leg.Decimals, s.computeUnitLimit, s.computeUnitPrice)
		if err != nil {
			return nil, err
		}
	}

	blockhash, _, err := s.blockhashes.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(instrs, blockhash, solana.TransactionPayer(owner))
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction: %w", err)
	}

	if err := w.SignTransaction(tx); err != nil {
		return nil, err
	}

	sig, err := s.node.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send withdrawal: %w", jupiter.Classify(err))
	}

	s.logger.Printf("Withdrawal submitted: %s %s to %s (tx: %s)", amount, leg.Symbol, recipient, sig)

	receipt := &Receipt{
		Signature:   sig.String(),
		Asset:       leg.Symbol,
		Amount:      amount,
		Recipient:   recipient.String(),
		FeeLamports: feeLamports,
	}

	if err := sln.WaitForConfirmation(ctx, s.node, sig, s.confirmTimeout); err != nil {
		if errors.Is(err, sln.ErrTransactionFailed) {
			return nil, fmt.Errorf("withdrawal failed on-chain: %w", err)
		}
		s.logger.Printf("⚠️ Withdrawal %s not confirmed yet: %v", sig, err)
		return receipt, nil
	}
	receipt.Confirmed = true

	s.logger.Printf("🎉 Withdrawal confirmed: %s %s to %s", amount, leg.Symbol, recipient)
	s.record(receipt)

	return receipt, nil
}

// checkBalance verifies the wallet can cover the withdrawal and its fees.
func (s *Service) checkBalance(ctx context.Context, owner solana.PublicKey, leg pair.Leg, raw, feeLamports uint64) error {
	balances, err := sln.GetBalances(ctx, s.node, owner, s.pair)
	if err != nil {
		return fmt.Errorf("failed to check balances: %w", err)
	}

	if leg.Native {
		required := raw + feeLamports
		if balances.Sol.Lamports < required {
			return fmt.Errorf("%w: have %s SOL, need %s SOL including fees",
				jupiter.ErrInsufficientFunds,
				balances.Sol.Amount, leg.FromRaw(required))
		}
		return nil
	}

	if balances.Token.Raw < raw {
		return fmt.Errorf("%w: have %s %s, need %s %s",
			jupiter.ErrInsufficientFunds,
			balances.Token.Amount, leg.Symbol, leg.FromRaw(raw), leg.Symbol)
	}
	if balances.Sol.Lamports < feeLamports {
		return fmt.Errorf("%w: need %s SOL for transaction fees",
			jupiter.ErrInsufficientFunds, s.pair.Sol.FromRaw(feeLamports))
	}
	return nil
}

// record writes the confirmed withdrawal to the trade log and notifies.
func (s *Service) record(receipt *Receipt) {
	display := fmt.Sprintf("%s %s", receipt.Amount, receipt.Asset)

	if s.tradeLog != nil {
		if err := s.tradeLog.RecordWithdrawal(receipt.Asset, display, receipt.Recipient, receipt.FeeLamports, receipt.Signature); err != nil {
			s.logger.Printf("Failed to record withdrawal: %v", err)
		}
	}

	s.notifier.SendWithdrawalNotification(receipt.Asset, display, receipt.Recipient, receipt.Signature)
}

// estimatedFeeLamports combines the signature fee with the priority fee.
func estimatedFeeLamports(computeUnitPrice uint64, computeUnitLimit uint32) uint64 {
	return jupiter.LamportsPerSignature + computeUnitPrice*uint64(computeUnitLimit)/1_000_000
}

// composeNativeTransfer builds the instruction list for a SOL transfer.
func composeNativeTransfer(owner, recipient solana.PublicKey, lamports uint64, computeUnitLimit uint32, computeUnitPrice uint64) []solana.Instruction {
	return []solana.Instruction{
		computebudget.NewSetComputeUnitLimitInstruction(computeUnitLimit).Build(),
		computebudget.NewSetComputeUnitPriceInstruction(computeUnitPrice).Build(),
		system.NewTransferInstruction(lamports, owner, recipient).Build(),
	}
}

// composeTokenTransfer builds the instruction list for a token transfer. The
// recipient's associated token account is created idempotently so transfers
// to fresh wallets work without a separate setup step.
func composeTokenTransfer(owner, recipient, mint solana.PublicKey, amount uint64, decimals uint8, computeUnitLimit uint32, computeUnitPrice uint64) ([]solana.Instruction, error) {
	source, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive source token account: %w", err)
	}
	destination, _, err := solana.FindAssociatedTokenAddress(recipient, mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive destination token account: %w", err)
	}

	return []solana.Instruction{
		computebudget.NewSetComputeUnitLimitInstruction(computeUnitLimit).Build(),
		computebudget.NewSetComputeUnitPriceInstruction(computeUnitPrice).Build(),
		ata.NewCreateIdempotentInstruction(owner, recipient, mint).Build(),
		token.NewTransferCheckedInstruction(amount, decimals, source, mint, destination, owner, []solana.PublicKey{}).Build(),
	}, nil
}
