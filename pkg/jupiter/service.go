package jupiter

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"

	"github.com/balinetprojects-blip/troll-swap/pkg/pair"
	sln "github.com/balinetprojects-blip/troll-swap/pkg/solana"
	"github.com/balinetprojects-blip/troll-swap/pkg/wallet"
)

// SwapService handles swaps between the two legs of the configured pair:
// quoting, building the transaction, signing, sending and confirming.
type SwapService struct {
	client           *Client
	solClient        *rpc.Client
	blockhashes      *sln.BlockhashCache
	pair             pair.Pair
	slippageBps      int
	computeUnitPrice int
	maxRetries       int
	retryDelay       time.Duration
	confirmTimeout   time.Duration
	logger           *log.Logger
}

// NewSwapService creates a new swap service
func NewSwapService(solClient *rpc.Client, client *Client, tradingPair pair.Pair, logger *log.Logger) *SwapService {
	return &SwapService{
		client:           client,
		solClient:        solClient,
		blockhashes:      sln.NewBlockhashCache(solClient),
		pair:             tradingPair,
		slippageBps:      DefaultSlippageBps,
		computeUnitPrice: DefaultComputeUnitPrice,
		maxRetries:       3,
		retryDelay:       2 * time.Second,
		confirmTimeout:   90 * time.Second,
		logger:           logger,
	}
}

// SetSlippageBps overrides the default slippage tolerance.
func (s *SwapService) SetSlippageBps(bps int) {
	if bps > 0 {
		s.slippageBps = bps
	}
}

// SetRetryPolicy overrides how transient failures are retried.
func (s *SwapService) SetRetryPolicy(maxRetries int, delay time.Duration) {
	if maxRetries > 0 {
		s.maxRetries = maxRetries
	}
	if delay > 0 {
		s.retryDelay = delay
	}
}

// SetComputeUnitPrice overrides the priority fee in micro-lamports per
// compute unit.
func (s *SwapService) SetComputeUnitPrice(microLamports int) {
	if microLamports >= 0 {
		s.computeUnitPrice = microLamports
	}
}

// Pair returns the trading pair this service operates on.
func (s *SwapService) Pair() pair.Pair {
	return s.pair
}

// MaxRetries returns the configured attempt budget.
func (s *SwapService) MaxRetries() int {
	return s.maxRetries
}

// Quote fetches a quote for swapping amount of the input leg.
func (s *SwapService) Quote(ctx context.Context, direction pair.Direction, amount decimal.Decimal) (*QuoteResponse, error) {
	in, out := s.pair.Input(direction), s.pair.Output(direction)
	rawIn, err := in.ToRaw(amount)
	if err != nil {
		return nil, err
	}

	quote, err := s.client.GetQuote(ctx, in.Mint.String(), out.Mint.String(), rawIn, s.slippageBps)
	if err != nil {
		return nil, Classify(fmt.Errorf("failed to get swap quote: %w", err))
	}
	return quote, nil
}

// FeeEstimate itemizes the expected cost of a swap. Everything is in
// lamports except the platform fee, which is taken in the output token.
type FeeEstimate struct {
	SignatureLamports uint64 `json:"signatureLamports"`
	PriorityLamports  uint64 `json:"priorityLamports"`
	AtaRentLamports   uint64 `json:"ataRentLamports"`
	PlatformFeeRaw    uint64 `json:"platformFeeRaw,omitempty"`
	TotalLamports     uint64 `json:"totalLamports"`
}

// EstimateFees predicts the cost of a swap before it is sent. Rent is only
// charged when the owner has no token account for the output mint yet.
func (s *SwapService) EstimateFees(ctx context.Context, owner solana.PublicKey, direction pair.Direction, quote *QuoteResponse) (*FeeEstimate, error) {
	est := &FeeEstimate{
		SignatureLamports: LamportsPerSignature,
		PriorityLamports:  priorityFeeLamports(s.computeUnitPrice, EstimatedComputeUnits),
	}

	if direction == pair.SolToToken {
		ata, _, err := solana.FindAssociatedTokenAddress(owner, s.pair.Token.Mint)
		if err != nil {
			return nil, fmt.Errorf("failed to derive associated token account: %w", err)
		}
		exists, err := sln.AccountExists(ctx, s.solClient, ata)
		if err != nil {
			s.logger.Printf("⚠️ Could not check token account %s, skipping rent estimate: %v", ata, err)
			exists = true
		}
		if !exists {
			est.AtaRentLamports = TokenAccountRent
		}
	}

	if quote != nil && quote.PlatformFee != nil {
		if fee, err := strconv.ParseUint(quote.PlatformFee.Amount, 10, 64); err == nil {
			est.PlatformFeeRaw = fee
		}
	}

	est.TotalLamports = est.SignatureLamports + est.PriorityLamports + est.AtaRentLamports
	return est, nil
}

// priorityFeeLamports converts a price in micro-lamports per compute unit
// into whole lamports for the given unit budget.
func priorityFeeLamports(microLamportsPerUnit int, units uint64) uint64 {
	if microLamportsPerUnit <= 0 {
		return 0
	}
	return uint64(microLamportsPerUnit) * units / 1_000_000
}

// SwapPreview is everything a client needs to render a confirmation screen
// and sign the swap on its side.
type SwapPreview struct {
	Direction            string          `json:"direction"`
	InSymbol             string          `json:"inSymbol"`
	OutSymbol            string          `json:"outSymbol"`
	InAmount             decimal.Decimal `json:"inAmount"`
	ExpectedOut          decimal.Decimal `json:"expectedOut"`
	MinimumOut           decimal.Decimal `json:"minimumOut"`
	PriceImpactPct       string          `json:"priceImpactPct"`
	Route                []string        `json:"route"`
	Fees                 FeeEstimate     `json:"fees"`
	UnsignedTransaction  string          `json:"unsignedTransaction"`
	LastValidBlockHeight uint64          `json:"lastValidBlockHeight"`
}

// PrepareSwap quotes and builds an unsigned swap transaction for an
// external owner, typically a browser wallet that signs client side.
func (s *SwapService) PrepareSwap(ctx context.Context, owner solana.PublicKey, direction pair.Direction, amount decimal.Decimal) (*SwapPreview, error) {
	in, out := s.pair.Input(direction), s.pair.Output(direction)

	quote, err := s.Quote(ctx, direction, amount)
	if err != nil {
		return nil, err
	}

	fees, err := s.EstimateFees(ctx, owner, direction, quote)
	if err != nil {
		return nil, Classify(err)
	}

	swapResp, err := s.client.GetSwapTransaction(ctx, quote, owner, SwapOptions{
		UseSharedAccounts:             true,
		ComputeUnitPriceMicroLamports: s.computeUnitPrice,
	})
	if err != nil {
		return nil, Classify(fmt.Errorf("failed to get swap transaction: %w", err))
	}

	expectedRaw, err := quote.OutAmountRaw()
	if err != nil {
		return nil, err
	}
	minRaw, err := quote.MinimumOutRaw()
	if err != nil {
		return nil, err
	}

	return &SwapPreview{
		Direction:            direction.String(),
		InSymbol:             in.Symbol,
		OutSymbol:            out.Symbol,
		InAmount:             amount,
		ExpectedOut:          out.FromRaw(expectedRaw),
		MinimumOut:           out.FromRaw(minRaw),
		PriceImpactPct:       quote.PriceImpactPct,
		Route:                quote.RouteLabels(),
		Fees:                 *fees,
		UnsignedTransaction:  swapResp.SwapTransaction,
		LastValidBlockHeight: swapResp.LastValidBlockHeight,
	}, nil
}

// SubmitSigned broadcasts a transaction signed elsewhere (base64, as
// produced by wallet adapters) and returns its signature.
func (s *SwapService) SubmitSigned(ctx context.Context, signedTxBase64 string) (solana.Signature, error) {
	tx, err := solana.TransactionFromBase64(signedTxBase64)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("invalid signed transaction: %w", err)
	}
	if len(tx.Signatures) == 0 || tx.Signatures[0].IsZero() {
		return solana.Signature{}, fmt.Errorf("transaction is not signed")
	}

	sig, err := s.solClient.SendEncodedTransactionWithOpts(ctx, signedTxBase64, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return solana.Signature{}, Classify(fmt.Errorf("failed to send transaction: %w", err))
	}

	s.logger.Printf("Submitted signed swap transaction: %s", sig)
	return sig, nil
}

// SwapResult reports a completed (or at least broadcast) swap.
type SwapResult struct {
	Signature   solana.Signature `json:"signature"`
	Direction   string           `json:"direction"`
	InAmount    decimal.Decimal  `json:"inAmount"`
	ExpectedOut decimal.Decimal  `json:"expectedOut"`
	ActualOut   decimal.Decimal  `json:"actualOut"`
	FeeLamports uint64           `json:"feeLamports"`
	Confirmed   bool             `json:"confirmed"`
	Attempts    int              `json:"attempts"`
}

// ExecuteSwap runs the full swap with the given wallet: quote, build, sign,
// send and confirm, retrying transient failures with a fresh quote each
// time. A confirmation timeout returns the signature with Confirmed=false
// rather than retrying, so the same input is never spent twice.
func (s *SwapService) ExecuteSwap(ctx context.Context, w *wallet.Wallet, direction pair.Direction, amount decimal.Decimal) (*SwapResult, error) {
	in, out := s.pair.Input(direction), s.pair.Output(direction)
	rawIn, err := in.ToRaw(amount)
	if err != nil {
		return nil, err
	}

	if err := s.checkBalance(ctx, w.PublicKey(), direction, rawIn); err != nil {
		return nil, Classify(err)
	}

	var (
		lastErr           error
		useSharedAccounts = true
	)

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.retryDelay):
			}
		}

		quote, err := s.client.GetQuote(ctx, in.Mint.String(), out.Mint.String(), rawIn, s.slippageBps)
		if err != nil {
			lastErr = fmt.Errorf("failed to get swap quote: %w", err)
			if !IsRetryable(err) {
				return nil, Classify(lastErr)
			}
			s.logger.Printf("Retry %d/%d: %v", attempt, s.maxRetries, lastErr)
			continue
		}

		expectedRaw, err := quote.OutAmountRaw()
		if err != nil {
			lastErr = err
			continue
		}
		s.logger.Printf("Got quote - %s %s -> %s %s (impact %s%%, attempt %d/%d)",
			amount, in.Symbol, out.FromRaw(expectedRaw), out.Symbol,
			quote.PriceImpactPct, attempt, s.maxRetries)

		swapResp, err := s.client.GetSwapTransaction(ctx, quote, w.PublicKey(), SwapOptions{
			UseSharedAccounts:             useSharedAccounts,
			ComputeUnitPriceMicroLamports: s.computeUnitPrice,
		})
		if err != nil {
			// Some AMMs refuse the shared accounts program, rebuild without it
			if strings.Contains(err.Error(), "Simple AMMs are not supported with shared accounts") {
				useSharedAccounts = false
				s.logger.Printf("Detected Simple AMM error, will retry without shared accounts")
			}
			lastErr = fmt.Errorf("failed to get swap transaction: %w", err)
			if !IsRetryable(err) {
				return nil, Classify(lastErr)
			}
			s.logger.Printf("Retry %d/%d: %v", attempt, s.maxRetries, lastErr)
			continue
		}

		sig, err := s.signAndSend(ctx, w, swapResp.SwapTransaction)
		if err != nil {
			lastErr = err
			if !IsRetryable(err) {
				return nil, Classify(lastErr)
			}
			s.logger.Printf("Retry %d/%d: %v", attempt, s.maxRetries, lastErr)
			continue
		}

		result := &SwapResult{
			Signature:   sig,
			Direction:   direction.String(),
			InAmount:    amount,
			ExpectedOut: out.FromRaw(expectedRaw),
			ActualOut:   out.FromRaw(expectedRaw),
			Attempts:    attempt,
		}

		if err := sln.WaitForConfirmation(ctx, s.solClient, sig, s.confirmTimeout); err != nil {
			if errors.Is(err, sln.ErrTransactionFailed) {
				// Landed but reverted, most often slippage. Quote again.
				lastErr = fmt.Errorf("swap transaction %s failed: %w", sig, err)
				if !IsRetryable(err) {
					return nil, Classify(lastErr)
				}
				s.logger.Printf("Retry %d/%d: %v", attempt, s.maxRetries, lastErr)
				continue
			}
			s.logger.Printf("⚠️ Confirmation timed out for %s, status unknown", sig)
			return result, nil
		}
		result.Confirmed = true
		s.logger.Printf("🎉 Swap confirmed on attempt %d/%d: %s", attempt, s.maxRetries, sig)

		if outcome, err := sln.GetSwapOutcome(ctx, s.solClient, sig, w.PublicKey(), s.pair.Token.Mint); err != nil {
			s.logger.Printf("⚠️ Could not read swap outcome for %s: %v", sig, err)
		} else {
			result.FeeLamports = outcome.FeeLamports
			result.ActualOut = actualOutput(out, outcome)
		}
		return result, nil
	}

	return nil, Classify(fmt.Errorf("all %d attempts failed to swap: %w", s.maxRetries, lastErr))
}

func (s *SwapService) signAndSend(ctx context.Context, w *wallet.Wallet, encodedTx string) (solana.Signature, error) {
	decodedTx, err := solana.TransactionFromBase64(encodedTx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to decode transaction: %w", err)
	}

	hash, _, err := s.blockhashes.Latest(ctx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to get latest blockhash: %w", err)
	}
	decodedTx.Message.RecentBlockhash = hash

	if err := w.SignTransaction(decodedTx); err != nil {
		return solana.Signature{}, err
	}

	sig, err := s.solClient.SendTransactionWithOpts(ctx, decodedTx, rpc.TransactionOpts{
		SkipPreflight: true,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}
	return sig, nil
}

// checkBalance fails fast when the wallet cannot cover the input amount
// and, on the SOL side, the network fees on top of it.
func (s *SwapService) checkBalance(ctx context.Context, owner solana.PublicKey, direction pair.Direction, rawIn uint64) error {
	balances, err := sln.GetBalances(ctx, s.solClient, owner, s.pair)
	if err != nil {
		return fmt.Errorf("failed to get balances: %w", err)
	}
	fees, err := s.EstimateFees(ctx, owner, direction, nil)
	if err != nil {
		return err
	}

	if direction == pair.SolToToken {
		required := rawIn + fees.TotalLamports
		if balances.Sol.Lamports < required {
			return fmt.Errorf("%w: need %d lamports (amount + fees), have %d",
				ErrInsufficientFunds, required, balances.Sol.Lamports)
		}
		return nil
	}

	if balances.Token.Raw < rawIn {
		return fmt.Errorf("%w: need %d %s base units, have %d",
			ErrInsufficientFunds, rawIn, s.pair.Token.Symbol, balances.Token.Raw)
	}
	if balances.Sol.Lamports < fees.TotalLamports {
		return fmt.Errorf("%w: need %d lamports for network fees, have %d",
			ErrInsufficientFunds, fees.TotalLamports, balances.Sol.Lamports)
	}
	return nil
}

// actualOutput reads the received amount from the balance deltas of the
// confirmed transaction. The SOL delta has the network fee folded in, so
// the fee is added back to isolate the swap output.
func actualOutput(out pair.Leg, outcome *sln.SwapOutcome) decimal.Decimal {
	if out.Native {
		delta := outcome.LamportsDelta + int64(outcome.FeeLamports)
		if delta < 0 {
			return decimal.Zero
		}
		return out.FromRaw(uint64(delta))
	}
	if outcome.TokenRawDelta <= 0 {
		return decimal.Zero
	}
	return out.FromRaw(uint64(outcome.TokenRawDelta))
}
