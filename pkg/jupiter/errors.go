package jupiter

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors the rest of the application matches on with errors.Is.
// Raw aggregator and RPC failures are folded into these by Classify.
var (
	ErrNoRoute            = errors.New("no swap route available")
	ErrRateLimited        = errors.New("rate limited by the aggregator")
	ErrSlippageExceeded   = errors.New("price moved beyond slippage tolerance")
	ErrInsufficientFunds  = errors.New("insufficient balance")
	ErrServiceUnavailable = errors.New("swap service temporarily unavailable")
	ErrNetwork            = errors.New("network error")
)

// Classify maps a raw error onto one of the sentinel errors, preserving the
// original as the wrapped cause. Errors that already carry a sentinel pass
// through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{
		ErrNoRoute, ErrRateLimited, ErrSlippageExceeded,
		ErrInsufficientFunds, ErrServiceUnavailable, ErrNetwork,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "could_not_find_any_route"),
		strings.Contains(msg, "no route"),
		strings.Contains(msg, "token_not_tradable"):
		return fmt.Errorf("%w: %v", ErrNoRoute, err)

	case strings.Contains(msg, "status: 429"),
		strings.Contains(msg, "too many requests"),
		strings.Contains(msg, "rate limit"):
		return fmt.Errorf("%w: %v", ErrRateLimited, err)

	case strings.Contains(msg, "slippage"),
		strings.Contains(msg, "0x1771"), // Jupiter SlippageToleranceExceeded
		strings.Contains(msg, "exceedsdesiredslippagelimit"):
		return fmt.Errorf("%w: %v", ErrSlippageExceeded, err)

	case strings.Contains(msg, "insufficient lamports"),
		strings.Contains(msg, "insufficient funds"),
		strings.Contains(msg, "0x1\""), // token program InsufficientFunds
		strings.Contains(msg, "debit an account"):
		return fmt.Errorf("%w: %v", ErrInsufficientFunds, err)

	case strings.Contains(msg, "status: 5"),
		strings.Contains(msg, "service unavailable"),
		strings.Contains(msg, "bad gateway"):
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)

	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "deadline exceeded"),
		strings.Contains(msg, "eof"):
		return fmt.Errorf("%w: %v", ErrNetwork, err)

	default:
		return err
	}
}

// IsRetryable reports whether another attempt can reasonably succeed.
// No-route and insufficient-funds failures will not fix themselves.
func IsRetryable(err error) bool {
	classified := Classify(err)
	switch {
	case errors.Is(classified, ErrNoRoute),
		errors.Is(classified, ErrInsufficientFunds):
		return false
	default:
		return true
	}
}

// UserMessage renders an error as a short message safe to show in a UI.
// Unclassified errors get a generic message so RPC internals never leak.
func UserMessage(err error) string {
	classified := Classify(err)
	switch {
	case errors.Is(classified, ErrNoRoute):
		return "No route found for this swap. The pair may have too little liquidity right now."
	case errors.Is(classified, ErrRateLimited):
		return "Too many requests. Please wait a moment and try again."
	case errors.Is(classified, ErrSlippageExceeded):
		return "Price moved beyond your slippage tolerance. Try again or raise the tolerance."
	case errors.Is(classified, ErrInsufficientFunds):
		return "Insufficient balance to cover this amount plus network fees."
	case errors.Is(classified, ErrServiceUnavailable):
		return "The swap service is temporarily unavailable. Please try again shortly."
	case errors.Is(classified, ErrNetwork):
		return "Network error while contacting the swap service. Check your connection and retry."
	default:
		return "The swap could not be completed. Please try again."
	}
}

// ErrorCode returns a short machine-readable code for API responses.
func ErrorCode(err error) string {
	classified := Classify(err)
	switch {
	case errors.Is(classified, ErrNoRoute):
		return "no_route"
	case errors.Is(classified, ErrRateLimited):
		return "rate_limited"
	case errors.Is(classified, ErrSlippageExceeded):
		return "slippage_exceeded"
	case errors.Is(classified, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(classified, ErrServiceUnavailable):
		return "service_unavailable"
	case errors.Is(classified, ErrNetwork):
		return "network_error"
	default:
		return "swap_failed"
	}
}
