package solana

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

var (
	ErrTransactionFailed   = errors.New("transaction failed on-chain")
	ErrConfirmationTimeout = errors.New("transaction confirmation timed out")
)

// Wire values for TxStatus.Status.
const (
	StatusNotFound  = "not_found"
	StatusPending   = "pending"
	StatusProcessed = "processed"
	StatusConfirmed = "confirmed"
	StatusFinalized = "finalized"
	StatusFailed    = "failed"
)

// TxStatus is the polled status of a signature, shaped for API responses.
type TxStatus struct {
	Signature     string  `json:"signature"`
	Slot          uint64  `json:"slot,omitempty"`
	Confirmations *uint64 `json:"confirmations,omitempty"`
	Status        string  `json:"status"`
	Error         string  `json:"error,omitempty"`
}

// Landed reports whether the transaction reached at least the confirmed
// commitment.
func (s *TxStatus) Landed() bool {
	return s.Status == StatusConfirmed || s.Status == StatusFinalized
}

// GetTransactionStatus looks a signature up, searching the transaction
// history so old signatures resolve too.
func GetTransactionStatus(ctx context.Context, client *rpc.Client, sig solana.Signature) (*TxStatus, error) {
	out, err := client.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return nil, fmt.Errorf("failed to get signature status: %w", err)
	}

	status := &TxStatus{Signature: sig.String(), Status: StatusNotFound}
	if out == nil || len(out.Value) == 0 || out.Value[0] == nil {
		return status, nil
	}

	v := out.Value[0]
	status.Slot = v.Slot
	status.Confirmations = v.Confirmations
	if v.Err != nil {
		status.Status = StatusFailed
		status.Error = fmt.Sprintf("%v", v.Err)
		return status, nil
	}

	switch v.ConfirmationStatus {
	case rpc.ConfirmationStatusFinalized:
		status.Status = StatusFinalized
	case rpc.ConfirmationStatusConfirmed:
		status.Status = StatusConfirmed
	case rpc.ConfirmationStatusProcessed:
		status.Status = StatusProcessed
	default:
		status.Status = StatusPending
	}
	return status, nil
}

// WaitForConfirmation polls until the signature reaches at least the
// confirmed commitment, the transaction fails, or the timeout passes.
func WaitForConfirmation(ctx context.Context, client *rpc.Client, sig solana.Signature, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		status, err := GetTransactionStatus(ctx, client, sig)
		if err == nil {
			if status.Landed() {
				return nil
			}
			if status.Status == StatusFailed {
				return fmt.Errorf("%w: %s", ErrTransactionFailed, status.Error)
			}
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w after %s: %s", ErrConfirmationTimeout, timeout, sig)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
