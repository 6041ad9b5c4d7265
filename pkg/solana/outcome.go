package solana

import (
	"context"
	"fmt"
	"strconv"

	solana_go "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// SwapOutcome is what a confirmed transaction actually did to the owner's
// balances. LamportsDelta still includes the network fee the owner paid.
type SwapOutcome struct {
	FeeLamports   uint64
	LamportsDelta int64
	TokenRawDelta int64
	Slot          uint64
}

// GetSwapOutcome reads the fee and the owner's balance changes from the
// parsed transaction metadata.
func GetSwapOutcome(ctx context.Context, node *rpc.Client, sig solana_go.Signature, owner solana_go.PublicKey, tokenMint solana_go.PublicKey) (*SwapOutcome, error) {
	maxSupportedTransactionVersion := uint64(0)

	txResult, err := node.GetParsedTransaction(
		ctx,
		sig,
		&rpc.GetParsedTransactionOpts{
			Commitment:                     rpc.CommitmentConfirmed,
			MaxSupportedTransactionVersion: &maxSupportedTransactionVersion,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get parsed transaction %s: %w", sig, err)
	}
	if txResult.Meta == nil || txResult.Transaction == nil {
		return nil, fmt.Errorf("transaction %s has no metadata", sig)
	}

	outcome := &SwapOutcome{
		FeeLamports: txResult.Meta.Fee,
		Slot:        txResult.Slot,
	}

	// The owner's position in the account table gives the lamport delta.
	ownerIndex := -1
	for i, account := range txResult.Transaction.Message.AccountKeys {
		if account.PublicKey.Equals(owner) {
			ownerIndex = i
			break
		}
	}
	if ownerIndex >= 0 &&
		ownerIndex < len(txResult.Meta.PreBalances) &&
		ownerIndex < len(txResult.Meta.PostBalances) {
		outcome.LamportsDelta = int64(txResult.Meta.PostBalances[ownerIndex]) -
			int64(txResult.Meta.PreBalances[ownerIndex])
	}

	pre := ownedTokenTotal(txResult.Meta.PreTokenBalances, owner, tokenMint)
	post := ownedTokenTotal(txResult.Meta.PostTokenBalances, owner, tokenMint)
	outcome.TokenRawDelta = int64(post) - int64(pre)

	return outcome, nil
}

// ownedTokenTotal sums the owner's balance of mint across the token
// accounts recorded in the transaction metadata.
func ownedTokenTotal(balances []rpc.TokenBalance, owner, mint solana_go.PublicKey) uint64 {
	var total uint64
	for _, tb := range balances {
		if tb.Owner == nil || !tb.Owner.Equals(owner) || !tb.Mint.Equals(mint) {
			continue
		}
		if tb.UiTokenAmount == nil {
			continue
		}
		if amount, err := strconv.ParseUint(tb.UiTokenAmount.Amount, 10, 64); err == nil {
			total += amount
		}
	}
	return total
}
