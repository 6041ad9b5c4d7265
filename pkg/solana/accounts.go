package solana

import (
	"context"
	"errors"
	"fmt"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
)

// AccountExists reports whether an account is live on chain. Used to decide
// if a token account must be created (and its rent paid) before a transfer.
func AccountExists(ctx context.Context, client *rpc.Client, account solana.PublicKey) (bool, error) {
	info, err := client.GetAccountInfo(ctx, account)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) || strings.Contains(err.Error(), "not found") {
			return false, nil
		}
		return false, fmt.Errorf("failed to get account info for %s: %w", account, err)
	}
	return info.Value != nil, nil
}

// MintInfo describes an SPL mint account.
type MintInfo struct {
	Address       solana.PublicKey  `json:"address"`
	Decimals      uint8             `json:"decimals"`
	Supply        uint64            `json:"supply"`
	Initialized   bool              `json:"initialized"`
	MintAuthority *solana.PublicKey `json:"mintAuthority,omitempty"`
}

// GetMintInfo fetches and decodes a mint account, the authoritative source
// for the token's decimals.
func GetMintInfo(ctx context.Context, client *rpc.Client, mintAddress solana.PublicKey) (*MintInfo, error) {
	info, err := client.GetAccountInfo(ctx, mintAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to get mint account %s: %w", mintAddress, err)
	}
	if info.Value == nil {
		return nil, fmt.Errorf("mint account %s does not exist", mintAddress)
	}

	data := info.Value.Data.GetBinary()
	var mint token.Mint
	if err := bin.NewBinDecoder(data).Decode(&mint); err != nil {
		return nil, fmt.Errorf("failed to decode mint account %s: %w", mintAddress, err)
	}
	if !mint.IsInitialized {
		return nil, fmt.Errorf("mint account %s is not initialized", mintAddress)
	}

	return &MintInfo{
		Address:       mintAddress,
		Decimals:      mint.Decimals,
		Supply:        mint.Supply,
		Initialized:   mint.IsInitialized,
		MintAuthority: mint.MintAuthority,
	}, nil
}
