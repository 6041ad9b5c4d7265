package wallet

import (
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
)

// Wallet wraps the keypair that signs swaps and withdrawals.
type Wallet struct {
	priv solana.PrivateKey
}

// FromBase58 loads a wallet from a base58-encoded private key, the format
// exported by Phantom and solana-keygen.
func FromBase58(key string) (*Wallet, error) {
	priv, err := solana.PrivateKeyFromBase58(key)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &Wallet{priv: priv}, nil
}

// FromKeygenFile loads a wallet from a solana-keygen JSON file.
func FromKeygenFile(path string) (*Wallet, error) {
	priv, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keygen file %s: %w", path, err)
	}
	return &Wallet{priv: priv}, nil
}

// Load resolves a wallet from either a base58 key or a keygen file path,
// preferring the key when both are set.
func Load(base58Key, keygenPath string) (*Wallet, error) {
	if base58Key != "" {
		return FromBase58(base58Key)
	}
	if keygenPath != "" {
		if _, err := os.Stat(keygenPath); err != nil {
			return nil, fmt.Errorf("keygen file %s: %w", keygenPath, err)
		}
		return FromKeygenFile(keygenPath)
	}
	return nil, fmt.Errorf("no private key configured")
}

// PublicKey returns the wallet address.
func (w *Wallet) PublicKey() solana.PublicKey {
	return w.priv.PublicKey()
}

// SignTransaction signs every signature slot owned by this wallet.
func (w *Wallet) SignTransaction(tx *solana.Transaction) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.priv.PublicKey()) {
			return &w.priv
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	return nil
}

// Sign signs an arbitrary message, for ownership proofs outside of
// transactions.
func (w *Wallet) Sign(message []byte) (solana.Signature, error) {
	sig, err := w.priv.Sign(message)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to sign message: %w", err)
	}
	return sig, nil
}

// String never prints key material.
func (w *Wallet) String() string {
	return w.priv.PublicKey().String()
}
