package wallet

import (
	"crypto/ed25519"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromBase58(t *testing.T) {
	priv, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	w, err := FromBase58(priv.String())
	require.NoError(t, err)
	assert.Equal(t, priv.PublicKey(), w.PublicKey())
}

func TestFromBase58Invalid(t *testing.T) {
	_, err := FromBase58("definitely-not-a-key")
	assert.Error(t, err)
}

func TestFromKeygenFile(t *testing.T) {
	priv, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	// solana-keygen stores the key as a JSON array of byte values.
	ints := make([]int, len(priv))
	for i, b := range priv {
		ints[i] = int(b)
	}
	raw, err := json.Marshal(ints)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, os.WriteFile(path, raw, 0600))

	w, err := FromKeygenFile(path)
	require.NoError(t, err)
	assert.Equal(t, priv.PublicKey(), w.PublicKey())
}

func TestLoadPrefersBase58(t *testing.T) {
	priv, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	w, err := Load(priv.String(), "missing.json")
	require.NoError(t, err)
	assert.Equal(t, priv.PublicKey(), w.PublicKey())
}

func TestLoadNothingConfigured(t *testing.T) {
	_, err := Load("", "")
	assert.Error(t, err)
}

func TestSignTransaction(t *testing.T) {
	priv, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	w, err := FromBase58(priv.String())
	require.NoError(t, err)

	recipient, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(1_000, w.PublicKey(), recipient.PublicKey()).Build(),
		},
		solana.Hash{},
		solana.TransactionPayer(w.PublicKey()),
	)
	require.NoError(t, err)

	require.NoError(t, w.SignTransaction(tx))
	assert.NoError(t, tx.VerifySignatures())
}

func TestSignMessage(t *testing.T) {
	priv, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	w, err := FromBase58(priv.String())
	require.NoError(t, err)

	msg := []byte("prove ownership of this wallet")
	sig, err := w.Sign(msg)
	require.NoError(t, err)
	assert.True(t, ed25519.Verify(ed25519.PublicKey(w.PublicKey().Bytes()), msg, sig[:]))
}

func TestStringRedactsKey(t *testing.T) {
	priv, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	w, err := FromBase58(priv.String())
	require.NoError(t, err)

	assert.Equal(t, priv.PublicKey().String(), w.String())
	assert.NotContains(t, w.String(), priv.String())
}
