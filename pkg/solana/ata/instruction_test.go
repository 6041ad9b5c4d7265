package ata

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testPayer  = solana.MustPublicKeyFromBase58("SkatebLAUZ9cmbayrLE3wWao3VuFsb1eGE3R7mCs2X2")
	testWallet = solana.MustPublicKeyFromBase58("EeNF8G475Y7NGYJasMiB3c1u51JfzJKKYqzXmvTb3GTf")
	testMint   = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
)

func TestCreateIdempotentBuild(t *testing.T) {
	inst := NewCreateIdempotentInstruction(testPayer, testWallet, testMint).Build()

	assert.Equal(t, solana.SPLAssociatedTokenAccountProgramID, inst.ProgramID())

	// One byte of data: the CreateIdempotent discriminator
	data, err := inst.Data()
	require.NoError(t, err)
	assert.Equal(t, []byte{Instruction_CreateIdempotent}, data)

	accounts := inst.Accounts()
	require.Len(t, accounts, 6)

	// Payer funds the account and signs
	assert.Equal(t, testPayer, accounts[0].PublicKey)
	assert.True(t, accounts[0].IsSigner)
	assert.True(t, accounts[0].IsWritable)

	// The created account is the derived associated token address
	expectedAta, _, err := solana.FindAssociatedTokenAddress(testWallet, testMint)
	require.NoError(t, err)
	assert.Equal(t, expectedAta, accounts[1].PublicKey)
	assert.False(t, accounts[1].IsSigner)
	assert.True(t, accounts[1].IsWritable)

	assert.Equal(t, testWallet, accounts[2].PublicKey)
	assert.Equal(t, testMint, accounts[3].PublicKey)
	assert.Equal(t, solana.SystemProgramID, accounts[4].PublicKey)
	assert.Equal(t, solana.TokenProgramID, accounts[5].PublicKey)
}

func TestCreateIdempotentValidate(t *testing.T) {
	_, err := NewCreateIdempotentInstructionBuilder().
		SetWallet(testWallet).
		SetMint(testMint).
		ValidateAndBuild()
	assert.Error(t, err, "missing payer must not validate")

	_, err = NewCreateIdempotentInstruction(testPayer, testWallet, testMint).ValidateAndBuild()
	assert.NoError(t, err)
}

func TestDecodeInstructionRoundTrip(t *testing.T) {
	built := NewCreateIdempotentInstruction(testPayer, testWallet, testMint).Build()

	data, err := built.Data()
	require.NoError(t, err)

	decoded, err := DecodeInstruction(built.Accounts(), data)
	require.NoError(t, err)

	impl, ok := decoded.Impl.(*CreateIdempotent)
	require.True(t, ok, "decoded variant should be CreateIdempotent")
	assert.Equal(t, testPayer, impl.AccountMetaSlice.Get(0).PublicKey)
}
