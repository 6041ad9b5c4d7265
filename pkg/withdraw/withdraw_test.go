package withdraw

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balinetprojects-blip/troll-swap/pkg/pair"
	"github.com/balinetprojects-blip/troll-swap/pkg/solana/ata"
	"github.com/balinetprojects-blip/troll-swap/pkg/wallet"
)

var (
	testMint      = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	testRecipient = solana.MustPublicKeyFromBase58("EeNF8G475Y7NGYJasMiB3c1u51JfzJKKYqzXmvTb3GTf")
)

func testWallet(t *testing.T) *wallet.Wallet {
	t.Helper()
	priv, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	w, err := wallet.FromBase58(priv.String())
	require.NoError(t, err)
	return w
}

func testService() *Service {
	return NewService(nil, pair.New(testMint, "USDC", 6), log.New(io.Discard, "", 0))
}

func TestComposeNativeTransfer(t *testing.T) {
	owner := testWallet(t).PublicKey()

	instrs := composeNativeTransfer(owner, testRecipient, 1_000_000, 80_000, 300_000)
	require.Len(t, instrs, 3)

	assert.Equal(t, computebudget.ProgramID, instrs[0].ProgramID())
	assert.Equal(t, computebudget.ProgramID, instrs[1].ProgramID())
	assert.Equal(t, system.ProgramID, instrs[2].ProgramID())

	accounts := instrs[2].Accounts()
	require.Len(t, accounts, 2)
	assert.Equal(t, owner, accounts[0].PublicKey)
	assert.True(t, accounts[0].IsSigner)
	assert.Equal(t, testRecipient, accounts[1].PublicKey)
}

func TestComposeTokenTransfer(t *testing.T) {
	owner := testWallet(t).PublicKey()

	instrs, err := composeTokenTransfer(owner, testRecipient, testMint, 2_500_000, 6, 80_000, 300_000)
	require.NoError(t, err)
	require.Len(t, instrs, 4)

	assert.Equal(t, computebudget.ProgramID, instrs[0].ProgramID())
	assert.Equal(t, computebudget.ProgramID, instrs[1].ProgramID())
	assert.Equal(t, ata.ProgramID, instrs[2].ProgramID())
	assert.Equal(t, token.ProgramID, instrs[3].ProgramID())

	source, _, err := solana.FindAssociatedTokenAddress(owner, testMint)
	require.NoError(t, err)
	destination, _, err := solana.FindAssociatedTokenAddress(testRecipient, testMint)
	require.NoError(t, err)

	accounts := instrs[3].Accounts()
	require.Len(t, accounts, 4)
	assert.Equal(t, source, accounts[0].PublicKey)
	assert.Equal(t, testMint, accounts[1].PublicKey)
	assert.Equal(t, destination, accounts[2].PublicKey)
	assert.Equal(t, owner, accounts[3].PublicKey)
	assert.True(t, accounts[3].IsSigner)
}

func TestEstimatedFeeLamports(t *testing.T) {
	// 300k micro-lamports over 80k units is 24k lamports of priority fee.
	assert.Equal(t, uint64(29_000), estimatedFeeLamports(300_000, 80_000))
	assert.Equal(t, uint64(5_000), estimatedFeeLamports(0, 80_000))
}

func TestWithdrawRejectsBadRequests(t *testing.T) {
	svc := testService()
	w := testWallet(t)
	ctx := context.Background()

	_, err := svc.Withdraw(ctx, w, "sol", decimal.Zero, testRecipient)
	assert.ErrorContains(t, err, "must be positive")

	_, err = svc.Withdraw(ctx, w, "sol", decimal.NewFromInt(-1), testRecipient)
	assert.ErrorContains(t, err, "must be positive")

	_, err = svc.Withdraw(ctx, w, "doge", decimal.NewFromInt(1), testRecipient)
	assert.Error(t, err)

	_, err = svc.Withdraw(ctx, w, "sol", decimal.NewFromInt(1), solana.PublicKey{})
	assert.ErrorContains(t, err, "recipient")
}

func TestWithdrawRejectsSelfTransfer(t *testing.T) {
	svc := testService()
	w := testWallet(t)

	_, err := svc.Withdraw(context.Background(), w, "sol", decimal.NewFromInt(1), w.PublicKey())
	assert.ErrorContains(t, err, "external address")
}

func TestWithdrawRejectsOverPreciseAmount(t *testing.T) {
	svc := testService()
	w := testWallet(t)

	// USDC has 6 decimals, so 7 decimal places cannot be represented.
	amount, err := decimal.NewFromString("0.1234567")
	require.NoError(t, err)

	_, err = svc.Withdraw(context.Background(), w, "usdc", amount, testRecipient)
	assert.Error(t, err)
}
