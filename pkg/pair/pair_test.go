package pair

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var usdcMint = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")

func testPair() Pair {
	return New(usdcMint, "USDC", 6)
}

func TestNewPair(t *testing.T) {
	p := testPair()

	assert.Equal(t, "SOL", p.Sol.Symbol)
	assert.Equal(t, uint8(9), p.Sol.Decimals)
	assert.True(t, p.Sol.Native)
	assert.Equal(t, "So11111111111111111111111111111111111111112", p.Sol.Mint.String())

	assert.Equal(t, "USDC", p.Token.Symbol)
	assert.Equal(t, uint8(6), p.Token.Decimals)
	assert.False(t, p.Token.Native)
}

func TestDirectionLegs(t *testing.T) {
	p := testPair()

	assert.Equal(t, p.Sol, p.Input(SolToToken))
	assert.Equal(t, p.Token, p.Output(SolToToken))
	assert.Equal(t, p.Token, p.Input(TokenToSol))
	assert.Equal(t, p.Sol, p.Output(TokenToSol))
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("sol_to_token")
	require.NoError(t, err)
	assert.Equal(t, SolToToken, d)

	d, err = ParseDirection("SELL")
	require.NoError(t, err)
	assert.Equal(t, TokenToSol, d)

	_, err = ParseDirection("sideways")
	assert.Error(t, err)
}

func TestLegByName(t *testing.T) {
	p := testPair()

	sol, err := p.Leg("sol")
	require.NoError(t, err)
	assert.True(t, sol.Native)

	tok, err := p.Leg("USDC")
	require.NoError(t, err)
	assert.Equal(t, usdcMint, tok.Mint)

	_, err = p.Leg("BONK")
	assert.Error(t, err)
}

func TestToRaw(t *testing.T) {
	p := testPair()

	raw, err := p.Sol.ToRaw(decimal.RequireFromString("1.5"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000_000), raw)

	raw, err = p.Token.ToRaw(decimal.RequireFromString("0.000001"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), raw)

	raw, err = p.Token.ToRaw(decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), raw)
}

func TestToRawRejectsOverPrecision(t *testing.T) {
	p := testPair()

	// USDC has 6 decimals, 7 fractional digits must not be truncated away.
	_, err := p.Token.ToRaw(decimal.RequireFromString("0.0000001"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decimal places")
}

func TestToRawRejectsNegative(t *testing.T) {
	p := testPair()

	_, err := p.Sol.ToRaw(decimal.RequireFromString("-1"))
	assert.Error(t, err)
}

func TestToRawRejectsOverflow(t *testing.T) {
	p := testPair()

	// 2^64 lamports does not fit in a uint64.
	_, err := p.Sol.ToRaw(decimal.RequireFromString("18446744073.709551616"))
	assert.Error(t, err)
}

func TestFromRaw(t *testing.T) {
	p := testPair()

	assert.Equal(t, "1.5", p.Sol.FromRaw(1_500_000_000).String())
	assert.Equal(t, "0.000001", p.Token.FromRaw(1).String())
	assert.Equal(t, "0", p.Token.FromRaw(0).String())
}

func TestFromRawString(t *testing.T) {
	p := testPair()

	d, err := p.Token.FromRawString("2500000")
	require.NoError(t, err)
	assert.Equal(t, "2.5", d.String())

	_, err = p.Token.FromRawString("not-a-number")
	assert.Error(t, err)

	_, err = p.Token.FromRawString("-5")
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	p := testPair()

	for _, s := range []string{"0.000000001", "1", "123.456789012", "25000000"} {
		amount := decimal.RequireFromString(s)
		raw, err := p.Sol.ToRaw(amount)
		require.NoError(t, err)
		assert.True(t, amount.Equal(p.Sol.FromRaw(raw)), "round trip mismatch for %s", s)
	}
}
