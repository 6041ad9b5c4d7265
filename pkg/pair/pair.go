package pair

import (
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// Leg is one side of the trading pair: the native asset or the custom token.
type Leg struct {
	Symbol   string
	Mint     solana.PublicKey
	Decimals uint8
	Native   bool
}

// Pair is the single trading pair the whole application operates on.
// Sol is always the native leg, Token is the configured SPL token.
type Pair struct {
	Sol   Leg
	Token Leg
}

// Direction of a swap between the two legs.
type Direction int

const (
	SolToToken Direction = iota
	TokenToSol
)

const solDecimals = 9

var maxRawAmount = decimal.NewFromBigInt(new(big.Int).SetUint64(math.MaxUint64), 0)

// New builds the pair for the given token mint. Symbol and decimals come
// from config or from the on-chain mint account.
func New(tokenMint solana.PublicKey, tokenSymbol string, tokenDecimals uint8) Pair {
	return Pair{
		Sol: Leg{
			Symbol:   "SOL",
			Mint:     solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112"),
			Decimals: solDecimals,
			Native:   true,
		},
		Token: Leg{
			Symbol:   tokenSymbol,
			Mint:     tokenMint,
			Decimals: tokenDecimals,
			Native:   false,
		},
	}
}

// Input returns the leg spent for the given direction.
func (p Pair) Input(d Direction) Leg {
	if d == SolToToken {
		return p.Sol
	}
	return p.Token
}

// Output returns the leg received for the given direction.
func (p Pair) Output(d Direction) Leg {
	if d == SolToToken {
		return p.Token
	}
	return p.Sol
}

// Leg resolves a leg by symbol or by the strings "sol"/"token".
func (p Pair) Leg(name string) (Leg, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sol", "native", strings.ToLower(p.Sol.Symbol):
		return p.Sol, nil
	case "token", strings.ToLower(p.Token.Symbol):
		return p.Token, nil
	default:
		return Leg{}, fmt.Errorf("unknown asset %q, expected %s or %s", name, p.Sol.Symbol, p.Token.Symbol)
	}
}

func (d Direction) String() string {
	if d == SolToToken {
		return "sol_to_token"
	}
	return "token_to_sol"
}

// ParseDirection accepts the wire forms used by the HTTP API and the CLI.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sol_to_token", "soltotoken", "buy":
		return SolToToken, nil
	case "token_to_sol", "tokentosol", "sell":
		return TokenToSol, nil
	default:
		return 0, fmt.Errorf("invalid swap direction %q", s)
	}
}

// ToRaw converts a user-entered amount into base units of the leg.
// Amounts with more fractional digits than the mint supports are rejected
// rather than silently truncated.
func (l Leg) ToRaw(amount decimal.Decimal) (uint64, error) {
	if amount.IsNegative() {
		return 0, fmt.Errorf("amount must be positive, got %s", amount)
	}
	shifted := amount.Shift(int32(l.Decimals))
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, fmt.Errorf("%s supports at most %d decimal places, got %s", l.Symbol, l.Decimals, amount)
	}
	if shifted.Cmp(maxRawAmount) > 0 {
		return 0, fmt.Errorf("amount %s %s exceeds the maximum representable value", amount, l.Symbol)
	}
	return shifted.BigInt().Uint64(), nil
}

// FromRaw converts base units back into a display amount.
func (l Leg) FromRaw(raw uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(raw), 0).Shift(-int32(l.Decimals))
}

// FromRawString converts a base-unit amount carried as a string, the form
// aggregator APIs use for uint64 fields.
func (l Leg) FromRawString(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid raw amount %q: %w", raw, err)
	}
	if d.IsNegative() || !d.Equal(d.Truncate(0)) {
		return decimal.Zero, fmt.Errorf("invalid raw amount %q", raw)
	}
	return d.Shift(-int32(l.Decimals)), nil
}
