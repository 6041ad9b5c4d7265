package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"

	"github.com/balinetprojects-blip/troll-swap/pkg/pair"
)

// SolBalance is the native balance of a wallet.
type SolBalance struct {
	Lamports uint64          `json:"lamports"`
	Amount   decimal.Decimal `json:"amount"`
}

// TokenBalance sums the pair token across all of the owner's token
// accounts for the mint.
type TokenBalance struct {
	Raw      uint64          `json:"raw"`
	Amount   decimal.Decimal `json:"amount"`
	Accounts int             `json:"accounts"`
}

// PairBalances is a snapshot of both legs for one owner.
type PairBalances struct {
	Owner     solana.PublicKey `json:"owner"`
	Sol       SolBalance       `json:"sol"`
	Token     TokenBalance     `json:"token"`
	FetchedAt time.Time        `json:"fetchedAt"`
}

// GetBalances fetches the SOL balance and the pair-token balance of owner
// in one pass.
func GetBalances(ctx context.Context, client *rpc.Client, owner solana.PublicKey, p pair.Pair) (*PairBalances, error) {
	balances := &PairBalances{Owner: owner, FetchedAt: time.Now()}

	solBalance, err := client.GetBalance(ctx, owner, rpc.CommitmentConfirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to get SOL balance: %w", err)
	}
	balances.Sol.Lamports = solBalance.Value
	balances.Sol.Amount = p.Sol.FromRaw(solBalance.Value)

	mint := p.Token.Mint
	accounts, err := client.GetTokenAccountsByOwner(
		ctx,
		owner,
		&rpc.GetTokenAccountsConfig{
			Mint: &mint,
		},
		&rpc.GetTokenAccountsOpts{
			Encoding: solana.EncodingJSONParsed,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get token accounts: %w", err)
	}

	for _, account := range accounts.Value {
		data := account.Account.Data.GetRawJSON()
		if data == nil {
			continue
		}
		amount, ok := parseTokenAccountAmount(data)
		if !ok {
			continue
		}
		balances.Token.Raw += amount
		balances.Token.Accounts++
	}
	balances.Token.Amount = p.Token.FromRaw(balances.Token.Raw)

	return balances, nil
}

// parseTokenAccountAmount digs the raw amount out of a jsonParsed token
// account.
func parseTokenAccountAmount(data json.RawMessage) (uint64, bool) {
	var parsedData map[string]interface{}
	if err := json.Unmarshal(data, &parsedData); err != nil {
		return 0, false
	}

	parsed, ok := parsedData["parsed"].(map[string]interface{})
	if !ok || parsed["info"] == nil {
		return 0, false
	}
	info, ok := parsed["info"].(map[string]interface{})
	if !ok || info["tokenAmount"] == nil {
		return 0, false
	}
	tokenAmount, ok := info["tokenAmount"].(map[string]interface{})
	if !ok {
		return 0, false
	}
	amountStr, ok := tokenAmount["amount"].(string)
	if !ok {
		return 0, false
	}

	amount, err := strconv.ParseUint(amountStr, 10, 64)
	if err != nil {
		return 0, false
	}
	return amount, true
}
