package solana

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	solana_go "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balinetprojects-blip/troll-swap/pkg/pair"
)

var (
	testOwner = solana_go.MustPublicKeyFromBase58("EeNF8G475Y7NGYJasMiB3c1u51JfzJKKYqzXmvTb3GTf")
	testMint  = solana_go.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
)

func testPair() pair.Pair {
	return pair.New(testMint, "USDC", 6)
}

// fakeRPC serves canned JSON-RPC results keyed by method name.
func fakeRPC(t *testing.T, results map[string]string) *rpc.Client {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var req struct {
			ID     interface{} `json:"id"`
			Method string      `json:"method"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		result, ok := results[req.Method]
		if !ok {
			t.Errorf("unexpected RPC method %s", req.Method)
			http.Error(w, "unexpected method", http.StatusBadRequest)
			return
		}

		id, _ := json.Marshal(req.ID)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":%s}`, id, result)
	}))
	t.Cleanup(ts.Close)
	return rpc.New(ts.URL)
}

func TestGetBalances(t *testing.T) {
	tokenAccount := `{
		"pubkey": "7EJfcAv4EkAxRtg9QG8xRHWKdmg74BS4JyckKqXBuriw",
		"account": {
			"lamports": 2039280,
			"owner": "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
			"executable": false,
			"rentEpoch": 0,
			"data": {
				"program": "spl-token",
				"space": 165,
				"parsed": {
					"type": "account",
					"info": {
						"mint": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
						"owner": "EeNF8G475Y7NGYJasMiB3c1u51JfzJKKYqzXmvTb3GTf",
						"tokenAmount": {
							"amount": "2500000",
							"decimals": 6,
							"uiAmount": 2.5,
							"uiAmountString": "2.5"
						}
					}
				}
			}
		}
	}`

	client := fakeRPC(t, map[string]string{
		"getBalance":              `{"context":{"slot":1},"value":1500000000}`,
		"getTokenAccountsByOwner": `{"context":{"slot":1},"value":[` + tokenAccount + `]}`,
	})

	balances, err := GetBalances(context.Background(), client, testOwner, testPair())
	require.NoError(t, err)

	assert.Equal(t, uint64(1500000000), balances.Sol.Lamports)
	assert.Equal(t, "1.5", balances.Sol.Amount.String())
	assert.Equal(t, uint64(2500000), balances.Token.Raw)
	assert.Equal(t, "2.5", balances.Token.Amount.String())
	assert.Equal(t, 1, balances.Token.Accounts)
}

func TestGetBalancesNoTokenAccounts(t *testing.T) {
	client := fakeRPC(t, map[string]string{
		"getBalance":              `{"context":{"slot":1},"value":0}`,
		"getTokenAccountsByOwner": `{"context":{"slot":1},"value":[]}`,
	})

	balances, err := GetBalances(context.Background(), client, testOwner, testPair())
	require.NoError(t, err)

	assert.Equal(t, uint64(0), balances.Sol.Lamports)
	assert.Equal(t, uint64(0), balances.Token.Raw)
	assert.Equal(t, "0", balances.Token.Amount.String())
}

func TestParseTokenAccountAmount(t *testing.T) {
	good := json.RawMessage(`{"parsed":{"info":{"tokenAmount":{"amount":"42"}}}}`)
	amount, ok := parseTokenAccountAmount(good)
	require.True(t, ok)
	assert.Equal(t, uint64(42), amount)

	for _, bad := range []string{
		`not json`,
		`{}`,
		`{"parsed":{}}`,
		`{"parsed":{"info":{}}}`,
		`{"parsed":{"info":{"tokenAmount":{"amount":"abc"}}}}`,
	} {
		_, ok := parseTokenAccountAmount(json.RawMessage(bad))
		assert.False(t, ok, "expected failure for %s", bad)
	}
}

func TestAccountExists(t *testing.T) {
	present := fakeRPC(t, map[string]string{
		"getAccountInfo": `{"context":{"slot":1},"value":{"lamports":2039280,"owner":"TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA","executable":false,"rentEpoch":0,"data":["","base64"]}}`,
	})
	exists, err := AccountExists(context.Background(), present, testOwner)
	require.NoError(t, err)
	assert.True(t, exists)

	missing := fakeRPC(t, map[string]string{
		"getAccountInfo": `{"context":{"slot":1},"value":null}`,
	})
	exists, err = AccountExists(context.Background(), missing, testOwner)
	require.NoError(t, err)
	assert.False(t, exists)
}

// encodeMintAccount builds the 82-byte SPL mint layout with both
// authorities present.
func encodeMintAccount(supply uint64, decimals uint8, initialized bool) string {
	data := make([]byte, 0, 82)

	authority := testOwner.Bytes()
	data = append(data, 1, 0, 0, 0)
	data = append(data, authority...)

	supplyBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(supplyBytes, supply)
	data = append(data, supplyBytes...)

	data = append(data, decimals)
	if initialized {
		data = append(data, 1)
	} else {
		data = append(data, 0)
	}

	data = append(data, 1, 0, 0, 0)
	data = append(data, authority...)

	return base64.StdEncoding.EncodeToString(data)
}

func TestGetMintInfo(t *testing.T) {
	mintData := encodeMintAccount(1_000_000_000_000, 6, true)
	client := fakeRPC(t, map[string]string{
		"getAccountInfo": `{"context":{"slot":1},"value":{"lamports":1461600,"owner":"TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA","executable":false,"rentEpoch":0,"data":["` + mintData + `","base64"]}}`,
	})

	info, err := GetMintInfo(context.Background(), client, testMint)
	require.NoError(t, err)

	assert.Equal(t, testMint, info.Address)
	assert.Equal(t, uint8(6), info.Decimals)
	assert.Equal(t, uint64(1_000_000_000_000), info.Supply)
	assert.True(t, info.Initialized)
	require.NotNil(t, info.MintAuthority)
	assert.Equal(t, testOwner, *info.MintAuthority)
}

func TestGetMintInfoMissingAccount(t *testing.T) {
	client := fakeRPC(t, map[string]string{
		"getAccountInfo": `{"context":{"slot":1},"value":null}`,
	})

	_, err := GetMintInfo(context.Background(), client, testMint)
	assert.Error(t, err)
}

func TestGetTransactionStatus(t *testing.T) {
	sig := solana_go.Signature{}

	finalized := fakeRPC(t, map[string]string{
		"getSignatureStatuses": `{"context":{"slot":200},"value":[{"slot":100,"confirmations":null,"err":null,"confirmationStatus":"finalized"}]}`,
	})
	status, err := GetTransactionStatus(context.Background(), finalized, sig)
	require.NoError(t, err)
	assert.Equal(t, StatusFinalized, status.Status)
	assert.True(t, status.Landed())

	failed := fakeRPC(t, map[string]string{
		"getSignatureStatuses": `{"context":{"slot":200},"value":[{"slot":100,"confirmations":0,"err":{"InstructionError":[2,{"Custom":6001}]},"confirmationStatus":"confirmed"}]}`,
	})
	status, err = GetTransactionStatus(context.Background(), failed, sig)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, status.Status)
	assert.NotEmpty(t, status.Error)

	unknown := fakeRPC(t, map[string]string{
		"getSignatureStatuses": `{"context":{"slot":200},"value":[null]}`,
	})
	status, err = GetTransactionStatus(context.Background(), unknown, sig)
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, status.Status)
	assert.False(t, status.Landed())
}

func TestWaitForConfirmationImmediate(t *testing.T) {
	client := fakeRPC(t, map[string]string{
		"getSignatureStatuses": `{"context":{"slot":200},"value":[{"slot":100,"confirmations":5,"err":null,"confirmationStatus":"confirmed"}]}`,
	})

	err := WaitForConfirmation(context.Background(), client, solana_go.Signature{}, 10*time.Second)
	assert.NoError(t, err)
}

func TestWaitForConfirmationFailedTransaction(t *testing.T) {
	client := fakeRPC(t, map[string]string{
		"getSignatureStatuses": `{"context":{"slot":200},"value":[{"slot":100,"confirmations":0,"err":{"InstructionError":[1,{"Custom":6001}]},"confirmationStatus":"processed"}]}`,
	})

	err := WaitForConfirmation(context.Background(), client, solana_go.Signature{}, 10*time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransactionFailed)
}
