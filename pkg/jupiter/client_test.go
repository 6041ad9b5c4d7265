package jupiter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quoteBody = `{
	"inputMint": "So11111111111111111111111111111111111111112",
	"inAmount": "1000000000",
	"outputMint": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
	"outAmount": "171500000",
	"otherAmountThreshold": "169785000",
	"swapMode": "ExactIn",
	"slippageBps": 100,
	"priceImpactPct": "0.01",
	"routePlan": [
		{"swapInfo": {"ammKey": "a", "label": "Orca"}, "percent": 60},
		{"swapInfo": {"ammKey": "b", "label": "Raydium"}, "percent": 40}
	],
	"contextSlot": 123456,
	"timeTaken": 0.04
}`

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewClientWithEndpoints(ts.URL, "", ts.URL+"/price", testLogger()), ts
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestGetQuote(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/quote", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, WrappedSolMint, q.Get("inputMint"))
		assert.Equal(t, UsdcMint, q.Get("outputMint"))
		assert.Equal(t, "1000000000", q.Get("amount"))
		assert.Equal(t, "100", q.Get("slippageBps"))
		fmt.Fprint(w, quoteBody)
	}))

	quote, err := client.GetQuote(context.Background(), WrappedSolMint, UsdcMint, 1_000_000_000, 100)
	require.NoError(t, err)

	out, err := quote.OutAmountRaw()
	require.NoError(t, err)
	assert.Equal(t, uint64(171_500_000), out)

	min, err := quote.MinimumOutRaw()
	require.NoError(t, err)
	assert.Equal(t, uint64(169_785_000), min)

	assert.Equal(t, []string{"Orca", "Raydium"}, quote.RouteLabels())
}

func TestGetQuoteRejectsZeroAmount(t *testing.T) {
	client := NewClient(testLogger())
	_, err := client.GetQuote(context.Background(), WrappedSolMint, UsdcMint, 0, 100)
	assert.ErrorContains(t, err, "greater than zero")
}

func TestGetQuoteNoRoute(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"errorCode":"COULD_NOT_FIND_ANY_ROUTE","error":"No routes found for the input and output mints"}`)
	}))

	_, err := client.GetQuote(context.Background(), WrappedSolMint, UsdcMint, 1_000_000, 100)
	require.Error(t, err)
	assert.ErrorIs(t, Classify(err), ErrNoRoute)
}

func TestGetQuoteZeroOutput(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"inAmount":"1000","outAmount":"0","otherAmountThreshold":"0"}`)
	}))

	_, err := client.GetQuote(context.Background(), WrappedSolMint, UsdcMint, 1_000, 100)
	assert.ErrorIs(t, err, ErrNoRoute)
}

func TestGetQuoteRateLimited(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
	}))

	_, err := client.GetQuote(context.Background(), WrappedSolMint, UsdcMint, 1_000, 100)
	require.Error(t, err)
	assert.ErrorIs(t, Classify(err), ErrRateLimited)
}

func TestGetSwapTransaction(t *testing.T) {
	user := solana.MustPublicKeyFromBase58("EeNF8G475Y7NGYJasMiB3c1u51JfzJKKYqzXmvTb3GTf")

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/swap", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req SwapRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, user.String(), req.UserPublicKey)
		assert.True(t, req.WrapAndUnwrapSol)
		assert.True(t, req.UseSharedAccounts)
		assert.Equal(t, "171500000", req.QuoteResponse.OutAmount)

		fmt.Fprint(w, `{"swapTransaction":"dGVzdA==","lastValidBlockHeight":250000000,"prioritizationFeeLamports":24000}`)
	}))

	var quote QuoteResponse
	require.NoError(t, json.Unmarshal([]byte(quoteBody), &quote))

	resp, err := client.GetSwapTransaction(context.Background(), &quote, user, DefaultSwapOptions())
	require.NoError(t, err)
	assert.Equal(t, "dGVzdA==", resp.SwapTransaction)
	assert.Equal(t, uint64(250_000_000), resp.LastValidBlockHeight)
	assert.Equal(t, uint64(24_000), resp.PrioritizationFeeLamports)
}

func TestGetSwapTransactionEmpty(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"swapTransaction":""}`)
	}))

	var quote QuoteResponse
	require.NoError(t, json.Unmarshal([]byte(quoteBody), &quote))

	_, err := client.GetSwapTransaction(context.Background(), &quote, solana.PublicKey{}, DefaultSwapOptions())
	assert.ErrorContains(t, err, "empty transaction")
}

func TestGetPrices(t *testing.T) {
	mint := "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/price", r.URL.Path)
		assert.Equal(t, mint, r.URL.Query().Get("ids"))
		fmt.Fprintf(w, `{"data":{"%s":{"price":0.999,"mintSymbol":"USDC","vsTokenSymbol":"USDC"}},"timeTaken":0.002}`, mint)
	}))

	prices, err := client.GetPrices(context.Background(), []string{mint}, "")
	require.NoError(t, err)
	assert.InDelta(t, 0.999, prices[mint], 0.0001)
}

func TestGetPricesEmptyInput(t *testing.T) {
	client := NewClient(testLogger())
	prices, err := client.GetPrices(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Empty(t, prices)
}

func TestFailoverOnServerError(t *testing.T) {
	var primaryHits, fallbackHits atomic.Int32

	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		primaryHits.Add(1)
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	}))
	defer primary.Close()

	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fallbackHits.Add(1)
		fmt.Fprint(w, quoteBody)
	}))
	defer fallback.Close()

	client := NewClientWithEndpoints(primary.URL, fallback.URL, "", testLogger())

	quote, err := client.GetQuote(context.Background(), WrappedSolMint, UsdcMint, 1_000_000_000, 100)
	require.NoError(t, err)
	assert.Equal(t, "171500000", quote.OutAmount)
	assert.Equal(t, int32(1), primaryHits.Load())
	assert.Equal(t, int32(1), fallbackHits.Load())
}

func TestNoFailoverOnClientError(t *testing.T) {
	var fallbackHits atomic.Int32

	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"errorCode":"COULD_NOT_FIND_ANY_ROUTE","error":"no route"}`)
	}))
	defer primary.Close()

	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fallbackHits.Add(1)
		fmt.Fprint(w, quoteBody)
	}))
	defer fallback.Close()

	client := NewClientWithEndpoints(primary.URL, fallback.URL, "", testLogger())

	_, err := client.GetQuote(context.Background(), WrappedSolMint, UsdcMint, 1_000_000, 100)
	require.Error(t, err)
	// A quote the primary rejected outright would fail identically on the
	// fallback, so it must not be consulted.
	assert.Equal(t, int32(0), fallbackHits.Load())
}
