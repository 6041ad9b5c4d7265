package jupiter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
)

// Client represents a Jupiter API client
type Client struct {
	httpClient  *http.Client
	baseURL     string
	fallbackURL string
	priceURL    string
	logger      *log.Logger
}

// NewClient creates a client against the public Jupiter endpoints.
func NewClient(logger *log.Logger) *Client {
	return NewClientWithEndpoints(DefaultQuoteAPIBase, "", DefaultPriceAPIURL, logger)
}

// NewClientWithEndpoints creates a client with custom endpoints. The
// fallback base, when set, is tried after the primary fails with a
// transport error, a 5xx or a rate limit.
func NewClientWithEndpoints(baseURL, fallbackURL, priceURL string, logger *log.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultQuoteAPIBase
	}
	if priceURL == "" {
		priceURL = DefaultPriceAPIURL
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		fallbackURL: strings.TrimSuffix(fallbackURL, "/"),
		priceURL:    priceURL,
		logger:      logger,
	}
}

// BaseURL returns the primary quote API base.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetPrices fetches USD prices for the given token mints, quoted in vsMint
// (USDC when empty).
func (c *Client) GetPrices(ctx context.Context, tokenMints []string, vsMint string) (map[string]float64, error) {
	if len(tokenMints) == 0 {
		return make(map[string]float64), nil
	}
	if vsMint == "" {
		vsMint = UsdcMint
	}

	params := url.Values{}
	params.Set("ids", strings.Join(tokenMints, ","))
	params.Set("vsToken", vsMint)

	var priceResp PriceResponse
	if err := c.doJSON(ctx, http.MethodGet, c.priceURL+"?"+params.Encode(), nil, &priceResp); err != nil {
		return nil, fmt.Errorf("failed to call price API: %w", err)
	}

	prices := make(map[string]float64)
	for mint, data := range priceResp.Data {
		prices[mint] = data.Price
	}
	return prices, nil
}

// GetQuote fetches a swap quote for the given amount of inputMint.
func (c *Client) GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*QuoteResponse, error) {
	if amount == 0 {
		return nil, fmt.Errorf("quote amount must be greater than zero")
	}
	if slippageBps <= 0 {
		slippageBps = DefaultSlippageBps
	}

	params := url.Values{}
	params.Set("inputMint", inputMint)
	params.Set("outputMint", outputMint)
	params.Set("amount", strconv.FormatUint(amount, 10))
	params.Set("slippageBps", strconv.Itoa(slippageBps))
	params.Set("onlyDirectRoutes", "false")

	var quoteResp QuoteResponse
	if err := c.getWithFailover(ctx, "/quote?"+params.Encode(), &quoteResp); err != nil {
		return nil, fmt.Errorf("failed to call quote API: %w", err)
	}

	// Basic validation: a usable quote must have a non-zero output amount
	out, err := quoteResp.OutAmountRaw()
	if err != nil {
		return nil, err
	}
	if out == 0 {
		return nil, fmt.Errorf("%w: quote returned 0 output for %s -> %s", ErrNoRoute, inputMint, outputMint)
	}

	return &quoteResp, nil
}

// SwapOptions tune how the swap transaction is assembled by the aggregator.
type SwapOptions struct {
	UseSharedAccounts             bool
	ComputeUnitPriceMicroLamports int
	DestinationTokenAccount       string
}

// DefaultSwapOptions mirror what the aggregator recommends for wallets.
func DefaultSwapOptions() SwapOptions {
	return SwapOptions{
		UseSharedAccounts:             true,
		ComputeUnitPriceMicroLamports: DefaultComputeUnitPrice,
	}
}

// GetSwapTransaction asks the aggregator to build the transaction for a
// previously fetched quote. The returned transaction is base64 encoded and
// unsigned.
func (c *Client) GetSwapTransaction(ctx context.Context, quote *QuoteResponse, userPubKey solana.PublicKey, opts SwapOptions) (*SwapResponse, error) {
	swapReq := SwapRequest{
		UserPublicKey:                 userPubKey.String(),
		QuoteResponse:                 *quote,
		WrapAndUnwrapSol:              true, // native SOL in and out, no manual wSOL handling
		UseSharedAccounts:             opts.UseSharedAccounts,
		AsLegacyTransaction:           false,
		ComputeUnitPriceMicroLamports: opts.ComputeUnitPriceMicroLamports,
		DestinationTokenAccount:       opts.DestinationTokenAccount,
	}

	jsonData, err := json.Marshal(swapReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal swap request: %w", err)
	}

	var swapResp SwapResponse
	if err := c.postWithFailover(ctx, "/swap", jsonData, &swapResp); err != nil {
		return nil, fmt.Errorf("failed to call swap API: %w", err)
	}

	if swapResp.SwapTransaction == "" {
		return nil, fmt.Errorf("swap API returned empty transaction")
	}

	return &swapResp, nil
}

func (c *Client) bases() []string {
	if c.fallbackURL == "" {
		return []string{c.baseURL}
	}
	return []string{c.baseURL, c.fallbackURL}
}

func (c *Client) getWithFailover(ctx context.Context, pathAndQuery string, v interface{}) error {
	return c.withFailover(ctx, func(base string) error {
		return c.doJSON(ctx, http.MethodGet, base+pathAndQuery, nil, v)
	})
}

func (c *Client) postWithFailover(ctx context.Context, path string, body []byte, v interface{}) error {
	return c.withFailover(ctx, func(base string) error {
		return c.doJSON(ctx, http.MethodPost, base+path, body, v)
	})
}

func (c *Client) withFailover(ctx context.Context, call func(base string) error) error {
	var lastErr error
	for i, base := range c.bases() {
		if i > 0 {
			c.logger.Printf("⚠️ Primary aggregator endpoint failed (%v), retrying against %s", lastErr, base)
		}
		if err := call(base); err != nil {
			lastErr = err
			if ctx.Err() != nil || !shouldFailover(err) {
				return err
			}
			continue
		}
		return nil
	}
	return lastErr
}

// shouldFailover reports whether the secondary endpoint could do better.
// 4xx responses would fail identically there, rate limits likely not.
func shouldFailover(err error) bool {
	classified := Classify(err)
	return errors.Is(classified, ErrNetwork) ||
		errors.Is(classified, ErrServiceUnavailable) ||
		errors.Is(classified, ErrRateLimited)
}

func (c *Client) doJSON(ctx context.Context, method, fullURL string, body []byte, v interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		var apiErr apiError
		if json.Unmarshal(detail, &apiErr) == nil && apiErr.ErrorCode != "" {
			return fmt.Errorf("aggregator returned non-OK status: %d - %s: %s",
				resp.StatusCode, apiErr.ErrorCode, apiErr.Message)
		}
		return fmt.Errorf("aggregator returned non-OK status: %d - %s", resp.StatusCode, string(detail))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
