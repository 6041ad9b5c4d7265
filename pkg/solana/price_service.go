package solana

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"
)

// PriceSource provides USD prices for token mints. The aggregator price
// client satisfies this.
type PriceSource interface {
	GetPrices(ctx context.Context, tokenMints []string, vsMint string) (map[string]float64, error)
}

// solPriceResponse represents a response from the SOL price API
type solPriceResponse struct {
	Solana struct {
		Usd float64 `json:"usd"`
	} `json:"solana"`
}

// PairPrices is the current pricing of both legs.
type PairPrices struct {
	SolUsd      float64   `json:"solUsd"`
	TokenUsd    float64   `json:"tokenUsd"`
	TokenPerSol float64   `json:"tokenPerSol"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PriceService tracks the USD price of SOL and of the pair token.
type PriceService struct {
	tokenMint      string
	source         PriceSource
	solPriceURL    string
	updateInterval time.Duration
	httpClient     *http.Client
	mu             sync.RWMutex
	prices         PairPrices
	logger         *log.Logger
	stopChan       chan struct{}
}

// NewPriceService creates a new price service for the given token mint.
func NewPriceService(tokenMint string, source PriceSource, logger *log.Logger) *PriceService {
	return &PriceService{
		tokenMint:      tokenMint,
		source:         source,
		solPriceURL:    "https://api.coingecko.com/api/v3/simple/price?ids=solana&vs_currencies=usd",
		updateInterval: 1 * time.Minute,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start begins the price update loop
func (p *PriceService) Start() {
	// Fetch prices immediately
	p.refresh()

	go func() {
		ticker := time.NewTicker(p.updateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				p.refresh()
			case <-p.stopChan:
				return
			}
		}
	}()
}

// Stop terminates the price update loop
func (p *PriceService) Stop() {
	close(p.stopChan)
}

// Snapshot returns the current prices, refreshing synchronously when the
// cached values have gone stale.
func (p *PriceService) Snapshot() PairPrices {
	p.mu.RLock()
	prices := p.prices
	p.mu.RUnlock()

	if prices.UpdatedAt.IsZero() || time.Since(prices.UpdatedAt) > 3*p.updateInterval {
		p.refresh()
		p.mu.RLock()
		prices = p.prices
		p.mu.RUnlock()
	}
	return prices
}

// refresh fetches both prices. A failure on either side keeps the previous
// value instead of zeroing it out.
func (p *PriceService) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	solUsd := p.fetchSolPrice()

	var tokenUsd float64
	if p.source != nil && p.tokenMint != "" {
		prices, err := p.source.GetPrices(ctx, []string{p.tokenMint}, "")
		if err != nil {
			p.logger.Printf("Error fetching token price: %v", err)
		} else {
			tokenUsd = prices[p.tokenMint]
		}
	}

	p.mu.Lock()
	if solUsd > 0 {
		p.prices.SolUsd = solUsd
	}
	if tokenUsd > 0 {
		p.prices.TokenUsd = tokenUsd
	}
	if p.prices.TokenUsd > 0 {
		p.prices.TokenPerSol = p.prices.SolUsd / p.prices.TokenUsd
	}
	p.prices.UpdatedAt = time.Now()
	current := p.prices
	p.mu.Unlock()

	p.logger.Printf("Updated prices: SOL=$%.2f token=$%.6f (%.4f token/SOL)",
		current.SolUsd, current.TokenUsd, current.TokenPerSol)
}

// fetchSolPrice fetches the latest SOL price, returning 0 on failure.
func (p *PriceService) fetchSolPrice() float64 {
	resp, err := p.httpClient.Get(p.solPriceURL)
	if err != nil {
		p.logger.Printf("Error fetching SOL price: %v", err)
		return 0
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.logger.Printf("Error fetching SOL price: HTTP %d", resp.StatusCode)
		return 0
	}

	var priceData solPriceResponse
	if err := json.NewDecoder(resp.Body).Decode(&priceData); err != nil {
		p.logger.Printf("Error parsing SOL price data: %v", err)
		return 0
	}

	return priceData.Solana.Usd
}
