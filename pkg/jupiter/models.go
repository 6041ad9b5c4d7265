package jupiter

import (
	"fmt"
	"strconv"
)

// PriceResponse represents the Jupiter Price API response
type PriceResponse struct {
	Data map[string]struct {
		Price         float64 `json:"price"`
		MintSymbol    string  `json:"mintSymbol"`
		VsTokenSymbol string  `json:"vsTokenSymbol"`
	} `json:"data"`
	TimeTaken float64 `json:"timeTaken"`
}

// QuoteResponse represents the Jupiter Quote API response
type QuoteResponse struct {
	InputMint            string `json:"inputMint"`
	InAmount             string `json:"inAmount"`
	OutputMint           string `json:"outputMint"`
	OutAmount            string `json:"outAmount"`
	OtherAmountThreshold string `json:"otherAmountThreshold"`
	SwapMode             string `json:"swapMode"`
	SlippageBps          int    `json:"slippageBps"`
	PlatformFee          *struct {
		Amount string `json:"amount"`
		Mint   string `json:"mint"`
	} `json:"platformFee"`
	PriceImpactPct string `json:"priceImpactPct"`
	RoutePlan      []struct {
		SwapInfo struct {
			AmmKey     string `json:"ammKey"`
			Label      string `json:"label"`
			InputMint  string `json:"inputMint"`
			OutputMint string `json:"outputMint"`
			InAmount   string `json:"inAmount"`
			OutAmount  string `json:"outAmount"`
			FeeAmount  string `json:"feeAmount"`
			FeeMint    string `json:"feeMint"`
		} `json:"swapInfo"`
		Percent int `json:"percent"`
	} `json:"routePlan"`
	ContextSlot uint64  `json:"contextSlot"`
	TimeTaken   float64 `json:"timeTaken"`
}

// OutAmountRaw parses the quoted output amount.
func (q *QuoteResponse) OutAmountRaw() (uint64, error) {
	n, err := strconv.ParseUint(q.OutAmount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid outAmount %q in quote: %w", q.OutAmount, err)
	}
	return n, nil
}

// MinimumOutRaw parses the worst-case output amount after slippage.
func (q *QuoteResponse) MinimumOutRaw() (uint64, error) {
	n, err := strconv.ParseUint(q.OtherAmountThreshold, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid otherAmountThreshold %q in quote: %w", q.OtherAmountThreshold, err)
	}
	return n, nil
}

// RouteLabels lists the AMMs the route passes through, in order.
func (q *QuoteResponse) RouteLabels() []string {
	labels := make([]string, 0, len(q.RoutePlan))
	for _, step := range q.RoutePlan {
		labels = append(labels, step.SwapInfo.Label)
	}
	return labels
}

// SwapRequest represents the Jupiter Swap API request
type SwapRequest struct {
	UserPublicKey                 string        `json:"userPublicKey"`
	QuoteResponse                 QuoteResponse `json:"quoteResponse"`
	WrapAndUnwrapSol              bool          `json:"wrapAndUnwrapSol"`
	UseSharedAccounts             bool          `json:"useSharedAccounts"`
	FeeAccount                    string        `json:"feeAccount,omitempty"`
	ComputeUnitPriceMicroLamports int           `json:"computeUnitPriceMicroLamports,omitempty"`
	AsLegacyTransaction           bool          `json:"asLegacyTransaction,omitempty"`
	DestinationTokenAccount       string        `json:"destinationTokenAccount,omitempty"`
}

// SwapResponse represents the Jupiter Swap API response
type SwapResponse struct {
	SwapTransaction           string `json:"swapTransaction"` // base64 encoded transaction
	LastValidBlockHeight      uint64 `json:"lastValidBlockHeight"`
	PrioritizationFeeLamports uint64 `json:"prioritizationFeeLamports"`
}

// apiError is the error body Jupiter returns alongside non-200 statuses.
type apiError struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"error"`
}
