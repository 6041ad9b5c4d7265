package jupiter

// API endpoints for Jupiter (Solana DEX aggregator)
const (
	// Jupiter API V6 Endpoints
	DefaultQuoteAPIBase = "https://quote-api.jup.ag/v6"
	DefaultPriceAPIURL  = "https://price.jup.ag/v4/price"

	// Well-known mints on mainnet
	WrappedSolMint = "So11111111111111111111111111111111111111112"
	UsdcMint       = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

	// DefaultSlippageBps is 1% slippage tolerance (100 basis points)
	DefaultSlippageBps = 100

	// DefaultComputeUnitPrice is the priority fee attached to swap
	// transactions, in micro-lamports per compute unit
	DefaultComputeUnitPrice = 300000
)

// Fee estimation constants. Rent is for a token account of the standard
// 165-byte layout.
const (
	LamportsPerSignature  = 5000
	TokenAccountRent      = 2039280
	EstimatedComputeUnits = 200000
)
