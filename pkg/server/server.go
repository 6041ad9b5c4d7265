package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gorilla/mux"

	"github.com/balinetprojects-blip/troll-swap/pkg/config"
	"github.com/balinetprojects-blip/troll-swap/pkg/jupiter"
	"github.com/balinetprojects-blip/troll-swap/pkg/notifications"
	"github.com/balinetprojects-blip/troll-swap/pkg/pair"
	sln "github.com/balinetprojects-blip/troll-swap/pkg/solana"
	"github.com/balinetprojects-blip/troll-swap/pkg/wallet"
	"github.com/balinetprojects-blip/troll-swap/pkg/withdraw"
)

// Server is the HTTP API serving the swap frontend: the aggregator proxy
// endpoints, the typed pair endpoints, and the wallet-mode operations.
type Server struct {
	cfg         *config.Config
	pair        pair.Pair
	node        *rpc.Client
	aggregator  *jupiter.Client
	swaps       *jupiter.SwapService
	withdrawals *withdraw.Service
	wallet      *wallet.Wallet
	prices      *sln.PriceService
	watcher     *sln.BalanceWatcher
	tradeLog    *sln.TradeLog
	notifier    *notifications.TelegramClient
	metrics     *metricsRegistry
	httpClient  *http.Client
	httpServer  *http.Server
	logger      *log.Logger
}

// NewServer wires the always-present dependencies. Optional pieces (wallet,
// withdrawals, prices, watcher, trade log, notifier) attach via setters
// before Start.
func NewServer(cfg *config.Config, tradingPair pair.Pair, node *rpc.Client, aggregator *jupiter.Client, swaps *jupiter.SwapService, logger *log.Logger) *Server {
	s := &Server{
		cfg:        cfg,
		pair:       tradingPair,
		node:       node,
		aggregator: aggregator,
		swaps:      swaps,
		metrics:    newMetricsRegistry(),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}

	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 15 * time.Second,
	}
	return s
}

// SetWallet enables the wallet-mode execute and withdraw endpoints.
func (s *Server) SetWallet(w *wallet.Wallet) {
	s.wallet = w
}

// SetWithdrawals attaches the withdrawal service.
func (s *Server) SetWithdrawals(svc *withdraw.Service) {
	s.withdrawals = svc
}

// SetPrices attaches the USD price service.
func (s *Server) SetPrices(prices *sln.PriceService) {
	s.prices = prices
}

// SetWatcher attaches the balance watcher and wires its mode into the
// metrics gauge. Call before starting the watcher.
func (s *Server) SetWatcher(watcher *sln.BalanceWatcher) {
	s.watcher = watcher
	watcher.OnModeChange(s.metrics.setWatchMode)
}

// SetTradeLog attaches the trade history.
func (s *Server) SetTradeLog(tradeLog *sln.TradeLog) {
	s.tradeLog = tradeLog
}

// SetNotifier attaches the Telegram notifier.
func (s *Server) SetNotifier(notifier *notifications.TelegramClient) {
	s.notifier = notifier
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()

	// Aggregator reverse proxy, CORS added by the middleware
	r.HandleFunc("/api/jupiter/quote", s.handleProxyQuote).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/jupiter/swap", s.handleProxySwap).Methods(http.MethodPost, http.MethodOptions)

	r.HandleFunc("/api/tokens", s.handleTokens).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/balances", s.handleBalances).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/price", s.handlePrice).Methods(http.MethodGet, http.MethodOptions)

	r.HandleFunc("/api/swap/prepare", s.handleSwapPrepare).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/swap/submit", s.handleSwapSubmit).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/swap/execute", s.handleSwapExecute).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/withdraw", s.handleWithdraw).Methods(http.MethodPost, http.MethodOptions)

	r.HandleFunc("/api/trades/summary", s.handleTradeSummary).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/tx/{signature}", s.handleTxStatus).Methods(http.MethodGet, http.MethodOptions)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.handler()).Methods(http.MethodGet)

	r.Use(s.corsMiddleware)
	return r
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start blocks serving HTTP until Shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.Printf("API listening on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// corsMiddleware lets the browser frontend call every endpoint from the
// configured origin. Preflight requests never reach the handlers.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := s.cfg.AllowedOrigin
		if origin == "" {
			origin = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

// writeClassifiedError folds a raw failure into the user-facing message and
// machine code so RPC and aggregator internals never reach the frontend.
func (s *Server) writeClassifiedError(w http.ResponseWriter, err error) {
	s.logger.Printf("Request failed: %v", err)
	writeJSON(w, statusForError(err), errorResponse{
		Error: jupiter.UserMessage(err),
		Code:  jupiter.ErrorCode(err),
	})
}

func statusForError(err error) int {
	classified := jupiter.Classify(err)
	switch {
	case errors.Is(classified, jupiter.ErrNoRoute),
		errors.Is(classified, jupiter.ErrInsufficientFunds),
		errors.Is(classified, jupiter.ErrSlippageExceeded):
		return http.StatusBadRequest
	case errors.Is(classified, jupiter.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(classified, jupiter.ErrServiceUnavailable),
		errors.Is(classified, jupiter.ErrNetwork):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
