package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/balinetprojects-blip/troll-swap/pkg/jupiter"
	"github.com/balinetprojects-blip/troll-swap/pkg/notifications"
	"github.com/balinetprojects-blip/troll-swap/pkg/pair"
	sln "github.com/balinetprojects-blip/troll-swap/pkg/solana"
)

type legView struct {
	Symbol   string `json:"symbol"`
	Mint     string `json:"mint"`
	Decimals uint8  `json:"decimals"`
	Native   bool   `json:"native"`
}

func viewOf(l pair.Leg) legView {
	return legView{
		Symbol:   l.Symbol,
		Mint:     l.Mint.String(),
		Decimals: l.Decimals,
		Native:   l.Native,
	}
}

// handleTokens describes the traded pair so the frontend needs no
// hardcoded mint addresses.
func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Sol   legView `json:"sol"`
		Token legView `json:"token"`
	}{
		Sol:   viewOf(s.pair.Sol),
		Token: viewOf(s.pair.Token),
	})
}

// handleBalances returns pair balances for the owner in the query, or for
// the server wallet when the query is empty. The wallet's balances come
// from the watcher cache when one is attached.
func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	ownerParam := r.URL.Query().Get("owner")

	if ownerParam == "" {
		if s.wallet == nil {
			writeError(w, http.StatusBadRequest, "bad_request", "owner query parameter is required")
			return
		}
		if s.watcher != nil {
			if last := s.watcher.Last(); last != nil {
				writeJSON(w, http.StatusOK, last)
				return
			}
		}
		ownerParam = s.wallet.PublicKey().String()
	}

	owner, err := solana.PublicKeyFromBase58(ownerParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("invalid owner address %q", ownerParam))
		return
	}

	balances, err := sln.GetBalances(r.Context(), s.node, owner, s.pair)
	if err != nil {
		s.writeClassifiedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balances)
}

// handlePrice returns the USD prices of both legs.
func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	if s.prices == nil {
		writeError(w, http.StatusServiceUnavailable, "price_unavailable", "price service is not running")
		return
	}
	writeJSON(w, http.StatusOK, s.prices.Snapshot())
}

type prepareRequest struct {
	Owner     string `json:"owner"`
	Direction string `json:"direction"`
	Amount    string `json:"amount"`
}

// handleSwapPrepare quotes a swap and returns the preview plus the unsigned
// transaction for the browser wallet to sign.
func (s *Server) handleSwapPrepare(w http.ResponseWriter, r *http.Request) {
	var req prepareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json payload")
		return
	}

	owner, err := solana.PublicKeyFromBase58(req.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid owner address")
		return
	}
	direction, err := pair.ParseDirection(req.Direction)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.Sign() <= 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "amount must be a positive decimal number")
		return
	}

	preview, err := s.swaps.PrepareSwap(r.Context(), owner, direction, amount)
	if err != nil {
		s.metrics.incQuote("error")
		s.writeClassifiedError(w, err)
		return
	}

	s.metrics.incQuote("ok")
	writeJSON(w, http.StatusOK, preview)
}

type submitRequest struct {
	SignedTransaction string `json:"signedTransaction"`
}

// handleSwapSubmit broadcasts a transaction the browser wallet signed.
func (s *Server) handleSwapSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json payload")
		return
	}
	if req.SignedTransaction == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "signedTransaction is required")
		return
	}

	sig, err := s.swaps.SubmitSigned(r.Context(), req.SignedTransaction)
	if err != nil {
		s.metrics.incSwap("submit_error")
		s.writeClassifiedError(w, err)
		return
	}

	s.metrics.incSwap("submitted")
	writeJSON(w, http.StatusOK, struct {
		Signature string `json:"signature"`
		Status    string `json:"status"`
	}{
		Signature: sig.String(),
		Status:    "submitted",
	})
}

type executeRequest struct {
	Direction string `json:"direction"`
	Amount    string `json:"amount"`
}

// handleSwapExecute runs the full swap with the server wallet.
func (s *Server) handleSwapExecute(w http.ResponseWriter, r *http.Request) {
	if s.wallet == nil {
		writeError(w, http.StatusForbidden, "wallet_disabled", "no server wallet is configured")
		return
	}

	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json payload")
		return
	}
	direction, err := pair.ParseDirection(req.Direction)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.Sign() <= 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "amount must be a positive decimal number")
		return
	}

	result, err := s.swaps.ExecuteSwap(r.Context(), s.wallet, direction, amount)
	if err != nil {
		s.metrics.incSwap("error")
		s.notifier.SendSwapErrorNotification(direction.String(), amount.String(), jupiter.UserMessage(err), s.swaps.MaxRetries())
		s.writeClassifiedError(w, err)
		return
	}

	if result.Confirmed {
		s.metrics.incSwap("confirmed")
		s.recordSwap(direction, result)
	} else {
		s.metrics.incSwap("unconfirmed")
	}
	writeJSON(w, http.StatusOK, result)
}

// recordSwap writes a confirmed swap to the trade log and notifies.
func (s *Server) recordSwap(direction pair.Direction, result *jupiter.SwapResult) {
	in, out := s.pair.Input(direction), s.pair.Output(direction)
	inDisplay := fmt.Sprintf("%s %s", result.InAmount, in.Symbol)
	outDisplay := fmt.Sprintf("%s %s", result.ActualOut, out.Symbol)

	if s.tradeLog != nil {
		if err := s.tradeLog.RecordSwap(result.Direction, inDisplay, outDisplay, result.FeeLamports, result.Signature.String()); err != nil {
			s.logger.Printf("Failed to record swap: %v", err)
		}
	}

	var summary *notifications.ActivitySummary
	if s.tradeLog != nil {
		if ts, err := s.tradeLog.Summary(); err == nil {
			summary = &notifications.ActivitySummary{
				Swaps24h:    ts.Swaps24h,
				SwapsWeek:   ts.SwapsWeek,
				FeesSol24h:  ts.FeesSol24h,
				FeesSolWeek: ts.FeesSolWeek,
			}
		}
	}
	feeSol := float64(result.FeeLamports) / 1e9
	s.notifier.SendSwapNotification(inDisplay, outDisplay, feeSol, summary, result.Signature.String())
}

type withdrawRequest struct {
	Asset     string `json:"asset"`
	Amount    string `json:"amount"`
	Recipient string `json:"recipient"`
}

// handleWithdraw sends funds from the server wallet to an external address.
func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	if s.wallet == nil || s.withdrawals == nil {
		writeError(w, http.StatusForbidden, "wallet_disabled", "no server wallet is configured")
		return
	}

	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json payload")
		return
	}

	recipient, err := solana.PublicKeyFromBase58(req.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid recipient address")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.Sign() <= 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "amount must be a positive decimal number")
		return
	}

	receipt, err := s.withdrawals.Withdraw(r.Context(), s.wallet, req.Asset, amount, recipient)
	if err != nil {
		s.metrics.incWithdrawal("error")
		s.writeClassifiedError(w, err)
		return
	}

	s.metrics.incWithdrawal("ok")
	writeJSON(w, http.StatusOK, receipt)
}

// handleTradeSummary aggregates recent swap and withdrawal activity.
func (s *Server) handleTradeSummary(w http.ResponseWriter, r *http.Request) {
	if s.tradeLog == nil {
		writeError(w, http.StatusServiceUnavailable, "trades_unavailable", "trade history is not enabled")
		return
	}
	summary, err := s.tradeLog.Summary()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "trades_unavailable", "failed to read trade history")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleTxStatus reports how far a signature has progressed.
func (s *Server) handleTxStatus(w http.ResponseWriter, r *http.Request) {
	sig, err := solana.SignatureFromBase58(mux.Vars(r)["signature"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid transaction signature")
		return
	}

	status, err := sln.GetTransactionStatus(r.Context(), s.node, sig)
	if err != nil {
		s.writeClassifiedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleHealth checks RPC reachability and reports the balance watch mode.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	rpcInfo := struct {
		Connected bool    `json:"connected"`
		LatencyMs float64 `json:"latency_ms"`
		Error     string  `json:"error,omitempty"`
	}{}

	healthy := true
	start := time.Now()
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if _, err := s.node.GetHealth(ctx); err != nil {
		rpcInfo.Error = err.Error()
		healthy = false
	} else {
		rpcInfo.Connected = true
		rpcInfo.LatencyMs = float64(time.Since(start).Microseconds()) / 1000.0
	}

	watchMode := ""
	if s.watcher != nil {
		watchMode = s.watcher.Mode()
	}

	status := "healthy"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, struct {
		Status       string      `json:"status"`
		RPC          interface{} `json:"rpc"`
		BalanceWatch string      `json:"balanceWatch,omitempty"`
		Pair         string      `json:"pair"`
	}{
		Status:       status,
		RPC:          rpcInfo,
		BalanceWatch: watchMode,
		Pair:         fmt.Sprintf("%s/%s", s.pair.Sol.Symbol, s.pair.Token.Symbol),
	})
}
