package server

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
)

// Swap request bodies carry a full quote and stay far below this.
const maxProxyBodyBytes = 1 << 20

// handleProxyQuote forwards a quote request to the aggregator verbatim. The
// frontend cannot call the aggregator directly because it sends no CORS
// headers, so the browser talks to this endpoint instead.
func (s *Server) handleProxyQuote(w http.ResponseWriter, r *http.Request) {
	target := s.aggregator.BaseURL() + "/quote"
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	s.forward(w, r, "quote", http.MethodGet, target, nil)
}

// handleProxySwap forwards a swap build request, body and all.
func (s *Server) handleProxySwap(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxProxyBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "failed to read request body")
		return
	}
	s.forward(w, r, "swap", http.MethodPost, s.aggregator.BaseURL()+"/swap", body)
}

// forward relays one request upstream and copies status, content type and
// body back unchanged. CORS headers are already on the response writer.
func (s *Server) forward(w http.ResponseWriter, r *http.Request, endpoint, method, target string, body []byte) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(r.Context(), method, target, reader)
	if err != nil {
		s.metrics.incProxy(endpoint, "error")
		writeError(w, http.StatusInternalServerError, "proxy_failed", "failed to build upstream request")
		return
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Printf("Proxy request to %s failed: %v", target, err)
		s.metrics.incProxy(endpoint, "upstream_unreachable")
		s.writeClassifiedError(w, err)
		return
	}
	defer resp.Body.Close()

	s.metrics.incProxy(endpoint, strconv.Itoa(resp.StatusCode))

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		s.logger.Printf("Proxy response copy for %s aborted: %v", endpoint, err)
	}
}
