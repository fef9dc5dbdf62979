package rpc

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"hvstaking/core"
	"hvstaking/native/staking"
	"hvstaking/token"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeRateLimited    = -32020
)

// Environment variables holding the bearer tokens. The RPC token guards
// transaction-submitting methods; the operator token guards admin methods.
const (
	rpcTokenEnv      = "HVSTAKING_RPC_TOKEN"
	operatorTokenEnv = "HVSTAKING_OPERATOR_TOKEN"
)

// Server exposes the staking node over JSON-RPC 2.0.
type Server struct {
	node          *core.Node
	authToken     string
	operatorToken string

	limit rate.Limit
	burst int

	mu       sync.Mutex
	visitors map[string]*rate.Limiter
}

// ServerConfig tunes the RPC surface.
type ServerConfig struct {
	RateLimitPerMinute float64
	RateLimitBurst     int
}

// NewServer creates an RPC server over the node. Bearer tokens come from the
// environment so they never live in the config file.
func NewServer(node *core.Node, cfg ServerConfig) *Server {
	limit := rate.Inf
	if cfg.RateLimitPerMinute > 0 {
		limit = rate.Limit(cfg.RateLimitPerMinute / 60)
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}
	return &Server{
		node:          node,
		authToken:     strings.TrimSpace(os.Getenv(rpcTokenEnv)),
		operatorToken: strings.TrimSpace(os.Getenv(operatorTokenEnv)),
		limit:         limit,
		burst:         burst,
		visitors:      make(map[string]*rate.Limiter),
	}
}

// Router returns the HTTP handler: JSON-RPC on /, liveness on /healthz and
// prometheus metrics on /metrics.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/", s.handle)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

type rpcRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type rpcResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *rpcError   `json:"error,omitempty"`
}

type rpcError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(rpcResponse{
		JSONRPC: jsonRPCVersion,
		ID:      id,
		Error:   &rpcError{Code: code, Message: message, Data: data},
	})
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rpcResponse{
		JSONRPC: jsonRPCVersion,
		ID:      id,
		Result:  result,
	})
}

func clientID(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) allow(r *http.Request) bool {
	if s.limit == rate.Inf {
		return true
	}
	id := clientID(r)
	s.mu.Lock()
	limiter, ok := s.visitors[id]
	if !ok {
		limiter = rate.NewLimiter(s.limit, s.burst)
		s.visitors[id] = limiter
	}
	s.mu.Unlock()
	return limiter.Allow()
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func tokenMatches(expected, presented string) bool {
	if expected == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(presented)) == 1
}

func (s *Server) requireAuth(r *http.Request) *rpcError {
	if !tokenMatches(s.authToken, bearerToken(r)) {
		return &rpcError{Code: codeUnauthorized, Message: "missing or invalid bearer token"}
	}
	return nil
}

func (s *Server) requireOperator(r *http.Request) *rpcError {
	if !tokenMatches(s.operatorToken, bearerToken(r)) {
		return &rpcError{Code: codeUnauthorized, Message: "operator authority required"}
	}
	return nil
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if !s.allow(r) {
		writeError(w, http.StatusTooManyRequests, nil, codeRateLimited, "rate limit exceeded", nil)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "unable to read request body", err.Error())
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}
	var req rpcRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	method := strings.TrimSpace(req.Method)
	if method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}
	s.dispatch(w, r, &req, method)
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, req *rpcRequest, method string) {
	switch method {
	// transaction-submitting methods (RPC token)
	case "token_transfer", "staking_powerDown", "staking_refund", "staking_claim":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, nil)
			return
		}
	// operator methods (operator token)
	case "staking_setDay", "staking_calcRatio", "staking_freeze", "staking_unfreeze", "staking_setProfile":
		if authErr := s.requireOperator(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, nil)
			return
		}
	}

	switch method {
	case "token_transfer":
		s.handleTransfer(w, req)
	case "token_balance":
		s.handleBalance(w, req)
	case "staking_powerDown":
		s.handlePowerDown(w, req)
	case "staking_refund":
		s.handleRefund(w, req)
	case "staking_claim":
		s.handleClaim(w, req)
	case "staking_checkReward":
		s.handleCheckReward(w, req)
	case "staking_position":
		s.handlePosition(w, req)
	case "staking_pendingRefund":
		s.handlePendingRefund(w, req)
	case "staking_settings":
		s.handleSettings(w, req)
	case "staking_rewardRatio":
		s.handleRewardRatio(w, req)
	case "staking_profile":
		s.handleProfile(w, req)
	case "staking_setDay":
		s.handleSetDay(w, req)
	case "staking_calcRatio":
		s.handleCalcRatio(w, req)
	case "staking_freeze":
		s.handleFreeze(w, req)
	case "staking_unfreeze":
		s.handleUnfreeze(w, req)
	case "staking_setProfile":
		s.handleSetProfile(w, req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "unknown method", method)
	}
}

func decodeParams(req *rpcRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return errors.New("expected exactly one params object")
	}
	return json.Unmarshal(req.Params[0], out)
}

// errorCode maps engine failures onto JSON-RPC error codes so clients can
// distinguish bad input from authorization and server-side faults.
func errorCode(err error) int {
	switch {
	case errors.Is(err, staking.ErrUnauthorized):
		return codeUnauthorized
	case errors.Is(err, staking.ErrInvalidAmount),
		errors.Is(err, staking.ErrNonPositiveAmount),
		errors.Is(err, staking.ErrSymbolMismatch),
		errors.Is(err, staking.ErrUnknownTokenContract),
		errors.Is(err, staking.ErrAccountNotFound),
		errors.Is(err, staking.ErrNoteTooLong),
		errors.Is(err, token.ErrInvalidCoin),
		errors.Is(err, token.ErrUnknownSymbol),
		errors.Is(err, token.ErrPrecisionRange):
		return codeInvalidParams
	default:
		return codeServerError
	}
}

func writeOperationError(w http.ResponseWriter, id interface{}, err error) {
	code := errorCode(err)
	status := http.StatusInternalServerError
	switch code {
	case codeInvalidParams:
		status = http.StatusBadRequest
	case codeUnauthorized:
		status = http.StatusUnauthorized
	}
	writeError(w, status, id, code, err.Error(), nil)
}
