// Package http exposes the budget core as a JSON API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"budgetbee/internal/amqp"
	"budgetbee/internal/core"
	applog "budgetbee/internal/log"
	"budgetbee/internal/middleware/trace"
	"budgetbee/internal/services"
	"budgetbee/internal/storage"
)

// EventPublisher receives a notification after each committed ledger
// mutation. Publish failures are logged and never fail the mutation.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error
}

type Server struct {
	httpServer *http.Server

	store       storage.Store
	registry    *services.Registry
	ledger      *services.Ledger
	periods     *services.PeriodManager
	linker      *services.Linker
	allocator   *services.AllocationEngine
	summary     *services.SummaryCalculator
	projections *services.ProjectionProcessor

	publisher EventPublisher
	limiter   *rateLimiter
}

// NewServer configures routes and middleware, returning a ready-to-run
// server. publisher may be nil when AMQP is not configured.
func NewServer(addr string, store storage.Store, publisher EventPublisher) *Server {
	s := &Server{
		store:       store,
		registry:    services.NewRegistry(store),
		ledger:      services.NewLedger(store),
		periods:     services.NewPeriodManager(store),
		linker:      services.NewLinker(store),
		allocator:   services.NewAllocationEngine(store),
		summary:     services.NewSummaryCalculator(store),
		projections: services.NewProjectionProcessor(store),
		publisher:   publisher,
		limiter:     newRateLimiter(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("GET /api/accounts", s.handleListAccounts)
	mux.HandleFunc("POST /api/accounts", s.handleCreateAccount)
	mux.HandleFunc("GET /api/accounts/{id}", s.handleGetAccount)
	mux.HandleFunc("GET /api/accounts/{id}/transactions", s.handleAccountTransactions)
	mux.HandleFunc("POST /api/accounts/{id}/adjust", s.handleAdjustBalance)
	mux.HandleFunc("POST /api/accounts/{id}/close", s.handleCloseAccount)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeactivateCategory)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/periods", s.handleListPeriods)
	mux.HandleFunc("POST /api/periods", s.handleCreatePeriod)
	mux.HandleFunc("DELETE /api/periods/{id}", s.handleDeletePeriod)
	mux.HandleFunc("GET /api/periods/{id}/summary", s.handleSummary)
	mux.HandleFunc("GET /api/periods/{id}/spent-by-category", s.handleSpentByCategory)
	mux.HandleFunc("GET /api/periods/{id}/allocations", s.handleListAllocations)
	mux.HandleFunc("POST /api/periods/{id}/allocations", s.handleAllocate)

	mux.HandleFunc("GET /api/series", s.handleSeries)

	mux.HandleFunc("POST /api/maintenance/relink", s.handleRelinkAll)

	mux.HandleFunc("GET /api/projections/due", s.handleDueProjections)
	mux.HandleFunc("POST /api/projections/{id}/complete", s.handleCompleteProjection)
	mux.HandleFunc("POST /api/projections/{id}/skip", s.handleSkipProjection)

	traced := trace.NewMiddleware(extractClientIP)
	handler := traced.Middleware(s.withRateLimit(mux))

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.stop()
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the configured handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := extractClientIP(r)
		if !s.limiter.allow(ip) {
			slog.WarnContext(r.Context(), "Rate limit exceeded",
				applog.FieldComponent, applog.ComponentRateLimit,
				applog.FieldClientIP, ip)
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

// publishEvent fires a ledger event notification. Best effort only.
func (s *Server) publishEvent(ctx context.Context, kind string, t core.Transaction, periodID int64) {
	if s.publisher == nil {
		return
	}
	msg := amqp.NewLedgerEventMessage(kind, t.ID, t.AccountID, periodID)
	if err := s.publisher.PublishLedgerEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			applog.FieldComponent, applog.ComponentAMQP,
			applog.FieldError, err,
			"kind", kind,
			"transaction_id", t.ID)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps core error kinds onto HTTP status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrDuplicateStartDate),
		errors.Is(err, core.ErrDuplicateName),
		errors.Is(err, core.ErrProjectionSettled):
		status = http.StatusConflict
	case errors.Is(err, core.ErrOverAllocation),
		errors.Is(err, core.ErrInvalidCategoryType),
		errors.Is(err, core.ErrReservedCategory),
		errors.Is(err, core.ErrAccountClosed):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidAccountKind),
		errors.Is(err, core.ErrInvalidStatus),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrEmptyOwner),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrDescriptionTooLong):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrStorage):
		status = http.StatusInternalServerError
	}

	if status >= 500 {
		slog.ErrorContext(r.Context(), "Request failed",
			applog.FieldComponent, applog.ComponentHTTP,
			applog.FieldPath, r.URL.Path,
			applog.FieldError, err)
		writeJSON(w, status, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return 0, false
	}
	return id, true
}

func queryDate(w http.ResponseWriter, r *http.Request, key string, fallback core.Date) (core.Date, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, true
	}
	d, err := core.ParseDate(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid " + key + " date"})
		return core.Date{}, false
	}
	return d, true
}
