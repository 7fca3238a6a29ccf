// Package report provides the HTTP handlers that run sales analysis over
// a posted or stored dataset and publish the per-seller report.
//
// All monetary values use shopspring/decimal, never float64.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/atmx/sales-analytics/internal/analytics"
	"github.com/atmx/sales-analytics/internal/metrics"
	"github.com/atmx/sales-analytics/internal/model"
	"github.com/atmx/sales-analytics/internal/store"
	"github.com/atmx/sales-analytics/internal/strategy"
)

// Service handles report runs. Runs are independent and share no mutable
// state, so handlers do not serialize.
type Service struct {
	store    store.Store
	registry *strategy.Registry
	workers  int
	wsHub    *WSHub // optional WebSocket hub for run notifications
}

// NewService creates a new report service. workers > 1 enables the
// parallel engine. Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(st store.Store, reg *strategy.Registry, workers int, hub *WSHub) *Service {
	return &Service{
		store:    st,
		registry: reg,
		workers:  workers,
		wsHub:    hub,
	}
}

// --- Request/Response types ---

// CreateReportRequest is the JSON body for POST /reports.
type CreateReportRequest struct {
	Dataset         *model.Dataset `json:"dataset"`
	RevenueStrategy string         `json:"revenue_strategy"` // empty → registry default
	BonusStrategy   string         `json:"bonus_strategy"`   // empty → registry default
}

// ReportResponse is the JSON body returned for a completed run.
type ReportResponse struct {
	RunID   string              `json:"run_id"`
	Rows    []model.ReportRow   `json:"rows"`
	Summary model.ReportSummary `json:"summary"`
}

// StrategiesResponse lists registered strategy names.
type StrategiesResponse struct {
	Revenue []string `json:"revenue"`
	Bonus   []string `json:"bonus"`
}

// --- HTTP Handlers ---

// CreateReport handles POST /api/v1/reports
// Analyzes the dataset carried in the request body.
func (s *Service) CreateReport(w http.ResponseWriter, r *http.Request) {
	var req CreateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	opts, err := s.options(req.RevenueStrategy, req.BonusStrategy)
	if err != nil {
		metrics.RunsTotal.WithLabelValues(metrics.OutcomeUnknownStrategy).Inc()
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := s.Run(r.Context(), req.Dataset, opts)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

// CurrentReport handles GET /api/v1/reports/current?revenue=&bonus=
// Analyzes the dataset held by the configured store.
func (s *Service) CurrentReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts, err := s.options(q.Get("revenue"), q.Get("bonus"))
	if err != nil {
		metrics.RunsTotal.WithLabelValues(metrics.OutcomeUnknownStrategy).Inc()
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	ds, err := store.LoadDataset(ctx, s.store)
	if err != nil {
		slog.Error("load dataset failed", "err", err)
		metrics.RunsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		writeError(w, "failed to load dataset", http.StatusInternalServerError)
		return
	}

	resp, err := s.Run(ctx, ds, opts)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ListStrategies handles GET /api/v1/strategies
func (s *Service) ListStrategies(w http.ResponseWriter, r *http.Request) {
	revenue, bonus := s.registry.Names()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(StrategiesResponse{Revenue: revenue, Bonus: bonus})
}

// Run analyzes ds, records metrics, and broadcasts the completed run.
func (s *Service) Run(ctx context.Context, ds *model.Dataset, opts analytics.Options) (*ReportResponse, error) {
	start := time.Now()
	rows, err := analytics.AnalyzeParallel(ctx, ds, opts, s.workers)
	if err != nil {
		recordFailure(err)
		slog.Warn("report run failed", "err", err)
		return nil, err
	}
	elapsed := time.Since(start)

	resp := &ReportResponse{
		RunID:   uuid.New().String(),
		Rows:    rows,
		Summary: analytics.Summarize(rows),
	}
	metrics.ObserveRun(len(rows), len(ds.PurchaseRecords), elapsed)

	slog.Info("report completed",
		"run_id", resp.RunID,
		"sellers", resp.Summary.Sellers,
		"records", len(ds.PurchaseRecords),
		"total_revenue", resp.Summary.TotalRevenue.String(),
		"total_profit", resp.Summary.TotalProfit.String(),
		"duration", elapsed,
	)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:        "report_completed",
			RunID:       resp.RunID,
			Sellers:     resp.Summary.Sellers,
			TotalProfit: resp.Summary.TotalProfit.String(),
		})
	}
	return resp, nil
}

func (s *Service) options(revenue, bonus string) (analytics.Options, error) {
	rs, err := s.registry.Revenue(revenue)
	if err != nil {
		return analytics.Options{}, err
	}
	bs, err := s.registry.Bonus(bonus)
	if err != nil {
		return analytics.Options{}, err
	}
	return analytics.Options{Revenue: rs, Bonus: bs}, nil
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, analytics.ErrInvalidInput),
		errors.Is(err, analytics.ErrReferentialIntegrity):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func recordFailure(err error) {
	switch {
	case errors.Is(err, analytics.ErrInvalidInput):
		metrics.RunsTotal.WithLabelValues(metrics.OutcomeInvalidInput).Inc()
	case errors.Is(err, analytics.ErrUnknownSeller):
		metrics.RunsTotal.WithLabelValues(metrics.OutcomeReferential).Inc()
		metrics.ReferentialErrors.WithLabelValues("seller").Inc()
	case errors.Is(err, analytics.ErrUnknownProduct):
		metrics.RunsTotal.WithLabelValues(metrics.OutcomeReferential).Inc()
		metrics.ReferentialErrors.WithLabelValues("product").Inc()
	default:
		metrics.RunsTotal.WithLabelValues(metrics.OutcomeError).Inc()
	}
}

func writeError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
