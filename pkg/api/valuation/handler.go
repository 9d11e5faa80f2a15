package valuation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"valux/pkg/core/assumption"
	"valux/pkg/core/config"
	"valux/pkg/core/projection"
	"valux/pkg/core/provider"
	"valux/pkg/core/sensitivity"
	"valux/pkg/core/store"
	"valux/pkg/core/utils"
	"valux/pkg/core/valuation"
)

// maxBodyBytes caps request bodies
const maxBodyBytes = 1 << 20

// Handler serves the valuation endpoints
type Handler struct {
	Config *config.Config
	Repo   *store.ValuationRepo // nil disables saving and run listing
}

// NewHandler creates a new valuation handler
func NewHandler(cfg *config.Config, repo *store.ValuationRepo) *Handler {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Handler{Config: cfg, Repo: repo}
}

// ValuationRequest carries a snapshot and one way of producing its assumptions.
// Assumptions wins over Defaults; Overrides apply on top of either.
type ValuationRequest struct {
	Snapshot    projection.HistoricalSnapshot `json:"snapshot"`
	Assumptions *assumption.AssumptionSet     `json:"assumptions,omitempty"`
	Defaults    *provider.DefaultsProvider    `json:"defaults,omitempty"`
	Overrides   map[assumption.Field]float64  `json:"overrides,omitempty"`
	MarketPrice float64                       `json:"market_price,omitempty"`
	Grid        *sensitivity.GridConfig       `json:"grid,omitempty"` // sensitivity only
	Save        bool                          `json:"save,omitempty"`
}

// ValuationResponse is returned by both endpoints
type ValuationResponse struct {
	RunID       string                        `json:"run_id,omitempty"`
	Assumptions assumption.AssumptionSet      `json:"assumptions"`
	Result      *valuation.ValuationResult    `json:"result"`
	Summary     []valuation.ValuationLineItem `json:"summary"`
	Gap         *valuation.GapAnalysis        `json:"gap_analysis,omitempty"`
	Sensitivity *sensitivity.Grid             `json:"sensitivity,omitempty"`
}

func setCORS(w http.ResponseWriter, methods string) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods)
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// HandleDCF values one company: POST /api/valuation/dcf
func (h *Handler) HandleDCF(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, store.ModeDCF)
}

// HandleSensitivity values one company and sweeps its assumptions: POST /api/valuation/sensitivity
func (h *Handler) HandleSensitivity(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, store.ModeSensitivity)
}

func (h *Handler) handle(w http.ResponseWriter, r *http.Request, mode string) {
	setCORS(w, "POST, OPTIONS")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	var req ValuationRequest
	if err := utils.DecodeLenient(body, &req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	a, err := h.resolve(ctx, req)
	if err != nil {
		writeError(w, err)
		return
	}

	fmt.Printf("[VALUATION] %s %s (source=%s)\n", strings.ToUpper(mode), req.Snapshot.Ticker, a.Source)

	valuator := h.Config.Valuator()
	res, err := valuator.Value(req.Snapshot, a)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := ValuationResponse{
		Assumptions: a,
		Result:      res,
		Summary:     valuation.Summarize(res),
	}
	if req.MarketPrice > 0 {
		gap, err := valuation.AnalyzeGap(res, req.MarketPrice)
		if err != nil {
			writeError(w, err)
			return
		}
		resp.Gap = &gap
	}

	if mode == store.ModeSensitivity {
		gridCfg := h.Config.Sensitivity
		if req.Grid != nil {
			gridCfg = *req.Grid
		}
		engine := sensitivity.NewEngine(req.Snapshot, valuator, h.Config.Workers)
		grid, err := engine.BuildSensitivity(a, gridCfg)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		resp.Sensitivity = grid
	}

	if req.Save {
		if h.Repo == nil {
			http.Error(w, "Run repository not configured", http.StatusServiceUnavailable)
			return
		}
		run := store.NewRun(mode, req.Snapshot, a)
		run.Result = res
		run.Gap = resp.Gap
		run.Sensitivity = resp.Sensitivity
		if err := h.Repo.Save(ctx, run); err != nil {
			fmt.Printf("[VALUATION] Save failed: %v\n", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		resp.RunID = run.ID
		fmt.Printf("[VALUATION] Saved run %s\n", run.ID)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *Handler) resolve(ctx context.Context, req ValuationRequest) (assumption.AssumptionSet, error) {
	var base provider.Provider
	switch {
	case req.Assumptions != nil:
		base = &provider.StaticProvider{Set: *req.Assumptions}
	case req.Defaults != nil:
		base = req.Defaults
	default:
		return assumption.AssumptionSet{}, errors.New("either assumptions or defaults is required")
	}
	return provider.WithOverrides(base, req.Overrides).Assumptions(ctx, req.Snapshot)
}

// writeError maps not-computable valuations to 422 and everything else to 400
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if valuation.IsNotComputable(err) {
		status = http.StatusUnprocessableEntity
	}
	http.Error(w, err.Error(), status)
}

// HandleRuns lists saved runs: GET /api/valuation/runs?ticker=AAPL&limit=10, or ?id=<uuid>
func (h *Handler) HandleRuns(w http.ResponseWriter, r *http.Request) {
	setCORS(w, "GET, OPTIONS")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if h.Repo == nil {
		http.Error(w, "Run repository not configured", http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()
	if id := q.Get("id"); id != "" {
		run, err := h.Repo.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrRunNotFound) {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(run)
		return
	}

	ticker := strings.ToUpper(q.Get("ticker"))
	if ticker == "" {
		http.Error(w, "ticker or id is required", http.StatusBadRequest)
		return
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := h.Repo.ListByTicker(r.Context(), ticker, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []*store.Run{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(runs)
}
