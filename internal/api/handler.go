package api

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"fjShop/internal/loader"
	"fjShop/internal/opt"
	"fjShop/internal/sa"
	"fjShop/internal/store"
	"fjShop/internal/ts"
)

const maxBodyBytes = 8 << 20

// RunStore persists finished runs. *store.RunRepository implements it.
type RunStore interface {
	Create(ctx context.Context, run *store.Run) error
	Get(ctx context.Context, id string) (*store.Run, error)
	List(ctx context.Context, limit int) ([]store.Run, error)
}

// Handler serves the solve and run endpoints.
type Handler struct {
	runs  RunStore // nil disables persistence
	saCfg sa.Config
	tsCfg ts.Config
	log   *zap.Logger
}

func NewHandler(runs RunStore, saCfg sa.Config, tsCfg ts.Config, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{runs: runs, saCfg: saCfg, tsCfg: tsCfg, log: log}
}

// Routes registers the API on r.
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/health", h.Health).Methods("GET")

	api := r.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/solve", h.Solve).Methods("POST")
	api.HandleFunc("/runs", h.ListRuns).Methods("GET")
	api.HandleFunc("/runs/{id}", h.GetRun).Methods("GET")
}

// SolveRequest represents the request to solve an instance
type SolveRequest struct {
	Algorithm string          `json:"algorithm"`
	Seed      *int64          `json:"seed"`
	Instance  loader.Document `json:"instance"`
	SA        *sa.Config      `json:"sa"`
	TS        *ts.Config      `json:"ts"`
}

// SolveResponse is the stored run plus the operations left unplaced.
type SolveResponse struct {
	*store.Run
	UnscheduledOps []string `json:"unscheduled_ops"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// Solve handles POST /v1/solve
func (h *Handler) Solve(w http.ResponseWriter, r *http.Request) {
	saCfg, tsCfg := h.saCfg, h.tsCfg
	req := SolveRequest{SA: &saCfg, TS: &tsCfg}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.SA == nil {
		req.SA = &saCfg
	}
	if req.TS == nil {
		req.TS = &tsCfg
	}

	inst, err := req.Instance.Instance()
	if err != nil {
		http.Error(w, "Invalid instance: "+err.Error(), http.StatusBadRequest)
		return
	}

	seed := time.Now().UnixNano()
	if req.Seed != nil {
		seed = *req.Seed
	}
	rng := rand.New(rand.NewSource(seed))

	var solver opt.Optimizer
	switch req.Algorithm {
	case "sa", "":
		req.Algorithm = "sa"
		s, err := sa.New(*req.SA, rng)
		if err != nil {
			http.Error(w, "Invalid sa config: "+err.Error(), http.StatusBadRequest)
			return
		}
		s.Log = h.log
		solver = s
	case "ts":
		s, err := ts.New(*req.TS, rng)
		if err != nil {
			http.Error(w, "Invalid ts config: "+err.Error(), http.StatusBadRequest)
			return
		}
		s.Log = h.log
		solver = s
	default:
		http.Error(w, "Unknown algorithm "+strconv.Quote(req.Algorithm), http.StatusBadRequest)
		return
	}

	res, err := solver.Solve(r.Context(), inst)
	if err != nil {
		h.log.Warn("solve aborted", zap.String("algorithm", req.Algorithm), zap.Error(err))
		http.Error(w, "Solve aborted: "+err.Error(), http.StatusServiceUnavailable)
		return
	}

	run, err := store.NewRun(req.Algorithm, seed, res)
	if err != nil {
		http.Error(w, "Failed to encode run: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if h.runs != nil {
		if err := h.runs.Create(r.Context(), run); err != nil {
			http.Error(w, "Failed to store run: "+err.Error(), http.StatusInternalServerError)
			return
		}
	} else {
		run.ID = uuid.NewString()
		run.CreatedAt = time.Now().UTC()
	}

	resp := SolveResponse{Run: run, UnscheduledOps: make([]string, len(res.Unscheduled))}
	for i, k := range res.Unscheduled {
		resp.UnscheduledOps[i] = k.String()
	}

	h.log.Info("solved",
		zap.String("run_id", run.ID),
		zap.String("algorithm", run.Algorithm),
		zap.Float64("makespan", run.Makespan),
		zap.Float64("duration_ms", run.DurationMs),
	)
	writeJSON(w, http.StatusCreated, resp)
}

// GetRun handles GET /v1/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		http.Error(w, "Run storage is not configured", http.StatusServiceUnavailable)
		return
	}
	vars := mux.Vars(r)
	run, err := h.runs.Get(r.Context(), vars["id"])
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to get run: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// ListRuns handles GET /v1/runs
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		http.Error(w, "Run storage is not configured", http.StatusServiceUnavailable)
		return
	}
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	runs, err := h.runs.List(r.Context(), limit)
	if err != nil {
		http.Error(w, "Failed to list runs: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
