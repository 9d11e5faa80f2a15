package config

import (
	"encoding/json"
	"net/http"

	"valux/pkg/core/config"
	"valux/pkg/core/projection"
)

// Response describes the active engine configuration
type Response struct {
	*config.Config
	FadePolicies []string `json:"fade_policies"`
	Persistence  string   `json:"persistence"` // "postgres" or "file"
}

// Handler holds dependencies for config endpoints
type Handler struct {
	Config *config.Config
}

// NewHandler creates a new config handler
func NewHandler(cfg *config.Config) *Handler {
	return &Handler{
		Config: cfg,
	}
}

// HandleConfig serves GET /api/config. The database URL is never included.
func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	// Add CORS headers for local dev
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	persistence := "file"
	if h.Config.Store.DatabaseURL != "" {
		persistence = "postgres"
	}
	resp := Response{
		Config:       h.Config,
		FadePolicies: projection.FadePolicyNames(),
		Persistence:  persistence,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
