package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/i-OmSharma/MLOps-decision/pkg/rules/store"
)

// maxRequestBody bounds decision request bodies.
const maxRequestBody = 1 << 20 // 1MB

// errorBody is the JSON error envelope for transport-level failures.
type errorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	var body errorBody
	body.Error.Message = message
	writeJSON(w, status, body)
}

// handleDecide runs the decision pipeline. Malformed JSON is a transport
// error (400); a structurally invalid decision input is a decision, handled
// inside the pipeline.
func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var input map[string]any
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	resp := s.orchestrator.Decide(r.Context(), input)
	writeJSON(w, http.StatusOK, resp)
}

// rulesResponse is the /v1/rules payload.
type rulesResponse struct {
	Metadata       store.Metadata `json:"metadata"`
	DefaultOutcome string         `json:"default_outcome"`
	Rules          any            `json:"rules"`
}

// handleRules returns the active rule set and its metadata.
func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	meta, err := s.store.Metadata()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, rulesResponse{
		Metadata:       meta,
		DefaultOutcome: string(s.store.DefaultOutcome()),
		Rules:          s.store.ActiveRules(),
	})
}

// handleReload reloads the rule document. A configuration failure keeps the
// previous rule set active and responds 409.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	err := s.orchestrator.ReloadRules(r.Context())
	if s.reloadMetrics != nil {
		s.reloadMetrics.RecordReload(err == nil)
	}
	if err != nil {
		var cfgErr *store.ConfigError
		if errors.As(err, &cfgErr) {
			writeError(w, http.StatusConflict, cfgErr.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	meta, metaErr := s.store.Metadata()
	if metaErr != nil {
		writeError(w, http.StatusInternalServerError, metaErr.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "reloaded",
		"metadata": meta,
	})
}

// statusResponse is the /v1/status payload.
type statusResponse struct {
	Version    string `json:"version"`
	ReviewMode string `json:"review_mode"`
	Rules      any    `json:"rules"`
	Arbiter    struct {
		Enabled  bool   `json:"enabled"`
		Provider string `json:"provider"`
		Model    string `json:"model,omitempty"`
	} `json:"arbiter"`
}

// handleStatus reports service status, rule metadata and the arbiter
// description.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp := statusResponse{
		Version:    s.version,
		ReviewMode: s.reviewMode,
	}

	if meta, err := s.store.Metadata(); err == nil {
		resp.Rules = meta
	} else {
		resp.Rules = map[string]string{"status": "not loaded"}
	}

	desc := s.arbiter.Describe()
	resp.Arbiter.Enabled = s.arbiter.IsEnabled()
	resp.Arbiter.Provider = desc.Provider
	resp.Arbiter.Model = desc.Model

	writeJSON(w, http.StatusOK, resp)
}
