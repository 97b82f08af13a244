package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}

// handleRun triggers one lending cycle over all active accounts. Orders are
// only placed when execute=1; otherwise the cycle is computed and logged but
// nothing is dispatched. A JSON body {"get_lending_status": 1} switches the
// response from a bare "OK" to the per-account transcript map.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	execute := r.URL.Query().Get("execute") == "1"

	var req struct {
		GetLendingStatus int `json:"get_lending_status"`
	}
	// Body is optional; a missing or malformed one just means no status report.
	_ = json.NewDecoder(r.Body).Decode(&req)

	reports := s.runner.Execute(r.Context(), execute)

	if req.GetLendingStatus != 1 {
		w.Write([]byte("OK"))
		return
	}

	response := map[string]interface{}{
		"timestamp": time.Now().Format("15:04:05-0700"),
		"accounts":  reports,
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("Failed to encode run response", zap.Error(err))
	}
}

func (s *Server) handleStatusHistory(w http.ResponseWriter, r *http.Request) {
	account := r.URL.Query().Get("account")
	if account == "" {
		http.Error(w, "account is required", http.StatusBadRequest)
		return
	}

	limit := 24
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	statuses, err := s.statuses.ListStatus(r.Context(), account, limit)
	if err != nil {
		s.logger.Error("Failed to list lending status", zap.Error(err))
		http.Error(w, "Failed to list lending status", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(statuses); err != nil {
		s.logger.Error("Failed to encode lending status", zap.Error(err))
	}
}
