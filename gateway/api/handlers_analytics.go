package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// handleTrustScore handles GET /api/v1/ecus/{name}/trust-score
func (s *Server) handleTrustScore(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	score, err := s.deps.Ledger.CalculateEcuTrustScore(r.Context(), name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TrustScoreResponse{Ecu: name, Score: score})
}

// handleAnomalies handles GET /api/v1/analytics/anomalies
func (s *Server) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	ids, err := s.deps.Ledger.DetectAnomalousCommands(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if ids == nil {
		ids = []uint64{}
	}
	writeJSON(w, http.StatusOK, AnomaliesResponse{MessageIDs: ids})
}

// handleSuspiciousPairs handles GET /api/v1/analytics/suspicious-pairs
func (s *Server) handleSuspiciousPairs(w http.ResponseWriter, r *http.Request) {
	pairs, err := s.deps.Ledger.IdentifySuspiciousEcuPairs(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SuspiciousPairsResponse{Pairs: pairs})
}

// handleListSafeCommands handles GET /api/v1/safe-commands
func (s *Server) handleListSafeCommands(w http.ResponseWriter, r *http.Request) {
	cmds, err := s.deps.Ledger.GetKnownSafeCommands(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SafeCommandsResponse{Commands: cmds})
}

// handleAddSafeCommand handles POST /api/v1/safe-commands
func (s *Server) handleAddSafeCommand(w http.ResponseWriter, r *http.Request) {
	var req SafeCommandRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.deps.Ledger.AddKnownSafeCommand(r.Context(), strings.TrimSpace(req.Command)); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
