package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/pushchain/ecu-vault/firmware"
)

// handleListFirmware handles GET /api/v1/firmware?status=&q=&page=&page_size=
func (s *Server) handleListFirmware(w http.ResponseWriter, r *http.Request) {
	page, ok := queryInt(w, r, "page", 1)
	if !ok {
		return
	}
	size, ok := queryInt(w, r, "page_size", firmware.DefaultPageSize)
	if !ok {
		return
	}

	q := r.URL.Query()
	result, err := s.deps.Firmware.List(r.Context(), firmware.Filter{
		Status:   firmware.Status(q.Get("status")),
		Query:    q.Get("q"),
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleUploadFirmware handles POST /api/v1/firmware
func (s *Server) handleUploadFirmware(w http.ResponseWriter, r *http.Request) {
	var req firmware.UploadRequest
	if !decodeBody(w, r, &req) {
		return
	}

	rec, err := s.deps.Firmware.Upload(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// handleGetFirmware handles GET /api/v1/firmware/{id}
func (s *Server) handleGetFirmware(w http.ResponseWriter, r *http.Request) {
	rec, err := s.deps.Firmware.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleVerifyFirmware handles POST /api/v1/firmware/{id}/verify
func (s *Server) handleVerifyFirmware(w http.ResponseWriter, r *http.Request) {
	rec, err := s.deps.Firmware.MarkVerified(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleRejectFirmware handles POST /api/v1/firmware/{id}/reject
func (s *Server) handleRejectFirmware(w http.ResponseWriter, r *http.Request) {
	rec, err := s.deps.Firmware.MarkRejected(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleFirmwareStats handles GET /api/v1/firmware-stats
func (s *Server) handleFirmwareStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Firmware.Stats(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
