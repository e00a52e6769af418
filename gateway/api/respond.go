package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pushchain/ecu-vault/firmware"
	gwerrors "github.com/pushchain/ecu-vault/gateway/errors"
	"github.com/pushchain/ecu-vault/x/ecuvault/types"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Int("status", status).Msg("request failed")
	}
	writeErrorMessage(w, status, err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// statusFor maps ledger, gateway and registry errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrMessageNotFound),
		errors.Is(err, types.ErrEcuNotFound),
		errors.Is(err, firmware.ErrNotFound),
		gwerrors.HasCode(err, gwerrors.ErrCodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrAlreadyVerified),
		errors.Is(err, firmware.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, types.ErrInvalidRequest),
		errors.Is(err, types.ErrInvalidCleartext),
		errors.Is(err, types.ErrInvalidProof),
		errors.Is(err, types.ErrEmptyKey),
		errors.Is(err, types.ErrEmptyCommand),
		errors.Is(err, firmware.ErrInvalidUpload),
		gwerrors.HasCode(err, gwerrors.ErrCodeValidation):
		return http.StatusBadRequest
	case errors.Is(err, firmware.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, types.ErrOracle):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
