package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// setupRoutes configures all HTTP routes for the API server
func (s *Server) setupRoutes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.instrument)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.deps.Metrics != nil {
		r.Handle("/metrics", s.deps.Metrics.Handler()).Methods(http.MethodGet)
	}

	v1 := r.PathPrefix("/api/v1").Subrouter()

	if s.deps.Encrypter != nil {
		v1.HandleFunc("/fhe/encrypt", s.handleEncrypt).Methods(http.MethodPost)
	}

	if s.deps.Ledger != nil {
		// Messages
		v1.HandleFunc("/messages", s.handleSubmitMessage).Methods(http.MethodPost)
		v1.HandleFunc("/messages", s.handleListMessages).Methods(http.MethodGet)
		v1.HandleFunc("/messages/count", s.handleMessageCount).Methods(http.MethodGet)
		v1.HandleFunc("/messages/{id:[0-9]+}", s.handleGetMessage).Methods(http.MethodGet)
		v1.HandleFunc("/messages/{id:[0-9]+}/decrypted", s.handleGetDecrypted).Methods(http.MethodGet)
		v1.HandleFunc("/messages/{id:[0-9]+}/verify", s.handleRequestVerification).Methods(http.MethodPost)

		// ECUs
		v1.HandleFunc("/ecus", s.handleListEcus).Methods(http.MethodGet)
		v1.HandleFunc("/ecus/{name}/reveal", s.handleRevealAggregate).Methods(http.MethodPost)
		v1.HandleFunc("/ecus/{name}/trust-score", s.handleTrustScore).Methods(http.MethodGet)

		// Analytics
		v1.HandleFunc("/analytics/anomalies", s.handleAnomalies).Methods(http.MethodGet)
		v1.HandleFunc("/analytics/suspicious-pairs", s.handleSuspiciousPairs).Methods(http.MethodGet)
		v1.HandleFunc("/safe-commands", s.handleListSafeCommands).Methods(http.MethodGet)
		v1.HandleFunc("/safe-commands", s.handleAddSafeCommand).Methods(http.MethodPost)

		// Key-value storage
		v1.HandleFunc("/kv/{key}", s.handleGetData).Methods(http.MethodGet)
		v1.HandleFunc("/kv/{key}", s.handleSetData).Methods(http.MethodPut)
		v1.HandleFunc("/kv-available", s.handleAvailable).Methods(http.MethodGet)
	}

	if s.deps.Requests != nil {
		v1.HandleFunc("/requests/{id:[0-9]+}", s.handleGetRequest).Methods(http.MethodGet)
	}

	if s.deps.Firmware != nil {
		v1.HandleFunc("/firmware", s.handleListFirmware).Methods(http.MethodGet)
		v1.HandleFunc("/firmware", s.handleUploadFirmware).Methods(http.MethodPost)
		v1.HandleFunc("/firmware/{id}", s.handleGetFirmware).Methods(http.MethodGet)
		v1.HandleFunc("/firmware/{id}/verify", s.handleVerifyFirmware).Methods(http.MethodPost)
		v1.HandleFunc("/firmware/{id}/reject", s.handleRejectFirmware).Methods(http.MethodPost)
		v1.HandleFunc("/firmware-stats", s.handleFirmwareStats).Methods(http.MethodGet)
	}

	if s.deps.Events != nil {
		v1.HandleFunc("/events", s.handleListEvents).Methods(http.MethodGet)
	}

	return r
}
