package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/spf13/cast"

	"github.com/pushchain/ecu-vault/gateway/eventstore"
	"github.com/pushchain/ecu-vault/gateway/fhe"
)

const defaultListLimit = 50

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// handleEncrypt handles POST /api/v1/fhe/encrypt
func (s *Server) handleEncrypt(w http.ResponseWriter, r *http.Request) {
	var req EncryptRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var value fhe.Plaintext
	switch fhe.ValueType(req.Type) {
	case fhe.TypeUint64:
		// JSON numbers arrive as float64; large values should be sent as strings
		v, err := cast.ToUint64E(req.Value)
		if err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "value is not a uint64")
			return
		}
		value = fhe.Uint64(v)
	case fhe.TypeString, "":
		v, err := cast.ToStringE(req.Value)
		if err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "value is not a string")
			return
		}
		value = fhe.String(v)
	default:
		writeErrorMessage(w, http.StatusBadRequest, "unknown value type "+req.Type)
		return
	}

	handle, err := s.deps.Encrypter.Encrypt(r.Context(), value)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, HandleResponse{Handle: handle})
}

// handleSubmitMessage handles POST /api/v1/messages
func (s *Server) handleSubmitMessage(w http.ResponseWriter, r *http.Request) {
	var req SubmitMessageRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id, err := s.deps.Ledger.SubmitMessage(r.Context(), req.Command, req.Source, req.Target)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, IDResponse{ID: id})
}

// handleListMessages handles GET /api/v1/messages?limit=<n>
func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", defaultListLimit)
	if !ok {
		return
	}

	msgs, err := s.deps.Ledger.ListMessages(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// handleMessageCount handles GET /api/v1/messages/count
func (s *Server) handleMessageCount(w http.ResponseWriter, r *http.Request) {
	count, err := s.deps.Ledger.GetMessageCount(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Count: count})
}

// handleGetMessage handles GET /api/v1/messages/{id}
func (s *Server) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUint(w, r, "id")
	if !ok {
		return
	}

	msg, err := s.deps.Ledger.GetEncryptedMessage(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	status, err := s.deps.Ledger.GetMessageStatus(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: msg, Status: status})
}

// handleGetDecrypted handles GET /api/v1/messages/{id}/decrypted
func (s *Server) handleGetDecrypted(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUint(w, r, "id")
	if !ok {
		return
	}

	msg, err := s.deps.Ledger.GetDecryptedMessage(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	valid, err := s.deps.Ledger.ValidateCommand(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DecryptedMessageResponse{DecryptedMessage: msg, CommandValid: valid})
}

// handleRequestVerification handles POST /api/v1/messages/{id}/verify
func (s *Server) handleRequestVerification(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUint(w, r, "id")
	if !ok {
		return
	}

	reqID, err := s.deps.Ledger.RequestVerification(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, RequestIDResponse{RequestID: reqID})
}

// handleListEcus handles GET /api/v1/ecus
func (s *Server) handleListEcus(w http.ResponseWriter, r *http.Request) {
	names, err := s.deps.Ledger.GetEcuNames(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	ecus := make([]EcuResponse, 0, len(names))
	for _, name := range names {
		agg, err := s.deps.Ledger.GetEcuAggregate(r.Context(), name)
		if err != nil {
			s.writeError(w, err)
			return
		}
		ecus = append(ecus, EcuResponse{Name: name, Aggregate: agg})
	}
	writeJSON(w, http.StatusOK, ecus)
}

// handleRevealAggregate handles POST /api/v1/ecus/{name}/reveal
func (s *Server) handleRevealAggregate(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	reqID, err := s.deps.Ledger.RequestAggregateDecryption(r.Context(), name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, RequestIDResponse{RequestID: reqID})
}

// handleGetData handles GET /api/v1/kv/{key}. The value is returned as raw bytes.
func (s *Server) handleGetData(w http.ResponseWriter, r *http.Request) {
	value, err := s.deps.Ledger.GetData(r.Context(), mux.Vars(r)["key"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(value)
}

// handleSetData handles PUT /api/v1/kv/{key} with the raw value as body.
func (s *Server) handleSetData(w http.ResponseWriter, r *http.Request) {
	value, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeErrorMessage(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}

	if err := s.deps.Ledger.SetData(r.Context(), mux.Vars(r)["key"], value); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAvailable handles GET /api/v1/kv-available
func (s *Server) handleAvailable(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, AvailabilityResponse{Available: s.deps.Ledger.IsAvailable(r.Context())})
}

// handleGetRequest handles GET /api/v1/requests/{id}
func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUint(w, r, "id")
	if !ok {
		return
	}

	req, err := s.deps.Requests.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := DecryptionRequestResponse{
		ID:        uint64(req.ID),
		Callback:  req.Callback,
		Status:    req.Status,
		Attempts:  req.Attempts,
		Error:     req.ErrorMsg,
		CreatedAt: req.CreatedAt.Unix(),
	}
	if err := json.Unmarshal([]byte(req.Handles), &resp.Handles); err != nil {
		s.writeError(w, err)
		return
	}
	if req.DeliveredAt != nil {
		resp.DeliveredAt = req.DeliveredAt.Unix()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleListEvents handles GET /api/v1/events?type=&message_id=&ecu=&limit=
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", defaultListLimit)
	if !ok {
		return
	}

	q := r.URL.Query()
	var messageID uint64
	if raw := q.Get("message_id"); raw != "" {
		v, err := cast.ToUint64E(raw)
		if err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "invalid message_id")
			return
		}
		messageID = v
	}

	events, err := s.deps.Events.List(r.Context(), eventstore.Filter{
		Type:      q.Get("type"),
		MessageID: messageID,
		EcuName:   q.Get("ecu"),
		Limit:     limit,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func pathUint(w http.ResponseWriter, r *http.Request, name string) (uint64, bool) {
	v, err := cast.ToUint64E(mux.Vars(r)[name])
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return v, true
}

func queryInt(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, true
	}
	v, err := cast.ToIntE(raw)
	if err != nil || v < 0 {
		writeErrorMessage(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return v, true
}
