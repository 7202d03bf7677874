package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"querylane/pkg/domain"
)

func NewRequestID() string { return "req_" + uuid.NewString() }

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func ReadJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func WriteError(w http.ResponseWriter, status int, code, message string, details any) {
	resp := map[string]any{
		"request_id": NewRequestID(),
		"error": map[string]any{
			"code": code, "message": message, "details": details,
		},
	}
	WriteJSON(w, status, resp)
}

// WriteEngineError maps a lifecycle engine error onto the wire: the error
// kind becomes the code, StatusFor picks the HTTP status.
func WriteEngineError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	if kind == "" {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
		return
	}
	WriteError(w, StatusFor(kind), string(kind), err.Error(), nil)
}

// StatusFor maps each engine error kind to exactly one HTTP status, so a
// client can build deterministic retry logic on the code alone.
func StatusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindPhase, domain.KindDuplicate:
		return http.StatusConflict
	case domain.KindTiming:
		return http.StatusUnprocessableEntity
	case domain.KindValueMismatch, domain.KindCapacity:
		return http.StatusBadRequest
	case domain.KindIntegrity:
		return http.StatusUnprocessableEntity
	case domain.KindAuthorization:
		return http.StatusForbidden
	case domain.KindTransfer:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
