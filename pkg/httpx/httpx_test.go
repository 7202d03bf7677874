package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"querylane/pkg/domain"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		kind   domain.ErrorKind
		status int
	}{
		{domain.KindNotFound, 404},
		{domain.KindPhase, 409},
		{domain.KindDuplicate, 409},
		{domain.KindTiming, 422},
		{domain.KindIntegrity, 422},
		{domain.KindValueMismatch, 400},
		{domain.KindCapacity, 400},
		{domain.KindAuthorization, 403},
		{domain.KindTransfer, 502},
	}
	for _, tc := range cases {
		if got := StatusFor(tc.kind); got != tc.status {
			t.Fatalf("StatusFor(%s) = %d, want %d", tc.kind, got, tc.status)
		}
	}
}

func TestWriteEngineError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteEngineError(rec, domain.Errf(domain.KindDuplicate, "agent already committed"))
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
		RequestID string `json:"request_id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "DUPLICATE_ACTION" {
		t.Fatalf("code = %s", body.Error.Code)
	}
	if !strings.HasPrefix(body.RequestID, "req_") {
		t.Fatalf("request id = %s", body.RequestID)
	}
}

func TestReadJSONRejectsUnknownFields(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"nope":1}`))
	var dst struct {
		Caller string `json:"caller"`
	}
	if err := ReadJSON(r, &dst); err == nil {
		t.Fatalf("expected unknown-field error")
	}
}
