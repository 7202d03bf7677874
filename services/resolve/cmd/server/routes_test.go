package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"querylane/pkg/commitment"
	"querylane/pkg/domain"
	"querylane/pkg/lifecycle"
	"querylane/pkg/treasury"
)

type testServer struct {
	t   *testing.T
	srv *httptest.Server
	tre *treasury.Treasury
}

func newTestServer(t *testing.T) *testServer {
	tre := treasury.New()
	eng := lifecycle.New(tre)
	r := newRouter(eng, tre, nil, zap.NewNop(), true)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{t: t, srv: srv, tre: tre}
}

func (s *testServer) post(path string, body any) (int, map[string]any) {
	s.t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		s.t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(s.srv.URL+path, "application/json", bytes.NewReader(b))
	if err != nil {
		s.t.Fatalf("post %s: %v", path, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func (s *testServer) get(path string) (int, map[string]any) {
	s.t.Helper()
	resp, err := http.Get(s.srv.URL + path)
	if err != nil {
		s.t.Fatalf("get %s: %v", path, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestFullLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	const unit = 1_000_000_000

	for _, acct := range []string{"req", "a", "b", "c", "judge"} {
		if code, _ := s.post("/resolve/dev/faucet", map[string]any{"account": acct, "amount": 2 * unit}); code != 200 {
			t.Fatalf("faucet %s: %d", acct, code)
		}
	}

	now := time.Now()
	code, body := s.post("/resolve/requests", map[string]any{
		"caller":                "req",
		"query":                 "What is 2+2?",
		"reward":                unit,
		"agent_bond":            unit / 10,
		"judge_bond":            unit / 5,
		"slots":                 3,
		"commit_deadline":       now.Add(time.Hour).Format(time.RFC3339),
		"reveal_window_seconds": 3600,
		"judge_signup_deadline": now.Add(3 * time.Hour).Format(time.RFC3339),
		"judge_window_seconds":  3600,
		"judge_reward_bps":      1000,
		"attached":              unit,
	})
	if code != 201 {
		t.Fatalf("create: %d %v", code, body)
	}
	id := uint64(body["id"].(float64))
	base := fmt.Sprintf("/resolve/requests/%d", id)

	answers := map[string]string{"a": "4", "b": "4", "c": "5"}
	nonces := map[string]string{}
	for _, agent := range []string{"a", "b", "c"} {
		nonces[agent] = commitment.NewNonce()
		code, body := s.post(base+"/commits", map[string]any{
			"caller":     agent,
			"commitment": commitment.Hash([]byte(answers[agent]), nonces[agent]),
			"attached":   unit / 10,
		})
		if code != 200 {
			t.Fatalf("commit %s: %d %v", agent, code, body)
		}
	}
	for _, agent := range []string{"a", "b", "c"} {
		code, body := s.post(base+"/reveals", map[string]any{
			"caller": agent,
			"answer": answers[agent],
			"nonce":  nonces[agent],
		})
		if code != 200 {
			t.Fatalf("reveal %s: %d %v", agent, code, body)
		}
	}

	if code, body := s.post(base+"/judges", map[string]any{"caller": "judge"}); code != 200 {
		t.Fatalf("register judge: %d %v", code, body)
	}
	code, body = s.post(base+"/select-judge", map[string]any{"seed": "recent-block"})
	if code != 200 || body["judge"] != "judge" {
		t.Fatalf("select judge: %d %v", code, body)
	}
	if code, body := s.post(base+"/judge-bond", map[string]any{"caller": "judge", "attached": unit / 5}); code != 200 {
		t.Fatalf("judge bond: %d %v", code, body)
	}
	code, body = s.post(base+"/aggregate", map[string]any{
		"caller":       "judge",
		"winners":      []string{"a", "b"},
		"final_answer": "4",
		"reasoning":    "majority",
	})
	if code != 200 || body["finalized"] != true {
		t.Fatalf("aggregate: %d %v", code, body)
	}
	if code, body := s.post(base+"/distribute", nil); code != 200 {
		t.Fatalf("distribute: %d %v", code, body)
	}

	code, body = s.get(base)
	if code != 200 {
		t.Fatalf("get request: %d", code)
	}
	req := body["request"].(map[string]any)
	if req["phase"] != "DISTRIBUTED" {
		t.Fatalf("phase = %v", req["phase"])
	}

	native := domain.NativeLane()
	if got := s.tre.Balance(native, "a"); got != 2*unit+unit/2 {
		t.Fatalf("winner balance = %d", got)
	}
	if got := s.tre.CustodyBalance(native); got != 0 {
		t.Fatalf("custody left over: %d", got)
	}
}

func TestErrorMappingOverHTTP(t *testing.T) {
	s := newTestServer(t)

	code, body := s.get("/resolve/requests/42")
	if code != 404 {
		t.Fatalf("unknown request: %d %v", code, body)
	}

	code, body = s.post("/resolve/requests/42/commits", map[string]any{"caller": "a", "commitment": "x", "attached": 0})
	if code != 404 {
		t.Fatalf("commit unknown request: %d %v", code, body)
	}

	code, _ = s.post("/resolve/requests/notanid/distribute", nil)
	if code != 400 {
		t.Fatalf("bad id: %d", code)
	}

	// Zero slots is a capacity violation -> 400 with the kind as code.
	now := time.Now()
	code, body = s.post("/resolve/requests", map[string]any{
		"caller":                "req",
		"query":                 "q",
		"reward":                0,
		"slots":                 0,
		"commit_deadline":       now.Add(time.Hour).Format(time.RFC3339),
		"reveal_window_seconds": 3600,
		"judge_signup_deadline": now.Add(3 * time.Hour).Format(time.RFC3339),
		"judge_window_seconds":  3600,
	})
	if code != 400 {
		t.Fatalf("zero slots: %d %v", code, body)
	}
	errObj := body["error"].(map[string]any)
	if errObj["code"] != "CAPACITY_VIOLATION" {
		t.Fatalf("error code = %v", errObj["code"])
	}
}
