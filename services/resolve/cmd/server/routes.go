package main

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"querylane/pkg/domain"
	"querylane/pkg/httpx"
	"querylane/pkg/lifecycle"
	"querylane/pkg/treasury"
	"querylane/services/resolve/internal/store"
)

type createRequestBody struct {
	Caller              string    `json:"caller"`
	Query               string    `json:"query"`
	Spec                string    `json:"spec,omitempty"`
	Capabilities        string    `json:"capabilities,omitempty"`
	Reward              uint64    `json:"reward"`
	RewardAsset         string    `json:"reward_asset,omitempty"`
	AgentBond           uint64    `json:"agent_bond"`
	JudgeBond           uint64    `json:"judge_bond"`
	BondAsset           string    `json:"bond_asset,omitempty"`
	Slots               int       `json:"slots"`
	CommitDeadline      time.Time `json:"commit_deadline"`
	RevealWindowSec     int64     `json:"reveal_window_seconds"`
	JudgeSignupDeadline time.Time `json:"judge_signup_deadline"`
	JudgeWindowSec      int64     `json:"judge_window_seconds"`
	JudgeRewardBps      uint32    `json:"judge_reward_bps"`
	Attached            uint64    `json:"attached"`
}

func newRouter(eng *lifecycle.Engine, tre *treasury.Treasury, st *store.Store, log *zap.Logger, devFaucet bool) chi.Router {
	// archive mirrors successful transitions into Postgres; failures are
	// logged, never surfaced, since the archive is an indexing side-channel.
	archive := func(ctx context.Context, id uint64, op string, detail any) {
		if st == nil {
			return
		}
		v, err := eng.Request(id)
		if err != nil {
			return
		}
		if err := st.SaveSnapshot(ctx, v); err != nil {
			log.Warn("archive snapshot", zap.Uint64("request_id", id), zap.Error(err))
			return
		}
		if err := st.AppendTransition(ctx, id, op, v.Phase, detail); err != nil {
			log.Warn("archive event", zap.Uint64("request_id", id), zap.Error(err))
		}
	}

	requestID := func(r *http.Request) (uint64, bool) {
		id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
		return id, err == nil
	}

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	r.Route("/resolve", func(api chi.Router) {

		if devFaucet {
			// DEV helper to fund accounts for smoke tests.
			api.Post("/dev/faucet", func(w http.ResponseWriter, r *http.Request) {
				var req struct {
					Account string `json:"account"`
					Asset   string `json:"asset,omitempty"`
					Amount  uint64 `json:"amount"`
				}
				if err := httpx.ReadJSON(r, &req); err != nil { httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil); return }
				tre.Mint(domain.Lane{Asset: req.Asset}, domain.Address(req.Account), req.Amount)
				httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "funded": true})
			})
		}

		api.Post("/requests", func(w http.ResponseWriter, r *http.Request) {
			var req createRequestBody
			if err := httpx.ReadJSON(r, &req); err != nil { httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil); return }
			terms := domain.Terms{
				Query:               req.Query,
				Spec:                req.Spec,
				Capabilities:        req.Capabilities,
				Reward:              req.Reward,
				RewardLane:          domain.Lane{Asset: req.RewardAsset},
				AgentBond:           req.AgentBond,
				JudgeBond:           req.JudgeBond,
				BondLane:            domain.Lane{Asset: req.BondAsset},
				Slots:               req.Slots,
				CommitDeadline:      req.CommitDeadline,
				RevealWindow:        time.Duration(req.RevealWindowSec) * time.Second,
				JudgeSignupDeadline: req.JudgeSignupDeadline,
				JudgeWindow:         time.Duration(req.JudgeWindowSec) * time.Second,
				JudgeRewardBps:      req.JudgeRewardBps,
			}
			id, err := eng.Create(domain.Address(req.Caller), terms, req.Attached)
			if err != nil { httpx.WriteEngineError(w, err); return }
			archive(r.Context(), id, "create", req)
			httpx.WriteJSON(w, 201, map[string]any{"request_id": httpx.NewRequestID(), "id": id})
		})

		api.Post("/requests/{id}/commits", func(w http.ResponseWriter, r *http.Request) {
			id, ok := requestID(r)
			if !ok { httpx.WriteError(w, 400, "BAD_ID", "request id must be an integer", nil); return }
			var req struct {
				Caller     string `json:"caller"`
				Commitment string `json:"commitment"`
				Attached   uint64 `json:"attached"`
			}
			if err := httpx.ReadJSON(r, &req); err != nil { httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil); return }
			if err := eng.Commit(id, domain.Address(req.Caller), req.Commitment, req.Attached); err != nil { httpx.WriteEngineError(w, err); return }
			archive(r.Context(), id, "commit", map[string]any{"caller": req.Caller})
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "committed": true})
		})

		api.Post("/requests/{id}/reveals", func(w http.ResponseWriter, r *http.Request) {
			id, ok := requestID(r)
			if !ok { httpx.WriteError(w, 400, "BAD_ID", "request id must be an integer", nil); return }
			var req struct {
				Caller string `json:"caller"`
				Answer string `json:"answer"`
				Nonce  string `json:"nonce"`
			}
			if err := httpx.ReadJSON(r, &req); err != nil { httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil); return }
			if err := eng.Reveal(id, domain.Address(req.Caller), []byte(req.Answer), req.Nonce); err != nil { httpx.WriteEngineError(w, err); return }
			archive(r.Context(), id, "reveal", map[string]any{"caller": req.Caller})
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "revealed": true})
		})

		api.Post("/requests/{id}/close-reveals", func(w http.ResponseWriter, r *http.Request) {
			id, ok := requestID(r)
			if !ok { httpx.WriteError(w, 400, "BAD_ID", "request id must be an integer", nil); return }
			if err := eng.CloseReveals(id); err != nil { httpx.WriteEngineError(w, err); return }
			archive(r.Context(), id, "close_reveals", nil)
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "closed": true})
		})

		api.Post("/requests/{id}/judges", func(w http.ResponseWriter, r *http.Request) {
			id, ok := requestID(r)
			if !ok { httpx.WriteError(w, 400, "BAD_ID", "request id must be an integer", nil); return }
			var req struct {
				Caller string `json:"caller"`
			}
			if err := httpx.ReadJSON(r, &req); err != nil { httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil); return }
			if err := eng.RegisterJudge(id, domain.Address(req.Caller)); err != nil { httpx.WriteEngineError(w, err); return }
			archive(r.Context(), id, "register_judge", map[string]any{"caller": req.Caller})
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "registered": true})
		})

		api.Delete("/requests/{id}/judges/{addr}", func(w http.ResponseWriter, r *http.Request) {
			id, ok := requestID(r)
			if !ok { httpx.WriteError(w, 400, "BAD_ID", "request id must be an integer", nil); return }
			addr := chi.URLParam(r, "addr")
			if err := eng.UnregisterJudge(id, domain.Address(addr)); err != nil { httpx.WriteEngineError(w, err); return }
			archive(r.Context(), id, "unregister_judge", map[string]any{"caller": addr})
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "unregistered": true})
		})

		api.Post("/requests/{id}/select-judge", func(w http.ResponseWriter, r *http.Request) {
			id, ok := requestID(r)
			if !ok { httpx.WriteError(w, 400, "BAD_ID", "request id must be an integer", nil); return }
			var req struct {
				Seed string `json:"seed"`
			}
			if err := httpx.ReadJSON(r, &req); err != nil { httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil); return }
			if err := eng.SelectJudge(id, []byte(req.Seed)); err != nil { httpx.WriteEngineError(w, err); return }
			v, err := eng.Request(id)
			if err != nil { httpx.WriteEngineError(w, err); return }
			archive(r.Context(), id, "select_judge", map[string]any{"judge": v.Judge})
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "judge": v.Judge})
		})

		api.Post("/requests/{id}/judge-bond", func(w http.ResponseWriter, r *http.Request) {
			id, ok := requestID(r)
			if !ok { httpx.WriteError(w, 400, "BAD_ID", "request id must be an integer", nil); return }
			var req struct {
				Caller   string `json:"caller"`
				Attached uint64 `json:"attached"`
			}
			if err := httpx.ReadJSON(r, &req); err != nil { httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil); return }
			if err := eng.PostJudgeBond(id, domain.Address(req.Caller), req.Attached); err != nil { httpx.WriteEngineError(w, err); return }
			archive(r.Context(), id, "post_judge_bond", map[string]any{"caller": req.Caller})
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "posted": true})
		})

		api.Post("/requests/{id}/aggregate", func(w http.ResponseWriter, r *http.Request) {
			id, ok := requestID(r)
			if !ok { httpx.WriteError(w, 400, "BAD_ID", "request id must be an integer", nil); return }
			var req struct {
				Caller      string   `json:"caller"`
				Winners     []string `json:"winners"`
				FinalAnswer string   `json:"final_answer"`
				Reasoning   string   `json:"reasoning,omitempty"`
			}
			if err := httpx.ReadJSON(r, &req); err != nil { httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil); return }
			winners := make([]domain.Address, 0, len(req.Winners))
			for _, wn := range req.Winners {
				winners = append(winners, domain.Address(wn))
			}
			if err := eng.Aggregate(id, domain.Address(req.Caller), winners, []byte(req.FinalAnswer), req.Reasoning); err != nil { httpx.WriteEngineError(w, err); return }
			v, err := eng.Request(id)
			if err != nil { httpx.WriteEngineError(w, err); return }
			archive(r.Context(), id, "aggregate", map[string]any{"winners": req.Winners, "phase": v.Phase})
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "phase": v.Phase, "finalized": v.Finalized})
		})

		api.Post("/requests/{id}/timeout-judge", func(w http.ResponseWriter, r *http.Request) {
			id, ok := requestID(r)
			if !ok { httpx.WriteError(w, 400, "BAD_ID", "request id must be an integer", nil); return }
			if err := eng.TimeoutJudge(id); err != nil { httpx.WriteEngineError(w, err); return }
			archive(r.Context(), id, "timeout_judge", nil)
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "failed": true})
		})

		api.Post("/requests/{id}/refund-no-judge", func(w http.ResponseWriter, r *http.Request) {
			id, ok := requestID(r)
			if !ok { httpx.WriteError(w, 400, "BAD_ID", "request id must be an integer", nil); return }
			if err := eng.RefundIfNoJudge(id); err != nil { httpx.WriteEngineError(w, err); return }
			archive(r.Context(), id, "refund_no_judge", nil)
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "refunded": true})
		})

		api.Post("/requests/{id}/distribute", func(w http.ResponseWriter, r *http.Request) {
			id, ok := requestID(r)
			if !ok { httpx.WriteError(w, 400, "BAD_ID", "request id must be an integer", nil); return }
			if err := eng.DistributeRewards(id); err != nil { httpx.WriteEngineError(w, err); return }
			archive(r.Context(), id, "distribute", nil)
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "distributed": true})
		})

		api.Get("/requests/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, ok := requestID(r)
			if !ok { httpx.WriteError(w, 400, "BAD_ID", "request id must be an integer", nil); return }
			v, err := eng.Request(id)
			if err != nil { httpx.WriteEngineError(w, err); return }
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "request": v})
		})

		api.Get("/requests/{id}/commits", func(w http.ResponseWriter, r *http.Request) {
			id, ok := requestID(r)
			if !ok { httpx.WriteError(w, 400, "BAD_ID", "request id must be an integer", nil); return }
			commits, err := eng.Commits(id)
			if err != nil { httpx.WriteEngineError(w, err); return }
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "commits": commits})
		})

		api.Get("/requests/{id}/reveals", func(w http.ResponseWriter, r *http.Request) {
			id, ok := requestID(r)
			if !ok { httpx.WriteError(w, 400, "BAD_ID", "request id must be an integer", nil); return }
			reveals, err := eng.Reveals(id)
			if err != nil { httpx.WriteEngineError(w, err); return }
			out := make([]map[string]any, 0, len(reveals))
			for _, rv := range reveals {
				out = append(out, map[string]any{"agent": rv.Agent, "answer": string(rv.Answer), "nonce": rv.Nonce})
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "reveals": out})
		})

		api.Get("/requests/{id}/judges", func(w http.ResponseWriter, r *http.Request) {
			id, ok := requestID(r)
			if !ok { httpx.WriteError(w, 400, "BAD_ID", "request id must be an integer", nil); return }
			judges, err := eng.Judges(id)
			if err != nil { httpx.WriteEngineError(w, err); return }
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "judges": judges, "count": len(judges)})
		})

		api.Get("/requests/{id}/bonds", func(w http.ResponseWriter, r *http.Request) {
			id, ok := requestID(r)
			if !ok { httpx.WriteError(w, 400, "BAD_ID", "request id must be an integer", nil); return }
			ledger, err := eng.BondLedger(id)
			if err != nil { httpx.WriteEngineError(w, err); return }
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "bonds": ledger})
		})
	})

	return r
}
