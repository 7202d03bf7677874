// Package store archives request snapshots and transition events to
// Postgres for off-chain indexing. The engine never reads from here; it is
// a write-behind audit surface.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"querylane/pkg/domain"
)

type Store struct{ DB *pgxpool.Pool }

func New(db *pgxpool.Pool) *Store { return &Store{DB: db} }

type TransitionEvent struct {
	RequestID uint64          `json:"request_id"`
	Op        string          `json:"op"`
	Phase     string          `json:"phase"`
	Detail    json.RawMessage `json:"detail,omitempty"`
	At        time.Time       `json:"at"`
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.DB.Exec(ctx, `
CREATE TABLE IF NOT EXISTS requests(
  request_id BIGINT PRIMARY KEY,
  snapshot JSONB NOT NULL,
  phase TEXT NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS request_events(
  event_id BIGSERIAL PRIMARY KEY,
  request_id BIGINT NOT NULL,
  op TEXT NOT NULL,
  phase TEXT NOT NULL,
  detail JSONB,
  at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS request_events_request_id_idx ON request_events(request_id)`)
	return err
}

func (s *Store) SaveSnapshot(ctx context.Context, v domain.View) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `
INSERT INTO requests(request_id,snapshot,phase,updated_at)
VALUES($1,$2::jsonb,$3,now())
ON CONFLICT (request_id) DO UPDATE SET snapshot=$2::jsonb, phase=$3, updated_at=now()`,
		int64(v.ID), string(b), v.Phase)
	return err
}

func (s *Store) AppendTransition(ctx context.Context, requestID uint64, op, phase string, detail any) error {
	b, err := json.Marshal(detail)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `
INSERT INTO request_events(request_id,op,phase,detail) VALUES($1,$2,$3,$4::jsonb)`,
		int64(requestID), op, phase, string(b))
	return err
}

func (s *Store) Events(ctx context.Context, requestID uint64) ([]TransitionEvent, error) {
	rows, err := s.DB.Query(ctx, `
SELECT request_id,op,phase,detail,at FROM request_events WHERE request_id=$1 ORDER BY event_id`,
		int64(requestID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TransitionEvent
	for rows.Next() {
		var ev TransitionEvent
		var id int64
		var detail []byte
		if err := rows.Scan(&id, &ev.Op, &ev.Phase, &detail, &ev.At); err != nil {
			return nil, err
		}
		ev.RequestID = uint64(id)
		ev.Detail = detail
		out = append(out, ev)
	}
	return out, rows.Err()
}
