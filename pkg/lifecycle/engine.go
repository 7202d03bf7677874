// Package lifecycle implements the per-request phase automaton and the
// settlement pass that pays a resolved request out. Each exported method is
// one complete, atomic transition: every guard is evaluated before any state
// changes, and phase/flags are flipped before any value is pushed out, so a
// reentrant call made during a push lands on the already-updated guards.
package lifecycle

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"querylane/pkg/domain"
	"querylane/pkg/judgepool"
	"querylane/pkg/treasury"
)

type Engine struct {
	mu       sync.RWMutex // guards requests map and nextID only
	requests map[uint64]*requestState
	nextID   uint64

	adapter treasury.Adapter
	now     func() time.Time
	log     *zap.Logger

	// disputeHook, if set, is invoked after a successful aggregation. It is
	// an attachment point for arbitration layers; the core never acts on it.
	disputeHook func(id uint64, winners []domain.Address, finalAnswer []byte)
}

// requestState pairs a request record with its judge pool under one lock.
// Requests advance independently; no lock is ever held across two requests.
type requestState struct {
	mu   sync.Mutex
	req  domain.Request
	pool *judgepool.Pool
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

func New(adapter treasury.Adapter, opts ...Option) *Engine {
	e := &Engine{
		requests: make(map[uint64]*requestState),
		adapter:  adapter,
		now:      time.Now,
		log:      zap.NewNop(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) SetDisputeHook(h func(id uint64, winners []domain.Address, finalAnswer []byte)) {
	e.disputeHook = h
}

func (e *Engine) state(id uint64) (*requestState, error) {
	e.mu.RLock()
	rs, ok := e.requests[id]
	e.mu.RUnlock()
	if !ok {
		return nil, domain.Errf(domain.KindNotFound, "request %d not found", id)
	}
	return rs, nil
}

// advance applies deadline-triggered transitions before any guard runs.
// The only lazy edge is Commit -> Reveal at the commit deadline; every other
// deadline is acted on by an explicit externally-triggered call.
func (e *Engine) advance(rs *requestState, now time.Time) {
	if rs.req.Phase == domain.PhaseCommit && !now.Before(rs.req.Terms.CommitDeadline) {
		rs.req.Phase = domain.PhaseReveal
		e.logTransition(rs.req.ID, "deadline_close_commits", domain.PhaseReveal)
	}
}

func (e *Engine) logTransition(id uint64, op string, phase domain.Phase) {
	e.log.Debug("transition",
		zap.Uint64("request_id", id),
		zap.String("op", op),
		zap.String("phase", phase.String()))
}

// pull moves funds into custody, attributing any failure to its leg.
func (e *Engine) pull(leg treasury.Leg, lane domain.Lane, payer domain.Address, amount uint64) error {
	if err := e.adapter.Pull(lane, payer, amount); err != nil {
		return domain.WrapErr(domain.KindTransfer, "pull failed", &treasury.TransferError{
			Leg: leg, Op: "pull", Lane: lane, Party: payer, Amount: amount, Err: err,
		})
	}
	return nil
}

// push moves funds out of custody, attributing any failure to its leg.
func (e *Engine) push(leg treasury.Leg, lane domain.Lane, payee domain.Address, amount uint64) error {
	if err := e.adapter.Push(lane, payee, amount); err != nil {
		return domain.WrapErr(domain.KindTransfer, "push failed", &treasury.TransferError{
			Leg: leg, Op: "push", Lane: lane, Party: payee, Amount: amount, Err: err,
		})
	}
	return nil
}

// checkAttached enforces the transaction-envelope rule: the native lane
// requires the attached value to match the amount exactly, an asset lane
// requires no attached value at all.
func checkAttached(lane domain.Lane, amount, attached uint64) error {
	if lane.Native() {
		if attached != amount {
			return domain.Errf(domain.KindValueMismatch,
				"native lane requires attached value %d, got %d", amount, attached)
		}
		return nil
	}
	if attached != 0 {
		return domain.Errf(domain.KindValueMismatch,
			"asset lane %s does not accept attached native value", lane)
	}
	return nil
}
