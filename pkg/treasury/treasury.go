package treasury

import (
	"errors"
	"sync"

	"querylane/pkg/domain"
)

var ErrInsufficientFunds = errors.New("insufficient funds")

// Treasury is an in-memory Adapter with per-lane, per-account balances and a
// custody total per lane. It backs tests, the demo harness, and dev-mode
// services; production deployments put a chain custodian behind Adapter
// instead.
type Treasury struct {
	mu       sync.Mutex
	balances map[domain.Lane]map[domain.Address]uint64
	custody  map[domain.Lane]uint64
}

func New() *Treasury {
	return &Treasury{
		balances: make(map[domain.Lane]map[domain.Address]uint64),
		custody:  make(map[domain.Lane]uint64),
	}
}

// Mint credits an account out of thin air. Test and faucet use only.
func (t *Treasury) Mint(lane domain.Lane, addr domain.Address, amount uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lane(lane)[addr] += amount
}

func (t *Treasury) Balance(lane domain.Lane, addr domain.Address) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lane(lane)[addr]
}

// CustodyBalance is the total currently escrowed in the lane. For every
// terminal request the conservation property says this returns to whatever
// policy-retained amount the engine documents (normally zero).
func (t *Treasury) CustodyBalance(lane domain.Lane) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.custody[lane]
}

func (t *Treasury) Pull(lane domain.Lane, payer domain.Address, amount uint64) error {
	if amount == 0 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	b := t.lane(lane)
	if b[payer] < amount {
		return ErrInsufficientFunds
	}
	b[payer] -= amount
	t.custody[lane] += amount
	return nil
}

func (t *Treasury) Push(lane domain.Lane, payee domain.Address, amount uint64) error {
	if amount == 0 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.custody[lane] < amount {
		return ErrInsufficientFunds
	}
	t.custody[lane] -= amount
	t.lane(lane)[payee] += amount
	return nil
}

func (t *Treasury) lane(l domain.Lane) map[domain.Address]uint64 {
	b, ok := t.balances[l]
	if !ok {
		b = make(map[domain.Address]uint64)
		t.balances[l] = b
	}
	return b
}
