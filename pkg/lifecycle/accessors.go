package lifecycle

import "querylane/pkg/domain"

// Accessors return copies; the deadline-triggered Commit -> Reveal
// advancement is applied on read too, so an observer never sees a stale
// Commit phase past its deadline.

func (e *Engine) Request(id uint64) (domain.View, error) {
	rs, err := e.state(id)
	if err != nil {
		return domain.View{}, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	e.advance(rs, e.now())
	return rs.req.Snapshot(), nil
}

func (e *Engine) Commits(id uint64) ([]domain.Commit, error) {
	rs, err := e.state(id)
	if err != nil {
		return nil, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return append([]domain.Commit(nil), rs.req.Commits...), nil
}

func (e *Engine) Reveals(id uint64) ([]domain.Reveal, error) {
	rs, err := e.state(id)
	if err != nil {
		return nil, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	out := make([]domain.Reveal, 0, len(rs.req.Reveals))
	for _, agent := range rs.req.RevealedInCommitOrder() {
		out = append(out, rs.req.Reveals[agent])
	}
	return out, nil
}

func (e *Engine) Judges(id uint64) ([]domain.Address, error) {
	rs, err := e.state(id)
	if err != nil {
		return nil, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.pool.Members(), nil
}

func (e *Engine) IsJudgeRegistered(id uint64, a domain.Address) (bool, error) {
	rs, err := e.state(id)
	if err != nil {
		return false, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.pool.Contains(a), nil
}

// BondLedger reports each agent's bond still escrowed for the request.
func (e *Engine) BondLedger(id uint64) (map[domain.Address]uint64, error) {
	rs, err := e.state(id)
	if err != nil {
		return nil, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	out := make(map[domain.Address]uint64, len(rs.req.BondHeld))
	for a, held := range rs.req.BondHeld {
		out[a] = held
	}
	return out, nil
}

// Resolution returns the final answer and whether the request finalized.
func (e *Engine) Resolution(id uint64) ([]byte, bool, error) {
	rs, err := e.state(id)
	if err != nil {
		return nil, false, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return append([]byte(nil), rs.req.FinalAnswer...), rs.req.Finalized, nil
}
