package lifecycle

import (
	"crypto/sha256"
	"encoding/binary"

	"querylane/pkg/domain"
)

// SelectJudge samples one judge from the pool and moves the request to
// Judging. Anyone may trigger it while the signup window is open.
//
// The draw hashes a caller-supplied seed (by convention the hash of a
// recent, already-mined block) with the request's static identity, the
// commit count, and the pool size, reduced modulo the pool size. This is a
// known weakness, not a bug: a party who can influence which block counts as
// "recent" can bias the draw. Stronger randomness is out of scope.
func (e *Engine) SelectJudge(id uint64, seed []byte) error {
	rs, err := e.state(id)
	if err != nil {
		return err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()

	now := e.now()
	e.advance(rs, now)
	req := &rs.req

	if req.Phase != domain.PhaseAwaitingJudge {
		return domain.Errf(domain.KindPhase, "cannot select judge in phase %s", req.Phase)
	}
	if req.Judge != "" {
		return domain.Errf(domain.KindPhase, "judge already selected")
	}
	if !now.Before(req.Terms.JudgeSignupDeadline) {
		return domain.Errf(domain.KindTiming, "judge signup deadline passed")
	}
	if rs.pool.Len() == 0 {
		return domain.Errf(domain.KindCapacity, "judge pool is empty")
	}

	idx := drawIndex(seed, req, rs.pool.Len())
	req.Judge = rs.pool.At(idx)
	req.JudgeBondPosted = false
	req.JudgeBondHeld = 0
	req.JudgeDeadline = now.Add(req.Terms.JudgeWindow)
	req.Phase = domain.PhaseJudging
	e.logTransition(id, "select_judge", req.Phase)
	return nil
}

func drawIndex(seed []byte, req *domain.Request, poolSize int) int {
	h := sha256.New()
	h.Write(seed)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], req.ID)
	h.Write(buf[:])
	h.Write([]byte(req.Terms.Requester))
	binary.BigEndian.PutUint64(buf[:], uint64(req.Terms.CommitDeadline.Unix()))
	h.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], uint64(len(req.Commits)))
	h.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], uint64(poolSize))
	h.Write(buf[:])
	sum := h.Sum(nil)
	return int(binary.BigEndian.Uint64(sum[:8]) % uint64(poolSize))
}
