package lifecycle

import (
	"querylane/pkg/commitment"
	"querylane/pkg/domain"
	"querylane/pkg/judgepool"
	"querylane/pkg/treasury"
)

// Create validates the terms, pulls the reward into custody, and opens the
// request in the Commit phase. The caller is the requester; attached is the
// native value carried by the call envelope.
func (e *Engine) Create(caller domain.Address, terms domain.Terms, attached uint64) (uint64, error) {
	now := e.now()
	if terms.Slots <= 0 {
		return 0, domain.Errf(domain.KindCapacity, "slot count must be positive")
	}
	if terms.JudgeRewardBps > domain.BpsDenominator {
		return 0, domain.Errf(domain.KindCapacity, "judge reward share %d exceeds %d bps",
			terms.JudgeRewardBps, domain.BpsDenominator)
	}
	if !terms.CommitDeadline.After(now) {
		return 0, domain.Errf(domain.KindCapacity, "commit deadline must be in the future")
	}
	if terms.RevealWindow <= 0 {
		return 0, domain.Errf(domain.KindCapacity, "reveal window must be positive")
	}
	if terms.JudgeWindow <= 0 {
		return 0, domain.Errf(domain.KindCapacity, "judge aggregation window must be positive")
	}
	revealDeadline := terms.CommitDeadline.Add(terms.RevealWindow)
	if !terms.JudgeSignupDeadline.After(now) {
		return 0, domain.Errf(domain.KindCapacity, "judge signup deadline must be in the future")
	}
	if terms.JudgeSignupDeadline.Before(revealDeadline) {
		return 0, domain.Errf(domain.KindCapacity, "judge signup deadline precedes reveal deadline")
	}
	if err := checkAttached(terms.RewardLane, terms.Reward, attached); err != nil {
		return 0, err
	}

	terms.Requester = caller
	if err := e.pull(treasury.LegReward, terms.RewardLane, caller, terms.Reward); err != nil {
		return 0, err
	}

	e.mu.Lock()
	e.nextID++
	id := e.nextID
	rs := &requestState{
		req: domain.Request{
			ID:             id,
			Terms:          terms,
			RevealDeadline: revealDeadline,
			Phase:          domain.PhaseCommit,
			CommitIndex:    make(map[domain.Address]int),
			Reveals:        make(map[domain.Address]domain.Reveal),
			Winners:        make(map[domain.Address]bool),
			BondHeld:       make(map[domain.Address]uint64),
		},
		pool: judgepool.New(),
	}
	e.requests[id] = rs
	e.mu.Unlock()

	e.logTransition(id, "create", domain.PhaseCommit)
	return id, nil
}

// Commit occupies one agent slot with a commitment hash and pulls the agent
// bond. Filling the last slot closes the commit phase immediately.
func (e *Engine) Commit(id uint64, caller domain.Address, commitHash string, attached uint64) error {
	rs, err := e.state(id)
	if err != nil {
		return err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()

	// No lazy advancement here: a commit past the deadline reports the
	// timing guard, not a phase mismatch.
	now := e.now()
	req := &rs.req

	if req.Phase != domain.PhaseCommit {
		return domain.Errf(domain.KindPhase, "cannot commit in phase %s", req.Phase)
	}
	if rs.pool.Contains(caller) {
		return domain.Errf(domain.KindAuthorization, "registered judge cannot commit as agent")
	}
	if !now.Before(req.Terms.CommitDeadline) {
		return domain.Errf(domain.KindTiming, "commit deadline passed")
	}
	if len(req.Commits) >= req.Terms.Slots {
		return domain.Errf(domain.KindCapacity, "all %d commit slots occupied", req.Terms.Slots)
	}
	if req.Committed(caller) {
		return domain.Errf(domain.KindDuplicate, "agent already committed")
	}
	if err := checkAttached(req.Terms.BondLane, req.Terms.AgentBond, attached); err != nil {
		return err
	}

	if err := e.pull(treasury.LegAgentBond, req.Terms.BondLane, caller, req.Terms.AgentBond); err != nil {
		return err
	}

	req.CommitIndex[caller] = len(req.Commits)
	req.Commits = append(req.Commits, domain.Commit{Agent: caller, Commitment: commitHash})
	req.BondHeld[caller] += req.Terms.AgentBond

	if len(req.Commits) == req.Terms.Slots {
		req.Phase = domain.PhaseReveal
	}
	e.logTransition(id, "commit", req.Phase)
	return nil
}

// Reveal checks the caller's (answer, nonce) pair against the stored
// commitment. Guard order is fixed: phase, membership, already-revealed,
// deadline, then hash equality, so each failure mode surfaces its own kind.
func (e *Engine) Reveal(id uint64, caller domain.Address, answer []byte, nonce string) error {
	rs, err := e.state(id)
	if err != nil {
		return err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()

	now := e.now()
	e.advance(rs, now)
	req := &rs.req

	if req.Phase != domain.PhaseReveal {
		return domain.Errf(domain.KindPhase, "cannot reveal in phase %s", req.Phase)
	}
	if !req.Committed(caller) {
		return domain.Errf(domain.KindAuthorization, "agent never committed")
	}
	if req.Revealed(caller) {
		return domain.Errf(domain.KindDuplicate, "agent already revealed")
	}
	if now.After(req.RevealDeadline) {
		return domain.Errf(domain.KindTiming, "reveal deadline passed")
	}
	stored := req.Commits[req.CommitIndex[caller]].Commitment
	if commitment.Hash(answer, nonce) != stored {
		return domain.Errf(domain.KindIntegrity, "reveal does not match commitment")
	}

	req.Reveals[caller] = domain.Reveal{
		Agent:  caller,
		Answer: append([]byte(nil), answer...),
		Nonce:  nonce,
	}
	if len(req.Reveals) == len(req.Commits) {
		req.Phase = domain.PhaseAwaitingJudge
	}
	e.logTransition(id, "reveal", req.Phase)
	return nil
}

// CloseReveals advances Reveal -> AwaitingJudge once every committed agent
// has revealed or the reveal deadline has passed. Anyone may call it; a
// repeat call fails on the phase guard rather than silently succeeding.
func (e *Engine) CloseReveals(id uint64) error {
	rs, err := e.state(id)
	if err != nil {
		return err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()

	now := e.now()
	e.advance(rs, now)
	req := &rs.req

	if req.Phase != domain.PhaseReveal {
		return domain.Errf(domain.KindPhase, "cannot close reveals in phase %s", req.Phase)
	}
	if len(req.Reveals) < len(req.Commits) && !now.After(req.RevealDeadline) {
		return domain.Errf(domain.KindTiming, "reveal window still open")
	}

	req.Phase = domain.PhaseAwaitingJudge
	e.logTransition(id, "close_reveals", req.Phase)
	return nil
}

// RegisterJudge adds the caller to the request's judge pool.
func (e *Engine) RegisterJudge(id uint64, caller domain.Address) error {
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
		return domain.Errf(domain.KindPhase, "cannot register judge in phase %s", req.Phase)
	}
	if req.Judge != "" {
		return domain.Errf(domain.KindPhase, "judge already selected")
	}
	if !now.Before(req.Terms.JudgeSignupDeadline) {
		return domain.Errf(domain.KindTiming, "judge signup deadline passed")
	}
	if req.Committed(caller) {
		return domain.Errf(domain.KindAuthorization, "committing agent cannot register as judge")
	}
	if !rs.pool.Add(caller) {
		return domain.Errf(domain.KindDuplicate, "judge already registered")
	}
	e.logTransition(id, "register_judge", req.Phase)
	return nil
}

// UnregisterJudge removes the caller from the pool. Removing an address that
// never registered is a no-op, not an error.
func (e *Engine) UnregisterJudge(id uint64, caller domain.Address) error {
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
		return domain.Errf(domain.KindPhase, "cannot unregister judge in phase %s", req.Phase)
	}
	if req.Judge != "" {
		return domain.Errf(domain.KindPhase, "judge already selected")
	}
	if !now.Before(req.Terms.JudgeSignupDeadline) {
		return domain.Errf(domain.KindTiming, "judge signup deadline passed")
	}
	rs.pool.Remove(caller)
	e.logTransition(id, "unregister_judge", req.Phase)
	return nil
}

// PostJudgeBond pulls the selected judge's bond into custody.
func (e *Engine) PostJudgeBond(id uint64, caller domain.Address, attached uint64) error {
	rs, err := e.state(id)
	if err != nil {
		return err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()

	req := &rs.req
	if req.Phase != domain.PhaseJudging {
		return domain.Errf(domain.KindPhase, "cannot post judge bond in phase %s", req.Phase)
	}
	if caller != req.Judge {
		return domain.Errf(domain.KindAuthorization, "caller is not the selected judge")
	}
	if req.JudgeBondPosted {
		return domain.Errf(domain.KindDuplicate, "judge bond already posted")
	}
	if err := checkAttached(req.Terms.BondLane, req.Terms.JudgeBond, attached); err != nil {
		return err
	}

	if err := e.pull(treasury.LegJudgeBond, req.Terms.BondLane, caller, req.Terms.JudgeBond); err != nil {
		return err
	}
	req.JudgeBondPosted = true
	req.JudgeBondHeld = req.Terms.JudgeBond
	e.logTransition(id, "post_judge_bond", req.Phase)
	return nil
}

// Aggregate records the judge's verdict. A quorum failure (no commits, or
// reveals not a strict majority of commits) is a normal outcome: the request
// moves to Failed with everything refunded and the call succeeds.
func (e *Engine) Aggregate(id uint64, caller domain.Address, winners []domain.Address, finalAnswer []byte, reasoning string) error {
	rs, err := e.state(id)
	if err != nil {
		return err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()

	req := &rs.req
	if req.Phase != domain.PhaseJudging {
		return domain.Errf(domain.KindPhase, "cannot aggregate in phase %s", req.Phase)
	}
	if req.Finalized {
		return domain.Errf(domain.KindDuplicate, "request already finalized")
	}
	if caller != req.Judge {
		return domain.Errf(domain.KindAuthorization, "caller is not the selected judge")
	}
	if !req.JudgeBondPosted {
		return domain.Errf(domain.KindPhase, "judge bond not posted")
	}

	committed := len(req.Commits)
	revealed := len(req.Reveals)
	if committed == 0 || 2*revealed <= committed {
		// The judge performed, so the bond comes back with the refunds.
		e.logTransition(id, "aggregate_no_quorum", domain.PhaseFailed)
		return e.failAndRefund(req, "no quorum", true)
	}

	for _, w := range winners {
		if !req.Committed(w) {
			return domain.Errf(domain.KindIntegrity, "winner %s never committed", w)
		}
	}

	req.Winners = make(map[domain.Address]bool, len(winners))
	for _, w := range winners {
		req.Winners[w] = true
	}
	req.FinalAnswer = append([]byte(nil), finalAnswer...)
	req.Reasoning = reasoning
	req.Finalized = true
	req.Phase = domain.PhaseFinalized
	e.logTransition(id, "aggregate", req.Phase)

	if e.disputeHook != nil {
		e.disputeHook(id, winners, req.FinalAnswer)
	}
	return nil
}

// TimeoutJudge unwinds a request whose judge never aggregated. The reward
// and agent bonds are refunded; a posted judge bond is slashed and split
// evenly among the requester and every revealed agent, remainder to the
// requester.
func (e *Engine) TimeoutJudge(id uint64) error {
	rs, err := e.state(id)
	if err != nil {
		return err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()

	now := e.now()
	req := &rs.req
	if req.Phase != domain.PhaseJudging {
		return domain.Errf(domain.KindPhase, "cannot timeout judge in phase %s", req.Phase)
	}
	if req.Finalized {
		return domain.Errf(domain.KindDuplicate, "request already finalized")
	}
	if !now.After(req.JudgeDeadline) {
		return domain.Errf(domain.KindTiming, "judge aggregation window still open")
	}

	e.logTransition(id, "timeout_judge", domain.PhaseFailed)
	return e.slashJudgeAndRefund(req)
}

// RefundIfNoJudge unwinds a request whose judge pool produced no selection
// by the signup deadline.
func (e *Engine) RefundIfNoJudge(id uint64) error {
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
		return domain.Errf(domain.KindPhase, "cannot refund in phase %s", req.Phase)
	}
	if req.Judge != "" {
		return domain.Errf(domain.KindPhase, "judge already selected")
	}
	if now.Before(req.Terms.JudgeSignupDeadline) {
		return domain.Errf(domain.KindTiming, "judge signup deadline not reached")
	}

	e.logTransition(id, "refund_no_judge", domain.PhaseFailed)
	return e.failAndRefund(req, "no judge selected", false)
}
