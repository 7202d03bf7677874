package lifecycle

import (
	"math/bits"

	"querylane/pkg/domain"
	"querylane/pkg/treasury"
)

// bpsOf computes floor(amount * bps / 10000) through a 128-bit intermediate,
// so the product cannot wrap for amounts near the uint64 ceiling. Div64 is
// safe here: Create caps bps at BpsDenominator, which bounds the high word
// of the product below the divisor.
func bpsOf(amount uint64, bps uint32) uint64 {
	hi, lo := bits.Mul64(amount, uint64(bps))
	q, _ := bits.Div64(hi, lo, domain.BpsDenominator)
	return q
}

// DistributeRewards settles a finalized request. With a non-empty winners
// set it runs the payout schedule below; with an empty winners set it takes
// the full-refund path (reward, agent bonds, and judge bond all returned)
// and parks the request in Failed rather than stranding funds in custody.
//
// Payout schedule, all floor division, every remainder swept to the
// requester:
//  1. winners' bonds refunded, losers' bonds pooled
//  2. judge paid floor(reward * judgeRewardBps / 10000) from the reward lane
//  3. remaining reward split over winners (reward lane)
//  4. slashed bond pool split over winners (bond lane) — always accounted
//     separately from the reward split, even when both lanes carry the same
//     asset
//  5. judge bond refunded
//
// Phase and flags flip before any value moves, so reentry during a push hits
// the duplicate-action guard.
func (e *Engine) DistributeRewards(id uint64) error {
	rs, err := e.state(id)
	if err != nil {
		return err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()

	req := &rs.req
	if req.Distributed {
		return domain.Errf(domain.KindDuplicate, "rewards already distributed")
	}
	if req.Phase != domain.PhaseFinalized {
		return domain.Errf(domain.KindPhase, "cannot distribute in phase %s", req.Phase)
	}

	if len(req.Winners) == 0 {
		e.logTransition(id, "distribute_no_winners", domain.PhaseFailed)
		return e.failAndRefund(req, "no winners", true)
	}

	terms := req.Terms
	requester := terms.Requester

	// Partition bonds before anything moves.
	var slashedPool uint64
	type refund struct {
		agent  domain.Address
		amount uint64
	}
	var bondRefunds []refund
	for _, c := range req.Commits {
		held := req.BondHeld[c.Agent]
		if held == 0 {
			continue
		}
		if req.Winners[c.Agent] {
			bondRefunds = append(bondRefunds, refund{c.Agent, held})
		} else {
			slashedPool += held
		}
		req.BondHeld[c.Agent] = 0
	}

	winners := make([]domain.Address, 0, len(req.Winners))
	for _, c := range req.Commits {
		if req.Winners[c.Agent] {
			winners = append(winners, c.Agent)
		}
	}
	w := uint64(len(winners))

	judgeCut := bpsOf(terms.Reward, terms.JudgeRewardBps)
	remainingReward := terms.Reward - judgeCut
	perWinnerReward := remainingReward / w
	rewardRemainder := remainingReward - perWinnerReward*w
	perWinnerSlash := slashedPool / w
	slashRemainder := slashedPool - perWinnerSlash*w

	judgeBond := req.JudgeBondHeld
	req.JudgeBondHeld = 0

	req.Distributed = true
	req.Phase = domain.PhaseDistributed
	e.logTransition(id, "distribute", req.Phase)

	for _, r := range bondRefunds {
		if err := e.push(treasury.LegAgentBond, terms.BondLane, r.agent, r.amount); err != nil {
			return err
		}
	}
	if err := e.push(treasury.LegReward, terms.RewardLane, req.Judge, judgeCut); err != nil {
		return err
	}
	for _, winner := range winners {
		if err := e.push(treasury.LegReward, terms.RewardLane, winner, perWinnerReward); err != nil {
			return err
		}
		if err := e.push(treasury.LegAgentBond, terms.BondLane, winner, perWinnerSlash); err != nil {
			return err
		}
	}
	if err := e.push(treasury.LegReward, terms.RewardLane, requester, rewardRemainder); err != nil {
		return err
	}
	if err := e.push(treasury.LegAgentBond, terms.BondLane, requester, slashRemainder); err != nil {
		return err
	}
	if req.JudgeBondPosted {
		if err := e.push(treasury.LegJudgeBond, terms.BondLane, req.Judge, judgeBond); err != nil {
			return err
		}
	}
	return nil
}

// failAndRefund moves the request to Failed and returns the reward, every
// held agent bond, and (when includeJudgeBond) the judge bond in full.
func (e *Engine) failAndRefund(req *domain.Request, reason string, includeJudgeBond bool) error {
	terms := req.Terms

	type refund struct {
		agent  domain.Address
		amount uint64
	}
	var bondRefunds []refund
	for _, c := range req.Commits {
		if held := req.BondHeld[c.Agent]; held > 0 {
			bondRefunds = append(bondRefunds, refund{c.Agent, held})
			req.BondHeld[c.Agent] = 0
		}
	}
	judgeBond := uint64(0)
	if includeJudgeBond && req.JudgeBondPosted {
		judgeBond = req.JudgeBondHeld
		req.JudgeBondHeld = 0
	}

	req.FailReason = reason
	req.Phase = domain.PhaseFailed

	if err := e.push(treasury.LegReward, terms.RewardLane, terms.Requester, terms.Reward); err != nil {
		return err
	}
	for _, r := range bondRefunds {
		if err := e.push(treasury.LegAgentBond, terms.BondLane, r.agent, r.amount); err != nil {
			return err
		}
	}
	if judgeBond > 0 {
		if err := e.push(treasury.LegJudgeBond, terms.BondLane, req.Judge, judgeBond); err != nil {
			return err
		}
	}
	return nil
}

// slashJudgeAndRefund is the judge-timeout unwind: reward and agent bonds
// come back in full, and a posted judge bond is split evenly among the
// requester and every revealed agent, integer remainder to the requester.
func (e *Engine) slashJudgeAndRefund(req *domain.Request) error {
	terms := req.Terms

	type refund struct {
		agent  domain.Address
		amount uint64
	}
	var bondRefunds []refund
	for _, c := range req.Commits {
		if held := req.BondHeld[c.Agent]; held > 0 {
			bondRefunds = append(bondRefunds, refund{c.Agent, held})
			req.BondHeld[c.Agent] = 0
		}
	}

	revealed := req.RevealedInCommitOrder()
	slashed := uint64(0)
	if req.JudgeBondPosted {
		slashed = req.JudgeBondHeld
		req.JudgeBondHeld = 0
	}
	parties := uint64(len(revealed)) + 1 // requester included
	share := slashed / parties
	requesterShare := share + (slashed - share*parties)

	req.FailReason = "judge timeout"
	req.Phase = domain.PhaseFailed

	if err := e.push(treasury.LegReward, terms.RewardLane, terms.Requester, terms.Reward); err != nil {
		return err
	}
	for _, r := range bondRefunds {
		if err := e.push(treasury.LegAgentBond, terms.BondLane, r.agent, r.amount); err != nil {
			return err
		}
	}
	if slashed > 0 {
		if err := e.push(treasury.LegJudgeBond, terms.BondLane, terms.Requester, requesterShare); err != nil {
			return err
		}
		for _, agent := range revealed {
			if err := e.push(treasury.LegJudgeBond, terms.BondLane, agent, share); err != nil {
				return err
			}
		}
	}
	return nil
}
