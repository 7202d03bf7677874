package lifecycle

import (
	"testing"

	"querylane/pkg/domain"
)

// runToFinalized drives a request through commit, reveal, and aggregation
// with three agents answering A="4", B="4", C="5".
func runToFinalized(t *testing.T, f *fixture, terms domain.Terms, winners []domain.Address) uint64 {
	t.Helper()
	id := f.create(terms)
	f.commit(id, agentA, "4", "nA", terms)
	f.commit(id, agentB, "4", "nB", terms)
	f.commit(id, agentC, "5", "nC", terms)
	f.reveal(id, agentA, "4", "nA")
	f.reveal(id, agentB, "4", "nB")
	f.reveal(id, agentC, "5", "nC")
	if err := f.eng.RegisterJudge(id, judge); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := f.eng.SelectJudge(id, []byte("seed")); err != nil {
		t.Fatalf("select: %v", err)
	}
	attached := uint64(0)
	if terms.BondLane.Native() {
		attached = terms.JudgeBond
	}
	if err := f.eng.PostJudgeBond(id, judge, attached); err != nil {
		t.Fatalf("post bond: %v", err)
	}
	if err := f.eng.Aggregate(id, judge, winners, []byte("4"), "majority"); err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	return id
}

// The spec's reference scenario: reward 1 unit at 1000 bps judge share,
// bonds of 0.1 unit. A and B win with "4"; each nets +0.5 unit, C loses the
// bond, the judge earns 0.1 unit, and nothing is left in custody.
func TestSettlementMajorityScenario(t *testing.T) {
	terms := defaultTerms()
	f := newFixture(t)
	native := domain.NativeLane()
	id := runToFinalized(t, f, terms, []domain.Address{agentA, agentB})

	if err := f.eng.DistributeRewards(id); err != nil {
		t.Fatalf("distribute: %v", err)
	}
	v, err := f.eng.Request(id)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if v.Phase != "DISTRIBUTED" || !v.Distributed {
		t.Fatalf("expected DISTRIBUTED, got %s distributed=%v", v.Phase, v.Distributed)
	}
	if string(v.FinalAnswer) != "4" {
		t.Fatalf("final answer = %q", v.FinalAnswer)
	}

	judgeCut := unit / 10                        // 1000 bps of the reward
	perWinner := (unit - judgeCut + agentBond) / 2 // 0.45 reward + 0.05 slashed bond

	if got, want := f.tre.Balance(native, requester), 10*unit-unit; got != want {
		t.Fatalf("requester balance = %d, want %d", got, want)
	}
	for _, a := range []domain.Address{agentA, agentB} {
		if got, want := f.tre.Balance(native, a), unit+perWinner; got != want {
			t.Fatalf("%s balance = %d, want %d", a, got, want)
		}
	}
	if got, want := f.tre.Balance(native, agentC), unit-agentBond; got != want {
		t.Fatalf("agentC balance = %d, want %d", got, want)
	}
	if got, want := f.tre.Balance(native, judge), unit+judgeCut; got != want {
		t.Fatalf("judge balance = %d, want %d", got, want)
	}
	if got := f.tre.CustodyBalance(native); got != 0 {
		t.Fatalf("custody left over: %d", got)
	}
}

func TestSettlementIdempotent(t *testing.T) {
	terms := defaultTerms()
	f := newFixture(t)
	native := domain.NativeLane()
	id := runToFinalized(t, f, terms, []domain.Address{agentA, agentB})

	if err := f.eng.DistributeRewards(id); err != nil {
		t.Fatalf("first distribute: %v", err)
	}
	before := f.tre.Balance(native, agentA)
	f.wantKind(f.eng.DistributeRewards(id), domain.KindDuplicate)
	if got := f.tre.Balance(native, agentA); got != before {
		t.Fatalf("double payout: balance moved from %d to %d", before, got)
	}
}

// Reward and bond lanes on different assets must be split as two separate
// pools with separate remainders.
func TestSettlementSeparateLanes(t *testing.T) {
	terms := defaultTerms()
	terms.RewardLane = domain.AssetLane("USDQ")
	terms.Reward = 1001
	terms.JudgeRewardBps = 5000 // judge cut 500, remaining 501 over 2 winners

	f := newFixture(t)
	reward := terms.RewardLane
	native := domain.NativeLane()
	f.tre.Mint(reward, requester, 5000)

	id := runToFinalized(t, f, terms, []domain.Address{agentA, agentB})
	if err := f.eng.DistributeRewards(id); err != nil {
		t.Fatalf("distribute: %v", err)
	}

	// Reward lane: 500 to the judge, 250 to each winner, remainder 1 back
	// to the requester.
	if got := f.tre.Balance(reward, judge); got != 500 {
		t.Fatalf("judge reward = %d", got)
	}
	for _, a := range []domain.Address{agentA, agentB} {
		if got := f.tre.Balance(reward, a); got != 250 {
			t.Fatalf("%s reward = %d", a, got)
		}
	}
	if got := f.tre.Balance(reward, requester); got != 5000-1001+1 {
		t.Fatalf("requester reward balance = %d", got)
	}
	// Bond lane: winners' bonds plus half the slashed bond each, judge bond
	// returned, slash remainder (none here: 1e8 splits evenly) swept.
	for _, a := range []domain.Address{agentA, agentB} {
		if got, want := f.tre.Balance(native, a), unit+agentBond/2; got != want {
			t.Fatalf("%s bond-lane balance = %d, want %d", a, got, want)
		}
	}
	if got := f.tre.Balance(native, judge); got != unit {
		t.Fatalf("judge bond-lane balance = %d", got)
	}
	if got := f.tre.CustodyBalance(reward); got != 0 {
		t.Fatalf("reward custody left over: %d", got)
	}
	if got := f.tre.CustodyBalance(native); got != 0 {
		t.Fatalf("bond custody left over: %d", got)
	}
}

// Both divisions leave a remainder here: reward 1e9+1 at 1000 bps over two
// winners, slashed bond 1e8+1 over two winners. Both sweeps go to the
// requester.
func TestSettlementRemainderSweep(t *testing.T) {
	terms := defaultTerms()
	terms.Reward = unit + 1
	terms.AgentBond = agentBond + 1

	f := newFixture(t)
	native := domain.NativeLane()
	f.tre.Mint(native, requester, 1)
	for _, a := range []domain.Address{agentA, agentB, agentC} {
		f.tre.Mint(native, a, 1)
	}

	id := runToFinalized(t, f, terms, []domain.Address{agentA, agentB})
	if err := f.eng.DistributeRewards(id); err != nil {
		t.Fatalf("distribute: %v", err)
	}

	judgeCut := (unit + 1) / 10
	remaining := terms.Reward - judgeCut
	perWinnerReward := remaining / 2
	rewardRemainder := remaining - perWinnerReward*2
	perWinnerSlash := terms.AgentBond / 2
	slashRemainder := terms.AgentBond - perWinnerSlash*2

	if rewardRemainder == 0 || slashRemainder == 0 {
		t.Fatalf("test setup must leave remainders, got %d and %d", rewardRemainder, slashRemainder)
	}
	want := 10*unit + 1 - terms.Reward + rewardRemainder + slashRemainder
	if got := f.tre.Balance(native, requester); got != want {
		t.Fatalf("requester balance = %d, want %d", got, want)
	}
	if got := f.tre.CustodyBalance(native); got != 0 {
		t.Fatalf("custody left over: %d", got)
	}
}

// A reward near the uint64 ceiling must not wrap in the judge-cut
// computation: at 10000 bps the judge is owed the entire reward, and the
// winners split only the slashed bond.
func TestSettlementLargeRewardJudgeCut(t *testing.T) {
	terms := defaultTerms()
	terms.Reward = 1 << 60
	terms.JudgeRewardBps = domain.BpsDenominator

	f := newFixture(t)
	native := domain.NativeLane()
	f.tre.Mint(native, requester, terms.Reward)

	id := runToFinalized(t, f, terms, []domain.Address{agentA, agentB})
	if err := f.eng.DistributeRewards(id); err != nil {
		t.Fatalf("distribute: %v", err)
	}

	if got, want := f.tre.Balance(native, judge), unit+terms.Reward; got != want {
		t.Fatalf("judge balance = %d, want %d", got, want)
	}
	for _, a := range []domain.Address{agentA, agentB} {
		if got, want := f.tre.Balance(native, a), unit+agentBond/2; got != want {
			t.Fatalf("%s balance = %d, want %d", a, got, want)
		}
	}
	if got := f.tre.Balance(native, requester); got != 10*unit {
		t.Fatalf("requester balance = %d, want %d", got, 10*unit)
	}
	if got := f.tre.CustodyBalance(native); got != 0 {
		t.Fatalf("custody left over: %d", got)
	}
}

// An empty winners set takes the refund path: everything comes back and the
// request parks in Failed without ever being marked distributed.
func TestSettlementNoWinnersRefund(t *testing.T) {
	terms := defaultTerms()
	f := newFixture(t)
	native := domain.NativeLane()
	id := runToFinalized(t, f, terms, nil)

	if err := f.eng.DistributeRewards(id); err != nil {
		t.Fatalf("distribute: %v", err)
	}
	v, err := f.eng.Request(id)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if v.Phase != "FAILED" || v.Distributed {
		t.Fatalf("expected undistributed FAILED, got %s distributed=%v", v.Phase, v.Distributed)
	}
	if v.FailReason != "no winners" {
		t.Fatalf("fail reason = %q", v.FailReason)
	}

	if got := f.tre.Balance(native, requester); got != 10*unit {
		t.Fatalf("requester balance = %d", got)
	}
	for _, a := range []domain.Address{agentA, agentB, agentC, judge} {
		if got := f.tre.Balance(native, a); got != unit {
			t.Fatalf("%s balance = %d", a, got)
		}
	}
	if got := f.tre.CustodyBalance(native); got != 0 {
		t.Fatalf("custody left over: %d", got)
	}
	f.wantKind(f.eng.DistributeRewards(id), domain.KindPhase)
}
