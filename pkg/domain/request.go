package domain

import "time"

// Address identifies a participant (requester, agent, judge). The engine
// treats it as opaque; services put account ids or chain addresses here.
type Address string

const BpsDenominator = 10000

// Terms are the static parameters of a request. They are fixed at creation
// and never mutated afterwards.
type Terms struct {
	Requester    Address `json:"requester"`
	Query        string  `json:"query"`
	Spec         string  `json:"spec,omitempty"`
	Capabilities string  `json:"capabilities,omitempty"`

	Reward     uint64 `json:"reward"`
	RewardLane Lane   `json:"reward_lane"`

	AgentBond uint64 `json:"agent_bond"`
	JudgeBond uint64 `json:"judge_bond"`
	BondLane  Lane   `json:"bond_lane"`

	// Slots is the number of agent commit slots, first-come-first-served.
	Slots int `json:"slots"`

	CommitDeadline      time.Time     `json:"commit_deadline"`
	RevealWindow        time.Duration `json:"reveal_window"`
	JudgeSignupDeadline time.Time     `json:"judge_signup_deadline"`
	JudgeWindow         time.Duration `json:"judge_window"`

	// JudgeRewardBps is the judge's cut of the reward in parts per ten
	// thousand, 0..10000 inclusive.
	JudgeRewardBps uint32 `json:"judge_reward_bps"`
}

type Commit struct {
	Agent      Address `json:"agent"`
	Commitment string  `json:"commitment"`
}

type Reveal struct {
	Agent  Address `json:"agent"`
	Answer []byte  `json:"answer"`
	Nonce  string  `json:"nonce"`
}

// Request is the durable per-request record the lifecycle automaton operates
// on. It is created once and mutated only under the engine's per-request
// lock; it is never deleted.
type Request struct {
	ID    uint64
	Terms Terms

	// RevealDeadline is CommitDeadline + RevealWindow, fixed at creation.
	RevealDeadline time.Time
	// JudgeDeadline is selection time + JudgeWindow, fixed at judge selection.
	JudgeDeadline time.Time

	Phase Phase

	// Commits is ordered by arrival, capacity Terms.Slots, one slot per
	// distinct agent. CommitIndex is the reverse lookup.
	Commits     []Commit
	CommitIndex map[Address]int

	Reveals map[Address]Reveal

	Judge           Address
	JudgeBondPosted bool
	JudgeBondHeld   uint64

	FinalAnswer []byte
	Reasoning   string
	Finalized   bool
	Distributed bool
	FailReason  string

	Winners map[Address]bool

	// BondHeld tracks each agent's bond still escrowed for this request;
	// entries are zeroed as bonds are pushed back out.
	BondHeld map[Address]uint64
}

func (r *Request) Committed(a Address) bool {
	_, ok := r.CommitIndex[a]
	return ok
}

func (r *Request) Revealed(a Address) bool {
	_, ok := r.Reveals[a]
	return ok
}

// RevealedInCommitOrder returns the revealed agents in commit-slot order,
// giving every payout loop a deterministic iteration order.
func (r *Request) RevealedInCommitOrder() []Address {
	out := make([]Address, 0, len(r.Reveals))
	for _, c := range r.Commits {
		if r.Revealed(c.Agent) {
			out = append(out, c.Agent)
		}
	}
	return out
}

// View is the read-only snapshot of a request handed to accessors, the
// archive store, and the HTTP layer.
type View struct {
	ID             uint64    `json:"id"`
	Terms          Terms     `json:"terms"`
	Phase          string    `json:"phase"`
	RevealDeadline time.Time `json:"reveal_deadline"`
	JudgeDeadline  time.Time `json:"judge_deadline,omitempty"`
	NumCommits     int       `json:"num_commits"`
	NumReveals     int       `json:"num_reveals"`
	Judge          Address   `json:"judge,omitempty"`
	JudgeBondHeld  uint64    `json:"judge_bond_held"`
	FinalAnswer    []byte    `json:"final_answer,omitempty"`
	Reasoning      string    `json:"reasoning,omitempty"`
	Finalized      bool      `json:"finalized"`
	Distributed    bool      `json:"distributed"`
	FailReason     string    `json:"fail_reason,omitempty"`
	Winners        []Address `json:"winners,omitempty"`
}

func (r *Request) Snapshot() View {
	v := View{
		ID:             r.ID,
		Terms:          r.Terms,
		Phase:          r.Phase.String(),
		RevealDeadline: r.RevealDeadline,
		JudgeDeadline:  r.JudgeDeadline,
		NumCommits:     len(r.Commits),
		NumReveals:     len(r.Reveals),
		Judge:          r.Judge,
		JudgeBondHeld:  r.JudgeBondHeld,
		FinalAnswer:    append([]byte(nil), r.FinalAnswer...),
		Reasoning:      r.Reasoning,
		Finalized:      r.Finalized,
		Distributed:    r.Distributed,
		FailReason:     r.FailReason,
	}
	for _, c := range r.Commits {
		if r.Winners[c.Agent] {
			v.Winners = append(v.Winners, c.Agent)
		}
	}
	return v
}
