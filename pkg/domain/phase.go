package domain

// Phase is the lifecycle position of a request. A request only ever moves
// forward through the graph; Failed and Distributed are terminal.
type Phase uint8

const (
	PhaseNone Phase = iota
	PhaseCommit
	PhaseReveal
	PhaseAwaitingJudge
	PhaseJudging
	PhaseFinalized
	PhaseDistributed
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseNone:
		return "NONE"
	case PhaseCommit:
		return "COMMIT"
	case PhaseReveal:
		return "REVEAL"
	case PhaseAwaitingJudge:
		return "AWAITING_JUDGE"
	case PhaseJudging:
		return "JUDGING"
	case PhaseFinalized:
		return "FINALIZED"
	case PhaseDistributed:
		return "DISTRIBUTED"
	case PhaseFailed:
		return "FAILED"
	}
	return "UNKNOWN"
}

// Terminal reports whether no further transition can leave p.
func (p Phase) Terminal() bool {
	return p == PhaseDistributed || p == PhaseFailed
}
