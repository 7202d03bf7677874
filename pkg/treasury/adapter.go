// Package treasury abstracts value custody for the lifecycle engine. The
// engine only ever pulls funds into custody and pushes them back out; which
// asset moves, and how, is the adapter's business.
package treasury

import (
	"fmt"

	"querylane/pkg/domain"
)

// Leg names which payout/escrow leg a transfer belongs to, so a failure is
// attributable to the exact payee and asset that failed.
type Leg string

const (
	LegReward    Leg = "reward"
	LegAgentBond Leg = "agent_bond"
	LegJudgeBond Leg = "judge_bond"
)

type TransferError struct {
	Leg    Leg
	Op     string // "pull" or "push"
	Lane   domain.Lane
	Party  domain.Address
	Amount uint64
	Err    error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s %s leg failed (%s, party=%s, amount=%d): %v",
		e.Op, e.Leg, e.Lane, e.Party, e.Amount, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// Adapter is the custody capability the engine consumes.
//
// Pull moves amount of the lane's asset from payer into custody. Push moves
// amount out of custody to payee; a zero amount is a trivial success for
// both directions.
type Adapter interface {
	Pull(lane domain.Lane, payer domain.Address, amount uint64) error
	Push(lane domain.Lane, payee domain.Address, amount uint64) error
}
