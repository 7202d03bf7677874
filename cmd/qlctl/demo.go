package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"querylane/pkg/commitment"
	"querylane/pkg/domain"
	"querylane/pkg/lifecycle"
	"querylane/pkg/treasury"
)

// The demo walks the commit/reveal majority scenario end to end: three
// agents stake bonds, two answer "4" and one answers "5", a judge aggregates
// for the majority, and settlement pays the winners and slashes the loser.
func newDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run a full request lifecycle against an in-process engine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			const unit = 1_000_000_000 // base units per display unit
			var (
				requester = domain.Address("acct_requester")
				agentA    = domain.Address("acct_agent_a")
				agentB    = domain.Address("acct_agent_b")
				agentC    = domain.Address("acct_agent_c")
				judge     = domain.Address("acct_judge")
			)

			tre := treasury.New()
			native := domain.NativeLane()
			tre.Mint(native, requester, 2*unit)
			for _, a := range []domain.Address{agentA, agentB, agentC, judge} {
				tre.Mint(native, a, unit)
			}

			eng := lifecycle.New(tre)
			now := time.Now()
			terms := domain.Terms{
				Query:               "What is 2+2?",
				Spec:                "answer with a single integer",
				Reward:              unit,
				RewardLane:          native,
				AgentBond:           unit / 10,
				JudgeBond:           unit / 5,
				BondLane:            native,
				Slots:               3,
				CommitDeadline:      now.Add(time.Hour),
				RevealWindow:        time.Hour,
				JudgeSignupDeadline: now.Add(3 * time.Hour),
				JudgeWindow:         time.Hour,
				JudgeRewardBps:      1000,
			}
			id, err := eng.Create(requester, terms, terms.Reward)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "created request %d: %q\n", id, terms.Query)

			answers := map[domain.Address]string{agentA: "4", agentB: "4", agentC: "5"}
			nonces := map[domain.Address]string{}
			for _, a := range []domain.Address{agentA, agentB, agentC} {
				nonces[a] = commitment.NewNonce()
				hash := commitment.Hash([]byte(answers[a]), nonces[a])
				if err := eng.Commit(id, a, hash, terms.AgentBond); err != nil {
					return err
				}
				fmt.Fprintf(out, "%s committed %s\n", a, hash[:12])
			}
			for _, a := range []domain.Address{agentA, agentB, agentC} {
				if err := eng.Reveal(id, a, []byte(answers[a]), nonces[a]); err != nil {
					return err
				}
				fmt.Fprintf(out, "%s revealed %q\n", a, answers[a])
			}

			if err := eng.RegisterJudge(id, judge); err != nil {
				return err
			}
			if err := eng.SelectJudge(id, []byte("recent-block-hash")); err != nil {
				return err
			}
			if err := eng.PostJudgeBond(id, judge, terms.JudgeBond); err != nil {
				return err
			}
			if err := eng.Aggregate(id, judge, []domain.Address{agentA, agentB}, []byte("4"), "two of three agents agree"); err != nil {
				return err
			}
			if err := eng.DistributeRewards(id); err != nil {
				return err
			}

			v, err := eng.Request(id)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "request %d %s, final answer %q\n", id, v.Phase, v.FinalAnswer)
			for _, a := range []domain.Address{requester, agentA, agentB, agentC, judge} {
				fmt.Fprintf(out, "%-16s balance %d.%09d\n", a, tre.Balance(native, a)/unit, tre.Balance(native, a)%unit)
			}
			fmt.Fprintf(out, "custody remaining: %d\n", tre.CustodyBalance(native))
			return nil
		},
	}
}
