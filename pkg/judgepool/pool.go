// Package judgepool holds the per-request registry of candidate judges: a
// dense slice with a reverse index, giving O(1) membership, insertion, and
// swap-remove. Insertion order is not preserved across removals; only
// membership and enumeration-for-sampling are meaningful.
package judgepool

import "querylane/pkg/domain"

type Pool struct {
	members []domain.Address
	index   map[domain.Address]int
}

func New() *Pool {
	return &Pool{index: make(map[domain.Address]int)}
}

func (p *Pool) Len() int { return len(p.members) }

func (p *Pool) Contains(a domain.Address) bool {
	_, ok := p.index[a]
	return ok
}

// Add registers a. Returns false if a is already a member.
func (p *Pool) Add(a domain.Address) bool {
	if p.Contains(a) {
		return false
	}
	p.index[a] = len(p.members)
	p.members = append(p.members, a)
	return true
}

// Remove unregisters a by moving the last member into its slot. Returns
// false if a was not a member.
func (p *Pool) Remove(a domain.Address) bool {
	i, ok := p.index[a]
	if !ok {
		return false
	}
	last := len(p.members) - 1
	moved := p.members[last]
	p.members[i] = moved
	p.index[moved] = i
	p.members = p.members[:last]
	delete(p.index, a)
	return true
}

func (p *Pool) At(i int) domain.Address { return p.members[i] }

// Members returns a copy of the current membership.
func (p *Pool) Members() []domain.Address {
	return append([]domain.Address(nil), p.members...)
}
