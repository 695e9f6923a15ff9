// Package ledger is the record store for beneficiary ledgers. A Ledger is
// the persisted record of every beneficiary that has a deployed vesting
// wallet, with wallets (and, for escrow wallets, agents) index-aligned with
// the beneficiaries. A CandidateList is the same shape without wallets and
// holds beneficiaries that still need to be merged or deployed.
package ledger

import (
	"encoding/json"
	"fmt"

	"xnet.company/lockup/internal/types"
)

// Ledger holds deployed beneficiaries in deployment order.
type Ledger struct {
	Variant       types.Variant
	Count         int
	Beneficiaries []types.Beneficiary
	Wallets       []string
	Agents        []string
}

// New returns an empty ledger for the variant.
func New(variant types.Variant) *Ledger {
	l := &Ledger{
		Variant:       variant,
		Beneficiaries: []types.Beneficiary{},
		Wallets:       []string{},
	}
	if variant.Escrow() {
		l.Agents = []string{}
	}
	return l
}

// Validate checks that count matches every parallel list.
func (l *Ledger) Validate() error {
	if l.Count != len(l.Beneficiaries) {
		return &ConsistencyError{Reason: fmt.Sprintf("count %d but %d beneficiaries", l.Count, len(l.Beneficiaries))}
	}
	if l.Count != len(l.Wallets) {
		return &ConsistencyError{Reason: fmt.Sprintf("count %d but %d wallets", l.Count, len(l.Wallets))}
	}
	if !l.Variant.Escrow() {
		if len(l.Agents) > 0 {
			return &ConsistencyError{Reason: fmt.Sprintf("%d agents in a %s ledger", len(l.Agents), l.Variant.ContractName())}
		}
		return nil
	}
	if l.Count != len(l.Agents) {
		return &ConsistencyError{Reason: fmt.Sprintf("count %d but %d agents", l.Count, len(l.Agents))}
	}
	return nil
}

// Append records a completed deployment. The beneficiary, wallet and agent
// are appended together so the lists stay index-aligned.
func (l *Ledger) Append(d types.Deployment) {
	l.Beneficiaries = append(l.Beneficiaries, d.Beneficiary)
	l.Wallets = append(l.Wallets, d.Wallet)
	if l.Variant.Escrow() {
		l.Agents = append(l.Agents, d.Agent)
	}
	l.Count = len(l.Wallets)
}

// Entries returns the ledger as deployments. The ledger must be valid.
func (l *Ledger) Entries() []types.Deployment {
	out := make([]types.Deployment, 0, l.Count)
	for i := 0; i < l.Count; i++ {
		d := types.Deployment{Wallet: l.Wallets[i], Beneficiary: l.Beneficiaries[i]}
		if i < len(l.Agents) {
			d.Agent = l.Agents[i]
		}
		out = append(out, d)
	}
	return out
}

// Contains reports whether b is already recorded.
func (l *Ledger) Contains(b types.Beneficiary) bool {
	return Contains(l.Beneficiaries, b)
}

type plainFile struct {
	Count         int                 `json:"count"`
	Beneficiaries []types.Beneficiary `json:"beneficiaries"`
	Wallets       []string            `json:"wallets"`
}

type escrowFile struct {
	Count         int                 `json:"count"`
	Beneficiaries []types.Beneficiary `json:"beneficiaries"`
	Agents        []string            `json:"agents"`
	Wallets       []string            `json:"wallets"`
}

// MarshalJSON writes the on-disk shape. Escrow ledgers always carry an
// agents list, plain ones never do.
func (l *Ledger) MarshalJSON() ([]byte, error) {
	bene := nonNil(l.Beneficiaries)
	wallets := nonNil(l.Wallets)
	if l.Variant.Escrow() {
		return json.Marshal(escrowFile{
			Count:         l.Count,
			Beneficiaries: bene,
			Agents:        nonNil(l.Agents),
			Wallets:       wallets,
		})
	}
	return json.Marshal(plainFile{Count: l.Count, Beneficiaries: bene, Wallets: wallets})
}

// CandidateList is a ledger-shaped list of beneficiaries without wallets.
type CandidateList struct {
	Count         int                 `json:"count"`
	Beneficiaries []types.Beneficiary `json:"beneficiaries"`
}

// NewCandidateList returns an empty list.
func NewCandidateList() *CandidateList {
	return &CandidateList{Beneficiaries: []types.Beneficiary{}}
}

// Validate checks that count matches the beneficiary list.
func (c *CandidateList) Validate() error {
	if c.Count != len(c.Beneficiaries) {
		return &ConsistencyError{Reason: fmt.Sprintf("count %d but %d beneficiaries", c.Count, len(c.Beneficiaries))}
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
