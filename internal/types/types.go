// Package types defines the core domain models for lockup. A Beneficiary is
// the (address, start, duration) tuple describing a vesting-wallet recipient,
// and a Deployment pairs one with the wallet contract created for it.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Version is the current version of lockup
const Version = "0.3.0"

// BuildTime is set at build time via -ldflags
var BuildTime = "dev"

// BeneficiaryArity is the number of fields in an encoded beneficiary tuple.
const BeneficiaryArity = 3

// Variant selects which vesting-wallet contract a ledger belongs to.
type Variant string

const (
	VariantPlain  Variant = "lockup"  // XNETLockup(beneficiary, start, duration)
	VariantEscrow Variant = "lockup2" // XNETLockup2(beneficiary, escrow, start, duration)
)

// Escrow reports whether wallets of this variant carry an escrow agent.
func (v Variant) Escrow() bool {
	return v == VariantEscrow
}

// ContractName is the hardhat artifact name deployed for the variant.
func (v Variant) ContractName() string {
	if v == VariantEscrow {
		return "XNETLockup2"
	}
	return "XNETLockup"
}

// Beneficiary is a vesting-wallet recipient. It is encoded in JSON as the
// array [address, start, duration]. Equality is exact and field-wise; the
// address is compared as a raw, case-sensitive string.
type Beneficiary struct {
	Address  string
	Start    int64 // unix seconds
	Duration int64 // seconds
}

// End returns the unix time at which the vesting schedule completes.
func (b Beneficiary) End() int64 {
	return b.Start + b.Duration
}

// StartTime returns Start as a UTC time.
func (b Beneficiary) StartTime() time.Time {
	return time.Unix(b.Start, 0).UTC()
}

// EndTime returns End as a UTC time.
func (b Beneficiary) EndTime() time.Time {
	return time.Unix(b.End(), 0).UTC()
}

// Fields returns the tuple in encoding order.
func (b Beneficiary) Fields() []string {
	return []string{b.Address, fmt.Sprint(b.Start), fmt.Sprint(b.Duration)}
}

func (b Beneficiary) String() string {
	return strings.Join(b.Fields(), ",")
}

// MarshalJSON encodes the beneficiary as a 3-element array.
func (b Beneficiary) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{b.Address, b.Start, b.Duration})
}

// UnmarshalJSON decodes a 3-element array. Any other shape yields a
// *TupleError.
func (b *Beneficiary) UnmarshalJSON(data []byte) error {
	var fields []json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return tupleError(data, "not an array")
	}
	if len(fields) != BeneficiaryArity {
		return tupleError(data, fmt.Sprintf("expected %d fields, got %d", BeneficiaryArity, len(fields)))
	}

	var out Beneficiary
	if err := json.Unmarshal(fields[0], &out.Address); err != nil {
		return tupleError(data, "address is not a string")
	}
	start, err := decodeInt(fields[1])
	if err != nil {
		return tupleError(data, "start: "+err.Error())
	}
	duration, err := decodeInt(fields[2])
	if err != nil {
		return tupleError(data, "duration: "+err.Error())
	}
	out.Start = start
	out.Duration = duration

	*b = out
	return nil
}

func decodeInt(raw json.RawMessage) (int64, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return 0, fmt.Errorf("not a number")
	}
	v, err := n.Int64()
	if err != nil {
		return 0, fmt.Errorf("not an integer: %s", n)
	}
	return v, nil
}

// TupleError reports a beneficiary entry that does not have the
// [address, start, duration] shape.
type TupleError struct {
	Index  int // position in the enclosing list, -1 when unknown
	Raw    string
	Reason string
}

func tupleError(data []byte, reason string) *TupleError {
	return &TupleError{Index: -1, Raw: string(data), Reason: reason}
}

func (e *TupleError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("beneficiary %d %s: %s", e.Index, e.Raw, e.Reason)
	}
	return fmt.Sprintf("beneficiary %s: %s", e.Raw, e.Reason)
}

// Deployment is one wallet created for a beneficiary. Agent is empty for
// the plain variant.
type Deployment struct {
	Wallet      string      `json:"wallet"`
	Agent       string      `json:"agent,omitempty"`
	Beneficiary Beneficiary `json:"beneficiary"`
}

// ReportFields returns the fields of a new-deploys report line:
// wallet, [agent,] beneficiary address, start, duration.
func (d Deployment) ReportFields() []string {
	fields := []string{d.Wallet}
	if d.Agent != "" {
		fields = append(fields, d.Agent)
	}
	return append(fields, d.Beneficiary.Fields()...)
}

// Record is a journaled deployment.
type Record struct {
	ID         string     `json:"id"`
	RunID      string     `json:"run_id"`
	Network    string     `json:"network"`
	Variant    Variant    `json:"variant"`
	Deployment Deployment `json:"deployment"`
	DeployedAt time.Time  `json:"deployed_at"`
}
