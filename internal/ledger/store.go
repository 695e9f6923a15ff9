package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"xnet.company/lockup/internal/types"
)

// ErrAbsent is returned by the loaders when the file is missing or is not
// parseable JSON. Callers start from an empty record in that case.
var ErrAbsent = errors.New("ledger file absent")

// ConsistencyError reports a ledger whose contents violate its invariants.
type ConsistencyError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ConsistencyError) Error() string {
	msg := "consistency check failed"
	if e.Path != "" {
		msg += " on " + e.Path
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConsistencyError) Unwrap() error {
	return e.Err
}

// Validator is implemented by Ledger and CandidateList.
type Validator interface {
	Validate() error
}

// Consistent reports whether v satisfies its count invariant.
func Consistent(v Validator) bool {
	return v.Validate() == nil
}

type rawFile struct {
	Count         *int              `json:"count"`
	Beneficiaries []json.RawMessage `json:"beneficiaries"`
	Wallets       []string          `json:"wallets"`
	Agents        []string          `json:"agents"`
}

// Load reads a deployed ledger. A missing or unparseable file returns an
// error wrapping ErrAbsent; a file that parses but breaks the schema or
// the count invariant returns a *ConsistencyError.
func Load(path string, variant types.Variant) (*Ledger, error) {
	raw, err := readRaw(path)
	if err != nil {
		return nil, err
	}

	bene, err := decodeBeneficiaries(raw.Beneficiaries)
	if err != nil {
		return nil, &ConsistencyError{Path: path, Err: err}
	}
	if raw.Count == nil {
		return nil, &ConsistencyError{Path: path, Reason: "count missing"}
	}

	l := &Ledger{
		Variant:       variant,
		Count:         *raw.Count,
		Beneficiaries: bene,
		Wallets:       nonNil(raw.Wallets),
		Agents:        raw.Agents,
	}
	if variant.Escrow() {
		l.Agents = nonNil(raw.Agents)
	}
	if err := l.Validate(); err != nil {
		return nil, withPath(err, path)
	}
	return l, nil
}

// LoadCandidates reads a candidate list with the same absent semantics as
// Load.
func LoadCandidates(path string) (*CandidateList, error) {
	raw, err := readRaw(path)
	if err != nil {
		return nil, err
	}

	bene, err := decodeBeneficiaries(raw.Beneficiaries)
	if err != nil {
		return nil, &ConsistencyError{Path: path, Err: err}
	}
	if raw.Count == nil {
		return nil, &ConsistencyError{Path: path, Reason: "count missing"}
	}

	c := &CandidateList{Count: *raw.Count, Beneficiaries: bene}
	if err := c.Validate(); err != nil {
		return nil, withPath(err, path)
	}
	return c, nil
}

// Save writes v as JSON followed by a newline, replacing the file.
func Save(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func readRaw(path string) (*rawFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrAbsent, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var raw rawFile
	if err := json.Unmarshal(data, &raw); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, fmt.Errorf("%w: %s: %v", ErrAbsent, path, err)
		}
		return nil, &ConsistencyError{Path: path, Err: err}
	}
	return &raw, nil
}

func decodeBeneficiaries(raw []json.RawMessage) ([]types.Beneficiary, error) {
	out := make([]types.Beneficiary, 0, len(raw))
	for i, r := range raw {
		var b types.Beneficiary
		if err := json.Unmarshal(r, &b); err != nil {
			var tupleErr *types.TupleError
			if errors.As(err, &tupleErr) {
				tupleErr.Index = i
			}
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func withPath(err error, path string) error {
	var ce *ConsistencyError
	if errors.As(err, &ce) && ce.Path == "" {
		ce.Path = path
	}
	return err
}
