// Package types tests exercise the beneficiary tuple encoding shared by the
// ledger files and the deployment report.
package types

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestBeneficiaryTupleRoundTrip(t *testing.T) {
	b := Beneficiary{Address: "0xAbC0000000000000000000000000000000000001", Start: 1000, Duration: 500}

	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("Failed to marshal beneficiary: %v", err)
	}
	if string(data) != `["0xAbC0000000000000000000000000000000000001",1000,500]` {
		t.Fatalf("unexpected encoding %s", data)
	}

	var got Beneficiary
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Failed to unmarshal beneficiary: %v", err)
	}
	if got != b {
		t.Errorf("Beneficiary mismatch. Got %+v, want %+v", got, b)
	}
	if got.End() != 1500 {
		t.Errorf("End() = %d, want 1500", got.End())
	}
}

func TestBeneficiaryRejectsMalformedTuples(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
	}{
		{name: "short", raw: `["0xabc",1000]`},
		{name: "long", raw: `["0xabc",1000,500,7]`},
		{name: "object", raw: `{"address":"0xabc"}`},
		{name: "numeric address", raw: `[12,1000,500]`},
		{name: "fractional start", raw: `["0xabc",10.5,500]`},
		{name: "string duration", raw: `["0xabc",1000,"500"]`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var b Beneficiary
			err := json.Unmarshal([]byte(tc.raw), &b)
			var tupleErr *TupleError
			if !errors.As(err, &tupleErr) {
				t.Fatalf("expected *TupleError, got %v", err)
			}
			if tupleErr.Index != -1 {
				t.Errorf("expected unknown index, got %d", tupleErr.Index)
			}
		})
	}
}

func TestDeploymentReportFields(t *testing.T) {
	b := Beneficiary{Address: "0xbene", Start: 1000, Duration: 500}

	plain := Deployment{Wallet: "0xwallet", Beneficiary: b}
	if got := len(plain.ReportFields()); got != 4 {
		t.Errorf("plain report fields = %d, want 4", got)
	}

	escrow := Deployment{Wallet: "0xwallet", Agent: "0xagent", Beneficiary: b}
	fields := escrow.ReportFields()
	if len(fields) != 5 || fields[1] != "0xagent" || fields[2] != "0xbene" {
		t.Errorf("unexpected escrow report fields %v", fields)
	}
}
