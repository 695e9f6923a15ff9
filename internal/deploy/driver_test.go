package deploy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xnet.company/lockup/internal/check"
	"xnet.company/lockup/internal/config"
	"xnet.company/lockup/internal/console"
	"xnet.company/lockup/internal/ledger"
	"xnet.company/lockup/internal/types"
)

const escrowAgent = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"

type fakeDeployer struct {
	calls  []types.Beneficiary
	agents []string
	failOn map[string]error
}

func (f *fakeDeployer) DeployWallet(_ context.Context, b types.Beneficiary, agent string) (string, error) {
	f.calls = append(f.calls, b)
	f.agents = append(f.agents, agent)
	if err, ok := f.failOn[b.Address]; ok {
		return "", err
	}
	return fmt.Sprintf("0xwallet%d", len(f.calls)), nil
}

type memJournal struct {
	records []types.Record
	err     error
}

func (j *memJournal) Record(r types.Record) error {
	if j.err != nil {
		return j.err
	}
	j.records = append(j.records, r)
	return nil
}

type fixture struct {
	dir      string
	opts     Options
	deployer *fakeDeployer
	journal  *memJournal
	recorder *check.Recorder
	out      *bytes.Buffer
	driver   *Driver
}

func newFixture(t *testing.T, variant types.Variant) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		dir: dir,
		opts: Options{
			Variant:       variant,
			Network:       "localhost",
			LedgerPath:    filepath.Join(dir, "deployed.json"),
			CandidatePath: filepath.Join(dir, "beneficiaries.json"),
			ReportPath:    filepath.Join(dir, "new-deploys.txt"),
		},
		deployer: &fakeDeployer{},
		journal:  &memJournal{},
		recorder: check.NewRecorder(0, nil),
		out:      &bytes.Buffer{},
	}
	if variant.Escrow() {
		f.opts.EscrowAgent = escrowAgent
	}
	f.driver = &Driver{
		Deployer: f.deployer,
		Journal:  f.journal,
		Printer:  console.NewPrinter(f.out, false),
		Recorder: f.recorder,
	}
	return f
}

func (f *fixture) write(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func (f *fixture) run(t *testing.T) (*Result, error) {
	t.Helper()
	return f.driver.Run(context.Background(), f.opts)
}

func (f *fixture) loadLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	l, err := ledger.Load(f.opts.LedgerPath, f.opts.Variant)
	require.NoError(t, err)
	return l
}

func (f *fixture) report(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(f.opts.ReportPath)
	require.NoError(t, err)
	return string(data)
}

func TestRunDeploysIntoEmptyLedger(t *testing.T) {
	f := newFixture(t, types.VariantPlain)
	f.write(t, f.opts.CandidatePath, `{"count":1,"beneficiaries":[["0xabc",1000,500]]}`)

	res, err := f.run(t)
	require.NoError(t, err)
	assert.True(t, res.Persisted)

	l := f.loadLedger(t)
	assert.Equal(t, 1, l.Count)
	assert.Equal(t, []string{"0xwallet1"}, l.Wallets)
	assert.Empty(t, l.Agents)
	assert.Equal(t, "0xwallet1 0xabc 1000 500\n", f.report(t))

	_, pass, fail := f.recorder.Counts()
	assert.Equal(t, 2, pass)
	assert.Zero(t, fail)
	assert.Contains(t, f.out.String(), "==> empty previously deployed list, making new")
	assert.Contains(t, f.out.String(), "==> ==> created new wallet at 0xwallet1")
}

func TestRunSkipsDuplicates(t *testing.T) {
	f := newFixture(t, types.VariantPlain)
	f.write(t, f.opts.LedgerPath, `{"count":1,"beneficiaries":[["0xabc",1000,500]],"wallets":["0xold"]}`)
	f.write(t, f.opts.CandidatePath, `{"count":2,"beneficiaries":[["0xabc",1000,500],["0xdef",2000,600]]}`)

	res, err := f.run(t)
	require.NoError(t, err)

	require.Len(t, f.deployer.calls, 1)
	assert.Equal(t, types.Beneficiary{Address: "0xdef", Start: 2000, Duration: 600}, f.deployer.calls[0])
	assert.Equal(t, []types.Beneficiary{{Address: "0xabc", Start: 1000, Duration: 500}}, res.Duplicates)

	l := f.loadLedger(t)
	assert.Equal(t, 2, l.Count)
	assert.Equal(t, []string{"0xold", "0xwallet1"}, l.Wallets)
	assert.Equal(t, "0xwallet1 0xdef 2000 600\n", f.report(t))
	assert.Contains(t, f.out.String(), "    * dup beneficiary 0xabc : 1970-01-01T00:16:40.000Z -- 1970-01-01T00:25:00.000Z")
	assert.Contains(t, f.out.String(), "0xabc : 1970-01-01T00:16:40.000Z -- 1970-01-01T00:25:00.000Z <--> 0xold")
}

func TestRunSkipsRepeatsWithinCandidateList(t *testing.T) {
	f := newFixture(t, types.VariantPlain)
	f.write(t, f.opts.CandidatePath, `{"count":2,"beneficiaries":[["0xabc",1000,500],["0xabc",1000,500]]}`)

	_, err := f.run(t)
	require.NoError(t, err)
	assert.Len(t, f.deployer.calls, 1)
	assert.Equal(t, 1, f.loadLedger(t).Count)
}

func TestRunIsIdempotent(t *testing.T) {
	f := newFixture(t, types.VariantEscrow)
	f.write(t, f.opts.CandidatePath, `{"count":2,"beneficiaries":[["0xabc",1000,500],["0xdef",2000,600]]}`)

	_, err := f.run(t)
	require.NoError(t, err)
	first := f.loadLedger(t)

	res, err := f.run(t)
	require.NoError(t, err)
	assert.Empty(t, res.Deployed)
	assert.Len(t, res.Duplicates, 2)
	assert.Len(t, f.deployer.calls, 2)

	if diff := cmp.Diff(first, f.loadLedger(t)); diff != "" {
		t.Errorf("ledger changed on second run (-first +second):\n%s", diff)
	}
	assert.Empty(t, f.report(t))
}

func TestRunMissingCandidateFile(t *testing.T) {
	f := newFixture(t, types.VariantPlain)

	_, err := f.run(t)
	var ce *config.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, f.opts.CandidatePath, ce.Key)

	assert.NoFileExists(t, f.opts.LedgerPath)
	assert.NoFileExists(t, f.opts.ReportPath)
	assert.Empty(t, f.deployer.calls)
}

func TestRunCountMismatchStopsBeforeDeploying(t *testing.T) {
	f := newFixture(t, types.VariantPlain)
	ledgerBody := `{"count":2,"beneficiaries":[["0xabc",1000,500]],"wallets":["0xold"]}`
	f.write(t, f.opts.LedgerPath, ledgerBody)
	f.write(t, f.opts.CandidatePath, `{"count":1,"beneficiaries":[["0xdef",2000,600]]}`)

	_, err := f.run(t)
	var ce *ledger.ConsistencyError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, f.opts.LedgerPath, ce.Path)

	assert.Empty(t, f.deployer.calls)
	assert.True(t, f.recorder.Failed())
	data, readErr := os.ReadFile(f.opts.LedgerPath)
	require.NoError(t, readErr)
	assert.Equal(t, ledgerBody, string(data))
}

func TestRunCandidateCountMismatch(t *testing.T) {
	f := newFixture(t, types.VariantPlain)
	f.write(t, f.opts.CandidatePath, `{"count":3,"beneficiaries":[["0xdef",2000,600]]}`)

	_, err := f.run(t)
	var ce *ledger.ConsistencyError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, f.opts.CandidatePath, ce.Path)
	assert.Empty(t, f.deployer.calls)
	assert.NoFileExists(t, f.opts.LedgerPath)
}

func TestRunMalformedTupleIsConsistencyError(t *testing.T) {
	f := newFixture(t, types.VariantPlain)
	f.write(t, f.opts.CandidatePath, `{"count":1,"beneficiaries":[["0xdef",2000]]}`)

	_, err := f.run(t)
	var tupleErr *types.TupleError
	require.ErrorAs(t, err, &tupleErr)
	assert.Equal(t, 0, tupleErr.Index)
	assert.Empty(t, f.deployer.calls)
}

func TestRunEmptyCandidateListWritesNothing(t *testing.T) {
	f := newFixture(t, types.VariantPlain)
	f.write(t, f.opts.CandidatePath, `{"count":0,"beneficiaries":[]}`)

	res, err := f.run(t)
	require.NoError(t, err)
	assert.False(t, res.Persisted)
	assert.NoFileExists(t, f.opts.LedgerPath)
	assert.NoFileExists(t, f.opts.ReportPath)
}

func TestRunDeploymentFailurePersistsNothing(t *testing.T) {
	f := newFixture(t, types.VariantPlain)
	f.write(t, f.opts.CandidatePath, `{"count":3,"beneficiaries":[["0xa",1,1],["0xb",2,2],["0xc",3,3]]}`)
	boom := errors.New("replacement transaction underpriced")
	f.deployer.failOn = map[string]error{"0xb": boom}

	res, err := f.run(t)
	var de *DeploymentError
	require.ErrorAs(t, err, &de)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "0xb", de.Beneficiary.Address)

	assert.Len(t, f.deployer.calls, 2)
	assert.False(t, res.Persisted)
	assert.Len(t, res.Deployed, 1)
	assert.NoFileExists(t, f.opts.LedgerPath)
	assert.Len(t, f.journal.records, 1)
}

func TestRunCheckpointKeepsEarlierDeployments(t *testing.T) {
	f := newFixture(t, types.VariantEscrow)
	f.opts.Checkpoint = true
	f.write(t, f.opts.CandidatePath, `{"count":3,"beneficiaries":[["0xa",1,1],["0xb",2,2],["0xc",3,3]]}`)
	f.deployer.failOn = map[string]error{"0xb": errors.New("nonce too low")}

	res, err := f.run(t)
	require.Error(t, err)
	assert.True(t, res.Persisted)

	l := f.loadLedger(t)
	assert.Equal(t, 1, l.Count)
	assert.Equal(t, []string{escrowAgent}, l.Agents)
	assert.Equal(t, "0xwallet1 "+escrowAgent+" 0xa 1 1\n", f.report(t))
}

func TestRunEscrowRequiresAgent(t *testing.T) {
	f := newFixture(t, types.VariantEscrow)
	f.opts.EscrowAgent = ""
	f.write(t, f.opts.CandidatePath, `{"count":1,"beneficiaries":[["0xa",1,1]]}`)

	_, err := f.run(t)
	var ce *config.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "ESCROWADDR", ce.Key)
	assert.Empty(t, f.deployer.calls)
}

func TestRunEscrowJournalsEachDeployment(t *testing.T) {
	f := newFixture(t, types.VariantEscrow)
	f.write(t, f.opts.CandidatePath, `{"count":2,"beneficiaries":[["0xa",1,1],["0xb",2,2]]}`)

	res, err := f.run(t)
	require.NoError(t, err)

	assert.Equal(t, []string{escrowAgent, escrowAgent}, f.deployer.agents)
	require.Len(t, f.journal.records, 2)
	for i, r := range f.journal.records {
		assert.Equal(t, res.RunID, r.RunID)
		assert.Equal(t, "localhost", r.Network)
		assert.Equal(t, types.VariantEscrow, r.Variant)
		assert.Equal(t, res.Deployed[i], r.Deployment)
		assert.NotEmpty(t, r.ID)
	}
	assert.NotEqual(t, f.journal.records[0].ID, f.journal.records[1].ID)

	l := f.loadLedger(t)
	assert.Equal(t, 2, l.Count)
	assert.Len(t, l.Agents, 2)
	assert.Equal(t, "0xwallet1 "+escrowAgent+" 0xa 1 1\n0xwallet2 "+escrowAgent+" 0xb 2 2\n", f.report(t))
}

func TestRunJournalFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, types.VariantPlain)
	f.journal.err = errors.New("database is locked")
	f.write(t, f.opts.CandidatePath, `{"count":1,"beneficiaries":[["0xa",1,1]]}`)

	_, err := f.run(t)
	require.NoError(t, err)
	assert.Equal(t, 1, f.loadLedger(t).Count)
}

func TestFormatReport(t *testing.T) {
	got := FormatReport([]types.Deployment{
		{Wallet: "0xw", Beneficiary: types.Beneficiary{Address: "0xb", Start: 5, Duration: 6}},
		{Wallet: "0xv", Agent: "0xe", Beneficiary: types.Beneficiary{Address: "0xc", Start: 7, Duration: 8}},
	})
	assert.Equal(t, "0xw 0xb 5 6\n0xv 0xe 0xc 7 8\n", string(got))
	assert.Empty(t, FormatReport(nil))
}
