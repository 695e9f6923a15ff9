// Package deploy drives vesting-wallet deployment: it reconciles a candidate
// list against the ledger of already deployed beneficiaries, deploys a wallet
// for each new beneficiary in input order, and persists the ledger and the
// new-deploys report.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"xnet.company/lockup/internal/check"
	"xnet.company/lockup/internal/config"
	"xnet.company/lockup/internal/console"
	"xnet.company/lockup/internal/ledger"
	"xnet.company/lockup/internal/types"
)

// Deployer creates one vesting wallet and returns its address.
type Deployer interface {
	DeployWallet(ctx context.Context, b types.Beneficiary, agent string) (string, error)
}

// Journal keeps an audit record of each deployment.
type Journal interface {
	Record(r types.Record) error
}

// DeploymentError is a failed wallet deployment. It aborts the run.
type DeploymentError struct {
	Beneficiary types.Beneficiary
	Err         error
}

func (e *DeploymentError) Error() string {
	return fmt.Sprintf("deploy wallet for %s: %v", e.Beneficiary, e.Err)
}

func (e *DeploymentError) Unwrap() error {
	return e.Err
}

// Options select the files and variant for one run.
type Options struct {
	Variant       types.Variant
	Network       string
	EscrowAgent   string
	LedgerPath    string
	CandidatePath string
	ReportPath    string
	// Checkpoint saves the ledger and report after every deployment
	// instead of once at the end of the run.
	Checkpoint bool
}

// Result describes a finished (or aborted) run.
type Result struct {
	RunID      string
	Ledger     *ledger.Ledger
	Deployed   []types.Deployment
	Duplicates []types.Beneficiary
	Persisted  bool
}

// Driver runs deployments. Deployer is required; the other fields fall
// back to silent defaults.
type Driver struct {
	Deployer Deployer
	Journal  Journal
	Printer  *console.Printer
	Recorder *check.Recorder
	Logger   *zap.Logger
}

func (d *Driver) defaults() {
	if d.Printer == nil {
		d.Printer = console.Discard()
	}
	if d.Recorder == nil {
		d.Recorder = check.NewRecorder(0, nil)
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
}

// Run deploys a wallet for every candidate not already in the ledger.
//
// Configuration and consistency problems are reported before any
// deployment. A deployment failure stops the run with a *DeploymentError;
// unless opts.Checkpoint is set, nothing from the run is saved then.
func (d *Driver) Run(ctx context.Context, opts Options) (*Result, error) {
	d.defaults()
	p := d.Printer

	if d.Deployer == nil {
		return nil, errors.New("deploy: no deployer configured")
	}
	agent := ""
	if opts.Variant.Escrow() {
		if opts.EscrowAgent == "" {
			return nil, &config.Error{Key: "ESCROWADDR", Reason: "not set"}
		}
		agent = opts.EscrowAgent
	}

	p.Banner(fmt.Sprintf("Deploying %s.sol wallets", opts.Variant.ContractName()))

	p.Println("reading list of previously deployed beneficiaries: " + opts.LedgerPath)
	deployed, ledgerErr := ledger.Load(opts.LedgerPath, opts.Variant)
	if errors.Is(ledgerErr, ledger.ErrAbsent) {
		p.Println("==> empty previously deployed list, making new")
		deployed, ledgerErr = ledger.New(opts.Variant), nil
	}
	if err := d.checkConsistency(opts.LedgerPath, ledgerErr); err != nil {
		return nil, err
	}

	p.Println("reading list of new beneficiaries: " + opts.CandidatePath)
	candidates, candErr := ledger.LoadCandidates(opts.CandidatePath)
	if errors.Is(candErr, ledger.ErrAbsent) {
		p.Println(p.Amber("beneficiary record file "+opts.CandidatePath+" not found") + ": nothing to do, exiting")
		return nil, &config.Error{Key: opts.CandidatePath, Reason: "candidate list not found, nothing to do", Err: candErr}
	}
	if err := d.checkConsistency(opts.CandidatePath, candErr); err != nil {
		return nil, err
	}

	if ledgerErr != nil {
		return nil, ledgerErr
	}
	if candErr != nil {
		return nil, candErr
	}

	if deployed.Count > 0 {
		p.Println("==> list of existing beneficiaries and wallet addresses")
		for _, e := range deployed.Entries() {
			p.Println(p.FormatBeneficiary(e.Beneficiary) + " <--> " + p.ColorAddress(e.Wallet, false))
		}
	}

	res := &Result{RunID: uuid.NewString(), Ledger: deployed}
	logger := d.Logger.With(
		zap.String("run_id", res.RunID),
		zap.String("network", opts.Network),
		zap.String("variant", string(opts.Variant)),
	)

	if candidates.Count == 0 {
		p.Println("==> no new beneficiaries")
		return res, nil
	}

	for _, b := range candidates.Beneficiaries {
		if deployed.Contains(b) {
			p.Println("    * dup beneficiary " + p.FormatBeneficiary(b))
			res.Duplicates = append(res.Duplicates, b)
			continue
		}

		p.Println("==> making wallet for " + p.FormatBeneficiary(b))
		start := time.Now()
		wallet, err := d.Deployer.DeployWallet(ctx, b, agent)
		if err != nil {
			logger.Error("wallet deployment failed", zap.String("beneficiary", b.Address), zap.Error(err))
			return res, &DeploymentError{Beneficiary: b, Err: err}
		}
		p.Println("==> ==> created new wallet at " + p.ColorAddress(wallet, false))
		logger.Info("wallet deployed",
			zap.String("beneficiary", b.Address),
			zap.String("wallet", wallet),
			zap.Duration("took", time.Since(start)),
		)

		dep := types.Deployment{Wallet: wallet, Agent: agent, Beneficiary: b}
		deployed.Append(dep)
		res.Deployed = append(res.Deployed, dep)
		d.journal(logger, res.RunID, opts, dep)

		if opts.Checkpoint {
			if err := persist(opts, deployed, res.Deployed); err != nil {
				return res, err
			}
			res.Persisted = true
		}
	}

	p.Println("Updated deployed beneficiaries: ")
	if err := persist(opts, deployed, res.Deployed); err != nil {
		return res, err
	}
	res.Persisted = true
	p.Println("done")
	return res, nil
}

// checkConsistency records the consistency assertion for path. Errors
// other than invariant violations are returned as-is.
func (d *Driver) checkConsistency(path string, err error) error {
	var ce *ledger.ConsistencyError
	if err != nil && !errors.As(err, &ce) {
		return err
	}
	if !d.Recorder.Assert(err == nil, "consistency check on "+path, "") {
		d.Printer.Println(d.Printer.Red(err.Error()))
	}
	return nil
}

func (d *Driver) journal(logger *zap.Logger, runID string, opts Options, dep types.Deployment) {
	if d.Journal == nil {
		return
	}
	err := d.Journal.Record(types.Record{
		ID:         uuid.NewString(),
		RunID:      runID,
		Network:    opts.Network,
		Variant:    opts.Variant,
		Deployment: dep,
		DeployedAt: time.Now().UTC(),
	})
	if err != nil {
		logger.Warn("failed to journal deployment", zap.String("wallet", dep.Wallet), zap.Error(err))
	}
}

func persist(opts Options, l *ledger.Ledger, deployed []types.Deployment) error {
	if err := ledger.Save(opts.LedgerPath, l); err != nil {
		return err
	}
	if opts.ReportPath == "" {
		return nil
	}
	return WriteReport(opts.ReportPath, deployed)
}
