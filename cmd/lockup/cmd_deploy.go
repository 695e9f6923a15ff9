package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"xnet.company/lockup/internal/chain"
	"xnet.company/lockup/internal/check"
	"xnet.company/lockup/internal/deploy"
	"xnet.company/lockup/internal/history"
	"xnet.company/lockup/internal/identity"
	"xnet.company/lockup/internal/types"
)

const tokenContract = "XNET"

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy XNETLockup wallets for new beneficiaries",
	Long: `Deploys one XNETLockup wallet for every beneficiary in
lockup-beneficiaries.<network>.json that is not yet in
lockup-deployed.<network>.json, then updates the deployed ledger and
writes new-deploys.<network>.txt.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDeploy(cmd.Context(), types.VariantPlain)
	},
}

var deployEscrowCmd = &cobra.Command{
	Use:   "deploy-escrow",
	Short: "Deploy XNETLockup2 wallets with the ESCROWADDR agent",
	Long: `Like deploy, for XNETLockup2 wallets. Every wallet gets the
escrow agent named by ESCROWADDR, which must be set.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDeploy(cmd.Context(), types.VariantEscrow)
	},
}

var deployTokenCmd = &cobra.Command{
	Use:   "deploy-token",
	Short: "Deploy the XNET token and record its address",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDeployToken(cmd.Context())
	},
}

// newDeployer connects to the configured network and returns the wallet
// deployer for variant, with a function that releases the connection.
var newDeployer = func(ctx context.Context, variant types.Variant) (deploy.Deployer, func(), error) {
	client, err := dialNetwork(ctx)
	if err != nil {
		return nil, nil, err
	}
	art, err := chain.LoadArtifact(cfg.ArtifactsDir, variant.ContractName())
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return chain.NewWalletDeployer(client, art, variant), client.Close, nil
}

func dialNetwork(ctx context.Context) (*chain.Client, error) {
	network, err := cfg.RequireNetwork()
	if err != nil {
		return nil, err
	}
	ep, err := cfg.Endpoint(network)
	if err != nil {
		return nil, err
	}
	signer, err := identity.Resolve(cfg.PrivateKey, cfg.KeyFile)
	if err != nil {
		return nil, err
	}
	logger.Debug("connecting", zap.String("network", ep.Name), zap.String("from", signer.AddressHex()))
	return chain.Dial(ctx, ep.URL, ep.ChainID, signer, logger)
}

func runDeploy(ctx context.Context, variant types.Variant) error {
	network, err := cfg.RequireNetwork()
	if err != nil {
		return err
	}
	files := cfg.Files(network, variant)
	opts := deploy.Options{
		Variant:       variant,
		Network:       network,
		LedgerPath:    files.Deployed,
		CandidatePath: files.Candidates,
		ReportPath:    files.Report,
		Checkpoint:    cfg.Checkpoint,
	}
	if variant.Escrow() {
		if opts.EscrowAgent, err = cfg.RequireEscrow(); err != nil {
			return err
		}
		if _, err := requireAddress("ESCROWADDR", opts.EscrowAgent); err != nil {
			return err
		}
	}

	deployer, release, err := newDeployer(ctx, variant)
	if err != nil {
		return err
	}
	defer release()

	journal := &lazyJournal{path: cfg.HistoryPath()}
	defer journal.Close()

	rec := check.NewRecorder(0, nil)
	driver := &deploy.Driver{
		Deployer: deployer,
		Journal:  journal,
		Printer:  out,
		Recorder: rec,
		Logger:   logger,
	}
	res, err := driver.Run(ctx, opts)
	if journal.store != nil {
		if path, berr := journal.store.BackupCurrent(0); berr != nil {
			logger.Warn("history backup failed", zap.Error(berr))
		} else if path != "" {
			logger.Debug("history backed up", zap.String("path", path))
		}
	}
	if err != nil {
		return err
	}
	logger.Debug("run finished",
		zap.String("run_id", res.RunID),
		zap.Int("deployed", len(res.Deployed)),
		zap.Int("duplicates", len(res.Duplicates)),
		zap.String("assertions", rec.Summary()),
	)
	return nil
}

// lazyJournal opens the history store on the first recorded deployment, so
// runs that stop before deploying leave nothing on disk.
type lazyJournal struct {
	path  string
	store *history.Store
}

func (j *lazyJournal) Record(r types.Record) error {
	if j.store == nil {
		store, err := history.NewStore(j.path)
		if err != nil {
			return fmt.Errorf("open deployment history: %w", err)
		}
		j.store = store
	}
	return j.store.Record(r)
}

func (j *lazyJournal) Close() error {
	if j.store == nil {
		return nil
	}
	return j.store.Close()
}

func runDeployToken(ctx context.Context) error {
	client, err := dialNetwork(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	art, err := chain.LoadArtifact(cfg.ArtifactsDir, tokenContract)
	if err != nil {
		return err
	}
	out.Banner("Deploying " + tokenContract + " token")
	addr, err := client.Deploy(ctx, art)
	if err != nil {
		return fmt.Errorf("deploy token: %w", err)
	}
	path := cfg.TokenAddressFile()
	if err := os.WriteFile(path, []byte(addr.Hex()+"\n"), 0o644); err != nil {
		return fmt.Errorf("record token address: %w", err)
	}
	out.GreenLog(tokenContract + " deployed to " + addr.Hex())
	out.Println("address written to " + path)
	return nil
}
