package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"xnet.company/lockup/internal/check"
	"xnet.company/lockup/internal/config"
	"xnet.company/lockup/internal/console"
	"xnet.company/lockup/internal/deploy"
	"xnet.company/lockup/internal/history"
	"xnet.company/lockup/internal/ledger"
	"xnet.company/lockup/internal/report"
	"xnet.company/lockup/internal/types"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <candidate-file>",
	Short: "Merge a candidate file into lockup2-beneficiaries.<network>.json",
	Long: `Adds every beneficiary in the candidate file that is not already in
the network's escrow candidate list. Exact duplicates are reported and
skipped, so merging the same file twice changes nothing.`,
	Args: cobra.ExactArgs(1),
	RunE: runMerge,
}

var showCmd = &cobra.Command{
	Use:   "show <ledger-file>",
	Short: "Print the beneficiaries of a ledger or candidate file",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var reportCmd = &cobra.Command{
	Use:   "report <ledger-file> <html-file>",
	Short: "Render a deployed ledger as an HTML page",
	Args:  cobra.ExactArgs(2),
	RunE:  runReport,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List journaled deployments",
	Long: `Lists the deployments recorded in LOCKUP_HISTORY_DB. When NETWORK
is set only that network's deployments are shown.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func runMerge(cmd *cobra.Command, args []string) error {
	network, err := cfg.RequireNetwork()
	if err != nil {
		return err
	}
	target := cfg.Files(network, types.VariantEscrow).Candidates
	out.Banner("Merging " + args[0] + " into " + target)

	rec := check.NewRecorder(0, nil)
	d := &deploy.Driver{Printer: out, Recorder: rec, Logger: logger}
	res, err := d.Merge(target, args[0])
	if err != nil {
		return err
	}
	logger.Debug("merge finished",
		zap.String("target", target),
		zap.Int("inserted", len(res.Inserted)),
		zap.Int("duplicates", len(res.Duplicates)),
	)
	return nil
}

// looseFile decodes any ledger or candidate list without validating the
// beneficiary tuples, so that malformed entries can still be shown.
type looseFile struct {
	Count         int      `json:"count"`
	Beneficiaries [][]any  `json:"beneficiaries"`
	Wallets       []string `json:"wallets"`
	Agents        []string `json:"agents"`
}

func runShow(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &config.Error{Key: args[0], Reason: "file not found", Err: err}
		}
		return err
	}
	var f looseFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("decode %s: %w", args[0], err)
	}
	return showLedger(out, f)
}

func showLedger(p *console.Printer, f looseFile) error {
	p.Printf("count: %d", f.Count)
	for i, fields := range f.Beneficiaries {
		line := fmt.Sprintf("%3d. %s", i+1, p.FormatTuple(fields))
		if i < len(f.Wallets) {
			line += " <--> " + p.ColorAddress(f.Wallets[i], false)
		}
		if i < len(f.Agents) {
			line += " escrow " + p.ColorAddress(f.Agents[i], false)
		}
		p.Println(line)
	}
	if f.Count != len(f.Beneficiaries) {
		p.RedLog(fmt.Sprintf("count %d but %d beneficiaries", f.Count, len(f.Beneficiaries)))
	}
	return nil
}

// variantOf infers the ledger variant from the conventional file name.
func variantOf(path string) types.Variant {
	if strings.HasPrefix(filepath.Base(path), string(types.VariantEscrow)+"-") {
		return types.VariantEscrow
	}
	return types.VariantPlain
}

func runReport(cmd *cobra.Command, args []string) error {
	src, dst := args[0], args[1]
	variant := variantOf(src)
	l, err := ledger.Load(src, variant)
	if errors.Is(err, ledger.ErrAbsent) {
		return &config.Error{Key: src, Reason: "ledger not found", Err: err}
	}
	if err != nil {
		return err
	}
	title := fmt.Sprintf("%s wallets: %s", variant.ContractName(), filepath.Base(src))
	if err := report.NewService().WriteFile(dst, title, l); err != nil {
		return err
	}
	out.GreenLog(fmt.Sprintf("wrote %d wallet(s) to %s", l.Count, dst))
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := history.NewStore(cfg.HistoryPath())
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.List(history.Filter{Network: cfg.Network})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		out.AmberLog("no deployments recorded")
		return nil
	}
	for _, r := range records {
		line := fmt.Sprintf("%s %-9s %-7s %s <--> %s",
			r.DeployedAt.UTC().Format("2006-01-02 15:04:05"),
			r.Network, r.Variant,
			out.FormatBeneficiary(r.Deployment.Beneficiary),
			out.ColorAddress(r.Deployment.Wallet, false))
		if r.Deployment.Agent != "" {
			line += " escrow " + console.ShortenAddress(r.Deployment.Agent)
		}
		out.Println(line)
	}
	return nil
}
