package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"xnet.company/lockup/internal/chain"
	"xnet.company/lockup/internal/check"
	"xnet.company/lockup/internal/config"
	"xnet.company/lockup/internal/console"
	"xnet.company/lockup/internal/stake"
)

var stakeStatusCmd = &cobra.Command{
	Use:   "stake-status",
	Short: "Show EpochStake balances and roles for the signing account",
	Long: `Reads the EpochStake contract at EPOCHSTAKE_ADDR and the XNET token
(XNET_TOKEN_ADDR, or the address recorded by deploy-token), prints the
current epoch, balances and roles, and checks that the staked and
unstaked balances add up to the XNET the contract holds.`,
	Args: cobra.NoArgs,
	RunE: runStakeStatus,
}

func runStakeStatus(cmd *cobra.Command, args []string) error {
	stakeAddr, err := requireAddress("EPOCHSTAKE_ADDR", cfg.StakeAddr)
	if err != nil {
		return err
	}
	tokenAddr, err := tokenAddress()
	if err != nil {
		return err
	}

	client, err := dialNetwork(cmd.Context())
	if err != nil {
		return err
	}
	defer client.Close()

	token := chain.NewToken(tokenAddr, client.Backend())
	es := chain.NewEpochStake(stakeAddr, client.Backend())

	rec := check.NewRecorder(0, assertionSink(out))
	st, err := stake.Check(cmd.Context(), token, es, client.From(), rec)
	if err != nil {
		return err
	}
	stake.Print(out, st)
	out.Println(rec.Summary())
	if rec.Failed() {
		return fmt.Errorf("stake status: %s", rec.Summary())
	}
	return nil
}

func assertionSink(p *console.Printer) check.Sink {
	return func(m check.Message) {
		switch m.Level {
		case check.LevelPass:
			p.GreenLog("PASS: " + m.Text)
		case check.LevelFail, check.LevelError:
			p.RedLog("FAIL: " + m.Text)
		}
	}
}

// tokenAddress is XNET_TOKEN_ADDR, falling back to the file written by
// deploy-token.
func tokenAddress() (common.Address, error) {
	if cfg.TokenAddr != "" {
		return requireAddress("XNET_TOKEN_ADDR", cfg.TokenAddr)
	}
	path := cfg.TokenAddressFile()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return common.Address{}, &config.Error{Key: "XNET_TOKEN_ADDR", Reason: "not set and " + path + " not found"}
	}
	if err != nil {
		return common.Address{}, err
	}
	return requireAddress(path, strings.TrimSpace(string(data)))
}

func requireAddress(key, value string) (common.Address, error) {
	if value == "" {
		return common.Address{}, &config.Error{Key: key, Reason: "not set"}
	}
	if !common.IsHexAddress(value) {
		return common.Address{}, &config.Error{Key: key, Reason: fmt.Sprintf("%q is not an address", value)}
	}
	return common.HexToAddress(value), nil
}
