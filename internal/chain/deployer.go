package chain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"xnet.company/lockup/internal/types"
)

// ContractDeployer creates a contract from an artifact. *Client implements it.
type ContractDeployer interface {
	Deploy(ctx context.Context, art *Artifact, args ...any) (common.Address, error)
}

// WalletDeployer deploys one vesting-wallet contract per beneficiary.
type WalletDeployer struct {
	deployer ContractDeployer
	artifact *Artifact
	variant  types.Variant
}

// NewWalletDeployer deploys art as the wallet contract for variant.
func NewWalletDeployer(d ContractDeployer, art *Artifact, variant types.Variant) *WalletDeployer {
	return &WalletDeployer{deployer: d, artifact: art, variant: variant}
}

// DeployWallet deploys a wallet for b and returns its address. agent is the
// escrow agent and is ignored for the plain variant.
func (w *WalletDeployer) DeployWallet(ctx context.Context, b types.Beneficiary, agent string) (string, error) {
	args, err := WalletArgs(w.variant, b, agent)
	if err != nil {
		return "", err
	}
	addr, err := w.deployer.Deploy(ctx, w.artifact, args...)
	if err != nil {
		return "", err
	}
	return addr.Hex(), nil
}

// WalletArgs builds the constructor arguments for a wallet:
// (beneficiary, start, duration), or (beneficiary, escrow, start, duration)
// for the escrow variant.
func WalletArgs(variant types.Variant, b types.Beneficiary, agent string) ([]any, error) {
	if !common.IsHexAddress(b.Address) {
		return nil, fmt.Errorf("beneficiary %q is not an address", b.Address)
	}
	if b.Start < 0 || b.Duration < 0 {
		return nil, fmt.Errorf("beneficiary %s: negative start or duration", b.Address)
	}
	bene := common.HexToAddress(b.Address)
	start, duration := uint64(b.Start), uint64(b.Duration)

	if !variant.Escrow() {
		return []any{bene, start, duration}, nil
	}
	if !common.IsHexAddress(agent) {
		return nil, fmt.Errorf("escrow agent %q is not an address", agent)
	}
	return []any{bene, common.HexToAddress(agent), start, duration}, nil
}
