package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"xnet.company/lockup/internal/identity"
)

// Backend is the node API used for deployment.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
}

// Client deploys contracts signed by one identity.
type Client struct {
	backend Backend
	signer  *identity.Identity
	chainID *big.Int
	logger  *zap.Logger
	close   func()
}

// Dial connects to the RPC endpoint at url. When wantChainID is non-zero the
// node must report that chain id.
func Dial(ctx context.Context, url string, wantChainID int64, signer *identity.Identity, logger *zap.Logger) (*Client, error) {
	ec, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c, err := NewClient(ctx, ec, signer, logger)
	if err != nil {
		ec.Close()
		return nil, err
	}
	c.close = ec.Close

	if wantChainID != 0 && c.chainID.Cmp(big.NewInt(wantChainID)) != 0 {
		c.Close()
		return nil, fmt.Errorf("node at %s reports chain id %s, expected %d", url, c.chainID, wantChainID)
	}
	return c, nil
}

// NewClient wraps an existing backend.
func NewClient(ctx context.Context, backend Backend, signer *identity.Identity, logger *zap.Logger) (*Client, error) {
	if signer == nil {
		return nil, errors.New("chain client needs a signer")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("query chain id: %w", err)
	}
	return &Client{backend: backend, signer: signer, chainID: chainID, logger: logger}, nil
}

// Close releases the RPC connection.
func (c *Client) Close() {
	if c.close != nil {
		c.close()
	}
}

// Backend returns the underlying node connection.
func (c *Client) Backend() Backend {
	return c.backend
}

// From is the deploying account.
func (c *Client) From() common.Address {
	return c.signer.Address()
}

// ChainID is the chain id reported by the node.
func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

func (c *Client) transactor(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(c.signer.PrivateKey(), c.chainID)
	if err != nil {
		return nil, fmt.Errorf("build transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}

// Deploy sends the creation transaction for art with constructor args and
// waits until the contract code is on chain.
func (c *Client) Deploy(ctx context.Context, art *Artifact, args ...any) (common.Address, error) {
	opts, err := c.transactor(ctx)
	if err != nil {
		return common.Address{}, err
	}

	addr, tx, _, err := bind.DeployContract(opts, art.ABI, art.Bytecode, c.backend, args...)
	if err != nil {
		return common.Address{}, fmt.Errorf("deploy %s: %w", art.ContractName, err)
	}
	c.logger.Debug("deployment sent",
		zap.String("contract", art.ContractName),
		zap.String("tx", tx.Hash().Hex()),
		zap.String("address", addr.Hex()),
	)

	deployed, err := bind.WaitDeployed(ctx, c.backend, tx)
	if err != nil {
		return common.Address{}, fmt.Errorf("wait for %s at %s: %w", art.ContractName, addr.Hex(), err)
	}
	c.logger.Info("contract deployed",
		zap.String("contract", art.ContractName),
		zap.String("address", deployed.Hex()),
	)
	return deployed, nil
}
