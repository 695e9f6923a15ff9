package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// TokenABI is the slice of the ERC-20 interface the tool reads.
const TokenABI = `[
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

// EpochStakeABI is the slice of the EpochStake interface the tool reads.
const EpochStakeABI = `[
	{"type":"function","name":"getBalance","stateMutability":"view","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getStakedBalance","stateMutability":"view","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"currentEpoch","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"STAKER_ROLE","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bytes32"}]},
	{"type":"function","name":"ESCROW_ROLE","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bytes32"}]},
	{"type":"function","name":"hasRole","stateMutability":"view","inputs":[{"name":"role","type":"bytes32"},{"name":"account","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"inTokens","stateMutability":"view","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"","type":"bool"}]}
]`

var (
	tokenABI      = mustABI(TokenABI)
	epochStakeABI = mustABI(EpochStakeABI)
)

func mustABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}

// Token reads an ERC-20 token.
type Token struct {
	contract *bind.BoundContract
	address  common.Address
}

// NewToken binds the ERC-20 at addr for reads.
func NewToken(addr common.Address, caller bind.ContractCaller) *Token {
	return &Token{
		contract: bind.NewBoundContract(addr, tokenABI, caller, nil, nil),
		address:  addr,
	}
}

// Address of the token contract.
func (t *Token) Address() common.Address { return t.address }

// BalanceOf returns the token balance of account in wei.
func (t *Token) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	return callBig(ctx, t.contract, "balanceOf", account)
}

// TotalSupply returns the token supply in wei.
func (t *Token) TotalSupply(ctx context.Context) (*big.Int, error) {
	return callBig(ctx, t.contract, "totalSupply")
}

// EpochStake reads an EpochStake staking contract.
type EpochStake struct {
	contract *bind.BoundContract
	address  common.Address
}

// NewEpochStake binds the EpochStake contract at addr for reads.
func NewEpochStake(addr common.Address, caller bind.ContractCaller) *EpochStake {
	return &EpochStake{
		contract: bind.NewBoundContract(addr, epochStakeABI, caller, nil, nil),
		address:  addr,
	}
}

// Address of the staking contract.
func (s *EpochStake) Address() common.Address { return s.address }

// Balance is the unstaked balance of token held by the contract.
func (s *EpochStake) Balance(ctx context.Context, token common.Address) (*big.Int, error) {
	return callBig(ctx, s.contract, "getBalance", token)
}

// StakedBalance is the staked balance of token held by the contract.
func (s *EpochStake) StakedBalance(ctx context.Context, token common.Address) (*big.Int, error) {
	return callBig(ctx, s.contract, "getStakedBalance", token)
}

// CurrentEpoch returns the staking epoch number.
func (s *EpochStake) CurrentEpoch(ctx context.Context) (*big.Int, error) {
	return callBig(ctx, s.contract, "currentEpoch")
}

// AcceptsToken reports whether token is a valid staking asset.
func (s *EpochStake) AcceptsToken(ctx context.Context, token common.Address) (bool, error) {
	var out []any
	if err := s.contract.Call(&bind.CallOpts{Context: ctx}, &out, "inTokens", token); err != nil {
		return false, fmt.Errorf("inTokens: %w", err)
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

// Roles reports whether account holds the staker and escrow roles.
func (s *EpochStake) Roles(ctx context.Context, account common.Address) (staker, escrow bool, err error) {
	if staker, err = s.hasRole(ctx, "STAKER_ROLE", account); err != nil {
		return false, false, err
	}
	if escrow, err = s.hasRole(ctx, "ESCROW_ROLE", account); err != nil {
		return false, false, err
	}
	return staker, escrow, nil
}

func (s *EpochStake) hasRole(ctx context.Context, roleName string, account common.Address) (bool, error) {
	opts := &bind.CallOpts{Context: ctx}

	var out []any
	if err := s.contract.Call(opts, &out, roleName); err != nil {
		return false, fmt.Errorf("%s: %w", roleName, err)
	}
	role := *abi.ConvertType(out[0], new([32]byte)).(*[32]byte)

	out = nil
	if err := s.contract.Call(opts, &out, "hasRole", role, account); err != nil {
		return false, fmt.Errorf("hasRole %s: %w", roleName, err)
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func callBig(ctx context.Context, contract *bind.BoundContract, method string, args ...any) (*big.Int, error) {
	var out []any
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}
