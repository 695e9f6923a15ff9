// Package stake reports the state of an EpochStake contract: the staking
// epoch, the XNET it holds split into staked and unstaked balances, and the
// roles the operator's account holds on it.
package stake

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"xnet.company/lockup/internal/check"
	"xnet.company/lockup/internal/console"
)

// TokenReader reads ERC-20 balances. *chain.Token implements it.
type TokenReader interface {
	Address() common.Address
	BalanceOf(ctx context.Context, account common.Address) (*big.Int, error)
}

// StakeReader reads EpochStake state. *chain.EpochStake implements it.
type StakeReader interface {
	Address() common.Address
	Balance(ctx context.Context, token common.Address) (*big.Int, error)
	StakedBalance(ctx context.Context, token common.Address) (*big.Int, error)
	CurrentEpoch(ctx context.Context) (*big.Int, error)
	AcceptsToken(ctx context.Context, token common.Address) (bool, error)
	Roles(ctx context.Context, account common.Address) (staker, escrow bool, err error)
}

// Status is a snapshot of one EpochStake contract as seen by an account.
type Status struct {
	Contract      common.Address
	Account       common.Address
	Epoch         *big.Int
	WalletBalance *big.Int // XNET held by Account
	Held          *big.Int // XNET held by the contract
	Unstaked      *big.Int
	Staked        *big.Int
	AcceptsToken  bool
	Staker        bool
	Escrow        bool
}

// Roles describes what the account may do on the contract.
func (s *Status) Roles() string {
	switch {
	case s.Staker:
		return "You are the staker/beneficiary, and may withdraw unstaked assets."
	case s.Escrow:
		return "You have the ESCROW AGENT role, and may slash staked assets."
	default:
		return "You are not a staker or escrow agent"
	}
}

// Check reads the contract state and records the balance assertions on rec:
// the token must be a staking asset, and staked plus unstaked must equal
// what the contract holds.
func Check(ctx context.Context, token TokenReader, es StakeReader, account common.Address, rec *check.Recorder) (*Status, error) {
	st := &Status{Contract: es.Address(), Account: account}

	var err error
	if st.Epoch, err = es.CurrentEpoch(ctx); err != nil {
		return nil, fmt.Errorf("read epoch: %w", err)
	}
	if st.AcceptsToken, err = es.AcceptsToken(ctx, token.Address()); err != nil {
		return nil, fmt.Errorf("read accepted tokens: %w", err)
	}
	if st.Staker, st.Escrow, err = es.Roles(ctx, account); err != nil {
		return nil, fmt.Errorf("read roles: %w", err)
	}
	if st.WalletBalance, err = token.BalanceOf(ctx, account); err != nil {
		return nil, fmt.Errorf("read wallet balance: %w", err)
	}
	if st.Held, err = token.BalanceOf(ctx, es.Address()); err != nil {
		return nil, fmt.Errorf("read contract balance: %w", err)
	}
	if st.Unstaked, err = es.Balance(ctx, token.Address()); err != nil {
		return nil, fmt.Errorf("read unstaked balance: %w", err)
	}
	if st.Staked, err = es.StakedBalance(ctx, token.Address()); err != nil {
		return nil, fmt.Errorf("read staked balance: %w", err)
	}

	rec.Assert(st.AcceptsToken, "EpochStake accepts $XNET as a staking asset", "")
	total := new(big.Int).Add(st.Unstaked, st.Staked)
	rec.Assert(check.BigClose(st.Held, total, big.NewInt(0)), "staked+unstaked = total $XNET balance", "")
	return st, nil
}

// Print writes the status for an operator.
func Print(p *console.Printer, st *Status) {
	p.Printf("%s -- staking epoch %s", p.ColorAddress(st.Contract.Hex(), false), st.Epoch)
	p.Println(st.Roles())
	p.Printf("wallet   %s", console.EthForm(st.WalletBalance, true))
	p.Printf("contract %s", console.EthForm(st.Held, true))
	p.Printf("unstaked %s", console.EthForm(st.Unstaked, true))
	p.Printf("staked   %s", console.EthForm(st.Staked, true))
	p.Printf("%s of %s XNET staked", console.NumberFormat(st.Staked), console.NumberFormat(st.Held))
}
