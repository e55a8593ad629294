// Package economy enforces the credit balance invariants around paid actions.
package economy

import (
	"context"
	"fmt"

	"github.com/projecteru2/core/log"

	"github.com/projecteru2/vpsbot/metrics"
	"github.com/projecteru2/vpsbot/repository"
	"github.com/projecteru2/vpsbot/types"
)

// Guard moves credits. Every method is one locked read-modify-write of the
// accounts collection, so no intermediate balance is ever observable.
type Guard struct {
	repo *repository.Repository
}

// New creates a Guard over repo.
func New(repo *repository.Repository) *Guard {
	return &Guard{repo: repo}
}

// Balance returns user's credits. Unknown users have zero.
func (g *Guard) Balance(ctx context.Context, user string) (int64, error) {
	var bal int64
	return bal, g.repo.WithAccounts(ctx, func(idx *types.AccountIndex) error {
		bal = idx.Balance(user)
		return nil
	})
}

// Charge debits amount if the balance covers it, otherwise returns
// ErrInsufficientFunds and changes nothing.
func (g *Guard) Charge(ctx context.Context, user string, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("%w: charge %d", types.ErrInvalidInput, amount)
	}
	err := g.repo.UpdateAccounts(ctx, func(idx *types.AccountIndex) error {
		acct := idx.GetOrCreate(user)
		if acct.Credits < amount {
			return fmt.Errorf("%w: balance %d, need %d", types.ErrInsufficientFunds, acct.Credits, amount)
		}
		acct.Credits -= amount
		return nil
	})
	if err == nil {
		metrics.ObserveCredits("charge", amount)
	}
	return err
}

// Refund credits amount back unconditionally. It undoes a Charge whose
// paid action failed.
func (g *Guard) Refund(ctx context.Context, user string, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("%w: refund %d", types.ErrInvalidInput, amount)
	}
	err := g.repo.UpdateAccounts(ctx, func(idx *types.AccountIndex) error {
		idx.GetOrCreate(user).Credits += amount
		return nil
	})
	if err != nil {
		log.WithFunc("economy.Refund").Errorf(ctx, err, "refund %d to %s", amount, user)
		return err
	}
	metrics.ObserveCredits("refund", amount)
	return nil
}

// Grant adds a positive amount and returns the new balance.
func (g *Guard) Grant(ctx context.Context, user string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: amount must be positive, got %d", types.ErrInvalidInput, amount)
	}
	var bal int64
	err := g.repo.UpdateAccounts(ctx, func(idx *types.AccountIndex) error {
		acct := idx.GetOrCreate(user)
		acct.Credits += amount
		bal = acct.Credits
		return nil
	})
	if err == nil {
		metrics.ObserveCredits("grant", amount)
	}
	return bal, err
}

// Debit removes up to amount, never taking the balance below zero.
// It returns how much was actually removed and the new balance.
func (g *Guard) Debit(ctx context.Context, user string, amount int64) (removed, balance int64, err error) {
	if amount <= 0 {
		return 0, 0, fmt.Errorf("%w: amount must be positive, got %d", types.ErrInvalidInput, amount)
	}
	return g.debit(ctx, user, func(cur int64) int64 { return min(cur, amount) })
}

// DebitAll empties user's balance and returns the amount removed.
func (g *Guard) DebitAll(ctx context.Context, user string) (int64, error) {
	removed, _, err := g.debit(ctx, user, func(cur int64) int64 { return cur })
	return removed, err
}

func (g *Guard) debit(ctx context.Context, user string, take func(int64) int64) (removed, balance int64, err error) {
	err = g.repo.UpdateAccounts(ctx, func(idx *types.AccountIndex) error {
		acct := (*idx)[user]
		if acct == nil {
			return fmt.Errorf("%w: account %s", types.ErrNotFound, user)
		}
		removed = take(acct.Credits)
		acct.Credits -= removed
		balance = acct.Credits
		return nil
	})
	if err == nil {
		metrics.ObserveCredits("debit", removed)
	}
	return removed, balance, err
}
