package repository

import (
	"bidding-ledger/internal/biddingerrors"
	model "bidding-ledger/internal/models"
	"context"
	"errors"
	"fmt"
)

// Seed creates the given accounts and items, skipping ones that already exist.
// It stands in for the onboarding and catalog services in demos and tests.
func Seed(ctx context.Context, store LedgerStore, accounts []model.Account, items []model.Item) error {
	for _, account := range accounts {
		if err := store.CreateAccount(ctx, account); err != nil && !errors.Is(err, biddingerrors.ErrAlreadyExists) {
			return fmt.Errorf("seed account %s: %w", account.AccountID, err)
		}
	}
	for _, item := range items {
		if err := store.CreateItem(ctx, item); err != nil && !errors.Is(err, biddingerrors.ErrAlreadyExists) {
			return fmt.Errorf("seed item %s: %w", item.ItemID, err)
		}
	}
	return nil
}
