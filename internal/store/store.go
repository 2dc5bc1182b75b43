// Package store provides data persistence for the ledger state.
package store

import (
	"context"

	"catalyst-trader/internal/models"
)

// LedgerStore persists full ledger snapshots and restores them verbatim. The
// core treats persisted state as an opaque structured document; all trading
// logic stays in the ledger.
type LedgerStore interface {
	// SaveLedger replaces the stored snapshot for the state's account.
	SaveLedger(ctx context.Context, state models.LedgerState) error
	// LoadLedger restores the snapshot for an account. Returns
	// errors.ErrAccountNotFound when no snapshot exists.
	LoadLedger(ctx context.Context, accountID string) (models.LedgerState, error)
	// Accounts lists the account ids with stored snapshots.
	Accounts(ctx context.Context) ([]string, error)
	// Close releases the underlying resources.
	Close() error
}
