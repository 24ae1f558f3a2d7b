// Package store owns the on-disk ledger document. It is the single writer;
// the index cache and cooldown table are derived, rebuildable state.
package store

import (
	"context"

	"wikibridge/internal/bridge/models"
	id "wikibridge/pkg/domain"
)

// LedgerStore defines the persistence interface for the link ledger.
type LedgerStore interface {
	// Load reads the full ledger document, creating an empty one if the file
	// does not exist yet.
	Load(ctx context.Context) (*models.Ledger, error)

	// Save writes the full document back atomically.
	Save(ctx context.Context, ledger *models.Ledger) error

	// FindByGameID returns the active record for a game identifier, if any.
	FindByGameID(ctx context.Context, gameID id.GameID) (*models.LinkRecord, error)

	// FindByUsername returns the active record for a wiki username, if any.
	FindByUsername(ctx context.Context, username string) (*models.LinkRecord, error)
}
