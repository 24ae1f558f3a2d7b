package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"wikibridge/internal/bridge/models"
	"wikibridge/internal/sentinel"
	id "wikibridge/pkg/domain"
)

// ErrNotFound is returned when no active record matches a finder.
var ErrNotFound = sentinel.ErrNotFound

// FileStore persists the ledger as a single pretty-printed JSON document.
// Writes assemble the document in memory and publish it with a rename so a
// crash mid-write can never leave a torn file visible to the next Load.
type FileStore struct {
	path string
}

// NewFileStore creates a ledger store backed by the file at path.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("ledger path is required")
	}
	return &FileStore{path: path}, nil
}

// Load reads the ledger document. If the file does not exist it is created
// with an empty record list; the bootstrap is idempotent under concurrent
// startup because the create goes through the same atomic rename as Save.
func (s *FileStore) Load(ctx context.Context) (*models.Ledger, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		ledger := &models.Ledger{Accounts: []models.LinkRecord{}}
		if err := s.Save(ctx, ledger); err != nil {
			return nil, err
		}
		return ledger, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger %s: %w", s.path, err)
	}

	var ledger models.Ledger
	if err := json.Unmarshal(raw, &ledger); err != nil {
		return nil, fmt.Errorf("parse ledger %s: %w", s.path, err)
	}
	if ledger.Accounts == nil {
		ledger.Accounts = []models.LinkRecord{}
	}
	return &ledger, nil
}

// Save writes the full document back to the ledger path.
func (s *FileStore) Save(_ context.Context, ledger *models.Ledger) error {
	raw, err := json.MarshalIndent(ledger, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".account_bridge-*.json")
	if err != nil {
		return fmt.Errorf("create temp ledger file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close ledger: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publish ledger: %w", err)
	}
	return nil
}

// FindByGameID scans the loaded ledger for the active record of a game
// identifier. A linear scan is fine at this scale; no index is persisted.
func (s *FileStore) FindByGameID(ctx context.Context, gameID id.GameID) (*models.LinkRecord, error) {
	ledger, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	if i := ledger.FindActiveByGameID(gameID); i >= 0 {
		record := ledger.Accounts[i]
		return &record, nil
	}
	return nil, ErrNotFound
}

// FindByUsername scans the loaded ledger for the active record of a wiki username.
func (s *FileStore) FindByUsername(ctx context.Context, username string) (*models.LinkRecord, error) {
	ledger, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	if i := ledger.FindActiveByUsername(username); i >= 0 {
		record := ledger.Accounts[i]
		return &record, nil
	}
	return nil, ErrNotFound
}
