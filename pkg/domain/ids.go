// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "wikibridge/pkg/domain-errors"
)

// GameID is the 128-bit unique identifier naming one game account.
// The compiler prevents passing a raw uuid.UUID or string where a GameID is expected.
type GameID uuid.UUID

// ParseGameID validates an identifier string at trust boundaries (handlers,
// API inputs). Both the hyphenated and the bare 32-hex-digit forms are
// accepted; String always renders the canonical hyphenated form.
func ParseGameID(s string) (GameID, error) {
	if s == "" {
		return GameID{}, dErrors.New(dErrors.CodeInvalidInput, "game ID cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return GameID{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid game ID")
	}
	return GameID(id), nil
}

// String returns the hyphenated form, for logging and persistence.
func (id GameID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the identifier is the zero value. Used for
// service-layer validation.
func (id GameID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText implements encoding.TextMarshaler so the ledger document stores
// identifiers in hyphenated form.
func (id GameID) MarshalText() ([]byte, error) {
	return []byte(uuid.UUID(id).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *GameID) UnmarshalText(b []byte) error {
	parsed, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = GameID(parsed)
	return nil
}
