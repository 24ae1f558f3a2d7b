// Package models defines the account bridge data model and the closed result
// enumerations returned by bridge operations.
package models

import (
	id "wikibridge/pkg/domain"
)

// LinkRecord is one entry in the persisted ledger. Records are never deleted;
// an unlink flips Linked to false so the historical binding stays auditable.
type LinkRecord struct {
	GameID       id.GameID `json:"uuid"`
	WikiUsername string    `json:"wiki_account"`
	Linked       bool      `json:"linked"`
	LastLink     int64     `json:"last_link"`
	LastEdit     int64     `json:"last_edit"`
}

// Ledger is the full ordered collection of link records, persisted as a single
// JSON document and rewritten wholesale on every mutation.
type Ledger struct {
	Accounts []LinkRecord `json:"accounts"`
}

// FindByGameID returns the index of the most recent record for the given game
// identifier, or -1. The scan runs back to front so reactivation picks up the
// latest historical binding.
func (l *Ledger) FindByGameID(gameID id.GameID) int {
	for i := len(l.Accounts) - 1; i >= 0; i-- {
		if l.Accounts[i].GameID == gameID {
			return i
		}
	}
	return -1
}

// FindActiveByGameID returns the index of the linked record for the given game
// identifier, or -1.
func (l *Ledger) FindActiveByGameID(gameID id.GameID) int {
	for i := range l.Accounts {
		if l.Accounts[i].Linked && l.Accounts[i].GameID == gameID {
			return i
		}
	}
	return -1
}

// FindActiveByUsername returns the index of the linked record for the given
// wiki username, or -1.
func (l *Ledger) FindActiveByUsername(username string) int {
	for i := range l.Accounts {
		if l.Accounts[i].Linked && l.Accounts[i].WikiUsername == username {
			return i
		}
	}
	return -1
}

// FindPair returns the index of the record for the exact (game id, username)
// pair regardless of linked state, or -1.
func (l *Ledger) FindPair(gameID id.GameID, username string) int {
	for i := range l.Accounts {
		if l.Accounts[i].GameID == gameID && l.Accounts[i].WikiUsername == username {
			return i
		}
	}
	return -1
}

// LinkResult is the closed set of outcomes for a link request.
type LinkResult string

const (
	// LinkAlreadyLinkedByID: the game identifier already has an active link.
	LinkAlreadyLinkedByID LinkResult = "uuid_already_linked"
	// LinkAlreadyLinkedByUsername: the wiki account already has an active link.
	LinkAlreadyLinkedByUsername LinkResult = "wiki_account_already_linked"
	// LinkSubpageNotFound: the user's ownership subpage does not exist.
	LinkSubpageNotFound LinkResult = "subpage_not_found"
	// LinkCreatorMismatch: the subpage was created by a different wiki account.
	LinkCreatorMismatch LinkResult = "creator_mismatch"
	// LinkIdentifierNotFound: the subpage does not contain the game identifier.
	LinkIdentifierNotFound LinkResult = "uuid_not_found"
	// LinkSuccess: the link was verified and persisted.
	LinkSuccess LinkResult = "success"
	// LinkPersistFailed: verification passed but the ledger write failed.
	LinkPersistFailed LinkResult = "persist_failed"
)

// RelinkResult is the closed set of outcomes for reactivating a historical link.
type RelinkResult string

const (
	RelinkAlreadyLinked RelinkResult = "already_linked"
	RelinkNoPriorRecord RelinkResult = "no_prior_record"
	RelinkSuccess       RelinkResult = "success"
	RelinkPersistFailed RelinkResult = "persist_failed"
)

// VerificationOutcome is the result of checking a claimed wiki username
// against the convention-based ownership subpage.
type VerificationOutcome string

const (
	VerificationSubpageNotFound    VerificationOutcome = "subpage_not_found"
	VerificationCreatorMismatch    VerificationOutcome = "creator_mismatch"
	VerificationIdentifierNotFound VerificationOutcome = "identifier_not_found"
	Verified                       VerificationOutcome = "verified"
)

// LinkResultForOutcome maps a failed verification outcome onto the
// corresponding link result. Verified has no mapping; callers must not pass it.
func LinkResultForOutcome(outcome VerificationOutcome) LinkResult {
	switch outcome {
	case VerificationSubpageNotFound:
		return LinkSubpageNotFound
	case VerificationCreatorMismatch:
		return LinkCreatorMismatch
	case VerificationIdentifierNotFound:
		return LinkIdentifierNotFound
	}
	return LinkPersistFailed
}
