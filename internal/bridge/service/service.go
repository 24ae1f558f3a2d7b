// Package service orchestrates the account bridge: linking, relinking,
// unlinking and lookups between game identities and wiki accounts.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"wikibridge/internal/bridge/cache"
	"wikibridge/internal/bridge/models"
	id "wikibridge/pkg/domain"
	dErrors "wikibridge/pkg/domain-errors"
)

// LedgerStore defines the persistence interface the bridge mutates through.
type LedgerStore interface {
	Load(ctx context.Context) (*models.Ledger, error)
	Save(ctx context.Context, ledger *models.Ledger) error
}

// IndexCache defines the derived lookup index over active records.
type IndexCache interface {
	Get(ctx context.Context) (*cache.Index, error)
	Invalidate()
}

// OwnershipVerifier validates a proposed link against the external wiki.
type OwnershipVerifier interface {
	Verify(ctx context.Context, gameID id.GameID, username string) (models.VerificationOutcome, error)
}

// Recorder defines the metrics interface for bridge operations.
type Recorder interface {
	ObserveLinkRequest(result string)
	ObserveRelink(result string)
	ObserveUnlink()
	ObserveVerification(outcome string)
	ObserveLedgerWrite(status string)
	ObserveCooldownHit()
	SetActiveLinks(count int)
}

// Service implements the account bridge operations. Ledger mutations are
// serialized by a single writer mutex; ownership verification runs before the
// lock is taken so a wiki round trip never blocks unrelated lookups.
type Service struct {
	ledger   LedgerStore
	index    IndexCache
	verifier OwnershipVerifier
	logger   *slog.Logger
	metrics  Recorder
	tracer   trace.Tracer
	now      func() time.Time

	// writeMu enforces single-writer discipline over load-mutate-save.
	writeMu sync.Mutex
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(metrics Recorder) Option {
	return func(s *Service) {
		s.metrics = metrics
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

func New(ledger LedgerStore, index IndexCache, verifier OwnershipVerifier, opts ...Option) (*Service, error) {
	if ledger == nil {
		return nil, fmt.Errorf("ledger store is required")
	}
	if index == nil {
		return nil, fmt.Errorf("index cache is required")
	}
	if verifier == nil {
		return nil, fmt.Errorf("ownership verifier is required")
	}

	svc := &Service{
		ledger:   ledger,
		index:    index,
		verifier: verifier,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.tracer == nil {
		svc.tracer = otel.Tracer("wikibridge/bridge")
	}
	return svc, nil
}

// RequestLink links a game identity to a wiki account after proving ownership.
// The returned error is reserved for transient failures (ledger read failure
// aside, the wiki being unreachable); every expected outcome is a LinkResult.
func (s *Service) RequestLink(ctx context.Context, gameID id.GameID, username string) (models.LinkResult, error) {
	if gameID.IsNil() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "game ID is required")
	}
	if username == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "wiki username is required")
	}

	ctx, span := s.tracer.Start(ctx, "bridge.request_link",
		trace.WithAttributes(attribute.String("wiki_username", username)))
	defer span.End()

	// Uniqueness pre-check before any external call, to avoid wasted
	// verification work.
	ledger, err := s.ledger.Load(ctx)
	if err != nil {
		return s.persistFailed(ctx, err, "load ledger for link request")
	}
	if result, conflict := conflictResult(ledger, gameID, username); conflict {
		s.observeLink(result)
		span.SetAttributes(attribute.String("result", string(result)))
		return result, nil
	}

	// Verification performs a network round trip; the write lock is not held.
	outcome, err := s.verifier.Verify(ctx, gameID, username)
	if err != nil {
		s.logError(ctx, "ownership verification unavailable", err, "wiki_username", username)
		return "", err
	}
	if s.metrics != nil {
		s.metrics.ObserveVerification(string(outcome))
	}
	if outcome != models.Verified {
		result := models.LinkResultForOutcome(outcome)
		s.observeLink(result)
		span.SetAttributes(attribute.String("result", string(result)))
		return result, nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	// Re-check uniqueness under the lock: a concurrent request may have won
	// the race while verification was in flight.
	ledger, err = s.ledger.Load(ctx)
	if err != nil {
		return s.persistFailed(ctx, err, "reload ledger for link request")
	}
	if result, conflict := conflictResult(ledger, gameID, username); conflict {
		s.observeLink(result)
		span.SetAttributes(attribute.String("result", string(result)))
		return result, nil
	}

	nowMillis := s.now().UnixMilli()
	if i := ledger.FindPair(gameID, username); i >= 0 {
		// Soft-unlinked history for this exact pair: reactivate it.
		ledger.Accounts[i].Linked = true
		ledger.Accounts[i].LastLink = monotonic(nowMillis, ledger.Accounts[i].LastLink)
	} else {
		ledger.Accounts = append(ledger.Accounts, models.LinkRecord{
			GameID:       gameID,
			WikiUsername: username,
			Linked:       true,
			LastLink:     nowMillis,
			LastEdit:     0,
		})
	}

	if err := s.save(ctx, ledger); err != nil {
		s.observeLink(models.LinkPersistFailed)
		return models.LinkPersistFailed, nil
	}

	s.index.Invalidate()
	s.observeLink(models.LinkSuccess)
	span.SetAttributes(attribute.String("result", string(models.LinkSuccess)))
	s.logInfo(ctx, "account link created", "game_id", gameID.String(), "wiki_username", username)
	return models.LinkSuccess, nil
}

// RelinkAccount reactivates the most recent historical record for a game
// identity without repeating ownership verification: the original proof is
// trusted to still hold.
func (s *Service) RelinkAccount(ctx context.Context, gameID id.GameID) (models.RelinkResult, error) {
	if gameID.IsNil() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "game ID is required")
	}

	ctx, span := s.tracer.Start(ctx, "bridge.relink_account")
	defer span.End()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	ledger, err := s.ledger.Load(ctx)
	if err != nil {
		s.logError(ctx, "load ledger for relink", err, "game_id", gameID.String())
		s.observeRelink(models.RelinkPersistFailed)
		return models.RelinkPersistFailed, nil
	}

	// Uniqueness checks run under the lock, same as RequestLink. The identity
	// may hold an active record through a different historical pair, and the
	// historical username may have been claimed by another identity since the
	// unlink; either way reactivation would break active-uniqueness.
	if ledger.FindActiveByGameID(gameID) >= 0 {
		s.observeRelink(models.RelinkAlreadyLinked)
		return models.RelinkAlreadyLinked, nil
	}

	i := ledger.FindByGameID(gameID)
	if i < 0 {
		s.observeRelink(models.RelinkNoPriorRecord)
		return models.RelinkNoPriorRecord, nil
	}
	if ledger.FindActiveByUsername(ledger.Accounts[i].WikiUsername) >= 0 {
		s.observeRelink(models.RelinkAlreadyLinked)
		return models.RelinkAlreadyLinked, nil
	}

	ledger.Accounts[i].Linked = true
	ledger.Accounts[i].LastLink = monotonic(s.now().UnixMilli(), ledger.Accounts[i].LastLink)

	if err := s.save(ctx, ledger); err != nil {
		s.observeRelink(models.RelinkPersistFailed)
		return models.RelinkPersistFailed, nil
	}

	s.index.Invalidate()
	s.observeRelink(models.RelinkSuccess)
	span.SetAttributes(attribute.String("result", string(models.RelinkSuccess)))
	s.logInfo(ctx, "account link restored",
		"game_id", gameID.String(), "wiki_username", ledger.Accounts[i].WikiUsername)
	return models.RelinkSuccess, nil
}

// RemoveLinkByID soft-unlinks the active record for a game identity. The
// operation is an idempotent no-op when no active record exists.
func (s *Service) RemoveLinkByID(ctx context.Context, gameID id.GameID) (bool, error) {
	if gameID.IsNil() {
		return false, dErrors.New(dErrors.CodeInvalidInput, "game ID is required")
	}
	return s.removeLink(ctx, func(ledger *models.Ledger) int {
		return ledger.FindActiveByGameID(gameID)
	})
}

// RemoveLinkByUsername soft-unlinks the active record for a wiki username.
func (s *Service) RemoveLinkByUsername(ctx context.Context, username string) (bool, error) {
	if username == "" {
		return false, dErrors.New(dErrors.CodeInvalidInput, "wiki username is required")
	}
	return s.removeLink(ctx, func(ledger *models.Ledger) int {
		return ledger.FindActiveByUsername(username)
	})
}

func (s *Service) removeLink(ctx context.Context, find func(*models.Ledger) int) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "bridge.remove_link")
	defer span.End()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	ledger, err := s.ledger.Load(ctx)
	if err != nil {
		s.logError(ctx, "load ledger for unlink", err)
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "could not read account ledger")
	}

	i := find(ledger)
	if i < 0 {
		return false, nil
	}

	ledger.Accounts[i].Linked = false

	if err := s.save(ctx, ledger); err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "could not persist unlink")
	}

	s.index.Invalidate()
	if s.metrics != nil {
		s.metrics.ObserveUnlink()
	}
	s.logInfo(ctx, "account link removed",
		"game_id", ledger.Accounts[i].GameID.String(), "wiki_username", ledger.Accounts[i].WikiUsername)
	return true, nil
}

// LookupUsername resolves the wiki account linked to a game identity.
func (s *Service) LookupUsername(ctx context.Context, gameID id.GameID) (string, bool, error) {
	index, err := s.index.Get(ctx)
	if err != nil {
		return "", false, dErrors.Wrap(err, dErrors.CodeInternal, "could not read account index")
	}
	username, ok := index.IDToUsername[gameID]
	return username, ok, nil
}

// LookupGameID resolves the game identity linked to a wiki account.
func (s *Service) LookupGameID(ctx context.Context, username string) (id.GameID, bool, error) {
	index, err := s.index.Get(ctx)
	if err != nil {
		return id.GameID{}, false, dErrors.Wrap(err, dErrors.CodeInternal, "could not read account index")
	}
	gameID, ok := index.UsernameToID[username]
	return gameID, ok, nil
}

// save persists the ledger and keeps the metrics gauge in step. Failures are
// logged with full detail here; callers surface only the closed result codes.
func (s *Service) save(ctx context.Context, ledger *models.Ledger) error {
	if err := s.ledger.Save(ctx, ledger); err != nil {
		s.logError(ctx, "ledger write failed", err)
		if s.metrics != nil {
			s.metrics.ObserveLedgerWrite("error")
		}
		return err
	}
	if s.metrics != nil {
		s.metrics.ObserveLedgerWrite("ok")
		active := 0
		for _, record := range ledger.Accounts {
			if record.Linked {
				active++
			}
		}
		s.metrics.SetActiveLinks(active)
	}
	return nil
}

func (s *Service) persistFailed(ctx context.Context, err error, msg string) (models.LinkResult, error) {
	s.logError(ctx, msg, err)
	s.observeLink(models.LinkPersistFailed)
	return models.LinkPersistFailed, nil
}

func conflictResult(ledger *models.Ledger, gameID id.GameID, username string) (models.LinkResult, bool) {
	if ledger.FindActiveByGameID(gameID) >= 0 {
		return models.LinkAlreadyLinkedByID, true
	}
	if ledger.FindActiveByUsername(username) >= 0 {
		return models.LinkAlreadyLinkedByUsername, true
	}
	return "", false
}

// monotonic keeps LastLink non-decreasing even if the wall clock stepped back.
func monotonic(now, previous int64) int64 {
	if now < previous {
		return previous
	}
	return now
}

func (s *Service) observeLink(result models.LinkResult) {
	if s.metrics != nil {
		s.metrics.ObserveLinkRequest(string(result))
	}
}

func (s *Service) observeRelink(result models.RelinkResult) {
	if s.metrics != nil {
		s.metrics.ObserveRelink(string(result))
	}
}

func (s *Service) logInfo(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}

func (s *Service) logError(ctx context.Context, msg string, err error, args ...any) {
	if s.logger != nil {
		s.logger.ErrorContext(ctx, msg, append(args, "error", err)...)
	}
}
