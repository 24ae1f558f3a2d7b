package handler

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"wikibridge/internal/bridge/models"
	id "wikibridge/pkg/domain"
	dErrors "wikibridge/pkg/domain-errors"
	"wikibridge/pkg/platform/httputil"
	request "wikibridge/pkg/platform/middleware/request"
)

// Service defines the interface for account bridge operations.
// Returns domain results, not HTTP response DTOs.
type Service interface {
	RequestLink(ctx context.Context, gameID id.GameID, username string) (models.LinkResult, error)
	RelinkAccount(ctx context.Context, gameID id.GameID) (models.RelinkResult, error)
	RemoveLinkByID(ctx context.Context, gameID id.GameID) (bool, error)
	RemoveLinkByUsername(ctx context.Context, username string) (bool, error)
	LookupUsername(ctx context.Context, gameID id.GameID) (string, bool, error)
	LookupGameID(ctx context.Context, username string) (id.GameID, bool, error)
}

// CooldownTracker bounds per-identity request frequency. Link, relink and
// unlink requests share the same table: all of them act against the wiki.
type CooldownTracker interface {
	OnCooldown(gameID id.GameID) bool
	Remaining(gameID id.GameID) time.Duration
	Mark(gameID id.GameID)
}

// CooldownRecorder counts requests rejected by the cooldown.
type CooldownRecorder interface {
	ObserveCooldownHit()
}

type Handler struct {
	service    Service
	cooldowns  CooldownTracker
	subpageURL func(username string) string
	logger     *slog.Logger
	metrics    CooldownRecorder
}

type Option func(*Handler)

func WithMetrics(metrics CooldownRecorder) Option {
	return func(h *Handler) {
		h.metrics = metrics
	}
}

func New(service Service, cooldowns CooldownTracker, subpageURL func(string) string, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		service:    service,
		cooldowns:  cooldowns,
		subpageURL: subpageURL,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the public bridge routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/bridge/links", h.HandleRequestLink)
	r.Post("/bridge/relink", h.HandleRelink)
	r.Get("/bridge/links/game/{gameID}", h.HandleLookupByGameID)
	r.Get("/bridge/links/wiki/{username}", h.HandleLookupByUsername)
}

// RegisterAdmin mounts the privileged unlink routes; the caller wraps them in
// the admin token middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Delete("/bridge/links/game/{gameID}", h.HandleUnlinkByGameID)
	r.Delete("/bridge/links/wiki/{username}", h.HandleUnlinkByUsername)
}

// HandleRequestLink links a game identity to a wiki account after ownership
// verification.
func (h *Handler) HandleRequestLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, err := httputil.Decode[LinkRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	gameID, err := id.ParseGameID(req.GameID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.WikiUsername == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "wiki_username is required"))
		return
	}

	if h.rejectOnCooldown(w, gameID) {
		return
	}
	h.cooldowns.Mark(gameID)

	result, err := h.service.RequestLink(ctx, gameID, req.WikiUsername)
	if err != nil {
		h.logger.ErrorContext(ctx, "link request failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, linkResultStatus(result), &LinkResponse{
		Result:       string(result),
		GameID:       gameID.String(),
		WikiUsername: req.WikiUsername,
		Guidance:     h.guidance(result, req.WikiUsername),
	})
}

// HandleRelink reactivates a historical link without re-verification.
func (h *Handler) HandleRelink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, err := httputil.Decode[RelinkRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	gameID, err := id.ParseGameID(req.GameID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if h.rejectOnCooldown(w, gameID) {
		return
	}
	h.cooldowns.Mark(gameID)

	result, err := h.service.RelinkAccount(ctx, gameID)
	if err != nil {
		h.logger.ErrorContext(ctx, "relink failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, relinkResultStatus(result), &LinkResponse{
		Result: string(result),
		GameID: gameID.String(),
	})
}

// HandleLookupByGameID resolves the wiki account linked to a game identity.
func (h *Handler) HandleLookupByGameID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	gameID, err := id.ParseGameID(chi.URLParam(r, "gameID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	username, ok, err := h.service.LookupUsername(ctx, gameID)
	if err != nil {
		h.logger.ErrorContext(ctx, "lookup by game id failed", "error", err, "request_id", request.GetRequestID(ctx))
		httputil.WriteError(w, err)
		return
	}
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no active link for game id"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &LookupResponse{
		GameID:       gameID.String(),
		WikiUsername: username,
	})
}

// HandleLookupByUsername resolves the game identity linked to a wiki account.
func (h *Handler) HandleLookupByUsername(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := chi.URLParam(r, "username")

	gameID, ok, err := h.service.LookupGameID(ctx, username)
	if err != nil {
		h.logger.ErrorContext(ctx, "lookup by username failed", "error", err, "request_id", request.GetRequestID(ctx))
		httputil.WriteError(w, err)
		return
	}
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no active link for wiki username"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &LookupResponse{
		GameID:       gameID.String(),
		WikiUsername: username,
	})
}

// HandleUnlinkByGameID soft-unlinks by game identity. Idempotent.
func (h *Handler) HandleUnlinkByGameID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	gameID, err := id.ParseGameID(chi.URLParam(r, "gameID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if h.rejectOnCooldown(w, gameID) {
		return
	}
	h.cooldowns.Mark(gameID)

	removed, err := h.service.RemoveLinkByID(ctx, gameID)
	if err != nil {
		h.logger.ErrorContext(ctx, "unlink by game id failed", "error", err, "request_id", request.GetRequestID(ctx))
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &UnlinkResponse{Removed: removed})
}

// HandleUnlinkByUsername soft-unlinks by wiki username. Idempotent. The
// cooldown table is keyed by game identity, so the username is resolved first;
// a username with no active link has no identity to throttle and falls
// through to the no-op unlink.
func (h *Handler) HandleUnlinkByUsername(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := chi.URLParam(r, "username")

	gameID, ok, err := h.service.LookupGameID(ctx, username)
	if err != nil {
		h.logger.ErrorContext(ctx, "unlink by username failed", "error", err, "request_id", request.GetRequestID(ctx))
		httputil.WriteError(w, err)
		return
	}
	if ok {
		if h.rejectOnCooldown(w, gameID) {
			return
		}
		h.cooldowns.Mark(gameID)
	}

	removed, err := h.service.RemoveLinkByUsername(ctx, username)
	if err != nil {
		h.logger.ErrorContext(ctx, "unlink by username failed", "error", err, "request_id", request.GetRequestID(ctx))
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &UnlinkResponse{Removed: removed})
}

func (h *Handler) rejectOnCooldown(w http.ResponseWriter, gameID id.GameID) bool {
	if !h.cooldowns.OnCooldown(gameID) {
		return false
	}
	if h.metrics != nil {
		h.metrics.ObserveCooldownHit()
	}
	retryAfter := int(math.Ceil(h.cooldowns.Remaining(gameID).Seconds()))
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &CooldownResponse{
		Error:             string(dErrors.CodeRateLimited),
		RetryAfterSeconds: retryAfter,
	})
	return true
}

// guidance returns the subpage URL for verification failures so the user
// knows which page to create or fix.
func (h *Handler) guidance(result models.LinkResult, username string) string {
	switch result {
	case models.LinkSubpageNotFound, models.LinkCreatorMismatch, models.LinkIdentifierNotFound:
		if h.subpageURL != nil {
			return h.subpageURL(username)
		}
	}
	return ""
}

func linkResultStatus(result models.LinkResult) int {
	switch result {
	case models.LinkSuccess:
		return http.StatusCreated
	case models.LinkAlreadyLinkedByID, models.LinkAlreadyLinkedByUsername:
		return http.StatusConflict
	case models.LinkSubpageNotFound, models.LinkCreatorMismatch, models.LinkIdentifierNotFound:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func relinkResultStatus(result models.RelinkResult) int {
	switch result {
	case models.RelinkSuccess:
		return http.StatusOK
	case models.RelinkAlreadyLinked:
		return http.StatusConflict
	case models.RelinkNoPriorRecord:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
