// Package verifier proves that a claimed wiki username is controlled by the
// same person as the requesting game identity. The proof is a trust bootstrap:
// the user pastes their own game identifier into a wiki subpage only they can
// have created, and the wiki's page-creation attribution does the rest.
package verifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"wikibridge/internal/bridge/models"
	id "wikibridge/pkg/domain"
	dErrors "wikibridge/pkg/domain-errors"
)

//go:generate mockgen -source=verifier.go -destination=mocks/mocks.go -package=mocks PageReader

// DefaultSubpage is the convention-based subpage name checked under the
// user's wiki page.
const DefaultSubpage = "WikiCraft"

// PageReader defines the read-only wiki collaborator the verifier consumes.
// Implementations perform network calls and must honor context deadlines.
type PageReader interface {
	// PageExists reports whether the page with the given title exists.
	PageExists(ctx context.Context, title string) (bool, error)

	// PageCreator returns the username that created the page.
	PageCreator(ctx context.Context, title string) (string, error)

	// PageText returns the current content of the page, or "" when the page
	// has no content.
	PageText(ctx context.Context, title string) (string, error)
}

// Verifier validates a proposed link against the user's ownership subpage.
type Verifier struct {
	wiki    PageReader
	subpage string
	logger  *slog.Logger
}

type Option func(*Verifier)

func WithLogger(logger *slog.Logger) Option {
	return func(v *Verifier) {
		v.logger = logger
	}
}

// WithSubpage overrides the convention-based subpage name.
func WithSubpage(name string) Option {
	return func(v *Verifier) {
		if name != "" {
			v.subpage = name
		}
	}
}

func New(wiki PageReader, opts ...Option) (*Verifier, error) {
	if wiki == nil {
		return nil, fmt.Errorf("page reader is required")
	}
	v := &Verifier{
		wiki:    wiki,
		subpage: DefaultSubpage,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// SubpageTitle returns the wiki title of the ownership subpage for a username.
func (v *Verifier) SubpageTitle(username string) string {
	return "User:" + username + "/" + v.subpage
}

// Verify runs the three ownership checks in order: existence, creator,
// content. It short-circuits on the first failing check so at most one
// unnecessary wiki call is ever made. A non-nil error means the wiki could
// not be consulted (timeout, unreachable) and the outcome is unknown; it is
// never folded into a not-found result.
func (v *Verifier) Verify(ctx context.Context, gameID id.GameID, username string) (models.VerificationOutcome, error) {
	title := v.SubpageTitle(username)

	exists, err := v.wiki.PageExists(ctx, title)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "could not check subpage existence")
	}
	if !exists {
		v.log(ctx, "ownership subpage not found", "title", title)
		return models.VerificationSubpageNotFound, nil
	}

	creator, err := v.wiki.PageCreator(ctx, title)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "could not check subpage creator")
	}
	if creator != username {
		// A third party created the page; it cannot prove ownership.
		v.log(ctx, "subpage creator mismatch", "title", title, "creator", creator)
		return models.VerificationCreatorMismatch, nil
	}

	text, err := v.wiki.PageText(ctx, title)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "could not read subpage content")
	}
	if !strings.Contains(text, gameID.String()) {
		v.log(ctx, "identifier not present on subpage", "title", title)
		return models.VerificationIdentifierNotFound, nil
	}

	return models.Verified, nil
}

func (v *Verifier) log(ctx context.Context, msg string, args ...any) {
	if v.logger != nil {
		v.logger.InfoContext(ctx, msg, args...)
	}
}
