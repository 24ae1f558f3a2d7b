package verifier

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"wikibridge/internal/bridge/models"
	"wikibridge/internal/bridge/verifier/mocks"
	id "wikibridge/pkg/domain"
	dErrors "wikibridge/pkg/domain-errors"
)

func TestNewRequiresPageReader(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestSubpageTitle(t *testing.T) {
	wiki := mocks.NewMockPageReader(gomock.NewController(t))

	v, err := New(wiki)
	require.NoError(t, err)
	assert.Equal(t, "User:Alice/WikiCraft", v.SubpageTitle("Alice"))

	v, err = New(wiki, WithSubpage("Linking"))
	require.NoError(t, err)
	assert.Equal(t, "User:Alice/Linking", v.SubpageTitle("Alice"))
}

func TestVerifyShortCircuitsOnMissingSubpage(t *testing.T) {
	ctrl := gomock.NewController(t)
	wiki := mocks.NewMockPageReader(ctrl)
	v, err := New(wiki)
	require.NoError(t, err)

	// Only the existence check may run; creator and content checks must not
	// be invoked at all.
	wiki.EXPECT().PageExists(gomock.Any(), "User:Alice/WikiCraft").Return(false, nil)
	wiki.EXPECT().PageCreator(gomock.Any(), gomock.Any()).Times(0)
	wiki.EXPECT().PageText(gomock.Any(), gomock.Any()).Times(0)

	outcome, err := v.Verify(context.Background(), id.GameID(uuid.New()), "Alice")
	require.NoError(t, err)
	assert.Equal(t, models.VerificationSubpageNotFound, outcome)
}

func TestVerifyShortCircuitsOnCreatorMismatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	wiki := mocks.NewMockPageReader(ctrl)
	v, err := New(wiki)
	require.NoError(t, err)

	wiki.EXPECT().PageExists(gomock.Any(), "User:Alice/WikiCraft").Return(true, nil)
	wiki.EXPECT().PageCreator(gomock.Any(), "User:Alice/WikiCraft").Return("Mallory", nil)
	wiki.EXPECT().PageText(gomock.Any(), gomock.Any()).Times(0)

	outcome, err := v.Verify(context.Background(), id.GameID(uuid.New()), "Alice")
	require.NoError(t, err)
	assert.Equal(t, models.VerificationCreatorMismatch, outcome)
}

func TestVerifyRejectsContentWithoutIdentifier(t *testing.T) {
	ctrl := gomock.NewController(t)
	wiki := mocks.NewMockPageReader(ctrl)
	v, err := New(wiki)
	require.NoError(t, err)

	wiki.EXPECT().PageExists(gomock.Any(), "User:Alice/WikiCraft").Return(true, nil)
	wiki.EXPECT().PageCreator(gomock.Any(), "User:Alice/WikiCraft").Return("Alice", nil)
	wiki.EXPECT().PageText(gomock.Any(), "User:Alice/WikiCraft").Return("nothing useful here", nil)

	outcome, err := v.Verify(context.Background(), id.GameID(uuid.New()), "Alice")
	require.NoError(t, err)
	assert.Equal(t, models.VerificationIdentifierNotFound, outcome)
}

func TestVerifyPassesWhenAllChecksHold(t *testing.T) {
	ctrl := gomock.NewController(t)
	wiki := mocks.NewMockPageReader(ctrl)
	v, err := New(wiki)
	require.NoError(t, err)

	gameID := id.GameID(uuid.New())
	wiki.EXPECT().PageExists(gomock.Any(), "User:Alice/WikiCraft").Return(true, nil)
	wiki.EXPECT().PageCreator(gomock.Any(), "User:Alice/WikiCraft").Return("Alice", nil)
	wiki.EXPECT().PageText(gomock.Any(), "User:Alice/WikiCraft").Return("my id is "+gameID.String(), nil)

	outcome, err := v.Verify(context.Background(), gameID, "Alice")
	require.NoError(t, err)
	assert.Equal(t, models.Verified, outcome)
}

func TestVerifySurfacesTransientErrorsDistinctly(t *testing.T) {
	ctrl := gomock.NewController(t)
	wiki := mocks.NewMockPageReader(ctrl)
	v, err := New(wiki)
	require.NoError(t, err)

	// A wiki timeout must never be folded into a not-found outcome.
	wiki.EXPECT().PageExists(gomock.Any(), gomock.Any()).Return(false, errors.New("request timed out"))

	outcome, err := v.Verify(context.Background(), id.GameID(uuid.New()), "Alice")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	assert.NotEqual(t, models.VerificationSubpageNotFound, outcome)
}
