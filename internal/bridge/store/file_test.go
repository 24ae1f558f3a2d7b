package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wikibridge/internal/bridge/models"
	id "wikibridge/pkg/domain"
)

func newTestStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "account_bridge.json")
	s, err := NewFileStore(path)
	require.NoError(t, err)
	return s, path
}

func TestNewFileStoreRequiresPath(t *testing.T) {
	_, err := NewFileStore("")
	assert.Error(t, err)
}

func TestLoadBootstrapsEmptyLedger(t *testing.T) {
	s, path := newTestStore(t)

	ledger, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ledger.Accounts)

	// The file now exists with an empty accounts array.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"accounts": []}`, string(raw))

	// Bootstrap is idempotent.
	ledger, err = s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ledger.Accounts)
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	s, path := newTestStore(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := s.Load(context.Background())
	assert.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s, path := newTestStore(t)
	gameID := id.GameID(uuid.New())

	ledger := &models.Ledger{Accounts: []models.LinkRecord{
		{GameID: gameID, WikiUsername: "Alice", Linked: true, LastLink: 1700000000000},
		{GameID: id.GameID(uuid.New()), WikiUsername: "Bob", Linked: false, LastLink: 1600000000000, LastEdit: 42},
	}}
	require.NoError(t, s.Save(context.Background(), ledger))

	loaded, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ledger.Accounts, loaded.Accounts)

	// save(load()) is a no-op on the serialized document.
	before, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), loaded))
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestPersistedWireFormat(t *testing.T) {
	s, path := newTestStore(t)
	gameID := id.GameID(uuid.MustParse("01234567-89ab-cdef-0123-456789abcdef"))

	require.NoError(t, s.Save(context.Background(), &models.Ledger{Accounts: []models.LinkRecord{
		{GameID: gameID, WikiUsername: "Alice", Linked: true, LastLink: 123, LastEdit: 0},
	}}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string][]map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Len(t, doc["accounts"], 1)
	account := doc["accounts"][0]
	assert.Equal(t, "01234567-89ab-cdef-0123-456789abcdef", account["uuid"])
	assert.Equal(t, "Alice", account["wiki_account"])
	assert.Equal(t, true, account["linked"])
	assert.EqualValues(t, 123, account["last_link"])
	assert.EqualValues(t, 0, account["last_edit"])
}

func TestFinders(t *testing.T) {
	s, _ := newTestStore(t)
	active := id.GameID(uuid.New())
	inactive := id.GameID(uuid.New())

	require.NoError(t, s.Save(context.Background(), &models.Ledger{Accounts: []models.LinkRecord{
		{GameID: active, WikiUsername: "Alice", Linked: true},
		{GameID: inactive, WikiUsername: "Bob", Linked: false},
	}}))

	record, err := s.FindByGameID(context.Background(), active)
	require.NoError(t, err)
	assert.Equal(t, "Alice", record.WikiUsername)

	_, err = s.FindByGameID(context.Background(), inactive)
	assert.ErrorIs(t, err, ErrNotFound)

	record, err = s.FindByUsername(context.Background(), "Alice")
	require.NoError(t, err)
	assert.Equal(t, active, record.GameID)

	_, err = s.FindByUsername(context.Background(), "Bob")
	assert.ErrorIs(t, err, ErrNotFound)
}
