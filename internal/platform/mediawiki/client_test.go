package mediawiki

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wikibridge/internal/sentinel"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, time.Second)
	require.NoError(t, err)
	return c
}

func TestNewRequiresAPIURL(t *testing.T) {
	_, err := New("", time.Second)
	assert.Error(t, err)
}

func TestPageExists(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "query", r.URL.Query().Get("action"))
		assert.Equal(t, "2", r.URL.Query().Get("formatversion"))
		switch r.URL.Query().Get("titles") {
		case "User:Alice/WikiCraft":
			w.Write([]byte(`{"query":{"pages":[{"title":"User:Alice/WikiCraft"}]}}`))
		default:
			w.Write([]byte(`{"query":{"pages":[{"title":"User:Bob/WikiCraft","missing":true}]}}`))
		}
	})

	exists, err := c.PageExists(context.Background(), "User:Alice/WikiCraft")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = c.PageExists(context.Background(), "User:Bob/WikiCraft")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPageCreator(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "newer", r.URL.Query().Get("rvdir"))
		assert.Equal(t, "1", r.URL.Query().Get("rvlimit"))
		w.Write([]byte(`{"query":{"pages":[{"title":"User:Alice/WikiCraft","revisions":[{"user":"Alice"}]}]}}`))
	})

	creator, err := c.PageCreator(context.Background(), "User:Alice/WikiCraft")
	require.NoError(t, err)
	assert.Equal(t, "Alice", creator)
}

func TestPageCreatorMissingPage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"query":{"pages":[{"title":"User:Bob/WikiCraft","missing":true}]}}`))
	})

	_, err := c.PageCreator(context.Background(), "User:Bob/WikiCraft")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestPageText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "main", r.URL.Query().Get("rvslots"))
		w.Write([]byte(`{"query":{"pages":[{"title":"User:Alice/WikiCraft","revisions":[{"slots":{"main":{"content":"my id is 1234"}}}]}]}}`))
	})

	text, err := c.PageText(context.Background(), "User:Alice/WikiCraft")
	require.NoError(t, err)
	assert.Equal(t, "my id is 1234", text)
}

func TestServerErrorIsTransient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.PageExists(context.Background(), "User:Alice/WikiCraft")
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
}

func TestTimeoutIsTransientNotMissing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"query":{"pages":[]}}`))
	})
	c.http.Timeout = 50 * time.Millisecond

	exists, err := c.PageExists(context.Background(), "User:Alice/WikiCraft")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sentinel.ErrUnavailable))
	assert.False(t, exists)
}
