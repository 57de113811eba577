package recsync

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/platform/config"
	dErrors "backoffice/pkg/domain-errors"
)

func newTestClient(setURL, removeURL string) *Client {
	return New(config.Recommend{
		SetURL:    setURL,
		RemoveURL: removeURL,
		Token:     "secret",
		Timeout:   2 * time.Second,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNotifySetSendsPayload(t *testing.T) {
	var gotBody map[string][]string
	var gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Token")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "")
	err := c.NotifySet(context.Background(), []string{"p1", "p2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, gotBody["post_ids"])
	assert.Equal(t, "secret", gotToken)
}

func TestNotifyNon2xxIsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient("", srv.URL)
	err := c.NotifyRemove(context.Background(), []string{"p1"})
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeUpstream))
}

func TestNotifyUnreachableIsUpstreamError(t *testing.T) {
	// Closed server: connection refused.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := newTestClient(url, "")
	err := c.NotifySet(context.Background(), []string{"p1"})
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeUpstream))
}

func TestNotifySkipsWhenUnconfigured(t *testing.T) {
	c := newTestClient("", "")
	assert.NoError(t, c.NotifySet(context.Background(), []string{"p1"}))
	assert.NoError(t, c.NotifyRemove(context.Background(), []string{"p1"}))
}

func TestNotifySkipsEmptyBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for empty batch")
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, srv.URL)
	assert.NoError(t, c.NotifySet(context.Background(), nil))
}
