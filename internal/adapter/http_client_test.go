package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mknoufi/stockverify/internal/config"
	"github.com/mknoufi/stockverify/internal/logger"
	"github.com/mknoufi/stockverify/models"
)

type fakeTokenSource struct {
	token      string
	refreshed  string
	refreshErr error
	refreshes  int
}

func (s *fakeTokenSource) Token() string { return s.token }

func (s *fakeTokenSource) Refresh(context.Context) (string, error) {
	s.refreshes++
	if s.refreshErr != nil {
		return "", s.refreshErr
	}
	s.token = s.refreshed
	return s.refreshed, nil
}

func newTestClient(t *testing.T, baseURL string, tokens TokenSource) RemoteClient {
	t.Helper()
	client, err := NewHTTPRemoteClient(config.Adapter{
		BaseURL:        baseURL,
		RequestTimeout: 2 * time.Second,
	}, tokens, logger.Nop())
	require.NoError(t, err)
	return client
}

func TestHTTPRemoteClient_CreateSession(t *testing.T) {
	var gotIdempotencyKey, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/sessions", r.URL.Path)
		gotIdempotencyKey = r.Header.Get("Idempotency-Key")
		gotAuth = r.Header.Get("Authorization")

		var m models.SessionMutation
		require.NoError(t, json.NewDecoder(r.Body).Decode(&m))

		m.Session.Version = 1
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(m.Session)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, &fakeTokenSource{token: "tok-1"})

	got, err := client.CreateSession(context.Background(), "queue-item-1", models.SessionMutation{
		Session: models.Session{ID: "s-1", WarehouseID: "wh-1", Status: models.SessionOpen},
	})

	require.NoError(t, err)
	assert.Equal(t, "s-1", got.ID)
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, "queue-item-1", gotIdempotencyKey)
	assert.Equal(t, "Bearer tok-1", gotAuth)
}

func TestHTTPRemoteClient_RefreshAndReplayOn401(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(models.Session{ID: "s-1", Version: 2})
	}))
	defer srv.Close()

	tokens := &fakeTokenSource{token: "stale", refreshed: "fresh"}
	client := newTestClient(t, srv.URL, tokens)

	got, err := client.CreateSession(context.Background(), "queue-item-2", models.SessionMutation{
		Session: models.Session{ID: "s-1"},
	})

	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, 1, tokens.refreshes)
	assert.Equal(t, 2, calls)
}

func TestHTTPRemoteClient_401SurfacesWhenRefreshFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	tokens := &fakeTokenSource{token: "stale", refreshErr: errors.New("refresh endpoint down")}
	client := newTestClient(t, srv.URL, tokens)

	_, err := client.CreateSession(context.Background(), "queue-item-3", models.SessionMutation{
		Session: models.Session{ID: "s-1"},
	})

	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 1, tokens.refreshes)
}

func TestHTTPRemoteClient_ConflictCarriesRemoteBody(t *testing.T) {
	remote := models.CountLine{ID: "cl-1", SessionID: "s-1", ItemSKU: "SKU-9", CountedQty: 12, Version: 4}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(remote)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, &fakeTokenSource{token: "tok"})

	_, err := client.UpdateCountLine(context.Background(), "queue-item-4", models.CountLineMutation{
		Line: models.CountLine{ID: "cl-1", CountedQty: 15},
	})

	require.ErrorIs(t, err, ErrConflict)

	var conflictErr *ConflictError
	require.ErrorAs(t, err, &conflictErr)

	var got models.CountLine
	require.NoError(t, json.Unmarshal(conflictErr.Remote, &got))
	assert.Equal(t, remote, got)
}

func TestHTTPRemoteClient_ThrottledHonorsRetryAfter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, &fakeTokenSource{token: "tok"})

	_, err := client.CreateUnknownItem(context.Background(), "queue-item-5", models.UnknownItemMutation{
		Item: models.UnknownItem{ID: "u-1", Barcode: "123"},
	})

	require.ErrorIs(t, err, ErrThrottled)

	var throttled *ThrottledError
	require.ErrorAs(t, err, &throttled)
	assert.Equal(t, 7*time.Second, throttled.RetryAfter)
}

func TestHTTPRemoteClient_ServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, &fakeTokenSource{token: "tok"})

	_, err := client.SearchItems(context.Background(), "widget")
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, KindTransient, Classify(err))
}

func TestHTTPRemoteClient_ValidationErrorIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"counted_qty must be >= 0"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, &fakeTokenSource{token: "tok"})

	_, err := client.CreateCountLine(context.Background(), "queue-item-6", models.CountLineMutation{
		Line: models.CountLine{SessionID: "s-1", ItemSKU: "SKU-1", CountedQty: -1},
	})

	require.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, KindPermanent, Classify(err))

	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, http.StatusUnprocessableEntity, rejected.StatusCode)
}

func TestHTTPRemoteClient_NetworkFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused from here on

	client := newTestClient(t, srv.URL, &fakeTokenSource{token: "tok"})

	_, err := client.SearchItems(context.Background(), "widget")
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, KindTransient, Classify(err))
}

func TestTokenExpired(t *testing.T) {
	// The client never verifies signatures, any signing key works here.
	expired := makeJWT(t, time.Now().Add(-time.Hour))
	fresh := makeJWT(t, time.Now().Add(time.Hour))

	assert.True(t, tokenExpired(expired, time.Now()))
	assert.False(t, tokenExpired(fresh, time.Now()))
	assert.False(t, tokenExpired("not-a-jwt", time.Now()))
}

func makeJWT(t *testing.T, exp time.Time) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).
		SignedString([]byte("test-key"))
	require.NoError(t, err)
	return signed
}
