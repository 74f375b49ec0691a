package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeKeycloak serves the token and user-search endpoints. A zero
// tokenTTL expires every issued token immediately, forcing a refresh
// on each request.
type fakeKeycloak struct {
	users    map[string]User
	tokenTTL int
}

func (f *fakeKeycloak) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/realms/bench-archive/protocol/openid-connect/token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(TokenResponse{
			AccessToken: "test-token",
			ExpiresIn:   f.tokenTTL,
			TokenType:   "Bearer",
		})
	})
	mux.HandleFunc("/admin/realms/bench-archive/users", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		result := []User{}
		if user, ok := f.users[r.URL.Query().Get("username")]; ok {
			result = append(result, user)
		}
		json.NewEncoder(w).Encode(result)
	})
	return mux
}

func newTestClient(t *testing.T, fake *fakeKeycloak) *KeycloakClient {
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)
	return NewKeycloakClient(srv.URL, "bench-archive", "archive-api", "secret")
}

// The empty username is the "no owner" sentinel and resolves without an
// identity-provider round trip.
func TestValidateUserAcceptsNoOwnerSentinel(t *testing.T) {
	k := NewKeycloakClient("http://unreachable.invalid", "bench-archive", "archive-api", "secret")

	canonical, err := k.ValidateUser(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, canonical)
}

func TestValidateUserResolvesKnownUser(t *testing.T) {
	k := newTestClient(t, &fakeKeycloak{
		users:    map[string]User{"drb": {ID: "1", Username: "drb", Enabled: true}},
		tokenTTL: 300,
	})

	canonical, err := k.ValidateUser(context.Background(), "drb")
	require.NoError(t, err)
	assert.Equal(t, "drb", canonical)
}

func TestValidateUserRejectsUnknownUser(t *testing.T) {
	k := newTestClient(t, &fakeKeycloak{tokenTTL: 300})

	_, err := k.ValidateUser(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrUnknownUser)
}

func TestValidateUserRejectsDisabledUser(t *testing.T) {
	k := newTestClient(t, &fakeKeycloak{
		users:    map[string]User{"drb": {ID: "1", Username: "drb", Enabled: false}},
		tokenTTL: 300,
	})

	_, err := k.ValidateUser(context.Background(), "drb")
	assert.ErrorIs(t, err, ErrUnknownUser)
}

// Concurrent validations while every token expires immediately: each
// call refreshes the cached token while others are reading theirs, so
// the race detector flags any lock-free access to the token fields.
func TestValidateUserConcurrentTokenRefresh(t *testing.T) {
	k := newTestClient(t, &fakeKeycloak{
		users:    map[string]User{"drb": {ID: "1", Username: "drb", Enabled: true}},
		tokenTTL: 0,
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			canonical, err := k.ValidateUser(context.Background(), "drb")
			assert.NoError(t, err)
			assert.Equal(t, "drb", canonical)
		}()
	}
	wg.Wait()
}
