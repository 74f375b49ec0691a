// internal/common/auth/keycloak.go
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// ErrUnknownUser is returned when the identity provider has no enabled
// account for the requested username.
var ErrUnknownUser = errors.New("unknown or unauthorized user")

// KeycloakClient resolves dataset-owner usernames against Keycloak.
// It implements validation.UserValidator.
type KeycloakClient struct {
	baseURL      string
	realm        string
	clientID     string
	clientSecret string
	httpClient   *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// User represents a user record returned by Keycloak.
type User struct {
	ID       string `json:"id,omitempty"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Enabled  bool   `json:"enabled"`
}

// TokenResponse holds the response from Keycloak's token endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
}

// NewKeycloakClient creates a new instance of KeycloakClient.
func NewKeycloakClient(baseURL, realm, clientID, clientSecret string) *KeycloakClient {
	return &KeycloakClient{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		realm:        realm,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// ValidateUser resolves username to its canonical form. The empty
// username is the "no owner" sentinel meaning public datasets only,
// accepted without an identity-provider round trip.
func (k *KeycloakClient) ValidateUser(ctx context.Context, username string) (string, error) {
	if username == "" {
		return "", nil
	}

	user, err := k.getUserByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if user == nil || !user.Enabled {
		return "", ErrUnknownUser
	}
	return user.Username, nil
}

// getAccessToken returns a valid access token, fetching a new one via
// the client credentials flow when the cached token has expired. The
// token value is returned under the lock; callers must not read the
// cached fields directly.
func (k *KeycloakClient) getAccessToken(ctx context.Context) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.tokenExpiry.After(time.Now()) && k.accessToken != "" {
		return k.accessToken, nil
	}

	tokenURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", k.baseURL, k.realm)

	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("client_id", k.clientID)
	data.Set("client_secret", k.clientSecret)

	req, err := http.NewRequestWithContext(ctx, "POST", tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("keycloak token request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	k.accessToken = tokenResp.AccessToken
	k.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)

	return k.accessToken, nil
}

// getUserByUsername retrieves a user by exact username. A nil user with
// nil error means the username does not exist.
func (k *KeycloakClient) getUserByUsername(ctx context.Context, username string) (*User, error) {
	token, err := k.getAccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate with keycloak: %w", err)
	}

	searchURL := fmt.Sprintf("%s/admin/realms/%s/users?username=%s&exact=true", k.baseURL, k.realm, url.QueryEscape(username))

	req, err := http.NewRequestWithContext(ctx, "GET", searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user search request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute user search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("keycloak user search failed with status %d: %s", resp.StatusCode, string(body))
	}

	var users []User
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return nil, fmt.Errorf("failed to decode user search response: %w", err)
	}

	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}
