package lockinapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// SessionLifetime is how long a refreshed access token is trusted.
const SessionLifetime = 30 * 24 * time.Hour

// ErrSessionExpired is returned when the session cannot be refreshed.
var ErrSessionExpired = errors.New("session expired (run: lockin login)")

// refreshSource exchanges a refresh token for a new access token at the
// backend's refresh endpoint.
type refreshSource struct {
	ctx          context.Context
	url          string
	refreshToken string
	httpClient   *http.Client
	onRefresh    func(*oauth2.Token)
}

func (s *refreshSource) Token() (*oauth2.Token, error) {
	if s.url == "" || s.refreshToken == "" {
		return nil, ErrSessionExpired
	}

	body, err := json.Marshal(map[string]string{"refresh_token": s.refreshToken})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(s.ctx, APITimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	defer resp.Body.Close()

	if err := googleapi.CheckResponse(resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	if out.AccessToken == "" {
		return nil, ErrSessionExpired
	}

	token := &oauth2.Token{
		AccessToken:  out.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: s.refreshToken,
		Expiry:       time.Now().Add(SessionLifetime),
	}
	if s.onRefresh != nil {
		s.onRefresh(token)
	}
	return token, nil
}

// TokenSource returns a source that serves stored until it expires and
// then refreshes it through refreshURL. onRefresh, if set, receives every
// refreshed token so it can be persisted.
func TokenSource(ctx context.Context, stored *oauth2.Token, refreshURL string, onRefresh func(*oauth2.Token)) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(stored, &refreshSource{
		ctx:          ctx,
		url:          refreshURL,
		refreshToken: stored.RefreshToken,
		httpClient:   http.DefaultClient,
		onRefresh:    onRefresh,
	})
}
