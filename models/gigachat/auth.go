package gigachat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Desarso/datarex/models"
	"github.com/google/uuid"
)

// tokenRefreshMargin renews the access token slightly before it expires.
const tokenRefreshMargin = time.Minute

// accessToken returns a cached OAuth token, fetching a new one when the cached
// token is missing or about to expire.
func (m *Model) accessToken(ctx context.Context) (string, error) {
	m.tokenMu.Lock()
	defer m.tokenMu.Unlock()

	if m.token != "" && time.Until(m.tokenExpiry) > tokenRefreshMargin {
		return m.token, nil
	}

	form := url.Values{}
	form.Set("scope", m.cfg.Scope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.AuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Basic "+m.cfg.AuthKey)
	req.Header.Set("RqUID", uuid.NewString())

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &models.APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tok TokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("token response did not contain an access token")
	}

	m.token = tok.AccessToken
	m.tokenExpiry = time.UnixMilli(tok.ExpiresAt)
	return m.token, nil
}
