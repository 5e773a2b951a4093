package netsuite

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TokenResponse is a NetSuite OAuth2 token grant. Callers printing it
// must stick to the safe fields; the tokens themselves never belong in
// logs or stdout.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    string `json:"expires_in"`
	Scope        string `json:"scope"`
}

// ExchangeAuthCode trades an OAuth authorization code for an access and
// refresh token pair. One-time bootstrap flow: the refresh token it
// yields is what the client runs on afterwards.
func ExchangeAuthCode(ctx context.Context, accountID string, clientID string, clientSecret string, redirectURI string, code string) (*TokenResponse, error) {
	host := strings.ReplaceAll(strings.ToLower(accountID), "_", "-")
	tokenURL := fmt.Sprintf("https://%s.suitetalk.api.netsuite.com%s", host, tokenPath)

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	basic := base64.StdEncoding.EncodeToString([]byte(clientID + ":" + clientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	httpClient := &http.Client{Timeout: 30 * time.Second}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token exchange request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("token exchange failed: HTTP %d - %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed TokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("token exchange response malformed: %w", err)
	}
	return &parsed, nil
}
