// Package netsuite implements the invoice feed collaborator: a SuiteQL
// REST client that mints access tokens from a stable refresh token and
// maps open-invoice rows into the canonical model.
package netsuite

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tanmayk04/netsuite-mcp-finance-assistant/config"
)

const (
	tokenPath   = "/services/rest/auth/oauth2/v1/token"
	suiteQLPath = "/services/rest/query/v1/suiteql"

	// SuiteQL enforces a 1..1000 row limit per call.
	minSuiteQLLimit = 1
	maxSuiteQLLimit = 1000
)

type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	refreshToken string
	basicAuth    string
	http         *http.Client
	logger       *logrus.Logger

	mu          sync.Mutex
	accessToken string
}

// NewClient builds a SuiteQL client for one NetSuite account. Account id
// maps to the API host the NetSuite way: lowercased, underscores to
// hyphens (3392496_SB2 -> 3392496-sb2). NETSUITE_BASE_URL overrides the
// derived base URL.
func NewClient(creds config.NetSuiteCredentials) *Client {
	host := strings.ReplaceAll(strings.ToLower(creds.AccountID), "_", "-")
	baseURL := config.GetEnvOrDefault("NETSUITE_BASE_URL",
		fmt.Sprintf("https://%s.suitetalk.api.netsuite.com", host))

	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     creds.ClientID,
		clientSecret: creds.ClientSecret,
		refreshToken: creds.RefreshToken,
		basicAuth: base64.StdEncoding.EncodeToString(
			[]byte(creds.ClientID + ":" + creds.ClientSecret)),
		http:   &http.Client{Timeout: 120 * time.Second},
		logger: config.GetLogger(),
	}
}

// NewClientFromEnv reads NETSUITE_* credentials from env.
func NewClientFromEnv() (*Client, error) {
	creds, err := config.GetNetSuiteCredentials()
	if err != nil {
		return nil, err
	}
	return NewClient(creds), nil
}

// refreshAccessToken always mints a NEW access token from the refresh
// token. Access tokens expire after about an hour; the refresh token is
// the stable credential.
func (c *Client) refreshAccessToken(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", c.refreshToken)
	form.Set("scope", "rest_webservices")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tokenPath,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Basic "+c.basicAuth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("netsuite token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	c.logger.WithFields(logrus.Fields{
		"module":   "netsuite",
		"took":     time.Since(started).String(),
		"status":   resp.StatusCode,
		"endpoint": "token",
	}).Debug("token request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("netsuite token error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("netsuite token response malformed: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("netsuite token response missing access_token")
	}

	c.mu.Lock()
	c.accessToken = parsed.AccessToken
	c.mu.Unlock()
	return parsed.AccessToken, nil
}

func (c *Client) cachedToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

// do performs an authenticated request, refreshing the token and
// retrying exactly once on 401. The core never retries beyond that;
// anything else propagates to the caller.
func (c *Client) do(ctx context.Context, method string, path string, params url.Values, payload any) (*http.Response, error) {
	token := c.cachedToken()
	if token == "" {
		fresh, err := c.refreshAccessToken(ctx)
		if err != nil {
			return nil, err
		}
		token = fresh
	}

	resp, err := c.send(ctx, method, path, params, payload, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	// Token rejected: refresh once and retry.
	resp.Body.Close()
	c.logger.WithFields(logrus.Fields{
		"module": "netsuite",
		"path":   path,
	}).Warn("401 received, refreshing token and retrying once")

	token, err = c.refreshAccessToken(ctx)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, method, path, params, payload, token)
}

func (c *Client) send(ctx context.Context, method string, path string, params url.Values, payload any, token string) (*http.Response, error) {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Prefer", "transient")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("netsuite request failed: %w", err)
	}
	c.logger.WithFields(logrus.Fields{
		"module": "netsuite",
		"method": method,
		"path":   path,
		"took":   time.Since(started).String(),
		"status": resp.StatusCode,
	}).Debug("request")
	return resp, nil
}

// SuiteQLResult is the raw query response: items are untyped rows keyed
// by the query's column aliases.
type SuiteQLResult struct {
	Items        []map[string]any `json:"items"`
	Count        int              `json:"count"`
	HasMore      bool             `json:"hasMore"`
	TotalResults int              `json:"totalResults"`
}

// SuiteQL executes a query. The limit is clamped into the 1..1000 range
// the backend enforces.
func (c *Client) SuiteQL(ctx context.Context, query string, limit int, offset int) (*SuiteQLResult, error) {
	if limit < minSuiteQLLimit {
		limit = minSuiteQLLimit
	}
	if limit > maxSuiteQLLimit {
		limit = maxSuiteQLLimit
	}
	if offset < 0 {
		offset = 0
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))

	resp, err := c.do(ctx, http.MethodPost, suiteQLPath, params, map[string]string{"q": query})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("netsuite suiteql error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed SuiteQLResult
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("netsuite suiteql response malformed: %w", err)
	}
	return &parsed, nil
}
