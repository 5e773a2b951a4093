package config

import (
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

func init() {
	// Load env from .env (missing file is fine in deployed environments).
	godotenv.Load()
}

// NetSuiteCredentials holds the OAuth2 client credentials for the NetSuite
// account this assistant reads from. The refresh token is the stable
// credential; access tokens are minted from it per session.
type NetSuiteCredentials struct {
	AccountID    string
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// GetNetSuiteCredentials reads credentials from env and reports every
// missing variable by name so misconfiguration is obvious at startup.
func GetNetSuiteCredentials() (NetSuiteCredentials, error) {
	creds := NetSuiteCredentials{
		AccountID:    strings.TrimSpace(os.Getenv("NETSUITE_ACCOUNT_ID")),
		ClientID:     strings.TrimSpace(os.Getenv("NETSUITE_CLIENT_ID")),
		ClientSecret: strings.TrimSpace(os.Getenv("NETSUITE_CLIENT_SECRET")),
		RefreshToken: strings.TrimSpace(os.Getenv("NETSUITE_REFRESH_TOKEN")),
	}

	var missing []string
	if creds.AccountID == "" {
		missing = append(missing, "NETSUITE_ACCOUNT_ID")
	}
	if creds.ClientID == "" {
		missing = append(missing, "NETSUITE_CLIENT_ID")
	}
	if creds.ClientSecret == "" {
		missing = append(missing, "NETSUITE_CLIENT_SECRET")
	}
	if creds.RefreshToken == "" {
		missing = append(missing, "NETSUITE_REFRESH_TOKEN")
	}
	if len(missing) > 0 {
		return NetSuiteCredentials{}, errors.New("missing required env vars: " + strings.Join(missing, ", "))
	}
	return creds, nil
}

// GetEnvOrDefault returns the trimmed env value or the given default.
func GetEnvOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
