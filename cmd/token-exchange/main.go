// Exchanges an OAuth2 authorization code for the initial refresh token.
// Run once when provisioning credentials. Tokens are never printed;
// only the non-secret grant metadata is echoed so the operator can
// confirm the exchange worked before copying the refresh token out of
// their secret store flow.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/tanmayk04/netsuite-mcp-finance-assistant/config"
	"github.com/tanmayk04/netsuite-mcp-finance-assistant/netsuite"
)

func main() {
	code := flag.String("code", "", "authorization code from the consent redirect (required)")
	redirectURI := flag.String("redirect-uri", os.Getenv("NETSUITE_REDIRECT_URI"), "redirect URI registered on the integration")
	flag.Parse()

	if *code == "" {
		fmt.Fprintln(os.Stderr, "missing required -code")
		flag.Usage()
		os.Exit(2)
	}
	if *redirectURI == "" {
		fmt.Fprintln(os.Stderr, "missing redirect URI: pass -redirect-uri or set NETSUITE_REDIRECT_URI")
		os.Exit(2)
	}

	accountID := os.Getenv("NETSUITE_ACCOUNT_ID")
	clientID := os.Getenv("NETSUITE_CLIENT_ID")
	clientSecret := os.Getenv("NETSUITE_CLIENT_SECRET")
	if accountID == "" || clientID == "" || clientSecret == "" {
		fmt.Fprintln(os.Stderr, "NETSUITE_ACCOUNT_ID, NETSUITE_CLIENT_ID and NETSUITE_CLIENT_SECRET must be set")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	token, err := netsuite.ExchangeAuthCode(ctx, accountID, clientID, clientSecret, *redirectURI, *code)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Printf("token exchange succeeded\n")
	fmt.Printf("  token_type: %s\n", token.TokenType)
	fmt.Printf("  expires_in: %s\n", token.ExpiresIn)
	fmt.Printf("  scope:      %s\n", token.Scope)
	if token.RefreshToken != "" {
		out := config.GetEnvOrDefault("TOKEN_OUTPUT_FILE", "")
		if out == "" {
			fmt.Println("  refresh token received; set TOKEN_OUTPUT_FILE to write it to disk")
			return
		}
		if err := os.WriteFile(out, []byte(token.RefreshToken), 0o600); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("  refresh token written to %s\n", out)
	}
}
