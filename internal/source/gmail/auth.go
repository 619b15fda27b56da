package gmail

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"golang.org/x/oauth2"

	"github.com/nhle/desk/internal/model"
)

// Authorize runs the installed-app OAuth flow: it prints the consent URL
// to out, reads the authorization code from in, exchanges it and hands
// the token JSON to store (normally credential.Set under cfg.TokenKey).
func Authorize(
	ctx context.Context,
	cfg model.GmailConfig,
	in io.Reader,
	out io.Writer,
	store func(key, value string) error,
) error {
	oauthConfig, err := loadOAuthConfig(cfg.CredentialsFile)
	if err != nil {
		return err
	}

	authURL := oauthConfig.AuthCodeURL("desk", oauth2.AccessTypeOffline)
	fmt.Fprintf(out, "Open the following link in your browser, then paste the authorization code:\n%s\n> ", authURL)

	code, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("reading authorization code: %w", err)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("no authorization code entered")
	}

	tok, err := oauthConfig.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchanging authorization code: %w", err)
	}

	raw, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}
	if err := store(cfg.TokenKey, string(raw)); err != nil {
		return fmt.Errorf("storing token: %w", err)
	}

	fmt.Fprintln(out, "Gmail token saved.")
	return nil
}
