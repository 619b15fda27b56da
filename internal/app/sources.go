package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nhle/desk/internal/credential"
	"github.com/nhle/desk/internal/model"
	"github.com/nhle/desk/internal/source"
	"github.com/nhle/desk/internal/source/demo"
	"github.com/nhle/desk/internal/source/email"
	"github.com/nhle/desk/internal/source/gmail"
)

// BuildProvider creates the message provider selected by cfg. The "none"
// type yields a nil provider and no error: the dashboard then runs on
// the journal alone. Credentials are loaded through secrets, normally
// credential.Keyring.
func BuildProvider(
	ctx context.Context,
	cfg *model.AppConfig,
	secrets credential.Getter,
	logger *slog.Logger,
) (source.Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider.Type)) {
	case "", model.ProviderNone:
		return nil, nil

	case model.ProviderDemo:
		return demo.New(cfg.Operator, nil), nil

	case model.ProviderGmail:
		client, err := gmail.NewClient(ctx, cfg.Provider.Gmail, cfg.Operator, secrets, logger)
		if err != nil {
			return nil, fmt.Errorf("configuring gmail provider: %w", err)
		}
		return client, nil

	case model.ProviderIMAP:
		adapter, err := email.NewAdapter(cfg.Provider.IMAP, cfg.Operator, secrets, logger)
		if err != nil {
			return nil, fmt.Errorf("configuring imap provider: %w", err)
		}
		return adapter, nil

	default:
		return nil, fmt.Errorf("unknown provider type %q", cfg.Provider.Type)
	}
}

// CheckProvider builds the provider cfg selects and verifies its
// credentials. Providers that cannot validate report their name.
func CheckProvider(ctx context.Context, cfg *model.AppConfig) (string, error) {
	p, err := BuildProvider(ctx, cfg, credential.Keyring, slog.Default())
	if err != nil {
		return "", err
	}
	if p == nil {
		return "", nil
	}
	if v, ok := p.(source.Validator); ok {
		return v.ValidateConnection(ctx)
	}
	return p.Name(), nil
}
