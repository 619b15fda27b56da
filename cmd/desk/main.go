package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lmittmann/tint"
	"github.com/spf13/pflag"

	"github.com/nhle/desk/internal/app"
	"github.com/nhle/desk/internal/credential"
	"github.com/nhle/desk/internal/ingest"
	"github.com/nhle/desk/internal/model"
	"github.com/nhle/desk/internal/server"
	"github.com/nhle/desk/internal/source"
	"github.com/nhle/desk/internal/source/email"
	"github.com/nhle/desk/internal/source/gmail"
	"github.com/nhle/desk/internal/store"
	desksync "github.com/nhle/desk/internal/sync"
	"github.com/nhle/desk/internal/triage"
)

const usage = `Usage:
  desk [flags]                 run the dashboard (default) or the API
  desk auth gmail|imap         store provider credentials in the keyring
  desk logout gmail|imap       remove stored provider credentials
  desk history                 list recent sync runs

Flags:
`

// Run modes.
const (
	modeTUI   = "tui"
	modeServe = "serve"
	modeBoth  = "both"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "desk:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("desk", pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", model.DefaultConfigPath(), "path to config.yaml")
	mode := fs.StringP("mode", "m", modeTUI, "run mode: tui, serve or both")
	fs.String("addr", "", "HTTP API listen address (overrides server.addr)")
	fs.String("provider", "", "mail provider: gmail, imap, demo or none")
	fs.String("log-level", "", "log level: debug, info, warn or error")
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := model.LoadConfig(*configPath, nil)
	if err != nil {
		return err
	}
	applyFlags(cfg, fs)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch fs.Arg(0) {
	case "":
	case "auth":
		logger := setupLogger(cfg.Log, os.Stderr)
		return runAuth(ctx, cfg, fs.Arg(1), os.Stdin, os.Stdout, logger)
	case "logout":
		return runLogout(cfg, fs.Arg(1), os.Stdout)
	case "history":
		return runHistory(ctx, cfg, os.Stdout)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", fs.Arg(0))
	}

	switch *mode {
	case modeTUI, modeServe, modeBoth:
	default:
		return fmt.Errorf("unknown mode %q", *mode)
	}

	// The dashboard owns the terminal, so it logs to a file.
	logOut := io.Writer(os.Stderr)
	if cfg.Log.File != "" || *mode != modeServe {
		f, err := openLogFile(cfg.Log.File)
		if err != nil {
			return err
		}
		defer f.Close()
		logOut = f
	}
	logger := setupLogger(cfg.Log, logOut)
	slog.SetDefault(logger)

	return serve(ctx, cfg, *configPath, *mode, logger)
}

// serve wires the store, engine and front ends and blocks until the
// dashboard exits or ctx is cancelled.
func serve(
	ctx context.Context,
	cfg *model.AppConfig,
	configPath string,
	mode string,
	logger *slog.Logger,
) error {
	initial := store.State{}
	storeOpts := []store.Option{store.WithLogger(logger)}
	engineOpts := []desksync.Option{desksync.WithLogger(logger)}

	if cfg.Storage.Enabled {
		journal, err := openJournal(cfg.Storage.Path)
		if err != nil {
			return err
		}
		defer journal.Close()

		initial, err = journal.Load(ctx)
		if err != nil {
			return fmt.Errorf("loading journal: %w", err)
		}
		logger.Info("journal loaded",
			"path", cfg.Storage.Path,
			"threads", len(initial.Threads),
			"rules", initial.Rules.Len(),
		)
		storeOpts = append(storeOpts, store.WithPersister(journal))
		engineOpts = append(engineOpts, desksync.WithRecorder(journal))
	}

	st := store.New(initial, storeOpts...)

	provider, err := app.BuildProvider(ctx, cfg, credential.Keyring, logger)
	if err != nil {
		// Keep running on the journal; the error shows in the status bar.
		logger.Error("provider unavailable", "type", cfg.Provider.Type, "error", err)
		st.Dispatch(store.SyncFailed{Err: err})
		provider = nil
	}

	normalizer := ingest.NewNormalizer(cfg.Triage.InternalDomains, st.Now)
	engine := desksync.New(st, provider, normalizer, desksync.Config{
		MaxThreads:        cfg.Provider.MaxThreads,
		PollInterval:      time.Duration(cfg.Provider.PollIntervalSec) * time.Second,
		ReconcileInterval: time.Duration(cfg.Triage.ReconcileIntervalSec) * time.Second,
	}, engineOpts...)

	engine.Start(ctx)
	defer engine.Stop()

	extractor := triage.NewQuestionExtractor(cfg.Operator, nil)
	advisor := triage.NewAdvisor(nil)

	var apiErr chan error
	if mode == modeServe || mode == modeBoth {
		api := server.New(server.Options{
			Store:      st,
			Syncer:     engine,
			Extractor:  extractor,
			Advisor:    advisor,
			FocusLimit: cfg.Triage.FocusLimit,
			Logger:     logger,
		})
		apiErr = make(chan error, 1)
		go func() { apiErr <- api.Listen(ctx, cfg.Server.Addr) }()
	}

	if mode == modeServe {
		return <-apiErr
	}

	root := app.New(app.Options{
		Store:      st,
		Engine:     engine,
		Extractor:  extractor,
		Advisor:    advisor,
		FocusLimit: cfg.Triage.FocusLimit,
		Config:     cfg,
		ConfigPath: configPath,
		Check:      app.CheckProvider,
	})
	defer root.Close()

	p := tea.NewProgram(root, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running dashboard: %w", err)
	}
	return nil
}

// runAuth stores provider credentials and checks that they work.
func runAuth(
	ctx context.Context,
	cfg *model.AppConfig,
	provider string,
	in io.Reader,
	out io.Writer,
	logger *slog.Logger,
) error {
	var validator source.Validator

	switch provider {
	case model.ProviderGmail:
		if err := gmail.Authorize(ctx, cfg.Provider.Gmail, in, out, credential.Set); err != nil {
			return err
		}
		client, err := gmail.NewClient(ctx, cfg.Provider.Gmail, cfg.Operator, credential.Keyring, logger)
		if err != nil {
			return err
		}
		validator = client

	case model.ProviderIMAP:
		user := cfg.Provider.IMAP.Username
		if user == "" {
			return fmt.Errorf("set provider.imap.username in the config first")
		}
		fmt.Fprintf(out, "Password for %s@%s: ", user, cfg.Provider.IMAP.Host)
		password, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("reading password: %w", err)
		}
		password = strings.TrimRight(password, "\r\n")
		if password == "" {
			return fmt.Errorf("no password entered")
		}
		if err := credential.Set(credential.IMAPPasswordKey(user), password); err != nil {
			return err
		}
		adapter, err := email.NewAdapter(cfg.Provider.IMAP, cfg.Operator, credential.Keyring, logger)
		if err != nil {
			return err
		}
		validator = adapter

	default:
		return fmt.Errorf("usage: desk auth gmail|imap")
	}

	account, err := validator.ValidateConnection(ctx)
	if err != nil {
		return fmt.Errorf("credentials saved but the connection check failed: %w", err)
	}
	fmt.Fprintf(out, "Connected as %s.\n", account)
	return nil
}

// runLogout removes the stored credentials for a provider.
func runLogout(cfg *model.AppConfig, provider string, out io.Writer) error {
	var key string
	switch provider {
	case model.ProviderGmail:
		key = cfg.Provider.Gmail.TokenKey
	case model.ProviderIMAP:
		key = credential.IMAPPasswordKey(cfg.Provider.IMAP.Username)
	default:
		return fmt.Errorf("usage: desk logout gmail|imap")
	}

	if err := credential.Delete(key); err != nil {
		return err
	}
	fmt.Fprintf(out, "Removed %s credentials.\n", provider)
	return nil
}

// runHistory prints the most recent sync runs from the journal.
func runHistory(ctx context.Context, cfg *model.AppConfig, out io.Writer) error {
	if !cfg.Storage.Enabled {
		return fmt.Errorf("the journal is disabled (storage.enabled: false)")
	}
	journal, err := openJournal(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer journal.Close()

	runs, err := journal.RecentSyncRuns(ctx, 20)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No syncs recorded yet.")
		return nil
	}
	for _, r := range runs {
		status := fmt.Sprintf("%d threads", r.Threads)
		if r.Error != "" {
			status = "failed: " + r.Error
		}
		fmt.Fprintf(out, "%s  %-6s  %6s  %s\n",
			r.StartedAt.Local().Format(time.DateTime),
			r.Provider,
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
			status,
		)
	}
	return nil
}

// applyFlags overrides cfg with the flags given on the command line.
// They win over both the file and the environment.
func applyFlags(cfg *model.AppConfig, fs *pflag.FlagSet) {
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Server.Addr = f.Value.String()
		case "provider":
			cfg.Provider.Type = f.Value.String()
		case "log-level":
			cfg.Log.Level = f.Value.String()
		}
	})
}

func openJournal(path string) (*store.Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}
	return store.OpenJournal(path)
}

func openLogFile(path string) (*os.File, error) {
	if path == "" {
		path = filepath.Join(model.DefaultConfigDir(), "desk.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, nil
}

func setupLogger(cfg model.LogConfig, out io.Writer) *slog.Logger {
	var handler slog.Handler
	level := parseLevel(cfg.Level)

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		// Colors only when writing to a terminal.
		handler = tint.NewHandler(out, &tint.Options{
			Level:      level,
			TimeFormat: time.DateTime,
			NoColor:    out != os.Stderr,
		})
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
