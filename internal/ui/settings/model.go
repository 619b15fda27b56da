package settings

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/desk/internal/credential"
	"github.com/nhle/desk/internal/model"
	"github.com/nhle/desk/internal/theme"
)

// checkTimeout bounds the connection check run before saving.
const checkTimeout = 30 * time.Second

// Mode represents the current state of the settings view.
type Mode int

const (
	ModeForm       Mode = iota // Editing settings
	ModeValidating             // Testing the provider connection
	ModeResult                 // Showing the check result
)

// DoneMsg signals the settings view should close.
type DoneMsg struct{}

// SavedMsg is sent after the configuration file was written.
type SavedMsg struct {
	Config  *model.AppConfig
	Account string
}

// checkResultMsg carries the outcome of the connection check and save.
type checkResultMsg struct {
	cfg     *model.AppConfig
	account string
	err     error
}

// Checker verifies that cfg's provider can connect and returns the
// account it authenticated as.
type Checker func(ctx context.Context, cfg *model.AppConfig) (string, error)

// Options wires the settings view.
type Options struct {
	Config *model.AppConfig
	Path   string

	// Check runs before saving; nil skips the check.
	Check Checker

	// SetSecret stores the IMAP password, normally credential.Set.
	SetSecret func(key, value string) error

	// Save writes the file, normally model.SaveConfig.
	Save func(path string, cfg *model.AppConfig) error
}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	name         string
	email        string
	provider     string
	pollInterval string
	credentials  string
	imapHost     string
	imapPort     string
	imapUser     string
	imapPassword string
	imapTLS      bool
}

// Model is the Bubble Tea model for editing the operator and provider
// settings.
type Model struct {
	mode    Mode
	opts    Options
	form    *huh.Form
	fb      *formBindings
	spinner spinner.Model
	account string
	err     error
	width   int
	height  int
}

// New creates a settings view for opts.Config.
func New(opts Options, width, height int) Model {
	if opts.SetSecret == nil {
		opts.SetSecret = credential.Set
	}
	if opts.Save == nil {
		opts.Save = model.SaveConfig
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		opts:    opts,
		fb:      &formBindings{},
		spinner: sp,
		width:   width,
		height:  height,
	}
}

// Start loads the current configuration into a fresh form.
func (m *Model) Start() tea.Cmd {
	cfg := m.opts.Config
	if cfg == nil {
		cfg = model.DefaultAppConfig()
	}
	*m.fb = formBindings{
		name:         cfg.Operator.Name,
		email:        cfg.Operator.Email,
		provider:     cfg.Provider.Type,
		pollInterval: strconv.Itoa(cfg.Provider.PollIntervalSec),
		credentials:  cfg.Provider.Gmail.CredentialsFile,
		imapHost:     cfg.Provider.IMAP.Host,
		imapPort:     cfg.Provider.IMAP.Port,
		imapUser:     cfg.Provider.IMAP.Username,
		imapTLS:      cfg.Provider.IMAP.TLS,
	}
	if m.fb.provider == "" {
		m.fb.provider = model.ProviderNone
	}
	m.mode = ModeForm
	m.account = ""
	m.err = nil
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages and dispatches based on the current mode.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case checkResultMsg:
		m.mode = ModeResult
		m.account = msg.account
		m.err = msg.err
		if msg.err != nil {
			return m, nil
		}
		m.opts.Config = msg.cfg
		saved := SavedMsg{Config: msg.cfg, Account: msg.account}
		return m, func() tea.Msg { return saved }

	case spinner.TickMsg:
		if m.mode == ModeValidating {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeValidating:
			return m, nil
		case ModeResult:
			return m.handleResultKeys(msg)
		}
	}

	if m.mode != ModeForm || m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.mode = ModeValidating
		return m, tea.Batch(m.spinner.Tick, m.submit())
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return DoneMsg{} }
	}

	return m, cmd
}

func (m Model) handleResultKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		return m, func() tea.Msg { return DoneMsg{} }
	case "e":
		if m.err != nil {
			m.mode = ModeForm
			m.err = nil
			m.form = m.buildForm()
			return m, m.form.Init()
		}
	}
	return m, nil
}

// submit stores the IMAP password, checks the connection and writes the
// configuration file.
func (m Model) submit() tea.Cmd {
	cfg := m.config()
	password := m.fb.imapPassword
	opts := m.opts

	return func() tea.Msg {
		if cfg.Provider.Type == model.ProviderIMAP && password != "" {
			key := credential.IMAPPasswordKey(cfg.Provider.IMAP.Username)
			if err := opts.SetSecret(key, password); err != nil {
				return checkResultMsg{err: err}
			}
		}

		var account string
		if opts.Check != nil {
			ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
			defer cancel()

			var err error
			account, err = opts.Check(ctx, cfg)
			if err != nil {
				return checkResultMsg{err: err}
			}
		}

		if err := opts.Save(opts.Path, cfg); err != nil {
			return checkResultMsg{
				account: account,
				err:     fmt.Errorf("connection OK but save failed: %w", err),
			}
		}
		return checkResultMsg{cfg: cfg, account: account}
	}
}

// config returns a copy of the current configuration with the form
// values applied.
func (m Model) config() *model.AppConfig {
	cfg := model.DefaultAppConfig()
	if m.opts.Config != nil {
		c := *m.opts.Config
		cfg = &c
	}

	cfg.Operator.Name = strings.TrimSpace(m.fb.name)
	cfg.Operator.Email = strings.TrimSpace(m.fb.email)
	cfg.Provider.Type = m.fb.provider
	if n, err := strconv.Atoi(strings.TrimSpace(m.fb.pollInterval)); err == nil {
		cfg.Provider.PollIntervalSec = n
	}

	switch m.fb.provider {
	case model.ProviderGmail:
		cfg.Provider.Gmail.CredentialsFile = strings.TrimSpace(m.fb.credentials)
	case model.ProviderIMAP:
		cfg.Provider.IMAP.Host = strings.TrimSpace(m.fb.imapHost)
		cfg.Provider.IMAP.Port = strings.TrimSpace(m.fb.imapPort)
		cfg.Provider.IMAP.Username = strings.TrimSpace(m.fb.imapUser)
		cfg.Provider.IMAP.TLS = m.fb.imapTLS
	}
	return cfg
}

// View renders the settings UI based on the current mode.
func (m Model) View() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height)

	switch m.mode {
	case ModeValidating:
		return style.Render(m.spinner.View() + " Testing connection...")
	case ModeResult:
		return style.Render(m.viewResult())
	}

	if m.form == nil {
		return ""
	}
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)
	return style.Render(titleStyle.Render("Settings") + "\n" + m.form.View())
}

func (m Model) viewResult() string {
	hint := lipgloss.NewStyle().Foreground(theme.ColorGray)

	if m.err != nil {
		errStyle := lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorRed)
		return errStyle.Render("Settings not saved") + "\n\n" +
			m.err.Error() + "\n\n" +
			hint.Render("e edit | enter/esc back")
	}

	okStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorGreen)
	content := okStyle.Render("Settings saved") + "\n\n"
	if m.account != "" {
		content += fmt.Sprintf("Authenticated as: %s\n", m.account)
	}
	content += "Provider changes apply the next time desk starts.\n\n"
	return content + hint.Render("enter/esc back")
}

// Mode returns the current mode.
func (m Model) Mode() Mode {
	return m.mode
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Your name").
				Description("Used to spot questions addressed to you").
				Value(&m.fb.name).
				Validate(validateRequired("Name")),
			huh.NewInput().
				Title("Your email").
				Value(&m.fb.email).
				Validate(validateEmail),
			huh.NewSelect[string]().
				Title("Provider").
				Options(
					huh.NewOption("Gmail API", model.ProviderGmail),
					huh.NewOption("IMAP mailbox", model.ProviderIMAP),
					huh.NewOption("Demo data", model.ProviderDemo),
					huh.NewOption("None (journal only)", model.ProviderNone),
				).
				Value(&m.fb.provider),
			huh.NewInput().
				Title("Poll interval (seconds)").
				Description("0 syncs only on demand").
				Value(&m.fb.pollInterval).
				Validate(validateNumber),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("OAuth client file").
				Description("Run `desk auth gmail` afterwards to grant access").
				Value(&m.fb.credentials).
				Validate(validateRequired("OAuth client file")),
		).WithHideFunc(func() bool { return m.fb.provider != model.ProviderGmail }),
		huh.NewGroup(
			huh.NewInput().
				Title("IMAP host").
				Placeholder("imap.example.com").
				Value(&m.fb.imapHost).
				Validate(validateRequired("IMAP host")),
			huh.NewInput().
				Title("IMAP port").
				Value(&m.fb.imapPort).
				Validate(validateNumber),
			huh.NewInput().
				Title("Username").
				Value(&m.fb.imapUser).
				Validate(validateRequired("Username")),
			huh.NewInput().
				Title("Password").
				Description("Stored in the system keyring; leave empty to keep the current one").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.imapPassword),
			huh.NewConfirm().
				Title("Use TLS").
				Value(&m.fb.imapTLS),
		).WithHideFunc(func() bool { return m.fb.provider != model.ProviderIMAP }),
	).WithWidth(min(max(m.width-4, 40), 100))
}

// --- Validators ---

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateEmail(s string) error {
	local, domain, ok := strings.Cut(strings.TrimSpace(s), "@")
	if !ok || local == "" || !strings.Contains(domain, ".") {
		return fmt.Errorf("enter an address like you@example.com")
	}
	return nil
}

func validateNumber(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return fmt.Errorf("must be a whole number")
	}
	return nil
}
