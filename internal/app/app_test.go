package app

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/desk/internal/model"
	"github.com/nhle/desk/internal/store"
	"github.com/nhle/desk/internal/triage"
	"github.com/nhle/desk/internal/ui/command"
	"github.com/nhle/desk/internal/ui/moveform"
	"github.com/nhle/desk/internal/ui/settings"
	"github.com/nhle/desk/internal/ui/threadlist"
	"github.com/nhle/desk/tests/testutil"
)

var now = time.Date(2024, 3, 14, 15, 30, 0, 0, time.UTC)

func newTestModel(t *testing.T) (Model, *store.Store) {
	t.Helper()

	urgent := testutil.Thread("t1", "bo@vendor.com", model.BucketActiveProjects, now, 5)
	urgent.Priority = model.PriorityHigh
	lead := testutil.Thread("t2", "ana@client.com", model.BucketUnassigned, now, 1)

	st := store.New(store.State{
		Threads: triage.ReconcileAll([]model.Thread{urgent, lead}, triage.RuleSet{}, now),
	}, store.WithClock(testutil.FixedClock(now)))

	op := model.Operator{Name: "Sawyer Reed", Email: "sawyer@desk.dev"}
	m := New(Options{
		Store:      st,
		Extractor:  triage.NewQuestionExtractor(op, nil),
		Advisor:    triage.NewAdvisor(nil),
		FocusLimit: 5,
	})
	t.Cleanup(m.Close)

	m, _ = update(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m, _ = update(m, stateMsg{state: st.Snapshot()})
	return m, st
}

func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// run executes cmd and returns its message, or nil for a nil command.
func run(cmd tea.Cmd) tea.Msg {
	if cmd == nil {
		return nil
	}
	return cmd()
}

func TestPinAndPriorityFromList(t *testing.T) {
	m, st := newTestModel(t)

	sel, ok := m.threadList.SelectedThread()
	if !ok || sel.ID != "t1" {
		t.Fatalf("selected = %q, %v; want t1 from Do Now", sel.ID, ok)
	}

	_, cmd := update(m, keyPress("p"))
	run(cmd)
	_, cmd = update(m, keyPress("3"))
	run(cmd)

	th, _ := st.Thread("t1")
	if !th.Pinned || th.Priority != model.PriorityLow {
		t.Fatalf("t1 pinned=%v priority=%q", th.Pinned, th.Priority)
	}
}

func TestFollowUpToggles(t *testing.T) {
	m, st := newTestModel(t)

	_, cmd := update(m, keyPress("f"))
	run(cmd)

	th, _ := st.Thread("t1")
	want := time.Date(2024, 3, 15, followUpHour, 0, 0, 0, time.UTC)
	if th.FollowUpAt == nil || !th.FollowUpAt.Equal(want) {
		t.Fatalf("follow-up = %v, want %v", th.FollowUpAt, want)
	}

	m, _ = update(m, stateMsg{state: st.Snapshot()})
	_, cmd = update(m, keyPress("f"))
	run(cmd)

	th, _ = st.Thread("t1")
	if th.FollowUpAt != nil {
		t.Fatalf("follow-up not cleared: %v", th.FollowUpAt)
	}
}

func TestArchive(t *testing.T) {
	m, st := newTestModel(t)

	_, cmd := update(m, keyPress("a"))
	run(cmd)

	th, _ := st.Thread("t1")
	if th.Bucket != model.BucketCleared {
		t.Fatalf("bucket = %q", th.Bucket)
	}
}

func TestMoveFlow(t *testing.T) {
	m, st := newTestModel(t)
	m, _ = update(m, keyPress("tab"))

	sel, _ := m.threadList.SelectedThread()
	if sel.ID != "t2" {
		t.Fatalf("Needs Reply selection = %q, want t2", sel.ID)
	}

	m, _ = update(m, keyPress("m"))
	if m.currentView != ViewMove {
		t.Fatalf("view = %v, want move form", m.currentView)
	}

	m, cmd := update(m, moveform.MoveMsg{ThreadID: "t2", Bucket: model.BucketSales, ApplyRule: true})
	if m.currentView != ViewList {
		t.Fatalf("view = %v after move, want list", m.currentView)
	}
	run(cmd)

	th, _ := st.Thread("t2")
	if th.Bucket != model.BucketSales {
		t.Fatalf("bucket = %q", th.Bucket)
	}
	if b, ok := st.Snapshot().Rules.Apply("ana@client.com"); !ok || b != model.BucketSales {
		t.Fatalf("rule = %q, %v", b, ok)
	}
}

func TestDetailToggleQuestion(t *testing.T) {
	m, st := newTestModel(t)

	m, cmd := update(m, keyPress("enter"))
	msg := run(cmd)
	if _, ok := msg.(threadlist.SelectedThreadMsg); !ok {
		t.Fatalf("enter produced %T", msg)
	}
	m, _ = update(m, msg)
	if m.currentView != ViewDetail {
		t.Fatalf("view = %v, want detail", m.currentView)
	}

	m, cmd = update(m, keyPress(" "))
	msg = run(cmd)
	m, cmd = update(m, msg)
	run(cmd)

	th, _ := st.Thread("t1")
	if !th.IsAnswered("t1-m1") {
		t.Fatal("question not marked answered")
	}

	m, _ = update(m, stateMsg{state: st.Snapshot()})
	open, _ := m.detail.Thread()
	if !open.IsAnswered("t1-m1") {
		t.Fatal("detail view not refreshed from the store")
	}
}

func TestQuitOnlyFromList(t *testing.T) {
	m, _ := newTestModel(t)

	_, cmd := update(m, keyPress("q"))
	if _, ok := run(cmd).(tea.QuitMsg); !ok {
		t.Fatal("q on the list did not quit")
	}

	m, cmd = update(m, keyPress("enter"))
	m, _ = update(m, run(cmd))
	_, cmd = update(m, keyPress("q"))
	if _, ok := run(cmd).(tea.QuitMsg); ok {
		t.Fatal("q in the detail view quit")
	}
}

func TestCommands(t *testing.T) {
	m, st := newTestModel(t)

	m, _ = update(m, command.CommandMsg{Name: "bucket", Args: []string{"active"}})
	if m.threadList.Queue() != threadlist.QueueInbox {
		t.Fatalf("queue = %v, want inbox", m.threadList.Queue())
	}
	if sel, _ := m.threadList.SelectedThread(); sel.ID != "t1" {
		t.Fatalf("filtered selection = %q", sel.ID)
	}

	m, cmd := update(m, command.CommandMsg{Name: "route", Args: []string{"ana@client.com", "Internal"}})
	run(cmd)
	th, _ := st.Thread("t2")
	if th.Bucket != model.BucketInternal {
		t.Fatalf("route did not apply: bucket = %q", th.Bucket)
	}

	m, _ = update(m, command.CommandMsg{Name: "queue", Args: []string{"later"}})
	if m.errMsg == "" {
		t.Fatal("unknown queue not reported")
	}
}

func TestSettingsView(t *testing.T) {
	m, _ := newTestModel(t)

	m, _ = update(m, command.CommandMsg{Name: "settings"})
	if m.currentView != ViewSettings {
		t.Fatalf("view = %v, want settings", m.currentView)
	}

	// Keys go to the form, not the list.
	m, _ = update(m, keyPress("q"))
	if m.currentView != ViewSettings {
		t.Fatal("q left the settings form")
	}

	m, _ = update(m, settings.SavedMsg{Config: model.DefaultAppConfig()})
	if m.statusMsg != "settings saved" {
		t.Errorf("status = %q", m.statusMsg)
	}
	m, _ = update(m, settings.DoneMsg{})
	if m.currentView != ViewList {
		t.Errorf("view = %v, want list after closing settings", m.currentView)
	}
}

func TestSyncWithoutProvider(t *testing.T) {
	m, _ := newTestModel(t)

	m, _ = update(m, keyPress("r"))
	if m.errMsg == "" {
		t.Fatal("expected a no-provider error")
	}
}

func TestBuildProvider(t *testing.T) {
	noSecrets := func(string) (string, error) { return "", nil }

	cfg := model.DefaultAppConfig()
	p, err := BuildProvider(context.Background(), cfg, noSecrets, nil)
	if err != nil || p != nil {
		t.Fatalf("none provider = %v, %v", p, err)
	}

	cfg.Provider.Type = model.ProviderDemo
	p, err = BuildProvider(context.Background(), cfg, noSecrets, nil)
	if err != nil || p == nil || p.Name() != "demo" {
		t.Fatalf("demo provider = %v, %v", p, err)
	}

	cfg.Provider.Type = model.ProviderIMAP
	if _, err := BuildProvider(context.Background(), cfg, noSecrets, nil); err == nil {
		t.Fatal("imap without host should fail")
	}

	cfg.Provider.Type = "pop3"
	if _, err := BuildProvider(context.Background(), cfg, noSecrets, nil); err == nil {
		t.Fatal("unknown provider should fail")
	}
}

func TestFollowUpTomorrow(t *testing.T) {
	got := followUpTomorrow(time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC))
	want := time.Date(2025, 1, 1, followUpHour, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("followUpTomorrow = %v, want %v", got, want)
	}
}

func TestCheckProvider(t *testing.T) {
	cfg := model.DefaultAppConfig()
	if account, err := CheckProvider(context.Background(), cfg); err != nil || account != "" {
		t.Fatalf("none provider = %q, %v", account, err)
	}

	cfg.Provider.Type = model.ProviderDemo
	account, err := CheckProvider(context.Background(), cfg)
	if err != nil || account != "demo" {
		t.Fatalf("demo provider = %q, %v", account, err)
	}
}
