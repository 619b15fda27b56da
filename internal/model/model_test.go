package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestParseBucket(t *testing.T) {
	tests := []struct {
		in      string
		want    Bucket
		wantErr bool
	}{
		{in: "Sales", want: BucketSales},
		{in: "Active Projects", want: BucketActiveProjects},
		{in: "active", want: BucketActiveProjects},
		{in: " waiting ", want: BucketWaiting},
		{in: "cleared", want: BucketCleared},
		{in: "Someday", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseBucket(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseBucket(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseBucket(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParsePriority(t *testing.T) {
	if p, err := ParsePriority("high"); err != nil || p != PriorityHigh {
		t.Errorf("ParsePriority(high) = %q, %v", p, err)
	}
	if _, err := ParsePriority("urgent"); err == nil {
		t.Error("ParsePriority(urgent) succeeded")
	}
	if PriorityHigh.Rank() >= PriorityNormal.Rank() || PriorityNormal.Rank() >= PriorityLow.Rank() {
		t.Error("priority ranks out of order")
	}
}

func TestOperatorAuthored(t *testing.T) {
	op := Operator{Name: "Sawyer Reed", Email: "Sawyer@Desk.dev"}

	tests := []struct {
		sender, email string
		want          bool
	}{
		{"Sawyer Reed", "sawyer@desk.dev", true},
		{"S. Reed", "sawyer.reed@other.com", true},
		{"Sawyer (You)", "", true},
		{"Ana", "ana@client.com", false},
	}
	for _, tt := range tests {
		if got := op.Authored(tt.sender, tt.email); got != tt.want {
			t.Errorf("Authored(%q, %q) = %v, want %v", tt.sender, tt.email, got, tt.want)
		}
	}
	if op.Domain() != "desk.dev" || op.NameToken() != "sawyer" {
		t.Errorf("Domain/NameToken = %q/%q", op.Domain(), op.NameToken())
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Provider.Type != ProviderNone {
		t.Errorf("provider = %q, want none", cfg.Provider.Type)
	}
	if cfg.Triage.FocusLimit != 5 || cfg.Triage.ReconcileIntervalSec != 300 {
		t.Errorf("triage defaults = %+v", cfg.Triage)
	}
}

func TestLoadConfigFileEnvAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `operator:
  name: Sawyer Reed
  email: sawyer@desk.dev
provider:
  type: imap
  imap:
    host: imap.desk.dev
triage:
  focus_limit: 3
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DESK_LOG_LEVEL", "debug")

	v := viper.New()
	v.Set("server.addr", "127.0.0.1:9000")

	cfg, err := LoadConfig(path, v)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Provider.Type != ProviderIMAP || cfg.Provider.IMAP.Host != "imap.desk.dev" {
		t.Errorf("provider = %+v", cfg.Provider)
	}
	if cfg.Provider.IMAP.Port != "993" {
		t.Errorf("imap port default lost: %q", cfg.Provider.IMAP.Port)
	}
	if cfg.Triage.FocusLimit != 3 {
		t.Errorf("focus limit = %d, want 3", cfg.Triage.FocusLimit)
	}
	if got := cfg.Triage.InternalDomains; len(got) != 1 || got[0] != "desk.dev" {
		t.Errorf("internal domains = %v, want operator domain", got)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want env override", cfg.Log.Level)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("server addr = %q, want override", cfg.Server.Addr)
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultAppConfig()
	cfg.Operator = Operator{Name: "Sawyer Reed", Email: "sawyer@desk.dev"}
	cfg.Provider.Type = ProviderDemo

	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	loaded, err := LoadConfig(path, nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.Operator != cfg.Operator || loaded.Provider.Type != ProviderDemo {
		t.Errorf("round trip = %+v / %q", loaded.Operator, loaded.Provider.Type)
	}
}
