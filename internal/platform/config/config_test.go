package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(envMap(nil))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.IOBActionHours != 4.5 {
		t.Fatalf("expected default 4.5h window, got %v", cfg.IOBActionHours)
	}
	if cfg.ActionWindow() != 4*time.Hour+30*time.Minute {
		t.Fatalf("unexpected action window %v", cfg.ActionWindow())
	}
	if cfg.LedgerBackend != LedgerFile || cfg.TelegramMode != ModePolling {
		t.Fatalf("unexpected defaults: %#v", cfg)
	}
}

func TestLoadFrom_Env(t *testing.T) {
	cfg, err := LoadFrom(envMap(map[string]string{
		"TELEGRAM_TOKEN":    "tok",
		"NIGHTSCOUT_URL":    "https://ns.example.com/",
		"NIGHTSCOUT_SECRET": "secret",
		"AUTHORIZED_USERS":  "111, 222,",
		"NOTIFY_CHAT_ID":    "-100",
		"PORT":              "9090",
		"LEDGER_BACKEND":    "SQLITE",
		"IOB_ACTION_HOURS":  "3",
	}))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.NightscoutURL != "https://ns.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.NightscoutURL)
	}
	if len(cfg.AuthorizedUsers) != 2 || cfg.AuthorizedUsers[0] != 111 || cfg.AuthorizedUsers[1] != 222 {
		t.Fatalf("unexpected authorized users %v", cfg.AuthorizedUsers)
	}
	if cfg.NotifyChatID != -100 || cfg.HTTPAddr != ":9090" {
		t.Fatalf("unexpected notify/addr: %d %s", cfg.NotifyChatID, cfg.HTTPAddr)
	}
	if cfg.LedgerBackend != LedgerSQLite || cfg.IOBActionHours != 3 {
		t.Fatalf("unexpected ledger config: %s %v", cfg.LedgerBackend, cfg.IOBActionHours)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestLoadFrom_BadValuesAreJoined(t *testing.T) {
	_, err := LoadFrom(envMap(map[string]string{
		"AUTHORIZED_USERS":   "abc",
		"NIGHTSCOUT_TIMEOUT": "forever",
	}))
	if err == nil {
		t.Fatalf("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "AUTHORIZED_USERS") || !strings.Contains(msg, "NIGHTSCOUT_TIMEOUT") {
		t.Fatalf("expected both errors reported, got %q", msg)
	}
}

func TestLoadFrom_YAMLFileThenEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "glucobot.yaml")
	yml := `
telegram_token: from-file
nightscout_url: https://file.example.com
nightscout_secret: s
authorized_users: [1, 2, 3]
nightscout_timeout: 3s
locale: en
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadFrom(envMap(map[string]string{
		"CONFIG_FILE":    path,
		"TELEGRAM_TOKEN": "from-env",
	}))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.TelegramToken != "from-env" {
		t.Fatalf("env must override file, got %q", cfg.TelegramToken)
	}
	if cfg.NightscoutURL != "https://file.example.com" || cfg.Locale != "en" {
		t.Fatalf("file values not applied: %#v", cfg)
	}
	if cfg.NightscoutTimeout != 3*time.Second || len(cfg.AuthorizedUsers) != 3 {
		t.Fatalf("unexpected timeout/users: %v %v", cfg.NightscoutTimeout, cfg.AuthorizedUsers)
	}
}

func TestValidate_ReportsMissing(t *testing.T) {
	err := Defaults().Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"TELEGRAM_TOKEN", "NIGHTSCOUT_URL", "NIGHTSCOUT_SECRET", "AUTHORIZED_USERS"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s in %q", want, err.Error())
		}
	}
}

func TestValidate_WebhookModeRequiresSecret(t *testing.T) {
	cfg := Defaults()
	cfg.TelegramToken = "tok"
	cfg.NightscoutURL = "https://ns.example.com"
	cfg.NightscoutSecret = "s"
	cfg.AuthorizedUsers = []int64{100}
	cfg.TelegramMode = ModeWebhook
	cfg.WebhookURL = "https://bot.example.com/telegram/webhook"

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "WEBHOOK_SECRET is required in webhook mode") {
		t.Fatalf("expected WEBHOOK_SECRET error, got %v", err)
	}

	cfg.WebhookSecret = "hook-secret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestNightscoutSecretHash(t *testing.T) {
	cfg := Config{NightscoutSecret: "abc"}
	// sha1("abc")
	if got := cfg.NightscoutSecretHash(); got != "a9993e364706816aba3e25717850c26c9cd0d89d" {
		t.Fatalf("unexpected hash %s", got)
	}
}
