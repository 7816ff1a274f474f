package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.APIURL != DefaultAPIURL {
		t.Fatalf("expected default API URL, got %q", cfg.APIURL)
	}
	if cfg.DBPath != "" {
		t.Fatalf("expected empty db path, got %q", cfg.DBPath)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Fatalf("expected default log level %q, got %q", DefaultLogLevel, cfg.LogLevel)
	}
	if cfg.Fields.StoryPoints != "customfield_10016" || cfg.Fields.EpicLink != "customfield_10014" || cfg.Fields.Sprint != "customfield_10020" {
		t.Fatalf("unexpected field defaults %#v", cfg.Fields)
	}
	if cfg.Limits.EpicIssuesMaxResults != 100 || cfg.Limits.SubtasksMaxResults != 100 || cfg.Limits.AssignableUsersMaxResults != 50 {
		t.Fatalf("unexpected limit defaults %#v", cfg.Limits)
	}
	if cfg.OverlayTTL() != 30*time.Second {
		t.Fatalf("expected 30s overlay ttl, got %v", cfg.OverlayTTL())
	}
}

func TestOverlayTTL(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Duration
	}{
		{"45s", 45 * time.Second},
		{"2m", 2 * time.Minute},
		{"", DefaultOverlayTTL},
		{"soon", DefaultOverlayTTL},
		{"-5s", DefaultOverlayTTL},
	}
	for _, tt := range tests {
		cfg := Config{Overlay: OverlayConfig{TTL: tt.raw}}
		if got := cfg.OverlayTTL(); got != tt.want {
			t.Fatalf("OverlayTTL(%q)=%v want %v", tt.raw, got, tt.want)
		}
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".epictree.toml")
	if err := os.WriteFile(path, []byte(`api_url = "http://localhost:9999"
log_level = "warn"

[jira]
base_url = "https://acme.atlassian.net"
email = "dev@acme.test"

[fields]
story_points = "customfield_20000"

[limits]
subtasks_max_results = 25
`), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://localhost:9999" {
		t.Fatalf("expected api_url 'http://localhost:9999', got %q", cfg.APIURL)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("expected log_level 'warn', got %q", cfg.LogLevel)
	}
	if cfg.Jira.BaseURL != "https://acme.atlassian.net" || cfg.Jira.Email != "dev@acme.test" {
		t.Fatalf("unexpected jira config %#v", cfg.Jira)
	}
	if cfg.Fields.StoryPoints != "customfield_20000" || cfg.Fields.Sprint != DefaultSprintField {
		t.Fatalf("unexpected fields %#v", cfg.Fields)
	}
	if cfg.Limits.SubtasksMaxResults != 25 || cfg.Limits.EpicIssuesMaxResults != 100 {
		t.Fatalf("unexpected limits %#v", cfg.Limits)
	}
}

func TestLoadFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFile("/nonexistent/path/.epictree.toml", &cfg); err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.APIURL != DefaultAPIURL {
		t.Fatalf("defaults should be preserved")
	}
}

func TestLoadFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("api_url = \n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg := Default()
	if err := loadFile(path, &cfg); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("EPICTREE_CONFIG_DIR", dir)
	if err := os.WriteFile(filepath.Join(dir, ".epictree.toml"), []byte(`db_path = "/from/file.db"
[limits]
epic_issues_max_results = 20
`), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	t.Setenv("EPICTREE_API_URL", "http://127.0.0.1:9000")
	t.Setenv("EPICTREE_JIRA_URL", "https://env.atlassian.net")
	t.Setenv("EPICTREE_JIRA_TOKEN", "secret")
	t.Setenv("EPICTREE_STORY_POINTS_FIELD", "customfield_99")
	t.Setenv("EPICTREE_ASSIGNABLE_USERS_MAX_RESULTS", "10")
	t.Setenv("EPICTREE_SUBTASKS_MAX_RESULTS", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://127.0.0.1:9000" {
		t.Fatalf("expected env api url, got %q", cfg.APIURL)
	}
	if cfg.DBPath != "/from/file.db" {
		t.Fatalf("expected file db path, got %q", cfg.DBPath)
	}
	if cfg.Jira.BaseURL != "https://env.atlassian.net" || cfg.Jira.APIToken != "secret" {
		t.Fatalf("unexpected jira config %#v", cfg.Jira)
	}
	if cfg.Fields.StoryPoints != "customfield_99" {
		t.Fatalf("expected env story points field, got %q", cfg.Fields.StoryPoints)
	}
	if cfg.Limits.EpicIssuesMaxResults != 20 || cfg.Limits.AssignableUsersMaxResults != 10 || cfg.Limits.SubtasksMaxResults != 100 {
		t.Fatalf("unexpected limits %#v", cfg.Limits)
	}
}

func TestLoadProjectConfigRequiresTrust(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("EPICTREE_CONFIG_DIR", "")
	t.Chdir(project)
	if err := os.WriteFile(filepath.Join(project, ".epictree.toml"), []byte("log_level = \"debug\"\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != DefaultLogLevel || cfg.TrustedProjectConfigPath != "" {
		t.Fatalf("project config should be ignored without trust, got %#v", cfg)
	}

	t.Setenv("EPICTREE_TRUST_PROJECT_CONFIG", "true")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.TrustedProjectConfigPath == "" {
		t.Fatalf("expected trusted project config, got %#v", cfg)
	}
}

func TestIsAllowedKey(t *testing.T) {
	for _, key := range []string{
		"log_level",
		"api_url",
		"db_path",
		"jira.base_url",
		"fields.story_points",
		"limits.subtasks_max_results",
		"overlay.ttl",
		"server.api_token_hash",
		"log.compress",
	} {
		if !IsAllowedKey(key) {
			t.Fatalf("expected %q to be allowed", key)
		}
	}
	if IsAllowedKey("invalid") {
		t.Fatal("expected 'invalid' to not be allowed")
	}
}

func TestGetKey(t *testing.T) {
	cfg := Default()
	cfg.Jira.Email = "dev@acme.test"
	cfg.Server.DefaultEpic = "PROJ-1"
	cfg.Log.Compress = true

	tests := map[string]string{
		"api_url":                             DefaultAPIURL,
		"jira.email":                          "dev@acme.test",
		"fields.epic_link":                    DefaultEpicLinkField,
		"limits.assignable_users_max_results": "50",
		"overlay.ttl":                         "30s",
		"server.default_epic":                 "PROJ-1",
		"log.compress":                        "true",
		"log.max_size_mb":                     "10",
	}
	for key, want := range tests {
		got, err := cfg.Get(key)
		if err != nil || got != want {
			t.Fatalf("Get(%q)=%q (err %v), want %q", key, got, err, want)
		}
	}
	for _, key := range AllowedKeys() {
		if _, err := cfg.Get(key); err != nil {
			t.Fatalf("allowed key %q not readable: %v", key, err)
		}
	}
	if _, err := cfg.Get("invalid"); err == nil {
		t.Fatal("expected error for invalid key")
	}
}

func TestSetKeyCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.toml")
	if err := SetKey(path, "jira.base_url", "https://acme.atlassian.net"); err != nil {
		t.Fatalf("set: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Jira.BaseURL != "https://acme.atlassian.net" {
		t.Fatalf("expected base url, got %q", cfg.Jira.BaseURL)
	}
}

func TestSetKeyUpdatesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "existing.toml")
	if err := os.WriteFile(path, []byte("log_level = \"info\"\napi_url = \"http://keep\"\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := SetKey(path, "log_level", "error"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := SetKey(path, "limits.subtasks_max_results", "40"); err != nil {
		t.Fatalf("set limit: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "error" {
		t.Fatalf("expected 'error', got %q", cfg.LogLevel)
	}
	if cfg.APIURL != "http://keep" {
		t.Fatalf("expected preserved api_url 'http://keep', got %q", cfg.APIURL)
	}
	if cfg.Limits.SubtasksMaxResults != 40 {
		t.Fatalf("expected limit 40, got %d", cfg.Limits.SubtasksMaxResults)
	}
}

func TestSetKeyRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	tests := []struct{ key, value string }{
		{"unknown.key", "x"},
		{"limits.subtasks_max_results", "0"},
		{"overlay.ttl", "forever"},
		{"log.compress", "maybe"},
		{"log_level", "loud"},
	}
	for _, tt := range tests {
		if err := SetKey(path, tt.key, tt.value); err == nil {
			t.Fatalf("expected error for %s=%s", tt.key, tt.value)
		}
	}
}
