package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAPIURL     = "http://127.0.0.1:7433"
	DefaultDBFileName = ".epictree.db"
	DefaultLogLevel   = "info"
	DefaultOverlayTTL = 30 * time.Second

	DefaultStoryPointsField = "customfield_10016"
	DefaultEpicLinkField    = "customfield_10014"
	DefaultSprintField      = "customfield_10020"

	DefaultEpicIssuesMaxResults      = 100
	DefaultSubtasksMaxResults        = 100
	DefaultAssignableUsersMaxResults = 50

	DefaultLogMaxSizeMB  = 10
	DefaultLogMaxBackups = 3
	DefaultLogMaxAgeDays = 28

	configFileName           = ".epictree.toml"
	configDirEnvKey          = "EPICTREE_CONFIG_DIR"
	trustProjectConfigEnvKey = "EPICTREE_TRUST_PROJECT_CONFIG"
)

// JiraConfig locates and authenticates against the Jira site.
type JiraConfig struct {
	BaseURL  string `toml:"base_url"`
	Email    string `toml:"email"`
	APIToken string `toml:"api_token"`
}

// FieldsConfig holds the site-specific custom field ids.
type FieldsConfig struct {
	StoryPoints string `toml:"story_points"`
	EpicLink    string `toml:"epic_link"`
	Sprint      string `toml:"sprint"`
}

// LimitsConfig caps the page sizes requested from Jira.
type LimitsConfig struct {
	EpicIssuesMaxResults      int `toml:"epic_issues_max_results"`
	SubtasksMaxResults        int `toml:"subtasks_max_results"`
	AssignableUsersMaxResults int `toml:"assignable_users_max_results"`
}

// OverlayConfig configures pending-edit expiry. TTL is a Go duration string.
type OverlayConfig struct {
	TTL string `toml:"ttl"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	APITokenHash string `toml:"api_token_hash"`
	DefaultEpic  string `toml:"default_epic"`
}

// LogConfig configures the optional rotating log file.
type LogConfig struct {
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// Config defines runtime configuration for epictree.
type Config struct {
	LogLevel                 string        `toml:"log_level"`
	APIURL                   string        `toml:"api_url"`
	DBPath                   string        `toml:"db_path"`
	Jira                     JiraConfig    `toml:"jira"`
	Fields                   FieldsConfig  `toml:"fields"`
	Limits                   LimitsConfig  `toml:"limits"`
	Overlay                  OverlayConfig `toml:"overlay"`
	Server                   ServerConfig  `toml:"server"`
	Log                      LogConfig     `toml:"log"`
	TrustedProjectConfigPath string        `toml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		LogLevel: DefaultLogLevel,
		APIURL:   DefaultAPIURL,
		DBPath:   "",
		Fields: FieldsConfig{
			StoryPoints: DefaultStoryPointsField,
			EpicLink:    DefaultEpicLinkField,
			Sprint:      DefaultSprintField,
		},
		Limits: LimitsConfig{
			EpicIssuesMaxResults:      DefaultEpicIssuesMaxResults,
			SubtasksMaxResults:        DefaultSubtasksMaxResults,
			AssignableUsersMaxResults: DefaultAssignableUsersMaxResults,
		},
		Overlay: OverlayConfig{TTL: DefaultOverlayTTL.String()},
		Log: LogConfig{
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
			MaxAgeDays: DefaultLogMaxAgeDays,
		},
	}
}

// OverlayTTL parses Overlay.TTL, falling back to the default for empty,
// invalid or non-positive values.
func (c *Config) OverlayTTL() time.Duration {
	ttl, err := time.ParseDuration(strings.TrimSpace(c.Overlay.TTL))
	if err != nil || ttl <= 0 {
		return DefaultOverlayTTL
	}
	return ttl
}

func loadFile(path string, cfg *Config) error {
	_, err := loadFileIfExists(path, cfg)
	return err
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, configFileName), true
}

func trustProjectConfig() bool {
	raw := strings.TrimSpace(os.Getenv(trustProjectConfigEnvKey))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

var allowedKeys = []string{
	"log_level",
	"api_url",
	"db_path",
	"jira.base_url",
	"jira.email",
	"jira.api_token",
	"fields.story_points",
	"fields.epic_link",
	"fields.sprint",
	"limits.epic_issues_max_results",
	"limits.subtasks_max_results",
	"limits.assignable_users_max_results",
	"overlay.ttl",
	"server.api_token_hash",
	"server.default_epic",
	"log.file",
	"log.max_size_mb",
	"log.max_backups",
	"log.max_age_days",
	"log.compress",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "log_level":
		return c.LogLevel, nil
	case "api_url":
		return c.APIURL, nil
	case "db_path":
		return c.DBPath, nil
	case "jira.base_url":
		return c.Jira.BaseURL, nil
	case "jira.email":
		return c.Jira.Email, nil
	case "jira.api_token":
		return c.Jira.APIToken, nil
	case "fields.story_points":
		return c.Fields.StoryPoints, nil
	case "fields.epic_link":
		return c.Fields.EpicLink, nil
	case "fields.sprint":
		return c.Fields.Sprint, nil
	case "limits.epic_issues_max_results":
		return strconv.Itoa(c.Limits.EpicIssuesMaxResults), nil
	case "limits.subtasks_max_results":
		return strconv.Itoa(c.Limits.SubtasksMaxResults), nil
	case "limits.assignable_users_max_results":
		return strconv.Itoa(c.Limits.AssignableUsersMaxResults), nil
	case "overlay.ttl":
		return c.Overlay.TTL, nil
	case "server.api_token_hash":
		return c.Server.APITokenHash, nil
	case "server.default_epic":
		return c.Server.DefaultEpic, nil
	case "log.file":
		return c.Log.File, nil
	case "log.max_size_mb":
		return strconv.Itoa(c.Log.MaxSizeMB), nil
	case "log.max_backups":
		return strconv.Itoa(c.Log.MaxBackups), nil
	case "log.max_age_days":
		return strconv.Itoa(c.Log.MaxAgeDays), nil
	case "log.compress":
		return strconv.FormatBool(c.Log.Compress), nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// ProjectPath returns the path to the project config file.
func ProjectPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, configFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads config from trusted files and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	if overridePath, ok := overrideConfigPath(); ok {
		if err := loadFile(overridePath, &cfg); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if err := loadFile(filepath.Join(home, configFileName), &cfg); err != nil {
				return nil, err
			}
		}

		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				projectPath := filepath.Join(cwd, configFileName)
				info, statErr := os.Stat(projectPath)
				switch {
				case statErr == nil && !info.IsDir():
					if err := loadFile(projectPath, &cfg); err != nil {
						return nil, err
					}
					cfg.TrustedProjectConfigPath = projectPath
				case statErr != nil && !os.IsNotExist(statErr):
					return nil, statErr
				}
			}
		}
	}

	if cfg.DBPath == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfg.DBPath = filepath.Join(cwd, DefaultDBFileName)
		}
	}

	applyEnv(&cfg)
	cfg.normalize()

	return &cfg, nil
}

func applyEnv(cfg *Config) {
	strs := []struct {
		key string
		dst *string
	}{
		{"EPICTREE_API_URL", &cfg.APIURL},
		{"EPICTREE_DB", &cfg.DBPath},
		{"EPICTREE_JIRA_URL", &cfg.Jira.BaseURL},
		{"EPICTREE_JIRA_EMAIL", &cfg.Jira.Email},
		{"EPICTREE_JIRA_TOKEN", &cfg.Jira.APIToken},
		{"EPICTREE_STORY_POINTS_FIELD", &cfg.Fields.StoryPoints},
		{"EPICTREE_EPIC_LINK_FIELD", &cfg.Fields.EpicLink},
		{"EPICTREE_SPRINT_FIELD", &cfg.Fields.Sprint},
		{"EPICTREE_OVERLAY_TTL", &cfg.Overlay.TTL},
	}
	for _, s := range strs {
		if v := strings.TrimSpace(os.Getenv(s.key)); v != "" {
			*s.dst = v
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"EPICTREE_EPIC_ISSUES_MAX_RESULTS", &cfg.Limits.EpicIssuesMaxResults},
		{"EPICTREE_SUBTASKS_MAX_RESULTS", &cfg.Limits.SubtasksMaxResults},
		{"EPICTREE_ASSIGNABLE_USERS_MAX_RESULTS", &cfg.Limits.AssignableUsersMaxResults},
	}
	for _, i := range ints {
		raw := strings.TrimSpace(os.Getenv(i.key))
		if raw == "" {
			continue
		}
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			*i.dst = parsed
		}
	}
}

func (c *Config) normalize() {
	if strings.TrimSpace(c.Fields.StoryPoints) == "" {
		c.Fields.StoryPoints = DefaultStoryPointsField
	}
	if strings.TrimSpace(c.Fields.EpicLink) == "" {
		c.Fields.EpicLink = DefaultEpicLinkField
	}
	if strings.TrimSpace(c.Fields.Sprint) == "" {
		c.Fields.Sprint = DefaultSprintField
	}
	if c.Limits.EpicIssuesMaxResults <= 0 {
		c.Limits.EpicIssuesMaxResults = DefaultEpicIssuesMaxResults
	}
	if c.Limits.SubtasksMaxResults <= 0 {
		c.Limits.SubtasksMaxResults = DefaultSubtasksMaxResults
	}
	if c.Limits.AssignableUsersMaxResults <= 0 {
		c.Limits.AssignableUsersMaxResults = DefaultAssignableUsersMaxResults
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if c.Log.MaxBackups < 0 {
		c.Log.MaxBackups = DefaultLogMaxBackups
	}
	if c.Log.MaxAgeDays < 0 {
		c.Log.MaxAgeDays = DefaultLogMaxAgeDays
	}
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "limits.epic_issues_max_results", "limits.subtasks_max_results",
		"limits.assignable_users_max_results", "log.max_size_mb":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return int64(parsed), nil
	case "log.max_backups", "log.max_age_days":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("%s must be a non-negative integer", key)
		}
		return int64(parsed), nil
	case "log.compress":
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%s must be true or false", key)
		}
		return parsed, nil
	case "overlay.ttl":
		ttl, err := time.ParseDuration(value)
		if err != nil || ttl <= 0 {
			return nil, fmt.Errorf("%s must be a positive duration such as 30s", key)
		}
		return ttl.String(), nil
	case "log_level":
		switch strings.ToLower(value) {
		case "debug", "info", "warn", "warning", "error":
			return strings.ToLower(value), nil
		default:
			return nil, fmt.Errorf("%s must be one of debug, info, warn, error", key)
		}
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}
