package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// --- CONFIGURATION ---

// Config is the complete dashboard configuration. It is loaded once at
// startup and handed to whatever needs it.
type Config struct {
	Services ServicesConfig `mapstructure:"services"`
	Auth     AuthConfig     `mapstructure:"auth"`
	UI       UIConfig       `mapstructure:"ui"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Fixture  FixtureConfig  `mapstructure:"fixture"`
}

// ServicesConfig locates the platform services.
type ServicesConfig struct {
	AuthURL      string        `mapstructure:"auth_url"`
	WorkspaceURL string        `mapstructure:"workspace_url"`
	GroupsURL    string        `mapstructure:"groups_url"`
	NMSURL       string        `mapstructure:"nms_url"`
	NMSImageURL  string        `mapstructure:"nms_image_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type AuthConfig struct {
	Token string `mapstructure:"token"`
}

// UIConfig holds values the views need to build links.
type UIConfig struct {
	// NarrativeURL is the base URL Narratives are opened under,
	// e.g. https://narrative.kbase.us gives https://narrative.kbase.us/narrative/42.
	NarrativeURL string `mapstructure:"narrative_url"`
	// OrgsURL is the base URL of Organization pages,
	// e.g. https://narrative.kbase.us/orgs gives https://narrative.kbase.us/orgs/my-lab.
	OrgsURL string `mapstructure:"orgs_url"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
	// File is the log destination; "-" is stderr.
	File string `mapstructure:"file"`
}

// FixtureConfig switches every service to an offline YAML fixture.
type FixtureConfig struct {
	Path string `mapstructure:"path"`
}

const envPrefix = "NARRATIVES"

// DefaultConfig points at the production platform.
func DefaultConfig() Config {
	return Config{
		Services: ServicesConfig{
			AuthURL:      "https://kbase.us/services/auth",
			WorkspaceURL: "https://kbase.us/services/ws",
			GroupsURL:    "https://kbase.us/services/groups",
			NMSURL:       "https://kbase.us/services/narrative_method_store/rpc",
			NMSImageURL:  "https://kbase.us/services/narrative_method_store",
			Timeout:      30 * time.Second,
		},
		UI: UIConfig{
			NarrativeURL: "https://narrative.kbase.us",
			OrgsURL:      "https://narrative.kbase.us/orgs",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("services.auth_url", d.Services.AuthURL)
	v.SetDefault("services.workspace_url", d.Services.WorkspaceURL)
	v.SetDefault("services.groups_url", d.Services.GroupsURL)
	v.SetDefault("services.nms_url", d.Services.NMSURL)
	v.SetDefault("services.nms_image_url", d.Services.NMSImageURL)
	v.SetDefault("services.timeout", d.Services.Timeout)
	v.SetDefault("auth.token", "")
	v.SetDefault("ui.narrative_url", d.UI.NarrativeURL)
	v.SetDefault("ui.orgs_url", d.UI.OrgsURL)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", "")
	v.SetDefault("fixture.path", "")
}

// configDir returns the directory searched for config.yaml.
func configDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "narratives")
	}
	return filepath.Join(dir, "narratives")
}

// loadConfig reads the config file (explicit path or the default location),
// then the environment. A missing default file is not an error.
func loadConfig(v *viper.Viper, path string) (Config, error) {
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir())
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("auth.token", envPrefix+"_AUTH_TOKEN", "KB_AUTH_TOKEN")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Validate reports the first problem that would stop the dashboard working.
func (c Config) Validate() error {
	if c.Services.Timeout < 0 {
		return fmt.Errorf("services.timeout must not be negative, got %s", c.Services.Timeout)
	}
	if err := checkURL("ui.narrative_url", c.UI.NarrativeURL); err != nil {
		return err
	}
	if err := checkURL("ui.orgs_url", c.UI.OrgsURL); err != nil {
		return err
	}
	if c.Fixture.Path != "" {
		return nil
	}
	if strings.TrimSpace(c.Auth.Token) == "" {
		return errors.New("auth.token is required: set KB_AUTH_TOKEN or auth.token in the config file")
	}
	for _, u := range []struct{ key, val string }{
		{"services.auth_url", c.Services.AuthURL},
		{"services.workspace_url", c.Services.WorkspaceURL},
		{"services.groups_url", c.Services.GroupsURL},
		{"services.nms_url", c.Services.NMSURL},
		{"services.nms_image_url", c.Services.NMSImageURL},
	} {
		if err := checkURL(u.key, u.val); err != nil {
			return err
		}
	}
	return nil
}

func checkURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", key, raw)
	}
	return nil
}

// --- HELPER FUNCTIONS ---

// NarrativeURL is the address a Narrative is opened at in the browser.
func (c Config) NarrativeURL(wsID int) string {
	return fmt.Sprintf("%s/narrative/%d", strings.TrimRight(c.UI.NarrativeURL, "/"), wsID)
}

// OrgURL is the address of an Organization's page.
func (c Config) OrgURL(id string) string {
	return strings.TrimRight(c.UI.OrgsURL, "/") + "/" + url.PathEscape(id)
}
