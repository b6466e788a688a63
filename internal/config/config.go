package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultModel            = "gpt-4o-mini"
	defaultSolutionID       = "68110662fc8e5e3d8678d825"
	defaultMaxRounds        = 8
	defaultMaxParallelTools = 4
	defaultRequestTimeout   = 30 * time.Second
	defaultLogLevel         = "info"
)

var (
	ErrProfileNotFound = errors.New("profile does not exist")
	ErrProfileExists   = errors.New("profile already exists")
	ErrNoProfiles      = errors.New("no profiles defined")
)

// Profile holds the credentials for one model provider and one table-service account.
type Profile struct {
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url,omitempty"`
	Model               string `yaml:"model"`
	SmartSuiteAPIKey    string `yaml:"smartsuite_api_key,omitempty"`
	SmartSuiteAccountID string `yaml:"smartsuite_account_id,omitempty"`
	SolutionID          string `yaml:"solution_id,omitempty"`
}

// Duration is a time.Duration written as "30s" in the config file.
type Duration time.Duration

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

type Config struct {
	Profiles          map[string]Profile `yaml:"profiles"`
	ActiveProfile     string             `yaml:"active_profile"`
	Tables            map[string]string  `yaml:"tables,omitempty"`
	MaxRounds         int                `yaml:"max_rounds,omitempty"`
	MaxParallelTools  int                `yaml:"max_parallel_tools,omitempty"`
	RequestTimeout    Duration           `yaml:"request_timeout,omitempty"`
	ConfirmWrites     bool               `yaml:"confirm_writes,omitempty"`
	LogLevel          string             `yaml:"log_level,omitempty"`
	SmartSuiteBaseURL string             `yaml:"smartsuite_base_url,omitempty"` // empty uses the public API

	path           string
	currentProfile *Profile
	env            envOverrides
}

// envOverrides holds values taken from the environment. They win over the
// file but are never written back to it.
type envOverrides struct {
	logLevel  string
	baseURL   string
	maxRounds int
}

// LoadConfig reads the config file from the default location, creating it if needed,
// and applies environment overrides to the active profile.
func LoadConfig() (*Config, error) {
	configPath, err := Path()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}
	return LoadConfigFrom(configPath)
}

func LoadConfigFrom(configPath string) (*Config, error) {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	config, err := loadConfigFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	config.path = configPath
	config.applyDefaults()

	if err := config.setCurrentProfile(); err != nil {
		return nil, fmt.Errorf("failed to set current profile: %w", err)
	}
	config.applyEnv()

	return config, nil
}

// Dir is $RORITABLE_HOME/.roritable, falling back to the user's home directory.
func Dir() (string, error) {
	base := os.Getenv("RORITABLE_HOME")
	if base == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = homeDir
	}
	return filepath.Join(base, ".roritable"), nil
}

func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func loadConfigFile(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return createDefaultConfig(configPath)
	}
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	return &config, nil
}

func Default() *Config {
	return &Config{
		Profiles: map[string]Profile{
			"default": {Model: defaultModel, SolutionID: defaultSolutionID},
		},
		ActiveProfile: "default",
		Tables: map[string]string{
			"CRUD":   "687662a8780fb19d5a1277d8",
			"Blabla": "686e6d12db86cd32da256d86",
		},
		MaxRounds:        defaultMaxRounds,
		MaxParallelTools: defaultMaxParallelTools,
		RequestTimeout:   Duration(defaultRequestTimeout),
		LogLevel:         defaultLogLevel,
	}
}

func createDefaultConfig(configPath string) (*Config, error) {
	config := Default()
	if err := saveConfig(config, configPath); err != nil {
		return nil, err
	}
	return config, nil
}

func saveConfig(config *Config, configPath string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, data, 0600)
}

// Save writes the config back to the file it was loaded from. Environment
// overrides are not persisted.
func (c *Config) Save() error {
	configPath := c.path
	if configPath == "" {
		var err error
		if configPath, err = Path(); err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
	}
	return saveConfig(c, configPath)
}

func (c *Config) applyDefaults() {
	if c.MaxRounds <= 0 {
		c.MaxRounds = defaultMaxRounds
	}
	if c.MaxParallelTools <= 0 {
		c.MaxParallelTools = defaultMaxParallelTools
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = Duration(defaultRequestTimeout)
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
}

func (c *Config) setCurrentProfile() error {
	if len(c.Profiles) == 0 {
		return ErrNoProfiles
	}

	profile, exists := c.Profiles[c.ActiveProfile]
	if !exists {
		// Fall back to the first profile by name so the choice is stable.
		name := c.ProfileNames()[0]
		c.ActiveProfile = name
		profile = c.Profiles[name]
	}
	c.currentProfile = &profile
	return nil
}

// applyEnv overlays environment variables on the in-memory copy of the active profile.
func (c *Config) applyEnv() {
	p := c.currentProfile
	overrides := []struct {
		env    string
		target *string
	}{
		{"OPENAI_API_KEY", &p.APIKey},
		{"OPENAI_BASE_URL", &p.BaseURL},
		{"RORITABLE_MODEL", &p.Model},
		{"SMARTSUITE_API_KEY", &p.SmartSuiteAPIKey},
		{"SMARTSUITE_ACCOUNT_ID", &p.SmartSuiteAccountID},
		{"SMARTSUITE_SOLUTION_ID", &p.SolutionID},
		{"RORITABLE_LOG_LEVEL", &c.env.logLevel},
		{"SMARTSUITE_BASE_URL", &c.env.baseURL},
	}
	for _, o := range overrides {
		if v := strings.TrimSpace(os.Getenv(o.env)); v != "" {
			*o.target = v
		}
	}
	if v := os.Getenv("RORITABLE_MAX_ROUNDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.env.maxRounds = n
		}
	}
}

// SetActive switches the active profile.
func (c *Config) SetActive(name string) error {
	if _, ok := c.Profiles[name]; !ok {
		return fmt.Errorf("%w: %q", ErrProfileNotFound, name)
	}
	c.ActiveProfile = name
	if err := c.setCurrentProfile(); err != nil {
		return err
	}
	c.applyEnv()
	return nil
}

// ProfileNames returns profile names sorted alphabetically.
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsValid reports whether the model provider can be reached.
func (c *Config) IsValid() bool {
	return c.currentProfile != nil && c.currentProfile.APIKey != ""
}

// HasTableCredentials reports whether the table service can be reached.
func (c *Config) HasTableCredentials() bool {
	return c.currentProfile != nil &&
		c.currentProfile.SmartSuiteAPIKey != "" &&
		c.currentProfile.SmartSuiteAccountID != ""
}

func (c *Config) GetAPIKey() string {
	if c.currentProfile == nil {
		return ""
	}
	return c.currentProfile.APIKey
}

func (c *Config) GetModel() string {
	if c.currentProfile == nil || c.currentProfile.Model == "" {
		return defaultModel
	}
	return c.currentProfile.Model
}

func (c *Config) GetBaseURL() string {
	if c.currentProfile == nil {
		return ""
	}
	return c.currentProfile.BaseURL
}

func (c *Config) GetTableAPIKey() string {
	if c.currentProfile == nil {
		return ""
	}
	return c.currentProfile.SmartSuiteAPIKey
}

func (c *Config) GetAccountID() string {
	if c.currentProfile == nil {
		return ""
	}
	return c.currentProfile.SmartSuiteAccountID
}

func (c *Config) GetSolutionID() string {
	if c.currentProfile == nil || c.currentProfile.SolutionID == "" {
		return defaultSolutionID
	}
	return c.currentProfile.SolutionID
}

func (c *Config) GetRequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeout)
}

func (c *Config) GetMaxRounds() int {
	if c.env.maxRounds > 0 {
		return c.env.maxRounds
	}
	return c.MaxRounds
}

func (c *Config) GetLogLevel() string {
	if c.env.logLevel != "" {
		return c.env.logLevel
	}
	return c.LogLevel
}

func (c *Config) GetSmartSuiteBaseURL() string {
	if c.env.baseURL != "" {
		return c.env.baseURL
	}
	return c.SmartSuiteBaseURL
}
