package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all text2ppt client configuration.
type Config struct {
	// Generation service endpoints
	Service ServiceConfig `yaml:"service"`

	// Durable client storage (session identity)
	Storage StorageConfig `yaml:"storage"`

	// Where downloaded presentations land
	Download DownloadConfig `yaml:"download"`

	// Client-side attachment limits
	Limits LimitsConfig `yaml:"limits"`

	// Third-party OTP widget
	OTP OTPConfig `yaml:"otp"`

	// Terminal UI
	UI UIConfig `yaml:"ui"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ServiceConfig configures the remote generation service.
type ServiceConfig struct {
	BaseURL      string `yaml:"base_url"`
	GeneratePath string `yaml:"generate_path"`
	SignInPath   string `yaml:"signin_path"`
	SignUpPath   string `yaml:"signup_path"`
	HistoryPath  string `yaml:"history_path"`
	// Timeout of "0s" means no client-side timeout.
	Timeout string `yaml:"timeout"`
}

// StorageConfig configures the local key/value store.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	// Watch reloads the identity when another process logs in or out.
	Watch bool `yaml:"watch"`
}

// DownloadConfig configures the file-save side effect.
type DownloadConfig struct {
	Directory string `yaml:"directory"`
	FileName  string `yaml:"file_name"`
}

// LimitsConfig holds the attachment acceptability constraints.
type LimitsConfig struct {
	MaxDocumentBytes   int64    `yaml:"max_document_bytes"`
	MaxImageBytes      int64    `yaml:"max_image_bytes"`
	DocumentExtensions []string `yaml:"document_extensions"`
}

// OTPConfig configures the mobile verification widget.
type OTPConfig struct {
	Endpoint  string `yaml:"endpoint"`
	SecretKey string `yaml:"secret_key"`
	Timeout   string `yaml:"timeout"`
}

// UIConfig holds terminal UI preferences.
type UIConfig struct {
	Theme string `yaml:"theme"` // light, dark, auto
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			BaseURL:      "http://127.0.0.1:8000",
			GeneratePath: "/generate-ppt",
			SignInPath:   "/signin",
			SignUpPath:   "/signup",
			HistoryPath:  "/user-history",
			Timeout:      "0s",
		},

		Storage: StorageConfig{
			DatabasePath: filepath.Join(DefaultDataDir(), "text2ppt.db"),
			Watch:        true,
		},

		Download: DownloadConfig{
			Directory: ".",
			FileName:  "generated_ppt.pptx",
		},

		Limits: LimitsConfig{
			MaxDocumentBytes:   10 * 1024 * 1024,
			MaxImageBytes:      2 * 1024 * 1024,
			DocumentExtensions: []string{".pdf", ".docx", ".txt"},
		},

		OTP: OTPConfig{
			Endpoint: "http://127.0.0.1:3002/api/check-otp-availability",
			Timeout:  "30s",
		},

		UI: UIConfig{
			Theme: "auto",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			File:   "text2ppt.log",
		},
	}
}

// DefaultDataDir returns the per-user data directory (~/.text2ppt).
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".text2ppt"
	}
	return filepath.Join(home, ".text2ppt")
}

// DefaultConfigPath returns the path of the default config file.
func DefaultConfigPath() string {
	return filepath.Join(DefaultDataDir(), "config.yaml")
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Defaults still honor the environment
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if u := os.Getenv("TEXT2PPT_SERVICE_URL"); u != "" {
		c.Service.BaseURL = u
	}
	if path := os.Getenv("TEXT2PPT_DB"); path != "" {
		c.Storage.DatabasePath = path
	}
	if dir := os.Getenv("TEXT2PPT_DOWNLOAD_DIR"); dir != "" {
		c.Download.Directory = dir
	}
	if endpoint := os.Getenv("TEXT2PPT_OTP_ENDPOINT"); endpoint != "" {
		c.OTP.Endpoint = endpoint
	}
	if secret := os.Getenv("TEXT2PPT_OTP_SECRET"); secret != "" {
		c.OTP.SecretKey = secret
	}
	if os.Getenv("TEXT2PPT_DARK_MODE") == "1" {
		c.UI.Theme = "dark"
	}
}

// GetServiceTimeout returns the HTTP timeout; zero disables it.
func (c *Config) GetServiceTimeout() time.Duration {
	d, err := time.ParseDuration(c.Service.Timeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// GetOTPTimeout returns how long to wait for the verification widget.
func (c *Config) GetOTPTimeout() time.Duration {
	d, err := time.ParseDuration(c.OTP.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// ValidThemes lists the accepted ui.theme values.
var ValidThemes = []string{"auto", "light", "dark"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Service.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid service base_url: %q", c.Service.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported service scheme: %s", u.Scheme)
	}

	if c.Limits.MaxDocumentBytes <= 0 || c.Limits.MaxImageBytes <= 0 {
		return fmt.Errorf("attachment size limits must be positive")
	}
	if len(c.Limits.DocumentExtensions) == 0 {
		return fmt.Errorf("at least one document extension must be allowed")
	}

	if strings.TrimSpace(c.Download.FileName) == "" {
		return fmt.Errorf("download file_name must not be empty")
	}

	validTheme := false
	for _, t := range ValidThemes {
		if c.UI.Theme == t {
			validTheme = true
			break
		}
	}
	if !validTheme {
		return fmt.Errorf("invalid ui theme: %s (valid: %v)", c.UI.Theme, ValidThemes)
	}

	return nil
}

// LogsDir returns the directory log files are written to.
func (c *Config) LogsDir() string {
	return filepath.Join(filepath.Dir(c.Storage.DatabasePath), "logs")
}
