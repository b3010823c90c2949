package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"baniusync/internal/storage"
)

// ErrMissingField is wrapped by validation errors for empty required fields
var ErrMissingField = errors.New("must not be empty")

// Config represents the application configuration
type Config struct {
	Storage     Storage     `yaml:"storage"`
	Credentials Credentials `yaml:"credentials"`
	Upload      Upload      `yaml:"upload"`
	Journal     string      `yaml:"journal"`
	MetricsAddr string      `yaml:"metrics_addr"`
	LogLevel    string      `yaml:"log_level"`
	Profile     string      `yaml:"profile"`
}

// Storage selects and locates the object storage service
type Storage struct {
	Provider string `yaml:"provider"`
	Endpoint string `yaml:"endpoint"`
	Region   string `yaml:"region"`
	Secure   bool   `yaml:"secure"`
}

// Credentials identify the bucket and how to access it
type Credentials struct {
	APIKey     string `yaml:"apikey"`
	APISecret  string `yaml:"apisecret"`
	BucketName string `yaml:"bucket_name"`
}

// Upload contains per-session upload settings
type Upload struct {
	Prefix       string `yaml:"prefix"`
	Dir          string `yaml:"dir"`
	DryRun       bool   `yaml:"dry_run"`
	ShowProgress bool   `yaml:"show_progress"`
}

// Default returns the configuration used when nothing else is set
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Journal:  "./baniusync.db",
		Profile:  DefaultProfile,
		Storage: Storage{
			Provider: storage.ProviderMinIO,
			Region:   "us-east-1",
			Secure:   true,
		},
		Upload: Upload{
			Dir:          ".",
			ShowProgress: true,
		},
	}
}

// Load builds the configuration from the INI profile, the YAML file and
// command line flags, in that order of increasing precedence
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	cfg, err := Resolve(configFile, flags)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Resolve is Load without validation
func Resolve(configFile string, flags *pflag.FlagSet) (*Config, error) {
	cfg := Default()

	if flags != nil && flags.Changed("profile") {
		cfg.Profile, _ = flags.GetString("profile")
	}
	if err := LoadProfile(cfg, cfg.Profile); err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	if configFile != "" {
		if err := loadFromFile(cfg, configFile); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if flags != nil {
		if err := loadFromFlags(cfg, flags); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	return cfg, nil
}

func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func loadFromFlags(cfg *Config, flags *pflag.FlagSet) error {
	if flags.Changed("provider") {
		cfg.Storage.Provider, _ = flags.GetString("provider")
	}
	if flags.Changed("endpoint") {
		cfg.Storage.Endpoint, _ = flags.GetString("endpoint")
	}
	if flags.Changed("region") {
		cfg.Storage.Region, _ = flags.GetString("region")
	}
	if flags.Changed("secure") {
		cfg.Storage.Secure, _ = flags.GetBool("secure")
	}

	if flags.Changed("apikey") {
		cfg.Credentials.APIKey, _ = flags.GetString("apikey")
	}
	if flags.Changed("apisecret") {
		cfg.Credentials.APISecret, _ = flags.GetString("apisecret")
	}
	if flags.Changed("bucket") {
		cfg.Credentials.BucketName, _ = flags.GetString("bucket")
	}

	if flags.Changed("prefix") {
		cfg.Upload.Prefix, _ = flags.GetString("prefix")
	}
	if flags.Changed("dry-run") {
		cfg.Upload.DryRun, _ = flags.GetBool("dry-run")
	}
	if flags.Changed("show-progress") {
		cfg.Upload.ShowProgress, _ = flags.GetBool("show-progress")
	}

	if flags.Changed("journal") {
		cfg.Journal, _ = flags.GetString("journal")
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr, _ = flags.GetString("metrics-addr")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}

	return nil
}

// Validate checks the fields an upload cannot start without
func (c *Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"apikey", c.Credentials.APIKey},
		{"apisecret", c.Credentials.APISecret},
		{"bucket_name", c.Credentials.BucketName},
	}
	for _, field := range required {
		if field.value == "" {
			return fmt.Errorf("%s %w", field.name, ErrMissingField)
		}
	}

	switch c.Storage.Provider {
	case storage.ProviderMinIO:
		if c.Storage.Endpoint == "" {
			return fmt.Errorf("endpoint is required for provider %s", c.Storage.Provider)
		}
	case storage.ProviderS3, storage.ProviderAzure:
	default:
		return fmt.Errorf("%w: %q", storage.ErrUnknownProvider, c.Storage.Provider)
	}

	return nil
}

// StorageConfig converts the configuration for the storage package
func (c *Config) StorageConfig() storage.Config {
	return storage.Config{
		Provider:  c.Storage.Provider,
		Endpoint:  c.Storage.Endpoint,
		Region:    c.Storage.Region,
		Bucket:    c.Credentials.BucketName,
		AccessKey: c.Credentials.APIKey,
		SecretKey: c.Credentials.APISecret,
		Secure:    c.Storage.Secure,
	}
}

// Masked returns a copy safe to print
func (c *Config) Masked() Config {
	out := *c
	if out.Credentials.APISecret != "" {
		out.Credentials.APISecret = "********"
	}
	return out
}
