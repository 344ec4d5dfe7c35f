// Package config loads harvester settings, repository definitions and
// access mapping tables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings.
const (
	EnvDBPath    = "DDIHARVEST_DB_PATH"
	EnvJWTSecret = "DDIHARVEST_JWT_SECRET"
)

// DatabaseConfig locates the index database.
type DatabaseConfig struct {
	Path string `yaml:"path" json:"path"`
}

// ServerConfig configures the HTTP trigger API.
type ServerConfig struct {
	Addr      string        `yaml:"addr" json:"addr"`
	JWTSecret string        `yaml:"jwt_secret" json:"-"`
	JWTIssuer string        `yaml:"jwt_issuer" json:"jwt_issuer"`
	Interval  time.Duration `yaml:"interval" json:"interval"`
}

// HarvestConfig bounds harvest concurrency and network behaviour.
type HarvestConfig struct {
	Concurrency       int           `yaml:"concurrency" json:"concurrency"`
	RecordConcurrency int           `yaml:"record_concurrency" json:"record_concurrency"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	MaxRetries        int           `yaml:"max_retries" json:"max_retries"`
	// RequestInterval is the minimum delay between requests to one endpoint.
	RequestInterval time.Duration `yaml:"request_interval" json:"request_interval"`
	// MaxRequests caps the requests of one listing; zero means no limit.
	MaxRequests int `yaml:"max_requests" json:"max_requests"`
}

// Settings is the top-level harvester configuration.
type Settings struct {
	// Languages are the target languages records are published in.
	Languages []string `yaml:"languages" json:"languages"`
	// DefaultLanguage receives content without a language when neither the
	// document nor the repository names one.
	DefaultLanguage string `yaml:"default_language" json:"default_language"`
	Backfill        bool   `yaml:"backfill" json:"backfill"`
	FailOnStrict    bool   `yaml:"fail_on_strict" json:"fail_on_strict"`
	// LegacyGate also requires creators, classifications and countries
	// before a language is published.
	LegacyGate bool `yaml:"legacy_gate" json:"legacy_gate"`

	RepositoriesDir    string `yaml:"repositories_dir" json:"repositories_dir"`
	AccessMappingsFile string `yaml:"access_mappings_file" json:"access_mappings_file"`

	Database DatabaseConfig `yaml:"database" json:"database"`
	Server   ServerConfig   `yaml:"server" json:"server"`
	Harvest  HarvestConfig  `yaml:"harvest" json:"harvest"`
}

// DefaultSettings returns the settings used when no file is given.
func DefaultSettings() Settings {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return Settings{
		Languages:       []string{"en"},
		DefaultLanguage: "en",
		Backfill:        true,
		RepositoriesDir: "repositories",
		Database: DatabaseConfig{
			Path: filepath.Join(home, ".ddiharvest", "index.db"),
		},
		Server: ServerConfig{
			Addr:      ":8080",
			JWTIssuer: "ddiharvest",
		},
		Harvest: HarvestConfig{
			Concurrency:       4,
			RecordConcurrency: 8,
			Timeout:           30 * time.Second,
			MaxRetries:        3,
		},
	}
}

// LoadSettings reads a YAML settings file on top of the defaults and
// applies environment overrides. An empty path yields the defaults.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("reading settings: %w", err)
		}
		if err := yaml.Unmarshal(data, &settings); err != nil {
			return Settings{}, fmt.Errorf("parsing settings YAML: %w", err)
		}
		if settings.RepositoriesDir != "" && !filepath.IsAbs(settings.RepositoriesDir) {
			settings.RepositoriesDir = filepath.Join(filepath.Dir(path), settings.RepositoriesDir)
		}
		if settings.AccessMappingsFile != "" && !filepath.IsAbs(settings.AccessMappingsFile) {
			settings.AccessMappingsFile = filepath.Join(filepath.Dir(path), settings.AccessMappingsFile)
		}
	}
	settings.applyEnv()

	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

func (s *Settings) applyEnv() {
	if p := os.Getenv(EnvDBPath); p != "" {
		s.Database.Path = p
	}
	if secret := os.Getenv(EnvJWTSecret); secret != "" {
		s.Server.JWTSecret = secret
	}
}

// Validate checks language codes and numeric bounds.
func (s Settings) Validate() error {
	if len(s.Languages) == 0 {
		return errors.New("at least one target language is required")
	}
	for _, code := range s.Languages {
		if err := ValidateLanguage(code); err != nil {
			return err
		}
	}
	if err := ValidateLanguage(s.DefaultLanguage); err != nil {
		return fmt.Errorf("default language: %w", err)
	}
	if s.Harvest.Concurrency < 1 {
		return fmt.Errorf("harvest concurrency must be positive, got %d", s.Harvest.Concurrency)
	}
	if s.Harvest.RecordConcurrency < 1 {
		return fmt.Errorf("record concurrency must be positive, got %d", s.Harvest.RecordConcurrency)
	}
	if s.Database.Path == "" {
		return errors.New("database path is required")
	}
	return nil
}

// ValidateLanguage checks that code is a well-formed BCP 47 language tag.
func ValidateLanguage(code string) error {
	if code == "" {
		return errors.New("language code is empty")
	}
	if _, err := language.Parse(code); err != nil {
		return fmt.Errorf("invalid language code %q: %w", code, err)
	}
	return nil
}
