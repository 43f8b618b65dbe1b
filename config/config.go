// Package config loads the settings shared by the artifetch commands.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/adamwoolhether/artifetch/artifacts"
	"github.com/adamwoolhether/artifetch/client"
	"github.com/adamwoolhether/artifetch/report"
)

// EnvRepoRoot overrides Config.RepoRoot.
const EnvRepoRoot = "REPO_COPY"

// Config holds every tunable of the fetchers.
type Config struct {
	RepoRoot      string            `yaml:"repo_root"`
	Retries       int               `yaml:"retries" validate:"gte=1,lte=100"`
	Sleep         time.Duration     `yaml:"sleep" validate:"gte=0"`
	Timeout       time.Duration     `yaml:"timeout" validate:"gt=0"`
	UserAgent     string            `yaml:"user_agent"`
	Throttle      *Throttle         `yaml:"throttle"`
	MasterBaseURL string            `yaml:"master_base_url" validate:"required,url"`
	BinaryName    string            `yaml:"binary_name" validate:"required"`
	TokenEnv      string            `yaml:"token_env" validate:"required"`
	Checks        map[string]string `yaml:"checks" validate:"dive,keys,required,endkeys,required,build_name"`
}

// Throttle configures client side rate limiting.
type Throttle struct {
	RPS      int           `yaml:"rps" validate:"gt=0"`
	Burst    int           `yaml:"burst" validate:"gt=0"`
	MaxPause time.Duration `yaml:"max_pause" validate:"gte=0"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		RepoRoot:      ".",
		Retries:       client.DefaultRetries,
		Sleep:         client.DefaultSleep,
		Timeout:       client.DefaultAttemptTimeout,
		UserAgent:     "artifetch/1.0",
		MasterBaseURL: artifacts.DefaultMasterBaseURL,
		BinaryName:    artifacts.DefaultBinaryName,
		TokenEnv:      "ROBOT_TOKEN",
	}
}

// Load reads the YAML file at path over [Default], applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
		if err := decode(bytes.NewReader(b), &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if v, ok := os.LookupEnv(EnvRepoRoot); ok && v != "" {
		cfg.RepoRoot = v
	}

	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	d := yaml.NewDecoder(r)
	d.KnownFields(true)

	if err := d.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	return nil
}

// CheckTable converts Checks for the artifact fetcher.
func (c Config) CheckTable() report.CheckTable {
	t := make(report.CheckTable, len(c.Checks))
	for check, build := range c.Checks {
		t[check] = report.BuildName(build)
	}
	return t
}

// PresetToken reads the long-lived API token named by TokenEnv.
func (c Config) PresetToken() string {
	return os.Getenv(c.TokenEnv)
}
