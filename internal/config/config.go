// Package config handles .docforensicrc.yml project-level configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/docforensic/docforensic/internal/scoring"
)

// ProjectConfig represents the .docforensicrc.yml configuration file: a
// team's standing overrides for scoring weights, expected issuer
// identity, and external-service endpoints.
type ProjectConfig struct {
	Version int              `yaml:"version"`
	Scoring scoringOverrides `yaml:"scoring"`

	// ExpectedDomains is the standing issuer-domain allowlist for QR
	// payload checks; the --expect-domain flag overrides it per run.
	ExpectedDomains []string `yaml:"expected_domains"`
	// ExpectedName is the standing issuer company name for registry
	// comparison; the --expect-name flag overrides it per run.
	ExpectedName string `yaml:"expected_name"`

	Registry serviceEndpoint `yaml:"registry"`
	VAT      serviceEndpoint `yaml:"vat"`

	// TrustedCAs extends the signature trust store.
	TrustedCAs []string `yaml:"trusted_cas"`
}

// scoringOverrides contains per-module weight overrides.
type scoringOverrides struct {
	Weights map[string]float64 `yaml:"weights"`
}

// serviceEndpoint configures one optional external service.
type serviceEndpoint struct {
	BaseURL string `yaml:"base_url"`
}

// LoadProjectConfig loads project configuration from
// .docforensicrc.yml or .docforensicrc.yaml. If explicitPath is
// provided (from --config), that file is loaded. Returns nil (no error)
// if no config file is found.
func LoadProjectConfig(dir string, explicitPath string) (*ProjectConfig, error) {
	var configPath string

	if explicitPath != "" {
		configPath = explicitPath
	} else {
		ymlPath := filepath.Join(dir, ".docforensicrc.yml")
		yamlPath := filepath.Join(dir, ".docforensicrc.yaml")

		if _, err := os.Stat(ymlPath); err == nil {
			configPath = ymlPath
		} else if _, err := os.Stat(yamlPath); err == nil {
			configPath = yamlPath
		} else {
			return nil, nil // no config found, use defaults
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read project config %s: %w", configPath, err)
	}

	cfg := &ProjectConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse project config %s: %w", configPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid project config %s: %w", configPath, err)
	}

	return cfg, nil
}

// Validate checks that the ProjectConfig values are valid.
func (c *ProjectConfig) Validate() error {
	if c.Version != 0 && c.Version != 1 {
		return fmt.Errorf("unsupported config version %d (expected 1)", c.Version)
	}
	for name, weight := range c.Scoring.Weights {
		if weight < 0 {
			return fmt.Errorf("weight for %q must be >= 0, got %f", name, weight)
		}
	}
	return nil
}

// ApplyToScoringConfig applies project weight overrides onto a scoring
// config. A nil receiver or target is a no-op.
func (c *ProjectConfig) ApplyToScoringConfig(sc *scoring.Config) {
	if c == nil || sc == nil {
		return
	}
	for name, weight := range c.Scoring.Weights {
		switch name {
		case "metadata":
			sc.Weights.Metadata = weight
		case "content":
			sc.Weights.Content = weight
		case "visual":
			sc.Weights.Visual = weight
		case "fonts":
			sc.Weights.Fonts = weight
		case "images":
			sc.Weights.Images = weight
		case "structure":
			sc.Weights.Structure = weight
		case "forensics":
			sc.Weights.Forensics = weight
		case "external":
			sc.Weights.External = weight
		case "twodoc":
			sc.Weights.TwoDDoc = weight
		case "unknown":
			sc.Weights.Unknown = weight
		}
	}
}
