// Package config loads presentation pipeline settings from an optional YAML
// file, then applies environment overrides. Credentials are only ever read
// from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Lllllllleong/presentationflow/internal/gcp"
	"gopkg.in/yaml.v3"
)

// Backend selects and configures the text-generation backend.
type Backend struct {
	// Provider is one of vertex, gemini, openai, ollama.
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	ProjectID string `yaml:"project_id"`
	Region    string `yaml:"region"`
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"-"`
}

// Generation configures the narrative request.
type Generation struct {
	Expertise       string        `yaml:"expertise"`
	Topic           string        `yaml:"topic"`
	MaxOutputTokens int           `yaml:"max_output_tokens"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxAttempts     int           `yaml:"max_attempts"`
	InitialBackoff  time.Duration `yaml:"initial_backoff"`
}

// Render configures the output document.
type Render struct {
	Header   string `yaml:"header"`
	Filename string `yaml:"filename"`
}

// Extraction configures ingestion.
type Extraction struct {
	Workers     int   `yaml:"workers"`
	MaxFileSize int64 `yaml:"max_file_size"`
}

// Storage configures the event-triggered job function.
type Storage struct {
	OutputBucket     string `yaml:"output_bucket"`
	Collection       string `yaml:"collection"`
	WorkflowID       string `yaml:"workflow_id"`
	WorkflowLocation string `yaml:"workflow_location"`
}

type Config struct {
	Backend    Backend    `yaml:"backend"`
	Generation Generation `yaml:"generation"`
	Render     Render     `yaml:"render"`
	Extraction Extraction `yaml:"extraction"`
	Storage    Storage    `yaml:"storage"`
}

// Option adjusts a loaded configuration before defaults are filled, so
// derived settings such as the API key follow the adjusted values.
type Option func(*Config)

// WithBackend overrides the provider and model when they are non-empty.
func WithBackend(provider, model string) Option {
	return func(c *Config) {
		if provider != "" {
			c.Backend.Provider = provider
		}
		if model != "" {
			c.Backend.Model = model
		}
	}
}

// Load reads the YAML file at path (skipped when path is empty), applies
// environment overrides, then opts, and fills defaults.
func Load(path string, opts ...Option) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.defaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	override(&c.Backend.Provider, "PRESENTATION_BACKEND")
	override(&c.Backend.Model, "PRESENTATION_MODEL")
	override(&c.Backend.ProjectID, "PROJECT_ID")
	override(&c.Backend.Region, "VERTEX_AI_REGION")
	override(&c.Backend.BaseURL, "PRESENTATION_BACKEND_URL")

	override(&c.Generation.Expertise, "PRESENTATION_EXPERTISE")
	override(&c.Generation.Topic, "PRESENTATION_TOPIC")
	override(&c.Render.Header, "PRESENTATION_HEADER")

	override(&c.Storage.OutputBucket, "OUTPUT_BUCKET")
	override(&c.Storage.Collection, "FIRESTORE_COLLECTION")
	override(&c.Storage.WorkflowID, "WORKFLOW_ID")
	override(&c.Storage.WorkflowLocation, "WORKFLOW_LOCATION")

	if v := gcp.GetEnv("MAX_OUTPUT_TOKENS", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MAX_OUTPUT_TOKENS: %w", err)
		}
		c.Generation.MaxOutputTokens = n
	}
	if v := gcp.GetEnv("GENERATION_TIMEOUT", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("GENERATION_TIMEOUT: %w", err)
		}
		c.Generation.Timeout = d
	}
	return nil
}

func (c *Config) defaults() {
	if c.Backend.Provider == "" {
		c.Backend.Provider = "vertex"
	}
	if c.Backend.Region == "" {
		c.Backend.Region = "us-central1"
	}
	if c.Backend.APIKey == "" {
		c.Backend.APIKey = apiKeyFor(c.Backend.Provider)
	}
	if c.Generation.MaxOutputTokens <= 0 {
		c.Generation.MaxOutputTokens = 1500
	}
	if c.Generation.Timeout <= 0 {
		c.Generation.Timeout = 120 * time.Second
	}
	if c.Generation.MaxAttempts <= 0 {
		c.Generation.MaxAttempts = 1
	}
	if c.Generation.InitialBackoff <= 0 {
		c.Generation.InitialBackoff = time.Second
	}
	if c.Extraction.Workers <= 0 {
		c.Extraction.Workers = 4
	}
	if c.Extraction.MaxFileSize <= 0 {
		c.Extraction.MaxFileSize = 50 * 1024 * 1024
	}
	if c.Render.Filename == "" {
		c.Render.Filename = "presentation.pdf"
	}
	if c.Storage.Collection == "" {
		c.Storage.Collection = "presentations"
	}
	if c.Storage.WorkflowLocation == "" {
		c.Storage.WorkflowLocation = c.Backend.Region
	}
}

// override replaces *field with the environment value when it is non-empty.
func override(field *string, key string) {
	if v := gcp.GetEnv(key, ""); v != "" {
		*field = v
	}
}

func apiKeyFor(provider string) string {
	switch provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "gemini":
		return os.Getenv("GEMINI_API_KEY")
	}
	return ""
}
