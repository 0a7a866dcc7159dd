// Package config reads the YAML run configuration and builds the pipeline
// collaborators from it.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/uniscrape/pkg/uniscrape/classify"
	"github.com/cognicore/uniscrape/pkg/uniscrape/internalerr"
)

// Config is the run configuration.
type Config struct {
	Language      string        `yaml:"language"`
	MinTextLength int           `yaml:"min_text_length"`
	SleepTime     time.Duration `yaml:"sleep_time"`
	MaxRetries    int           `yaml:"max_retries"`
	RetryBackoff  time.Duration `yaml:"retry_backoff"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout"`
	VerifyTLS     bool          `yaml:"verify_tls"`
	UserAgent     string        `yaml:"user_agent"`
	// MaxLinks caps the URLs processed per run; 0 means no cap.
	MaxLinks int `yaml:"max_links"`

	Input      Input      `yaml:"input"`
	Ledger     Ledger     `yaml:"ledger"`
	Logs       Logs       `yaml:"logs"`
	Database   Database   `yaml:"database"`
	Output     Output     `yaml:"output"`
	LLM        LLM        `yaml:"llm"`
	Tagger     Tagger     `yaml:"tagger"`
	Classifier Classifier `yaml:"classifier"`
}

// Input names the work queues.
type Input struct {
	URLs string `yaml:"urls"`
	PDFs string `yaml:"pdfs"`
}

// Ledger names the visited files.
type Ledger struct {
	URLs string `yaml:"urls"`
	PDFs string `yaml:"pdfs"`
}

// Logs configures the tool and console logs.
type Logs struct {
	Dir     string `yaml:"dir"`
	File    string `yaml:"file"`
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

// Database configures the sqlite record store.
type Database struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Output configures the JSON lines record file. Empty Path with the
// database disabled prints records to stdout.
type Output struct {
	JSONL string `yaml:"jsonl"`
}

// LLM configures the OpenAI-compatible model used for markdown cleanup and
// classification. It is disabled unless both BaseURL and Model are set.
type LLM struct {
	BaseURL    string        `yaml:"base_url"`
	Model      string        `yaml:"model"`
	APIKeyEnv  string        `yaml:"api_key_env"`
	Timeout    time.Duration `yaml:"timeout"`
	ChunkSize  int           `yaml:"chunk_size"`
	CleanupPDF bool          `yaml:"cleanup_pdf"`
}

// Enabled reports whether a model is configured.
func (l LLM) Enabled() bool {
	return l.BaseURL != "" && l.Model != ""
}

// Tagger selects the NER/POS tagger. An empty Endpoint selects the built-in
// rule tagger, whose resources may be overridden by Gazetteer and Lexicon.
type Tagger struct {
	Endpoint  string        `yaml:"endpoint"`
	Timeout   time.Duration `yaml:"timeout"`
	Gazetteer string        `yaml:"gazetteer"`
	Lexicon   string        `yaml:"lexicon"`
}

// Classifier configures document type rules. Rules replace the built-in
// table; RulesFile is read when Rules is empty.
type Classifier struct {
	Rules     classify.Rules `yaml:"rules"`
	RulesFile string         `yaml:"rules_file"`
	Fallback  classify.Label `yaml:"fallback"`
	MaxBody   int            `yaml:"max_body"`
}

// Default returns the configuration used for keys a file leaves out.
func Default() Config {
	return Config{
		Language:      "pl",
		MinTextLength: 100,
		SleepTime:     3 * time.Second,
		MaxRetries:    2,
		RetryBackoff:  3 * time.Second,
		FetchTimeout:  10 * time.Second,
		UserAgent:     "Mozilla/5.0 (compatible; uniscrape/1.0)",
		Input: Input{
			URLs: "to_scrape/urls_to_scrape.csv",
			PDFs: "to_scrape/pdfs/",
		},
		Ledger: Ledger{
			URLs: "visited/visited_urls.csv",
			PDFs: "visited/visited_pdfs.csv",
		},
		Logs: Logs{
			Dir:     "logs/",
			File:    "app_log.log",
			Level:   "info",
			Console: true,
		},
		Database: Database{Path: "uniscrape.db"},
		LLM: LLM{
			APIKeyEnv: "OPEN_AI_KEY",
			Timeout:   60 * time.Second,
			ChunkSize: 4000,
		},
		Tagger:     Tagger{Timeout: 30 * time.Second},
		Classifier: Classifier{MaxBody: 4000},
	}
}

// Load reads a YAML file over the defaults and validates the result. An
// empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w: %v", internalerr.ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and label names.
func (c Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: "+format, append([]any{internalerr.ErrInvalidConfig}, args...)...)
	}
	switch {
	case c.Language == "":
		return invalid("language is required")
	case c.MinTextLength < 0:
		return invalid("min_text_length must not be negative")
	case c.SleepTime < 0 || c.RetryBackoff < 0 || c.FetchTimeout < 0:
		return invalid("durations must not be negative")
	case c.MaxRetries < 0:
		return invalid("max_retries must not be negative")
	case c.MaxLinks < 0:
		return invalid("max_links must not be negative")
	case c.LLM.ChunkSize <= 0:
		return invalid("llm.chunk_size must be positive")
	case c.LLM.CleanupPDF && !c.LLM.Enabled():
		return invalid("llm.cleanup_pdf needs llm.base_url and llm.model")
	case c.Database.Enabled && c.Database.Path == "":
		return invalid("database.path is required")
	case c.Classifier.Fallback != "" && !c.Classifier.Fallback.Valid():
		return invalid("classifier.fallback %q is not a document type", c.Classifier.Fallback)
	}
	if err := c.Classifier.Rules.Validate(); err != nil {
		return invalid("classifier.rules: %v", err)
	}
	return nil
}

// APIKey returns the LLM key from the environment.
func (c Config) APIKey() string {
	if c.LLM.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.LLM.APIKeyEnv)
}
