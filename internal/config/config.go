// Package config provides configuration management for the masking pipeline.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrInvalidTokenizerKind     = errors.New("tokenizer.kind must be one of: grapheme, word, wordpiece")
	ErrMissingVocabPath         = errors.New("tokenizer.vocab_path is required for the wordpiece tokenizer")
	ErrInvalidMaxLength         = errors.New("tokenizer.max_length must be non-negative")
	ErrInvalidProbability       = errors.New("masking probabilities must be within [0, 1]")
	ErrInvalidMinNgram          = errors.New("masking.min_ngram_length must be at least 1")
	ErrNgramRange               = errors.New("masking.min_ngram_length must be less than masking.max_ngram_length")
	ErrNoDelimiters             = errors.New("masking.delimiters must not be empty")
	ErrNoSplits                 = errors.New("at least one dataset split is required")
	ErrNoEnabledSplits          = errors.New("at least one dataset split must be enabled")
	ErrSplitMissingName         = errors.New("split name is required")
	ErrDuplicateSplit           = errors.New("split names must be unique")
	ErrSplitMissingSource       = errors.New("either path or urls is required")
	ErrInvalidSplitFormat       = errors.New("split format must be 'json', 'jsonl' or 'html'")
	ErrInvalidNormalization     = errors.New("dataset.normalize must be one of: none, nfc, nfkc")
	ErrInvalidMaxAttempts       = errors.New("retry.max_attempts must be at least 1")
	ErrInvalidInitialDelay      = errors.New("retry.initial_delay_ms must be non-negative")
	ErrInvalidBackoffMultiplier = errors.New("retry.backoff_multiplier must be >= 1.0")
	ErrInvalidTimeout           = errors.New("retry.timeout_sec must be at least 1")
	ErrMissingOutputPath        = errors.New("output.base_path is required")
	ErrInvalidOutputFormat      = errors.New("output.format must be 'json', 'jsonl' or 'sqlite'")
	ErrInvalidLogLevel          = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat         = errors.New("logging.format must be 'text' or 'json'")
	ErrInvalidWorkers           = errors.New("advanced.workers must be non-negative")
)

// DefaultDelimiters is the sentence delimiter alphabet used when none is configured.
const DefaultDelimiters = "，,。：:；;！!？?"

// Config represents the complete pipeline configuration.
type Config struct {
	Tokenizer TokenizerConfig `yaml:"tokenizer"`
	Masking   MaskingConfig   `yaml:"masking"`
	Dataset   DatasetConfig   `yaml:"dataset"`
	Output    OutputConfig    `yaml:"output"`
	Retry     RetryPolicy     `yaml:"retry"`
	Logging   LoggingConfig   `yaml:"logging"`
	Advanced  AdvancedConfig  `yaml:"advanced"`
}

// TokenizerConfig selects and parameterizes the tokenizer.
type TokenizerConfig struct {
	Kind      string `yaml:"kind"`
	VocabPath string `yaml:"vocab_path"`
	MaskToken string `yaml:"mask_token"`
	MaxLength int    `yaml:"max_length"`
}

// MaskingConfig holds the probabilistic masking policy.
type MaskingConfig struct {
	Delimiters     string  `yaml:"delimiters"`
	DocumentMaskP  float64 `yaml:"document_mask_p"`
	SentenceMaskP  float64 `yaml:"sentence_mask_p"`
	WordMaskP      float64 `yaml:"word_mask_p"`
	NgramMaskP     float64 `yaml:"ngram_mask_p"`
	MinNgramLength int     `yaml:"min_ngram_length"`
	MaxNgramLength int     `yaml:"max_ngram_length"`
}

// DatasetConfig lists the splits to process.
type DatasetConfig struct {
	Normalize string        `yaml:"normalize"`
	Splits    []SplitConfig `yaml:"splits"`
}

// SplitConfig represents one dataset split such as train or test.
type SplitConfig struct {
	Name    string   `yaml:"name"`
	Path    string   `yaml:"path"`
	Format  string   `yaml:"format"`
	URLs    []string `yaml:"urls"`
	Enabled bool     `yaml:"enabled"`
}

// IsRemote returns true if this split is fetched over HTTP.
func (s *SplitConfig) IsRemote() bool {
	return s.Path == "" && len(s.URLs) > 0
}

// GetSources returns the file path if local, or the URLs if remote.
func (s *SplitConfig) GetSources() []string {
	if !s.IsRemote() {
		return []string{s.Path}
	}

	return s.URLs
}

// RetryPolicy defines retry behavior for remote sources.
type RetryPolicy struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialDelayMs    int     `yaml:"initial_delay_ms"`
	MaxDelayMs        int     `yaml:"max_delay_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	TimeoutSec        int     `yaml:"timeout_sec"`
}

// OutputConfig defines where and how split blobs are written.
type OutputConfig struct {
	BasePath      string `yaml:"base_path"`
	Format        string `yaml:"format"`
	Prefix        string `yaml:"prefix"`
	PrettyPrint   bool   `yaml:"pretty_print"`
	WriteManifest bool   `yaml:"write_manifest"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level         string `yaml:"level"`
	Format        string `yaml:"format"`
	SampleRecords int    `yaml:"sample_records"`
}

// AdvancedConfig contains advanced settings.
type AdvancedConfig struct {
	Seed                       uint64 `yaml:"seed"`
	Workers                    int    `yaml:"workers"`
	BufferSizeKb               int    `yaml:"buffer_size_kb"`
	PreviewWidth               int    `yaml:"preview_width"`
	ContinueOnValidationErrors bool   `yaml:"continue_on_validation_errors"`
}

// DefaultConfig returns the settings used to build the published news dataset.
func DefaultConfig() *Config {
	return &Config{
		Tokenizer: TokenizerConfig{
			Kind:      "grapheme",
			MaskToken: "[MASK]",
			MaxLength: 400,
		},
		Masking: MaskingConfig{
			Delimiters:     DefaultDelimiters,
			DocumentMaskP:  0.03,
			SentenceMaskP:  0.07,
			WordMaskP:      0.1,
			NgramMaskP:     0.5,
			MinNgramLength: 2,
			MaxNgramLength: 6,
		},
		Dataset: DatasetConfig{
			Normalize: "none",
		},
		Output: OutputConfig{
			BasePath:      "dataset",
			Format:        "json",
			Prefix:        "mlm",
			WriteManifest: true,
		},
		Retry: RetryPolicy{
			MaxAttempts:       3,
			InitialDelayMs:    500,
			MaxDelayMs:        30000,
			BackoffMultiplier: 2.0,
			TimeoutSec:        30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Advanced: AdvancedConfig{
			Seed:         42,
			BufferSizeKb: 4096,
			PreviewWidth: 40,
		},
	}
}

// LoadConfig loads configuration from a YAML file on top of DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves configuration to a YAML file.
func (c *Config) SaveConfig(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.validateTokenizer(); err != nil {
		return err
	}

	if err := c.validateMasking(); err != nil {
		return err
	}

	if err := c.validateDataset(); err != nil {
		return err
	}

	// Validate retry policy
	if c.Retry.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}

	if c.Retry.InitialDelayMs < 0 {
		return ErrInvalidInitialDelay
	}

	if c.Retry.BackoffMultiplier < 1.0 {
		return ErrInvalidBackoffMultiplier
	}

	if c.Retry.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}

	// Validate output config
	if c.Output.BasePath == "" {
		return ErrMissingOutputPath
	}

	switch c.Output.Format {
	case "json", "jsonl", "sqlite":
	default:
		return ErrInvalidOutputFormat
	}

	// Validate logging config
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	if c.Logging.Format != "" && c.Logging.Format != "text" && c.Logging.Format != "json" {
		return ErrInvalidLogFormat
	}

	if c.Advanced.Workers < 0 {
		return ErrInvalidWorkers
	}

	return nil
}

func (c *Config) validateTokenizer() error {
	switch c.Tokenizer.Kind {
	case "grapheme", "word":
	case "wordpiece":
		if c.Tokenizer.VocabPath == "" {
			return ErrMissingVocabPath
		}
	default:
		return ErrInvalidTokenizerKind
	}

	if c.Tokenizer.MaxLength < 0 {
		return ErrInvalidMaxLength
	}

	return nil
}

func (c *Config) validateMasking() error {
	m := c.Masking

	probs := map[string]float64{
		"document_mask_p": m.DocumentMaskP,
		"sentence_mask_p": m.SentenceMaskP,
		"word_mask_p":     m.WordMaskP,
		"ngram_mask_p":    m.NgramMaskP,
	}

	for name, p := range probs {
		if p < 0 || p > 1 {
			return fmt.Errorf("%w: masking.%s = %v", ErrInvalidProbability, name, p)
		}
	}

	if m.MinNgramLength < 1 {
		return ErrInvalidMinNgram
	}

	if m.MinNgramLength >= m.MaxNgramLength {
		return ErrNgramRange
	}

	if m.Delimiters == "" {
		return ErrNoDelimiters
	}

	return nil
}

func (c *Config) validateDataset() error {
	if len(c.Dataset.Splits) == 0 {
		return ErrNoSplits
	}

	switch strings.ToLower(c.Dataset.Normalize) {
	case "", "none", "nfc", "nfkc":
	default:
		return ErrInvalidNormalization
	}

	seen := make(map[string]bool, len(c.Dataset.Splits))
	enabledCount := 0

	for i, split := range c.Dataset.Splits {
		if split.Name == "" {
			return fmt.Errorf("%w: split[%d]", ErrSplitMissingName, i)
		}

		if seen[split.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateSplit, split.Name)
		}

		seen[split.Name] = true

		if split.Path == "" && len(split.URLs) == 0 {
			return fmt.Errorf("%w: split[%d]", ErrSplitMissingSource, i)
		}

		switch split.Format {
		case "json", "jsonl", "html":
		default:
			return fmt.Errorf("%w: split[%d]", ErrInvalidSplitFormat, i)
		}

		if split.Enabled {
			enabledCount++
		}
	}

	if enabledCount == 0 {
		return ErrNoEnabledSplits
	}

	return nil
}

// GetEnabledSplits returns only enabled splits.
func (c *Config) GetEnabledSplits() []SplitConfig {
	var enabled []SplitConfig

	for _, split := range c.Dataset.Splits {
		if split.Enabled {
			enabled = append(enabled, split)
		}
	}

	return enabled
}

// GetSplit returns the split with the given name.
func (c *Config) GetSplit(name string) (SplitConfig, bool) {
	for _, split := range c.Dataset.Splits {
		if split.Name == name {
			return split, true
		}
	}

	return SplitConfig{}, false
}

// GetRetryDelay calculates exponential backoff delay for attempt number.
func (rp *RetryPolicy) GetRetryDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delayMs := float64(rp.InitialDelayMs)
	for i := 1; i < attempt; i++ {
		delayMs *= rp.BackoffMultiplier
	}

	// Cap at max delay
	if int(delayMs) > rp.MaxDelayMs {
		delayMs = float64(rp.MaxDelayMs)
	}

	return time.Duration(int(delayMs)) * time.Millisecond
}

// GetTimeout returns the timeout duration.
func (rp *RetryPolicy) GetTimeout() time.Duration {
	return time.Duration(rp.TimeoutSec) * time.Second
}

// GetOutputPath follows structure: {base_path}/{prefix}_{split}.{ext}.
func (c *Config) GetOutputPath(split string) string {
	ext := c.Output.Format
	if ext == "" {
		ext = "json"
	}

	name := split + "." + ext
	if c.Output.Prefix != "" {
		name = c.Output.Prefix + "_" + name
	}

	return filepath.Join(c.Output.BasePath, name)
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Splits: %d, Tokenizer: %s/%d, Output: %s (%s)}",
		len(c.Dataset.Splits),
		c.Tokenizer.Kind,
		c.Tokenizer.MaxLength,
		c.Output.BasePath,
		c.Output.Format,
	)
}
