package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	APIBind string `toml:"api_bind"`
}

// Provider selects the active generation backend and its models.
type Provider struct {
	// Name selects the backend: "google" or "openai".
	Name   string         `toml:"name"`
	Google GoogleProvider `toml:"google"`
	OpenAI OpenAIProvider `toml:"openai"`
}

// GoogleProvider contains Gemini connection and model settings.
type GoogleProvider struct {
	APIKey                  string `toml:"api_key"`
	BaseURL                 string `toml:"base_url"`
	ChatModel               string `toml:"chat_model"`
	ImageModel              string `toml:"image_model"`
	ImageModelWithReference string `toml:"image_model_with_reference"`
	ImageWithReference      bool   `toml:"image_with_reference"`
	TTSModel                string `toml:"tts_model"`
	TTSVoice                string `toml:"tts_voice"`
	TimeoutSeconds          int    `toml:"timeout_seconds"`
}

// OpenAIProvider contains OpenAI connection and model settings.
type OpenAIProvider struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	ChatModel      string `toml:"chat_model"`
	ImageModel     string `toml:"image_model"`
	TTSModel       string `toml:"tts_model"`
	TTSVoice       string `toml:"tts_voice"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Workflow contains admission-gate and scheduling settings for content generation.
type Workflow struct {
	// MaxConcurrentGenerations bounds simultaneously executing content pipelines.
	MaxConcurrentGenerations int `toml:"max_concurrent_generations"`
	// GenerationDelaySeconds staggers pipeline starts to smooth upstream burst load.
	GenerationDelaySeconds int `toml:"generation_delay_seconds"`
}

// Retry tunes the bounded retry wrapper applied to image and audio calls.
type Retry struct {
	MaxAttempts     int `toml:"max_attempts"`
	MinDelaySeconds int `toml:"min_delay_seconds"`
	MaxDelaySeconds int `toml:"max_delay_seconds"`
}

// Breaker tunes the distributed circuit breaker shared across processes.
type Breaker struct {
	RedisAddr              string   `toml:"redis_addr"`
	FailureThreshold       int      `toml:"failure_threshold"`
	FailureWindowSeconds   int      `toml:"failure_window_seconds"`
	RecoveryTimeoutSeconds int      `toml:"recovery_timeout_seconds"`
	TargetErrorCodes       []string `toml:"target_error_codes"`
	// FallbackImageModel overrides the image model while the circuit is open.
	FallbackImageModel string `toml:"fallback_image_model"`
}

// Storage configures the object-storage backend for generated media.
type Storage struct {
	// Backend is "s3" or "fs".
	Backend       string `toml:"backend"`
	Bucket        string `toml:"bucket"`
	Region        string `toml:"region"`
	Endpoint      string `toml:"endpoint"`
	PublicBaseURL string `toml:"public_base_url"`
	// AccessKeyID and SecretAccessKey override the ambient AWS credential
	// chain. Required for S3-compatible endpoints such as MinIO.
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
	// LocalDir is the destination for the "fs" backend.
	LocalDir string `toml:"local_dir"`
}

// Research configures the reference-image research agent.
type Research struct {
	Enabled               bool   `toml:"enabled"`
	MaxIterations         int    `toml:"max_iterations"`
	LogoSearchBaseURL     string `toml:"logo_search_base_url"`
	LogoImageBaseURL      string `toml:"logo_image_base_url"`
	LogoSecretKey         string `toml:"logo_secret_key"`
	LogoPublishableKey    string `toml:"logo_publishable_key"`
	WikipediaBaseURL      string `toml:"wikipedia_base_url"`
	ImageSearchBaseURL    string `toml:"image_search_base_url"`
	ImageSearchAPIKey     string `toml:"image_search_api_key"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Briefing configures the daily audio briefing pipeline.
type Briefing struct {
	// SampleRate is the PCM sample rate used when normalizing raw speech bytes.
	SampleRate int `toml:"sample_rate"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format   string `toml:"format"`
	Level    string `toml:"level"`
	FilePath string `toml:"file_path"`
}

// Config encapsulates all configuration values for the newsnack daemon.
//
// Sections by subsystem:
//   - Paths: data/log directories and API bind address
//   - Provider: active backend selection plus per-backend models and keys
//   - Workflow: admission-gate limits and stagger delay
//   - Retry: retry attempts and backoff bounds for flaky upstream calls
//   - Breaker: distributed circuit-breaker tuning and redis address
//   - Storage: object-storage backend for images and audio
//   - Research: reference-image research agent settings
//   - Briefing: audio briefing settings
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Provider Provider `toml:"provider"`
	Workflow Workflow `toml:"workflow"`
	Retry    Retry    `toml:"retry"`
	Breaker  Breaker  `toml:"breaker"`
	Storage  Storage  `toml:"storage"`
	Research Research `toml:"research"`
	Briefing Briefing `toml:"briefing"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/newsnack/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("newsnack.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Storage.Backend == "fs" && strings.TrimSpace(c.Storage.LocalDir) != "" {
		if err := os.MkdirAll(c.Storage.LocalDir, 0o755); err != nil {
			return fmt.Errorf("create storage directory %q: %w", c.Storage.LocalDir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
