package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateProvider(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateBreaker(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateBriefing(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateProvider() error {
	switch c.Provider.Name {
	case "google":
		if c.Provider.Google.APIKey == "" {
			defaultPath, err := DefaultConfigPath()
			if err != nil {
				defaultPath = "~/.config/newsnack/config.toml"
			}
			return fmt.Errorf("provider.google.api_key is required. Set GOOGLE_API_KEY env var or edit %s (create with 'newsnack config init')", defaultPath)
		}
	case "openai":
		if c.Provider.OpenAI.APIKey == "" {
			return errors.New("provider.openai.api_key is required. Set OPENAI_API_KEY env var or edit the config file")
		}
	default:
		return fmt.Errorf("provider.name must be \"google\" or \"openai\", got %q", c.Provider.Name)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.MaxConcurrentGenerations <= 0 {
		return errors.New("workflow.max_concurrent_generations must be positive")
	}
	if c.Workflow.GenerationDelaySeconds < 0 {
		return errors.New("workflow.generation_delay_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateRetry() error {
	if err := ensurePositiveMap(map[string]int{
		"retry.max_attempts":      c.Retry.MaxAttempts,
		"retry.min_delay_seconds": c.Retry.MinDelaySeconds,
		"retry.max_delay_seconds": c.Retry.MaxDelaySeconds,
	}); err != nil {
		return err
	}
	if c.Retry.MaxDelaySeconds < c.Retry.MinDelaySeconds {
		return errors.New("retry.max_delay_seconds must be >= retry.min_delay_seconds")
	}
	return nil
}

func (c *Config) validateBreaker() error {
	if err := ensurePositiveMap(map[string]int{
		"breaker.failure_threshold":        c.Breaker.FailureThreshold,
		"breaker.failure_window_seconds":   c.Breaker.FailureWindowSeconds,
		"breaker.recovery_timeout_seconds": c.Breaker.RecoveryTimeoutSeconds,
	}); err != nil {
		return err
	}
	if len(c.Breaker.TargetErrorCodes) == 0 {
		return errors.New("breaker.target_error_codes must include at least one code")
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case "fs":
		if c.Storage.LocalDir == "" {
			return errors.New("storage.local_dir must be set when storage.backend is \"fs\"")
		}
	case "s3":
		if c.Storage.Bucket == "" {
			return errors.New("storage.bucket must be set when storage.backend is \"s3\"")
		}
		if c.Storage.Region == "" {
			return errors.New("storage.region must be set when storage.backend is \"s3\"")
		}
	default:
		return fmt.Errorf("storage.backend must be \"fs\" or \"s3\", got %q", c.Storage.Backend)
	}
	return nil
}

func (c *Config) validateBriefing() error {
	if c.Briefing.SampleRate <= 0 {
		return errors.New("briefing.sample_rate must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
