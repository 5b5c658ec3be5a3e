package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeProvider()
	c.normalizeBreaker()
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeResearch()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeProvider() {
	c.Provider.Name = strings.ToLower(strings.TrimSpace(c.Provider.Name))
	if c.Provider.Name == "" {
		c.Provider.Name = defaultProviderName
	}
	if c.Provider.Google.APIKey == "" {
		if value, ok := os.LookupEnv("GOOGLE_API_KEY"); ok {
			c.Provider.Google.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("GEMINI_API_KEY"); ok {
			c.Provider.Google.APIKey = strings.TrimSpace(value)
		}
	}
	if c.Provider.OpenAI.APIKey == "" {
		if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.Provider.OpenAI.APIKey = strings.TrimSpace(value)
		}
	}
	c.Provider.Google.BaseURL = strings.TrimSpace(c.Provider.Google.BaseURL)
	if c.Provider.Google.BaseURL == "" {
		c.Provider.Google.BaseURL = defaultGoogleBaseURL
	}
	c.Provider.OpenAI.BaseURL = strings.TrimSpace(c.Provider.OpenAI.BaseURL)
	if c.Provider.OpenAI.BaseURL == "" {
		c.Provider.OpenAI.BaseURL = defaultOpenAIBaseURL
	}
	if c.Provider.Google.TimeoutSeconds <= 0 {
		c.Provider.Google.TimeoutSeconds = defaultProviderTimeout
	}
	if c.Provider.OpenAI.TimeoutSeconds <= 0 {
		c.Provider.OpenAI.TimeoutSeconds = defaultProviderTimeout
	}
}

func (c *Config) normalizeBreaker() {
	c.Breaker.RedisAddr = strings.TrimSpace(c.Breaker.RedisAddr)
	if c.Breaker.RedisAddr == "" {
		c.Breaker.RedisAddr = defaultRedisAddr
	}
	if len(c.Breaker.TargetErrorCodes) == 0 {
		c.Breaker.TargetErrorCodes = []string{"500", "503", "429"}
		return
	}
	codes := make([]string, 0, len(c.Breaker.TargetErrorCodes))
	seen := make(map[string]struct{}, len(c.Breaker.TargetErrorCodes))
	for _, code := range c.Breaker.TargetErrorCodes {
		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		codes = append(codes, trimmed)
	}
	if len(codes) == 0 {
		codes = []string{"500", "503", "429"}
	}
	c.Breaker.TargetErrorCodes = codes
}

func (c *Config) normalizeStorage() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = defaultStorageBackend
	}
	c.Storage.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Storage.PublicBaseURL), "/")
	if c.Storage.AccessKeyID == "" {
		if value, ok := os.LookupEnv("NEWSNACK_S3_ACCESS_KEY_ID"); ok {
			c.Storage.AccessKeyID = strings.TrimSpace(value)
		}
	}
	if c.Storage.SecretAccessKey == "" {
		if value, ok := os.LookupEnv("NEWSNACK_S3_SECRET_ACCESS_KEY"); ok {
			c.Storage.SecretAccessKey = strings.TrimSpace(value)
		}
	}
	if strings.TrimSpace(c.Storage.LocalDir) == "" {
		c.Storage.LocalDir = c.Paths.DataDir + "/media"
	}
	var err error
	if c.Storage.LocalDir, err = expandPath(c.Storage.LocalDir); err != nil {
		return fmt.Errorf("storage.local_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeResearch() {
	if c.Research.LogoSecretKey == "" {
		if value, ok := os.LookupEnv("LOGO_DEV_SECRET_KEY"); ok {
			c.Research.LogoSecretKey = strings.TrimSpace(value)
		}
	}
	if c.Research.LogoPublishableKey == "" {
		if value, ok := os.LookupEnv("LOGO_DEV_PUBLISHABLE_KEY"); ok {
			c.Research.LogoPublishableKey = strings.TrimSpace(value)
		}
	}
	if c.Research.ImageSearchAPIKey == "" {
		if value, ok := os.LookupEnv("IMAGE_SEARCH_API_KEY"); ok {
			c.Research.ImageSearchAPIKey = strings.TrimSpace(value)
		}
	}
	c.Research.LogoSearchBaseURL = strings.TrimSpace(c.Research.LogoSearchBaseURL)
	if c.Research.LogoSearchBaseURL == "" {
		c.Research.LogoSearchBaseURL = defaultLogoSearchBaseURL
	}
	c.Research.LogoImageBaseURL = strings.TrimSpace(c.Research.LogoImageBaseURL)
	if c.Research.LogoImageBaseURL == "" {
		c.Research.LogoImageBaseURL = defaultLogoImageBaseURL
	}
	c.Research.WikipediaBaseURL = strings.TrimSpace(c.Research.WikipediaBaseURL)
	if c.Research.WikipediaBaseURL == "" {
		c.Research.WikipediaBaseURL = defaultWikipediaBaseURL
	}
	c.Research.ImageSearchBaseURL = strings.TrimSpace(c.Research.ImageSearchBaseURL)
	if c.Research.ImageSearchBaseURL == "" {
		c.Research.ImageSearchBaseURL = defaultImageSearchBaseURL
	}
	if c.Research.MaxIterations <= 0 {
		c.Research.MaxIterations = defaultResearchIterations
	}
	if c.Research.RequestTimeoutSeconds <= 0 {
		c.Research.RequestTimeoutSeconds = defaultResearchTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "json":
		c.Logging.Format = "json"
	case "text":
	default:
		c.Logging.Format = "json"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
