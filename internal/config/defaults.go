package config

const (
	defaultDataDir            = "~/.local/share/newsnack"
	defaultLogDir             = "~/.local/share/newsnack/logs"
	defaultAPIBind            = "127.0.0.1:8940"
	defaultProviderName       = "google"
	defaultGoogleBaseURL      = "https://generativelanguage.googleapis.com/v1beta"
	defaultGoogleChatModel    = "gemini-2.5-flash-lite"
	defaultGoogleImageModel   = "gemini-2.5-flash-image"
	defaultGoogleRefModel     = "gemini-3-pro-image-preview"
	defaultGoogleTTSModel     = "gemini-2.5-flash-preview-tts"
	defaultGoogleTTSVoice     = "Kore"
	defaultOpenAIBaseURL      = "https://api.openai.com/v1"
	defaultOpenAIChatModel    = "gpt-5-nano"
	defaultOpenAIImageModel   = "gpt-image-1.5"
	defaultOpenAITTSModel     = "gpt-4o-mini-tts"
	defaultOpenAITTSVoice     = "nova"
	defaultProviderTimeout    = 120
	defaultMaxConcurrent      = 3
	defaultGenerationDelay    = 5
	defaultRetryAttempts      = 3
	defaultRetryMinDelay      = 2
	defaultRetryMaxDelay      = 10
	defaultRedisAddr          = "127.0.0.1:6379"
	defaultFailureThreshold   = 2
	defaultFailureWindow      = 60
	defaultRecoveryTimeout    = 180
	defaultStorageBackend     = "fs"
	defaultResearchIterations = 6
	defaultLogoSearchBaseURL  = "https://api.logo.dev/search"
	defaultLogoImageBaseURL   = "https://img.logo.dev"
	defaultWikipediaBaseURL   = "https://ko.wikipedia.org"
	defaultImageSearchBaseURL = "https://dapi.kakao.com/v2/search/image"
	defaultResearchTimeout    = 15
	defaultBriefingSampleRate = 24000
	defaultLogFormat          = "json"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Provider: Provider{
			Name: defaultProviderName,
			Google: GoogleProvider{
				BaseURL:                 defaultGoogleBaseURL,
				ChatModel:               defaultGoogleChatModel,
				ImageModel:              defaultGoogleImageModel,
				ImageModelWithReference: defaultGoogleRefModel,
				ImageWithReference:      true,
				TTSModel:                defaultGoogleTTSModel,
				TTSVoice:                defaultGoogleTTSVoice,
				TimeoutSeconds:          defaultProviderTimeout,
			},
			OpenAI: OpenAIProvider{
				BaseURL:        defaultOpenAIBaseURL,
				ChatModel:      defaultOpenAIChatModel,
				ImageModel:     defaultOpenAIImageModel,
				TTSModel:       defaultOpenAITTSModel,
				TTSVoice:       defaultOpenAITTSVoice,
				TimeoutSeconds: defaultProviderTimeout,
			},
		},
		Workflow: Workflow{
			MaxConcurrentGenerations: defaultMaxConcurrent,
			GenerationDelaySeconds:   defaultGenerationDelay,
		},
		Retry: Retry{
			MaxAttempts:     defaultRetryAttempts,
			MinDelaySeconds: defaultRetryMinDelay,
			MaxDelaySeconds: defaultRetryMaxDelay,
		},
		Breaker: Breaker{
			RedisAddr:              defaultRedisAddr,
			FailureThreshold:       defaultFailureThreshold,
			FailureWindowSeconds:   defaultFailureWindow,
			RecoveryTimeoutSeconds: defaultRecoveryTimeout,
			TargetErrorCodes:       []string{"500", "503", "429"},
		},
		Storage: Storage{
			Backend: defaultStorageBackend,
		},
		Research: Research{
			Enabled:               false,
			MaxIterations:         defaultResearchIterations,
			LogoSearchBaseURL:     defaultLogoSearchBaseURL,
			LogoImageBaseURL:      defaultLogoImageBaseURL,
			WikipediaBaseURL:      defaultWikipediaBaseURL,
			ImageSearchBaseURL:    defaultImageSearchBaseURL,
			RequestTimeoutSeconds: defaultResearchTimeout,
		},
		Briefing: Briefing{
			SampleRate: defaultBriefingSampleRate,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
