package config

import "time"

const (
	// MaxUploadBytes matches the upload policy: 10 MiB.
	MaxUploadBytes = 10 * 1024 * 1024

	defaultSystemPrompt = "You are an expert agronomist. Identify likely leaf diseases and provide concise, practical guidance."
	defaultUserPrompt   = "Analyze this leaf image for potential diseases and provide suggestions."
)

// Default returns a configuration that can run without any config file,
// relying on environment variables for credentials.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.IP == "" {
		cfg.Server.IP = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.File == "" {
		cfg.Log.File = "server.log"
	}

	if cfg.Web.StaticDir == "" {
		cfg.Web.StaticDir = "./web"
	}
	if len(cfg.Web.AllowedOrigins) == 0 {
		cfg.Web.AllowedOrigins = []string{"*"}
	}

	if cfg.Analyze.Mode == "" {
		cfg.Analyze.Mode = "upstream"
	}
	if cfg.Analyze.DefaultPrompt == "" {
		cfg.Analyze.DefaultPrompt = defaultUserPrompt
	}
	if cfg.Analyze.SystemPrompt == "" {
		cfg.Analyze.SystemPrompt = defaultSystemPrompt
	}
	if cfg.Analyze.UploadsDir == "" {
		cfg.Analyze.UploadsDir = "data/uploads"
	}

	if cfg.Selected.Vision == "" {
		cfg.Selected.Vision = "perplexity"
	}
	if cfg.Vision == nil {
		cfg.Vision = map[string]VisionConfig{}
	}
	if _, ok := cfg.Vision[cfg.Selected.Vision]; !ok {
		cfg.Vision[cfg.Selected.Vision] = VisionConfig{}
	}
	for name, vc := range cfg.Vision {
		if vc.Type == "" {
			vc.Type = "openai"
		}
		if vc.BaseURL == "" {
			vc.BaseURL = "https://api.perplexity.ai"
		}
		if vc.ModelName == "" {
			vc.ModelName = "sonar-reasoning"
		}
		if vc.Temperature == 0 {
			vc.Temperature = 0.2
		}
		if vc.MaxTokens == 0 {
			vc.MaxTokens = 1024
		}
		cfg.Vision[name] = vc
	}

	if cfg.Security.MaxFileSize == 0 {
		cfg.Security.MaxFileSize = MaxUploadBytes
	}
	if len(cfg.Security.AllowedTypes) == 0 {
		cfg.Security.AllowedTypes = []string{"image/png", "image/jpeg"}
	}
	if cfg.Security.MaxWidth == 0 {
		cfg.Security.MaxWidth = 8192
	}
	if cfg.Security.MaxHeight == 0 {
		cfg.Security.MaxHeight = 8192
	}
	if cfg.Security.MaxPixels == 0 {
		cfg.Security.MaxPixels = 64 * 1024 * 1024
	}

	if cfg.Cache.Driver == "" {
		cfg.Cache.Driver = "memory"
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = time.Hour
	}
}
