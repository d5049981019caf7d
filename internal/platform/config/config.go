package config

import "time"

type Config struct {
	Server   ServerConfig            `yaml:"server"`
	Log      LogConfig               `yaml:"log"`
	Web      WebConfig               `yaml:"web"`
	Analyze  AnalyzeConfig           `yaml:"analyze"`
	Selected SelectedConfig          `yaml:"selected_module"`
	Vision   map[string]VisionConfig `yaml:"VLM"`
	Cache    CacheConfig             `yaml:"cache"`
	Security SecurityConfig          `yaml:"security"`
}

type ServerConfig struct {
	IP   string `yaml:"ip"`
	Port int    `yaml:"port"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

type WebConfig struct {
	StaticDir      string   `yaml:"static_dir"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// AnalyzeConfig controls the analyze endpoint behaviour. Mode selects the
// analyzer backing it: "upstream" calls the selected vision model directly,
// "remote" forwards the upload to another analyze endpoint.
type AnalyzeConfig struct {
	Mode          string `yaml:"mode"`
	RemoteURL     string `yaml:"remote_url"`
	DefaultPrompt string `yaml:"default_prompt"`
	SystemPrompt  string `yaml:"system_prompt"`
	UploadsDir    string `yaml:"uploads_dir"`
	SaveUploads   bool   `yaml:"save_uploads"`
}

type SelectedConfig struct {
	Vision string `yaml:"VLM"`
}

type VisionConfig struct {
	Type        string  `yaml:"type"`
	ModelName   string  `yaml:"model_name"`
	BaseURL     string  `yaml:"url"`
	APIKey      string  `yaml:"api_key"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	TopP        float64 `yaml:"top_p"`
}

// SecurityConfig bounds what an uploaded image may look like.
type SecurityConfig struct {
	MaxFileSize    int64    `yaml:"max_file_size"`
	AllowedTypes   []string `yaml:"allowed_types"`
	MaxWidth       int      `yaml:"max_width"`
	MaxHeight      int      `yaml:"max_height"`
	MaxPixels      int64    `yaml:"max_pixels"`
	EnableDeepScan bool     `yaml:"enable_deep_scan"`
}

type CacheConfig struct {
	Enabled bool              `yaml:"enabled"`
	Driver  string            `yaml:"driver"`
	TTL     time.Duration     `yaml:"ttl"`
	Redis   RedisCacheConfig  `yaml:"redis"`
	Memory  MemoryCacheConfig `yaml:"memory"`
}

type RedisCacheConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

type MemoryCacheConfig struct {
	GCInterval time.Duration `yaml:"gc_interval"`
}
