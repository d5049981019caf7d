package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoader_Load(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "config.yaml")

	configContent := `
server:
  ip: "127.0.0.1"
  port: 8080
log:
  log_level: "debug"
  log_dir: "/tmp/logs"
  log_file: "test.log"
analyze:
  mode: "remote"
  remote_url: "http://127.0.0.1:9000/api/"
`

	if err := os.WriteFile(configFile, []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	res, err := NewLoader().WithDotEnv(false).WithPath(configFile).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	cfg := res.Config

	if cfg.Server.IP != "127.0.0.1" {
		t.Errorf("expected server IP 127.0.0.1, got %s", cfg.Server.IP)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected server port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Log.Level)
	}
	if cfg.Analyze.Mode != "remote" {
		t.Errorf("expected remote mode, got %s", cfg.Analyze.Mode)
	}
	if cfg.Security.MaxFileSize != MaxUploadBytes {
		t.Errorf("expected default max file size, got %d", cfg.Security.MaxFileSize)
	}
}

func TestLoader_LoadMissingFileUsesDefaults(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")
	res, err := NewLoader().WithDotEnv(false).WithPath(missing).Load()
	if err != nil {
		t.Fatalf("expected defaults for missing file, got error: %v", err)
	}
	cfg := res.Config
	if cfg.Server.Port != 8000 {
		t.Errorf("expected default port 8000, got %d", cfg.Server.Port)
	}
	if cfg.Analyze.Mode != "upstream" {
		t.Errorf("expected default mode upstream, got %s", cfg.Analyze.Mode)
	}
	if len(cfg.Security.AllowedTypes) != 2 {
		t.Errorf("expected png and jpeg allowed, got %v", cfg.Security.AllowedTypes)
	}
	if res.Path != "" {
		t.Errorf("expected empty path for defaults, got %s", res.Path)
	}
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv("PERPLEXITY_API_KEY", "test-key")
	t.Setenv("PERPLEXITY_MODEL", "sonar")

	missing := filepath.Join(t.TempDir(), "nope.yaml")
	res, err := NewLoader().WithDotEnv(false).WithPath(missing).Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	selected := res.Config.Vision[res.Config.Selected.Vision]
	if selected.APIKey != "test-key" {
		t.Errorf("expected env API key, got %q", selected.APIKey)
	}
	if selected.ModelName != "sonar" {
		t.Errorf("expected env model name, got %q", selected.ModelName)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid defaults",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "unknown mode",
			mutate:  func(c *Config) { c.Analyze.Mode = "proxy" },
			wantErr: true,
		},
		{
			name:    "remote without url",
			mutate:  func(c *Config) { c.Analyze.Mode = "remote" },
			wantErr: true,
		},
		{
			name:    "unknown cache driver",
			mutate:  func(c *Config) { c.Cache.Driver = "sqlite" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
