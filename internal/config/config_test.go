package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig() Config {
	return Config{
		GitHub: GitHubConfig{
			AppID:            "12345",
			InstallationID:   67890,
			PrivateKeySecret: "secret://github-app-key",
			Owner:            "agentmesh",
			Repository:       "agentmesh",
		},
		Kubernetes: KubernetesConfig{Namespace: "agentmesh"},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid config", mutate: func(c *Config) {}, wantErr: ""},
		{
			name:    "missing app id",
			mutate:  func(c *Config) { c.GitHub.AppID = "" },
			wantErr: "github.app_id is required",
		},
		{
			name:    "missing installation id",
			mutate:  func(c *Config) { c.GitHub.InstallationID = 0 },
			wantErr: "github.installation_id must be positive",
		},
		{
			name:    "missing private key secret",
			mutate:  func(c *Config) { c.GitHub.PrivateKeySecret = "" },
			wantErr: "github.private_key_secret is required",
		},
		{
			name:    "missing repository",
			mutate:  func(c *Config) { c.GitHub.Repository = "" },
			wantErr: "github.owner and github.repository are required",
		},
		{
			name:    "missing namespace",
			mutate:  func(c *Config) { c.Kubernetes.Namespace = "" },
			wantErr: "kubernetes.namespace is required",
		},
		{
			name:    "invalid logging mode",
			mutate:  func(c *Config) { c.Logging.Mode = "bogus" },
			wantErr: `invalid logging mode "bogus"`,
		},
		{
			name: "cloud logging requires project",
			mutate: func(c *Config) {
				c.Logging.Mode = "cloud"
			},
			wantErr: "logging.gcp_project is required when logging.mode is cloud",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error %q, got nil", tt.wantErr)
			}
			if err.Error() != tt.wantErr {
				t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := `
github:
  app_id: "12345"
  installation_id: 67890
  private_key_secret: secret://github-app-key
  owner: agentmesh
  repository: agentmesh
kubernetes:
  namespace: agentmesh
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.GitHub.AppID != "12345" {
		t.Errorf("GitHub.AppID = %q, want %q", cfg.GitHub.AppID, "12345")
	}
	if cfg.Controller.MetricsAddr != ":8080" {
		t.Errorf("Controller.MetricsAddr = %q, want default %q", cfg.Controller.MetricsAddr, ":8080")
	}
	if cfg.Healer.MaxConcurrent == 0 {
		t.Error("Healer.MaxConcurrent default was not applied")
	}
}

func TestLoad_MissingRequiredField(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("kubernetes:\n  namespace: agentmesh\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("Load() with no github config: want error, got nil")
	}
}

func TestConfig_EscalationEnabled(t *testing.T) {
	cfg := validConfig()
	if cfg.EscalationEnabled() {
		t.Error("EscalationEnabled() = true, want false with no Slack config")
	}
	cfg.Slack = SlackConfig{Token: "secret://slack-token", ChannelID: "C0123"}
	if !cfg.EscalationEnabled() {
		t.Error("EscalationEnabled() = false, want true with Slack token and channel set")
	}
}
