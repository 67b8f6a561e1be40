// Package config loads the controller's runtime configuration from a YAML
// file, environment variables, and Kubernetes-mounted secrets via viper,
// mirroring the layered precedence (flag > env > file > default) the rest
// of the controller's command-line tooling uses.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/agentmesh/controller/internal/healer"
	"github.com/agentmesh/controller/internal/secrets"
)

// Config is the controller's complete runtime configuration.
type Config struct {
	GitHub     GitHubConfig     `mapstructure:"github"`
	Kubernetes KubernetesConfig `mapstructure:"kubernetes"`
	Controller ControllerConfig `mapstructure:"controller"`
	Healer     HealerConfig     `mapstructure:"healer"`
	Slack      SlackConfig      `mapstructure:"slack"`
	Memory     MemoryConfig     `mapstructure:"memory"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Monorepo   MonorepoConfig   `mapstructure:"monorepo"`
	Fallback   FallbackConfig   `mapstructure:"fallback"`
}

// GitHubConfig identifies the GitHub App the controller authenticates as.
// PrivateKeySecret may be a filesystem path or a "secret://NAME" reference
// resolved against GCP Secret Manager at startup.
type GitHubConfig struct {
	AppID            string `mapstructure:"app_id"`
	InstallationID   int64  `mapstructure:"installation_id"`
	PrivateKeySecret string `mapstructure:"private_key_secret"`
	Owner            string `mapstructure:"owner"`
	Repository       string `mapstructure:"repository"`
	WebhookSecret    string `mapstructure:"webhook_secret"`
}

// KubernetesConfig scopes the controller to a namespace and an optional
// out-of-cluster kubeconfig (used only outside a pod).
type KubernetesConfig struct {
	Namespace  string `mapstructure:"namespace"`
	Kubeconfig string `mapstructure:"kubeconfig"`
}

// ControllerConfig holds the operational knobs exposed as CLI flags.
type ControllerConfig struct {
	MetricsAddr      string `mapstructure:"metrics_addr"`
	TransitionsPath  string `mapstructure:"transitions_path"`
	DryRun           bool   `mapstructure:"dry_run"`
	LeaderElectionID string `mapstructure:"leader_election_id"`
}

// HealerConfig configures the failure-remediation pipelines.
type HealerConfig struct {
	MaxConcurrent int                            `mapstructure:"max_concurrent"`
	DedupWindow   time.Duration                  `mapstructure:"dedup_window"`
	RedisAddr     string                         `mapstructure:"redis_addr"`
	Profiles      map[string]healer.AgentProfile `mapstructure:"profiles"`
}

// SlackConfig configures remediation escalation notifications. Token may
// be a "secret://NAME" reference. Escalation is disabled when ChannelID
// is empty.
type SlackConfig struct {
	Token     string `mapstructure:"token_secret"`
	ChannelID string `mapstructure:"channel_id"`
}

// MemoryConfig points at the remote history/memory service used to
// recall and record remediation outcomes.
type MemoryConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Namespace string        `mapstructure:"namespace"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// LoggingConfig selects and configures the logging sink.
type LoggingConfig struct {
	Mode       string `mapstructure:"mode"`
	GCPProject string `mapstructure:"gcp_project"`
	LogID      string `mapstructure:"log_id"`
}

// MonorepoConfig enables label-prefix scoping for controllers that manage
// several logical projects inside one repository.
type MonorepoConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	LabelPrefix string `mapstructure:"label_prefix"`
}

// FallbackConfig names the agent adapter used when a healer route names
// an agent with no configured profile.
type FallbackConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	DefaultAdapter string `mapstructure:"default_adapter"`
}

// Load reads configuration from path (if non-empty), environment
// variables prefixed AGENTMESH_, and defaults, in that order of
// decreasing precedence once viper's own file/env layering is applied.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AGENTMESH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	applyDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("kubernetes.namespace", "agentmesh")
	v.SetDefault("controller.metrics_addr", ":8080")
	v.SetDefault("controller.transitions_path", "config/transitions.yaml")
	v.SetDefault("healer.max_concurrent", healer.DefaultMaxConcurrent)
	v.SetDefault("healer.dedup_window", healer.DefaultDedupWindow)
	v.SetDefault("memory.timeout", 5*time.Second)
	v.SetDefault("logging.mode", "standard")
	v.SetDefault("fallback.enabled", false)
}

// Validate checks required fields and enumerations independent of any
// particular command's usage (run vs. dry-run).
func (c *Config) Validate() error {
	if c.GitHub.AppID == "" {
		return fmt.Errorf("github.app_id is required")
	}
	if c.GitHub.InstallationID <= 0 {
		return fmt.Errorf("github.installation_id must be positive")
	}
	if c.GitHub.PrivateKeySecret == "" {
		return fmt.Errorf("github.private_key_secret is required")
	}
	if c.GitHub.Owner == "" || c.GitHub.Repository == "" {
		return fmt.Errorf("github.owner and github.repository are required")
	}
	if c.Kubernetes.Namespace == "" {
		return fmt.Errorf("kubernetes.namespace is required")
	}
	if c.Logging.Mode != "" && c.Logging.Mode != "standard" && c.Logging.Mode != "cloud" {
		return fmt.Errorf("invalid logging mode %q", c.Logging.Mode)
	}
	if c.Logging.Mode == "cloud" && c.Logging.GCPProject == "" {
		return fmt.Errorf("logging.gcp_project is required when logging.mode is cloud")
	}
	return nil
}

// ResolveSecrets replaces every "secret://NAME" reference in the config
// with the value fetched from resolver, in place. It is a no-op for any
// field already holding a literal value.
func (c *Config) ResolveSecrets(ctx context.Context, resolver *secrets.ManagerClient) error {
	resolvedKey, err := resolver.Resolve(ctx, c.GitHub.PrivateKeySecret)
	if err != nil {
		return fmt.Errorf("resolving github.private_key_secret: %w", err)
	}
	c.GitHub.PrivateKeySecret = resolvedKey

	if c.Slack.Token != "" {
		resolvedToken, err := resolver.Resolve(ctx, c.Slack.Token)
		if err != nil {
			return fmt.Errorf("resolving slack.token_secret: %w", err)
		}
		c.Slack.Token = resolvedToken
	}

	if c.GitHub.WebhookSecret != "" {
		resolvedSecret, err := resolver.Resolve(ctx, c.GitHub.WebhookSecret)
		if err != nil {
			return fmt.Errorf("resolving github.webhook_secret: %w", err)
		}
		c.GitHub.WebhookSecret = resolvedSecret
	}

	return nil
}

// EscalationEnabled reports whether enough Slack configuration is present
// to construct an EscalationNotifier.
func (c *Config) EscalationEnabled() bool {
	return c.Slack.Token != "" && c.Slack.ChannelID != ""
}
