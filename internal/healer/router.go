package healer

// AgentProfile names the invocation parameters for one specialist agent.
type AgentProfile struct {
	CLIKind   string
	Model     string
	GitHubApp string
}

// RouterConfig supplies the agent profiles and default repository the
// router fills into a RoutingTarget. Profiles are keyed by agent name
// ("rex", "atlas", "bolt").
type RouterConfig struct {
	Profiles   map[string]AgentProfile
	Repository string
}

// Route selects a specialist agent for a classified failure kind. Unknown
// failures, and failure kinds with no clear owning specialist, default to
// the infrastructure agent ("bolt").
func Route(kind FailureKind, cfg RouterConfig) RoutingTarget {
	agent := routeAgent(kind)
	profile := cfg.Profiles[agent]
	return RoutingTarget{
		Agent:      agent,
		CLIKind:    profile.CLIKind,
		Model:      profile.Model,
		GitHubApp:  profile.GitHubApp,
		Repository: cfg.Repository,
	}
}

func routeAgent(kind FailureKind) string {
	switch kind {
	case FailureRustCompile, FailureClippy, FailureTest:
		return "rex"
	case FailureGitMerge:
		return "atlas"
	case FailureDocker, FailureOOM, FailurePermissions:
		return "bolt"
	case FailureTimeout, FailureUnknown:
		return "bolt"
	default:
		return "bolt"
	}
}
