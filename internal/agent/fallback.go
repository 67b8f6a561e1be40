package agent

import "errors"

// GenerateConfigWithFallback renders cfg's configuration artefact with the
// primary CLI kind's adapter. If that adapter reports a fatal
// ConfigGenerationError, it retries once against the fallback kind. A
// fallback of "" or equal to primary disables the retry. Returns the kind
// whose adapter actually produced the artefact, so the caller can record
// which CLI ended up dispatched.
func GenerateConfigWithFallback(primary, fallback Kind, cfg AgentConfig) (string, Kind, error) {
	adapter, err := Get(primary)
	if err != nil {
		return "", "", err
	}

	out, err := adapter.GenerateConfig(cfg)
	if err == nil {
		return out, primary, nil
	}

	var genErr *ConfigGenerationError
	if !errors.As(err, &genErr) || fallback == "" || fallback == primary {
		return "", "", err
	}

	fallbackAdapter, ferr := Get(fallback)
	if ferr != nil {
		return "", "", err
	}

	out, ferr = fallbackAdapter.GenerateConfig(cfg)
	if ferr != nil {
		return "", "", ferr
	}
	return out, fallback, nil
}
