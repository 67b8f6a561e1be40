package workflow

import "fmt"

// PackageLabel scopes a status label to a monorepo package path, e.g.
// ScopeLabel("core", "needs-fixes") -> "pkg:core:needs-fixes". Tasks
// outside a monorepo layout use the unscoped label directly.
func PackageLabel(prefix, label string) string {
	if prefix == "" {
		return label
	}
	return fmt.Sprintf("pkg:%s:%s", prefix, label)
}

// ScopedStatusLabels returns every status label scoped to prefix, for
// clearing a monorepo PR's package-scoped status before applying a new
// one. Returns the unscoped labels unchanged when prefix is empty.
func ScopedStatusLabels(prefix string) []string {
	labels := AllStatusLabels()
	if prefix == "" {
		return labels
	}
	scoped := make([]string, len(labels))
	for i, l := range labels {
		scoped[i] = PackageLabel(prefix, l)
	}
	return scoped
}
