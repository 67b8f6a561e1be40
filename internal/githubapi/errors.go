package githubapi

import "fmt"

// APIError wraps a non-2xx GitHub API response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github api error: %d %s", e.Status, e.Message)
}

// ConcurrentModificationError is returned when an atomic label update's
// If-Match precondition fails (HTTP 412) on every retry attempt.
type ConcurrentModificationError struct{}

func (e *ConcurrentModificationError) Error() string {
	return "concurrent modification: label state changed since it was read"
}
