// Package secrets resolves secret:// references found in controller
// configuration against GCP Secret Manager, so values like the GitHub App
// private key or the Slack bot token never need to sit in a config file or
// Kubernetes ConfigMap in plaintext.
package secrets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"
)

// Scheme is the config-value prefix that marks a field as a Secret Manager
// reference rather than a literal value, e.g. "secret://github-app-key".
const Scheme = "secret://"

// IsReference reports whether value names a secret rather than holding one.
func IsReference(value string) bool {
	return strings.HasPrefix(value, Scheme)
}

// Fetcher fetches the current value of a named secret.
type Fetcher interface {
	FetchSecret(ctx context.Context, secretPath string) (string, error)
	Close() error
}

// ManagerClient wraps the GCP Secret Manager client.
type ManagerClient struct {
	client    *secretmanager.Client
	projectID string
}

// NewManagerClient creates a new Secret Manager client, resolving the GCP
// project ID from the environment or the instance metadata server.
func NewManagerClient(ctx context.Context, opts ...option.ClientOption) (*ManagerClient, error) {
	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating secret manager client: %w", err)
	}

	projectID, err := getProjectID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolving GCP project ID: %w", err)
	}

	return &ManagerClient{client: client, projectID: projectID}, nil
}

func getProjectID(ctx context.Context) (string, error) {
	for _, envVar := range []string{"GOOGLE_CLOUD_PROJECT", "GCP_PROJECT", "GCLOUD_PROJECT"} {
		if projectID := os.Getenv(envVar); projectID != "" {
			return projectID, nil
		}
	}
	return getProjectIDFromMetadata(ctx)
}

func getProjectIDFromMetadata(ctx context.Context) (string, error) {
	const metadataURL = "http://metadata.google.internal/computeMetadata/v1/project/project-id"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metadataURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating metadata request: %w", err)
	}
	req.Header.Set("Metadata-Flavor", "Google")

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching project ID from metadata server: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("metadata server returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading metadata response: %w", err)
	}

	projectID := strings.TrimSpace(string(body))
	if projectID == "" {
		return "", fmt.Errorf("empty project ID from metadata server")
	}
	return projectID, nil
}

// FetchSecret retrieves a secret from GCP Secret Manager. secretPath may be
// a bare secret name, a full "projects/.../secrets/..." path, or a full
// path with an explicit "/versions/N" suffix; a bare name or a path without
// a version resolves to "latest".
func (c *ManagerClient) FetchSecret(ctx context.Context, secretPath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req := &secretmanagerpb.AccessSecretVersionRequest{Name: c.normalizeSecretPath(secretPath)}
	result, err := c.client.AccessSecretVersion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("accessing secret version: %w", err)
	}
	return string(result.Payload.Data), nil
}

// Resolve fetches the secret named by a "secret://NAME" reference. It
// returns value unchanged if value is not a reference, so callers can pass
// every config field through Resolve unconditionally.
func (c *ManagerClient) Resolve(ctx context.Context, value string) (string, error) {
	if !IsReference(value) {
		return value, nil
	}
	return c.FetchSecret(ctx, strings.TrimPrefix(value, Scheme))
}

func (c *ManagerClient) normalizeSecretPath(secretPath string) string {
	if strings.HasPrefix(secretPath, "projects/") && strings.Contains(secretPath, "/versions/") {
		return secretPath
	}
	if strings.HasPrefix(secretPath, "projects/") && strings.Contains(secretPath, "/secrets/") {
		return secretPath + "/versions/latest"
	}
	secretName := path.Base(secretPath)
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", c.projectID, secretName)
}

// Close closes the underlying Secret Manager client.
func (c *ManagerClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
