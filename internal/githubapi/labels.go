// Package githubapi wraps the subset of the GitHub REST API the workflow
// orchestrator and cancellation procedure depend on: reading a PR's labels
// together with its entity tag, and replacing the label set atomically
// conditioned on that tag.
package githubapi

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"time"

	"github.com/google/go-github/v55/github"
)

// MaxAtomicUpdateAttempts bounds the retry loop in UpdateLabelsAtomic.
const MaxAtomicUpdateAttempts = 5

// OperationType is the kind of change a LabelOperation applies to a label
// set.
type OperationType string

const (
	// OpAdd inserts Labels, idempotently.
	OpAdd OperationType = "add"
	// OpRemove deletes Labels; removing an absent label is a no-op.
	OpRemove OperationType = "remove"
	// OpReplace removes FromLabel (if present) and adds Labels.
	OpReplace OperationType = "replace"
)

// LabelOperation is one step of a batched label mutation.
type LabelOperation struct {
	Type      OperationType
	Labels    []string
	FromLabel string
}

// LabelClient performs label reads and writes against one owner/repo.
type LabelClient struct {
	gh    *github.Client
	owner string
	repo  string
}

// NewLabelClient wraps an already-authenticated go-github client.
func NewLabelClient(gh *github.Client, owner, repo string) *LabelClient {
	return &LabelClient{gh: gh, owner: owner, repo: repo}
}

// GetLabels returns the PR's current label names.
func (c *LabelClient) GetLabels(ctx context.Context, prNumber int) ([]string, error) {
	names, _, err := c.getLabelsWithETag(ctx, prNumber)
	return names, err
}

// getLabelsWithETag fetches the PR and returns both its label names and the
// response's ETag, used as the If-Match precondition for an atomic update.
func (c *LabelClient) getLabelsWithETag(ctx context.Context, prNumber int) ([]string, string, error) {
	pr, resp, err := c.gh.PullRequests.Get(ctx, c.owner, c.repo, prNumber)
	if err != nil {
		return nil, "", apiError(resp, err)
	}

	names := make([]string, 0, len(pr.Labels))
	for _, l := range pr.Labels {
		names = append(names, l.GetName())
	}

	etag := ""
	if resp != nil && resp.Response != nil {
		etag = resp.Response.Header.Get("ETag")
	}
	return names, etag, nil
}

// AddLabels adds labels to a PR; a no-op for an empty slice.
func (c *LabelClient) AddLabels(ctx context.Context, prNumber int, labels []string) error {
	if len(labels) == 0 {
		return nil
	}
	_, resp, err := c.gh.Issues.AddLabelsToIssue(ctx, c.owner, c.repo, prNumber, labels)
	if err != nil {
		return apiError(resp, err)
	}
	return nil
}

// RemoveLabel removes a single label. A 404 (label already absent) is
// treated as success.
func (c *LabelClient) RemoveLabel(ctx context.Context, prNumber int, label string) error {
	resp, err := c.gh.Issues.RemoveLabelForIssue(ctx, c.owner, c.repo, prNumber, label)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil
		}
		return apiError(resp, err)
	}
	return nil
}

// UpdateLabelsAtomic applies operations to the PR's current label set and
// writes the result back conditioned on the entity tag read in the same
// attempt. A 412 response means the labels changed concurrently; the whole
// read-modify-write cycle is retried with exponential backoff capped at 5s,
// up to MaxAtomicUpdateAttempts times.
func (c *LabelClient) UpdateLabelsAtomic(ctx context.Context, prNumber int, operations []LabelOperation) error {
	var lastErr error

	for attempt := 1; attempt <= MaxAtomicUpdateAttempts; attempt++ {
		err := c.tryAtomicUpdate(ctx, prNumber, operations)
		if err == nil {
			return nil
		}

		var cme *ConcurrentModificationError
		if !errors.As(err, &cme) {
			return err
		}
		lastErr = err

		if attempt < MaxAtomicUpdateAttempts {
			backoff := time.Duration(math.Min(float64(5*time.Second), float64(time.Second)*math.Pow(2, float64(attempt-1))))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return lastErr
}

func (c *LabelClient) tryAtomicUpdate(ctx context.Context, prNumber int, operations []LabelOperation) error {
	current, etag, err := c.getLabelsWithETag(ctx, prNumber)
	if err != nil {
		return err
	}

	newLabels := applyOperations(current, operations)

	path := fmt.Sprintf("repos/%s/%s/issues/%d/labels", c.owner, c.repo, prNumber)
	req, err := c.gh.NewRequest(http.MethodPut, path, struct {
		Labels []string `json:"labels"`
	}{Labels: newLabels})
	if err != nil {
		return fmt.Errorf("building atomic label request: %w", err)
	}
	if etag != "" {
		req.Header.Set("If-Match", etag)
	}

	var result []*github.Label
	resp, err := c.gh.Do(ctx, req, &result)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusPreconditionFailed {
			return &ConcurrentModificationError{}
		}
		return apiError(resp, err)
	}
	return nil
}

// applyOperations folds operations over current, producing a sorted,
// de-duplicated label set.
func applyOperations(current []string, operations []LabelOperation) []string {
	set := make(map[string]struct{}, len(current))
	for _, l := range current {
		set[l] = struct{}{}
	}

	for _, op := range operations {
		switch op.Type {
		case OpAdd:
			for _, l := range op.Labels {
				set[l] = struct{}{}
			}
		case OpRemove:
			for _, l := range op.Labels {
				delete(set, l)
			}
		case OpReplace:
			if op.FromLabel != "" {
				delete(set, op.FromLabel)
			}
			for _, l := range op.Labels {
				set[l] = struct{}{}
			}
		}
	}

	result := make([]string, 0, len(set))
	for l := range set {
		result = append(result, l)
	}
	sort.Strings(result)
	return result
}

func apiError(resp *github.Response, err error) error {
	if resp != nil {
		return &APIError{Status: resp.StatusCode, Message: err.Error()}
	}
	return err
}
