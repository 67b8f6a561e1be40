package githubapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-github/v55/github"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*github.Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)

	gh := github.NewClient(nil)
	baseURL, err := url.Parse(server.URL + "/")
	if err != nil {
		t.Fatalf("parsing test server URL: %v", err)
	}
	gh.BaseURL = baseURL
	return gh, server
}

func TestGetLabels(t *testing.T) {
	gh, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/acme/widgets/pulls/42" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("ETag", `"abc123"`)
		_ = json.NewEncoder(w).Encode(github.PullRequest{
			Labels: []*github.Label{{Name: github.String("needs-fixes")}, {Name: github.String("fixing-in-progress")}},
		})
	})
	defer server.Close()

	client := NewLabelClient(gh, "acme", "widgets")
	labels, err := client.GetLabels(context.Background(), 42)
	if err != nil {
		t.Fatalf("GetLabels() error = %v", err)
	}
	if len(labels) != 2 || labels[0] != "needs-fixes" || labels[1] != "fixing-in-progress" {
		t.Errorf("labels = %v", labels)
	}
}

func TestRemoveLabel_404IsSuccess(t *testing.T) {
	gh, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "label not found"})
	})
	defer server.Close()

	client := NewLabelClient(gh, "acme", "widgets")
	if err := client.RemoveLabel(context.Background(), 1, "needs-fixes"); err != nil {
		t.Errorf("RemoveLabel() error = %v, want nil on 404", err)
	}
}

func TestUpdateLabelsAtomic_Success(t *testing.T) {
	var putBody struct {
		Labels []string `json:"labels"`
	}

	gh, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			w.Header().Set("ETag", `"etag-1"`)
			_ = json.NewEncoder(w).Encode(github.PullRequest{
				Labels: []*github.Label{{Name: github.String("needs-fixes")}},
			})
		case r.Method == http.MethodPut:
			if ifMatch := r.Header.Get("If-Match"); ifMatch != `"etag-1"` {
				t.Errorf("If-Match header = %q, want %q", ifMatch, `"etag-1"`)
			}
			_ = json.NewDecoder(r.Body).Decode(&putBody)
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode([]*github.Label{})
		default:
			t.Errorf("unexpected method: %s", r.Method)
		}
	})
	defer server.Close()

	client := NewLabelClient(gh, "acme", "widgets")
	err := client.UpdateLabelsAtomic(context.Background(), 7, []LabelOperation{
		{Type: OpRemove, Labels: []string{"needs-fixes"}},
		{Type: OpAdd, Labels: []string{"fixing-in-progress"}},
	})
	if err != nil {
		t.Fatalf("UpdateLabelsAtomic() error = %v", err)
	}
	if len(putBody.Labels) != 1 || putBody.Labels[0] != "fixing-in-progress" {
		t.Errorf("PUT body labels = %v", putBody.Labels)
	}
}

func TestUpdateLabelsAtomic_RetriesOn412(t *testing.T) {
	attempts := 0

	gh, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Header().Set("ETag", fmt.Sprintf(`"etag-%d"`, attempts))
			_ = json.NewEncoder(w).Encode(github.PullRequest{Labels: []*github.Label{}})
		case http.MethodPut:
			attempts++
			if attempts < 2 {
				w.WriteHeader(http.StatusPreconditionFailed)
				_ = json.NewEncoder(w).Encode(map[string]string{"message": "precondition failed"})
				return
			}
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode([]*github.Label{})
		}
	})
	defer server.Close()

	client := NewLabelClient(gh, "acme", "widgets")
	err := client.UpdateLabelsAtomic(context.Background(), 1, []LabelOperation{
		{Type: OpAdd, Labels: []string{"approved"}},
	})
	if err != nil {
		t.Fatalf("UpdateLabelsAtomic() error = %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestApplyOperations(t *testing.T) {
	result := applyOperations(
		[]string{"needs-fixes", "priority-high"},
		[]LabelOperation{
			{Type: OpReplace, FromLabel: "needs-fixes", Labels: []string{"fixing-in-progress"}},
		},
	)
	if len(result) != 2 || result[0] != "fixing-in-progress" || result[1] != "priority-high" {
		t.Errorf("applyOperations() = %v", result)
	}
}
