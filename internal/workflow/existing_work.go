package workflow

import (
	"context"
	"fmt"

	"github.com/google/go-github/v55/github"

	"github.com/agentmesh/controller/internal/handoff"
)

// BranchName returns the deterministic branch name the controller expects
// an agent to use for a task, so a restart can find work already pushed
// under a prior attempt.
func BranchName(taskID string) string {
	return fmt.Sprintf("agentmesh/%s", taskID)
}

// ExistingWorkFinder looks up open branches and pull requests against a
// single owner/repo, the subset of the GitHub API DetectExistingWork
// depends on.
type ExistingWorkFinder struct {
	gh    *github.Client
	owner string
	repo  string
}

// NewExistingWorkFinder wraps an already-authenticated go-github client.
func NewExistingWorkFinder(gh *github.Client, owner, repo string) *ExistingWorkFinder {
	return &ExistingWorkFinder{gh: gh, owner: owner, repo: repo}
}

// DetectExistingWork checks whether a task's conventional branch already
// exists and, if so, whether it has an open pull request. The result is
// fed into the IMPLEMENT phase's handoff input so the agent resumes
// instead of starting the task from scratch. A nil result with no error
// means neither the branch nor a PR exists yet.
func (f *ExistingWorkFinder) DetectExistingWork(ctx context.Context, taskID string) (*handoff.ExistingWorkContext, error) {
	branch := BranchName(taskID)

	_, resp, err := f.gh.Repositories.GetBranch(ctx, f.owner, f.repo, branch, false)
	if err != nil {
		if resp != nil && resp.StatusCode == 404 {
			return nil, nil
		}
		return nil, fmt.Errorf("checking branch %s: %w", branch, err)
	}

	prs, _, err := f.gh.PullRequests.List(ctx, f.owner, f.repo, &github.PullRequestListOptions{
		State: "open",
		Head:  fmt.Sprintf("%s:%s", f.owner, branch),
	})
	if err != nil {
		return nil, fmt.Errorf("listing pull requests for branch %s: %w", branch, err)
	}

	work := &handoff.ExistingWorkContext{Branch: branch}
	if len(prs) > 0 {
		work.PRNumber = fmt.Sprintf("%d", prs[0].GetNumber())
		work.PRTitle = prs[0].GetTitle()
	}
	return work, nil
}
