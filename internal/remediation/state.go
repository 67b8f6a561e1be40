package remediation

import (
	"fmt"
	"sync"
	"time"
)

// StateManager is the sole authority on whether remediation is already
// underway for a (PR, task) pair, and on the current iteration count the
// workflow orchestrator's iteration conditions evaluate against.
type StateManager struct {
	mu     sync.RWMutex
	states map[string]*RemediationState

	// nowFunc allows tests to control timestamps deterministically.
	nowFunc func() time.Time
}

// NewStateManager creates an empty, in-memory state manager.
func NewStateManager() *StateManager {
	return &StateManager{
		states:  make(map[string]*RemediationState),
		nowFunc: time.Now,
	}
}

func stateKey(prNumber int, taskID string) string {
	return fmt.Sprintf("%d/%s", prNumber, taskID)
}

// Get returns the tracked state for (prNumber, taskID), if any.
func (m *StateManager) Get(prNumber int, taskID string) (*RemediationState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.states[stateKey(prNumber, taskID)]
	return s, ok
}

// RecordFeedbackAccepted is called each time a structured feedback comment
// is accepted for (prNumber, taskID). It creates the state on first call,
// and increments the iteration counter on subsequent calls while the
// status is InProgress. A call against a terminal state does not reopen
// it; callers should check IsTerminal first if that matters to them.
func (m *StateManager) RecordFeedbackAccepted(prNumber int, taskID string) *RemediationState {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.nowFunc()
	key := stateKey(prNumber, taskID)
	s, ok := m.states[key]
	if !ok {
		s = &RemediationState{
			PRNumber:  prNumber,
			TaskID:    taskID,
			Status:    RemediationInProgress,
			Iteration: 1,
			CreatedAt: now,
			UpdatedAt: now,
		}
		m.states[key] = s
		return s
	}

	if s.Status == RemediationInProgress {
		s.Iteration++
		s.UpdatedAt = now
	}
	return s
}

// RecordOutcome appends an outcome for the current iteration and updates
// status. Terminal statuses (Succeeded, Failed, Cancelled) stop further
// iteration increments until a new RemediationState would need to be
// created by a future feature; today the state stays terminal.
func (m *StateManager) RecordOutcome(prNumber int, taskID string, status RemediationStatus, description string) (*RemediationState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := stateKey(prNumber, taskID)
	s, ok := m.states[key]
	if !ok {
		return nil, fmt.Errorf("no remediation state tracked for PR #%d task %s", prNumber, taskID)
	}

	now := m.nowFunc()
	s.Status = status
	s.UpdatedAt = now
	s.Outcomes = append(s.Outcomes, Outcome{
		Iteration:   s.Iteration,
		Status:      status,
		RecordedAt:  now,
		Description: description,
	})
	return s, nil
}

// IsInProgress reports whether remediation for (prNumber, taskID) is
// currently InProgress. The cancellation procedure consults this to skip
// cancelling workloads the remediation system still owns.
func (m *StateManager) IsInProgress(prNumber int, taskID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.states[stateKey(prNumber, taskID)]
	return ok && s.Status == RemediationInProgress
}

// CurrentIteration satisfies workflow.IterationSource: it reports the
// tracked iteration count, or 0 if remediation has not started.
func (m *StateManager) CurrentIteration(prNumber int, taskID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.states[stateKey(prNumber, taskID)]
	if !ok {
		return 0
	}
	return s.Iteration
}

// IncrementIteration satisfies workflow.IterationIncrementer: the label
// orchestrator calls this when a transition's actions include
// "increment_iteration", independent of feedback acceptance.
func (m *StateManager) IncrementIteration(prNumber int, taskID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := stateKey(prNumber, taskID)
	s, ok := m.states[key]
	if !ok {
		s = &RemediationState{
			PRNumber:  prNumber,
			TaskID:    taskID,
			Status:    RemediationInProgress,
			CreatedAt: m.nowFunc(),
		}
		m.states[key] = s
	}
	s.Iteration++
	s.UpdatedAt = m.nowFunc()
	return s.Iteration
}
