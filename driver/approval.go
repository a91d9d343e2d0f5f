package driver

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// timeoutDenyMessage is the deny reason when no decision arrived in time.
const timeoutDenyMessage = "approval request timed out"

// abortDenyMessage is the deny reason after the turn was aborted.
const abortDenyMessage = "turn aborted"

// Decision is the outcome of one approval request.
type Decision struct {
	// UpdatedInput optionally replaces the tool input on allow.
	UpdatedInput map[string]interface{}

	// Message explains a deny to the agent.
	Message string

	Allow bool

	// Interrupt asks the agent to stop the turn alongside the deny.
	Interrupt bool
}

type pendingApproval struct {
	ch    chan Decision
	timer *time.Timer
}

// Gate correlates tool approval requests with their eventual decisions.
// Each intercept issues a fresh id and a one-shot future; the decision is
// delivered exactly once, whether it comes from the user, the timeout, or
// an abort.
type Gate struct {
	mu      sync.Mutex
	pending map[string]*pendingApproval
	timeout time.Duration
	aborted bool
}

// NewGate creates a gate with the given auto-deny timeout.
func NewGate(timeout time.Duration) *Gate {
	if timeout <= 0 {
		timeout = DefaultApprovalTimeout
	}
	return &Gate{
		pending: make(map[string]*pendingApproval),
		timeout: timeout,
	}
}

// Intercept registers a new pending approval and returns its correlation
// id plus the future carrying the decision. After an abort, intercepts
// resolve immediately as deny without creating a pending entry.
func (g *Gate) Intercept() (string, <-chan Decision) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan Decision, 1)

	if g.aborted {
		ch <- Decision{Message: abortDenyMessage}
		return id, ch
	}

	p := &pendingApproval{ch: ch}
	p.timer = time.AfterFunc(g.timeout, func() {
		// Same path as an explicit deny; the agent always gets a decision.
		g.Resolve(id, Decision{Message: timeoutDenyMessage})
	})
	g.pending[id] = p

	return id, ch
}

// Resolve delivers the decision for id. It reports false if the id is
// unknown, already resolved, or expired.
func (g *Gate) Resolve(id string, d Decision) bool {
	g.mu.Lock()
	p, ok := g.pending[id]
	if ok {
		delete(g.pending, id)
	}
	g.mu.Unlock()

	if !ok {
		return false
	}

	p.timer.Stop()
	p.ch <- d
	return true
}

// Abort denies every pending approval and makes subsequent intercepts
// deny immediately until Reset.
func (g *Gate) Abort() {
	g.mu.Lock()
	pending := g.pending
	g.pending = make(map[string]*pendingApproval)
	g.aborted = true
	g.mu.Unlock()

	for _, p := range pending {
		p.timer.Stop()
		p.ch <- Decision{Message: abortDenyMessage}
	}
}

// Reset clears the aborted latch for the next turn.
func (g *Gate) Reset() {
	g.mu.Lock()
	g.aborted = false
	g.mu.Unlock()
}

// PendingCount returns how many approvals are awaiting a decision.
func (g *Gate) PendingCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}
