package driver

import (
	"sort"
	"strings"
	"sync"
)

// BindCriteria selects or creates the process binding for a conversation.
type BindCriteria struct {
	ConversationID string
	Model          string
	Effort         string
	WorkspaceRoots []string
}

// Registry hands out one Client per conversation id. It replaces any
// notion of a process-wide current session; concurrent conversations each
// get their own binding.
type Registry struct {
	mu      sync.Mutex
	clients map[string]*Client
	base    []Option
}

// NewRegistry creates a registry. The base options apply to every client
// it creates, before the per-bind options.
func NewRegistry(base ...Option) *Registry {
	return &Registry{
		clients: make(map[string]*Client),
		base:    base,
	}
}

// Bind returns the live client for the conversation when its model,
// effort, and workspace-root set still match; otherwise it stops the old
// client and creates a fresh one, carrying the external session id over
// so the agent resumes the conversation.
func (r *Registry) Bind(criteria BindCriteria) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing := r.clients[criteria.ConversationID]
	if existing != nil && existing.matches(criteria.Model, criteria.Effort, criteria.WorkspaceRoots) {
		return existing
	}

	var resume string
	if existing != nil {
		resume = existing.ExternalSessionID()
		existing.Stop()
	}

	opts := append([]Option(nil), r.base...)
	opts = append(opts,
		WithModel(criteria.Model),
		WithEffort(criteria.Effort),
		WithWorkspaceRoots(criteria.WorkspaceRoots...),
	)
	if resume != "" {
		opts = append(opts, WithResume(resume))
	}

	c := NewClient(criteria.ConversationID, opts...)
	r.clients[criteria.ConversationID] = c
	return c
}

// Release stops and forgets the conversation's client, if any.
func (r *Registry) Release(conversationID string) {
	r.mu.Lock()
	c := r.clients[conversationID]
	delete(r.clients, conversationID)
	r.mu.Unlock()

	if c != nil {
		c.Stop()
	}
}

// Close stops every client.
func (r *Registry) Close() {
	r.mu.Lock()
	clients := r.clients
	r.clients = make(map[string]*Client)
	r.mu.Unlock()

	for _, c := range clients {
		c.Stop()
	}
}

// normalizeRoots canonicalizes a workspace-root set for comparison. Root
// order is not significant.
func normalizeRoots(roots []string) string {
	sorted := append([]string(nil), roots...)
	sort.Strings(sorted)
	return strings.Join(sorted, "\x00")
}
