package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/harunnryd/halo/pkg/convo"
)

// Session binds a conversation transcript to an ID. Turns on one session are
// serialized; concurrent callers queue on the session mutex so the transcript
// never interleaves.
type Session struct {
	ID    string
	Convo *convo.Context
	mu    sync.Mutex
}

// Turn runs fn with the session's turn lock held.
func (s *Session) Turn(ctx context.Context, fn func(cc *convo.Context) convo.Outcome) convo.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return convo.Outcome{State: convo.StateFailed, Err: err}
	}
	return fn(s.Convo)
}

// Snapshot copies the transcript for persistence.
func (s *Session) Snapshot() []convo.Message {
	return s.Convo.Messages()
}

// Restore replaces the transcript from a snapshot.
func (s *Session) Restore(msgs []convo.Message) {
	s.Convo.SetMessages(msgs)
}

// Registry tracks live sessions. While draining it hands out no new ones.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	draining bool
	empty    *sync.Cond
	limits   func() *convo.Context
}

func NewRegistry() *Registry {
	r := &Registry{
		sessions: map[string]*Session{},
		limits:   convo.NewContext,
	}
	r.empty = sync.NewCond(&r.mu)
	return r
}

// NewRegistryWithLimits builds sessions with custom history bounds.
func NewRegistryWithLimits(maxHistory, pruneThreshold int) *Registry {
	r := NewRegistry()
	r.limits = func() *convo.Context {
		return convo.NewContextWithLimits(maxHistory, pruneThreshold)
	}
	return r
}

// GetOrCreate returns the session for id, minting an ID when empty. The
// second return is false while draining.
func (r *Registry) GetOrCreate(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id != "" {
		if s, ok := r.sessions[id]; ok {
			return s, true
		}
	}
	if r.draining {
		return nil, false
	}
	if id == "" {
		id = uuid.NewString()
	}
	s := &Session{ID: id, Convo: r.limits()}
	r.sessions[id] = s
	return s, true
}

// Get returns an existing session without creating one.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove drops a session.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	if len(r.sessions) == 0 {
		r.empty.Broadcast()
	}
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// SetDraining stops new session creation; existing sessions keep working.
func (r *Registry) SetDraining(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.draining = on
}

// CloseAll drops every session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = map[string]*Session{}
	r.empty.Broadcast()
}

// WaitForEmpty blocks until all sessions are gone or ctx expires.
func (r *Registry) WaitForEmpty(ctx context.Context) error {
	stopped := false
	done := make(chan struct{})
	go func() {
		r.mu.Lock()
		for len(r.sessions) > 0 && !stopped {
			r.empty.Wait()
		}
		r.mu.Unlock()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		r.mu.Lock()
		stopped = true
		r.empty.Broadcast()
		r.mu.Unlock()
		return ctx.Err()
	}
}
