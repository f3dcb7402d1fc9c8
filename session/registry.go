package session

import (
	"sync"
	"time"
)

// Deps bundles the collaborators every session is built from
type Deps struct {
	Transport        Transport
	Resolver         Resolver
	Catalog          Catalog
	NewPlayer        func() StreamPlayer
	Progress         *ProgressScheduler
	ProgressInterval time.Duration
}

// Registry is the process-wide map from guild ID to its playback session.
// Sessions are created lazily on the first playback command and removed on
// teardown.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*PlaybackSession
	deps     Deps
}

// NewRegistry returns an empty registry
func NewRegistry(deps Deps) *Registry {
	if deps.ProgressInterval <= 0 {
		deps.ProgressInterval = 10 * time.Second
	}
	return &Registry{
		sessions: map[string]*PlaybackSession{},
		deps:     deps,
	}
}

// GetOrCreate returns the guild's session, creating it on first use. The
// settings read for a new session happens outside the registry lock so a slow
// store can't stall lookups for every other guild.
func (r *Registry) GetOrCreate(guildID string) *PlaybackSession {
	r.mu.Lock()
	s, ok := r.sessions[guildID]
	if !ok {
		s = newSession(guildID, r)
		r.sessions[guildID] = s
	}
	r.mu.Unlock()

	if !ok {
		s.loadStoredVolume()
	}
	return s
}

// Get returns the guild's session if one exists
func (r *Registry) Get(guildID string) (*PlaybackSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[guildID]
	return s, ok
}

// Remove drops the guild's session from the registry
func (r *Registry) Remove(guildID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, guildID)
}

// StopAll tears down every live session, used on graceful shutdown
func (r *Registry) StopAll() {
	r.mu.Lock()
	sessions := make([]*PlaybackSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		s.Teardown("shutdown")
	}
}
