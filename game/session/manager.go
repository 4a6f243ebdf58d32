package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"hash/fnv"
	mathrand "math/rand"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wricardo/carreritas/game/engine"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidSessionID reports whether id is safe to use as a session key and file name
func ValidSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

// TrackLoader resolves track names, used when restoring persisted sessions
type TrackLoader interface {
	LoadTrack(name string) (*engine.Track, error)
}

// Manager handles game session lifecycle
type Manager struct {
	sessions    map[string]*GameSession
	tracks      TrackLoader
	persistence SessionPersistence
	observers   []Observer
	mu          sync.RWMutex
}

// NewManager creates a new session manager
func NewManager(tracks TrackLoader) *Manager {
	return &Manager{
		sessions: make(map[string]*GameSession),
		tracks:   tracks,
	}
}

// NewManagerWithPersistence creates a new session manager with persistence
func NewManagerWithPersistence(tracks TrackLoader, persistence SessionPersistence) *Manager {
	return &Manager{
		sessions:    make(map[string]*GameSession),
		tracks:      tracks,
		persistence: persistence,
	}
}

// AddObserver registers an observer on every current and future session
func (m *Manager) AddObserver(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.observers = append(m.observers, o)
	for _, s := range m.sessions {
		s.AddObserver(o)
	}
}

// Create creates a new session with the given ID, track and settings. The seed
// feeds the session's random source.
func (m *Manager) Create(id string, track *engine.Track, settings Settings, seed int64) (*GameSession, error) {
	if id == "" {
		id = m.generateSessionID()
	}
	if !ValidSessionID(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Check if session already exists (case-insensitive)
	if m.sessionExists(id) {
		return nil, ErrSessionAlreadyExists
	}

	session, err := New(id, track, settings, mathrand.New(mathrand.NewSource(seed)), m.sessionObservers()...)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	m.sessions[strings.ToLower(id)] = session

	// Auto-save if persistence is enabled
	if m.persistence != nil {
		if err := m.persistence.Save(session.Snapshot()); err != nil {
			// Log error but don't fail the creation
			log.Warn().Err(err).Str("session", id).Msg("failed to persist session")
		}
	}

	log.Debug().Str("session", id).Str("track", track.Name()).Msg("session created")
	return session, nil
}

// Get retrieves a session by ID (case-insensitive)
func (m *Manager) Get(id string) (*GameSession, error) {
	m.mu.RLock()
	session, exists := m.sessions[strings.ToLower(id)]
	m.mu.RUnlock()

	if exists {
		return session, nil
	}

	// Try loading from persistence if not in memory
	if m.persistence != nil && m.persistence.Exists(id) {
		session, err := m.restore(id)
		if err != nil {
			return nil, fmt.Errorf("failed to load persisted session: %w", err)
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		// Another caller may have restored it meanwhile
		if existing, ok := m.sessions[strings.ToLower(id)]; ok {
			return existing, nil
		}
		m.sessions[strings.ToLower(id)] = session
		return session, nil
	}

	return nil, ErrSessionNotFound
}

// List returns all active sessions
func (m *Manager) List() []*GameSession {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*GameSession, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}

	return result
}

// Delete removes a session from memory and persistence
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lowerID := strings.ToLower(id)
	_, inMemory := m.sessions[lowerID]
	delete(m.sessions, lowerID)

	if m.persistence != nil && m.persistence.Exists(id) {
		if err := m.persistence.Delete(id); err != nil {
			return fmt.Errorf("failed to delete persisted session: %w", err)
		}
		return nil
	}

	if !inMemory {
		return ErrSessionNotFound
	}

	return nil
}

// DeleteFromMemory removes a session from memory only (not from persistence)
func (m *Manager) DeleteFromMemory(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lowerID := strings.ToLower(id)
	if _, exists := m.sessions[lowerID]; !exists {
		return ErrSessionNotFound
	}
	delete(m.sessions, lowerID)
	return nil
}

// UpdateLastAccessed updates the last accessed time for a session
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.RLock()
	session, exists := m.sessions[strings.ToLower(id)]
	m.mu.RUnlock()

	if !exists {
		return ErrSessionNotFound
	}
	session.Touch()
	return nil
}

// Save persists one session immediately
func (m *Manager) Save(id string) error {
	if m.persistence == nil {
		return nil
	}
	session, err := m.Get(id)
	if err != nil {
		return err
	}
	return m.persistence.Save(session.Snapshot())
}

// CleanupExpiredSessions removes sessions not accessed within maxAge from memory
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for id, session := range m.sessions {
		if session.LastAccessedAt().Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}

	return removed
}

// Count returns the number of active sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// LoadPersistedSessions loads all persisted sessions into memory
func (m *Manager) LoadPersistedSessions() error {
	if m.persistence == nil {
		return nil
	}

	sessionIDs, err := m.persistence.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list persisted sessions: %w", err)
	}

	loadedCount := 0
	for _, id := range sessionIDs {
		m.mu.RLock()
		_, exists := m.sessions[strings.ToLower(id)]
		m.mu.RUnlock()
		if exists {
			continue
		}

		session, err := m.restore(id)
		if err != nil {
			log.Warn().Err(err).Str("session", id).Msg("failed to load persisted session")
			continue
		}

		m.mu.Lock()
		// A concurrent Get may have restored it meanwhile
		if _, exists := m.sessions[strings.ToLower(id)]; !exists {
			m.sessions[strings.ToLower(id)] = session
			loadedCount++
		}
		m.mu.Unlock()
	}

	if loadedCount > 0 {
		log.Info().Int("count", loadedCount).Msg("loaded persisted sessions from storage")
	}

	return nil
}

// SaveAllSessions saves all in-memory sessions to persistence
func (m *Manager) SaveAllSessions() error {
	if m.persistence == nil {
		return nil
	}

	errorCount := 0
	for _, session := range m.List() {
		if err := m.persistence.Save(session.Snapshot()); err != nil {
			log.Warn().Err(err).Str("session", session.ID()).Msg("failed to save session")
			errorCount++
		}
	}

	if errorCount > 0 {
		return fmt.Errorf("failed to save %d sessions", errorCount)
	}

	return nil
}

// restore loads a snapshot and rebuilds its session on the named track
func (m *Manager) restore(id string) (*GameSession, error) {
	snap, err := m.persistence.Load(id)
	if err != nil {
		return nil, err
	}
	if m.tracks == nil {
		return nil, fmt.Errorf("no track loader configured")
	}
	track, err := m.tracks.LoadTrack(snap.TrackName)
	if err != nil {
		return nil, fmt.Errorf("failed to load track '%s': %w", snap.TrackName, err)
	}

	m.mu.RLock()
	observers := m.sessionObservers()
	m.mu.RUnlock()

	return Restore(snap, track, mathrand.New(mathrand.NewSource(seedFromID(snap.ID))), observers...)
}

// sessionObservers returns the observers attached to each session. Must be called with mu held.
func (m *Manager) sessionObservers() []Observer {
	observers := append([]Observer(nil), m.observers...)
	if m.persistence != nil {
		observers = append(observers, ObserverFunc(m.persist))
	}
	return observers
}

// persist saves the session behind an event
func (m *Manager) persist(event Event) {
	m.mu.RLock()
	session, ok := m.sessions[strings.ToLower(event.SessionID)]
	m.mu.RUnlock()
	if !ok {
		return
	}
	if err := m.persistence.Save(session.Snapshot()); err != nil {
		log.Warn().Err(err).Str("session", event.SessionID).Str("event", string(event.Type)).Msg("failed to persist session")
	}
}

// generateSessionID generates a random 4-character session ID
func (m *Manager) generateSessionID() string {
	// Generate 2 random bytes (4 hex characters)
	bytes := make([]byte, 2)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// sessionExists checks if a session exists (case-insensitive)
func (m *Manager) sessionExists(id string) bool {
	_, exists := m.sessions[strings.ToLower(id)]
	return exists
}

// seedFromID derives a stable seed so restored sessions draw the same colors on every restart
func seedFromID(id string) int64 {
	h := fnv.New64a()
	h.Write([]byte(strings.ToLower(id)))
	return int64(h.Sum64())
}
