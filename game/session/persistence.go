package session

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session snapshot to storage
	Save(snap Snapshot) error

	// Load retrieves a session snapshot from storage by ID
	Load(id string) (Snapshot, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// persistedSessionVersion is bumped when the on-disk layout changes
const persistedSessionVersion = 1

// PersistedSessionData represents the JSON structure for persisted sessions
type PersistedSessionData struct {
	Version int      `json:"version"`
	Session Snapshot `json:"session"`
}
