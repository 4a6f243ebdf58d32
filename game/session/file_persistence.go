package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FilePersistence implements SessionPersistence using file system storage
type FilePersistence struct {
	sessionsDir string
}

// NewFilePersistence creates a new file-based session persistence layer
func NewFilePersistence(sessionsDir string) (*FilePersistence, error) {
	// Create sessions directory if it doesn't exist
	if err := os.MkdirAll(sessionsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}

	return &FilePersistence{sessionsDir: sessionsDir}, nil
}

// Save persists a session snapshot to a JSON file. The file is written to a
// temporary name first and renamed into place.
func (fp *FilePersistence) Save(snap Snapshot) error {
	data := PersistedSessionData{
		Version: persistedSessionVersion,
		Session: snap,
	}

	// Marshal to JSON with indentation for readability
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}

	filePath, err := fp.getFilePath(snap.ID)
	if err != nil {
		return err
	}
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp, filePath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write session file: %w", err)
	}

	return nil
}

// Load retrieves a session snapshot from a JSON file
func (fp *FilePersistence) Load(id string) (Snapshot, error) {
	filePath, err := fp.getFilePath(id)
	if err != nil {
		return Snapshot{}, err
	}

	jsonData, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return Snapshot{}, ErrSessionNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read session file: %w", err)
	}

	var data PersistedSessionData
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return Snapshot{}, fmt.Errorf("failed to unmarshal session data: %w", err)
	}
	if data.Version != persistedSessionVersion {
		return Snapshot{}, fmt.Errorf("unsupported session file version %d", data.Version)
	}

	return data.Session, nil
}

// Delete removes a session file
func (fp *FilePersistence) Delete(id string) error {
	filePath, err := fp.getFilePath(id)
	if err != nil {
		return err
	}
	if _, err := os.Stat(filePath); err != nil {
		return ErrSessionNotFound
	}

	if err := os.Remove(filePath); err != nil {
		return fmt.Errorf("failed to remove session file: %w", err)
	}

	return nil
}

// ListAll returns all persisted session IDs
func (fp *FilePersistence) ListAll() ([]string, error) {
	entries, err := os.ReadDir(fp.sessionsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	var sessionIDs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		id, ok := strings.CutSuffix(name, ".json")
		if ok && ValidSessionID(id) {
			sessionIDs = append(sessionIDs, id)
		}
	}

	return sessionIDs, nil
}

// Exists checks if a session file exists
func (fp *FilePersistence) Exists(id string) bool {
	filePath, err := fp.getFilePath(id)
	if err != nil {
		return false
	}
	_, err = os.Stat(filePath)
	return err == nil
}

// getFilePath returns the full file path for a session ID. IDs are stored
// lowercase to match the manager's case-insensitive lookup.
func (fp *FilePersistence) getFilePath(id string) (string, error) {
	if !ValidSessionID(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}
	return filepath.Join(fp.sessionsDir, fmt.Sprintf("%s.json", strings.ToLower(id))), nil
}
