package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/wricardo/carreritas/game/engine"
	"github.com/wricardo/carreritas/game/service"
)

// DefaultTrackID is the track used when a game is created without one.
// The built-in hairpin is served under this ID when no file provides it.
const DefaultTrackID = "hairpin"

var (
	ErrConfigNotFound = service.ErrTrackNotFound
	ErrInvalidConfig  = errors.New("invalid track")
)

// Manager handles track configuration loading and caching
type Manager struct {
	configDir string
	defaultID string
	configs   map[string]*engine.TrackConfig
	mu        sync.RWMutex
}

// NewManager creates a new track manager
func NewManager(configDir string) (*Manager, error) {
	// Ensure config directory exists
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		defaultID: DefaultTrackID,
		configs:   make(map[string]*engine.TrackConfig),
	}

	return m, nil
}

// LoadConfig loads a track configuration by ID (file name without extension)
func (m *Manager) LoadConfig(id string) (*engine.TrackConfig, error) {
	id = strings.TrimSuffix(id, ".json")

	m.mu.RLock()
	// Check cache first
	if config, exists := m.configs[id]; exists {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	config, err := m.readConfig(id)
	if err != nil {
		if errors.Is(err, ErrConfigNotFound) && id == DefaultTrackID {
			config = engine.DefaultTrackConfig()
		} else {
			return nil, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Another caller may have loaded it meanwhile
	if cached, exists := m.configs[id]; exists {
		return cached, nil
	}
	m.configs[id] = config
	return config, nil
}

// LoadTrack builds the track for a configuration ID. The track is named by
// its ID so sessions can be restored from it later.
func (m *Manager) LoadTrack(id string) (*engine.Track, error) {
	config, err := m.LoadConfig(id)
	if err != nil {
		return nil, err
	}

	named := *config
	named.Name = strings.TrimSuffix(id, ".json")
	track, err := engine.NewTrackFromConfig(&named)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return track, nil
}

// ListConfigs returns information about all available tracks, sorted by ID
func (m *Manager) ListConfigs() ([]*service.TrackInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	ids := make([]string, 0, len(entries)+1)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(entry.Name(), ".json"))
	}
	if !slices.Contains(ids, DefaultTrackID) {
		ids = append(ids, DefaultTrackID)
	}
	sort.Strings(ids)

	var tracks []*service.TrackInfo
	for _, id := range ids {
		config, err := m.LoadConfig(id)
		if err != nil {
			// Skip invalid tracks
			log.Warn().Err(err).Str("track", id).Msg("skipping track")
			continue
		}
		tracks = append(tracks, m.info(id, config))
	}

	return tracks, nil
}

// GetInfo returns the listing entry for one track
func (m *Manager) GetInfo(id string) (*service.TrackInfo, error) {
	config, err := m.LoadConfig(id)
	if err != nil {
		return nil, err
	}
	return m.info(strings.TrimSuffix(id, ".json"), config), nil
}

// DefaultID returns the ID of the default track
func (m *Manager) DefaultID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultID
}

// GetDefault returns the default track configuration
func (m *Manager) GetDefault() *engine.TrackConfig {
	config, err := m.LoadConfig(m.DefaultID())
	if err != nil {
		return engine.DefaultTrackConfig()
	}
	return config
}

// SetDefault sets the default track by ID
func (m *Manager) SetDefault(id string) error {
	if _, err := m.LoadConfig(id); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultID = strings.TrimSuffix(id, ".json")
	return nil
}

// RefreshCache drops all cached tracks so they are reread from disk
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs = make(map[string]*engine.TrackConfig)
}

// SaveConfig validates and writes a track configuration to disk
func (m *Manager) SaveConfig(id string, config *engine.TrackConfig) error {
	if err := engine.ValidateTrackConfig(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	id = strings.TrimSuffix(id, ".json")
	if id == "" || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: bad track ID %q", ErrInvalidConfig, id)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal track: %w", err)
	}

	configPath := filepath.Join(m.configDir, id+".json")
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write track file: %w", err)
	}

	// Update cache
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs[id] = config

	return nil
}

// readConfig reads and validates one track file
func (m *Manager) readConfig(id string) (*engine.TrackConfig, error) {
	configPath := filepath.Join(m.configDir, id+".json")

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, id)
		}
		return nil, fmt.Errorf("failed to read track file: %w", err)
	}

	var config engine.TrackConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse track: %w", err)
	}

	if err := engine.ValidateTrackConfig(&config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return &config, nil
}

func (m *Manager) info(id string, config *engine.TrackConfig) *service.TrackInfo {
	info := &service.TrackInfo{
		ID:          id,
		Name:        config.Name,
		Description: config.Description,
		Width:       config.Width,
		Height:      config.Height,
		Default:     id == m.DefaultID(),
	}
	if track, err := engine.NewTrackFromConfig(config); err == nil {
		info.StartLine = len(track.StartLine())
		info.Drivable = track.DrivableCount()
	}
	if config.SpeedConstant > 0 {
		info.SpeedConstant = config.SpeedConstant
	}
	return info
}
