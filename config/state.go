package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"r2tabs/log"
)

const (
	StateFileName = "state.json"
)

// TabStorage handles persistence of open tabs
type TabStorage interface {
	// SaveTabs saves the raw tab data
	SaveTabs(tabsJSON json.RawMessage) error
	// GetTabs returns the raw tab data
	GetTabs() json.RawMessage
	// DeleteAllTabs removes all stored tabs
	DeleteAllTabs() error
}

// AppState handles application-level state
type AppState interface {
	// GetLastVersion returns the version most recently opened
	GetLastVersion() string
	// SetLastVersion records the version most recently opened
	SetLastVersion(version string) error
}

// StateManager combines tab storage and app state management
type StateManager interface {
	TabStorage
	AppState
}

// State represents the application state that persists between runs
type State struct {
	// LastVersion is the binary version most recently opened in a tab
	LastVersion string `json:"last_version"`
	// TabsData stores the serialized tab data as raw JSON
	TabsData json.RawMessage `json:"tabs"`

	// dir is the directory holding state.json (not serialized)
	dir string
	// lastModTime tracks when we last read the state file (not serialized)
	lastModTime time.Time
}

// DefaultState returns the default state
func DefaultState() *State {
	return &State{
		TabsData: json.RawMessage("[]"),
	}
}

// LoadState loads the state from the config directory. If it cannot be done,
// we return the default state.
func LoadState() *State {
	configDir, err := GetConfigDir()
	if err != nil {
		log.ErrorLog.Printf("failed to get config directory: %v", err)
		return DefaultState()
	}
	return LoadStateFrom(configDir)
}

// LoadStateFrom loads state.json from dir. A shared lock is held while
// reading so concurrent writers never hand us a torn file.
func LoadStateFrom(dir string) *State {
	statePath := filepath.Join(dir, StateFileName)

	lock := NewFileLock(statePath)
	if err := lock.RLock(); err != nil {
		log.WarningLog.Printf("failed to acquire read lock: %v", err)
	} else {
		defer lock.Unlock()
	}

	var modTime time.Time
	if info, err := os.Stat(statePath); err == nil {
		modTime = info.ModTime()
	}

	data, err := os.ReadFile(statePath)
	if err != nil {
		defaultState := DefaultState()
		defaultState.dir = dir
		if !os.IsNotExist(err) {
			log.WarningLog.Printf("failed to get state file: %v", err)
		}
		return defaultState
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		log.ErrorLog.Printf("failed to parse state file: %v", err)
		defaultState := DefaultState()
		defaultState.dir = dir
		return defaultState
	}
	if len(state.TabsData) == 0 {
		state.TabsData = json.RawMessage("[]")
	}

	state.dir = dir
	state.lastModTime = modTime
	return &state
}

// SaveState saves the state to disk under an exclusive lock.
func SaveState(state *State) error {
	dir := state.dir
	if dir == "" {
		configDir, err := GetConfigDir()
		if err != nil {
			return fmt.Errorf("failed to get config directory: %w", err)
		}
		dir = configDir
		state.dir = dir
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	statePath := filepath.Join(dir, StateFileName)

	lock := NewFileLock(statePath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire write lock: %w", err)
	}
	defer lock.Unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.WriteFile(statePath, data, 0644); err != nil {
		return err
	}

	if info, err := os.Stat(statePath); err == nil {
		state.lastModTime = info.ModTime()
	}

	return nil
}

// SaveTabs saves the raw tab data
func (s *State) SaveTabs(tabsJSON json.RawMessage) error {
	s.TabsData = tabsJSON
	return SaveState(s)
}

// GetTabs returns the raw tab data
func (s *State) GetTabs() json.RawMessage {
	return s.TabsData
}

// DeleteAllTabs removes all stored tabs
func (s *State) DeleteAllTabs() error {
	s.TabsData = json.RawMessage("[]")
	return SaveState(s)
}

// GetLastVersion returns the version most recently opened
func (s *State) GetLastVersion() string {
	return s.LastVersion
}

// SetLastVersion records the version most recently opened
func (s *State) SetLastVersion(version string) error {
	s.LastVersion = version
	return SaveState(s)
}

// GetLastModTime returns the modification time when this state was last read from disk.
func (s *State) GetLastModTime() time.Time {
	return s.lastModTime
}

// RefreshFromDisk reloads the state if another process modified it.
// Returns true if the state was refreshed.
func (s *State) RefreshFromDisk() (bool, error) {
	statePath := filepath.Join(s.dir, StateFileName)
	info, err := os.Stat(statePath)
	if err != nil || !info.ModTime().After(s.lastModTime) {
		return false, nil
	}

	lock := NewFileLock(statePath)
	if err := lock.RLock(); err != nil {
		return false, fmt.Errorf("failed to acquire read lock: %w", err)
	}
	defer lock.Unlock()

	data, err := os.ReadFile(statePath)
	if err != nil {
		return false, fmt.Errorf("failed to read state file: %w", err)
	}

	var newState State
	if err := json.Unmarshal(data, &newState); err != nil {
		return false, fmt.Errorf("failed to parse state file: %w", err)
	}

	s.LastVersion = newState.LastVersion
	s.TabsData = newState.TabsData
	s.lastModTime = info.ModTime()

	return true, nil
}
