package session

import (
	"encoding/json"
	"fmt"
	"time"

	"r2tabs/config"
	"r2tabs/log"
)

// TabData represents the serializable data of an open tab
type TabData struct {
	Title     string    `json:"title"`
	FilePath  string    `json:"file_path"`
	Version   string    `json:"version"`
	UseProxy  bool      `json:"use_proxy"`
	CreatedAt time.Time `json:"created_at"`
}

// ToTabData converts a Record to its serializable form
func (r *Record) ToTabData() TabData {
	return TabData{
		Title:     r.Title,
		FilePath:  r.FilePath,
		Version:   r.Version,
		UseProxy:  r.UseProxy,
		CreatedAt: r.CreatedAt,
	}
}

// Storage handles saving and loading tabs using the state interface
type Storage struct {
	state config.TabStorage
}

// NewStorage creates a new storage instance
func NewStorage(state config.TabStorage) *Storage {
	return &Storage{state: state}
}

// SaveTabs saves the given tabs. Tabs without a file on disk cannot be
// reopened and are skipped.
func (s *Storage) SaveTabs(records []*Record) error {
	data := make([]TabData, 0, len(records))
	for _, rec := range records {
		if rec.FilePath == "" {
			log.WarningLog.Printf("Skipping tab %q without a file path when saving", rec.Title)
			continue
		}
		data = append(data, rec.ToTabData())
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal tabs: %w", err)
	}
	return s.state.SaveTabs(jsonData)
}

// LoadTabs returns the saved tabs in the order they were opened.
func (s *Storage) LoadTabs() ([]TabData, error) {
	var tabs []TabData
	if err := json.Unmarshal(s.state.GetTabs(), &tabs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tabs: %w", err)
	}
	return tabs, nil
}

// DeleteAllTabs removes all stored tabs
func (s *Storage) DeleteAllTabs() error {
	return s.state.DeleteAllTabs()
}

// StateSyncer is an optional interface for states that support sync from disk
type StateSyncer interface {
	RefreshFromDisk() (bool, error)
}

// SyncFromDisk reloads the saved tabs if another process changed the state
// file. Returns the tabs and whether a sync occurred.
func (s *Storage) SyncFromDisk() ([]TabData, bool, error) {
	syncer, ok := s.state.(StateSyncer)
	if !ok {
		return nil, false, nil
	}

	refreshed, err := syncer.RefreshFromDisk()
	if err != nil {
		return nil, false, fmt.Errorf("failed to refresh state from disk: %w", err)
	}
	if !refreshed {
		return nil, false, nil
	}

	log.InfoLog.Printf("State file changed, reloading tabs from disk")
	tabs, err := s.LoadTabs()
	if err != nil {
		return nil, true, err
	}
	return tabs, true, nil
}
