package session

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"r2tabs/config"
)

type memTabStorage struct {
	data json.RawMessage
}

func (m *memTabStorage) SaveTabs(data json.RawMessage) error {
	m.data = data
	return nil
}

func (m *memTabStorage) GetTabs() json.RawMessage { return m.data }

func (m *memTabStorage) DeleteAllTabs() error {
	m.data = json.RawMessage("[]")
	return nil
}

func TestStorageRoundTrip(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	storage := NewStorage(&memTabStorage{})

	err := storage.SaveTabs([]*Record{
		{Title: "ls", FilePath: "/bin/ls", Version: "6.0.9", CreatedAt: created},
		{Title: "pasted", Version: "6.0.9"},
		{Title: "libc", FilePath: "/lib/libc.so.6", Version: "5.9.8", UseProxy: true, CreatedAt: created},
	})
	require.NoError(t, err)

	tabs, err := storage.LoadTabs()
	require.NoError(t, err)
	require.Equal(t, []TabData{
		{Title: "ls", FilePath: "/bin/ls", Version: "6.0.9", CreatedAt: created},
		{Title: "libc", FilePath: "/lib/libc.so.6", Version: "5.9.8", UseProxy: true, CreatedAt: created},
	}, tabs)

	require.NoError(t, storage.DeleteAllTabs())
	tabs, err = storage.LoadTabs()
	require.NoError(t, err)
	require.Empty(t, tabs)
}

func TestStorageSyncFromDisk(t *testing.T) {
	// Without a syncer there is nothing to refresh.
	tabs, synced, err := NewStorage(&memTabStorage{}).SyncFromDisk()
	require.NoError(t, err)
	require.False(t, synced)
	require.Nil(t, tabs)

	dir := t.TempDir()
	ours := config.LoadStateFrom(dir)
	storage := NewStorage(ours)

	_, synced, err = storage.SyncFromDisk()
	require.NoError(t, err)
	require.False(t, synced)

	// Another process writes the state file.
	time.Sleep(10 * time.Millisecond)
	theirs := config.LoadStateFrom(dir)
	require.NoError(t, NewStorage(theirs).SaveTabs([]*Record{{Title: "ls", FilePath: "/bin/ls", Version: "6.0.9"}}))

	tabs, synced, err = storage.SyncFromDisk()
	require.NoError(t, err)
	require.True(t, synced)
	require.Len(t, tabs, 1)
	require.Equal(t, "/bin/ls", tabs[0].FilePath)
}
