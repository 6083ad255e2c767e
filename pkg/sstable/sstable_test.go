package sstable

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func writeDataFile(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("sstable"), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestFindOldest(t *testing.T) {
	root := t.TempDir()
	base := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	writeDataFile(t, filepath.Join(root, "shop", "orders-0665ae80b2d711e6b1e9e34f3c60abe1", "Data.db"), base.Add(48*time.Hour))
	writeDataFile(t, filepath.Join(root, "shop", "users-1775ae80b2d711e6b1e9e34f3c60abe2", "Data.db"), base)
	writeDataFile(t, filepath.Join(root, "audit", "log-2885ae80b2d711e6b1e9e34f3c60abe3", "Data.db"), base.Add(24*time.Hour))

	oldest, err := FindOldest(root)
	require.NoError(t, err)
	require.NotNil(t, oldest)
	require.Equal(t, "shop", oldest.Keyspace)
	require.Equal(t, "users-1775ae80b2d711e6b1e9e34f3c60abe2", oldest.Table)
	require.True(t, base.Equal(oldest.ModTime))
	require.Equal(t, uuid.MustParse("1775ae80-b2d7-11e6-b1e9-e34f3c60abe2"), oldest.TableID)
}

func TestFindOldest_NestedDirectories(t *testing.T) {
	root := t.TempDir()
	base := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	// Snapshots and backups nest Data.db below the table directory.
	writeDataFile(t, filepath.Join(root, "shop", "orders-0665ae80b2d711e6b1e9e34f3c60abe1", "Data.db"), base.Add(time.Hour))
	writeDataFile(t, filepath.Join(root, "shop", "orders-0665ae80b2d711e6b1e9e34f3c60abe1", "backups", "Data.db"), base)

	oldest, err := FindOldest(root)
	require.NoError(t, err)
	require.NotNil(t, oldest)
	require.Equal(t, filepath.Join(root, "shop", "orders-0665ae80b2d711e6b1e9e34f3c60abe1", "backups", "Data.db"), oldest.Path)
}

func TestFindOldest_SkipsSystemKeyspaces(t *testing.T) {
	root := t.TempDir()
	base := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	// The system file is older but must not win.
	writeDataFile(t, filepath.Join(root, "system", "local-7ad54392bcdd35a684174e047860b377", "Data.db"), base.Add(-240*time.Hour))
	writeDataFile(t, filepath.Join(root, "shop", "orders-0665ae80b2d711e6b1e9e34f3c60abe1", "Data.db"), base)

	oldest, err := FindOldest(root)
	require.NoError(t, err)
	require.NotNil(t, oldest)
	require.Equal(t, "shop", oldest.Keyspace)
}

func TestFindOldest_IgnoresOtherFiles(t *testing.T) {
	root := t.TempDir()
	base := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	dir := filepath.Join(root, "shop", "orders-0665ae80b2d711e6b1e9e34f3c60abe1")
	writeDataFile(t, filepath.Join(dir, "Data.db"), base)
	writeDataFile(t, filepath.Join(dir, "Index.db"), base.Add(-time.Hour))
	writeDataFile(t, filepath.Join(dir, "Statistics.db"), base.Add(-time.Hour))

	// A stray file at the keyspace level is not a table directory.
	require.NoError(t, os.WriteFile(filepath.Join(root, "shop", "stray.txt"), []byte("x"), 0o644))

	oldest, err := FindOldest(root)
	require.NoError(t, err)
	require.NotNil(t, oldest)
	require.Equal(t, filepath.Join(dir, "Data.db"), oldest.Path)
}

func TestFindOldest_EmptyTree(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "shop", "orders-0665ae80b2d711e6b1e9e34f3c60abe1"), 0o755))

	oldest, err := FindOldest(root)
	require.NoError(t, err)
	require.Nil(t, oldest)
}

func TestFindOldest_MissingRoot(t *testing.T) {
	_, err := FindOldest(filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "read data directory")
}

func TestParseTableID(t *testing.T) {
	require.Equal(t,
		uuid.MustParse("0665ae80-b2d7-11e6-b1e9-e34f3c60abe1"),
		parseTableID("orders-0665ae80b2d711e6b1e9e34f3c60abe1"))

	// Table names may themselves contain dashes.
	require.Equal(t,
		uuid.MustParse("0665ae80-b2d7-11e6-b1e9-e34f3c60abe1"),
		parseTableID("user-events-0665ae80b2d711e6b1e9e34f3c60abe1"))

	require.Equal(t, uuid.Nil, parseTableID("orders"))
	require.Equal(t, uuid.Nil, parseTableID("orders-123"))
	require.Equal(t, uuid.Nil, parseTableID("orders-zz65ae80b2d711e6b1e9e34f3c60abe1"))
}
