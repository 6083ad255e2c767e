package sstable

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tablegauge/tablegauge/pkg/cassandra"
)

// dataFileName is the SSTable data component every flushed table has.
const dataFileName = "Data.db"

// Oldest describes the oldest SSTable data file under a data directory.
type Oldest struct {
	Path     string
	ModTime  time.Time
	Keyspace string
	Table    string
	// TableID is parsed from the table directory's hex suffix; uuid.Nil
	// when the directory does not follow the <name>-<32 hex> layout.
	TableID uuid.UUID
}

// FindOldest scans a Cassandra data directory (layout
// <root>/<keyspace>/<table-id>/.../Data.db) and returns the Data.db with
// the oldest modification time. System keyspaces are skipped. A tree with
// no Data.db yields (nil, nil). Files vanishing mid-scan are tolerated;
// compaction deletes SSTables at any time.
func FindOldest(root string) (*Oldest, error) {
	keyspaces, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read data directory: %w", err)
	}

	var oldest *Oldest
	for _, ks := range keyspaces {
		if !ks.IsDir() || cassandra.IsSystemKeyspace(ks.Name()) {
			continue
		}
		tables, err := os.ReadDir(filepath.Join(root, ks.Name()))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read keyspace %s: %w", ks.Name(), err)
		}

		for _, table := range tables {
			if !table.IsDir() {
				continue
			}
			found, err := oldestInTable(root, ks.Name(), table.Name())
			if err != nil {
				return nil, err
			}
			if found != nil && (oldest == nil || found.ModTime.Before(oldest.ModTime)) {
				oldest = found
			}
		}
	}
	return oldest, nil
}

func oldestInTable(root, keyspace, table string) (*Oldest, error) {
	var oldest *Oldest
	dir := filepath.Join(root, keyspace, table)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || d.Name() != dataFileName {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if oldest == nil || info.ModTime().Before(oldest.ModTime) {
			oldest = &Oldest{
				Path:     path,
				ModTime:  info.ModTime(),
				Keyspace: keyspace,
				Table:    table,
				TableID:  parseTableID(table),
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s/%s: %w", keyspace, table, err)
	}
	return oldest, nil
}

// parseTableID extracts the table UUID from a directory named
// <table>-<32 hex chars>.
func parseTableID(dir string) uuid.UUID {
	i := strings.LastIndexByte(dir, '-')
	if i < 0 || len(dir)-i-1 != 32 {
		return uuid.Nil
	}
	id, err := uuid.Parse(dir[i+1:])
	if err != nil {
		return uuid.Nil
	}
	return id
}
