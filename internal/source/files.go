package source

import (
	"fmt"
	"path/filepath"

	"fortio.org/safecast"
)

// FileID identifies a frontend source file inside a FileTable.
type FileID uint32

// FileTable maps FileIDs to the paths recorded in a frontend declaration
// graph. Unlike a full file set it never loads content: the frontend already
// resolved everything, the table only serves diagnostic rendering.
type FileTable struct {
	paths []string
	index map[string]FileID
}

// NewFileTable creates an empty file table.
func NewFileTable() *FileTable {
	return &FileTable{
		paths: make([]string, 0, 8),
		index: make(map[string]FileID, 8),
	}
}

// Add registers a path and returns its ID. Paths are normalized to slashes,
// re-adding an existing path returns the original ID.
func (t *FileTable) Add(path string) FileID {
	normalized := filepath.ToSlash(path)
	if id, ok := t.index[normalized]; ok {
		return id
	}
	value, err := safecast.Conv[uint32](len(t.paths))
	if err != nil {
		panic(fmt.Errorf("file table overflow: %w", err))
	}
	id := FileID(value)
	t.paths = append(t.paths, normalized)
	t.index[normalized] = id
	return id
}

// Path returns the path for an ID, or "" for an unknown ID.
func (t *FileTable) Path(id FileID) string {
	if t == nil || int(id) >= len(t.paths) {
		return ""
	}
	return t.paths[id]
}

// Len reports the number of registered paths.
func (t *FileTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.paths)
}
