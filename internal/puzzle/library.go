package puzzle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrBadName is returned for file names that are not plain .pgn files.
var ErrBadName = errors.New("invalid puzzle file name")

// Library serves the PGN files of one directory. Parsed sources are cached
// until the file changes on disk.
type Library struct {
	dir string

	mu    sync.Mutex
	cache map[string]cached
}

type cached struct {
	mod time.Time
	src *Source
}

// NewLibrary returns a library rooted at dir.
func NewLibrary(dir string) *Library {
	return &Library{dir: dir, cache: make(map[string]cached)}
}

// Dir returns the directory the library reads from.
func (l *Library) Dir() string { return l.dir }

// List returns the .pgn files in the directory, sorted by name.
func (l *Library) List() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("list puzzles: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pgn") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Load returns the parsed source for a file in the directory.
func (l *Library) Load(name string) (*Source, error) {
	if err := CheckName(name); err != nil {
		return nil, err
	}
	path := filepath.Join(l.dir, name)
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open puzzles: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if c, ok := l.cache[name]; ok && c.mod.Equal(info.ModTime()) {
		return c.src, nil
	}
	src, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	l.cache[name] = cached{mod: info.ModTime(), src: src}
	return src, nil
}

// CheckName rejects names that would leave the directory.
func CheckName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") ||
		!strings.EqualFold(filepath.Ext(name), ".pgn") {
		return fmt.Errorf("%w: %q", ErrBadName, name)
	}
	return nil
}
