// Package assets loads model descriptors, meshes and textures from directory
// roots, caches them and reports file changes for hot reload.
package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/modelgl/internal/logger"
)

// ErrNotFound is returned when no root contains the requested path.
var ErrNotFound = errors.New("asset not found")

// Kind classifies an asset by its extension.
type Kind int

// Asset kinds.
const (
	KindUnknown Kind = iota
	KindDescriptor
	KindMesh
	KindTexture
	KindBinary
)

func (k Kind) String() string {
	switch k {
	case KindDescriptor:
		return "descriptor"
	case KindMesh:
		return "mesh"
	case KindTexture:
		return "texture"
	case KindBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// KindOf returns the kind of the asset at p.
func KindOf(p string) Kind {
	switch strings.ToLower(path.Ext(p)) {
	case ".yaml", ".yml", ".json", ".toml":
		return KindDescriptor
	case ".obj":
		return KindMesh
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tga":
		return KindTexture
	case ".bin", ".raw":
		return KindBinary
	default:
		return KindUnknown
	}
}

type root struct {
	name string
	fsys fs.FS
	dir  string // empty for roots that are not on disk
}

// Manager loads assets from a stack of roots.
// Roots are searched in reverse order (last added = highest priority).
type Manager struct {
	roots []root
	cache *Cache
	mu    sync.RWMutex
}

// NewManager creates a new asset manager.
func NewManager() *Manager {
	return &Manager{
		cache: NewCache(),
	}
}

// AddDir adds a directory root. Directory roots can be watched.
func (m *Manager) AddDir(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving asset dir %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("opening asset dir %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("opening asset dir %s: not a directory", dir)
	}

	m.mu.Lock()
	m.roots = append(m.roots, root{name: abs, fsys: os.DirFS(abs), dir: abs})
	m.mu.Unlock()

	logger.Named("assets").Debug("asset dir added", zap.String("dir", abs))
	return nil
}

// AddFS adds a file system root, such as an embedded one.
func (m *Manager) AddFS(name string, fsys fs.FS) {
	m.mu.Lock()
	m.roots = append(m.roots, root{name: name, fsys: fsys})
	m.mu.Unlock()
}

// Dirs returns the directory roots in the order they were added.
func (m *Manager) Dirs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var dirs []string
	for _, r := range m.roots {
		if r.dir != "" {
			dirs = append(dirs, r.dir)
		}
	}
	return dirs
}

// Clean turns p into the slash-separated key used by Load and the cache.
func Clean(p string) string {
	p = path.Clean(filepath.ToSlash(p))
	return strings.TrimPrefix(p, "/")
}

// Load loads a file from the roots.
func (m *Manager) Load(p string) ([]byte, error) {
	key := Clean(p)

	// Check cache first
	if data, ok := m.cache.Get(key); ok {
		return data, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.roots) - 1; i >= 0; i-- {
		data, err := fs.ReadFile(m.roots[i].fsys, key)
		if err == nil {
			m.cache.Set(key, data)
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading %s from %s: %w", key, m.roots[i].name, err)
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
}

// Resolve maps an absolute file path under a directory root to its asset key.
func (m *Manager) Resolve(file string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.roots) - 1; i >= 0; i-- {
		dir := m.roots[i].dir
		if dir == "" {
			continue
		}
		rel, err := filepath.Rel(dir, file)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		return Clean(rel), true
	}
	return "", false
}

// Invalidate drops a cached asset so the next Load reads it again.
func (m *Manager) Invalidate(p string) {
	m.cache.Delete(Clean(p))
}

// Cache returns the manager's cache.
func (m *Manager) Cache() *Cache { return m.cache }

// Close forgets every root and clears the cache.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.roots = nil
	m.cache.Clear()
}

// Cache is a simple in-memory cache for loaded assets.
type Cache struct {
	data map[string][]byte
	mu   sync.RWMutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string][]byte),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
}

// Delete removes an item from cache.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// Len returns the number of cached items.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
