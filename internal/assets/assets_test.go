package assets

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/Faultbox/modelgl/internal/engine/model"
)

var _ model.Provider = (*Manager)(nil)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		path string
		want Kind
	}{
		{"models/cube.yaml", KindDescriptor},
		{"cube.JSON", KindDescriptor},
		{"cube.toml", KindDescriptor},
		{"meshes/cube.obj", KindMesh},
		{"tex/brick.png", KindTexture},
		{"data/pos.bin", KindBinary},
		{"README", KindUnknown},
	}
	for _, tt := range tests {
		if got := KindOf(tt.path); got != tt.want {
			t.Errorf("KindOf(%q): expected %v, got %v", tt.path, tt.want, got)
		}
	}
}

func TestClean(t *testing.T) {
	tests := map[string]string{
		"/models/cube.yaml":     "models/cube.yaml",
		"models/../cube.yaml":   "cube.yaml",
		"./models//cube.yaml":   "models/cube.yaml",
		"models/sub/./cube.obj": "models/sub/cube.obj",
	}
	for in, want := range tests {
		if got := Clean(in); got != want {
			t.Errorf("Clean(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestManagerLoad_RootPriority(t *testing.T) {
	m := NewManager()
	m.AddFS("base", fstest.MapFS{
		"a.yaml": {Data: []byte("base-a")},
		"b.yaml": {Data: []byte("base-b")},
	})
	m.AddFS("override", fstest.MapFS{
		"a.yaml": {Data: []byte("override-a")},
	})

	data, err := m.Load("a.yaml")
	if err != nil {
		t.Fatalf("Load a: %v", err)
	}
	if string(data) != "override-a" {
		t.Errorf("expected override-a, got %q", data)
	}

	data, err = m.Load("/b.yaml")
	if err != nil {
		t.Fatalf("Load b: %v", err)
	}
	if string(data) != "base-b" {
		t.Errorf("expected base-b, got %q", data)
	}
}

func TestManagerLoad_NotFound(t *testing.T) {
	m := NewManager()
	m.AddFS("empty", fstest.MapFS{})

	_, err := m.Load("missing.obj")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestManagerLoad_Cached(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "m.yaml", "v1")

	m := NewManager()
	if err := m.AddDir(dir); err != nil {
		t.Fatalf("AddDir: %v", err)
	}

	if _, err := m.Load("m.yaml"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	writeFile(t, dir, "m.yaml", "v2")

	data, _ := m.Load("m.yaml")
	if string(data) != "v1" {
		t.Errorf("expected cached v1, got %q", data)
	}
	hits, misses := m.Cache().Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("expected 1 hit and 1 miss, got %d and %d", hits, misses)
	}

	m.Invalidate("m.yaml")
	data, _ = m.Load("m.yaml")
	if string(data) != "v2" {
		t.Errorf("expected v2 after invalidate, got %q", data)
	}
}

func TestManagerAddDir_NotADirectory(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "f.txt", "x")

	m := NewManager()
	if err := m.AddDir(file); err == nil {
		t.Error("expected error for a file root")
	}
	if err := m.AddDir(filepath.Join(dir, "nope")); err == nil {
		t.Error("expected error for a missing root")
	}
	if len(m.Dirs()) != 0 {
		t.Errorf("expected no dirs, got %v", m.Dirs())
	}
}

func TestManagerResolve(t *testing.T) {
	dir := t.TempDir()
	m := NewManager()
	if err := m.AddDir(dir); err != nil {
		t.Fatalf("AddDir: %v", err)
	}
	abs := m.Dirs()[0]

	key, ok := m.Resolve(filepath.Join(abs, "models", "cube.yaml"))
	if !ok || key != "models/cube.yaml" {
		t.Errorf("expected models/cube.yaml, got %q (%t)", key, ok)
	}
	if _, ok := m.Resolve(filepath.Join(filepath.Dir(abs), "elsewhere.yaml")); ok {
		t.Error("expected a path outside the roots not to resolve")
	}
}

func TestManagerClose(t *testing.T) {
	m := NewManager()
	m.AddFS("mem", fstest.MapFS{"a": {Data: []byte("a")}})
	if _, err := m.Load("a"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	m.Close()
	if m.Cache().Len() != 0 {
		t.Errorf("expected empty cache, got %d", m.Cache().Len())
	}
	if _, err := m.Load("a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after Close, got %v", err)
	}
}

func TestCache(t *testing.T) {
	c := NewCache()
	c.Set("k", []byte("v"))

	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss")
	}
	if v, ok := c.Get("k"); !ok || string(v) != "v" {
		t.Errorf("expected v, got %q (%t)", v, ok)
	}
	c.Delete("k")
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d", c.Len())
	}
	c.Clear()
	if hits, misses := c.Stats(); hits != 0 || misses != 0 {
		t.Errorf("expected stats reset, got %d/%d", hits, misses)
	}
}

func waitChange(t *testing.T, w *Watcher, path string) Change {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case c, ok := <-w.Changes():
			if !ok {
				t.Fatal("changes channel closed")
			}
			if c.Path == path {
				return c
			}
		case <-timeout:
			t.Fatalf("timed out waiting for change to %s", path)
		}
	}
}

func TestWatcher_InvalidatesOnWrite(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "models/m.yaml", "v1")

	m := NewManager()
	if err := m.AddDir(dir); err != nil {
		t.Fatalf("AddDir: %v", err)
	}
	if _, err := m.Load("models/m.yaml"); err != nil {
		t.Fatalf("Load: %v", err)
	}

	w, err := NewWatcher(m)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	writeFile(t, dir, "models/m.yaml", "v2")
	c := waitChange(t, w, "models/m.yaml")
	if c.Kind != KindDescriptor {
		t.Errorf("expected descriptor kind, got %v", c.Kind)
	}

	// A truncate and a write can arrive as separate events.
	for {
		data, err := m.Load("models/m.yaml")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if string(data) == "v2" {
			return
		}
		waitChange(t, w, "models/m.yaml")
	}
}

func TestWatcher_NewDirectory(t *testing.T) {
	dir := t.TempDir()
	m := NewManager()
	if err := m.AddDir(dir); err != nil {
		t.Fatalf("AddDir: %v", err)
	}
	w, err := NewWatcher(m)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := os.Mkdir(filepath.Join(dir, "meshes"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	// The new directory is picked up asynchronously.
	deadline := time.Now().Add(5 * time.Second)
	for {
		writeFile(t, dir, "meshes/cube.obj", "v 0 0 0")
		select {
		case c := <-w.Changes():
			if c.Path == "meshes/cube.obj" {
				if c.Kind != KindMesh {
					t.Errorf("expected mesh kind, got %v", c.Kind)
				}
				return
			}
		case <-time.After(100 * time.Millisecond):
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for change in new directory")
		}
	}
}

func TestWatcher_Close(t *testing.T) {
	m := NewManager()
	w, err := NewWatcher(m)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("expected second Close to be a no-op, got %v", err)
	}
	if _, ok := <-w.Changes(); ok {
		t.Error("expected changes channel closed")
	}
	if err := w.AddDir(t.TempDir()); !errors.Is(err, ErrWatcherClosed) {
		t.Errorf("expected ErrWatcherClosed, got %v", err)
	}
}
