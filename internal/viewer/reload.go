package viewer

import (
	"path"
	"strings"
	"time"

	"github.com/Faultbox/modelgl/internal/assets"
)

// reloadTracker collects asset changes that affect the displayed model and
// reports when the burst has settled for the debounce interval.
type reloadTracker struct {
	modelPath string
	debounce  time.Duration
	pending   bool
	last      time.Time
}

func newReloadTracker(modelPath string, debounce time.Duration) *reloadTracker {
	return &reloadTracker{modelPath: assets.Clean(modelPath), debounce: debounce}
}

// affects reports whether c can change the displayed model: the model file
// itself, or a mesh or raw buffer next to or below it.
func (t *reloadTracker) affects(c assets.Change) bool {
	if c.Path == t.modelPath {
		return true
	}
	switch c.Kind {
	case assets.KindMesh, assets.KindBinary:
	default:
		return false
	}
	dir := path.Dir(t.modelPath)
	return dir == "." || strings.HasPrefix(c.Path, dir+"/")
}

// Notify records c at now and reports whether it was relevant.
func (t *reloadTracker) Notify(c assets.Change, now time.Time) bool {
	if !t.affects(c) {
		return false
	}
	t.pending = true
	t.last = now
	return true
}

// Due reports whether a reload should run now and clears the pending state.
func (t *reloadTracker) Due(now time.Time) bool {
	if !t.pending || now.Sub(t.last) < t.debounce {
		return false
	}
	t.pending = false
	return true
}
