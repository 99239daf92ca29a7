package renderer

import "strings"

// DirtyMask records which parts of the selection must be resolved again
// before the next draw.
type DirtyMask uint8

// Dirty bits, in resolution order.
const (
	DirtyTechnique DirtyMask = 1 << iota
	DirtyModel
	DirtyPart
	DirtyChunk
	DirtyPrimitiveMode
	DirtyFramebuffer
	DirtyViewport

	DirtyAll = DirtyTechnique | DirtyModel | DirtyPart | DirtyChunk | DirtyPrimitiveMode | DirtyFramebuffer | DirtyViewport
)

// Bits invalidated along with each selection dimension. A model bit means the
// default attribute values are applied again.
var dependents = [...]struct {
	bit  DirtyMask
	deps DirtyMask
}{
	{DirtyTechnique, DirtyModel | DirtyPart | DirtyChunk | DirtyPrimitiveMode},
	{DirtyModel, DirtyPart | DirtyChunk | DirtyPrimitiveMode},
	{DirtyPart, DirtyModel | DirtyChunk | DirtyPrimitiveMode},
	{DirtyChunk, DirtyModel | DirtyPrimitiveMode},
	{DirtyPrimitiveMode, DirtyModel},
	{DirtyFramebuffer, DirtyViewport},
}

// Closure returns m with the dependents of each of its bits set. The table
// is already closed, so one pass is enough.
func (m DirtyMask) Closure() DirtyMask {
	out := m
	for _, d := range dependents {
		if m&d.bit != 0 {
			out |= d.deps
		}
	}
	return out
}

// Has reports whether every bit of b is set.
func (m DirtyMask) Has(b DirtyMask) bool { return m&b == b }

func (m DirtyMask) String() string {
	if m == 0 {
		return "clean"
	}
	names := []string{"technique", "model", "part", "chunk", "primitiveMode", "framebuffer", "viewport"}
	var parts []string
	for i, name := range names {
		if m&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}
