// Package debug provides debug visualization and capture utilities.
package debug

import (
	"github.com/Faultbox/modelgl/internal/engine/model"
	"github.com/Faultbox/modelgl/pkg/gltype"
)

// BBoxVertexCount is the number of vertices of a bbox wireframe (12 edges × 2).
const BBoxVertexCount = 24

// DefaultBBoxPadding expands the box so its edges do not z-fight the model.
const DefaultBBoxPadding = 0.01

// BBoxWireframeVertices creates line vertices for a wireframe bounding box,
// format: [x, y, z] per vertex.
func BBoxWireframeVertices(lo, hi [3]float32) []float32 {
	minX, minY, minZ := lo[0], lo[1], lo[2]
	maxX, maxY, maxZ := hi[0], hi[1], hi[2]
	return []float32{
		// Bottom face (4 edges)
		minX, minY, minZ, maxX, minY, minZ,
		maxX, minY, minZ, maxX, minY, maxZ,
		maxX, minY, maxZ, minX, minY, maxZ,
		minX, minY, maxZ, minX, minY, minZ,
		// Top face (4 edges)
		minX, maxY, minZ, maxX, maxY, minZ,
		maxX, maxY, minZ, maxX, maxY, maxZ,
		maxX, maxY, maxZ, minX, maxY, maxZ,
		minX, maxY, maxZ, minX, maxY, minZ,
		// Vertical edges (4 edges)
		minX, minY, minZ, minX, maxY, minZ,
		maxX, minY, minZ, maxX, maxY, minZ,
		maxX, minY, maxZ, maxX, maxY, maxZ,
		minX, minY, maxZ, minX, maxY, maxZ,
	}
}

// BBoxShorthand builds a line model of b grown by padding on all sides,
// drawn with a constant color.
func BBoxShorthand(b model.Bounds, padding float32, color [4]float32) *model.Shorthand {
	lo, hi := b.Min, b.Max
	for i := range 3 {
		if lo[i] > hi[i] {
			lo[i], hi[i] = hi[i], lo[i]
		}
		lo[i] -= padding
		hi[i] += padding
	}

	verts := BBoxWireframeVertices(lo, hi)
	data := make([]float64, len(verts))
	for i, v := range verts {
		data[i] = float64(v)
	}

	return &model.Shorthand{
		Vertices: map[string]model.ShorthandVertex{
			"position": {Data: data},
			"color":    {Type: gltype.Float32, Value: color[:]},
		},
		Primitives: model.Primitives("lines"),
	}
}
