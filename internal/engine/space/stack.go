// Package space provides the matrix and viewport stacks that feed model,
// view and projection transforms into technique globals.
package space

import (
	"github.com/go-gl/mathgl/mgl32"
)

// MatrixStack is a stack of 4x4 matrices whose top is the current transform.
// The stack is never empty.
type MatrixStack struct {
	stack []mgl32.Mat4
}

// NewMatrixStack creates a stack holding the identity matrix.
func NewMatrixStack() *MatrixStack {
	return &MatrixStack{stack: []mgl32.Mat4{mgl32.Ident4()}}
}

// Size returns the stack depth.
func (s *MatrixStack) Size() int { return len(s.stack) }

// Top returns the current matrix.
func (s *MatrixStack) Top() mgl32.Mat4 { return s.stack[len(s.stack)-1] }

// TopInverse returns the inverse of the current matrix.
func (s *MatrixStack) TopInverse() mgl32.Mat4 { return s.Top().Inv() }

// TopTranspose returns the transpose of the current matrix.
func (s *MatrixStack) TopTranspose() mgl32.Mat4 { return s.Top().Transpose() }

// Reset leaves only the identity matrix on the stack.
func (s *MatrixStack) Reset() {
	s.stack = s.stack[:1]
	s.stack[0] = mgl32.Ident4()
}

// Push duplicates the current matrix.
func (s *MatrixStack) Push() {
	s.stack = append(s.stack, s.Top())
}

// Pop discards the current matrix. The bottom matrix is never popped.
func (s *MatrixStack) Pop() {
	if len(s.stack) > 1 {
		s.stack = s.stack[:len(s.stack)-1]
	}
}

// Load replaces the current matrix.
func (s *MatrixStack) Load(m mgl32.Mat4) { s.stack[len(s.stack)-1] = m }

// LoadIdentity replaces the current matrix with identity.
func (s *MatrixStack) LoadIdentity() { s.Load(mgl32.Ident4()) }

// Multiply post-multiplies the current matrix by m.
func (s *MatrixStack) Multiply(m mgl32.Mat4) { s.Load(s.Top().Mul4(m)) }

// Translate post-multiplies by a translation.
func (s *MatrixStack) Translate(x, y, z float32) { s.Multiply(mgl32.Translate3D(x, y, z)) }

// Scale post-multiplies by a scale.
func (s *MatrixStack) Scale(x, y, z float32) { s.Multiply(mgl32.Scale3D(x, y, z)) }

// Rotate post-multiplies by a rotation of angle radians around axis.
func (s *MatrixStack) Rotate(angle float32, axis mgl32.Vec3) {
	s.Multiply(mgl32.HomogRotate3D(angle, axis.Normalize()))
}

// Perspective loads a perspective projection. fovY is in radians.
func (s *MatrixStack) Perspective(fovY, aspect, near, far float32) {
	s.Load(mgl32.Perspective(fovY, aspect, near, far))
}

// Ortho loads an orthographic projection.
func (s *MatrixStack) Ortho(left, right, bottom, top, near, far float32) {
	s.Load(mgl32.Ortho(left, right, bottom, top, near, far))
}

// LookAt loads a view matrix.
func (s *MatrixStack) LookAt(eye, center, up mgl32.Vec3) {
	s.Load(mgl32.LookAtV(eye, center, up))
}

// TransformStack groups model, view and projection stacks and derives the
// combined matrices techniques commonly bind as globals.
type TransformStack struct {
	Model      *MatrixStack
	View       *MatrixStack
	Projection *MatrixStack
}

// NewTransformStack creates three identity stacks.
func NewTransformStack() *TransformStack {
	return &TransformStack{
		Model:      NewMatrixStack(),
		View:       NewMatrixStack(),
		Projection: NewMatrixStack(),
	}
}

// Reset resets all three stacks.
func (t *TransformStack) Reset() {
	t.Model.Reset()
	t.View.Reset()
	t.Projection.Reset()
}

// ModelView returns View * Model.
func (t *TransformStack) ModelView() mgl32.Mat4 {
	return t.View.Top().Mul4(t.Model.Top())
}

// ViewProjection returns Projection * View.
func (t *TransformStack) ViewProjection() mgl32.Mat4 {
	return t.Projection.Top().Mul4(t.View.Top())
}

// ModelViewProjection returns Projection * View * Model.
func (t *TransformStack) ModelViewProjection() mgl32.Mat4 {
	return t.Projection.Top().Mul4(t.ModelView())
}

// ModelViewProjectionInverse returns the inverse of ModelViewProjection.
func (t *TransformStack) ModelViewProjectionInverse() mgl32.Mat4 {
	return t.ModelViewProjection().Inv()
}

// NormalMatrix returns the inverse transpose of the upper 3x3 of ModelView.
func (t *TransformStack) NormalMatrix() mgl32.Mat3 {
	return t.ModelView().Mat3().Inv().Transpose()
}

// ModelSpaceViewerPosition returns the eye position in model coordinates.
func (t *TransformStack) ModelSpaceViewerPosition() mgl32.Vec3 {
	return t.ModelView().Inv().Mul4x1(mgl32.Vec4{0, 0, 0, 1}).Vec3()
}

// Globals returns the derived matrices keyed by the semantics techniques
// resolve from uniform names such as uModelViewProjectionMatrix.
func (t *TransformStack) Globals() map[string]any {
	return map[string]any{
		"MODELVIEWPROJECTIONMATRIX": t.ModelViewProjection(),
		"MODELVIEWMATRIX":           t.ModelView(),
		"PROJECTIONMATRIX":          t.Projection.Top(),
		"VIEWMATRIX":                t.View.Top(),
		"MODELMATRIX":               t.Model.Top(),
		"NORMALMATRIX":              t.NormalMatrix(),
	}
}

// ViewportStack is a stack of viewport rectangles. The stack is never empty.
type ViewportStack struct {
	stack [][4]int32
}

// NewViewportStack creates a stack holding a 1x1 viewport.
func NewViewportStack() *ViewportStack {
	return &ViewportStack{stack: [][4]int32{{0, 0, 1, 1}}}
}

// Size returns the stack depth.
func (s *ViewportStack) Size() int { return len(s.stack) }

// Top returns the current viewport.
func (s *ViewportStack) Top() [4]int32 { return s.stack[len(s.stack)-1] }

// Push duplicates the current viewport.
func (s *ViewportStack) Push() { s.stack = append(s.stack, s.Top()) }

// Pop discards the current viewport. The bottom entry is never popped.
func (s *ViewportStack) Pop() {
	if len(s.stack) > 1 {
		s.stack = s.stack[:len(s.stack)-1]
	}
}

// Load replaces the current viewport.
func (s *ViewportStack) Load(x, y, width, height int32) {
	s.stack[len(s.stack)-1] = [4]int32{x, y, width, height}
}

// Aspect returns width / height of the current viewport.
func (s *ViewportStack) Aspect() float32 {
	vp := s.Top()
	if vp[3] == 0 {
		return 1
	}
	return float32(vp[2]) / float32(vp[3])
}
