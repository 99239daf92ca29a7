package glctx

import "fmt"

// Kind identifies a native object namespace.
type Kind int

// Object kinds.
const (
	KindBuffer Kind = iota
	KindProgram
	KindTexture
	KindFramebuffer
	KindRenderbuffer
)

func (k Kind) String() string {
	switch k {
	case KindBuffer:
		return "buffer"
	case KindProgram:
		return "program"
	case KindTexture:
		return "texture"
	case KindFramebuffer:
		return "framebuffer"
	case KindRenderbuffer:
		return "renderbuffer"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Object is the identity of a native object.
type Object struct {
	Kind   Kind
	Handle uint32
}

// Registry maps native objects to the wrapper that owns them.
// Re-wrapping a handle returns the registered wrapper instead of a second one.
type Registry struct {
	wrappers map[Object]any
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{wrappers: make(map[Object]any)}
}

// Register records w as the wrapper of obj, replacing any previous one.
func (r *Registry) Register(obj Object, w any) {
	r.wrappers[obj] = w
}

// Lookup returns the wrapper registered for obj.
func (r *Registry) Lookup(obj Object) (any, bool) {
	w, ok := r.wrappers[obj]
	return w, ok
}

// Forget removes obj from the registry.
func (r *Registry) Forget(obj Object) {
	delete(r.wrappers, obj)
}

// Len returns the number of registered objects.
func (r *Registry) Len() int {
	return len(r.wrappers)
}

// Wrap returns the wrapper registered for obj if it has type T, or the result of
// create (registered for obj) otherwise.
func Wrap[T any](r *Registry, obj Object, create func() T) T {
	if w, ok := r.Lookup(obj); ok {
		if t, ok := w.(T); ok {
			return t
		}
	}
	t := create()
	r.Register(obj, t)
	return t
}
