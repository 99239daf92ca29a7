// Package formats provides parsers for mesh interchange formats.
//
// Wavefront OBJ is implemented in obj.go.
package formats
