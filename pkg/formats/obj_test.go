package formats

import (
	"errors"
	"testing"
)

const cubeFace = `# quad
mtllib scene.mtl
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 0 1
o front
usemtl red
f 1/1/1 2/2/1 3/3/1 4/4/1
g back
usemtl blue
f -4//1 -2//1 -3//1
`

func TestParseOBJ(t *testing.T) {
	obj, err := ParseOBJ([]byte(cubeFace))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if obj.MaterialLib != "scene.mtl" {
		t.Errorf("expected material lib 'scene.mtl', got %q", obj.MaterialLib)
	}
	if len(obj.Positions) != 4 || len(obj.TexCoords) != 4 || len(obj.Normals) != 1 {
		t.Fatalf("expected 4/4/1 elements, got %d/%d/%d", len(obj.Positions), len(obj.TexCoords), len(obj.Normals))
	}
	if len(obj.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(obj.Groups))
	}

	front := obj.Groups[0]
	if front.Name != "front" || len(front.Faces) != 1 {
		t.Fatalf("unexpected front group: %+v", front)
	}
	if front.Faces[0].Material != "red" {
		t.Errorf("expected material 'red', got %q", front.Faces[0].Material)
	}
	if got := front.Faces[0].Corners[2]; got != (OBJIndex{Position: 2, TexCoord: 2, Normal: 0}) {
		t.Errorf("unexpected corner: %+v", got)
	}

	back := obj.Groups[1].Faces[0]
	if back.Material != "blue" {
		t.Errorf("expected material 'blue', got %q", back.Material)
	}
	if got := back.Corners[0]; got != (OBJIndex{Position: 0, TexCoord: -1, Normal: 0}) {
		t.Errorf("unexpected negative-index corner: %+v", got)
	}

	if n := obj.TriangleCount(); n != 3 {
		t.Errorf("expected 3 triangles, got %d", n)
	}
}

func TestParseOBJ_DefaultGroup(t *testing.T) {
	obj, err := ParseOBJ([]byte("v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(obj.Groups) != 1 || obj.Groups[0].Name != "default" {
		t.Fatalf("expected one default group, got %+v", obj.Groups)
	}
}

func TestParseOBJ_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{"short vertex", "v 1 2\n", ErrInvalidOBJVertex},
		{"bad number", "v 1 x 2\n", ErrInvalidOBJVertex},
		{"two corners", "v 0 0 0\nf 1 1\n", ErrInvalidOBJFace},
		{"zero index", "v 0 0 0\nf 0 1 1\n", ErrInvalidOBJFace},
		{"out of range", "v 0 0 0\nf 1 2 3\n", ErrOBJIndexRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOBJ([]byte(tt.data))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
