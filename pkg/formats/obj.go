package formats

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// OBJ parsing errors.
var (
	ErrInvalidOBJVertex = errors.New("invalid OBJ vertex")
	ErrInvalidOBJFace   = errors.New("invalid OBJ face")
	ErrOBJIndexRange    = errors.New("OBJ index out of range")
)

// OBJ is a parsed Wavefront OBJ file.
type OBJ struct {
	MaterialLib string
	Positions   [][3]float32
	Normals     [][3]float32
	TexCoords   [][2]float32
	Groups      []OBJGroup
}

// OBJGroup is an "o" or "g" section. Faces before the first section land in
// a group named "default".
type OBJGroup struct {
	Name  string
	Faces []OBJFace
}

// OBJFace is a polygon with at least three corners.
type OBJFace struct {
	Corners  []OBJIndex
	Material string
}

// OBJIndex holds zero-based indices into the position, texcoord and normal
// lists. Missing texcoord or normal indices are -1.
type OBJIndex struct {
	Position int
	TexCoord int
	Normal   int
}

// ParseOBJ parses OBJ text. Unsupported statements are ignored.
func ParseOBJ(data []byte) (*OBJ, error) {
	obj := &OBJ{}
	material := ""
	var current *OBJGroup

	group := func(name string) {
		obj.Groups = append(obj.Groups, OBJGroup{Name: name})
		current = &obj.Groups[len(obj.Groups)-1]
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		switch fields[0] {
		case "v":
			v, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			obj.Positions = append(obj.Positions, [3]float32{v[0], v[1], v[2]})
		case "vn":
			v, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			obj.Normals = append(obj.Normals, [3]float32{v[0], v[1], v[2]})
		case "vt":
			v, err := parseFloats(fields[1:], 2)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			obj.TexCoords = append(obj.TexCoords, [2]float32{v[0], v[1]})
		case "o", "g":
			name := "default"
			if len(fields) > 1 {
				name = strings.Join(fields[1:], " ")
			}
			group(name)
		case "usemtl":
			if len(fields) > 1 {
				material = fields[1]
			}
		case "mtllib":
			if len(fields) > 1 {
				obj.MaterialLib = fields[1]
			}
		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: %w: %d corners", line, ErrInvalidOBJFace, len(fields)-1)
			}
			face := OBJFace{Material: material, Corners: make([]OBJIndex, 0, len(fields)-1)}
			for _, f := range fields[1:] {
				idx, err := obj.parseIndex(f)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", line, err)
				}
				face.Corners = append(face.Corners, idx)
			}
			if current == nil {
				group("default")
			}
			current.Faces = append(current.Faces, face)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading OBJ data: %w", err)
	}
	return obj, nil
}

// ParseOBJFile parses the OBJ file at path.
func ParseOBJFile(path string) (*OBJ, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading OBJ file: %w", err)
	}
	return ParseOBJ(data)
}

func parseFloats(fields []string, n int) ([]float32, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("%w: expected %d components, got %d", ErrInvalidOBJVertex, n, len(fields))
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidOBJVertex, err)
		}
		out[i] = float32(f)
	}
	return out, nil
}

// parseIndex parses "v", "v/t", "v//n" or "v/t/n". Negative indices count
// back from the end of the lists read so far.
func (obj *OBJ) parseIndex(s string) (OBJIndex, error) {
	parts := strings.Split(s, "/")
	idx := OBJIndex{TexCoord: -1, Normal: -1}
	lens := [3]int{len(obj.Positions), len(obj.TexCoords), len(obj.Normals)}
	dst := [3]*int{&idx.Position, &idx.TexCoord, &idx.Normal}

	if len(parts) > 3 || parts[0] == "" {
		return idx, fmt.Errorf("%w: %q", ErrInvalidOBJFace, s)
	}
	for i, p := range parts {
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil || n == 0 {
			return idx, fmt.Errorf("%w: %q", ErrInvalidOBJFace, s)
		}
		if n < 0 {
			n = lens[i] + n
		} else {
			n--
		}
		if n < 0 || n >= lens[i] {
			return idx, fmt.Errorf("%w: %q", ErrOBJIndexRange, s)
		}
		*dst[i] = n
	}
	return idx, nil
}

// TriangleCount returns the number of triangles the faces fan into.
func (obj *OBJ) TriangleCount() int {
	n := 0
	for _, g := range obj.Groups {
		for _, f := range g.Faces {
			n += len(f.Corners) - 2
		}
	}
	return n
}
