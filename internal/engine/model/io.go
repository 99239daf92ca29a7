package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/modelgl/pkg/formats"
	"github.com/Faultbox/modelgl/pkg/gltype"
)

// ErrUnsupportedFile is returned by Open for files that are neither
// descriptors nor meshes.
var ErrUnsupportedFile = errors.New("model: unsupported file")

// Format is a descriptor file encoding.
type Format string

// Supported formats.
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the format from a file extension, defaulting to YAML.
func FormatFromPath(p string) Format {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".json":
		return FormatJSON
	case ".toml":
		return FormatTOML
	default:
		return FormatYAML
	}
}

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatYAML, FormatJSON, FormatTOML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown descriptor format %q", s)
}

// Provider loads the bytes of a named resource.
type Provider interface {
	Load(path string) ([]byte, error)
}

// FSProvider serves resources from a file system.
type FSProvider struct {
	FS fs.FS
}

// Load implements Provider.
func (p FSProvider) Load(name string) ([]byte, error) {
	return fs.ReadFile(p.FS, name)
}

func unmarshal(data []byte, format Format, v any) error {
	switch format {
	case FormatJSON:
		return json.Unmarshal(data, v)
	case FormatTOML:
		return toml.Unmarshal(data, v)
	case FormatYAML, "":
		return yaml.Unmarshal(data, v)
	}
	return fmt.Errorf("unknown descriptor format %q", format)
}

// Decode parses a full descriptor or a shorthand document (one with a
// top-level "vertices" key) and returns it normalized.
func Decode(data []byte, format Format) (*Descriptor, error) {
	var probe map[string]any
	if err := unmarshal(data, format, &probe); err != nil {
		return nil, fmt.Errorf("decode %s descriptor: %w", format, err)
	}

	if _, ok := probe["vertices"]; ok {
		var s Shorthand
		if err := unmarshal(data, format, &s); err != nil {
			return nil, fmt.Errorf("decode %s shorthand: %w", format, err)
		}
		return ExpandShorthand(&s)
	}

	var d Descriptor
	if err := unmarshal(data, format, &d); err != nil {
		return nil, fmt.Errorf("decode %s descriptor: %w", format, err)
	}
	return Normalize(&d), nil
}

// Load reads and decodes a descriptor. Buffer sources are left unresolved.
func Load(r io.Reader, format Format) (*Descriptor, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read descriptor: %w", err)
	}
	return Decode(data, format)
}

// LoadFile loads the descriptor at p through provider and resolves every
// buffer source relative to the descriptor's directory. Source files hold
// raw elements of the buffer type in host byte order.
func LoadFile(provider Provider, p string) (*Descriptor, error) {
	data, err := provider.Load(p)
	if err != nil {
		return nil, fmt.Errorf("load descriptor %s: %w", p, err)
	}
	d, err := Decode(data, FormatFromPath(p))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	if err := ResolveSources(provider, d, path.Dir(filepath.ToSlash(p))); err != nil {
		return d, err
	}
	return d, nil
}

// Open loads a descriptor file (.yaml, .yml, .json, .toml) or imports a
// Wavefront OBJ mesh (.obj) through provider.
func Open(provider Provider, p string) (*Descriptor, error) {
	switch strings.ToLower(path.Ext(p)) {
	case ".yaml", ".yml", ".json", ".toml":
		return LoadFile(provider, p)
	case ".obj":
		data, err := provider.Load(p)
		if err != nil {
			return nil, fmt.Errorf("load mesh %s: %w", p, err)
		}
		obj, err := formats.ParseOBJ(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		d, err := FromOBJ(obj)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		return d, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, p)
}

// ResolveSources loads every buffer source of d through provider into the
// buffer's typed array.
func ResolveSources(provider Provider, d *Descriptor, dir string) error {
	var errs error
	resolve := func(kind string, buffers map[string]*Buffer) {
		for _, name := range sortedKeys(buffers) {
			b := buffers[name]
			if b == nil || b.Source == "" {
				continue
			}
			src := b.Source
			if !path.IsAbs(src) && dir != "" && dir != "." {
				src = path.Join(dir, src)
			}
			raw, err := provider.Load(src)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s buffer %q: %w", kind, name, err))
				continue
			}
			if size := b.Type.Size(); size > 0 && len(raw)%size != 0 {
				errs = multierr.Append(errs, fmt.Errorf("%s buffer %q: %d bytes is not a multiple of %s", kind, name, len(raw), b.Type))
				continue
			}
			b.TypedArray = &gltype.Array{Type: b.Type, Data: raw}
			b.UntypedArray = nil
		}
	}
	resolve("vertex", d.Data.VertexBuffers)
	resolve("index", d.Data.IndexBuffers)
	return errs
}

// Marshal encodes d in format. Typed arrays and native buffers are not written.
func Marshal(d *Descriptor, format Format) ([]byte, error) {
	if d == nil {
		return nil, ErrNoDescriptor
	}
	switch format {
	case FormatJSON:
		return json.MarshalIndent(d, "", "  ")
	case FormatTOML:
		var buf bytes.Buffer
		enc := toml.NewEncoder(&buf)
		enc.SetIndentTables(true)
		if err := enc.Encode(d); err != nil {
			return nil, fmt.Errorf("encode toml descriptor: %w", err)
		}
		return buf.Bytes(), nil
	case FormatYAML, "":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(d); err != nil {
			return nil, fmt.Errorf("encode yaml descriptor: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unknown descriptor format %q", format)
}
