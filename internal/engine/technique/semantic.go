package technique

import (
	"strconv"
	"strings"
	"unicode"
)

// SemanticResolver infers the semantic of program inputs from their names.
type SemanticResolver interface {
	// Attribute returns the semantic and attribute index of a vertex input.
	Attribute(name string) (semantic string, index int)
	// Global returns the semantic of a uniform.
	Global(name string) string
}

// NamingConvention resolves semantics from input names:
//
//	aPosition, a_position, position -> POSITION
//	aTexCoord1                       -> TEXCOORD, index 1
//	uModelViewProjectionMatrix       -> MODELVIEWPROJECTIONMATRIX
//
// A one-letter prefix is stripped when the next character is an uppercase
// letter, or an underscore followed by at least one more character.
type NamingConvention struct {
	AttributePrefix byte
	UniformPrefix   byte
}

// DefaultNaming uses the "a" and "u" prefixes.
var DefaultNaming = NamingConvention{AttributePrefix: 'a', UniformPrefix: 'u'}

// Attribute implements SemanticResolver. A trailing digit run is the index.
func (c NamingConvention) Attribute(name string) (string, int) {
	base := strings.TrimRightFunc(name, func(r rune) bool { return r >= '0' && r <= '9' })
	index := 0
	if digits := name[len(base):]; digits != "" {
		if n, err := strconv.Atoi(digits); err == nil {
			index = n
		}
	}
	return strings.ToUpper(stripPrefix(base, c.prefix(c.AttributePrefix, 'a'))), index
}

// Global implements SemanticResolver.
func (c NamingConvention) Global(name string) string {
	return strings.ToUpper(stripPrefix(name, c.prefix(c.UniformPrefix, 'u')))
}

func (c NamingConvention) prefix(p, def byte) byte {
	if p == 0 {
		return def
	}
	return p
}

func stripPrefix(name string, prefix byte) string {
	if len(name) < 2 || name[0] != prefix {
		return name
	}
	switch next := rune(name[1]); {
	case next == '_' && len(name) > 2:
		return name[2:]
	case unicode.IsUpper(next):
		return name[1:]
	}
	return name
}
