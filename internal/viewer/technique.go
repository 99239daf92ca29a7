package viewer

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/modelgl/internal/engine/glctx"
	"github.com/Faultbox/modelgl/internal/engine/technique"
)

const vertexShader = `#version 410 core

in vec3 aPosition;
in vec3 aNormal;
in vec4 aColor;
in vec2 aTexCoord;

uniform mat4 uModelViewProjectionMatrix;
uniform mat3 uNormalMatrix;

out vec3 vNormal;
out vec4 vColor;
out vec2 vTexCoord;

void main() {
    vNormal = uNormalMatrix * aNormal;
    vColor = aColor;
    vTexCoord = aTexCoord;
    gl_Position = uModelViewProjectionMatrix * vec4(aPosition, 1.0);
}
`

const fragmentShader = `#version 410 core

in vec3 vNormal;
in vec4 vColor;
in vec2 vTexCoord;

uniform vec3 uLightDirection;
uniform float uAmbient;
uniform sampler2D uTexture;
uniform float uTextureMix;

out vec4 FragColor;

void main() {
    float diffuse = 1.0;
    if (length(vNormal) > 0.0) {
        diffuse = max(dot(normalize(vNormal), -normalize(uLightDirection)), 0.0);
    }
    vec4 base = mix(vColor, vColor * texture(uTexture, vTexCoord), uTextureMix);
    FragColor = vec4(base.rgb * (uAmbient + (1.0 - uAmbient) * diffuse), base.a);
}
`

// Attribute locations bound before linking.
var attributeLocations = map[string]uint32{
	"aPosition": 0,
	"aNormal":   1,
	"aColor":    2,
	"aTexCoord": 3,
}

// Default light, in view space.
var defaultLightDirection = mgl32.Vec3{-0.4, -0.6, -1}

// NewTechnique compiles the viewer's shading technique. Models without a
// color stream draw light grey; models without normals draw unlit.
func NewTechnique(ctx glctx.Context, name string) (*technique.Technique, error) {
	return technique.NewFromSource(ctx, technique.SourceDescriptor{
		Name:       name,
		Vertex:     vertexShader,
		Fragment:   fragmentShader,
		Attributes: attributeLocations,
		Uniforms: map[string]any{
			"uTexture":    0,
			"uTextureMix": float32(0),
		},
		VertexStreams: map[string]technique.VertexStreamDecl{
			"aNormal": technique.DeclareValue(0, 0, 0, 0),
			"aColor":  technique.DeclareValue(0.8, 0.8, 0.8, 1),
		},
		Globals: map[string]technique.GlobalDecl{
			"uLightDirection": {Value: defaultLightDirection},
			"uAmbient":        {Value: float32(0.25)},
		},
	}, technique.Options{})
}
