package shader

import (
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/modelgl/internal/engine/glctx"
	"github.com/Faultbox/modelgl/internal/engine/glctx/glctxtest"
)

func newTestProgram(t *testing.T) (*glctxtest.Recorder, *Program) {
	t.Helper()
	rec := glctxtest.New()
	rec.Inputs = glctxtest.ProgramInputs{
		Attributes: []glctx.ActiveInfo{
			{Name: "aPosition", Type: glctx.FloatVec3},
			{Name: "aNormal", Type: glctx.FloatVec3},
		},
		Uniforms: []glctx.ActiveInfo{
			{Name: "uModelViewProjection", Type: glctx.FloatMat4},
			{Name: "uColor", Type: glctx.FloatVec4, Location: 1},
			{Name: "uTexture", Type: glctx.Sampler2D, Location: 2},
			{Name: "uScale", Type: glctx.Float, Location: 3},
		},
	}
	p, err := CompileProgram(rec, Source{
		Vertex:     "vs",
		Fragment:   "fs",
		Attributes: map[string]uint32{"aNormal": 5},
	})
	if err != nil {
		t.Fatalf("CompileProgram failed: %v", err)
	}
	return rec, p
}

func TestCompileProgramInputs(t *testing.T) {
	_, p := newTestProgram(t)

	names := p.AttributeNames()
	if len(names) != 2 || names[0] != "aNormal" || names[1] != "aPosition" {
		t.Errorf("expected sorted attribute names, got %v", names)
	}
	indices := p.AttributeIndices()
	if indices["aNormal"] != 5 {
		t.Errorf("expected aNormal bound at 5, got %d", indices["aNormal"])
	}
	if p.Location("uColor") != 1 {
		t.Errorf("expected uColor at 1, got %d", p.Location("uColor"))
	}
	if p.Location("uMissing") != -1 {
		t.Errorf("expected -1 for a missing uniform, got %d", p.Location("uMissing"))
	}
}

func TestCompileProgramFailure(t *testing.T) {
	rec := glctxtest.New()
	rec.FailCompile = "0:1: syntax error"

	_, err := CompileProgram(rec, Source{Vertex: "vs", Fragment: "fs"})
	if err == nil {
		t.Fatal("expected compile error")
	}
	if !strings.Contains(err.Error(), "syntax error") {
		t.Errorf("expected info log in error, got %v", err)
	}
}

func TestSetUniformsDispatch(t *testing.T) {
	rec, p := newTestProgram(t)
	p.Bind()
	rec.Reset()

	err := p.SetUniforms(map[string]any{
		"uModelViewProjection": mgl32.Ident4(),
		"uColor":               mgl32.Vec4{1, 0, 0, 1},
		"uTexture":             3,
		"uScale":               2.5,
		"uUnknown":             1,
	})
	if err != nil {
		t.Fatalf("SetUniforms failed: %v", err)
	}

	if !rec.Has("UniformMatrixfv(0, 4)") {
		t.Errorf("expected matrix upload, got %v", rec.Calls)
	}
	if !rec.Has("Uniformfv(1, 4, [1 0 0 1])") {
		t.Errorf("expected vec4 upload, got %v", rec.Calls)
	}
	if !rec.Has("Uniformiv(2, 1, [3])") {
		t.Errorf("expected sampler upload, got %v", rec.Calls)
	}
	if !rec.Has("Uniformfv(3, 1, [2.5])") {
		t.Errorf("expected float upload, got %v", rec.Calls)
	}
	if len(rec.Calls) != 4 {
		t.Errorf("expected 4 uniform calls, got %d", len(rec.Calls))
	}
}

func TestSetUniformErrors(t *testing.T) {
	_, p := newTestProgram(t)
	p.Bind()

	err := p.SetUniforms(map[string]any{
		"uColor": mgl32.Vec2{1, 1},
		"uScale": "big",
	})
	if err == nil {
		t.Fatal("expected errors")
	}
	msg := err.Error()
	if !strings.Contains(msg, "uColor") || !strings.Contains(msg, "uScale") {
		t.Errorf("expected both uniforms reported, got %v", msg)
	}
}

func TestUniformValues(t *testing.T) {
	_, p := newTestProgram(t)
	p.Bind()
	if err := p.SetUniform("uColor", []float32{0.5, 0.5, 0.5, 1}); err != nil {
		t.Fatalf("SetUniform failed: %v", err)
	}

	values := p.UniformValues()
	color, ok := values["uColor"].([]float32)
	if !ok || len(color) != 4 || color[0] != 0.5 {
		t.Errorf("expected uColor [0.5 0.5 0.5 1], got %v", values["uColor"])
	}
	if _, ok := values["uScale"].(float32); !ok {
		t.Errorf("expected float32 scalar for uScale, got %T", values["uScale"])
	}
	if _, ok := values["uTexture"].(int32); !ok {
		t.Errorf("expected int32 scalar for uTexture, got %T", values["uTexture"])
	}
}

func TestWrapAndDestroy(t *testing.T) {
	rec, p := newTestProgram(t)
	if Wrap(rec, p.Handle()) != p {
		t.Error("expected Wrap to return the registered program")
	}
	p.Destroy()
	if p.IsValid() {
		t.Error("expected program invalid after Destroy")
	}
	if rec.Count("DeleteProgram") != 1 {
		t.Errorf("expected one DeleteProgram, got %d", rec.Count("DeleteProgram"))
	}
}
