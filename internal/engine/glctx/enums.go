package glctx

// Enum is an OpenGL enumeration or bitfield value.
type Enum uint32

// Buffer targets and usages.
const (
	ArrayBuffer        Enum = 0x8892
	ElementArrayBuffer Enum = 0x8893

	StreamDraw  Enum = 0x88E0
	StaticDraw  Enum = 0x88E4
	DynamicDraw Enum = 0x88E8
)

// Data types.
const (
	Byte          Enum = 0x1400
	UnsignedByte  Enum = 0x1401
	Short         Enum = 0x1402
	UnsignedShort Enum = 0x1403
	Int           Enum = 0x1404
	UnsignedInt   Enum = 0x1405
	Float         Enum = 0x1406
)

// Uniform types reported by active uniform queries.
const (
	FloatVec2   Enum = 0x8B50
	FloatVec3   Enum = 0x8B51
	FloatVec4   Enum = 0x8B52
	IntVec2     Enum = 0x8B53
	IntVec3     Enum = 0x8B54
	IntVec4     Enum = 0x8B55
	Bool        Enum = 0x8B56
	BoolVec2    Enum = 0x8B57
	BoolVec3    Enum = 0x8B58
	BoolVec4    Enum = 0x8B59
	FloatMat2   Enum = 0x8B5A
	FloatMat3   Enum = 0x8B5B
	FloatMat4   Enum = 0x8B5C
	Sampler2D   Enum = 0x8B5E
	SamplerCube Enum = 0x8B60
)

// Primitive modes.
const (
	Points        Enum = 0x0000
	Lines         Enum = 0x0001
	LineLoop      Enum = 0x0002
	LineStrip     Enum = 0x0003
	Triangles     Enum = 0x0004
	TriangleStrip Enum = 0x0005
	TriangleFan   Enum = 0x0006
)

// Capabilities.
const (
	DepthTest Enum = 0x0B71
	CullFace  Enum = 0x0B44
	Blend     Enum = 0x0BE2
)

// Clear bits.
const (
	DepthBufferBit   Enum = 0x00000100
	StencilBufferBit Enum = 0x00000400
	ColorBufferBit   Enum = 0x00004000
)

// Texture targets and parameters.
const (
	Texture2D      Enum = 0x0DE1
	TextureCubeMap Enum = 0x8513

	TextureMagFilter Enum = 0x2800
	TextureMinFilter Enum = 0x2801
	TextureWrapS     Enum = 0x2802
	TextureWrapT     Enum = 0x2803

	Nearest            Enum = 0x2600
	Linear             Enum = 0x2601
	LinearMipmapLinear Enum = 0x2703
	Repeat             Enum = 0x2901
	ClampToEdge        Enum = 0x812F
	RGBA               Enum = 0x1908
	RGBA8              Enum = 0x8058
	DepthComponent16   Enum = 0x81A5
	DepthComponent24   Enum = 0x81A6
	StencilIndex8      Enum = 0x8D48
	Depth24Stencil8    Enum = 0x88F0
)

// Framebuffer attachments and status.
const (
	ColorAttachment0       Enum = 0x8CE0
	DepthAttachment        Enum = 0x8D00
	StencilAttachment      Enum = 0x8D20
	DepthStencilAttachment Enum = 0x821A

	FramebufferComplete Enum = 0x8CD5
)
