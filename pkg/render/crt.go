package render

import (
	"github.com/hajimehoshi/ebiten/v2"
)

// MonitorType selects the CRT filter's phosphor/tint preset, matching the
// monitor type enum the composite fragment program's uniform block
// switches on (§4.8: Color, Grayscale, Amber, Green, Apple2, Futuristic).
type MonitorType int

const (
	MonitorColor MonitorType = iota
	MonitorGrayscale
	MonitorAmber
	MonitorGreen
	MonitorApple2
	MonitorFuturistic
)

func (m MonitorType) tint() (r, g, b float32) {
	switch m {
	case MonitorGrayscale:
		return 1, 1, 1
	case MonitorAmber:
		return 1, 0.7, 0.2
	case MonitorGreen, MonitorApple2:
		return 0.25, 1, 0.35
	case MonitorFuturistic:
		return 0.55, 0.85, 1
	default:
		return 1, 1, 1
	}
}

// crtShaderSrc is the composite post-process fragment program: barrel
// curvature, scanlines, a cheap one-tap bloom, noise, phosphor tint, and
// brightness/contrast/gamma, all in a single Kage pass over the
// Compositor's rendered frame.
const crtShaderSrc = `
package main

var Time float
var Curvature float
var ScanlineIntensity float
var BloomIntensity float
var NoiseIntensity float
var Brightness float
var Contrast float
var Gamma float
var Tint vec3

func Fragment(position vec4, texCoord vec2, color vec4) vec4 {
	size := imageSrcTextureSize()
	uv := texCoord / size

	center := vec2(0.5, 0.5)
	d := uv - center
	warped := uv + d*dot(d, d)*Curvature
	if warped.x < 0 || warped.x > 1 || warped.y < 0 || warped.y > 1 {
		return vec4(0, 0, 0, 1)
	}

	c := imageSrc0At(warped * size)

	scan := 1.0 - ScanlineIntensity*0.5*(1.0+sin(warped.y*size.y*3.14159))
	c.rgb *= scan

	bloom := imageSrc0At((warped+vec2(1.0, 0.0)/size) * size)
	c.rgb += bloom.rgb * BloomIntensity * 0.25

	n := fract(sin(dot(warped, vec2(12.9898, 78.233))+Time) * 43758.5453)
	c.rgb += (n - 0.5) * NoiseIntensity

	c.rgb *= Tint
	c.rgb = (c.rgb-0.5)*Contrast + 0.5 + Brightness
	c.rgb = pow(max(c.rgb, vec3(0)), vec3(1.0/Gamma))

	return vec4(c.rgb, c.a)
}
`

// CRTFilter is the optional post-process pass the spec's composite
// fragment program describes, applied as a shader layered on top of the
// Compositor's per-cell render rather than folded into one do-everything
// program (see DESIGN.md). Disabled (zero-value Enabled) by default so
// plain terminal sessions render without it.
type CRTFilter struct {
	shader *ebiten.Shader

	Enabled    bool
	Monitor    MonitorType
	Curvature  float32
	Scanlines  float32
	Bloom      float32
	Noise      float32
	Brightness float32
	Contrast   float32
	Gamma      float32

	time float32
}

// NewCRTFilter compiles the composite shader once; Apply reuses it every
// frame. Contrast/Gamma default to 1 (identity) so a freshly constructed,
// not-yet-configured filter doesn't crush the image to black if enabled.
func NewCRTFilter() (*CRTFilter, error) {
	shader, err := ebiten.NewShader([]byte(crtShaderSrc))
	if err != nil {
		return nil, err
	}
	return &CRTFilter{shader: shader, Contrast: 1, Gamma: 1}, nil
}

// Apply draws src into dst, running it through the CRT shader when
// Enabled, and passing it through unmodified otherwise.
func (f *CRTFilter) Apply(dst, src *ebiten.Image) {
	if f == nil || !f.Enabled || f.shader == nil {
		var op ebiten.DrawImageOptions
		dst.DrawImage(src, &op)
		return
	}
	f.time += 1.0 / 60.0
	tr, tg, tb := f.Monitor.tint()

	var op ebiten.DrawRectShaderOptions
	op.Images[0] = src
	op.Uniforms = map[string]any{
		"Time":              f.time,
		"Curvature":         f.Curvature,
		"ScanlineIntensity": f.Scanlines,
		"BloomIntensity":    f.Bloom,
		"NoiseIntensity":    f.Noise,
		"Brightness":        f.Brightness,
		"Contrast":          f.Contrast,
		"Gamma":             f.Gamma,
		"Tint":              []float32{tr, tg, tb},
	}
	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
	dst.DrawRectShader(w, h, f.shader, &op)
}
