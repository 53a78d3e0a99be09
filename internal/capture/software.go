package capture

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"
	"strings"
)

// SoftwareRuntime renders with image/draw. The output is deterministic for a
// given DeviceInfo, which makes it a reference runtime for tests and tools.
type SoftwareRuntime struct {
	device   DeviceInfo
	native   *Primitive
	def      *Primitive
	instance *Primitive
}

func NewSoftwareRuntime(device DeviceInfo) *SoftwareRuntime {
	native := &Primitive{
		Source: "function toDataURL() { " + NativeMarker + " }",
		Export: encodePNGDataURL,
	}
	return &SoftwareRuntime{device: device, native: native, def: native}
}

// PatchDefault replaces the surface type's export primitive, the way a
// script overriding the prototype would.
func (r *SoftwareRuntime) PatchDefault(p *Primitive) { r.def = p }

// PatchInstances makes every new surface reach p instead of the default.
func (r *SoftwareRuntime) PatchInstances(p *Primitive) { r.instance = p }

func (r *SoftwareRuntime) DefaultExportPrimitive() *Primitive { return r.def }

func (r *SoftwareRuntime) Device() DeviceInfo { return r.device }

func (r *SoftwareRuntime) NewSurface(width, height int) Surface {
	export := r.def
	if r.instance != nil {
		export = r.instance
	}
	return &softwareSurface{
		img:      image.NewNRGBA(image.Rect(0, 0, width, height)),
		export:   export,
		fill:     color.NRGBA{A: 255},
		fontPx:   10,
		baseline: "alphabetic",
	}
}

type softwareSurface struct {
	img      *image.NRGBA
	export   *Primitive
	fill     color.NRGBA
	fontPx   int
	baseline string
}

func (s *softwareSurface) ExportPrimitive() *Primitive { return s.export }

func (s *softwareSurface) Image() image.Image { return s.img }

func (s *softwareSurface) SetTextBaseline(baseline string) { s.baseline = baseline }

// SetFont reads only the pixel size; the family has no effect on the grid
// glyphs below.
func (s *softwareSurface) SetFont(font string) {
	for _, part := range strings.Fields(font) {
		if px, ok := strings.CutSuffix(part, "px"); ok {
			if n, err := strconv.Atoi(px); err == nil && n > 0 {
				s.fontPx = n
			}
			return
		}
	}
}

func (s *softwareSurface) SetFillStyle(style string) error {
	c, err := parseColor(style)
	if err != nil {
		return err
	}
	s.fill = c
	return nil
}

func (s *softwareSurface) FillRect(x, y, w, h int) {
	s.blend(image.Rect(x, y, x+w, y+h))
}

// FillText draws each rune as a 5x7 cell pattern derived from the rune
// itself, scaled to the font size.
func (s *softwareSurface) FillText(text string, x, y int) {
	scale := s.fontPx / 7
	if scale < 1 {
		scale = 1
	}
	top := y - 7*scale
	if s.baseline == "top" {
		top = y
	}

	penX := x
	for _, r := range text {
		bits := glyphBits(r)
		for row := 0; row < 7; row++ {
			for col := 0; col < 5; col++ {
				if bits&(1<<(row*5+col)) == 0 {
					continue
				}
				px := penX + col*scale
				py := top + row*scale
				s.blend(image.Rect(px, py, px+scale, py+scale))
			}
		}
		penX += 6 * scale
	}
}

func (s *softwareSurface) blend(r image.Rectangle) {
	draw.Draw(s.img, r.Intersect(s.img.Bounds()), image.NewUniform(s.fill), image.Point{}, draw.Over)
}

func glyphBits(r rune) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(string(r)))
	return h.Sum64() & (1<<35 - 1)
}

func encodePNGDataURL(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// parseColor understands the CSS forms used by the drawing script:
// #rgb, #rrggbb, rgb(r, g, b) and rgba(r, g, b, a).
func parseColor(style string) (color.NRGBA, error) {
	style = strings.TrimSpace(strings.ToLower(style))

	if hex, ok := strings.CutPrefix(style, "#"); ok {
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		if len(hex) != 6 {
			return color.NRGBA{}, fmt.Errorf("capture: bad color %q", style)
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("capture: bad color %q: %w", style, err)
		}
		return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
	}

	open := strings.IndexByte(style, '(')
	if open < 0 || !strings.HasSuffix(style, ")") {
		return color.NRGBA{}, fmt.Errorf("capture: bad color %q", style)
	}
	fn := style[:open]
	args := strings.Split(style[open+1:len(style)-1], ",")
	if (fn == "rgb" && len(args) != 3) || (fn == "rgba" && len(args) != 4) || (fn != "rgb" && fn != "rgba") {
		return color.NRGBA{}, fmt.Errorf("capture: bad color %q", style)
	}

	var ch [3]uint8
	for i := 0; i < 3; i++ {
		n, err := strconv.Atoi(strings.TrimSpace(args[i]))
		if err != nil || n < 0 || n > 255 {
			return color.NRGBA{}, fmt.Errorf("capture: bad color %q", style)
		}
		ch[i] = uint8(n)
	}

	alpha := uint8(255)
	if fn == "rgba" {
		a, err := strconv.ParseFloat(strings.TrimSpace(args[3]), 64)
		if err != nil || a < 0 || a > 1 {
			return color.NRGBA{}, fmt.Errorf("capture: bad color %q", style)
		}
		alpha = uint8(a*255 + 0.5)
	}

	return color.NRGBA{R: ch[0], G: ch[1], B: ch[2], A: alpha}, nil
}
