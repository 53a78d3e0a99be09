package capture

import (
	"image"
	"strconv"
)

// NativeMarker is the text a non-instrumented export primitive reports as
// its source.
const NativeMarker = "[native code]"

// Primitive is the image export function of a rendering runtime. Identity is
// pointer identity: two surfaces share a primitive only if they hold the same
// *Primitive.
type Primitive struct {
	Source string
	Export func(img image.Image) (string, error)
}

// Surface is an offscreen drawing target.
type Surface interface {
	SetFont(font string)
	SetTextBaseline(baseline string)
	SetFillStyle(style string) error
	FillRect(x, y, w, h int)
	FillText(text string, x, y int)

	// ExportPrimitive is the primitive reachable from this instance.
	ExportPrimitive() *Primitive
	Image() image.Image
}

// Runtime is the environment the fingerprint is captured in.
type Runtime interface {
	NewSurface(width, height int) Surface
	// DefaultExportPrimitive is the primitive of the surface type itself.
	DefaultExportPrimitive() *Primitive
	Device() DeviceInfo
}

// DeviceInfo carries the rendering-relevant device attributes.
type DeviceInfo struct {
	Platform            string
	UserAgent           string
	ScreenWidth         int
	ScreenHeight        int
	PixelRatio          float64
	DeviceMemory        float64
	ColorDepth          int
	HardwareConcurrency int
}

// Attributes returns the attributes stringified in signal order. Missing
// text attributes become "unknown".
func (d DeviceInfo) Attributes() []string {
	return []string{
		orUnknown(d.Platform),
		orUnknown(d.UserAgent),
		strconv.Itoa(d.ScreenWidth),
		strconv.Itoa(d.ScreenHeight),
		formatNumber(d.PixelRatio),
		formatNumber(d.DeviceMemory),
		strconv.Itoa(d.ColorDepth),
		strconv.Itoa(d.HardwareConcurrency),
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
