package fingerprint

import "encoding/json"

// ColorDistribution holds per-channel means of the rendered image.
type ColorDistribution struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// Descriptor is the structured successor to the legacy string. It summarises
// a deterministic rendering statistically so that small driver or
// anti-aliasing differences can be judged by similarity instead of equality.
type Descriptor struct {
	ImageHash          float64           `json:"imageHash"`
	ColorDistribution  ColorDistribution `json:"colorDistribution"`
	GradientPatterns   []float64         `json:"gradientPatterns"`
	EdgeDetection      float64           `json:"edgeDetection"`
	NoisePattern       float64           `json:"noisePattern"`
	Entropy            float64           `json:"entropy"`
	Contrast           float64           `json:"contrast"`
	MeanBrightness     float64           `json:"meanBrightness"`
	RenderingArtifacts float64           `json:"renderingArtifacts"`
}

// Set is an ordered list of enrolled fingerprints.
type Set []Fingerprint

// Contains reports whether fp is already in the set by value equality.
func (s Set) Contains(fp Fingerprint) bool {
	for _, existing := range s {
		if existing.Equal(fp) {
			return true
		}
	}
	return false
}

// Structured returns the structured members in enrollment order.
func (s Set) Structured() Set {
	var out Set
	for _, fp := range s {
		if fp.IsStructured() {
			out = append(out, fp)
		}
	}
	return out
}

// Clone copies the slice so appends never alias the caller's backing array.
func (s Set) Clone() Set {
	return append(Set(nil), s...)
}

// RawValues returns the JSON form of every member, for responses and
// classifier payloads.
func (s Set) RawValues() []json.RawMessage {
	out := make([]json.RawMessage, 0, len(s))
	for _, fp := range s {
		out = append(out, fp.Raw())
	}
	return out
}
