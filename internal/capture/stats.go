package capture

import (
	"image"
	"math"

	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/fingerprint"
)

const (
	gradientSamples = 16
	edgeThreshold   = 64.0
)

// Describe computes the structured descriptor of a rendered image. Pixels are
// composited over white first, so transparent areas read as background.
func Describe(img image.Image) fingerprint.Descriptor {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return fingerprint.Descriptor{GradientPatterns: []float64{}}
	}

	lum := make([]float64, w*h)
	var sumR, sumG, sumB float64
	partial := 0

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r16, g16, b16, a16 := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			// premultiplied over white: c + (1 - a)
			inv := float64(0xffff-a16) / 0xffff * 255
			r := float64(r16)/0xffff*255 + inv
			g := float64(g16)/0xffff*255 + inv
			bl := float64(b16)/0xffff*255 + inv

			sumR += r
			sumG += g
			sumB += bl
			lum[y*w+x] = 0.299*r + 0.587*g + 0.114*bl

			if a16 > 0 && a16 < 0xffff {
				partial++
			}
		}
	}

	n := float64(w * h)
	mean := 0.0
	for _, v := range lum {
		mean += v
	}
	mean /= n

	variance := 0.0
	for _, v := range lum {
		variance += (v - mean) * (v - mean)
	}
	variance /= n

	return fingerprint.Descriptor{
		ImageHash: float64(averageHash(lum, w, h)),
		ColorDistribution: fingerprint.ColorDistribution{
			R: round6(sumR / n),
			G: round6(sumG / n),
			B: round6(sumB / n),
		},
		GradientPatterns:   gradients(lum, w, h),
		EdgeDetection:      round6(edgeDensity(lum, w, h)),
		NoisePattern:       round6(noise(lum, w, h)),
		Entropy:            round6(entropy(lum)),
		Contrast:           round6(math.Sqrt(variance)),
		MeanBrightness:     round6(mean),
		RenderingArtifacts: round6(float64(partial) / n),
	}
}

// averageHash downsamples to 8x8, thresholds against the mean and folds the
// 64 bits to 32 so the value is exact as a JSON number.
func averageHash(lum []float64, w, h int) uint32 {
	var cells [64]float64
	for cy := 0; cy < 8; cy++ {
		for cx := 0; cx < 8; cx++ {
			x0, x1 := cx*w/8, (cx+1)*w/8
			y0, y1 := cy*h/8, (cy+1)*h/8
			sum, count := 0.0, 0
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					sum += lum[y*w+x]
					count++
				}
			}
			if count > 0 {
				cells[cy*8+cx] = sum / float64(count)
			}
		}
	}

	mean := 0.0
	for _, v := range cells {
		mean += v
	}
	mean /= 64

	var bits uint64
	for i, v := range cells {
		if v > mean {
			bits |= 1 << i
		}
	}
	return uint32(bits>>32) ^ uint32(bits)
}

// gradients samples the mean absolute horizontal gradient of evenly spaced
// rows, normalised to [0, 1].
func gradients(lum []float64, w, h int) []float64 {
	out := make([]float64, 0, gradientSamples)
	for i := 0; i < gradientSamples; i++ {
		y := i * h / gradientSamples
		sum := 0.0
		for x := 0; x+1 < w; x++ {
			sum += math.Abs(lum[y*w+x+1] - lum[y*w+x])
		}
		if w > 1 {
			sum /= float64(w-1) * 255
		}
		out = append(out, round6(sum))
	}
	return out
}

func edgeDensity(lum []float64, w, h int) float64 {
	if w < 2 || h < 2 {
		return 0
	}
	edges := 0
	for y := 0; y+1 < h; y++ {
		for x := 0; x+1 < w; x++ {
			gx := math.Abs(lum[y*w+x+1] - lum[y*w+x])
			gy := math.Abs(lum[(y+1)*w+x] - lum[y*w+x])
			if gx+gy > edgeThreshold {
				edges++
			}
		}
	}
	return float64(edges) / float64((w-1)*(h-1))
}

// noise is the mean distance of interior pixels from their 4-neighbour mean.
func noise(lum []float64, w, h int) float64 {
	if w < 3 || h < 3 {
		return 0
	}
	sum := 0.0
	for y := 1; y+1 < h; y++ {
		for x := 1; x+1 < w; x++ {
			neigh := (lum[y*w+x-1] + lum[y*w+x+1] + lum[(y-1)*w+x] + lum[(y+1)*w+x]) / 4
			sum += math.Abs(lum[y*w+x] - neigh)
		}
	}
	return sum / float64((w-2)*(h-2)) / 255
}

func entropy(lum []float64) float64 {
	var hist [256]int
	for _, v := range lum {
		i := int(v + 0.5)
		if i < 0 {
			i = 0
		}
		if i > 255 {
			i = 255
		}
		hist[i]++
	}

	n := float64(len(lum))
	e := 0.0
	for _, c := range hist {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		e -= p * math.Log2(p)
	}
	return e
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
