// Package floorplan decides whether an image is a floorplan using offline
// pixel statistics, and gates merged properties on floorplan presence before
// they reach paid vision analysis.
package floorplan

import (
	"fmt"
	"image"
	"math"
)

// Weights are the per-signal weights of the classifier. They must sum to 1.
type Weights struct {
	Saturation     float64
	WhiteRatio     float64
	ColorDiversity float64
	EdgeDensity    float64
	Bimodality     float64
}

// DefaultWeights returns an even split across the five signals.
func DefaultWeights() Weights {
	return Weights{
		Saturation:     0.20,
		WhiteRatio:     0.20,
		ColorDiversity: 0.20,
		EdgeDensity:    0.20,
		Bimodality:     0.20,
	}
}

// Sum returns the total weight mass.
func (w Weights) Sum() float64 {
	return w.Saturation + w.WhiteRatio + w.ColorDiversity + w.EdgeDensity + w.Bimodality
}

// DefaultThreshold is the aggregate score at or above which an image is
// classified as a floorplan.
const DefaultThreshold = 0.65

// Signals are the five normalized signal values, kept for debuggability.
type Signals struct {
	Saturation     float64 `json:"saturation"`
	WhiteRatio     float64 `json:"white_ratio"`
	ColorDiversity float64 `json:"color_diversity"`
	EdgeDensity    float64 `json:"edge_density"`
	Bimodality     float64 `json:"bimodality"`
}

// Classification is the classifier verdict for one image.
type Classification struct {
	Score       float64 `json:"score"`
	IsFloorplan bool    `json:"is_floorplan"`
	Signals     Signals `json:"signals"`
}

const (
	// Saturation: mean saturation of 0 scores 1, 0.25 and above scores 0.
	satRampMax = 0.25

	// White pixels: luminance >= 0.85 with saturation <= 0.15.
	whiteLumMin = 0.85
	whiteSatMax = 0.15
	whiteRampLo = 0.35
	whiteRampHi = 0.80

	// Colour diversity: distinct 4-bit-per-channel bins holding at least
	// 0.5% of pixels. Two or fewer dominant colours score 1, sixteen or
	// more score 0.
	diversityShareMin = 0.005
	diversityBinsLo   = 2.0
	diversityBinsHi   = 16.0

	// Edge density: neighbour luminance delta above 0.15 (of full range)
	// marks an edge pixel; a 6% edge ratio saturates the signal.
	edgeDeltaMin = 0.15 * 255
	edgeRampHi   = 0.06

	// Laplacian bimodality: pixels are flat below 3, sharp above 20 (on
	// 0..255 luminance). At least 2% of pixels must be sharp, otherwise a
	// uniformly blank image would count as bimodal. Given the guard, the
	// flat+sharp fraction maps linearly from 0.75 -> 0 to 0.90 -> 1.
	lapFlatMax    = 3.0
	lapSharpMin   = 20.0
	sharpGuardMin = 0.02
	bimodalRampLo = 0.75
	bimodalRampHi = 0.90
)

// Classifier scores images against injected weights and a decision
// threshold. Pure function of the pixels: no network, no model, no shared
// state; safe to call concurrently.
type Classifier struct {
	weights   Weights
	threshold float64
}

// NewClassifier validates the configuration once, at construction. Weights
// not summing to 1 or a threshold outside (0,1] are the only fatal errors
// in the whole classification path.
func NewClassifier(w Weights, threshold float64) (*Classifier, error) {
	if math.Abs(w.Sum()-1.0) > 1e-6 {
		return nil, fmt.Errorf("classifier weights sum to %.6f, want 1.0", w.Sum())
	}
	if threshold <= 0 || threshold > 1 {
		return nil, fmt.Errorf("classifier threshold %.4f outside (0, 1]", threshold)
	}
	return &Classifier{weights: w, threshold: threshold}, nil
}

// Classify scores a decoded image. A nil or empty image classifies as not a
// floorplan with score 0 rather than erroring.
func (c *Classifier) Classify(img image.Image) Classification {
	if img == nil {
		return Classification{}
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < 3 || h < 3 {
		return Classification{}
	}

	lum := make([][]float64, h)
	var satSum float64
	whiteCount := 0
	bins := make(map[uint32]int)
	total := w * h

	for y := 0; y < h; y++ {
		lum[y] = make([]float64, w)
		for x := 0; x < w; x++ {
			r16, g16, b16, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			r := float64(r16) / 257.0
			g := float64(g16) / 257.0
			b := float64(b16) / 257.0

			l := 0.299*r + 0.587*g + 0.114*b
			lum[y][x] = l

			sat := saturation(r, g, b)
			satSum += sat
			if l/255.0 >= whiteLumMin && sat <= whiteSatMax {
				whiteCount++
			}

			bin := (uint32(r16>>12) << 8) | (uint32(g16>>12) << 4) | uint32(b16>>12)
			bins[bin]++
		}
	}

	edgeCount := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x+1 < w && math.Abs(lum[y][x+1]-lum[y][x]) > edgeDeltaMin {
				edgeCount++
				continue
			}
			if y+1 < h && math.Abs(lum[y+1][x]-lum[y][x]) > edgeDeltaMin {
				edgeCount++
			}
		}
	}

	flat, sharp, interior := 0, 0, 0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			l := lum[y-1][x] + lum[y+1][x] + lum[y][x-1] + lum[y][x+1] - 4*lum[y][x]
			interior++
			switch {
			case math.Abs(l) < lapFlatMax:
				flat++
			case math.Abs(l) > lapSharpMin:
				sharp++
			}
		}
	}

	dominant := 0
	minShare := int(math.Ceil(diversityShareMin * float64(total)))
	for _, n := range bins {
		if n >= minShare {
			dominant++
		}
	}

	sig := Signals{
		Saturation:     clamp01(1 - (satSum/float64(total))/satRampMax),
		WhiteRatio:     ramp(float64(whiteCount)/float64(total), whiteRampLo, whiteRampHi),
		ColorDiversity: clamp01((diversityBinsHi - float64(dominant)) / (diversityBinsHi - diversityBinsLo)),
		EdgeDensity:    clamp01(float64(edgeCount) / float64(total) / edgeRampHi),
		Bimodality:     bimodalityScore(float64(flat)/float64(interior), float64(sharp)/float64(interior)),
	}

	score := c.weights.Saturation*sig.Saturation +
		c.weights.WhiteRatio*sig.WhiteRatio +
		c.weights.ColorDiversity*sig.ColorDiversity +
		c.weights.EdgeDensity*sig.EdgeDensity +
		c.weights.Bimodality*sig.Bimodality

	return Classification{
		Score:       score,
		IsFloorplan: score >= c.threshold,
		Signals:     sig,
	}
}

// bimodalityScore maps the flat+sharp pixel fraction onto [0,1]. Floorplans
// have pixels that are either uniform background or hard wall edges with
// little in between; photographs keep continuous tonal gradients even when
// bright and unsaturated, which is what separates a floorplan from a
// photographed white room.
func bimodalityScore(flatFrac, sharpFrac float64) float64 {
	if sharpFrac < sharpGuardMin {
		return 0
	}
	return ramp(flatFrac+sharpFrac, bimodalRampLo, bimodalRampHi)
}

func saturation(r, g, b float64) float64 {
	max := math.Max(r, math.Max(g, b))
	if max == 0 {
		return 0
	}
	min := math.Min(r, math.Min(g, b))
	return (max - min) / max
}

// ramp maps v linearly onto [0,1] between lo and hi, clamped outside.
func ramp(v, lo, hi float64) float64 {
	return clamp01((v - lo) / (hi - lo))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
