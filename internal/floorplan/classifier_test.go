package floorplan

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func mustClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := NewClassifier(DefaultWeights(), DefaultThreshold)
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	return c
}

func grayImage(w, h int, at func(x, y int) uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := at(x, y)
			img.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

// gridImage draws black lines every 10 pixels on a white background, the
// degenerate ideal of a floorplan: white rooms, hard wall edges, two
// colours, nothing in between.
func gridImage(w, h int) *image.RGBA {
	return grayImage(w, h, func(x, y int) uint8 {
		if x%10 == 0 || y%10 == 0 {
			return 0
		}
		return 255
	})
}

func TestClassifyGridIsFloorplan(t *testing.T) {
	c := mustClassifier(t)

	got := c.Classify(gridImage(100, 100))
	if !got.IsFloorplan {
		t.Fatalf("grid image not classified as floorplan, score %.3f signals %+v", got.Score, got.Signals)
	}
	sig := got.Signals
	for name, v := range map[string]float64{
		"saturation":      sig.Saturation,
		"white_ratio":     sig.WhiteRatio,
		"color_diversity": sig.ColorDiversity,
		"edge_density":    sig.EdgeDensity,
		"bimodality":      sig.Bimodality,
	} {
		if v < 0.99 {
			t.Errorf("signal %s = %.3f, want saturated near 1", name, v)
		}
	}
}

// A flat white frame has no edges and no sharp pixels. Three of the five
// signals max out, which is exactly why the threshold sits above 0.60.
func TestClassifyUniformWhiteRejected(t *testing.T) {
	c := mustClassifier(t)

	got := c.Classify(grayImage(64, 64, func(int, int) uint8 { return 255 }))
	if got.IsFloorplan {
		t.Fatalf("uniform white classified as floorplan, score %.3f", got.Score)
	}
	if math.Abs(got.Score-0.60) > 1e-9 {
		t.Errorf("score = %.4f, want exactly 0.60 (saturation, white, diversity)", got.Score)
	}
	if got.Signals.Bimodality != 0 {
		t.Errorf("bimodality = %.3f, want 0 via the sharp-pixel guard", got.Signals.Bimodality)
	}
	if got.Signals.EdgeDensity != 0 {
		t.Errorf("edge density = %.3f, want 0", got.Signals.EdgeDensity)
	}
}

// A bright, unsaturated photograph: near-white texture over most of the
// frame, a darker band below, continuous tonal variation throughout. It
// defeats the colour signals but not the structural ones.
func TestClassifyWhiteRoomPhotoRejected(t *testing.T) {
	c := mustClassifier(t)

	photo := grayImage(100, 100, func(x, y int) uint8 {
		base := uint8(234)
		if y >= 70 {
			base = 122
		}
		return base + uint8(2*((x+y)%2))
	})

	got := c.Classify(photo)
	if got.IsFloorplan {
		t.Fatalf("white room photo classified as floorplan, score %.3f signals %+v", got.Score, got.Signals)
	}
	if got.Signals.Bimodality != 0 {
		t.Errorf("bimodality = %.3f, want 0 for continuous tonal texture", got.Signals.Bimodality)
	}
	if got.Signals.Saturation < 0.99 {
		t.Errorf("saturation signal = %.3f, want near 1 for a grayscale frame", got.Signals.Saturation)
	}
}

func TestClassifyDegenerateImages(t *testing.T) {
	c := mustClassifier(t)

	for _, img := range []image.Image{nil, image.NewRGBA(image.Rect(0, 0, 2, 2))} {
		got := c.Classify(img)
		if got.Score != 0 || got.IsFloorplan {
			t.Errorf("degenerate image scored %.3f match=%v, want zero value", got.Score, got.IsFloorplan)
		}
	}
}

func TestBimodalityScore(t *testing.T) {
	tests := []struct {
		flat, sharp float64
		want        float64
	}{
		{0.90, 0.05, 1},      // fully bimodal
		{0.95, 0.01, 0},      // sharp guard: blank frame is not bimodal
		{0.50, 0.25, 0},      // flat+sharp exactly at the ramp floor
		{0.74, 0.03, 0.1333}, // inside the ramp
		{0.80, 0.025, 0.50},  // midpoint of the ramp
	}

	for _, tt := range tests {
		got := bimodalityScore(tt.flat, tt.sharp)
		if math.Abs(got-tt.want) > 1e-3 {
			t.Errorf("bimodalityScore(%.2f, %.3f) = %.4f, want %.4f", tt.flat, tt.sharp, got, tt.want)
		}
	}
}

func TestNewClassifierValidation(t *testing.T) {
	bad := DefaultWeights()
	bad.Saturation = 0.5
	if _, err := NewClassifier(bad, DefaultThreshold); err == nil {
		t.Error("weights summing to 1.3 accepted")
	}

	if _, err := NewClassifier(DefaultWeights(), 0); err == nil {
		t.Error("threshold 0 accepted")
	}
	if _, err := NewClassifier(DefaultWeights(), 1.2); err == nil {
		t.Error("threshold 1.2 accepted")
	}
	if _, err := NewClassifier(DefaultWeights(), 1.0); err != nil {
		t.Errorf("threshold 1.0 rejected: %v", err)
	}
}
