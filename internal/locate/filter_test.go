package locate

import (
	"testing"

	"github.com/morphosource/specimen-crop/internal/detector"
	"github.com/morphosource/specimen-crop/internal/geometry"
)

func cand(xmin, ymin, xmax, ymax, conf float64) detector.Candidate {
	return detector.Candidate{Box: geometry.NewBox(xmin, ymin, xmax, ymax), Confidence: conf}
}

func TestFilterByArea_FractionWindow(t *testing.T) {
	// 1000x1000 image: area 1e6 pixels.
	cfg := AreaFilterConfig{MinFraction: 0.001, MaxFraction: 0.5}

	cands := []detector.Candidate{
		cand(0, 0, 700, 900, 0.9),  // 0.63 of image: too large
		cand(0, 0, 100, 100, 0.8),  // 0.01 of image: in window
		cand(0, 0, 20, 20, 0.7),    // 0.0004 of image: too small
		cand(200, 200, 320, 300, 0.6), // 0.012 of image: in window
	}

	res := FilterByArea(cands, 1000, 1000, cfg)
	if res.Fallback {
		t.Fatal("fallback should not trigger when candidates survive")
	}
	if len(res.Kept) != 2 {
		t.Fatalf("kept %d candidates, want 2", len(res.Kept))
	}
	for _, c := range res.Kept {
		frac := c.Box.Area() / 1e6
		if frac < cfg.MinFraction || frac > cfg.MaxFraction {
			t.Errorf("survivor area fraction %v outside [%v, %v]", frac, cfg.MinFraction, cfg.MaxFraction)
		}
	}
}

func TestFilterByArea_MedianOutlier(t *testing.T) {
	cfg := AreaFilterConfig{MinFraction: 0, MaxFraction: 1, OutlierFactor: 4}

	// Median area is 10000 (100x100 boxes); the 450x450 box is a 20x
	// outlier and the 10x10 box a 100x undershoot.
	cands := []detector.Candidate{
		cand(0, 0, 100, 100, 0.9),
		cand(200, 0, 300, 100, 0.8),
		cand(400, 0, 500, 100, 0.7),
		cand(0, 200, 450, 650, 0.6),
		cand(600, 600, 610, 610, 0.5),
	}

	res := FilterByArea(cands, 1000, 1000, cfg)
	if len(res.Kept) != 3 {
		t.Fatalf("kept %d candidates, want 3", len(res.Kept))
	}
	for _, c := range res.Kept {
		if c.Box.Area() != 10000 {
			t.Errorf("unexpected survivor with area %v", c.Box.Area())
		}
	}
}

func TestFilterByArea_OutlierDisabled(t *testing.T) {
	cfg := AreaFilterConfig{MinFraction: 0, MaxFraction: 1, OutlierFactor: 0}

	cands := []detector.Candidate{
		cand(0, 0, 100, 100, 0.9),
		cand(0, 0, 900, 900, 0.8), // huge vs median, but no outlier test
	}

	res := FilterByArea(cands, 1000, 1000, cfg)
	if len(res.Kept) != 2 {
		t.Errorf("kept %d candidates, want 2 with outlier test disabled", len(res.Kept))
	}
}

func TestFilterByArea_AdaptiveCeiling(t *testing.T) {
	tests := []struct {
		count int
		want  float64
	}{
		{1, 1.0},
		{4, 1.0},
		{5, 0.05},
		{19, 0.05},
		{20, 0.02},
		{49, 0.02},
		{50, 0.01},
		{99, 0.01},
		{100, 0.005},
		{199, 0.005},
		{200, 0.001},
		{500, 0.001},
	}

	for _, tt := range tests {
		if got := adaptiveMaxFraction(tt.count); got != tt.want {
			t.Errorf("adaptiveMaxFraction(%d) = %v, want %v", tt.count, got, tt.want)
		}
	}
}

func TestFilterByArea_AdaptiveTightensWindow(t *testing.T) {
	cfg := AreaFilterConfig{MinFraction: 0, MaxFraction: 0.5, Adaptive: true}

	// Six candidates: the adaptive ceiling for 6 detections is 0.05 of
	// image area, so the 0.09-fraction box must go even though the
	// configured MaxFraction of 0.5 would admit it.
	cands := []detector.Candidate{
		cand(0, 0, 300, 300, 0.9), // 0.09 of image
		cand(0, 0, 100, 100, 0.8),
		cand(150, 0, 250, 100, 0.8),
		cand(300, 0, 400, 100, 0.8),
		cand(450, 0, 550, 100, 0.8),
		cand(600, 0, 700, 100, 0.8),
	}

	res := FilterByArea(cands, 1000, 1000, cfg)
	for _, c := range res.Kept {
		if c.Box.Area() > 0.05*1e6 {
			t.Errorf("adaptive ceiling not applied: survivor area %v", c.Box.Area())
		}
	}
	if len(res.Kept) != 5 {
		t.Errorf("kept %d candidates, want 5", len(res.Kept))
	}
}

func TestFilterByArea_FallbackWhenAllRemoved(t *testing.T) {
	cfg := AreaFilterConfig{MinFraction: 0.001, MaxFraction: 0.5}

	// A single candidate covering 0.81 of the image: rejected by the
	// window, so the filter must surface the full set flagged.
	cands := []detector.Candidate{cand(50, 50, 950, 950, 0.9)}

	res := FilterByArea(cands, 1000, 1000, cfg)
	if !res.Fallback {
		t.Fatal("fallback flag should be set when filtering removes every candidate")
	}
	if len(res.Kept) != 1 {
		t.Fatalf("fallback should surface the unfiltered set, got %d candidates", len(res.Kept))
	}
}

func TestFilterByArea_EmptyInput(t *testing.T) {
	res := FilterByArea(nil, 1000, 1000, AreaFilterConfig{MinFraction: 0.001, MaxFraction: 0.5})
	if res.Fallback || len(res.Kept) != 0 {
		t.Errorf("empty input should produce an empty, non-fallback result: %+v", res)
	}
}

func TestMedianArea(t *testing.T) {
	tests := []struct {
		name  string
		cands []detector.Candidate
		want  float64
	}{
		{"empty", nil, 0},
		{"single", []detector.Candidate{cand(0, 0, 10, 10, 1)}, 100},
		{
			"odd count",
			[]detector.Candidate{
				cand(0, 0, 10, 10, 1), // 100
				cand(0, 0, 30, 10, 1), // 300
				cand(0, 0, 20, 10, 1), // 200
			},
			200,
		},
		{
			"even count averages middle pair",
			[]detector.Candidate{
				cand(0, 0, 10, 10, 1), // 100
				cand(0, 0, 20, 10, 1), // 200
				cand(0, 0, 30, 10, 1), // 300
				cand(0, 0, 40, 10, 1), // 400
			},
			250,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := medianArea(tt.cands); got != tt.want {
				t.Errorf("medianArea() = %v, want %v", got, tt.want)
			}
		})
	}
}
