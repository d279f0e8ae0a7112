package pipeline

import (
	"math"
	"testing"

	"storyforge-api/internal/domain/entity"
)

func TestOverallPctStageMapping(t *testing.T) {
	tests := []struct {
		stage string
		pct   float64
		want  float64
	}{
		{entity.StageWorld, 0, 0},
		{entity.StageWorld, 100, 2},
		{entity.StageCharacter, 100, 4},
		{entity.StagePlot, 100, 5},
		{entity.StageProse, 0, 5},
		{entity.StageProse, 50, 47.5},
		{entity.StageProse, 100, 90},
		{entity.StageRenderer, 50, 95},
		{entity.StageRenderer, 100, 100},
	}

	for _, tt := range tests {
		if got := overallPct(tt.stage, tt.pct); got != tt.want {
			t.Errorf("overallPct(%s, %v) = %v, want %v", tt.stage, tt.pct, got, tt.want)
		}
	}
}

func TestOverallPctChapterCurve(t *testing.T) {
	// 第 n/N 章的整体进度为 5 + (n/N)*85
	const total = 10
	for n := 1; n <= total; n++ {
		stagePct := float64(n) / float64(total) * 100
		want := 5 + float64(n)/float64(total)*85
		if got := overallPct(entity.StageProse, stagePct); math.Abs(got-want) > 1e-9 {
			t.Errorf("chapter %d: overall = %v, want %v", n, got, want)
		}
	}
}

func TestOverallPctMonotonicAcrossStages(t *testing.T) {
	// 阶段按顺序完成时整体进度不回退
	prev := 0.0
	for _, stage := range entity.AllStages() {
		for _, pct := range []float64{0, 50, 100} {
			got := overallPct(stage, pct)
			if stage == entity.StageChecker {
				// 审校与正文共享区间，允许持平
				continue
			}
			if got < prev && pct == 100 {
				t.Errorf("stage %s completion regressed: %v < %v", stage, got, prev)
			}
		}
		prev = overallPct(stage, 100)
	}
}

func TestOverallPctClamping(t *testing.T) {
	if got := overallPct(entity.StageProse, 150); got != 90 {
		t.Errorf("over-100 stage pct should clamp, got %v", got)
	}
	if got := overallPct(entity.StageProse, -10); got != 5 {
		t.Errorf("negative stage pct should clamp, got %v", got)
	}
}
