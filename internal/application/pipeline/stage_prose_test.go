package pipeline

import "testing"

func TestProseMaxTokens(t *testing.T) {
	stage := NewProseStage(nil, nil, nil, testPipelineConfig())

	// 每 100 词折算 150 token，4000 封顶；无效或整除为 0 的目标回退到封顶值
	tests := []struct {
		targetWords int
		want        int
	}{
		{400, 600},
		{1000, 1500},
		{5000, 4000},
		{0, 4000},
		{50, 4000},
	}
	for _, tt := range tests {
		if got := stage.maxTokens(tt.targetWords); got != tt.want {
			t.Errorf("maxTokens(%d) = %d, want %d", tt.targetWords, got, tt.want)
		}
	}
}
