package pipeline

import "storyforge-api/internal/domain/entity"

// stageSpan 阶段在整体进度轴上的区间
// 前三个准备阶段占 0-5%，逐章循环占 5-90%，渲染占 90-100%
type stageSpan struct {
	Base float64
	Span float64
}

var stageSpans = map[string]stageSpan{
	entity.StageWorld:     {Base: 0, Span: 2},
	entity.StageCharacter: {Base: 2, Span: 2},
	entity.StagePlot:      {Base: 4, Span: 1},
	entity.StageProse:     {Base: 5, Span: 85},
	entity.StageChecker:   {Base: 5, Span: 85},
	entity.StageRenderer:  {Base: 90, Span: 10},
}

// overallPct 把阶段内百分比映射到整体进度轴
// 阶段区间首尾相接，配合存储层的单调钳制保证整体进度不回退
func overallPct(stage string, stagePct float64) float64 {
	s, ok := stageSpans[stage]
	if !ok {
		return stagePct
	}
	if stagePct < 0 {
		stagePct = 0
	}
	if stagePct > 100 {
		stagePct = 100
	}
	return s.Base + stagePct/100*s.Span
}
