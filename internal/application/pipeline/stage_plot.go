package pipeline

import (
	"context"
	"time"

	"storyforge-api/internal/config"
	"storyforge-api/internal/domain/entity"
	"storyforge-api/pkg/logger"
	"storyforge-api/pkg/metrics"
)

// PlotStage 基于世界观和角色上下文生成逐章情节大纲
type PlotStage struct {
	completer TextCompleter
	tracker   *Tracker
	sampling  config.StageSampling
	timeout   time.Duration
}

// NewPlotStage 创建情节阶段
func NewPlotStage(completer TextCompleter, tracker *Tracker, cfg config.PipelineConfig) *PlotStage {
	return &PlotStage{
		completer: completer,
		tracker:   tracker,
		sampling:  cfg.Plot,
		timeout:   cfg.CallTimeout,
	}
}

// Run 生成情节结构，目标章节数随大纲一并写入上下文
func (s *PlotStage) Run(ctx context.Context, projectID string, inputs *entity.PlotInputs, targetChapters int, sc *StageContext) error {
	ctx, span := stageTracer.Start(ctx, "stage.Plot")
	defer span.End()

	ctx = logger.WithContext(ctx, logger.StageKey, entity.StagePlot)
	start := time.Now()

	if err := s.tracker.Report(ctx, projectID, entity.StagePlot, entity.StageStatusRunning, 10, "Analyzing plot elements", ""); err != nil {
		return err
	}

	if err := s.tracker.Report(ctx, projectID, entity.StagePlot, entity.StageStatusRunning, 50, "Generating plot structure", ""); err != nil {
		return err
	}

	prompt := buildPlotPrompt(sc.WorldBible, sc.MainCharacters, len(sc.Profiles), targetChapters, inputs)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	structure, err := s.completer.Complete(callCtx, prompt, s.sampling.MaxTokens, s.sampling.Temperature)
	if err != nil {
		span.RecordError(err)
		metrics.StageRunsTotal.WithLabelValues(entity.StagePlot, "error").Inc()
		_ = s.tracker.Report(ctx, projectID, entity.StagePlot, entity.StageStatusError, 0, "", err.Error())
		return err
	}

	sc.PlotStructure = structure
	sc.ChapterCount = targetChapters

	metrics.StageDuration.WithLabelValues(entity.StagePlot).Observe(time.Since(start).Seconds())
	metrics.StageRunsTotal.WithLabelValues(entity.StagePlot, "ok").Inc()
	logger.Info(ctx, "plot structure generated", "chapters", targetChapters)

	return s.tracker.Report(ctx, projectID, entity.StagePlot, entity.StageStatusCompleted, 100, "Plot structure completed", "")
}
