package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"

	"storyforge-api/internal/config"
	"storyforge-api/internal/domain/entity"
	"storyforge-api/pkg/logger"
	"storyforge-api/pkg/metrics"
)

var stageTracer = otel.Tracer("pipeline")

// WorldStage 把世界观表单合成为一份供后续阶段引用的世界圣经
type WorldStage struct {
	completer TextCompleter
	tracker   *Tracker
	sampling  config.StageSampling
	timeout   time.Duration
}

// NewWorldStage 创建世界观阶段
func NewWorldStage(completer TextCompleter, tracker *Tracker, cfg config.PipelineConfig) *WorldStage {
	return &WorldStage{
		completer: completer,
		tracker:   tracker,
		sampling:  cfg.World,
		timeout:   cfg.CallTimeout,
	}
}

// Run 执行世界观合成并把结果写入上下文
func (s *WorldStage) Run(ctx context.Context, projectID string, inputs *entity.WorldInputs, sc *StageContext) error {
	ctx, span := stageTracer.Start(ctx, "stage.World")
	defer span.End()

	ctx = logger.WithContext(ctx, logger.StageKey, entity.StageWorld)
	start := time.Now()

	if err := s.tracker.Report(ctx, projectID, entity.StageWorld, entity.StageStatusRunning, 10, "Analyzing worldbuilding context", ""); err != nil {
		return err
	}

	if err := s.tracker.Report(ctx, projectID, entity.StageWorld, entity.StageStatusRunning, 50, "Generating world bible", ""); err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	worldBible, err := s.completer.Complete(callCtx, buildWorldPrompt(inputs), s.sampling.MaxTokens, s.sampling.Temperature)
	if err != nil {
		span.RecordError(err)
		metrics.StageRunsTotal.WithLabelValues(entity.StageWorld, "error").Inc()
		_ = s.tracker.Report(ctx, projectID, entity.StageWorld, entity.StageStatusError, 0, "", err.Error())
		return err
	}

	sc.WorldBible = worldBible

	metrics.StageDuration.WithLabelValues(entity.StageWorld).Observe(time.Since(start).Seconds())
	metrics.StageRunsTotal.WithLabelValues(entity.StageWorld, "ok").Inc()
	logger.Info(ctx, "world bible generated", "chars", len(worldBible))

	return s.tracker.Report(ctx, projectID, entity.StageWorld, entity.StageStatusCompleted, 100, "World bible completed", "")
}
