package pipeline

import (
	"context"
	"time"

	"storyforge-api/internal/domain/entity"
	"storyforge-api/internal/domain/repository"
	"storyforge-api/pkg/errors"
	"storyforge-api/pkg/logger"
	"storyforge-api/pkg/metrics"
)

// Orchestrator 按固定顺序驱动全部阶段并独占项目状态机
// pending → running → {completed | error}；已提交章节在失败时不回滚
type Orchestrator struct {
	world     *WorldStage
	character *CharacterStage
	plot      *PlotStage
	loop      *ChapterLoop
	renderer  DocumentRenderer
	tracker   *Tracker
	projects  repository.ProjectRepository
	chapters  repository.ChapterRepository
}

// NewOrchestrator 创建编排器
func NewOrchestrator(
	world *WorldStage,
	character *CharacterStage,
	plot *PlotStage,
	loop *ChapterLoop,
	renderer DocumentRenderer,
	tracker *Tracker,
	projects repository.ProjectRepository,
	chapters repository.ChapterRepository,
) *Orchestrator {
	return &Orchestrator{
		world:     world,
		character: character,
		plot:      plot,
		loop:      loop,
		renderer:  renderer,
		tracker:   tracker,
		projects:  projects,
		chapters:  chapters,
	}
}

// Run 执行一次完整的生成运行
// 调用方需先通过 TryClaimRun 抢到运行位；任一阶段的未捕获失败
// 将项目置为 error 并原样上抛
func (o *Orchestrator) Run(ctx context.Context, projectID string) error {
	ctx, span := stageTracer.Start(ctx, "pipeline.Run")
	defer span.End()

	ctx = logger.WithContext(ctx, logger.ProjectIDKey, projectID)
	start := time.Now()

	metrics.ActiveRuns.Inc()
	defer metrics.ActiveRuns.Dec()

	err := o.run(ctx, projectID, start)
	if err != nil {
		span.RecordError(err)
		logger.Error(ctx, "pipeline run failed", err)
		metrics.PipelineRunsTotal.WithLabelValues("error").Inc()
		metrics.PipelineRunDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		if setErr := o.projects.SetError(ctx, projectID, err.Error()); setErr != nil {
			logger.Error(ctx, "failed to record run error", setErr)
		}
		return err
	}

	metrics.PipelineRunsTotal.WithLabelValues("ok").Inc()
	metrics.PipelineRunDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	return nil
}

func (o *Orchestrator) run(ctx context.Context, projectID string, start time.Time) error {
	project, err := o.projects.GetByID(ctx, projectID)
	if err != nil {
		return err
	}
	if project == nil {
		return errors.New(errors.CodeProjectNotFound, "project not found").WithDetail(projectID)
	}

	if err := o.tracker.ResetAll(ctx, projectID); err != nil {
		return err
	}

	logger.Info(ctx, "starting story generation",
		"title", project.Title,
		"chapters", project.TargetChapters,
		"words_per_chapter", project.TargetWordsPerChapter,
	)

	sc := &StageContext{}

	if err := o.world.Run(ctx, projectID, project.World, sc); err != nil {
		return err
	}
	if err := o.character.Run(ctx, projectID, project.Characters, sc); err != nil {
		return err
	}
	if err := o.plot.Run(ctx, projectID, project.Plot, project.TargetChapters, sc); err != nil {
		return err
	}

	chapters, err := o.loop.Run(ctx, projectID, sc, project.TargetWordsPerChapter)
	if err != nil {
		return err
	}

	artifactPath, err := o.render(ctx, projectID, project.Title, chapters)
	if err != nil {
		return err
	}

	// 收尾：从已提交序列重算总字数，状态置为 completed
	totalWords := 0
	for _, ch := range chapters {
		totalWords += ch.WordCount
	}
	if err := o.projects.SetTotalWordCount(ctx, projectID, totalWords); err != nil {
		return err
	}
	if err := o.projects.SetArtifactPath(ctx, projectID, artifactPath); err != nil {
		return err
	}
	if err := o.projects.RefreshProgress(ctx, projectID, entity.StageRenderer, entity.ProjectStatusCompleted, 100); err != nil {
		return err
	}

	logger.Info(ctx, "story generation completed",
		"chapters", len(chapters),
		"total_words", totalWords,
		"artifact", artifactPath,
		"duration", time.Since(start).String(),
	)
	return nil
}

// render 渲染交接：有序章节加标题交给渲染器，记录产物位置
func (o *Orchestrator) render(ctx context.Context, projectID, title string, chapters []*entity.Chapter) (string, error) {
	if err := o.tracker.Report(ctx, projectID, entity.StageRenderer, entity.StageStatusRunning, 50, "Formatting final document", ""); err != nil {
		return "", err
	}

	path, err := o.renderer.Render(ctx, projectID, title, chapters)
	if err != nil {
		_ = o.tracker.Report(ctx, projectID, entity.StageRenderer, entity.StageStatusError, 0, "", err.Error())
		return "", errors.Wrap(err, errors.CodeRenderFailed, "document render failed")
	}

	if err := o.tracker.Report(ctx, projectID, entity.StageRenderer, entity.StageStatusCompleted, 100, "Document formatting completed", ""); err != nil {
		return "", err
	}
	return path, nil
}
