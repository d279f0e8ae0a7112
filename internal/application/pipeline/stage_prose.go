package pipeline

import (
	"context"
	"fmt"
	"time"

	"storyforge-api/internal/config"
	"storyforge-api/internal/domain/entity"
	"storyforge-api/pkg/logger"
	"storyforge-api/pkg/metrics"
)

// ProseStage 生成单章正文
// max_tokens 按目标字数折算（每 100 词 TokensPer100Word 个 token）并封顶
type ProseStage struct {
	completer   TextCompleter
	tracker     *Tracker
	accumulator *Accumulator
	sampling    config.ProseSampling
	timeout     time.Duration
}

// NewProseStage 创建正文阶段
func NewProseStage(completer TextCompleter, tracker *Tracker, accumulator *Accumulator, cfg config.PipelineConfig) *ProseStage {
	return &ProseStage{
		completer:   completer,
		tracker:     tracker,
		accumulator: accumulator,
		sampling:    cfg.Prose,
		timeout:     cfg.CallTimeout,
	}
}

// Generate 生成第 chapterNum 章的候选章节
// 正文生成失败对整次运行是致命的，错误原样上抛
func (s *ProseStage) Generate(ctx context.Context, projectID string, chapterNum int, previous []*entity.Chapter, sc *StageContext, targetWords int) (*entity.Chapter, error) {
	ctx, span := stageTracer.Start(ctx, "stage.Prose")
	defer span.End()

	ctx = logger.WithContext(ctx, logger.StageKey, entity.StageProse)
	start := time.Now()

	pct := float64(chapterNum) / float64(sc.ChapterCount) * 100
	task := fmt.Sprintf("Writing Chapter %d", chapterNum)
	if err := s.tracker.Report(ctx, projectID, entity.StageProse, entity.StageStatusRunning, pct, task, ""); err != nil {
		return nil, err
	}

	prompt := buildProsePrompt(
		chapterNum, sc,
		s.accumulator.ProfilesJSON(sc.Profiles),
		s.accumulator.ProseChapterSummary(previous),
		targetWords,
	)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.completer.Complete(callCtx, prompt, s.maxTokens(targetWords), s.sampling.Temperature)
	if err != nil {
		span.RecordError(err)
		metrics.StageRunsTotal.WithLabelValues(entity.StageProse, "error").Inc()
		_ = s.tracker.Report(ctx, projectID, entity.StageProse, entity.StageStatusError, 0, "", err.Error())
		return nil, err
	}

	title, body := ExtractTitle(raw, chapterNum)
	chapter := entity.NewChapter(projectID, chapterNum, title, body)

	metrics.StageDuration.WithLabelValues(entity.StageProse).Observe(time.Since(start).Seconds())
	metrics.ChapterWordCount.Observe(float64(chapter.WordCount))
	logger.Info(ctx, "chapter drafted", "chapter", chapterNum, "title", title, "words", chapter.WordCount)

	return chapter, nil
}

// maxTokens 目标字数折算 token 上限
func (s *ProseStage) maxTokens(targetWords int) int {
	estimated := targetWords / 100 * s.sampling.TokensPer100Word
	if estimated > s.sampling.MaxTokensCap {
		return s.sampling.MaxTokensCap
	}
	if estimated <= 0 {
		return s.sampling.MaxTokensCap
	}
	return estimated
}
