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

// CheckerStage 对候选章节执行连续性审校
// 审校是增强而非正确性闸门：审校调用本身失败时软通过，不中断运行
type CheckerStage struct {
	completer   TextCompleter
	tracker     *Tracker
	accumulator *Accumulator
	sampling    config.CheckerSampling
	timeout     time.Duration
}

// NewCheckerStage 创建审校阶段
func NewCheckerStage(completer TextCompleter, tracker *Tracker, accumulator *Accumulator, cfg config.PipelineConfig) *CheckerStage {
	return &CheckerStage{
		completer:   completer,
		tracker:     tracker,
		accumulator: accumulator,
		sampling:    cfg.Checker,
		timeout:     cfg.CallTimeout,
	}
}

// CheckAndFix 审校章节并就地落实裁决
// 返回的章节即最终提交版本：无问题则原样通过；有修订正文则替换并重算字数；
// 有问题但无修订时保留原文并标记未通过
func (s *CheckerStage) CheckAndFix(ctx context.Context, projectID string, chapter *entity.Chapter, previous []*entity.Chapter, sc *StageContext) *entity.Chapter {
	ctx, span := stageTracer.Start(ctx, "stage.Checker")
	defer span.End()

	ctx = logger.WithContext(ctx, logger.StageKey, entity.StageChecker)
	start := time.Now()

	pct := float64(chapter.Number) / float64(sc.ChapterCount) * 100
	task := fmt.Sprintf("Checking Chapter %d", chapter.Number)
	_ = s.tracker.Report(ctx, projectID, entity.StageChecker, entity.StageStatusRunning, pct, task, "")

	prompt := buildCheckerPrompt(
		chapter,
		s.accumulator.CheckerChapterSummary(previous),
		sc,
		s.accumulator.ProfilesJSON(sc.Profiles),
	)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	response, err := s.completer.Complete(callCtx, prompt, s.sampling.MaxTokens, s.sampling.Temperature)
	if err != nil {
		// 软失败：记录错误、标记通过并附上合成的问题条目，继续下一章
		span.RecordError(err)
		logger.Error(ctx, "sequential check failed, continuing", err, "chapter", chapter.Number)
		metrics.CheckerVerdictsTotal.WithLabelValues("soft_failed").Inc()
		chapter.CheckPassed = true
		chapter.IssuesFound = []string{fmt.Sprintf("Checker error: %s", err.Error())}
		return chapter
	}

	verdict := ParseVerdict(response)
	applyVerdict(chapter, verdict)

	metrics.StageDuration.WithLabelValues(entity.StageChecker).Observe(time.Since(start).Seconds())
	metrics.CheckerVerdictsTotal.WithLabelValues(verdictLabel(verdict)).Inc()
	logger.Info(ctx, "chapter checked",
		"chapter", chapter.Number,
		"passed", chapter.CheckPassed,
		"issues", len(chapter.IssuesFound),
	)

	return chapter
}

// applyVerdict 把裁决落实到章节上
func applyVerdict(chapter *entity.Chapter, v *Verdict) {
	if v.Passed && len(v.Issues) == 0 && v.RevisedContent == "" {
		chapter.CheckPassed = true
		chapter.IssuesFound = []string{}
		chapter.IssuesFixed = []string{}
		return
	}

	if v.RevisedContent != "" {
		chapter.SetContent(v.RevisedContent)
	}
	chapter.CheckPassed = len(v.Issues) == 0
	chapter.IssuesFound = v.Issues
	chapter.IssuesFixed = v.Fixes
}

func verdictLabel(v *Verdict) string {
	switch {
	case v.Passed && len(v.Issues) == 0 && v.RevisedContent == "":
		return "approved"
	case v.RevisedContent != "":
		return "revised"
	default:
		return "flagged"
	}
}
