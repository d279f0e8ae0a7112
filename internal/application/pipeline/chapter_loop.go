package pipeline

import (
	"context"
	"fmt"

	"storyforge-api/internal/domain/entity"
	"storyforge-api/internal/domain/repository"
	"storyforge-api/pkg/logger"
)

// ChapterLoop 逐章执行生成 → 审校 → 提交的循环
// 章节间存在显式顺序依赖（后章上下文依赖前章已提交内容），不做并行展开；
// 提交是持久化单元，中途崩溃只丢当前章，已提交章节保留
type ChapterLoop struct {
	prose    *ProseStage
	checker  *CheckerStage
	chapters repository.ChapterRepository
	projects repository.ProjectRepository
	tx       repository.Transactor
	tracker  *Tracker
}

// NewChapterLoop 创建逐章循环
func NewChapterLoop(
	prose *ProseStage,
	checker *CheckerStage,
	chapters repository.ChapterRepository,
	projects repository.ProjectRepository,
	tx repository.Transactor,
	tracker *Tracker,
) *ChapterLoop {
	return &ChapterLoop{
		prose:    prose,
		checker:  checker,
		chapters: chapters,
		projects: projects,
		tx:       tx,
		tracker:  tracker,
	}
}

// Run 生成全部 N 章并返回提交后的章节序列
func (l *ChapterLoop) Run(ctx context.Context, projectID string, sc *StageContext, targetWords int) ([]*entity.Chapter, error) {
	ctx, span := stageTracer.Start(ctx, "pipeline.ChapterLoop")
	defer span.End()

	committed := make([]*entity.Chapter, 0, sc.ChapterCount)

	for n := 1; n <= sc.ChapterCount; n++ {
		logger.Info(ctx, "generating chapter", "chapter", n, "total", sc.ChapterCount)

		chapter, err := l.prose.Generate(ctx, projectID, n, committed, sc, targetWords)
		if err != nil {
			span.RecordError(err)
			return committed, fmt.Errorf("chapter %d generation failed: %w", n, err)
		}

		chapter = l.checker.CheckAndFix(ctx, projectID, chapter, committed, sc)

		// 提交：章节落库 + 总字数累加在同一事务内，这一步之后本章不可变
		err = l.tx.WithTransaction(ctx, func(ctx context.Context) error {
			if err := l.chapters.Append(ctx, chapter); err != nil {
				return err
			}
			return l.projects.IncrementWordCount(ctx, projectID, chapter.WordCount)
		})
		if err != nil {
			span.RecordError(err)
			return committed, fmt.Errorf("chapter %d commit failed: %w", n, err)
		}

		committed = append(committed, chapter)

		outcome := "PASSED"
		if !chapter.CheckPassed {
			outcome = "FLAGGED"
		} else if len(chapter.IssuesFixed) > 0 {
			outcome = "ISSUES FIXED"
		}
		logger.Info(ctx, "chapter committed", "chapter", n, "words", chapter.WordCount, "check", outcome)
	}

	if err := l.tracker.Report(ctx, projectID, entity.StageProse, entity.StageStatusCompleted, 100, "All chapters completed", ""); err != nil {
		return committed, err
	}
	if err := l.tracker.Report(ctx, projectID, entity.StageChecker, entity.StageStatusCompleted, 100, "All chapters checked", ""); err != nil {
		return committed, err
	}

	return committed, nil
}
