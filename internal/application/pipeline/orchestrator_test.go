package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"storyforge-api/internal/domain/entity"
)

// 调用序：1=world 2..k=character k+1=plot 之后每章 prose、checker 交替
type runHarness struct {
	orchestrator *Orchestrator
	completer    *fakeCompleter
	projects     *fakeProjectRepo
	chapters     *fakeChapterRepo
	stages       *fakeStageRepo
	renderer     *fakeRenderer
	tx           *fakeTransactor
}

func newRunHarness(respond func(call int, prompt string) (string, error)) *runHarness {
	projects := newFakeProjectRepo()
	stages := newFakeStageRepo()
	chapters := newFakeChapterRepo()
	tracker := NewTracker(projects, stages, chapters, nil)

	cfg := testPipelineConfig()
	completer := &fakeCompleter{respond: respond}
	accumulator := NewAccumulator(cfg.Context)
	renderer := &fakeRenderer{}
	tx := &fakeTransactor{}

	loop := NewChapterLoop(
		NewProseStage(completer, tracker, accumulator, cfg),
		NewCheckerStage(completer, tracker, accumulator, cfg),
		chapters, projects, tx, tracker,
	)
	orchestrator := NewOrchestrator(
		NewWorldStage(completer, tracker, cfg),
		NewCharacterStage(completer, tracker, cfg),
		NewPlotStage(completer, tracker, cfg),
		loop, renderer, tracker, projects, chapters,
	)

	return &runHarness{
		orchestrator: orchestrator,
		completer:    completer,
		projects:     projects,
		chapters:     chapters,
		stages:       stages,
		renderer:     renderer,
		tx:           tx,
	}
}

func (h *runHarness) seed(t *testing.T, chapters int) *entity.Project {
	t.Helper()
	project := entity.NewProject("The Hollow Crown", chapters, 400)
	project.World = &entity.WorldInputs{StoryWorldSummary: "A fractured kingdom after the king vanished."}
	project.Characters = []entity.CharacterInput{
		{Name: "Kaelen", Archetype: "reluctant heir", PlotRoleTag: "protagonist"},
		{Name: "Mira", Archetype: "spy", PlotRoleTag: "minor"},
	}
	project.Plot = &entity.PlotInputs{ForeshadowingSeeds: "The crown hums near the old well."}
	if err := h.projects.Create(context.Background(), project); err != nil {
		t.Fatalf("seed project: %v", err)
	}
	return project
}

// scriptedRun 基线脚本：全部章节一次通过审校
func scriptedRun(totalChapters int) func(call int, prompt string) (string, error) {
	const fixedCalls = 4 // world + 2 characters + plot
	return func(call int, prompt string) (string, error) {
		switch {
		case call == 1:
			return "WORLD BIBLE\nThe kingdom of Vael sits on salt cliffs.", nil
		case call <= 3:
			return "CHARACTER PROFILE\nDetailed profile text.", nil
		case call == 4:
			return "PLOT STRUCTURE\nThree-act structure with rising tension.", nil
		}
		chapterCall := call - fixedCalls // 1-based: odd=prose even=checker
		if chapterCall%2 == 1 {
			n := (chapterCall + 1) / 2
			if n > totalChapters {
				return "", errors.New("unexpected prose call")
			}
			return "Chapter " + string(rune('0'+n)) + ": The Gate\n\nKaelen walked through the salt wind toward the gate.", nil
		}
		return "APPROVED", nil
	}
}

func TestRunHappyPath(t *testing.T) {
	h := newRunHarness(scriptedRun(2))
	project := h.seed(t, 2)
	ctx := context.Background()

	if err := h.orchestrator.Run(ctx, project.ID); err != nil {
		t.Fatalf("run: %v", err)
	}

	got, _ := h.projects.GetByID(ctx, project.ID)
	if got.Status != entity.ProjectStatusCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
	if got.ProgressPct != 100 {
		t.Errorf("progress = %v, want 100", got.ProgressPct)
	}
	if got.ArtifactPath == "" {
		t.Error("artifact path not recorded")
	}

	chapters, _ := h.chapters.ListByProject(ctx, project.ID)
	if len(chapters) != 2 {
		t.Fatalf("chapters = %d, want 2", len(chapters))
	}
	for i, ch := range chapters {
		if ch.Number != i+1 {
			t.Errorf("chapter %d has number %d", i, ch.Number)
		}
		if !ch.CheckPassed {
			t.Errorf("chapter %d not marked passed", ch.Number)
		}
		if len(ch.IssuesFound) != 0 {
			t.Errorf("chapter %d has issues %v", ch.Number, ch.IssuesFound)
		}
	}

	// 最终总字数等于已提交章节字数之和
	sum := 0
	for _, ch := range chapters {
		sum += ch.WordCount
	}
	if got.TotalWordCount != sum {
		t.Errorf("total words = %d, want %d", got.TotalWordCount, sum)
	}

	if h.renderer.title != project.Title || len(h.renderer.rendered) != 2 {
		t.Errorf("renderer received title=%q chapters=%d", h.renderer.title, len(h.renderer.rendered))
	}

	// 4 次固定调用 + 每章 prose/checker 各一次
	if h.completer.calls != 4+2*2 {
		t.Errorf("llm calls = %d, want %d", h.completer.calls, 4+2*2)
	}

	// 每章一次提交事务（落库 + 字数累加为一个持久化单元）
	if h.tx.calls != 2 {
		t.Errorf("commit transactions = %d, want 2", h.tx.calls)
	}
}

func TestRunCommitFailureAbortsRun(t *testing.T) {
	h := newRunHarness(scriptedRun(2))
	h.tx.err = errors.New("connection reset during commit")
	project := h.seed(t, 2)
	ctx := context.Background()

	err := h.orchestrator.Run(ctx, project.ID)
	if err == nil {
		t.Fatal("expected commit failure to surface")
	}
	if !strings.Contains(err.Error(), "chapter 1 commit failed") {
		t.Errorf("error = %v", err)
	}

	// 事务未执行时章节与字数都不落地
	chapters, _ := h.chapters.ListByProject(ctx, project.ID)
	if len(chapters) != 0 {
		t.Errorf("chapters = %d, want 0", len(chapters))
	}
	got, _ := h.projects.GetByID(ctx, project.ID)
	if got.TotalWordCount != 0 {
		t.Errorf("total words = %d, want 0", got.TotalWordCount)
	}
	if got.Status != entity.ProjectStatusError {
		t.Errorf("status = %q, want error", got.Status)
	}
}

func TestRunCheckerFlagsWithoutRevision(t *testing.T) {
	h := newRunHarness(func(call int, prompt string) (string, error) {
		base := scriptedRun(1)
		if call == 6 { // 第 1 章审校：有问题但不给修订稿
			return "ISSUES_FOUND:\n- Weather contradicts the previous scene\n\nFIXES_NEEDED:\n- Reconcile the storm timeline", nil
		}
		return base(call, prompt)
	})
	project := h.seed(t, 1)
	ctx := context.Background()

	if err := h.orchestrator.Run(ctx, project.ID); err != nil {
		t.Fatalf("flagged chapter must not abort run: %v", err)
	}

	chapters, _ := h.chapters.ListByProject(ctx, project.ID)
	if len(chapters) != 1 {
		t.Fatalf("chapters = %d, want 1", len(chapters))
	}
	ch := chapters[0]
	// 无修订稿时原文原样提交
	if ch.Content != "Kaelen walked through the salt wind toward the gate." {
		t.Errorf("content = %q, want original body", ch.Content)
	}
	if ch.CheckPassed {
		t.Error("flagged chapter should not be marked passed")
	}
	if len(ch.IssuesFound) != 1 || len(ch.IssuesFixed) != 1 {
		t.Errorf("issues = %v fixes = %v", ch.IssuesFound, ch.IssuesFixed)
	}

	got, _ := h.projects.GetByID(ctx, project.ID)
	if got.Status != entity.ProjectStatusCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
}

func TestRunProseFailureKeepsCommittedChapters(t *testing.T) {
	base := scriptedRun(3)
	h := newRunHarness(func(call int, prompt string) (string, error) {
		// 第 2 章正文调用（固定 4 次 + 章1 两次之后的第 7 次）失败
		if call == 7 {
			return "", errors.New("llm provider unavailable")
		}
		return base(call, prompt)
	})
	project := h.seed(t, 3)
	ctx := context.Background()

	err := h.orchestrator.Run(ctx, project.ID)
	if err == nil {
		t.Fatal("expected run to fail")
	}
	if !strings.Contains(err.Error(), "chapter 2 generation failed") {
		t.Errorf("error = %v", err)
	}

	got, _ := h.projects.GetByID(ctx, project.ID)
	if got.Status != entity.ProjectStatusError {
		t.Errorf("status = %q, want error", got.Status)
	}
	if got.ErrorMessage == "" {
		t.Error("error message not persisted")
	}

	// 第 1 章已提交且可取，第 2、3 章不存在
	chapters, _ := h.chapters.ListByProject(ctx, project.ID)
	if len(chapters) != 1 || chapters[0].Number != 1 {
		t.Fatalf("committed chapters = %v", chapters)
	}

	row := h.stages.get(project.ID, entity.StageProse)
	if row == nil || row.Status != entity.StageStatusError {
		t.Errorf("prose stage row = %+v", row)
	}
}

func TestRunCheckerRevisionReplacesContent(t *testing.T) {
	revised := "Kaelen reached the gate at dawn, the crown humming against his chest."
	h := newRunHarness(func(call int, prompt string) (string, error) {
		base := scriptedRun(1)
		if call == 6 { // 第 1 章的审校调用
			return "ISSUES_FOUND:\n- Timeline gap at the gate\n\nFIXES_NEEDED:\n- Anchor the scene at dawn\n\nREVISED_CONTENT:\n" + revised, nil
		}
		return base(call, prompt)
	})
	project := h.seed(t, 1)
	ctx := context.Background()

	if err := h.orchestrator.Run(ctx, project.ID); err != nil {
		t.Fatalf("run: %v", err)
	}

	chapters, _ := h.chapters.ListByProject(ctx, project.ID)
	if len(chapters) != 1 {
		t.Fatalf("chapters = %d", len(chapters))
	}
	ch := chapters[0]
	if ch.Content != revised {
		t.Errorf("content = %q, want revised text", ch.Content)
	}
	if ch.CheckPassed {
		t.Error("chapter with issues should not be marked passed")
	}
	if len(ch.IssuesFound) != 1 || len(ch.IssuesFixed) != 1 {
		t.Errorf("issues = %v fixes = %v", ch.IssuesFound, ch.IssuesFixed)
	}
	if ch.WordCount != len(strings.Fields(revised)) {
		t.Errorf("word count = %d, want recount of revised text", ch.WordCount)
	}

	// 审校修订不阻断运行
	got, _ := h.projects.GetByID(ctx, project.ID)
	if got.Status != entity.ProjectStatusCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
}

func TestRunCheckerErrorSoftFails(t *testing.T) {
	h := newRunHarness(func(call int, prompt string) (string, error) {
		base := scriptedRun(2)
		if call == 6 { // 第 1 章审校失败
			return "", errors.New("checker model timeout")
		}
		return base(call, prompt)
	})
	project := h.seed(t, 2)
	ctx := context.Background()

	if err := h.orchestrator.Run(ctx, project.ID); err != nil {
		t.Fatalf("checker failure must not abort run: %v", err)
	}

	chapters, _ := h.chapters.ListByProject(ctx, project.ID)
	if len(chapters) != 2 {
		t.Fatalf("chapters = %d, want 2", len(chapters))
	}

	first := chapters[0]
	if !first.CheckPassed {
		t.Error("soft-failed check should mark chapter passed")
	}
	if len(first.IssuesFound) != 1 || !strings.Contains(first.IssuesFound[0], "Checker error:") {
		t.Errorf("issues = %v, want synthesized checker-error entry", first.IssuesFound)
	}

	got, _ := h.projects.GetByID(ctx, project.ID)
	if got.Status != entity.ProjectStatusCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
}

func TestRunRenderFailureMarksError(t *testing.T) {
	h := newRunHarness(scriptedRun(1))
	h.renderer.err = errors.New("disk full")
	project := h.seed(t, 1)
	ctx := context.Background()

	err := h.orchestrator.Run(ctx, project.ID)
	if err == nil {
		t.Fatal("expected render failure to surface")
	}

	got, _ := h.projects.GetByID(ctx, project.ID)
	if got.Status != entity.ProjectStatusError {
		t.Errorf("status = %q, want error", got.Status)
	}
	// 已提交章节在渲染失败后保留
	chapters, _ := h.chapters.ListByProject(ctx, project.ID)
	if len(chapters) != 1 {
		t.Errorf("chapters = %d, want 1", len(chapters))
	}
}

func TestRunUnknownProject(t *testing.T) {
	h := newRunHarness(scriptedRun(1))
	if err := h.orchestrator.Run(context.Background(), "no-such-project"); err == nil {
		t.Fatal("expected error for unknown project")
	}
	if h.completer.calls != 0 {
		t.Errorf("no llm calls expected, got %d", h.completer.calls)
	}
}
