package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"storyforge-api/internal/domain/entity"
	"storyforge-api/internal/domain/repository"

	apperrors "storyforge-api/pkg/errors"
)

type serviceHarness struct {
	service   *Service
	projects  *fakeProjectRepo
	chapters  *fakeChapterRepo
	stages    *fakeStageRepo
	publisher *fakePublisher
}

func newServiceHarness() *serviceHarness {
	projects := newFakeProjectRepo()
	stages := newFakeStageRepo()
	chapters := newFakeChapterRepo()
	publisher := &fakePublisher{}
	tracker := NewTracker(projects, stages, chapters, nil)
	return &serviceHarness{
		service:   NewService(projects, chapters, tracker, publisher),
		projects:  projects,
		chapters:  chapters,
		stages:    stages,
		publisher: publisher,
	}
}

func assertCode(t *testing.T, err error, code apperrors.ErrorCode) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error")
	}
	appErr := apperrors.AsAppError(err)
	if appErr == nil {
		t.Fatalf("not an AppError: %v", err)
	}
	if appErr.Code != code {
		t.Fatalf("code = %s, want %s", appErr.Code, code)
	}
}

func TestCreateProjectValidation(t *testing.T) {
	h := newServiceHarness()
	ctx := context.Background()

	tests := []struct {
		name    string
		project *entity.Project
	}{
		{"missing title", entity.NewProject("  ", 2, 500)},
		{"zero chapters", entity.NewProject("Valid", 0, 500)},
		{"zero word target", entity.NewProject("Valid", 2, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.service.CreateProject(ctx, tt.project)
			assertCode(t, err, apperrors.CodeInvalidParam)
		})
	}

	// 校验失败不留下任何项目
	result, _ := h.projects.List(ctx, repository.NewPagination(1, 20))
	if len(result.Items) != 0 {
		t.Errorf("rejected input created %d projects", len(result.Items))
	}

	if err := h.service.CreateProject(ctx, entity.NewProject("Valid", 2, 500)); err != nil {
		t.Fatalf("valid project rejected: %v", err)
	}
}

func TestStartGenerationEnqueuesRun(t *testing.T) {
	h := newServiceHarness()
	project := seedProject(t, h.projects)
	ctx := context.Background()

	if err := h.service.StartGeneration(ctx, project.ID, "req-1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	got, _ := h.projects.GetByID(ctx, project.ID)
	if got.Status != entity.ProjectStatusRunning {
		t.Errorf("status = %q, want running", got.Status)
	}
	if len(h.publisher.published) != 1 {
		t.Fatalf("published = %d messages", len(h.publisher.published))
	}
	if h.publisher.published[0].ProjectID != project.ID {
		t.Errorf("published project = %q", h.publisher.published[0].ProjectID)
	}
}

func TestStartGenerationConflict(t *testing.T) {
	h := newServiceHarness()
	project := seedProject(t, h.projects)
	ctx := context.Background()

	if err := h.service.StartGeneration(ctx, project.ID, "req-1"); err != nil {
		t.Fatalf("first start: %v", err)
	}
	stageWrites := h.stages.writes

	err := h.service.StartGeneration(ctx, project.ID, "req-2")
	assertCode(t, err, apperrors.CodeRunConflict)

	// 被拒绝的请求不触碰阶段进度，也不投递消息
	if h.stages.writes != stageWrites {
		t.Error("conflicting start mutated stage progress")
	}
	if len(h.publisher.published) != 1 {
		t.Errorf("published = %d messages, want 1", len(h.publisher.published))
	}
}

// staleReadRepo 模拟读到过期状态的并发窗口：读出 pending，实际已是 running
type staleReadRepo struct {
	*fakeProjectRepo
	stale *entity.Project
}

func (r *staleReadRepo) GetByID(ctx context.Context, id string) (*entity.Project, error) {
	if r.stale != nil && r.stale.ID == id {
		cp := *r.stale
		return &cp, nil
	}
	return r.fakeProjectRepo.GetByID(ctx, id)
}

func TestStartGenerationClaimRace(t *testing.T) {
	h := newServiceHarness()
	project := seedProject(t, h.projects)
	ctx := context.Background()

	// 底层状态已是 running，但读取端拿到的是过期的 pending 副本；
	// 快速检查放行后，条件更新仍须拦下这次启动
	if err := h.projects.UpdateStatus(ctx, project.ID, entity.ProjectStatusRunning); err != nil {
		t.Fatalf("set running: %v", err)
	}
	stale := *project
	stale.Status = entity.ProjectStatusPending

	tracker := NewTracker(h.projects, h.stages, h.chapters, nil)
	service := NewService(&staleReadRepo{fakeProjectRepo: h.projects, stale: &stale}, h.chapters, tracker, h.publisher)

	err := service.StartGeneration(ctx, project.ID, "req-1")
	assertCode(t, err, apperrors.CodeRunConflict)
	if len(h.publisher.published) != 0 {
		t.Errorf("published = %d messages, want 0", len(h.publisher.published))
	}
}

func TestStartGenerationUnknownProject(t *testing.T) {
	h := newServiceHarness()
	err := h.service.StartGeneration(context.Background(), "no-such-project", "req-1")
	assertCode(t, err, apperrors.CodeProjectNotFound)
}

func TestStartGenerationPublishFailureReleasesSlot(t *testing.T) {
	h := newServiceHarness()
	h.publisher.err = errors.New("redis unavailable")
	project := seedProject(t, h.projects)
	ctx := context.Background()

	err := h.service.StartGeneration(ctx, project.ID, "req-1")
	assertCode(t, err, apperrors.CodeQueueError)

	// 运行位被回收，后续启动可再次抢占
	got, _ := h.projects.GetByID(ctx, project.ID)
	if got.Status == entity.ProjectStatusRunning {
		t.Error("run slot not released after publish failure")
	}

	h.publisher.err = nil
	if err := h.service.StartGeneration(ctx, project.ID, "req-2"); err != nil {
		t.Fatalf("retry after release: %v", err)
	}
}

func TestGetProgressUnknownProject(t *testing.T) {
	h := newServiceHarness()
	_, err := h.service.GetProgress(context.Background(), "no-such-project")
	assertCode(t, err, apperrors.CodeProjectNotFound)
}

func TestListChaptersOrdered(t *testing.T) {
	h := newServiceHarness()
	project := seedProject(t, h.projects)
	ctx := context.Background()

	for _, n := range []int{2, 1, 3} {
		ch := entity.NewChapter(project.ID, n, "Title", "some chapter words")
		if err := h.chapters.Append(ctx, ch); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	chapters, err := h.service.ListChapters(ctx, project.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for i, ch := range chapters {
		if ch.Number != i+1 {
			t.Errorf("position %d holds chapter %d", i, ch.Number)
		}
	}
}

func TestArtifactPath(t *testing.T) {
	h := newServiceHarness()
	project := seedProject(t, h.projects)
	ctx := context.Background()

	_, err := h.service.ArtifactPath(ctx, project.ID)
	assertCode(t, err, apperrors.CodeArtifactNotFound)

	// 记录了路径但文件不存在
	if err := h.projects.SetArtifactPath(ctx, project.ID, "/nonexistent/out.pdf"); err != nil {
		t.Fatalf("set path: %v", err)
	}
	_, err = h.service.ArtifactPath(ctx, project.ID)
	assertCode(t, err, apperrors.CodeArtifactNotFound)

	// 文件存在时返回路径
	path := filepath.Join(t.TempDir(), "out.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	if err := h.projects.SetArtifactPath(ctx, project.ID, path); err != nil {
		t.Fatalf("set path: %v", err)
	}
	got, err := h.service.ArtifactPath(ctx, project.ID)
	if err != nil {
		t.Fatalf("artifact path: %v", err)
	}
	if got != path {
		t.Errorf("path = %q, want %q", got, path)
	}
}
