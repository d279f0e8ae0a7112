package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"time"

	"storyforge-api/internal/config"
	"storyforge-api/internal/domain/entity"
	"storyforge-api/internal/domain/repository"
	"storyforge-api/internal/infrastructure/messaging"
)

// 内存仓储实现，语义与存储层一致：条件更新抢占运行位、
// 进度刷新单调钳制、章节按序追加

type fakeProjectRepo struct {
	mu       sync.Mutex
	projects map[string]*entity.Project
}

func newFakeProjectRepo() *fakeProjectRepo {
	return &fakeProjectRepo{projects: map[string]*entity.Project{}}
}

func (r *fakeProjectRepo) Create(_ context.Context, p *entity.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == "" {
		p.ID = fmt.Sprintf("project-%d", len(r.projects)+1)
	}
	cp := *p
	r.projects[p.ID] = &cp
	return nil
}

func (r *fakeProjectRepo) GetByID(_ context.Context, id string) (*entity.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProjectRepo) List(_ context.Context, pagination repository.Pagination) (*repository.PagedResult[*entity.Project], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]*entity.Project, 0, len(r.projects))
	for _, p := range r.projects {
		cp := *p
		items = append(items, &cp)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return repository.NewPagedResult(items, int64(len(items)), pagination), nil
}

func (r *fakeProjectRepo) UpdateStatus(_ context.Context, id string, status entity.ProjectStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.projects[id]; ok {
		p.Status = status
	}
	return nil
}

func (r *fakeProjectRepo) TryClaimRun(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok || p.Status == entity.ProjectStatusRunning {
		return false, nil
	}
	p.Status = entity.ProjectStatusRunning
	p.ErrorMessage = ""
	return true, nil
}

func (r *fakeProjectRepo) RefreshProgress(_ context.Context, id string, currentStage string, status entity.ProjectStatus, progressPct float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return nil
	}
	p.CurrentStage = currentStage
	p.Status = status
	if progressPct > p.ProgressPct {
		p.ProgressPct = progressPct
	}
	return nil
}

func (r *fakeProjectRepo) SetError(_ context.Context, id string, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.projects[id]; ok {
		p.Status = entity.ProjectStatusError
		p.ErrorMessage = message
	}
	return nil
}

func (r *fakeProjectRepo) SetArtifactPath(_ context.Context, id string, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.projects[id]; ok {
		p.ArtifactPath = path
	}
	return nil
}

func (r *fakeProjectRepo) SetTotalWordCount(_ context.Context, id string, total int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.projects[id]; ok {
		p.TotalWordCount = total
	}
	return nil
}

func (r *fakeProjectRepo) IncrementWordCount(_ context.Context, id string, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.projects[id]; ok {
		p.TotalWordCount += delta
	}
	return nil
}

type fakeChapterRepo struct {
	mu       sync.Mutex
	chapters map[string][]*entity.Chapter
}

func newFakeChapterRepo() *fakeChapterRepo {
	return &fakeChapterRepo{chapters: map[string][]*entity.Chapter{}}
}

func (r *fakeChapterRepo) Append(_ context.Context, ch *entity.Chapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.chapters[ch.ProjectID] {
		if existing.Number == ch.Number {
			return fmt.Errorf("duplicate chapter number %d", ch.Number)
		}
	}
	cp := *ch
	r.chapters[ch.ProjectID] = append(r.chapters[ch.ProjectID], &cp)
	return nil
}

func (r *fakeChapterRepo) ListByProject(_ context.Context, projectID string) ([]*entity.Chapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.Chapter, len(r.chapters[projectID]))
	copy(out, r.chapters[projectID])
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (r *fakeChapterRepo) CountByProject(_ context.Context, projectID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.chapters[projectID]), nil
}

type fakeStageRepo struct {
	mu     sync.Mutex
	rows   map[string]map[string]*entity.StageProgress
	writes int
}

func newFakeStageRepo() *fakeStageRepo {
	return &fakeStageRepo{rows: map[string]map[string]*entity.StageProgress{}}
}

func (r *fakeStageRepo) Upsert(_ context.Context, p *entity.StageProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rows[p.ProjectID] == nil {
		r.rows[p.ProjectID] = map[string]*entity.StageProgress{}
	}
	cp := *p
	r.rows[p.ProjectID][p.Stage] = &cp
	r.writes++
	return nil
}

func (r *fakeStageRepo) ListByProject(_ context.Context, projectID string) ([]*entity.StageProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*entity.StageProgress{}
	for _, stage := range entity.AllStages() {
		if row, ok := r.rows[projectID][stage]; ok {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeStageRepo) ResetAll(_ context.Context, projectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := map[string]*entity.StageProgress{}
	for _, stage := range entity.AllStages() {
		rows[stage] = &entity.StageProgress{
			ProjectID: projectID,
			Stage:     stage,
			Status:    entity.StageStatusPending,
		}
	}
	r.rows[projectID] = rows
	return nil
}

func (r *fakeStageRepo) get(projectID, stage string) *entity.StageProgress {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[projectID][stage]; ok {
		cp := *row
		return &cp
	}
	return nil
}

// fakeTransactor 记录事务次数并直接执行回调
type fakeTransactor struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (t *fakeTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	t.calls++
	err := t.err
	t.mu.Unlock()
	if err != nil {
		return err
	}
	return fn(ctx)
}

// fakeCompleter 按调用脚本返回响应
type fakeCompleter struct {
	mu      sync.Mutex
	respond func(call int, prompt string) (string, error)
	calls   int
	prompts []string
}

func (c *fakeCompleter) Complete(_ context.Context, prompt string, _ int, _ float64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.prompts = append(c.prompts, prompt)
	return c.respond(c.calls, prompt)
}

type fakeRenderer struct {
	mu       sync.Mutex
	rendered []*entity.Chapter
	title    string
	err      error
}

func (r *fakeRenderer) Render(_ context.Context, projectID, title string, chapters []*entity.Chapter) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	r.title = title
	r.rendered = chapters
	return "/tmp/artifacts/" + projectID + ".pdf", nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []*messaging.StoryRunMessage
	err       error
}

func (p *fakePublisher) PublishStoryRun(_ context.Context, run *messaging.StoryRunMessage) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.published = append(p.published, run)
	return fmt.Sprintf("msg-%d", len(p.published)), nil
}

func testPipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{
		CallTimeout: time.Minute,
		World:       config.StageSampling{MaxTokens: 2000, Temperature: 0.3},
		Character:   config.StageSampling{MaxTokens: 1500, Temperature: 0.4},
		Plot:        config.StageSampling{MaxTokens: 3000, Temperature: 0.3},
		Prose:       config.ProseSampling{MaxTokensCap: 4000, TokensPer100Word: 150, Temperature: 0.7},
		Checker:     config.CheckerSampling{MaxTokens: 4000, Temperature: 0.2},
		Context: config.ContextConfig{
			ProseWindow:       2,
			ProseTailChars:    200,
			CheckerWindow:     3,
			CheckerTailChars:  150,
			ProfileLimitChars: 1000,
		},
	}
}
