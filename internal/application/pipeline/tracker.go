package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"storyforge-api/internal/domain/entity"
	"storyforge-api/internal/domain/repository"
	"storyforge-api/internal/infrastructure/persistence/redis"
	"storyforge-api/pkg/logger"
)

const progressCacheTTL = 2 * time.Second

// errSnapshotMissing 阻止未知项目的空快照进入缓存，
// 否则刚创建的项目会在 TTL 内被误判为不存在
var errSnapshotMissing = errors.New("progress snapshot missing")

// Tracker 记录阶段与项目两级进度
// 每次 Report 同时刷新项目的 current_stage / progress_pct 反规范化字段，
// 使轮询端单次读取即可拿到完整状态
type Tracker struct {
	projects repository.ProjectRepository
	stages   repository.StageProgressRepository
	chapters repository.ChapterRepository
	cache    *redis.Cache
}

// NewTracker 创建进度追踪器
func NewTracker(
	projects repository.ProjectRepository,
	stages repository.StageProgressRepository,
	chapters repository.ChapterRepository,
	cache *redis.Cache,
) *Tracker {
	return &Tracker{
		projects: projects,
		stages:   stages,
		chapters: chapters,
		cache:    cache,
	}
}

// Report 幂等写入阶段进度并同步刷新项目整体进度
// pct 为阶段内百分比（0-100），整体进度由阶段区间映射得出
func (t *Tracker) Report(ctx context.Context, projectID, stage string, status entity.StageStatus, pct float64, task, errMsg string) error {
	if err := t.stages.Upsert(ctx, &entity.StageProgress{
		ProjectID:   projectID,
		Stage:       stage,
		Status:      status,
		ProgressPct: pct,
		CurrentTask: task,
		ErrorMsg:    errMsg,
	}); err != nil {
		return err
	}

	projectStatus := entity.ProjectStatusRunning
	if status == entity.StageStatusError {
		projectStatus = entity.ProjectStatusError
	}

	if err := t.projects.RefreshProgress(ctx, projectID, stage, projectStatus, overallPct(stage, pct)); err != nil {
		return err
	}

	// 缓存失效失败只影响快照新鲜度，不阻断流水线
	if t.cache != nil {
		if err := t.cache.InvalidateProgress(ctx, projectID); err != nil {
			logger.Warn(ctx, "failed to invalidate progress cache", "project_id", projectID)
		}
	}

	return nil
}

// ResetAll 在一次运行开始时把全部阶段重置为 pending/0
func (t *Tracker) ResetAll(ctx context.Context, projectID string) error {
	if err := t.stages.ResetAll(ctx, projectID); err != nil {
		return err
	}
	if t.cache != nil {
		_ = t.cache.InvalidateProgress(ctx, projectID)
	}
	return nil
}

// ProgressSnapshot 项目进度快照
type ProgressSnapshot struct {
	ProjectID       string                  `json:"project_id"`
	OverallStatus   entity.ProjectStatus    `json:"overall_status"`
	OverallProgress float64                 `json:"overall_progress"`
	CurrentStage    string                  `json:"current_stage,omitempty"`
	ErrorMessage    string                  `json:"error_message,omitempty"`
	TotalChapters   int                     `json:"total_chapters"`
	TotalWords      int                     `json:"total_words"`
	Stages          []*entity.StageProgress `json:"stages"`
}

// Snapshot 返回项目状态加全部阶段进度
// 短 TTL 缓存吸收 UI 高频轮询，缓存不可用时直接回源存储
func (t *Tracker) Snapshot(ctx context.Context, projectID string) (*ProgressSnapshot, error) {
	if t.cache == nil {
		return t.loadSnapshot(ctx, projectID)
	}

	data, err := t.cache.GetOrLoadSafe(ctx, redis.ProgressKey(projectID), progressCacheTTL, func() (interface{}, error) {
		return t.snapshotForCache(ctx, projectID)
	})
	if err != nil {
		if errors.Is(err, errSnapshotMissing) {
			return nil, nil
		}
		if redis.IsNil(err) {
			return t.loadSnapshot(ctx, projectID)
		}
		return nil, err
	}

	var snapshot ProgressSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return t.loadSnapshot(ctx, projectID)
	}
	return &snapshot, nil
}

// snapshotForCache 作为缓存加载器使用：未知项目返回错误而非空值
func (t *Tracker) snapshotForCache(ctx context.Context, projectID string) (interface{}, error) {
	snapshot, err := t.loadSnapshot(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, errSnapshotMissing
	}
	return snapshot, nil
}

func (t *Tracker) loadSnapshot(ctx context.Context, projectID string) (*ProgressSnapshot, error) {
	project, err := t.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, nil
	}

	stages, err := t.stages.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	chapterCount, err := t.chapters.CountByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	return &ProgressSnapshot{
		ProjectID:       project.ID,
		OverallStatus:   project.Status,
		OverallProgress: project.ProgressPct,
		CurrentStage:    project.CurrentStage,
		ErrorMessage:    project.ErrorMessage,
		TotalChapters:   chapterCount,
		TotalWords:      project.TotalWordCount,
		Stages:          stages,
	}, nil
}
