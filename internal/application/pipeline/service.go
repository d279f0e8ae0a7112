package pipeline

import (
	"context"
	"os"

	"storyforge-api/internal/domain/entity"
	"storyforge-api/internal/domain/repository"
	"storyforge-api/internal/infrastructure/messaging"
	"storyforge-api/pkg/errors"
	"storyforge-api/pkg/logger"
)

// RunPublisher 运行消息投递能力
type RunPublisher interface {
	PublishStoryRun(ctx context.Context, run *messaging.StoryRunMessage) (string, error)
}

// Service 面向接口层的生成服务
// 启动请求在这里抢占运行位并投递到队列，实际运行由 worker 侧的编排器执行
type Service struct {
	projects repository.ProjectRepository
	chapters repository.ChapterRepository
	tracker  *Tracker
	producer RunPublisher
}

// NewService 创建生成服务
func NewService(
	projects repository.ProjectRepository,
	chapters repository.ChapterRepository,
	tracker *Tracker,
	producer RunPublisher,
) *Service {
	return &Service{
		projects: projects,
		chapters: chapters,
		tracker:  tracker,
		producer: producer,
	}
}

// CreateProject 创建项目，输入校验失败时不产生任何状态变更
func (s *Service) CreateProject(ctx context.Context, project *entity.Project) error {
	if err := project.Validate(); err != nil {
		return errors.Wrap(err, errors.CodeInvalidParam, "invalid project input")
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to create project")
	}
	return nil
}

// GetProject 获取项目
func (s *Service) GetProject(ctx context.Context, projectID string) (*entity.Project, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to get project")
	}
	if project == nil {
		return nil, errors.New(errors.CodeProjectNotFound, "project not found").WithDetail(projectID)
	}
	return project, nil
}

// ListProjects 分页列出项目
func (s *Service) ListProjects(ctx context.Context, pagination repository.Pagination) (*repository.PagedResult[*entity.Project], error) {
	result, err := s.projects.List(ctx, pagination)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to list projects")
	}
	return result, nil
}

// ListChapters 按章节号升序返回已提交章节
func (s *Service) ListChapters(ctx context.Context, projectID string) ([]*entity.Chapter, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	chapters, err := s.chapters.ListByProject(ctx, projectID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to list chapters")
	}
	return chapters, nil
}

// StartGeneration 启动一次生成运行
// 通过条件更新原子抢占运行位：项目已在 running 时返回冲突错误，
// 不触碰任何阶段进度；抢占成功后投递运行消息，由 worker 异步执行
func (s *Service) StartGeneration(ctx context.Context, projectID, requestID string) error {
	project, err := s.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if err := project.Validate(); err != nil {
		return errors.Wrap(err, errors.CodeInvalidParam, "invalid project input")
	}

	// 已在运行的项目先快速拒绝；互斥本身由下面的条件更新保证
	if project.IsRunning() {
		return errors.New(errors.CodeRunConflict, "generation already running").WithDetail(projectID)
	}

	claimed, err := s.projects.TryClaimRun(ctx, projectID)
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to claim run")
	}
	if !claimed {
		return errors.New(errors.CodeRunConflict, "generation already running").WithDetail(projectID)
	}

	if _, err := s.producer.PublishStoryRun(ctx, &messaging.StoryRunMessage{
		ProjectID: projectID,
		RequestID: requestID,
	}); err != nil {
		// 投递失败时回收运行位，允许调用方重试
		if setErr := s.projects.SetError(ctx, projectID, "failed to enqueue generation run"); setErr != nil {
			logger.Error(ctx, "failed to release run slot", setErr, "project_id", projectID)
		}
		return errors.Wrap(err, errors.CodeQueueError, "failed to enqueue generation run")
	}

	logger.Info(ctx, "generation run enqueued", "project_id", projectID)
	return nil
}

// GetProgress 返回项目进度快照，轮询端永远拿到最近已知状态
func (s *Service) GetProgress(ctx context.Context, projectID string) (*ProgressSnapshot, error) {
	snapshot, err := s.tracker.Snapshot(ctx, projectID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to load progress")
	}
	if snapshot == nil || snapshot.ProjectID == "" {
		return nil, errors.New(errors.CodeProjectNotFound, "project not found").WithDetail(projectID)
	}
	return snapshot, nil
}

// ArtifactPath 返回已渲染产物的路径
func (s *Service) ArtifactPath(ctx context.Context, projectID string) (string, error) {
	project, err := s.GetProject(ctx, projectID)
	if err != nil {
		return "", err
	}
	if project.ArtifactPath == "" {
		return "", errors.New(errors.CodeArtifactNotFound, "artifact not rendered yet").WithDetail(projectID)
	}
	if _, err := os.Stat(project.ArtifactPath); err != nil {
		return "", errors.New(errors.CodeArtifactNotFound, "artifact file missing").WithDetail(project.ArtifactPath)
	}
	return project.ArtifactPath, nil
}
