// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"storyforge-api/internal/domain/entity"
)

// ProjectRepository 项目仓储接口
type ProjectRepository interface {
	// Create 创建项目
	Create(ctx context.Context, project *entity.Project) error

	// GetByID 根据 ID 获取项目
	GetByID(ctx context.Context, id string) (*entity.Project, error)

	// List 获取项目列表
	List(ctx context.Context, pagination Pagination) (*PagedResult[*entity.Project], error)

	// UpdateStatus 更新项目状态
	UpdateStatus(ctx context.Context, id string, status entity.ProjectStatus) error

	// TryClaimRun 原子抢占运行位：仅当项目不处于 running 状态时置为 running
	// 返回是否抢占成功，用于关闭并发启动的 check-then-act 竞态
	TryClaimRun(ctx context.Context, id string) (bool, error)

	// RefreshProgress 刷新项目的反规范化进度字段
	// 进度百分比只增不减（由存储层保证单调）
	RefreshProgress(ctx context.Context, id string, currentStage string, status entity.ProjectStatus, progressPct float64) error

	// SetError 记录运行失败信息
	SetError(ctx context.Context, id string, message string) error

	// SetArtifactPath 记录渲染产物位置
	SetArtifactPath(ctx context.Context, id string, path string) error

	// SetTotalWordCount 写入重算后的总字数
	SetTotalWordCount(ctx context.Context, id string, total int) error

	// IncrementWordCount 累加总字数
	IncrementWordCount(ctx context.Context, id string, delta int) error
}
