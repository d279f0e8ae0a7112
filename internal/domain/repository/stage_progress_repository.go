// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"storyforge-api/internal/domain/entity"
)

// StageProgressRepository 阶段进度仓储接口
type StageProgressRepository interface {
	// Upsert 以 (project_id, stage) 为键幂等写入阶段进度
	Upsert(ctx context.Context, progress *entity.StageProgress) error

	// ListByProject 返回项目全部阶段进度，按阶段执行顺序排列
	ListByProject(ctx context.Context, projectID string) ([]*entity.StageProgress, error)

	// ResetAll 将项目全部阶段重置为 pending/0
	ResetAll(ctx context.Context, projectID string) error
}
