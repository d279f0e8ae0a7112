// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"storyforge-api/internal/domain/entity"
)

// ChapterRepository 章节仓储接口
type ChapterRepository interface {
	// Append 追加章节到项目章节序列
	// 章节号在项目内唯一，提交后不可变
	Append(ctx context.Context, chapter *entity.Chapter) error

	// ListByProject 按章节号升序返回项目全部章节
	ListByProject(ctx context.Context, projectID string) ([]*entity.Chapter, error)

	// CountByProject 统计项目已提交章节数
	CountByProject(ctx context.Context, projectID string) (int, error)
}
