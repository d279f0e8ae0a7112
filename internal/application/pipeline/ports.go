// Package pipeline 实现多章节故事生成流水线
// 编排器按固定顺序驱动各阶段：世界观 → 角色 → 情节 → 逐章生成与审校 → 文档渲染
package pipeline

import (
	"context"

	"storyforge-api/internal/domain/entity"
)

// TextCompleter 文本补全能力
// 每次调用携带独立采样参数，失败或超时以 error 返回
type TextCompleter interface {
	Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}

// DocumentRenderer 文档渲染能力
// 输入有序章节序列，输出产物路径；扉页/目录/分页由渲染方负责
type DocumentRenderer interface {
	Render(ctx context.Context, projectID, title string, chapters []*entity.Chapter) (string, error)
}
