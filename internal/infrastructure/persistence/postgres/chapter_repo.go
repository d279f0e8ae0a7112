// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"storyforge-api/internal/domain/entity"
)

// ChapterRepository 章节仓储实现
type ChapterRepository struct {
	client *Client
}

// NewChapterRepository 创建章节仓储
func NewChapterRepository(client *Client) *ChapterRepository {
	return &ChapterRepository{client: client}
}

// Append 追加章节到项目章节序列
// (project_id, number) 唯一索引保证章节号不重复
func (r *ChapterRepository) Append(ctx context.Context, chapter *entity.Chapter) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.Append")
	defer span.End()

	q := getQuerier(ctx, r.client.db)

	query := `
		INSERT INTO chapters (id, project_id, number, title, content, word_count,
			check_passed, issues_found, issues_fixed, created_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING id, created_at
	`

	err := q.QueryRowContext(ctx, query,
		chapter.ProjectID, chapter.Number, chapter.Title, chapter.Content, chapter.WordCount,
		chapter.CheckPassed, pq.Array(chapter.IssuesFound), pq.Array(chapter.IssuesFixed),
	).Scan(&chapter.ID, &chapter.CreatedAt)

	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to append chapter: %w", err)
	}

	return nil
}

// ListByProject 按章节号升序返回项目全部章节
func (r *ChapterRepository) ListByProject(ctx context.Context, projectID string) ([]*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.ListByProject")
	defer span.End()

	q := getQuerier(ctx, r.client.db)

	query := `
		SELECT id, project_id, number, title, content, word_count,
			check_passed, issues_found, issues_fixed, created_at
		FROM chapters
		WHERE project_id = $1
		ORDER BY number ASC
	`

	rows, err := q.QueryContext(ctx, query, projectID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list chapters: %w", err)
	}
	defer rows.Close()

	var chapters []*entity.Chapter
	for rows.Next() {
		var chapter entity.Chapter
		if err := rows.Scan(
			&chapter.ID, &chapter.ProjectID, &chapter.Number, &chapter.Title,
			&chapter.Content, &chapter.WordCount, &chapter.CheckPassed,
			pq.Array(&chapter.IssuesFound), pq.Array(&chapter.IssuesFixed),
			&chapter.CreatedAt,
		); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan chapter: %w", err)
		}
		chapters = append(chapters, &chapter)
	}

	return chapters, nil
}

// CountByProject 统计项目已提交章节数
func (r *ChapterRepository) CountByProject(ctx context.Context, projectID string) (int, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.CountByProject")
	defer span.End()

	q := getQuerier(ctx, r.client.db)

	var count int
	query := `SELECT COUNT(*) FROM chapters WHERE project_id = $1`
	if err := q.QueryRowContext(ctx, query, projectID).Scan(&count); err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count chapters: %w", err)
	}

	return count, nil
}
