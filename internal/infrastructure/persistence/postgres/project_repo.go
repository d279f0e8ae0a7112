// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"storyforge-api/internal/domain/entity"
	"storyforge-api/internal/domain/repository"
)

// ProjectRepository 项目仓储实现
type ProjectRepository struct {
	client *Client
}

// NewProjectRepository 创建项目仓储
func NewProjectRepository(client *Client) *ProjectRepository {
	return &ProjectRepository{client: client}
}

// Create 创建项目
func (r *ProjectRepository) Create(ctx context.Context, project *entity.Project) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.Create")
	defer span.End()

	q := getQuerier(ctx, r.client.db)

	worldJSON, _ := json.Marshal(project.World)
	charactersJSON, _ := json.Marshal(project.Characters)
	plotJSON, _ := json.Marshal(project.Plot)

	query := `
		INSERT INTO projects (id, title, target_chapters, target_words_per_chapter,
			world_inputs, character_inputs, plot_inputs, status, current_stage,
			progress_pct, total_word_count, created_at, updated_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, '', 0, 0, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := q.QueryRowContext(ctx, query,
		project.Title, project.TargetChapters, project.TargetWordsPerChapter,
		worldJSON, charactersJSON, plotJSON, project.Status,
	).Scan(&project.ID, &project.CreatedAt, &project.UpdatedAt)

	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create project: %w", err)
	}

	return nil
}

// GetByID 根据 ID 获取项目
func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*entity.Project, error) {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.GetByID")
	defer span.End()

	q := getQuerier(ctx, r.client.db)

	query := `
		SELECT id, title, target_chapters, target_words_per_chapter,
			world_inputs, character_inputs, plot_inputs, status, current_stage,
			progress_pct, total_word_count, artifact_path, error_message,
			created_at, updated_at
		FROM projects
		WHERE id = $1
	`

	var project entity.Project
	var worldJSON, charactersJSON, plotJSON []byte
	var artifactPath, errorMessage sql.NullString

	err := q.QueryRowContext(ctx, query, id).Scan(
		&project.ID, &project.Title, &project.TargetChapters, &project.TargetWordsPerChapter,
		&worldJSON, &charactersJSON, &plotJSON, &project.Status, &project.CurrentStage,
		&project.ProgressPct, &project.TotalWordCount, &artifactPath, &errorMessage,
		&project.CreatedAt, &project.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	json.Unmarshal(worldJSON, &project.World)
	json.Unmarshal(charactersJSON, &project.Characters)
	json.Unmarshal(plotJSON, &project.Plot)
	if artifactPath.Valid {
		project.ArtifactPath = artifactPath.String
	}
	if errorMessage.Valid {
		project.ErrorMessage = errorMessage.String
	}

	return &project, nil
}

// List 获取项目列表
func (r *ProjectRepository) List(ctx context.Context, pagination repository.Pagination) (*repository.PagedResult[*entity.Project], error) {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.List")
	defer span.End()

	q := getQuerier(ctx, r.client.db)

	var total int64
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects`).Scan(&total); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count projects: %w", err)
	}

	query := `
		SELECT id, title, target_chapters, target_words_per_chapter,
			status, current_stage, progress_pct, total_word_count,
			artifact_path, error_message, created_at, updated_at
		FROM projects
		ORDER BY updated_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := q.QueryContext(ctx, query, pagination.Limit(), pagination.Offset())
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*entity.Project
	for rows.Next() {
		var project entity.Project
		var artifactPath, errorMessage sql.NullString

		if err := rows.Scan(
			&project.ID, &project.Title, &project.TargetChapters, &project.TargetWordsPerChapter,
			&project.Status, &project.CurrentStage, &project.ProgressPct, &project.TotalWordCount,
			&artifactPath, &errorMessage, &project.CreatedAt, &project.UpdatedAt,
		); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}

		if artifactPath.Valid {
			project.ArtifactPath = artifactPath.String
		}
		if errorMessage.Valid {
			project.ErrorMessage = errorMessage.String
		}
		projects = append(projects, &project)
	}

	return repository.NewPagedResult(projects, total, pagination), nil
}

// UpdateStatus 更新项目状态
func (r *ProjectRepository) UpdateStatus(ctx context.Context, id string, status entity.ProjectStatus) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.UpdateStatus")
	defer span.End()

	q := getQuerier(ctx, r.client.db)

	query := `UPDATE projects SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err := q.ExecContext(ctx, query, status, id)

	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update project status: %w", err)
	}

	return nil
}

// TryClaimRun 原子抢占运行位
// 条件更新关闭并发启动的 check-then-act 竞态：只有一个调用方能观察到 rows=1
func (r *ProjectRepository) TryClaimRun(ctx context.Context, id string) (bool, error) {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.TryClaimRun")
	defer span.End()

	q := getQuerier(ctx, r.client.db)

	query := `
		UPDATE projects
		SET status = 'running', error_message = NULL, updated_at = NOW()
		WHERE id = $1 AND status <> 'running'
	`

	result, err := q.ExecContext(ctx, query, id)
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to claim run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return rows == 1, nil
}

// RefreshProgress 刷新反规范化进度字段
// GREATEST 保证 running 状态下进度百分比单调不减
func (r *ProjectRepository) RefreshProgress(ctx context.Context, id string, currentStage string, status entity.ProjectStatus, progressPct float64) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.RefreshProgress")
	defer span.End()

	q := getQuerier(ctx, r.client.db)

	query := `
		UPDATE projects
		SET current_stage = $1, status = $2,
			progress_pct = GREATEST(progress_pct, $3),
			updated_at = NOW()
		WHERE id = $4
	`
	_, err := q.ExecContext(ctx, query, currentStage, status, progressPct, id)

	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to refresh progress: %w", err)
	}

	return nil
}

// SetError 记录运行失败信息
func (r *ProjectRepository) SetError(ctx context.Context, id string, message string) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.SetError")
	defer span.End()

	q := getQuerier(ctx, r.client.db)

	query := `UPDATE projects SET status = 'error', error_message = $1, updated_at = NOW() WHERE id = $2`
	_, err := q.ExecContext(ctx, query, message, id)

	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to set project error: %w", err)
	}

	return nil
}

// SetArtifactPath 记录渲染产物位置
func (r *ProjectRepository) SetArtifactPath(ctx context.Context, id string, path string) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.SetArtifactPath")
	defer span.End()

	q := getQuerier(ctx, r.client.db)

	query := `UPDATE projects SET artifact_path = $1, updated_at = NOW() WHERE id = $2`
	_, err := q.ExecContext(ctx, query, path, id)

	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to set artifact path: %w", err)
	}

	return nil
}

// SetTotalWordCount 写入重算后的总字数
func (r *ProjectRepository) SetTotalWordCount(ctx context.Context, id string, total int) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.SetTotalWordCount")
	defer span.End()

	q := getQuerier(ctx, r.client.db)

	query := `UPDATE projects SET total_word_count = $1, updated_at = NOW() WHERE id = $2`
	_, err := q.ExecContext(ctx, query, total, id)

	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to set total word count: %w", err)
	}

	return nil
}

// IncrementWordCount 累加总字数
func (r *ProjectRepository) IncrementWordCount(ctx context.Context, id string, delta int) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.IncrementWordCount")
	defer span.End()

	q := getQuerier(ctx, r.client.db)

	query := `UPDATE projects SET total_word_count = total_word_count + $1, updated_at = NOW() WHERE id = $2`
	_, err := q.ExecContext(ctx, query, delta, id)

	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to increment word count: %w", err)
	}

	return nil
}
