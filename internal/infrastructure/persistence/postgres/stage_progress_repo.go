// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"storyforge-api/internal/domain/entity"
)

// StageProgressRepository 阶段进度仓储实现
type StageProgressRepository struct {
	client *Client
}

// NewStageProgressRepository 创建阶段进度仓储
func NewStageProgressRepository(client *Client) *StageProgressRepository {
	return &StageProgressRepository{client: client}
}

// Upsert 以 (project_id, stage) 为键幂等写入阶段进度
func (r *StageProgressRepository) Upsert(ctx context.Context, progress *entity.StageProgress) error {
	ctx, span := tracer.Start(ctx, "postgres.StageProgressRepository.Upsert")
	defer span.End()

	q := getQuerier(ctx, r.client.db)

	query := `
		INSERT INTO stage_progress (project_id, stage, status, progress_pct, current_task, error_message, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (project_id, stage) DO UPDATE
		SET status = EXCLUDED.status,
			progress_pct = EXCLUDED.progress_pct,
			current_task = EXCLUDED.current_task,
			error_message = EXCLUDED.error_message,
			updated_at = NOW()
		RETURNING updated_at
	`

	err := q.QueryRowContext(ctx, query,
		progress.ProjectID, progress.Stage, progress.Status,
		progress.ProgressPct, progress.CurrentTask, progress.ErrorMsg,
	).Scan(&progress.UpdatedAt)

	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to upsert stage progress: %w", err)
	}

	return nil
}

// ListByProject 返回项目全部阶段进度
func (r *StageProgressRepository) ListByProject(ctx context.Context, projectID string) ([]*entity.StageProgress, error) {
	ctx, span := tracer.Start(ctx, "postgres.StageProgressRepository.ListByProject")
	defer span.End()

	q := getQuerier(ctx, r.client.db)

	query := `
		SELECT project_id, stage, status, progress_pct, current_task, error_message, updated_at
		FROM stage_progress
		WHERE project_id = $1
		ORDER BY array_position(ARRAY['world','character','plot','prose','checker','renderer'], stage)
	`

	rows, err := q.QueryContext(ctx, query, projectID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list stage progress: %w", err)
	}
	defer rows.Close()

	var result []*entity.StageProgress
	for rows.Next() {
		var p entity.StageProgress
		var task, errMsg sql.NullString
		if err := rows.Scan(
			&p.ProjectID, &p.Stage, &p.Status, &p.ProgressPct, &task, &errMsg, &p.UpdatedAt,
		); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan stage progress: %w", err)
		}
		if task.Valid {
			p.CurrentTask = task.String
		}
		if errMsg.Valid {
			p.ErrorMsg = errMsg.String
		}
		result = append(result, &p)
	}

	return result, nil
}

// ResetAll 将项目全部阶段重置为 pending/0
func (r *StageProgressRepository) ResetAll(ctx context.Context, projectID string) error {
	ctx, span := tracer.Start(ctx, "postgres.StageProgressRepository.ResetAll")
	defer span.End()

	q := getQuerier(ctx, r.client.db)

	query := `
		INSERT INTO stage_progress (project_id, stage, status, progress_pct, current_task, error_message, updated_at)
		SELECT $1, stage, 'pending', 0, '', '', NOW()
		FROM unnest(ARRAY['world','character','plot','prose','checker','renderer']) AS stage
		ON CONFLICT (project_id, stage) DO UPDATE
		SET status = 'pending', progress_pct = 0, current_task = '', error_message = '', updated_at = NOW()
	`

	if _, err := q.ExecContext(ctx, query, projectID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to reset stage progress: %w", err)
	}

	return nil
}
