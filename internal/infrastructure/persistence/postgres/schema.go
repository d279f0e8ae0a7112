package postgres

import (
	"context"
	"fmt"
)

// schemaStatements 按依赖顺序建表
// 供 bootstrap 命令执行，生产环境可改用独立迁移工具
var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto`,

	`CREATE TABLE IF NOT EXISTS projects (
		id                       UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		title                    TEXT NOT NULL,
		target_chapters          INT NOT NULL,
		target_words_per_chapter INT NOT NULL,
		world_inputs             JSONB,
		character_inputs         JSONB,
		plot_inputs              JSONB,
		status                   TEXT NOT NULL DEFAULT 'pending',
		current_stage            TEXT NOT NULL DEFAULT '',
		progress_pct             DOUBLE PRECISION NOT NULL DEFAULT 0,
		total_word_count         INT NOT NULL DEFAULT 0,
		artifact_path            TEXT,
		error_message            TEXT,
		created_at               TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at               TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS chapters (
		id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		project_id   UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		number       INT NOT NULL,
		title        TEXT NOT NULL,
		content      TEXT NOT NULL,
		word_count   INT NOT NULL DEFAULT 0,
		check_passed BOOLEAN NOT NULL DEFAULT FALSE,
		issues_found TEXT[] NOT NULL DEFAULT '{}',
		issues_fixed TEXT[] NOT NULL DEFAULT '{}',
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (project_id, number)
	)`,

	`CREATE TABLE IF NOT EXISTS stage_progress (
		project_id   UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		stage        TEXT NOT NULL,
		status       TEXT NOT NULL DEFAULT 'pending',
		progress_pct DOUBLE PRECISION NOT NULL DEFAULT 0,
		current_task TEXT NOT NULL DEFAULT '',
		error_msg    TEXT,
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (project_id, stage)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_projects_status ON projects(status)`,
	`CREATE INDEX IF NOT EXISTS idx_chapters_project ON chapters(project_id, number)`,
}

// EnsureSchema 幂等地创建数据库结构
func (c *Client) EnsureSchema(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "postgres.EnsureSchema")
	defer span.End()

	for _, stmt := range schemaStatements {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
