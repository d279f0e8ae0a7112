// Package entity 定义领域实体
package entity

import (
	"strings"
	"time"
)

// ProjectStatus 项目状态
type ProjectStatus string

const (
	ProjectStatusPending   ProjectStatus = "pending"
	ProjectStatusRunning   ProjectStatus = "running"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusError     ProjectStatus = "error"
)

// Project 故事项目实体
// 流水线运行期间由编排器独占修改，进度百分比在 running 状态下单调不减
type Project struct {
	ID                    string           `json:"id"`
	Title                 string           `json:"title"`
	TargetChapters        int              `json:"target_chapters"`
	TargetWordsPerChapter int              `json:"target_words_per_chapter"`
	World                 *WorldInputs     `json:"world,omitempty"`
	Characters            []CharacterInput `json:"characters,omitempty"`
	Plot                  *PlotInputs      `json:"plot,omitempty"`
	Status                ProjectStatus    `json:"status"`
	CurrentStage          string           `json:"current_stage,omitempty"`
	ProgressPct           float64          `json:"progress_pct"`
	TotalWordCount        int              `json:"total_word_count"`
	ArtifactPath          string           `json:"artifact_path,omitempty"`
	ErrorMessage          string           `json:"error_message,omitempty"`
	CreatedAt             time.Time        `json:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at"`
}

// NewProject 创建新项目
func NewProject(title string, targetChapters, targetWordsPerChapter int) *Project {
	now := time.Now()
	return &Project{
		Title:                 title,
		TargetChapters:        targetChapters,
		TargetWordsPerChapter: targetWordsPerChapter,
		Status:                ProjectStatusPending,
		ProgressPct:           0,
		TotalWordCount:        0,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

// Validate 校验生成流水线所需的输入字段
func (p *Project) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return ErrMissingTitle
	}
	if p.TargetChapters < 1 {
		return ErrInvalidChapterCount
	}
	if p.TargetWordsPerChapter < 1 {
		return ErrInvalidWordTarget
	}
	return nil
}

// IsRunning 检查项目是否正在生成中
func (p *Project) IsRunning() bool {
	return p.Status == ProjectStatusRunning
}
