// Package entity 定义领域实体
package entity

import (
	"time"
)

// StageStatus 阶段状态
type StageStatus string

const (
	StageStatusPending   StageStatus = "pending"
	StageStatusRunning   StageStatus = "running"
	StageStatusCompleted StageStatus = "completed"
	StageStatusError     StageStatus = "error"
)

// 流水线阶段名，按执行顺序排列
const (
	StageWorld     = "world"
	StageCharacter = "character"
	StagePlot      = "plot"
	StageProse     = "prose"
	StageChecker   = "checker"
	StageRenderer  = "renderer"
)

// AllStages 返回按执行顺序排列的全部阶段名
func AllStages() []string {
	return []string{StageWorld, StageCharacter, StagePlot, StageProse, StageChecker, StageRenderer}
}

// StageProgress 阶段进度记录
// 以 (project_id, stage) 为键反复 upsert，后写覆盖前写，不保留历史
type StageProgress struct {
	ProjectID   string      `json:"project_id"`
	Stage       string      `json:"stage"`
	Status      StageStatus `json:"status"`
	ProgressPct float64     `json:"progress_pct"`
	CurrentTask string      `json:"current_task,omitempty"`
	ErrorMsg    string      `json:"error_message,omitempty"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
