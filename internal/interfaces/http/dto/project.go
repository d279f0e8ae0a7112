package dto

import (
	"time"

	"storyforge-api/internal/application/pipeline"
	"storyforge-api/internal/domain/entity"
)

// CreateProjectRequest 创建项目请求
type CreateProjectRequest struct {
	Title                 string                  `json:"title" binding:"required"`
	TargetChapters        int                     `json:"target_chapters" binding:"required,min=1"`
	TargetWordsPerChapter int                     `json:"target_words_per_chapter" binding:"required,min=1"`
	World                 *entity.WorldInputs     `json:"world,omitempty"`
	Characters            []entity.CharacterInput `json:"characters,omitempty"`
	Plot                  *entity.PlotInputs      `json:"plot,omitempty"`
}

// ToEntity 转换为领域实体
func (r *CreateProjectRequest) ToEntity() *entity.Project {
	project := entity.NewProject(r.Title, r.TargetChapters, r.TargetWordsPerChapter)
	project.World = r.World
	project.Characters = r.Characters
	project.Plot = r.Plot
	return project
}

// ProjectResponse 项目响应
type ProjectResponse struct {
	ID                    string    `json:"id"`
	Title                 string    `json:"title"`
	TargetChapters        int       `json:"target_chapters"`
	TargetWordsPerChapter int       `json:"target_words_per_chapter"`
	Status                string    `json:"status"`
	CurrentStage          string    `json:"current_stage,omitempty"`
	ProgressPct           float64   `json:"progress_pct"`
	TotalWordCount        int       `json:"total_word_count"`
	ArtifactPath          string    `json:"artifact_path,omitempty"`
	ErrorMessage          string    `json:"error_message,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// FromProject 从领域实体构建响应
func FromProject(p *entity.Project) *ProjectResponse {
	return &ProjectResponse{
		ID:                    p.ID,
		Title:                 p.Title,
		TargetChapters:        p.TargetChapters,
		TargetWordsPerChapter: p.TargetWordsPerChapter,
		Status:                string(p.Status),
		CurrentStage:          p.CurrentStage,
		ProgressPct:           p.ProgressPct,
		TotalWordCount:        p.TotalWordCount,
		ArtifactPath:          p.ArtifactPath,
		ErrorMessage:          p.ErrorMessage,
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}
}

// ChapterResponse 章节响应
type ChapterResponse struct {
	Number      int      `json:"number"`
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	WordCount   int      `json:"word_count"`
	CheckPassed bool     `json:"check_passed"`
	IssuesFound []string `json:"issues_found"`
	IssuesFixed []string `json:"issues_fixed"`
}

// FromChapters 从领域实体列表构建响应
func FromChapters(chapters []*entity.Chapter) []*ChapterResponse {
	out := make([]*ChapterResponse, 0, len(chapters))
	for _, ch := range chapters {
		out = append(out, &ChapterResponse{
			Number:      ch.Number,
			Title:       ch.Title,
			Content:     ch.Content,
			WordCount:   ch.WordCount,
			CheckPassed: ch.CheckPassed,
			IssuesFound: ch.IssuesFound,
			IssuesFixed: ch.IssuesFixed,
		})
	}
	return out
}

// StageProgressResponse 单阶段进度
type StageProgressResponse struct {
	Stage       string  `json:"stage"`
	Status      string  `json:"status"`
	ProgressPct float64 `json:"progress_pct"`
	CurrentTask string  `json:"current_task,omitempty"`
	ErrorMsg    string  `json:"error_message,omitempty"`
}

// ProgressResponse 进度快照响应
type ProgressResponse struct {
	ProjectID       string                   `json:"project_id"`
	OverallStatus   string                   `json:"overall_status"`
	OverallProgress float64                  `json:"overall_progress"`
	CurrentStage    string                   `json:"current_stage,omitempty"`
	ErrorMessage    string                   `json:"error_message,omitempty"`
	TotalChapters   int                      `json:"total_chapters"`
	TotalWords      int                      `json:"total_words"`
	Stages          []*StageProgressResponse `json:"stages"`
}

// FromSnapshot 从进度快照构建响应
func FromSnapshot(s *pipeline.ProgressSnapshot) *ProgressResponse {
	stages := make([]*StageProgressResponse, 0, len(s.Stages))
	for _, st := range s.Stages {
		stages = append(stages, &StageProgressResponse{
			Stage:       st.Stage,
			Status:      string(st.Status),
			ProgressPct: st.ProgressPct,
			CurrentTask: st.CurrentTask,
			ErrorMsg:    st.ErrorMsg,
		})
	}
	return &ProgressResponse{
		ProjectID:       s.ProjectID,
		OverallStatus:   string(s.OverallStatus),
		OverallProgress: s.OverallProgress,
		CurrentStage:    s.CurrentStage,
		ErrorMessage:    s.ErrorMessage,
		TotalChapters:   s.TotalChapters,
		TotalWords:      s.TotalWords,
		Stages:          stages,
	}
}
