package handler

import (
	"github.com/gin-gonic/gin"

	"storyforge-api/internal/application/pipeline"
	"storyforge-api/internal/domain/repository"
	"storyforge-api/internal/interfaces/http/dto"
	"storyforge-api/pkg/errors"
)

// ProjectHandler 项目处理器
type ProjectHandler struct {
	service *pipeline.Service
}

// NewProjectHandler 创建项目处理器
func NewProjectHandler(service *pipeline.Service) *ProjectHandler {
	return &ProjectHandler{service: service}
}

// Create 创建项目
// POST /v1/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.Error(c, 400, string(errors.CodeInvalidParam), "invalid request body", err.Error())
		return
	}

	project := req.ToEntity()
	if err := h.service.CreateProject(c.Request.Context(), project); err != nil {
		respondError(c, err)
		return
	}

	dto.Created(c, dto.FromProject(project))
}

// Get 获取项目详情
// GET /v1/projects/:pid
func (h *ProjectHandler) Get(c *gin.Context) {
	project, err := h.service.GetProject(c.Request.Context(), c.Param("pid"))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.FromProject(project))
}

// List 分页列出项目
// GET /v1/projects
func (h *ProjectHandler) List(c *gin.Context) {
	var query struct {
		Page     int `form:"page,default=1"`
		PageSize int `form:"page_size,default=20"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		dto.Error(c, 400, string(errors.CodeInvalidParam), "invalid query parameters", err.Error())
		return
	}

	result, err := h.service.ListProjects(c.Request.Context(), repository.NewPagination(query.Page, query.PageSize))
	if err != nil {
		respondError(c, err)
		return
	}

	projects := make([]*dto.ProjectResponse, 0, len(result.Items))
	for _, p := range result.Items {
		projects = append(projects, dto.FromProject(p))
	}

	dto.SuccessWithPage(c, projects, &dto.PageMeta{
		Page:       result.Page,
		PageSize:   result.PageSize,
		Total:      result.Total,
		TotalPages: result.TotalPages,
	})
}

// ListChapters 列出已提交章节
// GET /v1/projects/:pid/chapters
func (h *ProjectHandler) ListChapters(c *gin.Context) {
	chapters, err := h.service.ListChapters(c.Request.Context(), c.Param("pid"))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.FromChapters(chapters))
}

// respondError 把应用错误映射为 HTTP 响应
func respondError(c *gin.Context, err error) {
	appErr := errors.AsAppError(err)
	dto.Error(c, appErr.HTTPStatus, string(appErr.Code), appErr.Message, appErr.Detail)
}
