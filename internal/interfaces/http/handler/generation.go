package handler

import (
	"github.com/gin-gonic/gin"

	"storyforge-api/internal/application/pipeline"
	"storyforge-api/internal/interfaces/http/dto"
)

// GenerationHandler 生成运行处理器
type GenerationHandler struct {
	service *pipeline.Service
}

// NewGenerationHandler 创建生成运行处理器
func NewGenerationHandler(service *pipeline.Service) *GenerationHandler {
	return &GenerationHandler{service: service}
}

// StartResponse 启动响应
type StartResponse struct {
	ProjectID string `json:"project_id"`
	Status    string `json:"status"`
}

// Start 启动生成运行
// POST /v1/projects/:pid/generate
// 项目已在运行中时返回 409，不触碰任何进度状态
func (h *GenerationHandler) Start(c *gin.Context) {
	projectID := c.Param("pid")
	requestID := c.GetString("request_id")

	if err := h.service.StartGeneration(c.Request.Context(), projectID, requestID); err != nil {
		respondError(c, err)
		return
	}

	dto.Accepted(c, StartResponse{
		ProjectID: projectID,
		Status:    "running",
	})
}

// Progress 查询生成进度
// GET /v1/projects/:pid/progress
// 轮询端永远拿到最近已知状态，包括 error 状态及其消息
func (h *GenerationHandler) Progress(c *gin.Context) {
	snapshot, err := h.service.GetProgress(c.Request.Context(), c.Param("pid"))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.FromSnapshot(snapshot))
}

// Artifact 下载渲染产物
// GET /v1/projects/:pid/artifact
func (h *GenerationHandler) Artifact(c *gin.Context) {
	path, err := h.service.ArtifactPath(c.Request.Context(), c.Param("pid"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.FileAttachment(path, c.Param("pid")+".pdf")
}
