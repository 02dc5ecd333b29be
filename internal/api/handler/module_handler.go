package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"placement-portal/backend/internal/dto"
	"placement-portal/backend/internal/service"
	"placement-portal/backend/pkg/response"
)

// ModuleHandler 培训模块 HTTP 处理器
type ModuleHandler struct {
	moduleSvc service.TrainingModuleService
}

// NewModuleHandler 创建 ModuleHandler
func NewModuleHandler(moduleSvc service.TrainingModuleService) *ModuleHandler {
	return &ModuleHandler{moduleSvc: moduleSvc}
}

// CreateModule 创建培训模块并分配场地
// POST /api/v1/modules
func (h *ModuleHandler) CreateModule(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	module, err := h.moduleSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleModuleError(c, err)
		return
	}

	response.Created(c, module)
}

// GetModule 模块详情（含场地分配）
// GET /api/v1/modules/:id
func (h *ModuleHandler) GetModule(c *gin.Context) {
	module, err := h.moduleSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleModuleError(c, err)
		return
	}

	response.OK(c, module)
}

// ListModules 模块列表
// GET /api/v1/modules
func (h *ModuleHandler) ListModules(c *gin.Context) {
	var req dto.ModuleListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	modules, total, err := h.moduleSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, modules, total, req.GetPage(), req.GetPageSize())
}

// UpdateModule 修改模块信息
// PUT /api/v1/modules/:id
func (h *ModuleHandler) UpdateModule(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	module, err := h.moduleSvc.Update(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleModuleError(c, err)
		return
	}

	response.OK(c, module)
}

// RecordScore 录入单次考试成绩
// POST /api/v1/scores
func (h *ModuleHandler) RecordScore(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.RecordScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	score, err := h.moduleSvc.RecordScore(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleModuleError(c, err)
		return
	}

	response.OK(c, score)
}

// CompleteModule 结束模块，场地名单随之释放
// PUT /api/v1/modules/:id/complete
func (h *ModuleHandler) CompleteModule(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	module, err := h.moduleSvc.Complete(c.Request.Context(), c.Param("id"), callerID)
	if err != nil {
		h.handleModuleError(c, err)
		return
	}

	response.OK(c, module)
}

// handleModuleError 统一处理培训模块业务错误
func (h *ModuleHandler) handleModuleError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrModuleNotFound):
		response.NotFound(c, 15001, "培训模块不存在")
	case errors.Is(err, service.ErrModuleAlreadyCompleted):
		response.Conflict(c, 15002, "培训模块已结束")
	case errors.Is(err, service.ErrStudentNotFound):
		response.NotFound(c, 13001, "学生不存在")
	case errors.Is(err, service.ErrStudentNotInModule):
		response.NotFound(c, 15003, "学生未分配到该模块")
	default:
		response.InternalError(c)
	}
}
