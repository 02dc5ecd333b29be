package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"placement-portal/backend/internal/service"
	"placement-portal/backend/pkg/response"
)

// PortalHandler 学生端 HTTP 处理器
type PortalHandler struct {
	portalSvc service.StudentPortalService
}

// NewPortalHandler 创建 PortalHandler
func NewPortalHandler(portalSvc service.StudentPortalService) *PortalHandler {
	return &PortalHandler{portalSvc: portalSvc}
}

// Modules 当前学生的模块
// GET /api/v1/student/modules
func (h *PortalHandler) Modules(c *gin.Context) {
	auth, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	modules, err := h.portalSvc.Modules(c.Request.Context(), auth)
	if err != nil {
		h.handlePortalError(c, err)
		return
	}

	response.OK(c, modules)
}

// Profile 学生档案与各模块进度
// GET /api/v1/student/:id
func (h *PortalHandler) Profile(c *gin.Context) {
	auth, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	profile, err := h.portalSvc.Profile(c.Request.Context(), auth, c.Param("id"))
	if err != nil {
		h.handlePortalError(c, err)
		return
	}

	response.OK(c, profile)
}

// ModulePerformance 学生在单个模块的成绩与考勤明细
// GET /api/v1/student/:id/module/:moduleId
func (h *PortalHandler) ModulePerformance(c *gin.Context) {
	auth, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	perf, err := h.portalSvc.ModulePerformance(c.Request.Context(), auth, c.Param("id"), c.Param("moduleId"))
	if err != nil {
		h.handlePortalError(c, err)
		return
	}

	response.OK(c, perf)
}

func (h *PortalHandler) handlePortalError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrStudentNotFound):
		response.NotFound(c, 13001, "学生不存在")
	case errors.Is(err, service.ErrModuleNotFound):
		response.NotFound(c, 15001, "培训模块不存在")
	case errors.Is(err, service.ErrStudentNotInModule):
		response.NotFound(c, 15003, "学生未分配到该模块")
	default:
		response.InternalError(c)
	}
}
