package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"placement-portal/backend/internal/dto"
	"placement-portal/backend/internal/service"
	"placement-portal/backend/pkg/response"
)

// VenueHandler 场地模块 HTTP 处理器
type VenueHandler struct {
	venueSvc service.VenueService
}

// NewVenueHandler 创建 VenueHandler
func NewVenueHandler(venueSvc service.VenueService) *VenueHandler {
	return &VenueHandler{venueSvc: venueSvc}
}

// CreateVenue 创建场地
// POST /api/v1/venues
func (h *VenueHandler) CreateVenue(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateVenueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	venue, err := h.venueSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleVenueError(c, err)
		return
	}

	response.Created(c, venue)
}

// GetVenue 场地详情
// GET /api/v1/venues/:id
func (h *VenueHandler) GetVenue(c *gin.Context) {
	venue, err := h.venueSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleVenueError(c, err)
		return
	}

	response.OK(c, venue)
}

// ListVenues 场地列表
// GET /api/v1/venues?status=assigned
func (h *VenueHandler) ListVenues(c *gin.Context) {
	var req dto.VenueListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	venues, err := h.venueSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, venues)
}

// UpdateVenue 更新场地名称 / 容量
// PUT /api/v1/venues/:id
func (h *VenueHandler) UpdateVenue(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateVenueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	venue, err := h.venueSvc.Update(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleVenueError(c, err)
		return
	}

	response.OK(c, venue)
}

// DeleteVenue 删除场地
// DELETE /api/v1/venues/:id
func (h *VenueHandler) DeleteVenue(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.venueSvc.Delete(c.Request.Context(), c.Param("id"), callerID); err != nil {
		h.handleVenueError(c, err)
		return
	}

	response.OK(c, nil)
}

// AssignStaff 指派场地负责人
// PUT /api/v1/venues/:id/staff
func (h *VenueHandler) AssignStaff(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.AssignStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	venue, err := h.venueSvc.AssignStaff(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleVenueError(c, err)
		return
	}

	response.OK(c, venue)
}

// ListStudents 场地考勤名单
// GET /api/v1/venues/:id/students
func (h *VenueHandler) ListStudents(c *gin.Context) {
	auth, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	students, err := h.venueSvc.ListStudents(c.Request.Context(), auth, c.Param("id"))
	if err != nil {
		h.handleVenueError(c, err)
		return
	}

	response.OK(c, students)
}

// handleVenueError 统一处理场地模块业务错误
func (h *VenueHandler) handleVenueError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrVenueNotFound):
		response.NotFound(c, 14001, "场地不存在")
	case errors.Is(err, service.ErrStaffNotFound):
		response.NotFound(c, 14002, "场地负责人不存在")
	case errors.Is(err, service.ErrNotStaff):
		response.BadRequest(c, 14003, "只能指派 staff 角色的账号")
	default:
		response.InternalError(c)
	}
}
