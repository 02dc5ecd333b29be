package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"placement-portal/backend/internal/dto"
	"placement-portal/backend/internal/service"
	"placement-portal/backend/pkg/response"
)

// AttendanceHandler 考勤模块 HTTP 处理器
type AttendanceHandler struct {
	attendanceSvc service.AttendanceService
}

// NewAttendanceHandler 创建 AttendanceHandler
func NewAttendanceHandler(attendanceSvc service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendanceSvc: attendanceSvc}
}

// Submit 提交某日某时段考勤
// POST /api/v1/attendance
func (h *AttendanceHandler) Submit(c *gin.Context) {
	auth, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.SubmitAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	result, err := h.attendanceSvc.Submit(c.Request.Context(), auth, &req)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, result)
}

// GetExisting 已存考勤
// GET /api/v1/attendance?date=&session=&venue_id=
func (h *AttendanceHandler) GetExisting(c *gin.Context) {
	auth, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var q dto.AttendanceKeyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFailed(c, err)
		return
	}

	result, err := h.attendanceSvc.GetExisting(c.Request.Context(), auth, &q)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, result)
}

// Summary 院系出勤汇总
// GET /api/v1/attendance/summary?date=&session=&venue_id=
func (h *AttendanceHandler) Summary(c *gin.Context) {
	auth, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var q dto.AttendanceKeyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFailed(c, err)
		return
	}

	result, err := h.attendanceSvc.Summary(c.Request.Context(), auth, &q)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, result)
}

// History 场地考勤历史
// GET /api/v1/attendance/history?venue_id=&from=&to=
func (h *AttendanceHandler) History(c *gin.Context) {
	auth, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var q dto.AttendanceHistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFailed(c, err)
		return
	}

	result, err := h.attendanceSvc.History(c.Request.Context(), auth, &q)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, result)
}

// RetryNotifications 重新投递未成功的缺勤通知（管理员）
// POST /api/v1/attendance/notifications/retry
func (h *AttendanceHandler) RetryNotifications(c *gin.Context) {
	var req dto.RetryNotificationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	result, err := h.attendanceSvc.RetryNotifications(c.Request.Context(), &req)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, result)
}

// handleAttendanceError 统一处理考勤模块业务错误
func (h *AttendanceHandler) handleAttendanceError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrAttendanceKeyBusy):
		response.Conflict(c, 18001, "该时段考勤正在提交中，请稍后重试")
	case errors.Is(err, service.ErrAttendanceForbidden):
		response.Forbidden(c, 18002, "只能操作本人负责场地的考勤")
	case errors.Is(err, service.ErrStaffWithoutVenue):
		response.Forbidden(c, 18003, "当前账号未分配场地")
	case errors.Is(err, service.ErrVenueNotFound):
		response.NotFound(c, 14001, "场地不存在")
	default:
		response.InternalError(c)
	}
}
