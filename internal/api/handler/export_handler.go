package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"placement-portal/backend/internal/dto"
	"placement-portal/backend/internal/service"
	"placement-portal/backend/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportAttendance 导出某日考勤
// GET /api/v1/export/attendance?date=2024-03-05
func (h *ExportHandler) ExportAttendance(c *gin.Context) {
	var q dto.ExportAttendanceQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindFailed(c, err)
		return
	}

	buf, filename, err := h.exportSvc.ExportAttendance(c.Request.Context(), q.Date)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	c.Header("Content-Description", "File Transfer")
	response.Attachment(c, filename, xlsxContentType, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrExportNoRecords):
		response.NotFound(c, 16101, "该日期暂无考勤记录")
	default:
		response.InternalError(c)
	}
}
