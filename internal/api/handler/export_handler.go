package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xaiowei11/classmatch-web/internal/dto"
	"github.com/xaiowei11/classmatch-web/internal/service"
	"github.com/xaiowei11/classmatch-web/pkg/response"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc    service.ExportService
	defaultWeeks int
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService, defaultWeeks int) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc, defaultWeeks: defaultWeeks}
}

// ErrorsXLSX 失败行报表（Excel）
// GET /api/v1/imports/:id/errors.xlsx
func (h *ExportHandler) ErrorsXLSX(c *gin.Context) {
	buf, filename, err := h.exportSvc.ExportErrorsXLSX(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleExportError(c, err)
		return
	}
	response.Attachment(c, filename, contentTypeXLSX, buf.Bytes())
}

// ErrorsCSV 失败行报表（CSV）
// GET /api/v1/imports/:id/errors.csv
func (h *ExportHandler) ErrorsCSV(c *gin.Context) {
	buf, filename, err := h.exportSvc.ExportErrorsCSV(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleExportError(c, err)
		return
	}
	response.Attachment(c, filename, contentTypeCSV, buf.Bytes())
}

// Calendar 已导入课程的 iCalendar 课表
// GET /api/v1/imports/:id/calendar.ics?semester_start=2024-09-02&weeks=18
func (h *ExportHandler) Calendar(c *gin.Context) {
	var req dto.CalendarExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "semester_start 格式应为 YYYY-MM-DD")
		return
	}
	start, _ := time.Parse("2006-01-02", req.SemesterStart)
	weeks := req.Weeks
	if weeks == 0 {
		weeks = h.defaultWeeks
	}

	buf, filename, err := h.exportSvc.ExportCalendar(c.Request.Context(), c.Param("id"), start, weeks)
	if err != nil {
		h.handleExportError(c, err)
		return
	}
	response.Attachment(c, filename, contentTypeICS, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportRunNotFound):
		response.NotFound(c, 14001, "导入记录不存在")
	case errors.Is(err, service.ErrExportNotCourseRun):
		response.BadRequest(c, 14002, "只有课程导入记录可以导出课表")
	case errors.Is(err, service.ErrExportNoRows):
		response.BadRequest(c, 14003, "导入记录中没有可导出的课程")
	case errors.Is(err, service.ErrExportInvalidPeriod):
		response.ErrorWithDetails(c, 500, 14004, "节次时间配置无效", err.Error())
	default:
		response.InternalError(c)
	}
}
