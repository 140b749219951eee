package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/xaiowei11/classmatch-web/internal/dto"
	"github.com/xaiowei11/classmatch-web/internal/service"
	"github.com/xaiowei11/classmatch-web/pkg/response"
)

// TeacherHandler 教师目录 HTTP 处理器
type TeacherHandler struct {
	teacherSvc service.TeacherService
}

// NewTeacherHandler 创建 TeacherHandler
func NewTeacherHandler(teacherSvc service.TeacherService) *TeacherHandler {
	return &TeacherHandler{teacherSvc: teacherSvc}
}

// List 选课系统教师列表
// GET /api/v1/teachers?refresh=true
func (h *TeacherHandler) List(c *gin.Context) {
	var req dto.TeacherListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, err := h.teacherSvc.List(c.Request.Context(), req.Refresh)
	if err != nil {
		if errors.Is(err, service.ErrTeacherDirectoryUnavailable) {
			response.BadGateway(c, 13001, "无法从选课系统获取教师列表")
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, list)
}
