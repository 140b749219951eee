package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xaiowei11/classmatch-web/internal/dto"
	"github.com/xaiowei11/classmatch-web/internal/importer"
	"github.com/xaiowei11/classmatch-web/internal/service"
	"github.com/xaiowei11/classmatch-web/pkg/response"
)

// ImportHandler 导入模块 HTTP 处理器
type ImportHandler struct {
	importSvc   service.ImportService
	maxUploadMB int64
}

// NewImportHandler 创建 ImportHandler
func NewImportHandler(importSvc service.ImportService, maxUploadMB int64) *ImportHandler {
	return &ImportHandler{importSvc: importSvc, maxUploadMB: maxUploadMB}
}

// ImportCourses 批量导入课程
// POST /api/v1/imports/courses  (multipart: file, department)
func (h *ImportHandler) ImportCourses(c *gin.Context) {
	h.withUpload(c, func(ctx context.Context, in *service.ImportInput) (interface{}, error) {
		return h.importSvc.ImportCourses(ctx, in)
	}, true)
}

// PreviewCourses 课程导入预览（不提交）
// POST /api/v1/imports/courses/preview
func (h *ImportHandler) PreviewCourses(c *gin.Context) {
	h.withUpload(c, func(ctx context.Context, in *service.ImportInput) (interface{}, error) {
		return h.importSvc.PreviewCourses(ctx, in)
	}, false)
}

// ImportAccounts 批量注册账号
// POST /api/v1/imports/accounts
func (h *ImportHandler) ImportAccounts(c *gin.Context) {
	h.withUpload(c, func(ctx context.Context, in *service.ImportInput) (interface{}, error) {
		return h.importSvc.ImportAccounts(ctx, in)
	}, true)
}

// PreviewAccounts 账号导入预览（不提交）
// POST /api/v1/imports/accounts/preview
func (h *ImportHandler) PreviewAccounts(c *gin.Context) {
	h.withUpload(c, func(ctx context.Context, in *service.ImportInput) (interface{}, error) {
		return h.importSvc.PreviewAccounts(ctx, in)
	}, false)
}

// ListRuns 导入记录列表
// GET /api/v1/imports?kind=course&page=1&page_size=20
func (h *ImportHandler) ListRuns(c *gin.Context) {
	var req dto.ImportRunListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.importSvc.ListRuns(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetRun 导入记录详情
// GET /api/v1/imports/:id
func (h *ImportHandler) GetRun(c *gin.Context) {
	detail, err := h.importSvc.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleImportError(c, err)
		return
	}
	response.OK(c, detail)
}

// ── 内部方法 ──

type importFunc func(ctx context.Context, in *service.ImportInput) (interface{}, error)

// withUpload 解析 multipart 上传并调用导入/预览；created=true 时返回 201
func (h *ImportHandler) withUpload(c *gin.Context, run importFunc, created bool) {
	var req dto.ImportRequest
	if err := c.ShouldBind(&req); err != nil {
		if h.tooLarge(c, err) {
			return
		}
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		if h.tooLarge(c, err) {
			return
		}
		response.BadRequest(c, 12005, "请上传表格文件（字段名 file）")
		return
	}
	if h.maxUploadMB > 0 && fh.Size > h.maxUploadMB<<20 {
		response.TooLarge(c, 12006, fmt.Sprintf("文件超过 %d MB", h.maxUploadMB))
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, 12005, "无法读取上传文件")
		return
	}
	defer f.Close()

	operatorID, _ := c.Get("operator_id")
	opID, _ := operatorID.(string)

	result, err := run(c.Request.Context(), &service.ImportInput{
		Filename:   fh.Filename,
		Data:       f,
		Department: req.Department,
		OperatorID: opID,
	})
	if err != nil {
		h.handleImportError(c, err)
		return
	}

	if created {
		response.Created(c, result)
		return
	}
	response.OK(c, result)
}

// tooLarge 请求体被 BodyLimit 截断时返回 413
func (h *ImportHandler) tooLarge(c *gin.Context, err error) bool {
	var mbe *http.MaxBytesError
	if !errors.As(err, &mbe) {
		return false
	}
	response.TooLarge(c, 12006, fmt.Sprintf("文件超过 %d MB", h.maxUploadMB))
	return true
}

func (h *ImportHandler) handleImportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrImportInProgress):
		response.Conflict(c, 12001, "同类导入正在进行中，请稍后再试")
	case errors.Is(err, service.ErrImportTooManyRows):
		response.ErrorWithDetails(c, 400, 12002, "表格数据行数超过上限", err.Error())
	case errors.Is(err, importer.ErrMalformedWorkbook):
		response.ErrorWithDetails(c, 400, 12003, "无法解析表格文件，请上传 .xlsx 或 .xls", err.Error())
	case errors.Is(err, service.ErrImportRunNotFound):
		response.NotFound(c, 12004, "导入记录不存在")
	case errors.Is(err, service.ErrTeacherDirectoryUnavailable):
		response.BadGateway(c, 13001, "无法从选课系统获取教师列表")
	default:
		response.InternalError(c)
	}
}
