package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xaiowei11/classmatch-web/config"
	"github.com/xaiowei11/classmatch-web/internal/dto"
	"github.com/xaiowei11/classmatch-web/internal/importer"
	"github.com/xaiowei11/classmatch-web/internal/model"
	"github.com/xaiowei11/classmatch-web/internal/repository"
	applog "github.com/xaiowei11/classmatch-web/pkg/logger"
	"github.com/xaiowei11/classmatch-web/pkg/metrics"
)

// ── 导入模块业务错误 ──

var (
	ErrImportInProgress  = errors.New("同类导入正在进行中，请稍后再试")
	ErrImportTooManyRows = errors.New("表格数据行数超过上限")
	ErrImportRunNotFound = errors.New("导入记录不存在")
)

// ImportInput 一次上传
type ImportInput struct {
	Filename   string
	Data       io.Reader
	Department string // 为空时使用配置中的默认系所
	OperatorID string
}

// ImportService 批量导入业务接口
//
//   - 导入：读取表格 → 探测表头 → 逐行规范化并提交后端 → 保存运行记录
//   - 预览：同一流程但不调用后端、不落库，返回规范化后的记录
//   - 同类导入全局互斥，避免重复建课
type ImportService interface {
	ImportCourses(ctx context.Context, in *ImportInput) (*dto.ImportResultResponse, error)
	PreviewCourses(ctx context.Context, in *ImportInput) (*dto.ImportPreviewResponse, error)
	ImportAccounts(ctx context.Context, in *ImportInput) (*dto.ImportResultResponse, error)
	PreviewAccounts(ctx context.Context, in *ImportInput) (*dto.ImportPreviewResponse, error)

	ListRuns(ctx context.Context, req *dto.ImportRunListRequest) ([]dto.ImportRunResponse, int64, error)
	GetRun(ctx context.Context, id string) (*dto.ImportRunDetailResponse, error)
}

type importService struct {
	cfg      *config.ImportConfig
	repo     *repository.Repository
	teachers TeacherService
	courses  *importer.CourseImporter
	accounts *importer.AccountImporter
	remote   Locker // 可为 nil
	local    *localLocker
	logger   *zap.Logger
}

// NewImportService 创建 ImportService 实例，locker 可为 nil
func NewImportService(
	cfg *config.ImportConfig,
	repo *repository.Repository,
	api BackendAPI,
	teachers TeacherService,
	locker Locker,
	logger *zap.Logger,
) ImportService {
	return &importService{
		cfg:      cfg,
		repo:     repo,
		teachers: teachers,
		courses:  importer.NewCourseImporter(api, teachers, logger),
		accounts: importer.NewAccountImporter(api, logger),
		remote:   locker,
		local:    newLocalLocker(),
		logger:   logger,
	}
}

// ═══════════════════════════════════════════════════════════
// 课程导入
// ═══════════════════════════════════════════════════════════

func (s *importService) ImportCourses(ctx context.Context, in *ImportInput) (*dto.ImportResultResponse, error) {
	release, err := s.acquire(ctx, importer.KindCourse)
	if err != nil {
		return nil, err
	}
	defer release()

	res, err := s.runCourses(ctx, in, false)
	if err != nil {
		return nil, err
	}
	resp := toResultResponse(res, in.Filename)
	resp.RunID = s.persist(ctx, in, res)
	return &resp, nil
}

func (s *importService) PreviewCourses(ctx context.Context, in *ImportInput) (*dto.ImportPreviewResponse, error) {
	res, err := s.runCourses(ctx, in, true)
	if err != nil {
		return nil, err
	}

	preview := &dto.ImportPreviewResponse{
		ImportResultResponse: toResultResponse(res, in.Filename),
		Courses:              []dto.CoursePreviewItem{},
	}
	for _, out := range res.Outcomes {
		if out.Course != nil {
			preview.Courses = append(preview.Courses, toCoursePreview(out.Course))
		}
	}
	return preview, nil
}

func (s *importService) runCourses(ctx context.Context, in *ImportInput, dryRun bool) (*importer.Result, error) {
	rows, err := importer.ReadWorkbook(in.Data)
	if err != nil {
		applog.For(ctx, s.logger).Warn("读取课程表格失败", zap.String("filename", in.Filename), zap.Error(err))
		return nil, err
	}

	det := importer.DetectLayout(rows, s.cfg.ScanRows)
	if !det.HeaderFound() {
		applog.For(ctx, s.logger).Warn("未找到课程表头，按 simple15 从第一行读取", zap.String("filename", in.Filename))
	}
	if err := s.checkRowCount(rows, det.DataStartRow); err != nil {
		return nil, err
	}

	known, err := s.teachers.Known(ctx)
	if err != nil {
		return nil, err
	}

	res := s.courses.Run(ctx, rows, det, known, s.options(in, dryRun))
	if !dryRun {
		observeRun(res)
	}
	return res, nil
}

// ═══════════════════════════════════════════════════════════
// 账号导入
// ═══════════════════════════════════════════════════════════

func (s *importService) ImportAccounts(ctx context.Context, in *ImportInput) (*dto.ImportResultResponse, error) {
	release, err := s.acquire(ctx, importer.KindAccount)
	if err != nil {
		return nil, err
	}
	defer release()

	res, err := s.runAccounts(ctx, in, false)
	if err != nil {
		return nil, err
	}
	resp := toResultResponse(res, in.Filename)
	resp.RunID = s.persist(ctx, in, res)
	return &resp, nil
}

func (s *importService) PreviewAccounts(ctx context.Context, in *ImportInput) (*dto.ImportPreviewResponse, error) {
	res, err := s.runAccounts(ctx, in, true)
	if err != nil {
		return nil, err
	}

	preview := &dto.ImportPreviewResponse{
		ImportResultResponse: toResultResponse(res, in.Filename),
		Accounts:             []dto.AccountPreviewItem{},
	}
	for _, out := range res.Outcomes {
		if out.Account != nil {
			preview.Accounts = append(preview.Accounts, toAccountPreview(out.Account))
		}
	}
	return preview, nil
}

func (s *importService) runAccounts(ctx context.Context, in *ImportInput, dryRun bool) (*importer.Result, error) {
	rows, err := importer.ReadWorkbook(in.Data)
	if err != nil {
		applog.For(ctx, s.logger).Warn("读取账号表格失败", zap.String("filename", in.Filename), zap.Error(err))
		return nil, err
	}

	det := importer.DetectAccountColumns(rows, s.cfg.ScanRows)
	if err := s.checkRowCount(rows, det.DataStartRow); err != nil {
		return nil, err
	}

	res := s.accounts.Run(ctx, rows, det, s.options(in, dryRun))
	if !dryRun {
		observeRun(res)
	}
	return res, nil
}

// ═══════════════════════════════════════════════════════════
// 导入记录
// ═══════════════════════════════════════════════════════════

func (s *importService) ListRuns(ctx context.Context, req *dto.ImportRunListRequest) ([]dto.ImportRunResponse, int64, error) {
	runs, total, err := s.repo.ImportRun.List(ctx,
		repository.ImportRunFilter{Kind: req.Kind},
		req.GetOffset(), req.GetPageSize(),
	)
	if err != nil {
		applog.For(ctx, s.logger).Error("查询导入记录失败", zap.Error(err))
		return nil, 0, err
	}

	list := make([]dto.ImportRunResponse, 0, len(runs))
	for i := range runs {
		list = append(list, toRunResponse(&runs[i]))
	}
	return list, total, nil
}

func (s *importService) GetRun(ctx context.Context, id string) (*dto.ImportRunDetailResponse, error) {
	run, err := s.repo.ImportRun.GetWithRows(ctx, id, "")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrImportRunNotFound
		}
		return nil, err
	}

	detail := &dto.ImportRunDetailResponse{
		ImportRunResponse: toRunResponse(run),
		Rows:              make([]dto.ImportRunRowResponse, 0, len(run.Rows)),
	}
	for _, r := range run.Rows {
		detail.Rows = append(detail.Rows, dto.ImportRunRowResponse{
			Row:         r.RowNumber,
			Label:       r.Label,
			Status:      r.Status,
			ErrorKind:   r.ErrorKind,
			Message:     r.Message,
			CourseCode:  r.CourseCode,
			Classroom:   r.Classroom,
			Weekday:     r.Weekday,
			StartPeriod: r.StartPeriod,
			EndPeriod:   r.EndPeriod,
			Teachers:    r.Teachers,
			AccountRole: r.AccountRole,
		})
	}
	return detail, nil
}

// ── 内部流程 ──

// acquire 先占本进程锁，再占 Redis 锁；Redis 出错时仅依赖本进程锁
func (s *importService) acquire(ctx context.Context, kind importer.Kind) (func(), error) {
	name := "import:" + string(kind)

	localToken, ok, _ := s.local.AcquireLock(ctx, name, s.cfg.LockTTL)
	if !ok {
		metrics.ImportRunsTotal.WithLabelValues(string(kind), "rejected").Inc()
		return nil, ErrImportInProgress
	}
	releaseLocal := func() { _ = s.local.ReleaseLock(context.Background(), name, localToken) }

	if s.remote == nil {
		return releaseLocal, nil
	}

	token, ok, err := s.remote.AcquireLock(ctx, name, s.cfg.LockTTL)
	if err != nil {
		s.logger.Warn("获取导入锁失败，仅使用进程内锁", zap.String("lock", name), zap.Error(err))
		return releaseLocal, nil
	}
	if !ok {
		releaseLocal()
		metrics.ImportRunsTotal.WithLabelValues(string(kind), "rejected").Inc()
		return nil, ErrImportInProgress
	}

	return func() {
		if err := s.remote.ReleaseLock(context.Background(), name, token); err != nil {
			s.logger.Warn("释放导入锁失败", zap.String("lock", name), zap.Error(err))
		}
		releaseLocal()
	}, nil
}

func (s *importService) checkRowCount(rows []importer.RawRow, start int) error {
	if s.cfg.MaxRows <= 0 {
		return nil
	}
	if n := importer.CountDataRows(rows, start); n > s.cfg.MaxRows {
		return fmt.Errorf("%w: %d > %d", ErrImportTooManyRows, n, s.cfg.MaxRows)
	}
	return nil
}

func (s *importService) options(in *ImportInput, dryRun bool) importer.Options {
	return importer.Options{
		DefaultDepartment: s.department(in),
		Concurrency:       s.cfg.Concurrency,
		DryRun:            dryRun,
	}
}

func (s *importService) department(in *ImportInput) string {
	if in.Department != "" {
		return in.Department
	}
	return s.cfg.DefaultDepartment
}

// persist 保存运行记录；失败只记日志，不影响已完成的导入结果
func (s *importService) persist(ctx context.Context, in *ImportInput, res *importer.Result) string {
	now := time.Now()
	run := &model.ImportRun{
		Kind:         string(res.Kind),
		Filename:     in.Filename,
		Layout:       res.Layout,
		HeaderRow:    res.HeaderRow,
		DataStartRow: res.DataStartRow,
		Department:   s.department(in),
		Total:        res.Total,
		SuccessCount: res.Success,
		FailedCount:  res.Failed,
		Cancelled:    res.Cancelled,
		NewTeachers:  model.StringArray(res.NewTeachers),
		StartedAt:    res.StartedAt,
		FinishedAt:   res.FinishedAt,
		Rows:         toRunRows(res),
	}
	if run.StartedAt.IsZero() {
		run.StartedAt, run.FinishedAt = now, now
	}
	if in.OperatorID != "" {
		id := in.OperatorID
		run.OperatorID = &id
	}

	// 请求被取消时记录仍需保存
	if err := s.repo.ImportRun.Create(context.WithoutCancel(ctx), run); err != nil {
		applog.For(ctx, s.logger).Error("保存导入记录失败",
			zap.String("kind", run.Kind),
			zap.String("filename", run.Filename),
			zap.Error(err),
		)
		return ""
	}

	applog.For(ctx, s.logger).Info("导入记录已保存",
		zap.String("run_id", run.ImportRunID),
		zap.String("kind", run.Kind),
		zap.Int("total", run.Total),
		zap.Int("failed", run.FailedCount),
	)
	return run.ImportRunID
}

// observeRun 记录导入指标
func observeRun(res *importer.Result) {
	kind := string(res.Kind)
	status := "completed"
	if res.Cancelled {
		status = "cancelled"
	}
	metrics.ImportRunsTotal.WithLabelValues(kind, status).Inc()
	metrics.ImportRowsTotal.WithLabelValues(kind, "success").Add(float64(res.Success))
	metrics.ImportRowsTotal.WithLabelValues(kind, "failed").Add(float64(res.Failed))
	for _, e := range res.Errors {
		metrics.ImportRowErrorsTotal.WithLabelValues(kind, string(e.Kind)).Inc()
	}
	metrics.ImportDuration.WithLabelValues(kind).Observe(res.FinishedAt.Sub(res.StartedAt).Seconds())
	metrics.NewTeachersTotal.Add(float64(len(res.NewTeachers)))
}

// ── 转换函数 ──

func toResultResponse(res *importer.Result, filename string) dto.ImportResultResponse {
	resp := dto.ImportResultResponse{
		Kind:         string(res.Kind),
		Filename:     filename,
		Layout:       res.Layout,
		HeaderFound:  res.HeaderRow >= 0,
		DataStartRow: res.DataStartRow,
		Total:        res.Total,
		Success:      res.Success,
		Failed:       res.Failed,
		Cancelled:    res.Cancelled,
		DryRun:       res.DryRun,
		NewTeachers:  []string{},
		Errors:       make([]dto.RowErrorResponse, 0, len(res.Errors)),
	}
	resp.NewTeachers = append(resp.NewTeachers, res.NewTeachers...)
	for _, e := range res.Errors {
		resp.Errors = append(resp.Errors, dto.RowErrorResponse{
			Row:     e.Row,
			Label:   e.Label,
			Kind:    string(e.Kind),
			Message: e.Message,
		})
	}
	return resp
}

func toCoursePreview(rec *importer.CourseRecord) dto.CoursePreviewItem {
	item := dto.CoursePreviewItem{
		Row:          rec.Row,
		CourseCode:   rec.CourseCode,
		CourseName:   rec.CourseName,
		CourseType:   string(rec.CourseType),
		Credits:      rec.Credits,
		Hours:        rec.Hours,
		AcademicYear: rec.AcademicYear,
		Semester:     rec.Semester,
		Department:   rec.Department,
		GradeLevel:   rec.GradeLevel,
		Classroom:    rec.Classroom,
		Weekday:      rec.Weekday,
		StartPeriod:  rec.StartPeriod,
		EndPeriod:    rec.EndPeriod,
		MaxStudents:  rec.MaxStudents,
		CoTeachers:   make([]string, 0, len(rec.CoTeachers)),
	}
	if rec.PrimaryTeacher != nil {
		item.PrimaryTeacher = rec.PrimaryTeacher.Name
		item.NewPrimary = rec.PrimaryTeacher.New
	}
	for _, t := range rec.CoTeachers {
		item.CoTeachers = append(item.CoTeachers, t.Name)
	}
	return item
}

func toAccountPreview(rec *importer.AccountRecord) dto.AccountPreviewItem {
	return dto.AccountPreviewItem{
		Row:        rec.Row,
		RealName:   rec.RealName,
		Role:       string(rec.Role),
		StudentID:  rec.StudentID,
		Department: rec.Department,
		Grade:      rec.Grade,
		TeacherID:  rec.TeacherID,
		Office:     rec.Office,
		Title:      rec.Title,
	}
}

func toRunRows(res *importer.Result) []model.ImportRunRow {
	rows := make([]model.ImportRunRow, 0, len(res.Outcomes))
	for _, out := range res.Outcomes {
		r := model.ImportRunRow{
			RowNumber: out.Row,
			Label:     out.Label,
			Status:    model.RowStatusSuccess,
		}
		if !out.OK && out.Err != nil {
			r.Status = model.RowStatusFailed
			r.ErrorKind = string(out.Err.Kind)
			r.Message = out.Err.Message
		}
		if c := out.Course; c != nil {
			r.CourseCode = c.CourseCode
			r.Classroom = c.Classroom
			r.Weekday = c.Weekday
			r.StartPeriod = c.StartPeriod
			r.EndPeriod = c.EndPeriod
			r.Teachers = c.TeacherDisplay()
		}
		if a := out.Account; a != nil {
			r.AccountRole = string(a.Role)
		}
		rows = append(rows, r)
	}
	return rows
}

func toRunResponse(run *model.ImportRun) dto.ImportRunResponse {
	resp := dto.ImportRunResponse{
		ID:          run.ImportRunID,
		Kind:        run.Kind,
		Filename:    run.Filename,
		Layout:      run.Layout,
		Department:  run.Department,
		Total:       run.Total,
		Success:     run.SuccessCount,
		Failed:      run.FailedCount,
		Cancelled:   run.Cancelled,
		NewTeachers: []string(run.NewTeachers),
		StartedAt:   run.StartedAt.Format(time.RFC3339),
		FinishedAt:  run.FinishedAt.Format(time.RFC3339),
	}
	if resp.NewTeachers == nil {
		resp.NewTeachers = []string{}
	}
	if run.OperatorID != nil {
		resp.OperatorID = *run.OperatorID
	}
	return resp
}
