package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/xaiowei11/classmatch-web/config"
	"github.com/xaiowei11/classmatch-web/internal/backend"
	"github.com/xaiowei11/classmatch-web/internal/dto"
	"github.com/xaiowei11/classmatch-web/internal/importer"
	"github.com/xaiowei11/classmatch-web/internal/model"
)

// ── 测试辅助 ──

func testImportConfig() *config.ImportConfig {
	return &config.ImportConfig{
		ScanRows:          10,
		MaxRows:           100,
		DefaultDepartment: "資管系",
		Concurrency:       1,
		TeacherCacheTTL:   time.Minute,
		LockTTL:           time.Minute,
	}
}

type importFixture struct {
	svc     ImportService
	api     *fakeBackend
	runs    *mockImportRunRepo
	locker  *fakeLocker
	cfg     *config.ImportConfig
	teacher TeacherService
}

func setupTestImportService(locker Locker) *importFixture {
	cfg := testImportConfig()
	repo, _, runs := newMockRepository()
	api := &fakeBackend{
		teachers: []backend.Teacher{{ID: 7, Username: "t007", RealName: "王大明"}},
		reject:   map[string]string{},
	}
	teachers := NewTeacherService(cfg, api, nil, zap.NewNop())
	fx := &importFixture{
		api:     api,
		runs:    runs,
		cfg:     cfg,
		teacher: teachers,
	}
	if fl, ok := locker.(*fakeLocker); ok {
		fx.locker = fl
	}
	fx.svc = NewImportService(cfg, repo, api, teachers, locker, zap.NewNop())
	return fx
}

// buildWorkbook 用 excelize 生成单 Sheet 的 .xlsx
func buildWorkbook(t *testing.T, rows [][]string) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for r, row := range rows {
		for c, v := range row {
			if v == "" {
				continue
			}
			name, _ := excelize.CoordinatesToCellName(c+1, r+1)
			if err := f.SetCellValue("Sheet1", name, v); err != nil {
				t.Fatalf("写入单元格失败: %v", err)
			}
		}
	}
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		t.Fatalf("生成工作簿失败: %v", err)
	}
	return buf
}

func courseSheet(rows ...[]string) [][]string {
	header := []string{"學期", "", "科目代碼", "年級", "科目中文名稱", "授課教師姓名", "人數", "學分", "", "時數", "課別", "教室", "星期", "節次", "備註"}
	return append([][]string{header}, rows...)
}

func courseRow(code, name, teacher string) []string {
	return []string{"1131", "", code, "1", name, teacher, "50", "3", "", "3", "必修", "E301", "二", "3-4", ""}
}

func courseInput(t *testing.T, rows ...[]string) *ImportInput {
	return &ImportInput{
		Filename:   "courses.xlsx",
		Data:       buildWorkbook(t, courseSheet(rows...)),
		OperatorID: "op-1",
	}
}

// ── ImportCourses ──

func TestImportCourses_Summary(t *testing.T) {
	fx := setupTestImportService(nil)
	fx.api.reject["IM103"] = "課程代碼已存在"

	resp, err := fx.svc.ImportCourses(context.Background(), courseInput(t,
		courseRow("IM101", "資料庫系統", "王大明"),
		courseRow("IM102", "程式設計", "陳新人、王大明"),
		courseRow("IM103", "網路概論", "王大明"),
	))
	if err != nil {
		t.Fatalf("ImportCourses 应成功: %v", err)
	}

	if resp.Total != 3 || resp.Success != 2 || resp.Failed != 1 {
		t.Errorf("期望 3/2/1，实际 total=%d success=%d failed=%d", resp.Total, resp.Success, resp.Failed)
	}
	if len(resp.Errors) != 1 || resp.Errors[0].Row != 4 || resp.Errors[0].Message != "課程代碼已存在" {
		t.Errorf("错误信息应原样保留且行号为 4，实际 %+v", resp.Errors)
	}
	if resp.Layout != "simple15" || !resp.HeaderFound || resp.DataStartRow != 1 {
		t.Errorf("表头探测结果不符: %+v", resp)
	}
	if len(resp.NewTeachers) != 1 || resp.NewTeachers[0] != "陳新人" {
		t.Errorf("期望新教师 [陳新人]，实际 %v", resp.NewTeachers)
	}
	// Known 一次 + 新教师刷新一次
	if fx.api.listCalls != 2 {
		t.Errorf("期望拉取教师列表 2 次，实际 %d", fx.api.listCalls)
	}

	if resp.RunID == "" {
		t.Fatal("应返回运行记录 ID")
	}
	run := fx.runs.runs[resp.RunID]
	if run.Department != "資管系" || run.OperatorID == nil || *run.OperatorID != "op-1" {
		t.Errorf("运行记录字段不符: %+v", run)
	}
	if len(run.Rows) != 3 || run.Rows[2].Status != model.RowStatusFailed || run.Rows[2].ErrorKind != string(importer.KindAPI) {
		t.Errorf("运行行记录不符: %+v", run.Rows)
	}
	if run.Rows[1].Teachers != "陳新人、王大明" || run.Rows[1].Weekday != 2 || run.Rows[1].StartPeriod != 3 {
		t.Errorf("课程行明细不符: %+v", run.Rows[1])
	}
}

func TestImportCourses_DepartmentOverride(t *testing.T) {
	fx := setupTestImportService(nil)
	in := courseInput(t, courseRow("IM101", "資料庫系統", "王大明"))
	in.Department = "企管系"

	if _, err := fx.svc.ImportCourses(context.Background(), in); err != nil {
		t.Fatalf("ImportCourses 应成功: %v", err)
	}
	if len(fx.api.courses) != 1 || fx.api.courses[0].Department != "企管系" {
		t.Errorf("期望使用上传时指定的系所，实际 %+v", fx.api.courses)
	}
}

func TestImportCourses_MalformedWorkbook(t *testing.T) {
	fx := setupTestImportService(nil)

	_, err := fx.svc.ImportCourses(context.Background(), &ImportInput{
		Filename: "bad.xlsx",
		Data:     strings.NewReader("definitely not a spreadsheet"),
	})
	if !errors.Is(err, importer.ErrMalformedWorkbook) {
		t.Errorf("期望 ErrMalformedWorkbook，实际: %v", err)
	}
	if len(fx.runs.runs) != 0 {
		t.Error("表格损坏时不应保存运行记录")
	}
}

func TestImportCourses_TooManyRows(t *testing.T) {
	fx := setupTestImportService(nil)
	fx.cfg.MaxRows = 1

	_, err := fx.svc.ImportCourses(context.Background(), courseInput(t,
		courseRow("IM101", "資料庫系統", "王大明"),
		courseRow("IM102", "程式設計", "王大明"),
	))
	if !errors.Is(err, ErrImportTooManyRows) {
		t.Errorf("期望 ErrImportTooManyRows，实际: %v", err)
	}
	if len(fx.api.courses) != 0 {
		t.Error("超过行数上限时不应提交任何课程")
	}
}

func TestImportCourses_TeacherDirectoryUnavailable(t *testing.T) {
	fx := setupTestImportService(nil)
	fx.api.listErr = errors.New("connection refused")

	_, err := fx.svc.ImportCourses(context.Background(), courseInput(t, courseRow("IM101", "資料庫系統", "王大明")))
	if !errors.Is(err, ErrTeacherDirectoryUnavailable) {
		t.Errorf("期望 ErrTeacherDirectoryUnavailable，实际: %v", err)
	}
}

func TestImportCourses_PersistFailureKeepsResult(t *testing.T) {
	fx := setupTestImportService(nil)
	fx.runs.createErr = errors.New("db down")

	resp, err := fx.svc.ImportCourses(context.Background(), courseInput(t, courseRow("IM101", "資料庫系統", "王大明")))
	if err != nil {
		t.Fatalf("保存失败不应影响导入结果: %v", err)
	}
	if resp.RunID != "" || resp.Success != 1 {
		t.Errorf("期望 RunID 为空且 success=1，实际 %+v", resp)
	}
}

// ── 互斥 ──

func TestImportCourses_LockedByOtherInstance(t *testing.T) {
	locker := &fakeLocker{held: map[string]bool{"import:course": true}}
	fx := setupTestImportService(locker)

	_, err := fx.svc.ImportCourses(context.Background(), courseInput(t, courseRow("IM101", "資料庫系統", "王大明")))
	if !errors.Is(err, ErrImportInProgress) {
		t.Errorf("期望 ErrImportInProgress，实际: %v", err)
	}

	// 账号导入使用不同的锁
	if _, err := fx.svc.ImportAccounts(context.Background(), accountInput(t)); err != nil {
		t.Errorf("账号导入不应被课程锁阻塞: %v", err)
	}
}

func TestImportCourses_ConcurrentInProcess(t *testing.T) {
	locker := &fakeLocker{held: map[string]bool{}}
	fx := setupTestImportService(locker)

	var nestedErr error
	fx.api.onCreate = func() {
		if nestedErr != nil {
			return
		}
		_, nestedErr = fx.svc.ImportCourses(context.Background(), courseInput(t, courseRow("IM201", "作業系統", "王大明")))
	}

	if _, err := fx.svc.ImportCourses(context.Background(), courseInput(t, courseRow("IM101", "資料庫系統", "王大明"))); err != nil {
		t.Fatalf("第一次导入应成功: %v", err)
	}
	if !errors.Is(nestedErr, ErrImportInProgress) {
		t.Errorf("导入进行中再次导入应被拒绝，实际: %v", nestedErr)
	}
	if locker.held["import:course"] {
		t.Error("导入结束后应释放锁")
	}

	fx.api.onCreate = nil
	if _, err := fx.svc.ImportCourses(context.Background(), courseInput(t, courseRow("IM102", "程式設計", "王大明"))); err != nil {
		t.Errorf("锁释放后应可再次导入: %v", err)
	}
}

func TestImportCourses_LockErrorDegrades(t *testing.T) {
	locker := &fakeLocker{held: map[string]bool{}, err: errors.New("redis down")}
	fx := setupTestImportService(locker)

	if _, err := fx.svc.ImportCourses(context.Background(), courseInput(t, courseRow("IM101", "資料庫系統", "王大明"))); err != nil {
		t.Errorf("Redis 锁异常时应退化为进程内锁，实际: %v", err)
	}
}

// ── 预览 ──

func TestPreviewCourses_NoSubmission(t *testing.T) {
	fx := setupTestImportService(nil)

	preview, err := fx.svc.PreviewCourses(context.Background(), courseInput(t,
		courseRow("IM101", "資料庫系統", "陳新人"),
		courseRow("", "缺代碼", "王大明"),
	))
	if err != nil {
		t.Fatalf("PreviewCourses 应成功: %v", err)
	}
	if !preview.DryRun || preview.RunID != "" {
		t.Errorf("预览应为 dry run 且不落库，实际 %+v", preview.ImportResultResponse)
	}
	if len(fx.api.courses) != 0 || len(fx.runs.runs) != 0 {
		t.Error("预览不应调用后端或保存记录")
	}
	if preview.Success != 1 || preview.Failed != 1 {
		t.Errorf("期望 success=1 failed=1，实际 %d/%d", preview.Success, preview.Failed)
	}
	if len(preview.Courses) != 1 {
		t.Fatalf("期望 1 条规范化课程，实际 %d", len(preview.Courses))
	}
	c := preview.Courses[0]
	if c.PrimaryTeacher != "陳新人" || !c.NewPrimary || c.CourseType != "required" || c.AcademicYear != "113" || c.Semester != "1" {
		t.Errorf("规范化课程不符: %+v", c)
	}
	// dry run 不触发教师刷新
	if fx.api.listCalls != 1 {
		t.Errorf("预览只应拉取一次教师列表，实际 %d", fx.api.listCalls)
	}
}

// ── 账号导入 ──

func accountInput(t *testing.T) *ImportInput {
	rows := [][]string{
		{"姓名", "學號", "教師編號", "系所", "年級", "研究室", "職稱", "身份", "身分證字號"},
		{"林小華", "B11001", "", "", "2", "", "", "學生", "A123456789"},
		{"張老師", "", "T900", "", "", "M301", "教授", "教師", "B223344556"},
		{"", "", "", "", "", "", "", "", ""},
		{"無證件", "B11002", "", "", "", "", "", "學生", ""},
	}
	return &ImportInput{Filename: "accounts.xlsx", Data: buildWorkbook(t, rows)}
}

func TestImportAccounts(t *testing.T) {
	fx := setupTestImportService(nil)

	resp, err := fx.svc.ImportAccounts(context.Background(), accountInput(t))
	if err != nil {
		t.Fatalf("ImportAccounts 应成功: %v", err)
	}
	if resp.Total != 3 || resp.Success != 2 || resp.Failed != 1 {
		t.Errorf("期望 3/2/1，实际 %d/%d/%d", resp.Total, resp.Success, resp.Failed)
	}
	if len(resp.Errors) != 1 || resp.Errors[0].Kind != string(importer.KindIdentifier) {
		t.Errorf("期望缺少身分证字号的错误，实际 %+v", resp.Errors)
	}
	if len(fx.api.accounts) != 2 {
		t.Fatalf("期望提交 2 个账号，实际 %d", len(fx.api.accounts))
	}
	student, teacher := fx.api.accounts[0], fx.api.accounts[1]
	if student.Password != "456789" || student.Department != "資管系" || student.Grade != 2 {
		t.Errorf("学生账号不符: %+v", student)
	}
	if teacher.Role != importer.RoleTeacher || teacher.TeacherID != "T900" || teacher.Title != "教授" {
		t.Errorf("教师账号不符: %+v", teacher)
	}

	run := fx.runs.runs[resp.RunID]
	if run == nil || run.Kind != model.ImportKindAccount || run.Rows[1].AccountRole != "teacher" {
		t.Errorf("账号运行记录不符: %+v", run)
	}
}

func TestPreviewAccounts_HidesPassword(t *testing.T) {
	fx := setupTestImportService(nil)

	preview, err := fx.svc.PreviewAccounts(context.Background(), accountInput(t))
	if err != nil {
		t.Fatalf("PreviewAccounts 应成功: %v", err)
	}
	if len(preview.Accounts) != 2 || len(fx.api.accounts) != 0 {
		t.Errorf("期望 2 条预览且不提交，实际 %d/%d", len(preview.Accounts), len(fx.api.accounts))
	}
}

// ── 导入记录 ──

func TestListAndGetRuns(t *testing.T) {
	fx := setupTestImportService(nil)
	ctx := context.Background()

	courseResp, err := fx.svc.ImportCourses(ctx, courseInput(t, courseRow("IM101", "資料庫系統", "王大明")))
	if err != nil {
		t.Fatalf("ImportCourses 失败: %v", err)
	}
	if _, err := fx.svc.ImportAccounts(ctx, accountInput(t)); err != nil {
		t.Fatalf("ImportAccounts 失败: %v", err)
	}

	list, total, err := fx.svc.ListRuns(ctx, &dto.ImportRunListRequest{Kind: model.ImportKindCourse})
	if err != nil {
		t.Fatalf("ListRuns 失败: %v", err)
	}
	if total != 1 || len(list) != 1 || list[0].ID != courseResp.RunID {
		t.Errorf("期望只返回课程导入记录，实际 total=%d list=%+v", total, list)
	}

	detail, err := fx.svc.GetRun(ctx, courseResp.RunID)
	if err != nil {
		t.Fatalf("GetRun 失败: %v", err)
	}
	if len(detail.Rows) != 1 || detail.Rows[0].CourseCode != "IM101" {
		t.Errorf("运行详情不符: %+v", detail.Rows)
	}

	if _, err := fx.svc.GetRun(ctx, "missing"); !errors.Is(err, ErrImportRunNotFound) {
		t.Errorf("期望 ErrImportRunNotFound，实际: %v", err)
	}
}
