package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xaiowei11/classmatch-web/config"
	"github.com/xaiowei11/classmatch-web/internal/model"
	"github.com/xaiowei11/classmatch-web/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportRunNotFound   = errors.New("导入记录不存在")
	ErrExportNotCourseRun  = errors.New("只有课程导入记录可以导出课表")
	ErrExportNoRows        = errors.New("导入记录中没有可导出的课程")
	ErrExportGenerateFail  = errors.New("生成导出文件失败")
	ErrExportInvalidPeriod = errors.New("节次时间配置无效")
)

// ExportService 导出业务接口
//
//   - 错误报表：失败行导出为 Excel (.xlsx) 或 CSV，便于修正后重新导入
//   - 课表日历：成功导入的课程按周重复导出为 iCalendar
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置响应头
type ExportService interface {
	ExportErrorsXLSX(ctx context.Context, runID string) (*bytes.Buffer, string, error)
	ExportErrorsCSV(ctx context.Context, runID string) (*bytes.Buffer, string, error)
	// ExportCalendar semesterStart 为第一周的任意一天，weeks<=0 时使用配置值
	ExportCalendar(ctx context.Context, runID string, semesterStart time.Time, weeks int) (*bytes.Buffer, string, error)
}

type exportService struct {
	cfg    *config.CalendarConfig
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(cfg *config.CalendarConfig, repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{cfg: cfg, repo: repo, logger: logger}
}

// errorReportRow 错误报表的一行（CSV 列名与 Excel 表头一致）
type errorReportRow struct {
	Row     int    `csv:"行号"`
	Label   string `csv:"名称"`
	Kind    string `csv:"错误类型"`
	Message string `csv:"错误信息"`
}

var errorReportHeader = []string{"行号", "名称", "错误类型", "错误信息"}

// ═══════════════════════════════════════════════════════════
// ExportErrorsXLSX 失败行导出为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 第 1 行标题：文件名 + 导入时间，合并单元格
//   - 第 2 行表头：行号 | 名称 | 错误类型 | 错误信息
//   - 之后每个失败行一行，按原表格行号升序

func (s *exportService) ExportErrorsXLSX(ctx context.Context, runID string) (*bytes.Buffer, string, error) {
	run, rows, err := s.failedRows(ctx, runID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "导入错误"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 8)
	f.SetColWidth(sheetName, "B", "B", 28)
	f.SetColWidth(sheetName, "C", "C", 20)
	f.SetColWidth(sheetName, "D", "D", 60)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s（%s）失败 %d 行", run.Filename, run.StartedAt.Format("2006-01-02 15:04"), len(rows)))
	f.MergeCell(sheetName, "A1", cell(colName(len(errorReportHeader)-1), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	for i, h := range errorReportHeader {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheetName, "A2", cell(colName(len(errorReportHeader)-1), 2), headerStyle)

	// 数据行
	for i, r := range rows {
		row := 3 + i
		f.SetCellValue(sheetName, cell("A", row), r.Row)
		f.SetCellValue(sheetName, cell("B", row), r.Label)
		f.SetCellValue(sheetName, cell("C", row), r.Kind)
		f.SetCellValue(sheetName, cell("D", row), r.Message)
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.String("run_id", runID), zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	return buf, reportFilename(run, "xlsx"), nil
}

// ExportErrorsCSV 失败行导出为 UTF-8 CSV（带 BOM，Excel 可直接打开）
func (s *exportService) ExportErrorsCSV(ctx context.Context, runID string) (*bytes.Buffer, string, error) {
	run, rows, err := s.failedRows(ctx, runID)
	if err != nil {
		return nil, "", err
	}

	buf := new(bytes.Buffer)
	buf.WriteString("\xEF\xBB\xBF")
	if err := gocsv.Marshal(&rows, buf); err != nil {
		s.logger.Error("写入 CSV 失败", zap.String("run_id", runID), zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	return buf, reportFilename(run, "csv"), nil
}

// ── 辅助函数 ──

func (s *exportService) failedRows(ctx context.Context, runID string) (*model.ImportRun, []errorReportRow, error) {
	run, err := s.loadRun(ctx, runID, model.RowStatusFailed)
	if err != nil {
		return nil, nil, err
	}
	rows := make([]errorReportRow, 0, len(run.Rows))
	for _, r := range run.Rows {
		rows = append(rows, errorReportRow{
			Row:     r.RowNumber,
			Label:   r.Label,
			Kind:    r.ErrorKind,
			Message: r.Message,
		})
	}
	return run, rows, nil
}

func (s *exportService) loadRun(ctx context.Context, runID, status string) (*model.ImportRun, error) {
	run, err := s.repo.ImportRun.GetWithRows(ctx, runID, status)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExportRunNotFound
		}
		s.logger.Error("查询导入记录失败", zap.String("run_id", runID), zap.Error(err))
		return nil, err
	}
	return run, nil
}

func reportFilename(run *model.ImportRun, ext string) string {
	kind := "课程"
	if run.Kind == model.ImportKindAccount {
		kind = "账号"
	}
	return fmt.Sprintf("%s导入错误_%s.%s", kind, run.StartedAt.Format("20060102_1504"), ext)
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
