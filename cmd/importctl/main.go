// importctl 在命令行直接对选课系统后端执行批量导入，不依赖数据库与 Redis。
//
//	importctl courses  -file 課程.xlsx [-department 資管系] [-dry-run]
//	importctl accounts -file 名單.xls [-dry-run]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"

	"github.com/xaiowei11/classmatch-web/config"
	"github.com/xaiowei11/classmatch-web/internal/backend"
	"github.com/xaiowei11/classmatch-web/internal/importer"
	applogger "github.com/xaiowei11/classmatch-web/pkg/logger"
)

// maxListedErrors 终端只打印前若干条错误
const maxListedErrors = 50

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	kind := os.Args[1]

	fs := flag.NewFlagSet(kind, flag.ExitOnError)
	file := fs.String("file", "", "工作簿路径（.xlsx / .xls）")
	department := fs.String("department", "", "表格没有开课系所列时使用的系所")
	dryRun := fs.Bool("dry-run", false, "只解析与校验，不提交后端")
	configPath := fs.String("config", "", "配置文件路径")
	fs.Parse(os.Args[2:])

	if *file == "" || (kind != "courses" && kind != "accounts") {
		usage()
		os.Exit(2)
	}

	cfg, err := config.LoadForCLI(*configPath)
	if err != nil {
		color.Red("加载配置失败: %v", err)
		os.Exit(1)
	}
	// 终端输出以表格为主，日志只保留警告以上
	cfg.Log.Level = "warn"
	cfg.Log.Format = "console"
	cfg.Log.Output = "stderr"
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		color.Red("初始化日志失败: %v", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := run(ctx, cfg, logger, kind, *file, *department, *dryRun)
	if err != nil {
		color.Red("导入失败: %v", err)
		os.Exit(1)
	}

	printResult(res)
	if res.Failed > 0 || res.Cancelled {
		os.Exit(3)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "用法: importctl courses|accounts -file <path> [-department <系所>] [-dry-run] [-config <path>]")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, kind, path, department string, dryRun bool) (*importer.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := importer.ReadWorkbook(f)
	if err != nil {
		return nil, err
	}
	if department == "" {
		department = cfg.Import.DefaultDepartment
	}
	opts := importer.Options{
		DefaultDepartment: department,
		Concurrency:       cfg.Import.Concurrency,
		DryRun:            dryRun,
	}
	api := backend.NewClient(&cfg.Backend, logger)

	if kind == "accounts" {
		det := importer.DetectAccountColumns(rows, cfg.Import.ScanRows)
		if err := checkRowCount(rows, det.DataStartRow, cfg.Import.MaxRows); err != nil {
			return nil, err
		}
		return importer.NewAccountImporter(api, logger).Run(ctx, rows, det, opts), nil
	}

	det := importer.DetectLayout(rows, cfg.Import.ScanRows)
	if !det.HeaderFound() {
		color.Yellow("未找到表头，按 %s 布局从第 1 行开始解析", det.Layout)
	}
	if err := checkRowCount(rows, det.DataStartRow, cfg.Import.MaxRows); err != nil {
		return nil, err
	}

	teachers, err := api.ListTeachers(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取教师列表失败: %w", err)
	}

	// 进程结束即丢弃教师列表，无需刷新
	return importer.NewCourseImporter(api, nil, logger).Run(ctx, rows, det, backend.KnownTeachers(teachers), opts), nil
}

// checkRowCount 与服务端一致：只统计数据区的非空行
func checkRowCount(rows []importer.RawRow, start, limit int) error {
	if limit <= 0 {
		return nil
	}
	if n := importer.CountDataRows(rows, start); n > limit {
		return fmt.Errorf("表格有 %d 行数据，超过上限 %d", n, limit)
	}
	return nil
}

func printResult(res *importer.Result) {
	title := "导入完成"
	if res.DryRun {
		title = "预览完成（未提交）"
	}
	color.Cyan("\n=== %s ===", title)

	summary := tablewriter.NewWriter(os.Stdout)
	summary.SetHeader([]string{"类型", "布局", "总行数", "成功", "失败", "新教师"})
	summary.SetBorder(false)
	layout := res.Layout
	if layout == "" {
		layout = "-"
	}
	summary.Append([]string{
		string(res.Kind),
		layout,
		strconv.Itoa(res.Total),
		strconv.Itoa(res.Success),
		strconv.Itoa(res.Failed),
		strconv.Itoa(len(res.NewTeachers)),
	})
	summary.Render()

	if len(res.NewTeachers) > 0 {
		color.Yellow("\n新建教师: %v", res.NewTeachers)
	}

	if len(res.Errors) > 0 {
		color.Red("\n失败行")
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"行号", "名称", "错误类型", "错误信息"})
		table.SetAlignment(tablewriter.ALIGN_LEFT)
		table.SetAutoWrapText(false)
		for i, e := range res.Errors {
			if i == maxListedErrors {
				break
			}
			table.Append([]string{strconv.Itoa(e.Row), e.Label, string(e.Kind), e.Message})
		}
		table.Render()
		if len(res.Errors) > maxListedErrors {
			color.Red("……其余 %d 条省略", len(res.Errors)-maxListedErrors)
		}
	}

	switch {
	case res.Cancelled:
		color.Yellow("\n导入已中断，以上为已处理部分")
	case res.Failed == 0:
		color.Green("\n全部成功")
	}
}
