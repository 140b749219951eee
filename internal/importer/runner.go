package importer

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ════════════════════════════════════════════════════════════
// 导入编排：逐行 提取 → 规范化 → 校验 → 解析教师 → 提交后端
// ════════════════════════════════════════════════════════════

// CourseAPI 后端建课接口
type CourseAPI interface {
	CreateCourse(ctx context.Context, rec *CourseRecord) error
}

// AccountAPI 后端注册账号接口
type AccountAPI interface {
	RegisterAccount(ctx context.Context, rec *AccountRecord) error
}

// TeacherRefresher 导入产生新教师后刷新教师列表
type TeacherRefresher interface {
	RefreshTeachers(ctx context.Context) error
}

// Kind 导入类型
type Kind string

const (
	KindCourse  Kind = "course"
	KindAccount Kind = "account"
)

// Options 单次导入参数
type Options struct {
	DefaultDepartment string
	// Concurrency 同时进行的后端请求数，<=1 时严格逐行提交
	Concurrency int
	// DryRun 只做解析与校验，不调用后端（预览）
	DryRun bool
}

// RowOutcome 单个已尝试行的结果
type RowOutcome struct {
	Row     int
	Label   string
	OK      bool
	Err     *RowError
	Course  *CourseRecord
	Account *AccountRecord

	skipped bool // 取消后未发出的请求，不计入统计
}

func (o *RowOutcome) fail(err *RowError) {
	err.Row = o.Row
	if err.Label == "" {
		err.Label = o.Label
	}
	o.OK = false
	o.Err = err
}

// Result 导入结果汇总。Total 为实际尝试的非空行数，Total = Success + Failed。
type Result struct {
	Kind         Kind
	Layout       string
	HeaderRow    int
	DataStartRow int
	Total        int
	Success      int
	Failed       int
	Errors       []RowError
	NewTeachers  []string
	Cancelled    bool
	DryRun       bool
	Outcomes     []*RowOutcome
	StartedAt    time.Time
	FinishedAt   time.Time
}

// ── 提交调度 ──

type dispatcher struct {
	g      errgroup.Group
	dryRun bool
}

func newDispatcher(opts Options) *dispatcher {
	d := &dispatcher{dryRun: opts.DryRun}
	d.g.SetLimit(max(opts.Concurrency, 1))
	return d
}

// submit 并发度为 1 时会阻塞到上一个请求完成，保证逐行顺序提交
func (d *dispatcher) submit(ctx context.Context, out *RowOutcome, send func(context.Context) error) {
	if d.dryRun {
		out.OK = true
		return
	}
	d.g.Go(func() error {
		if ctx.Err() != nil {
			out.skipped = true
			return nil
		}
		if err := send(ctx); err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				out.fail(&RowError{Kind: KindCancelled, Message: "导入已取消，该行提交结果未知"})
				return nil
			}
			out.fail(asRowError(err))
			return nil
		}
		out.OK = true
		return nil
	})
}

func (d *dispatcher) wait() { _ = d.g.Wait() }

// summarize 按行序汇总
func summarize(res *Result, outcomes []*RowOutcome) {
	res.Outcomes = make([]*RowOutcome, 0, len(outcomes))
	res.Errors = []RowError{}
	for _, out := range outcomes {
		if out.skipped {
			res.Cancelled = true
			continue
		}
		res.Outcomes = append(res.Outcomes, out)
		res.Total++
		if out.OK {
			res.Success++
			continue
		}
		res.Failed++
		res.Errors = append(res.Errors, *out.Err)
		if out.Err.Kind == KindCancelled {
			res.Cancelled = true
		}
	}
}

// ── 课程导入 ──

// CourseImporter 课程批量导入
type CourseImporter struct {
	api       CourseAPI
	refresher TeacherRefresher
	logger    *zap.Logger
}

// NewCourseImporter refresher 可为 nil
func NewCourseImporter(api CourseAPI, refresher TeacherRefresher, logger *zap.Logger) *CourseImporter {
	return &CourseImporter{api: api, refresher: refresher, logger: logger}
}

// Run 执行一次课程导入。单行失败只记录不中止；ctx 取消时停止后续提交并返回已完成部分。
func (im *CourseImporter) Run(ctx context.Context, rows []RawRow, det Detection, known []KnownTeacher, opts Options) *Result {
	res := &Result{
		Kind:         KindCourse,
		Layout:       det.Layout.String(),
		HeaderRow:    det.HeaderRow,
		DataStartRow: det.DataStartRow,
		DryRun:       opts.DryRun,
		StartedAt:    time.Now(),
	}
	resolver := NewTeacherResolver(known)
	d := newDispatcher(opts)

	var outcomes []*RowOutcome
	for i := det.DataStartRow; i < len(rows); i++ {
		if ctx.Err() != nil {
			res.Cancelled = true
			break
		}

		cand, ok := Extract(rows[i], det.Layout)
		if !ok {
			continue
		}
		out := &RowOutcome{Row: i + 1, Label: cand.Fields().CourseName}
		outcomes = append(outcomes, out)

		rec, rowErr := prepareCourse(cand, resolver, opts.DefaultDepartment)
		if rowErr != nil {
			out.fail(rowErr)
			im.logger.Debug("课程行校验失败", zap.Int("row", out.Row), zap.String("reason", rowErr.Message))
			continue
		}
		rec.Row = out.Row
		out.Course = rec

		d.submit(ctx, out, func(ctx context.Context) error {
			return im.api.CreateCourse(ctx, rec)
		})
	}
	d.wait()

	summarize(res, outcomes)
	res.NewTeachers = resolver.Created()
	res.FinishedAt = time.Now()

	if !opts.DryRun && len(res.NewTeachers) > 0 && im.refresher != nil {
		// 即使本次导入被取消，已创建的教师仍需同步
		if err := im.refresher.RefreshTeachers(context.WithoutCancel(ctx)); err != nil {
			im.logger.Warn("刷新教师列表失败", zap.Error(err))
		}
	}

	im.logger.Info("课程导入完成",
		zap.String("layout", res.Layout),
		zap.Int("total", res.Total),
		zap.Int("success", res.Success),
		zap.Int("failed", res.Failed),
		zap.Int("new_teachers", len(res.NewTeachers)),
		zap.Bool("dry_run", opts.DryRun),
		zap.Bool("cancelled", res.Cancelled),
	)
	return res
}

func prepareCourse(cand Candidate, resolver *TeacherResolver, defaultDepartment string) (*CourseRecord, *RowError) {
	rec := NormalizeCourse(cand, defaultDepartment)
	if err := ValidateCourse(rec); err != nil {
		return nil, err
	}

	primary, co, err := resolver.Resolve(rec.TeacherNames)
	if err != nil {
		var re *RowError
		if errors.As(err, &re) {
			return nil, re
		}
		return nil, &RowError{Kind: KindTeacher, Message: err.Error()}
	}
	rec.PrimaryTeacher = primary
	rec.CoTeachers = co
	return rec, nil
}

// ── 账号导入 ──

// AccountImporter 账号批量导入
type AccountImporter struct {
	api    AccountAPI
	logger *zap.Logger
}

func NewAccountImporter(api AccountAPI, logger *zap.Logger) *AccountImporter {
	return &AccountImporter{api: api, logger: logger}
}

// Run 执行一次账号导入。姓名为空的行视为空行跳过；表头缺少姓名列时每个非空行都记为失败。
func (im *AccountImporter) Run(ctx context.Context, rows []RawRow, det AccountDetection, opts Options) *Result {
	res := &Result{
		Kind:         KindAccount,
		HeaderRow:    det.HeaderRow,
		DataStartRow: det.DataStartRow,
		DryRun:       opts.DryRun,
		StartedAt:    time.Now(),
	}
	d := newDispatcher(opts)

	var outcomes []*RowOutcome
	for i := det.DataStartRow; i < len(rows); i++ {
		if ctx.Err() != nil {
			res.Cancelled = true
			break
		}

		row := rows[i]
		if row.IsEmpty() {
			continue
		}
		if det.Columns.Name >= 0 && row.Text(det.Columns.Name) == "" {
			continue
		}

		out := &RowOutcome{Row: i + 1, Label: row.Text(det.Columns.Name)}
		outcomes = append(outcomes, out)

		rec, rowErr := NormalizeAccount(row, det.Columns, opts.DefaultDepartment)
		if rowErr != nil {
			out.fail(rowErr)
			continue
		}
		rec.Row = out.Row
		out.Account = rec

		d.submit(ctx, out, func(ctx context.Context) error {
			return im.api.RegisterAccount(ctx, rec)
		})
	}
	d.wait()

	summarize(res, outcomes)
	res.FinishedAt = time.Now()

	im.logger.Info("账号导入完成",
		zap.Int("total", res.Total),
		zap.Int("success", res.Success),
		zap.Int("failed", res.Failed),
		zap.Bool("dry_run", opts.DryRun),
		zap.Bool("cancelled", res.Cancelled),
	)
	return res
}
