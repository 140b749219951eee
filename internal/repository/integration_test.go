//go:build integration

package repository_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xaiowei11/classmatch-web/internal/model"
	"github.com/xaiowei11/classmatch-web/internal/repository"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=postgres password=postgres dbname=classmatch_import_test sslmode=disable TimeZone=Asia/Taipei"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	if err := testDB.AutoMigrate(&model.Operator{}, &model.ImportRun{}, &model.ImportRunRow{}); err != nil {
		fmt.Fprintf(os.Stderr, "AutoMigrate 失败: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

func newRun(kind string, rows ...model.ImportRunRow) *model.ImportRun {
	now := time.Now()
	return &model.ImportRun{
		Kind:        kind,
		Filename:    "courses.xlsx",
		Layout:      "simple15",
		Total:       len(rows),
		NewTeachers: model.StringArray{"新老師"},
		StartedAt:   now,
		FinishedAt:  now,
		Rows:        rows,
	}
}

func cleanupRun(id string) {
	testDB.Where("import_run_id = ?", id).Delete(&model.ImportRunRow{})
	testDB.Where("import_run_id = ?", id).Delete(&model.ImportRun{})
}

// ═══════════════════════════════════════════════════════════
// Test: ImportRun
// ═══════════════════════════════════════════════════════════

func TestImportRun_CreateWithRows(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	run := newRun(model.ImportKindCourse,
		model.ImportRunRow{RowNumber: 3, Status: model.RowStatusFailed, Message: "缺少课程名称"},
		model.ImportRunRow{RowNumber: 2, Status: model.RowStatusSuccess, CourseCode: "IM101"},
	)
	if err := repo.ImportRun.Create(ctx, run); err != nil {
		t.Fatalf("Create 失败: %v", err)
	}
	defer cleanupRun(run.ImportRunID)

	if len(run.Rows) != 2 {
		t.Errorf("Create 后应恢复 Rows，实际 %d", len(run.Rows))
	}

	found, err := repo.ImportRun.GetWithRows(ctx, run.ImportRunID, "")
	if err != nil {
		t.Fatalf("GetWithRows 失败: %v", err)
	}
	if len(found.Rows) != 2 || found.Rows[0].RowNumber != 2 {
		t.Errorf("行应按行号排序，实际 %+v", found.Rows)
	}
	if len(found.NewTeachers) != 1 || found.NewTeachers[0] != "新老師" {
		t.Errorf("NewTeachers 读写不一致: %v", found.NewTeachers)
	}

	failed, err := repo.ImportRun.GetWithRows(ctx, run.ImportRunID, model.RowStatusFailed)
	if err != nil {
		t.Fatalf("GetWithRows(failed) 失败: %v", err)
	}
	if len(failed.Rows) != 1 || failed.Rows[0].Message != "缺少课程名称" {
		t.Errorf("期望只返回失败行，实际 %+v", failed.Rows)
	}
}

func TestImportRun_ListFilter(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	course := newRun(model.ImportKindCourse)
	account := newRun(model.ImportKindAccount)
	for _, r := range []*model.ImportRun{course, account} {
		if err := repo.ImportRun.Create(ctx, r); err != nil {
			t.Fatalf("Create 失败: %v", err)
		}
		defer cleanupRun(r.ImportRunID)
	}

	runs, total, err := repo.ImportRun.List(ctx, repository.ImportRunFilter{Kind: model.ImportKindAccount}, 0, 50)
	if err != nil {
		t.Fatalf("List 失败: %v", err)
	}
	if total < 1 {
		t.Errorf("期望至少 1 条账号导入记录，实际 %d", total)
	}
	for _, r := range runs {
		if r.Kind != model.ImportKindAccount {
			t.Errorf("筛选结果包含其他类型: %s", r.Kind)
		}
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Transaction
// ═══════════════════════════════════════════════════════════

func TestTransaction_Rollback(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	tx, err := repo.BeginTx(ctx)
	if err != nil {
		t.Fatalf("BeginTx 失败: %v", err)
	}

	op := &model.Operator{
		Username:     fmt.Sprintf("op-%d", time.Now().UnixNano()),
		PasswordHash: "x",
		Role:         model.OperatorRoleAdmin,
		IsActive:     true,
	}
	if err := repo.WithTx(tx).Operator.Create(ctx, op); err != nil {
		tx.Rollback()
		t.Fatalf("事务内创建 Operator 失败: %v", err)
	}
	tx.Rollback()

	if _, err := repo.Operator.GetByUsername(ctx, op.Username); err == nil {
		testDB.Unscoped().Where("operator_id = ?", op.OperatorID).Delete(&model.Operator{})
		t.Fatal("期望回滚后查不到 Operator，但实际查到了")
	}
}

func TestOperator_UpdateLastLogin(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	op := &model.Operator{
		Username:     fmt.Sprintf("op-%d", time.Now().UnixNano()),
		PasswordHash: "x",
		Role:         model.OperatorRoleViewer,
		IsActive:     true,
	}
	if err := repo.Operator.Create(ctx, op); err != nil {
		t.Fatalf("Create 失败: %v", err)
	}
	defer testDB.Unscoped().Where("operator_id = ?", op.OperatorID).Delete(&model.Operator{})

	now := time.Now().Truncate(time.Second)
	if err := repo.Operator.UpdateLastLogin(ctx, op.OperatorID, now); err != nil {
		t.Fatalf("UpdateLastLogin 失败: %v", err)
	}
	found, err := repo.Operator.GetByID(ctx, op.OperatorID)
	if err != nil {
		t.Fatalf("GetByID 失败: %v", err)
	}
	if found.LastLoginAt == nil || !found.LastLoginAt.Equal(now) {
		t.Errorf("期望 LastLoginAt=%v，实际 %v", now, found.LastLoginAt)
	}
}
