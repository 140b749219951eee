package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/xaiowei11/classmatch-web/internal/model"
)

// ImportRunFilter 导入记录列表筛选条件
type ImportRunFilter struct {
	Kind       string
	OperatorID string
}

// ImportRunRepository 导入运行记录数据访问接口
type ImportRunRepository interface {
	// Create 在同一事务中写入运行汇总与全部行记录
	Create(ctx context.Context, run *model.ImportRun) error
	GetByID(ctx context.Context, id string) (*model.ImportRun, error)
	// GetWithRows 查询运行记录及其行，status 为空时返回全部行
	GetWithRows(ctx context.Context, id, status string) (*model.ImportRun, error)
	List(ctx context.Context, filter ImportRunFilter, offset, limit int) ([]model.ImportRun, int64, error)
}

// importRunRepo ImportRunRepository 的 GORM 实现
type importRunRepo struct {
	db *gorm.DB
}

// NewImportRunRepo 创建 ImportRunRepository 实例
func NewImportRunRepo(db *gorm.DB) ImportRunRepository {
	return &importRunRepo{db: db}
}

// 单批插入行数，避免超出 PostgreSQL 参数上限
const rowBatchSize = 500

func (r *importRunRepo) Create(ctx context.Context, run *model.ImportRun) error {
	rows := run.Rows
	run.Rows = nil
	defer func() { run.Rows = rows }()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(run).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		for i := range rows {
			rows[i].ImportRunID = run.ImportRunID
		}
		return tx.CreateInBatches(rows, rowBatchSize).Error
	})
}

func (r *importRunRepo) GetByID(ctx context.Context, id string) (*model.ImportRun, error) {
	var run model.ImportRun
	err := r.db.WithContext(ctx).
		Where("import_run_id = ?", id).
		First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *importRunRepo) GetWithRows(ctx context.Context, id, status string) (*model.ImportRun, error) {
	var run model.ImportRun
	err := r.db.WithContext(ctx).
		Preload("Rows", func(db *gorm.DB) *gorm.DB {
			if status != "" {
				db = db.Where("status = ?", status)
			}
			return db.Order("row_number ASC")
		}).
		Where("import_run_id = ?", id).
		First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *importRunRepo) List(ctx context.Context, filter ImportRunFilter, offset, limit int) ([]model.ImportRun, int64, error) {
	var runs []model.ImportRun
	var total int64

	db := r.db.WithContext(ctx).Model(&model.ImportRun{})
	if filter.Kind != "" {
		db = db.Where("kind = ?", filter.Kind)
	}
	if filter.OperatorID != "" {
		db = db.Where("operator_id = ?", filter.OperatorID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Order("started_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}
