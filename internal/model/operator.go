package model

import "time"

// 操作员角色
const (
	OperatorRoleAdmin  = "admin"  // 可执行导入
	OperatorRoleViewer = "viewer" // 只能查看导入记录与导出报表
)

// Operator 导入服务操作员 对应 operators
type Operator struct {
	OperatorID   string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"operator_id"`
	Username     string     `gorm:"type:varchar(64);not null"                      json:"username"`
	PasswordHash string     `gorm:"type:varchar(255);not null"                     json:"-"`
	Name         string     `gorm:"type:varchar(100);not null;default:''"          json:"name"`
	Role         string     `gorm:"type:varchar(20);not null;default:'admin'"      json:"role"`
	IsActive     bool       `gorm:"not null;default:true"                          json:"is_active"`
	LastLoginAt  *time.Time `gorm:"type:timestamptz"                               json:"last_login_at,omitempty"`
	SoftDeleteModel
}

// TableName 指定表名
func (Operator) TableName() string { return "operators" }
