package model

import "time"

// 导入类型
const (
	ImportKindCourse  = "course"
	ImportKindAccount = "account"
)

// 行状态
const (
	RowStatusSuccess = "success"
	RowStatusFailed  = "failed"
)

// ImportRun 一次导入运行的汇总 对应 import_runs
type ImportRun struct {
	ImportRunID  string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"import_run_id"`
	Kind         string      `gorm:"type:varchar(20);not null"                      json:"kind"`
	Filename     string      `gorm:"type:varchar(255);not null;default:''"          json:"filename"`
	Layout       string      `gorm:"type:varchar(32);not null;default:''"           json:"layout"`
	HeaderRow    int         `gorm:"not null"                                       json:"header_row"`
	DataStartRow int         `gorm:"not null;default:0"                             json:"data_start_row"`
	Department   string      `gorm:"type:varchar(100);not null;default:''"          json:"department"`
	Total        int         `gorm:"not null;default:0"                             json:"total"`
	SuccessCount int         `gorm:"not null;default:0"                             json:"success_count"`
	FailedCount  int         `gorm:"not null;default:0"                             json:"failed_count"`
	Cancelled    bool        `gorm:"not null;default:false"                         json:"cancelled"`
	NewTeachers  StringArray `gorm:"type:text[];not null;default:'{}'"              json:"new_teachers"`
	OperatorID   *string     `gorm:"type:uuid"                                      json:"operator_id,omitempty"`
	StartedAt    time.Time   `gorm:"type:timestamptz;not null"                      json:"started_at"`
	FinishedAt   time.Time   `gorm:"type:timestamptz;not null"                      json:"finished_at"`
	BaseModel

	// 关联
	Rows []ImportRunRow `gorm:"foreignKey:ImportRunID;references:ImportRunID" json:"rows,omitempty"`
}

// TableName 指定表名
func (ImportRun) TableName() string { return "import_runs" }

// ImportRunRow 导入运行中单个已尝试行的结果 对应 import_run_rows
type ImportRunRow struct {
	ImportRunRowID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"import_run_row_id"`
	ImportRunID    string    `gorm:"type:uuid;not null;index"                       json:"import_run_id"`
	RowNumber      int       `gorm:"not null"                                       json:"row_number"`
	Label          string    `gorm:"type:varchar(255);not null;default:''"          json:"label"`
	Status         string    `gorm:"type:varchar(16);not null"                      json:"status"`
	ErrorKind      string    `gorm:"type:varchar(32);not null;default:''"           json:"error_kind,omitempty"`
	Message        string    `gorm:"type:text;not null;default:''"                  json:"message,omitempty"`
	CourseCode     string    `gorm:"type:varchar(64);not null;default:''"           json:"course_code,omitempty"`
	Classroom      string    `gorm:"type:varchar(64);not null;default:''"           json:"classroom,omitempty"`
	Weekday        int       `gorm:"not null;default:0"                             json:"weekday,omitempty"`
	StartPeriod    int       `gorm:"not null;default:0"                             json:"start_period,omitempty"`
	EndPeriod      int       `gorm:"not null;default:0"                             json:"end_period,omitempty"`
	Teachers       string    `gorm:"type:varchar(255);not null;default:''"          json:"teachers,omitempty"`
	AccountRole    string    `gorm:"type:varchar(16);not null;default:''"           json:"account_role,omitempty"`
	CreatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (ImportRunRow) TableName() string { return "import_run_rows" }
