package dto

// ── 导入请求 ──

// ImportRequest multipart 表单中的文件以外字段
type ImportRequest struct {
	// 开课系所缺失时使用的系所；账号导入时为学生默认系所
	Department string `form:"department" binding:"omitempty,max=100"`
}

// ImportRunListRequest 导入记录列表查询参数
type ImportRunListRequest struct {
	PaginationRequest
	Kind string `form:"kind" binding:"omitempty,oneof=course account"`
}

// CalendarExportRequest 课表日历导出参数
type CalendarExportRequest struct {
	SemesterStart string `form:"semester_start" binding:"required,datetime=2006-01-02"` // 学期第一周的星期一
	Weeks         int    `form:"weeks"          binding:"omitempty,min=1,max=30"`
}

// ── 导入响应 ──

// RowErrorResponse 单行失败原因
type RowErrorResponse struct {
	Row     int    `json:"row"`
	Label   string `json:"label,omitempty"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ImportResultResponse 一次导入的汇总
type ImportResultResponse struct {
	RunID        string             `json:"run_id,omitempty"` // 预览不落库，为空
	Kind         string             `json:"kind"`
	Filename     string             `json:"filename"`
	Layout       string             `json:"layout,omitempty"`
	HeaderFound  bool               `json:"header_found"`
	DataStartRow int                `json:"data_start_row"`
	Total        int                `json:"total"`
	Success      int                `json:"success"`
	Failed       int                `json:"failed"`
	Cancelled    bool               `json:"cancelled"`
	DryRun       bool               `json:"dry_run"`
	NewTeachers  []string           `json:"new_teachers"`
	Errors       []RowErrorResponse `json:"errors"`
}

// CoursePreviewItem 预览中一门规范化后的课程
type CoursePreviewItem struct {
	Row            int      `json:"row"`
	CourseCode     string   `json:"course_code"`
	CourseName     string   `json:"course_name"`
	CourseType     string   `json:"course_type"`
	Credits        int      `json:"credits"`
	Hours          int      `json:"hours"`
	AcademicYear   string   `json:"academic_year"`
	Semester       string   `json:"semester"`
	Department     string   `json:"department"`
	GradeLevel     int      `json:"grade_level"`
	Classroom      string   `json:"classroom"`
	Weekday        int      `json:"weekday"`
	StartPeriod    int      `json:"start_period"`
	EndPeriod      int      `json:"end_period"`
	MaxStudents    int      `json:"max_students"`
	PrimaryTeacher string   `json:"primary_teacher"`
	NewPrimary     bool     `json:"new_primary"`
	CoTeachers     []string `json:"co_teachers"`
}

// AccountPreviewItem 预览中一个账号（不含密码）
type AccountPreviewItem struct {
	Row        int    `json:"row"`
	RealName   string `json:"real_name"`
	Role       string `json:"role"`
	StudentID  string `json:"student_id,omitempty"`
	Department string `json:"department,omitempty"`
	Grade      int    `json:"grade,omitempty"`
	TeacherID  string `json:"teacher_id,omitempty"`
	Office     string `json:"office,omitempty"`
	Title      string `json:"title,omitempty"`
}

// ImportPreviewResponse 预览结果：汇总与规范化记录
type ImportPreviewResponse struct {
	ImportResultResponse
	Courses  []CoursePreviewItem  `json:"courses,omitempty"`
	Accounts []AccountPreviewItem `json:"accounts,omitempty"`
}

// ImportRunResponse 导入记录列表项
type ImportRunResponse struct {
	ID          string   `json:"id"`
	Kind        string   `json:"kind"`
	Filename    string   `json:"filename"`
	Layout      string   `json:"layout,omitempty"`
	Department  string   `json:"department,omitempty"`
	Total       int      `json:"total"`
	Success     int      `json:"success"`
	Failed      int      `json:"failed"`
	Cancelled   bool     `json:"cancelled"`
	NewTeachers []string `json:"new_teachers"`
	OperatorID  string   `json:"operator_id,omitempty"`
	StartedAt   string   `json:"started_at"`
	FinishedAt  string   `json:"finished_at"`
}

// ImportRunRowResponse 导入记录中的一行
type ImportRunRowResponse struct {
	Row         int    `json:"row"`
	Label       string `json:"label"`
	Status      string `json:"status"`
	ErrorKind   string `json:"error_kind,omitempty"`
	Message     string `json:"message,omitempty"`
	CourseCode  string `json:"course_code,omitempty"`
	Classroom   string `json:"classroom,omitempty"`
	Weekday     int    `json:"weekday,omitempty"`
	StartPeriod int    `json:"start_period,omitempty"`
	EndPeriod   int    `json:"end_period,omitempty"`
	Teachers    string `json:"teachers,omitempty"`
	AccountRole string `json:"account_role,omitempty"`
}

// ImportRunDetailResponse 导入记录详情
type ImportRunDetailResponse struct {
	ImportRunResponse
	Rows []ImportRunRowResponse `json:"rows"`
}
