package importer

// 课程字段默认值
const (
	DefaultGradeLevel  = 1
	DefaultMaxStudents = 50
	DefaultCredits     = 2
	DefaultHours       = 2
)

// CourseRecord 规范化后可提交到后端的课程记录
type CourseRecord struct {
	Row          int
	CourseCode   string
	CourseName   string
	CourseType   CourseType
	Description  string
	Credits      int
	Hours        int
	AcademicYear string
	Semester     string
	Department   string
	GradeLevel   int
	Classroom    string
	Weekday      int
	StartPeriod  int
	EndPeriod    int
	MaxStudents  int

	TeacherNames   []string // 拆分后的原始姓名，第一位为主授教师
	PrimaryTeacher *TeacherRef
	CoTeachers     []*TeacherRef
}

// NormalizeCourse 将候选数据转换为课程记录（尚未解析教师）。
// 开课系所优先使用表格中的值，否则使用 defaultDepartment。
func NormalizeCourse(c Candidate, defaultDepartment string) *CourseRecord {
	f := c.Fields()

	department := defaultDepartment
	if d, ok := c.(*Department16Candidate); ok && d.OpeningDepartment != "" {
		department = d.OpeningDepartment
	}

	year, term := SplitSemesterCode(f.SemesterCode)
	periods := ParsePeriods(f.PeriodText)

	return &CourseRecord{
		CourseCode:   f.CourseCode,
		CourseName:   f.CourseName,
		CourseType:   ClassifyCourseType(f.Category),
		Description:  f.Description,
		Credits:      intOrDefault(f.Credits, DefaultCredits),
		Hours:        ceilOrDefault(f.HoursPerWeek, DefaultHours),
		AcademicYear: year,
		Semester:     term,
		Department:   department,
		GradeLevel:   intOrDefault(f.GradeLevel, DefaultGradeLevel),
		Classroom:    f.Classroom,
		Weekday:      MapWeekday(f.WeekdayText),
		StartPeriod:  periods.Start,
		EndPeriod:    periods.End,
		MaxStudents:  intOrDefault(f.MaxStudents, DefaultMaxStudents),
		TeacherNames: SplitTeachers(f.TeacherText),
	}
}

// ValidateCourse 校验必填字段与节次区间，返回第一个不满足的条件
func ValidateCourse(rec *CourseRecord) *RowError {
	switch {
	case rec.CourseCode == "":
		return validationFailure("缺少课程代码")
	case rec.CourseName == "":
		return validationFailure("缺少课程名称")
	case len(rec.TeacherNames) == 0:
		return validationFailure("缺少教师姓名")
	case rec.Classroom == "":
		return validationFailure("缺少上课教室")
	case rec.StartPeriod > rec.EndPeriod:
		return validationFailure("开始节次（%d）不能晚于结束节次（%d）", rec.StartPeriod, rec.EndPeriod)
	}
	return nil
}

// TeacherDisplay 主授与合授教师姓名，以 “、” 连接
func (r *CourseRecord) TeacherDisplay() string {
	if r.PrimaryTeacher == nil {
		return ""
	}
	s := r.PrimaryTeacher.Name
	for _, t := range r.CoTeachers {
		s += "、" + t.Name
	}
	return s
}
