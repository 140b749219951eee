package importer

// ════════════════════════════════════════════════════════════
// 按版式从 RawRow 提取课程候选数据
// ════════════════════════════════════════════════════════════

// Candidate 按版式提取出的一行课程数据（原始文本，尚未规范化）。
// 具体类型为 *Simple15Candidate、*Department16Candidate、*Large31Candidate 之一。
type Candidate interface {
	Layout() Layout
	Fields() *CourseFields
	isCandidate()
}

// CourseFields 三种版式共有的字段
type CourseFields struct {
	SemesterCode string
	CourseCode   string
	GradeLevel   string
	CourseName   string
	TeacherText  string
	MaxStudents  string
	Credits      string
	HoursPerWeek string
	Category     string
	Classroom    string
	WeekdayText  string
	PeriodText   string
	Description  string
}

type Simple15Candidate struct{ CourseFields }

type Department16Candidate struct {
	CourseFields
	OpeningDepartment string
}

type Large31Candidate struct{ CourseFields }

func (c *Simple15Candidate) Layout() Layout        { return LayoutSimple15 }
func (c *Simple15Candidate) Fields() *CourseFields { return &c.CourseFields }
func (*Simple15Candidate) isCandidate()            {}

func (c *Department16Candidate) Layout() Layout        { return LayoutWithDepartment16 }
func (c *Department16Candidate) Fields() *CourseFields { return &c.CourseFields }
func (*Department16Candidate) isCandidate()            {}

func (c *Large31Candidate) Layout() Layout        { return LayoutLarge31 }
func (c *Large31Candidate) Fields() *CourseFields { return &c.CourseFields }
func (*Large31Candidate) isCandidate()            {}

// courseColumns 各字段所在列索引，-1 表示该版式没有此列
type courseColumns struct {
	semester, department, code, grade, name, teacher int
	maxStudents, credits, hours, category, classroom int
	weekday, period, description                     int
}

var layoutColumns = map[Layout]courseColumns{
	LayoutSimple15: {
		semester: 0, department: -1, code: 2, grade: 3, name: 4, teacher: 5,
		maxStudents: 6, credits: 7, hours: 9, category: 10, classroom: 11,
		weekday: 12, period: 13, description: 14,
	},
	LayoutWithDepartment16: {
		semester: 0, department: 2, code: 3, grade: 4, name: 5, teacher: 6,
		maxStudents: 7, credits: 8, hours: 10, category: 11, classroom: 12,
		weekday: 13, period: 14, description: 15,
	},
	LayoutLarge31: {
		semester: 1, department: -1, code: 5, grade: 7, name: 9, teacher: 11,
		maxStudents: 12, credits: 15, hours: 17, category: 19, classroom: 20,
		weekday: 21, period: 22, description: 24,
	},
}

// Extract 按版式提取候选数据；空行或首列为空的行返回 false
func Extract(row RawRow, layout Layout) (Candidate, bool) {
	if row.IsBlank() {
		return nil, false
	}

	cols, ok := layoutColumns[layout]
	if !ok {
		cols = layoutColumns[LayoutSimple15]
	}

	fields := CourseFields{
		SemesterCode: row.Text(cols.semester),
		CourseCode:   row.Text(cols.code),
		GradeLevel:   row.Text(cols.grade),
		CourseName:   row.Text(cols.name),
		TeacherText:  row.Text(cols.teacher),
		MaxStudents:  row.Text(cols.maxStudents),
		Credits:      row.Text(cols.credits),
		HoursPerWeek: row.Text(cols.hours),
		Category:     row.Text(cols.category),
		Classroom:    row.Text(cols.classroom),
		WeekdayText:  row.Text(cols.weekday),
		PeriodText:   row.Text(cols.period),
		Description:  row.Text(cols.description),
	}

	switch layout {
	case LayoutWithDepartment16:
		return &Department16Candidate{CourseFields: fields, OpeningDepartment: row.Text(cols.department)}, true
	case LayoutLarge31:
		return &Large31Candidate{CourseFields: fields}, true
	default:
		return &Simple15Candidate{CourseFields: fields}, true
	}
}
