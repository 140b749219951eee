package backend

import (
	"strconv"

	"github.com/xaiowei11/classmatch-web/internal/importer"
)

// CoursePayload POST courses/create/ 请求体。
// 主授教师为已有教师时传 teacher_id，新教师传 teacher_name，二者只出现一个。
type CoursePayload struct {
	CourseCode     string   `json:"course_code"`
	CourseName     string   `json:"course_name"`
	CourseType     string   `json:"course_type"`
	Description    string   `json:"description"`
	Credits        int      `json:"credits"`
	Hours          int      `json:"hours"`
	AcademicYear   string   `json:"academic_year"`
	Semester       string   `json:"semester"`
	Department     string   `json:"department"`
	GradeLevel     int      `json:"grade_level"`
	TeacherID      *int64   `json:"teacher_id,omitempty"`
	TeacherName    string   `json:"teacher_name,omitempty"`
	CoTeachers     []int64  `json:"co_teachers"`
	CoTeacherNames []string `json:"co_teacher_names"`
	Classroom      string   `json:"classroom"`
	Weekday        string   `json:"weekday"`
	StartPeriod    int      `json:"start_period"`
	EndPeriod      int      `json:"end_period"`
	MaxStudents    int      `json:"max_students"`
}

// NewCoursePayload 由规范化课程记录生成请求体
func NewCoursePayload(rec *importer.CourseRecord) CoursePayload {
	p := CoursePayload{
		CourseCode:     rec.CourseCode,
		CourseName:     rec.CourseName,
		CourseType:     string(rec.CourseType),
		Description:    rec.Description,
		Credits:        rec.Credits,
		Hours:          rec.Hours,
		AcademicYear:   rec.AcademicYear,
		Semester:       rec.Semester,
		Department:     rec.Department,
		GradeLevel:     rec.GradeLevel,
		CoTeachers:     []int64{},
		CoTeacherNames: []string{},
		Classroom:      rec.Classroom,
		Weekday:        strconv.Itoa(rec.Weekday),
		StartPeriod:    rec.StartPeriod,
		EndPeriod:      rec.EndPeriod,
		MaxStudents:    rec.MaxStudents,
	}

	if t := rec.PrimaryTeacher; t != nil {
		if t.New {
			p.TeacherName = t.Name
		} else {
			id := t.ID
			p.TeacherID = &id
		}
	}
	for _, t := range rec.CoTeachers {
		if t.New {
			p.CoTeacherNames = append(p.CoTeacherNames, t.Name)
		} else {
			p.CoTeachers = append(p.CoTeachers, t.ID)
		}
	}
	return p
}

// AccountPayload POST register/ 请求体，只包含对应角色的字段
type AccountPayload struct {
	RealName   string `json:"real_name"`
	Role       string `json:"role"`
	Password   string `json:"password"`
	StudentID  string `json:"student_id,omitempty"`
	Department string `json:"department,omitempty"`
	Grade      int    `json:"grade,omitempty"`
	TeacherID  string `json:"teacher_id,omitempty"`
	Office     string `json:"office,omitempty"`
	Title      string `json:"title,omitempty"`
}

// NewAccountPayload 由账号记录生成请求体
func NewAccountPayload(rec *importer.AccountRecord) AccountPayload {
	p := AccountPayload{
		RealName: rec.RealName,
		Role:     string(rec.Role),
		Password: rec.Password,
	}
	if rec.Role == importer.RoleTeacher {
		p.TeacherID = rec.TeacherID
		p.Office = rec.Office
		p.Title = rec.Title
		return p
	}
	p.StudentID = rec.StudentID
	p.Department = rec.Department
	p.Grade = rec.Grade
	return p
}

// KnownTeachers 转换为导入流水线使用的教师集合
func KnownTeachers(teachers []Teacher) []importer.KnownTeacher {
	known := make([]importer.KnownTeacher, len(teachers))
	for i, t := range teachers {
		known[i] = importer.KnownTeacher{ID: t.ID, RealName: t.RealName}
	}
	return known
}
