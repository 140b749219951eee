package importer

import "strings"

// Role 账号角色
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// 账号字段默认值
const (
	DefaultGrade  = 1
	DefaultOffice = "未設定"
	DefaultTitle  = "講師"
)

var accountHeaderKeywords = []string{"姓名", "Name"}

// 各列的表头关键字（不区分大小写的包含匹配）
var (
	nameColumnKeywords       = []string{"姓名", "Real Name", "Name"}
	studentIDColumnKeywords  = []string{"學號", "Student ID"}
	teacherIDColumnKeywords  = []string{"教師編號", "Teacher ID", "Teacher No", "TID"}
	departmentColumnKeywords = []string{"系所", "Department"}
	gradeColumnKeywords      = []string{"年級", "Grade"}
	officeColumnKeywords     = []string{"研究室", "Office"}
	titleColumnKeywords      = []string{"職稱", "Title"}
	roleColumnKeywords       = []string{"身份", "Role", "Type", "職別"}
	nationalIDColumnKeywords = []string{"身分證字號", "身分證", "National ID", "ID Number", "ID No", "idno", "nationalid"}
)

// AccountColumns 账号表各字段的列索引，-1 表示表头中没有该列
type AccountColumns struct {
	Name       int
	StudentID  int
	TeacherID  int
	Department int
	Grade      int
	Office     int
	Title      int
	Role       int
	NationalID int
}

// AccountDetection 账号表头探测结果
type AccountDetection struct {
	HeaderRow    int // 未找到含“姓名”的表头时假定为第 0 行
	DataStartRow int
	Columns      AccountColumns
}

// DetectAccountColumns 第 0 行不含姓名关键字时，在前 scanRows 行中查找表头；
// 仍未找到则以第 0 行为表头、数据从第 1 行开始
func DetectAccountColumns(rows []RawRow, scanRows int) AccountDetection {
	if scanRows <= 0 {
		scanRows = DefaultScanRows
	}

	headerIdx := 0
	for i := 0; i < len(rows) && i < scanRows; i++ {
		if rows[i].containsAny(accountHeaderKeywords...) {
			headerIdx = i
			break
		}
	}

	var header RawRow
	if headerIdx < len(rows) {
		header = rows[headerIdx]
	}
	return AccountDetection{
		HeaderRow:    headerIdx,
		DataStartRow: headerIdx + 1,
		Columns: AccountColumns{
			Name:       findColumn(header, nameColumnKeywords),
			StudentID:  findColumn(header, studentIDColumnKeywords),
			TeacherID:  findColumn(header, teacherIDColumnKeywords),
			Department: findColumn(header, departmentColumnKeywords),
			Grade:      findColumn(header, gradeColumnKeywords),
			Office:     findColumn(header, officeColumnKeywords),
			Title:      findColumn(header, titleColumnKeywords),
			Role:       findColumn(header, roleColumnKeywords),
			NationalID: findColumn(header, nationalIDColumnKeywords),
		},
	}
}

// findColumn 返回第一个包含任一关键字的表头列
func findColumn(header RawRow, keywords []string) int {
	for i := range header {
		text := strings.ToLower(header.Text(i))
		if text == "" {
			continue
		}
		for _, k := range keywords {
			if strings.Contains(text, strings.ToLower(k)) {
				return i
			}
		}
	}
	return -1
}

// AccountRecord 可提交到后端注册接口的账号记录
type AccountRecord struct {
	Row      int
	RealName string
	Role     Role
	Password string

	// 学生
	StudentID  string
	Department string
	Grade      int

	// 教师
	TeacherID string
	Office    string
	Title     string
}

// NormalizeAccount 由一行数据生成账号记录。
// 角色：身份列含“教”或 teacher 为教师；无身份列值但有教师编号时为教师；否则为学生。
func NormalizeAccount(row RawRow, cols AccountColumns, defaultDepartment string) (*AccountRecord, *RowError) {
	if cols.Name < 0 {
		return nil, validationFailure("表头中找不到姓名列")
	}
	rec := &AccountRecord{RealName: row.Text(cols.Name), Role: RoleStudent}
	if rec.RealName == "" {
		return nil, validationFailure("缺少姓名")
	}

	if roleText := row.Text(cols.Role); roleText != "" {
		lower := strings.ToLower(roleText)
		if strings.Contains(lower, "教") || strings.Contains(lower, "teacher") {
			rec.Role = RoleTeacher
		}
	} else if row.Text(cols.TeacherID) != "" {
		rec.Role = RoleTeacher
	}

	nationalID := row.Text(cols.NationalID)
	if nationalID == "" {
		return nil, &RowError{Kind: KindIdentifier, Message: "缺少身分证字号（无法截取后 6 码作为初始密码）"}
	}
	password, err := DerivePassword(nationalID)
	if err != nil {
		return nil, &RowError{Kind: KindIdentifier, Message: "身分证字号格式不正确（无法截取后 6 码）"}
	}
	rec.Password = password

	if rec.Role == RoleStudent {
		rec.StudentID = row.Text(cols.StudentID)
		rec.Department = textOrDefault(row.Text(cols.Department), defaultDepartment)
		rec.Grade = intOrDefault(row.Text(cols.Grade), DefaultGrade)
		if rec.StudentID == "" {
			return nil, validationFailure("缺少学号")
		}
		return rec, nil
	}

	rec.TeacherID = textOrDefault(row.Text(cols.TeacherID), row.Text(cols.StudentID))
	rec.Office = textOrDefault(row.Text(cols.Office), DefaultOffice)
	rec.Title = textOrDefault(row.Text(cols.Title), DefaultTitle)
	if rec.TeacherID == "" {
		return nil, validationFailure("缺少教师编号")
	}
	return rec, nil
}

func textOrDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
