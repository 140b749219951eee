package importer

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// ── 课程类别 ──

// CourseType 后端课程类别
type CourseType string

const (
	CourseTypeRequired        CourseType = "required"
	CourseTypeElective        CourseType = "elective"
	CourseTypeGeneralRequired CourseType = "general_required"
	CourseTypeGeneralElective CourseType = "general_elective"
)

// ClassifyCourseType 由课别文字判断课程类别，通识类优先于专业类判断。
// 无法识别时归为选修。
func ClassifyCourseType(text string) CourseType {
	name := foldText(text)
	general := strings.Contains(name, "通識")
	required := strings.Contains(name, "必修")
	elective := strings.Contains(name, "選修")

	switch {
	case general && required:
		return CourseTypeGeneralRequired
	case general && elective:
		return CourseTypeGeneralElective
	case required:
		return CourseTypeRequired
	case elective:
		return CourseTypeElective
	case general:
		return CourseTypeGeneralElective
	default:
		return CourseTypeElective
	}
}

// ── 星期 ──

var weekdayTable = map[string]int{
	"1": 1, "2": 2, "3": 3, "4": 4, "5": 5, "6": 6, "7": 7,
	"一": 1, "二": 2, "三": 3, "四": 4, "五": 5, "六": 6, "日": 7, "天": 7,
}

// MapWeekday 将星期文字映射为 1~7（1=星期一）。
// 支持数字、中文单字以及“星期X”“週X”写法，无法识别时默认星期一。
func MapWeekday(text string) int {
	s := foldText(text)
	for _, prefix := range []string{"星期", "禮拜", "週", "周"} {
		if rest := strings.TrimPrefix(s, prefix); rest != s {
			s = strings.TrimSpace(rest)
			break
		}
	}
	if d, ok := weekdayTable[s]; ok {
		return d
	}
	return 1
}

// ── 节次 ──

// PeriodRange 节次区间，Start <= End
type PeriodRange struct {
	Start int
	End   int
}

var digitsPattern = regexp.MustCompile(`\d+`)

// ParsePeriods 解析节次文字：
//   - 含逗号：逐段取开头整数，取最小与最大值（"6,7" -> 6~7，"6,7-8" -> 6~7）
//   - 含连字号且恰好两个数字：按位置取起止（"3-4" -> 3~4）
//   - 其他：取开头整数作为单节（"5" -> 5~5）
//   - 仍无法解析时为 1~1
func ParsePeriods(text string) PeriodRange {
	s := foldText(text)

	if strings.Contains(s, ",") {
		if nums := leadingIntsOf(strings.Split(s, ",")); len(nums) > 0 {
			lo, hi := nums[0], nums[0]
			for _, n := range nums[1:] {
				lo = min(lo, n)
				hi = max(hi, n)
			}
			return PeriodRange{Start: lo, End: hi}
		}
	}

	if strings.Contains(s, "-") {
		if nums := extractInts(s); len(nums) == 2 {
			return PeriodRange{Start: nums[0], End: nums[1]}
		}
	}

	if n, ok := parseLeadingInt(s); ok {
		return PeriodRange{Start: n, End: n}
	}
	return PeriodRange{Start: 1, End: 1}
}

// leadingIntsOf 每段只取开头整数，无法解析的段跳过
func leadingIntsOf(parts []string) []int {
	nums := make([]int, 0, len(parts))
	for _, p := range parts {
		if n, ok := parseLeadingInt(strings.TrimSpace(p)); ok {
			nums = append(nums, n)
		}
	}
	return nums
}

func extractInts(s string) []int {
	matches := digitsPattern.FindAllString(s, -1)
	nums := make([]int, 0, len(matches))
	for _, m := range matches {
		if n, err := strconv.Atoi(m); err == nil {
			nums = append(nums, n)
		}
	}
	return nums
}

// ── 教师姓名 ──

// SplitTeachers 按 “、” “,” “;” 拆分教师姓名，去除空白与空项，保持原顺序
func SplitTeachers(text string) []string {
	parts := strings.FieldsFunc(foldText(text), func(r rune) bool {
		return r == '、' || r == ',' || r == ';'
	})
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if name := strings.TrimSpace(p); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// ── 学期代码 ──

// SplitSemesterCode 按固定位置拆分学期代码：前 3 个字符为学年，第 4 个字符为学期（"1141" -> "114","1"）。
// 长度不足时对应部分为空字符串，超出 4 个字符的部分忽略，不报错。
func SplitSemesterCode(code string) (year, term string) {
	r := []rune(foldText(code))
	year = string(r[:min(3, len(r))])
	if len(r) > 3 {
		term = string(r[3])
	}
	return year, term
}

// ── 初始密码 ──

// DerivePassword 取身分证字号中全部数字的后 6 码作为初始密码，不足 6 码时左侧补 0
func DerivePassword(nationalID string) (string, error) {
	var digits []rune
	for _, r := range foldText(nationalID) {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) == 0 {
		return "", ErrMissingIdentifier
	}
	if len(digits) >= 6 {
		return string(digits[len(digits)-6:]), nil
	}
	return strings.Repeat("0", 6-len(digits)) + string(digits), nil
}

// ── 数值解析 ──
//
// 表格中的数值常带单位或多余文字（"3學分"、"2.5 小時"），只取开头的数字部分。

var leadingFloatPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// parseLeadingInt 解析字符串开头的整数，允许前导空白与正负号
func parseLeadingInt(s string) (int, bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseLeadingFloat 解析字符串开头的浮点数
func parseLeadingFloat(s string) (float64, bool) {
	m := leadingFloatPattern.FindString(strings.TrimLeftFunc(s, unicode.IsSpace))
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// intOrDefault 无法解析或为 0 时使用默认值
func intOrDefault(s string, def int) int {
	if n, ok := parseLeadingInt(s); ok && n != 0 {
		return n
	}
	return def
}

// ceilOrDefault 浮点数向上取整，无法解析或为 0 时使用默认值
func ceilOrDefault(s string, def int) int {
	if f, ok := parseLeadingFloat(s); ok && f != 0 {
		return int(math.Ceil(f))
	}
	return def
}
