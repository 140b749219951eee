package importer

import "testing"

// ── 测试辅助 ──

func padRow(n int, set map[int]string) RawRow {
	values := make([]string, n)
	for i, v := range set {
		values[i] = v
	}
	return NewRawRow(values...)
}

func simpleHeader() RawRow {
	return NewRawRow("學期", "", "科目代碼", "年級", "科目中文名稱", "授課教師姓名",
		"人數", "學分", "", "時數", "課別", "教室", "星期", "節次", "備註")
}

func simpleRow(code, name, teacher string) RawRow {
	return NewRawRow("1141", "", code, "2", name, teacher,
		"40", "3", "", "3", "專業必修", "M301", "三", "6,7", "說明")
}

// ── 版式探测 ──

func TestDetectLayout_Simple15(t *testing.T) {
	rows := []RawRow{NewRawRow("課程表"), {}, simpleHeader(), simpleRow("IM101", "資料庫", "王小明")}

	det := DetectLayout(rows, DefaultScanRows)
	if !det.HeaderFound() || det.HeaderRow != 2 {
		t.Fatalf("期望表头在第 2 行，实际 %d", det.HeaderRow)
	}
	if det.DataStartRow != 3 {
		t.Errorf("期望数据从第 3 行开始，实际 %d", det.DataStartRow)
	}
	if det.Layout != LayoutSimple15 {
		t.Errorf("期望 simple15，实际 %s", det.Layout)
	}
}

func TestDetectLayout_Department16(t *testing.T) {
	header := NewRawRow("學期", "", "開課系所", "科目代碼", "年級", "科目中文名稱", "授課教師姓名")
	det := DetectLayout([]RawRow{header}, DefaultScanRows)
	if det.Layout != LayoutWithDepartment16 {
		t.Errorf("含开课系所期望 with_department16，实际 %s", det.Layout)
	}
}

func TestDetectLayout_Large31(t *testing.T) {
	header := padRow(31, map[int]string{1: "學期", 9: "科目中文名稱", 11: "授課教師姓名", 30: "備註"})
	det := DetectLayout([]RawRow{NewRawRow("標題"), header}, DefaultScanRows)
	if det.Layout != LayoutLarge31 {
		t.Errorf("超过 20 列期望 large31，实际 %s", det.Layout)
	}
	if det.DataStartRow != 2 {
		t.Errorf("期望数据从第 2 行开始，实际 %d", det.DataStartRow)
	}
}

func TestDetectLayout_NoHeader(t *testing.T) {
	rows := []RawRow{simpleRow("IM101", "資料庫", "王小明")}
	det := DetectLayout(rows, DefaultScanRows)
	if det.HeaderFound() {
		t.Error("没有表头时 HeaderFound 应为 false")
	}
	if det.DataStartRow != 0 || det.Layout != LayoutSimple15 {
		t.Errorf("期望 (0, simple15)，实际 (%d, %s)", det.DataStartRow, det.Layout)
	}
}

func TestDetectLayout_OutsideScanWindow(t *testing.T) {
	rows := make([]RawRow, 0, 12)
	for i := 0; i < 10; i++ {
		rows = append(rows, NewRawRow("說明文字"))
	}
	rows = append(rows, simpleHeader())

	det := DetectLayout(rows, DefaultScanRows)
	if det.HeaderFound() {
		t.Errorf("第 10 行之后的表头不应被识别，实际 HeaderRow=%d", det.HeaderRow)
	}
}

func TestDetectLayout_FirstMatchWins(t *testing.T) {
	rows := []RawRow{simpleHeader(), simpleHeader()}
	if det := DetectLayout(rows, DefaultScanRows); det.HeaderRow != 0 {
		t.Errorf("期望取第一个匹配行 0，实际 %d", det.HeaderRow)
	}
}

// ── 字段提取 ──

func TestExtract_Simple15(t *testing.T) {
	cand, ok := Extract(simpleRow("IM101", "資料庫", "王小明"), LayoutSimple15)
	if !ok {
		t.Fatal("非空行应提取成功")
	}
	if _, isSimple := cand.(*Simple15Candidate); !isSimple {
		t.Fatalf("期望 *Simple15Candidate，实际 %T", cand)
	}
	f := cand.Fields()
	if f.SemesterCode != "1141" || f.CourseCode != "IM101" || f.CourseName != "資料庫" {
		t.Errorf("字段提取错误: %+v", f)
	}
	if f.TeacherText != "王小明" || f.Classroom != "M301" || f.WeekdayText != "三" || f.PeriodText != "6,7" {
		t.Errorf("字段提取错误: %+v", f)
	}
	if f.HoursPerWeek != "3" || f.Credits != "3" || f.MaxStudents != "40" || f.Description != "說明" {
		t.Errorf("数值字段提取错误: %+v", f)
	}
}

func TestExtract_Department16(t *testing.T) {
	row := NewRawRow("1141", "", "資工系", "CS201", "2", "演算法", "李大華",
		"60", "3", "", "3", "選修", "E101", "5", "3-4", "")
	cand, ok := Extract(row, LayoutWithDepartment16)
	if !ok {
		t.Fatal("非空行应提取成功")
	}
	dc, isDept := cand.(*Department16Candidate)
	if !isDept {
		t.Fatalf("期望 *Department16Candidate，实际 %T", cand)
	}
	if dc.OpeningDepartment != "資工系" || dc.CourseCode != "CS201" || dc.CourseName != "演算法" {
		t.Errorf("字段提取错误: %+v", dc)
	}
}

func TestExtract_Large31(t *testing.T) {
	row := padRow(31, map[int]string{
		0: "1", 1: "1141", 5: "GE100", 7: "1", 9: "國文", 11: "陳老師",
		12: "80", 15: "2", 17: "2", 19: "通識必修", 20: "A201", 21: "一", 22: "1,2", 24: "備註",
	})
	cand, ok := Extract(row, LayoutLarge31)
	if !ok {
		t.Fatal("非空行应提取成功")
	}
	if cand.Layout() != LayoutLarge31 {
		t.Fatalf("期望 large31，实际 %s", cand.Layout())
	}
	f := cand.Fields()
	if f.SemesterCode != "1141" || f.CourseCode != "GE100" || f.TeacherText != "陳老師" || f.Category != "通識必修" {
		t.Errorf("字段提取错误: %+v", f)
	}
}

func TestExtract_SkipsBlankRows(t *testing.T) {
	for _, row := range []RawRow{{}, NewRawRow("", "IM101", "資料庫"), NewRawRow("   ", "x")} {
		if _, ok := Extract(row, LayoutSimple15); ok {
			t.Errorf("首列为空的行应跳过: %v", row)
		}
	}
}

func TestExtract_ShortRowYieldsEmptyFields(t *testing.T) {
	cand, ok := Extract(NewRawRow("1141", "", "IM101"), LayoutSimple15)
	if !ok {
		t.Fatal("首列非空应提取")
	}
	if cand.Fields().CourseName != "" || cand.Fields().Classroom != "" {
		t.Error("越界列应为空字符串")
	}
}
