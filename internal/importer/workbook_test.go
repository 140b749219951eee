package importer

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func buildXLSX(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("写入测试数据失败: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("生成测试文件失败: %v", err)
	}
	return buf
}

func TestReadWorkbook_XLSX(t *testing.T) {
	buf := buildXLSX(t, [][]interface{}{
		{"學期", nil, "科目代碼", "年級", "科目中文名稱", "授課教師姓名"},
		{1141, nil, "IM101", 2, "資料庫", "王小明"},
	})

	rows, err := ReadWorkbook(buf)
	if err != nil {
		t.Fatalf("ReadWorkbook 应成功: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("期望 2 行，实际 %d", len(rows))
	}
	if !rows[0].At(1).Null {
		t.Error("空单元格应为 Null")
	}
	if got := rows[1].Text(0); got != "1141" {
		t.Errorf("数字单元格期望 1141，实际 %q", got)
	}
	if got := rows[1].Text(5); got != "王小明" {
		t.Errorf("期望 王小明，实际 %q", got)
	}

	det := DetectLayout(rows, DefaultScanRows)
	if det.HeaderRow != 0 || det.Layout != LayoutSimple15 {
		t.Errorf("期望表头在第 0 行且为 simple15，实际 %d %s", det.HeaderRow, det.Layout)
	}
}

func TestReadWorkbook_PreservesBlankRows(t *testing.T) {
	buf := buildXLSX(t, [][]interface{}{
		{"標題"},
		{},
		{"學期", "科目中文名稱"},
	})
	rows, err := ReadWorkbook(buf)
	if err != nil {
		t.Fatalf("ReadWorkbook 应成功: %v", err)
	}
	if len(rows) != 3 || len(rows[1]) != 0 {
		t.Errorf("空行应保留位置，实际 %d 行", len(rows))
	}
}

func TestReadWorkbook_Malformed(t *testing.T) {
	inputs := map[string][]byte{
		"纯文本":  []byte("not a workbook"),
		"空文件":  {},
		"损坏zip": []byte("PK\x03\x04garbage"),
		"损坏xls": append([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, bytes.Repeat([]byte{0}, 16)...),
	}
	for name, data := range inputs {
		_, err := ReadWorkbook(bytes.NewReader(data))
		if !errors.Is(err, ErrMalformedWorkbook) {
			t.Errorf("%s: 期望 ErrMalformedWorkbook，实际 %v", name, err)
		}
	}
}

func TestFoldText(t *testing.T) {
	if got := foldText("　ＩＭ１０１ "); !strings.EqualFold(got, "IM101") {
		t.Errorf("全角字符应折叠为半角，实际 %q", got)
	}
}

func TestCountDataRows(t *testing.T) {
	rows := []RawRow{
		simpleHeader(),
		simpleRow("IM101", "資料庫", "王小明"),
		NewRawRow("", "", "  "),
		nil,
		simpleRow("IM102", "網路", "李大華"),
	}
	if n := CountDataRows(rows, 1); n != 2 {
		t.Errorf("期望 2 行数据，实际 %d", n)
	}
	if n := CountDataRows(rows, 0); n != 3 {
		t.Errorf("从第 0 行起期望 3 行，实际 %d", n)
	}
	if n := CountDataRows(rows, len(rows)); n != 0 {
		t.Errorf("起点越界期望 0，实际 %d", n)
	}
}
