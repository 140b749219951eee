package importer

import (
	"bytes"
	"fmt"
	"io"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// 文件签名：OOXML 为 zip 容器，BIFF (.xls) 为 OLE2 复合文档
var (
	xlsxSignature = []byte("PK\x03\x04")
	xlsSignature  = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// ReadWorkbook 读取工作簿第一个工作表的全部行（按文件顺序），空单元格为 Null。
// 无法识别或解析时返回包装了 ErrMalformedWorkbook 的错误，调用方应中止整次导入。
func ReadWorkbook(r io.Reader) ([]RawRow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: 读取文件失败: %v", ErrMalformedWorkbook, err)
	}

	switch {
	case bytes.HasPrefix(data, xlsxSignature):
		return readXLSX(data)
	case bytes.HasPrefix(data, xlsSignature):
		return readXLS(data)
	default:
		return nil, fmt.Errorf("%w: 仅支持 .xlsx / .xls 文件", ErrMalformedWorkbook)
	}
}

func readXLSX(data []byte) ([]RawRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedWorkbook, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: 工作簿中没有工作表", ErrMalformedWorkbook)
	}

	// RawCellValue: 读取单元格原值，避免 "1141" 被数字格式改写
	excelRows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: 读取工作表失败: %v", ErrMalformedWorkbook, err)
	}

	rows := make([]RawRow, len(excelRows))
	for i, values := range excelRows {
		rows[i] = trimTrailingNulls(NewRawRow(values...))
	}
	return rows, nil
}

func readXLS(data []byte) (rows []RawRow, err error) {
	// extrame/xls 遇到损坏文件可能 panic，统一转换为解析失败
	defer func() {
		if r := recover(); r != nil {
			rows = nil
			err = fmt.Errorf("%w: %v", ErrMalformedWorkbook, r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedWorkbook, err)
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("%w: 工作簿中没有工作表", ErrMalformedWorkbook)
	}

	rows = make([]RawRow, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, RawRow{})
			continue
		}
		values := make([]string, row.LastCol())
		for j := range values {
			values[j] = row.Col(j)
		}
		rows = append(rows, trimTrailingNulls(NewRawRow(values...)))
	}
	return rows, nil
}

// trimTrailingNulls 去掉行尾缺失单元格，使两种格式的“行宽”一致
func trimTrailingNulls(row RawRow) RawRow {
	n := len(row)
	for n > 0 && row[n-1].Null {
		n--
	}
	return row[:n]
}
