package importer

import (
	"strings"

	"golang.org/x/text/width"
)

// Cell 单元格原始值。Null 表示单元格缺失，用于区分“没有值”与“空白文本”。
type Cell struct {
	Text string
	Null bool
}

// NullCell 缺失单元格
var NullCell = Cell{Null: true}

// TextCell 构造文本单元格
func TextCell(s string) Cell { return Cell{Text: s} }

// RawRow 工作表中的一个物理行，按列位置排列，本身不带任何结构
type RawRow []Cell

// NewRawRow 由字符串构造一行，空字符串视为缺失单元格
func NewRawRow(values ...string) RawRow {
	row := make(RawRow, len(values))
	for i, v := range values {
		if v == "" {
			row[i] = NullCell
		} else {
			row[i] = TextCell(v)
		}
	}
	return row
}

// At 返回第 i 列的单元格，越界时返回缺失单元格
func (r RawRow) At(i int) Cell {
	if i < 0 || i >= len(r) {
		return NullCell
	}
	return r[i]
}

// Text 返回第 i 列经全角折叠并去除首尾空白后的文本；缺失单元格返回 ""
func (r RawRow) Text(i int) string {
	c := r.At(i)
	if c.Null {
		return ""
	}
	return foldText(c.Text)
}

// IsBlank 空行或首列为空的行视为分隔行
func (r RawRow) IsBlank() bool {
	return len(r) == 0 || r.Text(0) == ""
}

// IsEmpty 所有单元格都为空
func (r RawRow) IsEmpty() bool {
	for i := range r {
		if r.Text(i) != "" {
			return false
		}
	}
	return true
}

// CountDataRows 统计 start 起的非空行数，用于导入前的行数上限检查
func CountDataRows(rows []RawRow, start int) int {
	n := 0
	for i := max(start, 0); i < len(rows); i++ {
		if !rows[i].IsEmpty() {
			n++
		}
	}
	return n
}

// containsAny 行内任一单元格包含任一关键字
func (r RawRow) containsAny(keywords ...string) bool {
	for i := range r {
		text := r.Text(i)
		if text == "" {
			continue
		}
		for _, k := range keywords {
			if strings.Contains(text, k) {
				return true
			}
		}
	}
	return false
}

// foldText 全角 ASCII 折叠为半角（如 "６，７" -> "6,7"），再去除首尾空白
func foldText(s string) string {
	return strings.TrimSpace(width.Narrow.String(s))
}
