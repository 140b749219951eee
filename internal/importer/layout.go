package importer

// Layout 课程表版式，由表头内容决定列位置
type Layout int

const (
	LayoutSimple15         Layout = iota // 15 列简易格式
	LayoutWithDepartment16               // 16 列，含开课系所
	LayoutLarge31                        // 31 列学校完整格式
)

func (l Layout) String() string {
	switch l {
	case LayoutWithDepartment16:
		return "with_department16"
	case LayoutLarge31:
		return "large31"
	default:
		return "simple15"
	}
}

// DefaultScanRows 表头探测窗口（前 10 行）
const DefaultScanRows = 10

const (
	departmentKeyword  = "開課系所"
	largeLayoutMinCols = 20 // 表头超过 20 列视为完整格式
)

var courseHeaderKeywords = []string{"學期", "科目中文名稱", "授課教師姓名"}

// Detection 版式探测结果
type Detection struct {
	HeaderRow    int // 表头所在行索引，未找到为 -1
	DataStartRow int
	Layout       Layout
}

// HeaderFound 是否找到表头
func (d Detection) HeaderFound() bool { return d.HeaderRow >= 0 }

// DetectLayout 在前 scanRows 行中寻找第一个含表头关键字的行。
// 找到时数据从其下一行开始，版式按表头内容决定；
// 未找到时从第 0 行开始，按 15 列简易格式处理。
func DetectLayout(rows []RawRow, scanRows int) Detection {
	if scanRows <= 0 {
		scanRows = DefaultScanRows
	}

	for i := 0; i < len(rows) && i < scanRows; i++ {
		header := rows[i]
		if !header.containsAny(courseHeaderKeywords...) {
			continue
		}

		layout := LayoutSimple15
		switch {
		case header.containsAny(departmentKeyword):
			layout = LayoutWithDepartment16
		case len(header) > largeLayoutMinCols:
			layout = LayoutLarge31
		}
		return Detection{HeaderRow: i, DataStartRow: i + 1, Layout: layout}
	}

	return Detection{HeaderRow: -1, DataStartRow: 0, Layout: LayoutSimple15}
}
