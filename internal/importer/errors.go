package importer

import (
	"errors"
	"fmt"
)

// ── 导入流水线错误 ──
//
// 只有 ErrMalformedWorkbook 会中止整个导入；其余错误都落在行级，
// 转换为 RowError 记入 Result.Errors 后继续处理下一行。

var (
	ErrMalformedWorkbook   = errors.New("无法解析工作簿文件")
	ErrMissingIdentifier   = errors.New("身分证字号中没有可用数字")
	ErrTeacherUnresolvable = errors.New("无法解析授课教师姓名")
)

// ErrorKind 行级错误分类
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindTeacher    ErrorKind = "teacher_unresolvable"
	KindIdentifier ErrorKind = "missing_identifier"
	KindAPI        ErrorKind = "api_rejection"
	KindCancelled  ErrorKind = "cancelled"
)

// RowError 单行失败记录
type RowError struct {
	Row     int       `json:"row"` // 工作表中的物理行号（从 1 开始）
	Label   string    `json:"label,omitempty"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *RowError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("第 %d 行: %s", e.Row, e.Message)
	}
	return e.Message
}

func validationFailure(format string, args ...interface{}) *RowError {
	return &RowError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// asRowError 将任意错误归一为 RowError；非 RowError 按后端拒绝处理
func asRowError(err error) *RowError {
	var re *RowError
	if errors.As(err, &re) {
		cp := *re
		return &cp
	}
	return &RowError{Kind: KindAPI, Message: err.Error()}
}
