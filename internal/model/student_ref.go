package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ── StudentRef：学生引用（班级内序号 或 数据库 ID） ──

type studentRefKind uint8

const (
	refInvalid studentRefKind = iota
	refByNo
	refByID
)

// StudentRef 学生引用的标签联合：ByNo(student_no) | ByID(student_id)
//
// JSON 解码规则：
//   - 数字、纯数字字符串 → ByNo
//   - UUID 字符串 → ByID
//   - 其他 → 解码失败
type StudentRef struct {
	kind studentRefKind
	no   int
	id   string
}

// RefByNo 按班级内序号引用
func RefByNo(no int) StudentRef {
	return StudentRef{kind: refByNo, no: no}
}

// RefByID 按数据库 ID 引用
func RefByID(id string) StudentRef {
	return StudentRef{kind: refByID, id: strings.ToLower(id)}
}

// ParseStudentRef 解析字符串形式的引用
func ParseStudentRef(s string) (StudentRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return StudentRef{}, fmt.Errorf("学生引用不能为空")
	}
	if n, err := strconv.Atoi(s); err == nil {
		return RefByNo(n), nil
	}
	if u, err := uuid.Parse(s); err == nil {
		return RefByID(u.String()), nil
	}
	return StudentRef{}, fmt.Errorf("无法识别的学生引用 %q", s)
}

// No 返回序号（仅 ByNo 有效）
func (r StudentRef) No() (int, bool) { return r.no, r.kind == refByNo }

// ID 返回数据库 ID（仅 ByID 有效）
func (r StudentRef) ID() (string, bool) { return r.id, r.kind == refByID }

// IsZero 是否为未初始化的引用
func (r StudentRef) IsZero() bool { return r.kind == refInvalid }

func (r StudentRef) String() string {
	switch r.kind {
	case refByNo:
		return fmt.Sprintf("student_no %d", r.no)
	case refByID:
		return fmt.Sprintf("student_id %s", r.id)
	default:
		return "invalid"
	}
}

func (r StudentRef) MarshalJSON() ([]byte, error) {
	switch r.kind {
	case refByNo:
		return []byte(strconv.Itoa(r.no)), nil
	case refByID:
		return json.Marshal(r.id)
	default:
		return []byte("null"), nil
	}
}

func (r *StudentRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("学生引用不能为空")
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		ref, err := ParseStudentRef(s)
		if err != nil {
			return err
		}
		*r = ref
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("无法识别的学生引用 %s", string(data))
	}
	no, err := strconv.Atoi(n.String())
	if err != nil {
		return fmt.Errorf("学生序号必须为整数: %s", n.String())
	}
	*r = RefByNo(no)
	return nil
}

// ── StudentIndex：引用解析 ──

// StudentIndex 将 StudentRef 解析为目标值（学生 ID 或偏好 ID 等）。
// 同一学生同时以序号与 ID 两种方式登记，两种引用都能命中。
type StudentIndex struct {
	byNo map[int]string
	byID map[string]string
}

// NewStudentIndex 创建空索引
func NewStudentIndex(sizeHint int) *StudentIndex {
	return &StudentIndex{
		byNo: make(map[int]string, sizeHint),
		byID: make(map[string]string, sizeHint),
	}
}

// Add 登记一个学生及其目标值
func (x *StudentIndex) Add(studentNo int, studentID, value string) {
	x.byNo[studentNo] = value
	x.byID[strings.ToLower(studentID)] = value
}

// Resolve 解析引用，未命中返回 false
func (x *StudentIndex) Resolve(ref StudentRef) (string, bool) {
	switch ref.kind {
	case refByNo:
		v, ok := x.byNo[ref.no]
		return v, ok
	case refByID:
		v, ok := x.byID[ref.id]
		return v, ok
	default:
		return "", false
	}
}

// Len 已登记学生数
func (x *StudentIndex) Len() int { return len(x.byNo) }
