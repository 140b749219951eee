package importer

import "fmt"

// KnownTeacher 后端已有的教师
type KnownTeacher struct {
	ID       int64
	RealName string
}

// TeacherRef 课程引用的教师：已存在（ID 有效）或待后端新建（New=true，按姓名识别）
type TeacherRef struct {
	ID   int64
	Name string
	New  bool
}

// SameIdentity 已存在教师按 ID 比较，新建教师按姓名比较
func (t *TeacherRef) SameIdentity(o *TeacherRef) bool {
	if t == nil || o == nil {
		return false
	}
	if t.New || o.New {
		return t.New == o.New && t.Name == o.Name
	}
	return t.ID == o.ID
}

// TeacherResolver 单次导入运行内的教师解析状态，不可跨运行复用，也不是并发安全的
type TeacherResolver struct {
	byName  map[string]*TeacherRef
	created []*TeacherRef // 本次运行合成的新教师，按首次出现顺序
}

// NewTeacherResolver 以后端教师列表初始化；同名教师取第一个
func NewTeacherResolver(known []KnownTeacher) *TeacherResolver {
	r := &TeacherResolver{byName: make(map[string]*TeacherRef, len(known))}
	for _, t := range known {
		if _, dup := r.byName[t.RealName]; dup {
			continue
		}
		r.byName[t.RealName] = &TeacherRef{ID: t.ID, Name: t.RealName}
	}
	return r
}

// lookup 精确匹配姓名；未命中时先在本行的 pending 中合成 New 教师，
// 该行解析成功后才由 commit 并入已知集合。
func (r *TeacherResolver) lookup(name string, pending map[string]*TeacherRef) *TeacherRef {
	if ref, ok := r.byName[name]; ok {
		return ref
	}
	if ref, ok := pending[name]; ok {
		return ref
	}
	ref := &TeacherRef{Name: name, New: true}
	pending[name] = ref
	return ref
}

// commit 按出现顺序登记本行合成的新教师，后续行直接复用同一引用
func (r *TeacherResolver) commit(refs []*TeacherRef) {
	for _, ref := range refs {
		if !ref.New {
			continue
		}
		if _, ok := r.byName[ref.Name]; ok {
			continue
		}
		r.byName[ref.Name] = ref
		r.created = append(r.created, ref)
	}
}

// Resolve 第一位为主授教师，其余为合授教师（保持顺序、去重）。
// 主授教师同时出现在合授名单中视为该行校验失败，此时本行的新教师不会被登记。
func (r *TeacherResolver) Resolve(names []string) (*TeacherRef, []*TeacherRef, error) {
	if len(names) == 0 {
		return nil, nil, &RowError{Kind: KindTeacher, Message: ErrTeacherUnresolvable.Error()}
	}

	pending := make(map[string]*TeacherRef)
	primary := r.lookup(names[0], pending)
	co := make([]*TeacherRef, 0, len(names)-1)
	for _, name := range names[1:] {
		ref := r.lookup(name, pending)
		if ref.SameIdentity(primary) {
			return nil, nil, validationFailure("主授教师「%s」同时出现在合授教师名单中", primary.Name)
		}
		if containsTeacher(co, ref) {
			continue
		}
		co = append(co, ref)
	}

	r.commit(append([]*TeacherRef{primary}, co...))
	return primary, co, nil
}

// Created 本次运行合成的新教师姓名，只含解析成功的行引用过的教师
func (r *TeacherResolver) Created() []string {
	names := make([]string, len(r.created))
	for i, ref := range r.created {
		names[i] = ref.Name
	}
	return names
}

func containsTeacher(refs []*TeacherRef, ref *TeacherRef) bool {
	for _, t := range refs {
		if t.SameIdentity(ref) {
			return true
		}
	}
	return false
}

func (t *TeacherRef) String() string {
	if t.New {
		return fmt.Sprintf("New(%s)", t.Name)
	}
	return fmt.Sprintf("Existing(%d)", t.ID)
}
