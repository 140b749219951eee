package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/xaiowei11/classmatch-web/internal/backend"
	"github.com/xaiowei11/classmatch-web/internal/importer"
	"github.com/xaiowei11/classmatch-web/internal/model"
	"github.com/xaiowei11/classmatch-web/internal/repository"
	"github.com/xaiowei11/classmatch-web/pkg/redis"
)

// ── Mock OperatorRepository ──

type mockOperatorRepo struct {
	ops map[string]*model.Operator // key: operator_id
}

func newMockOperatorRepo() *mockOperatorRepo {
	return &mockOperatorRepo{ops: make(map[string]*model.Operator)}
}

func (m *mockOperatorRepo) Create(_ context.Context, op *model.Operator) error {
	if op.OperatorID == "" {
		op.OperatorID = "op-" + op.Username
	}
	m.ops[op.OperatorID] = op
	return nil
}

func (m *mockOperatorRepo) GetByID(_ context.Context, id string) (*model.Operator, error) {
	if op, ok := m.ops[id]; ok {
		return op, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockOperatorRepo) GetByUsername(_ context.Context, username string) (*model.Operator, error) {
	for _, op := range m.ops {
		if op.Username == username {
			return op, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockOperatorRepo) Count(_ context.Context) (int64, error) {
	return int64(len(m.ops)), nil
}

func (m *mockOperatorRepo) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	op, ok := m.ops[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	op.LastLoginAt = &at
	return nil
}

// ── Mock ImportRunRepository ──

type mockImportRunRepo struct {
	mu        sync.Mutex
	runs      map[string]*model.ImportRun
	createErr error
	seq       int
}

func newMockImportRunRepo() *mockImportRunRepo {
	return &mockImportRunRepo{runs: make(map[string]*model.ImportRun)}
}

func (m *mockImportRunRepo) Create(_ context.Context, run *model.ImportRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.seq++
	if run.ImportRunID == "" {
		run.ImportRunID = fmt.Sprintf("run-%d", m.seq)
	}
	for i := range run.Rows {
		run.Rows[i].ImportRunID = run.ImportRunID
	}
	m.runs[run.ImportRunID] = run
	return nil
}

func (m *mockImportRunRepo) GetByID(_ context.Context, id string) (*model.ImportRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.runs[id]; ok {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockImportRunRepo) GetWithRows(_ context.Context, id, status string) (*model.ImportRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	cp.Rows = nil
	for _, row := range r.Rows {
		if status == "" || row.Status == status {
			cp.Rows = append(cp.Rows, row)
		}
	}
	sort.Slice(cp.Rows, func(i, j int) bool { return cp.Rows[i].RowNumber < cp.Rows[j].RowNumber })
	return &cp, nil
}

func (m *mockImportRunRepo) List(_ context.Context, filter repository.ImportRunFilter, offset, limit int) ([]model.ImportRun, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.ImportRun
	for _, r := range m.runs {
		if filter.Kind != "" && r.Kind != filter.Kind {
			continue
		}
		all = append(all, *r)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ImportRunID < all[j].ImportRunID })
	total := int64(len(all))
	if offset > len(all) {
		return nil, total, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], total, nil
}

func newMockRepository() (*repository.Repository, *mockOperatorRepo, *mockImportRunRepo) {
	ops := newMockOperatorRepo()
	runs := newMockImportRunRepo()
	return &repository.Repository{Operator: ops, ImportRun: runs}, ops, runs
}

// ── Fake 后端 ──

type fakeBackend struct {
	mu        sync.Mutex
	teachers  []backend.Teacher
	listErr   error
	listCalls int
	courses   []*importer.CourseRecord
	accounts  []*importer.AccountRecord
	reject    map[string]string // course_code 或 real_name → 后端错误信息
	onCreate  func()
}

func (f *fakeBackend) ListTeachers(_ context.Context) ([]backend.Teacher, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]backend.Teacher(nil), f.teachers...), nil
}

func (f *fakeBackend) CreateCourse(_ context.Context, rec *importer.CourseRecord) error {
	if f.onCreate != nil {
		f.onCreate()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := f.reject[rec.CourseCode]; ok {
		return &backend.APIError{StatusCode: 400, Message: msg}
	}
	f.courses = append(f.courses, rec)
	if rec.PrimaryTeacher != nil && rec.PrimaryTeacher.New {
		f.teachers = append(f.teachers, backend.Teacher{ID: int64(100 + len(f.teachers)), RealName: rec.PrimaryTeacher.Name})
	}
	return nil
}

func (f *fakeBackend) RegisterAccount(_ context.Context, rec *importer.AccountRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := f.reject[rec.RealName]; ok {
		return &backend.APIError{StatusCode: 400, Message: msg}
	}
	f.accounts = append(f.accounts, rec)
	return nil
}

// ── Fake 缓存 / 锁 / 黑名单 ──

type fakeCache struct {
	data        []byte
	setCalls    int
	invalidated bool
}

func (c *fakeCache) GetTeacherDirectory(_ context.Context) ([]byte, error) {
	if c.data == nil {
		return nil, redis.ErrCacheMiss
	}
	return c.data, nil
}

func (c *fakeCache) SetTeacherDirectory(_ context.Context, data []byte, _ time.Duration) error {
	c.data = data
	c.setCalls++
	return nil
}

func (c *fakeCache) InvalidateTeacherDirectory(_ context.Context) error {
	c.data = nil
	c.invalidated = true
	return nil
}

type fakeLocker struct {
	held map[string]bool
	err  error
}

func (l *fakeLocker) AcquireLock(_ context.Context, name string, _ time.Duration) (string, bool, error) {
	if l.err != nil {
		return "", false, l.err
	}
	if l.held[name] {
		return "", false, nil
	}
	l.held[name] = true
	return "token-" + name, true, nil
}

func (l *fakeLocker) ReleaseLock(_ context.Context, name, _ string) error {
	delete(l.held, name)
	return nil
}

type fakeBlacklist struct {
	jti string
	ttl time.Duration
}

func (b *fakeBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	b.jti, b.ttl = jti, ttl
	return nil
}
