package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xaiowei11/classmatch-web/config"
	"github.com/xaiowei11/classmatch-web/internal/backend"
	"github.com/xaiowei11/classmatch-web/internal/dto"
	"github.com/xaiowei11/classmatch-web/internal/importer"
)

// ErrTeacherDirectoryUnavailable 无法从后端获取教师列表
var ErrTeacherDirectoryUnavailable = errors.New("无法获取教师列表")

// TeacherService 选课系统教师目录
//
// 教师列表以 JSON 缓存在 Redis 中；无 Redis 时每次直接请求后端。
type TeacherService interface {
	List(ctx context.Context, refresh bool) ([]dto.TeacherResponse, error)
	// Known 导入时用于解析教师姓名的已知教师集合
	Known(ctx context.Context) ([]importer.KnownTeacher, error)
	// RefreshTeachers 丢弃缓存并重新拉取，导入产生新教师后调用
	RefreshTeachers(ctx context.Context) error
}

type teacherService struct {
	cfg    *config.ImportConfig
	api    BackendAPI
	cache  TeacherCache
	logger *zap.Logger
}

// NewTeacherService 创建 TeacherService 实例，cache 可为 nil
func NewTeacherService(cfg *config.ImportConfig, api BackendAPI, cache TeacherCache, logger *zap.Logger) TeacherService {
	return &teacherService{cfg: cfg, api: api, cache: cache, logger: logger}
}

func (s *teacherService) List(ctx context.Context, refresh bool) ([]dto.TeacherResponse, error) {
	var (
		teachers []backend.Teacher
		err      error
	)
	if refresh {
		teachers, err = s.reload(ctx)
	} else {
		teachers, err = s.load(ctx)
	}
	if err != nil {
		return nil, err
	}

	list := make([]dto.TeacherResponse, 0, len(teachers))
	for _, t := range teachers {
		list = append(list, dto.TeacherResponse{
			ID:       t.ID,
			Username: t.Username,
			RealName: t.RealName,
			Title:    t.Title,
			Office:   t.Office,
		})
	}
	return list, nil
}

func (s *teacherService) Known(ctx context.Context) ([]importer.KnownTeacher, error) {
	teachers, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return backend.KnownTeachers(teachers), nil
}

func (s *teacherService) RefreshTeachers(ctx context.Context) error {
	if _, err := s.reload(ctx); err != nil {
		// 后端已有新教师，旧缓存不可再用
		if s.cache != nil {
			if ierr := s.cache.InvalidateTeacherDirectory(ctx); ierr != nil {
				s.logger.Warn("清除教师缓存失败", zap.Error(ierr))
			}
		}
		return err
	}
	return nil
}

// load 优先读缓存，缓存缺失或损坏时回源
func (s *teacherService) load(ctx context.Context) ([]backend.Teacher, error) {
	if s.cache != nil {
		data, err := s.cache.GetTeacherDirectory(ctx)
		if err == nil {
			var teachers []backend.Teacher
			if jerr := json.Unmarshal(data, &teachers); jerr == nil {
				return teachers, nil
			}
			s.logger.Warn("教师缓存内容损坏，重新拉取")
		}
	}
	return s.reload(ctx)
}

func (s *teacherService) reload(ctx context.Context) ([]backend.Teacher, error) {
	teachers, err := s.api.ListTeachers(ctx)
	if err != nil {
		s.logger.Error("拉取教师列表失败", zap.Error(err))
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrTeacherDirectoryUnavailable, err)
	}

	if s.cache != nil {
		data, _ := json.Marshal(teachers)
		if err := s.cache.SetTeacherDirectory(ctx, data, s.cfg.TeacherCacheTTL); err != nil {
			s.logger.Warn("写入教师缓存失败", zap.Error(err))
		}
	}
	s.logger.Debug("教师列表已刷新", zap.Int("count", len(teachers)))
	return teachers, nil
}
