package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xaiowei11/classmatch-web/config"
	"github.com/xaiowei11/classmatch-web/internal/importer"
	"github.com/xaiowei11/classmatch-web/pkg/metrics"
)

// 选课系统后端接口路径
const (
	pathTeachers     = "teachers/"
	pathCreateCourse = "courses/create/"
	pathRegister     = "register/"
)

const maxErrorBody = 1 << 20

// ErrUnavailable 后端无法连接或返回非 JSON 响应
var ErrUnavailable = errors.New("选课系统后端不可用")

// APIError 后端拒绝请求，Message 为响应中的 error 字段原文
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("后端返回 HTTP %d", e.StatusCode)
}

// Teacher 后端教师列表中的一项
type Teacher struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	RealName string `json:"real_name"`
	Title    string `json:"title"`
	Office   string `json:"office"`
}

// Client 选课系统后端 REST 客户端
type Client struct {
	baseURL       string
	http          *http.Client
	token         string
	csrfToken     string
	sessionCookie string
	logger        *zap.Logger
}

// NewClient 创建后端客户端
func NewClient(cfg *config.BackendConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/") + "/",
		http:          &http.Client{Timeout: timeout},
		token:         cfg.Token,
		csrfToken:     cfg.CSRFToken,
		sessionCookie: cfg.SessionCookie,
		logger:        logger,
	}
}

// ── 接口 ──

// ListTeachers 获取全部教师
func (c *Client) ListTeachers(ctx context.Context) ([]Teacher, error) {
	var teachers []Teacher
	if err := c.do(ctx, http.MethodGet, pathTeachers, nil, &teachers); err != nil {
		return nil, err
	}
	return teachers, nil
}

// CreateCourse 建立一门课程（含新教师与合授教师）
func (c *Client) CreateCourse(ctx context.Context, rec *importer.CourseRecord) error {
	return c.do(ctx, http.MethodPost, pathCreateCourse, NewCoursePayload(rec), nil)
}

// RegisterAccount 注册一个学生或教师账号
func (c *Client) RegisterAccount(ctx context.Context, rec *importer.AccountRecord) error {
	return c.do(ctx, http.MethodPost, pathRegister, NewAccountPayload(rec), nil)
}

// ── 请求 ──

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("序列化请求失败: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("构造请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.BackendRequestDuration.WithLabelValues(path, "error").Observe(time.Since(start).Seconds())
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.logger.Warn("请求选课系统后端失败", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	metrics.BackendRequestDuration.WithLabelValues(path, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: 无法解析响应: %v", ErrUnavailable, err)
	}
	return nil
}

// authorize 后端使用 session + CSRF；若配置了 token 则同时带上 Bearer
func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.csrfToken != "" {
		req.Header.Set("X-CSRFToken", c.csrfToken)
		req.AddCookie(&http.Cookie{Name: "csrftoken", Value: c.csrfToken})
	}
	if c.sessionCookie != "" {
		req.AddCookie(&http.Cookie{Name: "sessionid", Value: c.sessionCookie})
	}
}

func decodeAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var payload struct {
		Error   string `json:"error"`
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(data, &payload); err == nil {
		switch {
		case payload.Error != "":
			apiErr.Message = payload.Error
		case payload.Detail != "":
			apiErr.Message = payload.Detail
		case payload.Message != "":
			apiErr.Message = payload.Message
		}
	}
	return apiErr
}
