package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "classmatch"

var (
	// ImportRunsTotal 导入运行次数，status: completed | cancelled | rejected
	ImportRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "import",
		Name:      "runs_total",
		Help:      "导入运行次数",
	}, []string{"kind", "status"})

	// ImportRowsTotal 已尝试行数，outcome: success | failed
	ImportRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "import",
		Name:      "rows_total",
		Help:      "导入已尝试行数",
	}, []string{"kind", "outcome"})

	ImportRowErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "import",
		Name:      "row_errors_total",
		Help:      "导入行级错误数（按错误类型）",
	}, []string{"kind", "error_kind"})

	ImportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "import",
		Name:      "duration_seconds",
		Help:      "单次导入耗时",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
	}, []string{"kind"})

	NewTeachersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "import",
		Name:      "new_teachers_total",
		Help:      "导入过程中新建的教师数",
	})

	// BackendRequestDuration 调用选课系统后端的耗时，status 为 HTTP 状态码或 error
	BackendRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "backend",
		Name:      "request_duration_seconds",
		Help:      "选课系统后端请求耗时",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP 请求数",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP 请求耗时",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// Handler Prometheus 抓取端点
func Handler() http.Handler {
	return promhttp.Handler()
}
