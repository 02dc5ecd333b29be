package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequests HTTP 请求计数（按方法、路由模板、状态码）
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Name:      "http_requests_total",
		Help:      "HTTP 请求总数",
	}, []string{"method", "route", "status"})

	// HTTPDuration HTTP 请求耗时
	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "portal",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP 请求耗时",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// AttendanceSubmissions 考勤提交结果（ok / invalid / busy / error）
	AttendanceSubmissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Name:      "attendance_submissions_total",
		Help:      "考勤提交次数",
	}, []string{"result"})

	// AbsenceNotifications 缺勤通知投递结果（sent / failed）
	AbsenceNotifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Name:      "absence_notifications_total",
		Help:      "缺勤通知投递次数",
	}, []string{"result"})

	// UnassignedStudents 模块创建时未分配到场地的学生数
	UnassignedStudents = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "portal",
		Name:      "module_unassigned_students_total",
		Help:      "因容量不足未分配场地的学生累计数",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequests,
		HTTPDuration,
		AttendanceSubmissions,
		AbsenceNotifications,
		UnassignedStudents,
	)
}

// Handler 暴露 /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
