package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector HTTP 指标收集器
type Collector struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 领域事件指标
	postsCreatedTotal  prometheus.Counter
	reactionsTotal     *prometheus.CounterVec
	paymentsTotal      *prometheus.CounterVec
	adImpressionsTotal prometheus.Counter
	cascadeJobsTotal   *prometheus.CounterVec

	dbPoolConnections *prometheus.GaugeVec
}

// NewCollector 创建指标收集器
func NewCollector() *Collector {
	return &Collector{
		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		postsCreatedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "posts_created_total",
				Help: "Total number of posts created",
			},
		),
		reactionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reactions_total",
				Help: "Total number of reaction mutations",
			},
			[]string{"kind", "action"},
		),
		paymentsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_transactions_total",
				Help: "Total number of payment transaction transitions",
			},
			[]string{"method", "type", "status"},
		),
		adImpressionsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ad_impressions_total",
				Help: "Total number of ad impressions recorded",
			},
		),
		cascadeJobsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "author_cascade_jobs_total",
				Help: "Total number of author snapshot cascade jobs",
			},
			[]string{"status"},
		),
		dbPoolConnections: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "db_pool_connections",
				Help: "Database connection pool state",
			},
			[]string{"state"},
		),
	}
}

// Default 全局收集器实例
var Default = NewCollector()

// GinMiddleware 记录 HTTP 请求指标
func (m *Collector) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		m.httpRequestsTotal.WithLabelValues(
			c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status()),
		).Inc()
		m.httpRequestDuration.WithLabelValues(
			c.Request.Method, endpoint,
		).Observe(time.Since(start).Seconds())
	}
}

// RecordPostCreated 记录发帖事件
func (m *Collector) RecordPostCreated() {
	m.postsCreatedTotal.Inc()
}

// RecordReaction 记录表态事件 (action: added/removed/switched)
func (m *Collector) RecordReaction(kind, action string) {
	m.reactionsTotal.WithLabelValues(kind, action).Inc()
}

// RecordPayment 记录支付状态迁移
func (m *Collector) RecordPayment(method, txnType, status string) {
	m.paymentsTotal.WithLabelValues(method, txnType, status).Inc()
}

// RecordAdImpression 记录广告曝光
func (m *Collector) RecordAdImpression() {
	m.adImpressionsTotal.Inc()
}

// RecordCascadeJob 记录快照级联任务结果 (status: ok/failed)
func (m *Collector) RecordCascadeJob(status string) {
	m.cascadeJobsTotal.WithLabelValues(status).Inc()
}

// SetDBPoolStats 上报连接池状态
func (m *Collector) SetDBPoolStats(open, inUse, idle int) {
	m.dbPoolConnections.WithLabelValues("open").Set(float64(open))
	m.dbPoolConnections.WithLabelValues("in_use").Set(float64(inUse))
	m.dbPoolConnections.WithLabelValues("idle").Set(float64(idle))
}
