package metrics

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 指标定义：
// - http_requests_total：按路由模板与方法统计请求次数（附带状态码标签）
// - http_request_duration_seconds：按路由模板与方法统计请求耗时分布
// - ads_mutations_total：广告写操作次数（按操作）
// - ad_image_upload_bytes_total：已上传图片的字节数
var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "HTTP 请求计数（按路径/方法/状态）"},
		[]string{"path", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP 请求耗时（秒）", Buckets: prometheus.DefBuckets},
		[]string{"path", "method"},
	)
	AdMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ads_mutations_total", Help: "广告写操作计数（create/update/delete/upload_image）"},
		[]string{"op"},
	)
	ImageUploadBytes = prometheus.NewCounter(prometheus.CounterOpts{Name: "ad_image_upload_bytes_total", Help: "已上传图片字节数"})
)

func init() {
	prometheus.MustRegister(HTTPRequests, HTTPLatency, AdMutations, ImageUploadBytes)
}

// Handler 返回记录基础 HTTP 指标的中间件（QPS/耗时）。
// 未匹配路由统一记为 "unmatched"，避免任意路径撑爆标签基数。
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		dur := time.Since(start).Seconds()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPLatency.WithLabelValues(path, c.Request.Method).Observe(dur)
		HTTPRequests.WithLabelValues(path, c.Request.Method, fmt.Sprintf("%d", c.Writer.Status())).Inc()
	}
}

// Exposer 返回标准 Prometheus 暴露处理器。
func Exposer() gin.HandlerFunc { return gin.WrapH(promhttp.Handler()) }
