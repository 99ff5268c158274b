package handlers

import (
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"adboard/internal/config"
	"adboard/internal/metrics"
	"adboard/internal/middlewares"
	"adboard/internal/services"
)

// Handler 聚合所有依赖（配置、服务）并注册所有 HTTP 路由。
type Handler struct {
	cfg      config.Config
	adSvc    *services.AdService
	catSvc   *services.CategoryService
	userSvc  *services.UserService
	auditSvc *services.AuditService
	limiter  middlewares.CounterStore
}

var validatorOnce sync.Once

// New 构造 Handler；limiter 为 nil 时写接口不限流。
func New(cfg config.Config, as *services.AdService, cs *services.CategoryService, us *services.UserService, audit *services.AuditService, limiter middlewares.CounterStore) *Handler {
	validatorOnce.Do(useJSONFieldNames)
	return &Handler{cfg: cfg, adSvc: as, catSvc: cs, userSvc: us, auditSvc: audit, limiter: limiter}
}

// useJSONFieldNames 让校验错误使用 JSON 字段名而非 Go 字段名。
func useJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// RegisterRoutes 在 Gin 路由上挂载广告、分类、运维与开发辅助端点。
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", h.root)
	r.GET("/healthz", h.healthz)
	r.GET("/metrics", h.metrics)

	// 写接口按客户端 IP 限流
	write := middlewares.RateLimit(h.limiter, "write", h.cfg.Limits.WritesPerMinute, h.cfg.Limits.Window, func(c *gin.Context) string { return c.ClientIP() })

	ad := r.Group("/ad")
	ad.GET("/", h.listAds)
	ad.POST("/create/", write, h.createAd)
	ad.GET("/:id/", h.getAd)
	ad.PATCH("/:id/update/", write, h.updateAd)
	ad.DELETE("/:id/delete/", write, h.deleteAd)
	ad.POST("/:id/upload_image/", write, h.uploadAdImage)

	cat := r.Group("/cat")
	cat.GET("/", h.listCategories)
	cat.POST("/create/", write, h.createCategory)

	// 开发辅助接口：创建、列出与查看用户
	if h.cfg.Env != "prod" {
		r.POST("/dev/users", h.devCreateUser)
		r.GET("/dev/users", h.devListUsers)
		r.GET("/dev/users/:id", h.devGetUser)
	}
}

// @Summary      根路径探活
// @Tags         ops
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       / [get]
func (h *Handler) root(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) }

// @Summary      健康检查（含数据库连通性）
// @Tags         ops
// @Produce      json
// @Success      200 {object} map[string]string
// @Failure      503 {object} map[string]string
// @Router       /healthz [get]
func (h *Handler) healthz(c *gin.Context) {
	if err := h.adSvc.Ping(c); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary      Prometheus 指标
// @Tags         ops
// @Produce      plain
// @Success      200 {string} string "metrics"
// @Router       /metrics [get]
func (h *Handler) metrics(c *gin.Context) { metrics.Exposer()(c) }
