package main

// @title           Adboard API
// @version         0.1.0
// @description     分类广告服务：广告的分页列表、创建、详情、部分更新、删除与图片上传。
// @schemes         http https
// @BasePath        /

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"adboard/internal/config"
	"adboard/internal/events"
	"adboard/internal/handlers"
	"adboard/internal/metrics"
	"adboard/internal/middlewares"
	"adboard/internal/services"
	"adboard/internal/storage"
)

// main 为服务入口：加载配置、初始化日志/存储/服务、注册路由并启动 HTTP 服务。
func main() {
	configPath := flag.String("config", "", "path to config file (default: ./config.yaml|yml|json)")
	flag.Parse()

	log.SetFormatter(&log.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.InfoLevel)

	cfg := config.Load()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadFile(*configPath); err != nil {
			log.WithError(err).Fatal("load config")
		}
	}
	if lvl, err := log.ParseLevel(cfg.Log.Level); err == nil {
		log.SetLevel(lvl)
	} else {
		log.WithField("level", cfg.Log.Level).Warn("unknown log level, using info")
	}
	// 生产环境基线检查：禁止默认数据库密码进入生产。
	if cfg.Env == "prod" {
		if cfg.MySQL.Password == "123456" || cfg.MySQL.Password == "password" || cfg.MySQL.Password == "" {
			log.Fatal("insecure mysql password in prod; configure mysql.password in config.yaml")
		}
		if strings.Contains(cfg.MySQL.User, "root") {
			log.Warn("using MySQL root in prod is discouraged")
		}
		if cfg.Media.Backend == "s3" && cfg.S3.SecretKey == "minioadmin" {
			log.Fatal("default s3 credentials in prod; configure s3.secret_key")
		}
	}
	log.WithFields(log.Fields{
		"env":           cfg.Env,
		"http_addr":     cfg.HTTPAddr,
		"mysql_dsn":     cfg.MySQL.DSNMasked(),
		"redis_addr":    cfg.Redis.Addr,
		"media_backend": cfg.Media.Backend,
		"nats_url":      cfg.NATS.URL,
		"page_size":     cfg.Pagination.PageSize,
	}).Info("configuration loaded")

	db, err := storage.InitMySQL(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to connect mysql")
	}
	defer storage.CloseMySQL(db)

	// Redis 仅用于写接口限流，未配置时不限流
	var limiter middlewares.CounterStore
	rdb, err := storage.InitRedis(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to connect redis")
	}
	if rdb != nil {
		limiter = rdb
		defer func() { _ = rdb.Close() }()
	} else {
		log.Warn("redis disabled; write rate limiting is off")
	}

	media, err := storage.OpenMedia(context.Background(), cfg)
	if err != nil {
		log.WithError(err).Fatal("open media store")
	}

	var pub events.Publisher = events.Nop{}
	if cfg.NATS.URL != "" {
		np, err := events.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			log.WithError(err).Fatal("connect nats")
		}
		defer np.Close()
		pub = np
	}

	userSvc := services.NewUserService(db)
	catSvc := services.NewCategoryService(db)
	adSvc := services.NewAdService(db, media, pub, cfg.Pagination.PageSize)
	auditSvc := services.NewAuditService(db)

	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middlewares.RequestID())
	router.Use(middlewares.RequestLogger())
	router.Use(middlewares.SecurityHeaders(cfg))
	router.Use(metrics.Handler())

	handlers.New(cfg, adSvc, catSvc, userSvc, auditSvc, limiter).RegisterRoutes(router)
	// 本地媒体目录直接由 Gin 提供静态访问；S3 由对象存储自身对外
	if lm, ok := media.(*storage.LocalMedia); ok && strings.HasPrefix(lm.BaseURL(), "/") {
		router.Static(strings.TrimRight(lm.BaseURL(), "/"), lm.Root())
	}

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("starting http server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("listen")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("server shutdown")
	} else {
		log.Info("server stopped")
	}
}
