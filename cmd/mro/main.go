package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Rithish-Sripaul/mro-system/internal/config"
	"github.com/Rithish-Sripaul/mro-system/internal/database"
	"github.com/Rithish-Sripaul/mro-system/internal/metrics"
	"github.com/Rithish-Sripaul/mro-system/internal/middleware"
	"github.com/Rithish-Sripaul/mro-system/internal/mro/handler"
	"github.com/Rithish-Sripaul/mro-system/internal/mro/repository"
	"github.com/Rithish-Sripaul/mro-system/internal/mro/service"
	"github.com/Rithish-Sripaul/mro-system/internal/shared/blobstore"
	"github.com/Rithish-Sripaul/mro-system/internal/validation"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting mro service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := database.Open(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	if err := database.Migrate(db, zapLogger); err != nil {
		zapLogger.Fatal("Failed to migrate database", zap.Error(err))
	}

	// 初始化Redis
	rdb := initRedis(cfg.Redis)
	defer rdb.Close()

	// 初始化对象存储；未配置时附件功能返回503
	var blobs service.BlobStore
	blobClient, err := blobstore.New(cfg.MinIO, zapLogger)
	switch {
	case errors.Is(err, blobstore.ErrNotConfigured):
		zapLogger.Warn("MinIO not configured, file uploads are disabled")
	case err != nil:
		zapLogger.Fatal("Failed to init MinIO client", zap.Error(err))
	default:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := blobClient.EnsureBucket(ctx); err != nil {
			zapLogger.Warn("Failed to ensure MinIO bucket", zap.String("bucket", cfg.MinIO.Bucket), zap.Error(err))
		}
		cancel()
		blobs = blobClient
	}

	if err := validation.Register(); err != nil {
		zapLogger.Fatal("Failed to register validators", zap.Error(err))
	}

	// 初始化依赖
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, rdb, blobs, cfg, zapLogger)
	handlers := handler.NewHandlers(services, handler.AuthOptions{
		CookieName:   cfg.Auth.SessionCookie,
		SecureCookie: cfg.Auth.SecureCookie,
	})

	loginLimiter := middleware.NewRateLimiter(cfg.Auth.LoginRateLimit, cfg.Auth.LoginRateWindow)
	loginLimiter.StartCleanup(10 * time.Minute)
	defer loginLimiter.Stop()

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.MaxMultipartMemory = cfg.Server.MaxUploadBytes
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.Metrics())
	router.Use(middleware.CORS())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	registerRoutes(router, db, rdb, blobClient)
	handler.RegisterRoutes(router, handlers, handler.RouteDeps{
		Auth: middleware.JWTAuth(cfg.JWT.Secret, middleware.AuthOptions{
			Sessions:   services.Auth,
			CookieName: cfg.Auth.SessionCookie,
		}),
		LoginLimit: loginLimiter.Middleware(func(c *gin.Context) {
			metrics.RecordLogin("rate_limited")
		}),
	})

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// registerRoutes 健康检查、版本、指标
func registerRoutes(r *gin.Engine, db *gorm.DB, rdb *redis.Client, blobs *blobstore.Client) {
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		checks := gin.H{"database": "ok", "redis": "ok", "storage": "disabled"}
		ready := true
		if err := database.Ping(ctx, db); err != nil {
			checks["database"] = err.Error()
			ready = false
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			checks["redis"] = err.Error()
			ready = false
		}
		if blobs != nil {
			checks["storage"] = "ok"
			if err := blobs.Ping(ctx); err != nil {
				checks["storage"] = err.Error()
			}
		}

		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": map[bool]string{true: "ok", false: "unavailable"}[ready], "checks": checks})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.NoRoute(func(c *gin.Context) {
		handler.NotFound(c, "Not found")
	})
}
