package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"KanariaGo/internal/handler"
	"KanariaGo/internal/middleware"
	"KanariaGo/internal/service"
	"KanariaGo/pkg/config"
	"KanariaGo/pkg/etcd"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var (
	confPath = flag.String("conf", "conf/server.ini", "Config file path")
	debug    = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	if *debug {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}

	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	cfg, err := config.LoadConfig(*confPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logrus.Info("===========================================")
	logrus.Info("  Kanaria Conversion Validation Service")
	logrus.Info("===========================================")
	logrus.Infof("Port: %s", cfg.Server.Port)
	logrus.Infof("Default Driver: %s", cfg.Validation.DefaultDriver)
	logrus.Infof("Cache Size: %.2f MB", float64(cfg.Cache.MaxBytes)/(1024*1024))

	validationService := service.NewValidationService(
		cfg.Cache.MaxBytes,
		cfg.Validation.DefaultDriver,
		cfg.Validation.MaxProblemRows,
	)
	logrus.Info("Service initialized")

	validationHandler := handler.NewValidationHandler(validationService)
	logrus.Info("Handler initialized")

	router := setupRouter(validationHandler)
	logrus.Info("Router initialized")

	// optional etcd registration; skipped when no endpoints configured
	if cfg.Etcd.Endpoints != "" {
		registry, err := etcd.NewClient(strings.Split(cfg.Etcd.Endpoints, ","), cfg.Etcd.Prefix)
		if err != nil {
			logrus.Warnf("Etcd connection failed: %v", err)
		} else {
			defer registry.Close()
			if err := registry.Register(cfg.Server.ServiceName, cfg.Server.ServiceAddr, cfg.Etcd.TTL); err != nil {
				logrus.Warnf("Service registration failed: %v", err)
			}
		}
	}

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	logrus.Infof("Starting server on %s", addr)
	logrus.Info("===========================================")

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func setupRouter(validationHandler *handler.ValidationHandler) *gin.Engine {
	if !*debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	middleware.InitGlobalRateLimiter()
	middleware.InitGlobalCircuitBreaker()
	logrus.Info("Middleware initialized (rate limiter & circuit breaker)")

	r.Use(middleware.RateLimitMiddleware())
	r.Use(middleware.CircuitBreakerMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	apiGroup := r.Group("/kanaria/api/validate/v1")
	{
		// full comparison run
		apiGroup.POST("/run", validationHandler.Run)
		apiGroup.POST("/run/", validationHandler.Run)

		// offending rows, original or converted side
		apiGroup.POST("/problem-rows", validationHandler.ProblemRows)
		apiGroup.POST("/problem-rows/", validationHandler.ProblemRows)

		// cache statistics
		apiGroup.GET("/stats", validationHandler.Stats)
		apiGroup.POST("/cache/reset", validationHandler.ResetCacheStats)
	}

	monitorGroup := r.Group("/monitor")
	{
		monitorGroup.GET("/circuitbreaker", func(c *gin.Context) {
			stats := middleware.GetAllCircuitBreakerStats()
			c.JSON(200, gin.H{
				"code":    200,
				"message": "success",
				"data":    stats,
			})
		})

		monitorGroup.GET("/status", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"code":    200,
				"message": "success",
				"data": gin.H{
					"circuit_breaker": middleware.GetAllCircuitBreakerStats(),
				},
			})
		})
	}

	return r
}
