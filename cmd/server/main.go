package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"loan-advisor/internal/config"
	"loan-advisor/internal/handler"
	"loan-advisor/internal/logger"
	"loan-advisor/internal/middleware"
	"loan-advisor/internal/rules"
	"loan-advisor/internal/service"
	"loan-advisor/internal/session"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	configFile := flag.String("config", "", "config file path (e.g. etc/config-dev.yaml)")
	flag.Parse()

	cfg := config.Load(*configFile)
	logger.Init(cfg.Log)

	var store session.Store
	if cfg.Redis.Addr != "" {
		rs, err := session.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			time.Duration(cfg.Redis.TTLMinutes)*time.Minute)
		if err != nil {
			logger.Error("redis connect failed", "addr", cfg.Redis.Addr, "err", err)
			os.Exit(1)
		}
		defer rs.Close()
		store = rs
		logger.Info("session store: redis", "addr", cfg.Redis.Addr)
	} else {
		store = session.NewMemoryStore()
		logger.Info("session store: memory")
	}

	var audit *service.AuditRecorder
	if cfg.Database.Host != "" {
		db, err := cfg.OpenGormDB()
		if err != nil {
			logger.Error("db connect failed", "err", err)
			os.Exit(1)
		}
		audit, err = service.NewAuditRecorder(db)
		if err != nil {
			logger.Error("audit init failed", "err", err)
			os.Exit(1)
		}
		logger.Info("turn audit enabled", "db", cfg.Database.Name)
	}

	var gen service.ResponseGenerator
	if cfg.LLM.BaseURL != "" {
		gen = service.NewLLMClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model,
			time.Duration(cfg.LLM.TimeoutSeconds)*time.Second)
		logger.Info("response generator enabled", "model", cfg.LLM.Model)
	} else {
		logger.Warn("no llm configured, using template replies")
	}

	var stt service.Transcriber
	if cfg.STT.BaseURL != "" {
		stt = service.NewHTTPTranscriber(cfg.STT.BaseURL, cfg.STT.APIKey, cfg.STT.Model,
			time.Duration(cfg.STT.TimeoutSeconds)*time.Second)
		logger.Info("speech input enabled", "model", cfg.STT.Model)
	}

	engine := rules.NewEngine(cfg.Policies)
	orch := service.NewOrchestrator(store, engine, gen, stt, audit)

	chatH := handler.NewChatHandler(orch)
	sessH := handler.NewSessionHandler(orch)

	limiter := middleware.NewRateLimiter(cfg.Limits.ChatPerMinute, time.Minute)
	defer limiter.Stop()

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.POST("/chat", middleware.RateLimit(limiter), chatH.Chat)
	api.POST("/eligibility/check", chatH.CheckEligibility)
	api.GET("/sessions/:id", sessH.Get)
	api.GET("/sessions/:id/turns", sessH.Turns)
	api.DELETE("/sessions/:id", sessH.Delete)

	srv := &http.Server{Addr: cfg.Addr(), Handler: r}

	go func() {
		logger.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", "err", err)
	}
}
