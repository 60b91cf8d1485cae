package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/EduardoCane/EmpresaAguaLima-sub000/catalog"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/config"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/export"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/handler"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/middleware"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/pkg/logger"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/render"
	"github.com/EduardoCane/EmpresaAguaLima-sub000/service"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("server exited gracefully")
}

func run(ctx context.Context, cfg *config.Config) error {
	// Database
	db, err := service.OpenDatabase(&cfg.Database, cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	store := service.NewStore(db)
	if err := store.AutoMigrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// Rendering pipeline
	fonts, err := render.DefaultFonts()
	if err != nil {
		return fmt.Errorf("failed to load fonts: %w", err)
	}
	renderer := render.NewRenderer(render.Options{
		Fidelities:   cfg.Render.Fidelities,
		ImageTimeout: cfg.Render.ImageTimeout(),
		Blank: render.BlankDetector{
			Threshold: cfg.Render.BlankThreshold,
			Radius:    cfg.Render.SampleRadius,
			Grid:      cfg.Render.SampleGrid,
			Stride:    max(cfg.Render.ScanStride, 0),
			MinInk:    cfg.Render.MinInk,
		},
		MaxPixels: cfg.Render.MaxPixels,
	}, fonts, render.NewAssets(nil))
	worker := render.NewWorker(renderer, cfg.Render.QueueSize)

	cat := catalog.New(fonts, catalog.Employer{
		Name:           cfg.Company.Name,
		RUC:            cfg.Company.RUC,
		Address:        cfg.Company.Address,
		Representative: cfg.Company.Representative,
		City:           cfg.Company.City,
	})
	exporter := export.NewExporter(cat, worker)

	// Archive storage is optional; finished exports stay in memory without it.
	var storage service.ArchiveStorage
	if cfg.Minio.Enabled {
		minioSvc, err := service.NewMinioService(&cfg.Minio)
		if err != nil {
			return fmt.Errorf("failed to initialize MINIO service: %w", err)
		}
		if err := minioSvc.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure MINIO bucket: %w", err)
		}
		storage = minioSvc
	}
	exports := service.NewExportService(store, exporter, service.NewJobStore(cfg.Export.MaxJobs), storage, cfg.Export.Location())

	// Signature handoff between devices
	var (
		hub      service.SignatureHub
		redisHub *service.RedisHub
	)
	if cfg.Redis.Enabled {
		redisHub = service.NewRedisHub(&cfg.Redis)
		defer redisHub.Close()
		hub = redisHub
	} else {
		hub = service.NewMemoryHub()
	}
	signing := service.NewSigningService(store, hub)

	var scheduler *service.Scheduler
	if cfg.Export.Schedule != "" {
		if scheduler, err = service.NewScheduler(exports, cfg.Export.Schedule); err != nil {
			return fmt.Errorf("invalid export schedule: %w", err)
		}
	}

	var reniec *service.ReniecService
	if cfg.Reniec.PrimaryURL != "" || cfg.Reniec.FallbackURL != "" {
		reniec = service.NewReniecService(&cfg.Reniec)
	}

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(corsMiddleware())
	router.Use(cacheMiddleware())
	router.Use(middleware.RateLimit(cfg.Server.RateLimit, time.Minute, "/health", "/api/signatures/stream"))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	handler.RegisterRoutes(router.Group("/api"), handler.Deps{
		Store:   store,
		Reniec:  reniec,
		Signing: signing,
		Exports: exports,
		SignCfg: &cfg.Signing,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutS) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownWaitS)*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	g.Go(func() error { return worker.Run(gctx) })

	if redisHub != nil {
		g.Go(func() error { return redisHub.Run(gctx) })
	}

	if scheduler != nil {
		g.Go(func() error { return scheduler.Run(gctx) })
	}

	return g.Wait()
}

// corsMiddleware handles CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, Content-Disposition, Retry-After")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// cacheMiddleware marks API answers as uncacheable
func cacheMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
		}
		c.Next()
	}
}
