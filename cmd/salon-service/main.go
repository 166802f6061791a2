package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/khatanna/salon-service/internal/api"
	"github.com/khatanna/salon-service/internal/auth"
	"github.com/khatanna/salon-service/internal/config"
	"github.com/khatanna/salon-service/internal/database"
	"github.com/khatanna/salon-service/internal/services"
	"github.com/sirupsen/logrus"
)

func main() {
	// Cargar configuración
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	// Configurar logging
	logger := setupLogger(cfg)
	logger.Info("Starting Salon Service...")

	// Configurar modo de Gin
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Conectar a Redis
	redis, err := database.ConnectRedis(cfg)
	if err != nil {
		logger.Fatalf("Error connecting to Redis: %v", err)
	}
	defer redis.Close()

	// Inicializar el almacén de árbol con sus índices
	store := database.NewTreeStore(redis, logger, database.DefaultIndexRules()...)

	// Inicializar cliente de storage para documentos de consentimiento
	var storageClient *database.StorageClient
	if cfg.Supabase.StorageEndpoint != "" && cfg.Supabase.AccessKeyID != "" && cfg.Supabase.SecretAccessKey != "" {
		storageClient, err = database.NewStorageClient(&cfg.Supabase, logger)
		if err != nil {
			logger.Warnf("Error initializing storage client: %v", err)
			storageClient = nil
		} else {
			if err := storageClient.HealthCheck(); err != nil {
				logger.Warnf("Storage health check failed: %v", err)
			} else {
				logger.Info("Storage connection healthy")
			}
		}
	} else {
		logger.Warn("Storage credentials not provided, consent documents will not be available")
	}

	// Inicializar servicio de autenticación
	authService := auth.NewService(&cfg.Supabase, logger)

	// Inicializar repositorios
	visitRepo := database.NewVisitRepository(store, logger)
	billRepo := database.NewBillRepository(store, logger)
	userRepo := database.NewUserRepository(store, logger)

	// Inicializar servicios
	visitService := services.NewVisitService(visitRepo, storageClient, logger)
	reportService := services.NewReportService(visitRepo, billRepo, userRepo, cfg, logger)

	// Inicializar API
	apiHandler := api.NewAPI(
		visitRepo,
		billRepo,
		userRepo,
		visitService,
		reportService,
		authService,
		logger,
	)

	// Configurar router
	router := setupRouter(apiHandler, redis, cfg)

	// Crear servidor HTTP
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Canal para señales de terminación
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Iniciar servidor en goroutine
	go func() {
		logger.Infof("Server starting on %s:%s", cfg.Server.Host, cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	// Esperar señal de terminación
	<-quit
	logger.Info("Shutting down server...")

	// Contexto con timeout para shutdown graceful
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown graceful del servidor
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}

// setupLogger configura el logger según la configuración
func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

// setupRouter configura el router principal
func setupRouter(apiHandler *api.API, redis *database.Redis, cfg *config.Config) *gin.Engine {
	router := gin.New()

	// Middleware global
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Middleware de CORS para desarrollo
	if cfg.IsDevelopment() {
		router.Use(func(c *gin.Context) {
			c.Header("Access-Control-Allow-Origin", "*")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization")

			if c.Request.Method == "OPTIONS" {
				c.AbortWithStatus(204)
				return
			}

			c.Next()
		})
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		status := "ok"
		if err := redis.HealthCheck(); err != nil {
			status = "degraded"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    status,
			"timestamp": time.Now().UTC(),
			"service":   "salon-service",
			"version":   "1.0.0",
		})
	})

	// API v1
	v1 := router.Group("/v1")
	v1.Use(apiHandler.AuthMiddleware())
	{
		// Registro: solo requiere identidad, no tenant
		v1.POST("/users/register", apiHandler.RegisterUser)

		// Endpoints del tenant (requieren usuario habilitado y asignado)
		tenant := v1.Group("")
		tenant.Use(apiHandler.TenantMiddleware())
		{
			// Visits
			tenant.GET("/visits", apiHandler.GetVisits)
			tenant.POST("/visits", apiHandler.CreateVisit)
			tenant.GET("/visits/:id", apiHandler.GetVisit)
			tenant.PUT("/visits/:id", apiHandler.EditVisit)
			tenant.DELETE("/visits/:id", apiHandler.DeleteVisit)
			tenant.PUT("/visits/:id/state", apiHandler.ChangeVisitState)
			tenant.PUT("/visits/:id/rating", apiHandler.RateVisit)
			tenant.PUT("/visits/:id/services/:service/toggle", apiHandler.ToggleVisitService)
			tenant.PUT("/visits/:id/consents/:node", apiHandler.SetVisitConsent)
			tenant.POST("/visits/:id/consents/:node/document", apiHandler.UploadConsentDocument)

			// Bills
			tenant.GET("/bills", apiHandler.GetBills)
			tenant.POST("/bills", apiHandler.CreateBill)

			// Users
			tenant.GET("/users", apiHandler.GetUsers)
			tenant.GET("/users/:id/avatar", apiHandler.GetUserAvatar)

			// Reports
			tenant.GET("/reports/daily", apiHandler.DailyReport)
			tenant.GET("/reports/monthly", apiHandler.MonthlyReport)
			tenant.GET("/reports/ratings", apiHandler.RatingsReport)

			// Administración de usuarios (solo dueños)
			admin := tenant.Group("/users")
			admin.Use(apiHandler.OwnerMiddleware())
			{
				admin.PUT("/:id/owner/toggle", apiHandler.ToggleUserOwner)
				admin.PUT("/:id/allowed/toggle", apiHandler.ToggleUserAllowed)
				admin.PUT("/:id/tenant", apiHandler.AssignUserTenant)
			}
		}
	}

	return router
}
