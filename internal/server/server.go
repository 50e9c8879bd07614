package server

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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/Paypay0in/my-trippie/internal/config"
	"github.com/Paypay0in/my-trippie/internal/handler"
	"github.com/Paypay0in/my-trippie/internal/middleware"
)

// Server represents the HTTP server for the trip-ledger service
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     *config.Config
}

// NewServer creates and configures a new server instance
func NewServer(cfg *config.Config) *Server {
	router := gin.Default()

	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestResponseLogger(middleware.LoggerConfig{
		Format: cfg.LogFormat,
		Level:  cfg.LogLevel,
	}))

	server := &Server{
		router: router,
		config: cfg,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}

	server.setupRoutes()

	return server
}

// GetRouter returns the gin router instance
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// setupRoutes configures the routes that exist independent of handlers
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	// API documentation endpoints
	// Access the Swagger UI at http://localhost:8080/api-docs/index.html
	swaggerHandler := ginSwagger.WrapHandler(swaggerFiles.Handler)
	s.router.GET("/api-docs/*any", swaggerHandler)

	s.router.GET("/api-docs", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/api-docs/index.html")
	})
}

// RegisterRoutes wires the ledger API onto the router
func (s *Server) RegisterRoutes(draft *handler.DraftHandler, trips *handler.TripHandler, scan *handler.ScanHandler) {
	v1 := s.router.Group("/v1")

	draftGroup := v1.Group("/draft")
	{
		draftGroup.GET("", draft.GetDraft)
		draftGroup.PUT("/name", draft.RenameDraft)
		draftGroup.PUT("/country", draft.SetCountry)
		draftGroup.PUT("/dates", draft.SetDates)
		draftGroup.PUT("/phase", draft.SetPhase)
		draftGroup.GET("/summary", draft.GetSummary)
		draftGroup.GET("/export", draft.ExportCSV)
		draftGroup.POST("/archive", draft.ArchiveTrip)
		draftGroup.POST("/new", draft.NewTrip)

		draftGroup.POST("/expenses", draft.AddExpense)
		draftGroup.PUT("/expenses/:expenseId", draft.UpdateExpense)
		draftGroup.DELETE("/expenses/:expenseId", draft.DeleteExpense)

		draftGroup.POST("/companions", draft.AddCompanion)
		draftGroup.DELETE("/companions/:companionId", draft.RemoveCompanion)

		draftGroup.POST("/shopping-items", draft.AddShoppingItem)
		draftGroup.DELETE("/shopping-items/:itemId", draft.RemoveShoppingItem)
	}

	tripGroup := v1.Group("/trips")
	{
		tripGroup.GET("", trips.ListTrips)
		tripGroup.GET("/:tripId", trips.GetTrip)
		tripGroup.POST("/:tripId/restore", trips.RestoreTrip)
		tripGroup.PUT("/:tripId/name", trips.RenameTrip)
		tripGroup.DELETE("/:tripId", trips.DeleteTrip)
	}

	v1.POST("/scan", scan.SmartScan)
	v1.POST("/parse-text", scan.ParseText)
}

// Start begins listening for requests and handles graceful shutdown
func (s *Server) Start() error {
	// Channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Start server in a goroutine
	go func() {
		log.Printf("Server listening on port %d", s.config.Port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("Server exited gracefully")
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(ctx)
}
