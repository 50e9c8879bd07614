package main

import (
	"context"
	"fmt"
	"log"

	"github.com/Paypay0in/my-trippie/internal/config"
	"github.com/Paypay0in/my-trippie/internal/database"
	"github.com/Paypay0in/my-trippie/internal/gemini"
	"github.com/Paypay0in/my-trippie/internal/handler"
	"github.com/Paypay0in/my-trippie/internal/repository"
	"github.com/Paypay0in/my-trippie/internal/server"
	"github.com/Paypay0in/my-trippie/internal/service"
)

func main() {
	// Load configuration
	log.Println("Loading configuration...")
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Gemini client for expense extraction
	geminiClient := gemini.NewClient(&gemini.Config{
		APIKey:     cfg.GeminiAPIKey,
		ModelID:    cfg.GeminiModelID,
		Timeout:    cfg.GeminiTimeout,
		MaxRetries: cfg.GeminiMaxRetries,
		RetryDelay: cfg.GeminiRetryDelay,
	})

	ctx := context.Background()

	// Initialize the state store
	log.Printf("Initializing %s state store...", cfg.StoreBackend)
	var store repository.StateRepository
	switch cfg.StoreBackend {
	case "postgres":
		db, err := database.NewPostgresDB()
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		defer db.Close()

		store, err = repository.NewPostgresStateRepository(ctx, db.GetPool())
		if err != nil {
			log.Fatalf("Failed to initialize Postgres state store: %v", err)
		}
	default:
		store, err = repository.NewFileStateRepository(cfg.StoreDir)
		if err != nil {
			log.Fatalf("Failed to initialize file state store: %v", err)
		}
	}

	// Create the ledger engine; this loads and migrates persisted state
	log.Println("Loading ledger state...")
	ledgerService, err := service.NewLedgerService(ctx, store, geminiClient)
	if err != nil {
		log.Fatalf("Failed to load ledger state: %v", err)
	}

	// Create handlers
	draftHandler := handler.NewDraftHandler(ledgerService)
	tripHandler := handler.NewTripHandler(ledgerService)
	scanHandler := handler.NewScanHandler(ledgerService)

	// Create and configure server
	log.Println("Configuring server...")
	appServer := server.NewServer(cfg)
	appServer.RegisterRoutes(draftHandler, tripHandler, scanHandler)

	// Start server (blocking call)
	log.Printf("Starting server on port %d...", cfg.Port)
	if err := appServer.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	fmt.Println("Server shutdown complete")
}
