package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/askroom/askroom-api/internal/api"
	"github.com/askroom/askroom-api/internal/config"
	"github.com/askroom/askroom-api/internal/core"
	"github.com/askroom/askroom-api/internal/store"
)

func main() {
	// Load configuration
	config.LoadConfig()

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if config.AppConfig.LogLevel == "DEBUG" {
		log.Println("Service starting in DEBUG mode")
	}

	// Initialize database store: a postgres:// URL selects the pgvector
	// backend, anything else is treated as a SQLite path.
	dbStore, err := openStore()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbStore.Close()

	// Initialize the Gemini gateway
	gateway := core.NewGeminiService()
	defer gateway.Close()

	// Initialize services
	roomService := core.NewRoomService(dbStore)
	answerService := core.NewAnswerService(dbStore, gateway,
		float32(config.AppConfig.SimilarityThreshold), config.AppConfig.MaxContextChunks)
	ingestService := core.NewIngestService(dbStore, gateway)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(roomService, answerService, ingestService)
	router := api.NewRouter(apiHandler)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  60 * time.Second, // Audio uploads can be slow
		WriteTimeout: 120 * time.Second, // Transcription + generation can take a while
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give active connections time to finish.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting gracefully")
}

func openStore() (store.Store, error) {
	databaseURL := config.AppConfig.DatabaseURL
	dimensions := config.AppConfig.EmbeddingDimensions

	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		return store.NewPostgresStore(context.Background(), databaseURL, dimensions)
	}
	return store.NewSQLiteStore(databaseURL, dimensions)
}
