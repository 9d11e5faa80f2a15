package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"valux/pkg/api/config"
	"valux/pkg/api/valuation"
	coreConfig "valux/pkg/core/config"
	"valux/pkg/core/store"
)

func main() {
	// Load environment variables
	godotenv.Load()

	cfg, err := coreConfig.Load("")
	if err != nil {
		fmt.Printf("[FATAL] Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Run repository: Postgres when configured, JSON files otherwise
	repo := store.OpenValuationRepo(context.Background(), cfg.Store.DatabaseURL, cfg.Store.CacheDir)
	defer store.Close()

	// Config endpoints
	configHandler := config.NewHandler(cfg)
	http.HandleFunc("/api/config", configHandler.HandleConfig)

	// Valuation endpoints
	valuationHandler := valuation.NewHandler(cfg, repo)
	http.HandleFunc("/api/valuation/dcf", valuationHandler.HandleDCF)
	http.HandleFunc("/api/valuation/sensitivity", valuationHandler.HandleSensitivity)
	http.HandleFunc("/api/valuation/runs", valuationHandler.HandleRuns)

	addr := ":" + cfg.API.Port
	fmt.Printf("API server starting on %s...\n", addr)
	fmt.Println("  - GET  /api/config")
	fmt.Println("  - POST /api/valuation/dcf")
	fmt.Println("  - POST /api/valuation/sensitivity")
	fmt.Println("  - GET  /api/valuation/runs?ticker=")

	if err := http.ListenAndServe(addr, nil); err != nil {
		fmt.Printf("[FATAL] Server failed to start: %v\n", err)
		os.Exit(1)
	}
}
