package main

import (
	"log"
	"net/http"
	"os"
	"runtime"

	"videoRecipe/config"
	"videoRecipe/core"
	"videoRecipe/processors"
	"videoRecipe/storage"
)

func main() {
	if err := os.MkdirAll(core.DataRoot(), 0755); err != nil {
		log.Fatalf("failed to create data dir: %v", err)
	}

	if err := storage.InitRecipeStore(); err != nil {
		log.Fatalf("failed to init recipe store: %v", err)
	}
	log.Printf("Recipe store initialized: %s", storeBackend())

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("Warning: config load failed (%v), running with defaults", err)
	} else if !cfg.HasValidAPI() {
		config.PrintConfigInstructions()
		log.Printf("No API key configured, mock providers will be used")
	}

	// Routes
	http.HandleFunc("/preprocess", processors.PreprocessHandler)
	http.HandleFunc("/analyze-video", processors.AnalyzeVideoHandler)
	http.HandleFunc("/generate-recipe", processors.GenerateRecipeHandler)
	http.HandleFunc("/store", storage.StoreHandler)
	http.HandleFunc("/query", storage.QueryHandler)
	http.HandleFunc("/health", healthHandler)

	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}
	log.Printf("Server listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, nil))
}

func storeBackend() string {
	if v := os.Getenv("STORE"); v != "" {
		return v
	}
	return "memory"
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	core.WriteJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"store":      storeBackend(),
		"goroutines": runtime.NumGoroutine(),
		"data_root":  core.DataRoot(),
	})
}
