package main

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"workforce-decision/backend/internal/ai"
	"workforce-decision/backend/internal/api"
)

func main() {
	baseDir, err := os.Getwd()
	if err != nil {
		logrus.Fatalf("determine working directory: %v", err)
	}

	dataDir := filepath.Join(baseDir, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		logrus.Fatalf("create data directory: %v", err)
	}

	aiCfg := ai.Config{
		APIKey:  os.Getenv("OPENAI_API_KEY"),
		Model:   os.Getenv("OPENAI_MODEL"),
		BaseURL: os.Getenv("OPENAI_BASE_URL"),
	}
	if temp := os.Getenv("OPENAI_TEMPERATURE"); temp != "" {
		if v, err := strconv.ParseFloat(temp, 64); err == nil {
			aiCfg.Temperature = v
		}
	}
	if maxTokens := os.Getenv("OPENAI_MAX_TOKENS"); maxTokens != "" {
		if v, err := strconv.Atoi(maxTokens); err == nil {
			aiCfg.MaxTokens = v
		}
	}

	geminiCfg := ai.GeminiConfig{
		APIKey:  os.Getenv("GEMINI_API_KEY"),
		Model:   os.Getenv("GEMINI_MODEL"),
		BaseURL: os.Getenv("GEMINI_BASE_URL"),
	}

	maxAttempts := ai.DefaultMaxAttempts
	if v := strings.TrimSpace(os.Getenv("REASONING_MAX_ATTEMPTS")); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			maxAttempts = val
		}
	}

	disableAI := strings.EqualFold(strings.TrimSpace(os.Getenv("DISABLE_AI")), "true")

	cfg := api.Config{
		DBPath: filepath.Join(dataDir, "workforce-decision.db"),
		AllowedOrigins: []string{
			"http://localhost:1000",
			"http://127.0.0.1:1000",
		},
		AIConfig:     aiCfg,
		GeminiConfig: geminiCfg,
		DisableAI:    disableAI,
		MaxAttempts:  maxAttempts,
	}

	if override := strings.TrimSpace(os.Getenv("WORKFORCE_DECISION_DB_PATH")); override != "" {
		cfg.DBPath = override
	}
	if origins := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); origins != "" {
		cfg.AllowedOrigins = nil
		for _, origin := range strings.Split(origins, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
			}
		}
	}

	server, err := api.NewServer(cfg)
	if err != nil {
		logrus.Fatalf("create server: %v", err)
	}

	router, err := server.Router()
	if err != nil {
		logrus.Fatalf("configure router: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "2000"
	}

	logrus.Infof("starting workforce-decision backend on :%s", port)
	if err := router.Run(":" + port); err != nil {
		logrus.Fatalf("server exited: %v", err)
	}
}
