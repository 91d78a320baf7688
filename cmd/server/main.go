// Package main boots the ensemble HTTP service and wires application
// dependencies.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/genai"

	"github.com/easeaico/ensemble/internal/chat"
	"github.com/easeaico/ensemble/internal/config"
	"github.com/easeaico/ensemble/internal/httpapi"
	"github.com/easeaico/ensemble/internal/intent"
	"github.com/easeaico/ensemble/internal/memory"
	"github.com/easeaico/ensemble/internal/models"
	"github.com/easeaico/ensemble/internal/orchestrator"
	"github.com/easeaico/ensemble/internal/profile"
	"github.com/easeaico/ensemble/internal/prompt"
	"github.com/easeaico/ensemble/internal/selector"
	"github.com/easeaico/ensemble/internal/storage"
)

// Autonomous turns look at a shorter history window than group replies.
const turnHistoryWindow = 4

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	slog.Info("configuration loaded",
		"provider", cfg.LLMProvider,
		"chat_model", cfg.LLMModel,
		"opinion_model", cfg.OpinionModel,
		"listen_addr", cfg.ListenAddr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer store.Close()

	clientConfig := &genai.ClientConfig{APIKey: cfg.XAIAPIKey}

	llm, err := models.NewLLM(ctx, cfg.LLMProvider, cfg.LLMModel, clientConfig)
	if err != nil {
		log.Fatalf("failed to create chat model: %v", err)
	}
	generator := models.NewTextGenerator(llm)

	opinionLLM := llm
	if cfg.OpinionModel != cfg.LLMModel {
		opinionLLM, err = models.NewLLM(ctx, cfg.LLMProvider, cfg.OpinionModel, clientConfig)
		if err != nil {
			log.Fatalf("failed to create opinion model: %v", err)
		}
	}
	opinions, err := intent.NewOpinionAgent(opinionLLM)
	if err != nil {
		log.Fatalf("failed to create opinion agent: %v", err)
	}

	var profileOpts []profile.Option
	var embedder chat.Embedder
	var recall chat.Recaller
	if cfg.GoogleAPIKey != "" {
		emb, err := memory.NewEmbedder(ctx, cfg.GoogleAPIKey, cfg.EmbeddingModel)
		if err != nil {
			log.Fatalf("failed to create embedder: %v", err)
		}
		embedder = emb
		recall = memory.NewRecall(emb, store.History, cfg.RecallTopK, cfg.RecallMinScore)

		images, err := models.NewGeminiImageGenerator(ctx, cfg.GoogleAPIKey, cfg.ImageModel, "1:1")
		if err != nil {
			slog.Warn("image generator unavailable, avatars fall back to dicebear", "error", err)
		} else {
			profileOpts = append(profileOpts, profile.WithImageGenerator(images))
		}
	} else {
		slog.Warn("GOOGLE_API_KEY not set, semantic recall and avatar generation disabled")
	}

	profiles, err := profile.NewGenerator(llm, profileOpts...)
	if err != nil {
		log.Fatalf("failed to create profile generator: %v", err)
	}

	analyzer := intent.NewAnalyzer()
	engine := orchestrator.NewEngine(generator, prompt.NewBuilder(turnHistoryWindow))

	svc := chat.NewService(chat.Config{
		Characters:   store.Characters,
		Groups:       store.Groups,
		History:      store.History,
		Profiles:     profiles,
		Generator:    generator,
		Engine:       engine,
		Policy:       selector.NewPriorityPolicy(analyzer, opinions),
		Analyzer:     analyzer,
		Prompts:      prompt.NewBuilder(0),
		Embedder:     embedder,
		Recall:       recall,
		HistoryLimit: cfg.HistoryLimit,
	})

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: httpapi.NewRouter(svc),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}
}
