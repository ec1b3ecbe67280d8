package main

import (
	"fmt"
	"log"

	"go.uber.org/zap"

	"github.com/blendwise/backend/config"
	httpDelivery "github.com/blendwise/backend/internal/delivery/http"
	"github.com/blendwise/backend/internal/infrastructure/openai"
	"github.com/blendwise/backend/internal/infrastructure/pinecone"
	"github.com/blendwise/backend/internal/logger"
	"github.com/blendwise/backend/internal/ratelimit"
	"github.com/blendwise/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog := logger.New(cfg.Log.Level, cfg.Log.Format)
	defer zlog.Sync()

	zlog.Info("Starting BlendWise Backend v1.0.0",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port))

	// Initialize infrastructure dependencies
	openaiClient := openai.NewClient(
		cfg.OpenAI.APIKey,
		cfg.OpenAI.BaseURL,
		cfg.OpenAI.EmbeddingModel,
		cfg.OpenAI.ChatModel,
		cfg.OpenAI.Timeout,
		zlog,
	)
	pineconeClient := pinecone.NewClient(
		cfg.Pinecone.APIKey,
		cfg.Pinecone.IndexHost,
		cfg.Pinecone.RerankBaseURL,
		cfg.Pinecone.RerankModel,
		cfg.Pinecone.Timeout,
		zlog,
	)

	zlog.Info("Upstream clients configured",
		zap.String("embeddingModel", cfg.OpenAI.EmbeddingModel),
		zap.String("chatModel", cfg.OpenAI.ChatModel),
		zap.String("rerankModel", cfg.Pinecone.RerankModel),
		zap.String("indexHost", cfg.Pinecone.IndexHost))

	// Static ingredient catalog for customization rules
	ingredients, err := usecase.NewIngredientIndex(cfg.Catalog.IngredientsFile, zlog)
	if err != nil {
		zlog.Fatal("Failed to load ingredient catalog",
			zap.String("file", cfg.Catalog.IngredientsFile),
			zap.Error(err))
	}
	zlog.Info("Ingredient catalog loaded", zap.Int("ingredients", ingredients.Size()))

	// Initialize usecase layer
	rules := usecase.NewRuleEngine(usecase.DefaultRules(), ingredients, zlog)
	composer := usecase.NewComposer(openaiClient)
	resolver := usecase.NewResolver(
		openaiClient,
		pineconeClient,
		pineconeClient,
		rules,
		composer,
		usecase.ResolverConfig{EmbeddingDimensions: cfg.OpenAI.EmbeddingDimensions},
		zlog,
	)

	// Per-client admission control
	limiter := ratelimit.New(
		cfg.RateLimit.Limit,
		cfg.RateLimit.Window,
		ratelimit.WithSweepThreshold(cfg.RateLimit.SweepThreshold),
	)
	zlog.Info("Rate limit configured",
		zap.Int("limit", cfg.RateLimit.Limit),
		zap.Duration("window", cfg.RateLimit.Window))

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(resolver, zlog)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler, limiter)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	zlog.Info("Server listening", zap.String("addr", addr))

	if err := router.Run(addr); err != nil {
		zlog.Fatal("Failed to start server", zap.Error(err))
	}
}
