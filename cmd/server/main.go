// Package main starts the document question answering server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docbrain-go/internal/agent"
	"docbrain-go/internal/chunker"
	"docbrain-go/internal/config"
	"docbrain-go/internal/handler"
	"docbrain-go/internal/personality"
	"docbrain-go/internal/pipeline"
	"docbrain-go/internal/repository"
	"docbrain-go/internal/service"
	"docbrain-go/internal/vectorstore"
	"docbrain-go/pkg/database"
	"docbrain-go/pkg/embedding"
	"docbrain-go/pkg/kafka"
	"docbrain-go/pkg/llm"
	"docbrain-go/pkg/log"
	"docbrain-go/pkg/storage"
	"docbrain-go/pkg/tika"
	"docbrain-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "path to the YAML configuration")
	flag.Parse()

	// 1. configuration and logging
	config.Init(*configPath)
	cfg := config.Conf

	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("logger initialized")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. storage; every backend is optional
	documentRepo := openDocumentRepository(cfg.Database)
	rdb := openRedis(ctx, cfg.Database.Redis)
	var conversationRepo repository.ConversationRepository
	if rdb != nil {
		defer rdb.Close()
		conversationRepo = repository.NewConversationRepository(rdb)
	}
	objects := openObjectStore(ctx, cfg.MinIO)

	var tikaClient *tika.Client
	if cfg.Tika.ServerURL != "" {
		tikaClient = tika.NewClient(cfg.Tika)
	} else {
		log.Info("no Tika server configured, only .txt and .md files can be ingested")
	}
	extractor := tika.NewExtractor(tikaClient)

	// 3. ingestion pipeline
	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		log.Fatal("creating embedder failed", err)
	}
	if embedder.Dimensions() != cfg.VectorStore.Dimensions {
		log.Warnf("embedder %s produces %d dimensions, vector_store.dimensions is %d; using %d",
			embedder.Name(), embedder.Dimensions(), cfg.VectorStore.Dimensions, embedder.Dimensions())
	}
	store := vectorstore.Open(ctx, cfg, embedder.Dimensions())

	ch, err := chunker.New(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		log.Fatal("invalid chunking config", err)
	}
	processor := pipeline.NewProcessor(ch, embedder, store, extractor, objects, documentRepo)

	// 4. answer pipeline
	registry := personality.MustNewRegistry()
	if cfg.Agent.PersonalitiesFile != "" {
		if err := registry.LoadFile(cfg.Agent.PersonalitiesFile); err != nil {
			log.Warnf("loading personalities from %s failed: %v", cfg.Agent.PersonalitiesFile, err)
		}
	}
	llmClient := llm.NewClient(cfg.LLM)
	answerAgent := agent.New(llmClient, registry, agent.Options{
		Model:              llmClient.Model(),
		Provider:           llmClient.Provider(),
		Personality:        cfg.Agent.Personality,
		CustomInstructions: cfg.Agent.CustomInstructions,
	})
	if cfg.Agent.PersonalitiesFile != "" {
		if err := registry.Watch(ctx, cfg.Agent.PersonalitiesFile, answerAgent.RefreshPersonality); err != nil {
			log.Warnf("watching %s failed: %v", cfg.Agent.PersonalitiesFile, err)
		}
	}

	// 5. rebuild tasks go through Kafka when brokers are configured
	var publisher service.TaskPublisher
	if cfg.Kafka.Brokers != "" {
		producer := kafka.NewProducer(cfg.Kafka)
		defer producer.Close()
		publisher = producer
		go kafka.NewConsumer(cfg.Kafka, processor, rdb).Run(ctx)
	}

	// 6. services
	var jwtManager *token.JWTManager
	if cfg.Auth.JWTSecret != "" {
		jwtManager = token.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpireHours)
	}
	maxUploadBytes := cfg.Server.MaxUploadMB << 20
	searchService := service.NewSearchService(embedder, store, cfg.VectorStore.TopK)
	answerAgent.SetSearcher(searchService)
	conversationService := service.NewConversationService(conversationRepo)
	documentService := service.NewDocumentService(processor, extractor, store, objects, documentRepo, publisher, maxUploadBytes)
	services := handler.Services{
		Documents:     documentService,
		Chat:          service.NewChatService(searchService, answerAgent, conversationService, cfg.VectorStore.TopK),
		Search:        searchService,
		Personalities: service.NewPersonalityService(registry, answerAgent),
		Conversations: conversationService,
		Auth:          service.NewAuthService(cfg.Auth, jwtManager),
	}

	go warmUp(ctx, documentService, store, cfg.Server.SeedDirectory)

	// 7. HTTP
	gin.SetMode(cfg.Server.Mode)
	r := handler.NewRouter(services, handler.RouterOptions{
		JWTManager:     jwtManager,
		MaxUploadBytes: maxUploadBytes,
		ChatPerSecond:  cfg.RateLimit.ChatPerSecond,
		ChatBurst:      cfg.RateLimit.ChatBurst,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}
	go func() {
		log.Infof("server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %s", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("HTTP server shutdown failed: %v", err)
	}
	log.Info("server stopped")
}

func openDocumentRepository(cfg config.DatabaseConfig) repository.DocumentRepository {
	if cfg.Driver == "" {
		log.Info("no database configured, document records are kept in memory")
		return repository.NewMemoryDocumentRepository()
	}
	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("opening database failed", err)
	}
	return repository.NewDocumentRepository(db)
}

func openRedis(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	if cfg.Addr == "" {
		log.Info("no Redis configured, conversation history is disabled")
		return nil
	}
	rdb, err := database.OpenRedis(ctx, cfg)
	if err != nil {
		log.Warnf("Redis unavailable, conversation history is disabled: %v", err)
		return nil
	}
	return rdb
}

func openObjectStore(ctx context.Context, cfg config.MinIOConfig) storage.ObjectStore {
	if cfg.Endpoint == "" {
		log.Info("no MinIO configured, uploaded files are kept in memory")
		return storage.NewMemoryStore()
	}
	store, err := storage.NewMinioStore(ctx, cfg)
	if err != nil {
		log.Warnf("MinIO unavailable, uploaded files are kept in memory: %v", err)
		return storage.NewMemoryStore()
	}
	return store
}

// warmUp re-indexes persisted documents when the index starts empty and then
// imports the seed directory.
func warmUp(ctx context.Context, documents service.DocumentService, store vectorstore.Store, seedDir string) {
	if _, ok := store.(*vectorstore.MemoryStore); ok {
		existing, err := documents.List(ctx)
		if err == nil && len(existing) > 0 {
			log.Infof("re-indexing %d stored documents into the in-memory index", len(existing))
			if _, err := documents.Rebuild(ctx); err != nil {
				log.Warnf("startup re-index failed: %v", err)
			}
		}
	}

	if seedDir == "" {
		return
	}
	if info, err := os.Stat(seedDir); err != nil || !info.IsDir() {
		log.Infof("seed directory '%s' not available, skipping", seedDir)
		return
	}
	outcomes, err := documents.IngestDirectory(ctx, seedDir)
	if err != nil {
		log.Warnf("seeding from %s failed: %v", seedDir, err)
		return
	}
	for _, o := range outcomes {
		if !o.Success {
			log.Warnf("seed file %s not ingested: %s", o.FileName, o.Error)
		}
	}
}
