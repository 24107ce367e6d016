package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"planora/internal/agent"
	"planora/internal/api"
	"planora/internal/auth"
	"planora/internal/config"
	"planora/internal/planner"
	"planora/internal/redis"
	"planora/internal/service/ai"
	"planora/internal/storage"
	"planora/internal/worker"
)

func main() {
	cfgPath := os.Getenv("PLANORA_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	dbType := os.Getenv("PLANORA_DB")
	if dbType == "" {
		dbType = "sqlite3"
	}
	log.Printf("dbType: %s\n", dbType)
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	// Create necessary tables: users, venues, events, chats, ...
	if err := storage.Migrate(db, dbType); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb, err = redis.NewClient(cfg)
		if err != nil {
			log.Fatalf("create redis client: %v", err)
		}
		defer rdb.Close()
	}

	plannerService := planner.NewService(db, dbType)
	authService := auth.NewService(db, rdb, 24*time.Hour)

	provider := cfg.BasicConfig.DefaultProvider
	if provider == "" {
		provider = "openai"
	}
	aiService, err := ai.NewService(cfg, provider)
	if err != nil {
		log.Fatalf("init ai service: %v", err)
	}

	cacheTTL := time.Duration(cfg.BasicConfig.AgentCacheTTLMinutes) * time.Minute
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	pool := worker.NewPool(cfg.BasicConfig.StreamWorkers, cfg.BasicConfig.StreamQueueSize)
	defer pool.Close()

	orchestrator := &agent.Orchestrator{
		Resolver: agent.NewResolver(plannerService),
		Builder:  agent.NewBuilder(plannerService),
		Registry: agent.NewRegistry(plannerService),
		Cache:    agent.NewPromptCache(cacheTTL),
		Store:    plannerService,
		Model:    aiService,
		Pool:     pool,
	}

	handlers := api.NewHandler(plannerService, authService, orchestrator)

	router := gin.Default()
	handlers.RegisterRoutes(router)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":8090"
	}

	if err := router.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
