package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-commerce/config"
	"chat-commerce/internal/api"
	"chat-commerce/internal/broker"
	"chat-commerce/internal/redisclient"
	"chat-commerce/internal/service"
	"chat-commerce/internal/store"
	"chat-commerce/internal/util"
	"chat-commerce/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting chat commerce service")

	tp, err := util.InitTracer("chat-commerce", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	catalogCache := service.NewCatalogCache(db, redisClient, time.Duration(cfg.Business.CatalogTTLSeconds)*time.Second)
	availability := service.NewAvailabilityChecker(db)
	cartBuilder := service.NewCartBuilder(catalogCache, availability)
	ledgerClient := service.NewLedgerClient(db)

	fulfillmentService := service.NewFulfillmentService(
		db, db, db, ledgerClient, catalogCache, eventPublisher,
		cfg.Business.OrderNumberPrefix,
	)
	inventoryService := service.NewInventoryService(db, catalogCache, eventPublisher)

	chatService := service.NewChatService(
		db,
		db,
		cartBuilder,
		catalogCache,
		service.NewPatternOrderParser(),
		service.NewPatternInterpreter(),
		fulfillmentService,
		redisClient,
		time.Duration(cfg.Business.SessionIdleMinutes)*time.Minute,
		time.Duration(cfg.Business.SessionLockSeconds)*time.Second,
		cfg.Business.StoreName,
	)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	actionConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicActions, cfg.Kafka.ConsumerGroup)
	actionWorker := worker.NewOrderActionWorker(actionConsumer, fulfillmentService)
	go func() {
		if err := actionWorker.Start(workerCtx); err != nil {
			log.Printf("Order action worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(chatService, fulfillmentService, inventoryService, catalogCache)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	if err := actionWorker.Stop(); err != nil {
		log.Printf("Worker shutdown error: %v", err)
	}

	log.Println("Server exited")
}
