package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/vitatrack/activity-engine/internal/adapters/cache"
	adapterHTTP "github.com/vitatrack/activity-engine/internal/adapters/handler/http"
	"github.com/vitatrack/activity-engine/internal/adapters/repository"
	"github.com/vitatrack/activity-engine/internal/core/domain"
	"github.com/vitatrack/activity-engine/internal/core/services"
	"github.com/vitatrack/activity-engine/internal/core/workers"
)

func main() {
	startTime := time.Now()

	dbUser := os.Getenv("DB_USER")
	dbPass := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")

	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		dbHost = "localhost"
	}

	dbPort := os.Getenv("DB_PORT")
	if dbPort == "" {
		dbPort = "5432"
	}

	serverPort := os.Getenv("PORT")
	if serverPort == "" {
		serverPort = "8080"
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("Critical: JWT_SECRET is required")
	}

	jwtIssuer := os.Getenv("JWT_ISSUER")
	if jwtIssuer == "" {
		jwtIssuer = "vitatrack"
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		dbUser, dbPass, dbHost, dbPort, dbName)

	log.Println("Connecting to database...")

	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		log.Fatalf("Critical: Failed to connect to database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	log.Println("Database connected successfully.")

	sessionRepo := repository.NewPostgresSessionRepository(db)
	goalsRepo := repository.NewPostgresGoalsRepository(db)

	var summaryRepo domain.SummaryRepository = repository.NewPostgresSummaryRepository(db)

	redisClient := connectRedis()
	if redisClient != nil {
		summaryRepo = repository.NewCachedSummaryRepository(summaryRepo, redisClient)
	}

	txManager := repository.NewTxManager(db)

	streakService := services.NewStreakService(goalsRepo, txManager)
	aggregationService := services.NewAggregationService(sessionRepo, summaryRepo, goalsRepo, streakService)
	sessionService := services.NewSessionService(sessionRepo, goalsRepo, aggregationService, txManager)
	goalsService := services.NewGoalsService(goalsRepo)
	rollupService := services.NewRollupService(summaryRepo, goalsRepo)
	tokenService := services.NewTokenService(jwtSecret, jwtIssuer, 24*time.Hour)

	rebuildWorker := workers.NewRebuildWorker(sessionRepo, aggregationService, txManager)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	rebuildWorker.Start(workerCtx)

	router := adapterHTTP.NewRouter(adapterHTTP.RouterDependencies{
		SessionHandler: adapterHTTP.NewSessionHandler(sessionService),
		SummaryHandler: adapterHTTP.NewSummaryHandler(rollupService, rebuildWorker),
		GoalsHandler:   adapterHTTP.NewGoalsHandler(goalsService),
		TokenService:   tokenService,
		DB:             db,
		Redis:          redisClient,
		StartTime:      startTime,
	})

	srv := &http.Server{
		Addr:         ":" + serverPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("VitaTrack Activity Engine running on http://localhost:%s", serverPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Critical server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Stop signal received. Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Forced shutdown error:", err)
	}

	log.Println("Server stopped gracefully.")
}

// connectRedis is best effort. The engine runs without a cache, it just
// serves every summary read from Postgres.
func connectRedis() *redis.Client {
	redisHost := os.Getenv("REDIS_HOST")
	if redisHost == "" {
		log.Println("REDIS_HOST not set, running without cache and rate limiting.")
		return nil
	}

	redisPort := os.Getenv("REDIS_PORT")
	if redisPort == "" {
		redisPort = "6379"
	}

	redisDB := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		parsed, err := strconv.Atoi(dbStr)
		if err != nil {
			log.Fatalf("Critical: invalid REDIS_DB value %q", dbStr)
		}
		redisDB = parsed
	}

	client, err := cache.NewRedisClient(redisHost+":"+redisPort, os.Getenv("REDIS_PASSWORD"), redisDB)
	if err != nil {
		log.Printf("Redis unavailable, continuing without cache: %v", err)
		return nil
	}

	log.Println("Redis connected successfully.")
	return client
}
