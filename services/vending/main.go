package main

import (
	"bytes"
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/matheusmosca/vending-machine/vending"
)

//go:embed stock.csv
var defaultStock []byte

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	serviceName := getEnv("SERVICE_NAME", "vending-service")
	otelEnabled := getEnvBool("OTEL_ENABLED", true)

	if otelEnabled {
		shutdown, err := initTelemetry(context.Background(), serviceName)
		if err != nil {
			logger.Fatal("Failed to initialize telemetry", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				logger.Error("Error shutting down telemetry", zap.Error(err))
			}
		}()
	}

	inventory, err := loadInventory(getEnv("VENDING_STOCK_FILE", ""), getEnvInt("VENDING_SLOT_CAPACITY", vending.DefaultSlotCapacity))
	if err != nil {
		logger.Fatal("Failed to load stock", zap.Error(err))
	}

	policy, err := vending.ParseAbandonPolicy(getEnv("VENDING_ABANDON_POLICY", string(vending.RetainOnAbandon)))
	if err != nil {
		logger.Fatal("Invalid abandon policy", zap.Error(err))
	}

	journal, closeJournal, err := initJournal(logger)
	if err != nil {
		logger.Fatal("Failed to initialize journal", zap.Error(err))
	}
	defer closeJournal()

	// Initialize dependencies
	machine := vending.NewMachine(inventory, vending.WithAbandonPolicy(policy))
	useCase := NewVendingUseCase(machine, journal, initDisplay(logger), logger)
	handler := NewVendingHandler(useCase, otel.Tracer(serviceName))
	r := setupRouter(handler, serviceName)

	port := getEnv("PORT", "8080")
	logger.Info("Vending Service listening",
		zap.String("port", port),
		zap.Int("slots", inventory.Len()),
		zap.String("abandon_policy", string(policy)))

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}

func setupRouter(handler *VendingHandler, serviceName string) *gin.Engine {
	r := gin.Default()
	r.Use(otelgin.Middleware(serviceName))

	r.GET("/health", handler.HealthCheck)
	r.GET("/api/products", handler.ListProducts)

	sessions := r.Group("/api/sessions")
	sessions.POST("", handler.OpenSession)
	sessions.GET("/:id", handler.GetSession)
	sessions.POST("/:id/deposit", handler.Deposit)
	sessions.POST("/:id/select", handler.SelectProduct)
	sessions.POST("/:id/finish", handler.Finish)
	sessions.POST("/:id/abandon", handler.Abandon)

	return r
}

func loadInventory(path string, capacity int) (*vending.Inventory, error) {
	var src io.Reader = bytes.NewReader(defaultStock)
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open stock file: %w", err)
		}
		defer f.Close()
		src = f
	}

	return vending.LoadInventory(src, capacity)
}

func initDisplay(logger *zap.Logger) DisplaySink {
	url := getEnv("VENDING_DISPLAY_URL", "")
	if url == "" {
		return NewLogDisplay(logger)
	}

	timeout := time.Duration(getEnvInt("VENDING_DISPLAY_TIMEOUT_MS", 2000)) * time.Millisecond
	return NewHTTPDisplay(url, timeout, getEnvInt("VENDING_DISPLAY_RETRIES", 2))
}

// initJournal escolhe o driver do journal: pgx (pool), postgres (lib/pq) ou none
func initJournal(logger *zap.Logger) (JournalRepository, func(), error) {
	var (
		journal JournalRepository
		closeFn func()
	)

	switch driver := getEnv("JOURNAL_DRIVER", "none"); driver {
	case "none":
		return nopJournalRepository{}, func() {}, nil
	case "pgx":
		pool, err := initDB(logger)
		if err != nil {
			return nil, nil, err
		}
		journal, closeFn = NewPostgresJournalRepository(pool), pool.Close
	case "postgres":
		db, err := initSQLDB(logger)
		if err != nil {
			return nil, nil, err
		}
		journal, closeFn = NewSQLJournalRepository(db), func() { _ = db.Close() }
	default:
		return nil, nil, fmt.Errorf("unknown JOURNAL_DRIVER %q", driver)
	}

	if err := journal.EnsureSchema(context.Background()); err != nil {
		closeFn()
		return nil, nil, err
	}
	return journal, closeFn, nil
}

func initDB(logger *zap.Logger) (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable&pool_max_conns=10&pool_min_conns=2",
		getEnv("DATABASE_USER", "root"),
		getEnv("DATABASE_PASSWORD", "pass"),
		getEnv("DATABASE_HOST", "localhost"),
		getEnv("DATABASE_PORT", "5432"),
		getEnv("DATABASE_NAME", "vending_db"),
	)

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// Configure connection pool
	config.MaxConns = 10
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Wait for database to be ready
	for i := 0; i < 30; i++ {
		if err := pool.Ping(ctx); err == nil {
			logger.Info("Connected to journal database with connection pool")
			return pool, nil
		}
		logger.Info("Waiting for database...", zap.Int("attempt", i+1))
		time.Sleep(1 * time.Second)
	}

	pool.Close()
	return nil, fmt.Errorf("failed to connect to database after 30 attempts")
}

func initSQLDB(logger *zap.Logger) (*sql.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		getEnv("DATABASE_HOST", "localhost"),
		getEnv("DATABASE_PORT", "5432"),
		getEnv("DATABASE_USER", "root"),
		getEnv("DATABASE_PASSWORD", "pass"),
		getEnv("DATABASE_NAME", "vending_db"),
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	for i := 0; i < 30; i++ {
		if err := db.Ping(); err == nil {
			logger.Info("Connected to journal database (database/sql)")
			return db, nil
		}
		logger.Info("Waiting for database...", zap.Int("attempt", i+1))
		time.Sleep(1 * time.Second)
	}

	db.Close()
	return nil, fmt.Errorf("failed to connect to database after 30 attempts")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return defaultValue
}
