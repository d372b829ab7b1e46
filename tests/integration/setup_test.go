// Package integration contains integration tests for the trading engine server.
//
// These tests verify the correct interaction between components:
// - API integration tests: full HTTP request cycle
// - WebSocket tests: connection, broadcast messaging
//
// Tests require a running PostgreSQL instance and skip themselves when
// the database is unreachable.
// Run with: go test ./tests/integration/...
package integration

import (
	"database/sql"
	"fmt"
	"log"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"orion-brain/internal/api"
	"orion-brain/internal/repository"
	"orion-brain/internal/websocket"
	"orion-brain/pkg/utils"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
)

// TestConfig contains configuration for integration tests
type TestConfig struct {
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string
}

// TestServer encapsulates all components needed for integration testing
type TestServer struct {
	DB      *sql.DB
	Router  *mux.Router
	Server  *httptest.Server
	Hub     *websocket.Hub
	Repos   *TestRepositories
	Cleanup func()
}

// TestRepositories contains all repository instances for testing
type TestRepositories struct {
	Candle       *repository.CandleRepository
	Position     *repository.PositionRepository
	Signal       *repository.SignalRepository
	Notification *repository.NotificationRepository
}

// getTestConfig returns configuration from environment variables or defaults
func getTestConfig() TestConfig {
	return TestConfig{
		DBHost:     getEnv("TEST_DB_HOST", "localhost"),
		DBPort:     getEnv("TEST_DB_PORT", "5432"),
		DBName:     getEnv("TEST_DB_NAME", "orion_test"),
		DBUser:     getEnv("TEST_DB_USER", "postgres"),
		DBPassword: getEnv("TEST_DB_PASSWORD", "postgres"),
		DBSSLMode:  getEnv("TEST_DB_SSLMODE", "disable"),
	}
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// SetupTestDB creates a test database connection
func SetupTestDB(t *testing.T) (*sql.DB, func()) {
	config := getTestConfig()

	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		config.DBHost, config.DBPort, config.DBUser, config.DBPassword, config.DBName, config.DBSSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Skipf("Skipping integration test: cannot connect to database: %v", err)
		return nil, func() {}
	}

	if err := db.Ping(); err != nil {
		t.Skipf("Skipping integration test: cannot ping database: %v", err)
		return nil, func() {}
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	cleanup := func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}

	return db, cleanup
}

// cleanTables removes all rows so each test starts from an empty state
func cleanTables(db *sql.DB) error {
	tables := []string{"notifications", "signals", "positions", "pair_counters", "candle_state", "candles"}
	for _, table := range tables {
		if _, err := db.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clean %s: %w", table, err)
		}
	}
	return nil
}

// SetupTestServer creates a complete test server with all components
func SetupTestServer(t *testing.T) *TestServer {
	db, dbCleanup := SetupTestDB(t)
	if db == nil {
		return nil
	}

	if err := repository.InitSchema(db); err != nil {
		t.Skipf("Skipping integration test: cannot initialize schema: %v", err)
		return nil
	}
	if err := cleanTables(db); err != nil {
		t.Fatalf("failed to clean tables: %v", err)
	}

	logger := utils.InitLogger(utils.LogConfig{Level: "error", Format: "json"})

	hub := websocket.NewHub(logger)
	go hub.Run()

	repos := &TestRepositories{
		Candle:       repository.NewCandleRepository(db),
		Position:     repository.NewPositionRepository(db),
		Signal:       repository.NewSignalRepository(db),
		Notification: repository.NewNotificationRepository(db),
	}

	// The run trigger needs live market data and a strategy service,
	// so the /run route stays unwired here. Read-only API plus the
	// WebSocket stream cover the HTTP surface under test.
	deps := &api.Dependencies{
		Positions:     repos.Position,
		Notifications: repos.Notification,
		Hub:           hub,
		DB:            db,
	}
	router := api.SetupRoutes(deps)
	server := httptest.NewServer(router)

	return &TestServer{
		DB:     db,
		Router: router,
		Server: server,
		Hub:    hub,
		Repos:  repos,
		Cleanup: func() {
			server.Close()
			dbCleanup()
		},
	}
}
