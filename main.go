package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/plansync/plansync/actions"
	"github.com/plansync/plansync/cliparse"
	"github.com/plansync/plansync/middleware"
	"github.com/plansync/plansync/realtime"
	"github.com/plansync/plansync/router"
	"github.com/plansync/plansync/store/sqlstore"
	"github.com/plansync/plansync/view"
)

func main() {
	// Load .env if present
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment")
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	// Open the database
	dbConn, dialect, err := sqlstore.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database open failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Verify connection
	if err := dbConn.Ping(); err != nil {
		slog.Error("database ping failed", "error", err)
		os.Exit(1)
	}

	// Create schema (tables)
	if err := sqlstore.CreateSchema(dbConn); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	st := sqlstore.New(dbConn, dialect)

	// One hub per process, injected into the router; stopped via context.
	hub := realtime.NewHub(actions.New(st), view.NewAggregator(st))
	hubCtx, stopHub := context.WithCancel(context.Background())
	go func() {
		_ = hub.Run(hubCtx)
	}()

	// Create router
	mux := router.NewRouter(st, hub, cfg)

	// Create server
	server := http.Server{
		Handler: middleware.CORS(cfg.AllowedOrigin, mux),
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		stopHub()
		server.Close()
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}
}
