package main

import (
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/hojinjeong/escaperace/catalog"
	"github.com/hojinjeong/escaperace/cliparse"
	"github.com/hojinjeong/escaperace/db"
	"github.com/hojinjeong/escaperace/middleware"
	"github.com/hojinjeong/escaperace/router"
)

func main() {
	// .env is optional; deployments set the environment directly
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded .env file")
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	// Connect to the database (sqlite by default, postgres for deployments)
	dbConn, err := db.Open(cfg)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Verify connection
	if err := dbConn.Ping(); err != nil {
		slog.Error("database ping failed", "error", err)
		os.Exit(1)
	}

	// Create schema (tables)
	if err := db.CreateSchema(dbConn); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready")

	// Load the stage catalog
	var cat *catalog.Catalog
	if cfg.CatalogPath != "" {
		cat, err = catalog.Load(cfg.CatalogPath)
		if err != nil {
			slog.Error("catalog load failed", "path", cfg.CatalogPath, "error", err)
			os.Exit(1)
		}
		slog.Info("Stage catalog loaded", "path", cfg.CatalogPath, "stages", len(cat.Stages()))
	} else {
		cat = catalog.Builtin()
		slog.Info("Using built-in stage catalog", "stages", len(cat.Stages()))
	}

	// Create router
	mux := router.NewRouter(dbConn, cat, cfg)

	// Create server. The game frontend is served from a different origin
	// during events, so the whole API goes through CORS.
	server := http.Server{
		Handler: middleware.CORS(mux),
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
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
