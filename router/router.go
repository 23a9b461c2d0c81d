package router

import (
	"database/sql"
	"net/http"

	"github.com/hojinjeong/escaperace/catalog"
	"github.com/hojinjeong/escaperace/cliparse"
	"github.com/hojinjeong/escaperace/handlers"
	"github.com/hojinjeong/escaperace/middleware"
)

func NewRouter(db *sql.DB, cat *catalog.Catalog, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	progressionHandler := handlers.NewProgressionHandler(db, cat, cfg)
	voteHandler := handlers.NewVoteHandler(db, cat, cfg)
	playerHandler := handlers.NewPlayerHandler(db, cfg)
	adminHandler := handlers.NewAdminHandler(db, cat, cfg)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Session and stage progression
	mux.HandleFunc("POST /api/session", middleware.WithLogging(progressionHandler.NewSession))
	mux.HandleFunc("GET /api/problem", middleware.WithLogging(progressionHandler.GetProblem))
	mux.HandleFunc("POST /api/answer", middleware.WithLogging(progressionHandler.SubmitAnswer))
	mux.HandleFunc("POST /api/reset", middleware.WithLogging(progressionHandler.Reset))

	// Player registration
	mux.HandleFunc("POST /api/player/register", middleware.WithLogging(playerHandler.RegisterName))

	// Group-choice voting
	mux.HandleFunc("POST /api/choice/vote", middleware.WithLogging(voteHandler.CastVote))
	mux.HandleFunc("POST /api/choice/result", middleware.WithLogging(voteHandler.CheckResult))

	// Admin operations (password-gated)
	mux.HandleFunc("GET /api/admin/stats", middleware.WithLogging(middleware.WithAdminAuth(cfg.AdminPassword, adminHandler.Stats)))
	mux.HandleFunc("POST /api/admin/reset", middleware.WithLogging(middleware.WithAdminAuth(cfg.AdminPassword, adminHandler.ResetAll)))
	mux.HandleFunc("GET /api/admin/qr", middleware.WithLogging(middleware.WithAdminAuth(cfg.AdminPassword, adminHandler.JoinQR)))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("escaperace API v1"))
	})

	return mux
}
