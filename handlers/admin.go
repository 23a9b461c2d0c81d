package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/hojinjeong/escaperace/catalog"
	"github.com/hojinjeong/escaperace/cliparse"
	"github.com/hojinjeong/escaperace/middleware"
	"github.com/hojinjeong/escaperace/models"
)

type AdminHandler struct {
	db  *sql.DB
	cat *catalog.Catalog
	cfg cliparse.Config
}

func NewAdminHandler(db *sql.DB, cat *catalog.Catalog, cfg cliparse.Config) *AdminHandler {
	return &AdminHandler{db: db, cat: cat, cfg: cfg}
}

// Stats handles GET /api/admin/stats
// Per-stage operator view: clear counter, who is currently in the room,
// and who has cleared it, in arrival order.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stages := h.cat.Stages()
	out := make([]models.StageStats, 0, len(stages))

	for _, stage := range stages {
		stats := models.StageStats{
			Stage:       stage.Number,
			Type:        string(stage.Type),
			Title:       stage.Title,
			Challengers: []string{},
			Clearers:    []string{},
		}

		err := h.db.QueryRow(`
			SELECT cleared_count FROM stage_clear WHERE stage = $1
		`, stage.Number).Scan(&stats.ClearedCount)
		if err != nil && err != sql.ErrNoRows {
			slog.Error("failed to read stage counter", "error", err, "stage", stage.Number)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}

		// Participants whose frontier is this stage are in the room now.
		// Order them by when they arrived (their rank for the previous
		// stage); unranked ones sort last, by join time.
		challengers, err := h.queryNames(`
			SELECT COALESCE(p.display_name, p.id)
			FROM participant p
			LEFT JOIN clear_event ce
				ON ce.stage = $1 AND ce.participant_id = p.id
			WHERE p.frontier = $2
			ORDER BY COALESCE(ce.rank, 1000000000), p.created_at
		`, stage.Number-1, stage.Number)
		if err != nil {
			slog.Error("failed to list challengers", "error", err, "stage", stage.Number)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		stats.Challengers = challengers

		clearers, err := h.queryNames(`
			SELECT COALESCE(display_name, participant_id)
			FROM clear_event
			WHERE stage = $1
			ORDER BY rank
		`, stage.Number)
		if err != nil {
			slog.Error("failed to list clearers", "error", err, "stage", stage.Number)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		stats.Clearers = clearers

		out = append(out, stats)
	}

	middleware.JSONResponse(w, http.StatusOK, models.AdminStatsResponse{
		OK:     true,
		Stages: out,
	})
}

func (h *AdminHandler) queryNames(query string, args ...interface{}) ([]string, error) {
	rows, err := h.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ResetAll handles POST /api/admin/reset
// Wipes every participant, counter, ledger entry and vote round. This is
// the between-events reset; there is no undo.
func (h *AdminHandler) ResetAll(w http.ResponseWriter, r *http.Request) {
	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	for _, table := range []string{"vote_count", "vote_round", "clear_event", "stage_clear", "participant"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			slog.Error("failed to wipe table", "error", err, "table", table)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to reset")
			return
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit reset", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to reset")
		return
	}

	slog.Info("full game reset")

	middleware.JSONResponse(w, http.StatusOK, models.AdminResetResponse{
		OK:      true,
		Message: "All game data wiped.",
	})
}

// JoinQR handles GET /api/admin/qr
// Renders the join URL as a PNG QR code for projecting at the venue.
func (h *AdminHandler) JoinQR(w http.ResponseWriter, r *http.Request) {
	if h.cfg.BaseURL == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "BASE_URL is not configured")
		return
	}

	png, err := qrcode.Encode(h.cfg.BaseURL, qrcode.Medium, 256)
	if err != nil {
		slog.Error("failed to render QR code", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to render QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
