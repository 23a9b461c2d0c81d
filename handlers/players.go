package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/hojinjeong/escaperace/cliparse"
	"github.com/hojinjeong/escaperace/middleware"
	"github.com/hojinjeong/escaperace/models"
)

type PlayerHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewPlayerHandler(db *sql.DB, cfg cliparse.Config) *PlayerHandler {
	return &PlayerHandler{db: db, cfg: cfg}
}

// Display names: 2-12 chars of Hangul, ASCII letters, digits, underscore
// or space.
var nameRe = regexp.MustCompile(`^[0-9A-Za-z가-힣_ ]{2,12}$`)

// RegisterName handles POST /api/player/register
// Sets (or changes) the participant's leaderboard display name. Names
// are unique; a taken name is a 409.
func (h *PlayerHandler) RegisterName(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterNameRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	name := strings.TrimSpace(req.Name)
	if req.SessionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "sessionId is required")
		return
	}
	if !nameRe.MatchString(name) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Name must be 2-12 letters, digits, underscores or spaces")
		return
	}

	// Make sure the participant row exists before naming it.
	if _, err := getFrontier(h.db, req.SessionID); err != nil {
		slog.Error("failed to load participant", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	_, err := h.db.Exec(`
		UPDATE participant SET display_name = $1, updated_at = $2 WHERE id = $3
	`, name, time.Now(), req.SessionID)
	if err != nil {
		if isUniqueViolation(err) {
			middleware.ErrorResponse(w, http.StatusConflict, "That name is already taken")
			return
		}
		slog.Error("failed to set display name", "error", err, "session", req.SessionID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to set name")
		return
	}

	// Keep already-written leaderboard rows in sync with the rename.
	// Best-effort; the ledger just shows the old name if this fails.
	_, err = h.db.Exec(`
		UPDATE clear_event SET display_name = $1 WHERE participant_id = $2
	`, name, req.SessionID)
	if err != nil {
		slog.Warn("failed to sync clear events after rename", "error", err, "session", req.SessionID)
	}

	slog.Info("display name set", "session", req.SessionID, "name", name)

	middleware.JSONResponse(w, http.StatusOK, models.RegisterNameResponse{
		OK:   true,
		Name: name,
	})
}

// isUniqueViolation matches the unique-index error text of both
// supported drivers, which don't share an error type to unwrap.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // sqlite
		strings.Contains(msg, "duplicate key value") // postgres
}
