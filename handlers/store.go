package handlers

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/hojinjeong/escaperace/catalog"
	"github.com/hojinjeong/escaperace/models"
)

// getFrontier returns a participant's unlock frontier, creating the
// record with frontier=1 on first contact.
func getFrontier(db *sql.DB, sessionID string) (int, error) {
	var frontier int
	err := db.QueryRow(`
		SELECT frontier FROM participant WHERE id = $1
	`, sessionID).Scan(&frontier)

	if err == sql.ErrNoRows {
		now := time.Now()
		_, err = db.Exec(`
			INSERT INTO participant (id, frontier, created_at, updated_at)
			VALUES ($1, 1, $2, $3)
			ON CONFLICT (id) DO NOTHING
		`, sessionID, now, now)
		if err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return frontier, nil
}

// advanceAndRecord advances the frontier past a cleared stage and, if
// this request was the one that actually advanced it, increments the
// stage's clear counter in the same transaction. The post-increment
// count is the participant's arrival rank.
//
// The frontier update is conditional (frontier < stage+1), so a
// duplicate concurrent correct submission advances nothing and never
// double-counts the ledger. The counter upsert serializes concurrent
// clears on the stage row, which keeps ranks distinct.
func advanceAndRecord(db *sql.DB, sessionID string, stage int) (advanced bool, rank int, err error) {
	next := stage + 1

	tx, err := db.Begin()
	if err != nil {
		return false, 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE participant
		SET frontier = $1, updated_at = $2
		WHERE id = $3 AND frontier < $4
	`, next, time.Now(), sessionID, next)
	if err != nil {
		return false, 0, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, 0, err
	}
	if n == 0 {
		// Already past this stage; nothing to record.
		return false, 0, tx.Commit()
	}

	_, err = tx.Exec(`
		INSERT INTO stage_clear (stage, cleared_count)
		VALUES ($1, 1)
		ON CONFLICT (stage) DO UPDATE SET cleared_count = stage_clear.cleared_count + 1
	`, stage)
	if err != nil {
		return false, 0, err
	}

	err = tx.QueryRow(`
		SELECT cleared_count FROM stage_clear WHERE stage = $1
	`, stage).Scan(&rank)
	if err != nil {
		return false, 0, err
	}

	if err := tx.Commit(); err != nil {
		return false, 0, err
	}
	return true, rank, nil
}

// recordClearEvent writes the leaderboard entry for a clear. This is a
// best-effort denormalized write: failures are logged and swallowed so
// they never fail the progression outcome itself.
func recordClearEvent(db *sql.DB, sessionID string, stage, rank int) {
	var name sql.NullString
	err := db.QueryRow(`
		SELECT display_name FROM participant WHERE id = $1
	`, sessionID).Scan(&name)
	if err != nil {
		slog.Warn("failed to read display name for clear event", "error", err, "session", sessionID)
	}

	_, err = db.Exec(`
		INSERT INTO clear_event (stage, participant_id, display_name, rank, cleared_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (stage, participant_id) DO NOTHING
	`, stage, sessionID, name, rank, time.Now())
	if err != nil {
		slog.Warn("failed to record clear event", "error", err, "stage", stage, "session", sessionID)
	}
}

// arrivalRank returns the participant's recorded rank for clearing the
// stage before this one, i.e. the order in which they arrived here.
// Zero means no rank is recorded (stage 1, or the event write failed).
func arrivalRank(db *sql.DB, sessionID string, stage int) int {
	var rank int
	err := db.QueryRow(`
		SELECT rank FROM clear_event WHERE stage = $1 AND participant_id = $2
	`, stage-1, sessionID).Scan(&rank)
	if err != nil {
		return 0
	}
	return rank
}

// problemPayload projects a catalog stage into its client-facing shape.
// The canonical answer is included only for cleared stages.
func problemPayload(stage catalog.Stage, includeAnswer bool) *models.Problem {
	p := &models.Problem{
		Stage:       stage.Number,
		Type:        stage.Type,
		Title:       stage.Title,
		ImageURL:    stage.ImageURL,
		Description: stage.Description,
	}
	if includeAnswer {
		p.Answer = stage.Answer
	}
	if stage.Tap != nil {
		p.TapConfig = stage.Tap
	}
	if stage.Choice != nil {
		p.Options = stage.Choice.Options
	}
	return p
}
