package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/hojinjeong/escaperace/catalog"
	"github.com/hojinjeong/escaperace/cliparse"
	"github.com/hojinjeong/escaperace/middleware"
	"github.com/hojinjeong/escaperace/models"
)

type VoteHandler struct {
	db  *sql.DB
	cat *catalog.Catalog
	cfg cliparse.Config

	// now is swappable so tests can close a round window.
	now func() time.Time
}

func NewVoteHandler(db *sql.DB, cat *catalog.Catalog, cfg cliparse.Config) *VoteHandler {
	return &VoteHandler{db: db, cat: cat, cfg: cfg, now: time.Now}
}

// pendingVote is the participant-side record of an unresolved vote.
type pendingVote struct {
	Stage   int
	GroupID string
	RoundID int64
	Option  string
}

func (h *VoteHandler) loadPending(sessionID string) (*pendingVote, error) {
	var stage sql.NullInt64
	var group, option sql.NullString
	var round sql.NullInt64

	err := h.db.QueryRow(`
		SELECT vote_stage, vote_group, vote_round, vote_option
		FROM participant WHERE id = $1
	`, sessionID).Scan(&stage, &group, &round, &option)
	if err != nil {
		return nil, err
	}

	if !stage.Valid {
		return nil, nil
	}
	return &pendingVote{
		Stage:   int(stage.Int64),
		GroupID: group.String,
		RoundID: round.Int64,
		Option:  option.String,
	}, nil
}

// CastVote handles POST /api/choice/vote
//
// The round a vote lands in is the clock-aligned window containing now:
// roundID = floor(nowMs/windowMs)*windowMs. Every participant computes
// the same bucket independently, so no coordination is needed to agree
// on which round is being voted.
func (h *VoteHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	var req models.VoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.SessionID == "" || req.Stage < 1 || req.Option == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "sessionId, stage and option are required")
		return
	}

	frontier, err := getFrontier(h.db, req.SessionID)
	if err != nil {
		slog.Error("failed to load frontier", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	// Voting is only allowed on the participant's current target: the
	// first catalog stage at or above the frontier, so gapped stage
	// numbers line up with what GetProblem serves.
	current, hasCurrent := h.cat.NextAt(frontier)
	if !hasCurrent || req.Stage != current.Number {
		middleware.ErrorResponse(w, http.StatusForbidden, "This is not your current room")
		return
	}

	stage, ok := h.cat.Lookup(req.Stage)
	if !ok {
		middleware.ErrorResponse(w, http.StatusNotFound, "No such room")
		return
	}
	if stage.Type != catalog.TypeChoice {
		middleware.ErrorResponse(w, http.StatusConflict, "This room is not a group-choice room")
		return
	}
	if _, ok := stage.Choice.Option(req.Option); !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Unknown option: "+req.Option)
		return
	}

	windowMs := stage.Choice.WindowMs
	nowMs := h.now().UnixMilli()
	roundID := nowMs / windowMs * windowMs
	windowEnd := roundID + windowMs

	pending, err := h.loadPending(req.SessionID)
	if err != nil {
		slog.Error("failed to load pending vote", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if pending != nil && pending.Stage == req.Stage && pending.GroupID == stage.Choice.GroupID && pending.RoundID == roundID {
		if pending.Option == req.Option {
			// Duplicate client retry; already counted.
			middleware.JSONResponse(w, http.StatusOK, models.VoteResponse{
				OK:          true,
				RoundID:     roundID,
				WindowMs:    windowMs,
				WindowEndMs: windowEnd,
				Message:     "Vote already recorded.",
			})
			return
		}
		middleware.ErrorResponse(w, http.StatusConflict, "You already voted in this round")
		return
	}

	// Record the pending vote and count it in one transaction.
	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	// The pending write is guarded on the tuple actually changing. The
	// row lock re-evaluates the guard after a racing identical cast
	// commits, so the loser of the race skips the count below instead of
	// doubling it.
	res, err := tx.Exec(`
		UPDATE participant
		SET vote_stage = $1, vote_group = $2, vote_round = $3, vote_option = $4, updated_at = $5
		WHERE id = $6
		  AND (vote_round IS NULL OR vote_stage <> $7 OR vote_group <> $8 OR vote_round <> $9 OR vote_option <> $10)
	`, req.Stage, stage.Choice.GroupID, roundID, req.Option, time.Now(), req.SessionID,
		req.Stage, stage.Choice.GroupID, roundID, req.Option)
	if err != nil {
		slog.Error("failed to record pending vote", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to record vote")
		return
	}

	changed, err := res.RowsAffected()
	if err != nil {
		slog.Error("failed to record pending vote", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to record vote")
		return
	}
	if changed == 0 {
		if err := tx.Commit(); err != nil {
			slog.Error("failed to commit vote", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to record vote")
			return
		}
		middleware.JSONResponse(w, http.StatusOK, models.VoteResponse{
			OK:          true,
			RoundID:     roundID,
			WindowMs:    windowMs,
			WindowEndMs: windowEnd,
			Message:     "Vote already recorded.",
		})
		return
	}

	_, err = tx.Exec(`
		INSERT INTO vote_round (group_id, stage, round_id, window_ms, mode, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (group_id, stage, round_id) DO NOTHING
	`, stage.Choice.GroupID, req.Stage, roundID, windowMs, stage.Choice.Mode, time.Now())
	if err != nil {
		slog.Error("failed to create vote round", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to record vote")
		return
	}

	_, err = tx.Exec(`
		INSERT INTO vote_count (group_id, stage, round_id, option_id, votes)
		VALUES ($1, $2, $3, $4, 1)
		ON CONFLICT (group_id, stage, round_id, option_id) DO UPDATE SET votes = vote_count.votes + 1
	`, stage.Choice.GroupID, req.Stage, roundID, req.Option)
	if err != nil {
		slog.Error("failed to count vote", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to record vote")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit vote", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to record vote")
		return
	}

	slog.Info("vote cast", "session", req.SessionID, "stage", req.Stage, "round", roundID, "option", req.Option)

	middleware.JSONResponse(w, http.StatusOK, models.VoteResponse{
		OK:          true,
		RoundID:     roundID,
		WindowMs:    windowMs,
		WindowEndMs: windowEnd,
	})
}

// CheckResult handles POST /api/choice/result
//
// Poll-based: before the window closes the caller gets PENDING with a
// suggested wait. After it closes, the first caller resolves the frozen
// tally and records the outcome permanently; everyone else reads the
// recorded outcome, so all participants see one consistent result.
func (h *VoteHandler) CheckResult(w http.ResponseWriter, r *http.Request) {
	var req models.VoteResultRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.SessionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	pending, err := h.loadPending(req.SessionID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Unknown session")
		return
	}
	if err != nil {
		slog.Error("failed to load pending vote", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if pending == nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "No vote to check")
		return
	}

	stage, ok := h.cat.Lookup(pending.Stage)
	if !ok || stage.Type != catalog.TypeChoice || stage.Choice.GroupID != pending.GroupID {
		// The catalog changed underneath a recorded vote. Clear it so
		// the participant isn't stuck.
		h.clearPending(req.SessionID)
		middleware.ErrorResponse(w, http.StatusConflict, "This vote is no longer valid")
		return
	}

	// The round row freezes its window at creation; a catalog reload with
	// a different window must not move an in-flight round's boundary.
	windowMs := stage.Choice.WindowMs
	err = h.db.QueryRow(`
		SELECT window_ms FROM vote_round
		WHERE group_id = $1 AND stage = $2 AND round_id = $3
	`, pending.GroupID, pending.Stage, pending.RoundID).Scan(&windowMs)
	if err != nil && err != sql.ErrNoRows {
		slog.Error("failed to load vote round", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	windowEnd := pending.RoundID + windowMs
	nowMs := h.now().UnixMilli()
	if nowMs < windowEnd {
		middleware.JSONResponse(w, http.StatusOK, models.VoteResultResponse{
			OK:     true,
			Status: models.VoteStatusPending,
			WaitMs: windowEnd - nowMs,
		})
		return
	}

	outcome, err := h.resolveOrLoad(stage, pending)
	if err != nil {
		slog.Error("failed to resolve vote round", "error", err, "stage", pending.Stage, "round", pending.RoundID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	switch outcome.Outcome {
	case OutcomeEliminateAll:
		// Everyone picked the same side; nobody advances.
		h.clearPending(req.SessionID)
		middleware.JSONResponse(w, http.StatusOK, models.VoteResultResponse{
			OK:           true,
			Status:       models.VoteStatusLose,
			CurrentStage: pending.Stage,
			Message:      "Everyone chose the same door. It stays shut.",
		})
		return
	case OutcomeWinner:
		if pending.Option != outcome.WinningOption {
			h.clearPending(req.SessionID)
			middleware.JSONResponse(w, http.StatusOK, models.VoteResultResponse{
				OK:           true,
				Status:       models.VoteStatusLose,
				CurrentStage: pending.Stage,
				Message:      "Your side had more votes. Try again next round.",
			})
			return
		}
		h.finishRound(w, req.SessionID, pending.Stage, models.VoteStatusWin)
		return
	default: // OutcomeDraw
		h.finishRound(w, req.SessionID, pending.Stage, models.VoteStatusDraw)
		return
	}
}

// resolveOrLoad returns the round's recorded outcome, resolving and
// recording it if this is the first post-window query. The conditional
// UPDATE (resolved = 0) makes the first writer win; racers re-read the
// stored outcome instead of computing their own.
func (h *VoteHandler) resolveOrLoad(stage catalog.Stage, pending *pendingVote) (RoundOutcome, error) {
	var resolved int
	var mode string
	var outcome, winning sql.NullString
	err := h.db.QueryRow(`
		SELECT resolved, mode, outcome, winning_option
		FROM vote_round
		WHERE group_id = $1 AND stage = $2 AND round_id = $3
	`, pending.GroupID, pending.Stage, pending.RoundID).Scan(&resolved, &mode, &outcome, &winning)

	if err == sql.ErrNoRows {
		// No round row at all (e.g. wiped by an admin reset): nothing
		// to score against, treat as a draw and let them through.
		return RoundOutcome{Outcome: OutcomeDraw}, nil
	}
	if err != nil {
		return RoundOutcome{}, err
	}

	if resolved != 0 {
		return RoundOutcome{Outcome: outcome.String, WinningOption: winning.String}, nil
	}

	counts, err := h.loadCounts(pending)
	if err != nil {
		return RoundOutcome{}, err
	}

	computed := ResolveRound(counts, stage.Choice.OptionIDs(), mode)

	var winningValue interface{}
	if computed.WinningOption != "" {
		winningValue = computed.WinningOption
	}
	res, err := h.db.Exec(`
		UPDATE vote_round
		SET resolved = 1, outcome = $1, winning_option = $2, resolved_at = $3
		WHERE group_id = $4 AND stage = $5 AND round_id = $6 AND resolved = 0
	`, computed.Outcome, winningValue, time.Now(), pending.GroupID, pending.Stage, pending.RoundID)
	if err != nil {
		return RoundOutcome{}, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return RoundOutcome{}, err
	}
	if n == 0 {
		// Someone else resolved first; their result stands.
		err = h.db.QueryRow(`
			SELECT outcome, winning_option
			FROM vote_round
			WHERE group_id = $1 AND stage = $2 AND round_id = $3
		`, pending.GroupID, pending.Stage, pending.RoundID).Scan(&outcome, &winning)
		if err != nil {
			return RoundOutcome{}, err
		}
		return RoundOutcome{Outcome: outcome.String, WinningOption: winning.String}, nil
	}

	slog.Info("vote round resolved", "stage", pending.Stage, "round", pending.RoundID,
		"outcome", computed.Outcome, "winning_option", computed.WinningOption)

	return computed, nil
}

func (h *VoteHandler) loadCounts(pending *pendingVote) (map[string]int, error) {
	rows, err := h.db.Query(`
		SELECT option_id, votes
		FROM vote_count
		WHERE group_id = $1 AND stage = $2 AND round_id = $3
	`, pending.GroupID, pending.Stage, pending.RoundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var option string
		var votes int
		if err := rows.Scan(&option, &votes); err != nil {
			return nil, err
		}
		counts[option] = votes
	}
	return counts, rows.Err()
}

// finishRound advances a winning (or draw) participant and responds
// with the next stage so the client can render it immediately.
func (h *VoteHandler) finishRound(w http.ResponseWriter, sessionID string, stage int, status string) {
	advanced, rank, err := advanceAndRecord(h.db, sessionID, stage)
	if err != nil {
		slog.Error("failed to advance after vote", "error", err, "session", sessionID, "stage", stage)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if advanced {
		recordClearEvent(h.db, sessionID, stage, rank)
	}

	h.clearPending(sessionID)

	newFrontier := stage + 1
	next, hasNext := h.cat.NextAt(newFrontier)
	if !hasNext {
		middleware.JSONResponse(w, http.StatusOK, models.VoteResultResponse{
			OK:           true,
			Status:       status,
			CurrentStage: newFrontier,
			Finished:     true,
			Message:      "All rooms cleared!",
		})
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.VoteResultResponse{
		OK:           true,
		Status:       status,
		CurrentStage: newFrontier,
		NextStage:    next.Number,
		NextProblem:  problemPayload(next, false),
	})
}

// clearPending drops the participant's pending vote so they can vote in
// a later round. Best-effort: a failure only delays the next vote.
func (h *VoteHandler) clearPending(sessionID string) {
	_, err := h.db.Exec(`
		UPDATE participant
		SET vote_stage = NULL, vote_group = NULL, vote_round = NULL, vote_option = NULL, updated_at = $1
		WHERE id = $2
	`, time.Now(), sessionID)
	if err != nil {
		slog.Warn("failed to clear pending vote", "error", err, "session", sessionID)
	}
}
