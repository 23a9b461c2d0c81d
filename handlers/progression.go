package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/hojinjeong/escaperace/auth"
	"github.com/hojinjeong/escaperace/catalog"
	"github.com/hojinjeong/escaperace/cliparse"
	"github.com/hojinjeong/escaperace/middleware"
	"github.com/hojinjeong/escaperace/models"
)

type ProgressionHandler struct {
	db  *sql.DB
	cat *catalog.Catalog
	cfg cliparse.Config
}

func NewProgressionHandler(db *sql.DB, cat *catalog.Catalog, cfg cliparse.Config) *ProgressionHandler {
	return &ProgressionHandler{db: db, cat: cat, cfg: cfg}
}

// NewSession handles POST /api/session
// Issues a server-generated session ID for clients without local storage.
// Clients that generate their own IDs never need to call this.
func (h *ProgressionHandler) NewSession(w http.ResponseWriter, r *http.Request) {
	sessionID := auth.NewSessionID()

	now := time.Now()
	_, err := h.db.Exec(`
		INSERT INTO participant (id, frontier, created_at, updated_at)
		VALUES ($1, 1, $2, $3)
	`, sessionID, now, now)
	if err != nil {
		slog.Error("failed to create participant", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	slog.Info("session created", "session", sessionID)

	middleware.JSONResponse(w, http.StatusCreated, models.SessionResponse{
		SessionID: sessionID,
	})
}

// GetProblem handles GET /api/problem?stage=N&sessionId=S
//
// stage <= 0 is a status-only probe: it reports whether the game is
// finished and where the frontier is, without any stage content.
func (h *ProgressionHandler) GetProblem(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	rawStage := 0
	if s := r.URL.Query().Get("stage"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "stage must be a number")
			return
		}
		rawStage = n
	}

	frontier, err := getFrontier(h.db, sessionID)
	if err != nil {
		slog.Error("failed to load frontier", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	// Status-only probe
	if rawStage <= 0 {
		if _, ok := h.cat.NextAt(frontier); !ok {
			middleware.JSONResponse(w, http.StatusOK, models.ProblemResponse{
				OK:           true,
				Finished:     true,
				CurrentStage: frontier,
				Message:      "All rooms cleared!",
			})
			return
		}
		middleware.JSONResponse(w, http.StatusOK, models.ProblemResponse{
			OK:           true,
			CurrentStage: frontier,
		})
		return
	}

	// Block stages the participant has not reached yet. The current
	// target is the first catalog stage at or above the frontier, which
	// matters only when stage numbers have gaps.
	current, hasCurrent := h.cat.NextAt(frontier)
	if rawStage > frontier && (!hasCurrent || rawStage != current.Number) {
		middleware.JSONResponse(w, http.StatusForbidden, models.ProblemResponse{
			OK:           false,
			CurrentStage: frontier,
			Message:      "You can't enter this room yet.",
		})
		return
	}

	stage, ok := h.cat.Lookup(rawStage)
	if !ok {
		// Nothing at or past this number: the participant is done.
		middleware.JSONResponse(w, http.StatusOK, models.ProblemResponse{
			OK:           true,
			Finished:     true,
			CurrentStage: frontier,
			Message:      "All rooms cleared!",
		})
		return
	}

	isCleared := stage.Number < frontier

	middleware.JSONResponse(w, http.StatusOK, models.ProblemResponse{
		OK:           true,
		CurrentStage: frontier,
		IsCleared:    isCleared,
		ArrivalRank:  arrivalRank(h.db, sessionID, stage.Number),
		Problem:      problemPayload(stage, isCleared),
	})
}

// SubmitAnswer handles POST /api/answer
func (h *ProgressionHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req models.AnswerRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.SessionID == "" || req.Stage < 1 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "sessionId and stage are required")
		return
	}

	frontier, err := getFrontier(h.db, req.SessionID)
	if err != nil {
		slog.Error("failed to load frontier", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	// Sequencing violation, distinct from a wrong answer. The current
	// target is the first catalog stage at or above the frontier, which
	// differs from the frontier itself only when stage numbers have gaps.
	current, hasCurrent := h.cat.NextAt(frontier)
	if req.Stage > frontier && (!hasCurrent || req.Stage != current.Number) {
		middleware.JSONResponse(w, http.StatusForbidden, models.AnswerResponse{
			OK:           false,
			CurrentStage: frontier,
			Message:      "Solve the earlier rooms first.",
		})
		return
	}

	// Idempotent resubmission for an already-cleared stage: harmless,
	// and must not touch the ledger again.
	if req.Stage < frontier {
		middleware.JSONResponse(w, http.StatusOK, models.AnswerResponse{
			OK:             true,
			Correct:        true,
			AlreadyCleared: true,
			CurrentStage:   frontier,
			Message:        "You already cleared this room.",
		})
		return
	}

	stage, ok := h.cat.Lookup(req.Stage)
	if !ok {
		middleware.ErrorResponse(w, http.StatusNotFound, "No such room")
		return
	}

	if stage.Type == catalog.TypeChoice {
		middleware.ErrorResponse(w, http.StatusConflict, "This room is decided by group vote")
		return
	}

	switch Evaluate(stage, req.Answer) {
	case VerdictBadFormat:
		middleware.JSONResponse(w, http.StatusOK, models.AnswerResponse{
			OK:           true,
			Correct:      false,
			BadFormat:    true,
			CurrentStage: frontier,
			Message:      "That doesn't look like a number.",
		})
		return
	case VerdictHigher:
		middleware.JSONResponse(w, http.StatusOK, models.AnswerResponse{
			OK:           true,
			Correct:      false,
			Hint:         models.HintHigher,
			CurrentStage: frontier,
			Message:      "Higher.",
		})
		return
	case VerdictLower:
		middleware.JSONResponse(w, http.StatusOK, models.AnswerResponse{
			OK:           true,
			Correct:      false,
			Hint:         models.HintLower,
			CurrentStage: frontier,
			Message:      "Lower.",
		})
		return
	case VerdictIncorrect:
		middleware.JSONResponse(w, http.StatusOK, models.AnswerResponse{
			OK:           true,
			Correct:      false,
			CurrentStage: frontier,
			Message:      "Wrong answer. Think again.",
		})
		return
	}

	// Correct: advance the frontier and write through to the ledger.
	advanced, rank, err := advanceAndRecord(h.db, req.SessionID, stage.Number)
	if err != nil {
		slog.Error("failed to advance participant", "error", err, "session", req.SessionID, "stage", stage.Number)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if !advanced {
		// A concurrent duplicate submission won the race.
		middleware.JSONResponse(w, http.StatusOK, models.AnswerResponse{
			OK:             true,
			Correct:        true,
			AlreadyCleared: true,
			CurrentStage:   stage.Number + 1,
			Message:        "You already cleared this room.",
		})
		return
	}

	recordClearEvent(h.db, req.SessionID, stage.Number, rank)

	slog.Info("stage cleared", "session", req.SessionID, "stage", stage.Number, "rank", rank)

	newFrontier := stage.Number + 1
	next, hasNext := h.cat.NextAt(newFrontier)
	if !hasNext {
		middleware.JSONResponse(w, http.StatusOK, models.AnswerResponse{
			OK:           true,
			Correct:      true,
			Finished:     true,
			CurrentStage: newFrontier,
			ArrivalRank:  rank,
			Message:      "All rooms cleared!",
		})
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.AnswerResponse{
		OK:           true,
		Correct:      true,
		HasNext:      true,
		CurrentStage: newFrontier,
		NextStage:    next.Number,
		ArrivalRank:  rank,
		NextProblem:  problemPayload(next, false),
	})
}

// Reset handles POST /api/reset
// Resets one participant's frontier to 1. The arrival ledger keeps its
// history; only the participant starts over.
func (h *ProgressionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req models.ResetRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.SessionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	_, err := h.db.Exec(`
		UPDATE participant
		SET frontier = 1,
		    vote_stage = NULL, vote_group = NULL, vote_round = NULL, vote_option = NULL,
		    updated_at = $1
		WHERE id = $2
	`, time.Now(), req.SessionID)
	if err != nil {
		slog.Error("failed to reset participant", "error", err, "session", req.SessionID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	slog.Info("participant reset", "session", req.SessionID)

	middleware.JSONResponse(w, http.StatusOK, models.ResetResponse{
		OK:           true,
		CurrentStage: 1,
		Message:      "Progress reset.",
	})
}
