package models

import "github.com/hojinjeong/escaperace/catalog"

// Vote result status constants
const (
	VoteStatusPending = "PENDING"
	VoteStatusWin     = "WIN"
	VoteStatusLose    = "LOSE"
	VoteStatusDraw    = "DRAW"
)

// Answer hint constants (updown stages)
const (
	HintHigher = "higher"
	HintLower  = "lower"
)

// Request types

type AnswerRequest struct {
	SessionID string `json:"sessionId"`
	Stage     int    `json:"stage"`
	Answer    string `json:"answer"`
}

type ResetRequest struct {
	SessionID string `json:"sessionId"`
}

type RegisterNameRequest struct {
	SessionID string `json:"sessionId"`
	Name      string `json:"name"`
}

type VoteRequest struct {
	SessionID string `json:"sessionId"`
	Stage     int    `json:"stage"`
	Option    string `json:"option"`
}

type VoteResultRequest struct {
	SessionID string `json:"sessionId"`
}

// Response types

type SessionResponse struct {
	SessionID string `json:"sessionId"`
}

// Problem is the client-facing stage payload. The canonical answer is
// included only for stages the participant has already cleared.
type Problem struct {
	Stage       int                    `json:"stage"`
	Type        catalog.PuzzleType     `json:"type"`
	Title       string                 `json:"title"`
	ImageURL    string                 `json:"imageUrl,omitempty"`
	Description string                 `json:"description,omitempty"`
	Answer      string                 `json:"answer,omitempty"`
	TapConfig   *catalog.TapConfig     `json:"tapConfig,omitempty"`
	Options     []catalog.ChoiceOption `json:"options,omitempty"`
}

type ProblemResponse struct {
	OK           bool     `json:"ok"`
	Finished     bool     `json:"finished"`
	CurrentStage int      `json:"currentStage"`
	IsCleared    bool     `json:"isCleared,omitempty"`
	ArrivalRank  int      `json:"arrivalRank,omitempty"`
	Message      string   `json:"message,omitempty"`
	Problem      *Problem `json:"problem,omitempty"`
}

type AnswerResponse struct {
	OK             bool     `json:"ok"`
	Correct        bool     `json:"correct"`
	AlreadyCleared bool     `json:"alreadyCleared,omitempty"`
	BadFormat      bool     `json:"badFormat,omitempty"`
	Hint           string   `json:"hint,omitempty"`
	Finished       bool     `json:"finished,omitempty"`
	HasNext        bool     `json:"hasNext,omitempty"`
	CurrentStage   int      `json:"currentStage"`
	NextStage      int      `json:"nextStage,omitempty"`
	ArrivalRank    int      `json:"arrivalRank,omitempty"`
	Message        string   `json:"message,omitempty"`
	NextProblem    *Problem `json:"nextProblem,omitempty"`
}

type ResetResponse struct {
	OK           bool   `json:"ok"`
	CurrentStage int    `json:"currentStage"`
	Message      string `json:"message,omitempty"`
}

type RegisterNameResponse struct {
	OK   bool   `json:"ok"`
	Name string `json:"name"`
}

type VoteResponse struct {
	OK          bool   `json:"ok"`
	RoundID     int64  `json:"roundId"`
	WindowMs    int64  `json:"windowMs"`
	WindowEndMs int64  `json:"windowEndMs"`
	Message     string `json:"message,omitempty"`
}

type VoteResultResponse struct {
	OK           bool     `json:"ok"`
	Status       string   `json:"status"`
	WaitMs       int64    `json:"waitMs,omitempty"`
	CurrentStage int      `json:"currentStage,omitempty"`
	NextStage    int      `json:"nextStage,omitempty"`
	Finished     bool     `json:"finished,omitempty"`
	Message      string   `json:"message,omitempty"`
	NextProblem  *Problem `json:"nextProblem,omitempty"`
}

// Admin types

type StageStats struct {
	Stage        int      `json:"stage"`
	Type         string   `json:"type"`
	Title        string   `json:"title"`
	ClearedCount int      `json:"clearedCount"`
	Challengers  []string `json:"challengers"`
	Clearers     []string `json:"clearers"`
}

type AdminStatsResponse struct {
	OK     bool         `json:"ok"`
	Stages []StageStats `json:"stages"`
}

type AdminResetResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
