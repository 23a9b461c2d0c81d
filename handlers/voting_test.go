package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hojinjeong/escaperace/catalog"
	"github.com/hojinjeong/escaperace/models"
	"github.com/hojinjeong/escaperace/testutil"
)

// The test catalog's choice stage is stage 4 ("doors", options A/B,
// 1000ms window). Tests pin the handler clock so rounds open and close
// deterministically.
const voteStage = 4

func newTestVoteHandler(t *testing.T) (*VoteHandler, func(ms int64)) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	handler := NewVoteHandler(db, testutil.TestCatalog(t), testutil.GetTestConfig())

	// Start mid-window so the round is clearly open.
	clock := int64(10_000_500)
	handler.now = func() time.Time { return time.UnixMilli(clock) }

	return handler, func(ms int64) { clock = ms }
}

func castVote(t *testing.T, handler *VoteHandler, sessionID, option string) *httptest.ResponseRecorder {
	t.Helper()
	body := models.VoteRequest{SessionID: sessionID, Stage: voteStage, Option: option}
	req := testutil.MakeRequest("POST", "/api/choice/vote", body, nil)
	w := httptest.NewRecorder()
	handler.CastVote(w, req)
	return w
}

func checkResult(t *testing.T, handler *VoteHandler, sessionID string) (*httptest.ResponseRecorder, *models.VoteResultResponse) {
	t.Helper()
	body := models.VoteResultRequest{SessionID: sessionID}
	req := testutil.MakeRequest("POST", "/api/choice/result", body, nil)
	w := httptest.NewRecorder()
	handler.CheckResult(w, req)

	var resp models.VoteResultResponse
	if w.Code == http.StatusOK {
		testutil.AssertJSON(t, w, &resp)
	}
	return w, &resp
}

func TestCastVoteValidation(t *testing.T) {
	handler, _ := newTestVoteHandler(t)

	testutil.CreateTestParticipant(t, handler.db, "sess_voter", voteStage)
	testutil.CreateTestParticipant(t, handler.db, "sess_behind", 1)

	tests := []struct {
		name           string
		requestBody    models.VoteRequest
		expectedStatus int
	}{
		{
			name:           "missing sessionId",
			requestBody:    models.VoteRequest{Stage: voteStage, Option: "A"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing option",
			requestBody:    models.VoteRequest{SessionID: "sess_voter", Stage: voteStage},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "not the participant's current stage",
			requestBody:    models.VoteRequest{SessionID: "sess_behind", Stage: voteStage, Option: "A"},
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "not a choice stage",
			requestBody:    models.VoteRequest{SessionID: "sess_behind", Stage: 1, Option: "A"},
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "unknown option",
			requestBody:    models.VoteRequest{SessionID: "sess_voter", Stage: voteStage, Option: "C"},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/api/choice/vote", tt.requestBody, nil)
			w := httptest.NewRecorder()
			handler.CastVote(w, req)
			testutil.AssertStatus(t, w, tt.expectedStatus)
		})
	}
}

func TestCastVoteCountsOnce(t *testing.T) {
	handler, _ := newTestVoteHandler(t)
	testutil.CreateTestParticipant(t, handler.db, "sess_voter", voteStage)

	w := castVote(t, handler, "sess_voter", "A")
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.VoteResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.RoundID != 10_000_000 {
		t.Errorf("Expected roundId 10000000 (window start), got %d", resp.RoundID)
	}
	if resp.WindowEndMs != 10_001_000 {
		t.Errorf("Expected windowEndMs 10001000, got %d", resp.WindowEndMs)
	}

	// A client retry of the same vote is a no-op.
	w = castVote(t, handler, "sess_voter", "A")
	testutil.AssertStatus(t, w, http.StatusOK)

	var votes int
	err := handler.db.QueryRow(`
		SELECT votes FROM vote_count
		WHERE group_id = 'doors' AND stage = $1 AND round_id = $2 AND option_id = 'A'
	`, voteStage, resp.RoundID).Scan(&votes)
	if err != nil {
		t.Fatalf("Failed to read vote count: %v", err)
	}
	if votes != 1 {
		t.Errorf("Duplicate cast should count once, got %d votes", votes)
	}

	// Switching sides within the same round is rejected.
	w = castVote(t, handler, "sess_voter", "B")
	testutil.AssertStatus(t, w, http.StatusConflict)
}

func TestCheckResultPendingBeforeWindowCloses(t *testing.T) {
	handler, setClock := newTestVoteHandler(t)
	testutil.CreateTestParticipant(t, handler.db, "sess_voter", voteStage)

	castVote(t, handler, "sess_voter", "A")

	setClock(10_000_900) // 100ms left in the window
	w, resp := checkResult(t, handler, "sess_voter")
	testutil.AssertStatus(t, w, http.StatusOK)
	if resp.Status != models.VoteStatusPending {
		t.Fatalf("Expected PENDING before window close, got %s", resp.Status)
	}
	if resp.WaitMs != 100 {
		t.Errorf("Expected waitMs 100, got %d", resp.WaitMs)
	}
}

func TestCheckResultNoPendingVote(t *testing.T) {
	handler, _ := newTestVoteHandler(t)
	testutil.CreateTestParticipant(t, handler.db, "sess_idle", voteStage)

	w, _ := checkResult(t, handler, "sess_idle")
	testutil.AssertStatus(t, w, http.StatusBadRequest)
}

func TestCheckResultMinorityWins(t *testing.T) {
	handler, setClock := newTestVoteHandler(t)

	for _, id := range []string{"sess_a1", "sess_a2", "sess_b"} {
		testutil.CreateTestParticipant(t, handler.db, id, voteStage)
	}
	castVote(t, handler, "sess_a1", "A")
	castVote(t, handler, "sess_a2", "A")
	castVote(t, handler, "sess_b", "B")

	setClock(10_001_001)

	// The minority voter advances.
	w, resp := checkResult(t, handler, "sess_b")
	testutil.AssertStatus(t, w, http.StatusOK)
	if resp.Status != models.VoteStatusWin {
		t.Fatalf("Expected WIN for minority voter, got %s", resp.Status)
	}
	if resp.CurrentStage != voteStage+1 || resp.NextStage != voteStage+1 {
		t.Errorf("Winner should advance to stage %d, got current=%d next=%d",
			voteStage+1, resp.CurrentStage, resp.NextStage)
	}
	if resp.NextProblem == nil {
		t.Error("Winner should get the next problem payload")
	}

	// Majority voters stay.
	w, resp = checkResult(t, handler, "sess_a1")
	testutil.AssertStatus(t, w, http.StatusOK)
	if resp.Status != models.VoteStatusLose {
		t.Fatalf("Expected LOSE for majority voter, got %s", resp.Status)
	}
	if resp.CurrentStage != voteStage {
		t.Errorf("Loser should stay at stage %d, got %d", voteStage, resp.CurrentStage)
	}

	var frontierB, frontierA int
	handler.db.QueryRow(`SELECT frontier FROM participant WHERE id = 'sess_b'`).Scan(&frontierB)
	handler.db.QueryRow(`SELECT frontier FROM participant WHERE id = 'sess_a1'`).Scan(&frontierA)
	if frontierB != voteStage+1 {
		t.Errorf("Winner frontier = %d, want %d", frontierB, voteStage+1)
	}
	if frontierA != voteStage {
		t.Errorf("Loser frontier = %d, want %d", frontierA, voteStage)
	}

	// The loser's pending vote is cleared so they can vote next round.
	var pending *int
	handler.db.QueryRow(`SELECT vote_stage FROM participant WHERE id = 'sess_a1'`).Scan(&pending)
	if pending != nil {
		t.Error("Loser's pending vote should be cleared")
	}
}

func TestCheckResultUnanimousEliminatesAll(t *testing.T) {
	handler, setClock := newTestVoteHandler(t)

	for _, id := range []string{"sess_u1", "sess_u2"} {
		testutil.CreateTestParticipant(t, handler.db, id, voteStage)
		castVote(t, handler, id, "A")
	}

	setClock(10_001_001)

	for _, id := range []string{"sess_u1", "sess_u2"} {
		w, resp := checkResult(t, handler, id)
		testutil.AssertStatus(t, w, http.StatusOK)
		if resp.Status != models.VoteStatusLose {
			t.Errorf("%s: expected LOSE on unanimous vote, got %s", id, resp.Status)
		}

		var frontier int
		handler.db.QueryRow(`SELECT frontier FROM participant WHERE id = $1`, id).Scan(&frontier)
		if frontier != voteStage {
			t.Errorf("%s: frontier = %d, nobody should advance", id, frontier)
		}
	}
}

func TestCheckResultTieIsDraw(t *testing.T) {
	handler, setClock := newTestVoteHandler(t)

	testutil.CreateTestParticipant(t, handler.db, "sess_d1", voteStage)
	testutil.CreateTestParticipant(t, handler.db, "sess_d2", voteStage)
	castVote(t, handler, "sess_d1", "A")
	castVote(t, handler, "sess_d2", "B")

	setClock(10_001_001)

	for _, id := range []string{"sess_d1", "sess_d2"} {
		w, resp := checkResult(t, handler, id)
		testutil.AssertStatus(t, w, http.StatusOK)
		if resp.Status != models.VoteStatusDraw {
			t.Errorf("%s: expected DRAW on tie, got %s", id, resp.Status)
		}
		if resp.CurrentStage != voteStage+1 {
			t.Errorf("%s: draw should advance to %d, got %d", id, voteStage+1, resp.CurrentStage)
		}
	}
}

func TestCheckResultResolutionIsRecordedOnce(t *testing.T) {
	handler, setClock := newTestVoteHandler(t)

	testutil.CreateTestParticipant(t, handler.db, "sess_r1", voteStage)
	testutil.CreateTestParticipant(t, handler.db, "sess_r2", voteStage)
	testutil.CreateTestParticipant(t, handler.db, "sess_r3", voteStage)
	castVote(t, handler, "sess_r1", "A")
	castVote(t, handler, "sess_r2", "A")
	castVote(t, handler, "sess_r3", "B")

	setClock(10_001_001)

	// First query resolves; the stored outcome then serves everyone.
	checkResult(t, handler, "sess_r1")

	var resolved int
	var outcome, winning string
	err := handler.db.QueryRow(`
		SELECT resolved, outcome, winning_option FROM vote_round
		WHERE group_id = 'doors' AND stage = $1 AND round_id = 10000000
	`, voteStage).Scan(&resolved, &outcome, &winning)
	if err != nil {
		t.Fatalf("Failed to read round: %v", err)
	}
	if resolved != 1 || outcome != OutcomeWinner || winning != "B" {
		t.Errorf("Round record = (%d, %s, %s), want (1, winner, B)", resolved, outcome, winning)
	}

	// Later voters read the same result even after more clock drift.
	setClock(10_050_000)
	_, resp := checkResult(t, handler, "sess_r3")
	if resp.Status != models.VoteStatusWin {
		t.Errorf("Expected stored outcome to give sess_r3 WIN, got %s", resp.Status)
	}
}

func TestCastVoteAtGappedStage(t *testing.T) {
	db := testutil.SetupTestDB(t)

	cat, err := catalog.New([]catalog.Stage{
		{Number: 1, Type: catalog.TypeInput, Answer: "KEY"},
		{
			Number: 7, Type: catalog.TypeChoice, Title: "Far doors",
			Choice: &catalog.ChoiceConfig{
				GroupID: "far-doors",
				Options: []catalog.ChoiceOption{
					{ID: "A", Label: "Left"},
					{ID: "B", Label: "Right"},
				},
				WindowMs: 1000,
			},
		},
	})
	if err != nil {
		t.Fatalf("Failed to build gapped catalog: %v", err)
	}

	handler := NewVoteHandler(db, cat, testutil.GetTestConfig())
	handler.now = func() time.Time { return time.UnixMilli(10_000_500) }

	// Frontier 2 after clearing stage 1; the choice stage at 7 is the
	// current target and must accept votes.
	testutil.CreateTestParticipant(t, db, "sess_gapvote", 2)

	body := models.VoteRequest{SessionID: "sess_gapvote", Stage: 7, Option: "A"}
	req := testutil.MakeRequest("POST", "/api/choice/vote", body, nil)
	w := httptest.NewRecorder()
	handler.CastVote(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)

	var votes int
	err = db.QueryRow(`
		SELECT votes FROM vote_count
		WHERE group_id = 'far-doors' AND stage = 7 AND round_id = 10000000 AND option_id = 'A'
	`).Scan(&votes)
	if err != nil {
		t.Fatalf("Vote was not counted: %v", err)
	}
	if votes != 1 {
		t.Errorf("Expected 1 vote, got %d", votes)
	}
}

func TestCheckResultUsesStoredWindow(t *testing.T) {
	handler, setClock := newTestVoteHandler(t)
	testutil.CreateTestParticipant(t, handler.db, "sess_window", voteStage)

	castVote(t, handler, "sess_window", "A")

	// Widen the stored window, the way a catalog reload mid-round would.
	// The round keeps the boundary it was created with.
	if _, err := handler.db.Exec(`
		UPDATE vote_round SET window_ms = 5000
		WHERE group_id = 'doors' AND stage = $1 AND round_id = 10000000
	`, voteStage); err != nil {
		t.Fatalf("Failed to widen stored window: %v", err)
	}

	setClock(10_001_500) // past the catalog's 1000ms window, inside the stored one
	w, resp := checkResult(t, handler, "sess_window")
	testutil.AssertStatus(t, w, http.StatusOK)
	if resp.Status != models.VoteStatusPending {
		t.Fatalf("Expected PENDING inside the stored window, got %s", resp.Status)
	}
	if resp.WaitMs != 3500 {
		t.Errorf("Expected waitMs 3500 from the stored window, got %d", resp.WaitMs)
	}
}

func TestCastVoteNewRoundAfterLoss(t *testing.T) {
	handler, setClock := newTestVoteHandler(t)

	testutil.CreateTestParticipant(t, handler.db, "sess_l1", voteStage)
	testutil.CreateTestParticipant(t, handler.db, "sess_l2", voteStage)
	castVote(t, handler, "sess_l1", "A")
	castVote(t, handler, "sess_l2", "A")

	setClock(10_001_001)
	_, resp := checkResult(t, handler, "sess_l1")
	if resp.Status != models.VoteStatusLose {
		t.Fatalf("Expected LOSE, got %s", resp.Status)
	}

	// Next window: the loser votes again in a fresh round.
	setClock(10_001_500)
	w := castVote(t, handler, "sess_l1", "B")
	testutil.AssertStatus(t, w, http.StatusOK)

	var voteResp models.VoteResponse
	testutil.AssertJSON(t, w, &voteResp)
	if voteResp.RoundID != 10_001_000 {
		t.Errorf("Expected new round 10001000, got %d", voteResp.RoundID)
	}
}
