package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hojinjeong/escaperace/models"
	"github.com/hojinjeong/escaperace/testutil"
)

func TestAdminStats(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	cat := testutil.TestCatalog(t)
	handler := NewAdminHandler(db, cat, cfg)

	// Two participants in room 2 (one named), one still in room 1.
	testutil.CreateTestParticipant(t, db, "sess_x", 2)
	testutil.CreateTestParticipant(t, db, "sess_y", 2)
	testutil.CreateTestParticipant(t, db, "sess_z", 1)

	if _, err := db.Exec(`UPDATE participant SET display_name = 'Xavier' WHERE id = 'sess_x'`); err != nil {
		t.Fatalf("Failed to name participant: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO stage_clear (stage, cleared_count) VALUES (1, 2)`); err != nil {
		t.Fatalf("Failed to seed counter: %v", err)
	}
	now := time.Now()
	if _, err := db.Exec(`
		INSERT INTO clear_event (stage, participant_id, display_name, rank, cleared_at)
		VALUES (1, 'sess_x', 'Xavier', 1, $1), (1, 'sess_y', NULL, 2, $2)
	`, now, now); err != nil {
		t.Fatalf("Failed to seed clear events: %v", err)
	}

	req := testutil.MakeRequest("GET", "/api/admin/stats", nil, nil)
	w := httptest.NewRecorder()
	handler.Stats(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.AdminStatsResponse
	testutil.AssertJSON(t, w, &resp)

	if len(resp.Stages) != len(cat.Stages()) {
		t.Fatalf("Expected %d stage entries, got %d", len(cat.Stages()), len(resp.Stages))
	}

	stage1 := resp.Stages[0]
	if stage1.ClearedCount != 2 {
		t.Errorf("Stage 1 clearedCount = %d, want 2", stage1.ClearedCount)
	}
	if len(stage1.Clearers) != 2 || stage1.Clearers[0] != "Xavier" || stage1.Clearers[1] != "sess_y" {
		t.Errorf("Stage 1 clearers = %v, want [Xavier sess_y] in rank order", stage1.Clearers)
	}
	if len(stage1.Challengers) != 1 || stage1.Challengers[0] != "sess_z" {
		t.Errorf("Stage 1 challengers = %v, want [sess_z]", stage1.Challengers)
	}

	stage2 := resp.Stages[1]
	if stage2.ClearedCount != 0 {
		t.Errorf("Stage 2 clearedCount = %d, want 0", stage2.ClearedCount)
	}
	// Arrival order: Xavier cleared stage 1 first.
	if len(stage2.Challengers) != 2 || stage2.Challengers[0] != "Xavier" {
		t.Errorf("Stage 2 challengers = %v, want Xavier first", stage2.Challengers)
	}
}

func TestAdminResetAll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewAdminHandler(db, testutil.TestCatalog(t), cfg)

	testutil.CreateTestParticipant(t, db, "sess_gone", 3)
	if _, err := db.Exec(`INSERT INTO stage_clear (stage, cleared_count) VALUES (1, 5)`); err != nil {
		t.Fatalf("Failed to seed counter: %v", err)
	}
	if _, err := db.Exec(`
		INSERT INTO vote_round (group_id, stage, round_id, window_ms, mode, created_at)
		VALUES ('doors', 4, 1000, 1000, 'minority', $1)
	`, time.Now()); err != nil {
		t.Fatalf("Failed to seed round: %v", err)
	}

	req := testutil.MakeRequest("POST", "/api/admin/reset", nil, nil)
	w := httptest.NewRecorder()
	handler.ResetAll(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)

	for _, table := range []string{"participant", "stage_clear", "clear_event", "vote_round", "vote_count"} {
		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			t.Fatalf("Failed to count %s: %v", table, err)
		}
		if count != 0 {
			t.Errorf("Table %s still has %d rows after reset", table, count)
		}
	}
}

func TestAdminJoinQR(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewAdminHandler(db, testutil.TestCatalog(t), cfg)

	req := testutil.MakeRequest("GET", "/api/admin/qr", nil, nil)
	w := httptest.NewRecorder()
	handler.JoinQR(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
	if w.Body.Len() == 0 {
		t.Error("Expected PNG bytes in response")
	}
}

func TestAdminJoinQRWithoutBaseURL(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	cfg.BaseURL = ""
	handler := NewAdminHandler(db, testutil.TestCatalog(t), cfg)

	req := testutil.MakeRequest("GET", "/api/admin/qr", nil, nil)
	w := httptest.NewRecorder()
	handler.JoinQR(w, req)

	testutil.AssertStatus(t, w, http.StatusBadRequest)
}
