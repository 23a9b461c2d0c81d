package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hojinjeong/escaperace/models"
	"github.com/hojinjeong/escaperace/testutil"
)

func TestRegisterName(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewPlayerHandler(db, cfg)

	testutil.CreateTestParticipant(t, db, "sess_named", 1)

	tests := []struct {
		name           string
		requestBody    models.RegisterNameRequest
		expectedStatus int
	}{
		{
			name:           "valid name",
			requestBody:    models.RegisterNameRequest{SessionID: "sess_named", Name: "Player One"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "hangul name",
			requestBody:    models.RegisterNameRequest{SessionID: "sess_named", Name: "탈출왕"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "missing sessionId",
			requestBody:    models.RegisterNameRequest{Name: "Ghost"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "too short",
			requestBody:    models.RegisterNameRequest{SessionID: "sess_named", Name: "x"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "too long",
			requestBody:    models.RegisterNameRequest{SessionID: "sess_named", Name: "this_name_is_way_too_long"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "illegal characters",
			requestBody:    models.RegisterNameRequest{SessionID: "sess_named", Name: "<script>"},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/api/player/register", tt.requestBody, nil)
			w := httptest.NewRecorder()
			handler.RegisterName(w, req)
			testutil.AssertStatus(t, w, tt.expectedStatus)
		})
	}
}

func TestRegisterNameTaken(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewPlayerHandler(db, cfg)

	testutil.CreateTestParticipant(t, db, "sess_first", 1)
	testutil.CreateTestParticipant(t, db, "sess_second", 1)

	req := testutil.MakeRequest("POST", "/api/player/register",
		models.RegisterNameRequest{SessionID: "sess_first", Name: "Hoon"}, nil)
	w := httptest.NewRecorder()
	handler.RegisterName(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	req = testutil.MakeRequest("POST", "/api/player/register",
		models.RegisterNameRequest{SessionID: "sess_second", Name: "Hoon"}, nil)
	w = httptest.NewRecorder()
	handler.RegisterName(w, req)
	testutil.AssertStatus(t, w, http.StatusConflict)

	// Re-registering your own name is fine.
	req = testutil.MakeRequest("POST", "/api/player/register",
		models.RegisterNameRequest{SessionID: "sess_first", Name: "Hoon2"}, nil)
	w = httptest.NewRecorder()
	handler.RegisterName(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)
}

func TestRegisterNameCreatesParticipant(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewPlayerHandler(db, cfg)

	// Registration before any other call still works: the participant
	// row is created on the spot.
	req := testutil.MakeRequest("POST", "/api/player/register",
		models.RegisterNameRequest{SessionID: "sess_fresh", Name: "Newbie"}, nil)
	w := httptest.NewRecorder()
	handler.RegisterName(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var name string
	err := db.QueryRow(`SELECT display_name FROM participant WHERE id = 'sess_fresh'`).Scan(&name)
	if err != nil {
		t.Fatalf("Participant was not created: %v", err)
	}
	if name != "Newbie" {
		t.Errorf("display_name = %q, want Newbie", name)
	}
}

func TestRegisterNameSyncsLedger(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewPlayerHandler(db, cfg)

	testutil.CreateTestParticipant(t, db, "sess_renamer", 2)
	_, err := db.Exec(`
		INSERT INTO clear_event (stage, participant_id, rank, cleared_at)
		VALUES (1, 'sess_renamer', 1, $1)
	`, time.Now())
	if err != nil {
		t.Fatalf("Failed to seed clear event: %v", err)
	}

	req := testutil.MakeRequest("POST", "/api/player/register",
		models.RegisterNameRequest{SessionID: "sess_renamer", Name: "Speedy"}, nil)
	w := httptest.NewRecorder()
	handler.RegisterName(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var ledgerName string
	err = db.QueryRow(`SELECT display_name FROM clear_event WHERE participant_id = 'sess_renamer'`).Scan(&ledgerName)
	if err != nil {
		t.Fatalf("Failed to read clear event: %v", err)
	}
	if ledgerName != "Speedy" {
		t.Errorf("Ledger name = %q, want Speedy", ledgerName)
	}
}
