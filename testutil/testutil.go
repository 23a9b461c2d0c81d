package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hojinjeong/escaperace/catalog"
	"github.com/hojinjeong/escaperace/cliparse"
	"github.com/hojinjeong/escaperace/db"
)

// SetupTestDB creates a fresh sqlite database in a per-test temp dir
// with the full schema. The file is cleaned up with the test.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "escaperace_test.db")
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	conn.SetMaxOpenConns(1)

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:          3318,
		DatabaseType:  "sqlite",
		AdminPassword: "test-admin-password",
		BaseURL:       "http://localhost:3318",
	}
}

// TestCatalog returns a small catalog covering every puzzle type, with
// a short voting window so round tests don't wait a real minute.
func TestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()

	cat, err := catalog.New([]catalog.Stage{
		{Number: 1, Type: catalog.TypeInput, Title: "Word", Answer: "APPLE"},
		{Number: 2, Type: catalog.TypeUpDown, Title: "Lock", UpDown: &catalog.UpDownConfig{Target: 517}},
		{Number: 3, Type: catalog.TypeTap, Title: "Touch", Tap: &catalog.TapConfig{RequiredTaps: 5}},
		{
			Number: 4, Type: catalog.TypeChoice, Title: "Doors",
			Choice: &catalog.ChoiceConfig{
				GroupID: "doors",
				Options: []catalog.ChoiceOption{
					{ID: "A", Label: "Left"},
					{ID: "B", Label: "Right"},
				},
				WindowMs: 1000,
			},
		},
		{Number: 5, Type: catalog.TypePattern, Title: "Tiles", Answer: "101"},
		{Number: 6, Type: catalog.TypePath, Title: "Maze", Answer: "UULDDR"},
	})
	if err != nil {
		t.Fatalf("Failed to build test catalog: %v", err)
	}
	return cat
}

// CreateTestParticipant inserts a participant row at the given frontier
func CreateTestParticipant(t *testing.T, conn *sql.DB, sessionID string, frontier int) {
	t.Helper()

	now := time.Now()
	_, err := conn.Exec(`
		INSERT INTO participant (id, frontier, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
	`, sessionID, frontier, now, now)
	if err != nil {
		t.Fatalf("Failed to create test participant: %v", err)
	}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
