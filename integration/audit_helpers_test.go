package integration_test

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

func loadAuditTypes(t *testing.T, dbPath string) map[string]int {
	t.Helper()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open audit db: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	rows, err := db.Query("SELECT type, COUNT(*) FROM events GROUP BY type")
	if err != nil {
		t.Fatalf("query audit events: %v", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	types := make(map[string]int)
	for rows.Next() {
		var eventType string
		var count int
		if err := rows.Scan(&eventType, &count); err != nil {
			t.Fatalf("scan audit event: %v", err)
		}
		types[eventType] = count
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("iterate audit events: %v", err)
	}
	return types
}

func requireAuditEvents(t *testing.T, dbPath string, want []string) {
	t.Helper()
	types := loadAuditTypes(t, dbPath)
	for _, eventType := range want {
		if types[eventType] == 0 {
			t.Fatalf("missing audit event %s in %s", eventType, dbPath)
		}
	}
}

// requireSessionIDs checks that every CLI event carries a session id and that
// started/finished pairs share an invocation id.
func requireSessionIDs(t *testing.T, dbPath string) {
	t.Helper()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open audit db: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	var missing int
	if err := db.QueryRow("SELECT COUNT(*) FROM events WHERE session_id = ''").Scan(&missing); err != nil {
		t.Fatalf("count events without session: %v", err)
	}
	if missing > 0 {
		t.Fatalf("%d audit events without session id in %s", missing, dbPath)
	}

	var unpaired int
	err = db.QueryRow(`
		SELECT COUNT(*) FROM events s
		WHERE s.type LIKE '%\_started' ESCAPE '\'
		AND NOT EXISTS (
			SELECT 1 FROM events f
			WHERE f.type = substr(s.type, 1, length(s.type) - length('_started')) || '_finished'
			AND json_extract(f.payload_json, '$.invocation_id') = json_extract(s.payload_json, '$.invocation_id')
		)
	`).Scan(&unpaired)
	if err != nil {
		t.Fatalf("count unpaired events: %v", err)
	}
	if unpaired > 0 {
		t.Fatalf("%d started events without a matching finished event in %s", unpaired, dbPath)
	}
}
