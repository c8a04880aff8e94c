// Package library persists generated plans in a workspace-local SQLite file.
package library

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"agentplan/internal/planner"
)

// ErrNotFound is returned when a plan id is not in the library.
var ErrNotFound = errors.New("plan not found")

const selectedKey = "selected_plan_id"

// Store manages the plan library in SQLite.
type Store struct {
	DBPath string
	db     *sql.DB
	now    func() time.Time
}

// Revision is a previous version of a plan kept when it was replaced.
type Revision struct {
	PlanID     string
	Plan       planner.AgentPlan
	ReplacedAt time.Time
}

// ImportResult reports which imported ids were new and which replaced
// existing plans.
type ImportResult struct {
	Added    []string `json:"added"`
	Replaced []string `json:"replaced"`
}

// Open opens or creates the library database.
func Open(path string) (*Store, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve library db path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure library db dir: %w", err)
	}

	db, err := sql.Open("sqlite", absPath)
	if err != nil {
		return nil, fmt.Errorf("open library db: %w", err)
	}
	// a single connection serialises writers and keeps transactions simple
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	store := &Store{
		DBPath: absPath,
		db:     db,
		now:    time.Now,
	}
	if err := store.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) ensureSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS plans (
	id TEXT PRIMARY KEY,
	position INTEGER NOT NULL,
	name TEXT NOT NULL,
	payload_json TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_plans_position ON plans(position);

CREATE TABLE IF NOT EXISTS plan_revisions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	plan_id TEXT NOT NULL,
	payload_json TEXT NOT NULL,
	replaced_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_revisions_plan ON plan_revisions(plan_id, id);

CREATE TABLE IF NOT EXISTS library_kv (
	key TEXT PRIMARY KEY,
	value TEXT
);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create library schema: %w", err)
	}
	return nil
}

// Add stores plan at the front of the library and selects it. Adding an id
// that already exists replaces it and moves it to the front.
func (s *Store) Add(plan planner.AgentPlan) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var front sql.NullInt64
	if err := tx.QueryRow("SELECT MIN(position) FROM plans").Scan(&front); err != nil {
		return fmt.Errorf("find front position: %w", err)
	}
	position := int64(0)
	if front.Valid {
		position = front.Int64 - 1
	}

	if err := upsertPlan(tx, plan, position); err != nil {
		return err
	}
	if err := setKV(tx, selectedKey, plan.ID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Remove deletes plan id. It reports whether a plan was removed and clears
// the selection when the removed plan was selected.
func (s *Store) Remove(id string) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec("DELETE FROM plans WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete plan: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete plan: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM plan_revisions WHERE plan_id = ?", id); err != nil {
		return false, fmt.Errorf("delete revisions: %w", err)
	}

	selected, err := getKV(tx, selectedKey)
	if err != nil {
		return false, err
	}
	if selected == id {
		if err := setKV(tx, selectedKey, ""); err != nil {
			return false, err
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit transaction: %w", err)
	}
	return n > 0, nil
}

// Select marks id as the selected plan. An empty id clears the selection.
func (s *Store) Select(id string) error {
	if id != "" {
		if _, err := s.Get(id); err != nil {
			return err
		}
	}
	return setKV(s.db, selectedKey, id)
}

// Selected returns the selected plan id, or "" when nothing is selected.
func (s *Store) Selected() (string, error) {
	return getKV(s.db, selectedKey)
}

// Update replaces the stored plan with the same id, keeping the previous
// version as a revision, and selects it.
func (s *Store) Update(plan planner.AgentPlan) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var position int64
	var previous string
	err = tx.QueryRow("SELECT position, payload_json FROM plans WHERE id = ?", plan.ID).Scan(&position, &previous)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s", ErrNotFound, plan.ID)
	}
	if err != nil {
		return fmt.Errorf("get plan: %w", err)
	}

	if _, err := tx.Exec(
		"INSERT INTO plan_revisions (plan_id, payload_json, replaced_at) VALUES (?, ?, ?)",
		plan.ID, previous, s.now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("insert revision: %w", err)
	}
	if err := upsertPlan(tx, plan, position); err != nil {
		return err
	}
	if err := setKV(tx, selectedKey, plan.ID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Import places plans at the front of the library in the given order,
// followed by existing plans that were not re-imported, and selects the
// first imported plan. Replaced plans keep a revision.
func (s *Store) Import(plans []planner.AgentPlan) (ImportResult, error) {
	var result ImportResult
	if len(plans) == 0 {
		return result, nil
	}

	existing, err := s.List()
	if err != nil {
		return result, err
	}
	stored := make(map[string]string, len(existing))
	for _, p := range existing {
		payload, err := json.Marshal(p)
		if err != nil {
			return result, fmt.Errorf("marshal plan %s: %w", p.ID, err)
		}
		stored[p.ID] = string(payload)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return result, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	imported := make(map[string]struct{}, len(plans))
	position := int64(0)
	replacedAt := s.now().UTC().Format(time.RFC3339Nano)
	for _, p := range plans {
		if _, dup := imported[p.ID]; dup {
			continue
		}
		imported[p.ID] = struct{}{}

		if previous, ok := stored[p.ID]; ok {
			if _, err := tx.Exec(
				"INSERT INTO plan_revisions (plan_id, payload_json, replaced_at) VALUES (?, ?, ?)",
				p.ID, previous, replacedAt,
			); err != nil {
				return result, fmt.Errorf("insert revision: %w", err)
			}
			result.Replaced = append(result.Replaced, p.ID)
		} else {
			result.Added = append(result.Added, p.ID)
		}
		if err := upsertPlan(tx, p, position); err != nil {
			return result, err
		}
		position++
	}
	for _, p := range existing {
		if _, ok := imported[p.ID]; ok {
			continue
		}
		if _, err := tx.Exec("UPDATE plans SET position = ? WHERE id = ?", position, p.ID); err != nil {
			return result, fmt.Errorf("reorder plan %s: %w", p.ID, err)
		}
		position++
	}

	if err := setKV(tx, selectedKey, plans[0].ID); err != nil {
		return result, err
	}
	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("commit transaction: %w", err)
	}
	return result, nil
}

// Reset removes every plan and clears the selection.
func (s *Store) Reset() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		"DELETE FROM plans",
		"DELETE FROM plan_revisions",
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("reset library: %w", err)
		}
	}
	if err := setKV(tx, selectedKey, ""); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// List returns every plan, front of the library first.
func (s *Store) List() ([]planner.AgentPlan, error) {
	rows, err := s.db.Query("SELECT payload_json FROM plans ORDER BY position ASC")
	if err != nil {
		return nil, fmt.Errorf("query plans: %w", err)
	}
	defer rows.Close()

	var plans []planner.AgentPlan
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plan, err := decodePlan(payload)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plans: %w", err)
	}
	return plans, nil
}

// Get returns plan id.
func (s *Store) Get(id string) (planner.AgentPlan, error) {
	var payload string
	err := s.db.QueryRow("SELECT payload_json FROM plans WHERE id = ?", id).Scan(&payload)
	if err == sql.ErrNoRows {
		return planner.AgentPlan{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return planner.AgentPlan{}, fmt.Errorf("get plan: %w", err)
	}
	return decodePlan(payload)
}

// Active returns the selected plan, or the front plan when nothing valid is
// selected.
func (s *Store) Active() (planner.AgentPlan, error) {
	selected, err := s.Selected()
	if err != nil {
		return planner.AgentPlan{}, err
	}
	if selected != "" {
		plan, err := s.Get(selected)
		if err == nil {
			return plan, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return planner.AgentPlan{}, err
		}
	}

	var payload string
	err = s.db.QueryRow("SELECT payload_json FROM plans ORDER BY position ASC LIMIT 1").Scan(&payload)
	if err == sql.ErrNoRows {
		return planner.AgentPlan{}, fmt.Errorf("%w: library is empty", ErrNotFound)
	}
	if err != nil {
		return planner.AgentPlan{}, fmt.Errorf("get front plan: %w", err)
	}
	return decodePlan(payload)
}

// Revisions returns previous versions of plan id, newest first.
func (s *Store) Revisions(id string) ([]Revision, error) {
	rows, err := s.db.Query(
		"SELECT payload_json, replaced_at FROM plan_revisions WHERE plan_id = ? ORDER BY id DESC",
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("query revisions: %w", err)
	}
	defer rows.Close()

	var revisions []Revision
	for rows.Next() {
		var payload string
		var replacedAt sql.NullString
		if err := rows.Scan(&payload, &replacedAt); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		plan, err := decodePlan(payload)
		if err != nil {
			return nil, err
		}
		rev := Revision{PlanID: id, Plan: plan}
		if replacedAt.Valid {
			rev.ReplacedAt, _ = time.Parse(time.RFC3339Nano, replacedAt.String)
		}
		revisions = append(revisions, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revisions: %w", err)
	}
	return revisions, nil
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

func upsertPlan(db execer, plan planner.AgentPlan, position int64) error {
	payload, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}
	_, err = db.Exec(`
		INSERT OR REPLACE INTO plans (id, position, name, payload_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, plan.ID, position, plan.Name, string(payload), plan.CreatedAt, plan.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store plan %s: %w", plan.ID, err)
	}
	return nil
}

func decodePlan(payload string) (planner.AgentPlan, error) {
	var plan planner.AgentPlan
	if err := json.Unmarshal([]byte(payload), &plan); err != nil {
		return planner.AgentPlan{}, fmt.Errorf("decode plan: %w", err)
	}
	return plan, nil
}

func getKV(db execer, key string) (string, error) {
	var value sql.NullString
	err := db.QueryRow("SELECT value FROM library_kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get kv: %w", err)
	}
	return value.String, nil
}

func setKV(db execer, key, value string) error {
	_, err := db.Exec(`
		INSERT OR REPLACE INTO library_kv (key, value)
		VALUES (?, ?)
	`, key, value)
	if err != nil {
		return fmt.Errorf("set kv: %w", err)
	}
	return nil
}
