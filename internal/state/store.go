package state

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/danielpatrickdp/agit/internal/policy"
	"github.com/danielpatrickdp/agit/internal/record"
	"github.com/danielpatrickdp/agit/internal/token"
	"github.com/danielpatrickdp/agit/internal/topology"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record or repo head does not exist.
var ErrNotFound = errors.New("not found")

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS commit_records (
	record_id   TEXT PRIMARY KEY,
	parent_id   TEXT,
	repo        TEXT NOT NULL,
	action      TEXT NOT NULL,
	tokens      TEXT NOT NULL,
	symbol      TEXT NOT NULL,
	kappa       INTEGER NOT NULL,
	sigma       INTEGER NOT NULL,
	delta       INTEGER NOT NULL,
	locale      TEXT NOT NULL,
	fallback    INTEGER NOT NULL DEFAULT 0,
	subject     TEXT NOT NULL,
	detail      TEXT,
	fitness     REAL NOT NULL,
	reasoning   TEXT,
	message     TEXT NOT NULL,
	commit_sha  TEXT,
	status      TEXT NOT NULL,
	error       TEXT,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL,
	FOREIGN KEY (parent_id) REFERENCES commit_records(record_id)
);

CREATE INDEX IF NOT EXISTS commit_records_repo ON commit_records(repo);

CREATE TABLE IF NOT EXISTS fitness_history (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	repo        TEXT NOT NULL,
	score       REAL NOT NULL,
	created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS provenance_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	record_id     TEXT,
	repo          TEXT NOT NULL,
	trigger_type  TEXT NOT NULL,
	tick_json     TEXT,
	decision      TEXT NOT NULL,
	reason        TEXT,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (record_id) REFERENCES commit_records(record_id)
);

CREATE TABLE IF NOT EXISTS repo_head (
	repo        TEXT PRIMARY KEY,
	record_id   TEXT NOT NULL,
	FOREIGN KEY (record_id) REFERENCES commit_records(record_id)
);
`

// #endregion schema

// #region store-struct
// Store is the SQLite ledger of records, fitness history and tick provenance.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #region save-record
// SaveRecord stores a new pending record and advances the repo head atomically.
// The previous head becomes the parent.
func (s *Store) SaveRecord(repo string, rec record.Record) (StoredRecord, error) {
	now := time.Now().UTC()
	stored := StoredRecord{
		Record:    rec,
		ID:        uuid.New().String(),
		Repo:      repo,
		Message:   rec.Message(),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return StoredRecord{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var parent sql.NullString
	err = tx.QueryRow(`SELECT record_id FROM repo_head WHERE repo = ?`, repo).Scan(&parent)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return StoredRecord{}, fmt.Errorf("get head: %w", err)
	}
	if parent.Valid {
		stored.ParentID = parent.String
	}

	_, err = tx.Exec(
		`INSERT INTO commit_records (record_id, parent_id, repo, action, tokens, symbol, kappa, sigma, delta,
		 locale, fallback, subject, detail, fitness, reasoning, message, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stored.ID, nullIfEmpty(stored.ParentID), repo, string(rec.Action), rec.Tokens.String(), string(rec.Symbol),
		rec.Coordinate.Kappa, rec.Coordinate.Sigma, rec.Coordinate.Delta,
		rec.Locale, rec.Fallback, rec.Subject, nullIfEmpty(rec.Detail), rec.Fitness, nullIfEmpty(rec.Reasoning),
		stored.Message, string(stored.Status), now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return StoredRecord{}, fmt.Errorf("insert record: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO repo_head (repo, record_id) VALUES (?, ?)
		 ON CONFLICT(repo) DO UPDATE SET record_id = excluded.record_id`,
		repo, stored.ID,
	)
	if err != nil {
		return StoredRecord{}, fmt.Errorf("set head: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return StoredRecord{}, fmt.Errorf("commit: %w", err)
	}
	return stored, nil
}

// #endregion save-record

// #region mark-status
// MarkStatus records the backend outcome for a stored record.
func (s *Store) MarkStatus(id string, status Status, commitSHA, errText string) error {
	res, err := s.db.Exec(
		`UPDATE commit_records SET status = ?, commit_sha = COALESCE(?, commit_sha), error = ?, updated_at = ?
		 WHERE record_id = ?`,
		string(status), nullIfEmpty(commitSHA), nullIfEmpty(errText), time.Now().UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("mark status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	return nil
}

// #endregion mark-status

// #region get-record
const recordColumns = `record_id, parent_id, repo, action, tokens, symbol, kappa, sigma, delta, locale, fallback,
	subject, detail, fitness, reasoning, message, commit_sha, status, error, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (StoredRecord, error) {
	var (
		rec                            StoredRecord
		parentID, detail, reasoning    sql.NullString
		commitSHA, errText             sql.NullString
		action, tokens, symbol, status string
		createdStr, updatedStr         string
	)
	err := row.Scan(&rec.ID, &parentID, &rec.Repo, &action, &tokens, &symbol,
		&rec.Coordinate.Kappa, &rec.Coordinate.Sigma, &rec.Coordinate.Delta,
		&rec.Locale, &rec.Fallback, &rec.Subject, &detail, &rec.Fitness, &reasoning,
		&rec.Message, &commitSHA, &status, &errText, &createdStr, &updatedStr)
	if err != nil {
		return StoredRecord{}, err
	}

	rec.Action = policy.Action(action)
	rec.Status = Status(status)
	rec.ParentID = parentID.String
	rec.Detail = detail.String
	rec.Reasoning = reasoning.String
	rec.CommitSHA = commitSHA.String
	rec.Error = errText.String
	if seq, err := token.ParseNames(tokens); err == nil {
		rec.Tokens = seq
	}
	if r := []rune(symbol); len(r) == 1 && topology.InAlphabet(r[0]) {
		rec.Symbol = r[0]
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedStr)
	return rec, nil
}

// GetRecord retrieves one record by ID.
func (s *Store) GetRecord(id string) (StoredRecord, error) {
	rec, err := scanRecord(s.db.QueryRow(`SELECT `+recordColumns+` FROM commit_records WHERE record_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return StoredRecord{}, fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return StoredRecord{}, fmt.Errorf("get record %s: %w", id, err)
	}
	return rec, nil
}

// GetHead reads the most recent record of a repo.
func (s *Store) GetHead(repo string) (StoredRecord, error) {
	var id string
	err := s.db.QueryRow(`SELECT record_id FROM repo_head WHERE repo = ?`, repo).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredRecord{}, fmt.Errorf("head of %s: %w", repo, ErrNotFound)
	}
	if err != nil {
		return StoredRecord{}, fmt.Errorf("get head: %w", err)
	}
	return s.GetRecord(id)
}

// #endregion get-record

// #region list-records
// ListRecords returns the most recent records, newest first. An empty repo lists all.
func (s *Store) ListRecords(repo string, limit int) ([]StoredRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM commit_records`
	var args []any
	if repo != "" {
		query += ` WHERE repo = ?`
		args = append(args, repo)
	}
	query += ` ORDER BY rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []StoredRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Pending returns records the backend has not finished with, oldest first.
func (s *Store) Pending(repo string) ([]StoredRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+recordColumns+` FROM commit_records
		 WHERE repo = ? AND status IN (?, ?) ORDER BY rowid ASC`,
		repo, string(StatusPending), string(StatusFailed),
	)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	defer rows.Close()

	var records []StoredRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion list-records

// #region fitness-history
// AppendFitness persists one history entry.
func (s *Store) AppendFitness(repo string, score float64) error {
	_, err := s.db.Exec(
		`INSERT INTO fitness_history (repo, score, created_at) VALUES (?, ?, ?)`,
		repo, score, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append fitness: %w", err)
	}
	return nil
}

// RecentFitness returns up to n of the newest scores, oldest first, for ring restore.
func (s *Store) RecentFitness(repo string, n int) ([]float64, error) {
	rows, err := s.db.Query(
		`SELECT score FROM (
			SELECT id, score FROM fitness_history WHERE repo = ? ORDER BY id DESC LIMIT ?
		 ) ORDER BY id ASC`, repo, n,
	)
	if err != nil {
		return nil, fmt.Errorf("recent fitness: %w", err)
	}
	defer rows.Close()

	var scores []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		scores = append(scores, v)
	}
	return scores, rows.Err()
}

// PruneFitness keeps only the newest keep entries of a repo.
func (s *Store) PruneFitness(repo string, keep int) (int64, error) {
	res, err := s.db.Exec(
		`DELETE FROM fitness_history WHERE repo = ? AND id NOT IN (
			SELECT id FROM fitness_history WHERE repo = ? ORDER BY id DESC LIMIT ?
		 )`, repo, repo, keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune fitness: %w", err)
	}
	return res.RowsAffected()
}

// #endregion fitness-history

// #region helpers
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
