package logging

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// #region log-decision
// LogDecision writes a provenance entry to the provenance_log table.
func LogDecision(db *sql.DB, entry ProvenanceEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO provenance_log (record_id, repo, trigger_type, tick_json, decision, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		nullIfEmpty(entry.RecordID),
		entry.Repo,
		entry.TriggerType,
		nullIfEmpty(entry.TickJSON),
		entry.Decision,
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// LogTick serializes the tick and writes it as one provenance entry.
func LogTick(db *sql.DB, repo, trigger, recordID string, tick TickRecord) error {
	data, err := json.Marshal(tick)
	if err != nil {
		return fmt.Errorf("marshal tick: %w", err)
	}
	return LogDecision(db, ProvenanceEntry{
		RecordID:    recordID,
		Repo:        repo,
		TriggerType: trigger,
		TickJSON:    string(data),
		Decision:    string(tick.Action),
		Reason:      tick.Reason,
	})
}

// #endregion log-decision

// #region read-ticks
// ReadTicks returns the newest logged ticks of a repo, oldest first.
func ReadTicks(db *sql.DB, repo string, limit int) ([]TickRecord, error) {
	rows, err := db.Query(
		`SELECT tick_json FROM (
			SELECT id, tick_json FROM provenance_log
			WHERE repo = ? AND tick_json IS NOT NULL ORDER BY id DESC LIMIT ?
		 ) ORDER BY id ASC`, repo, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("read ticks: %w", err)
	}
	defer rows.Close()

	var ticks []TickRecord
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan tick: %w", err)
		}
		var tick TickRecord
		if err := json.Unmarshal([]byte(raw), &tick); err != nil {
			return nil, fmt.Errorf("unmarshal tick: %w", err)
		}
		ticks = append(ticks, tick)
	}
	return ticks, rows.Err()
}

// #endregion read-ticks

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
