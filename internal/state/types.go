package state

import (
	"time"

	"github.com/danielpatrickdp/agit/internal/record"
)

// #region status
// Status tracks a stored record through the repository backend.
type Status string

const (
	StatusPending    Status = "pending"   // built, not yet handed to git
	StatusCommitted  Status = "committed" // local commit created
	StatusGhosted    Status = "ghosted"   // written to the ghost ref, never pushed
	StatusPushed     Status = "pushed"
	StatusFailed     Status = "failed"     // backend gave up; the record can be retried
	StatusSuperseded Status = "superseded" // nothing left to commit when retried
)

// #endregion status

// #region stored-record
// StoredRecord is a commit record as kept in the ledger.
type StoredRecord struct {
	record.Record
	ID        string    `json:"id"`
	ParentID  string    `json:"parent_id,omitempty"`
	Repo      string    `json:"repo"`
	Message   string    `json:"message"`
	CommitSHA string    `json:"commit_sha,omitempty"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// #endregion stored-record
