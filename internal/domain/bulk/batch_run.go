// Package bulk records the spreadsheet batches run against the ledger so every
// upload can be traced back to its log and archived files.
package bulk

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/consorcio/backend/internal/domain/ledger"
	"github.com/consorcio/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Operation names the batch engine that processed a file
type Operation string

const (
	OperationIntake         Operation = "intake"
	OperationReconciliation Operation = "reconciliation"
	OperationCancellation   Operation = "cancellation"
	OperationEdit           Operation = "edit"
	OperationDelete         Operation = "delete"
	OperationClientStatus   Operation = "client_status"
	OperationPayouts        Operation = "payouts"
	OperationRules          Operation = "rules"
	OperationProposal       Operation = "proposal"
)

// IsValid checks if the operation is valid
func (o Operation) IsValid() bool {
	switch o {
	case OperationIntake, OperationReconciliation, OperationCancellation,
		OperationEdit, OperationDelete, OperationClientStatus, OperationPayouts, OperationRules, OperationProposal:
		return true
	}
	return false
}

// RunStatus represents the status of a batch run
type RunStatus string

const (
	RunStatusProcessing RunStatus = "processing"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusRolledBack RunStatus = "rolled_back"
)

// IsTerminal returns true if this is a terminal state
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusRolledBack
}

// BatchRun tracks one processed batch and its outcome
type BatchRun struct {
	ID         uuid.UUID         `json:"id"`
	Operation  Operation         `json:"operation"`
	FileName   string            `json:"file_name"`
	FileSize   int64             `json:"file_size"`
	Processed  int               `json:"processed"`
	Succeeded  int               `json:"succeeded"`
	Blocked    int               `json:"blocked"`
	Ignored    int               `json:"ignored"`
	Errors     int               `json:"errors"`
	Warnings   int               `json:"warnings"`
	Status     RunStatus         `json:"status"`
	Log        []ledger.LogEntry `json:"log,omitempty"`
	UploadKey  string            `json:"upload_key,omitempty"`
	LogKey     string            `json:"log_key,omitempty"`
	RunBy      string            `json:"run_by"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
}

// NewBatchRun starts tracking a batch
func NewBatchRun(op Operation, fileName string, fileSize int64, runBy string) (*BatchRun, error) {
	if !op.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Invalid operation: %s", op))
	}
	if fileSize < 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "File size cannot be negative")
	}
	if runBy == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Batch owner is required")
	}
	return &BatchRun{
		ID:        uuid.New(),
		Operation: op,
		FileName:  fileName,
		FileSize:  fileSize,
		Status:    RunStatusProcessing,
		RunBy:     runBy,
		StartedAt: time.Now(),
	}, nil
}

// Finish stores the report. A report whose single line is the rollback notice marks the run rolled back.
func (r *BatchRun) Finish(report ledger.BatchReport, rolledBack bool) error {
	if r.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot finish from terminal state: %s", r.Status))
	}
	r.Status = RunStatusCompleted
	if rolledBack {
		r.Status = RunStatusRolledBack
	}
	r.Processed = report.Processed
	r.Succeeded = report.Succeeded
	r.Blocked = report.Count(ledger.LogBlocked)
	r.Ignored = report.Count(ledger.LogIgnored)
	r.Errors = report.Count(ledger.LogError)
	r.Warnings = report.Count(ledger.LogWarning)
	r.Log = report.Log
	now := time.Now()
	r.FinishedAt = &now
	return nil
}

// AttachArchive records where the uploaded file and the result log were stored
func (r *BatchRun) AttachArchive(uploadKey, logKey string) {
	r.UploadKey = uploadKey
	r.LogKey = logKey
}

// LogJSON returns the log as a JSON string
func (r *BatchRun) LogJSON() (string, error) {
	if len(r.Log) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(r.Log)
	if err != nil {
		return "", fmt.Errorf("failed to marshal batch log: %w", err)
	}
	return string(data), nil
}

// SetLogFromJSON parses the log from a JSON string
func (r *BatchRun) SetLogFromJSON(jsonStr string) error {
	if jsonStr == "" || jsonStr == "[]" {
		r.Log = nil
		return nil
	}
	var entries []ledger.LogEntry
	if err := json.Unmarshal([]byte(jsonStr), &entries); err != nil {
		return fmt.Errorf("failed to unmarshal batch log: %w", err)
	}
	r.Log = entries
	return nil
}

// Duration returns how long the batch took
func (r *BatchRun) Duration() time.Duration {
	if r.FinishedAt == nil {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
