package models

import (
	"time"

	"github.com/consorcio/backend/internal/domain/bulk"
	"github.com/google/uuid"
)

// BatchRunModel is the persistence model for the BatchRun domain entity.
type BatchRunModel struct {
	ID         uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Operation  bulk.Operation `gorm:"column:operation;type:varchar(30);not null;index"`
	FileName   string         `gorm:"column:file_name;type:varchar(255)"`
	FileSize   int64          `gorm:"column:file_size;not null;default:0"`
	Processed  int            `gorm:"column:processed;not null;default:0"`
	Succeeded  int            `gorm:"column:succeeded;not null;default:0"`
	Blocked    int            `gorm:"column:blocked;not null;default:0"`
	Ignored    int            `gorm:"column:ignored;not null;default:0"`
	Errors     int            `gorm:"column:errors;not null;default:0"`
	Warnings   int            `gorm:"column:warnings;not null;default:0"`
	Status     bulk.RunStatus `gorm:"column:status;type:varchar(20);not null"`
	Log        string         `gorm:"column:log;type:jsonb;default:'[]'"`
	UploadKey  string         `gorm:"column:upload_key;type:varchar(500)"`
	LogKey     string         `gorm:"column:log_key;type:varchar(500)"`
	RunBy      string         `gorm:"column:run_by;type:varchar(50);not null;index"`
	StartedAt  time.Time      `gorm:"column:started_at;not null;index"`
	FinishedAt *time.Time     `gorm:"column:finished_at"`
}

// TableName returns the table name for GORM
func (BatchRunModel) TableName() string {
	return "batch_runs"
}

// ToDomain converts the persistence model to a domain BatchRun entity.
func (m *BatchRunModel) ToDomain() (*bulk.BatchRun, error) {
	run := &bulk.BatchRun{
		ID:         m.ID,
		Operation:  m.Operation,
		FileName:   m.FileName,
		FileSize:   m.FileSize,
		Processed:  m.Processed,
		Succeeded:  m.Succeeded,
		Blocked:    m.Blocked,
		Ignored:    m.Ignored,
		Errors:     m.Errors,
		Warnings:   m.Warnings,
		Status:     m.Status,
		UploadKey:  m.UploadKey,
		LogKey:     m.LogKey,
		RunBy:      m.RunBy,
		StartedAt:  m.StartedAt,
		FinishedAt: m.FinishedAt,
	}
	if err := run.SetLogFromJSON(m.Log); err != nil {
		return nil, err
	}
	return run, nil
}

// BatchRunModelFromDomain creates a persistence model from a domain BatchRun entity.
func BatchRunModelFromDomain(r *bulk.BatchRun) (*BatchRunModel, error) {
	log, err := r.LogJSON()
	if err != nil {
		return nil, err
	}
	return &BatchRunModel{
		ID:         r.ID,
		Operation:  r.Operation,
		FileName:   r.FileName,
		FileSize:   r.FileSize,
		Processed:  r.Processed,
		Succeeded:  r.Succeeded,
		Blocked:    r.Blocked,
		Ignored:    r.Ignored,
		Errors:     r.Errors,
		Warnings:   r.Warnings,
		Status:     r.Status,
		Log:        log,
		UploadKey:  r.UploadKey,
		LogKey:     r.LogKey,
		RunBy:      r.RunBy,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}, nil
}

// AllModels lists every model, in dependency order, for AutoMigrate in tests
func AllModels() []any {
	return []any{
		&UserModel{},
		&ClientModel{},
		&RuleSetModel{},
		&InstallmentModel{},
		&ProposalModel{},
		&BatchRunModel{},
	}
}
