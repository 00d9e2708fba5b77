package batch

import (
	"context"
	"time"

	"github.com/consorcio/backend/internal/domain/bulk"
	"github.com/consorcio/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// RunQuery lists batch runs
type RunQuery struct {
	shared.Filter
	Operation string
	RunBy     string
}

// DownloadLink is a presigned URL to an archived object
type DownloadLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HistoryService reads recorded batch runs
type HistoryService struct {
	runs          bulk.BatchRunRepository
	archive       ArchiveStore
	presignExpiry time.Duration
}

// NewHistoryService creates a history service. archive may be nil.
func NewHistoryService(runs bulk.BatchRunRepository, archive ArchiveStore, presignExpiry time.Duration) *HistoryService {
	if presignExpiry <= 0 {
		presignExpiry = DefaultPresignExpiry
	}
	return &HistoryService{runs: runs, archive: archive, presignExpiry: presignExpiry}
}

// List returns a page of runs without their logs, newest first
func (s *HistoryService) List(ctx context.Context, q RunQuery) (shared.Paginated[bulk.BatchRun], error) {
	if q.Operation != "" && !bulk.Operation(q.Operation).IsValid() {
		return shared.Paginated[bulk.BatchRun]{}, shared.NewDomainError("INVALID_INPUT", "unknown batch operation: "+q.Operation)
	}
	if q.OrderBy == "" {
		q.OrderBy, q.OrderDir = "started_at", "desc"
	}
	runs, total, err := s.runs.Find(ctx, bulk.BatchRunFilter{
		Filter:    q.Filter,
		Operation: bulk.Operation(q.Operation),
		RunBy:     q.RunBy,
	})
	if err != nil {
		return shared.Paginated[bulk.BatchRun]{}, err
	}
	return shared.NewPaginated(runs, total, q.Page, q.PageSize), nil
}

// Get returns a run with its log
func (s *HistoryService) Get(ctx context.Context, id uuid.UUID) (*bulk.BatchRun, error) {
	return s.runs.FindByID(ctx, id)
}

// LogDownload presigns the archived log of a run
func (s *HistoryService) LogDownload(ctx context.Context, id uuid.UUID) (*DownloadLink, error) {
	return s.download(ctx, id, func(r *bulk.BatchRun) string { return r.LogKey })
}

// UploadDownload presigns the archived upload of a run
func (s *HistoryService) UploadDownload(ctx context.Context, id uuid.UUID) (*DownloadLink, error) {
	return s.download(ctx, id, func(r *bulk.BatchRun) string { return r.UploadKey })
}

func (s *HistoryService) download(ctx context.Context, id uuid.UUID, key func(*bulk.BatchRun) string) (*DownloadLink, error) {
	if s.archive == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "archive storage is disabled")
	}
	run, err := s.runs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	k := key(run)
	if k == "" {
		return nil, shared.NewDomainError("NOT_FOUND", "the run has no archived file")
	}
	url, expiresAt, err := s.archive.GenerateDownloadURL(ctx, k, s.presignExpiry)
	if err != nil {
		return nil, err
	}
	return &DownloadLink{URL: url, ExpiresAt: expiresAt}, nil
}
