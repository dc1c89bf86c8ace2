package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/macrominded/coach-admin/pkg/errors"
)

// AuditService writes impersonation grants to the audit sink.
// Record is called synchronously on the grant path, before the token is
// returned; a write failure aborts the whole grant rather than degrading
// to best-effort.
type AuditService struct {
	repo AuditRepository
}

// NewAuditService creates a new audit service
func NewAuditService(repo AuditRepository) *AuditService {
	return &AuditService{
		repo: repo,
	}
}

// RecordImpersonation appends an impersonation entry for the given grant.
// Returns ErrCodeAuditWriteFailed when the sink rejects the write; callers
// must treat that as fatal to the grant.
func (s *AuditService) RecordImpersonation(ctx context.Context, adminID, targetUserID uuid.UUID) (Entry, error) {
	entry := Entry{
		Action:       ActionImpersonate,
		AdminID:      adminID,
		TargetUserID: targetUserID,
		Timestamp:    time.Now().UTC(),
	}

	saved, err := s.repo.AppendEntry(ctx, entry)
	if err != nil {
		slog.Error("audit write failed, aborting grant",
			"adminId", adminID,
			"targetUserId", targetUserID,
			"err", err)
		return Entry{}, errors.Wrap(err, errors.ErrCodeAuditWriteFailed, "failed to record impersonation grant")
	}

	slog.Info("impersonation grant recorded",
		"auditId", saved.ID,
		"adminId", adminID,
		"targetUserId", targetUserID)

	return saved, nil
}

// FindEntries lists recorded entries for the security-review view
func (s *AuditService) FindEntries(ctx context.Context) ([]Entry, error) {
	return s.repo.FindEntries(ctx)
}
