package audit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macrominded/coach-admin/pkg/errors"
)

func TestAuditService_RecordImpersonation(t *testing.T) {
	repo := NewInMemAuditRepository()
	service := NewAuditService(repo)
	ctx := context.Background()

	adminID := uuid.New()
	targetID := uuid.New()

	entry, err := service.RecordImpersonation(ctx, adminID, targetID)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, entry.ID)
	assert.Equal(t, ActionImpersonate, entry.Action)
	assert.Equal(t, adminID, entry.AdminID)
	assert.Equal(t, targetID, entry.TargetUserID)
	assert.WithinDuration(t, time.Now().UTC(), entry.Timestamp, time.Second)

	entries, err := service.FindEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entry.ID, entries[0].ID)
}

func TestAuditService_WriteFailureIsFatal(t *testing.T) {
	repo := NewInMemAuditRepository()
	service := NewAuditService(repo)
	ctx := context.Background()

	repo.FailNextAppend(fmt.Errorf("sink unavailable"))

	_, err := service.RecordImpersonation(ctx, uuid.New(), uuid.New())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAuditWriteFailed))

	// Nothing may be recorded on failure
	entries, err := service.FindEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAuditService_FindEntriesNewestFirst(t *testing.T) {
	repo := NewInMemAuditRepository()
	service := NewAuditService(repo)
	ctx := context.Background()

	first, err := repo.AppendEntry(ctx, Entry{
		Action:       ActionImpersonate,
		AdminID:      uuid.New(),
		TargetUserID: uuid.New(),
		Timestamp:    time.Now().UTC().Add(-time.Hour),
	})
	require.NoError(t, err)

	second, err := repo.AppendEntry(ctx, Entry{
		Action:       ActionImpersonate,
		AdminID:      uuid.New(),
		TargetUserID: uuid.New(),
		Timestamp:    time.Now().UTC(),
	})
	require.NoError(t, err)

	entries, err := service.FindEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, second.ID, entries[0].ID)
	assert.Equal(t, first.ID, entries[1].ID)
}
