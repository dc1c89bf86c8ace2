package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileAuditRepository_AppendAndFind(t *testing.T) {
	dataDir := t.TempDir()
	repo, err := NewFileAuditRepository(dataDir)
	require.NoError(t, err)
	ctx := context.Background()

	entry, err := repo.AppendEntry(ctx, Entry{
		Action:       ActionImpersonate,
		AdminID:      uuid.New(),
		TargetUserID: uuid.New(),
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, entry.ID)
	assert.False(t, entry.Timestamp.IsZero())

	entries, err := repo.FindEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entry.ID, entries[0].ID)
}

func TestFileAuditRepository_PersistsAcrossReload(t *testing.T) {
	dataDir := t.TempDir()
	ctx := context.Background()

	repo, err := NewFileAuditRepository(dataDir)
	require.NoError(t, err)

	entry, err := repo.AppendEntry(ctx, Entry{
		Action:       ActionImpersonate,
		AdminID:      uuid.New(),
		TargetUserID: uuid.New(),
		Timestamp:    time.Now().UTC(),
	})
	require.NoError(t, err)

	// A fresh repository over the same directory sees the entry
	reloaded, err := NewFileAuditRepository(dataDir)
	require.NoError(t, err)

	entries, err := reloaded.FindEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entry.ID, entries[0].ID)
	assert.Equal(t, entry.AdminID, entries[0].AdminID)
	assert.Equal(t, entry.TargetUserID, entries[0].TargetUserID)
}
