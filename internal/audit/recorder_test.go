package audit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/campus-life-events/server/internal/apperr"
	"github.com/campus-life-events/server/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureAuditLog struct {
	entries []storage.AuditLogEntry
}

func (c *captureAuditLog) Insert(_ context.Context, entry storage.AuditLogEntry) error {
	c.entries = append(c.entries, entry)
	return nil
}

func (c *captureAuditLog) List(context.Context, storage.ListAuditFilter) ([]storage.AuditLogEntry, error) {
	return c.entries, nil
}

type fakeRepo struct {
	storage.Repository
	audit *captureAuditLog
}

func (f *fakeRepo) AuditLog() storage.AuditLogRepository {
	return f.audit
}

func testEvent() storage.Event {
	return storage.Event{
		ID:            42,
		OrganizerID:   7,
		TitleDE:       "Sommerfest",
		TitleEN:       "Summer party",
		StartDateTime: time.Date(2026, 7, 1, 18, 0, 0, 0, time.UTC),
	}
}

func TestRecordCreate(t *testing.T) {
	repo := &fakeRepo{audit: &captureAuditLog{}}
	recorder := NewRecorder()
	event := testEvent()
	userID := int64(3)

	err := recorder.Record(context.Background(), repo, storage.AuditCreate, event, &userID, nil, &event)
	require.NoError(t, err)
	require.Len(t, repo.audit.entries, 1)

	entry := repo.audit.entries[0]
	assert.Equal(t, int64(42), entry.EventID)
	assert.Equal(t, int64(7), entry.OrganizerID)
	assert.Equal(t, storage.AuditCreate, entry.Type)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, int64(3), *entry.UserID)
	assert.Nil(t, entry.OldData)

	var snapshot storage.Event
	require.NoError(t, json.Unmarshal(entry.NewData, &snapshot))
	assert.Equal(t, "Sommerfest", snapshot.TitleDE)
}

func TestRecordUpdateKeepsBothSnapshots(t *testing.T) {
	repo := &fakeRepo{audit: &captureAuditLog{}}
	recorder := NewRecorder()
	before := testEvent()
	after := before
	after.TitleEN = "Summer festival"

	err := recorder.Record(context.Background(), repo, storage.AuditUpdate, after, nil, &before, &after)
	require.NoError(t, err)
	require.Len(t, repo.audit.entries, 1)

	entry := repo.audit.entries[0]
	assert.Nil(t, entry.UserID)
	require.NotNil(t, entry.OldData)
	require.NotNil(t, entry.NewData)

	var oldSnapshot, newSnapshot storage.Event
	require.NoError(t, json.Unmarshal(entry.OldData, &oldSnapshot))
	require.NoError(t, json.Unmarshal(entry.NewData, &newSnapshot))
	assert.Equal(t, "Summer party", oldSnapshot.TitleEN)
	assert.Equal(t, "Summer festival", newSnapshot.TitleEN)
}

func TestRecordDelete(t *testing.T) {
	repo := &fakeRepo{audit: &captureAuditLog{}}
	recorder := NewRecorder()
	event := testEvent()

	err := recorder.Record(context.Background(), repo, storage.AuditDelete, event, nil, &event, nil)
	require.NoError(t, err)
	require.Len(t, repo.audit.entries, 1)
	assert.NotNil(t, repo.audit.entries[0].OldData)
	assert.Nil(t, repo.audit.entries[0].NewData)
}

func TestRecordRejectsSnapshotMismatch(t *testing.T) {
	repo := &fakeRepo{audit: &captureAuditLog{}}
	recorder := NewRecorder()
	event := testEvent()

	tests := []struct {
		name      string
		auditType storage.AuditType
		old       *storage.Event
		new       *storage.Event
	}{
		{"create with old snapshot", storage.AuditCreate, &event, &event},
		{"create without new snapshot", storage.AuditCreate, nil, nil},
		{"update missing old snapshot", storage.AuditUpdate, nil, &event},
		{"delete with new snapshot", storage.AuditDelete, &event, &event},
		{"unknown type", storage.AuditType("TRUNCATE"), &event, &event},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := recorder.Record(context.Background(), repo, tt.auditType, event, nil, tt.old, tt.new)
			require.Error(t, err)
			var appErr *apperr.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperr.KindInternal, appErr.Kind)
			assert.Empty(t, repo.audit.entries)
		})
	}
}
