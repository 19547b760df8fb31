// Package audit records immutable snapshots of event mutations. Entries are
// written through the same transaction as the mutation they describe, so a
// rolled-back change never leaves a trace and a committed change always does.
package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/campus-life-events/server/internal/apperr"
	"github.com/campus-life-events/server/internal/storage"
)

// Recorder writes audit entries for event mutations. The zero value is not
// usable; construct with NewRecorder.
type Recorder struct{}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record serializes the snapshots and inserts one entry through repo, which
// the caller passes from inside a WithTx scope. Snapshot presence must match
// the audit type: CREATE carries only the new snapshot, DELETE only the old one, UPDATE both. A
// mismatch is a programming error and is reported as internal.
func (r *Recorder) Record(ctx context.Context, repo storage.Repository, auditType storage.AuditType, event storage.Event, userID *int64, oldEvent, newEvent *storage.Event) error {
	if err := checkSnapshots(auditType, oldEvent, newEvent); err != nil {
		return err
	}

	entry := storage.AuditLogEntry{
		EventID:     event.ID,
		OrganizerID: event.OrganizerID,
		UserID:      userID,
		Type:        auditType,
	}

	var err error
	if entry.OldData, err = marshalSnapshot(oldEvent); err != nil {
		return apperr.Internal("record audit entry", err)
	}
	if entry.NewData, err = marshalSnapshot(newEvent); err != nil {
		return apperr.Internal("record audit entry", err)
	}

	if err := repo.AuditLog().Insert(ctx, entry); err != nil {
		return apperr.Internal("record audit entry", err)
	}
	return nil
}

func checkSnapshots(auditType storage.AuditType, oldEvent, newEvent *storage.Event) error {
	var ok bool
	switch auditType {
	case storage.AuditCreate:
		ok = oldEvent == nil && newEvent != nil
	case storage.AuditUpdate:
		ok = oldEvent != nil && newEvent != nil
	case storage.AuditDelete:
		ok = oldEvent != nil && newEvent == nil
	}
	if !ok {
		return apperr.Internal("record audit entry",
			fmt.Errorf("snapshot presence does not match audit type %s", auditType))
	}
	return nil
}

func marshalSnapshot(event *storage.Event) (json.RawMessage, error) {
	if event == nil {
		return nil, nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}
