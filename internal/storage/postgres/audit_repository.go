package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/campus-life-events/server/internal/storage"
)

func (r *AuditLogRepository) Insert(ctx context.Context, entry storage.AuditLogEntry) error {
	_, err := r.q().Exec(ctx, `
INSERT INTO audit_log (event_id, organizer_id, user_id, type, old_data, new_data)
VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.EventID,
		entry.OrganizerID,
		entry.UserID,
		entry.Type,
		entry.OldData,
		entry.NewData,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (r *AuditLogRepository) List(ctx context.Context, filter storage.ListAuditFilter) ([]storage.AuditLogEntry, error) {
	var conditions []string
	var args []any

	if filter.EventID != nil {
		args = append(args, *filter.EventID)
		conditions = append(conditions, fmt.Sprintf("event_id = $%d", len(args)))
	}
	if filter.OrganizerID != nil {
		args = append(args, *filter.OrganizerID)
		conditions = append(conditions, fmt.Sprintf("organizer_id = $%d", len(args)))
	}

	query := `SELECT id, event_id, organizer_id, user_id, type, at, old_data, new_data FROM audit_log`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY at DESC`

	if filter.Limit != nil {
		args = append(args, *filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset != nil {
		args = append(args, *filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.q().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []storage.AuditLogEntry
	for rows.Next() {
		var e storage.AuditLogEntry
		if err := rows.Scan(
			&e.ID,
			&e.EventID,
			&e.OrganizerID,
			&e.UserID,
			&e.Type,
			&e.At,
			&e.OldData,
			&e.NewData,
		); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}
