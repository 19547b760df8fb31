package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/campus-life-events/server/internal/storage"
	"github.com/jackc/pgx/v5"
)

const eventColumns = `id, organizer_id, title_de, title_en, description_de, description_en, start_date_time, end_date_time, event_url, location, publish_app, publish_newsletter, publish_in_ical, created_at, updated_at`

func (r *EventRepository) List(ctx context.Context, filter storage.ListEventsFilter) ([]storage.Event, error) {
	var conditions []string
	var args []any

	if filter.OrganizerID != nil {
		args = append(args, *filter.OrganizerID)
		conditions = append(conditions, fmt.Sprintf("organizer_id = $%d", len(args)))
	}
	if filter.UpcomingOnly {
		conditions = append(conditions, "start_date_time >= NOW()")
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY start_date_time`

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
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []storage.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func (r *EventRepository) Get(ctx context.Context, id int64) (storage.Event, error) {
	row := r.q().QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.Event{}, storage.ErrNotFound
		}
		return storage.Event{}, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) Create(ctx context.Context, params storage.CreateEventParams) (storage.Event, error) {
	row := r.q().QueryRow(ctx, `
INSERT INTO events (organizer_id, title_de, title_en, description_de, description_en,
                    start_date_time, end_date_time, event_url, location,
                    publish_app, publish_newsletter, publish_in_ical)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING `+eventColumns,
		params.OrganizerID,
		params.TitleDE,
		params.TitleEN,
		params.DescriptionDE,
		params.DescriptionEN,
		params.StartDateTime,
		params.EndDateTime,
		params.EventURL,
		params.Location,
		params.PublishApp,
		params.PublishNewsletter,
		params.PublishInIcal,
	)
	event, err := scanEvent(row)
	if err != nil {
		return storage.Event{}, fmt.Errorf("create event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) Update(ctx context.Context, id int64, params storage.UpdateEventParams) (storage.Event, error) {
	sets := []string{"updated_at = NOW()"}
	args := []any{}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.TitleDE != nil {
		add("title_de", *params.TitleDE)
	}
	if params.TitleEN != nil {
		add("title_en", *params.TitleEN)
	}
	if params.DescriptionDE != nil {
		add("description_de", *params.DescriptionDE)
	}
	if params.DescriptionEN != nil {
		add("description_en", *params.DescriptionEN)
	}
	if params.StartDateTime != nil {
		add("start_date_time", *params.StartDateTime)
	}
	if params.EndDateTime != nil {
		add("end_date_time", *params.EndDateTime)
	}
	if params.EventURL != nil {
		add("event_url", *params.EventURL)
	}
	if params.Location != nil {
		add("location", *params.Location)
	}
	if params.PublishApp != nil {
		add("publish_app", *params.PublishApp)
	}
	if params.PublishNewsletter != nil {
		add("publish_newsletter", *params.PublishNewsletter)
	}
	if params.PublishInIcal != nil {
		add("publish_in_ical", *params.PublishInIcal)
	}

	args = append(args, id)
	query := fmt.Sprintf(
		`UPDATE events SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), eventColumns)

	row := r.q().QueryRow(ctx, query, args...)
	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.Event{}, storage.ErrNotFound
		}
		return storage.Event{}, fmt.Errorf("update event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.q().Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanEvent(row pgx.Row) (storage.Event, error) {
	var e storage.Event
	err := row.Scan(
		&e.ID,
		&e.OrganizerID,
		&e.TitleDE,
		&e.TitleEN,
		&e.DescriptionDE,
		&e.DescriptionEN,
		&e.StartDateTime,
		&e.EndDateTime,
		&e.EventURL,
		&e.Location,
		&e.PublishApp,
		&e.PublishNewsletter,
		&e.PublishInIcal,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	return e, err
}
