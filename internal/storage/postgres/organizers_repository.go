package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/campus-life-events/server/internal/storage"
	"github.com/jackc/pgx/v5"
)

const organizerColumns = `id, name, description_de, description_en, website_url, instagram_url, location, newsletter, created_at, updated_at`

func (r *OrganizerRepository) List(ctx context.Context) ([]storage.Organizer, error) {
	rows, err := r.q().Query(ctx, `SELECT `+organizerColumns+` FROM organizers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list organizers: %w", err)
	}
	defer rows.Close()
	return collectOrganizers(rows)
}

func (r *OrganizerRepository) Get(ctx context.Context, id int64) (storage.Organizer, error) {
	row := r.q().QueryRow(ctx, `SELECT `+organizerColumns+` FROM organizers WHERE id = $1`, id)
	organizer, err := scanOrganizer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.Organizer{}, storage.ErrNotFound
		}
		return storage.Organizer{}, fmt.Errorf("get organizer: %w", err)
	}
	return organizer, nil
}

func (r *OrganizerRepository) Create(ctx context.Context, name string) (storage.Organizer, error) {
	row := r.q().QueryRow(ctx,
		`INSERT INTO organizers (name) VALUES ($1) RETURNING `+organizerColumns, name)
	organizer, err := scanOrganizer(row)
	if err != nil {
		return storage.Organizer{}, fmt.Errorf("create organizer: %w", err)
	}
	return organizer, nil
}

// Update builds the SET clause from whichever fields are present. Dynamic SQL
// stays confined to this CRUD layer; token and session state changes
// elsewhere are always full-row conditional writes.
func (r *OrganizerRepository) Update(ctx context.Context, id int64, params storage.UpdateOrganizerParams) (storage.Organizer, error) {
	sets := []string{"updated_at = NOW()"}
	args := []any{}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.Name != nil {
		add("name", *params.Name)
	}
	if params.DescriptionDE != nil {
		add("description_de", *params.DescriptionDE)
	}
	if params.DescriptionEN != nil {
		add("description_en", *params.DescriptionEN)
	}
	if params.WebsiteURL != nil {
		add("website_url", *params.WebsiteURL)
	}
	if params.InstagramURL != nil {
		add("instagram_url", *params.InstagramURL)
	}
	if params.Location != nil {
		add("location", *params.Location)
	}
	if params.Newsletter != nil {
		add("newsletter", *params.Newsletter)
	}

	args = append(args, id)
	query := fmt.Sprintf(
		`UPDATE organizers SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), organizerColumns)

	row := r.q().QueryRow(ctx, query, args...)
	organizer, err := scanOrganizer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.Organizer{}, storage.ErrNotFound
		}
		return storage.Organizer{}, fmt.Errorf("update organizer: %w", err)
	}
	return organizer, nil
}

func (r *OrganizerRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.q().Exec(ctx, `DELETE FROM organizers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete organizer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *OrganizerRepository) ListWithInviteStatus(ctx context.Context) ([]storage.OrganizerWithInvite, error) {
	rows, err := r.q().Query(ctx, `
SELECT o.id, o.name, a.email, a.password_hash IS NOT NULL, a.setup_token, a.setup_token_expires_at, o.created_at, o.updated_at
  FROM organizers o
  LEFT JOIN accounts a ON a.organizer_id = o.id AND a.account_type = 'ORGANIZER'
 ORDER BY o.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list organizers with invite status: %w", err)
	}
	defer rows.Close()

	var result []storage.OrganizerWithInvite
	for rows.Next() {
		var o storage.OrganizerWithInvite
		var initialized *bool
		if err := rows.Scan(
			&o.OrganizerID,
			&o.OrganizerName,
			&o.AccountEmail,
			&initialized,
			&o.SetupToken,
			&o.SetupTokenExpiresAt,
			&o.CreatedAt,
			&o.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("list organizers with invite status: %w", err)
		}
		if initialized != nil {
			o.Initialized = *initialized
		}
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list organizers with invite status: %w", err)
	}
	return result, nil
}

func (r *OrganizerRepository) NewsletterEnabled(ctx context.Context, id int64) (bool, error) {
	var newsletter bool
	err := r.q().QueryRow(ctx, `SELECT newsletter FROM organizers WHERE id = $1`, id).Scan(&newsletter)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check newsletter access: %w", err)
	}
	return newsletter, nil
}

func scanOrganizer(row pgx.Row) (storage.Organizer, error) {
	var o storage.Organizer
	err := row.Scan(
		&o.ID,
		&o.Name,
		&o.DescriptionDE,
		&o.DescriptionEN,
		&o.WebsiteURL,
		&o.InstagramURL,
		&o.Location,
		&o.Newsletter,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	return o, err
}

func collectOrganizers(rows pgx.Rows) ([]storage.Organizer, error) {
	var organizers []storage.Organizer
	for rows.Next() {
		organizer, err := scanOrganizer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan organizer: %w", err)
		}
		organizers = append(organizers, organizer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate organizers: %w", err)
	}
	return organizers, nil
}
