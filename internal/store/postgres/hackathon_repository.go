package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/terrier-hq/terrier/internal/tenant"
)

// HackathonRepository implements tenant.Repository
type HackathonRepository struct {
	db *DB
}

// NewHackathonRepository creates a new hackathon repository
func NewHackathonRepository(db *DB) *HackathonRepository {
	return &HackathonRepository{db: db}
}

const hackathonColumns = `id, name, slug, description, start_date, end_date, is_active, created_at, updated_at`

// Create inserts a new hackathon
func (r *HackathonRepository) Create(ctx context.Context, h *tenant.Hackathon) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO hackathons (`+hackathonColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		h.ID, h.Name, h.Slug, nullString(h.Description),
		h.StartDate, h.EndDate, h.IsActive, h.CreatedAt, h.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return tenant.ErrSlugTaken
		}
		return fmt.Errorf("failed to insert hackathon: %w", err)
	}
	return nil
}

// GetBySlug retrieves a hackathon by slug
func (r *HackathonRepository) GetBySlug(ctx context.Context, slug string) (*tenant.Hackathon, error) {
	row := r.db.pool.QueryRow(ctx, `SELECT `+hackathonColumns+` FROM hackathons WHERE slug = $1`, slug)
	h, err := scanHackathon(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenant.ErrHackathonNotFound
		}
		return nil, fmt.Errorf("failed to get hackathon: %w", err)
	}
	return h, nil
}

// ListActive lists active hackathons, soonest first
func (r *HackathonRepository) ListActive(ctx context.Context) ([]*tenant.Hackathon, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT `+hackathonColumns+`
		FROM hackathons
		WHERE is_active = TRUE
		ORDER BY start_date ASC, slug ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list hackathons: %w", err)
	}
	defer rows.Close()

	hackathons := []*tenant.Hackathon{}
	for rows.Next() {
		h, err := scanHackathon(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan hackathon: %w", err)
		}
		hackathons = append(hackathons, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list hackathons: %w", err)
	}
	return hackathons, nil
}

func scanHackathon(row pgx.Row) (*tenant.Hackathon, error) {
	var h tenant.Hackathon
	var description sql.NullString
	if err := row.Scan(
		&h.ID, &h.Name, &h.Slug, &description,
		&h.StartDate, &h.EndDate, &h.IsActive, &h.CreatedAt, &h.UpdatedAt,
	); err != nil {
		return nil, err
	}
	h.Description = description.String
	return &h, nil
}
