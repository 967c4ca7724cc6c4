package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/WebisityStudio/CircleEye-sub000/internal/domain"
	"github.com/WebisityStudio/CircleEye-sub000/internal/geo"
	"github.com/WebisityStudio/CircleEye-sub000/pkg/e"
)

const incidentColumns = `id, lat, lng, geohash, category, description,
created_by_user_id, like_count, is_active, archived_at, created_at, updated_at, expires_at`

type IncidentRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewIncidentRepo(pool *pgxpool.Pool, logger *slog.Logger) *IncidentRepo {
	return &IncidentRepo{pool: pool, logger: logger}
}

// Insert writes one report row. The store generates the id; the
// rolling 5-per-24h write policy is enforced by row-level security and
// comes back as 42501, which pkg/e turns into ErrPolicyViolation.
func (r *IncidentRepo) Insert(ctx context.Context, inc *domain.Incident) error {
	const op = "postgres.Incident.Insert"

	if inc == nil {
		return fmt.Errorf("%s: %w", op, e.ErrInvalidInput)
	}
	if inc.Lat < -90 || inc.Lat > 90 || inc.Lng < -180 || inc.Lng > 180 {
		return fmt.Errorf("%s: %w", op, e.ErrInvalidCoordinates)
	}
	if !inc.ExpiresAt.After(inc.CreatedAt) {
		return fmt.Errorf("%s: %w", op, e.ErrInvalidInput)
	}

	const query = `
INSERT INTO incidents (lat, lng, geohash, category, description,
	created_by_user_id, like_count, is_active, created_at, updated_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8, $9, $10)
RETURNING id
`

	err := r.pool.QueryRow(ctx, query,
		inc.Lat,
		inc.Lng,
		inc.Geohash,
		inc.Category,
		inc.Description,
		inc.CreatedByUserID,
		inc.IsActive,
		inc.CreatedAt,
		inc.UpdatedAt,
		inc.ExpiresAt,
	).Scan(&inc.ID)
	if err != nil {
		r.logger.Error("db insert failed", slog.String("op", op), slog.Any("error", err))
		return e.WrapError(ctx, op, err)
	}

	return nil
}

// FindActiveInBox selects visible rows inside the box, newest first.
// Box predicates only; there is deliberately no exact-distance filter.
func (r *IncidentRepo) FindActiveInBox(ctx context.Context, box geo.Box, category domain.Category, limit int, now time.Time) ([]*domain.Incident, error) {
	const op = "postgres.Incident.FindActiveInBox"

	if box.LatMin >= box.LatMax || box.LngMin >= box.LngMax || limit <= 0 {
		return nil, fmt.Errorf("%s: %w", op, e.ErrInvalidInput)
	}

	query := `
SELECT ` + incidentColumns + `
FROM incidents
WHERE is_active = TRUE
  AND archived_at IS NULL
  AND expires_at > $1
  AND lat >= $2 AND lat <= $3
  AND lng >= $4 AND lng <= $5
`
	args := []any{now, box.LatMin, box.LatMax, box.LngMin, box.LngMax}

	if category != "" {
		args = append(args, category)
		query += fmt.Sprintf("  AND category = $%d\n", len(args))
	}

	args = append(args, limit)
	query += fmt.Sprintf("ORDER BY created_at DESC\nLIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("db query failed", slog.String("op", op), slog.Any("error", err))
		return nil, e.WrapError(ctx, op, err)
	}
	defer rows.Close()

	incidents := make([]*domain.Incident, 0, limit)
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			r.logger.Error("row scan failed", slog.String("op", op), slog.Any("error", err))
			return nil, e.WrapError(ctx, op, err)
		}
		incidents = append(incidents, inc)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("rows err", slog.String("op", op), slog.Any("error", err))
		return nil, e.WrapError(ctx, op, err)
	}

	return incidents, nil
}

func scanIncident(row pgx.Row) (*domain.Incident, error) {
	var inc domain.Incident
	err := row.Scan(
		&inc.ID,
		&inc.Lat,
		&inc.Lng,
		&inc.Geohash,
		&inc.Category,
		&inc.Description,
		&inc.CreatedByUserID,
		&inc.LikeCount,
		&inc.IsActive,
		&inc.ArchivedAt,
		&inc.CreatedAt,
		&inc.UpdatedAt,
		&inc.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return &inc, nil
}
