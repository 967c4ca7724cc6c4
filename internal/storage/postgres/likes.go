package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/WebisityStudio/CircleEye-sub000/internal/domain"
	"github.com/WebisityStudio/CircleEye-sub000/pkg/e"
)

type LikeRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewLikeRepo(pool *pgxpool.Pool, logger *slog.Logger) *LikeRepo {
	return &LikeRepo{pool: pool, logger: logger}
}

// Insert adds the like row and bumps the counter atomically. The
// unique (incident_id, user_id) index makes a repeat like fail with
// 23505, surfaced as e.ErrUniqueViolation; the caller treats that as
// success.
func (r *LikeRepo) Insert(ctx context.Context, like *domain.IncidentLike) (*domain.Incident, error) {
	const op = "postgres.Like.Insert"

	if like == nil || like.IncidentID == uuid.Nil || like.UserID == uuid.Nil {
		return nil, fmt.Errorf("%s: %w", op, e.ErrInvalidInput)
	}
	if like.ID == uuid.Nil {
		like.ID = uuid.New()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, e.WrapError(ctx, op, err)
	}
	defer tx.Rollback(ctx)

	const insertQuery = `
INSERT INTO incident_likes (id, incident_id, user_id, created_at)
VALUES ($1, $2, $3, $4)
`
	if _, err := tx.Exec(ctx, insertQuery, like.ID, like.IncidentID, like.UserID, like.CreatedAt); err != nil {
		// 23505 is the expected duplicate-like path, not worth an error log.
		wrapped := e.WrapError(ctx, op, err)
		if !isUniqueViolation(wrapped) {
			r.logger.Error("like insert failed", slog.String("op", op), slog.Any("error", err))
		}
		return nil, wrapped
	}

	const bumpQuery = `
UPDATE incidents
SET like_count = like_count + 1, updated_at = $2
WHERE id = $1
RETURNING ` + incidentColumns + `
`
	inc, err := scanIncident(tx.QueryRow(ctx, bumpQuery, like.IncidentID, like.CreatedAt))
	if err != nil {
		r.logger.Error("like count bump failed", slog.String("op", op), slog.Any("error", err))
		return nil, e.WrapError(ctx, op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, e.WrapError(ctx, op, err)
	}

	return inc, nil
}

func (r *LikeRepo) LikedIncidentIDs(ctx context.Context, userID uuid.UUID, incidentIDs []uuid.UUID) (map[uuid.UUID]struct{}, error) {
	const op = "postgres.Like.LikedIncidentIDs"

	if userID == uuid.Nil {
		return nil, fmt.Errorf("%s: %w", op, e.ErrInvalidInput)
	}
	if len(incidentIDs) == 0 {
		return map[uuid.UUID]struct{}{}, nil
	}

	const query = `
SELECT incident_id
FROM incident_likes
WHERE user_id = $1 AND incident_id = ANY($2)
`

	rows, err := r.pool.Query(ctx, query, userID, incidentIDs)
	if err != nil {
		r.logger.Error("db query failed", slog.String("op", op), slog.Any("error", err))
		return nil, e.WrapError(ctx, op, err)
	}
	defer rows.Close()

	liked := make(map[uuid.UUID]struct{}, len(incidentIDs))
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, e.WrapError(ctx, op, err)
		}
		liked[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, e.WrapError(ctx, op, err)
	}

	return liked, nil
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, e.ErrUniqueViolation)
}
