package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tabiji-app/tabiji/internal/app/models"
	database "github.com/tabiji-app/tabiji/internal/db"
)

// Repository persists generated trips so GET /trips/:id survives process
// restarts and cache evictions.
type Repository interface {
	// SaveTrip upserts the trip payload under its id.
	SaveTrip(ctx context.Context, trip *models.Trip, fingerprint string) error

	// GetTrip returns models.ErrNotFound for unknown ids.
	GetTrip(ctx context.Context, id string) (*models.Trip, error)
}

var _ Repository = (*PostgresRepository)(nil)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// storeErr tags an infrastructure failure with the store-unavailable
// sentinel so callers can tell a dead backend from a bug.
func storeErr(err error, msg string) error {
	return errors.Wrap(fmt.Errorf("%w: %w", models.ErrStoreUnavailable, err), msg)
}

type PostgresRepository struct {
	logger *zap.Logger
	pgpool database.Querier
	now    func() time.Time
}

func NewPostgresRepository(pgpool database.Querier, logger *zap.Logger) *PostgresRepository {
	return &PostgresRepository{
		logger: logger,
		pgpool: pgpool,
		now:    time.Now,
	}
}

func (r *PostgresRepository) SaveTrip(ctx context.Context, trip *models.Trip, fingerprint string) error {
	payload, err := json.Marshal(trip)
	if err != nil {
		return errors.Wrapf(err, "failed to encode trip %s", trip.ID)
	}

	sqlStr, args, err := psql.Insert("trips").
		Columns("id", "fingerprint", "payload", "created_at").
		Values(trip.ID, fingerprint, payload, r.now().UTC()).
		Suffix("ON CONFLICT (id) DO UPDATE SET fingerprint = EXCLUDED.fingerprint, payload = EXCLUDED.payload").
		ToSql()
	if err != nil {
		return errors.Wrap(err, "failed to build trip insert")
	}

	if _, err := r.pgpool.Exec(ctx, sqlStr, args...); err != nil {
		return storeErr(err, fmt.Sprintf("failed to save trip %s", trip.ID))
	}
	return nil
}

func (r *PostgresRepository) GetTrip(ctx context.Context, id string) (*models.Trip, error) {
	sqlStr, args, err := psql.Select("payload").
		From("trips").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build trip query")
	}

	var payload []byte
	if err := r.pgpool.QueryRow(ctx, sqlStr, args...).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("trip %s: %w", id, models.ErrNotFound)
		}
		return nil, storeErr(err, fmt.Sprintf("failed to query trip %s", id))
	}

	var trip models.Trip
	if err := json.Unmarshal(payload, &trip); err != nil {
		return nil, errors.Wrapf(err, "failed to decode trip %s", id)
	}
	return &trip, nil
}
