package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"zipuploader/internal/domain"
)

// ErrPublisherNotFound возвращается, когда издатель отсутствует в каталоге
var ErrPublisherNotFound = errors.New("publisher not found")

type PublisherRepository struct {
	db *sqlx.DB
}

func NewPublisherRepository(db *sqlx.DB) *PublisherRepository {
	return &PublisherRepository{db: db}
}

func (r *PublisherRepository) Create(ctx context.Context, publisher *domain.Publisher) error {
	query := `
        INSERT INTO publishers (normalized_name, display_name, guid)
        VALUES ($1, $2, $3)
        ON CONFLICT (normalized_name) DO UPDATE
        SET display_name = EXCLUDED.display_name,
            updated_at = CURRENT_TIMESTAMP
        RETURNING guid, created_at, updated_at`

	err := r.db.QueryRowxContext(
		ctx,
		query,
		publisher.NormalizedName,
		publisher.DisplayName,
		publisher.GUID,
	).Scan(&publisher.GUID, &publisher.CreatedAt, &publisher.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create publisher: %w", err)
	}

	return nil
}

func (r *PublisherRepository) GetByNormalizedName(ctx context.Context, normalizedName string) (*domain.Publisher, error) {
	var publisher domain.Publisher
	query := `SELECT * FROM publishers WHERE normalized_name = $1`

	err := r.db.GetContext(ctx, &publisher, query, normalizedName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrPublisherNotFound, normalizedName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get publisher: %w", err)
	}

	return &publisher, nil
}

func (r *PublisherRepository) List(ctx context.Context) ([]domain.Publisher, error) {
	var publishers []domain.Publisher
	query := `SELECT * FROM publishers ORDER BY normalized_name`

	if err := r.db.SelectContext(ctx, &publishers, query); err != nil {
		return nil, fmt.Errorf("failed to list publishers: %w", err)
	}

	return publishers, nil
}
