// internal/repositories/badge_repository.go
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"badgehub/internal/database"
	"badgehub/internal/models"

	"go.uber.org/zap"
)

const badgeColumns = `
	b.id, b.name, b.description, b.icon, b.category, b.rarity, b.color,
	b.display_order, b.criteria_type, b.criteria_value, b.created_at`

const upsertBadgeQuery = `
	INSERT INTO badges (
		name, description, icon, category, rarity, color,
		display_order, criteria_type, criteria_value
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (name) DO UPDATE SET
		description = EXCLUDED.description,
		icon = EXCLUDED.icon,
		category = EXCLUDED.category,
		rarity = EXCLUDED.rarity,
		color = EXCLUDED.color,
		display_order = EXCLUDED.display_order,
		criteria_type = EXCLUDED.criteria_type,
		criteria_value = EXCLUDED.criteria_value,
		updated_at = NOW()
	RETURNING id, created_at, (xmax = 0) AS inserted`

// badgeRepository implements BadgeRepository
type badgeRepository struct {
	*BaseRepository
}

// NewBadgeRepository creates a new instance of BadgeRepository
func NewBadgeRepository(db *database.Manager, logger *zap.Logger) BadgeRepository {
	return &badgeRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// List returns the whole catalog ordered by rarity then display order
func (r *badgeRepository) List(ctx context.Context) ([]*models.Badge, error) {
	query := `
		SELECT` + badgeColumns + `
		FROM badges b
		ORDER BY
			CASE b.rarity
				WHEN 'legendary' THEN 4
				WHEN 'rare' THEN 3
				WHEN 'uncommon' THEN 2
				ELSE 1
			END DESC,
			b.display_order ASC,
			b.id ASC`

	rows, err := r.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list badges: %w", err)
	}
	defer rows.Close()

	var badges []*models.Badge
	for rows.Next() {
		badge, err := scanBadge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan badge: %w", err)
		}
		badges = append(badges, badge)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate badges: %w", err)
	}

	return badges, nil
}

// GetByID returns a badge or nil when it does not exist
func (r *badgeRepository) GetByID(ctx context.Context, id int64) (*models.Badge, error) {
	query := `SELECT` + badgeColumns + ` FROM badges b WHERE b.id = $1`

	badge, err := scanBadge(r.QueryRowContext(ctx, query, id))
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get badge by ID: %w", err)
	}
	return badge, nil
}

// GetByName returns a badge or nil when it does not exist
func (r *badgeRepository) GetByName(ctx context.Context, name string) (*models.Badge, error) {
	query := `SELECT` + badgeColumns + ` FROM badges b WHERE b.name = $1`

	badge, err := scanBadge(r.QueryRowContext(ctx, query, name))
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get badge by name: %w", err)
	}
	return badge, nil
}

// Upsert inserts a badge or updates the existing row with the same name
func (r *badgeRepository) Upsert(ctx context.Context, badge *models.Badge) (bool, error) {
	badge.ApplyDefaults()

	created, err := scanUpsert(r.QueryRowContext(ctx, upsertBadgeQuery, upsertArgs(badge)...), badge)
	if err != nil {
		r.GetLogger().Error("Failed to upsert badge",
			zap.Error(err),
			zap.String("name", badge.Name),
		)
		return false, fmt.Errorf("failed to upsert badge: %w", err)
	}
	return created, nil
}

// UpsertAll seeds the catalog atomically
func (r *badgeRepository) UpsertAll(ctx context.Context, badges []*models.Badge) (*UpsertResult, error) {
	result := &UpsertResult{}

	err := r.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, badge := range badges {
			badge.ApplyDefaults()

			created, err := scanUpsert(tx.QueryRowContext(ctx, upsertBadgeQuery, upsertArgs(badge)...), badge)
			if err != nil {
				return fmt.Errorf("failed to upsert badge %q: %w", badge.Name, err)
			}
			if created {
				result.Created++
			} else {
				result.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// ===============================
// HELPERS
// ===============================

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBadge(row rowScanner) (*models.Badge, error) {
	var b models.Badge
	err := row.Scan(
		&b.ID, &b.Name, &b.Description, &b.Icon, &b.Category, &b.Rarity, &b.Color,
		&b.DisplayOrder, &b.Criteria.Type, &b.Criteria.Value, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func scanUpsert(row *sql.Row, badge *models.Badge) (bool, error) {
	var created bool
	if err := row.Scan(&badge.ID, &badge.CreatedAt, &created); err != nil {
		return false, err
	}
	return created, nil
}

func upsertArgs(b *models.Badge) []interface{} {
	return []interface{}{
		b.Name, b.Description, b.Icon, string(b.Category), string(b.Rarity), b.Color,
		b.DisplayOrder, string(b.Criteria.Type), b.Criteria.Value,
	}
}
