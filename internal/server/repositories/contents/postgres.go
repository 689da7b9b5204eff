package contents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/premiumgate/internal/common"
	"github.com/dmitrijs2005/premiumgate/internal/dbx"
	"github.com/dmitrijs2005/premiumgate/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Content, error) {
	query := `
		SELECT id, tier, teaser, storage_key, created_at
		FROM contents
		WHERE id = $1
	`
	c := &models.Content{}
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Tier, &c.Teaser, &c.StorageKey, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, c *models.Content) error {
	query := `
		INSERT INTO contents (id, tier, teaser, storage_key, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET tier = EXCLUDED.tier, teaser = EXCLUDED.teaser, storage_key = EXCLUDED.storage_key
	`
	if _, err := r.db.ExecContext(ctx, query, c.ID, c.Tier, c.Teaser, c.StorageKey, c.CreatedAt); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]models.Content, error) {
	query := `
		SELECT id, tier, teaser, storage_key, created_at
		FROM contents
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.Content
	for rows.Next() {
		var c models.Content
		if err := rows.Scan(&c.ID, &c.Tier, &c.Teaser, &c.StorageKey, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
