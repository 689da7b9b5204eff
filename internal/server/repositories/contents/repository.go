// Package contents stores premium content metadata: nominal tier, teaser and
// the blob storage key of the encrypted body.
package contents

import (
	"context"

	"github.com/dmitrijs2005/premiumgate/internal/server/models"
)

type Repository interface {
	// Get returns the content with the given id, or common.ErrorNotFound.
	Get(ctx context.Context, id string) (*models.Content, error)
	// Upsert creates the content or replaces its tier, teaser and storage key.
	Upsert(ctx context.Context, c *models.Content) error
	// List returns all contents ordered by id.
	List(ctx context.Context) ([]models.Content, error)
}
