package grants

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/premiumgate/internal/common"
	"github.com/dmitrijs2005/premiumgate/internal/dbx"
	"github.com/dmitrijs2005/premiumgate/internal/server/models"
)

// PostgresRepository keeps the access ledger in the access_grants table.
// TryGrant serialises writers per proof with a transaction-scoped advisory
// lock; the primary key on proof_digest backs it up.
type PostgresRepository struct {
	db dbx.DB
}

// NewPostgresRepository constructs a repository bound to db.
func NewPostgresRepository(db dbx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type tryGrantResult struct {
	grant   models.Grant
	outcome Outcome
}

func (r *PostgresRepository) TryGrant(ctx context.Context, proof, contentID string, now time.Time) (models.Grant, Outcome, error) {
	digest := common.ProofDigest(proof)

	res, err := dbx.InTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) (tryGrantResult, error) {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, digest); err != nil {
			return tryGrantResult{}, fmt.Errorf("advisory lock: %w", err)
		}

		existing, err := findGrant(ctx, tx, digest)
		switch {
		case err == nil:
			return tryGrantResult{grant: *existing, outcome: outcomeFor(*existing, contentID)}, nil
		case !errors.Is(err, common.ErrorNotFound):
			return tryGrantResult{}, err
		}

		g := models.Grant{ProofDigest: digest, ContentID: contentID, GrantedAt: now.UTC()}
		query := `
			INSERT INTO access_grants (proof_digest, content_id, granted_at)
			VALUES ($1, $2, $3)
		`
		if _, err := tx.ExecContext(ctx, query, g.ProofDigest, g.ContentID, g.GrantedAt); err != nil {
			return tryGrantResult{}, fmt.Errorf("error performing sql request: %w", err)
		}
		return tryGrantResult{grant: g, outcome: NewGrant}, nil
	})
	if err != nil {
		return models.Grant{}, 0, err
	}
	return res.grant, res.outcome, nil
}

func (r *PostgresRepository) Lookup(ctx context.Context, proof string) (*models.Grant, error) {
	return findGrant(ctx, r.db, common.ProofDigest(proof))
}

func (r *PostgresRepository) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM access_grants
		WHERE granted_at < $1
	`
	res, err := r.db.ExecContext(ctx, query, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func findGrant(ctx context.Context, db dbx.DBTX, digest string) (*models.Grant, error) {
	query := `
		SELECT proof_digest, content_id, granted_at
		FROM access_grants
		WHERE proof_digest = $1
	`
	g := &models.Grant{}
	if err := db.QueryRowContext(ctx, query, digest).Scan(&g.ProofDigest, &g.ContentID, &g.GrantedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return g, nil
}
