package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/premiumgate/internal/dbx"
	"github.com/dmitrijs2005/premiumgate/internal/server/migrations"
	"github.com/dmitrijs2005/premiumgate/internal/server/repositories/contents"
	"github.com/dmitrijs2005/premiumgate/internal/server/repositories/grants"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repositories.
type PostgresRepositoryManager struct{}

// Grants returns the access ledger bound to db.
func (m *PostgresRepositoryManager) Grants(db dbx.DB) grants.Repository {
	return grants.NewPostgresRepository(db)
}

// Contents returns the content metadata repository bound to db.
func (m *PostgresRepositoryManager) Contents(db dbx.DBTX) contents.Repository {
	return contents.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

// OpenPostgres opens a pgx-backed *sql.DB and checks connectivity.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
