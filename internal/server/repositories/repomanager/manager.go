// Package repomanager vends repository implementations for a storage backend
// and runs its schema migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/premiumgate/internal/dbx"
	"github.com/dmitrijs2005/premiumgate/internal/server/repositories/contents"
	"github.com/dmitrijs2005/premiumgate/internal/server/repositories/grants"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Grants(db dbx.DB) grants.Repository
	Contents(db dbx.DBTX) contents.Repository
}
