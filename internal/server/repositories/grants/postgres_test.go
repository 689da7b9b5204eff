package grants

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/premiumgate/internal/common"
)

const (
	lockQuery   = `(?s)^SELECT\s+pg_advisory_xact_lock\(hashtextextended\(\$1,\s*0\)\)$`
	selectQuery = `(?s)^SELECT\s+proof_digest,\s*content_id,\s*granted_at\s+FROM\s+access_grants\s+WHERE\s+proof_digest\s*=\s*\$1$`
	insertQuery = `(?s)^INSERT\s+INTO\s+access_grants\s+\(proof_digest,\s*content_id,\s*granted_at\)\s+VALUES\s*\(\$1,\s*\$2,\s*\$3\)$`
	deleteQuery = `(?s)^DELETE\s+FROM\s+access_grants\s+WHERE\s+granted_at\s*<\s*\$1$`
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestPostgres_TryGrant_New(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	digest := common.ProofDigest("sig-1")
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(lockQuery).WithArgs(digest).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(selectQuery).WithArgs(digest).WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(insertQuery).WithArgs(digest, "report-42", now).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	g, out, err := repo.TryGrant(context.Background(), "sig-1", "report-42", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != NewGrant || g.ContentID != "report-42" || g.ProofDigest != digest {
		t.Fatalf("unexpected result: %v %+v", out, g)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgres_TryGrant_Existing(t *testing.T) {
	digest := common.ProofDigest("sig-1")
	grantedAt := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		content string
		want    Outcome
	}{
		{"same content", "report-42", AlreadyGrantedSame},
		{"different content", "report-7", ConflictDifferentContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, db := newRepoWithMock(t)
			defer db.Close()

			mock.ExpectBegin()
			mock.ExpectExec(lockQuery).WithArgs(digest).WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectQuery(selectQuery).WithArgs(digest).
				WillReturnRows(sqlmock.NewRows([]string{"proof_digest", "content_id", "granted_at"}).
					AddRow(digest, "report-42", grantedAt))
			mock.ExpectCommit()

			g, out, err := repo.TryGrant(context.Background(), "sig-1", tt.content, time.Now())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out != tt.want {
				t.Fatalf("want %v, got %v", tt.want, out)
			}
			if g.ContentID != "report-42" || !g.GrantedAt.Equal(grantedAt) {
				t.Fatalf("expected the stored entry, got %+v", g)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestPostgres_TryGrant_InsertErrorRollsBack(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	digest := common.ProofDigest("sig-1")

	mock.ExpectBegin()
	mock.ExpectExec(lockQuery).WithArgs(digest).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(selectQuery).WithArgs(digest).WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(insertQuery).WillReturnError(errors.New("unique_violation"))
	mock.ExpectRollback()

	_, _, err := repo.TryGrant(context.Background(), "sig-1", "report-42", time.Now())
	if err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgres_TryGrant_LockError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(lockQuery).WillReturnError(errors.New("conn reset"))
	mock.ExpectRollback()

	if _, _, err := repo.TryGrant(context.Background(), "sig-1", "report-42", time.Now()); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgres_Lookup(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	digest := common.ProofDigest("sig-1")
	at := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)

	mock.ExpectQuery(selectQuery).WithArgs(digest).
		WillReturnRows(sqlmock.NewRows([]string{"proof_digest", "content_id", "granted_at"}).AddRow(digest, "report-42", at))
	mock.ExpectQuery(selectQuery).WithArgs(common.ProofDigest("missing")).WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(selectQuery).WillReturnError(errors.New("db down"))

	g, err := repo.Lookup(context.Background(), "sig-1")
	if err != nil || g.ContentID != "report-42" {
		t.Fatalf("unexpected: %+v %v", g, err)
	}

	if _, err := repo.Lookup(context.Background(), "missing"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}

	if _, err := repo.Lookup(context.Background(), "x"); err == nil || errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestPostgres_PurgeExpired(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	cutoff := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(deleteQuery).WithArgs(cutoff).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(deleteQuery).WillReturnError(errors.New("db down"))

	n, err := repo.PurgeExpired(context.Background(), cutoff)
	if err != nil || n != 3 {
		t.Fatalf("want 3 rows, got %d (%v)", n, err)
	}

	if _, err := repo.PurgeExpired(context.Background(), cutoff); err == nil {
		t.Fatal("expected error")
	}
}
