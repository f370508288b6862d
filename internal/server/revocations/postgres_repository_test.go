package revocations

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestAdd_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*INSERT\s+INTO\s+revoked_tokens\s*\(jti,\s*expires_at\)\s*VALUES\s*\(\$1,\s*\$2\)\s*ON\s+CONFLICT\s*\(jti\)\s*DO\s+NOTHING\s*$`

	expires := time.Now().Add(time.Hour)
	mock.ExpectExec(q).
		WithArgs("jti-1", expires).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Add(context.Background(), "jti-1", expires); err != nil {
		t.Fatalf("Add error: %v", err)
	}
}

func TestAdd_ConflictIsNoop(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	expires := time.Now().Add(time.Hour)
	mock.ExpectExec(`INSERT\s+INTO\s+revoked_tokens`).
		WithArgs("jti-1", expires).
		WillReturnResult(sqlmock.NewResult(0, 0)) // conflict, nothing inserted

	if err := repo.Add(context.Background(), "jti-1", expires); err != nil {
		t.Fatalf("Add on conflict must not error: %v", err)
	}
}

func TestAdd_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	expires := time.Now().Add(time.Hour)
	mock.ExpectExec(`INSERT\s+INTO\s+revoked_tokens`).
		WithArgs("jti-1", expires).
		WillReturnError(errors.New("db down"))

	err := repo.Add(context.Background(), "jti-1", expires)
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestIsRevoked(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+1\s+FROM\s+revoked_tokens\s+WHERE\s+jti\s*=\s*\$1`).
		WithArgs("jti-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	revoked, err := repo.IsRevoked(context.Background(), "jti-1")
	if err != nil {
		t.Fatalf("IsRevoked error: %v", err)
	}
	if !revoked {
		t.Fatalf("expected revoked=true")
	}
}

func TestIsRevoked_Absent(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+1\s+FROM\s+revoked_tokens`).
		WithArgs("jti-2").
		WillReturnError(sql.ErrNoRows)

	revoked, err := repo.IsRevoked(context.Background(), "jti-2")
	if err != nil {
		t.Fatalf("IsRevoked error: %v", err)
	}
	if revoked {
		t.Fatalf("expected revoked=false for absent jti")
	}
}

func TestPruneExpired(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE\s+FROM\s+revoked_tokens\s+WHERE\s+expires_at\s*<\s*now\(\)`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.PruneExpired(context.Background())
	if err != nil {
		t.Fatalf("PruneExpired error: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 rows pruned, got %d", n)
	}
}
