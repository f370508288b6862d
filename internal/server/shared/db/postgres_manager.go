package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/akarpov87/idvault/internal/server/identities"
	"github.com/akarpov87/idvault/internal/server/migrations"
	"github.com/akarpov87/idvault/internal/server/revocations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type PostgresRepositoryManager struct {
	db          *sql.DB
	identities  identities.Repository
	revocations revocations.Repository
}

func (m *PostgresRepositoryManager) Conn() *sql.DB {
	return m.db
}

func (m *PostgresRepositoryManager) Close() error {
	return m.db.Close()
}

func (m *PostgresRepositoryManager) Identities() identities.Repository {
	return m.identities
}

func (m *PostgresRepositoryManager) Revocations() revocations.Repository {
	return m.revocations
}

// RunMigrations points goose at the embedded migrations and brings the
// schema up to date.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}

	if err := goose.UpContext(ctx, m.db, "."); err != nil {
		return err
	}

	return nil
}

func NewPostgresRepositoryManager(dsn string) (RepositoryManager, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	m := &PostgresRepositoryManager{
		db:          db,
		identities:  identities.NewPostgresRepository(db),
		revocations: revocations.NewPostgresRepository(db),
	}

	return m, nil
}
