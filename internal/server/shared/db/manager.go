// Package db wires the PostgreSQL connection, schema migrations, and
// repository construction behind a single manager.
package db

import (
	"context"
	"database/sql"

	"github.com/akarpov87/idvault/internal/server/identities"
	"github.com/akarpov87/idvault/internal/server/revocations"
)

type RepositoryManager interface {
	RunMigrations(context.Context) error
	Conn() *sql.DB
	Close() error
	Identities() identities.Repository
	Revocations() revocations.Repository
}
