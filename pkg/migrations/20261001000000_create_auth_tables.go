package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(ctx context.Context, db *bun.DB) error {
		pk := primaryKey(db)
		err := execAll(ctx, db,
			`CREATE TABLE roles (
				`+pk+`,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				name TEXT NOT NULL,
				is_system BOOLEAN NOT NULL DEFAULT FALSE
			)`,
			`CREATE UNIQUE INDEX ux_roles_name ON roles (name)`,
			`CREATE TABLE permissions (
				`+pk+`,
				role_id INTEGER NOT NULL REFERENCES roles (id) ON DELETE CASCADE,
				resource TEXT NOT NULL,
				operation TEXT NOT NULL
			)`,
			`CREATE UNIQUE INDEX ux_permissions_role_resource_operation ON permissions (role_id, resource, operation)`,
			`CREATE TABLE users (
				`+pk+`,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				email TEXT NOT NULL,
				password_hash TEXT NOT NULL,
				first_name TEXT NOT NULL DEFAULT '',
				last_name TEXT NOT NULL DEFAULT '',
				phone TEXT,
				city TEXT,
				role_id INTEGER NOT NULL REFERENCES roles (id),
				is_active BOOLEAN NOT NULL DEFAULT TRUE
			)`,
			// Emails are stored lowercased, so a plain unique index is case-insensitive.
			`CREATE UNIQUE INDEX ux_users_email ON users (email)`,
			`CREATE INDEX ix_users_role_id ON users (role_id)`,
			`INSERT INTO roles (name, is_system) VALUES ('admin', TRUE), ('member', TRUE)`,
		)
		if err != nil {
			return err
		}

		seeds := map[string]map[string][]string{
			"admin": {
				"authors":  {"read", "write"},
				"books":    {"read", "write"},
				"borrows":  {"read", "write"},
				"requests": {"read", "write"},
				"users":    {"read", "write"},
			},
			// Members browse the catalog, see their own borrows and file
			// requests. Borrows are only created by approving requests.
			"member": {
				"authors":  {"read"},
				"books":    {"read"},
				"borrows":  {"read"},
				"requests": {"read", "write"},
			},
		}
		for role, resources := range seeds {
			var roleID int
			err := db.QueryRowContext(ctx, `SELECT id FROM roles WHERE name = ?`, role).Scan(&roleID)
			if err != nil {
				return errors.WithStack(err)
			}
			for resource, operations := range resources {
				for _, operation := range operations {
					_, err = db.ExecContext(ctx, `INSERT INTO permissions (role_id, resource, operation) VALUES (?, ?, ?)`,
						roleID, resource, operation)
					if err != nil {
						return errors.WithStack(err)
					}
				}
			}
		}

		return nil
	}

	down := func(ctx context.Context, db *bun.DB) error {
		return execAll(ctx, db,
			"DROP TABLE IF EXISTS users",
			"DROP TABLE IF EXISTS permissions",
			"DROP TABLE IF EXISTS roles",
		)
	}

	Migrations.MustRegister(up, down)
}
