package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

func init() {
	up := func(ctx context.Context, db *bun.DB) error {
		pk := primaryKey(db)
		return execAll(ctx, db,
			`CREATE TABLE authors (
				`+pk+`,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				first_name TEXT NOT NULL,
				last_name TEXT NOT NULL,
				bio TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE INDEX ix_authors_name ON authors (last_name, first_name)`,
			`CREATE TABLE books (
				`+pk+`,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				title TEXT NOT NULL,
				author_id INTEGER REFERENCES authors (id) ON DELETE CASCADE,
				description TEXT NOT NULL DEFAULT '',
				genre TEXT NOT NULL DEFAULT '',
				total_copies INTEGER NOT NULL DEFAULT 1 CHECK (total_copies >= 0),
				available_copies INTEGER NOT NULL DEFAULT 1,
				CONSTRAINT ck_books_available_copies CHECK (available_copies >= 0 AND available_copies <= total_copies)
			)`,
			`CREATE INDEX ix_books_title ON books (title)`,
			`CREATE INDEX ix_books_author_id ON books (author_id)`,
			`CREATE TABLE borrows (
				`+pk+`,
				user_id INTEGER NOT NULL REFERENCES users (id) ON DELETE CASCADE,
				book_id INTEGER NOT NULL REFERENCES books (id) ON DELETE CASCADE,
				borrowed_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				due_date DATE NOT NULL,
				returned_at TIMESTAMPTZ,
				status TEXT NOT NULL DEFAULT 'borrowed',
				CONSTRAINT ck_borrows_status CHECK (status IN ('borrowed', 'overdue', 'returned')),
				CONSTRAINT ck_borrows_returned_at CHECK ((status = 'returned') = (returned_at IS NOT NULL))
			)`,
			// A user holds at most one copy of a given book at a time.
			`CREATE UNIQUE INDEX ux_borrows_active_user_book ON borrows (user_id, book_id) WHERE status IN ('borrowed', 'overdue')`,
			`CREATE INDEX ix_borrows_book_id ON borrows (book_id)`,
			`CREATE INDEX ix_borrows_status_due_date ON borrows (status, due_date)`,
			`CREATE TABLE book_requests (
				`+pk+`,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				user_id INTEGER NOT NULL REFERENCES users (id) ON DELETE CASCADE,
				book_id INTEGER NOT NULL REFERENCES books (id) ON DELETE CASCADE,
				desired_due_date DATE NOT NULL,
				status TEXT NOT NULL DEFAULT 'pending',
				reject_reason TEXT,
				borrow_id INTEGER REFERENCES borrows (id) ON DELETE SET NULL,
				CONSTRAINT ck_book_requests_status CHECK (status IN ('pending', 'approved', 'rejected')),
				CONSTRAINT ck_book_requests_reject_reason CHECK (status <> 'rejected' OR reject_reason IS NOT NULL)
			)`,
			`CREATE UNIQUE INDEX ux_book_requests_pending_user_book ON book_requests (user_id, book_id) WHERE status = 'pending'`,
			`CREATE INDEX ix_book_requests_book_id ON book_requests (book_id)`,
		)
	}

	down := func(ctx context.Context, db *bun.DB) error {
		return execAll(ctx, db,
			"DROP TABLE IF EXISTS book_requests",
			"DROP TABLE IF EXISTS borrows",
			"DROP TABLE IF EXISTS books",
			"DROP TABLE IF EXISTS authors",
		)
	}

	Migrations.MustRegister(up, down)
}
