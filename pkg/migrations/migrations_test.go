package migrations

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)

	_, err = BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func TestBringUpToDate_SeedsRoles(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	var count int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM permissions p
		JOIN roles r ON r.id = p.role_id
		WHERE r.name = 'admin'`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 10, count)

	err = db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM permissions p
		JOIN roles r ON r.id = p.role_id
		WHERE r.name = 'member' AND p.resource = 'borrows' AND p.operation = 'write'`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestBringUpToDate_Idempotent(t *testing.T) {
	db := newTestDB(t)

	group, err := BringUpToDate(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, int64(0), group.ID)
}

func seedBorrowFixtures(t *testing.T, db *bun.DB) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO users (email, password_hash, role_id) VALUES ('reader@example.com', 'x', (SELECT id FROM roles WHERE name = 'member'))`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO books (title, total_copies, available_copies) VALUES ('Dune', 3, 3)`)
	require.NoError(t, err)
}

func TestActiveBorrowUniqueIndex(t *testing.T) {
	db := newTestDB(t)
	seedBorrowFixtures(t, db)

	_, err := db.Exec(`INSERT INTO borrows (user_id, book_id, due_date, status) VALUES (1, 1, '2030-01-01', 'borrowed')`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO borrows (user_id, book_id, due_date, status) VALUES (1, 1, '2030-01-01', 'borrowed')`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNIQUE constraint failed")

	// Returned borrows don't count against the index.
	_, err = db.Exec(`UPDATE borrows SET status = 'returned', returned_at = CURRENT_TIMESTAMP WHERE id = 1`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO borrows (user_id, book_id, due_date, status) VALUES (1, 1, '2030-01-01', 'borrowed')`)
	require.NoError(t, err)
}

func TestPendingRequestUniqueIndex(t *testing.T) {
	db := newTestDB(t)
	seedBorrowFixtures(t, db)

	_, err := db.Exec(`INSERT INTO book_requests (user_id, book_id, desired_due_date) VALUES (1, 1, '2030-01-01')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO book_requests (user_id, book_id, desired_due_date) VALUES (1, 1, '2030-01-02')`)
	require.Error(t, err)

	_, err = db.Exec(`UPDATE book_requests SET status = 'rejected', reject_reason = 'no' WHERE id = 1`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO book_requests (user_id, book_id, desired_due_date) VALUES (1, 1, '2030-01-02')`)
	require.NoError(t, err)
}

func TestBookCopiesCheckConstraint(t *testing.T) {
	db := newTestDB(t)
	seedBorrowFixtures(t, db)

	_, err := db.Exec(`UPDATE books SET available_copies = 4 WHERE id = 1`)
	require.Error(t, err)

	_, err = db.Exec(`UPDATE books SET available_copies = -1 WHERE id = 1`)
	require.Error(t, err)

	_, err = db.Exec(`UPDATE books SET available_copies = 0 WHERE id = 1`)
	require.NoError(t, err)
}
