package books

import (
	"context"
	"testing"
	"time"

	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/shelfkeep/shelfkeep/internal/testgen"
	"github.com/shelfkeep/shelfkeep/pkg/clock"
	"github.com/shelfkeep/shelfkeep/pkg/errcodes"
	"github.com/shelfkeep/shelfkeep/pkg/inventory"
	"github.com/shelfkeep/shelfkeep/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func newTestService(db *bun.DB) *Service {
	return NewService(db, inventory.NewLedger(clock.New(time.UTC)))
}

func TestCreateBook_StartsFullyAvailable(t *testing.T) {
	t.Parallel()

	db := testgen.NewDB(t)
	svc := newTestService(db)
	ctx := context.Background()

	book := &models.Book{Title: "Dune", TotalCopies: 3, AvailableCopies: 99}
	require.NoError(t, svc.CreateBook(ctx, book))
	assert.Equal(t, 3, book.AvailableCopies)

	stored := testgen.ReloadBook(t, db, book.ID)
	assert.Equal(t, 3, stored.TotalCopies)
	assert.Equal(t, 3, stored.AvailableCopies)
}

func TestCreateBook_Validation(t *testing.T) {
	t.Parallel()

	db := testgen.NewDB(t)
	svc := newTestService(db)
	ctx := context.Background()

	err := svc.CreateBook(ctx, &models.Book{Title: "Negative", TotalCopies: -1})
	var codeErr *errcodes.Error
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, "validation_error", codeErr.Code)

	err = svc.CreateBook(ctx, &models.Book{Title: "Orphan", AuthorID: pointerutil.Int(404), TotalCopies: 1})
	assert.ErrorIs(t, err, errcodes.NotFound("Author"))
}

func TestUpdateBook_ResizeGoesThroughLedger(t *testing.T) {
	t.Parallel()

	db := testgen.NewDB(t)
	svc := newTestService(db)
	ctx := context.Background()

	// Three copies, two of them out.
	book := testgen.CreateBook(t, db, testgen.BookOptions{TotalCopies: 3, AvailableCopies: pointerutil.Int(1)})

	book.Title = "Renamed"
	book.AvailableCopies = 50
	err := svc.UpdateBook(ctx, book, UpdateBookOptions{Columns: []string{"title"}, TotalCopies: pointerutil.Int(5)})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", book.Title)
	assert.Equal(t, 5, book.TotalCopies)
	assert.Equal(t, 1, book.AvailableCopies)

	// Shrinking above what's on the shelf leaves availability alone.
	err = svc.UpdateBook(ctx, book, UpdateBookOptions{TotalCopies: pointerutil.Int(4)})
	require.NoError(t, err)
	assert.Equal(t, 4, book.TotalCopies)
	assert.Equal(t, 1, book.AvailableCopies)

	err = svc.UpdateBook(ctx, book, UpdateBookOptions{TotalCopies: pointerutil.Int(0)})
	require.NoError(t, err)
	assert.Equal(t, 0, book.TotalCopies)
	assert.Equal(t, 0, book.AvailableCopies)

	err = svc.UpdateBook(ctx, book, UpdateBookOptions{TotalCopies: pointerutil.Int(1)})
	require.NoError(t, err)
	assert.Equal(t, 1, book.TotalCopies)
	assert.Equal(t, 0, book.AvailableCopies)

	err = svc.UpdateBook(ctx, book, UpdateBookOptions{Columns: []string{"available_copies"}})
	require.Error(t, err)
	assert.Equal(t, 0, testgen.ReloadBook(t, db, book.ID).AvailableCopies)
}

func TestUpdateBook_NotFound(t *testing.T) {
	t.Parallel()

	db := testgen.NewDB(t)
	svc := newTestService(db)

	err := svc.UpdateBook(context.Background(), &models.Book{ID: 404}, UpdateBookOptions{TotalCopies: pointerutil.Int(2)})
	assert.ErrorIs(t, err, errcodes.NotFound("Book"))
}

func TestListBooks_Filters(t *testing.T) {
	t.Parallel()

	db := testgen.NewDB(t)
	svc := newTestService(db)
	ctx := context.Background()

	herbert := testgen.CreateAuthor(t, db, "Frank", "Herbert")
	leGuin := testgen.CreateAuthor(t, db, "Ursula", "Le Guin")
	testgen.CreateBook(t, db, testgen.BookOptions{Title: "Dune", Genre: "Science Fiction", AuthorID: &herbert.ID, TotalCopies: 2})
	testgen.CreateBook(t, db, testgen.BookOptions{Title: "Dune Messiah", Genre: "Science Fiction", AuthorID: &herbert.ID, TotalCopies: 1, AvailableCopies: pointerutil.Int(0)})
	testgen.CreateBook(t, db, testgen.BookOptions{Title: "A Wizard of Earthsea", Genre: "Fantasy", AuthorID: &leGuin.ID, TotalCopies: 1})
	testgen.CreateBook(t, db, testgen.BookOptions{Title: "Anonymous Poems", Genre: "Poetry", TotalCopies: 1})

	titles := func(books []*models.Book) []string {
		out := make([]string, len(books))
		for i, b := range books {
			out[i] = b.Title
		}
		return out
	}

	books, total, err := svc.ListBooksWithTotal(ctx, ListBooksOptions{})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Equal(t, []string{"A Wizard of Earthsea", "Anonymous Poems", "Dune", "Dune Messiah"}, titles(books))

	books, err = svc.ListBooks(ctx, ListBooksOptions{Title: pointerutil.String("dUNE")})
	require.NoError(t, err)
	assert.Equal(t, []string{"Dune", "Dune Messiah"}, titles(books))

	books, err = svc.ListBooks(ctx, ListBooksOptions{AuthorName: pointerutil.String("guin")})
	require.NoError(t, err)
	require.Equal(t, []string{"A Wizard of Earthsea"}, titles(books))
	require.NotNil(t, books[0].Author)
	assert.Equal(t, "Le Guin", books[0].Author.LastName)

	books, err = svc.ListBooks(ctx, ListBooksOptions{Genre: pointerutil.String("fiction")})
	require.NoError(t, err)
	assert.Len(t, books, 2)

	available, unavailable := true, false
	books, err = svc.ListBooks(ctx, ListBooksOptions{Available: &unavailable})
	require.NoError(t, err)
	assert.Equal(t, []string{"Dune Messiah"}, titles(books))

	books, err = svc.ListBooks(ctx, ListBooksOptions{AuthorID: &herbert.ID, Available: &available})
	require.NoError(t, err)
	assert.Equal(t, []string{"Dune"}, titles(books))
}

func TestDeleteBook(t *testing.T) {
	t.Parallel()

	db := testgen.NewDB(t)
	svc := newTestService(db)
	ctx := context.Background()
	book := testgen.CreateBook(t, db, testgen.BookOptions{TotalCopies: 1})

	require.NoError(t, svc.DeleteBook(ctx, book.ID))
	assert.ErrorIs(t, svc.DeleteBook(ctx, book.ID), errcodes.NotFound("Book"))
}
