package books

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfkeep/shelfkeep/pkg/database"
	"github.com/shelfkeep/shelfkeep/pkg/errcodes"
	"github.com/shelfkeep/shelfkeep/pkg/guard"
	"github.com/shelfkeep/shelfkeep/pkg/inventory"
	"github.com/shelfkeep/shelfkeep/pkg/models"
	"github.com/uptrace/bun"
)

type RetrieveBookOptions struct {
	ID *int
}

type ListBooksOptions struct {
	Limit      *int
	Offset     *int
	Title      *string
	AuthorID   *int
	AuthorName *string // matched against the author's last name
	Genre      *string
	Available  *bool

	includeTotal bool
}

type UpdateBookOptions struct {
	Columns []string
	// TotalCopies resizes the book through the inventory ledger.
	TotalCopies *int
}

type Service struct {
	db     *bun.DB
	ledger *inventory.Ledger
}

func NewService(db *bun.DB, ledger *inventory.Ledger) *Service {
	return &Service{
		db:     db,
		ledger: ledger,
	}
}

// CreateBook inserts a book with all of its copies available.
func (svc *Service) CreateBook(ctx context.Context, book *models.Book) error {
	if book.TotalCopies < 0 {
		return errcodes.ValidationError(`"total_copies" must be greater than or equal to 0`)
	}

	now := time.Now()
	if book.CreatedAt.IsZero() {
		book.CreatedAt = now
	}
	book.UpdatedAt = book.CreatedAt
	inventory.NormalizeOnSave(book)

	if err := svc.checkAuthor(ctx, svc.db, book.AuthorID); err != nil {
		return err
	}

	_, err := svc.db.
		NewInsert().
		Model(book).
		Exec(ctx)
	return errors.WithStack(err)
}

func (svc *Service) checkAuthor(ctx context.Context, idb bun.IDB, authorID *int) error {
	if authorID == nil {
		return nil
	}
	exists, err := idb.NewSelect().
		Model((*models.Author)(nil)).
		Where("id = ?", *authorID).
		Exists(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if !exists {
		return errcodes.NotFound("Author")
	}
	return nil
}

func (svc *Service) RetrieveBook(ctx context.Context, opts RetrieveBookOptions) (*models.Book, error) {
	return retrieveBook(ctx, svc.db, opts)
}

func retrieveBook(ctx context.Context, idb bun.IDB, opts RetrieveBookOptions) (*models.Book, error) {
	book := &models.Book{}

	q := idb.NewSelect().
		Model(book).
		Relation("Author")

	if opts.ID != nil {
		q = q.Where("b.id = ?", *opts.ID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}

	return book, nil
}

func (svc *Service) ListBooks(ctx context.Context, opts ListBooksOptions) ([]*models.Book, error) {
	b, _, err := svc.listBooksWithTotal(ctx, opts)
	return b, errors.WithStack(err)
}

func (svc *Service) ListBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	opts.includeTotal = true
	return svc.listBooksWithTotal(ctx, opts)
}

func (svc *Service) listBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	var books []*models.Book
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&books).
		Relation("Author").
		Order("b.title ASC", "b.id ASC")

	if opts.Title != nil && *opts.Title != "" {
		q = q.Where(`LOWER(b.title) LIKE LOWER(?) ESCAPE '\'`, database.ContainsPattern(*opts.Title))
	}
	if opts.AuthorID != nil {
		q = q.Where("b.author_id = ?", *opts.AuthorID)
	}
	if opts.AuthorName != nil && *opts.AuthorName != "" {
		q = q.Where(`LOWER(author.last_name) LIKE LOWER(?) ESCAPE '\'`, database.ContainsPattern(*opts.AuthorName))
	}
	if opts.Genre != nil && *opts.Genre != "" {
		q = q.Where(`LOWER(b.genre) LIKE LOWER(?) ESCAPE '\'`, database.ContainsPattern(*opts.Genre))
	}
	if opts.Available != nil {
		if *opts.Available {
			q = q.Where("b.available_copies > 0")
		} else {
			q = q.Where("b.available_copies = 0")
		}
	}
	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return books, total, nil
}

// UpdateBook writes the given catalog columns and, when asked to, resizes the
// book. available_copies is never written from book; the ledger owns it. book
// is refreshed with the stored values afterwards.
func (svc *Service) UpdateBook(ctx context.Context, book *models.Book, opts UpdateBookOptions) error {
	if len(opts.Columns) == 0 && opts.TotalCopies == nil {
		return nil
	}

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if len(opts.Columns) > 0 {
			for _, column := range opts.Columns {
				if column == "available_copies" || column == "total_copies" {
					return errors.Errorf("column %q can only be changed through the inventory ledger", column)
				}
			}
			if err := svc.checkAuthor(ctx, tx, book.AuthorID); err != nil {
				return err
			}

			book.UpdatedAt = time.Now()
			columns := append(opts.Columns, "updated_at")

			res, err := tx.
				NewUpdate().
				Model(book).
				Column(columns...).
				WherePK().
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
			if n, err := res.RowsAffected(); err != nil {
				return errors.WithStack(err)
			} else if n == 0 {
				return errcodes.NotFound("Book")
			}
		}

		if opts.TotalCopies != nil {
			if err := svc.ledger.Resize(ctx, tx, book.ID, *opts.TotalCopies); err != nil {
				return err
			}
		}

		updated, err := retrieveBook(ctx, tx, RetrieveBookOptions{ID: &book.ID})
		if err != nil {
			return err
		}
		*book = *updated
		return nil
	})
	if err != nil {
		return guard.TranslateBusy(err, "Book")
	}

	if opts.TotalCopies != nil {
		logger.FromContext(ctx).Info("book resized", logger.Data{
			"book_id":          book.ID,
			"total_copies":     book.TotalCopies,
			"available_copies": book.AvailableCopies,
		})
	}

	return nil
}

// DeleteBook removes a book together with its borrow history and requests.
func (svc *Service) DeleteBook(ctx context.Context, id int) error {
	res, err := svc.db.
		NewDelete().
		Model((*models.Book)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.WithStack(err)
	} else if n == 0 {
		return errcodes.NotFound("Book")
	}
	return nil
}
