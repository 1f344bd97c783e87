// Package inventory owns Book.available_copies. Every change to the counter
// goes through a single conditional statement so that concurrent borrows can
// never take it below zero or above total_copies.
package inventory

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/shelfkeep/shelfkeep/pkg/clock"
	"github.com/shelfkeep/shelfkeep/pkg/errcodes"
	"github.com/shelfkeep/shelfkeep/pkg/models"
	"github.com/uptrace/bun"
)

// ErrOutOfStock is returned by Decrement when no copy is available.
var ErrOutOfStock = errors.New("no copies available")

type Ledger struct {
	clock *clock.Clock
}

func NewLedger(clk *clock.Clock) *Ledger {
	return &Ledger{clock: clk}
}

// Decrement takes one copy of the book out of circulation. idb should be the
// caller's transaction.
func (l *Ledger) Decrement(ctx context.Context, idb bun.IDB, bookID int) error {
	res, err := idb.NewUpdate().
		Model((*models.Book)(nil)).
		Set("available_copies = available_copies - 1").
		Set("updated_at = ?", l.clock.Now().UTC()).
		Where("id = ?", bookID).
		Where("available_copies > 0").
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	if err := l.checkAffected(ctx, idb, res, bookID); err != nil {
		return err
	}
	return nil
}

// Increment puts one copy of the book back. The counter never exceeds
// total_copies, which can happen when the book was resized while the copy was
// out.
func (l *Ledger) Increment(ctx context.Context, idb bun.IDB, bookID int) error {
	res, err := idb.NewUpdate().
		Model((*models.Book)(nil)).
		Set("available_copies = CASE WHEN available_copies < total_copies THEN available_copies + 1 ELSE total_copies END").
		Set("updated_at = ?", l.clock.Now().UTC()).
		Where("id = ?", bookID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errors.WithStack(err)
	}
	if n == 0 {
		return errcodes.NotFound("Book")
	}
	return nil
}

// Resize sets total_copies and clamps available_copies down to it in the same
// statement. Availability is otherwise left alone: copies added to a book
// become lendable as the ones already out come back.
func (l *Ledger) Resize(ctx context.Context, idb bun.IDB, bookID, totalCopies int) error {
	if totalCopies < 0 {
		return errcodes.ValidationError(`"total_copies" must be greater than or equal to 0`)
	}

	res, err := idb.NewUpdate().
		Model((*models.Book)(nil)).
		Set("available_copies = CASE WHEN available_copies > ? THEN ? ELSE available_copies END", totalCopies, totalCopies).
		Set("total_copies = ?", totalCopies).
		Set("updated_at = ?", l.clock.Now().UTC()).
		Where("id = ?", bookID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errors.WithStack(err)
	}
	if n == 0 {
		return errcodes.NotFound("Book")
	}
	return nil
}

// NormalizeOnSave sets up available_copies on a book that is about to be
// inserted: every copy starts on the shelf. Saves of existing books change the
// total through Resize, which applies the clamp.
func NormalizeOnSave(book *models.Book) {
	book.AvailableCopies = book.TotalCopies
}

func (l *Ledger) checkAffected(ctx context.Context, idb bun.IDB, res sql.Result, bookID int) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.WithStack(err)
	}
	if n > 0 {
		return nil
	}

	exists, err := idb.NewSelect().
		Model((*models.Book)(nil)).
		Where("id = ?", bookID).
		Exists(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if !exists {
		return errcodes.NotFound("Book")
	}
	return ErrOutOfStock
}
