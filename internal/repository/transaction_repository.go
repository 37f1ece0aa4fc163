package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hrit887/mern-challenge/shared/models"
	"github.com/lib/pq"
)

// TransactionWriteRepository replaces the stored dataset in PostgreSQL.
type TransactionWriteRepository struct {
	db *sql.DB
}

func NewTransactionWriteRepository(db *sql.DB) *TransactionWriteRepository {
	return &TransactionWriteRepository{db: db}
}

// ReplaceAll deletes every stored transaction and bulk-loads transactions in
// their place within one SQL transaction. The EXCLUSIVE table lock serializes
// concurrent replacements while readers keep seeing the previous rows until commit.
func (r *TransactionWriteRepository) ReplaceAll(ctx context.Context, transactions []models.Transaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapStoreError(ctx, "begin seed transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "LOCK TABLE transactions IN EXCLUSIVE MODE"); err != nil {
		return wrapStoreError(ctx, "lock transactions", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM transactions"); err != nil {
		return wrapStoreError(ctx, "clear transactions", err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("transactions",
		"id", "title", "price", "description", "category", "image", "sold", "date_of_sale", "sale_month"))
	if err != nil {
		return wrapStoreError(ctx, "prepare bulk insert", err)
	}
	defer stmt.Close()

	for _, t := range transactions {
		month, err := t.SaleMonth()
		if err != nil {
			return wrapStoreError(ctx, fmt.Sprintf("insert transaction %d", t.ID), err)
		}
		if _, err := stmt.ExecContext(ctx,
			t.ID, t.Title, t.Price, t.Description, t.Category, t.Image, t.Sold, t.DateOfSale, int(month),
		); err != nil {
			return wrapStoreError(ctx, fmt.Sprintf("insert transaction %d", t.ID), err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		return wrapStoreError(ctx, "flush bulk insert", err)
	}
	if err := stmt.Close(); err != nil {
		return wrapStoreError(ctx, "close bulk insert", err)
	}

	if err := tx.Commit(); err != nil {
		return wrapStoreError(ctx, "commit seed transaction", err)
	}
	return nil
}
