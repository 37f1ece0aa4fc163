package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/hrit887/mern-challenge/shared/models"
)

const transactionColumns = "id, title, price, description, category, image, sold, date_of_sale"

// TransactionReadRepository answers listing and aggregate queries from PostgreSQL.
// Filtering, grouping and summing all happen in SQL.
type TransactionReadRepository struct {
	db *sql.DB
}

func NewTransactionReadRepository(db *sql.DB) *TransactionReadRepository {
	return &TransactionReadRepository{db: db}
}

// Find returns up to limit matching transactions after skipping offset, in insertion order.
func (r *TransactionReadRepository) Find(ctx context.Context, filter TransactionFilter, offset, limit int) ([]models.Transaction, error) {
	where, args := whereClause(filter)
	args = append(args, offset, limit)
	query := fmt.Sprintf("SELECT %s FROM transactions%s ORDER BY seq OFFSET $%d LIMIT $%d",
		transactionColumns, where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapStoreError(ctx, "list transactions", err)
	}
	defer rows.Close()

	transactions := make([]models.Transaction, 0, limit)
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(
			&t.ID, &t.Title, &t.Price, &t.Description,
			&t.Category, &t.Image, &t.Sold, &t.DateOfSale,
		); err != nil {
			return nil, wrapStoreError(ctx, "scan transaction", err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreError(ctx, "list transactions", err)
	}
	return transactions, nil
}

// Count returns the number of transactions matching filter, ignoring paging.
func (r *TransactionReadRepository) Count(ctx context.Context, filter TransactionFilter) (int64, error) {
	where, args := whereClause(filter)
	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions"+where, args...).Scan(&total); err != nil {
		return 0, wrapStoreError(ctx, "count transactions", err)
	}
	return total, nil
}

func (r *TransactionReadRepository) MonthTotals(ctx context.Context, month time.Month) (*MonthTotals, error) {
	query := `
		SELECT COALESCE(SUM(price), 0),
		       COUNT(*) FILTER (WHERE sold),
		       COUNT(*) FILTER (WHERE NOT sold)
		FROM transactions
		WHERE sale_month = $1
	`
	var totals MonthTotals
	if err := r.db.QueryRowContext(ctx, query, int(month)).Scan(
		&totals.SaleAmount, &totals.SoldCount, &totals.NotSoldCount,
	); err != nil {
		return nil, wrapStoreError(ctx, "compute statistics", err)
	}
	return &totals, nil
}

// CountByPriceRange counts the month's transactions in each range, in the order given.
func (r *TransactionReadRepository) CountByPriceRange(ctx context.Context, month time.Month, ranges []models.PriceRange) ([]int64, error) {
	if len(ranges) == 0 {
		return nil, nil
	}
	query, args := priceRangeQuery(month, ranges)

	counts := make([]int64, len(ranges))
	dest := make([]any, len(ranges))
	for i := range counts {
		dest[i] = &counts[i]
	}
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(dest...); err != nil {
		return nil, wrapStoreError(ctx, "count price ranges", err)
	}
	return counts, nil
}

// CountByCategory groups the month's transactions by category, ordered by name.
func (r *TransactionReadRepository) CountByCategory(ctx context.Context, month time.Month) ([]models.CategoryCount, error) {
	query := `
		SELECT category, COUNT(*)
		FROM transactions
		WHERE sale_month = $1
		GROUP BY category
		ORDER BY category
	`
	rows, err := r.db.QueryContext(ctx, query, int(month))
	if err != nil {
		return nil, wrapStoreError(ctx, "group categories", err)
	}
	defer rows.Close()

	categories := []models.CategoryCount{}
	for rows.Next() {
		var c models.CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, wrapStoreError(ctx, "scan category", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreError(ctx, "group categories", err)
	}
	return categories, nil
}

func (r *TransactionReadRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// whereClause renders filter as a WHERE clause with positional parameters from $1.
func whereClause(filter TransactionFilter) (string, []any) {
	var conditions []string
	var args []any

	if filter.Month != 0 {
		args = append(args, int(filter.Month))
		conditions = append(conditions, fmt.Sprintf("sale_month = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, strings.ToLower(filter.Search))
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(strpos(lower(title), $%d) > 0 OR strpos(lower(description), $%d) > 0 OR strpos(price::text, $%d) > 0)",
			n, n, n))
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// priceRangeQuery builds a single-row query with one COUNT column per range.
// An infinite Max leaves the range open above.
func priceRangeQuery(month time.Month, ranges []models.PriceRange) (string, []any) {
	args := []any{int(month)}
	columns := make([]string, len(ranges))
	for i, pr := range ranges {
		args = append(args, pr.Min)
		minArg := len(args)
		if math.IsInf(pr.Max, 1) {
			columns[i] = fmt.Sprintf("COUNT(*) FILTER (WHERE price >= $%d)", minArg)
			continue
		}
		args = append(args, pr.Max)
		columns[i] = fmt.Sprintf("COUNT(*) FILTER (WHERE price >= $%d AND price < $%d)", minArg, len(args))
	}
	return "SELECT " + strings.Join(columns, ", ") + " FROM transactions WHERE sale_month = $1", args
}
