package repository

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hrit887/mern-challenge/shared/models"
	"github.com/shopspring/decimal"
)

type memoryRecord struct {
	transaction models.Transaction
	month       time.Month
}

// MemoryTransactionRepository holds the dataset in process memory. It serves
// local development and tests; contents are lost on restart.
type MemoryTransactionRepository struct {
	mu      sync.RWMutex
	records []memoryRecord
}

func NewMemoryTransactionRepository() *MemoryTransactionRepository {
	return &MemoryTransactionRepository{}
}

func (r *MemoryTransactionRepository) Find(_ context.Context, filter TransactionFilter, offset, limit int) ([]models.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	transactions := []models.Transaction{}
	skipped := 0
	for _, rec := range r.records {
		if len(transactions) >= limit {
			break
		}
		if !rec.matches(filter) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		transactions = append(transactions, rec.transaction)
	}
	return transactions, nil
}

func (r *MemoryTransactionRepository) Count(_ context.Context, filter TransactionFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total int64
	for _, rec := range r.records {
		if rec.matches(filter) {
			total++
		}
	}
	return total, nil
}

func (r *MemoryTransactionRepository) MonthTotals(_ context.Context, month time.Month) (*MonthTotals, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	totals := &MonthTotals{SaleAmount: decimal.Zero}
	for _, rec := range r.records {
		if rec.month != month {
			continue
		}
		totals.SaleAmount = totals.SaleAmount.Add(decimal.NewFromFloat(rec.transaction.Price))
		if rec.transaction.Sold {
			totals.SoldCount++
		} else {
			totals.NotSoldCount++
		}
	}
	return totals, nil
}

func (r *MemoryTransactionRepository) CountByPriceRange(_ context.Context, month time.Month, ranges []models.PriceRange) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make([]int64, len(ranges))
	for _, rec := range r.records {
		if rec.month != month {
			continue
		}
		for i, pr := range ranges {
			if pr.Contains(rec.transaction.Price) {
				counts[i]++
			}
		}
	}
	return counts, nil
}

func (r *MemoryTransactionRepository) CountByCategory(_ context.Context, month time.Month) ([]models.CategoryCount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byCategory := make(map[string]int64)
	for _, rec := range r.records {
		if rec.month == month {
			byCategory[rec.transaction.Category]++
		}
	}

	categories := make([]models.CategoryCount, 0, len(byCategory))
	for category, count := range byCategory {
		categories = append(categories, models.CategoryCount{Category: category, Count: count})
	}
	sort.Slice(categories, func(i, j int) bool {
		return categories[i].Category < categories[j].Category
	})
	return categories, nil
}

// ReplaceAll swaps in the new dataset under the write lock, so readers see
// either the old or the new records and never an empty window.
func (r *MemoryTransactionRepository) ReplaceAll(_ context.Context, transactions []models.Transaction) error {
	records := make([]memoryRecord, len(transactions))
	for i, t := range transactions {
		month, err := t.SaleMonth()
		if err != nil {
			return err
		}
		records[i] = memoryRecord{transaction: t, month: month}
	}

	r.mu.Lock()
	r.records = records
	r.mu.Unlock()
	return nil
}

func (r *MemoryTransactionRepository) Ping(context.Context) error {
	return nil
}

func (rec memoryRecord) matches(filter TransactionFilter) bool {
	if filter.Month != 0 && rec.month != filter.Month {
		return false
	}
	if filter.Search == "" {
		return true
	}
	search := strings.ToLower(filter.Search)
	t := rec.transaction
	return strings.Contains(strings.ToLower(t.Title), search) ||
		strings.Contains(strings.ToLower(t.Description), search) ||
		strings.Contains(strconv.FormatFloat(t.Price, 'f', -1, 64), search)
}
