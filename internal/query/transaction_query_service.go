package query

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/hrit887/mern-challenge/internal/repository"
	"github.com/hrit887/mern-challenge/shared/cqrs"
	"github.com/hrit887/mern-challenge/shared/models"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidMonth      = errors.New("invalid month")
	ErrInvalidPagination = errors.New("invalid pagination")
)

// TransactionReader is the store surface the query side depends on.
type TransactionReader interface {
	Find(ctx context.Context, filter repository.TransactionFilter, offset, limit int) ([]models.Transaction, error)
	Count(ctx context.Context, filter repository.TransactionFilter) (int64, error)
	MonthTotals(ctx context.Context, month time.Month) (*repository.MonthTotals, error)
	CountByPriceRange(ctx context.Context, month time.Month, ranges []models.PriceRange) ([]int64, error)
	CountByCategory(ctx context.Context, month time.Month) ([]models.CategoryCount, error)
}

// PriceRanges is the fixed histogram table. Bounds are [Min, Max); the one-unit
// gaps between buckets (100 to 101, 200 to 201, ...) are part of the published table.
var PriceRanges = []models.PriceRange{
	{Label: "0-100", Min: 0, Max: 100},
	{Label: "101-200", Min: 101, Max: 200},
	{Label: "201-300", Min: 201, Max: 300},
	{Label: "301-400", Min: 301, Max: 400},
	{Label: "401-500", Min: 401, Max: 500},
	{Label: "501-600", Min: 501, Max: 600},
	{Label: "601-700", Min: 601, Max: 700},
	{Label: "701-800", Min: 701, Max: 800},
	{Label: "801-900", Min: 801, Max: 900},
	{Label: "901-above", Min: 901, Max: math.Inf(1)},
}

// TransactionQueryService serves the listing and the month views. Each store
// round trip runs under the configured timeout.
type TransactionQueryService struct {
	reader  TransactionReader
	timeout time.Duration
}

func NewTransactionQueryService(reader TransactionReader, timeout time.Duration) *TransactionQueryService {
	return &TransactionQueryService{reader: reader, timeout: timeout}
}

// ListTransactions returns one page of matching transactions plus the total match count.
func (s *TransactionQueryService) ListTransactions(ctx context.Context, q cqrs.ListTransactionsQuery) (*models.TransactionPage, error) {
	if q.Month < 0 || q.Month > time.December {
		return nil, ErrInvalidMonth
	}
	if q.Page < 1 || q.PerPage < 1 {
		return nil, ErrInvalidPagination
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	filter := repository.TransactionFilter{Month: q.Month, Search: q.Search}
	transactions, err := s.reader.Find(ctx, filter, (q.Page-1)*q.PerPage, q.PerPage)
	if err != nil {
		return nil, err
	}
	total, err := s.reader.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	if transactions == nil {
		transactions = []models.Transaction{}
	}

	return &models.TransactionPage{
		Transactions: transactions,
		Pagination: models.Pagination{
			Page:    q.Page,
			PerPage: q.PerPage,
			Total:   total,
		},
	}, nil
}

// GetStatistics sums the month's sale amount and counts sold and unsold items.
// A month without transactions yields zeroes.
func (s *TransactionQueryService) GetStatistics(ctx context.Context, q cqrs.MonthQuery) (*models.Statistics, error) {
	if err := validateMonth(q.Month); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	totals, err := s.reader.MonthTotals(ctx, q.Month)
	if err != nil {
		return nil, err
	}
	return &models.Statistics{
		TotalSaleAmount:   totals.SaleAmount.InexactFloat64(),
		TotalSoldItems:    totals.SoldCount,
		TotalNotSoldItems: totals.NotSoldCount,
	}, nil
}

// GetPriceRanges returns every bucket of PriceRanges, in order, with the month's count.
func (s *TransactionQueryService) GetPriceRanges(ctx context.Context, q cqrs.MonthQuery) ([]models.PriceRangeCount, error) {
	if err := validateMonth(q.Month); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	counts, err := s.reader.CountByPriceRange(ctx, q.Month, PriceRanges)
	if err != nil {
		return nil, err
	}
	if len(counts) != len(PriceRanges) {
		return nil, fmt.Errorf("price range count mismatch: got %d want %d", len(counts), len(PriceRanges))
	}

	result := make([]models.PriceRangeCount, len(PriceRanges))
	for i, pr := range PriceRanges {
		result[i] = models.PriceRangeCount{Range: pr.Label, Count: counts[i]}
	}
	return result, nil
}

func (s *TransactionQueryService) GetCategoryBreakdown(ctx context.Context, q cqrs.MonthQuery) ([]models.CategoryCount, error) {
	if err := validateMonth(q.Month); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	categories, err := s.reader.CountByCategory(ctx, q.Month)
	if err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []models.CategoryCount{}
	}
	return categories, nil
}

// GetCombined runs the three month views concurrently. The first failure
// cancels the others and is returned without a partial view.
func (s *TransactionQueryService) GetCombined(ctx context.Context, q cqrs.MonthQuery) (*models.CombinedView, error) {
	if err := validateMonth(q.Month); err != nil {
		return nil, err
	}

	var view models.CombinedView
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := s.GetStatistics(ctx, q)
		view.Statistics = stats
		return err
	})
	g.Go(func() error {
		bars, err := s.GetPriceRanges(ctx, q)
		view.BarChart = bars
		return err
	})
	g.Go(func() error {
		pie, err := s.GetCategoryBreakdown(ctx, q)
		view.PieChart = pie
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *TransactionQueryService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func validateMonth(month time.Month) error {
	if month < time.January || month > time.December {
		return ErrInvalidMonth
	}
	return nil
}
