package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hrit887/mern-challenge/shared/cqrs"
	"github.com/hrit887/mern-challenge/shared/events"
	"github.com/hrit887/mern-challenge/shared/models"
	"github.com/hrit887/mern-challenge/shared/utils"
)

var (
	// ErrSeedSource marks failures fetching or validating the upstream dataset.
	ErrSeedSource = errors.New("seed source error")
	// ErrSeedStore marks failures replacing the stored dataset.
	ErrSeedStore = errors.New("seed store error")
)

// SeedSource provides the dataset that replaces the stored transactions.
type SeedSource interface {
	URL() string
	Fetch(ctx context.Context) ([]models.Transaction, error)
}

// TransactionWriter replaces the whole stored dataset.
type TransactionWriter interface {
	ReplaceAll(ctx context.Context, transactions []models.Transaction) error
}

type EventPublisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

// SeedResult describes a completed seed.
type SeedResult struct {
	BatchID string
	Count   int
}

// SeedCommandService loads the seed dataset into the store. The upstream data is
// validated in full before anything stored is touched.
type SeedCommandService struct {
	source       SeedSource
	writer       TransactionWriter
	publisher    EventPublisher
	storeTimeout time.Duration
}

func NewSeedCommandService(source SeedSource, writer TransactionWriter, publisher EventPublisher, storeTimeout time.Duration) *SeedCommandService {
	if publisher == nil {
		publisher = events.Discard
	}
	return &SeedCommandService{
		source:       source,
		writer:       writer,
		publisher:    publisher,
		storeTimeout: storeTimeout,
	}
}

func (s *SeedCommandService) InitializeDatabase(ctx context.Context, cmd cqrs.InitializeDatabaseCommand) (*SeedResult, error) {
	transactions, err := s.source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSeedSource, err)
	}
	if len(transactions) == 0 {
		return nil, fmt.Errorf("%w: %s returned no transactions", ErrSeedSource, s.source.URL())
	}
	for i, t := range transactions {
		if _, err := t.SaleMonth(); err != nil {
			return nil, fmt.Errorf("%w: record %d (id %d): %w", ErrSeedSource, i, t.ID, err)
		}
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.writer.ReplaceAll(storeCtx, transactions); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSeedStore, err)
	}

	result := &SeedResult{BatchID: utils.GenerateID("seed"), Count: len(transactions)}
	slog.InfoContext(ctx, "Database seeded",
		"batch_id", result.BatchID,
		"count", result.Count,
		"source", s.source.URL(),
	)

	if err := s.publisher.Publish(ctx, events.TransactionEventsStream, events.TransactionsSeeded, events.TransactionsSeededEvent{
		BatchID:     result.BatchID,
		Source:      s.source.URL(),
		Count:       result.Count,
		RequestedBy: cmd.RequestedBy,
	}); err != nil {
		slog.WarnContext(ctx, "Failed to publish transactions.seeded event", "batch_id", result.BatchID, "error", err)
	}
	return result, nil
}
