package repository

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/hrit887/mern-challenge/shared/models"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// transactionDocument is the stored shape: the upstream record plus its derived sale month.
type transactionDocument struct {
	models.Transaction `bson:",inline"`

	SaleMonth int `bson:"saleMonth"`
}

// MongoTransactionRepository keeps transactions in a single MongoDB collection
// and serves both the read and the seed side.
type MongoTransactionRepository struct {
	coll *mongo.Collection
}

func NewMongoTransactionRepository(db *mongo.Database, collection string) *MongoTransactionRepository {
	return &MongoTransactionRepository{coll: db.Collection(collection)}
}

// EnsureIndexes creates the sale month index used by every month-scoped query.
func (r *MongoTransactionRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "saleMonth", Value: 1}},
		Options: options.Index().SetName("idx_sale_month"),
	})
	if err != nil {
		return fmt.Errorf("failed to create sale month index: %w", err)
	}
	return nil
}

func (r *MongoTransactionRepository) Find(ctx context.Context, filter TransactionFilter, offset, limit int) ([]models.Transaction, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, mongoFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer cursor.Close(ctx)

	transactions := make([]models.Transaction, 0, limit)
	if err := cursor.All(ctx, &transactions); err != nil {
		return nil, fmt.Errorf("failed to decode transactions: %w", err)
	}
	return transactions, nil
}

func (r *MongoTransactionRepository) Count(ctx context.Context, filter TransactionFilter) (int64, error) {
	total, err := r.coll.CountDocuments(ctx, mongoFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return total, nil
}

func (r *MongoTransactionRepository) MonthTotals(ctx context.Context, month time.Month) (*MonthTotals, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"saleMonth": int(month)}}},
		{{Key: "$group", Value: bson.M{
			"_id":     nil,
			"total":   bson.M{"$sum": "$price"},
			"sold":    bson.M{"$sum": bson.M{"$cond": bson.A{"$sold", 1, 0}}},
			"notSold": bson.M{"$sum": bson.M{"$cond": bson.A{"$sold", 0, 1}}},
		}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to compute statistics: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total   float64 `bson:"total"`
		Sold    int64   `bson:"sold"`
		NotSold int64   `bson:"notSold"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode statistics: %w", err)
	}

	totals := &MonthTotals{SaleAmount: decimal.Zero}
	if len(results) > 0 {
		totals.SaleAmount = decimal.NewFromFloat(results[0].Total)
		totals.SoldCount = results[0].Sold
		totals.NotSoldCount = results[0].NotSold
	}
	return totals, nil
}

func (r *MongoTransactionRepository) CountByPriceRange(ctx context.Context, month time.Month, ranges []models.PriceRange) ([]int64, error) {
	counts := make([]int64, len(ranges))
	for i, pr := range ranges {
		price := bson.M{"$gte": pr.Min}
		if !math.IsInf(pr.Max, 1) {
			price["$lt"] = pr.Max
		}
		count, err := r.coll.CountDocuments(ctx, bson.M{"saleMonth": int(month), "price": price})
		if err != nil {
			return nil, fmt.Errorf("failed to count price range %s: %w", pr.Label, err)
		}
		counts[i] = count
	}
	return counts, nil
}

func (r *MongoTransactionRepository) CountByCategory(ctx context.Context, month time.Month) ([]models.CategoryCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"saleMonth": int(month)}}},
		{{Key: "$group", Value: bson.M{"_id": "$category", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to group categories: %w", err)
	}
	defer cursor.Close(ctx)

	var groups []struct {
		Category string `bson:"_id"`
		Count    int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}

	categories := make([]models.CategoryCount, len(groups))
	for i, g := range groups {
		categories[i] = models.CategoryCount{Category: g.Category, Count: g.Count}
	}
	return categories, nil
}

// ReplaceAll deletes every document and inserts transactions in their place.
// MongoDB gives no multi-document atomicity here without a replica set, so a
// reader between the two steps can observe an empty collection.
func (r *MongoTransactionRepository) ReplaceAll(ctx context.Context, transactions []models.Transaction) error {
	docs := make([]any, len(transactions))
	for i, t := range transactions {
		month, err := t.SaleMonth()
		if err != nil {
			return fmt.Errorf("failed to insert transaction %d: %w", t.ID, err)
		}
		docs[i] = transactionDocument{Transaction: t, SaleMonth: int(month)}
	}

	if _, err := r.coll.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("failed to clear transactions: %w", err)
	}
	if len(docs) == 0 {
		return nil
	}
	if _, err := r.coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to insert transactions: %w", err)
	}
	return nil
}

func (r *MongoTransactionRepository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, readpref.Primary())
}

// mongoFilter renders filter as a query document. The search text is quoted so
// it matches literally; price is compared through its string form.
func mongoFilter(filter TransactionFilter) bson.M {
	query := bson.M{}
	if filter.Month != 0 {
		query["saleMonth"] = int(filter.Month)
	}
	if filter.Search != "" {
		pattern := regexp.QuoteMeta(filter.Search)
		text := primitive.Regex{Pattern: pattern, Options: "i"}
		query["$or"] = bson.A{
			bson.M{"title": text},
			bson.M{"description": text},
			bson.M{"$expr": bson.M{"$regexMatch": bson.M{
				"input":   bson.M{"$toString": "$price"},
				"regex":   pattern,
				"options": "i",
			}}},
		}
	}
	return query
}
