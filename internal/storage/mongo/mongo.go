// Package mongo is the document-store backend.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"expense-tracker/internal/core"
	"expense-tracker/internal/storage"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	transactionsCollection = "transactions"
	limitsCollection       = "limits"
	summaryCollection      = "ai-usages"
)

// Store wraps the MongoDB collections used by the tracker.
type Store struct {
	client       *mongo.Client
	transactions *mongo.Collection
	limits       *mongo.Collection
	summary      *mongo.Collection
}

var _ storage.Store = (*Store)(nil)

// New connects to uri, verifies the connection and ensures indexes.
func New(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(dbName)
	s := &Store{
		client:       client,
		transactions: db.Collection(transactionsCollection),
		limits:       db.Collection(limitsCollection),
		summary:      db.Collection(summaryCollection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	unique := mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := s.limits.Indexes().CreateOne(ctx, unique); err != nil {
		return fmt.Errorf("create limits index: %w", err)
	}
	if _, err := s.summary.Indexes().CreateOne(ctx, unique); err != nil {
		return fmt.Errorf("create ai-usages index: %w", err)
	}
	byUser := mongo.IndexModel{Keys: bson.D{{Key: "username", Value: 1}}}
	if _, err := s.transactions.Indexes().CreateOne(ctx, byUser); err != nil {
		return fmt.Errorf("create transactions index: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

type transactionDoc struct {
	ID              string               `bson:"_id"`
	Username        string               `bson:"username"`
	Title           string               `bson:"title"`
	Description     string               `bson:"description"`
	Amount          primitive.Decimal128 `bson:"amount"`
	Type            string               `bson:"type"`
	Category        string               `bson:"category"`
	Date            time.Time            `bson:"date"`
	IsRecursive     bool                 `bson:"isRecursive"`
	RecursionPeriod string               `bson:"recursionPeriod,omitempty"`
	EndDate         *time.Time           `bson:"endDate,omitempty"`
	CreatedAt       time.Time            `bson:"createdAt"`
	UpdatedAt       time.Time            `bson:"updatedAt"`
}

func toDoc(tx core.Transaction) (transactionDoc, error) {
	amount, err := toDecimal128(tx.Amount)
	if err != nil {
		return transactionDoc{}, err
	}
	doc := transactionDoc{
		ID:              tx.ID,
		Username:        tx.Username,
		Title:           tx.Title,
		Description:     tx.Description,
		Amount:          amount,
		Type:            string(tx.Type),
		Category:        tx.Category,
		Date:            tx.Date,
		IsRecursive:     tx.IsRecursive,
		RecursionPeriod: string(tx.RecursionPeriod),
		CreatedAt:       tx.CreatedAt,
		UpdatedAt:       tx.UpdatedAt,
	}
	if tx.HasEndDate() {
		end := tx.EndDate
		doc.EndDate = &end
	}
	return doc, nil
}

func (d transactionDoc) toTransaction() (core.Transaction, error) {
	amount, err := decimal.NewFromString(d.Amount.String())
	if err != nil {
		return core.Transaction{}, fmt.Errorf("decode amount: %w", err)
	}
	tx := core.Transaction{
		ID:              d.ID,
		Username:        d.Username,
		Title:           d.Title,
		Description:     d.Description,
		Amount:          amount,
		Type:            core.TransactionType(d.Type),
		Category:        d.Category,
		Date:            d.Date,
		IsRecursive:     d.IsRecursive,
		RecursionPeriod: core.RecursionPeriod(d.RecursionPeriod),
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
	if d.EndDate != nil {
		tx.EndDate = *d.EndDate
	}
	return tx, nil
}

func (s *Store) CreateTransaction(ctx context.Context, tx core.Transaction) error {
	doc, err := toDoc(tx)
	if err != nil {
		return err
	}
	if _, err := s.transactions.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("transaction %s: %w", tx.ID, storage.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, username, id string) (core.Transaction, error) {
	var doc transactionDoc
	err := s.transactions.FindOne(ctx, bson.M{"_id": id, "username": username}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("failed to find transaction: %w", err)
	}
	return doc.toTransaction()
}

// ListTransactions returns the user's transactions in natural order.
func (s *Store) ListTransactions(ctx context.Context, username string) ([]core.Transaction, error) {
	cursor, err := s.transactions.Find(ctx, bson.M{"username": username})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}
	defer cursor.Close(ctx)

	out := []core.Transaction{}
	for cursor.Next(ctx) {
		var doc transactionDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode transaction: %w", err)
		}
		tx, err := doc.toTransaction()
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, cursor.Err()
}

func (s *Store) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	doc, err := toDoc(tx)
	if err != nil {
		return err
	}
	res, err := s.transactions.ReplaceOne(ctx, bson.M{"_id": tx.ID, "username": tx.Username}, doc)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("transaction %s: %w", tx.ID, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, username, id string) error {
	res, err := s.transactions.DeleteOne(ctx, bson.M{"_id": id, "username": username})
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("transaction %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) ListUsernames(ctx context.Context) ([]string, error) {
	values, err := s.transactions.Distinct(ctx, "username", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list usernames: %w", err)
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if u, ok := v.(string); ok {
			out = append(out, u)
		}
	}
	return out, nil
}

type limitsDoc struct {
	Username  string                          `bson:"username"`
	Limits    map[string]primitive.Decimal128 `bson:"limits"`
	UpdatedAt time.Time                       `bson:"updatedAt"`
}

func toLimitsDoc(cfg core.LimitsConfig) (limitsDoc, error) {
	doc := limitsDoc{
		Username:  cfg.Username,
		Limits:    make(map[string]primitive.Decimal128, len(cfg.Limits)),
		UpdatedAt: cfg.UpdatedAt,
	}
	for g, v := range cfg.Limits {
		d, err := toDecimal128(v)
		if err != nil {
			return limitsDoc{}, err
		}
		doc.Limits[string(g)] = d
	}
	return doc, nil
}

func (s *Store) GetLimits(ctx context.Context, username string) (core.LimitsConfig, error) {
	var doc limitsDoc
	err := s.limits.FindOne(ctx, bson.M{"username": username}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.LimitsConfig{}, fmt.Errorf("limits for %s: %w", username, storage.ErrNotFound)
	}
	if err != nil {
		return core.LimitsConfig{}, fmt.Errorf("failed to find limits: %w", err)
	}

	cfg := core.LimitsConfig{Username: doc.Username, Limits: core.Limits{}, UpdatedAt: doc.UpdatedAt}
	for g, v := range doc.Limits {
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return core.LimitsConfig{}, fmt.Errorf("decode limit %s: %w", g, err)
		}
		cfg.Limits[core.Group(g)] = d
	}
	return cfg, nil
}

func (s *Store) CreateLimits(ctx context.Context, cfg core.LimitsConfig) error {
	doc, err := toLimitsDoc(cfg)
	if err != nil {
		return err
	}
	if _, err := s.limits.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("limits for %s: %w", cfg.Username, storage.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to insert limits: %w", err)
	}
	return nil
}

func (s *Store) UpdateLimits(ctx context.Context, cfg core.LimitsConfig) error {
	doc, err := toLimitsDoc(cfg)
	if err != nil {
		return err
	}
	update := bson.M{"$set": bson.M{"limits": doc.Limits, "updatedAt": doc.UpdatedAt}}
	res, err := s.limits.UpdateOne(ctx, bson.M{"username": cfg.Username}, update)
	if err != nil {
		return fmt.Errorf("failed to update limits: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("limits for %s: %w", cfg.Username, storage.ErrNotFound)
	}
	return nil
}

// ClaimSummarySlot first tries to move an expired timestamp forward, then
// falls back to inserting the first record. The unique index on username
// turns a concurrent first insert into a duplicate key error.
func (s *Store) ClaimSummarySlot(ctx context.Context, username string, now time.Time, window time.Duration) (bool, error) {
	filter := bson.M{
		"username":     username,
		"lastActivity": bson.M{"$lte": now.Add(-window)},
	}
	update := bson.M{"$set": bson.M{"lastActivity": now}}
	err := s.summary.FindOneAndUpdate(ctx, filter, update).Err()
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return false, fmt.Errorf("failed to claim summary slot: %w", err)
	}

	_, err = s.summary.InsertOne(ctx, bson.M{"username": username, "lastActivity": now})
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to record summary usage: %w", err)
	}
	return true, nil
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("encode amount %s: %w", d, err)
	}
	return v, nil
}
