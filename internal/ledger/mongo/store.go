// Package mongo is the MongoDB ledger store. Amounts are stored as integer
// cents and identifiers as ObjectIDs.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"finanzas/internal/core"
	"finanzas/internal/ledger"
)

// Config configures the connection.
type Config struct {
	URI      string
	Database string
	// Transactions runs units of work in multi-document transactions.
	// Requires a replica set or sharded cluster.
	Transactions bool
}

type Store struct {
	client *mongo.Client
	db     *mongo.Database
	useTx  bool
	logger *slog.Logger
}

var _ ledger.Store = (*Store)(nil)

// Open connects, verifies the primary is reachable and ensures indexes.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	s := &Store{client: client, db: client.Database(cfg.Database), useTx: cfg.Transactions, logger: logger}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	if err := s.seedSharedCategories(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// sharedCategorySeeds upserts the default shared categories under the same
// ids the SQLite seed migration uses. Existing documents keep their limits,
// totals and deleted flag.
func sharedCategorySeeds() []mongo.WriteModel {
	models := make([]mongo.WriteModel, 0, len(core.DefaultSharedCategories))
	for i, name := range core.DefaultSharedCategories {
		var id primitive.ObjectID
		id[len(id)-1] = byte(i + 1)
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": id}).
			SetUpdate(bson.M{"$setOnInsert": categoryDoc{
				UserID: core.SharedOwner,
				Name:   name,
			}}).
			SetUpsert(true))
	}
	return models
}

func (s *Store) seedSharedCategories(ctx context.Context) error {
	res, err := s.coll(categoriesCollection).BulkWrite(ctx, sharedCategorySeeds(), options.BulkWrite().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("seed shared categories: %w", err)
	}
	if res.UpsertedCount > 0 {
		s.logger.Info("Seeded shared categories", "count", res.UpsertedCount)
	}
	return nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		goalsCollection:      {{Keys: bson.D{{Key: "user_id", Value: 1}}}},
		categoriesCollection: {{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "deleted", Value: 1}}}},
		expensesCollection: {{Keys: bson.D{
			{Key: "user_id", Value: 1}, {Key: "category_id", Value: 1}, {Key: "timestamp", Value: -1},
		}}},
		incomesCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}}},
			{Keys: bson.D{{Key: "goal_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		},
		profilesCollection: {{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)}},
	}
	for coll, models := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

// Ping reports whether the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// WithinTx runs fn in a session transaction when transactions are enabled.
// Otherwise the calls run in sequence and a failure after the first write
// leaves the earlier writes in place.
func (s *Store) WithinTx(ctx context.Context, fn ledger.TxFunc) error {
	if !s.useTx || mongo.SessionFromContext(ctx) != nil {
		return fn(ctx, s)
	}
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, s)
	})
	return err
}

func (s *Store) coll(name string) *mongo.Collection { return s.db.Collection(name) }

func (s *Store) InsertGoal(ctx context.Context, g core.SavingsGoal) (string, error) {
	res, err := s.coll(goalsCollection).InsertOne(ctx, goalDoc{
		UserID:             g.UserID,
		Name:               g.Name,
		TargetAmountCents:  g.TargetAmount.Cents,
		CurrentAmountCents: g.CurrentAmount.Cents,
		StartDate:          g.StartDate,
		TargetDate:         g.TargetDate,
	})
	if err != nil {
		return "", fmt.Errorf("insert goal: %w", err)
	}
	return insertedHex(res), nil
}

func (s *Store) FindGoals(ctx context.Context, userID string) ([]core.SavingsGoal, error) {
	var docs []goalDoc
	if err := s.findAll(ctx, goalsCollection, bson.M{"user_id": userID}, nil, &docs); err != nil {
		return nil, fmt.Errorf("find goals: %w", err)
	}
	goals := make([]core.SavingsGoal, len(docs))
	for i, d := range docs {
		goals[i] = d.toCore()
	}
	return goals, nil
}

func (s *Store) FindGoal(ctx context.Context, userID, id string) (core.SavingsGoal, error) {
	filter, ok := ownedFilter(userID, id)
	if !ok {
		return core.SavingsGoal{}, core.ErrGoalNotFound
	}
	var d goalDoc
	err := s.coll(goalsCollection).FindOne(ctx, filter).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.SavingsGoal{}, core.ErrGoalNotFound
	}
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("find goal %s: %w", id, err)
	}
	return d.toCore(), nil
}

func (s *Store) UpdateGoal(ctx context.Context, userID, id string, f core.GoalFields) (bool, error) {
	g := core.NewSavingsGoal(userID, f)
	return s.updateOwned(ctx, goalsCollection, userID, id, bson.M{"$set": bson.M{
		"name":                g.Name,
		"target_amount_cents": g.TargetAmount.Cents,
		"start_date":          g.StartDate,
		"target_date":         g.TargetDate,
	}})
}

func (s *Store) DeleteGoal(ctx context.Context, userID, id string) (bool, error) {
	filter, ok := ownedFilter(userID, id)
	if !ok {
		return false, nil
	}
	res, err := s.coll(goalsCollection).DeleteOne(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("delete goal %s: %w", id, err)
	}
	return res.DeletedCount > 0, nil
}

func (s *Store) IncrementGoalAmount(ctx context.Context, userID, id string, delta core.Money) (bool, error) {
	return s.updateOwned(ctx, goalsCollection, userID, id, bson.M{"$inc": bson.M{"current_amount_cents": delta.Cents}})
}

func (s *Store) InsertCategory(ctx context.Context, c core.ExpenseCategory) (string, error) {
	res, err := s.coll(categoriesCollection).InsertOne(ctx, categoryDoc{
		UserID:          c.UserID,
		Name:            c.Name,
		SpendLimitCents: c.SpendLimit.Cents,
		SpendTotalCents: c.SpendTotal.Cents,
		Deleted:         c.Deleted,
	})
	if err != nil {
		return "", fmt.Errorf("insert category: %w", err)
	}
	return insertedHex(res), nil
}

func (s *Store) FindCategories(ctx context.Context, f ledger.CategoryFilter) ([]core.ExpenseCategory, error) {
	filter, ok := categoryFilter(f)
	if !ok {
		return []core.ExpenseCategory{}, nil
	}
	var docs []categoryDoc
	if err := s.findAll(ctx, categoriesCollection, filter, nil, &docs); err != nil {
		return nil, fmt.Errorf("find categories: %w", err)
	}
	cats := make([]core.ExpenseCategory, len(docs))
	for i, d := range docs {
		cats[i] = d.toCore()
	}
	return cats, nil
}

func (s *Store) UpdateCategory(ctx context.Context, userID, id string, f core.CategoryFields) (bool, error) {
	filter, ok := ownedFilter(userID, id)
	if !ok {
		return false, nil
	}
	filter["deleted"] = bson.M{"$ne": true}
	c := core.NewExpenseCategory(userID, f)
	res, err := s.coll(categoriesCollection).UpdateOne(ctx, filter, bson.M{"$set": bson.M{
		"name":              c.Name,
		"spend_limit_cents": c.SpendLimit.Cents,
	}})
	if err != nil {
		return false, fmt.Errorf("update category %s: %w", id, err)
	}
	return res.MatchedCount > 0, nil
}

func (s *Store) IncrementCategorySpend(ctx context.Context, userID, id string, delta core.Money) (bool, error) {
	return s.updateOwned(ctx, categoriesCollection, userID, id, bson.M{"$inc": bson.M{"spend_total_cents": delta.Cents}})
}

func (s *Store) MarkCategoryDeleted(ctx context.Context, userID, id string) (bool, error) {
	filter, ok := ownedFilter(userID, id)
	if !ok {
		return false, nil
	}
	filter["deleted"] = bson.M{"$ne": true}
	res, err := s.coll(categoriesCollection).UpdateOne(ctx, filter, bson.M{"$set": bson.M{"deleted": true}})
	if err != nil {
		return false, fmt.Errorf("delete category %s: %w", id, err)
	}
	return res.ModifiedCount > 0, nil
}

func (s *Store) InsertTransaction(ctx context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	res, err := s.coll(collectionFor(t.Kind)).InsertOne(ctx, transactionDoc{
		UserID:      t.UserID,
		AmountCents: t.Amount.Cents,
		Timestamp:   t.Timestamp,
		Description: t.Description,
		CategoryID:  t.CategoryID,
		GoalID:      t.GoalID,
	})
	if err != nil {
		return "", fmt.Errorf("insert %s: %w", t.Kind, err)
	}
	id := insertedHex(res)
	s.logger.DebugContext(ctx, "Ledger entry saved to MongoDB", "id", id, "kind", t.Kind)
	return id, nil
}

// FindTransactions queries one collection per kind and merges the results
// when the filter spans both.
func (s *Store) FindTransactions(ctx context.Context, f ledger.TransactionFilter) ([]core.Transaction, error) {
	kinds := []core.TransactionKind{core.KindExpense, core.KindIncome}
	if f.Kind != "" {
		kinds = []core.TransactionKind{f.Kind}
	}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}

	out := []core.Transaction{}
	for _, kind := range kinds {
		var docs []transactionDoc
		if err := s.findAll(ctx, collectionFor(kind), transactionFilter(f), opts, &docs); err != nil {
			return nil, fmt.Errorf("find %s: %w", kind, err)
		}
		for _, d := range docs {
			out = append(out, d.toCore(kind))
		}
	}
	if len(kinds) > 1 {
		slices.SortStableFunc(out, func(a, b core.Transaction) int {
			return b.Timestamp.Compare(a.Timestamp)
		})
		if f.Limit > 0 && len(out) > f.Limit {
			out = out[:f.Limit]
		}
	}
	return out, nil
}

func (s *Store) InsertProfile(ctx context.Context, p core.FinancialProfile) error {
	_, err := s.coll(profilesCollection).InsertOne(ctx, newProfileDoc(p))
	if mongo.IsDuplicateKeyError(err) {
		return core.ErrProfileExists
	}
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (s *Store) FindProfile(ctx context.Context, userID string) (core.FinancialProfile, error) {
	var d profileDoc
	err := s.coll(profilesCollection).FindOne(ctx, bson.M{"user_id": userID}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.FinancialProfile{}, core.ErrProfileNotFound
	}
	if err != nil {
		return core.FinancialProfile{}, fmt.Errorf("find profile: %w", err)
	}
	return d.toCore(), nil
}

func (s *Store) UpdateProfile(ctx context.Context, userID string, f core.ProfileFields) (bool, error) {
	res, err := s.coll(profilesCollection).UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": newProfileDoc(core.NewFinancialProfile(userID, f))})
	if err != nil {
		return false, fmt.Errorf("update profile: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func (s *Store) updateOwned(ctx context.Context, coll, userID, id string, update bson.M) (bool, error) {
	filter, ok := ownedFilter(userID, id)
	if !ok {
		return false, nil
	}
	res, err := s.coll(coll).UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("update %s %s: %w", coll, id, err)
	}
	return res.MatchedCount > 0, nil
}

func (s *Store) findAll(ctx context.Context, coll string, filter bson.M, opts *options.FindOptions, out interface{}) error {
	if opts == nil {
		opts = options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	}
	cur, err := s.coll(coll).Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	return cur.All(ctx, out)
}

func collectionFor(kind core.TransactionKind) string {
	if kind == core.KindIncome {
		return incomesCollection
	}
	return expensesCollection
}

func insertedHex(res *mongo.InsertOneResult) string {
	if oid, ok := res.InsertedID.(interface{ Hex() string }); ok {
		return oid.Hex()
	}
	return fmt.Sprint(res.InsertedID)
}
