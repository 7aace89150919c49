package mongo

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"finanzas/internal/ledger"
)

// ownedFilter matches the document id owned by userID. ok is false when id
// is not an ObjectID, in which case nothing can match.
func ownedFilter(userID, id string) (filter bson.M, ok bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, false
	}
	return bson.M{"_id": oid, "user_id": userID}, true
}

func categoryFilter(f ledger.CategoryFilter) (bson.M, bool) {
	filter := bson.M{}
	if f.ID != "" {
		oid, err := primitive.ObjectIDFromHex(f.ID)
		if err != nil {
			return nil, false
		}
		filter["_id"] = oid
	}
	switch len(f.Owners) {
	case 0:
	case 1:
		filter["user_id"] = f.Owners[0]
	default:
		filter["user_id"] = bson.M{"$in": f.Owners}
	}
	if !f.IncludeDeleted {
		// Documents written before the field existed count as active.
		filter["deleted"] = bson.M{"$ne": true}
	}
	return filter, true
}

func transactionFilter(f ledger.TransactionFilter) bson.M {
	filter := bson.M{}
	if f.UserID != "" {
		filter["user_id"] = f.UserID
	}
	if f.CategoryID != "" {
		filter["category_id"] = f.CategoryID
	}
	if f.GoalID != "" {
		filter["goal_id"] = f.GoalID
	}
	ts := bson.M{}
	if !f.From.IsZero() {
		ts["$gte"] = f.From
	}
	if !f.To.IsZero() {
		ts["$lte"] = f.To
	}
	if len(ts) > 0 {
		filter["timestamp"] = ts
	}
	return filter
}
