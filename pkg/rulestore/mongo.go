package rulestore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/fluxgate/fluxgate/pkg/fluxerr"
	"github.com/fluxgate/fluxgate/pkg/rule"
)

// DefaultCollection is the MongoDB collection rule documents live in.
const DefaultCollection = "rules"

// MongoRepository stores rule documents in a MongoDB collection, keyed by
// rule id. This is the production backend.
type MongoRepository struct {
	col *mongo.Collection
}

// NewMongoRepository binds the repository to the rules collection of db.
func NewMongoRepository(db *mongo.Database) (*MongoRepository, error) {
	if db == nil {
		return nil, fluxerr.New(fluxerr.KindInvalidArgument, "rulestore.NewMongoRepository", ErrNilDatabase)
	}
	return &MongoRepository{col: db.Collection(DefaultCollection)}, nil
}

func (m *MongoRepository) FindByRuleSetID(ctx context.Context, ruleSetID string) ([]rule.Rule, error) {
	const op = "rulestore.mongo.FindByRuleSetID"

	if ruleSetID == "" {
		return nil, fluxerr.New(fluxerr.KindInvalidArgument, op, ErrEmptyRuleSetID)
	}
	return m.find(ctx, op, bson.M{"rule_set_id": ruleSetID})
}

func (m *MongoRepository) FindByID(ctx context.Context, id string) (rule.Rule, error) {
	const op = "rulestore.mongo.FindByID"

	if id == "" {
		return rule.Rule{}, fluxerr.New(fluxerr.KindInvalidArgument, op, ErrEmptyID)
	}

	var r rule.Rule
	err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return rule.Rule{}, ErrNotFound
		}
		return rule.Rule{}, wrapMongo(op, err)
	}
	return r, nil
}

func (m *MongoRepository) Save(ctx context.Context, r rule.Rule) error {
	const op = "rulestore.mongo.Save"

	if err := r.Validate(); err != nil {
		return fluxerr.New(fluxerr.KindInvalidArgument, op, err)
	}

	_, err := m.col.ReplaceOne(ctx, bson.M{"_id": r.ID}, r, options.Replace().SetUpsert(true))
	if err != nil {
		return wrapMongo(op, err)
	}
	return nil
}

func (m *MongoRepository) DeleteByID(ctx context.Context, id string) (bool, error) {
	const op = "rulestore.mongo.DeleteByID"

	if id == "" {
		return false, fluxerr.New(fluxerr.KindInvalidArgument, op, ErrEmptyID)
	}

	res, err := m.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, wrapMongo(op, err)
	}
	return res.DeletedCount > 0, nil
}

func (m *MongoRepository) FindAll(ctx context.Context) ([]rule.Rule, error) {
	return m.find(ctx, "rulestore.mongo.FindAll", bson.M{})
}

func (m *MongoRepository) DeleteByRuleSetID(ctx context.Context, ruleSetID string) (int64, error) {
	const op = "rulestore.mongo.DeleteByRuleSetID"

	if ruleSetID == "" {
		return 0, fluxerr.New(fluxerr.KindInvalidArgument, op, ErrEmptyRuleSetID)
	}

	res, err := m.col.DeleteMany(ctx, bson.M{"rule_set_id": ruleSetID})
	if err != nil {
		return 0, wrapMongo(op, err)
	}
	return res.DeletedCount, nil
}

func (m *MongoRepository) find(ctx context.Context, op string, filter bson.M) ([]rule.Rule, error) {
	cur, err := m.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, wrapMongo(op, err)
	}

	var rules []rule.Rule
	if err := cur.All(ctx, &rules); err != nil {
		return nil, wrapMongo(op, err)
	}
	return rules, nil
}

func wrapMongo(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fluxerr.New(fluxerr.KindTimeout, op, err)
	}
	return fluxerr.New(fluxerr.KindStoreConnection, op, err)
}
