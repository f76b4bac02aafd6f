package eligibility

import (
	"context"
	"time"

	"acadhub/internal/common/models"
	"acadhub/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type RuleRepository interface {
	Upsert(ctx context.Context, r *Rule) error
	Find(ctx context.Context, projectType models.ProjectType, year int) (*Rule, error)
	FindAll(ctx context.Context) ([]Rule, error)
	SetEnabled(ctx context.Context, id primitive.ObjectID, enabled bool) error
	EnsureIndexes(ctx context.Context) error
}

type RuleRepositoryImpl struct {
	collection *mongo.Collection
}

func NewRuleRepository(db *database.MongodbDB) RuleRepository {
	return &RuleRepositoryImpl{collection: db.DB.Collection("eligibility_rules")}
}

func (r *RuleRepositoryImpl) Upsert(ctx context.Context, rule *Rule) error {
	now := time.Now()
	filter := bson.M{"project_type": rule.Type, "year": rule.Year}
	update := bson.M{
		"$set": bson.M{
			"script":     rule.Script,
			"fail_open":  rule.FailOpen,
			"enabled":    rule.Enabled,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"project_type": rule.Type,
			"year":         rule.Year,
			"created_at":   now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	return r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(rule)
}

func (r *RuleRepositoryImpl) Find(ctx context.Context, projectType models.ProjectType, year int) (*Rule, error) {
	var rule Rule
	err := r.collection.FindOne(ctx, bson.M{"project_type": projectType, "year": year}).Decode(&rule)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *RuleRepositoryImpl) FindAll(ctx context.Context) ([]Rule, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []Rule{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *RuleRepositoryImpl) SetEnabled(ctx context.Context, id primitive.ObjectID, enabled bool) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"enabled": enabled, "updated_at": time.Now()}},
	)
	return err
}

func (r *RuleRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "project_type", Value: 1}, {Key: "year", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
