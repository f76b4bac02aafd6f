package semester

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

type WindowRepository interface {
	Upsert(ctx context.Context, w *Window) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*Window, error)
	Find(ctx context.Context, projectType models.ProjectType, year int, semester string) (*Window, error)
	FindAll(ctx context.Context) ([]Window, error)
	SetOpen(ctx context.Context, id primitive.ObjectID, open bool) error
	CloseExpired(ctx context.Context, now time.Time) (int64, error)
	EnsureIndexes(ctx context.Context) error
}

type WindowRepositoryImpl struct {
	collection *mongo.Collection
}

func NewWindowRepository(db *database.MongodbDB) WindowRepository {
	return &WindowRepositoryImpl{collection: db.DB.Collection("submission_windows")}
}

func (r *WindowRepositoryImpl) Upsert(ctx context.Context, w *Window) error {
	now := time.Now()
	filter := bson.M{"project_type": w.Type, "year": w.Year, "semester": w.Semester}
	update := bson.M{
		"$set": bson.M{
			"opens_at":   w.OpensAt,
			"closes_at":  w.ClosesAt,
			"is_open":    w.IsOpen,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"project_type": w.Type,
			"year":         w.Year,
			"semester":     w.Semester,
			"created_at":   now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	return r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(w)
}

func (r *WindowRepositoryImpl) FindByID(ctx context.Context, id primitive.ObjectID) (*Window, error) {
	var w Window
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&w)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WindowRepositoryImpl) Find(ctx context.Context, projectType models.ProjectType, year int, semester string) (*Window, error) {
	filter := bson.M{"project_type": projectType, "year": year}
	if semester != "" {
		filter["semester"] = semester
	}
	var w Window
	err := r.collection.FindOne(ctx, filter).Decode(&w)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WindowRepositoryImpl) FindAll(ctx context.Context) ([]Window, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"opens_at": -1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []Window{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *WindowRepositoryImpl) SetOpen(ctx context.Context, id primitive.ObjectID, open bool) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"is_open": open, "updated_at": time.Now()}},
	)
	return err
}

func (r *WindowRepositoryImpl) CloseExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.collection.UpdateMany(ctx,
		bson.M{"is_open": true, "closes_at": bson.M{"$lte": now}},
		bson.M{"$set": bson.M{"is_open": false, "updated_at": now}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *WindowRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "project_type", Value: 1}, {Key: "year", Value: 1}, {Key: "semester", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "is_open", Value: 1}, {Key: "closes_at", Value: 1}}},
	})
	return err
}
