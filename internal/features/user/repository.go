package user

import (
	"context"
	"time"

	"acadhub/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]User, error)
	SetCurrentGroup(ctx context.Context, userID primitive.ObjectID, groupID *primitive.ObjectID) error
	ClearCurrentGroupMany(ctx context.Context, userIDs []primitive.ObjectID) error
	ApplyAllocation(ctx context.Context, userIDs []primitive.ObjectID, projectID, facultyID primitive.ObjectID, groupID *primitive.ObjectID) error
	SetCoordinator(ctx context.Context, userID primitive.ObjectID, isCoordinator bool) error
	SetExternalEvaluator(ctx context.Context, userID primitive.ObjectID, flag bool) error
	EnsureIndexes(ctx context.Context) error
}

type UserRepositoryImpl struct {
	collection *mongo.Collection
}

func NewUserRepository(db *database.MongodbDB) UserRepository {
	return &UserRepositoryImpl{
		collection: db.DB.Collection("users"),
	}
}

func (r *UserRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *UserRepositoryImpl) Create(ctx context.Context, user *User) error {
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()

	result, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		return err
	}

	user.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *UserRepositoryImpl) FindByID(ctx context.Context, id primitive.ObjectID) (*User, error) {
	var user User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) FindByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]User, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepositoryImpl) SetCurrentGroup(ctx context.Context, userID primitive.ObjectID, groupID *primitive.ObjectID) error {
	update := bson.M{"$set": bson.M{"updated_at": time.Now()}}
	if groupID == nil {
		update["$unset"] = bson.M{"current_group_id": ""}
	} else {
		update["$set"].(bson.M)["current_group_id"] = *groupID
	}

	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": userID}, update)
	return err
}

func (r *UserRepositoryImpl) ClearCurrentGroupMany(ctx context.Context, userIDs []primitive.ObjectID) error {
	_, err := r.collection.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": userIDs}}, bson.M{
		"$unset": bson.M{"current_group_id": ""},
		"$set":   bson.M{"updated_at": time.Now()},
	})
	return err
}

func (r *UserRepositoryImpl) ApplyAllocation(ctx context.Context, userIDs []primitive.ObjectID, projectID, facultyID primitive.ObjectID, groupID *primitive.ObjectID) error {
	set := bson.M{
		"assigned_project_id": projectID,
		"assigned_faculty_id": facultyID,
		"updated_at":          time.Now(),
	}
	update := bson.M{"$set": set}
	if groupID == nil {
		update["$unset"] = bson.M{"current_group_id": ""}
	} else {
		set["current_group_id"] = *groupID
	}

	_, err := r.collection.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": userIDs}}, update)
	return err
}

func (r *UserRepositoryImpl) SetCoordinator(ctx context.Context, userID primitive.ObjectID, isCoordinator bool) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$set": bson.M{"is_coordinator": isCoordinator, "updated_at": time.Now()},
	})
	return err
}

func (r *UserRepositoryImpl) SetExternalEvaluator(ctx context.Context, userID primitive.ObjectID, flag bool) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$set": bson.M{"is_external_evaluator": flag, "updated_at": time.Now()},
	})
	return err
}
