package project

import (
	"context"
	"time"

	"acadhub/internal/common/models"
	"acadhub/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type ProjectRepository interface {
	Create(ctx context.Context, p *Project) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*Project, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]Project, error)
	FindByFaculty(ctx context.Context, facultyID primitive.ObjectID) ([]Project, error)
	FindPublished(ctx context.Context, projectType models.ProjectType, year int) ([]Project, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, from, to Status) (bool, error)
	ConsumeCapacity(ctx context.Context, id, facultyID, assigneeID primitive.ObjectID) (bool, error)
	MarkAssignedIfFull(ctx context.Context, id primitive.ObjectID) error
}

type ProjectRepositoryImpl struct {
	collection *mongo.Collection
}

func NewProjectRepository(db *database.MongodbDB) ProjectRepository {
	return &ProjectRepositoryImpl{
		collection: db.DB.Collection("projects"),
	}
}

func (r *ProjectRepositoryImpl) Create(ctx context.Context, p *Project) error {
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	if p.Capacity <= 0 {
		p.Capacity = 1
	}
	if p.AssignedTo == nil {
		p.AssignedTo = []primitive.ObjectID{}
	}

	result, err := r.collection.InsertOne(ctx, p)
	if err != nil {
		return err
	}

	p.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *ProjectRepositoryImpl) FindByID(ctx context.Context, id primitive.ObjectID) (*Project, error) {
	var p Project
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProjectRepositoryImpl) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]Project, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var projects []Project
	if err := cursor.All(ctx, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *ProjectRepositoryImpl) FindByFaculty(ctx context.Context, facultyID primitive.ObjectID) ([]Project, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"faculty_id": facultyID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var projects []Project
	if err := cursor.All(ctx, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *ProjectRepositoryImpl) FindPublished(ctx context.Context, projectType models.ProjectType, year int) ([]Project, error) {
	filter := bson.M{"status": StatusPublished, "type": projectType}
	if year != 0 {
		filter["year"] = year
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var projects []Project
	if err := cursor.All(ctx, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// SetStatus transitions status only when the current value matches from.
// Returns false when nothing matched, so callers can report the stale state.
func (r *ProjectRepositoryImpl) SetStatus(ctx context.Context, id primitive.ObjectID, from, to Status) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updated_at": time.Now()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// ConsumeCapacity is the single atomic decision point for acceptance: it
// increments assigned_count only while the project is published, owned by
// facultyID and below capacity. A false return means the project was
// already at capacity (or assigned) when the update ran.
func (r *ProjectRepositoryImpl) ConsumeCapacity(ctx context.Context, id, facultyID, assigneeID primitive.ObjectID) (bool, error) {
	filter := bson.M{
		"_id":        id,
		"faculty_id": facultyID,
		"status":     StatusPublished,
		"$expr":      bson.M{"$lt": bson.A{"$assigned_count", "$capacity"}},
	}
	update := bson.M{
		"$inc":      bson.M{"assigned_count": 1},
		"$addToSet": bson.M{"assigned_to": assigneeID},
		"$set":      bson.M{"updated_at": time.Now()},
	}

	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// MarkAssignedIfFull flips status to assigned once capacity is consumed.
func (r *ProjectRepositoryImpl) MarkAssignedIfFull(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{
			"_id":    id,
			"status": StatusPublished,
			"$expr":  bson.M{"$gte": bson.A{"$assigned_count", "$capacity"}},
		},
		bson.M{"$set": bson.M{"status": StatusAssigned, "updated_at": time.Now()}},
	)
	return err
}
