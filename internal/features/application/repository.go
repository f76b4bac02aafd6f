package application

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

type ApplicationRepository interface {
	InsertMany(ctx context.Context, apps []*Application) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*Application, error)
	FindByApplicant(ctx context.Context, who Applicant) ([]Application, error)
	FindLiveByApplicant(ctx context.Context, who Applicant) ([]Application, error)
	FindApprovedByApplicant(ctx context.Context, who Applicant) (*Application, error)
	FindByProjects(ctx context.Context, projectIDs []primitive.ObjectID) ([]Application, error)
	FindAll(ctx context.Context, filter ListFilter) ([]Application, error)
	MarkApproved(ctx context.Context, id, reviewerID primitive.ObjectID) (bool, error)
	MarkRejected(ctx context.Context, id, reviewerID primitive.ObjectID, reason string) (bool, error)
	RejectPendingSiblings(ctx context.Context, who Applicant, exceptID, reviewerID primitive.ObjectID, reason string) (int64, error)
	DeleteIfPending(ctx context.Context, id primitive.ObjectID) (bool, error)
	DeleteSoloPending(ctx context.Context, studentID primitive.ObjectID, projectType models.ProjectType) error
	SetFrozen(ctx context.Context, id primitive.ObjectID, frozen bool) (bool, error)
	EnsureIndexes(ctx context.Context) error
}

type ApplicationRepositoryImpl struct {
	db *database.MongodbDB
}

func NewApplicationRepository(db *database.MongodbDB) ApplicationRepository {
	return &ApplicationRepositoryImpl{db: db}
}

func (r *ApplicationRepositoryImpl) coll() *mongo.Collection {
	return r.db.DB.Collection("applications")
}

// liveStatuses are the states that block a new submission for the same project.
var liveStatuses = bson.A{StatusPending, StatusApproved}

func (r *ApplicationRepositoryImpl) InsertMany(ctx context.Context, apps []*Application) error {
	now := time.Now()
	docs := make([]interface{}, 0, len(apps))
	for _, a := range apps {
		if a.ID.IsZero() {
			a.ID = primitive.NewObjectID()
		}
		a.CreatedAt = now
		a.UpdatedAt = now
		docs = append(docs, a)
	}
	_, err := r.coll().InsertMany(ctx, docs)
	return err
}

func (r *ApplicationRepositoryImpl) FindByID(ctx context.Context, id primitive.ObjectID) (*Application, error) {
	var app Application
	err := r.coll().FindOne(ctx, bson.M{"_id": id}).Decode(&app)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *ApplicationRepositoryImpl) FindByApplicant(ctx context.Context, who Applicant) ([]Application, error) {
	return r.findMany(ctx, who.filter())
}

func (r *ApplicationRepositoryImpl) FindLiveByApplicant(ctx context.Context, who Applicant) ([]Application, error) {
	filter := who.filter()
	filter["status"] = bson.M{"$in": liveStatuses}
	return r.findMany(ctx, filter)
}

func (r *ApplicationRepositoryImpl) FindApprovedByApplicant(ctx context.Context, who Applicant) (*Application, error) {
	filter := who.filter()
	filter["status"] = StatusApproved
	var app Application
	err := r.coll().FindOne(ctx, filter).Decode(&app)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *ApplicationRepositoryImpl) FindByProjects(ctx context.Context, projectIDs []primitive.ObjectID) ([]Application, error) {
	if len(projectIDs) == 0 {
		return []Application{}, nil
	}
	return r.findMany(ctx, bson.M{"project_id": bson.M{"$in": projectIDs}})
}

func (r *ApplicationRepositoryImpl) FindAll(ctx context.Context, filter ListFilter) ([]Application, error) {
	q := bson.M{}
	if filter.Type != "" {
		q["project_type"] = filter.Type
	}
	if filter.Status != "" {
		q["status"] = filter.Status
	}
	if filter.Semester != "" {
		q["semester"] = filter.Semester
	}
	if filter.Year != 0 {
		q["year"] = filter.Year
	}
	return r.findMany(ctx, q)
}

func (r *ApplicationRepositoryImpl) findMany(ctx context.Context, filter bson.M) ([]Application, error) {
	opts := options.Find().SetSort(bson.M{"submitted_at": -1})
	cursor, err := r.coll().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	apps := []Application{}
	if err := cursor.All(ctx, &apps); err != nil {
		return nil, err
	}
	return apps, nil
}

// MarkApproved flips pending to approved; false means the row was already decided.
func (r *ApplicationRepositoryImpl) MarkApproved(ctx context.Context, id, reviewerID primitive.ObjectID) (bool, error) {
	now := time.Now()
	res, err := r.coll().UpdateOne(ctx,
		bson.M{"_id": id, "status": StatusPending},
		bson.M{"$set": bson.M{
			"status":      StatusApproved,
			"reviewed_by": reviewerID,
			"reviewed_at": now,
			"updated_at":  now,
		}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *ApplicationRepositoryImpl) MarkRejected(ctx context.Context, id, reviewerID primitive.ObjectID, reason string) (bool, error) {
	now := time.Now()
	res, err := r.coll().UpdateOne(ctx,
		bson.M{"_id": id, "status": StatusPending},
		bson.M{"$set": bson.M{
			"status":           StatusRejected,
			"reviewed_by":      reviewerID,
			"reviewed_at":      now,
			"rejection_reason": reason,
			"updated_at":       now,
		}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// RejectPendingSiblings auto-rejects every other pending application by the
// same applicant so an accepted choice leaves no live alternatives behind.
func (r *ApplicationRepositoryImpl) RejectPendingSiblings(ctx context.Context, who Applicant, exceptID, reviewerID primitive.ObjectID, reason string) (int64, error) {
	filter := who.filter()
	filter["_id"] = bson.M{"$ne": exceptID}
	filter["status"] = StatusPending

	now := time.Now()
	res, err := r.coll().UpdateMany(ctx, filter, bson.M{"$set": bson.M{
		"status":           StatusRejected,
		"reviewed_by":      reviewerID,
		"reviewed_at":      now,
		"rejection_reason": reason,
		"updated_at":       now,
	}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *ApplicationRepositoryImpl) DeleteIfPending(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := r.coll().DeleteOne(ctx, bson.M{"_id": id, "status": StatusPending})
	if err != nil {
		return false, err
	}
	return res.DeletedCount == 1, nil
}

// DeleteSoloPending drops a student's own pending solo applications of one
// project type. Called when the student joins a group of that type.
func (r *ApplicationRepositoryImpl) DeleteSoloPending(ctx context.Context, studentID primitive.ObjectID, projectType models.ProjectType) error {
	_, err := r.coll().DeleteMany(ctx, bson.M{
		"student_id":   studentID,
		"project_type": projectType,
		"status":       StatusPending,
	})
	return err
}

func (r *ApplicationRepositoryImpl) SetFrozen(ctx context.Context, id primitive.ObjectID, frozen bool) (bool, error) {
	res, err := r.coll().UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"is_frozen": frozen, "updated_at": time.Now()}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (r *ApplicationRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	// Partial unique indexes back up the service-level duplicate check: an
	// applicant holds at most one live row per project. Needs MongoDB 6.0+
	// for $in inside partialFilterExpression.
	_, err := r.coll().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "group_id", Value: 1}, {Key: "project_id", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"group_id": bson.M{"$exists": true}, "status": bson.M{"$in": liveStatuses}}),
		},
		{
			Keys: bson.D{{Key: "student_id", Value: 1}, {Key: "project_id", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"student_id": bson.M{"$exists": true}, "status": bson.M{"$in": liveStatuses}}),
		},
		{Keys: bson.D{{Key: "project_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "project_type", Value: 1}, {Key: "year", Value: 1}, {Key: "status", Value: 1}}},
	})
	return err
}
