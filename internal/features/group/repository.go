package group

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

type GroupRepository interface {
	Insert(ctx context.Context, g *Group) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*Group, error)
	FindByCode(ctx context.Context, code string, year int, projectType models.ProjectType) (*Group, error)
	FindJoinableByCode(ctx context.Context, code string, year int, projectType models.ProjectType) (*Group, error)
	FindActiveByMember(ctx context.Context, userID primitive.ObjectID, projectType models.ProjectType) (*Group, error)
	FindAllActiveByMember(ctx context.Context, userID primitive.ObjectID) ([]Group, error)
	FindActiveByLeader(ctx context.Context, userID primitive.ObjectID, projectType models.ProjectType, year int) (*Group, error)
	LeadsAnyActive(ctx context.Context, userID primitive.ObjectID) (bool, error)
	IsEvaluatorOnAny(ctx context.Context, userID primitive.ObjectID) (bool, error)
	AddMember(ctx context.Context, groupID, userID primitive.ObjectID) (bool, error)
	RemoveMember(ctx context.Context, groupID, userID primitive.ObjectID) error
	ReconcileSizeStatus(ctx context.Context, groupID primitive.ObjectID) error
	SetStatus(ctx context.Context, groupID primitive.ObjectID, from, to Status) (bool, error)
	ForceStatus(ctx context.Context, groupID primitive.ObjectID, to Status) error
	UpdateCode(ctx context.Context, groupID primitive.ObjectID, code string) error
	SetDraftProjects(ctx context.Context, groupID primitive.ObjectID, projectIDs []primitive.ObjectID) error
	ApplyAllocation(ctx context.Context, groupID, projectID, facultyID primitive.ObjectID, groupNumber int) error
	SetExternalEvaluator(ctx context.Context, groupID primitive.ObjectID, facultyID *primitive.ObjectID) error
	Delete(ctx context.Context, groupID primitive.ObjectID) error
	CodeExists(ctx context.Context, code string, year int, projectType models.ProjectType) (bool, error)
	NextGroupNumber(ctx context.Context, projectType models.ProjectType, year int) (int, error)
	EnsureIndexes(ctx context.Context) error
}

type GroupRepositoryImpl struct {
	collection *mongo.Collection
	counters   *mongo.Collection
}

func NewGroupRepository(db *database.MongodbDB) GroupRepository {
	return &GroupRepositoryImpl{
		collection: db.DB.Collection("groups"),
		counters:   db.DB.Collection("counters"),
	}
}

// EnsureIndexes creates the unique index that makes invitation codes
// race-safe within a (year, type) cohort, plus the member lookup index.
func (r *GroupRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "code", Value: 1}, {Key: "year", Value: 1}, {Key: "project_type", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "members", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "leader_id", Value: 1}},
		},
	})
	return err
}

func (r *GroupRepositoryImpl) Insert(ctx context.Context, g *Group) error {
	g.CreatedAt = time.Now()
	g.UpdatedAt = time.Now()
	if g.Members == nil {
		g.Members = []primitive.ObjectID{}
	}
	if g.DraftProjects == nil {
		g.DraftProjects = []primitive.ObjectID{}
	}

	result, err := r.collection.InsertOne(ctx, g)
	if err != nil {
		return err
	}

	g.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *GroupRepositoryImpl) FindByID(ctx context.Context, id primitive.ObjectID) (*Group, error) {
	var g Group
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&g)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &g, nil
}

func (r *GroupRepositoryImpl) FindByCode(ctx context.Context, code string, year int, projectType models.ProjectType) (*Group, error) {
	var g Group
	err := r.collection.FindOne(ctx, bson.M{
		"code":         code,
		"year":         year,
		"project_type": projectType,
	}).Decode(&g)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &g, nil
}

func (r *GroupRepositoryImpl) FindJoinableByCode(ctx context.Context, code string, year int, projectType models.ProjectType) (*Group, error) {
	var g Group
	err := r.collection.FindOne(ctx, bson.M{
		"code":         code,
		"year":         year,
		"project_type": projectType,
		"status":       bson.M{"$in": JoinableStatuses},
	}).Decode(&g)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &g, nil
}

func (r *GroupRepositoryImpl) FindActiveByMember(ctx context.Context, userID primitive.ObjectID, projectType models.ProjectType) (*Group, error) {
	filter := bson.M{
		"members": userID,
		"status":  bson.M{"$in": ActiveStatuses},
	}
	if projectType != "" {
		filter["project_type"] = projectType
	}

	var g Group
	err := r.collection.FindOne(ctx, filter).Decode(&g)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &g, nil
}

func (r *GroupRepositoryImpl) FindAllActiveByMember(ctx context.Context, userID primitive.ObjectID) ([]Group, error) {
	cursor, err := r.collection.Find(ctx, bson.M{
		"members": userID,
		"status":  bson.M{"$in": ActiveStatuses},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var groups []Group
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *GroupRepositoryImpl) FindActiveByLeader(ctx context.Context, userID primitive.ObjectID, projectType models.ProjectType, year int) (*Group, error) {
	filter := bson.M{
		"leader_id": userID,
		"status":    bson.M{"$in": ActiveStatuses},
	}
	if projectType != "" {
		filter["project_type"] = projectType
	}
	if year != 0 {
		filter["year"] = year
	}

	var g Group
	err := r.collection.FindOne(ctx, filter).Decode(&g)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &g, nil
}

func (r *GroupRepositoryImpl) LeadsAnyActive(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{
		"leader_id": userID,
		"status":    bson.M{"$in": ActiveStatuses},
	})
	return count > 0, err
}

func (r *GroupRepositoryImpl) IsEvaluatorOnAny(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"external_evaluator_id": userID})
	return count > 0, err
}

// AddMember appends userID only while the group is still joinable, below
// MaxMembers and not already containing the user. The member-count guard is
// part of the filter, so two concurrent joins cannot push the group past
// capacity; a false return means the precondition no longer held.
func (r *GroupRepositoryImpl) AddMember(ctx context.Context, groupID, userID primitive.ObjectID) (bool, error) {
	filter := bson.M{
		"_id":     groupID,
		"status":  bson.M{"$in": JoinableStatuses},
		"members": bson.M{"$ne": userID},
		// members.3 existing would mean the group already has 4 entries
		"members.3": bson.M{"$exists": false},
	}
	update := bson.M{
		"$push": bson.M{"members": userID},
		"$set":  bson.M{"updated_at": time.Now()},
	}

	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *GroupRepositoryImpl) RemoveMember(ctx context.Context, groupID, userID primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": groupID}, bson.M{
		"$pull": bson.M{"members": userID},
		"$set":  bson.M{"updated_at": time.Now()},
	})
	return err
}

// ReconcileSizeStatus flips forming → complete when membership reaches the
// threshold, and complete → forming when it drops below. Both updates are
// guarded on the current status so they are safe to call after any
// membership change.
func (r *GroupRepositoryImpl) ReconcileSizeStatus(ctx context.Context, groupID primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{
			"_id":       groupID,
			"status":    StatusForming,
			"members.1": bson.M{"$exists": true},
		},
		bson.M{"$set": bson.M{"status": StatusComplete, "updated_at": time.Now()}},
	)
	if err != nil {
		return err
	}

	_, err = r.collection.UpdateOne(ctx,
		bson.M{
			"_id":       groupID,
			"status":    StatusComplete,
			"members.1": bson.M{"$exists": false},
		},
		bson.M{"$set": bson.M{"status": StatusForming, "updated_at": time.Now()}},
	)
	return err
}

func (r *GroupRepositoryImpl) SetStatus(ctx context.Context, groupID primitive.ObjectID, from, to Status) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": groupID, "status": from},
		bson.M{"$set": bson.M{"status": to, "updated_at": time.Now()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *GroupRepositoryImpl) ForceStatus(ctx context.Context, groupID primitive.ObjectID, to Status) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": groupID},
		bson.M{"$set": bson.M{"status": to, "updated_at": time.Now()}},
	)
	return err
}

func (r *GroupRepositoryImpl) UpdateCode(ctx context.Context, groupID primitive.ObjectID, code string) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": groupID},
		bson.M{"$set": bson.M{"code": code, "updated_at": time.Now()}},
	)
	return err
}

func (r *GroupRepositoryImpl) SetDraftProjects(ctx context.Context, groupID primitive.ObjectID, projectIDs []primitive.ObjectID) error {
	if projectIDs == nil {
		projectIDs = []primitive.ObjectID{}
	}
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": groupID},
		bson.M{"$set": bson.M{"draft_projects": projectIDs, "updated_at": time.Now()}},
	)
	return err
}

func (r *GroupRepositoryImpl) ApplyAllocation(ctx context.Context, groupID, projectID, facultyID primitive.ObjectID, groupNumber int) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": groupID},
		bson.M{"$set": bson.M{
			"status":              StatusApproved,
			"assigned_project_id": projectID,
			"assigned_faculty_id": facultyID,
			"group_number":        groupNumber,
			"updated_at":          time.Now(),
		}},
	)
	return err
}

func (r *GroupRepositoryImpl) SetExternalEvaluator(ctx context.Context, groupID primitive.ObjectID, facultyID *primitive.ObjectID) error {
	update := bson.M{"$set": bson.M{"updated_at": time.Now()}}
	if facultyID == nil {
		update["$unset"] = bson.M{"external_evaluator_id": ""}
	} else {
		update["$set"].(bson.M)["external_evaluator_id"] = *facultyID
	}

	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": groupID}, update)
	return err
}

func (r *GroupRepositoryImpl) Delete(ctx context.Context, groupID primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": groupID})
	return err
}

func (r *GroupRepositoryImpl) CodeExists(ctx context.Context, code string, year int, projectType models.ProjectType) (bool, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{
		"code":         code,
		"year":         year,
		"project_type": projectType,
	})
	return count > 0, err
}

// NextGroupNumber allocates the next sequential number for approved groups
// of a (type, year) cohort through an atomic counter document.
func (r *GroupRepositoryImpl) NextGroupNumber(ctx context.Context, projectType models.ProjectType, year int) (int, error) {
	id := bson.M{"scope": "group_number", "project_type": projectType, "year": year}

	var doc struct {
		Seq int `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		id,
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, err
	}
	return doc.Seq, nil
}
