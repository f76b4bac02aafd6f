package project

import (
	"time"

	"acadhub/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusAssigned  Status = "assigned"
	StatusArchived  Status = "archived"
)

// Project is a faculty-authored offering students apply to. AssignedCount
// tracks consumed capacity; Status flips to assigned exactly when it reaches
// Capacity, and only the conditional update in the repository may flip it.
type Project struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title         string               `bson:"title" json:"title"`
	Description   string               `bson:"description" json:"description"`
	Type          models.ProjectType   `bson:"type" json:"type"`
	Status        Status               `bson:"status" json:"status"`
	Capacity      int                  `bson:"capacity" json:"capacity"`
	AssignedCount int                  `bson:"assigned_count" json:"assigned_count"`
	FacultyID     primitive.ObjectID   `bson:"faculty_id" json:"faculty_id"`
	AssignedTo    []primitive.ObjectID `bson:"assigned_to" json:"assigned_to"` // group or student ids
	Year          int                  `bson:"year" json:"year"`
	CreatedAt     time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time            `bson:"updated_at" json:"updated_at"`
}
