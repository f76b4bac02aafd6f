package application

import (
	"time"

	"acadhub/internal/common/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

const (
	// MinChoices and MaxChoices bound how many projects one submission may rank.
	MinChoices = 1
	MaxChoices = 3

	// AutoRejectReason tags sibling applications rejected by the acceptance cascade.
	AutoRejectReason = "auto-rejected: another application by this applicant was approved"
)

// Application is one row per chosen project. A multi-choice submission
// creates up to MaxChoices rows that share an applicant; at most one of them
// ever reaches approved. Exactly one of StudentID/GroupID is set.
type Application struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	StudentID *primitive.ObjectID `bson:"student_id,omitempty" json:"student_id,omitempty"`
	GroupID   *primitive.ObjectID `bson:"group_id,omitempty" json:"group_id,omitempty"`
	Type      models.ProjectType  `bson:"project_type" json:"project_type"`
	ProjectID primitive.ObjectID  `bson:"project_id" json:"project_id"`
	Semester  string              `bson:"semester" json:"semester"`
	Year      int                 `bson:"year" json:"year"`
	Status    Status              `bson:"status" json:"status"`

	// Statement is free-form submission metadata shown to reviewing faculty.
	Statement string `bson:"statement,omitempty" json:"statement,omitempty"`

	SubmittedAt     time.Time           `bson:"submitted_at" json:"submitted_at"`
	ReviewedBy      *primitive.ObjectID `bson:"reviewed_by,omitempty" json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time          `bson:"reviewed_at,omitempty" json:"reviewed_at,omitempty"`
	RejectionReason string              `bson:"rejection_reason,omitempty" json:"rejection_reason,omitempty"`

	// IsFrozen blocks further choice edits; only a coordinator unfreeze
	// clears it, independent of Status.
	IsFrozen bool `bson:"is_frozen" json:"is_frozen"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

func (a *Application) IsGroup() bool { return a.GroupID != nil }

// Applicant identifies who submitted: a solo student or a group, never both.
type Applicant struct {
	StudentID *primitive.ObjectID
	GroupID   *primitive.ObjectID
}

func (a Applicant) Valid() bool {
	return (a.StudentID != nil) != (a.GroupID != nil)
}

func (a Applicant) filter() bson.M {
	if a.GroupID != nil {
		return bson.M{"group_id": *a.GroupID}
	}
	return bson.M{"student_id": *a.StudentID}
}

// ListFilter narrows coordinator-level application queries.
type ListFilter struct {
	Type     models.ProjectType
	Status   Status
	Semester string
	Year     int
}
