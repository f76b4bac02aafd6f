package group

import (
	"time"

	"acadhub/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Status string

const (
	StatusForming  Status = "forming"
	StatusComplete Status = "complete"
	StatusApplied  Status = "applied"
	StatusApproved Status = "approved"
	StatusFrozen   Status = "frozen"
)

const (
	// MinMembers and MaxMembers bound group size; the leader always counts.
	MinMembers = 1
	MaxMembers = 4

	// CompleteThreshold is the membership at which a forming group flips
	// to complete.
	CompleteThreshold = 2
)

// ActiveStatuses are the states in which a group still binds its members:
// a user may belong to at most one group per project type in any of these.
// Groups leave this set only by deletion.
var ActiveStatuses = []Status{StatusForming, StatusComplete, StatusApplied, StatusApproved, StatusFrozen}

// JoinableStatuses are the pre-application states during which membership
// may still change (join, leave, code reset, deletion).
var JoinableStatuses = []Status{StatusForming, StatusComplete}

// Group is a 1-4 member unit that applies to projects as one applicant.
// Code is unique within (year, type); the leader is always a member.
type Group struct {
	ID       primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Code     string               `bson:"code" json:"code"`
	Type     models.ProjectType   `bson:"project_type" json:"project_type"`
	Year     int                  `bson:"year" json:"year"`
	Status   Status               `bson:"status" json:"status"`
	LeaderID primitive.ObjectID   `bson:"leader_id" json:"leader_id"`
	Members  []primitive.ObjectID `bson:"members" json:"members"`

	// DraftProjects is the leader's pre-submission scratch list.
	DraftProjects []primitive.ObjectID `bson:"draft_projects" json:"draft_projects"`

	AssignedProjectID   *primitive.ObjectID `bson:"assigned_project_id,omitempty" json:"assigned_project_id,omitempty"`
	AssignedFacultyID   *primitive.ObjectID `bson:"assigned_faculty_id,omitempty" json:"assigned_faculty_id,omitempty"`
	ExternalEvaluatorID *primitive.ObjectID `bson:"external_evaluator_id,omitempty" json:"external_evaluator_id,omitempty"`

	// GroupNumber is allocated sequentially per (type, year) on approval.
	GroupNumber int `bson:"group_number,omitempty" json:"group_number,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// HasMember reports whether userID is currently in the group.
func (g *Group) HasMember(userID primitive.ObjectID) bool {
	for _, m := range g.Members {
		if m == userID {
			return true
		}
	}
	return false
}
