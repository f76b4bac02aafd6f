package user

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
	RoleAdmin   Role = "admin"
)

// User holds the stored base role plus the mutable flags and back-references
// the allocation engine keeps in sync. The effective role is never stored;
// it is derived per request by the role resolver.
type User struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name          string             `bson:"name" json:"name"`
	Email         string             `bson:"email" json:"email"`
	Password      string             `bson:"password" json:"-"`
	Role          Role               `bson:"role" json:"role"`
	IsCoordinator bool               `bson:"is_coordinator" json:"is_coordinator"`

	// IsExternalEvaluator mirrors group.external_evaluator_id references; the
	// resolver treats the group side as authoritative.
	IsExternalEvaluator bool `bson:"is_external_evaluator" json:"is_external_evaluator"`

	CurrentGroupID    *primitive.ObjectID `bson:"current_group_id,omitempty" json:"current_group_id,omitempty"`
	AssignedProjectID *primitive.ObjectID `bson:"assigned_project_id,omitempty" json:"assigned_project_id,omitempty"`
	AssignedFacultyID *primitive.ObjectID `bson:"assigned_faculty_id,omitempty" json:"assigned_faculty_id,omitempty"`

	// Academic fields consumed by eligibility rule scripts.
	Department    string  `bson:"department,omitempty" json:"department,omitempty"`
	CGPA          float64 `bson:"cgpa,omitempty" json:"cgpa,omitempty"`
	Backlogs      int     `bson:"backlogs,omitempty" json:"backlogs,omitempty"`
	CreditsEarned int     `bson:"credits_earned,omitempty" json:"credits_earned,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
