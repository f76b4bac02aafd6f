package eligibility

import (
	"time"

	"acadhub/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Rule is a coordinator-authored script deciding whether a student may apply
// in a given cohort. The script receives cgpa, backlogs, credits_earned and
// department as variables and must assign a boolean to `eligible`, e.g.
//
//	eligible := cgpa >= 6.5 && backlogs == 0
type Rule struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Type   models.ProjectType `bson:"project_type" json:"project_type"`
	Year   int                `bson:"year" json:"year"`
	Script string             `bson:"script" json:"script"`

	// FailOpen admits students when the script errors at runtime instead
	// of blocking the whole cohort on a bad rule.
	FailOpen bool `bson:"fail_open" json:"fail_open"`

	Enabled   bool      `bson:"enabled" json:"enabled"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
