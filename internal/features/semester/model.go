package semester

import (
	"time"

	"acadhub/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Window bounds when submissions are accepted for one (type, year, semester)
// cohort. Outside a window the allocator refuses submit calls; decisions on
// already-submitted applications are unaffected.
type Window struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Type     models.ProjectType `bson:"project_type" json:"project_type"`
	Year     int                `bson:"year" json:"year"`
	Semester string             `bson:"semester" json:"semester"`
	OpensAt  time.Time          `bson:"opens_at" json:"opens_at"`
	ClosesAt time.Time          `bson:"closes_at" json:"closes_at"`

	// IsOpen is the administrative switch; the sweeper clears it once
	// ClosesAt passes so reads stay cheap.
	IsOpen bool `bson:"is_open" json:"is_open"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

func (w *Window) OpenAt(t time.Time) bool {
	return w.IsOpen && !t.Before(w.OpensAt) && t.Before(w.ClosesAt)
}
