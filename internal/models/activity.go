package models

import "time"

// ActivityKind identifies the module kinds accommodations can extend.
type ActivityKind string

const (
	ActivityKindQuiz       ActivityKind = "quiz"
	ActivityKindAssignment ActivityKind = "assignment"
)

// Supported reports whether propagation knows how to extend this kind.
func (k ActivityKind) Supported() bool {
	return k == ActivityKindQuiz || k == ActivityKindAssignment
}

// Activity is the platform-side metadata for a quiz or assignment.
// TimeLimit applies to quizzes (seconds); DueDate and AllowSubmissionsFrom
// apply to assignments (epoch seconds, 0 = unset).
type Activity struct {
	ID                   string       `db:"id" json:"id"`
	Kind                 ActivityKind `db:"kind" json:"kind"`
	CourseID             string       `db:"course_id" json:"course_id"`
	InstanceID           string       `db:"instance_id" json:"instance_id"`
	Name                 string       `db:"name" json:"name"`
	TimeLimit            int64        `db:"time_limit" json:"time_limit"`
	DueDate              int64        `db:"due_date" json:"due_date"`
	AllowSubmissionsFrom int64        `db:"allow_submissions_from" json:"allow_submissions_from"`
}

// ActivityStatus is the per-activity opt-out flag. Absence of a row means
// accommodations are enabled.
type ActivityStatus struct {
	ActivityID string    `db:"activity_id" json:"activity_id"`
	Disabled   bool      `db:"disabled" json:"disabled"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
	ModifiedBy string    `db:"modified_by" json:"modified_by"`
}

// QuizOverride is the platform-native per-user time limit exception.
type QuizOverride struct {
	ID         string `db:"id" json:"id"`
	ActivityID string `db:"activity_id" json:"activity_id"`
	UserID     string `db:"user_id" json:"user_id"`
	TimeLimit  int64  `db:"time_limit" json:"time_limit"`
}

// AssignmentOverride is the platform-native per-user due date exception.
type AssignmentOverride struct {
	ID         string `db:"id" json:"id"`
	ActivityID string `db:"activity_id" json:"activity_id"`
	UserID     string `db:"user_id" json:"user_id"`
	DueDate    int64  `db:"due_date" json:"due_date"`
}
