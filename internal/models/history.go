package models

import "time"

// AccommodationHistory is one append-only record of a propagation decision.
// OriginalValue and NewValue carry seconds for quizzes and epoch due dates for
// assignments.
type AccommodationHistory struct {
	ID               string       `db:"id" json:"id"`
	UserID           string       `db:"user_id" json:"user_id"`
	CourseID         string       `db:"course_id" json:"course_id"`
	ActivityID       string       `db:"activity_id" json:"activity_id"`
	ModuleKind       ActivityKind `db:"module_kind" json:"module_kind"`
	ModuleInstanceID string       `db:"module_instance_id" json:"module_instance_id"`
	Extension        int          `db:"extension" json:"extension"`
	OriginalValue    int64        `db:"original_value" json:"original_value"`
	NewValue         int64        `db:"new_value" json:"new_value"`
	Applied          bool         `db:"applied" json:"applied"`
	CreatedAt        time.Time    `db:"created_at" json:"created_at"`
	ModifiedBy       string       `db:"modified_by" json:"modified_by"`
}

// HistoryFilter captures list parameters for the history log.
type HistoryFilter struct {
	UserID     string
	CourseID   string
	ActivityID string
	ModuleKind string
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}
