package models

import "time"

// AccommodationType is a named accommodation category with a default time
// extension percentage, e.g. "Learning Disability" at 25%.
type AccommodationType struct {
	ID               string    `db:"id" json:"id"`
	Name             string    `db:"name" json:"name"`
	Description      string    `db:"description" json:"description"`
	DefaultExtension int       `db:"default_extension" json:"default_extension"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
	ModifiedBy       string    `db:"modified_by" json:"modified_by"`
}

// AccommodationProfile grants one accommodation to one user. Extension 0 means
// "inherit the type default". Scope is exactly one of global (both IDs nil),
// category, or course.
type AccommodationProfile struct {
	ID         string     `db:"id" json:"id"`
	UserID     string     `db:"user_id" json:"user_id"`
	TypeID     string     `db:"type_id" json:"type_id"`
	Extension  int        `db:"extension" json:"extension"`
	CourseID   *string    `db:"course_id" json:"course_id,omitempty"`
	CategoryID *string    `db:"category_id" json:"category_id,omitempty"`
	StartDate  *time.Time `db:"start_date" json:"start_date,omitempty"`
	EndDate    *time.Time `db:"end_date" json:"end_date,omitempty"`
	Notes      string     `db:"notes" json:"notes"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
	ModifiedBy string     `db:"modified_by" json:"modified_by"`
}

// ActiveAt reports whether the profile's validity window covers the given
// moment. Both bounds are inclusive; an unset bound is open.
func (p *AccommodationProfile) ActiveAt(t time.Time) bool {
	if p.StartDate != nil && p.StartDate.After(t) {
		return false
	}
	if p.EndDate != nil && p.EndDate.Before(t) {
		return false
	}
	return true
}

// ProfileDetail joins a profile with its type for resolution and display.
type ProfileDetail struct {
	AccommodationProfile
	TypeName             string `db:"type_name" json:"type_name"`
	TypeDefaultExtension int    `db:"type_default_extension" json:"type_default_extension"`
}

// ProfileFilter captures list parameters for profiles.
type ProfileFilter struct {
	UserID     string
	TypeID     string
	CourseID   string
	CategoryID string
	Page       int
	PageSize   int
}

// AccommodationOverride supersedes a profile's extension for one specific
// activity. An extension of 0 leaves the profile value in force.
type AccommodationOverride struct {
	ID         string    `db:"id" json:"id"`
	ProfileID  string    `db:"profile_id" json:"profile_id"`
	ActivityID string    `db:"activity_id" json:"activity_id"`
	Extension  int       `db:"extension" json:"extension"`
	Notes      string    `db:"notes" json:"notes"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
	ModifiedBy string    `db:"modified_by" json:"modified_by"`
}
