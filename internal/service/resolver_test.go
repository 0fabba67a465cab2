package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/campusops/accommodations-api/internal/models"
)

func TestResolveExtensionPrecedence(t *testing.T) {
	// Profile value wins over the type default when set.
	assert.Equal(t, 30, ResolveExtension(30, 25, 0))
	// Zero profile extension inherits the type default.
	assert.Equal(t, 25, ResolveExtension(0, 25, 0))
	// A positive activity override beats both.
	assert.Equal(t, 50, ResolveExtension(30, 25, 50))
	// A zero override leaves the profile value in force.
	assert.Equal(t, 30, ResolveExtension(30, 25, 0))
	// Everything unset resolves to nothing.
	assert.Equal(t, 0, ResolveExtension(0, 0, 0))
	// Never negative.
	assert.Equal(t, 0, ResolveExtension(-10, 0, 0))
}

func profileDetail(id string, extension, typeDefault int, typeName string) models.ProfileDetail {
	return models.ProfileDetail{
		AccommodationProfile: models.AccommodationProfile{ID: id, UserID: "u1", Extension: extension},
		TypeName:             typeName,
		TypeDefaultExtension: typeDefault,
	}
}

func TestBestExtensionMostGenerousWins(t *testing.T) {
	profiles := []models.ProfileDetail{
		profileDetail("p1", 15, 0, "Language Accommodation"),
		profileDetail("p2", 25, 0, "Learning Disability"),
	}
	best := BestExtension(profiles, nil, time.Now())
	assert.Equal(t, 25, best.Percent)
	assert.Equal(t, "p2", best.ProfileID)
	assert.Equal(t, "Learning Disability", best.TypeName)
}

func TestBestExtensionFirstSeenKeepsTie(t *testing.T) {
	profiles := []models.ProfileDetail{
		profileDetail("p1", 25, 0, "Language Accommodation"),
		profileDetail("p2", 25, 0, "Learning Disability"),
	}
	best := BestExtension(profiles, nil, time.Now())
	assert.Equal(t, 25, best.Percent)
	assert.Equal(t, "p1", best.ProfileID)
}

func TestBestExtensionAppliesActivityOverrides(t *testing.T) {
	profiles := []models.ProfileDetail{
		profileDetail("p1", 15, 0, "Language Accommodation"),
		profileDetail("p2", 25, 0, "Learning Disability"),
	}
	overrides := map[string]int{"p1": 60}
	best := BestExtension(profiles, overrides, time.Now())
	assert.Equal(t, 60, best.Percent)
	assert.Equal(t, "p1", best.ProfileID)
}

func TestBestExtensionSkipsInactiveWindows(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-48 * time.Hour)
	future := now.Add(48 * time.Hour)

	expired := profileDetail("p1", 50, 0, "Learning Disability")
	expired.EndDate = &past
	notYet := profileDetail("p2", 40, 0, "Learning Disability")
	notYet.StartDate = &future
	active := profileDetail("p3", 15, 0, "Language Accommodation")
	active.StartDate = &past
	active.EndDate = &future

	best := BestExtension([]models.ProfileDetail{expired, notYet, active}, nil, now)
	assert.Equal(t, 15, best.Percent)
	assert.Equal(t, "p3", best.ProfileID)
}

func TestBestExtensionInclusiveBounds(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p := profileDetail("p1", 20, 0, "Learning Disability")
	p.StartDate = &now
	p.EndDate = &now
	best := BestExtension([]models.ProfileDetail{p}, nil, now)
	assert.Equal(t, 20, best.Percent)
}

func TestBestExtensionZeroWhenNothingApplies(t *testing.T) {
	best := BestExtension(nil, nil, time.Now())
	assert.Equal(t, 0, best.Percent)
	assert.Empty(t, best.ProfileID)
}
