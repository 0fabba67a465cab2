package service

import (
	"time"

	"github.com/campusops/accommodations-api/internal/models"
)

// ResolveExtension applies override precedence for one profile against one
// activity. A profile extension of 0 inherits the type default; an activity
// override takes effect only when positive. The result is never negative.
func ResolveExtension(profileExtension, typeDefault, overrideExtension int) int {
	base := profileExtension
	if base == 0 {
		base = typeDefault
	}
	if overrideExtension > 0 {
		base = overrideExtension
	}
	if base < 0 {
		return 0
	}
	return base
}

// ResolvedAccommodation is the winning extension for one user, with the
// profile that produced it for history attribution.
type ResolvedAccommodation struct {
	Percent   int
	ProfileID string
	TypeName  string
}

// BestExtension picks the most generous extension across a user's profiles:
// the maximum resolved percent wins, and the first-seen profile keeps an exact
// tie, so the type recorded in history is arbitrary among equals. Profiles
// outside their validity window contribute nothing.
func BestExtension(profiles []models.ProfileDetail, activityOverrides map[string]int, now time.Time) ResolvedAccommodation {
	var best ResolvedAccommodation
	for i := range profiles {
		p := &profiles[i]
		if !p.ActiveAt(now) {
			continue
		}
		resolved := ResolveExtension(p.Extension, p.TypeDefaultExtension, activityOverrides[p.ID])
		if resolved > best.Percent {
			best = ResolvedAccommodation{Percent: resolved, ProfileID: p.ID, TypeName: p.TypeName}
		}
	}
	return best
}
