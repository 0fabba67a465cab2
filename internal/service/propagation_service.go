package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/campusops/accommodations-api/internal/models"
	appErrors "github.com/campusops/accommodations-api/pkg/errors"
)

type propagationActivityRepo interface {
	FindByID(ctx context.Context, id string) (*models.Activity, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.Activity, error)
}

type propagationStatusRepo interface {
	Find(ctx context.Context, activityID string) (*models.ActivityStatus, error)
}

type propagationProfileRepo interface {
	ListApplicableForCourse(ctx context.Context, courseID string, categoryIDs []string) ([]models.ProfileDetail, error)
	CourseIDsWithProfiles(ctx context.Context) ([]string, error)
}

type propagationOverrideRepo interface {
	ListByActivity(ctx context.Context, activityID string) ([]models.AccommodationOverride, error)
}

type propagationUserRepo interface {
	ListEnrolledIDs(ctx context.Context, courseID string, offset, limit int) ([]string, error)
}

type propagationCourseRepo interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ListByCategory(ctx context.Context, categoryID string) ([]models.Course, error)
	AncestorCategoryIDs(ctx context.Context, courseID string) ([]string, error)
	DescendantCategoryIDs(ctx context.Context, categoryID string) ([]string, error)
}

type quizOverrideSink interface {
	Find(ctx context.Context, activityID, userID string) (*models.QuizOverride, error)
	Upsert(ctx context.Context, o *models.QuizOverride) error
}

type assignmentOverrideSink interface {
	Find(ctx context.Context, activityID, userID string) (*models.AssignmentOverride, error)
	Upsert(ctx context.Context, o *models.AssignmentOverride) error
}

type historyAppender interface {
	Create(ctx context.Context, entry *models.AccommodationHistory) error
}

type propagationCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// CourseApplyStats counts per-user writes produced by a course propagation.
type CourseApplyStats struct {
	Quizzes     int `json:"quizzes"`
	Assignments int `json:"assignments"`
}

// CategoryApplyStats aggregates course stats across a category tree. Courses
// counts each course at most once, and only when at least one write happened.
type CategoryApplyStats struct {
	Courses     int `json:"courses"`
	Quizzes     int `json:"quizzes"`
	Assignments int `json:"assignments"`
}

// PropagationService computes effective time extensions and writes them into
// the platform's per-user deadline override sinks. Every operation is
// idempotent and best-effort: a rejected write never aborts the batch.
type PropagationService struct {
	activities  propagationActivityRepo
	statuses    propagationStatusRepo
	profiles    propagationProfileRepo
	overrides   propagationOverrideRepo
	users       propagationUserRepo
	courses     propagationCourseRepo
	quizzes     quizOverrideSink
	assignments assignmentOverrideSink
	history     historyAppender
	cache       propagationCache
	metrics     *MetricsService
	logger      *zap.Logger

	pageSize         int
	categoryCacheTTL time.Duration
}

// PropagationDeps bundles the stores the engine reads and writes.
type PropagationDeps struct {
	Activities  propagationActivityRepo
	Statuses    propagationStatusRepo
	Profiles    propagationProfileRepo
	Overrides   propagationOverrideRepo
	Users       propagationUserRepo
	Courses     propagationCourseRepo
	Quizzes     quizOverrideSink
	Assignments assignmentOverrideSink
	History     historyAppender
	Cache       propagationCache
	Metrics     *MetricsService
}

// NewPropagationService constructs the propagation engine.
func NewPropagationService(deps PropagationDeps, pageSize int, categoryCacheTTL time.Duration, logger *zap.Logger) *PropagationService {
	if pageSize <= 0 {
		pageSize = 500
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PropagationService{
		activities:  deps.Activities,
		statuses:    deps.Statuses,
		profiles:    deps.Profiles,
		overrides:   deps.Overrides,
		users:       deps.Users,
		courses:     deps.Courses,
		quizzes:     deps.Quizzes,
		assignments: deps.Assignments,
		history:     deps.History,
		cache:       deps.Cache,
		metrics:     deps.Metrics,
		logger:      logger,

		pageSize:         pageSize,
		categoryCacheTTL: categoryCacheTTL,
	}
}

// ExtendTimeLimit applies a percentage extension to a quiz time limit.
func ExtendTimeLimit(base int64, percent int) int64 {
	return int64(math.Round(float64(base) * (1 + float64(percent)/100)))
}

// ExtendDueDate extends an assignment due date by a percentage of the open
// submission window.
func ExtendDueDate(dueDate, allowSubmissionsFrom int64, percent int) int64 {
	extension := int64(math.Round(float64(percent) / 100 * float64(dueDate-allowSubmissionsFrom)))
	return dueDate + extension
}

// IsEligible reports whether propagation may touch the activity: the kind must
// be supported and no status row may disable it. A missing row means enabled.
func (s *PropagationService) IsEligible(ctx context.Context, activity *models.Activity) (bool, error) {
	if !activity.Kind.Supported() {
		return false, nil
	}
	status, err := s.statuses.Find(ctx, activity.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return true, nil
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity status")
	}
	return !status.Disabled, nil
}

// ApplyToActivity propagates accommodations onto one activity and returns the
// number of users whose deadline override was written.
func (s *PropagationService) ApplyToActivity(ctx context.Context, activityID string, allowOverwrite bool, actor string) (int, error) {
	activity, err := s.activities.FindByID(ctx, activityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}
	return s.applyToActivity(ctx, activity, allowOverwrite, actor)
}

func (s *PropagationService) applyToActivity(ctx context.Context, activity *models.Activity, allowOverwrite bool, actor string) (int, error) {
	eligible, err := s.IsEligible(ctx, activity)
	if err != nil {
		return 0, err
	}
	if !eligible {
		return 0, nil
	}

	ancestors, err := s.courses.AncestorCategoryIDs(ctx, activity.CourseID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load category ancestors")
	}

	profiles, err := s.profiles.ListApplicableForCourse(ctx, activity.CourseID, ancestors)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load applicable profiles")
	}
	if len(profiles) == 0 {
		return 0, nil
	}

	byUser := make(map[string][]models.ProfileDetail)
	for _, p := range profiles {
		byUser[p.UserID] = append(byUser[p.UserID], p)
	}

	overrideRows, err := s.overrides.ListByActivity(ctx, activity.ID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity overrides")
	}
	activityOverrides := make(map[string]int, len(overrideRows))
	for _, o := range overrideRows {
		activityOverrides[o.ProfileID] = o.Extension
	}

	now := time.Now().UTC()
	count := 0
	for offset := 0; ; offset += s.pageSize {
		userIDs, err := s.users.ListEnrolledIDs(ctx, activity.CourseID, offset, s.pageSize)
		if err != nil {
			return count, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enumerate enrollments")
		}

		for _, userID := range userIDs {
			userProfiles, ok := byUser[userID]
			if !ok {
				continue
			}
			best := BestExtension(userProfiles, activityOverrides, now)
			if best.Percent <= 0 {
				continue
			}

			applied, err := s.applyToUser(ctx, activity, userID, best, allowOverwrite, actor)
			if err != nil {
				// Sink rejection degrades to a skip: log, count nothing, move on.
				s.logger.Warn("deadline override write failed",
					zap.String("activity_id", activity.ID),
					zap.String("user_id", userID),
					zap.Error(err))
				if s.metrics != nil {
					s.metrics.IncSinkFailure(string(activity.Kind))
				}
				continue
			}
			if applied {
				count++
				if s.metrics != nil {
					s.metrics.IncApplied(string(activity.Kind))
				}
			}
		}

		if len(userIDs) < s.pageSize {
			break
		}
	}
	return count, nil
}

func (s *PropagationService) applyToUser(ctx context.Context, activity *models.Activity, userID string, best ResolvedAccommodation, allowOverwrite bool, actor string) (bool, error) {
	switch activity.Kind {
	case models.ActivityKindQuiz:
		existing, err := s.quizzes.Find(ctx, activity.ID, userID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return false, fmt.Errorf("check quiz override: %w", err)
		}
		if existing != nil && !allowOverwrite {
			return false, nil
		}

		newLimit := ExtendTimeLimit(activity.TimeLimit, best.Percent)
		override := &models.QuizOverride{ActivityID: activity.ID, UserID: userID, TimeLimit: newLimit}
		if existing != nil {
			override.ID = existing.ID
		}
		if err := s.quizzes.Upsert(ctx, override); err != nil {
			return false, fmt.Errorf("write quiz override: %w", err)
		}
		s.appendHistory(ctx, activity, userID, best, activity.TimeLimit, newLimit, actor)
		return true, nil

	case models.ActivityKindAssignment:
		// No due date means nothing to extend.
		if activity.DueDate <= 0 {
			return false, nil
		}

		existing, err := s.assignments.Find(ctx, activity.ID, userID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return false, fmt.Errorf("check assignment override: %w", err)
		}
		if existing != nil && !allowOverwrite {
			return false, nil
		}

		newDueDate := ExtendDueDate(activity.DueDate, activity.AllowSubmissionsFrom, best.Percent)
		override := &models.AssignmentOverride{ActivityID: activity.ID, UserID: userID, DueDate: newDueDate}
		if existing != nil {
			override.ID = existing.ID
		}
		if err := s.assignments.Upsert(ctx, override); err != nil {
			return false, fmt.Errorf("write assignment override: %w", err)
		}
		s.appendHistory(ctx, activity, userID, best, activity.DueDate, newDueDate, actor)
		return true, nil
	}
	return false, nil
}

func (s *PropagationService) appendHistory(ctx context.Context, activity *models.Activity, userID string, best ResolvedAccommodation, original, extended int64, actor string) {
	entry := &models.AccommodationHistory{
		UserID:           userID,
		CourseID:         activity.CourseID,
		ActivityID:       activity.ID,
		ModuleKind:       activity.Kind,
		ModuleInstanceID: activity.InstanceID,
		Extension:        best.Percent,
		OriginalValue:    original,
		NewValue:         extended,
		Applied:          true,
		ModifiedBy:       actor,
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to append accommodation history",
			zap.String("activity_id", activity.ID),
			zap.String("user_id", userID),
			zap.Error(err))
	}
}

// ApplyToCourse propagates accommodations across every eligible activity in a
// course and sums the per-kind user counts.
func (s *PropagationService) ApplyToCourse(ctx context.Context, courseID string, allowOverwrite bool, actor string) (*CourseApplyStats, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	activities, err := s.activities.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course activities")
	}

	stats := &CourseApplyStats{}
	for i := range activities {
		activity := &activities[i]
		count, err := s.applyToActivity(ctx, activity, allowOverwrite, actor)
		if err != nil {
			// Keep sweeping the remaining activities.
			s.logger.Warn("activity propagation failed",
				zap.String("course_id", courseID),
				zap.String("activity_id", activity.ID),
				zap.Error(err))
			continue
		}
		switch activity.Kind {
		case models.ActivityKindQuiz:
			stats.Quizzes += count
		case models.ActivityKindAssignment:
			stats.Assignments += count
		}
	}
	return stats, nil
}

// ApplyToCategory propagates accommodations into every course of a category
// and its descendants.
func (s *PropagationService) ApplyToCategory(ctx context.Context, categoryID string, allowOverwrite bool, actor string) (*CategoryApplyStats, error) {
	categoryIDs, err := s.descendantCategoryIDs(ctx, categoryID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve category tree")
	}
	if len(categoryIDs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "category not found")
	}

	stats := &CategoryApplyStats{}
	for _, catID := range categoryIDs {
		courses, err := s.courses.ListByCategory(ctx, catID)
		if err != nil {
			s.logger.Warn("failed to list category courses", zap.String("category_id", catID), zap.Error(err))
			continue
		}
		for _, course := range courses {
			courseStats, err := s.ApplyToCourse(ctx, course.ID, allowOverwrite, actor)
			if err != nil {
				s.logger.Warn("course propagation failed", zap.String("course_id", course.ID), zap.Error(err))
				continue
			}
			stats.Quizzes += courseStats.Quizzes
			stats.Assignments += courseStats.Assignments
			if courseStats.Quizzes > 0 || courseStats.Assignments > 0 {
				stats.Courses++
			}
		}
	}
	return stats, nil
}

// ApplyAll sweeps every course reachable by at least one profile. Used by the
// scheduled auto-apply run, which never clobbers manually set overrides.
func (s *PropagationService) ApplyAll(ctx context.Context, allowOverwrite bool, actor string) (*CategoryApplyStats, error) {
	courseIDs, err := s.profiles.CourseIDsWithProfiles(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses with profiles")
	}

	stats := &CategoryApplyStats{}
	for _, courseID := range courseIDs {
		courseStats, err := s.ApplyToCourse(ctx, courseID, allowOverwrite, actor)
		if err != nil {
			s.logger.Warn("course propagation failed", zap.String("course_id", courseID), zap.Error(err))
			continue
		}
		stats.Quizzes += courseStats.Quizzes
		stats.Assignments += courseStats.Assignments
		if courseStats.Quizzes > 0 || courseStats.Assignments > 0 {
			stats.Courses++
		}
	}
	return stats, nil
}

func (s *PropagationService) descendantCategoryIDs(ctx context.Context, categoryID string) ([]string, error) {
	cacheKey := "categories:descendants:" + categoryID
	if s.cache != nil {
		var cached []string
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	ids, err := s.courses.DescendantCategoryIDs(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && len(ids) > 0 {
		if err := s.cache.Set(ctx, cacheKey, ids, s.categoryCacheTTL); err != nil {
			s.logger.Debug("failed to cache category tree", zap.Error(err))
		}
	}
	return ids, nil
}
