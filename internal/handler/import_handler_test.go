package handler

import (
	"bytes"
	"context"
	"database/sql"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	internalmiddleware "github.com/campusops/accommodations-api/internal/middleware"
	"github.com/campusops/accommodations-api/internal/models"
	"github.com/campusops/accommodations-api/internal/service"
)

type importUserHandlerStub struct{}

func (s *importUserHandlerStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	return nil, sql.ErrNoRows
}

func (s *importUserHandlerStub) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if username == "jdoe" {
		return &models.User{ID: "u1", Username: "jdoe"}, nil
	}
	return nil, sql.ErrNoRows
}

func (s *importUserHandlerStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, sql.ErrNoRows
}

type importTypeHandlerStub struct{}

func (s *importTypeHandlerStub) List(ctx context.Context) ([]models.AccommodationType, error) {
	return []models.AccommodationType{{ID: "t1", Name: "Learning Disability", DefaultExtension: 25}}, nil
}

type importProfileHandlerStub struct {
	created []*models.AccommodationProfile
}

func (s *importProfileHandlerStub) Create(ctx context.Context, profile *models.AccommodationProfile) error {
	s.created = append(s.created, profile)
	return nil
}

type applierRecorderStub struct {
	courseCalls   []string
	categoryCalls []string
	overwrites    []bool
}

func (s *applierRecorderStub) ApplyToCourse(ctx context.Context, courseID string, allowOverwrite bool, actor string) (*service.CourseApplyStats, error) {
	s.courseCalls = append(s.courseCalls, courseID)
	s.overwrites = append(s.overwrites, allowOverwrite)
	return &service.CourseApplyStats{Quizzes: 1}, nil
}

func (s *applierRecorderStub) ApplyToCategory(ctx context.Context, categoryID string, allowOverwrite bool, actor string) (*service.CategoryApplyStats, error) {
	s.categoryCalls = append(s.categoryCalls, categoryID)
	s.overwrites = append(s.overwrites, allowOverwrite)
	return &service.CategoryApplyStats{Courses: 1, Quizzes: 1}, nil
}

func buildImportRouter(applier *applierRecorderStub, profiles *importProfileHandlerStub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
		c.Next()
	})

	svc := service.NewImportService(&importUserHandlerStub{}, &importTypeHandlerStub{}, profiles, nil, 0, nil)
	h := NewImportHandler(svc, applier)
	router.POST("/import", h.Upload)
	return router
}

func importRequest(t *testing.T, csvBody string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "profiles.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(csvBody))
	require.NoError(t, err)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(http.MethodPost, "/import", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestImportUploadApplyOverwritesExistingOverrides(t *testing.T) {
	applier := &applierRecorderStub{}
	profiles := &importProfileHandlerStub{}
	router := buildImportRouter(applier, profiles)

	req := importRequest(t, "jdoe,Learning Disability,25,,,\n", map[string]string{
		"course_id": "c1",
		"apply":     "true",
	})
	resp := performRequest(router, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Len(t, profiles.created, 1)
	require.Equal(t, []string{"c1"}, applier.courseCalls)
	require.Equal(t, []bool{true}, applier.overwrites)
	require.Contains(t, resp.Body.String(), `"propagation"`)
}

func TestImportUploadApplyPrefersCategoryScope(t *testing.T) {
	applier := &applierRecorderStub{}
	router := buildImportRouter(applier, &importProfileHandlerStub{})

	req := importRequest(t, "jdoe,Learning Disability,25,,,\n", map[string]string{
		"course_id":   "c1",
		"category_id": "cat1",
		"apply":       "true",
	})
	resp := performRequest(router, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Empty(t, applier.courseCalls)
	require.Equal(t, []string{"cat1"}, applier.categoryCalls)
	require.Equal(t, []bool{true}, applier.overwrites)
}

func TestImportUploadWithoutApplySkipsPropagation(t *testing.T) {
	applier := &applierRecorderStub{}
	router := buildImportRouter(applier, &importProfileHandlerStub{})

	req := importRequest(t, "jdoe,Learning Disability,25,,,\n", map[string]string{"course_id": "c1"})
	resp := performRequest(router, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Empty(t, applier.courseCalls)
	require.Empty(t, applier.categoryCalls)
}

func TestImportUploadFailedRowsOnlySkipPropagation(t *testing.T) {
	applier := &applierRecorderStub{}
	router := buildImportRouter(applier, &importProfileHandlerStub{})

	req := importRequest(t, "nobody,Learning Disability,25,,,\n", map[string]string{
		"course_id": "c1",
		"apply":     "true",
	})
	resp := performRequest(router, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Empty(t, applier.courseCalls)
	require.Contains(t, resp.Body.String(), `"errors_by_line"`)
}
