package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusops/accommodations-api/internal/models"
	appErrors "github.com/campusops/accommodations-api/pkg/errors"
)

type authRepoStub struct {
	user *models.User
}

func (s *authRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.user != nil && s.user.Email == email {
		return s.user, nil
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if s.user != nil && s.user.ID == id {
		return s.user, nil
	}
	return nil, sql.ErrNoRows
}

func newAuthFixture(t *testing.T, active bool) (*AuthService, *models.User) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		ID:           "u1",
		Email:        "admin@example.edu",
		PasswordHash: string(hash),
		FullName:     "Admin User",
		Role:         models.RoleAdmin,
		Active:       active,
	}
	svc := NewAuthService(&authRepoStub{user: user}, validator.New(), nil, AuthConfig{
		AccessTokenSecret: "test-secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "accommodations-api",
	})
	return svc, user
}

func TestAuthServiceLoginIssuesValidToken(t *testing.T) {
	svc, user := newAuthFixture(t, true)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, user.ID, resp.User.ID)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	svc, user := newAuthFixture(t, true)
	_, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	svc, _ := newAuthFixture(t, true)
	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "nobody@example.edu", Password: "secret123"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	svc, user := newAuthFixture(t, false)
	_, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "secret123"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateTokenRejectsGarbage(t *testing.T) {
	svc, _ := newAuthFixture(t, true)
	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
