package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/medtrack/medtrack-api/internal/models"
	appErrors "github.com/medtrack/medtrack-api/pkg/errors"
)

type userRepoStub struct {
	users         map[string]*models.User
	passwordByID  map[string]string
	lastLoginByID map[string]time.Time
}

func (s *userRepoStub) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *userRepoStub) FindByID(_ context.Context, id string) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (s *userRepoStub) UpdateLastLogin(_ context.Context, id string, ts time.Time) error {
	if s.lastLoginByID == nil {
		s.lastLoginByID = map[string]time.Time{}
	}
	s.lastLoginByID[id] = ts
	return nil
}

func (s *userRepoStub) UpdatePassword(_ context.Context, id, passwordHash string, _ time.Time) error {
	if s.passwordByID == nil {
		s.passwordByID = map[string]string{}
	}
	s.passwordByID[id] = passwordHash
	return nil
}

type otpStoreStub struct {
	values map[string]string
}

func (s *otpStoreStub) Put(_ context.Context, key, value string, _ time.Duration) error {
	if s.values == nil {
		s.values = map[string]string{}
	}
	s.values[key] = value
	return nil
}

func (s *otpStoreStub) Get(_ context.Context, key string) (string, error) {
	value, ok := s.values[key]
	if !ok {
		return "", appErrors.ErrCacheMiss
	}
	return value, nil
}

func (s *otpStoreStub) Delete(_ context.Context, key string) error {
	delete(s.values, key)
	return nil
}

func newAuthFixture(t *testing.T) (*AuthService, *userRepoStub, *otpStoreStub) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := &userRepoStub{users: map[string]*models.User{
		"user-1": {
			ID:           "user-1",
			Email:        "guardian@example.com",
			PasswordHash: string(hash),
			FullName:     "Jordan Park",
			Role:         models.RoleGuardian,
			Active:       true,
		},
	}}
	otps := &otpStoreStub{}
	svc := NewAuthService(repo, otps, nil, nil, AuthConfig{
		AccessTokenSecret: "test-secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "medtrack-test",
	})
	return svc, repo, otps
}

func TestAuthLoginIssuesValidToken(t *testing.T) {
	svc, repo, _ := newAuthFixture(t)

	res, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "guardian@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.Equal(t, "user-1", res.User.ID)
	assert.Equal(t, models.RoleGuardian, res.User.Role)
	assert.NotEmpty(t, repo.lastLoginByID["user-1"])

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleGuardian, claims.Role)
	assert.True(t, claims.IsGuardian())
	assert.False(t, claims.IsCaretaker())
}

func TestAuthLoginWrongPassword(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "guardian@example.com",
		Password: "wrong",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthLoginUnknownEmail(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "nobody@example.com",
		Password: "correct-horse",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthValidateTokenRejectsTampered(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
}

func TestAuthPasswordResetFlow(t *testing.T) {
	svc, repo, otps := newAuthFixture(t)

	err := svc.RequestPasswordReset(context.Background(), models.ResetPasswordRequest{Email: "guardian@example.com"})
	require.NoError(t, err)
	code := otps.values["guardian@example.com"]
	require.Len(t, code, 6)

	err = svc.ConfirmPasswordReset(context.Background(), models.ConfirmResetPasswordRequest{
		Email:       "guardian@example.com",
		Code:        code,
		NewPassword: "new-password",
	})
	require.NoError(t, err)

	newHash := repo.passwordByID["user-1"]
	require.NotEmpty(t, newHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(newHash), []byte("new-password")))

	// single use
	err = svc.ConfirmPasswordReset(context.Background(), models.ConfirmResetPasswordRequest{
		Email:       "guardian@example.com",
		Code:        code,
		NewPassword: "another-password",
	})
	require.Error(t, err)
}

func TestAuthPasswordResetWrongCode(t *testing.T) {
	svc, _, otps := newAuthFixture(t)

	require.NoError(t, otps.Put(context.Background(), "guardian@example.com", "123456", time.Minute))

	err := svc.ConfirmPasswordReset(context.Background(), models.ConfirmResetPasswordRequest{
		Email:       "guardian@example.com",
		Code:        "654321",
		NewPassword: "new-password",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthPasswordResetUnknownEmailSilent(t *testing.T) {
	svc, _, otps := newAuthFixture(t)

	err := svc.RequestPasswordReset(context.Background(), models.ResetPasswordRequest{Email: "nobody@example.com"})
	require.NoError(t, err)
	assert.Empty(t, otps.values)
}
