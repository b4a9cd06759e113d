package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/medverify-api/internal/models"
	appErrors "github.com/noah-isme/medverify-api/pkg/errors"
)

type userRepoStub struct {
	byEmail map[string]*models.User
}

func newUserRepoStub() *userRepoStub {
	return &userRepoStub{byEmail: map[string]*models.User{}}
}

func (r *userRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *user
	return &copy, nil
}

func (r *userRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	for _, user := range r.byEmail {
		if user.ID == id {
			copy := *user
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *userRepoStub) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	r.byEmail[strings.ToLower(user.Email)] = user
	return nil
}

type sessionRepoStub struct {
	sessions map[string]*models.Session
}

func newSessionRepoStub() *sessionRepoStub {
	return &sessionRepoStub{sessions: map[string]*models.Session{}}
}

func (r *sessionRepoStub) Save(ctx context.Context, session *models.Session, ttl time.Duration) error {
	copy := *session
	r.sessions[session.ID] = &copy
	return nil
}

func (r *sessionRepoStub) Find(ctx context.Context, id string) (*models.Session, error) {
	session, ok := r.sessions[id]
	if !ok {
		return nil, appErrors.ErrCacheMiss
	}
	copy := *session
	return &copy, nil
}

func (r *sessionRepoStub) Delete(ctx context.Context, id string) error {
	delete(r.sessions, id)
	return nil
}

func newTestAuthService(users *userRepoStub, sessions *sessionRepoStub) *AuthService {
	return NewAuthService(users, sessions, "test-secret", time.Hour, nil, nil)
}

func registerTestUser(t *testing.T, svc *AuthService, email, password, role string) (*models.User, string) {
	t.Helper()
	user, token, err := svc.Register(context.Background(), RegisterRequest{
		Email:     email,
		Password:  password,
		FirstName: "Ada",
		LastName:  "Okafor",
		Role:      role,
	}, RequestMeta{})
	require.NoError(t, err)
	return user, token
}

func TestRegisterOpensSession(t *testing.T) {
	users := newUserRepoStub()
	sessions := newSessionRepoStub()
	svc := newTestAuthService(users, sessions)

	user, token := registerTestUser(t, svc, "ada@example.com", "correct-horse", "")

	assert.Equal(t, models.RoleUser, user.Role)
	assert.NotEqual(t, "correct-horse", user.PasswordHash)
	assert.NotEmpty(t, token)
	assert.Len(t, sessions.sessions, 1)

	session, err := svc.ValidateSession(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.UserID)
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	svc := newTestAuthService(newUserRepoStub(), newSessionRepoStub())
	registerTestUser(t, svc, "ada@example.com", "correct-horse", "")

	_, _, err := svc.Register(context.Background(), RegisterRequest{
		Email:     "Ada@Example.com",
		Password:  "correct-horse",
		FirstName: "Ada",
		LastName:  "Okafor",
	}, RequestMeta{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, 400, appErr.Status)
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	svc := newTestAuthService(newUserRepoStub(), newSessionRepoStub())

	_, _, err := svc.Register(context.Background(), RegisterRequest{
		Email:     "ada@example.com",
		Password:  "correct-horse",
		FirstName: "Ada",
		LastName:  "Okafor",
		Role:      "superuser",
	}, RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErrors.FromError(err).Status)
}

func TestLoginWrongPasswordAndUnknownEmailLookAlike(t *testing.T) {
	svc := newTestAuthService(newUserRepoStub(), newSessionRepoStub())
	registerTestUser(t, svc, "ada@example.com", "correct-horse", "")

	_, _, errWrongPassword := svc.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "wrong"}, RequestMeta{})
	_, _, errUnknownEmail := svc.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: "wrong"}, RequestMeta{})

	require.Error(t, errWrongPassword)
	require.Error(t, errUnknownEmail)
	assert.Equal(t, appErrors.FromError(errWrongPassword).Code, appErrors.FromError(errUnknownEmail).Code)
}

func TestLogoutRevokesSession(t *testing.T) {
	sessions := newSessionRepoStub()
	svc := newTestAuthService(newUserRepoStub(), sessions)
	_, token := registerTestUser(t, svc, "ada@example.com", "correct-horse", "admin")

	require.NoError(t, svc.Logout(context.Background(), token))

	_, err := svc.ValidateSession(context.Background(), token)
	require.Error(t, err)
	assert.Empty(t, sessions.sessions)
}

func TestValidateSessionRejectsForgedToken(t *testing.T) {
	svc := newTestAuthService(newUserRepoStub(), newSessionRepoStub())
	_, token := registerTestUser(t, svc, "ada@example.com", "correct-horse", "")

	other := NewAuthService(newUserRepoStub(), newSessionRepoStub(), "other-secret", time.Hour, nil, nil)
	_, err := other.ValidateSession(context.Background(), token)
	require.Error(t, err)
}

func TestCurrentUserLoadsAccount(t *testing.T) {
	users := newUserRepoStub()
	svc := newTestAuthService(users, newSessionRepoStub())
	user, token := registerTestUser(t, svc, "ada@example.com", "correct-horse", "admin")

	session, err := svc.ValidateSession(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, session.Role)

	loaded, err := svc.CurrentUser(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, user.Email, loaded.Email)
}
