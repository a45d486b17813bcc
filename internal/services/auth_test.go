package services

import (
	"testing"

	"leadpilot/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuth(t *testing.T) *AuthService {
	t.Helper()
	db := newTestDB(t)
	return NewAuthService(repository.NewUserRepository(db), repository.NewUserSessionRepository(db))
}

func TestLoginAndValidate(t *testing.T) {
	auth := newTestAuth(t)
	require.NoError(t, auth.EnsureAdminUser("admin", "secret"))

	session, err := auth.Login("admin", "secret")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "admin", session.User.Username)

	user, err := auth.ValidateSession(session.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Username)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	auth := newTestAuth(t)
	require.NoError(t, auth.EnsureAdminUser("admin", "secret"))

	_, err := auth.Login("admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.Login("ghost", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogoutInvalidatesSession(t *testing.T) {
	auth := newTestAuth(t)
	require.NoError(t, auth.EnsureAdminUser("admin", "secret"))

	session, err := auth.Login("admin", "secret")
	require.NoError(t, err)

	require.NoError(t, auth.Logout(session.Token))

	_, err = auth.ValidateSession(session.Token)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestEnsureAdminUserOnlySeedsOnce(t *testing.T) {
	auth := newTestAuth(t)
	require.NoError(t, auth.EnsureAdminUser("admin", "secret"))
	require.NoError(t, auth.EnsureAdminUser("other", "pw"))

	// Second call is a no-op; only admin can log in.
	_, err := auth.Login("other", "pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.Login("admin", "secret")
	require.NoError(t, err)
}
