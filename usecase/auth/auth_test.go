package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/backend/domain"
	"github.com/taskdeck/backend/repository"
)

type memUsers struct {
	byEmail map[string]*domain.User
}

func newMemUsers() *memUsers {
	return &memUsers{byEmail: make(map[string]*domain.User)}
}

func (m *memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	for _, u := range m.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *memUsers) Create(_ context.Context, user *domain.User) error {
	if _, ok := m.byEmail[user.Email]; ok {
		return domain.ErrEmailTaken
	}
	if user.ID == "" {
		user.ID = "user-" + user.Email
	}
	m.byEmail[user.Email] = user
	return nil
}

func (m *memUsers) UpdateTheme(_ context.Context, id, theme string) error {
	for _, u := range m.byEmail {
		if u.ID == id {
			u.Theme = theme
			return nil
		}
	}
	return domain.ErrUserNotFound
}

type memSessions struct {
	byID map[string]*domain.Session
}

func newMemSessions() *memSessions {
	return &memSessions{byID: make(map[string]*domain.Session)}
}

func (m *memSessions) Get(_ context.Context, id string) (*domain.Session, error) {
	if s, ok := m.byID[id]; ok {
		return s, nil
	}
	return nil, domain.ErrSessionNotFound
}

func (m *memSessions) Save(_ context.Context, session *domain.Session) error {
	m.byID[session.ID] = session
	return nil
}

func (m *memSessions) Delete(_ context.Context, id string) error {
	delete(m.byID, id)
	return nil
}

var (
	_ repository.UserRepository    = (*memUsers)(nil)
	_ repository.SessionRepository = (*memSessions)(nil)
)

func newTestUseCase() (*UseCase, *memUsers, *memSessions) {
	users := newMemUsers()
	sessions := newMemSessions()
	uc := New(users, sessions, TokenConfig{Secret: "test-secret", Issuer: "test", TTL: time.Hour}, nil)
	return uc, users, sessions
}

func TestSignUpCreatesSessionAndNotifies(t *testing.T) {
	uc, _, sessions := newTestUseCase()

	var events []domain.SessionEvent
	uc.Subscribe(func(ev domain.SessionEvent) { events = append(events, ev) })

	session, token, err := uc.SignUp(context.Background(), "Alice@Example.com", "correct-horse")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "alice@example.com", session.Email)
	assert.Contains(t, sessions.byID, session.ID)

	require.Len(t, events, 1)
	assert.Equal(t, session.UserID, events[0].UserID)
	require.NotNil(t, events[0].Session)

	// the minted token carries the user and session ids
	parsed, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, session.UserID, claims["user_id"])
	assert.Equal(t, session.ID, claims["session_id"])
}

func TestSignUpRejectsWeakInput(t *testing.T) {
	uc, _, _ := newTestUseCase()

	_, _, err := uc.SignUp(context.Background(), "", "long-enough-password")
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)

	_, _, err = uc.SignUp(context.Background(), "a@b.com", "short")
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)
}

func TestSignInVerifiesPassword(t *testing.T) {
	uc, _, _ := newTestUseCase()
	_, _, err := uc.SignUp(context.Background(), "a@b.com", "correct-horse")
	require.NoError(t, err)

	session, _, err := uc.SignIn(context.Background(), "a@b.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", session.Email)

	_, _, err = uc.SignIn(context.Background(), "a@b.com", "wrong-password")
	assert.ErrorIs(t, err, domain.ErrBadCredentials)

	// unknown account reads the same as a wrong password
	_, _, err = uc.SignIn(context.Background(), "nobody@b.com", "correct-horse")
	assert.ErrorIs(t, err, domain.ErrBadCredentials)
}

func TestSignOutNotifiesWithoutSession(t *testing.T) {
	uc, _, sessions := newTestUseCase()
	session, _, err := uc.SignUp(context.Background(), "a@b.com", "correct-horse")
	require.NoError(t, err)

	var events []domain.SessionEvent
	uc.Subscribe(func(ev domain.SessionEvent) { events = append(events, ev) })

	require.NoError(t, uc.SignOut(context.Background(), session.ID))
	assert.NotContains(t, sessions.byID, session.ID)

	require.Len(t, events, 1)
	assert.Equal(t, session.UserID, events[0].UserID)
	assert.Nil(t, events[0].Session, "sign-out event carries no session")
}

func TestCurrentSessionExpiresLazily(t *testing.T) {
	uc, _, sessions := newTestUseCase()
	session, _, err := uc.SignUp(context.Background(), "a@b.com", "correct-horse")
	require.NoError(t, err)

	got, err := uc.CurrentSession(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)

	sessions.byID[session.ID].ExpiresAt = time.Now().Add(-time.Minute)
	_, err = uc.CurrentSession(context.Background(), session.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.NotContains(t, sessions.byID, session.ID, "expired session deleted")
}
