package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskdeck/backend/domain"
	"github.com/taskdeck/backend/repository"
)

// TokenConfig controls the JWTs minted at sign-in.
type TokenConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// UseCase implements sign-up, sign-in, sign-out and current-session, and
// fans session changes out to subscribers (the board manager reloads the
// task list, the importer drains the local cache).
type UseCase struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	tokens   TokenConfig
	logger   *zap.Logger

	mu          sync.RWMutex
	subscribers []func(domain.SessionEvent)
}

func New(users repository.UserRepository, sessions repository.SessionRepository, tokens TokenConfig, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tokens.TTL <= 0 {
		tokens.TTL = 24 * time.Hour
	}
	return &UseCase{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		logger:   logger,
	}
}

// Subscribe registers a session-change listener. Listeners run
// synchronously in registration order after the session store commits.
func (uc *UseCase) Subscribe(fn func(domain.SessionEvent)) {
	if fn == nil {
		return
	}
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.subscribers = append(uc.subscribers, fn)
}

// SignUp registers a new account and immediately signs it in.
func (uc *UseCase) SignUp(ctx context.Context, email, password string) (*domain.Session, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || len(password) < 8 {
		return nil, "", domain.ErrInvalidPayload
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	user := &domain.User{Email: email, PasswordHash: string(hash)}
	if err := uc.users.Create(ctx, user); err != nil {
		return nil, "", err
	}
	uc.logger.Info("user registered", zap.String("user_id", user.ID))

	return uc.openSession(ctx, user)
}

// SignIn verifies credentials and opens a session.
func (uc *UseCase) SignIn(ctx context.Context, email, password string) (*domain.Session, string, error) {
	user, err := uc.users.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return nil, "", domain.ErrBadCredentials
		}
		return nil, "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, "", domain.ErrBadCredentials
	}

	return uc.openSession(ctx, user)
}

// SignOut revokes the session and notifies subscribers so per-user state
// gets cleared.
func (uc *UseCase) SignOut(ctx context.Context, sessionID string) error {
	session, err := uc.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := uc.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	uc.notify(domain.SessionEvent{UserID: session.UserID})
	return nil
}

// CurrentSession returns the live session, expiring it lazily.
func (uc *UseCase) CurrentSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := uc.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.IsExpired(time.Now()) {
		_ = uc.sessions.Delete(ctx, sessionID)
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (uc *UseCase) openSession(ctx context.Context, user *domain.User) (*domain.Session, string, error) {
	now := time.Now()
	session := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Email:     user.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(uc.tokens.TTL),
	}
	if err := uc.sessions.Save(ctx, session); err != nil {
		return nil, "", err
	}

	token, err := uc.mintToken(session)
	if err != nil {
		return nil, "", err
	}

	uc.notify(domain.SessionEvent{UserID: user.ID, Session: session})
	return session, token, nil
}

func (uc *UseCase) mintToken(session *domain.Session) (string, error) {
	claims := jwt.MapClaims{
		"user_id":    session.UserID,
		"session_id": session.ID,
		"iss":        uc.tokens.Issuer,
		"iat":        session.CreatedAt.Unix(),
		"exp":        session.ExpiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(uc.tokens.Secret))
}

func (uc *UseCase) notify(event domain.SessionEvent) {
	uc.mu.RLock()
	subscribers := make([]func(domain.SessionEvent), len(uc.subscribers))
	copy(subscribers, uc.subscribers)
	uc.mu.RUnlock()

	for _, fn := range subscribers {
		fn(event)
	}
}
