package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/nanotrace/certification-backend/internal/config"
	"github.com/nanotrace/certification-backend/internal/domain"
	"github.com/nanotrace/certification-backend/internal/observability"
	"github.com/nanotrace/certification-backend/internal/repository"
	"github.com/nanotrace/certification-backend/internal/security"
)

type Capability string

const CapabilityAdmin Capability = "admin"

// Authorize checks a capability against the actor. Only admin exists today.
func Authorize(actor domain.Actor, capability Capability) error {
	if capability == CapabilityAdmin && actor.IsAdmin {
		return nil
	}
	return fmt.Errorf("%w: %s capability required", ErrAuthorization, capability)
}

type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
	SessionID string       `json:"-"`
}

type AuthService struct {
	store       repository.Store
	tokens      *security.JWTManager
	hasher      security.PasswordHasher
	guard       LoginGuard
	logger      *slog.Logger
	sessionTTL  time.Duration
	minPassword int
	adminEmail  string
	now         func() time.Time

	// dummyHash keeps unknown-email logins as slow as wrong-password ones.
	dummyHash string
}

func NewAuthService(cfg *config.Config, store repository.Store, tokens *security.JWTManager, guard LoginGuard, logger *slog.Logger) (*AuthService, error) {
	if guard == nil {
		guard = NoopLoginGuard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	hasher := security.DefaultPasswordHasher()
	dummy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &AuthService{
		store:       store,
		tokens:      tokens,
		hasher:      hasher,
		guard:       guard,
		logger:      logger,
		sessionTTL:  cfg.SessionTTL,
		minPassword: cfg.AuthPasswordMinLength,
		adminEmail:  cfg.BootstrapAdminEmail,
		now:         time.Now,
		dummyHash:   dummy,
	}, nil
}

// Register creates a user. Email is compared exactly as stored after trimming
// surrounding whitespace.
func (s *AuthService) Register(ctx context.Context, email, password, confirm string) (user *domain.User, err error) {
	start := time.Now()
	defer func() {
		outcome := outcomeOf(err)
		observability.RecordAuthRegister(ctx, outcome)
		observability.RecordAuthRequestDuration(ctx, "register", outcome, time.Since(start))
	}()

	email = strings.TrimSpace(email)
	if err = s.validateRegistration(email, password, confirm); err != nil {
		return nil, err
	}
	if _, err = s.store.Users().FindByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: email already registered", ErrConflict)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user = &domain.User{
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      s.adminEmail != "" && email == s.adminEmail,
	}
	if err = s.store.Users().Create(ctx, user); err != nil {
		// A concurrent registration can pass the lookup and lose on the unique index.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return nil, err
	}
	if user.IsAdmin {
		s.logger.InfoContext(ctx, "bootstrap admin registered", "user_id", user.ID)
	}
	return user, nil
}

// maxEmailLength matches the users.email column size.
const maxEmailLength = 120

func (s *AuthService) validateRegistration(email, password, confirm string) error {
	var problems []string
	if email == "" {
		problems = append(problems, "email is required")
	} else if utf8.RuneCountInString(email) > maxEmailLength {
		problems = append(problems, fmt.Sprintf("email must be at most %d characters", maxEmailLength))
	} else if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		problems = append(problems, "email is invalid")
	}
	switch {
	case password == "":
		problems = append(problems, "password is required")
	case len([]rune(password)) < s.minPassword:
		problems = append(problems, fmt.Sprintf("password must be at least %d characters", s.minPassword))
	case password != confirm:
		problems = append(problems, "password and confirmation do not match")
	}
	if len(problems) > 0 {
		return validationError("%s", strings.Join(problems, "; "))
	}
	return nil
}

// Authenticate verifies credentials and opens a session. Unknown emails and
// wrong passwords produce the same error.
func (s *AuthService) Authenticate(ctx context.Context, email, password, userAgent, ip string) (res *LoginResult, err error) {
	start := time.Now()
	defer func() {
		outcome := outcomeOf(err)
		var throttled *ThrottledError
		if errors.As(err, &throttled) {
			outcome = "throttled"
		}
		observability.RecordAuthLogin(ctx, outcome)
		observability.RecordAuthRequestDuration(ctx, "login", outcome, time.Since(start))
	}()

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	retryAfter, guardErr := s.guard.Check(ctx, email, ip)
	if guardErr != nil {
		observability.RecordAuthAbuseGuardEvent(ctx, "check", "error")
		s.logger.WarnContext(ctx, "login guard check failed", "error", guardErr)
	} else if retryAfter > 0 {
		observability.RecordAuthAbuseGuardEvent(ctx, "check", "blocked")
		return nil, &ThrottledError{RetryAfter: retryAfter}
	}

	user, err := s.store.Users().FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	hash := s.dummyHash
	if user != nil {
		hash = user.PasswordHash
	}
	ok, verifyErr := s.hasher.Verify(hash, password)
	if verifyErr != nil {
		s.logger.ErrorContext(ctx, "stored password hash is unreadable", "error", verifyErr)
	}
	if user == nil || !ok {
		s.registerLoginFailure(ctx, email, ip)
		return nil, ErrInvalidCredentials
	}
	if err := s.guard.Reset(ctx, email, ip); err != nil {
		s.logger.WarnContext(ctx, "login guard reset failed", "error", err)
	}

	sessionID := uuid.NewString()
	token, expiresAt, err := s.tokens.SignSessionToken(user.ID, sessionID, user.IsAdmin, s.sessionTTL)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}
	session := &domain.Session{
		ID:        sessionID,
		UserID:    user.ID,
		TokenHash: security.HashToken(token),
		UserAgent: truncateRunes(userAgent, 512),
		IP:        truncateRunes(ip, 64),
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Sessions().Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user, SessionID: sessionID}, nil
}

func (s *AuthService) registerLoginFailure(ctx context.Context, email, ip string) {
	cooldown, err := s.guard.RegisterFailure(ctx, email, ip)
	if err != nil {
		observability.RecordAuthAbuseGuardEvent(ctx, "register_failure", "error")
		s.logger.WarnContext(ctx, "login guard update failed", "error", err)
		return
	}
	observability.RecordAuthAbuseGuardEvent(ctx, "register_failure", "success")
	if cooldown > 0 {
		observability.RecordAuthAbuseCooldown(ctx, cooldown)
	}
}

// ResolveSession maps a bearer token to the actor behind it. The token must be
// valid and its session row active and bound to the same token.
func (s *AuthService) ResolveSession(ctx context.Context, token string) (actor domain.Actor, err error) {
	outcome := "success"
	defer func() { observability.RecordSessionValidation(ctx, outcome) }()

	claims, err := s.tokens.ParseSessionToken(token)
	if err != nil {
		outcome = "invalid_token"
		if errors.Is(err, security.ErrTokenExpired) {
			outcome = "expired"
		}
		return actor, fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	session, err := s.store.Sessions().FindByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			outcome = "unknown_session"
			return actor, fmt.Errorf("%w: session not found", ErrAuthentication)
		}
		outcome = "error"
		return actor, err
	}
	if !session.Active(s.now()) || session.TokenHash != security.HashToken(token) {
		outcome = "inactive_session"
		return actor, fmt.Errorf("%w: session is no longer active", ErrAuthentication)
	}
	user, err := s.store.Users().FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			outcome = "unknown_user"
			return actor, fmt.Errorf("%w: user not found", ErrAuthentication)
		}
		outcome = "error"
		return actor, err
	}
	return domain.ActorFromUser(user, session.ID), nil
}

func (s *AuthService) Logout(ctx context.Context, sessionID string) (err error) {
	defer func() { observability.RecordAuthLogout(ctx, outcomeOf(err)) }()
	if sessionID == "" {
		return fmt.Errorf("%w: no active session", ErrAuthentication)
	}
	return s.store.Sessions().Revoke(ctx, sessionID)
}

func (s *AuthService) GetUser(ctx context.Context, id uint) (*domain.User, error) {
	user, err := s.store.Users().FindByID(ctx, id)
	if err != nil {
		return nil, mapRepositoryError(err, fmt.Sprintf("user %d", id))
	}
	return user, nil
}

func (s *AuthService) ListUsers(ctx context.Context, search string, page, pageSize int) (repository.PageResult[domain.User], error) {
	req := repository.NormalizePageRequest(repository.PageRequest{Page: page, PageSize: pageSize})
	res, err := s.store.Users().ListPaged(ctx, strings.TrimSpace(search), req)
	if err != nil {
		return res, err
	}
	observability.RecordListPageSize(ctx, "users", len(res.Items))
	return res, nil
}

// CleanupExpiredSessions removes sessions past their expiry.
func (s *AuthService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	return s.store.Sessions().CleanupExpired(ctx)
}
