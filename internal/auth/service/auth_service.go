package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"storefront-auth/internal/audit"
	"storefront-auth/internal/security"
	sessiondomain "storefront-auth/internal/session/domain"
	sessionrepo "storefront-auth/internal/session/repository"
	userdomain "storefront-auth/internal/user/domain"
)

var tracer = otel.Tracer("storefront-auth/internal/auth/service")

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
}

// SessionRepo is the minimal session repository needed by the auth service.
type SessionRepo interface {
	Create(ctx context.Context, s *sessiondomain.Session) error
	DeleteByFamilyID(ctx context.Context, familyID string) error
	DeleteAllForUser(ctx context.Context, userID, excludeFamilyID string) (int64, error)
	Rotate(ctx context.Context, oldFamilyID string, next *sessiondomain.Session) error
}

// Device carries optional request provenance recorded on session rows.
// Advisory only; never used for authorization decisions.
type Device struct {
	UserAgent string
	IP        string
}

// TokenPair is the result of side-effect-free credential issuance.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	// FamilyID is embedded in the refresh token and mirrors the session row
	// the caller must persist.
	FamilyID string
	// RefreshExpiresAt is the expiry the caller must record on that row.
	RefreshExpiresAt time.Time
}

// AuthResult is the outcome of register, login, and refresh.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	User         *userdomain.User
}

// RegisterParams are the inputs to Register.
type RegisterParams struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// AuthService implements register, login, refresh, and logout. It is
// stateless; all dependencies are injected at construction.
type AuthService struct {
	users    UserRepo
	sessions SessionRepo
	hasher   *security.Hasher
	codec    *security.TokenCodec
	auditor  audit.Logger
}

// NewAuthService returns an AuthService with the given dependencies.
// auditor may be nil to disable audit logging.
func NewAuthService(users UserRepo, sessions SessionRepo, hasher *security.Hasher, codec *security.TokenCodec, auditor audit.Logger) *AuthService {
	if auditor == nil {
		auditor = audit.NopLogger{}
	}
	return &AuthService{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		codec:    codec,
		auditor:  auditor,
	}
}

// IssueTokens signs a fresh access/refresh pair for the user with a new random
// family id. It has no side effects on the session store; the caller persists
// the session row, which keeps issuance reusable across register, login, and
// refresh without duplicated persistence logic.
func (s *AuthService) IssueTokens(userID, email string) (*TokenPair, error) {
	familyID, err := security.NewFamilyID()
	if err != nil {
		return nil, fmt.Errorf("generate family id: %w", err)
	}
	accessToken, _, err := s.codec.IssueAccess(userID, email)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refreshToken, refreshExp, err := s.codec.IssueRefresh(userID, email, familyID)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	return &TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		FamilyID:         familyID,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Register creates the user, issues a token pair, and persists the session.
// Returns ErrEmailTaken when the email is already registered. A session
// insert failure fails the whole request: a credential pair must never exist
// without its session row.
func (s *AuthService) Register(ctx context.Context, p RegisterParams, dev Device) (*AuthResult, error) {
	ctx, span := tracer.Start(ctx, "auth.register", trace.WithAttributes(
		attribute.String("auth.email", p.Email),
	))
	defer span.End()

	email := strings.TrimSpace(strings.ToLower(p.Email))
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(p.Password); err != nil {
		return nil, err
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := s.hasher.Hash([]byte(p.Password))
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &userdomain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(p.FirstName),
		LastName:     strings.TrimSpace(p.LastName),
		Role:         userdomain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	result, err := s.issueAndPersist(ctx, user, dev)
	if err != nil {
		return nil, err
	}
	s.auditor.Log(ctx, user.ID, audit.ActionRegister, "user", user.ID)
	return result.AuthResult, nil
}

// Login verifies the credentials, issues a token pair, and persists a new
// session. Returns ErrInvalidCredentials for unknown email and wrong password
// alike.
func (s *AuthService) Login(ctx context.Context, email, password string, dev Device) (*AuthResult, error) {
	ctx, span := tracer.Start(ctx, "auth.login")
	defer span.End()

	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if user == nil {
		s.auditor.Log(ctx, "", audit.ActionLoginFailure, "user", email)
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(user.PasswordHash, []byte(password)); err != nil {
		s.auditor.Log(ctx, user.ID, audit.ActionLoginFailure, "user", user.ID)
		return nil, ErrInvalidCredentials
	}

	span.SetAttributes(attribute.String("auth.user_id", user.ID))

	result, err := s.issueAndPersist(ctx, user, dev)
	if err != nil {
		return nil, err
	}
	s.auditor.Log(ctx, user.ID, audit.ActionLogin, "session", result.familyID)
	return result.AuthResult, nil
}

// Refresh rotates the session identified by familyID: the old row is deleted
// and a replacement created in one atomic step, so redeeming a refresh token
// is exactly-once. userID and familyID come from the refresh guard's resolved
// identity.
func (s *AuthService) Refresh(ctx context.Context, userID, familyID string, dev Device) (*AuthResult, error) {
	ctx, span := tracer.Start(ctx, "auth.refresh", trace.WithAttributes(
		attribute.String("auth.user_id", userID),
	))
	defer span.End()

	if familyID == "" {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	pair, err := s.IssueTokens(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	next := newSessionRow(user.ID, pair, dev)
	if err := s.sessions.Rotate(ctx, familyID, next); err != nil {
		if errors.Is(err, sessionrepo.ErrFamilyNotFound) {
			// Already rotated or revoked; the presented token lost the race.
			s.auditor.Log(ctx, user.ID, audit.ActionRefreshReuse, "session", familyID)
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("rotate session: %w", err)
	}

	s.auditor.Log(ctx, user.ID, audit.ActionRefresh, "session", pair.FamilyID)
	return &AuthResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         user,
	}, nil
}

// Logout revokes one session when familyID is given, otherwise every session
// the user holds ("log out everywhere").
func (s *AuthService) Logout(ctx context.Context, userID, familyID string) error {
	ctx, span := tracer.Start(ctx, "auth.logout", trace.WithAttributes(
		attribute.String("auth.user_id", userID),
	))
	defer span.End()

	if familyID != "" {
		if err := s.sessions.DeleteByFamilyID(ctx, familyID); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		s.auditor.Log(ctx, userID, audit.ActionLogout, "session", familyID)
		return nil
	}
	if _, err := s.sessions.DeleteAllForUser(ctx, userID, ""); err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}
	s.auditor.Log(ctx, userID, audit.ActionLogout, "user", userID)
	return nil
}

// loginResult pairs the public AuthResult with the family id for auditing.
type loginResult struct {
	*AuthResult
	familyID string
}

func (s *AuthService) issueAndPersist(ctx context.Context, user *userdomain.User, dev Device) (*loginResult, error) {
	pair, err := s.IssueTokens(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Create(ctx, newSessionRow(user.ID, pair, dev)); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &loginResult{
		AuthResult: &AuthResult{
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
			User:         user,
		},
		familyID: pair.FamilyID,
	}, nil
}

func newSessionRow(userID string, pair *TokenPair, dev Device) *sessiondomain.Session {
	now := time.Now().UTC()
	return &sessiondomain.Session{
		ID:               uuid.New().String(),
		UserID:           userID,
		FamilyID:         pair.FamilyID,
		RefreshTokenHash: security.HashRefreshToken(pair.RefreshToken),
		UserAgent:        dev.UserAgent,
		IP:               dev.IP,
		ExpiresAt:        pair.RefreshExpiresAt,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required: %w", ErrInvalidInput)
	}
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("invalid email format: %w", ErrInvalidInput)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters: %w", ErrInvalidInput)
	}
	return nil
}
