package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"skillswap/internal/app/handlers/support"
	"skillswap/internal/app/uow"
	"skillswap/internal/domain/shared/errs"
	domainuser "skillswap/internal/domain/user"
)

var (
	ErrInvalidCredentials = fmt.Errorf("%w: auth: invalid credentials", errs.ErrUnauthenticated)
	ErrPasswordTooShort   = fmt.Errorf("%w: auth: password must be at least 8 characters", errs.ErrValidation)
	ErrUserBlocked        = fmt.Errorf("%w: auth: user blocked", errs.ErrForbidden)
	ErrTokenRequired      = fmt.Errorf("%w: auth: token required", errs.ErrUnauthenticated)
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenIssuer signs bearer tokens and verifies them back into claims.
type TokenIssuer interface {
	Issue(subject string, roles []string, ttl time.Duration) (string, time.Time, error)
	Subject(token string) (string, error)
}

type Service struct {
	UoWFactory     uow.UoWFactory
	Passwords      PasswordHasher
	Tokens         TokenIssuer
	TokenTTL       time.Duration
	AdminUsernames []string
	Clock          support.Clock
	Logger         *slog.Logger
}

type RegisterParams struct {
	Username string
	Email    string
	Password string
}

type LoginParams struct {
	Username string
	Password string
}

type AuthResult struct {
	User      *domainuser.User
	Token     string
	ExpiresAt time.Time
}

func (s *Service) Register(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	if err := s.validatePassword(params.Password); err != nil {
		return nil, err
	}
	hash, err := s.Passwords.Hash(params.Password)
	if err != nil {
		return nil, err
	}
	roles := []domainuser.Role{domainuser.RoleMember}
	if s.isAdmin(params.Username) {
		roles = append(roles, domainuser.RoleAdmin)
	}
	user, err := domainuser.NewUser(domainuser.CreateParams{
		ID:           domainuser.ID(uuid.NewString()),
		Username:     params.Username,
		Email:        params.Email,
		PasswordHash: hash,
		Roles:        roles,
		CreatedAt:    s.Clock.Now(),
	})
	if err != nil {
		return nil, err
	}

	unit, execCtx, release, err := uow.Begin(ctx, s.UoWFactory, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer release()
	if _, err := unit.Users().ByUsername(execCtx, user.Username); err == nil {
		return nil, domainuser.ErrUsernameTaken
	} else if !errors.Is(err, domainuser.ErrNotFound) {
		return nil, err
	}
	if err := unit.Users().Save(execCtx, user); err != nil {
		return nil, err
	}
	if err := unit.Commit(execCtx); err != nil {
		return nil, err
	}

	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("user registered", "user_id", user.ID, "username", user.Username, "roles", user.Roles)
	}
	return result, nil
}

func (s *Service) Login(ctx context.Context, params LoginParams) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	username := domainuser.NormalizeUsername(params.Username)
	if username == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.loadUser(ctx, func(ctx context.Context, repo domainuser.Repository) (*domainuser.User, error) {
		return repo.ByUsername(ctx, username)
	})
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if user.Banned {
		return nil, ErrUserBlocked
	}
	if err := s.Passwords.Compare(user.PasswordHash, params.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("user authenticated", "user_id", user.ID)
	}
	return result, nil
}

// ResolveToken verifies a bearer token and loads its user. Banned or deleted
// users are rejected even while their token is still valid.
func (s *Service) ResolveToken(ctx context.Context, token string) (*domainuser.User, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenRequired
	}
	subject, err := s.Tokens.Subject(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnauthenticated, err)
	}
	user, err := s.Me(ctx, subject)
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if user.Banned {
		return nil, ErrUserBlocked
	}
	return user, nil
}

func (s *Service) Me(ctx context.Context, userID string) (*domainuser.User, error) {
	return s.loadUser(ctx, func(ctx context.Context, repo domainuser.Repository) (*domainuser.User, error) {
		return repo.ByID(ctx, domainuser.ID(userID))
	})
}

func (s *Service) loadUser(ctx context.Context, find func(context.Context, domainuser.Repository) (*domainuser.User, error)) (*domainuser.User, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, s.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	return find(execCtx, unit.Users())
}

func (s *Service) issue(user *domainuser.User) (*AuthResult, error) {
	roles := make([]string, 0, len(user.Roles))
	for _, r := range user.Roles {
		roles = append(roles, string(r))
	}
	token, exp, err := s.Tokens.Issue(string(user.ID), roles, s.tokenTTL())
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: exp}, nil
}

func (s *Service) isAdmin(username string) bool {
	name := domainuser.NormalizeUsername(username)
	for _, admin := range s.AdminUsernames {
		if domainuser.NormalizeUsername(admin) == name {
			return true
		}
	}
	return false
}

func (s *Service) validatePassword(password string) error {
	if utf8.RuneCountInString(password) < 8 {
		return ErrPasswordTooShort
	}
	return nil
}

func (s *Service) tokenTTL() time.Duration {
	if s.TokenTTL > 0 {
		return s.TokenTTL
	}
	return 24 * time.Hour
}

func (s *Service) ensureDependencies() error {
	switch {
	case s == nil:
		return errors.New("auth: service not configured")
	case s.UoWFactory == nil:
		return errors.New("auth: unit of work factory required")
	case s.Passwords == nil:
		return errors.New("auth: password hasher required")
	case s.Tokens == nil:
		return errors.New("auth: token issuer required")
	default:
		return nil
	}
}
