package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"padicrib/internal/app/uow"
	domainuser "padicrib/internal/domain/user"
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrPasswordTooShort   = errors.New("auth: password must be at least 8 characters")
	ErrTokenRequired      = errors.New("auth: token required")
	ErrInvalidToken       = errors.New("auth: invalid or expired token")
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenIssuer signs and verifies stateless session tokens.
type TokenIssuer interface {
	Issue(user *domainuser.User, now time.Time) (string, time.Time, error)
	Parse(token string) (domainuser.ID, error)
}

type Service struct {
	UoW       uow.UoWFactory
	Passwords PasswordHasher
	Tokens    TokenIssuer
	Logger    *slog.Logger
	Now       func() time.Time
}

type RegisterParams struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

type LoginParams struct {
	Email    string
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
	if err := validatePassword(params.Password); err != nil {
		return nil, err
	}
	hash, err := s.Passwords.Hash(params.Password)
	if err != nil {
		return nil, err
	}
	user, err := domainuser.NewUser(domainuser.CreateParams{
		Name:         params.Name,
		Email:        params.Email,
		Phone:        params.Phone,
		PasswordHash: hash,
		Role:         domainuser.RoleUser,
		Now:          s.now(),
	})
	if err != nil {
		return nil, err
	}
	err = s.withUnit(ctx, false, func(unit uow.UnitOfWork) error {
		if existing, err := unit.Users().ByEmail(ctx, user.Email); err == nil && existing != nil {
			return domainuser.ErrEmailAlreadyUsed
		} else if err != nil && !errors.Is(err, domainuser.ErrNotFound) {
			return err
		}
		return unit.Users().Create(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	token, exp, err := s.Tokens.Issue(user, s.now())
	if err != nil {
		return nil, err
	}
	s.logger().Info("user registered", "user_id", user.ID, "email", user.Email)
	return &AuthResult{User: user, Token: token, ExpiresAt: exp}, nil
}

func (s *Service) Login(ctx context.Context, params LoginParams) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	email := domainuser.NormalizeEmail(params.Email)
	if email == "" {
		return nil, ErrInvalidCredentials
	}
	var user *domainuser.User
	err := s.withUnit(ctx, true, func(unit uow.UnitOfWork) error {
		found, err := unit.Users().ByEmail(ctx, email)
		if err != nil {
			return err
		}
		user = found
		return nil
	})
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.Passwords.Compare(user.PasswordHash, params.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := s.refreshSuspension(ctx, user); err != nil {
		return nil, err
	}
	token, exp, err := s.Tokens.Issue(user, s.now())
	if err != nil {
		return nil, err
	}
	s.logger().Info("user authenticated", "user_id", user.ID)
	return &AuthResult{User: user, Token: token, ExpiresAt: exp}, nil
}

// ResolveToken loads the caller behind a token. Timed suspensions that have
// run out are lifted here; active suspensions yield domainuser.ErrSuspended.
func (s *Service) ResolveToken(ctx context.Context, token string) (*domainuser.User, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenRequired
	}
	id, err := s.Tokens.Parse(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	var user *domainuser.User
	err = s.withUnit(ctx, true, func(unit uow.UnitOfWork) error {
		found, err := unit.Users().ByID(ctx, id)
		if err != nil {
			return err
		}
		user = found
		return nil
	})
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if err := s.refreshSuspension(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) refreshSuspension(ctx context.Context, user *domainuser.User) error {
	changed, suspended := user.RefreshSuspension(s.now())
	if changed {
		err := s.withUnit(ctx, false, func(unit uow.UnitOfWork) error {
			return unit.Users().Save(ctx, user)
		})
		if err != nil {
			return err
		}
		s.logger().Info("suspension lifted", "user_id", user.ID)
	}
	if suspended {
		return domainuser.ErrSuspended
	}
	return nil
}

func (s *Service) withUnit(ctx context.Context, readOnly bool, fn func(uow.UnitOfWork) error) error {
	unit, err := s.UoW.Begin(ctx, uow.TxOptions{ReadOnly: readOnly})
	if err != nil {
		return err
	}
	if err := fn(unit); err != nil {
		_ = unit.Rollback(ctx)
		return err
	}
	if readOnly {
		return unit.Rollback(ctx)
	}
	return unit.Commit(ctx)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < 8 {
		return ErrPasswordTooShort
	}
	return nil
}

func (s *Service) ensureDependencies() error {
	switch {
	case s.UoW == nil:
		return errors.New("auth: unit of work factory required")
	case s.Passwords == nil:
		return errors.New("auth: password hasher required")
	case s.Tokens == nil:
		return errors.New("auth: token issuer required")
	default:
		return nil
	}
}
