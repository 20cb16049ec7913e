package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/brushworks/repaintly/internal/auth/domain"
	"github.com/brushworks/repaintly/internal/auth/password"
	lockoutdomain "github.com/brushworks/repaintly/internal/lockout/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const minPasswordLength = 8

type ServiceParam struct {
	fx.In

	Log     *zap.Logger
	Repo    domain.Repository
	Lockout lockoutdomain.Service
	GenID   *snowflake.Node
}

type Service struct {
	log     *zap.Logger
	repo    domain.Repository
	lockout lockoutdomain.Service
	genID   *snowflake.Node
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		log:     p.Log.Named("auth.service"),
		repo:    p.Repo,
		lockout: p.Lockout,
		genID:   p.GenID,
	}
}

func (s *Service) CreateUser(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if len(strings.TrimSpace(req.Password)) < minPasswordLength {
		return nil, domain.ErrInvalidCredentials
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           s.genID.Generate(),
		Email:        email,
		PasswordHash: &hashed,
		DisplayName:  displayName(req.DisplayName, email),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login consults the lockout guard before touching credentials and reports
// the attempt outcome to it exactly once.
func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if strings.TrimSpace(req.Password) == "" {
		return nil, domain.ErrInvalidCredentials
	}

	status, err := s.lockout.GetStatus(ctx, email)
	if err != nil {
		// Guard verdict unavailable: refuse to authenticate.
		return nil, err
	}
	if status.IsLocked {
		return nil, &domain.LockedError{Status: status}
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// Unknown accounts go through the same failure path; the guard
			// drops unresolved identifiers silently.
			if ferr := s.lockout.RecordFailure(ctx, email); ferr != nil {
				s.log.Warn("failure tracking unavailable", zap.Error(ferr))
			}
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if user.PasswordHash == nil || !password.Verify(req.Password, *user.PasswordHash) {
		if ferr := s.lockout.RecordFailure(ctx, email); ferr != nil {
			s.log.Warn("failure tracking unavailable", zap.Error(ferr))
		}
		return nil, domain.ErrInvalidCredentials
	}

	if err := s.lockout.RecordSuccess(ctx, email); err != nil {
		s.log.Warn("failure reset unavailable", zap.Error(err))
	}

	return &domain.LoginResult{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	}, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", err
	}
	return email, nil
}

func displayName(name, email string) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}
