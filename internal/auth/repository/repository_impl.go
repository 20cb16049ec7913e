package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/brushworks/repaintly/internal/auth/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type RepositoryParam struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type repository struct {
	db  *gorm.DB
	log *zap.Logger
}

func Provide(p RepositoryParam) domain.Repository {
	return &repository{
		db:  p.DB,
		log: p.Log.Named("auth.repository"),
	}
}

func (r *repository) Create(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).
		Where("lower(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
