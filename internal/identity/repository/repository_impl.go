package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/brushworks/repaintly/internal/identity/domain"
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

func Provide(p RepositoryParam) domain.Resolver {
	return &repository{
		db:  p.DB,
		log: p.Log.Named("identity.repository"),
	}
}

func (r *repository) ResolveAccountID(ctx context.Context, identifier string) (snowflake.ID, error) {
	email := strings.ToLower(strings.TrimSpace(identifier))
	if email == "" {
		return 0, domain.ErrNotFound
	}

	var row struct {
		ID snowflake.ID
	}
	res := r.db.WithContext(ctx).
		Raw(`SELECT id FROM users WHERE lower(email) = ? LIMIT 1`, email).
		Scan(&row)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 || row.ID == 0 {
		return 0, domain.ErrNotFound
	}
	return row.ID, nil
}
