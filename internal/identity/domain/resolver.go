// Package domain defines the identity resolution collaborator used by the
// lockout guard to map a login identifier onto a stable account id.
package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var ErrNotFound = errors.New("identity_not_found")

type Resolver interface {
	ResolveAccountID(ctx context.Context, identifier string) (snowflake.ID, error)
}
