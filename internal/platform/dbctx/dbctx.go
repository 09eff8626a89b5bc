package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional GORM transaction.
// Repos fall back to their own handle when Tx is nil, so callers opt into
// transactions without changing call shapes.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}
