package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/FernandoVinha/TheManager/pkg/logger"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

// normalisePage clamps pagination input.
func normalisePage(page, perPage int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 || perPage > maxPageSize {
		perPage = defaultPageSize
	}
	return page, perPage
}

func trimPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}

// logSyncError reports a local failure of a post-commit reconciliation.
func logSyncError(op, id string, err error) {
	if err == nil {
		return
	}
	logger.WithModule("services").Warn("post-commit synchronisation failed",
		zap.String("op", op),
		zap.String("id", id),
		zap.Error(err),
	)
}
