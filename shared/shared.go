package shared

import (
	"context"
	"math"
	"rental/shared/cache"
	"rental/shared/constant"
	"rental/shared/dto"
	"rental/shared/failure"
	"strings"

	"github.com/rs/zerolog/log"
)

const cacheKeySeparator = ":"

func CalculateTotalPage(total, limit int) (res int) {
	if total == 0 || limit <= 0 {
		res = 1
	} else {
		res = int(math.Ceil(float64(total) / float64(limit)))
	}

	return res
}

// BuildCacheKey joins a cache prefix with the parts that identify one entry.
func BuildCacheKey(prefix string, parts ...string) string {
	return strings.Join(append([]string{prefix}, parts...), cacheKeySeparator)
}

// InvalidateCaches drops the given keys, logging instead of failing on cache errors.
func InvalidateCaches(ctx context.Context, redisCache cache.RedisCache, keys ...string) {
	for _, key := range keys {
		if err := redisCache.Delete(ctx, key); err != nil {
			log.Warn().Err(err).Str("cacheKey", key).Msg("failed to invalidate cache")
		}
	}
}

func FilterByID(id, fieldID, table string) dto.FilterGroup {
	return dto.FilterGroup{
		Filters: []any{
			dto.Filter{
				Field:    fieldID,
				Value:    id,
				Operator: dto.FilterOperatorEq,
				Table:    table,
			},
		},
	}
}

// FilterByOwner scopes a lookup to one document owned by userID.
func FilterByOwner(userID, fieldUserID, id, fieldID, table string) dto.FilterGroup {
	return dto.FilterGroup{
		Operator: dto.FilterGroupOperatorAnd,
		Filters: []any{
			dto.Filter{
				Field:    fieldUserID,
				Value:    userID,
				Operator: dto.FilterOperatorEq,
				Table:    table,
			},
			dto.Filter{
				Field:    fieldID,
				Value:    id,
				Operator: dto.FilterOperatorEq,
				Table:    table,
			},
		},
	}
}

// UserFromContext returns the authenticated user id the auth middleware stored in ctx.
func UserFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(constant.ContextKeyUserID).(string)
	if !ok || strings.TrimSpace(userID) == "" {
		return "", failure.Unauthorized("Missing authenticated user") //nolint:wrapcheck
	}

	return userID, nil
}
