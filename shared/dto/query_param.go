package dto

import (
	"net/http"
	"rental/shared/constant"
	"slices"
	"strconv"
	"strings"
)

const (
	SortDirAsc  = "ASC"
	SortDirDesc = "DESC"
)

type QueryParams struct {
	Page    int    `json:"page"`
	Limit   int    `json:"limit"`
	SortBy  string `json:"sort_by"`
	SortDir string `json:"sort_dir"`
}

// FromRequest reads paging and ordering from the query string. Page and limit fall back to
// their defaults and limit is capped; sort_by is kept only when it names one of sortable,
// since it ends up in the ORDER BY clause verbatim.
func (q *QueryParams) FromRequest(r *http.Request, sortable ...string) {
	query := r.URL.Query()

	q.Page = positiveInt(query.Get(constant.RequestParamPage), constant.DefaultValuePage)
	q.Limit = min(positiveInt(query.Get(constant.RequestParamLimit), constant.DefaultValueLimit), constant.MaxValueLimit)

	if sortBy := query.Get(constant.RequestParamSortBy); slices.Contains(sortable, sortBy) {
		q.SortBy = sortBy
		q.SortDir = SortDirAsc
	}

	if sortDir := strings.ToUpper(query.Get(constant.RequestParamSortDir)); q.SortBy != "" && (sortDir == SortDirAsc || sortDir == SortDirDesc) {
		q.SortDir = sortDir
	}
}

// Offset is the number of rows the current page skips.
func (q QueryParams) Offset() int {
	if q.Page < 1 || q.Limit < 1 {
		return 0
	}

	return (q.Page - 1) * q.Limit
}

func positiveInt(raw string, fallback int) int {
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}

	return value
}
