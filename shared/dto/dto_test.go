package dto_test

import (
	"net/http"
	"net/url"
	"rental/shared/constant"
	"rental/shared/dto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryParams_FromRequest(t *testing.T) {
	defaults := dto.QueryParams{Page: constant.DefaultValuePage, Limit: constant.DefaultValueLimit}

	tests := []struct {
		name        string
		queryParams map[string]string
		expected    dto.QueryParams
	}{
		{
			name: "with all valid parameters",
			queryParams: map[string]string{
				"page":     "2",
				"limit":    "20",
				"sort_by":  "created_at",
				"sort_dir": "desc",
			},
			expected: dto.QueryParams{Page: 2, Limit: 20, SortBy: "created_at", SortDir: dto.SortDirDesc},
		},
		{
			name:        "with no parameters",
			queryParams: map[string]string{},
			expected:    defaults,
		},
		{
			name:        "with negative page parameter",
			queryParams: map[string]string{"page": "-1"},
			expected:    defaults,
		},
		{
			name:        "with invalid limit parameter",
			queryParams: map[string]string{"limit": "many"},
			expected:    defaults,
		},
		{
			name:        "with limit above the cap",
			queryParams: map[string]string{"limit": "100000"},
			expected:    dto.QueryParams{Page: constant.DefaultValuePage, Limit: constant.MaxValueLimit},
		},
		{
			name:        "with sort column outside the allowed set",
			queryParams: map[string]string{"sort_by": "1; DROP TABLE bookings", "sort_dir": "asc"},
			expected:    defaults,
		},
		{
			name:        "with unknown sort direction",
			queryParams: map[string]string{"sort_by": "created_at", "sort_dir": "sideways"},
			expected:    dto.QueryParams{Page: constant.DefaultValuePage, Limit: constant.DefaultValueLimit, SortBy: "created_at", SortDir: dto.SortDirAsc},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse("http://example.com/v1/bookings/b1/notifications")
			require.NoError(t, err)

			query := u.Query()
			for key, value := range tt.queryParams {
				query.Set(key, value)
			}

			u.RawQuery = query.Encode()

			req, err := http.NewRequest(http.MethodGet, u.String(), nil)
			require.NoError(t, err)

			queryParams := &dto.QueryParams{}
			queryParams.FromRequest(req, "created_at", "updated_at")

			assert.Equal(t, tt.expected, *queryParams)
		})
	}
}

func TestQueryParams_Offset(t *testing.T) {
	assert.Equal(t, 0, dto.QueryParams{}.Offset())
	assert.Equal(t, 0, dto.QueryParams{Page: 1, Limit: 10}.Offset())
	assert.Equal(t, 20, dto.QueryParams{Page: 3, Limit: 10}.Offset())
}

func TestFilter_GetWhereClause(t *testing.T) {
	tests := []struct {
		name      string
		filter    dto.Filter
		wantWhere string
		wantArgs  map[string]any
	}{
		{
			name:      "eq with table",
			filter:    dto.Filter{Field: "id", Value: "b1", Operator: dto.FilterOperatorEq, Table: "bookings"},
			wantWhere: "bookings.id = :id",
			wantArgs:  map[string]any{"id": "b1"},
		},
		{
			name:      "custom arg name",
			filter:    dto.Filter{ArgName: "expected_version", Field: "version", Value: int64(3), Operator: dto.FilterOperatorEq},
			wantWhere: "version = :expected_version",
			wantArgs:  map[string]any{"expected_version": int64(3)},
		},
		{
			name:      "in expands every element",
			filter:    dto.Filter{Field: "outcome", Value: []string{"success", "permanently_failed"}, Operator: dto.FilterOperatorIn},
			wantWhere: "outcome IN (:outcome_0, :outcome_1)",
			wantArgs:  map[string]any{"outcome_0": "success", "outcome_1": "permanently_failed"},
		},
		{
			name:      "less or equal",
			filter:    dto.Filter{Field: "lease_until", Value: "now", Operator: dto.FilterOperatorLessEq},
			wantWhere: "lease_until <= :lease_until",
			wantArgs:  map[string]any{"lease_until": "now"},
		},
		{
			name:      "is null",
			filter:    dto.Filter{Field: "verified_at", Operator: dto.FilterIsNull},
			wantWhere: "verified_at IS NULL",
			wantArgs:  map[string]any{},
		},
		{
			name:      "unknown operator",
			filter:    dto.Filter{Field: "id", Value: "x", Operator: "like"},
			wantWhere: "",
			wantArgs:  map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := tt.filter.GetWhereClause()

			assert.Equal(t, tt.wantWhere, where)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestFilterGroup_GetWhereClause(t *testing.T) {
	group := dto.FilterGroup{
		Filters: []any{
			dto.Filter{Field: "user_id", Value: "u1", Operator: dto.FilterOperatorEq},
			dto.Filter{Field: "id", Value: "b1", Operator: dto.FilterOperatorEq},
			dto.FilterGroup{
				Operator: dto.FilterGroupOperatorOr,
				Filters: []any{
					dto.Filter{Field: "outcome", Value: "pending", Operator: dto.FilterOperatorNotEq},
					dto.Filter{Field: "lease_until", Value: 10, Operator: dto.FilterOperatorLessEq},
				},
			},
			"ignored",
		},
	}

	where, args := group.GetWhereClause()

	assert.Equal(t, "(user_id = :user_id AND id = :id AND (outcome != :outcome OR lease_until <= :lease_until))", where)
	assert.Len(t, args, 4)

	empty := dto.FilterGroup{}
	where, args = empty.GetWhereClause()

	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestSortDirectionConstants(t *testing.T) {
	assert.Equal(t, "ASC", dto.SortDirAsc)
	assert.Equal(t, "DESC", dto.SortDirDesc)
}
