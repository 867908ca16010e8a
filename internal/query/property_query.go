// Package query turns listing request parameters into a validated
// PropertyQuery and evaluates it either in memory or as GORM clauses.
package query

import (
	"math"
	"strconv"
	"strings"
	"time"

	"propverse/internal/apperr"
	"propverse/internal/models"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// SortOrder is the sort direction.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// PropertyFilter holds the optional listing filters. A nil field imposes no
// constraint.
type PropertyFilter struct {
	City             *string
	PropertyType     *string
	MinPrice         *float64
	MaxPrice         *float64
	Bedrooms         *int
	Bathrooms        *int
	FurnishingStatus *string
	AvailableFrom    *string
	IsAvailable      *bool
	OwnerID          *uint
}

// Sort is a single sort key and direction.
type Sort struct {
	Field string
	Order SortOrder
}

// PropertyQuery is a fully validated listing request.
type PropertyQuery struct {
	Filter PropertyFilter
	Sort   Sort
	Page   int
	Limit  int
}

// DefaultQuery returns the unfiltered first page sorted newest first.
func DefaultQuery() PropertyQuery {
	return PropertyQuery{
		Sort:  Sort{Field: "created_at", Order: Desc},
		Page:  DefaultPage,
		Limit: DefaultLimit,
	}
}

// Offset is the number of rows preceding the requested page. It saturates
// at math.MaxInt instead of overflowing for very large pages.
func (q PropertyQuery) Offset() int {
	if q.Page <= 1 || q.Limit <= 0 {
		return 0
	}
	if q.Page-1 > math.MaxInt/q.Limit {
		return math.MaxInt
	}
	return (q.Page - 1) * q.Limit
}

// PastEnd reports whether the requested page starts after the last of total
// matching rows.
func (q PropertyQuery) PastEnd(total int64) bool {
	return uint64(q.Offset()) >= uint64(total)
}

// ParseListParams validates raw query parameters. Empty values count as
// absent. Unknown sort keys fall back to created_at and unknown directions
// to descending; malformed numbers, dates and booleans are reported per
// field. A limit above MaxLimit is clamped to MaxLimit.
func ParseListParams(params map[string]string) (PropertyQuery, error) {
	q := DefaultQuery()
	errs := make(map[string]string)
	get := func(key string) (string, bool) {
		v := strings.TrimSpace(params[key])
		return v, v != ""
	}

	if v, ok := get("city"); ok {
		q.Filter.City = &v
	}
	if v, ok := get("property_type"); ok {
		q.Filter.PropertyType = &v
	}
	if v, ok := get("furnishing_status"); ok {
		q.Filter.FurnishingStatus = &v
	}
	if v, ok := get("min_price"); ok {
		if f, err := parseAmount(v); err != nil {
			errs["min_price"] = "min_price must be a non-negative number"
		} else {
			q.Filter.MinPrice = &f
		}
	}
	if v, ok := get("max_price"); ok {
		if f, err := parseAmount(v); err != nil {
			errs["max_price"] = "max_price must be a non-negative number"
		} else {
			q.Filter.MaxPrice = &f
		}
	}
	if v, ok := get("bedrooms"); ok {
		if n, err := parseCount(v); err != nil {
			errs["bedrooms"] = "bedrooms must be a non-negative integer"
		} else {
			q.Filter.Bedrooms = &n
		}
	}
	if v, ok := get("bathrooms"); ok {
		if n, err := parseCount(v); err != nil {
			errs["bathrooms"] = "bathrooms must be a non-negative integer"
		} else {
			q.Filter.Bathrooms = &n
		}
	}
	if v, ok := get("available_from"); ok {
		if _, err := time.Parse(models.DateLayout, v); err != nil {
			errs["available_from"] = "available_from must be a date in YYYY-MM-DD format"
		} else {
			q.Filter.AvailableFrom = &v
		}
	}
	if v, ok := get("is_available"); ok {
		if b, err := strconv.ParseBool(v); err != nil {
			errs["is_available"] = "is_available must be true or false"
		} else {
			q.Filter.IsAvailable = &b
		}
	}
	if v, ok := get("owner_id"); ok {
		if id, err := strconv.ParseUint(v, 10, 32); err != nil || id == 0 {
			errs["owner_id"] = "owner_id must be a positive integer"
		} else {
			owner := uint(id)
			q.Filter.OwnerID = &owner
		}
	}

	if v, ok := get("sort_by"); ok {
		if _, known := sortKeys[strings.ToLower(v)]; known {
			q.Sort.Field = strings.ToLower(v)
		}
	}
	if v, ok := get("sort_order"); ok && strings.EqualFold(v, string(Asc)) {
		q.Sort.Order = Asc
	}

	if v, ok := get("page"); ok {
		if n, err := strconv.Atoi(v); err != nil || n < 1 {
			errs["page"] = "page must be a positive integer"
		} else {
			q.Page = n
		}
	}
	if v, ok := get("limit"); ok {
		if n, err := strconv.Atoi(v); err != nil || n < 1 {
			errs["limit"] = "limit must be a positive integer"
		} else {
			q.Limit = min(n, MaxLimit)
		}
	}

	if len(errs) > 0 {
		return PropertyQuery{}, apperr.Validation("Invalid query parameters", errs)
	}
	return q, nil
}

func parseAmount(v string) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, strconv.ErrRange
	}
	return f, nil
}

func parseCount(v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}
