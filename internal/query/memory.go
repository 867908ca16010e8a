package query

import (
	"cmp"
	"slices"
	"strings"

	"propverse/internal/models"
)

// sortKeys holds the sortable keys, each named after its column, with an
// in-memory comparator.
var sortKeys = map[string]func(a, b *models.Property) int{
	"created_at": func(a, b *models.Property) int { return a.CreatedAt.Compare(b.CreatedAt) },
	"updated_at": func(a, b *models.Property) int { return a.UpdatedAt.Compare(b.UpdatedAt) },
	"monthly_rent": func(a, b *models.Property) int {
		return cmp.Compare(a.MonthlyRent, b.MonthlyRent)
	},
	"security_deposit": func(a, b *models.Property) int {
		return cmp.Compare(a.SecurityDeposit, b.SecurityDeposit)
	},
	"built_up_area":  func(a, b *models.Property) int { return cmp.Compare(a.BuiltUpArea, b.BuiltUpArea) },
	"bedrooms":       func(a, b *models.Property) int { return cmp.Compare(a.Bedrooms, b.Bedrooms) },
	"bathrooms":      func(a, b *models.Property) int { return cmp.Compare(a.Bathrooms, b.Bathrooms) },
	"available_from": func(a, b *models.Property) int { return cmp.Compare(a.AvailableFrom, b.AvailableFrom) },
	"title":          func(a, b *models.Property) int { return cmp.Compare(a.Title, b.Title) },
	"id":             func(a, b *models.Property) int { return cmp.Compare(a.ID, b.ID) },
}

// Matches reports whether p satisfies every present filter.
func (f PropertyFilter) Matches(p *models.Property) bool {
	if f.City != nil && !strings.Contains(strings.ToLower(p.City), strings.ToLower(*f.City)) {
		return false
	}
	if f.PropertyType != nil && p.PropertyType != *f.PropertyType {
		return false
	}
	if f.MinPrice != nil && p.MonthlyRent < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.MonthlyRent > *f.MaxPrice {
		return false
	}
	if f.Bedrooms != nil && p.Bedrooms < *f.Bedrooms {
		return false
	}
	if f.Bathrooms != nil && p.Bathrooms < *f.Bathrooms {
		return false
	}
	if f.FurnishingStatus != nil && p.FurnishingStatus != *f.FurnishingStatus {
		return false
	}
	if f.AvailableFrom != nil && p.AvailableFrom > *f.AvailableFrom {
		return false
	}
	if f.IsAvailable != nil && p.IsAvailable != *f.IsAvailable {
		return false
	}
	if f.OwnerID != nil && p.OwnerID != *f.OwnerID {
		return false
	}
	return true
}

// Compare orders a before b under s. Ties on the sort key fall back to the
// id in the same direction.
func (s Sort) Compare(a, b *models.Property) int {
	byKey, ok := sortKeys[s.Field]
	if !ok {
		byKey = sortKeys["created_at"]
	}
	c := byKey(a, b)
	if c == 0 {
		c = cmp.Compare(a.ID, b.ID)
	}
	if s.Order == Asc {
		return c
	}
	return -c
}

// Apply filters, sorts and paginates properties. It returns the requested
// page and the number of properties matching the filter.
func Apply(properties []models.Property, q PropertyQuery) ([]models.Property, int64) {
	matched := make([]models.Property, 0, len(properties))
	for i := range properties {
		if q.Filter.Matches(&properties[i]) {
			matched = append(matched, properties[i])
		}
	}
	slices.SortStableFunc(matched, func(a, b models.Property) int {
		return q.Sort.Compare(&a, &b)
	})

	total := int64(len(matched))
	if q.PastEnd(total) {
		return []models.Property{}, total
	}
	start := q.Offset()
	end := start + min(q.Limit, len(matched)-start)
	return matched[start:end], total
}
