package query

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Scope returns a GORM scope applying the filter as WHERE clauses.
func (f PropertyFilter) Scope() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if f.City != nil {
			pattern := "%" + likeEscaper.Replace(strings.ToLower(*f.City)) + "%"
			db = db.Where(`LOWER(city) LIKE ? ESCAPE '\'`, pattern)
		}
		if f.PropertyType != nil {
			db = db.Where("property_type = ?", *f.PropertyType)
		}
		if f.MinPrice != nil {
			db = db.Where("monthly_rent >= ?", *f.MinPrice)
		}
		if f.MaxPrice != nil {
			db = db.Where("monthly_rent <= ?", *f.MaxPrice)
		}
		if f.Bedrooms != nil {
			db = db.Where("bedrooms >= ?", *f.Bedrooms)
		}
		if f.Bathrooms != nil {
			db = db.Where("bathrooms >= ?", *f.Bathrooms)
		}
		if f.FurnishingStatus != nil {
			db = db.Where("furnishing_status = ?", *f.FurnishingStatus)
		}
		if f.AvailableFrom != nil {
			db = db.Where("available_from <= ?", *f.AvailableFrom)
		}
		if f.IsAvailable != nil {
			db = db.Where("is_available = ?", *f.IsAvailable)
		}
		if f.OwnerID != nil {
			db = db.Where("owner_id = ?", *f.OwnerID)
		}
		return db
	}
}

// OrderClause renders s as an ORDER BY expression. Only whitelisted keys
// reach SQL.
func (s Sort) OrderClause() string {
	field := s.Field
	if _, ok := sortKeys[field]; !ok {
		field = "created_at"
	}
	order := Desc
	if s.Order == Asc {
		order = Asc
	}
	if field == "id" {
		return fmt.Sprintf("id %s", order)
	}
	return fmt.Sprintf("%s %s, id %s", field, order, order)
}

// Paginate returns a GORM scope applying the page window of q.
func (q PropertyQuery) Paginate() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(q.Offset()).Limit(q.Limit)
	}
}
