package repositories

import (
	"propverse/internal/models"
	"propverse/internal/query"
)

// UpdateOptions selects which child collections an Update rewrites. Children
// not selected are left untouched.
type UpdateOptions struct {
	ReplaceImages    bool
	ReplaceAmenities bool
}

// PropertyRepository defines the interface for property data access.
//
// List returns the requested page with Owner and Images populated plus the
// number of properties matching the filter. GetByID additionally populates
// Amenities.
type PropertyRepository interface {
	List(q query.PropertyQuery) ([]models.Property, int64, error)
	GetByID(id uint) (*models.Property, error)
	Create(property *models.Property) error
	Update(property *models.Property, opts UpdateOptions) error
	Delete(id uint) error
}

// AmenityRepository defines the interface for amenity data access.
type AmenityRepository interface {
	List() ([]models.Amenity, error)
	GetByIDs(ids []uint) ([]models.Amenity, error)
	Create(amenity *models.Amenity) error
}
