package models

import "time"

// Furnishing statuses.
const (
	FurnishingUnfurnished    = "unfurnished"
	FurnishingSemiFurnished  = "semi-furnished"
	FurnishingFullyFurnished = "fully-furnished"
)

const (
	PreferredTenantsAny = "any"
	PlaceholderImageURL = "/placeholder.svg"
	DateLayout          = "2006-01-02"
)

// Property represents a rental listing owned by a User.
type Property struct {
	ID                 uint     `json:"id" gorm:"primaryKey"`
	OwnerID            uint     `json:"owner_id" gorm:"not null;index"`
	Title              string   `json:"title" gorm:"type:varchar(255);not null"`
	Description        string   `json:"description" gorm:"type:text"`
	PropertyType       string   `json:"property_type" gorm:"type:varchar(50);not null;index"`
	Location           string   `json:"location" gorm:"type:varchar(255);not null"`
	City               string   `json:"city" gorm:"type:varchar(100);not null;index"`
	State              string   `json:"state" gorm:"type:varchar(100);not null"`
	Pincode            *string  `json:"pincode" gorm:"type:varchar(20)"`
	Latitude           *float64 `json:"latitude"`
	Longitude          *float64 `json:"longitude"`
	BuiltUpArea        float64  `json:"built_up_area" gorm:"not null"`
	CarpetArea         *float64 `json:"carpet_area"`
	Bedrooms           int      `json:"bedrooms" gorm:"not null"`
	Bathrooms          int      `json:"bathrooms" gorm:"not null"`
	FloorNumber        *int     `json:"floor_number"`
	TotalFloors        *int     `json:"total_floors"`
	Facing             *string  `json:"facing" gorm:"type:varchar(20)"`
	PropertyAge        *string  `json:"property_age" gorm:"type:varchar(50)"`
	FurnishingStatus   string   `json:"furnishing_status" gorm:"type:varchar(30);not null"`
	MonthlyRent        float64  `json:"monthly_rent" gorm:"not null;index"`
	SecurityDeposit    float64  `json:"security_deposit" gorm:"not null"`
	MaintenanceCharges float64  `json:"maintenance_charges"`
	PreferredTenants   string   `json:"preferred_tenants" gorm:"type:varchar(30)"`
	// AvailableFrom is a YYYY-MM-DD date kept as text so that string and
	// SQL comparisons agree.
	AvailableFrom string    `json:"available_from" gorm:"type:varchar(10);not null"`
	IsAvailable   bool      `json:"is_available" gorm:"index"`
	IsFeatured    bool      `json:"is_featured"`
	CreatedAt     time.Time `json:"created_at" gorm:"index"`
	UpdatedAt     time.Time `json:"updated_at"`

	Owner     *User           `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	Images    []PropertyImage `json:"images" gorm:"foreignKey:PropertyID;constraint:OnDelete:CASCADE"`
	Amenities []Amenity       `json:"amenities,omitempty" gorm:"many2many:property_amenities;constraint:OnDelete:CASCADE"`
}

// PropertyDetail is the single-item view of a property. Unlike list items it
// always carries the amenity list.
type PropertyDetail struct {
	*Property
	Amenities []Amenity `json:"amenities"`
}

// NewPropertyDetail wraps p for a single-item response.
func NewPropertyDetail(p *Property) PropertyDetail {
	amenities := p.Amenities
	if amenities == nil {
		amenities = []Amenity{}
	}
	return PropertyDetail{Property: p, Amenities: amenities}
}
