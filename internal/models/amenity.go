package models

// Amenity is a feature a property can offer (parking, lift, ...).
type Amenity struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	Name     string `json:"name" gorm:"type:varchar(100);uniqueIndex;not null"`
	Icon     string `json:"icon" gorm:"type:varchar(100)"`
	Category string `json:"category" gorm:"type:varchar(50)"`
}

// DefaultAmenities is the catalogue seeded into an empty store.
func DefaultAmenities() []Amenity {
	return []Amenity{
		{Name: "Parking", Icon: "car", Category: "basic"},
		{Name: "Lift", Icon: "arrow-up-down", Category: "basic"},
		{Name: "Power Backup", Icon: "zap", Category: "basic"},
		{Name: "Water Supply", Icon: "droplet", Category: "basic"},
		{Name: "Security", Icon: "shield", Category: "safety"},
		{Name: "CCTV", Icon: "cctv", Category: "safety"},
		{Name: "Gym", Icon: "dumbbell", Category: "lifestyle"},
		{Name: "Swimming Pool", Icon: "waves", Category: "lifestyle"},
		{Name: "Club House", Icon: "home", Category: "lifestyle"},
		{Name: "Wi-Fi", Icon: "wifi", Category: "lifestyle"},
	}
}
