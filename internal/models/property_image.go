package models

// PropertyImage is one picture of a property. Exactly one image per
// property is the cover; ImageOrder gives the ascending display order.
type PropertyImage struct {
	ID           uint   `json:"id" gorm:"primaryKey"`
	PropertyID   uint   `json:"property_id" gorm:"not null;index"`
	ImageURL     string `json:"image_url" gorm:"type:text;not null"`
	IsCoverImage bool   `json:"is_cover_image"`
	ImageOrder   int    `json:"image_order" gorm:"not null;default:0"`
}

// BuildImages turns image URLs into ordered images with the first as cover.
// An empty list yields a single placeholder cover image.
func BuildImages(urls []string) []PropertyImage {
	if len(urls) == 0 {
		urls = []string{PlaceholderImageURL}
	}
	images := make([]PropertyImage, len(urls))
	for i, url := range urls {
		images[i] = PropertyImage{
			ImageURL:     url,
			IsCoverImage: i == 0,
			ImageOrder:   i,
		}
	}
	return images
}
