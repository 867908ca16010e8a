package repositories

import (
	"errors"
	"fmt"

	"propverse/internal/models"
	"propverse/internal/query"

	"gorm.io/gorm"
)

// GORMPropertyRepository is a GORM implementation of PropertyRepository.
type GORMPropertyRepository struct {
	db *gorm.DB
}

// NewGORMPropertyRepository creates a new instance of GORMPropertyRepository.
func NewGORMPropertyRepository(db *gorm.DB) *GORMPropertyRepository {
	return &GORMPropertyRepository{
		db: db,
	}
}

func orderedImages(db *gorm.DB) *gorm.DB {
	return db.Order("image_order ASC, id ASC")
}

// List retrieves one page of properties matching q.
func (r *GORMPropertyRepository) List(q query.PropertyQuery) ([]models.Property, int64, error) {
	var total int64
	if err := r.db.Model(&models.Property{}).Scopes(q.Filter.Scope()).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count properties: %w", err)
	}

	properties := []models.Property{}
	if q.PastEnd(total) {
		return properties, total, nil
	}
	err := r.db.
		Scopes(q.Filter.Scope(), q.Paginate()).
		Preload("Owner").
		Preload("Images", orderedImages).
		Order(q.Sort.OrderClause()).
		Find(&properties).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list properties: %w", err)
	}
	return properties, total, nil
}

// GetByID retrieves a property with its owner, images and amenities.
func (r *GORMPropertyRepository) GetByID(id uint) (*models.Property, error) {
	var property models.Property
	err := r.db.
		Preload("Owner").
		Preload("Images", orderedImages).
		Preload("Amenities", func(db *gorm.DB) *gorm.DB { return db.Order("amenities.id ASC") }).
		First(&property, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("property with ID %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get property by ID %d: %w", id, err)
	}
	return &property, nil
}

// Create inserts the property, its images and its amenity links in one
// transaction.
func (r *GORMPropertyRepository) Create(property *models.Property) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Owner", "Images", "Amenities").Create(property).Error; err != nil {
			return err
		}
		if err := replaceImages(tx, property); err != nil {
			return err
		}
		return replaceAmenities(tx, property)
	})
	if err != nil {
		return fmt.Errorf("failed to create property: %w", err)
	}
	return nil
}

// Update writes every scalar column of property and, as selected by opts,
// replaces its images and amenity links.
func (r *GORMPropertyRepository) Update(property *models.Property, opts UpdateOptions) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(property).
			Select("*").
			Omit("CreatedAt", "Owner", "Images", "Amenities").
			Updates(property)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("property with ID %d: %w", property.ID, ErrNotFound)
		}
		if opts.ReplaceImages {
			if err := tx.Where("property_id = ?", property.ID).Delete(&models.PropertyImage{}).Error; err != nil {
				return err
			}
			if err := replaceImages(tx, property); err != nil {
				return err
			}
		}
		if opts.ReplaceAmenities {
			return replaceAmenities(tx, property)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update property: %w", err)
	}
	return nil
}

// Delete removes the property together with its images and amenity links.
func (r *GORMPropertyRepository) Delete(id uint) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var property models.Property
		if err := tx.First(&property, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("property with ID %d: %w", id, ErrNotFound)
			}
			return err
		}
		return tx.Select("Images", "Amenities").Delete(&property).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete property: %w", err)
	}
	return nil
}

func replaceImages(tx *gorm.DB, property *models.Property) error {
	if len(property.Images) == 0 {
		return nil
	}
	for i := range property.Images {
		property.Images[i].ID = 0
		property.Images[i].PropertyID = property.ID
	}
	return tx.Create(&property.Images).Error
}

func replaceAmenities(tx *gorm.DB, property *models.Property) error {
	association := tx.Model(property).Association("Amenities")
	if len(property.Amenities) == 0 {
		return association.Clear()
	}
	return association.Replace(property.Amenities)
}

// GORMAmenityRepository is a GORM implementation of AmenityRepository.
type GORMAmenityRepository struct {
	db *gorm.DB
}

// NewGORMAmenityRepository creates a new instance of GORMAmenityRepository.
func NewGORMAmenityRepository(db *gorm.DB) *GORMAmenityRepository {
	return &GORMAmenityRepository{
		db: db,
	}
}

// List retrieves all amenities ordered by ID.
func (r *GORMAmenityRepository) List() ([]models.Amenity, error) {
	amenities := []models.Amenity{}
	if err := r.db.Order("id ASC").Find(&amenities).Error; err != nil {
		return nil, fmt.Errorf("failed to list amenities: %w", err)
	}
	return amenities, nil
}

// GetByIDs retrieves the amenities whose IDs are in ids. Unknown IDs are
// silently absent from the result.
func (r *GORMAmenityRepository) GetByIDs(ids []uint) ([]models.Amenity, error) {
	amenities := []models.Amenity{}
	if len(ids) == 0 {
		return amenities, nil
	}
	if err := r.db.Where("id IN ?", ids).Order("id ASC").Find(&amenities).Error; err != nil {
		return nil, fmt.Errorf("failed to get amenities: %w", err)
	}
	return amenities, nil
}

// Create creates a new amenity in the database.
func (r *GORMAmenityRepository) Create(amenity *models.Amenity) error {
	if err := r.db.Create(amenity).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("failed to create amenity: %w", ErrConflict)
		}
		return fmt.Errorf("failed to create amenity: %w", err)
	}
	return nil
}
