package repositories

import (
	"errors"
	"fmt"
	"slices"

	"propverse/internal/docstore"
	"propverse/internal/models"
	"propverse/internal/query"
)

// DocPropertyRepository is a document store implementation of
// PropertyRepository. A property spans three collections (properties,
// property_images and property_amenities) and the store has no cross
// collection transactions, so Create undoes its own partial writes on
// failure.
type DocPropertyRepository struct {
	store *docstore.Store
}

// NewDocPropertyRepository creates a new instance of DocPropertyRepository.
func NewDocPropertyRepository(store *docstore.Store) *DocPropertyRepository {
	return &DocPropertyRepository{
		store: store,
	}
}

// List evaluates q over the whole collection and hydrates the requested page.
func (r *DocPropertyRepository) List(q query.PropertyQuery) ([]models.Property, int64, error) {
	records, err := r.store.GetAll(PropertiesCollection)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list properties: %w", err)
	}
	all := make([]models.Property, 0, len(records))
	for _, record := range records {
		var p models.Property
		if err := docstore.Decode(record, &p); err != nil {
			return nil, 0, fmt.Errorf("failed to list properties: %w", err)
		}
		all = append(all, p)
	}

	page, total := query.Apply(all, q)
	if len(page) == 0 {
		return page, total, nil
	}

	owners, err := r.usersByID()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list properties: %w", err)
	}
	images, err := r.imagesByProperty(nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list properties: %w", err)
	}
	for i := range page {
		page[i].Owner = owners[page[i].OwnerID]
		page[i].Images = orEmpty(images[page[i].ID])
	}
	return page, total, nil
}

// GetByID retrieves a property with its owner, images and amenities.
func (r *DocPropertyRepository) GetByID(id uint) (*models.Property, error) {
	record, err := r.store.GetByID(PropertiesCollection, int64(id))
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, fmt.Errorf("property with ID %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get property by ID %d: %w", id, err)
	}
	var p models.Property
	if err := docstore.Decode(record, &p); err != nil {
		return nil, fmt.Errorf("failed to get property by ID %d: %w", id, err)
	}

	owner, err := r.store.GetByID(UsersCollection, int64(p.OwnerID))
	switch {
	case err == nil:
		if p.Owner, err = userFromRecord(owner); err != nil {
			return nil, fmt.Errorf("failed to get property by ID %d: %w", id, err)
		}
	case !errors.Is(err, docstore.ErrNotFound):
		return nil, fmt.Errorf("failed to get property by ID %d: %w", id, err)
	}

	images, err := r.imagesByProperty(&p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get property by ID %d: %w", id, err)
	}
	p.Images = orEmpty(images[p.ID])

	if p.Amenities, err = r.amenitiesOf(p.ID); err != nil {
		return nil, fmt.Errorf("failed to get property by ID %d: %w", id, err)
	}
	return &p, nil
}

// Create stores the property, then its images and amenity links.
func (r *DocPropertyRepository) Create(property *models.Property) error {
	record, err := propertyRecord(property)
	if err != nil {
		return fmt.Errorf("failed to create property: %w", err)
	}
	stored, err := r.store.Insert(PropertiesCollection, record)
	if err != nil {
		return fmt.Errorf("failed to create property: %w", err)
	}
	if err := r.refresh(property, stored); err != nil {
		return fmt.Errorf("failed to create property: %w", err)
	}

	if err := r.writeChildren(property, true, true); err != nil {
		r.removeAll(property.ID)
		return fmt.Errorf("failed to create property: %w", err)
	}
	return nil
}

// Update merges the scalar fields of property into the stored record and, as
// selected by opts, replaces its images and amenity links.
func (r *DocPropertyRepository) Update(property *models.Property, opts UpdateOptions) error {
	record, err := propertyRecord(property)
	if err != nil {
		return fmt.Errorf("failed to update property: %w", err)
	}
	stored, err := r.store.Update(PropertiesCollection, int64(property.ID), record)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return fmt.Errorf("property with ID %d: %w", property.ID, ErrNotFound)
		}
		return fmt.Errorf("failed to update property: %w", err)
	}
	if err := r.refresh(property, stored); err != nil {
		return fmt.Errorf("failed to update property: %w", err)
	}

	if opts.ReplaceImages {
		if _, err := r.store.DeleteWhere(PropertyImagesCollection, belongsTo(property.ID)); err != nil {
			return fmt.Errorf("failed to update property images: %w", err)
		}
	}
	if opts.ReplaceAmenities {
		if _, err := r.store.DeleteWhere(PropertyAmenitiesCollection, belongsTo(property.ID)); err != nil {
			return fmt.Errorf("failed to update property amenities: %w", err)
		}
	}
	if err := r.writeChildren(property, opts.ReplaceImages, opts.ReplaceAmenities); err != nil {
		return fmt.Errorf("failed to update property: %w", err)
	}
	return nil
}

// Delete removes the property together with its images and amenity links.
func (r *DocPropertyRepository) Delete(id uint) error {
	if err := r.store.Delete(PropertiesCollection, int64(id)); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return fmt.Errorf("property with ID %d: %w", id, ErrNotFound)
		}
		return fmt.Errorf("failed to delete property: %w", err)
	}
	if _, err := r.store.DeleteWhere(PropertyImagesCollection, belongsTo(id)); err != nil {
		return fmt.Errorf("failed to delete property images: %w", err)
	}
	if _, err := r.store.DeleteWhere(PropertyAmenitiesCollection, belongsTo(id)); err != nil {
		return fmt.Errorf("failed to delete property amenities: %w", err)
	}
	return nil
}

func (r *DocPropertyRepository) writeChildren(property *models.Property, images, amenities bool) error {
	if images {
		for i := range property.Images {
			img := &property.Images[i]
			img.PropertyID = property.ID
			rec, err := docstore.Encode(img)
			if err != nil {
				return err
			}
			stored, err := r.store.Insert(PropertyImagesCollection, rec)
			if err != nil {
				return err
			}
			id, _ := stored.ID()
			img.ID = uint(id)
		}
	}
	if amenities {
		for _, a := range property.Amenities {
			link := docstore.Record{"property_id": property.ID, "amenity_id": a.ID}
			if _, err := r.store.Insert(PropertyAmenitiesCollection, link); err != nil {
				return err
			}
		}
	}
	return nil
}

// removeAll is the best-effort undo of a failed Create.
func (r *DocPropertyRepository) removeAll(id uint) {
	_ = r.store.Delete(PropertiesCollection, int64(id))
	_, _ = r.store.DeleteWhere(PropertyImagesCollection, belongsTo(id))
	_, _ = r.store.DeleteWhere(PropertyAmenitiesCollection, belongsTo(id))
}

// refresh copies the store-owned fields of stored back into property.
func (r *DocPropertyRepository) refresh(property *models.Property, stored docstore.Record) error {
	var saved models.Property
	if err := docstore.Decode(stored, &saved); err != nil {
		return err
	}
	property.ID = saved.ID
	property.CreatedAt = saved.CreatedAt
	property.UpdatedAt = saved.UpdatedAt
	return nil
}

func (r *DocPropertyRepository) usersByID() (map[uint]*models.User, error) {
	records, err := r.store.GetAll(UsersCollection)
	if err != nil {
		return nil, err
	}
	users := make(map[uint]*models.User, len(records))
	for _, record := range records {
		u, err := userFromRecord(record)
		if err != nil {
			return nil, err
		}
		users[u.ID] = u
	}
	return users, nil
}

// imagesByProperty groups images by property in display order. A non-nil
// only restricts the result to that property.
func (r *DocPropertyRepository) imagesByProperty(only *uint) (map[uint][]models.PropertyImage, error) {
	pred := func(docstore.Record) bool { return true }
	if only != nil {
		pred = belongsTo(*only)
	}
	records, err := r.store.FindWhere(PropertyImagesCollection, pred)
	if err != nil {
		return nil, err
	}
	grouped := make(map[uint][]models.PropertyImage)
	for _, record := range records {
		var img models.PropertyImage
		if err := docstore.Decode(record, &img); err != nil {
			return nil, err
		}
		grouped[img.PropertyID] = append(grouped[img.PropertyID], img)
	}
	for _, images := range grouped {
		slices.SortStableFunc(images, func(a, b models.PropertyImage) int {
			if a.ImageOrder != b.ImageOrder {
				return a.ImageOrder - b.ImageOrder
			}
			return int(a.ID) - int(b.ID)
		})
	}
	return grouped, nil
}

func (r *DocPropertyRepository) amenitiesOf(propertyID uint) ([]models.Amenity, error) {
	links, err := r.store.FindWhere(PropertyAmenitiesCollection, belongsTo(propertyID))
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(links))
	for _, link := range links {
		if id, ok := link.Int("amenity_id"); ok {
			ids = append(ids, uint(id))
		}
	}
	return NewDocAmenityRepository(r.store).GetByIDs(ids)
}

func propertyRecord(p *models.Property) (docstore.Record, error) {
	record, err := docstore.Encode(p)
	if err != nil {
		return nil, err
	}
	delete(record, "owner")
	delete(record, "images")
	delete(record, "amenities")
	return record, nil
}

func belongsTo(propertyID uint) func(docstore.Record) bool {
	return func(r docstore.Record) bool {
		return docstore.Equal(r["property_id"], propertyID)
	}
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// DocAmenityRepository is a document store implementation of
// AmenityRepository.
type DocAmenityRepository struct {
	store *docstore.Store
}

// NewDocAmenityRepository creates a new instance of DocAmenityRepository.
func NewDocAmenityRepository(store *docstore.Store) *DocAmenityRepository {
	return &DocAmenityRepository{
		store: store,
	}
}

// List returns all amenities in ID order.
func (r *DocAmenityRepository) List() ([]models.Amenity, error) {
	return r.where(func(docstore.Record) bool { return true })
}

// GetByIDs returns the amenities whose IDs are in ids.
func (r *DocAmenityRepository) GetByIDs(ids []uint) ([]models.Amenity, error) {
	if len(ids) == 0 {
		return []models.Amenity{}, nil
	}
	return r.where(func(rec docstore.Record) bool {
		id, ok := rec.ID()
		return ok && slices.Contains(ids, uint(id))
	})
}

// Create stores a new amenity. Names are unique.
func (r *DocAmenityRepository) Create(amenity *models.Amenity) error {
	record, err := docstore.Encode(amenity)
	if err != nil {
		return fmt.Errorf("failed to create amenity: %w", err)
	}
	delete(record, docstore.FieldID)

	stored, err := r.store.InsertChecked(AmenitiesCollection, record, func(existing []docstore.Record) error {
		for _, other := range existing {
			if docstore.Equal(other["name"], amenity.Name) {
				return ErrConflict
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create amenity: %w", err)
	}
	id, _ := stored.ID()
	amenity.ID = uint(id)
	return nil
}

func (r *DocAmenityRepository) where(pred func(docstore.Record) bool) ([]models.Amenity, error) {
	records, err := r.store.FindWhere(AmenitiesCollection, pred)
	if err != nil {
		return nil, fmt.Errorf("failed to list amenities: %w", err)
	}
	amenities := make([]models.Amenity, 0, len(records))
	for _, record := range records {
		var a models.Amenity
		if err := docstore.Decode(record, &a); err != nil {
			return nil, fmt.Errorf("failed to list amenities: %w", err)
		}
		amenities = append(amenities, a)
	}
	slices.SortFunc(amenities, func(a, b models.Amenity) int { return int(a.ID) - int(b.ID) })
	return amenities, nil
}
