package services

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"propverse/internal/apperr"
	"propverse/internal/models"
	"propverse/internal/query"
	"propverse/internal/repositories"
	"propverse/internal/validation"
	"propverse/pkg/rabbitmq"

	"go.uber.org/zap"
)

// EventPublisher receives property lifecycle events.
type EventPublisher interface {
	PublishPropertyEvent(event rabbitmq.PropertyEvent) error
}

// CreatePropertyInput is the body of a create request.
type CreatePropertyInput struct {
	Title              string   `json:"title" validate:"required,max=255"`
	Description        string   `json:"description"`
	PropertyType       string   `json:"property_type" validate:"required,max=50"`
	Location           string   `json:"location" validate:"required,max=255"`
	City               string   `json:"city" validate:"required,max=100"`
	State              string   `json:"state" validate:"required,max=100"`
	Pincode            *string  `json:"pincode" validate:"omitnil,max=20"`
	Latitude           *float64 `json:"latitude" validate:"omitnil,gte=-90,lte=90"`
	Longitude          *float64 `json:"longitude" validate:"omitnil,gte=-180,lte=180"`
	BuiltUpArea        float64  `json:"built_up_area" validate:"required,gt=0"`
	CarpetArea         *float64 `json:"carpet_area" validate:"omitnil,gte=0"`
	Bedrooms           int      `json:"bedrooms" validate:"gte=0"`
	Bathrooms          int      `json:"bathrooms" validate:"gte=0"`
	FloorNumber        *int     `json:"floor_number" validate:"omitnil,gte=0"`
	TotalFloors        *int     `json:"total_floors" validate:"omitnil,gte=0"`
	Facing             *string  `json:"facing" validate:"omitnil,max=20"`
	PropertyAge        *string  `json:"property_age" validate:"omitnil,max=50"`
	FurnishingStatus   string   `json:"furnishing_status" validate:"omitempty,oneof=unfurnished semi-furnished fully-furnished"`
	MonthlyRent        float64  `json:"monthly_rent" validate:"required,gt=0"`
	SecurityDeposit    float64  `json:"security_deposit" validate:"gte=0"`
	MaintenanceCharges float64  `json:"maintenance_charges" validate:"gte=0"`
	PreferredTenants   string   `json:"preferred_tenants" validate:"max=30"`
	AvailableFrom      string   `json:"available_from" validate:"required,datetime=2006-01-02"`
	IsFeatured         bool     `json:"is_featured"`
	Images             []string `json:"images" validate:"dive,required,max=2048"`
	Amenities          []uint   `json:"amenities" validate:"dive,gt=0"`
}

// UpdatePropertyInput is the body of a partial update. Nil fields are left
// unchanged. A non-empty Images list replaces all images; a non-nil
// Amenities list, even an empty one, replaces the amenity set.
type UpdatePropertyInput struct {
	Title              *string  `json:"title" validate:"omitnil,min=1,max=255"`
	Description        *string  `json:"description"`
	PropertyType       *string  `json:"property_type" validate:"omitnil,min=1,max=50"`
	Location           *string  `json:"location" validate:"omitnil,min=1,max=255"`
	City               *string  `json:"city" validate:"omitnil,min=1,max=100"`
	State              *string  `json:"state" validate:"omitnil,min=1,max=100"`
	Pincode            *string  `json:"pincode" validate:"omitnil,max=20"`
	Latitude           *float64 `json:"latitude" validate:"omitnil,gte=-90,lte=90"`
	Longitude          *float64 `json:"longitude" validate:"omitnil,gte=-180,lte=180"`
	BuiltUpArea        *float64 `json:"built_up_area" validate:"omitnil,gt=0"`
	CarpetArea         *float64 `json:"carpet_area" validate:"omitnil,gte=0"`
	Bedrooms           *int     `json:"bedrooms" validate:"omitnil,gte=0"`
	Bathrooms          *int     `json:"bathrooms" validate:"omitnil,gte=0"`
	FloorNumber        *int     `json:"floor_number" validate:"omitnil,gte=0"`
	TotalFloors        *int     `json:"total_floors" validate:"omitnil,gte=0"`
	Facing             *string  `json:"facing" validate:"omitnil,max=20"`
	PropertyAge        *string  `json:"property_age" validate:"omitnil,max=50"`
	FurnishingStatus   *string  `json:"furnishing_status" validate:"omitnil,oneof=unfurnished semi-furnished fully-furnished"`
	MonthlyRent        *float64 `json:"monthly_rent" validate:"omitnil,gt=0"`
	SecurityDeposit    *float64 `json:"security_deposit" validate:"omitnil,gte=0"`
	MaintenanceCharges *float64 `json:"maintenance_charges" validate:"omitnil,gte=0"`
	PreferredTenants   *string  `json:"preferred_tenants" validate:"omitnil,max=30"`
	AvailableFrom      *string  `json:"available_from" validate:"omitnil,datetime=2006-01-02"`
	IsAvailable        *bool    `json:"is_available"`
	IsFeatured         *bool    `json:"is_featured"`
	Images             []string `json:"images" validate:"dive,required,max=2048"`
	Amenities          []uint   `json:"amenities" validate:"dive,gt=0"`
}

// PropertyService handles business logic related to property listings.
type PropertyService struct {
	repo      repositories.PropertyRepository
	amenities repositories.AmenityRepository
	users     repositories.UserRepository
	publisher EventPublisher
	validate  *validation.Validator
	now       func() time.Time
	logger    *zap.Logger
}

// NewPropertyService creates a new PropertyService. publisher may be nil, in
// which case no events are emitted.
func NewPropertyService(repo repositories.PropertyRepository, amenities repositories.AmenityRepository, users repositories.UserRepository, publisher EventPublisher, logger *zap.Logger) *PropertyService {
	return &PropertyService{
		repo:      repo,
		amenities: amenities,
		users:     users,
		publisher: publisher,
		validate:  validation.New(),
		now:       time.Now,
		logger:    logger,
	}
}

// List returns one page of properties and its pagination metadata.
func (s *PropertyService) List(q query.PropertyQuery) ([]models.Property, query.Pagination, error) {
	properties, total, err := s.repo.List(q)
	if err != nil {
		return nil, query.Pagination{}, apperr.Persistence("Could not list properties", err)
	}
	if properties == nil {
		properties = []models.Property{}
	}
	return properties, query.NewPagination(q, total, len(properties)), nil
}

// Get returns the full aggregate of one property.
func (s *PropertyService) Get(id uint) (*models.Property, error) {
	property, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.NotFound("Property not found")
		}
		return nil, apperr.Persistence("Could not load property", err)
	}
	return property, nil
}

// Create validates input and stores a new listing owned by owner.
func (s *PropertyService) Create(owner *models.User, input CreatePropertyInput) (*models.Property, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(owner.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.Validation("Validation failed", map[string]string{"owner_id": "owner does not exist"})
		}
		return nil, apperr.Persistence("Could not load owner", err)
	}
	amenities, err := s.resolveAmenities(input.Amenities)
	if err != nil {
		return nil, err
	}

	property := &models.Property{
		OwnerID:            owner.ID,
		Title:              strings.TrimSpace(input.Title),
		Description:        input.Description,
		PropertyType:       input.PropertyType,
		Location:           input.Location,
		City:               input.City,
		State:              input.State,
		Pincode:            input.Pincode,
		Latitude:           input.Latitude,
		Longitude:          input.Longitude,
		BuiltUpArea:        input.BuiltUpArea,
		CarpetArea:         input.CarpetArea,
		Bedrooms:           input.Bedrooms,
		Bathrooms:          input.Bathrooms,
		FloorNumber:        input.FloorNumber,
		TotalFloors:        input.TotalFloors,
		Facing:             input.Facing,
		PropertyAge:        input.PropertyAge,
		FurnishingStatus:   input.FurnishingStatus,
		MonthlyRent:        input.MonthlyRent,
		SecurityDeposit:    input.SecurityDeposit,
		MaintenanceCharges: input.MaintenanceCharges,
		PreferredTenants:   input.PreferredTenants,
		AvailableFrom:      input.AvailableFrom,
		IsAvailable:        true,
		IsFeatured:         input.IsFeatured,
		Images:             models.BuildImages(input.Images),
		Amenities:          amenities,
	}
	if property.FurnishingStatus == "" {
		property.FurnishingStatus = models.FurnishingUnfurnished
	}
	if property.PreferredTenants == "" {
		property.PreferredTenants = models.PreferredTenantsAny
	}

	if err := s.repo.Create(property); err != nil {
		return nil, apperr.Persistence("Could not create property", err)
	}
	s.logger.Info("property created", zap.Uint("property_id", property.ID), zap.Uint("owner_id", owner.ID))
	s.publish(rabbitmq.PropertyCreated, property)

	return s.Get(property.ID)
}

// AuthorizeOwner loads property id and checks that principal owns it.
// Missing properties are NotFound; properties owned by someone else are
// Forbidden for the given action ("update", "delete").
func (s *PropertyService) AuthorizeOwner(principal *models.User, id uint, action string) (*models.Property, error) {
	property, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if property.OwnerID != principal.ID {
		return nil, apperr.Forbidden(fmt.Sprintf("You do not have permission to %s this property", action))
	}
	return property, nil
}

// Update applies input to a property already checked by AuthorizeOwner.
func (s *PropertyService) Update(property *models.Property, input UpdatePropertyInput) (*models.Property, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}

	opts := repositories.UpdateOptions{}
	if input.Amenities != nil {
		amenities, err := s.resolveAmenities(input.Amenities)
		if err != nil {
			return nil, err
		}
		property.Amenities = amenities
		opts.ReplaceAmenities = true
	}
	if len(input.Images) > 0 {
		property.Images = models.BuildImages(input.Images)
		opts.ReplaceImages = true
	}
	applyUpdate(property, input)

	if err := s.repo.Update(property, opts); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.NotFound("Property not found")
		}
		return nil, apperr.Persistence("Could not update property", err)
	}
	s.logger.Info("property updated", zap.Uint("property_id", property.ID))
	s.publish(rabbitmq.PropertyUpdated, property)

	return s.Get(property.ID)
}

// Delete removes a property owned by principal with its images and amenity
// links.
func (s *PropertyService) Delete(principal *models.User, id uint) error {
	property, err := s.AuthorizeOwner(principal, id, "delete")
	if err != nil {
		return err
	}
	if err := s.repo.Delete(id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperr.NotFound("Property not found")
		}
		return apperr.Persistence("Could not delete property", err)
	}
	s.logger.Info("property deleted", zap.Uint("property_id", id), zap.Uint("owner_id", principal.ID))
	s.publish(rabbitmq.PropertyDeleted, property)
	return nil
}

// ListAmenities returns the amenity catalogue ordered by id.
func (s *PropertyService) ListAmenities() ([]models.Amenity, error) {
	amenities, err := s.amenities.List()
	if err != nil {
		return nil, apperr.Persistence("Could not list amenities", err)
	}
	if amenities == nil {
		amenities = []models.Amenity{}
	}
	return amenities, nil
}

// SeedAmenities inserts catalogue when no amenity exists yet and reports how
// many were created.
func (s *PropertyService) SeedAmenities(catalogue []models.Amenity) (int, error) {
	existing, err := s.amenities.List()
	if err != nil {
		return 0, fmt.Errorf("failed to list amenities: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}
	for i := range catalogue {
		amenity := catalogue[i]
		if err := s.amenities.Create(&amenity); err != nil {
			return i, fmt.Errorf("failed to seed amenity %q: %w", amenity.Name, err)
		}
	}
	s.logger.Info("seeded amenities", zap.Int("count", len(catalogue)))
	return len(catalogue), nil
}

// resolveAmenities loads the amenities named by ids, rejecting unknown ids.
func (s *PropertyService) resolveAmenities(ids []uint) ([]models.Amenity, error) {
	unique := slices.Clone(ids)
	slices.Sort(unique)
	unique = slices.Compact(unique)
	if len(unique) == 0 {
		return []models.Amenity{}, nil
	}

	found, err := s.amenities.GetByIDs(unique)
	if err != nil {
		return nil, apperr.Persistence("Could not load amenities", err)
	}
	if len(found) == len(unique) {
		return found, nil
	}

	known := make(map[uint]bool, len(found))
	for _, a := range found {
		known[a.ID] = true
	}
	var missing []string
	for _, id := range unique {
		if !known[id] {
			missing = append(missing, fmt.Sprint(id))
		}
	}
	return nil, apperr.Validation("Validation failed", map[string]string{
		"amenities": "unknown amenity id(s): " + strings.Join(missing, ", "),
	})
}

func (s *PropertyService) publish(event string, property *models.Property) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishPropertyEvent(rabbitmq.PropertyEvent{
		Event:      event,
		PropertyID: property.ID,
		OwnerID:    property.OwnerID,
		OccurredAt: s.now().UTC(),
	})
	if err != nil {
		s.logger.Warn("failed to publish property event",
			zap.String("event", event),
			zap.Uint("property_id", property.ID),
			zap.Error(err))
	}
}

func applyUpdate(p *models.Property, in UpdatePropertyInput) {
	set(&p.Title, in.Title)
	set(&p.Description, in.Description)
	set(&p.PropertyType, in.PropertyType)
	set(&p.Location, in.Location)
	set(&p.City, in.City)
	set(&p.State, in.State)
	setOptional(&p.Pincode, in.Pincode)
	setOptional(&p.Latitude, in.Latitude)
	setOptional(&p.Longitude, in.Longitude)
	set(&p.BuiltUpArea, in.BuiltUpArea)
	setOptional(&p.CarpetArea, in.CarpetArea)
	set(&p.Bedrooms, in.Bedrooms)
	set(&p.Bathrooms, in.Bathrooms)
	setOptional(&p.FloorNumber, in.FloorNumber)
	setOptional(&p.TotalFloors, in.TotalFloors)
	setOptional(&p.Facing, in.Facing)
	setOptional(&p.PropertyAge, in.PropertyAge)
	set(&p.FurnishingStatus, in.FurnishingStatus)
	set(&p.MonthlyRent, in.MonthlyRent)
	set(&p.SecurityDeposit, in.SecurityDeposit)
	set(&p.MaintenanceCharges, in.MaintenanceCharges)
	set(&p.PreferredTenants, in.PreferredTenants)
	set(&p.AvailableFrom, in.AvailableFrom)
	set(&p.IsAvailable, in.IsAvailable)
	set(&p.IsFeatured, in.IsFeatured)
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func setOptional[T any](dst **T, v *T) {
	if v != nil {
		*dst = v
	}
}
