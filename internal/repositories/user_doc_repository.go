package repositories

import (
	"errors"
	"fmt"

	"propverse/internal/docstore"
	"propverse/internal/models"
)

// Collection names used by the document store backend.
const (
	UsersCollection             = "users"
	PropertiesCollection        = "properties"
	PropertyImagesCollection    = "property_images"
	AmenitiesCollection         = "amenities"
	PropertyAmenitiesCollection = "property_amenities"
)

// userDocument is the stored shape of a user. Unlike the API shape it keeps
// the password hash.
type userDocument struct {
	models.User
	PasswordHash string `json:"password_hash"`
}

func userFromRecord(r docstore.Record) (*models.User, error) {
	var doc userDocument
	if err := docstore.Decode(r, &doc); err != nil {
		return nil, err
	}
	user := doc.User
	user.PasswordHash = doc.PasswordHash
	return &user, nil
}

// DocUserRepository is a document store implementation of UserRepository.
type DocUserRepository struct {
	store *docstore.Store
}

// NewDocUserRepository creates a new instance of DocUserRepository.
func NewDocUserRepository(store *docstore.Store) *DocUserRepository {
	return &DocUserRepository{
		store: store,
	}
}

// Create stores a new user. Email and phone are checked for uniqueness while
// the users collection is locked.
func (r *DocUserRepository) Create(user *models.User) error {
	record, err := docstore.Encode(userDocument{User: *user, PasswordHash: user.PasswordHash})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	stored, err := r.store.InsertChecked(UsersCollection, record, func(existing []docstore.Record) error {
		for _, other := range existing {
			if user.Email != nil && docstore.Equal(other["email"], *user.Email) {
				return ErrConflict
			}
			if user.Phone != nil && docstore.Equal(other["phone"], *user.Phone) {
				return ErrConflict
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	created, err := userFromRecord(stored)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	*user = *created
	return nil
}

// GetByEmail retrieves a user by their email.
func (r *DocUserRepository) GetByEmail(email string) (*models.User, error) {
	return r.first("email", email)
}

// GetByPhone retrieves a user by their phone number.
func (r *DocUserRepository) GetByPhone(phone string) (*models.User, error) {
	return r.first("phone", phone)
}

// GetByID retrieves a user by their ID.
func (r *DocUserRepository) GetByID(id uint) (*models.User, error) {
	record, err := r.store.GetByID(UsersCollection, int64(id))
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, fmt.Errorf("user with id %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by id %d: %w", id, err)
	}
	return userFromRecord(record)
}

func (r *DocUserRepository) first(field, value string) (*models.User, error) {
	records, err := r.store.FindBy(UsersCollection, field, value)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by %s %s: %w", field, value, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("user with %s %s: %w", field, value, ErrNotFound)
	}
	return userFromRecord(records[0])
}
