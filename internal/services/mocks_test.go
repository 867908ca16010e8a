package services_test

import (
	"propverse/internal/models"
	"propverse/internal/query"
	"propverse/internal/repositories"
	"propverse/pkg/rabbitmq"

	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByEmail(email string) (*models.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByPhone(phone string) (*models.User, error) {
	args := m.Called(phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(id uint) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockPropertyRepository is a mock implementation of repositories.PropertyRepository
type MockPropertyRepository struct {
	mock.Mock
}

func (m *MockPropertyRepository) List(q query.PropertyQuery) ([]models.Property, int64, error) {
	args := m.Called(q)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Property), args.Get(1).(int64), args.Error(2)
}

func (m *MockPropertyRepository) GetByID(id uint) (*models.Property, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

func (m *MockPropertyRepository) Create(property *models.Property) error {
	args := m.Called(property)
	return args.Error(0)
}

func (m *MockPropertyRepository) Update(property *models.Property, opts repositories.UpdateOptions) error {
	args := m.Called(property, opts)
	return args.Error(0)
}

func (m *MockPropertyRepository) Delete(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

// MockAmenityRepository is a mock implementation of repositories.AmenityRepository
type MockAmenityRepository struct {
	mock.Mock
}

func (m *MockAmenityRepository) List() ([]models.Amenity, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Amenity), args.Error(1)
}

func (m *MockAmenityRepository) GetByIDs(ids []uint) ([]models.Amenity, error) {
	args := m.Called(ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Amenity), args.Error(1)
}

func (m *MockAmenityRepository) Create(amenity *models.Amenity) error {
	args := m.Called(amenity)
	return args.Error(0)
}

// MockPublisher is a mock implementation of services.EventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishPropertyEvent(event rabbitmq.PropertyEvent) error {
	args := m.Called(event)
	return args.Error(0)
}
