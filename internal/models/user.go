package models

import "time"

// User types accepted at registration.
const (
	UserTypeTenant = "tenant"
	UserTypeOwner  = "owner"
	UserTypeAgent  = "agent"
)

// User represents a registered account. Users are never hard-deleted;
// deactivation clears IsActive.
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Email        *string   `json:"email" gorm:"uniqueIndex;type:varchar(255)"`
	Phone        *string   `json:"phone" gorm:"uniqueIndex;type:varchar(32)"`
	PasswordHash string    `json:"-" gorm:"type:varchar(255);not null"` // never serialized
	FirstName    string    `json:"first_name" gorm:"type:varchar(100);not null"`
	LastName     string    `json:"last_name" gorm:"type:varchar(100)"`
	ProfileImage *string   `json:"profile_image"`
	UserType     string    `json:"user_type" gorm:"type:varchar(20);not null"`
	IsVerified   bool      `json:"is_verified"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
