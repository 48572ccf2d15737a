package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the public profile row. Authentication lives with the identity
// provider; this table only carries what the habit features display.
type User struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primary_key"`
	Email       string     `json:"email" gorm:"uniqueIndex:idx_user_email;not null"`
	Username    *string    `json:"username,omitempty" gorm:"uniqueIndex:idx_user_username"`
	DisplayName string     `json:"display_name"`
	AvatarColor string     `json:"avatar_color" gorm:"default:'#6366f1'"`
	CreatedAt   time.Time  `json:"created_at" gorm:"index:idx_user_created"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" gorm:"index"`
}

// ValidationResult reports whether a username can be claimed. Error holds a
// user-facing message when Valid is false.
type ValidationResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// UsernameCheck is returned by the availability endpoint.
type UsernameCheck struct {
	ValidationResult
	Username    string   `json:"username"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// Profile is the public view of a user.
type Profile struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	AvatarColor string    `json:"avatar_color"`
	URL         string    `json:"url"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// BeforeCreate is called before creating a new user record
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = time.Now()
	u.UpdatedAt = time.Now()
	return nil
}

// BeforeUpdate is called before updating a user record
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}
