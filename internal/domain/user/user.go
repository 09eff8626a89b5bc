package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleStudent   Role = "student"
	RoleProfessor Role = "professor"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleProfessor, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null;column:email" json:"email"`
	Username     string    `gorm:"uniqueIndex;not null;column:username" json:"username"`
	PasswordHash string    `gorm:"not null;column:password_hash" json:"-"`
	Role         Role      `gorm:"not null;column:role;index" json:"role"`
	FirstName    string    `gorm:"column:first_name" json:"first_name"`
	LastName     string    `gorm:"column:last_name" json:"last_name"`
	AvatarKey    string    `gorm:"column:avatar_key" json:"-"`
	AvatarURL    string    `gorm:"column:avatar_url" json:"avatar_url"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "user" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Initials feeds avatar rendering; falls back to the username when name
// fields are empty.
func (u *User) Initials() string {
	first, last := "", ""
	if len(u.FirstName) > 0 {
		first = string([]rune(u.FirstName)[0:1])
	}
	if len(u.LastName) > 0 {
		last = string([]rune(u.LastName)[0:1])
	}
	if first == "" && last == "" && len(u.Username) > 0 {
		first = string([]rune(u.Username)[0:1])
	}
	return first + last
}
