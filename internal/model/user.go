package model

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Role is the authorization role of a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	}
	return false
}

// User represents an authenticated user in the system.
type User struct {
	ID                uint       `json:"id" gorm:"primaryKey"`
	Name              string     `json:"name" gorm:"size:255;not null"`
	Email             string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash      string     `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	Role              Role       `json:"role" gorm:"size:20;not null;default:'user'"`
	PasswordChangedAt *time.Time `json:"-" gorm:"precision:3"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// BeforeSave keeps Role inside the enumerated set.
func (u *User) BeforeSave(tx *gorm.DB) error {
	if u.Role == "" {
		u.Role = RoleUser
	}
	if !u.Role.Valid() {
		return fmt.Errorf("invalid role %q", u.Role)
	}
	return nil
}

// ChangedPasswordAfter reports whether the password was rotated after a
// token issued at iat (unix seconds) carrying stamp (the password change
// time in unix milliseconds it was issued against). Within the second of the
// change only a token stamped with that change survives.
func (u *User) ChangedPasswordAfter(iat, stamp int64) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	changed := u.PasswordChangedAt.Unix()
	if changed != iat {
		return changed > iat
	}
	return stamp < u.PasswordChangedAt.UnixMilli()
}
