package types

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name      string    `gorm:"index;not null;column:name" json:"name"`
	Email     string    `gorm:"uniqueIndex;not null;column:email" json:"email"`
	Password  string    `gorm:"not null;column:password" json:"-"`
	IsActive  bool      `gorm:"not null;default:false;column:is_active" json:"is_active"`
	AvatarURL string    `gorm:"column:avatar_url" json:"avatar_url"`

	ActivationToken          string     `gorm:"index;column:activation_token" json:"-"`
	ActivationTokenExpires   *time.Time `gorm:"column:activation_token_expires" json:"-"`
	ResetPasswordToken       string     `gorm:"index;column:reset_password_token" json:"-"`
	ResetPasswordTokenExpire *time.Time `gorm:"column:reset_password_token_expires" json:"-"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`

	Companies []*Company `gorm:"many2many:company_members" json:"companies,omitempty"`
}

func (User) TableName() string {
	return "user"
}
