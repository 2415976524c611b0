package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type EntityType string

const (
	EntityTypePhysical EntityType = "physical"
	EntityTypeLegal    EntityType = "legal"
)

// Company is a tenant: it owns products, items and one exchange folder named
// by its numeric id.
type Company struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	Name             string         `gorm:"index;not null;column:name" json:"name"`
	Tin              string         `gorm:"uniqueIndex;not null;column:tin" json:"tin"`
	EntityType       EntityType     `gorm:"not null;column:entity_type" json:"entity_type"`
	Image            datatypes.JSON `gorm:"column:image" json:"image"`
	Description      string         `gorm:"column:description" json:"description"`
	ShortDescription string         `gorm:"column:short_description" json:"short_description"`
	Contacts         datatypes.JSON `gorm:"column:contacts" json:"contacts"`
	Socials          datatypes.JSON `gorm:"column:socials" json:"socials"`
	CreatedAt        time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null;default:now()" json:"updated_at"`

	Users []*User `gorm:"many2many:company_members" json:"users,omitempty"`
}

func (Company) TableName() string {
	return "company"
}

// CompanyMember is the user<->company join row. Membership gates company
// mutation, item creation and the exchange trigger.
type CompanyMember struct {
	CompanyID uint      `gorm:"primaryKey" json:"company_id"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (CompanyMember) TableName() string {
	return "company_members"
}
