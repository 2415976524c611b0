package types

import (
	"time"

	"gorm.io/datatypes"
)

// Item is a manually managed catalog entry, bulk-created through the API.
// ExternalID is tenant-scoped: "{companyId}_{externalId}".
type Item struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	CompanyID     uint           `gorm:"index;not null" json:"company_id"`
	Company       *Company       `gorm:"constraint:OnDelete:CASCADE;foreignKey:CompanyID;references:ID" json:"company,omitempty"`
	ExternalID    string         `gorm:"uniqueIndex;not null;column:external_id" json:"external_id"`
	Name          string         `gorm:"index;not null;column:name" json:"name"`
	Number        string         `gorm:"column:number" json:"number"`
	IsService     bool           `gorm:"not null;default:false;column:is_service" json:"is_service"`
	SalePrice     int            `gorm:"not null;default:0;column:sale_price" json:"sale_price"`
	PurchasePrice int            `gorm:"not null;default:0;column:purchase_price" json:"purchase_price"`
	Images        datatypes.JSON `gorm:"column:images" json:"images"`
	CreatedAt     time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Item) TableName() string {
	return "item"
}
