package types

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// ProductImage is one stored image asset descriptor. Exchange marks assets
// uploaded by the exchange pipeline; manually uploaded images keep it false
// and are never touched by the pipeline.
type ProductImage struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Exchange bool   `json:"exchange,omitempty"`
}

// Product is a catalog record synced from a tenant's CommerceML exchange
// feed. ExternalID is globally unique: "{companyId}#{baseId}{characteristicId}".
// ProductID ("{companyId}#{baseId}") groups characteristic variants of one
// base product.
type Product struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	CompanyID        uint           `gorm:"index;not null" json:"company_id"`
	Company          *Company       `gorm:"constraint:OnDelete:CASCADE;foreignKey:CompanyID;references:ID" json:"company,omitempty"`
	ExternalID       string         `gorm:"uniqueIndex;not null;column:external_id" json:"external_id"`
	ProductID        string         `gorm:"index;not null;column:product_id" json:"product_id"`
	CharacteristicID string         `gorm:"column:characteristic_id" json:"characteristic_id"`
	Number           string         `gorm:"column:number" json:"number"`
	Barcode          string         `gorm:"column:barcode" json:"barcode"`
	Name             string         `gorm:"index;not null;column:name" json:"name"`
	Unit             string         `gorm:"column:unit" json:"unit"`
	Vat              string         `gorm:"column:vat" json:"vat"`
	SellPrice        int            `gorm:"not null;default:0;column:sell_price" json:"sell_price"`
	InStock          int            `gorm:"not null;default:0;column:in_stock" json:"in_stock"`
	Images           datatypes.JSON `gorm:"column:images" json:"images"`
	CreatedAt        time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Product) TableName() string {
	return "product"
}

// DecodeImages unpacks the JSON image column. A null or empty column decodes
// to a nil slice.
func (p *Product) DecodeImages() ([]ProductImage, error) {
	if len(p.Images) == 0 {
		return nil, nil
	}
	var images []ProductImage
	if err := json.Unmarshal(p.Images, &images); err != nil {
		return nil, err
	}
	return images, nil
}

// EncodeImages packs an image descriptor list into the JSON column format.
func EncodeImages(images []ProductImage) (datatypes.JSON, error) {
	if images == nil {
		images = []ProductImage{}
	}
	raw, err := json.Marshal(images)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
