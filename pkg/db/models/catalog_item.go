package models

import (
	"time"

	"github.com/google/uuid"
)

// CatalogItem is a purchasable item. Price is whole currency units; the
// value is copied onto orders at checkout so later edits never change a
// charged amount.
type CatalogItem struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Price       int64     `gorm:"column:price;not null"`
	Description string    `gorm:"column:description;not null;default:''"`
	ImageURL    *string   `gorm:"column:image_url"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
