package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftdrop-backend/pkg/enums"
)

// Order links a buyer, a catalog item, and a payment attempt. Rows are never
// deleted; terminal statuses are kept as the audit trail.
type Order struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber       int64             `gorm:"column:order_number;autoIncrement;uniqueIndex"`
	BuyerChatID       int64             `gorm:"column:buyer_chat_id;not null;index"`
	ItemID            uuid.UUID         `gorm:"column:item_id;type:uuid;not null"`
	Amount            int64             `gorm:"column:amount;not null"`
	LocalReference    string            `gorm:"column:local_reference;not null;uniqueIndex"`
	ProviderPaymentID *string           `gorm:"column:provider_payment_id"`
	Status            enums.OrderStatus `gorm:"column:status;not null;default:'pending';index"`
	DeliveredAt       *time.Time        `gorm:"column:delivered_at"`
	DeclinedAt        *time.Time        `gorm:"column:declined_at"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
