package models

import "time"

// User is a chat participant. Rows are upserted on any inbound interaction
// and never deleted.
type User struct {
	ChatID    int64     `gorm:"column:chat_id;primaryKey"`
	FirstName string    `gorm:"column:first_name;not null"`
	LastName  string    `gorm:"column:last_name;not null;default:''"`
	Username  string    `gorm:"column:username;not null;default:''"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
