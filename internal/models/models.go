package models

import (
	"time"
)

// Product rows are created only by administrative seeding; there is no
// update or delete endpoint for them.
type Product struct {
	ID          uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string  `gorm:"not null"                 json:"name"`
	Description string  `gorm:"not null"                 json:"description"`
	Price       float64 `gorm:"not null;check:price>=0"  json:"price"`
	ImageURL    string  `gorm:"column:image_url"         json:"imageUrl"`
}

// CartItem keeps at most one row per product; adds merge into the
// existing row.
type CartItem struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"              json:"id"`
	ProductID uint      `gorm:"uniqueIndex;not null"                  json:"product_id"`
	Quantity  uint      `gorm:"not null;default:1;check:quantity>0"   json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null"     json:"email"`
	Name         string    `gorm:"not null"                 json:"name"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
