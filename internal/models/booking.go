package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Booking struct {
	gorm.Model
	ID          uuid.UUID       `gorm:"type:uuid;primary_key" json:"booking_id"`
	ListingID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"listing_id"`
	Listing     *Listing        `gorm:"foreignKey:ListingID" json:"-"`
	UserID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	User        *User           `gorm:"foreignKey:UserID" json:"-"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	StartDate   time.Time       `gorm:"not null;index" json:"start_date"`
	EndDate     time.Time       `gorm:"not null;index" json:"end_date"`
	Payment     *Payment        `gorm:"foreignKey:BookingID" json:"-"`
}

func (booking *Booking) BeforeCreate(tx *gorm.DB) (err error) {
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	return
}

// Nights is the stay length the booking total is computed from.
func (booking *Booking) Nights() int {
	return int(booking.EndDate.Sub(booking.StartDate).Hours() / 24)
}
