package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Listing struct {
	gorm.Model
	ID           uuid.UUID       `gorm:"type:uuid;primary_key" json:"listing_id"`
	Title        string          `gorm:"not null;uniqueIndex:idx_listings_title_location" json:"title"`
	Description  string          `gorm:"not null" json:"description"`
	Price        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Location     string          `gorm:"not null;uniqueIndex:idx_listings_title_location" json:"location"`
	NumBedrooms  int             `gorm:"not null;default:1" json:"num_bedrooms"`
	NumBathrooms int             `gorm:"not null;default:1" json:"num_bathrooms"`
	Type         string          `gorm:"not null;default:'Studio'" json:"type"`
	Amenities    datatypes.JSON  `json:"amenities"`
	UserID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	User         *User           `gorm:"foreignKey:UserID" json:"-"`
	Bookings     []Booking       `gorm:"foreignKey:ListingID" json:"-"`
	Reviews      []Review        `gorm:"foreignKey:ListingID" json:"-"`
}

func (listing *Listing) BeforeCreate(tx *gorm.DB) (err error) {
	if listing.ID == uuid.Nil {
		listing.ID = uuid.New()
	}
	return
}
