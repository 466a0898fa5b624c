package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tadiwos/gojostay/internal/helpers"
	"github.com/tadiwos/gojostay/internal/models"
)

type ListingRequest struct {
	Title        string          `json:"title" binding:"required"`
	Description  string          `json:"description" binding:"required"`
	Price        decimal.Decimal `json:"price" binding:"required"`
	Location     string          `json:"location" binding:"required"`
	NumBedrooms  int             `json:"num_bedrooms"`
	NumBathrooms int             `json:"num_bathrooms"`
	Type         string          `json:"type"`
	Amenities    datatypes.JSON  `json:"amenities"`
}

func ListListings(c *gin.Context) {
	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var listings []models.Listing
	if err := gormDB.Order("created_at desc").Find(&listings).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to fetch listings.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"listings": listings})
}

func GetListing(c *gin.Context) {
	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid listing ID.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var listing models.Listing
	if err := gormDB.Preload("Reviews").First(&listing, "id = ?", listingID).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Listing not found.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"listing": listing})
}

func CreateListing(c *gin.Context) {
	var req ListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}
	userUUID := userID.(uuid.UUID)

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	listing := models.Listing{
		Title:        req.Title,
		Description:  req.Description,
		Price:        req.Price,
		Location:     req.Location,
		NumBedrooms:  req.NumBedrooms,
		NumBathrooms: req.NumBathrooms,
		Type:         req.Type,
		Amenities:    req.Amenities,
		UserID:       userUUID,
	}
	if listing.NumBedrooms == 0 {
		listing.NumBedrooms = 1
	}
	if listing.NumBathrooms == 0 {
		listing.NumBathrooms = 1
	}
	if listing.Type == "" {
		listing.Type = "Studio"
	}

	if err := gormDB.Create(&listing).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create listing.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"listing": listing})
}
