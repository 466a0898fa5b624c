package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tadiwos/gojostay/internal/helpers"
	"github.com/tadiwos/gojostay/internal/models"
)

// BookingNotifier is the slice of the notifier bookings need.
type BookingNotifier interface {
	BookingConfirmed(email string, booking *models.Booking)
}

type BookingHandler struct {
	notifier BookingNotifier
}

func NewBookingHandler(notifier BookingNotifier) *BookingHandler {
	return &BookingHandler{notifier: notifier}
}

type BookingRequest struct {
	ListingID uuid.UUID `json:"listing_id" binding:"required"`
	StartDate string    `json:"start_date" binding:"required"`
	EndDate   string    `json:"end_date" binding:"required"`
}

func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid start_date, expected YYYY-MM-DD.")
		return
	}
	endDate, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid end_date, expected YYYY-MM-DD.")
		return
	}
	if !endDate.After(startDate) {
		helpers.RespondWithError(c, http.StatusBadRequest, "end_date must be after start_date.")
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

	var listing models.Listing
	if err := gormDB.First(&listing, "id = ?", req.ListingID).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Listing not found.")
		return
	}

	nights := int(endDate.Sub(startDate).Hours() / 24)
	totalAmount := listing.Price.Mul(decimal.NewFromInt(int64(nights)))

	booking := models.Booking{
		ListingID:   listing.ID,
		UserID:      userUUID,
		TotalAmount: totalAmount,
		StartDate:   startDate,
		EndDate:     endDate,
	}
	if err := gormDB.Create(&booking).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create booking.")
		return
	}

	if h.notifier != nil {
		var user models.User
		if err := gormDB.First(&user, "id = ?", userUUID).Error; err == nil {
			h.notifier.BookingConfirmed(user.Email, &booking)
		}
	}

	c.JSON(http.StatusCreated, gin.H{"booking": booking})
}

func (h *BookingHandler) GetBooking(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid booking ID.")
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

	var booking models.Booking
	if err := gormDB.Preload("Listing").First(&booking, "id = ?", bookingID).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Booking not found.")
		return
	}
	if booking.UserID != userUUID {
		helpers.RespondWithError(c, http.StatusForbidden, "You do not own this booking.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

func (h *BookingHandler) ListBookings(c *gin.Context) {
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

	var bookings []models.Booking
	if err := gormDB.Where("user_id = ?", userUUID).Order("start_date").Find(&bookings).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to fetch bookings.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}
