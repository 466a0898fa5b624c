package seed

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tadiwos/gojostay/internal/models"
)

var (
	firstNames = []string{"John", "Jane", "Mike", "Sarah", "David", "Emma", "Chris", "Lisa"}
	lastNames  = []string{"Smith", "Johnson", "Brown", "Taylor", "Miller", "Wilson", "Moore", "Davis"}
	domains    = []string{"gmail.com", "yahoo.com", "hotmail.com", "example.com"}

	propertyTypes = []string{"Studio", "1BR", "2BR", "3BR", "Penthouse", "Loft"}
	locations     = []string{
		"Lagos, Nigeria", "Abuja, Nigeria", "Port Harcourt, Nigeria", "Kano, Nigeria",
		"Ibadan, Nigeria", "Kaduna, Nigeria", "Benin City, Nigeria", "Jos, Nigeria",
		"Calabar, Nigeria", "Owerri, Nigeria", "Enugu, Nigeria", "Warri, Nigeria",
	}
	amenities = []string{"WiFi", "Pool", "Gym", "Parking", "AC", "Kitchen", "Balcony", "Garden"}

	reviewComments = []string{
		"Amazing place! Highly recommend to anyone visiting the area.",
		"Clean, comfortable, and great location. Will definitely book again.",
		"Excellent service and beautiful property. Exceeded expectations.",
		"Good stay overall. Property was as described.",
		"Decent place for a short stay. Basic amenities were available.",
		"Property could use some updates. WiFi was unreliable.",
	}
)

// Stats reports what a seeding run actually created.
type Stats struct {
	Users    int
	Listings int
	Bookings int
	Reviews  int
}

type Seeder struct {
	db     *gorm.DB
	rng    *rand.Rand
	logger *slog.Logger
}

func New(db *gorm.DB, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		db:     db,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: logger,
	}
}

// Run populates users, listings, bookings and reviews. It is idempotent
// by natural key (email, title+location), so re-running tops the data
// up instead of duplicating it.
func (s *Seeder) Run(userCount, listingCount, bookingCount, reviewCount int) (*Stats, error) {
	stats := Stats{}

	users, err := s.seedUsers(userCount)
	if err != nil {
		return nil, fmt.Errorf("seed users: %w", err)
	}
	stats.Users = len(users)

	listings, err := s.seedListings(listingCount, users)
	if err != nil {
		return nil, fmt.Errorf("seed listings: %w", err)
	}
	stats.Listings = len(listings)

	bookings, err := s.seedBookings(bookingCount, listings, users)
	if err != nil {
		return nil, fmt.Errorf("seed bookings: %w", err)
	}
	stats.Bookings = len(bookings)

	reviews, err := s.seedReviews(reviewCount, listings, users)
	if err != nil {
		return nil, fmt.Errorf("seed reviews: %w", err)
	}
	stats.Reviews = len(reviews)

	s.logger.Info("seeding complete",
		"users", stats.Users,
		"listings", stats.Listings,
		"bookings", stats.Bookings,
		"reviews", stats.Reviews,
	)
	return &stats, nil
}

func (s *Seeder) seedUsers(count int) ([]models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("defaultpassword123"), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	var users []models.User
	for i := 0; i < count; i++ {
		firstName := firstNames[s.rng.Intn(len(firstNames))]
		lastName := lastNames[s.rng.Intn(len(lastNames))]
		email := fmt.Sprintf("%s.%s%d@%s", strings.ToLower(firstName), strings.ToLower(lastName), i, domains[s.rng.Intn(len(domains))])

		user := models.User{
			Email:     email,
			Password:  string(hashed),
			FirstName: firstName,
			LastName:  lastName,
		}
		if err := s.db.Where("email = ?", email).FirstOrCreate(&user).Error; err != nil {
			s.logger.Error("error creating user", "email", email, "error", err)
			continue
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Seeder) seedListings(count int, users []models.User) ([]models.Listing, error) {
	if len(users) == 0 {
		return nil, fmt.Errorf("no users to own listings")
	}

	var listings []models.Listing
	for i := 0; i < count; i++ {
		propertyType := propertyTypes[s.rng.Intn(len(propertyTypes))]
		location := locations[s.rng.Intn(len(locations))]
		title := fmt.Sprintf("Beautiful %s in %s #%d", propertyType, city(location), i)
		price := decimal.NewFromFloat(50 + s.rng.Float64()*450).Round(2)

		picked := s.pickAmenities()
		amenitiesJSON, _ := json.Marshal(picked)

		listing := models.Listing{
			Title: title,
			Description: fmt.Sprintf(
				"Stunning %s located in the heart of %s. This property features %v. Perfect for business travelers and vacationers alike.",
				propertyType, location, picked,
			),
			Price:        price,
			Location:     location,
			NumBedrooms:  1 + s.rng.Intn(4),
			NumBathrooms: 1 + s.rng.Intn(3),
			Type:         propertyType,
			Amenities:    datatypes.JSON(amenitiesJSON),
			UserID:       users[s.rng.Intn(len(users))].ID,
		}
		if err := s.db.Where("title = ? AND location = ?", title, location).FirstOrCreate(&listing).Error; err != nil {
			s.logger.Error("error creating listing", "title", title, "error", err)
			continue
		}
		listings = append(listings, listing)
	}
	return listings, nil
}

func (s *Seeder) seedBookings(count int, listings []models.Listing, users []models.User) ([]models.Booking, error) {
	if len(listings) == 0 || len(users) == 0 {
		return nil, fmt.Errorf("no listings or users to book")
	}

	var bookings []models.Booking
	for i := 0; i < count; i++ {
		listing := listings[s.rng.Intn(len(listings))]
		start := time.Now().AddDate(0, 0, s.rng.Intn(120)-30).Truncate(24 * time.Hour)
		nights := 1 + s.rng.Intn(14)
		end := start.AddDate(0, 0, nights)

		booking := models.Booking{
			ListingID:   listing.ID,
			UserID:      users[s.rng.Intn(len(users))].ID,
			TotalAmount: listing.Price.Mul(decimal.NewFromInt(int64(nights))),
			StartDate:   start,
			EndDate:     end,
		}
		if err := s.db.Create(&booking).Error; err != nil {
			s.logger.Error("error creating booking", "listing_id", listing.ID, "error", err)
			continue
		}
		bookings = append(bookings, booking)
	}
	return bookings, nil
}

func (s *Seeder) seedReviews(count int, listings []models.Listing, users []models.User) ([]models.Review, error) {
	if len(listings) == 0 || len(users) == 0 {
		return nil, fmt.Errorf("no listings or users to review")
	}

	var reviews []models.Review
	for i := 0; i < count; i++ {
		review := models.Review{
			ListingID: listings[s.rng.Intn(len(listings))].ID,
			UserID:    users[s.rng.Intn(len(users))].ID,
			Rating:    1 + s.rng.Intn(5),
			Comment:   reviewComments[s.rng.Intn(len(reviewComments))],
		}
		if err := s.db.Create(&review).Error; err != nil {
			s.logger.Error("error creating review", "listing_id", review.ListingID, "error", err)
			continue
		}
		reviews = append(reviews, review)
	}
	return reviews, nil
}

func (s *Seeder) pickAmenities() []string {
	n := 3 + s.rng.Intn(4)
	picked := make([]string, 0, n)
	for _, idx := range s.rng.Perm(len(amenities))[:n] {
		picked = append(picked, amenities[idx])
	}
	return picked
}

func city(location string) string {
	return strings.Split(location, ",")[0]
}
