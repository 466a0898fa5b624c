package main

import (
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/tadiwos/gojostay/config"
	"github.com/tadiwos/gojostay/internal/seed"
)

func main() {
	users := flag.Int("users", 50, "number of users to create")
	listings := flag.Int("listings", 50, "number of listings to create")
	bookings := flag.Int("bookings", 100, "number of bookings to create")
	reviews := flag.Int("reviews", 150, "number of reviews to create")
	flag.Parse()

	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := config.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	seeder := seed.New(db, logger)

	stats, err := seeder.Run(*users, *listings, *bookings, *reviews)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	logger.Info("done",
		"users", stats.Users,
		"listings", stats.Listings,
		"bookings", stats.Bookings,
		"reviews", stats.Reviews,
	)
}
