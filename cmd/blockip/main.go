package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/tadiwos/gojostay/config"
	"github.com/tadiwos/gojostay/internal/models"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s <ip_address>\n\nAdds an IP address to the block list.\n", os.Args[0])
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	ipAddress := flag.Arg(0)
	if net.ParseIP(ipAddress) == nil {
		log.Fatalf("Invalid IP address: %q", ipAddress)
	}

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

	var existing models.BlockedIP
	err = db.Where("ip_address = ?", ipAddress).First(&existing).Error
	if err == nil {
		fmt.Printf("IP address %s is already blocked.\n", ipAddress)
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Fatalf("Failed to check block list: %v", err)
	}

	if err := db.Create(&models.BlockedIP{IPAddress: ipAddress}).Error; err != nil {
		log.Fatalf("Failed to block IP address %q: %v", ipAddress, err)
	}

	fmt.Printf("Successfully blocked IP address: %s\n", ipAddress)
}
