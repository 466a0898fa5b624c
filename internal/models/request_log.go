package models

import (
	"time"
)

type RequestLog struct {
	ID         uint      `gorm:"primary_key" json:"id"`
	IPAddress  string    `gorm:"size:45;not null;index" json:"ip_address"`
	Path       string    `gorm:"size:255;not null;index" json:"path"`
	IsRoutable bool      `gorm:"not null;default:false" json:"is_routable"`
	Country    string    `gorm:"size:100" json:"country"`
	City       string    `gorm:"size:100" json:"city"`
	Timestamp  time.Time `gorm:"autoCreateTime;index" json:"timestamp"`
}

type BlockedIP struct {
	ID        uint      `gorm:"primary_key" json:"id"`
	IPAddress string    `gorm:"size:45;unique;not null" json:"ip_address"`
	BlockedAt time.Time `gorm:"autoCreateTime" json:"blocked_at"`
}
