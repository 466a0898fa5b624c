package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// GatewayLog holds the last raw Chapa payload received for each
// interaction type. Keys are fixed; a new payload for a key replaces the
// previous one and leaves the other keys untouched.
type GatewayLog struct {
	Initiate     json.RawMessage `json:"initiate,omitempty"`
	Verification json.RawMessage `json:"verification,omitempty"`
	Webhook      json.RawMessage `json:"webhook,omitempty"`
}

// Payment is the single payment attempt for a booking. A booking has at
// most one payment row; re-initiating a failed or cancelled payment
// reuses the row and its tx_ref.
type Payment struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key" json:"payment_id"`
	BookingID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"booking_id"`
	Booking         *Booking        `gorm:"foreignKey:BookingID" json:"-"`
	UserID          uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	User            *User           `gorm:"foreignKey:UserID" json:"-"`
	Amount          decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency        string          `gorm:"size:3;not null;default:'ETB'" json:"currency"`
	Status          PaymentStatus   `gorm:"size:20;not null;default:'pending'" json:"status"`
	TransactionID   string          `json:"transaction_id,omitempty"`
	TxRef           string          `gorm:"size:100;uniqueIndex;not null" json:"tx_ref"`
	CheckoutURL     string          `json:"checkout_url,omitempty"`
	PaymentMethod   string          `json:"payment_method,omitempty"`
	GatewayResponse datatypes.JSON  `json:"gateway_response,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
}

func (payment *Payment) BeforeCreate(tx *gorm.DB) (err error) {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	if payment.TxRef == "" {
		payment.TxRef = NewTxRef(payment.BookingID)
	}
	return
}

// NewTxRef builds the idempotency reference shared with Chapa. The
// booking id keeps it traceable, the random suffix keeps it unique when
// a booking's payment row is ever recreated.
func NewTxRef(bookingID uuid.UUID) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("booking_%s_%s", bookingID, suffix)
}

// IsTerminal reports whether the webhook/verify path may still move the
// payment. Completed payments never transition again.
func (payment *Payment) IsTerminal() bool {
	return payment.Status == PaymentStatusCompleted
}

// MergeGatewayResponse stores raw under the given interaction key,
// preserving payloads recorded under the other keys.
func (payment *Payment) MergeGatewayResponse(key string, raw json.RawMessage) error {
	var log GatewayLog
	if len(payment.GatewayResponse) > 0 {
		if err := json.Unmarshal(payment.GatewayResponse, &log); err != nil {
			return fmt.Errorf("decode gateway response: %w", err)
		}
	}

	switch key {
	case "initiate":
		log.Initiate = raw
	case "verification":
		log.Verification = raw
	case "webhook":
		log.Webhook = raw
	default:
		return fmt.Errorf("unknown gateway response key %q", key)
	}

	merged, err := json.Marshal(log)
	if err != nil {
		return err
	}
	payment.GatewayResponse = datatypes.JSON(merged)
	return nil
}
